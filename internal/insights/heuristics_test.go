package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/finrecon/internal/domain"
)

var testNow = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func card(key string, avgMinor int64, recurring bool) domain.MerchantSpend {
	return domain.MerchantSpend{
		MerchantKey:          key,
		MerchantName:         key,
		AvgMonthlySpendMinor: avgMinor,
		TotalSpendMinor:      avgMinor * 3,
		ActiveMonths:         3,
		Recurring:            recurring,
	}
}

func TestHeuristicActions_Types(t *testing.T) {
	merchants := []domain.MerchantSpend{
		card("netflix", 2500, true),
		card("pret", 1500, true),
		card("flight", 9000, false),
		card("kiosk", 500, true),
	}

	actions := HeuristicActions("alice", merchants, nil, 10, testNow)
	require.Len(t, actions, 3)

	byKey := map[string]domain.Action{}
	for _, a := range actions {
		byKey[a.MerchantKey] = a
	}

	cancel := byKey["netflix"]
	assert.Equal(t, domain.ActionCancel, cancel.Type)
	assert.Equal(t, int64(2500), cancel.EstimatedMonthlySavingsMinor)
	assert.Equal(t, 0.78, cancel.Confidence)

	reduce := byKey["pret"]
	assert.Equal(t, domain.ActionReduce, reduce.Type)
	assert.Equal(t, int64(375), reduce.EstimatedMonthlySavingsMinor)

	review := byKey["flight"]
	assert.Equal(t, domain.ActionReview, review.Type)
	assert.Equal(t, int64(900), review.EstimatedMonthlySavingsMinor)

	_, ok := byKey["kiosk"]
	assert.False(t, ok, "below-threshold merchants produce no action")
}

func TestHeuristicActions_DebtOptimization(t *testing.T) {
	debt := &domain.DebtServiceReport{
		Source: domain.SourceBarclays,
		PerMonth: []domain.DebtServiceEntry{
			{Month: "2024-03"}, {Month: "2024-04"},
		},
		Totals: domain.DebtServiceTotals{EstimatedInterestMinor: 7000},
	}

	actions := HeuristicActions("alice", nil, debt, 10, testNow)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActionDebtOptimization, actions[0].Type)
	assert.Equal(t, int64(3500), actions[0].EstimatedMonthlySavingsMinor)
	assert.Equal(t, 0.73, actions[0].Confidence)
}

func TestHeuristicActions_SortedAndCapped(t *testing.T) {
	merchants := []domain.MerchantSpend{
		card("small", 900, true),
		card("big", 5000, true),
		card("mid", 2500, true),
	}

	actions := HeuristicActions("alice", merchants, nil, 2, testNow)
	require.Len(t, actions, 2)
	assert.Equal(t, "big", actions[0].MerchantKey)
	assert.Equal(t, "mid", actions[1].MerchantKey)
}

func TestActionID_StablePerOwnerMerchantType(t *testing.T) {
	a := ActionID("alice", "netflix", domain.ActionCancel)
	assert.Equal(t, a, ActionID("alice", "netflix", domain.ActionCancel))
	assert.Len(t, a, 24)
	assert.NotEqual(t, a, ActionID("bob", "netflix", domain.ActionCancel))
	assert.NotEqual(t, a, ActionID("alice", "netflix", domain.ActionReduce))
}

func TestCarryStatus(t *testing.T) {
	actions := HeuristicActions("alice", []domain.MerchantSpend{card("netflix", 2500, true)}, nil, 10, testNow)
	require.Len(t, actions, 1)

	existing := []domain.Action{
		{ID: actions[0].ID, Status: "dismissed"},
		{ID: "unrelated", Status: "accepted"},
	}
	carried := CarryStatus(actions, existing)
	assert.Equal(t, "dismissed", carried[0].Status)
}

func TestMergeRefined(t *testing.T) {
	savings := int64(1800)
	actions := []domain.Action{
		{MerchantKey: "netflix", Type: domain.ActionCancel, Title: "Cancel netflix",
			EstimatedMonthlySavingsMinor: 2500, Confidence: 0.78, Origin: "heuristic"},
	}
	refined := []refinedAction{
		{MerchantKey: "netflix", Type: "cancel", Title: "Cancel the Netflix subscription",
			Reason: "Unused for two months.", EstimatedMonthlySavingsMinor: &savings, Confidence: 0.85},
		{MerchantKey: "invented", Type: "cancel", Title: "Ignore me"},
	}

	merged := mergeRefined(actions, refined)
	require.Len(t, merged, 1)
	assert.Equal(t, "Cancel the Netflix subscription", merged[0].Title)
	assert.Equal(t, int64(1800), merged[0].EstimatedMonthlySavingsMinor)
	assert.Equal(t, 0.85, merged[0].Confidence)
	assert.Equal(t, "llm", merged[0].Origin)
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `[{"a":1}]`, `[{"a":1}]`},
		{"fenced", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"prose around", "Here you go:\n[{\"a\":1}]\nHope that helps!", `[{"a":1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanModelJSON(tt.in))
		})
	}
}
