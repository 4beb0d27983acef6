package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/finrecon/internal/domain"
)

func potTransfer(day time.Time, amountMinor int64, meta map[string]string) domain.LedgerTransaction {
	return domain.LedgerTransaction{
		CreatedAt:   day,
		AmountMinor: amountMinor,
		CategoryKey: "pot_transfer",
		Metadata:    meta,
	}
}

func TestPotContributions(t *testing.T) {
	ledger := []domain.LedgerTransaction{
		potTransfer(at(2024, 1, 5), -10000, map[string]string{"destination_pot_id": "holiday"}),
		potTransfer(at(2024, 2, 5), -10000, map[string]string{"pot_id": "holiday"}),
		potTransfer(at(2024, 2, 20), -3000, map[string]string{"source_pot_id": "holiday"}),
		{CreatedAt: at(2024, 2, 21), AmountMinor: -500, CategoryKey: "coffee"},
	}

	pots := PotContributions(ledger)
	require.Contains(t, pots, "holiday")

	holiday := pots["holiday"]
	assert.Equal(t, int64(20000), holiday.TotalInMinor)
	assert.Equal(t, int64(3000), holiday.TotalOutMinor)
	assert.Equal(t, int64(10000), holiday.NetByMonth["2024-01"])
	assert.Equal(t, int64(7000), holiday.NetByMonth["2024-02"])
}

func TestGoalForecasts_EtaFromRollingContribution(t *testing.T) {
	goals := []domain.Goal{
		{GoalID: "g1", Title: "Japan trip", LinkedPotID: "holiday", EstimatedCostMinor: 10000, Status: domain.GoalStatusActive},
	}
	pots := []domain.Pot{{PotID: "holiday", Name: "Holiday", BalanceMinor: 4000}}
	contributions := map[string]*PotContribution{
		"holiday": {PotID: "holiday", NetByMonth: map[string]int64{
			"2024-01": 1000,
			"2024-02": 1000,
		}},
	}

	now := at(2024, 3, 1)
	forecasts := GoalForecasts(goals, pots, contributions, now)
	require.Len(t, forecasts, 1)

	f := forecasts[0]
	assert.Equal(t, int64(6000), f.RemainingMinor)
	assert.Equal(t, int64(1000), f.MonthlyContributionMinor)
	require.NotNil(t, f.EtaMonths)
	assert.Equal(t, 6, *f.EtaMonths)
	require.NotNil(t, f.EtaDate)
	assert.Equal(t, now.Add(6*30*24*time.Hour), *f.EtaDate)
	require.NotNil(t, f.ProgressPct)
	assert.Equal(t, 40.00, *f.ProgressPct)
}

func TestGoalForecasts_RollingWindowUsesLastSixMonths(t *testing.T) {
	net := map[string]int64{}
	for m := 1; m <= 9; m++ {
		net[at(2023, time.Month(m), 1).Format("2006-01")] = int64(m * 100)
	}
	contributions := map[string]*PotContribution{"p": {PotID: "p", NetByMonth: net}}
	goals := []domain.Goal{{GoalID: "g", LinkedPotID: "p", EstimatedCostMinor: 100000}}

	forecasts := GoalForecasts(goals, []domain.Pot{{PotID: "p"}}, contributions, at(2023, 10, 1))
	require.Len(t, forecasts, 1)

	// months 4..9 average to 650
	assert.Equal(t, int64(650), forecasts[0].MonthlyContributionMinor)
	assert.Equal(t, 6, forecasts[0].SampleSize)
}

func TestGoalForecasts_NoEtaWithoutContribution(t *testing.T) {
	goals := []domain.Goal{{GoalID: "g", LinkedPotID: "p", EstimatedCostMinor: 5000}}
	forecasts := GoalForecasts(goals, []domain.Pot{{PotID: "p", BalanceMinor: 1000}}, nil, at(2024, 1, 1))
	require.Len(t, forecasts, 1)
	assert.Nil(t, forecasts[0].EtaMonths)
	assert.Nil(t, forecasts[0].EtaDate)
}

func TestGoalForecasts_DoneGoalsSkippedAndOverfundedClamped(t *testing.T) {
	goals := []domain.Goal{
		{GoalID: "done", LinkedPotID: "p", EstimatedCostMinor: 5000, Status: domain.GoalStatusDone},
		{GoalID: "over", LinkedPotID: "p", EstimatedCostMinor: 5000},
	}
	pots := []domain.Pot{{PotID: "p", BalanceMinor: 9000}}

	forecasts := GoalForecasts(goals, pots, nil, at(2024, 1, 1))
	require.Len(t, forecasts, 1)
	assert.Equal(t, "over", forecasts[0].GoalID)
	assert.Zero(t, forecasts[0].RemainingMinor)
	require.NotNil(t, forecasts[0].ProgressPct)
	assert.Equal(t, 100.00, *forecasts[0].ProgressPct)
}

func TestGoalForecasts_NoTargetNoProgress(t *testing.T) {
	goals := []domain.Goal{{GoalID: "g", LinkedPotID: "p"}}
	forecasts := GoalForecasts(goals, []domain.Pot{{PotID: "p", BalanceMinor: 100}}, nil, at(2024, 1, 1))
	require.Len(t, forecasts, 1)
	assert.Nil(t, forecasts[0].ProgressPct)
}

func TestSummarizeExternal(t *testing.T) {
	rows := []domain.ExternalTransaction{
		{Source: domain.SourceBarclays, PostedAt: at(2024, 3, 1), AmountMinor: -1000},
		{Source: domain.SourceBarclays, PostedAt: at(2024, 3, 9), AmountMinor: 400},
		{Source: domain.SourcePayPal, PostedAt: at(2024, 2, 1), AmountMinor: -200},
	}

	summaries := SummarizeExternal(rows)
	require.Len(t, summaries, 2)

	barclays := summaries[0]
	assert.Equal(t, domain.SourceBarclays, barclays.Source)
	assert.Equal(t, 2, barclays.Rows)
	assert.Equal(t, int64(1000), barclays.SpendMinor)
	assert.Equal(t, int64(400), barclays.InflowMinor)
	require.NotNil(t, barclays.FirstDate)
	assert.Equal(t, at(2024, 3, 1), *barclays.FirstDate)
}

func TestSummarizeMatches(t *testing.T) {
	records := []domain.MatchRecord{
		{Source: domain.SourceBarclays, Status: domain.MatchStatusMatched},
		{Source: domain.SourceBarclays, Status: domain.MatchStatusUnmatched},
		{Source: domain.SourcePayPal, Status: domain.MatchStatusMatched},
	}

	summaries := SummarizeMatches(records)
	require.Len(t, summaries, 2)
	assert.Equal(t, 1, summaries[0].Matched)
	assert.Equal(t, 1, summaries[0].Unmatched)
	assert.Equal(t, 1, summaries[1].Matched)
}
