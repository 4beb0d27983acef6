// Package insights turns dashboard aggregates into suggested savings
// actions. Candidates come from deterministic heuristics over recurring
// optional spend and debt interest; a Gemini pass can refine the wording
// and estimates but never invents or removes candidates.
package insights

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/ledgerkit/finrecon/internal/domain"
)

// Heuristic thresholds, in minor units per month.
const (
	minMonthlySpend = 800  // below this a merchant is noise
	cancelThreshold = 2000 // recurring spend above this is worth cancelling outright
)

// Savings estimates as a share of monthly spend, and the confidence the
// heuristic assigns to each action type.
const (
	cancelConfidence = 0.78
	reduceConfidence = 0.68
	reviewConfidence = 0.55
	debtConfidence   = 0.73

	reduceShare = 0.25
	reviewShare = 0.10
)

// DefaultMaxActions caps a generation run unless the caller asks for more.
const DefaultMaxActions = 8

// ActionID is the stable identity of an action: same owner, merchant and
// type always produce the same id, so regeneration preserves user status.
func ActionID(ownerID, merchantKey string, actionType domain.ActionType) string {
	sum := sha1.Sum([]byte(ownerID + "|" + merchantKey + "|" + string(actionType)))
	return hex.EncodeToString(sum[:])[:24]
}

// HeuristicActions derives savings candidates from the optional-spend
// merchant cards and the debt-service report. Results are sorted by
// estimated savings and capped at maxActions.
func HeuristicActions(ownerID string, merchants []domain.MerchantSpend, debt *domain.DebtServiceReport, maxActions int, now time.Time) []domain.Action {
	if maxActions <= 0 {
		maxActions = DefaultMaxActions
	}

	var actions []domain.Action
	for _, m := range merchants {
		if m.AvgMonthlySpendMinor < minMonthlySpend {
			continue
		}

		var (
			actionType domain.ActionType
			savings    int64
			conf       float64
			title      string
			reason     string
		)
		switch {
		case m.Recurring && m.AvgMonthlySpendMinor >= cancelThreshold:
			actionType = domain.ActionCancel
			savings = m.AvgMonthlySpendMinor
			conf = cancelConfidence
			title = fmt.Sprintf("Cancel %s", m.MerchantName)
			reason = fmt.Sprintf("Recurring optional spend of %s/month across %d months.",
				formatMinor(m.AvgMonthlySpendMinor), m.ActiveMonths)
		case m.Recurring:
			actionType = domain.ActionReduce
			savings = int64(float64(m.AvgMonthlySpendMinor) * reduceShare)
			conf = reduceConfidence
			title = fmt.Sprintf("Reduce spending at %s", m.MerchantName)
			reason = fmt.Sprintf("Repeats monthly at %s/month; trimming a quarter is realistic.",
				formatMinor(m.AvgMonthlySpendMinor))
		default:
			actionType = domain.ActionReview
			savings = int64(float64(m.AvgMonthlySpendMinor) * reviewShare)
			conf = reviewConfidence
			title = fmt.Sprintf("Review %s", m.MerchantName)
			reason = fmt.Sprintf("One-off optional spend of %s this period.",
				formatMinor(m.TotalSpendMinor))
		}
		if savings <= 0 {
			continue
		}

		actions = append(actions, domain.Action{
			ID:                           ActionID(ownerID, m.MerchantKey, actionType),
			MerchantKey:                  m.MerchantKey,
			MerchantName:                 m.MerchantName,
			Origin:                       "heuristic",
			Type:                         actionType,
			Title:                        title,
			Reason:                       reason,
			EstimatedMonthlySavingsMinor: savings,
			Confidence:                   conf,
			Status:                       "suggested",
			GeneratedAt:                  now,
		})
	}

	if debt != nil && debt.Totals.EstimatedInterestMinor > 0 && len(debt.PerMonth) > 0 {
		monthly := debt.Totals.EstimatedInterestMinor / int64(len(debt.PerMonth))
		if monthly > 0 {
			actions = append(actions, domain.Action{
				ID:           ActionID(ownerID, string(debt.Source), domain.ActionDebtOptimization),
				MerchantKey:  string(debt.Source),
				MerchantName: string(debt.Source),
				Origin:       "heuristic",
				Type:         domain.ActionDebtOptimization,
				Title:        fmt.Sprintf("Pay down the %s balance faster", debt.Source),
				Reason: fmt.Sprintf("Estimated interest of %s/month; a balance transfer or larger payments would cut it.",
					formatMinor(monthly)),
				EstimatedMonthlySavingsMinor: monthly,
				Confidence:                   debtConfidence,
				Status:                       "suggested",
				GeneratedAt:                  now,
			})
		}
	}

	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].EstimatedMonthlySavingsMinor != actions[j].EstimatedMonthlySavingsMinor {
			return actions[i].EstimatedMonthlySavingsMinor > actions[j].EstimatedMonthlySavingsMinor
		}
		return actions[i].ID < actions[j].ID
	})
	if len(actions) > maxActions {
		actions = actions[:maxActions]
	}
	return actions
}

// CarryStatus keeps user decisions across regenerations: an action whose
// id already exists inherits the stored status.
func CarryStatus(actions []domain.Action, existing []domain.Action) []domain.Action {
	statuses := make(map[string]string, len(existing))
	for _, a := range existing {
		if a.Status != "" {
			statuses[a.ID] = a.Status
		}
	}
	for i := range actions {
		if status, ok := statuses[actions[i].ID]; ok {
			actions[i].Status = status
		}
	}
	return actions
}

func formatMinor(v int64) string {
	return fmt.Sprintf("£%d.%02d", v/100, v%100)
}
