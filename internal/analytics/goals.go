package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/ledgerkit/finrecon/internal/domain"
)

// rollingMonths is how many recent populated months feed the rolling
// mean contribution.
const rollingMonths = 6

// PotContribution is the full-history funding activity of one pot,
// reconstructed from pot-transfer metadata on ledger rows.
type PotContribution struct {
	PotID         string
	TotalInMinor  int64
	TotalOutMinor int64
	NetByMonth    map[string]int64
}

// PotContributions scans the whole ledger (never range-scoped, a goal
// funded last year is still funded) and credits each transfer's
// destination pot and debits its source pot.
func PotContributions(ledger []domain.LedgerTransaction) map[string]*PotContribution {
	pots := map[string]*PotContribution{}
	apply := func(potID, month string, deltaMinor int64) {
		if potID == "" {
			return
		}
		pc, ok := pots[potID]
		if !ok {
			pc = &PotContribution{PotID: potID, NetByMonth: map[string]int64{}}
			pots[potID] = pc
		}
		if deltaMinor > 0 {
			pc.TotalInMinor += deltaMinor
		} else {
			pc.TotalOutMinor += -deltaMinor
		}
		pc.NetByMonth[month] += deltaMinor
	}

	for _, tx := range ledger {
		if tx.CreatedAt.IsZero() || tx.AmountMinor == 0 || tx.Metadata == nil {
			continue
		}
		month := domain.MonthKey(tx.CreatedAt)
		abs := absMinor(tx.AmountMinor)

		dest := tx.Metadata["destination_pot_id"]
		if dest == "" {
			dest = tx.Metadata["pot_id"]
		}
		apply(dest, month, abs)
		apply(tx.Metadata["source_pot_id"], month, -abs)
	}
	return pots
}

// GoalForecasts projects each open goal's time to target from its linked
// pot's balance and rolling monthly contribution. Goals already done are
// skipped; a goal whose pot has no recent inflow gets no ETA rather than
// a fabricated one.
func GoalForecasts(goals []domain.Goal, pots []domain.Pot, contributions map[string]*PotContribution, now time.Time) []domain.GoalForecast {
	potByID := make(map[string]domain.Pot, len(pots))
	for _, p := range pots {
		potByID[p.PotID] = p
	}

	forecasts := make([]domain.GoalForecast, 0, len(goals))
	for _, goal := range goals {
		if goal.Status == domain.GoalStatusDone {
			continue
		}

		f := domain.GoalForecast{
			GoalID:      goal.GoalID,
			GoalTitle:   goal.Title,
			LinkedPotID: goal.LinkedPotID,
			TargetMinor: goal.EstimatedCostMinor,
		}
		if pot, ok := potByID[goal.LinkedPotID]; ok {
			f.LinkedPotName = pot.Name
			f.CurrentBalanceMinor = pot.BalanceMinor
		}

		f.RemainingMinor = f.TargetMinor - f.CurrentBalanceMinor
		if f.RemainingMinor < 0 {
			f.RemainingMinor = 0
		}
		if f.TargetMinor > 0 {
			pct := math.Min(float64(f.CurrentBalanceMinor)/float64(f.TargetMinor), 1) * 100
			pct = math.Round(pct*100) / 100
			f.ProgressPct = &pct
		}

		if pc := contributions[goal.LinkedPotID]; pc != nil {
			f.MonthlyContributionMinor, f.ContributionMonths = rollingContribution(pc.NetByMonth)
			f.SampleSize = len(f.ContributionMonths)
		}

		if f.RemainingMinor > 0 && f.MonthlyContributionMinor > 0 {
			eta := int(math.Ceil(float64(f.RemainingMinor) / float64(f.MonthlyContributionMinor)))
			f.EtaMonths = &eta
			at := now.Add(time.Duration(eta) * 30 * 24 * time.Hour)
			f.EtaDate = &at
		}

		forecasts = append(forecasts, f)
	}

	sort.SliceStable(forecasts, func(i, j int) bool {
		return forecasts[i].RemainingMinor > forecasts[j].RemainingMinor
	})
	return forecasts
}

// rollingContribution is the mean net inflow over the most recent
// populated months, at most rollingMonths of them.
func rollingContribution(netByMonth map[string]int64) (int64, []string) {
	months := make([]string, 0, len(netByMonth))
	for m := range netByMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	if len(months) > rollingMonths {
		months = months[len(months)-rollingMonths:]
	}
	if len(months) == 0 {
		return 0, nil
	}

	var sum int64
	for _, m := range months {
		sum += netByMonth[m]
	}
	return int64(math.Round(float64(sum) / float64(len(months)))), months
}
