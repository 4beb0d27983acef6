package analytics

import (
	"math"
	"sort"

	"github.com/ledgerkit/finrecon/internal/domain"
)

// BudgetHealth compares budgeted amounts with actual category spend.
//
// The current-format settings are consulted first: each category budget
// is either a fixed minor-unit amount or a percentage of monthly income.
// Only when the current store yields no usable rows does the legacy
// flat-amount store (major units) apply. The two formats never mix
// within one report.
func BudgetHealth(settings *domain.BudgetSettings, legacy *domain.LegacyBudget, taxonomy map[string]domain.Category, categorySpendMinor map[string]int64) domain.BudgetHealth {
	report := domain.BudgetHealth{Mode: "percentage"}
	if settings != nil && settings.Mode != "" {
		report.Mode = settings.Mode
	}

	if settings != nil && settings.MonthlyIncomeMinor > 0 {
		report.MonthlyIncomeMinor = settings.MonthlyIncomeMinor
	} else if legacy != nil && legacy.MonthlyIncome > 0 {
		report.MonthlyIncomeMinor = int64(math.Round(legacy.MonthlyIncome * 100))
	}

	budgets := map[string]int64{}
	origin := "current"
	if settings != nil {
		for key, b := range settings.CategoryBudgets {
			amount := b.AmountMinor
			if amount <= 0 && b.Percent > 0 && report.MonthlyIncomeMinor > 0 {
				amount = int64(math.Round(b.Percent / 100 * float64(report.MonthlyIncomeMinor)))
			}
			if amount > 0 {
				budgets[key] = amount
			}
		}
	}
	if len(budgets) == 0 && legacy != nil {
		origin = "legacy"
		for key, major := range legacy.ByCategory {
			if minor := int64(math.Round(major * 100)); minor > 0 {
				budgets[key] = minor
			}
		}
	}

	// Budgeted categories first, then unbudgeted spend so overspend in
	// categories nobody budgeted for still shows up.
	keys := make([]string, 0, len(budgets)+len(categorySpendMinor))
	seen := map[string]struct{}{}
	for key := range budgets {
		keys = append(keys, key)
		seen[key] = struct{}{}
	}
	for key := range categorySpendMinor {
		if _, ok := seen[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	bucketRows := map[domain.Bucket]*domain.BucketBudgetRow{}
	for _, key := range keys {
		budget := budgets[key]
		actual := categorySpendMinor[key]
		if budget == 0 && actual == 0 {
			continue
		}

		row := domain.CategoryBudgetRow{
			CategoryKey:    key,
			CategoryLabel:  key,
			Bucket:         domain.BucketUnknown,
			BudgetMinor:    budget,
			ActualMinor:    actual,
			VarianceMinor:  budget - actual,
			UtilizationPct: utilizationPct(actual, budget),
			Origin:         origin,
		}
		if cat, ok := taxonomy[key]; ok {
			row.CategoryLabel = cat.Label
			row.Bucket = NormalizeBucket(cat.Bucket)
		}
		report.ByCategory = append(report.ByCategory, row)

		report.TotalBudgetMinor += budget
		report.TotalActualMinor += actual

		br, ok := bucketRows[row.Bucket]
		if !ok {
			br = &domain.BucketBudgetRow{Bucket: row.Bucket}
			bucketRows[row.Bucket] = br
		}
		br.BudgetMinor += budget
		br.ActualMinor += actual
	}

	sort.SliceStable(report.ByCategory, func(i, j int) bool {
		return report.ByCategory[i].ActualMinor > report.ByCategory[j].ActualMinor
	})

	for _, br := range bucketRows {
		br.VarianceMinor = br.BudgetMinor - br.ActualMinor
		br.UtilizationPct = utilizationPct(br.ActualMinor, br.BudgetMinor)
		report.ByBucket = append(report.ByBucket, *br)
	}
	sort.Slice(report.ByBucket, func(i, j int) bool {
		if report.ByBucket[i].ActualMinor != report.ByBucket[j].ActualMinor {
			return report.ByBucket[i].ActualMinor > report.ByBucket[j].ActualMinor
		}
		return report.ByBucket[i].Bucket < report.ByBucket[j].Bucket
	})

	report.VarianceMinor = report.TotalBudgetMinor - report.TotalActualMinor
	report.UtilizationPct = utilizationPct(report.TotalActualMinor, report.TotalBudgetMinor)
	return report
}

// utilizationPct is actual over budget as a percentage, two decimals.
// A zero budget yields zero rather than infinity.
func utilizationPct(actualMinor, budgetMinor int64) float64 {
	if budgetMinor <= 0 {
		return 0
	}
	return math.Round(float64(actualMinor)/float64(budgetMinor)*100*100) / 100
}
