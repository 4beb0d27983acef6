package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/finrecon/internal/domain"
)

func TestBudgetHealth_FixedAmounts(t *testing.T) {
	settings := &domain.BudgetSettings{
		Mode:               "amount",
		MonthlyIncomeMinor: 300000,
		CategoryBudgets: map[string]domain.CategoryBudget{
			"groceries": {AmountMinor: 10000},
		},
	}
	spend := map[string]int64{"groceries": 15000}

	report := BudgetHealth(settings, nil, taxonomy(), spend)
	require.Len(t, report.ByCategory, 1)

	row := report.ByCategory[0]
	assert.Equal(t, "Groceries", row.CategoryLabel)
	assert.Equal(t, domain.BucketMandatory, row.Bucket)
	assert.Equal(t, int64(10000), row.BudgetMinor)
	assert.Equal(t, int64(15000), row.ActualMinor)
	assert.Equal(t, int64(-5000), row.VarianceMinor)
	assert.Equal(t, 150.00, row.UtilizationPct)
	assert.Equal(t, "current", row.Origin)

	assert.Equal(t, int64(-5000), report.VarianceMinor)
	assert.Equal(t, 150.00, report.UtilizationPct)
}

func TestBudgetHealth_PercentOfIncome(t *testing.T) {
	settings := &domain.BudgetSettings{
		MonthlyIncomeMinor: 200000,
		CategoryBudgets: map[string]domain.CategoryBudget{
			"groceries": {Percent: 15},
		},
	}

	report := BudgetHealth(settings, nil, taxonomy(), map[string]int64{"groceries": 20000})
	require.Len(t, report.ByCategory, 1)
	assert.Equal(t, int64(30000), report.ByCategory[0].BudgetMinor)
	assert.Equal(t, "percentage", report.Mode)
}

func TestBudgetHealth_LegacyFallback(t *testing.T) {
	legacy := &domain.LegacyBudget{
		MonthlyIncome: 2500,
		ByCategory:    map[string]float64{"coffee": 50},
	}

	report := BudgetHealth(nil, legacy, taxonomy(), map[string]int64{"coffee": 6000})
	require.Len(t, report.ByCategory, 1)
	assert.Equal(t, "legacy", report.ByCategory[0].Origin)
	assert.Equal(t, int64(5000), report.ByCategory[0].BudgetMinor)
	assert.Equal(t, int64(250000), report.MonthlyIncomeMinor)
}

func TestBudgetHealth_CurrentRowsSuppressLegacy(t *testing.T) {
	settings := &domain.BudgetSettings{
		CategoryBudgets: map[string]domain.CategoryBudget{
			"groceries": {AmountMinor: 10000},
		},
	}
	legacy := &domain.LegacyBudget{ByCategory: map[string]float64{"coffee": 50}}

	report := BudgetHealth(settings, legacy, taxonomy(), nil)
	require.Len(t, report.ByCategory, 1)
	assert.Equal(t, "groceries", report.ByCategory[0].CategoryKey)
	assert.Equal(t, "current", report.ByCategory[0].Origin)
}

func TestBudgetHealth_UnbudgetedSpendStillListed(t *testing.T) {
	settings := &domain.BudgetSettings{
		CategoryBudgets: map[string]domain.CategoryBudget{
			"groceries": {AmountMinor: 10000},
		},
	}
	spend := map[string]int64{"groceries": 4000, "coffee": 2500}

	report := BudgetHealth(settings, nil, taxonomy(), spend)
	require.Len(t, report.ByCategory, 2)

	var coffee domain.CategoryBudgetRow
	for _, row := range report.ByCategory {
		if row.CategoryKey == "coffee" {
			coffee = row
		}
	}
	assert.Zero(t, coffee.BudgetMinor)
	assert.Equal(t, int64(2500), coffee.ActualMinor)
	assert.Zero(t, coffee.UtilizationPct)
}

func TestBudgetHealth_BucketRollup(t *testing.T) {
	settings := &domain.BudgetSettings{
		CategoryBudgets: map[string]domain.CategoryBudget{
			"groceries": {AmountMinor: 10000},
			"coffee":    {AmountMinor: 3000},
		},
	}
	spend := map[string]int64{"groceries": 8000, "coffee": 4000}

	report := BudgetHealth(settings, nil, taxonomy(), spend)
	require.Len(t, report.ByBucket, 2)
	assert.Equal(t, domain.BucketMandatory, report.ByBucket[0].Bucket)
	assert.Equal(t, int64(8000), report.ByBucket[0].ActualMinor)
	assert.Equal(t, domain.BucketOptional, report.ByBucket[1].Bucket)
	assert.Equal(t, int64(4000), report.ByBucket[1].ActualMinor)
}

func TestBudgetHealth_EmptyInputs(t *testing.T) {
	report := BudgetHealth(nil, nil, taxonomy(), nil)
	assert.Empty(t, report.ByCategory)
	assert.Zero(t, report.TotalBudgetMinor)
	assert.Zero(t, report.UtilizationPct)
}
