package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/finrecon/internal/domain"
)

func taxonomy() map[string]domain.Category {
	return TaxonomyIndex([]domain.Category{
		{Key: "groceries", Label: "Groceries", Bucket: "mandatory"},
		{Key: "coffee", Label: "Coffee", Bucket: "discretionary"},
		{Key: "net_salary", Label: "Net Salary", Bucket: "net_salary"},
		{Key: "emergency_fund", Label: "Emergency Fund", Bucket: "short_saving"},
		{Key: "pot_transfer", Label: "Pot Transfer", Bucket: "bank_transfer"},
	})
}

func TestNormalizeBucket(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.Bucket
	}{
		{"", domain.BucketUnknown},
		{"discretionary", domain.BucketOptional},
		{"optional", domain.BucketOptional},
		{"short_saving", domain.BucketSavings},
		{"long_saving", domain.BucketSavings},
		{"investment", domain.BucketSavings},
		{"net_salary", domain.BucketIncome},
		{"irregular_income", domain.BucketIncome},
		{"debt_repayment", domain.BucketMandatory},
		{"mandatory", domain.BucketMandatory},
		{"bank_transfer", domain.BucketBankTransfer},
		{"whatever", domain.BucketUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBucket(tt.raw))
		})
	}
}

func TestCashflow_MonthlySeries(t *testing.T) {
	ledger := []domain.LedgerTransaction{
		{CreatedAt: at(2024, 3, 1), AmountMinor: 250000, CategoryKey: "net_salary"},
		{CreatedAt: at(2024, 3, 3), AmountMinor: -40000, CategoryKey: "groceries", MerchantKey: "tesco", MerchantName: "Tesco"},
		{CreatedAt: at(2024, 3, 5), AmountMinor: -1200, CategoryKey: "coffee", MerchantKey: "pret", MerchantName: "Pret"},
		{CreatedAt: at(2024, 3, 7), AmountMinor: -20000, CategoryKey: "emergency_fund"},
		{CreatedAt: at(2024, 4, 3), AmountMinor: -30000, CategoryKey: "groceries", MerchantKey: "tesco", MerchantName: "Tesco"},
	}

	result := Cashflow(ledger, taxonomy(), at(2024, 3, 1), at(2024, 4, 30))
	require.Len(t, result.Monthly, 2)

	march := result.Monthly[0]
	assert.Equal(t, "2024-03", march.Month)
	assert.Equal(t, int64(250000), march.InflowMinor)
	assert.Equal(t, int64(61200), march.OutflowMinor)
	assert.Equal(t, int64(188800), march.NetMinor)
	assert.Equal(t, int64(40000), march.MandatoryMinor)
	assert.Equal(t, int64(1200), march.OptionalMinor)
	assert.Equal(t, int64(20000), march.SavingsMinor)
	assert.Equal(t, int64(250000), march.IncomeMinor)

	assert.Equal(t, int64(70000), result.CategorySpendMinor["groceries"])
	assert.Equal(t, int64(1200), result.CategorySpendMinor["coffee"])
}

func TestCashflow_TransfersExcludedButCovered(t *testing.T) {
	ledger := []domain.LedgerTransaction{
		{CreatedAt: at(2024, 3, 2), AmountMinor: -50000, CategoryKey: "pot_transfer"},
		{CreatedAt: at(2024, 3, 3), AmountMinor: -900, CategoryKey: "mystery"},
	}

	result := Cashflow(ledger, taxonomy(), at(2024, 3, 1), at(2024, 3, 31))
	assert.Empty(t, result.Monthly)
	assert.Empty(t, result.CategorySpendMinor)
	assert.Equal(t, 2, result.Coverage.InRange)
	assert.Equal(t, 2, result.Coverage.Total)
}

func TestCashflow_CoverageSpansWholeLedger(t *testing.T) {
	ledger := []domain.LedgerTransaction{
		{CreatedAt: at(2023, 1, 10), AmountMinor: -100, CategoryKey: "groceries"},
		{CreatedAt: at(2024, 3, 10), AmountMinor: -100, CategoryKey: "groceries"},
		{CreatedAt: at(2024, 6, 10), AmountMinor: -100, CategoryKey: "groceries"},
	}

	result := Cashflow(ledger, taxonomy(), at(2024, 3, 1), at(2024, 3, 31))
	require.NotNil(t, result.Coverage.Start)
	require.NotNil(t, result.Coverage.End)
	assert.Equal(t, at(2023, 1, 10), *result.Coverage.Start)
	assert.Equal(t, at(2024, 6, 10), *result.Coverage.End)
	assert.Equal(t, 1, result.Coverage.InRange)
	assert.Equal(t, 3, result.Coverage.Total)
}

func TestCashflow_TopOptionalMerchants(t *testing.T) {
	ledger := []domain.LedgerTransaction{
		{CreatedAt: at(2024, 3, 5), AmountMinor: -1200, CategoryKey: "coffee", MerchantKey: "pret", MerchantName: "Pret"},
		{CreatedAt: at(2024, 4, 5), AmountMinor: -1300, CategoryKey: "coffee", MerchantKey: "pret", MerchantName: "Pret"},
		{CreatedAt: at(2024, 3, 9), AmountMinor: -800, CategoryKey: "coffee", MerchantKey: "costa", MerchantName: "Costa"},
	}

	result := Cashflow(ledger, taxonomy(), at(2024, 3, 1), at(2024, 4, 30))
	require.Len(t, result.TopOptional, 2)

	pret := result.TopOptional[0]
	assert.Equal(t, "pret", pret.MerchantKey)
	assert.Equal(t, int64(2500), pret.TotalSpendMinor)
	assert.Equal(t, int64(1250), pret.AvgMonthlySpendMinor)
	assert.Equal(t, 2, pret.ActiveMonths)
	assert.True(t, pret.Recurring)

	costa := result.TopOptional[1]
	assert.Equal(t, 1, costa.ActiveMonths)
	assert.False(t, costa.Recurring)
}
