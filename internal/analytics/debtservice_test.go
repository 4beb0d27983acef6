package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/finrecon/internal/domain"
)

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestClassifyStatementRow(t *testing.T) {
	tests := []struct {
		name        string
		description string
		amountMinor int64
		want        StatementClass
	}{
		{"interest charge", "INTEREST CHARGED ON PURCHASES", -1250, ClassInterest},
		{"interest beats payment keyword", "Interest payment adjustment", -1250, ClassInterest},
		{"refund", "Refund: Amazon order", 1500, ClassRefund},
		{"chargeback", "Chargeback resolution", 2000, ClassRefund},
		{"payment keyword", "DIRECT DEBIT PAYMENT THANK YOU", -12000, ClassPayment},
		{"positive amount is a payment", "Topup", 5000, ClassPayment},
		{"negative non-keyword is spend", "TESCO STORES 3301", -2500, ClassSpend},
		{"zero non-keyword is none", "Memo line", 0, ClassNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyStatementRow(tt.description, tt.amountMinor))
		})
	}
}

func TestSourceIdentifier(t *testing.T) {
	assert.True(t, SourceIdentifier(domain.SourcePayPal).MatchString("PAYPAL TRANSFER"))
	assert.False(t, SourceIdentifier(domain.SourcePayPal).MatchString("BARCLAYCARD PAYMENT"))
	assert.True(t, SourceIdentifier(domain.SourceBarclays).MatchString("Barclaycard DD"))
	assert.False(t, SourceIdentifier(domain.SourceBarclays).MatchString("PAYPAL TRANSFER"))
}

func TestDebtService_ImpliedInterest(t *testing.T) {
	external := []domain.ExternalTransaction{
		{Source: domain.SourceBarclays, PostedAt: at(2024, 3, 5), AmountMinor: -10000, Description: "TESCO STORES"},
	}
	ledger := []domain.LedgerTransaction{
		{CreatedAt: at(2024, 3, 20), AmountMinor: -12000, MerchantName: "Barclaycard", Description: "Barclaycard payment"},
	}

	report := DebtService(domain.SourceBarclays, external, ledger)
	require.Len(t, report.PerMonth, 1)

	month := report.PerMonth[0]
	assert.Equal(t, "2024-03", month.Month)
	assert.Equal(t, int64(10000), month.StatementSpendMinor)
	assert.Equal(t, int64(12000), month.LedgerPaymentsMinor)
	assert.Equal(t, int64(2000), month.EstimatedInterestMinor)
	assert.Equal(t, int64(10000), month.PrincipalRepaymentMinor)
}

func TestDebtService_ExplicitInterestWins(t *testing.T) {
	external := []domain.ExternalTransaction{
		{Source: domain.SourceBarclays, PostedAt: at(2024, 3, 5), AmountMinor: -10000, Description: "TESCO STORES"},
		{Source: domain.SourceBarclays, PostedAt: at(2024, 3, 28), AmountMinor: -3500, Description: "INTEREST CHARGED"},
	}
	ledger := []domain.LedgerTransaction{
		{CreatedAt: at(2024, 3, 20), AmountMinor: -12000, MerchantName: "Barclaycard"},
	}

	report := DebtService(domain.SourceBarclays, external, ledger)
	require.Len(t, report.PerMonth, 1)

	month := report.PerMonth[0]
	assert.Equal(t, int64(3500), month.ExplicitInterestMinor)
	assert.Equal(t, int64(3500), month.EstimatedInterestMinor)
	assert.Equal(t, int64(8500), month.PrincipalRepaymentMinor)
}

func TestDebtService_FiltersOtherSourcesAndPositiveLedger(t *testing.T) {
	external := []domain.ExternalTransaction{
		{Source: domain.SourcePayPal, PostedAt: at(2024, 3, 5), AmountMinor: -500, Description: "EBAY"},
		{Source: domain.SourceBarclays, PostedAt: at(2024, 3, 6), AmountMinor: -700, Description: "SHOP"},
	}
	ledger := []domain.LedgerTransaction{
		{CreatedAt: at(2024, 3, 7), AmountMinor: 4000, MerchantName: "Barclaycard refund"},
		{CreatedAt: at(2024, 3, 8), AmountMinor: -2000, MerchantName: "Monzo", Description: "coffee"},
	}

	report := DebtService(domain.SourceBarclays, external, ledger)
	require.Len(t, report.PerMonth, 1)
	assert.Equal(t, int64(700), report.PerMonth[0].StatementSpendMinor)
	assert.Zero(t, report.PerMonth[0].LedgerPaymentsMinor)
}

func TestDebtService_MonthsSortedAndTotalled(t *testing.T) {
	external := []domain.ExternalTransaction{
		{Source: domain.SourceBarclays, PostedAt: at(2024, 4, 2), AmountMinor: -300, Description: "SHOP B"},
		{Source: domain.SourceBarclays, PostedAt: at(2024, 2, 2), AmountMinor: -200, Description: "SHOP A"},
	}

	report := DebtService(domain.SourceBarclays, external, nil)
	require.Len(t, report.PerMonth, 2)
	assert.Equal(t, "2024-02", report.PerMonth[0].Month)
	assert.Equal(t, "2024-04", report.PerMonth[1].Month)
	assert.Equal(t, int64(500), report.Totals.StatementSpendMinor)
}
