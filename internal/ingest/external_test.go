package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkit/finrecon/internal/domain"
)

func TestBuildExternalRows_HeaderedStatement(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Description,Amount,Reference",
		"31/01/2024,TESCO STORES - LONDON,-23.10,ref-1",
		"01/02/2024,REFUND ACME LTD,12.00,ref-2",
		"garbage-date,Something,-1.00,ref-3",
		"02/02/2024,Zero row,0.00,ref-4",
	}, "\n")

	res := BuildExternalRows(csv, domain.SourceOther)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, 2, res.Skipped)

	first := res.Rows[0]
	assert.Equal(t, int64(-2310), first.AmountMinor)
	assert.Equal(t, "TESCO STORES", first.MerchantName)
	assert.Equal(t, "tesco stores", first.MerchantKey)
	assert.Equal(t, "ref-1", first.ExternalRef)
	assert.True(t, first.PostedAt.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
}

func TestBuildExternalRows_DebitCreditPrecedence(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Description,Debit,Credit,Amount",
		"2024-01-05,Shop,10.00,,99.00",
		"2024-01-06,Payroll,,250.00,99.00",
		"2024-01-07,Single,,,42.50",
	}, "\n")

	res := BuildExternalRows(csv, domain.SourceOther)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, int64(-1000), res.Rows[0].AmountMinor)
	assert.Equal(t, int64(25000), res.Rows[1].AmountMinor)
	assert.Equal(t, int64(4250), res.Rows[2].AmountMinor)
}

func TestBuildExternalRows_SignCorrection(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Description,Amount",
		"2024-01-05,COSTA COFFEE,3.20",
		"2024-01-06,REFUND JOHN LEWIS,15.00",
		"2024-01-07,Payment Received - thanks,20.00",
	}, "\n")

	tests := []struct {
		source domain.ExternalSource
		want   []int64
	}{
		// Statement lists spend as positive: force negative unless
		// the description looks like a genuine credit.
		{domain.SourceBarclays, []int64{-320, 1500, 2000}},
		{domain.SourcePayPal, []int64{-320, 1500, 2000}},
		// Unlisted sources are taken at face value.
		{domain.SourceOther, []int64{320, 1500, 2000}},
	}

	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			res := BuildExternalRows(csv, tt.source)
			require.Len(t, res.Rows, 3)
			for i, want := range tt.want {
				assert.Equal(t, want, res.Rows[i].AmountMinor, "row %d", i)
			}
		})
	}
}

func TestBuildExternalRows_HeaderlessFallbackLayout(t *testing.T) {
	csv := "2024-01-05,Corner Shop,-4.50\n2024-01-06,Bakery,-2.00"
	res := BuildExternalRows(csv, domain.SourceOther)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Corner Shop", res.Rows[0].Description)
	assert.Equal(t, int64(-450), res.Rows[0].AmountMinor)
}

func TestBuildExternalRows_DeterministicIdentity(t *testing.T) {
	csv := "Date,Description,Amount,Reference\n2024-01-05,Shop,-4.50,abc-123"

	a := BuildExternalRows(csv, domain.SourceBarclays)
	b := BuildExternalRows(csv, domain.SourceBarclays)
	require.Len(t, a.Rows, 1)
	require.Len(t, b.Rows, 1)
	assert.Equal(t, a.Rows[0].ExternalID, b.Rows[0].ExternalID)
	assert.Len(t, a.Rows[0].ExternalID, 24)

	// Identity is source-scoped: the same reference under another source
	// is a different record.
	c := BuildExternalRows(csv, domain.SourcePayPal)
	require.Len(t, c.Rows, 1)
	assert.NotEqual(t, a.Rows[0].ExternalID, c.Rows[0].ExternalID)
}

func TestBuildExternalRows_EmptyInput(t *testing.T) {
	res := BuildExternalRows("", domain.SourceOther)
	assert.Empty(t, res.Rows)
	assert.Zero(t, res.Skipped)
}

type staticInference struct{ label string }

func (s staticInference) InferLabel(_, _, _ string, _ int64) string { return s.label }

func TestBuildLedgerRows(t *testing.T) {
	csv := strings.Join([]string{
		"Transaction ID,Date,Time,Name,Category,Amount,Currency,Notes and #Tags,Description",
		"tx_001,31/01/2024,09:15:00,Tesco,Groceries,-23.10,GBP,weekly shop,TESCO STORES 2041",
		",31/01/2024,10:00:00,Mystery,,-5.00,GBP,,CARD 1234",
		"tx_003,bad-date,,Nowhere,Misc,-1.00,GBP,,X",
	}, "\n")

	res := BuildLedgerRows(csv, staticInference{label: "Uncategorised"})
	require.Len(t, res.Rows, 2)
	assert.Equal(t, 1, res.SkippedInvalid)

	first := res.Rows[0]
	assert.Equal(t, "tx_001", first.TransactionID)
	assert.Equal(t, int64(-2310), first.AmountMinor)
	assert.Equal(t, "groceries", first.CategoryKey)
	assert.Equal(t, 9, first.CreatedAt.Hour(), "time column provides sub-day ordering")

	second := res.Rows[1]
	assert.True(t, strings.HasPrefix(second.TransactionID, "csv_"))
	assert.Len(t, second.TransactionID, 24)
	assert.Equal(t, "Uncategorised", second.CategoryLabel, "missing category is delegated to inference")
}

func TestBuildLedgerRows_RequiresDateAndAmountColumns(t *testing.T) {
	res := BuildLedgerRows("Name,Notes\nTesco,hello", nil)
	assert.Empty(t, res.Rows)

	res = BuildLedgerRows("Date,Name\n2024-01-05,Tesco", nil)
	assert.Empty(t, res.Rows)
}

func TestBuildLedgerRows_LocalAmountFallback(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Name,Amount,Local Amount,Local Currency",
		"2024-01-05,Hotel,, -120.00,EUR",
	}, "\n")
	res := BuildLedgerRows(csv, nil)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(-12000), res.Rows[0].AmountMinor)
	assert.Equal(t, "EUR", res.Rows[0].Metadata["csv_local_currency"])
}
