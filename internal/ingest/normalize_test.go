package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoneyMinor(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
		ok    bool
	}{
		{"plain decimal", "12.50", 1250, true},
		{"pound symbol with thousands comma", "£1,234.56", 123456, true},
		{"parenthesis negative", "(12.50)", -1250, true},
		{"comma as decimal separator", "12,50", 1250, true},
		{"both separators keep comma as thousands", "€1.234,00", 123, true},
		{"negative sign", "-45.00", -4500, true},
		{"whitespace and symbol", " $ 99.99 ", 9999, true},
		{"rounding", "0.005", 1, true},
		{"empty", "", 0, false},
		{"garbage", "n/a", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseMoneyMinor(tt.input)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}


func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{
			name:  "iso date",
			input: "2024-01-31",
			want:  time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			ok:    true,
		},
		{
			name:  "day first slashes",
			input: "31/01/2024",
			want:  time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			ok:    true,
		},
		{
			name:  "two digit year expands",
			input: "5/3/24",
			want:  time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			ok:    true,
		},
		{
			name:  "day first with time",
			input: "31/01/2024 14:05:09",
			want:  time.Date(2024, 1, 31, 14, 5, 9, 0, time.UTC),
			ok:    true,
		},
		{
			name:  "epoch milliseconds",
			input: "1706659200000",
			want:  time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			ok:    true,
		},
		{name: "garbage", input: "not a date", ok: false},
		{name: "impossible day", input: "31/02/2024", ok: false},
		{name: "empty", input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
			}
		})
	}
}

func TestParseDate_SpreadsheetSerial(t *testing.T) {
	// Serial 44000 is mid-2020 on the 1899-12-30 epoch.
	got, ok := ParseDate("44000")
	require.True(t, ok)
	assert.Equal(t, 2020, got.Year())
	assert.Equal(t, time.June, got.Month())
}

func TestMerchantKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Tesco Stores 2041", "tesco stores 2041"},
		{"AMAZON.CO.UK*M12345", "amazoncoukm12345"},
		{"  Netflix.com  ", "netflixcom"},
		{"Pret-A-Manger", "pretamanger"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MerchantKey(tt.input), "input %q", tt.input)
	}
}

func TestCategoryKey(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Eating Out", "eating_out"},
		{"Bills & Utilities", "bills_utilities"},
		{"  Groceries  ", "groceries"},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategoryKey(tt.input), "input %q", tt.input)
	}
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "transaction date", NormalizeHeader(" Transaction-Date! "))
	assert.Equal(t, "amount gbp", NormalizeHeader("Amount (GBP)"))
}
