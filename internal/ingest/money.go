package ingest

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = strings.NewReplacer("£", "", "$", "", "€", "", " ", "", "\t", "", " ", "")

// ParseMoneyMinor parses a money cell into signed integer minor units.
// It understands parenthesis-wrapped negatives, currency symbols, and
// both continental and UK separator conventions: when '.' and ',' both
// occur the comma is a thousands separator; a lone comma is the decimal
// separator.
func ParseMoneyMinor(raw string) (int64, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		negative = true
		text = text[1 : len(text)-1]
	}

	text = currencySymbols.Replace(text)

	hasDot := strings.Contains(text, ".")
	hasComma := strings.Contains(text, ",")
	switch {
	case hasDot && hasComma:
		text = strings.ReplaceAll(text, ",", "")
	case hasComma:
		text = strings.ReplaceAll(text, ",", ".")
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, false
	}

	minor := d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if negative && minor > 0 {
		minor = -minor
	}
	return minor, true
}
