package ingest

import (
	"strings"
)

// Fallback column layout used when the first row does not look like a
// header: date=0, description=1, amount=2.
const (
	fallbackDateIdx        = 0
	fallbackDescriptionIdx = 1
	fallbackAmountIdx      = 2
)

// headerKeywords decide whether the first row is a header at all.
var headerKeywords = []string{"date", "amount", "description", "merchant"}

// NormalizeHeader lowercases a header cell, maps every non-alphanumeric
// run to a single space and trims the ends.
func NormalizeHeader(cell string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range strings.ToLower(cell) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// looksLikeHeader reports whether any normalized cell contains one of the
// header keywords.
func looksLikeHeader(normalized []string) bool {
	for _, cell := range normalized {
		for _, kw := range headerKeywords {
			if strings.Contains(cell, kw) {
				return true
			}
		}
	}
	return false
}

func normalizeRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = NormalizeHeader(cell)
	}
	return out
}

// columnIndex resolves a logical field to a column index by scanning the
// normalized header cells for any of the needles, first match wins.
// An empty header or no match yields the fallback (-1 = unavailable).
func columnIndex(header []string, needles []string, fallback int) int {
	if len(header) == 0 {
		return fallback
	}
	for i, cell := range header {
		for _, needle := range needles {
			if strings.Contains(cell, needle) {
				return i
			}
		}
	}
	return fallback
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
