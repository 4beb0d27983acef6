package ingest

import (
	"regexp"

	"github.com/ledgerkit/finrecon/internal/domain"
)

// Source-specific statement conventions, kept as named predicates so new
// institutions can be added without touching the row-builder loop.

// creditLikeRe matches descriptions that legitimately stay positive on a
// statement that otherwise lists spend as positive.
var creditLikeRe = regexp.MustCompile(`(?i)refund|reversal|credit|cashback|payment received|deposit|received`)

// spendListedPositive reports whether a source's exports list spend as
// positive numbers by convention. Behavior for sources outside this set
// is unspecified: their amounts are taken at face value.
func spendListedPositive(source domain.ExternalSource) bool {
	return source == domain.SourceBarclays || source == domain.SourcePayPal
}

// looksLikeCredit reports whether a description matches the credit-like
// keyword set, exempting the row from sign correction.
func looksLikeCredit(description string) bool {
	return creditLikeRe.MatchString(description)
}

// correctSign applies the sign-correction heuristic: on sources whose
// statements list spend as positive, a positive amount is forced negative
// unless the description looks like a genuine credit.
func correctSign(source domain.ExternalSource, amountMinor int64, description string) int64 {
	if amountMinor > 0 && spendListedPositive(source) && !looksLikeCredit(description) {
		return -amountMinor
	}
	return amountMinor
}
