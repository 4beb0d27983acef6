// Package analytics derives financial aggregates from reconciled
// transaction data: debt-service decomposition, budget health, monthly
// cash-flow and goal-funding forecasts. Everything is a pure function
// over loaded data and is recomputed from scratch on every call.
package analytics

import (
	"regexp"

	"github.com/ledgerkit/finrecon/internal/domain"
)

// StatementClass is the debt-service classification of one statement row.
type StatementClass string

const (
	ClassInterest StatementClass = "interest"
	ClassRefund   StatementClass = "refund"
	ClassPayment  StatementClass = "payment"
	ClassSpend    StatementClass = "spend"
	ClassNone     StatementClass = "none"
)

// Classification rules are named predicates rather than inline
// conditionals so new sources and keyword sets can be added without
// touching the aggregation loops.
var (
	interestRe = regexp.MustCompile(`(?i)interest|finance charge|service charge|late fee|fee charge`)
	refundRe   = regexp.MustCompile(`(?i)refund|chargeback|reversal|dispute|credit`)
	paymentRe  = regexp.MustCompile(`(?i)payment|direct debit|dd payment|balance transfer|paid`)

	barclaysIdentifierRe = regexp.MustCompile(`(?i)barclay|barclays|barclaycard`)
	paypalIdentifierRe   = regexp.MustCompile(`(?i)paypal`)
)

// IsInterestCharge reports whether a statement description is an
// interest or fee charge.
func IsInterestCharge(description string) bool {
	return interestRe.MatchString(description)
}

// IsRefund reports whether a statement description is a refund,
// chargeback or similar credit.
func IsRefund(description string) bool {
	return refundRe.MatchString(description)
}

// IsPayment reports whether a statement row is a payment toward the
// account: either a payment-like description or any positive amount.
func IsPayment(description string, amountMinor int64) bool {
	return paymentRe.MatchString(description) || amountMinor > 0
}

// ClassifyStatementRow assigns a statement row to at most one class,
// interest taking precedence over refund, refund over payment, and
// spend covering any remaining negative amount.
func ClassifyStatementRow(description string, amountMinor int64) StatementClass {
	switch {
	case IsInterestCharge(description):
		return ClassInterest
	case IsRefund(description):
		return ClassRefund
	case IsPayment(description, amountMinor):
		return ClassPayment
	case amountMinor < 0:
		return ClassSpend
	default:
		return ClassNone
	}
}

// SourceIdentifier returns the regex that recognises ledger rows paying
// toward the given external source.
func SourceIdentifier(source domain.ExternalSource) *regexp.Regexp {
	if source == domain.SourcePayPal {
		return paypalIdentifierRe
	}
	return barclaysIdentifierRe
}
