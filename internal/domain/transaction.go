package domain

import (
	"time"
)

// All monetary values across the engine are integer minor units (pence).
// Negative amounts are outflows, positive amounts are inflows.

// ExternalSource identifies where a statement export came from.
type ExternalSource string

const (
	SourceBarclays ExternalSource = "barclays"
	SourcePayPal   ExternalSource = "paypal"
	SourceOther    ExternalSource = "other"
)

// NormalizeSource maps free-form source tags onto the known set.
// Anything unrecognised collapses to SourceOther.
func NormalizeSource(raw string) ExternalSource {
	switch normalizeTag(raw) {
	case "barclays", "barclaycard", "barclay":
		return SourceBarclays
	case "paypal", "pay_pal":
		return SourcePayPal
	default:
		return SourceOther
	}
}

// ExternalTransaction is one normalized row from an external statement
// export. ExternalID is a pure function of identity-defining fields, so
// reimporting the same file never creates duplicates. Immutable once
// persisted except for the match outcome fields.
type ExternalTransaction struct {
	Source      ExternalSource
	ExternalID  string
	ExternalRef string
	PostedAt    time.Time
	AmountMinor int64
	Currency    string
	Description string

	MerchantName string
	MerchantKey  string

	RawRow []string

	// Match outcome, rewritten wholesale on every matching run.
	MatchedLedgerID string
	MatchConfidence float64
}

// LedgerTransaction is an authoritative internal ledger record.
type LedgerTransaction struct {
	TransactionID string
	CreatedAt     time.Time
	AmountMinor   int64
	Currency      string

	Description  string
	MerchantName string
	MerchantKey  string

	CategoryKey   string
	CategoryLabel string
	// Bucket is the raw bucket label carried by the category; normalize
	// with analytics.NormalizeBucket before aggregating.
	Bucket string

	// Metadata may carry pot-transfer identifiers
	// (source_pot_id, destination_pot_id / pot_id).
	Metadata map[string]string
}

// MatchStatus is the outcome of one external row in a matching run.
type MatchStatus string

const (
	MatchStatusMatched   MatchStatus = "matched"
	MatchStatusUnmatched MatchStatus = "unmatched"
)

// MatchRecord pairs one external transaction with at most one ledger
// transaction. Records are recomputed wholesale on every matching run.
type MatchRecord struct {
	Source      ExternalSource
	ExternalID  string
	ExternalRef string

	ExternalDate        time.Time
	ExternalAmountMinor int64
	ExternalMerchant    string

	LedgerTransactionID string
	LedgerDate          time.Time
	LedgerAmountMinor   int64

	AmountDiffMinor    int64
	DateDiffDays       float64
	MerchantSimilarity float64
	Confidence         float64
	Status             MatchStatus
}

// Pot is an earmarked sub-balance linked to a savings goal.
type Pot struct {
	PotID        string
	Name         string
	BalanceMinor int64
	Currency     string
	UpdatedAt    time.Time
}

// GoalStatus values. Goals in GoalStatusDone are terminal and excluded
// from funding forecasts.
const (
	GoalStatusOpen   = 0
	GoalStatusActive = 1
	GoalStatusDone   = 2
)

// Goal is a savings goal that may be funded through a linked pot.
type Goal struct {
	GoalID             string
	Title              string
	LinkedPotID        string
	EstimatedCostMinor int64
	Status             int
}

func normalizeTag(raw string) string {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+'a'-'A')
		case c == ' ' || c == '\t':
			// trimmed
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
