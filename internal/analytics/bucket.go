package analytics

import (
	"strings"

	"github.com/ledgerkit/finrecon/internal/domain"
)

// NormalizeBucket collapses the raw taxonomy bucket labels onto the
// normalized set used by every aggregate.
func NormalizeBucket(raw string) domain.Bucket {
	b := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case b == "":
		return domain.BucketUnknown
	case b == "discretionary" || b == string(domain.BucketOptional):
		return domain.BucketOptional
	case strings.Contains(b, "saving") || b == "investment":
		return domain.BucketSavings
	case b == "net_salary" || b == "irregular_income" || b == string(domain.BucketIncome):
		return domain.BucketIncome
	case b == "debt_repayment" || b == string(domain.BucketMandatory):
		return domain.BucketMandatory
	case b == string(domain.BucketBankTransfer):
		return domain.BucketBankTransfer
	default:
		return domain.BucketUnknown
	}
}

// ResolveBucket picks the effective bucket for a ledger transaction:
// the bucket carried on the row wins, then the taxonomy entry for its
// category key, then unknown.
func ResolveBucket(tx domain.LedgerTransaction, taxonomy map[string]domain.Category) domain.Bucket {
	if tx.Bucket != "" {
		return NormalizeBucket(tx.Bucket)
	}
	if cat, ok := taxonomy[tx.CategoryKey]; ok {
		return NormalizeBucket(cat.Bucket)
	}
	return domain.BucketUnknown
}

// TaxonomyIndex keys a category list for bucket and label lookup.
func TaxonomyIndex(categories []domain.Category) map[string]domain.Category {
	idx := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		idx[c.Key] = c
	}
	return idx
}
