package analytics

import (
	"sort"
	"time"

	"github.com/ledgerkit/finrecon/internal/domain"
)

// topMerchantLimit caps the optional-spend merchant cards.
const topMerchantLimit = 24

// CashflowResult is everything the dashboard derives from one pass over
// the ledger for a date range.
type CashflowResult struct {
	Monthly []domain.MonthlyFlow

	// CategorySpendMinor is outflow per category key within range,
	// bank-transfer and unknown buckets excluded.
	CategorySpendMinor map[string]int64

	TopOptional []domain.MerchantSpend
	Coverage    domain.Coverage
}

type merchantAccum struct {
	name       string
	totalMinor int64
	count      int
	months     map[string]struct{}
}

// Cashflow builds the monthly in/out series for [start, end]. Transfer
// and unknown buckets never contribute to flows or spend but still count
// toward coverage, so a range full of pot shuffling reads as covered,
// not empty.
func Cashflow(ledger []domain.LedgerTransaction, taxonomy map[string]domain.Category, start, end time.Time) CashflowResult {
	result := CashflowResult{
		CategorySpendMinor: map[string]int64{},
		Coverage:           domain.Coverage{Total: len(ledger)},
	}

	months := map[string]*domain.MonthlyFlow{}
	merchants := map[string]*merchantAccum{}

	for _, tx := range ledger {
		if tx.CreatedAt.IsZero() {
			continue
		}
		if first := result.Coverage.Start; first == nil || tx.CreatedAt.Before(*first) {
			at := tx.CreatedAt
			result.Coverage.Start = &at
		}
		if last := result.Coverage.End; last == nil || tx.CreatedAt.After(*last) {
			at := tx.CreatedAt
			result.Coverage.End = &at
		}

		if tx.CreatedAt.Before(start) || tx.CreatedAt.After(end) {
			continue
		}
		result.Coverage.InRange++

		bucket := ResolveBucket(tx, taxonomy)
		if bucket == domain.BucketBankTransfer || bucket == domain.BucketUnknown {
			continue
		}

		key := domain.MonthKey(tx.CreatedAt)
		flow, ok := months[key]
		if !ok {
			flow = &domain.MonthlyFlow{Month: key}
			months[key] = flow
		}

		abs := absMinor(tx.AmountMinor)
		if tx.AmountMinor > 0 {
			flow.InflowMinor += abs
		} else {
			flow.OutflowMinor += abs
			flow.TotalSpendMinor += abs

			catKey := tx.CategoryKey
			if catKey == "" {
				catKey = "uncategorized"
			}
			result.CategorySpendMinor[catKey] += abs
		}

		switch bucket {
		case domain.BucketMandatory:
			if tx.AmountMinor < 0 {
				flow.MandatoryMinor += abs
			}
		case domain.BucketOptional:
			if tx.AmountMinor < 0 {
				flow.OptionalMinor += abs
				accumulateMerchant(merchants, tx, key, abs)
			}
		case domain.BucketSavings:
			if tx.AmountMinor < 0 {
				flow.SavingsMinor += abs
			}
		case domain.BucketIncome:
			if tx.AmountMinor > 0 {
				flow.IncomeMinor += abs
			}
		}
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		flow := months[k]
		flow.NetMinor = flow.InflowMinor - flow.OutflowMinor
		result.Monthly = append(result.Monthly, *flow)
	}

	result.TopOptional = rankMerchants(merchants, len(keys))
	return result
}

func accumulateMerchant(merchants map[string]*merchantAccum, tx domain.LedgerTransaction, month string, abs int64) {
	key := tx.MerchantKey
	if key == "" {
		return
	}
	acc, ok := merchants[key]
	if !ok {
		acc = &merchantAccum{name: tx.MerchantName, months: map[string]struct{}{}}
		merchants[key] = acc
	}
	if acc.name == "" {
		acc.name = tx.MerchantName
	}
	acc.totalMinor += abs
	acc.count++
	acc.months[month] = struct{}{}
}

func rankMerchants(merchants map[string]*merchantAccum, activeMonths int) []domain.MerchantSpend {
	if activeMonths < 1 {
		activeMonths = 1
	}
	cards := make([]domain.MerchantSpend, 0, len(merchants))
	for key, acc := range merchants {
		cards = append(cards, domain.MerchantSpend{
			MerchantKey:          key,
			MerchantName:         acc.name,
			TotalSpendMinor:      acc.totalMinor,
			AvgMonthlySpendMinor: acc.totalMinor / int64(activeMonths),
			Transactions:         acc.count,
			ActiveMonths:         len(acc.months),
			Recurring:            len(acc.months) >= 2,
		})
	}
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].AvgMonthlySpendMinor != cards[j].AvgMonthlySpendMinor {
			return cards[i].AvgMonthlySpendMinor > cards[j].AvgMonthlySpendMinor
		}
		return cards[i].MerchantKey < cards[j].MerchantKey
	})
	if len(cards) > topMerchantLimit {
		cards = cards[:topMerchantLimit]
	}
	return cards
}
