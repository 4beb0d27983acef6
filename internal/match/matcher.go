// Package match pairs external statement transactions with internal
// ledger transactions under date, amount and merchant-text uncertainty.
//
// The assignment is a greedy nearest-candidate pass, not a minimum-cost
// bipartite matching: at personal-finance volumes greedy errors are rare
// and human-correctable, and the pass stays trivially deterministic.
package match

import (
	"math"
	"sort"

	"github.com/ledgerkit/finrecon/internal/domain"
)

// Score weights. Amount agreement dominates, date proximity second,
// merchant-text similarity is a tie-breaker.
const (
	weightAmount     = 0.55
	weightDate       = 0.35
	weightSimilarity = 0.10
)

const (
	DefaultWindowDays      = 5
	MinWindowDays          = 1
	MaxWindowDays          = 30
	DefaultAmountTolerance = 150
	MinAmountTolerance     = 1
	MaxAmountTolerance     = 2000
)

const dayMillis = 24 * 60 * 60 * 1000

// Params are the tunable matching tolerances. Zero values mean defaults;
// out-of-range values are clamped, never rejected.
type Params struct {
	WindowDays           int
	AmountToleranceMinor int64
}

// Clamp returns params forced into their allowed ranges.
func (p Params) Clamp() Params {
	out := p
	if out.WindowDays == 0 {
		out.WindowDays = DefaultWindowDays
	}
	out.WindowDays = min(max(out.WindowDays, MinWindowDays), MaxWindowDays)

	if out.AmountToleranceMinor == 0 {
		out.AmountToleranceMinor = DefaultAmountTolerance
	}
	out.AmountToleranceMinor = min(max(out.AmountToleranceMinor, MinAmountTolerance), MaxAmountTolerance)
	return out
}

type ledgerCandidate struct {
	tx        *domain.LedgerTransaction
	absAmount int64
	tokens    []string
	consumed  bool
}

// Run performs one full matching pass: every external transaction gets
// exactly one MatchRecord, each ledger transaction is consumed by at most
// one match. Results are recomputed wholesale, not incrementally, so
// identical inputs and params always produce identical assignments.
func Run(external []domain.ExternalTransaction, ledger []domain.LedgerTransaction, params Params) []domain.MatchRecord {
	params = params.Clamp()

	candidates := make([]*ledgerCandidate, 0, len(ledger))
	for i := range ledger {
		tx := &ledger[i]
		abs := tx.AmountMinor
		if abs < 0 {
			abs = -abs
		}
		if tx.CreatedAt.IsZero() || abs == 0 {
			continue
		}
		candidates = append(candidates, &ledgerCandidate{
			tx:        tx,
			absAmount: abs,
			tokens:    Tokenize(tx.MerchantName + " " + tx.Description),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].tx.CreatedAt.Before(candidates[j].tx.CreatedAt)
	})

	ordered := make([]*domain.ExternalTransaction, 0, len(external))
	for i := range external {
		ordered = append(ordered, &external[i])
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PostedAt.Before(ordered[j].PostedAt)
	})

	records := make([]domain.MatchRecord, 0, len(ordered))
	for _, ext := range ordered {
		extAbs := ext.AmountMinor
		if extAbs < 0 {
			extAbs = -extAbs
		}
		record := domain.MatchRecord{
			Source:              ext.Source,
			ExternalID:          ext.ExternalID,
			ExternalRef:         ext.ExternalRef,
			ExternalDate:        ext.PostedAt,
			ExternalAmountMinor: ext.AmountMinor,
			ExternalMerchant:    ext.MerchantName,
			Status:              domain.MatchStatusUnmatched,
		}
		if ext.PostedAt.IsZero() || extAbs == 0 {
			records = append(records, record)
			continue
		}

		extTokens := Tokenize(ext.MerchantName + " " + ext.Description)

		var best *ledgerCandidate
		var bestScore, bestDateDiff, bestSimilarity float64
		var bestAmountDiff int64
		for _, cand := range candidates {
			if cand.consumed {
				continue
			}
			amountDiff := cand.absAmount - extAbs
			if amountDiff < 0 {
				amountDiff = -amountDiff
			}
			if amountDiff > params.AmountToleranceMinor {
				continue
			}
			dateDiffDays := math.Abs(float64(cand.tx.CreatedAt.Sub(ext.PostedAt).Milliseconds())) / dayMillis
			if dateDiffDays > float64(params.WindowDays) {
				continue
			}

			similarity := Jaccard(extTokens, cand.tokens)
			score := weightAmount*(float64(amountDiff)/float64(params.AmountToleranceMinor)) +
				weightDate*(dateDiffDays/float64(params.WindowDays)) +
				weightSimilarity*(1-similarity)
			if best == nil || score < bestScore {
				best = cand
				bestScore = score
				bestAmountDiff = amountDiff
				bestDateDiff = dateDiffDays
				bestSimilarity = similarity
			}
		}

		if best != nil {
			best.consumed = true
			record.Status = domain.MatchStatusMatched
			record.LedgerTransactionID = best.tx.TransactionID
			record.LedgerDate = best.tx.CreatedAt
			record.LedgerAmountMinor = best.tx.AmountMinor
			record.AmountDiffMinor = bestAmountDiff
			record.DateDiffDays = round3(bestDateDiff)
			record.MerchantSimilarity = round3(bestSimilarity)
			record.Confidence = confidence(bestScore)
		}
		records = append(records, record)
	}
	return records
}

func confidence(score float64) float64 {
	c := round3(1 - score)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
