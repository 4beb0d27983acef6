package service

import (
	"context"
	"fmt"

	"github.com/ledgerkit/finrecon/internal/domain"
	"github.com/ledgerkit/finrecon/internal/logger"
	"github.com/ledgerkit/finrecon/internal/match"
)

// MatchResult reports one matching run.
type MatchResult struct {
	Sources              []domain.ExternalSource
	WindowDays           int
	AmountToleranceMinor int64

	Matched   int
	Unmatched int
	BySource  []domain.MatchSummary
}

// MatchTransactions recomputes the external-to-ledger pairing. An empty
// source runs every source with stored rows; each source's records are
// replaced wholesale and its external rows re-annotated with the outcome.
func (s *Service) MatchTransactions(ctx context.Context, ownerID, sourceRaw string, windowDays int, amountToleranceMinor int64) (*MatchResult, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}

	params := match.Params{WindowDays: windowDays, AmountToleranceMinor: amountToleranceMinor}.Clamp()

	var sources []domain.ExternalSource
	if sourceRaw != "" {
		sources = []domain.ExternalSource{domain.NormalizeSource(sourceRaw)}
	} else {
		all, err := s.store.ListExternal(ctx, ownerID, "")
		if err != nil {
			return nil, fmt.Errorf("MatchTransactions: list external: %w", err)
		}
		seen := map[domain.ExternalSource]bool{}
		for _, tx := range all {
			if !seen[tx.Source] {
				seen[tx.Source] = true
				sources = append(sources, tx.Source)
			}
		}
	}

	ledger, err := s.store.ListLedger(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("MatchTransactions: list ledger: %w", err)
	}

	result := &MatchResult{
		Sources:              sources,
		WindowDays:           params.WindowDays,
		AmountToleranceMinor: params.AmountToleranceMinor,
	}
	for _, source := range sources {
		external, err := s.store.ListExternal(ctx, ownerID, source)
		if err != nil {
			return nil, fmt.Errorf("MatchTransactions: list %s: %w", source, err)
		}

		records := match.Run(external, ledger, params)
		if err := s.store.ReplaceMatches(ctx, ownerID, source, records); err != nil {
			return nil, fmt.Errorf("MatchTransactions: replace %s: %w", source, err)
		}

		outcome := make(map[string]domain.MatchRecord, len(records))
		summary := domain.MatchSummary{Source: source}
		for _, rec := range records {
			outcome[rec.ExternalID] = rec
			if rec.Status == domain.MatchStatusMatched {
				summary.Matched++
			} else {
				summary.Unmatched++
			}
		}

		for i := range external {
			rec, ok := outcome[external[i].ExternalID]
			if !ok {
				continue
			}
			external[i].MatchedLedgerID = rec.LedgerTransactionID
			external[i].MatchConfidence = rec.Confidence
		}
		if _, err := s.store.UpsertExternal(ctx, ownerID, external); err != nil {
			return nil, fmt.Errorf("MatchTransactions: annotate %s: %w", source, err)
		}

		result.Matched += summary.Matched
		result.Unmatched += summary.Unmatched
		result.BySource = append(result.BySource, summary)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("owner", ownerID).
		Int("sources", len(sources)).
		Int("matched", result.Matched).
		Int("unmatched", result.Unmatched).
		Msg("matching run completed")

	return result, nil
}
