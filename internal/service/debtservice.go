package service

import (
	"context"
	"fmt"

	"github.com/ledgerkit/finrecon/internal/analytics"
	"github.com/ledgerkit/finrecon/internal/domain"
	"github.com/ledgerkit/finrecon/internal/logger"
)

// RecomputeDebtService rebuilds the per-month interest and principal
// breakdown for one source from the stored rows and persists it.
func (s *Service) RecomputeDebtService(ctx context.Context, ownerID, sourceRaw string) (*domain.DebtServiceReport, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}
	source := domain.NormalizeSource(sourceRaw)

	external, err := s.store.ListExternal(ctx, ownerID, source)
	if err != nil {
		return nil, fmt.Errorf("RecomputeDebtService: list external: %w", err)
	}
	ledger, err := s.store.ListLedger(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("RecomputeDebtService: list ledger: %w", err)
	}

	report := analytics.DebtService(source, external, ledger)
	if err := s.store.SaveDebtService(ctx, ownerID, report); err != nil {
		return nil, fmt.Errorf("RecomputeDebtService: save: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("owner", ownerID).
		Str("source", string(source)).
		Int("months", len(report.PerMonth)).
		Int64("estimated_interest_minor", report.Totals.EstimatedInterestMinor).
		Msg("debt service recomputed")

	return &report, nil
}
