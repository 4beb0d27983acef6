package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledgerkit/finrecon/internal/analytics"
	"github.com/ledgerkit/finrecon/internal/domain"
	"github.com/ledgerkit/finrecon/internal/insights"
	"github.com/ledgerkit/finrecon/internal/logger"
	"github.com/ledgerkit/finrecon/internal/store"
)

// ActionsResult reports one action generation run.
type ActionsResult struct {
	Actions []domain.Action
	Refined bool
}

// GenerateActions derives savings suggestions from recurring optional
// spend and the stored debt-service report, carries forward any status
// the user already set, optionally refines wording through the LLM, and
// persists the new set.
func (s *Service) GenerateActions(ctx context.Context, ownerID, sourceRaw string, maxActions int) (*ActionsResult, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}
	now := s.now()

	taxonomy, err := s.taxonomy(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("GenerateActions: taxonomy: %w", err)
	}
	ledger, err := s.store.ListLedger(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("GenerateActions: list ledger: %w", err)
	}
	flows := analytics.Cashflow(ledger, analytics.TaxonomyIndex(taxonomy),
		now.AddDate(0, -defaultDashboardMonths, 0), now)

	source := domain.NormalizeSource(sourceRaw)
	debt, err := s.store.DebtService(ctx, ownerID, source)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("GenerateActions: debt service: %w", err)
	}

	actions := insights.HeuristicActions(ownerID, flows.TopOptional, debt, maxActions, now)

	existing, err := s.store.ListActions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("GenerateActions: list actions: %w", err)
	}
	actions = insights.CarryStatus(actions, existing)

	refined := false
	if s.refiner != nil && len(actions) > 0 {
		actions = s.refiner.Refine(ctx, actions)
		refined = true
	}

	if err := s.store.ReplaceActions(ctx, ownerID, actions); err != nil {
		return nil, fmt.Errorf("GenerateActions: replace: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("owner", ownerID).
		Int("actions", len(actions)).
		Bool("refined", refined).
		Msg("actions generated")

	return &ActionsResult{Actions: actions, Refined: refined}, nil
}

// ListActions returns the stored actions, highest estimated saving first.
func (s *Service) ListActions(ctx context.Context, ownerID string) ([]domain.Action, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}
	return s.store.ListActions(ctx, ownerID)
}

// UpdateActionStatus records the owner's decision on one action.
func (s *Service) UpdateActionStatus(ctx context.Context, ownerID, actionID, status string) error {
	if ownerID == "" {
		return ErrMissingOwner
	}
	if actionID == "" {
		return ErrMissingActionID
	}

	err := s.store.UpdateActionStatus(ctx, ownerID, actionID, status)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrActionNotFound
	case errors.Is(err, store.ErrOwnershipMismatch):
		return ErrOwnershipMismatch
	case err != nil:
		return fmt.Errorf("UpdateActionStatus: %w", err)
	}
	return nil
}
