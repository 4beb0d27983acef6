package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerkit/finrecon/internal/analytics"
	"github.com/ledgerkit/finrecon/internal/domain"
	"github.com/ledgerkit/finrecon/internal/store"
)

// defaultDashboardMonths is the range used when the caller gives none.
const defaultDashboardMonths = 6

// Dashboard assembles the composite read model for one owner and date
// range: cash-flow series, budget health, goal forecasts, per-source
// summaries and the latest debt-service report.
func (s *Service) Dashboard(ctx context.Context, ownerID string, start, end time.Time) (*domain.Dashboard, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}
	if end.IsZero() {
		end = s.now()
	}
	if start.IsZero() {
		start = end.AddDate(0, -defaultDashboardMonths, 0)
	}

	taxonomy, err := s.taxonomy(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("Dashboard: taxonomy: %w", err)
	}
	taxIndex := analytics.TaxonomyIndex(taxonomy)

	ledger, err := s.store.ListLedger(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("Dashboard: list ledger: %w", err)
	}
	flows := analytics.Cashflow(ledger, taxIndex, start, end)

	settings, err := s.store.BudgetSettings(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("Dashboard: budget settings: %w", err)
	}
	legacy, err := s.store.LegacyBudget(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("Dashboard: legacy budget: %w", err)
	}
	budget := analytics.BudgetHealth(settings, legacy, taxIndex, flows.CategorySpendMinor)

	pots, err := s.store.Pots(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("Dashboard: pots: %w", err)
	}
	goals, err := s.store.Goals(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("Dashboard: goals: %w", err)
	}
	forecasts := analytics.GoalForecasts(goals, pots, analytics.PotContributions(ledger), s.now())

	external, err := s.store.ListExternal(ctx, ownerID, "")
	if err != nil {
		return nil, fmt.Errorf("Dashboard: list external: %w", err)
	}
	matches, err := s.store.ListMatches(ctx, ownerID, "")
	if err != nil {
		return nil, fmt.Errorf("Dashboard: list matches: %w", err)
	}

	dashboard := &domain.Dashboard{
		RangeStart:      start,
		RangeEnd:        end,
		Coverage:        flows.Coverage,
		Monthly:         flows.Monthly,
		TopOptional:     flows.TopOptional,
		BudgetHealth:    budget,
		Goals:           forecasts,
		ExternalSummary: analytics.SummarizeExternal(external),
		MatchSummary:    analytics.SummarizeMatches(matches),
		GeneratedAt:     s.now(),
	}

	// The latest stored report from any source; barclays first as the
	// primary card statement.
	for _, source := range []domain.ExternalSource{domain.SourceBarclays, domain.SourcePayPal, domain.SourceOther} {
		report, err := s.store.DebtService(ctx, ownerID, source)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("Dashboard: debt service %s: %w", source, err)
		}
		dashboard.DebtService = report
		break
	}

	return dashboard, nil
}
