// Package inmemory is the map-backed Store used by tests and the local
// CLI. Everything is deep-copied on the way in and out so callers can
// never alias the store's internal state.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/ledgerkit/finrecon/internal/domain"
	"github.com/ledgerkit/finrecon/internal/store"
)

type ownerData struct {
	external map[string]domain.ExternalTransaction
	ledger   map[string]domain.LedgerTransaction
	matches  map[domain.ExternalSource][]domain.MatchRecord
	reports  map[domain.ExternalSource]domain.DebtServiceReport

	categoryOverrides []domain.Category
	budgetSettings    *domain.BudgetSettings
	legacyBudget      *domain.LegacyBudget
	pots              []domain.Pot
	goals             []domain.Goal

	actions map[string]domain.Action
}

// Store implements store.Store with in-process maps.
type Store struct {
	mu     sync.RWMutex
	owners map[string]*ownerData
}

func New() *Store {
	return &Store{owners: map[string]*ownerData{}}
}

var _ store.Store = (*Store)(nil)

func (s *Store) owner(ownerID string) *ownerData {
	od, ok := s.owners[ownerID]
	if !ok {
		od = &ownerData{
			external: map[string]domain.ExternalTransaction{},
			ledger:   map[string]domain.LedgerTransaction{},
			matches:  map[domain.ExternalSource][]domain.MatchRecord{},
			reports:  map[domain.ExternalSource]domain.DebtServiceReport{},
			actions:  map[string]domain.Action{},
		}
		s.owners[ownerID] = od
	}
	return od
}

func (s *Store) UpsertExternal(_ context.Context, ownerID string, rows []domain.ExternalTransaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	od := s.owner(ownerID)
	for _, row := range rows {
		if row.ExternalID == "" {
			continue
		}
		od.external[row.ExternalID] = copyExternal(row)
	}
	return len(od.external), nil
}

func (s *Store) ListExternal(_ context.Context, ownerID string, source domain.ExternalSource) ([]domain.ExternalTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	od, ok := s.owners[ownerID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.ExternalTransaction, 0, len(od.external))
	for _, row := range od.external {
		if source != "" && row.Source != source {
			continue
		}
		out = append(out, copyExternal(row))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PostedAt.Equal(out[j].PostedAt) {
			return out[i].PostedAt.Before(out[j].PostedAt)
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	return out, nil
}

func (s *Store) UpsertLedger(_ context.Context, ownerID string, rows []domain.LedgerTransaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	od := s.owner(ownerID)
	for _, row := range rows {
		if row.TransactionID == "" {
			continue
		}
		od.ledger[row.TransactionID] = copyLedger(row)
	}
	return len(od.ledger), nil
}

func (s *Store) ListLedger(_ context.Context, ownerID string) ([]domain.LedgerTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	od, ok := s.owners[ownerID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.LedgerTransaction, 0, len(od.ledger))
	for _, row := range od.ledger {
		out = append(out, copyLedger(row))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].TransactionID < out[j].TransactionID
	})
	return out, nil
}

func (s *Store) ReplaceMatches(_ context.Context, ownerID string, source domain.ExternalSource, records []domain.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]domain.MatchRecord, len(records))
	copy(stored, records)
	s.owner(ownerID).matches[source] = stored
	return nil
}

func (s *Store) ListMatches(_ context.Context, ownerID string, source domain.ExternalSource) ([]domain.MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	od, ok := s.owners[ownerID]
	if !ok {
		return nil, nil
	}
	var out []domain.MatchRecord
	if source != "" {
		out = append(out, od.matches[source]...)
		return out, nil
	}
	sources := make([]domain.ExternalSource, 0, len(od.matches))
	for src := range od.matches {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	for _, src := range sources {
		out = append(out, od.matches[src]...)
	}
	return out, nil
}

func (s *Store) SaveDebtService(_ context.Context, ownerID string, report domain.DebtServiceReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := report
	stored.PerMonth = make([]domain.DebtServiceEntry, len(report.PerMonth))
	copy(stored.PerMonth, report.PerMonth)
	s.owner(ownerID).reports[report.Source] = stored
	return nil
}

func (s *Store) DebtService(_ context.Context, ownerID string, source domain.ExternalSource) (*domain.DebtServiceReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	od, ok := s.owners[ownerID]
	if !ok {
		return nil, store.ErrNotFound
	}
	report, ok := od.reports[source]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := report
	out.PerMonth = make([]domain.DebtServiceEntry, len(report.PerMonth))
	copy(out.PerMonth, report.PerMonth)
	return &out, nil
}

func (s *Store) CategoryOverrides(_ context.Context, ownerID string) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	od, ok := s.owners[ownerID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Category, len(od.categoryOverrides))
	copy(out, od.categoryOverrides)
	return out, nil
}

func (s *Store) SaveCategoryOverrides(_ context.Context, ownerID string, categories []domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]domain.Category, len(categories))
	copy(stored, categories)
	s.owner(ownerID).categoryOverrides = stored
	return nil
}

func (s *Store) BudgetSettings(_ context.Context, ownerID string) (*domain.BudgetSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	od, ok := s.owners[ownerID]
	if !ok || od.budgetSettings == nil {
		return nil, nil
	}
	out := *od.budgetSettings
	out.CategoryBudgets = make(map[string]domain.CategoryBudget, len(od.budgetSettings.CategoryBudgets))
	for k, v := range od.budgetSettings.CategoryBudgets {
		out.CategoryBudgets[k] = v
	}
	return &out, nil
}

func (s *Store) LegacyBudget(_ context.Context, ownerID string) (*domain.LegacyBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	od, ok := s.owners[ownerID]
	if !ok || od.legacyBudget == nil {
		return nil, nil
	}
	out := *od.legacyBudget
	out.ByCategory = make(map[string]float64, len(od.legacyBudget.ByCategory))
	for k, v := range od.legacyBudget.ByCategory {
		out.ByCategory[k] = v
	}
	return &out, nil
}

func (s *Store) Pots(_ context.Context, ownerID string) ([]domain.Pot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	od, ok := s.owners[ownerID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Pot, len(od.pots))
	copy(out, od.pots)
	return out, nil
}

func (s *Store) Goals(_ context.Context, ownerID string) ([]domain.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	od, ok := s.owners[ownerID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Goal, len(od.goals))
	copy(out, od.goals)
	return out, nil
}

// SetBudgetSettings seeds owner budget configuration. Test/CLI helper.
func (s *Store) SetBudgetSettings(ownerID string, settings *domain.BudgetSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner(ownerID).budgetSettings = settings
}

// SetLegacyBudget seeds the legacy budget store. Test/CLI helper.
func (s *Store) SetLegacyBudget(ownerID string, budget *domain.LegacyBudget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner(ownerID).legacyBudget = budget
}

// SetPots seeds pot balances. Test/CLI helper.
func (s *Store) SetPots(ownerID string, pots []domain.Pot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner(ownerID).pots = pots
}

// SetGoals seeds savings goals. Test/CLI helper.
func (s *Store) SetGoals(ownerID string, goals []domain.Goal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner(ownerID).goals = goals
}

func (s *Store) ReplaceActions(_ context.Context, ownerID string, actions []domain.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	od := s.owner(ownerID)
	od.actions = make(map[string]domain.Action, len(actions))
	for _, a := range actions {
		od.actions[a.ID] = a
	}
	return nil
}

func (s *Store) ListActions(_ context.Context, ownerID string) ([]domain.Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	od, ok := s.owners[ownerID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Action, 0, len(od.actions))
	for _, a := range od.actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EstimatedMonthlySavingsMinor != out[j].EstimatedMonthlySavingsMinor {
			return out[i].EstimatedMonthlySavingsMinor > out[j].EstimatedMonthlySavingsMinor
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateActionStatus(_ context.Context, ownerID, actionID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for owner, od := range s.owners {
		action, ok := od.actions[actionID]
		if !ok {
			continue
		}
		if owner != ownerID {
			return store.ErrOwnershipMismatch
		}
		action.Status = status
		od.actions[actionID] = action
		return nil
	}
	return store.ErrNotFound
}

func copyExternal(row domain.ExternalTransaction) domain.ExternalTransaction {
	out := row
	if row.RawRow != nil {
		out.RawRow = make([]string, len(row.RawRow))
		copy(out.RawRow, row.RawRow)
	}
	return out
}

func copyLedger(row domain.LedgerTransaction) domain.LedgerTransaction {
	out := row
	if row.Metadata != nil {
		out.Metadata = make(map[string]string, len(row.Metadata))
		for k, v := range row.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
