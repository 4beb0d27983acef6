// Package store defines the persistence boundary of the reconciliation
// engine. Every operation is scoped to an owner; implementations must
// never let one owner's rows leak into another's results.
package store

import (
	"context"
	"errors"

	"github.com/ledgerkit/finrecon/internal/domain"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrOwnershipMismatch is returned when a record exists but belongs
	// to a different owner.
	ErrOwnershipMismatch = errors.New("store: ownership mismatch")
)

// TransactionStore persists normalized external and ledger rows.
// Upserts are keyed by the deterministic row identifiers, so reimporting
// the same file is a no-op rather than a duplication.
type TransactionStore interface {
	UpsertExternal(ctx context.Context, ownerID string, rows []domain.ExternalTransaction) (int, error)
	// ListExternal returns rows for one source, or all sources when
	// source is empty. Rows come back ordered by posted date.
	ListExternal(ctx context.Context, ownerID string, source domain.ExternalSource) ([]domain.ExternalTransaction, error)

	UpsertLedger(ctx context.Context, ownerID string, rows []domain.LedgerTransaction) (int, error)
	ListLedger(ctx context.Context, ownerID string) ([]domain.LedgerTransaction, error)
}

// MatchStore persists match records. A matching run replaces the
// previous run's records for the sources it covered.
type MatchStore interface {
	ReplaceMatches(ctx context.Context, ownerID string, source domain.ExternalSource, records []domain.MatchRecord) error
	ListMatches(ctx context.Context, ownerID string, source domain.ExternalSource) ([]domain.MatchRecord, error)
}

// ReportStore persists derived reports that are recomputed wholesale.
type ReportStore interface {
	SaveDebtService(ctx context.Context, ownerID string, report domain.DebtServiceReport) error
	// DebtService returns ErrNotFound when no report has been computed
	// for the source yet.
	DebtService(ctx context.Context, ownerID string, source domain.ExternalSource) (*domain.DebtServiceReport, error)
}

// SettingsStore reads owner configuration written by the companion app:
// category overrides, budgets in both formats, pots and goals.
type SettingsStore interface {
	CategoryOverrides(ctx context.Context, ownerID string) ([]domain.Category, error)
	SaveCategoryOverrides(ctx context.Context, ownerID string, categories []domain.Category) error

	// BudgetSettings and LegacyBudget return (nil, nil) when the owner
	// has no budget stored in that format.
	BudgetSettings(ctx context.Context, ownerID string) (*domain.BudgetSettings, error)
	LegacyBudget(ctx context.Context, ownerID string) (*domain.LegacyBudget, error)

	Pots(ctx context.Context, ownerID string) ([]domain.Pot, error)
	Goals(ctx context.Context, ownerID string) ([]domain.Goal, error)
}

// ActionStore persists suggested savings actions.
type ActionStore interface {
	ReplaceActions(ctx context.Context, ownerID string, actions []domain.Action) error
	ListActions(ctx context.Context, ownerID string) ([]domain.Action, error)
	// UpdateActionStatus fails with ErrNotFound for an unknown action id
	// and ErrOwnershipMismatch when the action belongs to someone else.
	UpdateActionStatus(ctx context.Context, ownerID, actionID, status string) error
}

// Store is the full persistence surface the service layer depends on.
type Store interface {
	TransactionStore
	MatchStore
	ReportStore
	SettingsStore
	ActionStore
}
