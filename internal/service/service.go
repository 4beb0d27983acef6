// Package service orchestrates the engine's operations over a Store.
// Each operation validates its input, loads what it needs, recomputes
// wholesale and persists the result. Validation failures surface as the
// typed errors below, checked before any write happens.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerkit/finrecon/internal/categories"
	"github.com/ledgerkit/finrecon/internal/domain"
	"github.com/ledgerkit/finrecon/internal/store"
)

var (
	ErrEmptyCSV          = errors.New("service: empty csv payload")
	ErrMissingOwner      = errors.New("service: missing owner id")
	ErrMissingActionID   = errors.New("service: missing action id")
	ErrActionNotFound    = errors.New("service: action not found")
	ErrOwnershipMismatch = errors.New("service: action belongs to another owner")
)

// ActionRefiner improves action wording; implementations must be
// best-effort and return their input on failure.
type ActionRefiner interface {
	Refine(ctx context.Context, actions []domain.Action) []domain.Action
}

// Service is the operation layer shared by the HTTP API, the worker and
// the CLI.
type Service struct {
	store   store.Store
	refiner ActionRefiner
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRefiner enables LLM refinement of generated actions.
func WithRefiner(r ActionRefiner) Option {
	return func(s *Service) { s.refiner = r }
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// taxonomy returns the effective category list for an owner: defaults
// overlaid with stored overrides.
func (s *Service) taxonomy(ctx context.Context, ownerID string) ([]domain.Category, error) {
	overrides, err := s.store.CategoryOverrides(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return categories.Merge(overrides), nil
}

// taxonomyInference labels uncategorised ledger rows from the taxonomy,
// falling back to the generic unknown labels by amount direction.
type taxonomyInference struct {
	labels map[string]string
}

func newTaxonomyInference(cats []domain.Category) *taxonomyInference {
	labels := make(map[string]string, len(cats))
	for _, c := range cats {
		labels[c.Key] = c.Label
	}
	return &taxonomyInference{labels: labels}
}

func (t *taxonomyInference) InferLabel(_, _, categoryKey string, amountMinor int64) string {
	if label, ok := t.labels[categoryKey]; ok && label != "" {
		return label
	}
	if amountMinor > 0 {
		return "Unknown"
	}
	return "Unknown Expense"
}
