// Package bigquery is the BigQuery-backed Store. Transactions stream in
// through the insert API with deterministic insert ids; reads collapse
// any duplicate streams with a latest-row-wins window, so reimporting a
// statement never double-counts.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/ledgerkit/finrecon/internal/store"
)

const (
	externalTable    = "external_transactions"
	ledgerTable      = "ledger_transactions"
	matchesTable     = "match_records"
	debtServiceTable = "debt_service_months"
	categoriesTable  = "category_overrides"
	budgetsTable     = "budget_settings"
	potsTable        = "pots"
	goalsTable       = "goals"
	actionsTable     = "actions"

	dateFormat = "2006-01-02"
)

// Store implements store.Store on one BigQuery dataset.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

var _ store.Store = (*Store)(nil)

// New creates a Store with its own client. Call Close when done.
func New(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery store: client: %w", err)
	}
	return NewWithClient(client, projectID, datasetID), nil
}

// NewWithClient wraps an existing client; the caller owns its lifetime.
func NewWithClient(client *bigquery.Client, projectID, datasetID string) *Store {
	return &Store{client: client, projectID: projectID, datasetID: datasetID}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) table(name string) *bigquery.Table {
	// Fully qualified to avoid default-project surprises.
	return s.client.DatasetInProject(s.projectID, s.datasetID).Table(name)
}

func (s *Store) qualified(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.datasetID, name)
}
