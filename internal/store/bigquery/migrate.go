package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
)

var budgetSchema = mustInferSchema(budgetRow{})

// potRow and goalRow are written by the companion app; the schemas live
// here so provisioning covers every table the engine reads.
type potRow struct {
	OwnerID      string    `bigquery:"owner_id"`
	PotID        string    `bigquery:"pot_id"`
	Name         string    `bigquery:"name"`
	BalanceMinor int64     `bigquery:"balance_minor"`
	Currency     string    `bigquery:"currency"`
	UpdatedTS    time.Time `bigquery:"updated_ts"`
}

type goalRow struct {
	OwnerID            string              `bigquery:"owner_id"`
	GoalID             string              `bigquery:"goal_id"`
	Title              string              `bigquery:"title"`
	LinkedPotID        bigquery.NullString `bigquery:"linked_pot_id"`
	EstimatedCostMinor int64               `bigquery:"estimated_cost_minor"`
	Status             int64               `bigquery:"status"`
	UpdatedTS          time.Time           `bigquery:"updated_ts"`
}

var potSchema = mustInferSchema(potRow{})
var goalSchema = mustInferSchema(goalRow{})

// tableSchemas maps every table the store touches to its schema.
func tableSchemas() map[string]bigquery.Schema {
	return map[string]bigquery.Schema{
		externalTable:    externalSchema,
		ledgerTable:      ledgerSchema,
		matchesTable:     matchSchema,
		debtServiceTable: debtServiceSchema,
		categoriesTable:  categorySchema,
		budgetsTable:     budgetSchema,
		potsTable:        potSchema,
		goalsTable:       goalSchema,
		actionsTable:     actionSchema,
	}
}

// EnsureTables creates the dataset and any missing tables. Existing
// tables are left untouched; schema changes need a manual migration.
func (s *Store) EnsureTables(ctx context.Context) error {
	ds := s.client.DatasetInProject(s.projectID, s.datasetID)
	if _, err := ds.Metadata(ctx); err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("EnsureTables: dataset metadata: %w", err)
		}
		if err := ds.Create(ctx, &bigquery.DatasetMetadata{Name: s.datasetID}); err != nil {
			return fmt.Errorf("EnsureTables: create dataset %s: %w", s.datasetID, err)
		}
	}

	for name, schema := range tableSchemas() {
		table := ds.Table(name)
		if _, err := table.Metadata(ctx); err == nil {
			continue
		} else if !isNotFound(err) {
			return fmt.Errorf("EnsureTables: table %s metadata: %w", name, err)
		}
		if err := table.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
			return fmt.Errorf("EnsureTables: create table %s: %w", name, err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
