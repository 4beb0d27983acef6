package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/ledgerkit/finrecon/internal/domain"
)

type categoryRow struct {
	OwnerID string    `bigquery:"owner_id"`
	Key     string    `bigquery:"key"`
	Label   string    `bigquery:"label"`
	Bucket  string    `bigquery:"bucket"`
	SavedTS time.Time `bigquery:"saved_ts"`
}

var categorySchema = mustInferSchema(categoryRow{})

func (r *categoryRow) Save() (map[string]bigquery.Value, string, error) {
	insertID := fmt.Sprintf("%s|%s|%d", r.OwnerID, r.Key, r.SavedTS.UnixNano())
	saver := bigquery.StructSaver{Schema: categorySchema, InsertID: insertID, Struct: r}
	return saver.Save()
}

func (s *Store) CategoryOverrides(ctx context.Context, ownerID string) ([]domain.Category, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT key, label, bucket
		FROM %s
		WHERE owner_id = @owner_id
		QUALIFY ROW_NUMBER() OVER (PARTITION BY key ORDER BY saved_ts DESC) = 1
		ORDER BY key
	`, s.qualified(categoriesTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "owner_id", Value: ownerID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("CategoryOverrides: query read: %w", err)
	}

	var out []domain.Category
	for {
		var r struct {
			Key    string `bigquery:"key"`
			Label  string `bigquery:"label"`
			Bucket string `bigquery:"bucket"`
		}
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("CategoryOverrides: iter next: %w", err)
		}
		out = append(out, domain.Category{Key: r.Key, Label: r.Label, Bucket: r.Bucket})
	}
	return out, nil
}

func (s *Store) SaveCategoryOverrides(ctx context.Context, ownerID string, categories []domain.Category) error {
	now := time.Now().UTC()
	rows := make([]*categoryRow, 0, len(categories))
	for _, c := range categories {
		if c.Key == "" {
			continue
		}
		rows = append(rows, &categoryRow{OwnerID: ownerID, Key: c.Key, Label: c.Label, Bucket: c.Bucket, SavedTS: now})
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.table(categoriesTable).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("SaveCategoryOverrides: inserting rows: %w", err)
	}
	return nil
}

// budgetRow stores both budget formats in one table: the current format
// in the JSON column, the legacy flat amounts in theirs. A row usually
// populates only one side.
type budgetRow struct {
	OwnerID string `bigquery:"owner_id"`

	Mode               bigquery.NullString `bigquery:"mode"`
	MonthlyIncomeMinor bigquery.NullInt64  `bigquery:"monthly_income_minor"`
	CategoryBudgets    bigquery.NullJSON   `bigquery:"category_budgets"`

	LegacyMonthlyIncome bigquery.NullFloat64 `bigquery:"legacy_monthly_income"`
	LegacyByCategory    bigquery.NullJSON    `bigquery:"legacy_by_category"`

	SavedTS time.Time `bigquery:"saved_ts"`
}

func (s *Store) readBudgetRow(ctx context.Context, ownerID string) (*budgetRow, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s
		WHERE owner_id = @owner_id
		ORDER BY saved_ts DESC
		LIMIT 1
	`, s.qualified(budgetsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "owner_id", Value: ownerID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("budget row: query read: %w", err)
	}
	var r budgetRow
	if err := it.Next(&r); err == iterator.Done {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("budget row: iter next: %w", err)
	}
	return &r, nil
}

func (s *Store) BudgetSettings(ctx context.Context, ownerID string) (*domain.BudgetSettings, error) {
	row, err := s.readBudgetRow(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("BudgetSettings: %w", err)
	}
	if row == nil || !row.CategoryBudgets.Valid {
		return nil, nil
	}

	settings := &domain.BudgetSettings{
		Mode:               row.Mode.StringVal,
		MonthlyIncomeMinor: row.MonthlyIncomeMinor.Int64,
	}
	if err := nullJSONToValue(row.CategoryBudgets, &settings.CategoryBudgets); err != nil {
		return nil, fmt.Errorf("BudgetSettings: category budgets: %w", err)
	}
	return settings, nil
}

func (s *Store) LegacyBudget(ctx context.Context, ownerID string) (*domain.LegacyBudget, error) {
	row, err := s.readBudgetRow(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("LegacyBudget: %w", err)
	}
	if row == nil || !row.LegacyByCategory.Valid {
		return nil, nil
	}

	budget := &domain.LegacyBudget{MonthlyIncome: row.LegacyMonthlyIncome.Float64}
	if err := nullJSONToValue(row.LegacyByCategory, &budget.ByCategory); err != nil {
		return nil, fmt.Errorf("LegacyBudget: by category: %w", err)
	}
	return budget, nil
}

func (s *Store) Pots(ctx context.Context, ownerID string) ([]domain.Pot, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT pot_id, name, balance_minor, currency, updated_ts
		FROM %s
		WHERE owner_id = @owner_id
		QUALIFY ROW_NUMBER() OVER (PARTITION BY pot_id ORDER BY updated_ts DESC) = 1
		ORDER BY pot_id
	`, s.qualified(potsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "owner_id", Value: ownerID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("Pots: query read: %w", err)
	}

	var out []domain.Pot
	for {
		var r struct {
			PotID        string    `bigquery:"pot_id"`
			Name         string    `bigquery:"name"`
			BalanceMinor int64     `bigquery:"balance_minor"`
			Currency     string    `bigquery:"currency"`
			UpdatedTS    time.Time `bigquery:"updated_ts"`
		}
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Pots: iter next: %w", err)
		}
		out = append(out, domain.Pot{
			PotID: r.PotID, Name: r.Name, BalanceMinor: r.BalanceMinor,
			Currency: r.Currency, UpdatedAt: r.UpdatedTS,
		})
	}
	return out, nil
}

func (s *Store) Goals(ctx context.Context, ownerID string) ([]domain.Goal, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT goal_id, title, linked_pot_id, estimated_cost_minor, status
		FROM %s
		WHERE owner_id = @owner_id
		QUALIFY ROW_NUMBER() OVER (PARTITION BY goal_id ORDER BY updated_ts DESC) = 1
		ORDER BY goal_id
	`, s.qualified(goalsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "owner_id", Value: ownerID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("Goals: query read: %w", err)
	}

	var out []domain.Goal
	for {
		var r struct {
			GoalID             string              `bigquery:"goal_id"`
			Title              string              `bigquery:"title"`
			LinkedPotID        bigquery.NullString `bigquery:"linked_pot_id"`
			EstimatedCostMinor int64               `bigquery:"estimated_cost_minor"`
			Status             int64               `bigquery:"status"`
		}
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Goals: iter next: %w", err)
		}
		out = append(out, domain.Goal{
			GoalID: r.GoalID, Title: r.Title, LinkedPotID: r.LinkedPotID.StringVal,
			EstimatedCostMinor: r.EstimatedCostMinor, Status: int(r.Status),
		})
	}
	return out, nil
}
