package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/ledgerkit/finrecon/internal/domain"
	"github.com/ledgerkit/finrecon/internal/store"
)

type actionRow struct {
	OwnerID  string `bigquery:"owner_id"`
	ActionID string `bigquery:"action_id"`

	MerchantKey  string `bigquery:"merchant_key"`
	MerchantName string `bigquery:"merchant_name"`
	Origin       string `bigquery:"origin"`
	ActionType   string `bigquery:"action_type"`
	Title        string `bigquery:"title"`
	Reason       string `bigquery:"reason"`

	EstimatedMonthlySavingsMinor int64   `bigquery:"estimated_monthly_savings_minor"`
	Confidence                   float64 `bigquery:"confidence"`

	Status      string    `bigquery:"status"`
	GeneratedTS time.Time `bigquery:"generated_ts"`
	RunTS       time.Time `bigquery:"run_ts"`
}

var actionSchema = mustInferSchema(actionRow{})

func (r *actionRow) Save() (map[string]bigquery.Value, string, error) {
	insertID := fmt.Sprintf("%s|%s|%d", r.OwnerID, r.ActionID, r.RunTS.UnixNano())
	saver := bigquery.StructSaver{Schema: actionSchema, InsertID: insertID, Struct: r}
	return saver.Save()
}

func (s *Store) ReplaceActions(ctx context.Context, ownerID string, actions []domain.Action) error {
	runTS := time.Now().UTC()
	rows := make([]*actionRow, 0, len(actions))
	for _, a := range actions {
		rows = append(rows, &actionRow{
			OwnerID:                      ownerID,
			ActionID:                     a.ID,
			MerchantKey:                  a.MerchantKey,
			MerchantName:                 a.MerchantName,
			Origin:                       a.Origin,
			ActionType:                   string(a.Type),
			Title:                        a.Title,
			Reason:                       a.Reason,
			EstimatedMonthlySavingsMinor: a.EstimatedMonthlySavingsMinor,
			Confidence:                   a.Confidence,
			Status:                       a.Status,
			GeneratedTS:                  a.GeneratedAt,
			RunTS:                        runTS,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.table(actionsTable).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("ReplaceActions: inserting rows: %w", err)
	}
	return nil
}

func (s *Store) ListActions(ctx context.Context, ownerID string) ([]domain.Action, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s
		WHERE owner_id = @owner_id
		QUALIFY ROW_NUMBER() OVER (PARTITION BY action_id ORDER BY run_ts DESC) = 1
		ORDER BY estimated_monthly_savings_minor DESC, action_id
	`, s.qualified(actionsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "owner_id", Value: ownerID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListActions: query read: %w", err)
	}

	var out []domain.Action
	for {
		var r actionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListActions: iter next: %w", err)
		}
		out = append(out, domain.Action{
			ID:                           r.ActionID,
			MerchantKey:                  r.MerchantKey,
			MerchantName:                 r.MerchantName,
			Origin:                       r.Origin,
			Type:                         domain.ActionType(r.ActionType),
			Title:                        r.Title,
			Reason:                       r.Reason,
			EstimatedMonthlySavingsMinor: r.EstimatedMonthlySavingsMinor,
			Confidence:                   r.Confidence,
			Status:                       r.Status,
			GeneratedAt:                  r.GeneratedTS,
		})
	}
	return out, nil
}

func (s *Store) UpdateActionStatus(ctx context.Context, ownerID, actionID, status string) error {
	// The owner check happens before the write so a mismatch surfaces as
	// its own error instead of a silent zero-row update.
	q := s.client.Query(fmt.Sprintf(`
		SELECT owner_id
		FROM %s
		WHERE action_id = @action_id
		QUALIFY ROW_NUMBER() OVER (PARTITION BY action_id ORDER BY run_ts DESC) = 1
	`, s.qualified(actionsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "action_id", Value: actionID}}

	it, err := q.Read(ctx)
	if err != nil {
		return fmt.Errorf("UpdateActionStatus: query read: %w", err)
	}
	var row struct {
		OwnerID string `bigquery:"owner_id"`
	}
	if err := it.Next(&row); err == iterator.Done {
		return store.ErrNotFound
	} else if err != nil {
		return fmt.Errorf("UpdateActionStatus: iter next: %w", err)
	}
	if row.OwnerID != ownerID {
		return store.ErrOwnershipMismatch
	}

	update := s.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status
		WHERE owner_id = @owner_id AND action_id = @action_id
	`, s.qualified(actionsTable)))
	update.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: status},
		{Name: "owner_id", Value: ownerID},
		{Name: "action_id", Value: actionID},
	}

	job, err := update.Run(ctx)
	if err != nil {
		return fmt.Errorf("UpdateActionStatus: update run: %w", err)
	}
	js, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("UpdateActionStatus: update wait: %w", err)
	}
	if err := js.Err(); err != nil {
		return fmt.Errorf("UpdateActionStatus: update: %w", err)
	}
	return nil
}
