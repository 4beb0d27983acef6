package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/ledgerkit/finrecon/internal/domain"
	"github.com/ledgerkit/finrecon/internal/store"
)

type ledgerRow struct {
	OwnerID       string `bigquery:"owner_id"`       // REQUIRED
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	CreatedAt   time.Time  `bigquery:"created_at"`   // REQUIRED TIMESTAMP
	CreatedDate civil.Date `bigquery:"created_date"` // REQUIRED DATE (partition column)

	AmountMinor int64  `bigquery:"amount_minor"` // REQUIRED
	Currency    string `bigquery:"currency"`     // REQUIRED

	Description  string `bigquery:"description"`
	MerchantName string `bigquery:"merchant_name"`
	MerchantKey  string `bigquery:"merchant_key"`

	CategoryKey   string `bigquery:"category_key"`
	CategoryLabel string `bigquery:"category_label"`
	Bucket        string `bigquery:"bucket"`

	Metadata bigquery.NullJSON `bigquery:"metadata"` // NULLABLE JSON

	LoadedTS time.Time `bigquery:"loaded_ts"` // REQUIRED
}

var ledgerSchema = mustInferSchema(ledgerRow{})

func (r *ledgerRow) Save() (map[string]bigquery.Value, string, error) {
	saver := bigquery.StructSaver{Schema: ledgerSchema, InsertID: r.OwnerID + "|" + r.TransactionID, Struct: r}
	return saver.Save()
}

func toLedgerRow(ownerID string, tx domain.LedgerTransaction, loadedTS time.Time) (*ledgerRow, error) {
	row := &ledgerRow{
		OwnerID:       ownerID,
		TransactionID: tx.TransactionID,
		CreatedAt:     tx.CreatedAt,
		CreatedDate:   civil.DateOf(tx.CreatedAt),
		AmountMinor:   tx.AmountMinor,
		Currency:      tx.Currency,
		Description:   tx.Description,
		MerchantName:  tx.MerchantName,
		MerchantKey:   tx.MerchantKey,
		CategoryKey:   tx.CategoryKey,
		CategoryLabel: tx.CategoryLabel,
		Bucket:        tx.Bucket,
		LoadedTS:      loadedTS,
	}
	if len(tx.Metadata) > 0 {
		meta, err := nullJSONFromValue(tx.Metadata)
		if err != nil {
			return nil, fmt.Errorf("ledger row %s: metadata: %w", tx.TransactionID, err)
		}
		row.Metadata = meta
	}
	return row, nil
}

func (r *ledgerRow) toDomain() (domain.LedgerTransaction, error) {
	tx := domain.LedgerTransaction{
		TransactionID: r.TransactionID,
		CreatedAt:     r.CreatedAt,
		AmountMinor:   r.AmountMinor,
		Currency:      r.Currency,
		Description:   r.Description,
		MerchantName:  r.MerchantName,
		MerchantKey:   r.MerchantKey,
		CategoryKey:   r.CategoryKey,
		CategoryLabel: r.CategoryLabel,
		Bucket:        r.Bucket,
	}
	if r.Metadata.Valid {
		var meta map[string]string
		if err := nullJSONToValue(r.Metadata, &meta); err != nil {
			return tx, fmt.Errorf("ledger row %s: metadata: %w", r.TransactionID, err)
		}
		tx.Metadata = meta
	}
	return tx, nil
}

func (s *Store) UpsertLedger(ctx context.Context, ownerID string, rows []domain.LedgerTransaction) (int, error) {
	if len(rows) > 0 {
		now := time.Now().UTC()
		inserter := s.table(ledgerTable).Inserter()
		batch := store.NewBatch(store.DefaultBatchSize, func(ctx context.Context, chunk []*ledgerRow) error {
			return inserter.Put(ctx, chunk)
		})
		for _, tx := range rows {
			if tx.TransactionID == "" {
				continue
			}
			row, err := toLedgerRow(ownerID, tx, now)
			if err != nil {
				return 0, fmt.Errorf("UpsertLedger: %w", err)
			}
			if err := batch.Add(ctx, row); err != nil {
				return 0, fmt.Errorf("UpsertLedger: inserting rows: %w", err)
			}
		}
		if err := batch.Flush(ctx); err != nil {
			return 0, fmt.Errorf("UpsertLedger: inserting rows: %w", err)
		}
	}

	q := s.client.Query(fmt.Sprintf(`
		SELECT COUNT(DISTINCT transaction_id)
		FROM %s
		WHERE owner_id = @owner_id
	`, s.qualified(ledgerTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "owner_id", Value: ownerID}}

	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("UpsertLedger: count: %w", err)
	}
	var row []bigquery.Value
	if err := it.Next(&row); err != nil {
		return 0, fmt.Errorf("UpsertLedger: count next: %w", err)
	}
	count, _ := row[0].(int64)
	return int(count), nil
}

func (s *Store) ListLedger(ctx context.Context, ownerID string) ([]domain.LedgerTransaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s
		WHERE owner_id = @owner_id
		QUALIFY ROW_NUMBER() OVER (PARTITION BY transaction_id ORDER BY loaded_ts DESC) = 1
		ORDER BY created_at, transaction_id
	`, s.qualified(ledgerTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "owner_id", Value: ownerID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListLedger: query read: %w", err)
	}

	var out []domain.LedgerTransaction
	for {
		var r ledgerRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListLedger: iter next: %w", err)
		}
		tx, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("ListLedger: %w", err)
		}
		out = append(out, tx)
	}
	return out, nil
}
