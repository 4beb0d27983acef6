package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/ledgerkit/finrecon/internal/domain"
	"github.com/ledgerkit/finrecon/internal/store"
)

type externalRow struct {
	OwnerID    string `bigquery:"owner_id"`    // REQUIRED
	ExternalID string `bigquery:"external_id"` // REQUIRED

	Source      string              `bigquery:"source"`       // REQUIRED
	ExternalRef bigquery.NullString `bigquery:"external_ref"` // NULLABLE

	PostedAt   time.Time  `bigquery:"posted_at"`   // REQUIRED TIMESTAMP
	PostedDate civil.Date `bigquery:"posted_date"` // REQUIRED DATE (partition column)

	AmountMinor int64  `bigquery:"amount_minor"` // REQUIRED
	Currency    string `bigquery:"currency"`     // REQUIRED

	Description  string `bigquery:"description"`
	MerchantName string `bigquery:"merchant_name"`
	MerchantKey  string `bigquery:"merchant_key"`

	RawRow []string `bigquery:"raw_row"` // REPEATED STRING

	MatchedLedgerID bigquery.NullString  `bigquery:"matched_ledger_id"`
	MatchConfidence bigquery.NullFloat64 `bigquery:"match_confidence"`

	LoadedTS time.Time `bigquery:"loaded_ts"` // REQUIRED
}

var externalSchema = mustInferSchema(externalRow{})

// Save implements bigquery.ValueSaver. The insert id is the owner-scoped
// deterministic row id, so the streaming API drops same-batch duplicates.
func (r *externalRow) Save() (map[string]bigquery.Value, string, error) {
	saver := bigquery.StructSaver{Schema: externalSchema, InsertID: r.OwnerID + "|" + r.ExternalID, Struct: r}
	return saver.Save()
}

func mustInferSchema(st any) bigquery.Schema {
	schema, err := bigquery.InferSchema(st)
	if err != nil {
		panic(err)
	}
	return schema
}

func toExternalRow(ownerID string, tx domain.ExternalTransaction, loadedTS time.Time) *externalRow {
	row := &externalRow{
		OwnerID:      ownerID,
		ExternalID:   tx.ExternalID,
		Source:       string(tx.Source),
		PostedAt:     tx.PostedAt,
		PostedDate:   civil.DateOf(tx.PostedAt),
		AmountMinor:  tx.AmountMinor,
		Currency:     tx.Currency,
		Description:  tx.Description,
		MerchantName: tx.MerchantName,
		MerchantKey:  tx.MerchantKey,
		RawRow:       tx.RawRow,
		LoadedTS:     loadedTS,
	}
	if tx.ExternalRef != "" {
		row.ExternalRef = bigquery.NullString{StringVal: tx.ExternalRef, Valid: true}
	}
	if tx.MatchedLedgerID != "" {
		row.MatchedLedgerID = bigquery.NullString{StringVal: tx.MatchedLedgerID, Valid: true}
		row.MatchConfidence = bigquery.NullFloat64{Float64: tx.MatchConfidence, Valid: true}
	}
	return row
}

func (r *externalRow) toDomain() domain.ExternalTransaction {
	return domain.ExternalTransaction{
		Source:          domain.ExternalSource(r.Source),
		ExternalID:      r.ExternalID,
		ExternalRef:     r.ExternalRef.StringVal,
		PostedAt:        r.PostedAt,
		AmountMinor:     r.AmountMinor,
		Currency:        r.Currency,
		Description:     r.Description,
		MerchantName:    r.MerchantName,
		MerchantKey:     r.MerchantKey,
		RawRow:          r.RawRow,
		MatchedLedgerID: r.MatchedLedgerID.StringVal,
		MatchConfidence: r.MatchConfidence.Float64,
	}
}

func (s *Store) UpsertExternal(ctx context.Context, ownerID string, rows []domain.ExternalTransaction) (int, error) {
	if len(rows) == 0 {
		return s.countExternal(ctx, ownerID)
	}

	now := time.Now().UTC()
	inserter := s.table(externalTable).Inserter()
	batch := store.NewBatch(store.DefaultBatchSize, func(ctx context.Context, chunk []*externalRow) error {
		return inserter.Put(ctx, chunk)
	})
	for _, tx := range rows {
		if tx.ExternalID == "" {
			continue
		}
		if err := batch.Add(ctx, toExternalRow(ownerID, tx, now)); err != nil {
			return 0, fmt.Errorf("UpsertExternal: inserting rows: %w", err)
		}
	}
	if err := batch.Flush(ctx); err != nil {
		return 0, fmt.Errorf("UpsertExternal: inserting rows: %w", err)
	}
	return s.countExternal(ctx, ownerID)
}

func (s *Store) countExternal(ctx context.Context, ownerID string) (int, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT COUNT(DISTINCT external_id)
		FROM %s
		WHERE owner_id = @owner_id
	`, s.qualified(externalTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "owner_id", Value: ownerID}}

	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("UpsertExternal: count: %w", err)
	}
	var row []bigquery.Value
	if err := it.Next(&row); err != nil {
		return 0, fmt.Errorf("UpsertExternal: count next: %w", err)
	}
	count, _ := row[0].(int64)
	return int(count), nil
}

func (s *Store) ListExternal(ctx context.Context, ownerID string, source domain.ExternalSource) ([]domain.ExternalTransaction, error) {
	var filter strings.Builder
	params := []bigquery.QueryParameter{{Name: "owner_id", Value: ownerID}}
	if source != "" {
		filter.WriteString("AND source = @source")
		params = append(params, bigquery.QueryParameter{Name: "source", Value: string(source)})
	}

	// Latest loaded row wins per external id, so a reimport with updated
	// match outcomes supersedes the older stream.
	q := s.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s
		WHERE owner_id = @owner_id %s
		QUALIFY ROW_NUMBER() OVER (PARTITION BY external_id ORDER BY loaded_ts DESC) = 1
		ORDER BY posted_at, external_id
	`, s.qualified(externalTable), filter.String()))
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListExternal: query read: %w", err)
	}

	var out []domain.ExternalTransaction
	for {
		var r externalRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListExternal: iter next: %w", err)
		}
		out = append(out, r.toDomain())
	}
	return out, nil
}
