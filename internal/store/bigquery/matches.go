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

type matchRow struct {
	OwnerID    string `bigquery:"owner_id"`
	Source     string `bigquery:"source"`
	ExternalID string `bigquery:"external_id"`

	ExternalRef         bigquery.NullString `bigquery:"external_ref"`
	ExternalDate        time.Time           `bigquery:"external_date"`
	ExternalAmountMinor int64               `bigquery:"external_amount_minor"`
	ExternalMerchant    string              `bigquery:"external_merchant"`

	LedgerTransactionID bigquery.NullString    `bigquery:"ledger_transaction_id"`
	LedgerDate          bigquery.NullTimestamp `bigquery:"ledger_date"`
	LedgerAmountMinor   bigquery.NullInt64     `bigquery:"ledger_amount_minor"`

	AmountDiffMinor    int64   `bigquery:"amount_diff_minor"`
	DateDiffDays       float64 `bigquery:"date_diff_days"`
	MerchantSimilarity float64 `bigquery:"merchant_similarity"`
	Confidence         float64 `bigquery:"confidence"`
	Status             string  `bigquery:"status"`

	// RunTS identifies one matching run; reads only see the latest run
	// per owner and source, which gives replace semantics on an
	// append-only table.
	RunTS time.Time `bigquery:"run_ts"`
}

var matchSchema = mustInferSchema(matchRow{})

func (r *matchRow) Save() (map[string]bigquery.Value, string, error) {
	insertID := fmt.Sprintf("%s|%s|%d", r.OwnerID, r.ExternalID, r.RunTS.UnixNano())
	saver := bigquery.StructSaver{Schema: matchSchema, InsertID: insertID, Struct: r}
	return saver.Save()
}

func toMatchRow(ownerID string, rec domain.MatchRecord, runTS time.Time) *matchRow {
	row := &matchRow{
		OwnerID:             ownerID,
		Source:              string(rec.Source),
		ExternalID:          rec.ExternalID,
		ExternalDate:        rec.ExternalDate,
		ExternalAmountMinor: rec.ExternalAmountMinor,
		ExternalMerchant:    rec.ExternalMerchant,
		AmountDiffMinor:     rec.AmountDiffMinor,
		DateDiffDays:        rec.DateDiffDays,
		MerchantSimilarity:  rec.MerchantSimilarity,
		Confidence:          rec.Confidence,
		Status:              string(rec.Status),
		RunTS:               runTS,
	}
	if rec.ExternalRef != "" {
		row.ExternalRef = bigquery.NullString{StringVal: rec.ExternalRef, Valid: true}
	}
	if rec.LedgerTransactionID != "" {
		row.LedgerTransactionID = bigquery.NullString{StringVal: rec.LedgerTransactionID, Valid: true}
		row.LedgerDate = bigquery.NullTimestamp{Timestamp: rec.LedgerDate, Valid: true}
		row.LedgerAmountMinor = bigquery.NullInt64{Int64: rec.LedgerAmountMinor, Valid: true}
	}
	return row
}

func (r *matchRow) toDomain() domain.MatchRecord {
	return domain.MatchRecord{
		Source:              domain.ExternalSource(r.Source),
		ExternalID:          r.ExternalID,
		ExternalRef:         r.ExternalRef.StringVal,
		ExternalDate:        r.ExternalDate,
		ExternalAmountMinor: r.ExternalAmountMinor,
		ExternalMerchant:    r.ExternalMerchant,
		LedgerTransactionID: r.LedgerTransactionID.StringVal,
		LedgerDate:          r.LedgerDate.Timestamp,
		LedgerAmountMinor:   r.LedgerAmountMinor.Int64,
		AmountDiffMinor:     r.AmountDiffMinor,
		DateDiffDays:        r.DateDiffDays,
		MerchantSimilarity:  r.MerchantSimilarity,
		Confidence:          r.Confidence,
		Status:              domain.MatchStatus(r.Status),
	}
}

func (s *Store) ReplaceMatches(ctx context.Context, ownerID string, source domain.ExternalSource, records []domain.MatchRecord) error {
	runTS := time.Now().UTC()
	inserter := s.table(matchesTable).Inserter()
	batch := store.NewBatch(store.DefaultBatchSize, func(ctx context.Context, chunk []*matchRow) error {
		return inserter.Put(ctx, chunk)
	})
	for _, rec := range records {
		if err := batch.Add(ctx, toMatchRow(ownerID, rec, runTS)); err != nil {
			return fmt.Errorf("ReplaceMatches: inserting rows: %w", err)
		}
	}
	if len(records) == 0 {
		// Marker row with no external id: an empty run still supersedes
		// the previous run's records on read.
		marker := &matchRow{OwnerID: ownerID, Source: string(source), RunTS: runTS}
		if err := batch.Add(ctx, marker); err != nil {
			return fmt.Errorf("ReplaceMatches: inserting marker: %w", err)
		}
	}
	if err := batch.Flush(ctx); err != nil {
		return fmt.Errorf("ReplaceMatches: inserting rows: %w", err)
	}
	return nil
}

func (s *Store) ListMatches(ctx context.Context, ownerID string, source domain.ExternalSource) ([]domain.MatchRecord, error) {
	filter := ""
	params := []bigquery.QueryParameter{{Name: "owner_id", Value: ownerID}}
	if source != "" {
		filter = "AND source = @source"
		params = append(params, bigquery.QueryParameter{Name: "source", Value: string(source)})
	}

	q := s.client.Query(fmt.Sprintf(`
		SELECT * EXCEPT (max_run_ts)
		FROM (
			SELECT m.*, MAX(run_ts) OVER (PARTITION BY owner_id, source) AS max_run_ts
			FROM %s m
			WHERE owner_id = @owner_id %s
		)
		WHERE run_ts = max_run_ts AND external_id != ''
		ORDER BY source, external_date, external_id
	`, s.qualified(matchesTable), filter))
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListMatches: query read: %w", err)
	}

	var out []domain.MatchRecord
	for {
		var r matchRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListMatches: iter next: %w", err)
		}
		out = append(out, r.toDomain())
	}
	return out, nil
}
