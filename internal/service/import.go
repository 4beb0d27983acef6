package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerkit/finrecon/internal/domain"
	"github.com/ledgerkit/finrecon/internal/ingest"
	"github.com/ledgerkit/finrecon/internal/logger"
)

// sampleSize caps the preview rows returned by import operations.
const sampleSize = 5

// ImportExternalResult reports one external statement import.
type ImportExternalResult struct {
	Source   domain.ExternalSource
	Parsed   int
	Upserted int
	Skipped  int
	// TotalStored is the owner's distinct external row count after the
	// import; unchanged totals across reimports signal idempotence.
	TotalStored int
	Sample      []domain.ExternalTransaction
}

// ImportExternalCSV normalizes and stores one external statement export.
// Deterministic row ids make reimporting the same file a no-op.
func (s *Service) ImportExternalCSV(ctx context.Context, ownerID, sourceRaw, csvText string) (*ImportExternalResult, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}
	if strings.TrimSpace(csvText) == "" {
		return nil, ErrEmptyCSV
	}

	source := domain.NormalizeSource(sourceRaw)
	parsed := ingest.BuildExternalRows(csvText, source)

	total, err := s.store.UpsertExternal(ctx, ownerID, parsed.Rows)
	if err != nil {
		return nil, fmt.Errorf("ImportExternalCSV: upsert: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("owner", ownerID).
		Str("source", string(source)).
		Int("parsed", len(parsed.Rows)).
		Int("skipped", parsed.Skipped).
		Int("total_stored", total).
		Msg("external csv imported")

	return &ImportExternalResult{
		Source:      source,
		Parsed:      len(parsed.Rows),
		Upserted:    len(parsed.Rows),
		Skipped:     parsed.Skipped,
		TotalStored: total,
		Sample:      sampleExternal(parsed.Rows),
	}, nil
}

// ImportLedgerResult reports one ledger CSV import.
type ImportLedgerResult struct {
	Parsed          int
	Inserted        int
	SkippedExisting int
	SkippedInvalid  int
	CoverageStart   *time.Time
	CoverageEnd     *time.Time
	Sample          []domain.LedgerTransaction
}

// ImportLedgerCSV stores new ledger rows from a card/bank CSV export,
// skipping transaction ids already present.
func (s *Service) ImportLedgerCSV(ctx context.Context, ownerID, csvText string) (*ImportLedgerResult, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}
	if strings.TrimSpace(csvText) == "" {
		return nil, ErrEmptyCSV
	}

	taxonomy, err := s.taxonomy(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ImportLedgerCSV: taxonomy: %w", err)
	}
	parsed := ingest.BuildLedgerRows(csvText, newTaxonomyInference(taxonomy))

	existing, err := s.store.ListLedger(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ImportLedgerCSV: list ledger: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, tx := range existing {
		known[tx.TransactionID] = struct{}{}
	}

	result := &ImportLedgerResult{
		Parsed:         len(parsed.Rows),
		SkippedInvalid: parsed.SkippedInvalid,
	}
	fresh := make([]domain.LedgerTransaction, 0, len(parsed.Rows))
	for _, tx := range parsed.Rows {
		if _, ok := known[tx.TransactionID]; ok {
			result.SkippedExisting++
			continue
		}
		fresh = append(fresh, tx)
		if result.CoverageStart == nil || tx.CreatedAt.Before(*result.CoverageStart) {
			at := tx.CreatedAt
			result.CoverageStart = &at
		}
		if result.CoverageEnd == nil || tx.CreatedAt.After(*result.CoverageEnd) {
			at := tx.CreatedAt
			result.CoverageEnd = &at
		}
	}

	if _, err := s.store.UpsertLedger(ctx, ownerID, fresh); err != nil {
		return nil, fmt.Errorf("ImportLedgerCSV: upsert: %w", err)
	}
	result.Inserted = len(fresh)
	result.Sample = sampleLedger(fresh)

	log := logger.FromContext(ctx)
	log.Info().
		Str("owner", ownerID).
		Int("parsed", result.Parsed).
		Int("inserted", result.Inserted).
		Int("skipped_existing", result.SkippedExisting).
		Int("skipped_invalid", result.SkippedInvalid).
		Msg("ledger csv imported")

	return result, nil
}

func sampleExternal(rows []domain.ExternalTransaction) []domain.ExternalTransaction {
	if len(rows) > sampleSize {
		rows = rows[:sampleSize]
	}
	out := make([]domain.ExternalTransaction, len(rows))
	copy(out, rows)
	return out
}

func sampleLedger(rows []domain.LedgerTransaction) []domain.LedgerTransaction {
	if len(rows) > sampleSize {
		rows = rows[:sampleSize]
	}
	out := make([]domain.LedgerTransaction, len(rows))
	copy(out, rows)
	return out
}
