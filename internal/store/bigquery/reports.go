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

type debtServiceRow struct {
	OwnerID string `bigquery:"owner_id"`
	Source  string `bigquery:"source"`
	Month   string `bigquery:"month"`

	StatementSpendMinor    int64 `bigquery:"statement_spend_minor"`
	StatementPaymentsMinor int64 `bigquery:"statement_payments_minor"`
	ExplicitInterestMinor  int64 `bigquery:"explicit_interest_minor"`
	RefundsMinor           int64 `bigquery:"refunds_minor"`
	LedgerPaymentsMinor    int64 `bigquery:"ledger_payments_minor"`

	EstimatedInterestMinor  int64 `bigquery:"estimated_interest_minor"`
	PrincipalRepaymentMinor int64 `bigquery:"principal_repayment_minor"`

	ComputedTS time.Time `bigquery:"computed_ts"`
}

var debtServiceSchema = mustInferSchema(debtServiceRow{})

func (r *debtServiceRow) Save() (map[string]bigquery.Value, string, error) {
	insertID := fmt.Sprintf("%s|%s|%s|%d", r.OwnerID, r.Source, r.Month, r.ComputedTS.UnixNano())
	saver := bigquery.StructSaver{Schema: debtServiceSchema, InsertID: insertID, Struct: r}
	return saver.Save()
}

func (s *Store) SaveDebtService(ctx context.Context, ownerID string, report domain.DebtServiceReport) error {
	computedTS := time.Now().UTC()
	rows := make([]*debtServiceRow, 0, len(report.PerMonth))
	for _, e := range report.PerMonth {
		rows = append(rows, &debtServiceRow{
			OwnerID:                 ownerID,
			Source:                  string(report.Source),
			Month:                   e.Month,
			StatementSpendMinor:     e.StatementSpendMinor,
			StatementPaymentsMinor:  e.StatementPaymentsMinor,
			ExplicitInterestMinor:   e.ExplicitInterestMinor,
			RefundsMinor:            e.RefundsMinor,
			LedgerPaymentsMinor:     e.LedgerPaymentsMinor,
			EstimatedInterestMinor:  e.EstimatedInterestMinor,
			PrincipalRepaymentMinor: e.PrincipalRepaymentMinor,
			ComputedTS:              computedTS,
		})
	}
	if len(rows) == 0 {
		// A run over an empty statement set still records its marker
		// month, so readers can tell "computed, nothing there" from
		// "never computed".
		rows = append(rows, &debtServiceRow{
			OwnerID: ownerID, Source: string(report.Source), ComputedTS: computedTS,
		})
	}

	if err := s.table(debtServiceTable).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("SaveDebtService: inserting rows: %w", err)
	}
	return nil
}

func (s *Store) DebtService(ctx context.Context, ownerID string, source domain.ExternalSource) (*domain.DebtServiceReport, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT * EXCEPT (max_computed_ts)
		FROM (
			SELECT d.*, MAX(computed_ts) OVER () AS max_computed_ts
			FROM %s d
			WHERE owner_id = @owner_id AND source = @source
		)
		WHERE computed_ts = max_computed_ts
		ORDER BY month
	`, s.qualified(debtServiceTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "owner_id", Value: ownerID},
		{Name: "source", Value: string(source)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("DebtService: query read: %w", err)
	}

	report := &domain.DebtServiceReport{Source: source}
	found := false
	for {
		var r debtServiceRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("DebtService: iter next: %w", err)
		}
		found = true
		if r.Month == "" {
			continue
		}
		entry := domain.DebtServiceEntry{
			Month:                   r.Month,
			StatementSpendMinor:     r.StatementSpendMinor,
			StatementPaymentsMinor:  r.StatementPaymentsMinor,
			ExplicitInterestMinor:   r.ExplicitInterestMinor,
			RefundsMinor:            r.RefundsMinor,
			LedgerPaymentsMinor:     r.LedgerPaymentsMinor,
			EstimatedInterestMinor:  r.EstimatedInterestMinor,
			PrincipalRepaymentMinor: r.PrincipalRepaymentMinor,
		}
		report.PerMonth = append(report.PerMonth, entry)
		report.Totals.StatementSpendMinor += entry.StatementSpendMinor
		report.Totals.StatementPaymentsMinor += entry.StatementPaymentsMinor
		report.Totals.ExplicitInterestMinor += entry.ExplicitInterestMinor
		report.Totals.RefundsMinor += entry.RefundsMinor
		report.Totals.LedgerPaymentsMinor += entry.LedgerPaymentsMinor
		report.Totals.EstimatedInterestMinor += entry.EstimatedInterestMinor
		report.Totals.PrincipalRepaymentMinor += entry.PrincipalRepaymentMinor
	}
	if !found {
		return nil, store.ErrNotFound
	}
	return report, nil
}
