package analytics

import (
	"sort"

	"github.com/ledgerkit/finrecon/internal/domain"
)

// DebtService decomposes one external source's statement activity into a
// per-month interest/principal breakdown.
//
// Statement rows are classified with the rules in rules.go. Ledger
// payments toward the source are negative ledger rows whose text matches
// the source identifier. When the statement does not itemize interest,
// the excess of ledger payments over statement spend is attributed to
// interest; the estimate never goes below any itemized interest.
func DebtService(source domain.ExternalSource, external []domain.ExternalTransaction, ledger []domain.LedgerTransaction) domain.DebtServiceReport {
	months := map[string]*domain.DebtServiceEntry{}
	entry := func(month string) *domain.DebtServiceEntry {
		e, ok := months[month]
		if !ok {
			e = &domain.DebtServiceEntry{Month: month}
			months[month] = e
		}
		return e
	}

	for _, tx := range external {
		if tx.Source != source || tx.PostedAt.IsZero() || tx.AmountMinor == 0 {
			continue
		}
		e := entry(domain.MonthKey(tx.PostedAt))
		abs := absMinor(tx.AmountMinor)
		switch ClassifyStatementRow(tx.Description, tx.AmountMinor) {
		case ClassInterest:
			e.ExplicitInterestMinor += abs
		case ClassRefund:
			e.RefundsMinor += abs
		case ClassPayment:
			e.StatementPaymentsMinor += abs
		case ClassSpend:
			e.StatementSpendMinor += abs
		}
	}

	identifier := SourceIdentifier(source)
	for _, tx := range ledger {
		if tx.AmountMinor >= 0 || tx.CreatedAt.IsZero() {
			continue
		}
		if !identifier.MatchString(tx.MerchantName) && !identifier.MatchString(tx.Description) {
			continue
		}
		entry(domain.MonthKey(tx.CreatedAt)).LedgerPaymentsMinor += absMinor(tx.AmountMinor)
	}

	report := domain.DebtServiceReport{Source: source}
	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		e := months[k]

		impliedInterest := e.LedgerPaymentsMinor - e.StatementSpendMinor
		if impliedInterest < 0 {
			impliedInterest = 0
		}
		e.EstimatedInterestMinor = max(e.ExplicitInterestMinor, impliedInterest)
		e.PrincipalRepaymentMinor = e.LedgerPaymentsMinor - e.EstimatedInterestMinor
		if e.PrincipalRepaymentMinor < 0 {
			e.PrincipalRepaymentMinor = 0
		}

		report.PerMonth = append(report.PerMonth, *e)
		report.Totals.StatementSpendMinor += e.StatementSpendMinor
		report.Totals.StatementPaymentsMinor += e.StatementPaymentsMinor
		report.Totals.ExplicitInterestMinor += e.ExplicitInterestMinor
		report.Totals.RefundsMinor += e.RefundsMinor
		report.Totals.LedgerPaymentsMinor += e.LedgerPaymentsMinor
		report.Totals.EstimatedInterestMinor += e.EstimatedInterestMinor
		report.Totals.PrincipalRepaymentMinor += e.PrincipalRepaymentMinor
	}
	return report
}

func absMinor(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
