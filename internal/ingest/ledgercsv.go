package ingest

import (
	"github.com/ledgerkit/finrecon/internal/domain"
)

// Keyword lists for the domain-specific card/bank ledger export, whose
// first row is always a header.
var (
	ledgerIDNeedles       = []string{"transaction id", "transactionid"}
	ledgerDateNeedles     = []string{"date"}
	ledgerTimeNeedles     = []string{"time"}
	ledgerTypeNeedles     = []string{"type"}
	ledgerNameNeedles     = []string{"name", "merchant"}
	ledgerCategoryNeedles = []string{"category"}
	ledgerAmountNeedles   = []string{"amount"}
	ledgerCurrencyNeedles = []string{"currency"}
	ledgerLocalAmtNeedles = []string{"local amount"}
	ledgerLocalCurNeedles = []string{"local currency"}
	ledgerNotesNeedles    = []string{"notes and tags", "notes"}
	ledgerDescNeedles     = []string{"description"}
)

const ledgerNameFallbackIdx = 4

// CategoryInference resolves a category label for a row that does not
// carry an explicit one. The shared implementation is also used by the
// scheduled-sync ingestion pipeline.
type CategoryInference interface {
	InferLabel(merchantName, description, categoryKey string, amountMinor int64) string
}

// LedgerResult carries the parsed ledger rows and the count of invalid
// rows that were dropped.
type LedgerResult struct {
	Rows           []domain.LedgerTransaction
	SkippedInvalid int
}

// BuildLedgerRows normalizes a card/bank ledger CSV export into
// authoritative ledger transactions. Both a date and an amount column must
// be resolvable, otherwise the whole export is rejected as an empty result.
// Separate date and time columns are combined for sub-day ordering, and a
// local-currency amount column backs up an unparseable primary amount.
func BuildLedgerRows(csvText string, infer CategoryInference) LedgerResult {
	rows := SplitRows(csvText)
	if len(rows) == 0 {
		return LedgerResult{}
	}

	header := normalizeRow(rows[0])
	idIdx := columnIndex(header, ledgerIDNeedles, -1)
	dateIdx := columnIndex(header, ledgerDateNeedles, -1)
	timeIdx := columnIndex(header, ledgerTimeNeedles, -1)
	typeIdx := columnIndex(header, ledgerTypeNeedles, -1)
	nameIdx := columnIndex(header, ledgerNameNeedles, ledgerNameFallbackIdx)
	categoryIdx := columnIndex(header, ledgerCategoryNeedles, -1)
	amountIdx := columnIndex(header, ledgerAmountNeedles, -1)
	currencyIdx := columnIndex(header, ledgerCurrencyNeedles, -1)
	localAmtIdx := columnIndex(header, ledgerLocalAmtNeedles, -1)
	localCurIdx := columnIndex(header, ledgerLocalCurNeedles, -1)
	notesIdx := columnIndex(header, ledgerNotesNeedles, -1)
	descIdx := columnIndex(header, ledgerDescNeedles, -1)

	if dateIdx < 0 || amountIdx < 0 {
		return LedgerResult{}
	}

	result := LedgerResult{}
	for index, row := range rows[1:] {
		if len(row) == 0 {
			result.SkippedInvalid++
			continue
		}

		dateText := cellAt(row, dateIdx)
		timeText := cellAt(row, timeIdx)
		createdAt, ok := ParseDate(joinDateTime(dateText, timeText))
		if !ok {
			createdAt, ok = ParseDate(dateText)
		}
		if !ok {
			result.SkippedInvalid++
			continue
		}

		amountMinor, ok := ParseMoneyMinor(cellAt(row, amountIdx))
		if !ok {
			amountMinor, ok = ParseMoneyMinor(cellAt(row, localAmtIdx))
		}
		if !ok || amountMinor == 0 {
			result.SkippedInvalid++
			continue
		}

		merchantName := cellAt(row, nameIdx)
		description := cellAt(row, descIdx)
		categoryLabel := cellAt(row, categoryIdx)
		categoryKey := CategoryKey(categoryLabel)
		currency := cellAt(row, currencyIdx)
		if currency == "" {
			currency = "GBP"
		}

		transactionID := cellAt(row, idIdx)
		if transactionID == "" {
			transactionID = LedgerFallbackID(createdAt, amountMinor, merchantName, description, index)
		}

		merchant := firstNonEmpty(merchantName, description, categoryLabel, "Transaction")
		if categoryLabel == "" && infer != nil {
			categoryLabel = infer.InferLabel(merchant, description, categoryKey, amountMinor)
		}

		metadata := map[string]string{"source": "ledger_csv"}
		if t := cellAt(row, typeIdx); t != "" {
			metadata["csv_type"] = t
		}
		if n := cellAt(row, notesIdx); n != "" {
			metadata["csv_notes"] = n
		}
		if lc := cellAt(row, localCurIdx); lc != "" {
			metadata["csv_local_currency"] = lc
		}

		result.Rows = append(result.Rows, domain.LedgerTransaction{
			TransactionID: transactionID,
			CreatedAt:     createdAt,
			AmountMinor:   amountMinor,
			Currency:      currency,
			Description:   firstNonEmpty(description, merchantName, categoryLabel, "Transaction"),
			MerchantName:  merchant,
			MerchantKey:   MerchantKey(merchant),
			CategoryKey:   categoryKey,
			CategoryLabel: categoryLabel,
			Metadata:      metadata,
		})
	}
	return result
}

func joinDateTime(date, clock string) string {
	if clock == "" {
		return date
	}
	return date + " " + clock
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
