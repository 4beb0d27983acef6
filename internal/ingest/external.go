package ingest

import (
	"fmt"
	"strings"

	"github.com/ledgerkit/finrecon/internal/domain"
)

// Keyword lists used to resolve the generic external statement layout.
var (
	dateNeedles      = []string{"date", "posted", "booking", "transaction"}
	descNeedles      = []string{"description", "details", "merchant", "name", "memo"}
	debitNeedles     = []string{"debit", "withdrawal", "out"}
	creditNeedles    = []string{"credit", "deposit", "in"}
	amountNeedles    = []string{"amount", "value"}
	referenceNeedles = []string{"id", "reference", "txn", "transaction id", "unique"}
)

// merchantSeparators cut the merchant name out of a statement description.
var merchantSeparators = "-*|"

// ExternalResult carries the parsed rows of one external import together
// with the count of rows dropped as unparseable.
type ExternalResult struct {
	Rows    []domain.ExternalTransaction
	Skipped int
}

// BuildExternalRows normalizes a generic external export (bank, PayPal,
// other) into transaction rows. Rows without a parseable date or with a
// zero/unparseable amount are dropped and counted, never raised as errors.
func BuildExternalRows(csvText string, source domain.ExternalSource) ExternalResult {
	rows := SplitRows(csvText)
	if len(rows) == 0 {
		return ExternalResult{}
	}

	firstHeader := normalizeRow(rows[0])
	var header []string
	dataRows := rows
	if looksLikeHeader(firstHeader) {
		header = firstHeader
		dataRows = rows[1:]
	}

	dateIdx := columnIndex(header, dateNeedles, -1)
	descIdx := columnIndex(header, descNeedles, fallbackDescriptionIdx)
	debitIdx := columnIndex(header, debitNeedles, -1)
	creditIdx := columnIndex(header, creditNeedles, -1)
	amountIdx := columnIndex(header, amountNeedles, fallbackAmountIdx)
	refIdx := columnIndex(header, referenceNeedles, -1)

	result := ExternalResult{}
	for index, row := range dataRows {
		if len(row) == 0 {
			result.Skipped++
			continue
		}

		dateRaw := cellAt(row, dateIdx)
		if dateIdx < 0 {
			dateRaw = cellAt(row, fallbackDateIdx)
		}
		postedAt, ok := ParseDate(dateRaw)
		if !ok {
			result.Skipped++
			continue
		}

		amountMinor, ok := resolveAmount(row, debitIdx, creditIdx, amountIdx)
		if !ok || amountMinor == 0 {
			result.Skipped++
			continue
		}

		description := cellAt(row, descIdx)
		if description == "" {
			description = cellAt(row, 1)
		}
		if description == "" {
			description = cellAt(row, 0)
		}

		amountMinor = correctSign(source, amountMinor, description)

		merchantName := merchantFromDescription(description)
		if merchantName == "" {
			merchantName = fmt.Sprintf("%s-%d", source, index+1)
		}

		externalRef := cellAt(row, refIdx)
		tx := domain.ExternalTransaction{
			Source:       source,
			ExternalID:   ExternalID(source, externalRef, postedAt, amountMinor, description, index),
			ExternalRef:  externalRef,
			PostedAt:     postedAt,
			AmountMinor:  amountMinor,
			Currency:     "GBP",
			Description:  description,
			MerchantName: merchantName,
			MerchantKey:  MerchantKey(merchantName),
			RawRow:       row,
		}
		if tx.Description == "" {
			tx.Description = merchantName
		}
		result.Rows = append(result.Rows, tx)
	}
	return result
}

// resolveAmount applies the amount precedence: an explicit debit column
// (negated) beats an explicit credit column (positive) beats the single
// amount column taken raw.
func resolveAmount(row []string, debitIdx, creditIdx, amountIdx int) (int64, bool) {
	if debitIdx >= 0 {
		if v, ok := ParseMoneyMinor(cellAt(row, debitIdx)); ok && v != 0 {
			if v < 0 {
				return v, true
			}
			return -v, true
		}
	}
	if creditIdx >= 0 {
		if v, ok := ParseMoneyMinor(cellAt(row, creditIdx)); ok && v != 0 {
			if v < 0 {
				return -v, true
			}
			return v, true
		}
	}
	if amountIdx >= 0 {
		if v, ok := ParseMoneyMinor(cellAt(row, amountIdx)); ok {
			return v, true
		}
	}
	return 0, false
}

// merchantFromDescription keeps the text before the first '-', '*' or '|'.
func merchantFromDescription(description string) string {
	if idx := strings.IndexAny(description, merchantSeparators); idx >= 0 {
		if head := strings.TrimSpace(description[:idx]); head != "" {
			return head
		}
	}
	return strings.TrimSpace(description)
}
