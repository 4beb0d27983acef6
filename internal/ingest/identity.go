package ingest

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ledgerkit/finrecon/internal/domain"
)

// Record identity is a pure function of identity-defining fields, so
// reimporting identical input can never create duplicates. The digest
// (sha1 over a canonical field concatenation) only needs to be stable and
// collision-resistant at personal-finance volumes, not cryptographic.

const (
	externalIDLen = 24
	ledgerIDLen   = 20

	// ledgerIDPrefix tags synthesized ledger ids so they cannot collide
	// with externally supplied transaction ids.
	ledgerIDPrefix = "csv_"
)

func fingerprintHash(fingerprint string, length int) string {
	sum := sha1.Sum([]byte(fingerprint))
	return hex.EncodeToString(sum[:])[:length]
}

// ExternalID derives the deterministic id of an external statement row.
// When the export carries its own reference the identity is source+ref;
// otherwise it falls back to the (date, amount, description, rowIndex)
// tuple.
func ExternalID(source domain.ExternalSource, externalRef string, postedAt time.Time, amountMinor int64, description string, rowIndex int) string {
	ref := externalRef
	if ref == "" {
		ref = fmt.Sprintf("%d|%d|%s|%d", postedAt.UnixMilli(), amountMinor, description, rowIndex)
	}
	return fingerprintHash(fmt.Sprintf("%s|%s", source, ref), externalIDLen)
}

// LedgerFallbackID derives a stable id for a ledger CSV row that carries
// no transaction id of its own.
func LedgerFallbackID(createdAt time.Time, amountMinor int64, merchantName, description string, rowIndex int) string {
	fingerprint := fmt.Sprintf("%d|%d|%s|%s|%d",
		createdAt.UnixMilli(), amountMinor, merchantName, description, rowIndex)
	return ledgerIDPrefix + fingerprintHash(fingerprint, ledgerIDLen)
}
