package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// KeyConfig selects which fields participate in the dedup fingerprint.
// Date, amount, currency, and the normalized description are always
// included; the card suffix is a deployment knob because some banks drop
// it from re-exports of the same period.
type KeyConfig struct {
	WithCard bool
}

// DedupKey returns the deterministic fingerprint of a statement row.
// Rows with equal keys are the same transaction: the storage layer
// enforces uniqueness and the importer treats collisions as duplicates.
func DedupKey(cfg KeyConfig, date time.Time, amount decimal.Decimal, currency, description string, cardLast4 *string) string {
	parts := []string{
		date.Format("2006-01-02"),
		amount.StringFixed(2),
		strings.ToUpper(currency),
		canonicalDescription(description),
	}
	if cfg.WithCard && cardLast4 != nil {
		parts = append(parts, *cardLast4)
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// canonicalDescription lowercases and collapses whitespace so cosmetic
// export differences do not defeat deduplication.
func canonicalDescription(description string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(description)), " ")
}
