// Package reference builds the human-readable identifiers that tie payments
// and ledger rows together.
package reference

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	randomLength = 9
	RefundPrefix = "REFUND"
)

// New builds "<PREFIX>-<epoch millis>-<random alnum>".
func New(prefix string, now time.Time) string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return strings.ToUpper(strings.TrimSpace(prefix)) + "-" +
		strconv.FormatInt(now.UnixMilli(), 10) + "-" +
		random[:randomLength]
}

// Derived returns "<PREFIX>-<id>" for records that already carry their own
// identifier.
func Derived(prefix, id string) string {
	return strings.ToUpper(strings.TrimSpace(prefix)) + "-" + strings.TrimSpace(id)
}

// Refund returns the ledger reference of the sequence-th refund of the entry
// referenced by original: REFUND-<original> first, then REFUND-<original>-<n>.
func Refund(original string, sequence int) string {
	ref := RefundPrefix + "-" + strings.TrimSpace(original)
	if sequence > 1 {
		ref += "-" + strconv.Itoa(sequence)
	}
	return ref
}
