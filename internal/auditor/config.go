// Package auditor classifies parsed statement records against an
// expected ticket fee so an operator can see who paid the right amount.
//
// Auditing never touches storage. It runs in three stages:
//  1. Optional deduplication by phone
//  2. Per-record classification against the fee
//  3. Counting and the optional matched-only filter
//
// Example usage:
//
//	fee := auditor.ParseFee("50,000")
//	report := auditor.Audit(records, auditor.Options{Fee: fee, Dedupe: auditor.DedupeLatest})
package auditor

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"lottery-reconciliation-service/internal/parsers"
)

// DedupeMode selects how repeated phones are collapsed before classification.
type DedupeMode int

const (
	// DedupeOff keeps every record.
	DedupeOff DedupeMode = iota

	// DedupeLatest keeps the last record seen for each phone.
	DedupeLatest
)

// String returns the flag spelling of the mode
func (m DedupeMode) String() string {
	switch m {
	case DedupeOff:
		return "off"
	case DedupeLatest:
		return "latest"
	default:
		return "unknown"
	}
}

// ParseDedupeMode accepts "off", "latest" or "" (off)
func ParseDedupeMode(s string) (DedupeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return DedupeOff, nil
	case "latest":
		return DedupeLatest, nil
	default:
		return DedupeOff, fmt.Errorf("unknown dedupe mode %q (expected off or latest)", s)
	}
}

// amountTolerance is the absolute difference under which an amount
// counts as equal to the fee.
var amountTolerance = decimal.New(1, -4)

// Options controls one Audit call.
type Options struct {
	// Fee is the expected ticket price. Without one every record that
	// has a phone is Matched.
	Fee decimal.NullDecimal `json:"fee"`

	Dedupe DedupeMode `json:"dedupe"`

	// OnlyMatched drops non-matched entries from the output. Counts are
	// unaffected.
	OnlyMatched bool `json:"only_matched"`
}

// ParseFee reads operator fee input the way statement amounts are read.
// Only a value above zero is a fee; anything else means no fee filter.
func ParseFee(s string) decimal.NullDecimal {
	v, ok := parsers.ParseAmount(s)
	if !ok || !v.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v)
}
