// Package ledger persists candidate records as ledger entries.
//
// The Store interface has two write paths. Records carrying a transaction
// id are upserted with monotonic enrichment: a stored field is only
// replaced by a present value, never cleared. Records without an id are
// appended. The Merger drives a Store with a bounded worker pool.
package ledger

import (
	"context"
	stderrors "errors"
	"regexp"

	"lottery-reconciliation-service/internal/models"
)

const (
	// DefaultRecentLimit is used when a caller asks for zero entries.
	DefaultRecentLimit = 20
	// MaxListLimit caps every listing.
	MaxListLimit = 50
)

// ErrRowRejected marks a write the store refused because of the row's
// own data. The merger counts these as failed and carries on.
var ErrRowRejected = stderrors.New("row rejected by store")

var phonePattern = regexp.MustCompile(`^\d{8}$`)

// Store is the persistence boundary used by the merger and read paths.
type Store interface {
	// UpsertByTxID inserts rec or enriches the row with the same tx id.
	// It reports whether a row was affected.
	UpsertByTxID(ctx context.Context, rec *models.CandidateRecord) (bool, error)

	// Append always inserts a new row.
	Append(ctx context.Context, rec *models.CandidateRecord) error

	// Recent lists the newest entries, occurred_at first with unknown
	// instants last, then most recently imported.
	Recent(ctx context.Context, limit int) ([]*models.LedgerEntry, error)

	// ByPhone lists entries for one phone in Recent order.
	ByPhone(ctx context.Context, phone string, limit int) ([]*models.LedgerEntry, error)
}

// NormalizeLimit clamps a requested listing size to 1..MaxListLimit,
// treating non-positive values as DefaultRecentLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// ValidPhone reports whether phone is a full 8-digit subscriber number
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// MaskPhone hides the last four digits for public listings. Anything but
// an 8-digit phone yields "".
func MaskPhone(phone string) string {
	if !ValidPhone(phone) {
		return ""
	}
	return phone[:4] + "****"
}
