package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"lottery-reconciliation-service/internal/models"
)

// MemoryStore is a Store kept in process memory, used for dry runs and
// tests. It follows the same enrichment rules as PostgresStore.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*models.LedgerEntry
	byTxID  map[string]*models.LedgerEntry
	nextID  int64
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory ledger
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byTxID: make(map[string]*models.LedgerEntry),
		now:    time.Now,
	}
}

// UpsertByTxID implements Store.
func (s *MemoryStore) UpsertByTxID(ctx context.Context, rec *models.CandidateRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if rec.TxID == nil {
		return false, fmt.Errorf("upsert requires a transaction id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byTxID[*rec.TxID]
	if !ok {
		entry := s.newEntry(rec)
		s.byTxID[*rec.TxID] = entry
		return true, nil
	}

	if rec.OccurredAt != nil {
		t := rec.OccurredAt.UTC()
		existing.OccurredAt = &t
	}
	if rec.Amount.Valid {
		existing.Amount = rec.Amount
	}
	if rec.Phone != nil {
		existing.Phone = copyString(rec.Phone)
	}
	if rec.Description != "" {
		existing.Description = rec.Description
	}
	if rec.LotteryID != nil {
		existing.LotteryID = copyString(rec.LotteryID)
	}
	existing.Raw = copyRow(rec.Raw)
	existing.ImportedAt = s.now().UTC()
	return true, nil
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, rec *models.CandidateRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.newEntry(rec)
	entry.TxID = nil
	return nil
}

// Recent implements Store.
func (s *MemoryStore) Recent(ctx context.Context, limit int) ([]*models.LedgerEntry, error) {
	return s.list(ctx, func(*models.LedgerEntry) bool { return true }, limit)
}

// ByPhone implements Store.
func (s *MemoryStore) ByPhone(ctx context.Context, phone string, limit int) ([]*models.LedgerEntry, error) {
	if !ValidPhone(phone) {
		return nil, fmt.Errorf("phone must be exactly 8 digits")
	}
	return s.list(ctx, func(e *models.LedgerEntry) bool {
		return e.Phone != nil && *e.Phone == phone
	}, limit)
}

// Len returns the number of stored entries
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get returns a copy of the entry stored under txID
func (s *MemoryStore) Get(txID string) (*models.LedgerEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byTxID[txID]
	if !ok {
		return nil, false
	}
	return copyEntry(e), true
}

func (s *MemoryStore) list(ctx context.Context, keep func(*models.LedgerEntry) bool, limit int) ([]*models.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var out []*models.LedgerEntry
	for _, e := range s.entries {
		if keep(e) {
			out = append(out, copyEntry(e))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.OccurredAt != nil && b.OccurredAt == nil:
			return true
		case a.OccurredAt == nil && b.OccurredAt != nil:
			return false
		case a.OccurredAt != nil && !a.OccurredAt.Equal(*b.OccurredAt):
			return a.OccurredAt.After(*b.OccurredAt)
		case !a.ImportedAt.Equal(b.ImportedAt):
			return a.ImportedAt.After(b.ImportedAt)
		default:
			return a.ID > b.ID
		}
	})

	if limit = NormalizeLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// newEntry must be called with the write lock held.
func (s *MemoryStore) newEntry(rec *models.CandidateRecord) *models.LedgerEntry {
	s.nextID++
	entry := &models.LedgerEntry{
		ID:          s.nextID,
		TxID:        copyString(rec.TxID),
		Amount:      rec.Amount,
		Phone:       copyString(rec.Phone),
		Description: rec.Description,
		LotteryID:   copyString(rec.LotteryID),
		Raw:         copyRow(rec.Raw),
		ImportedAt:  s.now().UTC(),
	}
	if rec.OccurredAt != nil {
		t := rec.OccurredAt.UTC()
		entry.OccurredAt = &t
	}
	s.entries = append(s.entries, entry)
	return entry
}

func copyEntry(e *models.LedgerEntry) *models.LedgerEntry {
	c := *e
	c.TxID = copyString(e.TxID)
	c.Phone = copyString(e.Phone)
	c.LotteryID = copyString(e.LotteryID)
	c.Raw = copyRow(e.Raw)
	if e.OccurredAt != nil {
		t := *e.OccurredAt
		c.OccurredAt = &t
	}
	return &c
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyRow(r models.Row) models.Row {
	out := make(models.Row, len(r))
	copy(out, r)
	return out
}
