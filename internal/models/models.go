package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is how instants are rendered at the engine boundary.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

var phonePattern = regexp.MustCompile(`^\d{8}$`)

// Row is one tokenized statement line: trimmed cells, at least one.
type Row []string

// Joined returns the cells joined by single spaces
func (r Row) Joined() string {
	return strings.Join(r, " ")
}

// Classification is the audit verdict for one record
type Classification string

const (
	ClassificationMatched     Classification = "Matched"
	ClassificationWrongAmount Classification = "Wrong amount"
	ClassificationUnmatched   Classification = "Unmatched"
)

// String returns the display label
func (c Classification) String() string {
	return string(c)
}

// IsValid checks if the classification is one of the known verdicts
func (c Classification) IsValid() bool {
	switch c {
	case ClassificationMatched, ClassificationWrongAmount, ClassificationUnmatched:
		return true
	default:
		return false
	}
}

// CandidateRecord is a parsed, not yet persisted transaction guess
// derived from one statement row. Every field except Raw may be absent.
type CandidateRecord struct {
	TxID        *string
	OccurredAt  *time.Time
	Amount      decimal.NullDecimal
	Phone       *string
	LotteryID   *string
	Description string
	Raw         Row

	// Line is the 1-based position among non-empty input lines.
	Line int
}

// IsNoise reports whether the record has no identifying field at all
func (c *CandidateRecord) IsNoise() bool {
	return c.Phone == nil && c.TxID == nil && !c.Amount.Valid
}

// HasPhone reports whether a phone was extracted
func (c *CandidateRecord) HasPhone() bool {
	return c.Phone != nil
}

// PhoneValue returns the phone or an empty string
func (c *CandidateRecord) PhoneValue() string {
	return deref(c.Phone)
}

// TxIDValue returns the transaction id or an empty string
func (c *CandidateRecord) TxIDValue() string {
	return deref(c.TxID)
}

// Validate checks the invariants a record must satisfy before it may be
// written to the ledger.
func (c *CandidateRecord) Validate() error {
	if c.Phone != nil && !phonePattern.MatchString(*c.Phone) {
		return fmt.Errorf("phone must be exactly 8 digits, got %q", *c.Phone)
	}
	if c.Amount.Valid && c.Amount.Decimal.IsNegative() {
		return fmt.Errorf("amount cannot be negative: %s", c.Amount.Decimal.String())
	}
	if c.TxID != nil && strings.TrimSpace(*c.TxID) == "" {
		return fmt.Errorf("transaction id cannot be blank")
	}
	if len(c.Raw) == 0 {
		return fmt.Errorf("raw row cannot be empty")
	}
	return nil
}

// String returns a string representation of the CandidateRecord
func (c *CandidateRecord) String() string {
	amount := "-"
	if c.Amount.Valid {
		amount = c.Amount.Decimal.String()
	}
	return fmt.Sprintf("Candidate{Tx: %s, Phone: %s, Amount: %s, Lottery: %s}",
		orDash(c.TxID), orDash(c.Phone), amount, orDash(c.LotteryID))
}

// MarshalJSON renders absent fields as null, amounts as strings and
// instants in UTC.
func (c *CandidateRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		TxID        *string  `json:"tx_id"`
		OccurredAt  *string  `json:"occurred_at"`
		Amount      *string  `json:"amount"`
		Phone       *string  `json:"phone"`
		LotteryID   *string  `json:"lottery_id"`
		Description string   `json:"description"`
		Raw         []string `json:"raw"`
	}{
		TxID:        c.TxID,
		OccurredAt:  formatTime(c.OccurredAt),
		Amount:      formatAmount(c.Amount),
		Phone:       c.Phone,
		LotteryID:   c.LotteryID,
		Description: c.Description,
		Raw:         c.Raw,
	})
}

// LedgerEntry is a stored transaction row.
type LedgerEntry struct {
	ID          int64
	TxID        *string
	OccurredAt  *time.Time
	Amount      decimal.NullDecimal
	Phone       *string
	Description string
	LotteryID   *string
	Raw         Row
	ImportedAt  time.Time
}

// Record views the entry as a candidate so stored rows can be audited
func (e *LedgerEntry) Record() *CandidateRecord {
	return &CandidateRecord{
		TxID:        e.TxID,
		OccurredAt:  e.OccurredAt,
		Amount:      e.Amount,
		Phone:       e.Phone,
		LotteryID:   e.LotteryID,
		Description: e.Description,
		Raw:         e.Raw,
	}
}

// MarshalJSON implements custom JSON marshaling for LedgerEntry
func (e *LedgerEntry) MarshalJSON() ([]byte, error) {
	imported := e.ImportedAt.UTC().Format(TimestampLayout)
	return json.Marshal(&struct {
		ID          int64    `json:"id"`
		TxID        *string  `json:"tx_id"`
		OccurredAt  *string  `json:"occurred_at"`
		Amount      *string  `json:"amount"`
		Phone       *string  `json:"phone"`
		Description string   `json:"description"`
		LotteryID   *string  `json:"lottery_id"`
		Raw         []string `json:"raw"`
		ImportedAt  string   `json:"imported_at"`
	}{
		ID:          e.ID,
		TxID:        e.TxID,
		OccurredAt:  formatTime(e.OccurredAt),
		Amount:      formatAmount(e.Amount),
		Phone:       e.Phone,
		Description: e.Description,
		LotteryID:   e.LotteryID,
		Raw:         e.Raw,
		ImportedAt:  imported,
	})
}

// MergeResult is the outcome of one import.
// Inserted + Skipped + Failed always equals Total.
type MergeResult struct {
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
	Total    int    `json:"total"`
	BatchID  string `json:"batch_id,omitempty"`
}

// IsConsistent checks that the counts add up
func (m *MergeResult) IsConsistent() bool {
	return m.Inserted+m.Skipped+m.Failed == m.Total
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FormatTimestamp renders an instant the way the engine reports it
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTimestamp(*t)
	return &s
}

func formatAmount(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
