package errors

import (
	"fmt"
	"strings"
	"sync"
)

// RowContext locates a statement row that the ledger refused.
type RowContext struct {
	Line  int      `json:"line"`
	TxID  string   `json:"tx_id,omitempty"`
	Cells []string `json:"cells,omitempty"`
}

// RowError is a per-row data fault. It never aborts a batch.
type RowError struct {
	*ReconcilerError
	Row *RowContext `json:"row"`
}

// Error implements the error interface with the row location appended
func (e *RowError) Error() string {
	if e.Row == nil {
		return e.ReconcilerError.Error()
	}
	location := fmt.Sprintf("at line %d", e.Row.Line)
	if e.Row.TxID != "" {
		location += fmt.Sprintf(" (tx %s)", e.Row.TxID)
	}
	return e.ReconcilerError.Error() + " " + location
}

// GetDetailedError returns a detailed multi-line error description
func (e *RowError) GetDetailedError() string {
	var lines []string

	lines = append(lines, fmt.Sprintf("ERROR: %s", e.Message))
	if e.Row != nil {
		lines = append(lines, fmt.Sprintf("  → Line: %d", e.Row.Line))
		if e.Row.TxID != "" {
			lines = append(lines, fmt.Sprintf("  → Tx: %s", e.Row.TxID))
		}
		if len(e.Row.Cells) > 0 {
			lines = append(lines, fmt.Sprintf("  → Content: %s", strings.Join(e.Row.Cells, " | ")))
		}
	}
	if e.Cause != nil {
		lines = append(lines, fmt.Sprintf("  → Cause: %v", e.Cause))
	}
	if e.Suggestion != "" {
		lines = append(lines, fmt.Sprintf("  → Suggestion: %s", e.Suggestion))
	}

	return strings.Join(lines, "\n")
}

// NewRowError wraps a store rejection of a single row.
func NewRowError(row *RowContext, operation string, cause error) *RowError {
	base := StoreError(CodeRowRejected, operation, cause)
	if row != nil {
		base.WithContext("line", row.Line)
		if row.TxID != "" {
			base.WithContext("tx_id", row.TxID)
		}
	}
	return &RowError{ReconcilerError: base, Row: row}
}

// RowErrorCollector gathers row faults from concurrent merge workers.
// Only the first max errors are retained; Count keeps the true total.
type RowErrorCollector struct {
	mu     sync.Mutex
	errors []*RowError
	max    int
	count  int
}

// NewRowErrorCollector creates a collector that retains at most max errors
func NewRowErrorCollector(max int) *RowErrorCollector {
	if max <= 0 {
		max = 20
	}
	return &RowErrorCollector{
		errors: make([]*RowError, 0),
		max:    max,
	}
}

// Add records a row error
func (c *RowErrorCollector) Add(err *RowError) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.count++
	if len(c.errors) < c.max {
		c.errors = append(c.errors, err)
	}
}

// Count returns the number of errors seen, including ones not retained
func (c *RowErrorCollector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// GetErrors returns the retained errors
func (c *RowErrorCollector) GetErrors() []*RowError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*RowError, len(c.errors))
	copy(out, c.errors)
	return out
}

// GetSummary returns an error summary for the retained errors
func (c *RowErrorCollector) GetSummary() *ErrorSummary {
	retained := c.GetErrors()
	base := make([]*ReconcilerError, len(retained))
	for i, err := range retained {
		base[i] = err.ReconcilerError
	}
	return NewErrorSummary(base)
}

// FormatRowErrorsForUser formats row errors for terminal display
func FormatRowErrorsForUser(errs []*RowError, total int) string {
	if len(errs) == 0 {
		return "No rejected rows"
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("%d rows were rejected by the ledger:", total))

	maxDetailed := 3
	for i, err := range errs {
		if i == maxDetailed {
			lines = append(lines, "", fmt.Sprintf("... and %d more", total-maxDetailed))
			break
		}
		lines = append(lines, "", err.GetDetailedError())
	}

	return strings.Join(lines, "\n")
}
