package errors

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestReconcilerError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "input error",
			category:   CategoryInput,
			code:       CodeEmptyInput,
			message:    "empty",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("missing field"),
			expectCode: 4,
		},
		{
			name:       "store error",
			category:   CategoryStore,
			code:       CodeStoreUnavailable,
			message:    "down",
			cause:      errors.New("connection refused"),
			expectCode: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *ReconcilerError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}
			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}
			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
			if len(err.StackTrace) == 0 {
				t.Error("expected stack trace to be captured")
			}
		})
	}
}

func TestReconcilerErrorWithContext(t *testing.T) {
	err := New(CategoryInput, CodeInputTooLarge, "too large").
		WithContext("size", 42).
		WithSuggestion("split it")

	if err.Context["size"] != 42 {
		t.Errorf("expected size context 42, got %v", err.Context["size"])
	}

	expected := "too large (suggestion: split it)"
	if err.Error() != expected {
		t.Errorf("expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestWithIncident(t *testing.T) {
	a := New(CategoryInternal, CodeUnexpectedError, "boom").WithIncident()
	b := New(CategoryInternal, CodeUnexpectedError, "boom").WithIncident()

	if a.Incident == "" || b.Incident == "" {
		t.Fatal("expected incident ids to be set")
	}
	if a.Incident == b.Incident {
		t.Error("expected distinct incident ids")
	}
}

func TestSpecificErrorConstructors(t *testing.T) {
	t.Run("InputError", func(t *testing.T) {
		err := InputError(CodeInputTooLarge, 3000000, 2000000, nil)

		if err.Category != CategoryInput {
			t.Errorf("expected input category, got %s", err.Category)
		}
		if err.Context["size"] != 3000000 {
			t.Errorf("expected size context, got %v", err.Context["size"])
		}
		if !strings.Contains(err.Message, "2000000") {
			t.Errorf("expected limit in message, got %q", err.Message)
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError(CodeInvariantViolation, "amount", "-5", nil)

		if err.Category != CategoryValidation {
			t.Errorf("expected validation category, got %s", err.Category)
		}
		if err.Context["field"] != "amount" {
			t.Errorf("expected field context, got %v", err.Context["field"])
		}
		if !err.IsStructural() {
			t.Error("expected invariant violation to be structural")
		}
	})

	t.Run("StoreError", func(t *testing.T) {
		cause := errors.New("dial tcp: refused")
		err := StoreError(CodeStoreUnavailable, "upsert", cause)

		if err.Cause != cause {
			t.Errorf("expected cause to be %v, got %v", cause, err.Cause)
		}
		if !err.IsStructural() {
			t.Error("expected store_unavailable to be structural")
		}
		if StoreError(CodeRowRejected, "upsert", cause).IsStructural() {
			t.Error("expected row_rejected not to be structural")
		}
	})
}

func TestAsReconcilerError(t *testing.T) {
	base := New(CategoryStore, CodeStoreUnavailable, "down")
	wrapped := fmt.Errorf("merge: %w", base)

	got, ok := AsReconcilerError(wrapped)
	if !ok {
		t.Fatal("expected to find ReconcilerError in chain")
	}
	if got != base {
		t.Error("expected the original error back")
	}

	if _, ok := AsReconcilerError(errors.New("plain")); ok {
		t.Error("expected plain error not to match")
	}

	if WrapIfNeeded(wrapped, CategoryInternal, CodeUnexpectedError, "x") != base {
		t.Error("expected WrapIfNeeded to keep existing ReconcilerError")
	}
	if WrapIfNeeded(nil, CategoryInternal, CodeUnexpectedError, "x") != nil {
		t.Error("expected nil for nil error")
	}
}

func TestErrorSummary(t *testing.T) {
	errs := []*ReconcilerError{
		New(CategoryInput, CodeEmptyInput, "error 1"),
		New(CategoryStore, CodeRowRejected, "error 2"),
		New(CategoryStore, CodeRowRejected, "error 3"),
	}

	summary := NewErrorSummary(errs)

	if summary.Total != 3 {
		t.Errorf("expected total 3, got %d", summary.Total)
	}
	if summary.ByCategory[CategoryStore] != 2 {
		t.Errorf("expected 2 store errors, got %d", summary.ByCategory[CategoryStore])
	}
	if !summary.HasCode(CodeRowRejected) {
		t.Error("expected row_rejected code")
	}
	if summary.GetExitCode() != 6 {
		t.Errorf("expected exit code 6, got %d", summary.GetExitCode())
	}
}

func TestEmptyErrorSummary(t *testing.T) {
	summary := NewErrorSummary(nil)

	if summary.Total != 0 {
		t.Errorf("expected total 0, got %d", summary.Total)
	}
	if summary.Error() != "no errors" {
		t.Errorf("expected 'no errors', got '%s'", summary.Error())
	}
	if summary.GetExitCode() != 0 {
		t.Errorf("expected exit code 0, got %d", summary.GetExitCode())
	}
}

func TestRowErrorCollector(t *testing.T) {
	c := NewRowErrorCollector(2)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(line int) {
			defer wg.Done()
			c.Add(NewRowError(&RowContext{Line: line, TxID: "123456789"}, "upsert", errors.New("numeric overflow")))
		}(i + 1)
	}
	wg.Wait()

	if c.Count() != 5 {
		t.Errorf("expected count 5, got %d", c.Count())
	}
	if len(c.GetErrors()) != 2 {
		t.Errorf("expected 2 retained errors, got %d", len(c.GetErrors()))
	}
	if c.GetSummary().ByCode[CodeRowRejected] != 2 {
		t.Error("expected summary over retained errors")
	}
}

func TestRowErrorFormatting(t *testing.T) {
	err := NewRowError(&RowContext{Line: 7, TxID: "5890791", Cells: []string{"a", "b"}}, "upsert", errors.New("value too long"))

	if !strings.Contains(err.Error(), "line 7") {
		t.Errorf("expected line in error, got %q", err.Error())
	}
	detail := err.GetDetailedError()
	for _, want := range []string{"Line: 7", "Tx: 5890791", "a | b", "value too long"} {
		if !strings.Contains(detail, want) {
			t.Errorf("expected %q in detailed error:\n%s", want, detail)
		}
	}

	out := FormatRowErrorsForUser([]*RowError{err}, 1)
	if !strings.Contains(out, "1 rows were rejected") {
		t.Errorf("unexpected format output: %s", out)
	}
}

func TestErrorCodeRegistry(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		category ErrorCategory
	}{
		{CodeFileNotFound, CategoryFile},
		{CodeInvalidEncoding, CategoryInput},
		{CodeInvariantViolation, CategoryValidation},
		{CodeMissingConfig, CategoryConfiguration},
		{CodeRowRejected, CategoryStore},
		{CodeUnexpectedError, CategoryInternal},
		{"made_up", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.Category(); got != tt.category {
				t.Errorf("expected %s, got %s", tt.category, got)
			}
		})
	}

	if InputError(CodeEmptyInput, 0, 0, nil).Suggestion == "" {
		t.Error("expected a default suggestion")
	}
}

func TestErrorsIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("import: %w", StoreError(CodeStoreUnavailable, "merge", errors.New("refused")))

	if !errors.Is(err, &ReconcilerError{Code: CodeStoreUnavailable}) {
		t.Error("expected errors.Is to match by code")
	}
	if errors.Is(err, &ReconcilerError{Code: CodeRowRejected}) {
		t.Error("expected a different code not to match")
	}
}
