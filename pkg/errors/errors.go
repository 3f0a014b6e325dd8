// Package errors defines the error type returned across the reconciler.
// Every error carries a stable code that is safe to show an operator; the
// underlying cause stays in the logs, keyed by an optional incident id.
package errors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrorCategory groups codes by who can fix them
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryInput         ErrorCategory = "input"
	CategoryValidation    ErrorCategory = "validation"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryStore         ErrorCategory = "store"
	CategoryInternal      ErrorCategory = "internal"
)

// exitCodes maps categories to process exit codes. Anything else exits 1.
var exitCodes = map[ErrorCategory]int{
	CategoryFile:          2,
	CategoryInput:         3,
	CategoryValidation:    3,
	CategoryConfiguration: 4,
	CategoryInternal:      5,
	CategoryStore:         6,
}

// ErrorCode is a stable, non-sensitive identifier surfaced to callers.
type ErrorCode string

const (
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"

	CodeEmptyInput      ErrorCode = "empty_input"
	CodeInputTooLarge   ErrorCode = "input_too_large"
	CodeInvalidEncoding ErrorCode = "invalid_encoding"

	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodeInvalidValue       ErrorCode = "invalid_value"

	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	CodeStoreUnavailable ErrorCode = "store_unavailable"
	CodeRowRejected      ErrorCode = "row_rejected"

	CodeUnexpectedError ErrorCode = "unexpected_error"
)

type codeInfo struct {
	category   ErrorCategory
	suggestion string
}

var registry = map[ErrorCode]codeInfo{
	CodeFileNotFound:   {CategoryFile, "check the path; use - to read the statement from standard input"},
	CodeFilePermission: {CategoryFile, "check that the file is readable by this user"},

	CodeEmptyInput:      {CategoryInput, "paste or upload the exported statement rows"},
	CodeInputTooLarge:   {CategoryInput, "split the export into smaller date ranges"},
	CodeInvalidEncoding: {CategoryInput, "export the statement as CSV or tab-separated text (UTF-8 or UTF-16)"},

	CodeInvariantViolation: {CategoryValidation, "this record cannot be stored as parsed; check the source row"},
	CodeInvalidValue:       {CategoryValidation, "check the value and format"},

	CodeInvalidConfig: {CategoryConfiguration, "see --help for accepted values"},
	CodeMissingConfig: {CategoryConfiguration, "set it with a flag, a RECONCILER_ environment variable or the config file"},

	CodeStoreUnavailable: {CategoryStore, "check database connectivity and retry the import"},
	CodeRowRejected:      {CategoryStore, "inspect the source row for out-of-range values"},

	CodeUnexpectedError: {CategoryInternal, "this is likely a bug; report it with the incident id"},
}

// Category returns the category a known code belongs to, or internal
func (c ErrorCode) Category() ErrorCategory {
	if info, ok := registry[c]; ok {
		return info.category
	}
	return CategoryInternal
}

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Incident   string            `json:"incident,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// Is matches another ReconcilerError by code, so errors.Is works against
// a bare &ReconcilerError{Code: ...} target.
func (e *ReconcilerError) Is(target error) bool {
	t, ok := target.(*ReconcilerError)
	return ok && t.Code != "" && t.Code == e.Code
}

// GetExitCode returns the process exit code for the error's category
func (e *ReconcilerError) GetExitCode() int {
	if code, ok := exitCodes[e.Category]; ok {
		return code
	}
	return 1
}

// IsStructural reports whether the error aborts a whole batch rather than a single row.
func (e *ReconcilerError) IsStructural() bool {
	return e.Code != CodeRowRejected
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion replaces the suggestion shown to the operator
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// WithIncident tags the error with a fresh incident id. The id is what
// an operator quotes; the cause is only in the logs.
func (e *ReconcilerError) WithIncident() *ReconcilerError {
	e.Incident = uuid.NewString()
	return e
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a ReconcilerError without a cause
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New(message).(stackTracer).StackTrace(),
	}
}

// Wrap attaches category, code and message to err. A nil err stays nil.
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// newCoded builds an error for a registered code with its default suggestion.
func newCoded(code ErrorCode, cause error, format string, args ...interface{}) *ReconcilerError {
	message := fmt.Sprintf(format, args...)
	category := code.Category()

	var e *ReconcilerError
	if cause != nil {
		e = Wrap(cause, category, code, message)
	} else {
		e = New(category, code, message)
	}
	if info, ok := registry[code]; ok {
		e.Suggestion = info.suggestion
	}
	return e
}

// FileError reports a statement file that cannot be read
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	var e *ReconcilerError
	switch code {
	case CodeFileNotFound:
		e = newCoded(code, err, "file not found: %s", path)
	case CodeFilePermission:
		e = newCoded(code, err, "permission denied accessing file: %s", path)
	default:
		e = newCoded(code, err, "file error: %s", path)
	}
	e.Category = CategoryFile
	return e.WithContext("file_path", path)
}

// InputError rejects a whole statement before the engine touches it.
func InputError(code ErrorCode, size int, limit int, err error) *ReconcilerError {
	var e *ReconcilerError
	switch code {
	case CodeEmptyInput:
		e = newCoded(code, err, "statement text is empty")
	case CodeInputTooLarge:
		e = newCoded(code, err, "statement text is %d bytes, limit is %d", size, limit)
	case CodeInvalidEncoding:
		e = newCoded(code, err, "statement is not readable text")
	default:
		e = newCoded(code, err, "statement rejected")
	}
	e.Category = CategoryInput
	if size > 0 {
		e.WithContext("size", size)
	}
	return e
}

// ValidationError reports a value that breaks a record or request rule
func ValidationError(code ErrorCode, field string, value interface{}, err error) *ReconcilerError {
	var e *ReconcilerError
	switch code {
	case CodeInvariantViolation:
		e = newCoded(code, err, "invariant violated for '%s': %v", field, value)
	case CodeInvalidValue:
		e = newCoded(code, err, "invalid value for '%s': %v", field, value)
	default:
		e = newCoded(code, err, "validation error in field '%s': %v", field, value)
	}
	e.Category = CategoryValidation
	return e.WithContext("field", field).WithContext("value", value)
}

// ConfigurationError reports a bad or absent setting
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var e *ReconcilerError
	switch code {
	case CodeInvalidConfig:
		e = newCoded(code, err, "invalid configuration for '%s': %v", setting, value)
	case CodeMissingConfig:
		e = newCoded(code, err, "missing required configuration: %s", setting)
	default:
		e = newCoded(code, err, "configuration error: %s", setting)
	}
	e.Category = CategoryConfiguration
	return e.WithContext("setting", setting).WithContext("value", value)
}

// StoreError creates a ledger store error. Row rejections are per-row data
// faults; everything else is treated as a connectivity fault.
func StoreError(code ErrorCode, operation string, err error) *ReconcilerError {
	var e *ReconcilerError
	switch code {
	case CodeStoreUnavailable:
		e = newCoded(code, err, "ledger store unavailable")
	case CodeRowRejected:
		e = newCoded(code, err, "ledger rejected row during %s", operation)
	default:
		e = newCoded(code, err, "ledger error during %s", operation)
		e.Suggestion = "retry the operation"
	}
	e.Category = CategoryStore
	return e.WithContext("operation", operation)
}

// InternalError reports a fault the operator cannot fix
func InternalError(code ErrorCode, operation string, err error) *ReconcilerError {
	e := newCoded(code, err, "unexpected error during %s", operation)
	e.Category = CategoryInternal
	return e.WithContext("operation", operation)
}

// ErrorSummary counts a batch of errors by category and code
type ErrorSummary struct {
	Total        int                   `json:"total"`
	ByCategory   map[ErrorCategory]int `json:"by_category"`
	ByCode       map[ErrorCode]int     `json:"by_code"`
	Errors       []*ReconcilerError    `json:"errors"`
	SampleErrors []*ReconcilerError    `json:"sample_errors,omitempty"`
}

const maxSampleErrors = 5

// NewErrorSummary summarizes errs
func NewErrorSummary(errs []*ReconcilerError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     append([]*ReconcilerError{}, errs...),
	}
	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}
	summary.SampleErrors = summary.Errors[:min(len(errs), maxSampleErrors)]
	return summary
}

// Error lists the counts per code in code order
func (es *ErrorSummary) Error() string {
	switch es.Total {
	case 0:
		return "no errors"
	case 1:
		return es.Errors[0].Error()
	}

	codes := make([]string, 0, len(es.ByCode))
	for code, n := range es.ByCode {
		codes = append(codes, fmt.Sprintf("%s: %d", code, n))
	}
	sort.Strings(codes)
	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(codes, ", "))
}

// HasCode checks if the summary contains errors with the given code
func (es *ErrorSummary) HasCode(code ErrorCode) bool {
	return es.ByCode[code] > 0
}

// GetExitCode returns the highest exit code among the errors
func (es *ErrorSummary) GetExitCode() int {
	if es.Total == 0 {
		return 0
	}
	highest := 1
	for _, err := range es.Errors {
		highest = max(highest, err.GetExitCode())
	}
	return highest
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// WrapIfNeeded returns the ReconcilerError already in err's chain, or
// wraps err with the given classification.
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}
	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}
	return Wrap(err, category, code, message)
}
