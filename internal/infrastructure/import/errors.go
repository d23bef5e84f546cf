package csvimport

import (
	"errors"
	"fmt"
	"strings"
)

// Row-level validation error codes.
const (
	ErrCodeImportValidation      = "ERR_IMPORT_VALIDATION"
	ErrCodeImportMalformedRow    = "ERR_IMPORT_MALFORMED_ROW"
	ErrCodeImportRequiredField   = "ERR_IMPORT_REQUIRED_FIELD"
	ErrCodeImportInvalidType     = "ERR_IMPORT_INVALID_TYPE"
	ErrCodeImportInvalidLength   = "ERR_IMPORT_INVALID_LENGTH"
	ErrCodeImportInvalidRange    = "ERR_IMPORT_INVALID_RANGE"
	ErrCodeImportPatternMismatch = "ERR_IMPORT_PATTERN_MISMATCH"
	ErrCodeImportDuplicateInFile = "ERR_IMPORT_DUPLICATE_IN_FILE"
)

// File-level failures that abort parsing before any row is produced.
var (
	ErrEmptyFile       = errors.New("CSV file is empty")
	ErrInvalidEncoding = errors.New("invalid file encoding")
	ErrMissingHeader   = errors.New("CSV file missing header row")
)

// RowError describes a problem with one field in one row of an import.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	at := fmt.Sprintf("row %d", e.Row)
	if e.Column != "" {
		at += fmt.Sprintf(", column '%s'", e.Column)
	}
	return at + ": " + e.Message
}

// NewRowError creates a RowError without capturing the offending value.
func NewRowError(row int, column, code, message string) RowError {
	return RowError{Row: row, Column: column, Code: code, Message: message}
}

// NewRowErrorWithValue creates a RowError carrying the invalid value,
// so the client can show the user what was rejected.
func NewRowErrorWithValue(row int, column, code, message, value string) RowError {
	e := NewRowError(row, column, code, message)
	e.Value = value
	return e
}

// ErrorCollection accumulates row errors up to a cap so a pathological
// file cannot produce an unbounded response. The total count keeps
// growing past the cap; only storage is bounded.
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates an ErrorCollection storing at most
// maxErrors entries (100 when maxErrors is not positive).
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0, maxErrors),
		maxErrors: maxErrors,
	}
}

// Add records an error, storing it if the cap allows.
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddValidationError records a failed field check.
func (ec *ErrorCollection) AddValidationError(row int, column, code, message string) {
	ec.Add(NewRowError(row, column, code, message))
}

// AddRequiredError records a missing required field.
func (ec *ErrorCollection) AddRequiredError(row int, column string) {
	ec.AddValidationError(row, column, ErrCodeImportRequiredField,
		fmt.Sprintf("field '%s' is required", column))
}

// AddTypeError records a value that failed type conversion.
func (ec *ErrorCollection) AddTypeError(row int, column, expectedType, value string) {
	ec.Add(NewRowErrorWithValue(row, column, ErrCodeImportInvalidType,
		"expected "+expectedType, value))
}

// AddLengthError records a value outside its length bounds. A zero
// bound means that side is unconstrained.
func (ec *ErrorCollection) AddLengthError(row int, column string, minLen, maxLen int) {
	ec.AddValidationError(row, column, ErrCodeImportInvalidLength, lengthBounds(minLen, maxLen))
}

func lengthBounds(minLen, maxLen int) string {
	switch {
	case minLen == 0:
		return fmt.Sprintf("length must be at most %d", maxLen)
	case maxLen == 0:
		return fmt.Sprintf("length must be at least %d", minLen)
	}
	return fmt.Sprintf("length must be between %d and %d", minLen, maxLen)
}

// AddRangeError records a numeric value outside its bounds.
func (ec *ErrorCollection) AddRangeError(row int, column string, min, max float64) {
	ec.AddValidationError(row, column, ErrCodeImportInvalidRange,
		fmt.Sprintf("value must be between %.2f and %.2f", min, max))
}

// AddPatternError records a value that failed a pattern match.
func (ec *ErrorCollection) AddPatternError(row int, column, pattern, value string) {
	ec.Add(NewRowErrorWithValue(row, column, ErrCodeImportPatternMismatch,
		fmt.Sprintf("value does not match pattern '%s'", pattern), value))
}

// Errors returns the stored errors.
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// Count returns the number of stored errors, bounded by the cap.
func (ec *ErrorCollection) Count() int {
	return len(ec.errors)
}

// TotalCount returns every recorded error, including dropped ones.
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors reports whether anything was recorded.
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated reports whether the cap dropped any errors.
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// Clear resets the collection for reuse.
func (ec *ErrorCollection) Clear() {
	ec.errors = ec.errors[:0]
	ec.totalCount = 0
}

// String renders the collection for inclusion in an API error message.
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error(s) found", ec.totalCount)
	if ec.IsTruncated() {
		fmt.Fprintf(&sb, " (showing first %d)", ec.maxErrors)
	}
	sb.WriteString(":\n")
	for _, err := range ec.errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}
