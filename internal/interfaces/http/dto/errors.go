package dto

import "net/http"

// API error codes. Every code follows ERR_<CATEGORY>_<DESCRIPTION> and
// maps to exactly one HTTP status via httpStatusByCode.
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
	ErrCodeValidationLength   = "ERR_VALIDATION_LENGTH"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"

	ErrCodeInvalidState      = "ERR_INVALID_STATE"
	ErrCodeBusinessRule      = "ERR_BUSINESS_RULE"
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"

	// Reconciliation conflicts: a bank record that was already converted
	// to a transaction, or whose processed flag disagrees with the ledger.
	ErrCodeAlreadyProcessed  = "ERR_ALREADY_PROCESSED"
	ErrCodeInconsistentState = "ERR_INCONSISTENT_STATE"

	// ErrCodeContactInUse signals a delete blocked by transactions that
	// still reference the contact.
	ErrCodeContactInUse = "ERR_CONTACT_IN_USE"

	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"

	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
)

var httpStatusByCode = make(map[string]int)

func mapStatus(status int, codes ...string) {
	for _, code := range codes {
		httpStatusByCode[code] = status
	}
}

func init() {
	// ERR_INCONSISTENT_STATE means the ledger and the bank records disagree,
	// which only ever happens through a server-side bug. It is reported as a
	// server error, not as a client conflict.
	mapStatus(http.StatusInternalServerError,
		ErrCodeUnknown, ErrCodeInternal, ErrCodeInconsistentState)

	mapStatus(http.StatusBadRequest,
		ErrCodeValidation, ErrCodeValidationRequired, ErrCodeValidationFormat,
		ErrCodeValidationRange, ErrCodeValidationLength,
		ErrCodeBadRequest, ErrCodeInvalidInput, ErrCodeInvalidJSON)

	mapStatus(http.StatusUnauthorized,
		ErrCodeUnauthorized, ErrCodeTokenExpired, ErrCodeTokenInvalid)
	mapStatus(http.StatusForbidden, ErrCodeForbidden)

	mapStatus(http.StatusNotFound, ErrCodeNotFound)
	mapStatus(http.StatusConflict,
		ErrCodeAlreadyExists, ErrCodeConflict, ErrCodeConcurrencyConflict,
		ErrCodeAlreadyProcessed, ErrCodeContactInUse)

	mapStatus(http.StatusUnprocessableEntity,
		ErrCodeInvalidState, ErrCodeBusinessRule, ErrCodeInsufficientStock)

	mapStatus(http.StatusTooManyRequests,
		ErrCodeRateLimited, ErrCodeTooManyRequests)
}

// GetHTTPStatus returns the HTTP status for an error code, defaulting
// to 500 for codes it does not know.
func GetHTTPStatus(code string) int {
	if status, ok := httpStatusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// legacyCodes translates the bare codes produced by the domain layer
// (shared.DomainError) into the prefixed API codes.
var legacyCodes = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONFLICT":             ErrCodeConflict,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"INSUFFICIENT_STOCK":   ErrCodeInsufficientStock,
	"ALREADY_PROCESSED":    ErrCodeAlreadyProcessed,
	"INCONSISTENT_STATE":   ErrCodeInconsistentState,
	"CONTACT_IN_USE":       ErrCodeContactInUse,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode maps a domain error code to its API form. Codes
// already in the API form, and unrecognized codes, pass through.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := legacyCodes[code]; ok {
		return apiCode
	}
	return code
}
