package dto

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := map[string]int{
		ErrCodeUnknown:             http.StatusInternalServerError,
		ErrCodeInternal:            http.StatusInternalServerError,
		ErrCodeValidation:          http.StatusBadRequest,
		ErrCodeValidationRequired:  http.StatusBadRequest,
		ErrCodeUnauthorized:        http.StatusUnauthorized,
		ErrCodeTokenExpired:        http.StatusUnauthorized,
		ErrCodeForbidden:           http.StatusForbidden,
		ErrCodeNotFound:            http.StatusNotFound,
		ErrCodeAlreadyExists:       http.StatusConflict,
		ErrCodeConcurrencyConflict: http.StatusConflict,
		ErrCodeAlreadyProcessed:    http.StatusConflict,
		// Inconsistent stored state is a server fault, never the client's.
		ErrCodeInconsistentState:   http.StatusInternalServerError,
		ErrCodeContactInUse:        http.StatusConflict,
		ErrCodeInvalidState:        http.StatusUnprocessableEntity,
		ErrCodeBusinessRule:        http.StatusUnprocessableEntity,
		ErrCodeInsufficientStock:   http.StatusUnprocessableEntity,
		ErrCodeBadRequest:          http.StatusBadRequest,
		ErrCodeInvalidJSON:         http.StatusBadRequest,
		ErrCodeRateLimited:         http.StatusTooManyRequests,
	}

	for code, want := range tests {
		assert.Equal(t, want, GetHTTPStatus(code), code)
	}

	t.Run("unknown code falls back to 500", func(t *testing.T) {
		assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("SOMETHING_NEW"))
	})
}

func TestNormalizeErrorCode(t *testing.T) {
	t.Run("domain codes map to API codes", func(t *testing.T) {
		for domainCode, apiCode := range legacyCodes {
			assert.Equal(t, apiCode, NormalizeErrorCode(domainCode), domainCode)
		}
	})

	t.Run("API and unknown codes pass through", func(t *testing.T) {
		for _, code := range []string{ErrCodeNotFound, ErrCodeValidation, "CUSTOM_ERROR"} {
			assert.Equal(t, code, NormalizeErrorCode(code))
		}
	})
}

// Every registered code should carry the ERR_ prefix and resolve to a
// real status; every domain translation should land on a registered code.
func TestErrorCodeRegistry(t *testing.T) {
	require.NotEmpty(t, httpStatusByCode)

	for code, status := range httpStatusByCode {
		assert.True(t, strings.HasPrefix(code, "ERR_"), "code %s missing ERR_ prefix", code)
		assert.GreaterOrEqual(t, status, 400, "code %s mapped to non-error status %d", code, status)
	}

	for domainCode, apiCode := range legacyCodes {
		_, ok := httpStatusByCode[apiCode]
		assert.True(t, ok, "legacy %s maps to unregistered code %s", domainCode, apiCode)
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("NOT_FOUND", "Transaction not found")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code, "domain code should be normalized")
	assert.Equal(t, "Transaction not found", resp.Error.Message)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Transaction not found", "req-123-456")

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "req-123-456", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "amount", Message: "Must be positive"},
		{Field: "date", Message: "Invalid date format"},
	}

	resp := NewValidationErrorResponse("Validation failed", "req-789", details)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	require.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "amount", resp.Error.Details[0].Field)
	assert.Equal(t, "Must be positive", resp.Error.Details[0].Message)
}

func TestNewErrorResponseWithHelp(t *testing.T) {
	help := "https://docs.example.com/errors/auth"
	resp := NewErrorResponseWithHelp(ErrCodeUnauthorized, "Not authenticated", "req-001", help)

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUnauthorized, resp.Error.Code)
	assert.Equal(t, help, resp.Error.Help)
}

func TestErrorResponseJSONRoundTrip(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Contact not found", "req-test-123")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.False(t, decoded.Success)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, ErrCodeNotFound, decoded.Error.Code)
	assert.Equal(t, "Contact not found", decoded.Error.Message)
	assert.Equal(t, "req-test-123", decoded.Error.RequestID)
}

func TestErrorResponseTimestamp(t *testing.T) {
	before := time.Now()
	resp := NewErrorResponse(ErrCodeInternal, "Server error")
	after := time.Now()

	assert.False(t, resp.Error.Timestamp.Before(before))
	assert.False(t, resp.Error.Timestamp.After(after))
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]string{"name": "Office supplies"})

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	assert.Nil(t, resp.Meta)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a", "b"}, 100, 1, 10)

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(100), resp.Meta.Total)
	assert.Equal(t, 1, resp.Meta.Page)
	assert.Equal(t, 10, resp.Meta.PageSize)
	assert.Equal(t, 10, resp.Meta.TotalPages)
}

func TestNewSuccessResponseWithMeta_Pagination(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		pageSize  int
		wantPages int
		wantSize  int
	}{
		{"exact pages", 100, 10, 10, 10},
		{"partial last page", 101, 10, 11, 10},
		{"empty result", 0, 10, 0, 10},
		{"under one page", 9, 10, 1, 10},
		{"one over", 11, 10, 2, 10},
		{"zero page size defaults", 100, 0, 5, 20},
		{"negative page size defaults", 100, -1, 5, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewSuccessResponseWithMeta(nil, tt.total, 1, tt.pageSize)
			assert.Equal(t, tt.wantPages, resp.Meta.TotalPages)
			assert.Equal(t, tt.wantSize, resp.Meta.PageSize)
		})
	}
}
