package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallybook/backend/internal/interfaces/http/dto"
)

func TestSetupValidator_UsesJSONTagNames(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	require.NotNil(t, v)

	type registerRequest struct {
		BusinessName string `json:"business_name" binding:"required"`
	}
	err := v.Struct(registerRequest{})
	require.Error(t, err)

	verrs := err.(validator.ValidationErrors)
	require.Len(t, verrs, 1)
	assert.Equal(t, "business_name", verrs[0].Field())
}

func TestHandleValidationError(t *testing.T) {
	SetupValidator()
	gin.SetMode(gin.TestMode)

	type registerRequest struct {
		Email   string `json:"email" binding:"required,email"`
		StaffNo int    `json:"staff_no" binding:"required,min=1"`
	}

	router := gin.New()
	router.POST("/businesses", func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/businesses", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("reports every failing field", func(t *testing.T) {
		w := post(`{"email": "not-an-email", "staff_no": 0}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		assert.Len(t, resp.Error.Details, 2)
	})

	t.Run("valid payload passes through", func(t *testing.T) {
		w := post(`{"email": "owner@corner-shop.test", "staff_no": 3}`)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("includes request id when present", func(t *testing.T) {
		withID := gin.New()
		withID.POST("/businesses", func(c *gin.Context) {
			c.Set(RequestIDKey, "req-123")
			var req registerRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				HandleValidationError(c, err)
				return
			}
		})

		req := httptest.NewRequest(http.MethodPost, "/businesses", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		withID.ServeHTTP(w, req)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, "req-123", resp.Error.RequestID)
	})
}

func TestGetValidationMessage(t *testing.T) {
	type fixture struct {
		Required string `validate:"required"`
		Email    string `validate:"omitempty,email"`
		Min      string `validate:"omitempty,min=5"`
		Max      string `validate:"omitempty,max=3"`
		Len      string `validate:"omitempty,len=5"`
		UUID     string `validate:"omitempty,uuid"`
		OneOf    string `validate:"omitempty,oneof=income expense"`
		URL      string `validate:"omitempty,url"`
		Numeric  string `validate:"omitempty,numeric"`
	}

	v := validator.New()

	tests := []struct {
		name  string
		input fixture
		field string
		want  string
	}{
		{"required", fixture{}, "Required", "This field is required"},
		{"email", fixture{Required: "x", Email: "nope"}, "Email", "Invalid email format"},
		{"min", fixture{Required: "x", Min: "ab"}, "Min", "Must be at least 5 characters"},
		{"max", fixture{Required: "x", Max: "abcd"}, "Max", "Must be at most 3 characters"},
		{"len", fixture{Required: "x", Len: "ab"}, "Len", "Must be exactly 5 characters"},
		{"uuid", fixture{Required: "x", UUID: "nope"}, "UUID", "Invalid UUID format"},
		{"oneof", fixture{Required: "x", OneOf: "transfer"}, "OneOf", "Must be one of: income expense"},
		{"url", fixture{Required: "x", URL: "nope"}, "URL", "Invalid URL format"},
		{"numeric", fixture{Required: "x", Numeric: "12a"}, "Numeric", "Must be numeric"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			require.Error(t, err)

			for _, e := range err.(validator.ValidationErrors) {
				if e.Field() == tt.field {
					assert.Equal(t, tt.want, getValidationMessage(e))
					return
				}
			}
			t.Fatalf("no validation error for field %s", tt.field)
		})
	}
}
