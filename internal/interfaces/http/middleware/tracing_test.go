package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

// setupTestTracer installs an in-memory tracer provider and returns its
// span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})

	return sr
}

// tracedRouter builds a router with the given middlewares and a GET
// /health handler answering with code.
func tracedRouter(code int, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw...)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(code, gin.H{"status": http.StatusText(code)})
	})
	return router
}

func httpSpan(t *testing.T, sr *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == "GET /health" {
			return span
		}
	}
	t.Fatal("HTTP span not recorded")
	return nil
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (string, bool) {
	for _, attr := range span.Attributes() {
		if string(attr.Key) == key {
			return attr.Value.AsString(), true
		}
	}
	return "", false
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	router := tracedRouter(http.StatusOK, TracingWithConfig(TracingConfig{Enabled: false, ServiceName: "tallybook-backend"}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracingWithConfig_RecordsSpan(t *testing.T) {
	sr := setupTestTracer(t)
	router := tracedRouter(http.StatusOK, TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "tallybook-backend"}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	httpSpan(t, sr)
}

func TestTracingAttributeInjector(t *testing.T) {
	// otelgin resolves the tracer provider when the middleware is built,
	// so construction has to follow setupTestTracer in every subtest.
	tracing := func() gin.HandlerFunc {
		return TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "tallybook-backend"})
	}

	t.Run("request_id from header", func(t *testing.T) {
		sr := setupTestTracer(t)
		router := tracedRouter(http.StatusOK, RequestID(), tracing(), TracingAttributeInjector())

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", "req-trace-123")
		router.ServeHTTP(w, req)

		got, ok := spanAttr(httpSpan(t, sr), "request_id")
		require.True(t, ok, "request_id attribute missing")
		assert.Equal(t, "req-trace-123", got)
	})

	t.Run("identity from JWT claims", func(t *testing.T) {
		sr := setupTestTracer(t)
		claims := func(c *gin.Context) {
			c.Set(JWTUserIDKey, "owner-123")
			c.Set(JWTBusinessIDKey, "biz-456")
			c.Next()
		}
		router := tracedRouter(http.StatusOK, tracing(), claims, TracingAttributeInjector())

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		router.ServeHTTP(w, req)

		span := httpSpan(t, sr)
		userID, _ := spanAttr(span, "user_id")
		businessID, _ := spanAttr(span, "business_id")
		assert.Equal(t, "owner-123", userID)
		assert.Equal(t, "biz-456", businessID)
	})

	t.Run("business_id from header", func(t *testing.T) {
		sr := setupTestTracer(t)
		router := tracedRouter(http.StatusOK, tracing(), TracingAttributeInjector())

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Business-ID", "12345678-1234-1234-1234-123456789abc")
		router.ServeHTTP(w, req)

		got, ok := spanAttr(httpSpan(t, sr), "business_id")
		require.True(t, ok)
		assert.Equal(t, "12345678-1234-1234-1234-123456789abc", got)
	})

	t.Run("no recording span", func(t *testing.T) {
		router := tracedRouter(http.StatusOK, TracingAttributeInjector())

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		wantError       bool
		wantDescription string
	}{
		{"not found", http.StatusNotFound, true, "Not Found"},
		{"unauthorized", http.StatusUnauthorized, true, "Unauthorized"},
		{"forbidden", http.StatusForbidden, true, "Forbidden"},
		{"bad request", http.StatusBadRequest, true, "Client Error"},
		// otelgin marks 5xx itself, so only the code is asserted.
		{"server error", http.StatusInternalServerError, true, ""},
		{"success", http.StatusOK, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := setupTestTracer(t)
			tracing := TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "tallybook-backend"})
			router := tracedRouter(tt.status, tracing, SpanErrorMarker())

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/health", nil)
			router.ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)

			status := httpSpan(t, sr).Status()
			if !tt.wantError {
				assert.NotEqual(t, codes.Error, status.Code)
				return
			}
			assert.Equal(t, codes.Error, status.Code)
			if tt.wantDescription != "" {
				assert.Equal(t, tt.wantDescription, status.Description)
			}
		})
	}

	t.Run("no recording span", func(t *testing.T) {
		otel.SetTracerProvider(noop.NewTracerProvider())
		router := tracedRouter(http.StatusInternalServerError, SpanErrorMarker())

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()

	assert.Equal(t, "tallybook-backend", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
}

func TestTracing_DefaultConfig(t *testing.T) {
	sr := setupTestTracer(t)
	router := tracedRouter(http.StatusOK, Tracing())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	httpSpan(t, sr)
}

func TestContextIdentityGetters(t *testing.T) {
	gin.SetMode(gin.TestMode)

	call := func(setup func(c *gin.Context), header http.Header, get func(c *gin.Context) string) string {
		var got string
		router := gin.New()
		if setup != nil {
			router.Use(func(c *gin.Context) { setup(c); c.Next() })
		}
		router.GET("/probe", func(c *gin.Context) {
			got = get(c)
			c.Status(http.StatusOK)
		})

		req, _ := http.NewRequest(http.MethodGet, "/probe", nil)
		for k, vs := range header {
			req.Header[k] = vs
		}
		router.ServeHTTP(httptest.NewRecorder(), req)
		return got
	}

	t.Run("request id prefers context over header", func(t *testing.T) {
		got := call(func(c *gin.Context) { c.Set("request_id", "from-context") }, nil, getRequestID)
		assert.Equal(t, "from-context", got)

		got = call(nil, http.Header{"X-Request-Id": {"from-header"}}, getRequestID)
		assert.Equal(t, "from-header", got)
	})

	t.Run("oversized request id is truncated", func(t *testing.T) {
		long := strings.Repeat("r", 200)
		got := call(nil, http.Header{"X-Request-Id": {long}}, getRequestID)
		assert.Len(t, got, MaxRequestIDLength)
	})

	t.Run("business id from JWT claim", func(t *testing.T) {
		got := call(func(c *gin.Context) { c.Set(JWTBusinessIDKey, "biz-jwt") }, nil, getBusinessID)
		assert.Equal(t, "biz-jwt", got)
	})

	t.Run("business id header must be a UUID", func(t *testing.T) {
		got := call(nil, http.Header{"X-Business-Id": {"12345678-1234-1234-1234-123456789abc"}}, getBusinessID)
		assert.Equal(t, "12345678-1234-1234-1234-123456789abc", got)

		got = call(nil, http.Header{"X-Business-Id": {"not-a-uuid"}}, getBusinessID)
		assert.Empty(t, got)
	})

	t.Run("user id comes only from JWT", func(t *testing.T) {
		got := call(func(c *gin.Context) { c.Set(JWTUserIDKey, "owner-jwt") }, nil, getUserID)
		assert.Equal(t, "owner-jwt", got)

		got = call(nil, nil, getUserID)
		assert.Empty(t, got)
	})
}

func TestIsValidBusinessID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"lowercase uuid", "12345678-1234-1234-1234-123456789abc", true},
		{"uppercase uuid", "12345678-1234-1234-1234-123456789ABC", true},
		{"mixed case uuid", "12345678-1234-1234-1234-123456789AbC", true},
		{"too short", "12345678-1234-1234", false},
		{"no dashes", "12345678123412341234123456789abc", false},
		{"special characters", "12345678-1234-1234-1234-123456789<>!", false},
		{"script injection", "<script>alert(1)</script>", false},
		{"empty", "", false},
		{"embedded space", "12345678-1234 -1234-1234-123456789abc", false},
		{"oversized", "12345678-1234-1234-1234-123456789abc" + strings.Repeat("x", 500), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isValidBusinessID(tt.id))
		})
	}
}
