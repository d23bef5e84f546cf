// Package middleware provides HTTP middleware for the Tallybook backend.
package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Length caps for identifiers copied from request headers into span
// attributes. Anything longer is truncated or rejected.
const (
	MaxRequestIDLength  = 128
	MaxBusinessIDLength = 64
)

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// TracingConfig controls the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

func DefaultTracingConfig() TracingConfig {
	return TracingConfig{ServiceName: "tallybook-backend", Enabled: true}
}

// Tracing returns the tracing middleware with default configuration.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig wraps otelgin so every request gets a span named
// "METHOD route_pattern", then tags the span with request_id,
// business_id, and user_id where those are known.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	otel := otelgin.Middleware(cfg.ServiceName)
	return func(c *gin.Context) {
		otel(c)

		// otelgin has created the span by now; tag it with whatever
		// identity information the request carried.
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			tagSpanIdentity(c, span)
		}
	}
}

// tagSpanIdentity records the request's correlation and identity IDs
// as span attributes, skipping any that are absent.
func tagSpanIdentity(c *gin.Context, span trace.Span) {
	for key, lookup := range map[string]func(*gin.Context) string{
		"request_id":  getRequestID,
		"business_id": getBusinessID,
		"user_id":     getUserID,
	} {
		if value := lookup(c); value != "" {
			span.SetAttributes(attribute.String(key, value))
		}
	}
}

// contextString reads a string value previously stored on the gin
// context, returning "" when the key is unset or not a string.
func contextString(c *gin.Context, key string) string {
	if value, exists := c.Get(key); exists {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return ""
}

// getRequestID prefers the ID set by the RequestID middleware and
// falls back to the X-Request-ID header, truncated to a sane length.
func getRequestID(c *gin.Context) string {
	if id := contextString(c, "request_id"); id != "" {
		return id
	}
	id := c.GetHeader("X-Request-ID")
	if len(id) > MaxRequestIDLength {
		id = id[:MaxRequestIDLength]
	}
	return id
}

// getBusinessID prefers the authenticated JWT claim. The X-Business-ID
// header is only trusted when it looks like a UUID, so arbitrary
// client input cannot leak into trace attributes.
func getBusinessID(c *gin.Context) string {
	if id := contextString(c, JWTBusinessIDKey); id != "" {
		return id
	}
	if id := c.GetHeader("X-Business-ID"); isValidBusinessID(id) {
		return id
	}
	return ""
}

func isValidBusinessID(businessID string) bool {
	return len(businessID) <= MaxBusinessIDLength && uuidRegex.MatchString(businessID)
}

// getUserID comes exclusively from the JWT claims; there is no header
// fallback for user identity.
func getUserID(c *gin.Context) string {
	return contextString(c, JWTUserIDKey)
}

// spanErrorDescription maps a 4xx status to the description recorded
// on the span. 5xx responses are labelled uniformly.
func spanErrorDescription(status int) string {
	if status >= http.StatusInternalServerError {
		return "Internal Server Error"
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return http.StatusText(status)
	default:
		return "Client Error"
	}
}

// SpanErrorMarker marks the request span as errored when the response
// status is 4xx or 5xx. Place it after the Tracing middleware.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		status := c.Writer.Status()
		if !span.IsRecording() || status < http.StatusBadRequest {
			return
		}

		span.SetStatus(codes.Error, spanErrorDescription(status))
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}

// TracingAttributeInjector re-tags the current span once authentication
// has run, so spans carry the JWT identity even though the Tracing
// middleware sits earlier in the chain.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			tagSpanIdentity(c, span)
		}
		c.Next()
	}
}
