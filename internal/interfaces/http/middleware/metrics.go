// Package middleware provides HTTP middleware for the Tallybook backend.
package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tallybook/backend/internal/infrastructure/telemetry"
)

// HTTPMetricsConfig configures the HTTP metrics middleware.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	ServiceName   string
	Enabled       bool
}

// bodySizeBuckets covers typical API payloads: small JSON bodies up
// through multi-megabyte CSV imports.
var bodySizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000, 5000000}

// httpMetrics bundles the instruments recorded per request.
type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	requestSize     *telemetry.Histogram
	responseSize    *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	m := &httpMetrics{}

	var err error
	if m.requestTotal, err = telemetry.NewCounter(
		meter,
		"http_server_request_total",
		"Total number of HTTP requests",
		"{request}",
	); err != nil {
		return nil, err
	}

	if m.requestDuration, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}

	if m.requestSize, err = bodyHistogram(meter,
		"http_server_request_size_bytes",
		"HTTP request body size distribution in bytes"); err != nil {
		return nil, err
	}

	if m.responseSize, err = bodyHistogram(meter,
		"http_server_response_size_bytes",
		"HTTP response body size distribution in bytes"); err != nil {
		return nil, err
	}

	if m.activeRequests, err = meter.Int64UpDownCounter(
		"http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func bodyHistogram(meter metric.Meter, name, description string) (*telemetry.Histogram, error) {
	return telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        name,
		Description: description,
		Unit:        "By",
		Boundaries:  bodySizeBuckets,
	})
}

func passthrough(c *gin.Context) {
	c.Next()
}

// HTTPMetrics returns a Gin middleware that records request count,
// latency, body sizes and in-flight requests against the configured
// meter provider. Disabled or misconfigured metrics degrade to a
// pass-through middleware rather than failing the server.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passthrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), true)
}

// HTTPMetricsWithMeter is the meter-injecting variant used by the
// server wiring and by tests that read back recorded metrics.
func HTTPMetricsWithMeter(meter metric.Meter, enabled bool) gin.HandlerFunc {
	if !enabled {
		return passthrough
	}

	metrics, err := newHTTPMetrics(meter)
	if err != nil {
		// Instrument registration failing must never take the server down.
		return passthrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		requestSize := requestBodySize(c)

		metrics.activeRequests.Add(ctx, 1)
		c.Next()
		metrics.activeRequests.Add(ctx, -1)

		metrics.record(ctx, requestSample{
			method:       c.Request.Method,
			route:        getRoutePattern(c),
			statusCode:   c.Writer.Status(),
			businessID:   getBusinessIDFromContext(c),
			duration:     time.Since(start),
			requestSize:  requestSize,
			responseSize: int64(c.Writer.Size()),
		})
	}
}

type requestSample struct {
	method       string
	route        string
	statusCode   int
	businessID   string
	duration     time.Duration
	requestSize  int64
	responseSize int64
}

func (m *httpMetrics) record(ctx context.Context, s requestSample) {
	// The counter carries status and tenant; the histograms stay on
	// method+route to keep series cardinality down.
	counterAttrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(s.method),
		telemetry.AttrHTTPRoute.String(s.route),
		telemetry.AttrHTTPStatusCode.Int(s.statusCode),
	}
	if s.businessID != "" {
		counterAttrs = append(counterAttrs, telemetry.AttrBusinessID.String(s.businessID))
	}
	m.requestTotal.Inc(ctx, counterAttrs...)

	histAttrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(s.method),
		telemetry.AttrHTTPRoute.String(s.route),
	}
	m.requestDuration.RecordDuration(ctx, s.duration, histAttrs...)
	if s.requestSize > 0 {
		m.requestSize.Record(ctx, float64(s.requestSize), histAttrs...)
	}
	if s.responseSize > 0 {
		m.responseSize.Record(ctx, float64(s.responseSize), histAttrs...)
	}
}

// getRoutePattern reports the matched route pattern rather than the
// raw path so that /transactions/123 and /transactions/456 land in the
// same series.
func getRoutePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

func requestBodySize(c *gin.Context) int64 {
	if cl := c.Request.ContentLength; cl > 0 {
		return cl
	}
	return 0
}

// getBusinessIDFromContext reads the tenant set by the JWT middleware,
// if any.
func getBusinessIDFromContext(c *gin.Context) string {
	if v, exists := c.Get(JWTBusinessIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
