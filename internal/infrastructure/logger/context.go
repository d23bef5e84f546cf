package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contextKey keeps this package's context values from colliding with
// other packages.
type contextKey string

const (
	// LoggerKey carries the request-scoped logger.
	LoggerKey contextKey = "logger"
	// RequestIDKey carries the request ID set by the middleware.
	RequestIDKey contextKey = "request_id"
	// BusinessIDKey carries the authenticated business.
	BusinessIDKey contextKey = "business_id"
)

// WithContext attaches the logger to the context.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the context's logger, or a no-op logger so the
// caller never nil-checks.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID and returns a context carrying a
// logger tagged with it.
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	tagged := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, tagged), tagged
}

// WithBusinessID stores the business ID and returns a context carrying a
// logger tagged with it.
func WithBusinessID(ctx context.Context, logger *zap.Logger, businessID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, BusinessIDKey, businessID)
	tagged := logger.With(zap.String("business_id", businessID))
	return WithContext(ctx, tagged), tagged
}

// GetRequestID returns the request ID stored in the context, if any.
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDKey).(string)
	return requestID
}

// GetBusinessID returns the business ID stored in the context, if any.
func GetBusinessID(ctx context.Context) string {
	businessID, _ := ctx.Value(BusinessIDKey).(string)
	return businessID
}

// spanFields builds trace correlation fields from the active span.
// Returns nil when no sampling tracer is installed.
func spanFields(ctx context.Context) []zap.Field {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

// WithTraceContext tags the logger with trace_id and span_id from the
// context's span. Without a valid span the logger is returned unchanged.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if fields := spanFields(ctx); fields != nil {
		return logger.With(fields...)
	}
	return logger
}

// ContextLogger logs with automatic correlation: every entry gets
// trace_id, span_id, request_id and business_id when the context has
// them, so log lines can be joined to traces without plumbing fields
// through each call site.
type ContextLogger struct {
	ctx  context.Context
	base *zap.Logger
}

// L wraps the context's logger. Usage:
//
//	logger.L(ctx).Info("transaction recorded", zap.String("id", id))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, base: FromContext(ctx)}
}

// WithLogger is L with an explicit logger, for callers that hold an
// injected one instead of relying on the context.
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	return &ContextLogger{ctx: ctx, base: logger}
}

func (cl *ContextLogger) enrich() *zap.Logger {
	l := cl.base
	if l == nil {
		l = zap.NewNop()
	}
	if fields := spanFields(cl.ctx); fields != nil {
		l = l.With(fields...)
	}
	if requestID := GetRequestID(cl.ctx); requestID != "" {
		l = l.With(zap.String("request_id", requestID))
	}
	if businessID := GetBusinessID(cl.ctx); businessID != "" {
		l = l.With(zap.String("business_id", businessID))
	}
	return l
}

// With returns a child ContextLogger carrying extra fields.
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, base: cl.base.With(fields...)}
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.enrich().Debug(msg, fields...)
}

func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.enrich().Info(msg, fields...)
}

func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.enrich().Warn(msg, fields...)
}

func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.enrich().Error(msg, fields...)
}

// Zap hands back the enriched *zap.Logger for APIs that want one.
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.enrich()
}

// Sugar returns the enriched logger's sugared form.
func (cl *ContextLogger) Sugar() *zap.SugaredLogger {
	return cl.enrich().Sugar()
}
