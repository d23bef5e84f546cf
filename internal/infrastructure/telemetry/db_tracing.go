package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds database tracing configuration.
type DBTracingConfig struct {
	Enabled          bool
	LogFullSQL       bool          // include bound SQL values in spans, dev only
	SlowQueryThresh  time.Duration // default 200ms
	DBSystem         string        // default "postgresql"
	WithoutVariables bool
}

// DefaultDBTracingConfig returns the production defaults: tracing off,
// variables stripped from statements.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

// DBTracingPlugin layers slow query detection and error marking on top of
// the otelgorm spans.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates the plugin; call RegisterOtelGorm to attach it.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// RegisterOtelGorm installs otelgorm on db together with the timing and
// slow query callbacks. A disabled config registers nothing.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	// Query parameters stay out of spans unless full SQL logging is on.
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

// registerCallbacks stamps the start time before every operation and
// annotates the otelgorm span after it.
func (p *DBTracingPlugin) registerCallbacks(db *gorm.DB) error {
	stampStart := func(db *gorm.DB) {
		if db.Statement.Context != nil {
			db.Statement.Context = WithQueryStartTime(db.Statement.Context)
		}
	}

	var firstErr error
	reg := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	reg(db.Callback().Create().Before("gorm:create").Register("db_tracing:before_create", stampStart))
	reg(db.Callback().Query().Before("gorm:query").Register("db_tracing:before_query", stampStart))
	reg(db.Callback().Update().Before("gorm:update").Register("db_tracing:before_update", stampStart))
	reg(db.Callback().Delete().Before("gorm:delete").Register("db_tracing:before_delete", stampStart))
	reg(db.Callback().Row().Before("gorm:row").Register("db_tracing:before_row", stampStart))
	reg(db.Callback().Raw().Before("gorm:raw").Register("db_tracing:before_raw", stampStart))

	reg(db.Callback().Create().After("gorm:create").Register("db_tracing:after_create", p.annotateSpan))
	reg(db.Callback().Query().After("gorm:query").Register("db_tracing:after_query", p.annotateSpan))
	reg(db.Callback().Update().After("gorm:update").Register("db_tracing:after_update", p.annotateSpan))
	reg(db.Callback().Delete().After("gorm:delete").Register("db_tracing:after_delete", p.annotateSpan))
	reg(db.Callback().Row().After("gorm:row").Register("db_tracing:after_row", p.annotateSpan))
	reg(db.Callback().Raw().After("gorm:raw").Register("db_tracing:after_raw", p.annotateSpan))

	return firstErr
}

// annotateSpan enriches the active query span with row counts, errors and
// a slow query marker.
func (p *DBTracingPlugin) annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, 2)
	if db.Statement.RowsAffected >= 0 {
		attrs = append(attrs, attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", db.Statement.Table))
	}
	span.SetAttributes(attrs...)

	// ErrRecordNotFound is expected behavior, not a span error.
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		if elapsed := time.Since(startTime); elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

// WithQueryStartTime stamps ctx with the current time for the slow query
// callback to measure against.
func WithQueryStartTime(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryStartTimeKey, time.Now())
}
