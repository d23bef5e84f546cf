package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig holds configuration for database metrics collection.
type DBMetricsConfig struct {
	Enabled bool
	// SlowQueryThreshold marks queries above it as slow (default 200ms).
	SlowQueryThreshold time.Duration
	// PoolStatsInterval is the sampling period for pool statistics (default 15s).
	PoolStatsInterval time.Duration
}

// DefaultDBMetricsConfig returns default configuration for database metrics.
func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{Enabled: true}.withDefaults()
}

func (c DBMetricsConfig) withDefaults() DBMetricsConfig {
	if c.SlowQueryThreshold == 0 {
		c.SlowQueryThreshold = 200 * time.Millisecond
	}
	if c.PoolStatsInterval == 0 {
		c.PoolStatsInterval = 15 * time.Second
	}
	return c
}

// DBMetrics records query counters, latency histograms and connection
// pool gauges for the ledger database.
type DBMetrics struct {
	poolConnections    *Gauge
	poolConnectionsMax *Gauge
	queryTotal         *Counter
	queryDuration      *Histogram
	slowQueryTotal     *Counter

	config   DBMetricsConfig
	logger   *zap.Logger
	sqlDB    *sql.DB
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopOnce sync.Once
}

// NewDBMetrics registers the database instruments on the meter. The
// closures keep the first registration error and no-op afterwards.
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var err error
	counter := func(name, description, unit string) (c *Counter) {
		if err == nil {
			c, err = NewCounter(meter, name, description, unit)
		}
		return c
	}
	gauge := func(name, description, unit string) (g *Gauge) {
		if err == nil {
			g, err = NewGauge(meter, name, description, unit)
		}
		return g
	}

	m := &DBMetrics{
		config: cfg.withDefaults(),
		logger: logger,
		stopCh: make(chan struct{}),

		poolConnections:    gauge("db_pool_connections", "Number of connections in the pool by state", "{connection}"),
		poolConnectionsMax: gauge("db_pool_connections_max", "Maximum number of connections in the pool", "{connection}"),
		queryTotal:         counter("db_query_total", "Total number of database queries by operation type", "{query}"),
		slowQueryTotal:     counter("db_slow_query_total", "Total number of slow database queries (>200ms by default)", "{query}"),
	}
	if err == nil {
		m.queryDuration, err = NewHistogram(meter, HistogramOpts{
			Name:        "db_query_duration_seconds",
			Description: "Database query latency distribution in seconds",
			Unit:        "s",
			Boundaries:  DBDurationBuckets,
		})
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SetSQLDB sets the sql.DB instance for connection pool metrics collection.
// This must be called before StartPoolStatsCollection.
func (m *DBMetrics) SetSQLDB(sqlDB *sql.DB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sqlDB = sqlDB
}

func (m *DBMetrics) db() *sql.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sqlDB
}

// StartPoolStatsCollection starts a goroutine that periodically samples
// connection pool statistics. Call Stop to terminate it.
func (m *DBMetrics) StartPoolStatsCollection(ctx context.Context) {
	if m.db() == nil {
		m.logger.Warn("Cannot start pool stats collection: sqlDB not set")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.config.PoolStatsInterval)
		defer ticker.Stop()

		m.collectPoolStats(ctx)
		for {
			select {
			case <-ticker.C:
				m.collectPoolStats(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	m.logger.Info("Started database connection pool stats collection",
		zap.Duration("interval", m.config.PoolStatsInterval),
	)
}

func (m *DBMetrics) collectPoolStats(ctx context.Context) {
	sqlDB := m.db()
	if sqlDB == nil {
		return
	}
	stats := sqlDB.Stats()

	m.poolConnectionsMax.Record(ctx, int64(stats.MaxOpenConnections))

	// OpenConnections = Idle + InUse. WaitCount is cumulative, not a state.
	for state, n := range map[string]int{
		"idle":   stats.Idle,
		"in_use": stats.InUse,
		"open":   stats.OpenConnections,
	} {
		m.poolConnections.Record(ctx, int64(n), AttrDBState.String(state))
	}
}

// Stop stops the pool stats collection goroutine. Safe to call multiple times.
func (m *DBMetrics) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.wg.Wait()
		m.logger.Debug("Database metrics stopped")
	})
}

// RecordQuery records the counters and latency for a completed query.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation string, table string, duration time.Duration, err error) {
	if operation = strings.ToUpper(operation); operation == "" {
		operation = "UNKNOWN"
	}

	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, duration, AttrDBOperation.String(operation))

	if duration > m.config.SlowQueryThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// DBMetricsPlugin is a GORM plugin that collects query metrics.
type DBMetricsPlugin struct {
	metrics *DBMetrics
	logger  *zap.Logger
}

// NewDBMetricsPlugin creates a new GORM plugin for database metrics.
func NewDBMetricsPlugin(metrics *DBMetrics, logger *zap.Logger) *DBMetricsPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBMetricsPlugin{metrics: metrics, logger: logger}
}

// Name returns the plugin name.
func (p *DBMetricsPlugin) Name() string {
	return "db_metrics"
}

// Initialize registers start-time and recording callbacks around every
// GORM operation. Row and Raw carry arbitrary SQL, so their operation
// is sniffed from the statement text instead of assumed.
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	record := func(operation string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			op := operation
			if op == "" {
				op = detectOperationType(db.Statement.SQL.String())
			}
			p.recordMetrics(db, op)
		}
	}
	sniffed := "" // Row and Raw carry arbitrary SQL

	err := errors.Join(
		db.Callback().Create().Before("gorm:create").Register("db_metrics:before_create", stampQueryStart),
		db.Callback().Query().Before("gorm:query").Register("db_metrics:before_query", stampQueryStart),
		db.Callback().Update().Before("gorm:update").Register("db_metrics:before_update", stampQueryStart),
		db.Callback().Delete().Before("gorm:delete").Register("db_metrics:before_delete", stampQueryStart),
		db.Callback().Row().Before("gorm:row").Register("db_metrics:before_row", stampQueryStart),
		db.Callback().Raw().Before("gorm:raw").Register("db_metrics:before_raw", stampQueryStart),

		db.Callback().Create().After("gorm:create").Register("db_metrics:after_create", record("INSERT")),
		db.Callback().Query().After("gorm:query").Register("db_metrics:after_query", record("SELECT")),
		db.Callback().Update().After("gorm:update").Register("db_metrics:after_update", record("UPDATE")),
		db.Callback().Delete().After("gorm:delete").Register("db_metrics:after_delete", record("DELETE")),
		db.Callback().Row().After("gorm:row").Register("db_metrics:after_row", record(sniffed)),
		db.Callback().Raw().After("gorm:raw").Register("db_metrics:after_raw", record(sniffed)),
	)
	if err != nil {
		return err
	}

	p.logger.Info("Database metrics plugin initialized")
	return nil
}

// statementContext never returns nil even for statements built without one.
func statementContext(db *gorm.DB) context.Context {
	if db.Statement.Context != nil {
		return db.Statement.Context
	}
	return context.Background()
}

func stampQueryStart(db *gorm.DB) {
	db.Statement.Context = context.WithValue(statementContext(db), dbMetricsStartTimeKey, time.Now())
}

func (p *DBMetricsPlugin) recordMetrics(db *gorm.DB, operation string) {
	ctx := statementContext(db)

	var duration time.Duration
	if startTime, ok := ctx.Value(dbMetricsStartTimeKey).(time.Time); ok {
		duration = time.Since(startTime)
	}

	p.metrics.RecordQuery(ctx, operation, db.Statement.Table, duration, db.Error)
}

// detectOperationType sniffs the SQL operation type from the query text.
func detectOperationType(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))

	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}

type dbMetricsContextKey string

const dbMetricsStartTimeKey dbMetricsContextKey = "db_metrics_start_time"

// RegisterDBMetrics creates and registers database metrics on a GORM DB
// instance. It returns the DBMetrics instance for lifecycle management;
// call Stop on shutdown.
func RegisterDBMetrics(db *gorm.DB, meterProvider *MeterProvider, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	switch {
	case !cfg.Enabled:
		logger.Debug("Database metrics disabled, skipping registration")
		return nil, nil
	case meterProvider == nil || !meterProvider.IsEnabled():
		logger.Debug("MeterProvider not available, skipping database metrics")
		return nil, nil
	}

	metrics, err := NewDBMetrics(meterProvider.Meter("db.client"), cfg, logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	metrics.SetSQLDB(sqlDB)

	if err := db.Use(NewDBMetricsPlugin(metrics, logger)); err != nil {
		return nil, err
	}

	logger.Info("Database metrics registered",
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
		zap.Duration("pool_stats_interval", cfg.PoolStatsInterval),
	)

	return metrics, nil
}
