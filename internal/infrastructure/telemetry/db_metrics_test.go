package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newDBMetrics builds a DBMetrics over an isolated manual-reader meter.
func newDBMetrics(t *testing.T, cfg DBMetricsConfig) (*DBMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	metrics, err := NewDBMetrics(provider.Meter("db.client.test"), cfg, zap.NewNop())
	require.NoError(t, err)
	return metrics, reader
}

// collectedMetric returns the named instrument's data, or nil when
// nothing was recorded under that name.
func collectedMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m.Data
			}
		}
	}
	return nil
}

// openMockedGorm opens a GORM handle over a sqlmock connection.
func openMockedGorm(t *testing.T) *gorm.DB {
	t.Helper()

	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB
}

func TestDBMetricsConfig_Defaults(t *testing.T) {
	cfg := DefaultDBMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold)
	assert.Equal(t, 15*time.Second, cfg.PoolStatsInterval)

	t.Run("zero values are filled in", func(t *testing.T) {
		metrics, _ := newDBMetrics(t, DBMetricsConfig{})

		assert.Equal(t, 200*time.Millisecond, metrics.config.SlowQueryThreshold)
		assert.Equal(t, 15*time.Second, metrics.config.PoolStatsInterval)
	})

	t.Run("nil logger becomes nop", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

		metrics, err := NewDBMetrics(provider.Meter("db.client.test"), DefaultDBMetricsConfig(), nil)
		require.NoError(t, err)
		assert.NotNil(t, metrics.logger)
	})
}

func TestDBMetrics_RecordQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("records count and duration", func(t *testing.T) {
		metrics, reader := newDBMetrics(t, DefaultDBMetricsConfig())

		metrics.RecordQuery(ctx, "SELECT", "transactions", 50*time.Millisecond, nil)

		assert.NotNil(t, collectedMetric(t, reader, "db_query_total"))
		assert.NotNil(t, collectedMetric(t, reader, "db_query_duration_seconds"))
	})

	t.Run("slow query classification", func(t *testing.T) {
		cfg := DBMetricsConfig{Enabled: true, SlowQueryThreshold: 100 * time.Millisecond}

		t.Run("above threshold counts", func(t *testing.T) {
			metrics, reader := newDBMetrics(t, cfg)

			metrics.RecordQuery(ctx, "SELECT", "transactions", 250*time.Millisecond, nil)

			assert.NotNil(t, collectedMetric(t, reader, "db_slow_query_total"))
		})

		t.Run("under threshold does not", func(t *testing.T) {
			metrics, reader := newDBMetrics(t, cfg)

			metrics.RecordQuery(ctx, "SELECT", "items", 50*time.Millisecond, nil)

			assert.Nil(t, collectedMetric(t, reader, "db_slow_query_total"))
		})
	})

	t.Run("normalizes operation and table", func(t *testing.T) {
		metrics, reader := newDBMetrics(t, DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: 50 * time.Millisecond,
		})

		metrics.RecordQuery(ctx, "select", "contacts", 10*time.Millisecond, nil)
		metrics.RecordQuery(ctx, "Insert", "contacts", 10*time.Millisecond, nil)
		metrics.RecordQuery(ctx, "", "contacts", 10*time.Millisecond, nil)
		// Slow query with no table falls back to "unknown".
		metrics.RecordQuery(ctx, "SELECT", "", 100*time.Millisecond, nil)

		assert.NotNil(t, collectedMetric(t, reader, "db_query_total"))
		assert.NotNil(t, collectedMetric(t, reader, "db_slow_query_total"))
	})
}

func TestDBMetrics_PoolStatsCollection(t *testing.T) {
	withMockDB := func(t *testing.T, interval time.Duration) (*DBMetrics, *sdkmetric.ManualReader) {
		mockDB, _, err := sqlmock.New()
		require.NoError(t, err)
		t.Cleanup(func() { _ = mockDB.Close() })

		metrics, reader := newDBMetrics(t, DBMetricsConfig{Enabled: true, PoolStatsInterval: interval})
		metrics.SetSQLDB(mockDB)
		return metrics, reader
	}

	t.Run("samples pool gauges", func(t *testing.T) {
		metrics, reader := withMockDB(t, 50*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		metrics.StartPoolStatsCollection(ctx)
		time.Sleep(100 * time.Millisecond)
		metrics.Stop()

		assert.NotNil(t, collectedMetric(t, reader, "db_pool_connections_max"))
		assert.NotNil(t, collectedMetric(t, reader, "db_pool_connections"))
	})

	t.Run("refuses to start without a sql.DB", func(t *testing.T) {
		metrics, _ := newDBMetrics(t, DefaultDBMetricsConfig())

		metrics.StartPoolStatsCollection(context.Background())
		metrics.Stop()
	})

	t.Run("context cancellation ends the loop", func(t *testing.T) {
		metrics, _ := withMockDB(t, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		metrics.StartPoolStatsCollection(ctx)
		cancel()
		metrics.Stop()
	})

	t.Run("Stop returns promptly and is idempotent", func(t *testing.T) {
		metrics, _ := withMockDB(t, 100*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		metrics.StartPoolStatsCollection(ctx)

		done := make(chan struct{})
		go func() {
			metrics.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Stop blocked for too long")
		}

		assert.NotPanics(t, metrics.Stop)
		assert.NotPanics(t, metrics.Stop)
	})
}

func TestDBMetricsPlugin_Initialize(t *testing.T) {
	metrics, _ := newDBMetrics(t, DefaultDBMetricsConfig())

	plugin := NewDBMetricsPlugin(metrics, zap.NewNop())

	assert.Equal(t, "db_metrics", plugin.Name())
	require.NoError(t, plugin.Initialize(openMockedGorm(t)))
}

func TestDetectOperationType(t *testing.T) {
	tests := map[string]string{
		"SELECT * FROM transactions":                 "SELECT",
		"select id from transactions":                "SELECT",
		"  SELECT id FROM transactions":              "SELECT",
		"INSERT INTO contacts (name) VALUES ('x')":   "INSERT",
		"UPDATE items SET name = 'x'":                "UPDATE",
		"delete from documents":                      "DELETE",
		"CREATE TABLE transactions":                  "OTHER",
		"TRUNCATE TABLE transactions":                "OTHER",
		"":                                           "OTHER",
	}

	for sql, want := range tests {
		assert.Equal(t, want, detectOperationType(sql), "sql %q", sql)
	}
}

func TestRegisterDBMetrics(t *testing.T) {
	logger := zap.NewNop()

	t.Run("disabled config returns nil", func(t *testing.T) {
		metrics, err := RegisterDBMetrics(openMockedGorm(t), nil, DBMetricsConfig{Enabled: false}, logger)

		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("nil meter provider returns nil", func(t *testing.T) {
		metrics, err := RegisterDBMetrics(openMockedGorm(t), nil, DBMetricsConfig{Enabled: true}, logger)

		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("registers when enabled", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		sdkProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		t.Cleanup(func() { _ = sdkProvider.Shutdown(context.Background()) })

		mp := &MeterProvider{
			provider: sdkProvider,
			logger:   logger,
			config:   MetricsConfig{Enabled: true},
		}

		metrics, err := RegisterDBMetrics(openMockedGorm(t), mp, DefaultDBMetricsConfig(), logger)

		require.NoError(t, err)
		require.NotNil(t, metrics)
	})
}

func TestDBMetrics_ConcurrentRecordQuery(t *testing.T) {
	ctx := context.Background()
	metrics, reader := newDBMetrics(t, DefaultDBMetricsConfig())

	operations := []string{"SELECT", "INSERT", "UPDATE", "DELETE"}
	tables := []string{"transactions", "contacts", "items", "documents"}

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			metrics.RecordQuery(ctx, operations[i%4], tables[i%4], time.Duration(i)*time.Millisecond, nil)
		}()
	}
	wg.Wait()

	assert.NotNil(t, collectedMetric(t, reader, "db_query_total"))
}
