package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLogsProvider(t *testing.T, cfg LogsConfig) *LoggerProvider {
	t.Helper()
	provider, err := NewLoggerProvider(t.Context(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(t.Context()) })
	return provider
}

func TestNewLoggerProvider(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		provider := newLogsProvider(t, LogsConfig{
			Enabled:           false,
			CollectorEndpoint: "localhost:14317",
			ServiceName:       "tallybook-backend",
		})
		assert.False(t, provider.IsEnabled())
		assert.Nil(t, provider.GetLoggerProvider())
		assert.NoError(t, provider.ForceFlush(t.Context()))
	})

	// The OTLP exporter connects lazily, so construction succeeds even when
	// nothing listens on the endpoint. Records buffer until shutdown.
	t.Run("enabled without collector", func(t *testing.T) {
		provider := newLogsProvider(t, LogsConfig{
			Enabled:           true,
			CollectorEndpoint: "localhost:19999",
			ServiceName:       "tallybook-backend",
			Insecure:          true,
		})
		assert.True(t, provider.IsEnabled())
		assert.NotNil(t, provider.GetLoggerProvider())
	})

	t.Run("config round trip", func(t *testing.T) {
		cfg := LogsConfig{CollectorEndpoint: "otel:4317", ServiceName: "tallybook-backend", Insecure: true}
		assert.Equal(t, cfg, newLogsProvider(t, cfg).GetConfig())
	})

	t.Run("repeated shutdown", func(t *testing.T) {
		provider := newLogsProvider(t, LogsConfig{})
		assert.NoError(t, provider.Shutdown(t.Context()))
		assert.NoError(t, provider.Shutdown(t.Context()))
	})
}

func TestNewZapOTELCore(t *testing.T) {
	t.Run("nil provider yields nop core", func(t *testing.T) {
		core := NewZapOTELCore(ZapBridgeConfig{ServiceName: "tallybook-backend", Level: zapcore.InfoLevel})
		assert.False(t, core.Enabled(zapcore.ErrorLevel))
	})

	t.Run("disabled provider yields nop core", func(t *testing.T) {
		core := NewZapOTELCore(ZapBridgeConfig{
			ServiceName:    "tallybook-backend",
			LoggerProvider: newLogsProvider(t, LogsConfig{Enabled: false}),
			Level:          zapcore.InfoLevel,
		})
		assert.False(t, core.Enabled(zapcore.ErrorLevel))
	})

	t.Run("debug level passes everything through", func(t *testing.T) {
		core := NewZapOTELCore(ZapBridgeConfig{
			ServiceName:    "tallybook-backend",
			LoggerProvider: newLogsProvider(t, LogsConfig{Enabled: true, CollectorEndpoint: "localhost:19999", Insecure: true}),
			Level:          zapcore.DebugLevel,
		})
		for _, lvl := range []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel} {
			assert.True(t, core.Enabled(lvl), lvl.String())
		}
	})

	t.Run("higher level wraps with filter", func(t *testing.T) {
		core := NewZapOTELCore(ZapBridgeConfig{
			ServiceName:    "tallybook-backend",
			LoggerProvider: newLogsProvider(t, LogsConfig{Enabled: true, CollectorEndpoint: "localhost:19999", Insecure: true}),
			Level:          zapcore.WarnLevel,
		})
		_, filtered := core.(*levelFilterCore)
		assert.True(t, filtered)
		assert.False(t, core.Enabled(zapcore.InfoLevel))
		assert.True(t, core.Enabled(zapcore.WarnLevel))
	})
}

func TestLevelFilterCore(t *testing.T) {
	observed, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(&levelFilterCore{Core: observed, minLevel: zapcore.WarnLevel})

	logger.Debug("import started")
	logger.Info("statement row parsed")
	logger.Warn("duplicate statement row skipped")
	logger.Error("reconciliation failed")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "duplicate statement row skipped", entries[0].Message)
	assert.Equal(t, "reconciliation failed", entries[1].Message)
}

func TestLevelFilterCore_With(t *testing.T) {
	observed, logs := observer.New(zapcore.DebugLevel)
	base := &levelFilterCore{Core: observed, minLevel: zapcore.WarnLevel}

	child := base.With([]zapcore.Field{zap.String("business_id", "biz-456")})
	filtered, ok := child.(*levelFilterCore)
	require.True(t, ok, "With must keep the level filter")
	assert.Equal(t, zapcore.WarnLevel, filtered.minLevel)

	zap.New(child).Warn("overdraft detected")
	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Context, zap.String("business_id", "biz-456"))
}

func TestNewBridgedLogger(t *testing.T) {
	observed, logs := observer.New(zapcore.InfoLevel)
	logger := NewBridgedLogger(observed, zapcore.NewNopCore(), zap.AddCaller())

	logger.Info("transaction recorded", zap.String("transaction_id", "txn-789"))
	logger.Debug("below threshold")
	logger.Warn("receipt missing amount")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "transaction recorded", entries[0].Message)
	assert.Contains(t, entries[0].Context, zap.String("transaction_id", "txn-789"))
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestCreateBridgedLoggerFromConfig(t *testing.T) {
	logger, err := CreateBridgedLoggerFromConfig(&BaseLoggerConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, newLogsProvider(t, LogsConfig{Enabled: false}), "tallybook-backend")
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Info("ledger summary generated",
		zap.String("request_id", "req-123"),
		zap.String("business_id", "biz-456"),
	)
	_ = logger.Sync()
}

func TestDefaultBaseLoggerConfig(t *testing.T) {
	cfg := DefaultBaseLoggerConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for input, want := range cases {
		assert.Equal(t, want, levelFromString(input), "input %q", input)
	}
}

func TestNewLogEncoder(t *testing.T) {
	timeFormat := "2006-01-02T15:04:05.000Z07:00"
	entry := zapcore.Entry{Level: zapcore.InfoLevel, Message: "statement imported"}

	t.Run("json", func(t *testing.T) {
		buf, err := newLogEncoder(&BaseLoggerConfig{Format: "json", TimeFormat: timeFormat}).EncodeEntry(entry, nil)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `"level":"info"`)
		assert.Contains(t, buf.String(), `"msg":"statement imported"`)
	})

	t.Run("console", func(t *testing.T) {
		buf, err := newLogEncoder(&BaseLoggerConfig{Format: "console", TimeFormat: timeFormat}).EncodeEntry(entry, nil)
		require.NoError(t, err)
		assert.NotContains(t, buf.String(), `"level"`)
		assert.Contains(t, buf.String(), "statement imported")
	})
}

func TestNewBaseCore(t *testing.T) {
	core := newBaseCore(&BaseLoggerConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	assert.True(t, core.Enabled(zapcore.InfoLevel))
	assert.False(t, core.Enabled(zapcore.DebugLevel))
}

func TestNewLogWriter(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", "/var/log/tallybook.log"} {
		assert.NotNil(t, newLogWriter(output), output)
	}
}
