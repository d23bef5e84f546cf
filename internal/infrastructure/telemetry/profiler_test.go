package telemetry_test

import (
	"sync"
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tallybook/backend/internal/infrastructure/telemetry"
)

func newNoopProfiler(t *testing.T, cfg telemetry.ProfilerConfig) *telemetry.Profiler {
	t.Helper()
	cfg.Enabled = false
	profiler, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, profiler)
	t.Cleanup(func() { _ = profiler.Stop() })
	return profiler
}

func TestNewProfiler(t *testing.T) {
	t.Run("disabled is a working no-op", func(t *testing.T) {
		profiler := newNoopProfiler(t, telemetry.ProfilerConfig{
			ServerAddress:   "http://localhost:4040",
			ApplicationName: "tally-backend",
		})

		assert.False(t, profiler.IsEnabled())
		assert.NoError(t, profiler.Stop())
	})

	t.Run("enabled requires server address", func(t *testing.T) {
		_, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
			Enabled:         true,
			ApplicationName: "tally-backend",
		}, zaptest.NewLogger(t))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "server address is required")
	})

	t.Run("enabled requires application name", func(t *testing.T) {
		_, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
			Enabled:       true,
			ServerAddress: "http://localhost:4040",
		}, zaptest.NewLogger(t))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "application name is required")
	})
}

func TestProfiler_Stop(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		profiler := newNoopProfiler(t, telemetry.ProfilerConfig{})

		for range 3 {
			assert.NoError(t, profiler.Stop())
		}
	})

	t.Run("concurrent", func(t *testing.T) {
		profiler := newNoopProfiler(t, telemetry.ProfilerConfig{})

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = profiler.Stop()
			}()
		}
		wg.Wait()
	})
}

func TestProfiler_GetConfig(t *testing.T) {
	cfg := telemetry.ProfilerConfig{
		ServerAddress:     "http://localhost:4040",
		ApplicationName:   "tally-backend",
		BasicAuthUser:     "tenant",
		BasicAuthPassword: "secret",
		DisableGCRuns:     true,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileInuseSpace,
		},
		MutexProfileFraction: 10,
		BlockProfileRate:     10,
	}

	got := newNoopProfiler(t, cfg).GetConfig()

	assert.Equal(t, "tally-backend", got.ApplicationName)
	assert.Equal(t, "tenant", got.BasicAuthUser)
	assert.Equal(t, "secret", got.BasicAuthPassword)
	assert.True(t, got.DisableGCRuns)
	assert.Equal(t, cfg.ProfileTypes, got.ProfileTypes)
	assert.Equal(t, 10, got.MutexProfileFraction)
	assert.Equal(t, 10, got.BlockProfileRate)
}
