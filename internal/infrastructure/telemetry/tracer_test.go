package telemetry_test

import (
	"context"
	"sync"
	"testing"

	"github.com/tallybook/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func noopTracerProvider(t *testing.T, samplingRatio float64) *telemetry.TracerProvider {
	t.Helper()
	tp, err := telemetry.NewTracerProvider(t.Context(), telemetry.Config{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     samplingRatio,
		ServiceName:       "tallybook-backend",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return tp
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp := noopTracerProvider(t, 1.0)

	assert.False(t, tp.IsEnabled())
	assert.Equal(t, "tallybook-backend", tp.GetConfig().ServiceName)
	assert.NoError(t, tp.ForceFlush(t.Context()))
	assert.NoError(t, tp.Shutdown(t.Context()))
	assert.NoError(t, tp.Shutdown(t.Context()), "repeated shutdown is safe")
}

func TestNewTracerProvider_SamplingRatios(t *testing.T) {
	// Each ratio picks a different sampler branch; all must construct cleanly.
	for _, ratio := range []float64{0.0, 0.5, 1.0} {
		tp := noopTracerProvider(t, ratio)
		assert.NoError(t, tp.Shutdown(t.Context()))
	}
}

func TestTracerProvider_Tracer_Disabled(t *testing.T) {
	tp := noopTracerProvider(t, 1.0)

	tracer := tp.Tracer("ledger")
	require.NotNil(t, tracer, "disabled provider still hands out a usable tracer")

	_, span := tracer.Start(t.Context(), "record-transaction")
	span.End()
}

func TestTracerProvider_ShutdownWithCanceledContext(t *testing.T) {
	tp := noopTracerProvider(t, 1.0)

	canceled, cancel := context.WithCancel(t.Context())
	cancel()
	assert.NoError(t, tp.Shutdown(canceled), "no pipeline, nothing to flush")
}

func TestTracerProvider_SpanProfiles(t *testing.T) {
	t.Run("no-op while tracing disabled", func(t *testing.T) {
		tp := noopTracerProvider(t, 1.0)
		assert.False(t, tp.IsSpanProfilesEnabled())
		assert.NoError(t, tp.EnableSpanProfiles())
		assert.False(t, tp.IsSpanProfilesEnabled(), "nothing to wrap without a pipeline")
	})

	t.Run("concurrent enable is race free", func(t *testing.T) {
		tp := noopTracerProvider(t, 1.0)

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = tp.EnableSpanProfiles()
				_ = tp.IsSpanProfilesEnabled()
			}()
		}
		wg.Wait()

		assert.False(t, tp.IsSpanProfilesEnabled())
	})
}
