package telemetry_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/tallybook/backend/internal/infrastructure/telemetry"
)

func newBusinessMetrics(t *testing.T, cfg telemetry.BusinessMetricsConfig) *telemetry.BusinessMetrics {
	t.Helper()
	if cfg.Meter == nil {
		cfg.Meter = noop.NewMeterProvider().Meter("test")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	bm, err := telemetry.NewBusinessMetrics(cfg)
	require.NoError(t, err)
	return bm
}

func TestNewBusinessMetrics(t *testing.T) {
	bm := newBusinessMetrics(t, telemetry.BusinessMetricsConfig{})
	require.NotNil(t, bm)

	t.Run("nil meter rejected", func(t *testing.T) {
		bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:  nil,
			Logger: zap.NewNop(),
		})
		require.Error(t, err)
		assert.Nil(t, bm)
		assert.Equal(t, "NewBusinessMetrics: meter cannot be nil", err.Error())
	})
}

// The noop meter swallows recordings; these exercise every instrument path
// to catch nil instruments or bad attribute plumbing.
func TestBusinessMetrics_Recorders(t *testing.T) {
	bm := newBusinessMetrics(t, telemetry.BusinessMetricsConfig{})
	ctx := context.Background()
	businessID := uuid.New()

	recorders := map[string]func(){
		"transaction sale":    func() { bm.RecordTransaction(ctx, businessID, "sale", decimal.NewFromFloat(199.99)) },
		"transaction expense": func() { bm.RecordTransaction(ctx, businessID, "expense", decimal.NewFromInt(50)) },
		"payment partial":     func() { bm.RecordPaymentApplied(ctx, businessID, "partial") },
		"payment paid":        func() { bm.RecordPaymentApplied(ctx, businessID, "paid") },
		"bank record":         func() { bm.RecordBankRecordConverted(ctx, businessID) },
		"receipt":             func() { bm.RecordDocumentIssued(ctx, businessID, "receipt") },
		"invoice":             func() { bm.RecordDocumentIssued(ctx, businessID, "invoice") },
		"low stock":           func() { bm.RecordLowStockCount(ctx, 5) },
		"out of stock":        func() { bm.RecordOutOfStockCount(ctx, 2) },
		"unprocessed records": func() { bm.RecordUnprocessedBankRecords(ctx, 14) },
	}
	for name, record := range recorders {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, record)
		})
	}
}

type stubInventoryProvider struct {
	lowStock   int64
	outOfStock int64
	calls      atomic.Int64
	err        error
}

func (s *stubInventoryProvider) GetLowStockCount(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return s.lowStock, s.err
}

func (s *stubInventoryProvider) GetOutOfStockCount(ctx context.Context) (int64, error) {
	return s.outOfStock, s.err
}

type stubBankingProvider struct {
	unprocessed int64
	calls       atomic.Int64
	err         error
}

func (s *stubBankingProvider) GetUnprocessedRecordCount(ctx context.Context) (int64, error) {
	s.calls.Add(1)
	return s.unprocessed, s.err
}

func TestBusinessMetrics_PeriodicCollection(t *testing.T) {
	t.Run("samples every configured provider", func(t *testing.T) {
		inventory := &stubInventoryProvider{lowStock: 5, outOfStock: 2}
		banking := &stubBankingProvider{unprocessed: 14}
		bm := newBusinessMetrics(t, telemetry.BusinessMetricsConfig{
			InventoryProvider: inventory,
			BankingProvider:   banking,
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		bm.StartPeriodicCollection(ctx, 100*time.Millisecond)

		time.Sleep(150 * time.Millisecond)
		bm.Stop()

		assert.GreaterOrEqual(t, inventory.calls.Load(), int64(1))
		assert.GreaterOrEqual(t, banking.calls.Load(), int64(1))
	})

	t.Run("no providers configured", func(t *testing.T) {
		bm := newBusinessMetrics(t, telemetry.BusinessMetricsConfig{})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		assert.NotPanics(t, func() {
			bm.StartPeriodicCollection(ctx, 50*time.Millisecond)
			time.Sleep(100 * time.Millisecond)
			bm.Stop()
		})
	})

	t.Run("provider errors are logged, not fatal", func(t *testing.T) {
		inventory := &stubInventoryProvider{err: assert.AnError}
		bm := newBusinessMetrics(t, telemetry.BusinessMetricsConfig{
			InventoryProvider: inventory,
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		bm.StartPeriodicCollection(ctx, 50*time.Millisecond)

		time.Sleep(100 * time.Millisecond)
		bm.Stop()

		assert.GreaterOrEqual(t, inventory.calls.Load(), int64(1))
	})

	t.Run("start is once-only", func(t *testing.T) {
		bm := newBusinessMetrics(t, telemetry.BusinessMetricsConfig{})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		bm.StartPeriodicCollection(ctx, time.Hour)
		bm.StartPeriodicCollection(ctx, time.Minute)
		bm.StartPeriodicCollection(ctx, time.Second)
		bm.Stop()
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		bm := newBusinessMetrics(t, telemetry.BusinessMetricsConfig{})

		assert.NotPanics(t, func() {
			bm.Stop()
			bm.Stop()
			bm.Stop()
		})
	})
}

func TestMetricsError_Error(t *testing.T) {
	err := &telemetry.MetricsError{Op: "RegisterInstrument", Err: "duplicate name"}
	assert.Equal(t, "RegisterInstrument: duplicate name", err.Error())
}
