// Business-level metrics for the bookkeeping system: ledger activity,
// bank record conversion, document issuance, and stock health.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const defaultCollectInterval = 5 * time.Minute

// BusinessMetrics exposes counters fed by domain events and gauges sampled
// periodically from the database.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	transactionRecordedTotal *Counter
	transactionAmountTotal   *Counter
	paymentAppliedTotal      *Counter
	bankRecordConvertedTotal *Counter
	documentIssuedTotal      *Counter

	lowStockCount          *Gauge
	outOfStockCount        *Gauge
	unprocessedBankRecords *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	inventoryProvider InventoryMetricsProvider
	bankingProvider   BankingMetricsProvider
}

// InventoryMetricsProvider supplies stock counts for the periodic gauges.
// The interface keeps the telemetry layer from depending on the inventory
// domain directly.
type InventoryMetricsProvider interface {
	// GetLowStockCount returns the number of products at or below their
	// low stock threshold, excluding out-of-stock products.
	GetLowStockCount(ctx context.Context) (int64, error)

	// GetOutOfStockCount returns the number of products with zero quantity.
	GetOutOfStockCount(ctx context.Context) (int64, error)
}

// BankingMetricsProvider supplies the reconciliation backlog for the
// periodic gauges.
type BankingMetricsProvider interface {
	// GetUnprocessedRecordCount returns the number of imported bank records
	// that have not been converted into transactions yet.
	GetUnprocessedRecordCount(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter             metric.Meter
	Logger            *zap.Logger
	CollectInterval   time.Duration // default 5 minutes
	InventoryProvider InventoryMetricsProvider
	BankingProvider   BankingMetricsProvider
}

// NewBusinessMetrics registers every instrument on the configured meter.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:             cfg.Meter,
		logger:            logger,
		stopChan:          make(chan struct{}),
		inventoryProvider: cfg.InventoryProvider,
		bankingProvider:   cfg.BankingProvider,
	}

	// The closures keep the first registration error and turn the rest
	// into no-ops, so registration reads as a flat list.
	var err error
	counter := func(name, description, unit string) *Counter {
		if err != nil {
			return nil
		}
		var c *Counter
		c, err = NewCounter(cfg.Meter, name, description, unit)
		return c
	}
	gauge := func(name, description, unit string) *Gauge {
		if err != nil {
			return nil
		}
		var g *Gauge
		g, err = NewGauge(cfg.Meter, name, description, unit)
		return g
	}

	bm.transactionRecordedTotal = counter("tally_transaction_recorded_total",
		"Total number of ledger transactions recorded", "{transactions}")
	bm.transactionAmountTotal = counter("tally_transaction_amount_total",
		"Total transaction amount in minor currency units", "{minor_units}")
	bm.paymentAppliedTotal = counter("tally_payment_applied_total",
		"Total number of payments applied to transactions", "{payments}")
	bm.bankRecordConvertedTotal = counter("tally_bank_record_converted_total",
		"Total number of bank records converted into transactions", "{records}")
	bm.documentIssuedTotal = counter("tally_document_issued_total",
		"Total number of receipts and invoices issued", "{documents}")

	bm.lowStockCount = gauge("tally_inventory_low_stock_count",
		"Number of products at or below their low stock threshold", "{products}")
	bm.outOfStockCount = gauge("tally_inventory_out_of_stock_count",
		"Number of products with zero quantity", "{products}")
	bm.unprocessedBankRecords = gauge("tally_bank_unprocessed_records",
		"Number of imported bank records awaiting conversion", "{records}")

	if err != nil {
		return nil, err
	}
	return bm, nil
}

// RecordTransaction records a ledger transaction with its total amount.
// The amount is converted to minor currency units (cents) for the counter.
func (bm *BusinessMetrics) RecordTransaction(ctx context.Context, businessID uuid.UUID, transactionType string, total decimal.Decimal) {
	attrs := []attribute.KeyValue{
		AttrBusinessID.String(businessID.String()),
		AttrTransactionType.String(transactionType),
	}
	bm.transactionRecordedTotal.Inc(ctx, attrs...)
	bm.transactionAmountTotal.Add(ctx, total.Mul(decimal.NewFromInt(100)).IntPart(), attrs...)
}

// RecordPaymentApplied records a payment applied to a transaction, labeled
// with the payment status it produced (partial or paid).
func (bm *BusinessMetrics) RecordPaymentApplied(ctx context.Context, businessID uuid.UUID, paymentStatus string) {
	bm.paymentAppliedTotal.Inc(ctx,
		AttrBusinessID.String(businessID.String()),
		AttrPaymentStatus.String(paymentStatus),
	)
}

// RecordBankRecordConverted records a successful bank record conversion.
func (bm *BusinessMetrics) RecordBankRecordConverted(ctx context.Context, businessID uuid.UUID) {
	bm.bankRecordConvertedTotal.Inc(ctx, AttrBusinessID.String(businessID.String()))
}

// RecordDocumentIssued records an issued receipt or invoice.
func (bm *BusinessMetrics) RecordDocumentIssued(ctx context.Context, businessID uuid.UUID, documentType string) {
	bm.documentIssuedTotal.Inc(ctx,
		AttrBusinessID.String(businessID.String()),
		AttrDocumentType.String(documentType),
	)
}

// RecordLowStockCount sets the at-or-below-threshold product gauge.
func (bm *BusinessMetrics) RecordLowStockCount(ctx context.Context, count int64) {
	bm.lowStockCount.Record(ctx, count)
}

// RecordOutOfStockCount sets the zero-quantity product gauge.
func (bm *BusinessMetrics) RecordOutOfStockCount(ctx context.Context, count int64) {
	bm.outOfStockCount.Record(ctx, count)
}

// RecordUnprocessedBankRecords sets the reconciliation backlog gauge.
func (bm *BusinessMetrics) RecordUnprocessedBankRecords(ctx context.Context, count int64) {
	bm.unprocessedBankRecords.Record(ctx, count)
}

// StartPeriodicCollection samples the gauges every interval until Stop or
// ctx cancellation. Non-blocking; repeated calls start at most one loop.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = defaultCollectInterval
		}
		go bm.collectLoop(ctx, interval)
	})
}

func (bm *BusinessMetrics) collectLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collectGauges(ctx)
	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectGauges(ctx)
		}
	}
}

// collectGauges takes one sample from each configured provider. A failing
// provider is logged and skipped; the others still report.
func (bm *BusinessMetrics) collectGauges(ctx context.Context) {
	sample := func(what string, fetch func(context.Context) (int64, error), record func(context.Context, int64)) {
		count, err := fetch(ctx)
		if err != nil {
			bm.logger.Warn("Failed to collect "+what, zap.Error(err))
			return
		}
		record(ctx, count)
	}

	if p := bm.inventoryProvider; p != nil {
		sample("low stock count", p.GetLowStockCount, bm.RecordLowStockCount)
		sample("out of stock count", p.GetOutOfStockCount, bm.RecordOutOfStockCount)
	}
	if p := bm.bankingProvider; p != nil {
		sample("unprocessed bank record count", p.GetUnprocessedRecordCount, bm.RecordUnprocessedBankRecords)
	}
}

// Stop ends periodic collection. Safe to call more than once.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// ErrMeterNil is returned when no meter is configured.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
