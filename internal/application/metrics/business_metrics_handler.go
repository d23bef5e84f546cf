// Package metrics wires domain events into OpenTelemetry business metrics.
package metrics

import (
	"context"

	"github.com/tallybook/backend/internal/domain/banking"
	"github.com/tallybook/backend/internal/domain/document"
	"github.com/tallybook/backend/internal/domain/ledger"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// BusinessMetricsHandler increments business counters as domain events flow
// through the bus. Keeping the instrumentation here means services stay free
// of metrics calls and every code path that emits an event is counted,
// including bank record conversion and bulk imports.
type BusinessMetricsHandler struct {
	metrics *telemetry.BusinessMetrics
	logger  *zap.Logger
}

// NewBusinessMetricsHandler creates a handler that feeds the given metrics recorder.
func NewBusinessMetricsHandler(metrics *telemetry.BusinessMetrics, logger *zap.Logger) *BusinessMetricsHandler {
	return &BusinessMetricsHandler{
		metrics: metrics,
		logger:  logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *BusinessMetricsHandler) EventTypes() []string {
	return []string{
		ledger.EventTypeTransactionRecorded,
		ledger.EventTypeTransactionPaymentApplied,
		banking.EventTypeBankRecordProcessed,
		document.EventTypeDocumentCreated,
	}
}

// Handle records the metric matching the event. Unknown events are ignored so
// a wider subscription never breaks the bus.
func (h *BusinessMetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ledger.TransactionRecordedEvent:
		h.metrics.RecordTransaction(ctx, e.BusinessID(), string(e.Type), e.Total)

	case *ledger.TransactionPaymentAppliedEvent:
		// The event carries the resulting status, so the counter is labeled
		// by payment_status rather than by payment method.
		h.metrics.RecordPaymentApplied(ctx, e.BusinessID(), string(e.PaymentStatus))

	case *banking.BankRecordProcessedEvent:
		h.metrics.RecordBankRecordConverted(ctx, e.BusinessID())

	case *document.DocumentCreatedEvent:
		h.metrics.RecordDocumentIssued(ctx, e.BusinessID(), string(e.Type))

	default:
		h.logger.Debug("metrics handler received unhandled event",
			zap.String("event_type", event.EventType()),
		)
	}

	return nil
}

// Verify interface compliance
var _ shared.EventHandler = (*BusinessMetricsHandler)(nil)
