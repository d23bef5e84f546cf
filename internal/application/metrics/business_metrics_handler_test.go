package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tallybook/backend/internal/domain/banking"
	"github.com/tallybook/backend/internal/domain/document"
	"github.com/tallybook/backend/internal/domain/ledger"
	"github.com/tallybook/backend/internal/domain/shared/valueobject"
	"github.com/tallybook/backend/internal/infrastructure/telemetry"
)

func newTestBusinessID() uuid.UUID {
	return uuid.MustParse("11111111-1111-1111-1111-111111111111")
}

func newTestMetrics(t *testing.T) *telemetry.BusinessMetrics {
	t.Helper()
	meter := noop.NewMeterProvider().Meter("test")
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	return bm
}

// createTestSale builds a sale of 2 x 50 with nothing paid
func createTestSale(t *testing.T, businessID uuid.UUID) *ledger.Transaction {
	t.Helper()
	line, err := ledger.NewLineItem("Widget", 2, valueobject.MustMoney(decimal.NewFromInt(50), valueobject.USD))
	require.NoError(t, err)
	tx, err := ledger.NewTransaction(
		businessID,
		ledger.TransactionTypeSale,
		time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
		valueobject.USD,
		[]ledger.LineItem{line},
		decimal.Zero,
		decimal.Zero,
		ledger.PaymentMethodCash,
	)
	require.NoError(t, err)
	return tx
}

func TestBusinessMetricsHandler_EventTypes(t *testing.T) {
	handler := NewBusinessMetricsHandler(newTestMetrics(t), zap.NewNop())

	types := handler.EventTypes()

	assert.ElementsMatch(t, []string{
		ledger.EventTypeTransactionRecorded,
		ledger.EventTypeTransactionPaymentApplied,
		banking.EventTypeBankRecordProcessed,
		document.EventTypeDocumentCreated,
	}, types)
}

func TestBusinessMetricsHandler_Handle_TransactionRecorded(t *testing.T) {
	handler := NewBusinessMetricsHandler(newTestMetrics(t), zap.NewNop())

	tx := createTestSale(t, newTestBusinessID())
	event := ledger.NewTransactionRecordedEvent(tx)

	err := handler.Handle(context.Background(), event)

	assert.NoError(t, err)
}

func TestBusinessMetricsHandler_Handle_PaymentApplied(t *testing.T) {
	handler := NewBusinessMetricsHandler(newTestMetrics(t), zap.NewNop())

	tx := createTestSale(t, newTestBusinessID())
	require.NoError(t, tx.ApplyPayment(decimal.NewFromInt(40), ledger.PaymentMethodCard))
	event := ledger.NewTransactionPaymentAppliedEvent(tx, decimal.NewFromInt(40))

	err := handler.Handle(context.Background(), event)

	assert.NoError(t, err)
	assert.Equal(t, ledger.PaymentStatusPartiallyPaid, event.PaymentStatus)
}

func TestBusinessMetricsHandler_Handle_BankRecordProcessed(t *testing.T) {
	handler := NewBusinessMetricsHandler(newTestMetrics(t), zap.NewNop())

	record, err := banking.NewBankPaymentRecord(
		newTestBusinessID(),
		time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		banking.BankRecordTypeMoneyIn,
		"Customer payment",
		decimal.NewFromInt(120),
		"Acme Ltd",
	)
	require.NoError(t, err)
	event := banking.NewBankRecordProcessedEvent(record)

	err = handler.Handle(context.Background(), event)

	assert.NoError(t, err)
}

func TestBusinessMetricsHandler_Handle_DocumentCreated(t *testing.T) {
	handler := NewBusinessMetricsHandler(newTestMetrics(t), zap.NewNop())

	doc, err := document.NewDocument(newTestBusinessID(), uuid.New(), document.DocumentTypeReceipt, "RCPT-202506-00001")
	require.NoError(t, err)
	event := document.NewDocumentCreatedEvent(doc)

	err = handler.Handle(context.Background(), event)

	assert.NoError(t, err)
}

func TestBusinessMetricsHandler_Handle_IgnoresUnknownEvent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	handler := NewBusinessMetricsHandler(newTestMetrics(t), zap.New(core))

	tx := createTestSale(t, newTestBusinessID())
	event := ledger.NewTransactionDeletedEvent(tx)

	err := handler.Handle(context.Background(), event)

	assert.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "metrics handler received unhandled event", logs.All()[0].Message)
}
