package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tallybook/backend/internal/domain/inventory"
)

func TestLowStockHandler_Handle_LogsLowStockWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	handler := NewLowStockHandler(zap.New(core))

	businessID := newTestBusinessID()
	item := createTestProduct(businessID, 3)
	event := inventory.NewItemLowStockEvent(item)

	err := handler.Handle(context.Background(), event)

	assert.NoError(t, err)
	assert.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "inventory item running low", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "low_stock", fields["level"])
	assert.Equal(t, int64(3), fields["quantity"])
	assert.Equal(t, item.Name, fields["item_name"])
}

func TestLowStockHandler_Handle_ZeroQuantityIsOutOfStock(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	handler := NewLowStockHandler(zap.New(core))

	businessID := newTestBusinessID()
	item := createTestProduct(businessID, 0)
	event := inventory.NewItemLowStockEvent(item)

	err := handler.Handle(context.Background(), event)

	assert.NoError(t, err)
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "out_of_stock", logs.All()[0].ContextMap()["level"])
}

func TestLowStockHandler_Handle_RejectsUnexpectedEvent(t *testing.T) {
	handler := NewLowStockHandler(zap.NewNop())

	businessID := newTestBusinessID()
	item := createTestProduct(businessID, 3)
	event := inventory.NewItemCreatedEvent(item)

	err := handler.Handle(context.Background(), event)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected event type")
}

func TestLowStockHandler_EventTypes(t *testing.T) {
	handler := NewLowStockHandler(zap.NewNop())

	assert.Equal(t, []string{inventory.EventTypeItemLowStock}, handler.EventTypes())
}
