package inventory

import (
	"context"
	"fmt"

	"github.com/tallybook/backend/internal/domain/inventory"
	"github.com/tallybook/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LowStockHandler reacts to items dropping to the low-stock threshold.
// It logs the warning that feeds the ops alerting pipeline; the dashboard
// picks the same state up through the stock-count queries.
type LowStockHandler struct {
	logger *zap.Logger
}

// NewLowStockHandler creates a new handler for low stock events
func NewLowStockHandler(logger *zap.Logger) *LowStockHandler {
	return &LowStockHandler{logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *LowStockHandler) EventTypes() []string {
	return []string{inventory.EventTypeItemLowStock}
}

// Handle processes an ItemLowStockEvent
func (h *LowStockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	lowStock, ok := event.(*inventory.ItemLowStockEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeItemLowStock, event.EventType())
	}

	level := "low_stock"
	if lowStock.Quantity == 0 {
		level = "out_of_stock"
	}

	h.logger.Warn("inventory item running low",
		zap.String("business_id", event.BusinessID().String()),
		zap.String("item_id", lowStock.ItemID.String()),
		zap.String("item_name", lowStock.Name),
		zap.Int64("quantity", lowStock.Quantity),
		zap.String("level", level),
	)

	return nil
}

// Verify interface compliance
var _ shared.EventHandler = (*LowStockHandler)(nil)
