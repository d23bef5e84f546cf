package report

import (
	"context"

	"go.uber.org/zap"

	"github.com/tallybook/backend/internal/domain/ledger"
	"github.com/tallybook/backend/internal/domain/shared"
)

// CacheInvalidationHandler drops a business's cached analytics whenever
// its ledger changes, so the next read recomputes from the transactions.
type CacheInvalidationHandler struct {
	cache  AnalyticsCache
	logger *zap.Logger
}

// NewCacheInvalidationHandler creates a new CacheInvalidationHandler
func NewCacheInvalidationHandler(cache AnalyticsCache, logger *zap.Logger) *CacheInvalidationHandler {
	return &CacheInvalidationHandler{
		cache:  cache,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *CacheInvalidationHandler) EventTypes() []string {
	return []string{
		ledger.EventTypeTransactionRecorded,
		ledger.EventTypeTransactionUpdated,
		ledger.EventTypeTransactionPaymentApplied,
		ledger.EventTypeTransactionDeleted,
	}
}

// Handle invalidates the analytics cache for the event's business
func (h *CacheInvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if err := h.cache.Invalidate(ctx, event.BusinessID()); err != nil {
		h.logger.Warn("analytics cache invalidation failed",
			zap.String("business_id", event.BusinessID().String()),
			zap.String("event_type", event.EventType()),
			zap.Error(err))
		return err
	}

	h.logger.Debug("analytics cache invalidated",
		zap.String("business_id", event.BusinessID().String()),
		zap.String("event_type", event.EventType()))

	return nil
}

// Ensure CacheInvalidationHandler implements shared.EventHandler
var _ shared.EventHandler = (*CacheInvalidationHandler)(nil)
