package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/tallybook/backend/internal/domain/ledger"
)

func TestCacheInvalidationHandler_Handle_DropsBusinessEntries(t *testing.T) {
	cache := new(MockAnalyticsCache)
	handler := NewCacheInvalidationHandler(cache, zap.NewNop())

	businessID := newTestBusinessID()
	tx := createRecentSale(businessID, 100)
	event := ledger.NewTransactionRecordedEvent(&tx)

	cache.On("Invalidate", context.Background(), businessID).Return(nil)

	err := handler.Handle(context.Background(), event)

	assert.NoError(t, err)
	cache.AssertExpectations(t)
}

func TestCacheInvalidationHandler_Handle_SurfacesCacheFailure(t *testing.T) {
	cache := new(MockAnalyticsCache)
	handler := NewCacheInvalidationHandler(cache, zap.NewNop())

	businessID := newTestBusinessID()
	tx := createRecentSale(businessID, 100)
	event := ledger.NewTransactionDeletedEvent(&tx)

	cache.On("Invalidate", context.Background(), businessID).Return(errors.New("redis: connection refused"))

	err := handler.Handle(context.Background(), event)

	assert.Error(t, err)
	cache.AssertExpectations(t)
}

func TestCacheInvalidationHandler_EventTypes_CoverEveryLedgerWrite(t *testing.T) {
	handler := NewCacheInvalidationHandler(new(MockAnalyticsCache), zap.NewNop())

	types := handler.EventTypes()

	assert.ElementsMatch(t, []string{
		ledger.EventTypeTransactionRecorded,
		ledger.EventTypeTransactionUpdated,
		ledger.EventTypeTransactionPaymentApplied,
		ledger.EventTypeTransactionDeleted,
	}, types)
}
