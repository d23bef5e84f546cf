package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tallybook/backend/internal/domain/shared"
)

// InMemoryEventBus delivers domain events synchronously, in-process. A
// failing handler is logged and skipped so the remaining handlers still
// see the event; publishing never fails because a subscriber misbehaved.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
	inflight sync.WaitGroup
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)

func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish delivers each event to all handlers subscribed to its type.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.inflight.Add(1)
	defer b.inflight.Done()

	for _, event := range events {
		b.deliver(ctx, event)
	}
	return nil
}

func (b *InMemoryEventBus) deliver(ctx context.Context, event shared.DomainEvent) {
	handlers := b.registry.GetHandlers(event.EventType())
	if len(handlers) == 0 {
		b.logger.Debug("no handlers for event",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()))
		return
	}

	for _, handler := range handlers {
		if err := b.handle(ctx, handler, event); err != nil {
			b.logger.Error("event handler failed",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.String("aggregate_id", event.AggregateID().String()),
				zap.Error(err))
		}
	}
}

// handle invokes a single handler, converting a panic into an error so one
// bad subscriber cannot take the publisher down.
func (b *InMemoryEventBus) handle(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

// Subscribe registers handler for the given event types. With no explicit
// types the handler's own EventTypes() is consulted; an empty result there
// subscribes it to everything.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)

	b.logger.Debug("event handler subscribed",
		zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes handler from all event types.
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("event handler unsubscribed")
}

func (b *InMemoryEventBus) Start(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return fmt.Errorf("event bus already running")
	}
	b.logger.Info("event bus started")
	return nil
}

// Stop waits for in-flight publishes to finish, honoring ctx's deadline.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus shutdown interrupted: %w", ctx.Err())
	}
}
