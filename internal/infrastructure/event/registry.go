package event

import (
	"slices"
	"sync"

	"github.com/tallybook/backend/internal/domain/shared"
)

// wildcardType is the registry key for handlers that want every event,
// regardless of type. Real event types never collide with it.
const wildcardType = "*"

// HandlerRegistry maps event types to the handlers subscribed to them.
// Safe for concurrent use.
type HandlerRegistry struct {
	mu     sync.RWMutex
	byType map[string][]shared.EventHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		byType: make(map[string][]shared.EventHandler),
	}
}

// Register subscribes handler to the given event types. With no types it
// becomes a wildcard handler and receives every published event.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = []string{wildcardType}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, eventType := range eventTypes {
		r.byType[eventType] = append(r.byType[eventType], handler)
	}
}

// Unregister removes handler from every event type it was registered for,
// wildcard included.
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for eventType, handlers := range r.byType {
		filtered := slices.DeleteFunc(handlers, func(h shared.EventHandler) bool {
			return h == handler
		})
		if len(filtered) == 0 {
			delete(r.byType, eventType)
			continue
		}
		r.byType[eventType] = filtered
	}
}

// GetHandlers returns the handlers interested in eventType: the ones
// registered for that type first, then any wildcard handlers.
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typed := r.byType[eventType]
	wild := r.byType[wildcardType]

	handlers := make([]shared.EventHandler, 0, len(typed)+len(wild))
	handlers = append(handlers, typed...)
	return append(handlers, wild...)
}

// GetAllHandlers returns every registered handler exactly once. A handler
// registered for several event types appears a single time.
func (r *HandlerRegistry) GetAllHandlers() []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[shared.EventHandler]struct{})
	var handlers []shared.EventHandler
	for _, registered := range r.byType {
		for _, h := range registered {
			if _, ok := seen[h]; ok {
				continue
			}
			seen[h] = struct{}{}
			handlers = append(handlers, h)
		}
	}
	return handlers
}
