package business

import (
	"github.com/tallybook/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeBusiness = "Business"

// Event type constants
const (
	EventTypeBusinessCreated           = "BusinessCreated"
	EventTypeBusinessUpdated           = "BusinessUpdated"
	EventTypeBusinessStorefrontChanged = "BusinessStorefrontChanged"
)

// BusinessCreatedEvent is published when a business registers
type BusinessCreatedEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
}

// NewBusinessCreatedEvent creates a new BusinessCreatedEvent
func NewBusinessCreatedEvent(b *Business) *BusinessCreatedEvent {
	return &BusinessCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBusinessCreated, AggregateTypeBusiness, b.ID, b.ID),
		Name:            b.Name,
	}
}

// EventType returns the event type name
func (e *BusinessCreatedEvent) EventType() string {
	return EventTypeBusinessCreated
}

// BusinessUpdatedEvent is published when the profile changes
type BusinessUpdatedEvent struct {
	shared.BaseDomainEvent
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// NewBusinessUpdatedEvent creates a new BusinessUpdatedEvent
func NewBusinessUpdatedEvent(b *Business) *BusinessUpdatedEvent {
	return &BusinessUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBusinessUpdated, AggregateTypeBusiness, b.ID, b.ID),
		Name:            b.Name,
		Currency:        b.Currency.String(),
	}
}

// EventType returns the event type name
func (e *BusinessUpdatedEvent) EventType() string {
	return EventTypeBusinessUpdated
}

// BusinessStorefrontChangedEvent is published when the shop goes on or offline
type BusinessStorefrontChangedEvent struct {
	shared.BaseDomainEvent
	Slug    string `json:"slug"`
	Enabled bool   `json:"enabled"`
}

// NewBusinessStorefrontChangedEvent creates a new BusinessStorefrontChangedEvent
func NewBusinessStorefrontChangedEvent(b *Business) *BusinessStorefrontChangedEvent {
	return &BusinessStorefrontChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBusinessStorefrontChanged, AggregateTypeBusiness, b.ID, b.ID),
		Slug:            b.Slug,
		Enabled:         b.StorefrontEnabled,
	}
}

// EventType returns the event type name
func (e *BusinessStorefrontChangedEvent) EventType() string {
	return EventTypeBusinessStorefrontChanged
}
