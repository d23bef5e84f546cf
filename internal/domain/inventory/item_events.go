package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallybook/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeItem = "InventoryItem"

// Event type constants
const (
	EventTypeItemCreated      = "InventoryItemCreated"
	EventTypeItemUpdated      = "InventoryItemUpdated"
	EventTypeItemStockChanged = "InventoryItemStockChanged"
	EventTypeItemLowStock     = "InventoryItemLowStock"
	EventTypeItemDeleted      = "InventoryItemDeleted"
)

// ItemCreatedEvent is published when an inventory item is created
type ItemCreatedEvent struct {
	shared.BaseDomainEvent
	ItemID uuid.UUID `json:"item_id"`
	Name   string    `json:"name"`
	Type   ItemType  `json:"item_type"`
}

// NewItemCreatedEvent creates a new ItemCreatedEvent
func NewItemCreatedEvent(item *Item) *ItemCreatedEvent {
	return &ItemCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemCreated, AggregateTypeItem, item.ID, item.BusinessID),
		ItemID:          item.ID,
		Name:            item.Name,
		Type:            item.Type,
	}
}

// EventType returns the event type name
func (e *ItemCreatedEvent) EventType() string {
	return EventTypeItemCreated
}

// ItemUpdatedEvent is published when an item's name or prices change
type ItemUpdatedEvent struct {
	shared.BaseDomainEvent
	ItemID       uuid.UUID       `json:"item_id"`
	Name         string          `json:"name"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
}

// NewItemUpdatedEvent creates a new ItemUpdatedEvent
func NewItemUpdatedEvent(item *Item) *ItemUpdatedEvent {
	return &ItemUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemUpdated, AggregateTypeItem, item.ID, item.BusinessID),
		ItemID:          item.ID,
		Name:            item.Name,
		SellingPrice:    item.SellingPrice,
		CostPrice:       item.CostPrice,
	}
}

// EventType returns the event type name
func (e *ItemUpdatedEvent) EventType() string {
	return EventTypeItemUpdated
}

// ItemStockChangedEvent is published whenever a product's quantity moves
type ItemStockChangedEvent struct {
	shared.BaseDomainEvent
	ItemID      uuid.UUID `json:"item_id"`
	Name        string    `json:"name"`
	OldQuantity int64     `json:"old_quantity"`
	NewQuantity int64     `json:"new_quantity"`
}

// NewItemStockChangedEvent creates a new ItemStockChangedEvent
func NewItemStockChangedEvent(item *Item, oldQuantity, newQuantity int64) *ItemStockChangedEvent {
	return &ItemStockChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemStockChanged, AggregateTypeItem, item.ID, item.BusinessID),
		ItemID:          item.ID,
		Name:            item.Name,
		OldQuantity:     oldQuantity,
		NewQuantity:     newQuantity,
	}
}

// EventType returns the event type name
func (e *ItemStockChangedEvent) EventType() string {
	return EventTypeItemStockChanged
}

// ItemLowStockEvent is published when a product's quantity drops to or below
// the low-stock threshold
type ItemLowStockEvent struct {
	shared.BaseDomainEvent
	ItemID   uuid.UUID `json:"item_id"`
	Name     string    `json:"name"`
	Quantity int64     `json:"quantity"`
}

// NewItemLowStockEvent creates a new ItemLowStockEvent
func NewItemLowStockEvent(item *Item) *ItemLowStockEvent {
	return &ItemLowStockEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemLowStock, AggregateTypeItem, item.ID, item.BusinessID),
		ItemID:          item.ID,
		Name:            item.Name,
		Quantity:        item.CurrentQuantity(),
	}
}

// EventType returns the event type name
func (e *ItemLowStockEvent) EventType() string {
	return EventTypeItemLowStock
}

// ItemDeletedEvent is published when an inventory item is deleted
type ItemDeletedEvent struct {
	shared.BaseDomainEvent
	ItemID uuid.UUID `json:"item_id"`
	Name   string    `json:"name"`
}

// NewItemDeletedEvent creates a new ItemDeletedEvent
func NewItemDeletedEvent(item *Item) *ItemDeletedEvent {
	return &ItemDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemDeleted, AggregateTypeItem, item.ID, item.BusinessID),
		ItemID:          item.ID,
		Name:            item.Name,
	}
}

// EventType returns the event type name
func (e *ItemDeletedEvent) EventType() string {
	return EventTypeItemDeleted
}
