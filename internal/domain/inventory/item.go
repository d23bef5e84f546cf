package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/domain/shared/valueobject"
)

// ItemType distinguishes stocked products from services
type ItemType string

const (
	ItemTypeProduct ItemType = "product"
	ItemTypeService ItemType = "service"
)

// IsValid checks if the item type is valid
func (t ItemType) IsValid() bool {
	switch t {
	case ItemTypeProduct, ItemTypeService:
		return true
	}
	return false
}

// String returns the string representation
func (t ItemType) String() string {
	return string(t)
}

// LowStockThreshold is the quantity at or below which a stocked product
// counts as running low.
const LowStockThreshold = 5

// StockLevel classifies how much stock a product has left
type StockLevel string

const (
	StockLevelInStock    StockLevel = "in_stock"
	StockLevelLowStock   StockLevel = "low_stock"
	StockLevelOutOfStock StockLevel = "out_of_stock"
	// StockLevelNotTracked applies to services, which carry no quantity.
	StockLevelNotTracked StockLevel = "not_tracked"
)

// String returns the string representation
func (s StockLevel) String() string {
	return string(s)
}

// Item represents a product or service a business sells.
// It is the aggregate root for inventory operations.
// Products track a stock quantity; services do not.
type Item struct {
	shared.BusinessAggregateRoot
	Name         string               `gorm:"type:varchar(200);not null;index"`
	Type         ItemType             `gorm:"type:varchar(20);not null;default:'product';index"`
	Quantity     *int64               `gorm:"type:bigint"` // nil for services
	SellingPrice decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	CostPrice    decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Currency     valueobject.Currency `gorm:"type:varchar(3);not null;default:'USD'"`
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "inventory_items"
}

// NewItem creates a new inventory item. Products start with zero stock.
func NewItem(businessID uuid.UUID, name string, itemType ItemType) (*Item, error) {
	if businessID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Business ID cannot be empty")
	}
	if err := validateItemName(name); err != nil {
		return nil, err
	}
	if itemType == "" {
		itemType = ItemTypeProduct
	}
	if !itemType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Item type must be product or service")
	}

	item := &Item{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		Name:                  name,
		Type:                  itemType,
		SellingPrice:          decimal.Zero,
		CostPrice:             decimal.Zero,
		Currency:              valueobject.DefaultCurrency,
	}
	if item.TracksStock() {
		zero := int64(0)
		item.Quantity = &zero
	}

	item.AddDomainEvent(NewItemCreatedEvent(item))

	return item, nil
}

// NewItemWithPrices creates a new inventory item with prices set
func NewItemWithPrices(businessID uuid.UUID, name string, itemType ItemType, sellingPrice, costPrice valueobject.Money) (*Item, error) {
	item, err := NewItem(businessID, name, itemType)
	if err != nil {
		return nil, err
	}

	if err := item.SetPrices(sellingPrice, costPrice); err != nil {
		return nil, err
	}

	return item, nil
}

// Update updates the item's name
func (i *Item) Update(name string) error {
	if err := validateItemName(name); err != nil {
		return err
	}

	i.Name = name
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewItemUpdatedEvent(i))

	return nil
}

// SetPrices sets both selling and cost prices
func (i *Item) SetPrices(sellingPrice, costPrice valueobject.Money) error {
	if sellingPrice.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Selling price cannot be negative")
	}
	if costPrice.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Cost price cannot be negative")
	}

	i.SellingPrice = sellingPrice.Amount()
	i.CostPrice = costPrice.Amount()
	i.Currency = sellingPrice.Currency()
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewItemUpdatedEvent(i))

	return nil
}

// UpdateSellingPrice updates only the selling price
func (i *Item) UpdateSellingPrice(price valueobject.Money) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Selling price cannot be negative")
	}

	i.SellingPrice = price.Amount()
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewItemUpdatedEvent(i))

	return nil
}

// UpdateCostPrice updates only the cost price
func (i *Item) UpdateCostPrice(price valueobject.Money) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Cost price cannot be negative")
	}

	i.CostPrice = price.Amount()
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewItemUpdatedEvent(i))

	return nil
}

// AdjustStock sets the stock quantity to an absolute count, as after a
// physical recount
func (i *Item) AdjustStock(actual int64) error {
	if !i.TracksStock() {
		return shared.NewDomainError("INVALID_STATE", "Services do not track stock")
	}
	if actual < 0 {
		return shared.NewDomainError("INVALID_INPUT", "Stock quantity cannot be negative")
	}

	old := i.CurrentQuantity()
	i.Quantity = &actual
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewItemStockChangedEvent(i, old, actual))
	i.emitLowStockIfNeeded()

	return nil
}

// IncreaseStock adds to the stock quantity, as when a sale is voided or
// stock is replenished
func (i *Item) IncreaseStock(quantity int64) error {
	if !i.TracksStock() {
		return shared.NewDomainError("INVALID_STATE", "Services do not track stock")
	}
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Quantity must be positive")
	}

	old := i.CurrentQuantity()
	updated := old + quantity
	i.Quantity = &updated
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewItemStockChangedEvent(i, old, updated))

	return nil
}

// DecreaseStock removes from the stock quantity, as when a sale is recorded.
// Stock never goes negative.
func (i *Item) DecreaseStock(quantity int64) error {
	if !i.TracksStock() {
		return shared.NewDomainError("INVALID_STATE", "Services do not track stock")
	}
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Quantity must be positive")
	}

	old := i.CurrentQuantity()
	if old < quantity {
		return shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock to fulfill the requested quantity")
	}

	updated := old - quantity
	i.Quantity = &updated
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	i.AddDomainEvent(NewItemStockChangedEvent(i, old, updated))
	i.emitLowStockIfNeeded()

	return nil
}

// MarkDeleted emits the deletion event before the item is removed
func (i *Item) MarkDeleted() {
	i.AddDomainEvent(NewItemDeletedEvent(i))
}

// TracksStock returns true for products, which carry a quantity
func (i *Item) TracksStock() bool {
	return i.Type == ItemTypeProduct
}

// CurrentQuantity returns the stock quantity, or zero when none is tracked
func (i *Item) CurrentQuantity() int64 {
	if i.Quantity == nil {
		return 0
	}
	return *i.Quantity
}

// CanFulfill returns true if the item can cover the requested quantity.
// Services always can.
func (i *Item) CanFulfill(quantity int64) bool {
	if !i.TracksStock() {
		return true
	}
	return i.CurrentQuantity() >= quantity
}

// Level classifies the current stock position
func (i *Item) Level() StockLevel {
	if !i.TracksStock() || i.Quantity == nil {
		return StockLevelNotTracked
	}
	switch q := *i.Quantity; {
	case q == 0:
		return StockLevelOutOfStock
	case q <= LowStockThreshold:
		return StockLevelLowStock
	default:
		return StockLevelInStock
	}
}

// IsLowStock returns true when stock is positive but at or below the threshold
func (i *Item) IsLowStock() bool {
	return i.Level() == StockLevelLowStock
}

// IsOutOfStock returns true when a product has no stock left
func (i *Item) IsOutOfStock() bool {
	return i.Level() == StockLevelOutOfStock
}

// SellingPriceMoney returns the selling price as a Money value object
func (i *Item) SellingPriceMoney() valueobject.Money {
	return valueobject.MustMoney(i.SellingPrice, i.Currency)
}

// CostPriceMoney returns the cost price as a Money value object
func (i *Item) CostPriceMoney() valueobject.Money {
	return valueobject.MustMoney(i.CostPrice, i.Currency)
}

func (i *Item) emitLowStockIfNeeded() {
	if i.Quantity != nil && *i.Quantity <= LowStockThreshold {
		i.AddDomainEvent(NewItemLowStockEvent(i))
	}
}

// validateItemName validates the item name
func validateItemName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_INPUT", "Item name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_INPUT", "Item name cannot exceed 200 characters")
	}
	return nil
}
