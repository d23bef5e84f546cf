package inventory

import (
	"context"

	"github.com/google/uuid"
)

// ItemFilter narrows inventory listings
type ItemFilter struct {
	Type     *ItemType
	Level    *StockLevel
	Search   string
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
}

// DefaultItemFilter returns a filter with sane defaults
func DefaultItemFilter() ItemFilter {
	return ItemFilter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "name",
		OrderDir: "asc",
	}
}

// ItemRepository defines the interface for inventory item persistence
type ItemRepository interface {
	// FindByID finds an item by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Item, error)

	// FindByIDForBusiness finds an item by ID within a business
	FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*Item, error)

	// FindByIDs finds multiple items by their IDs within a business
	FindByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]Item, error)

	// FindAllForBusiness finds items for a business with the total match count
	FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter ItemFilter) ([]Item, int64, error)

	// FindLowStock finds products with positive stock at or below the
	// low-stock threshold
	FindLowStock(ctx context.Context, businessID uuid.UUID) ([]Item, error)

	// FindOutOfStock finds products with zero stock
	FindOutOfStock(ctx context.Context, businessID uuid.UUID) ([]Item, error)

	// Save creates or updates an item
	Save(ctx context.Context, item *Item) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, item *Item) error

	// Delete deletes an item within a business
	Delete(ctx context.Context, businessID, id uuid.UUID) error

	// CountForBusiness counts items for a business
	CountForBusiness(ctx context.Context, businessID uuid.UUID) (int64, error)

	// CountLowStock counts low-stock products across all businesses
	CountLowStock(ctx context.Context) (int64, error)

	// CountOutOfStock counts out-of-stock products across all businesses
	CountOutOfStock(ctx context.Context) (int64, error)
}
