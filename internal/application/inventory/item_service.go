package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallybook/backend/internal/domain/inventory"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/domain/shared/valueobject"
)

// ItemService provides application-level inventory operations
type ItemService struct {
	itemRepo       inventory.ItemRepository
	eventPublisher shared.EventPublisher
}

// NewItemService creates a new ItemService
func NewItemService(itemRepo inventory.ItemRepository) *ItemService {
	return &ItemService{itemRepo: itemRepo}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ItemService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ===================== DTOs =====================

// CreateItemRequest represents a request to create an inventory item
type CreateItemRequest struct {
	Name            string          `json:"name" binding:"required"`
	Type            string          `json:"type" binding:"omitempty,oneof=product service"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	Currency        string          `json:"currency"`
	InitialQuantity *int64          `json:"initial_quantity"`
}

// UpdateItemRequest represents a request to update an inventory item
type UpdateItemRequest struct {
	Name         string          `json:"name" binding:"required"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	Currency     string          `json:"currency"`
}

// AdjustStockRequest sets the absolute counted quantity of a product
type AdjustStockRequest struct {
	Quantity int64 `json:"quantity"`
}

// ItemListFilter defines filtering options for item list queries
type ItemListFilter struct {
	Type     string `form:"type"`
	Level    string `form:"level"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
}

// ItemResponse represents an inventory item in API responses
type ItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"`
	Quantity     *int64          `json:"quantity,omitempty"`
	StockLevel   string          `json:"stock_level"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	Currency     string          `json:"currency"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int             `json:"version"`
}

// ===================== Operations =====================

// Create creates a new inventory item. Products optionally start with an
// initial counted quantity.
func (s *ItemService) Create(ctx context.Context, businessID uuid.UUID, req CreateItemRequest) (*ItemResponse, error) {
	currency := valueobject.Currency(req.Currency)
	if req.Currency == "" {
		currency = valueobject.DefaultCurrency
	}

	sellingPrice, err := valueobject.NewMoney(req.SellingPrice, currency)
	if err != nil {
		return nil, err
	}
	costPrice, err := valueobject.NewMoney(req.CostPrice, currency)
	if err != nil {
		return nil, err
	}

	item, err := inventory.NewItemWithPrices(businessID, req.Name, inventory.ItemType(req.Type), sellingPrice, costPrice)
	if err != nil {
		return nil, err
	}

	if req.InitialQuantity != nil {
		if err := item.AdjustStock(*req.InitialQuantity); err != nil {
			return nil, err
		}
	}

	if err := s.itemRepo.Save(ctx, item); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, item)

	return toItemResponse(item), nil
}

// GetByID gets an item by ID
func (s *ItemService) GetByID(ctx context.Context, businessID, id uuid.UUID) (*ItemResponse, error) {
	item, err := s.itemRepo.FindByIDForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Inventory item not found")
	}
	return toItemResponse(item), nil
}

// List lists items with filtering and pagination
func (s *ItemService) List(ctx context.Context, businessID uuid.UUID, filter ItemListFilter) ([]ItemResponse, int64, error) {
	domainFilter := inventory.DefaultItemFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	domainFilter.Search = filter.Search

	if filter.Type != "" {
		itemType := inventory.ItemType(filter.Type)
		if !itemType.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_INPUT", "Item type must be product or service")
		}
		domainFilter.Type = &itemType
	}
	if filter.Level != "" {
		level := inventory.StockLevel(filter.Level)
		domainFilter.Level = &level
	}

	items, total, err := s.itemRepo.FindAllForBusiness(ctx, businessID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ItemResponse, len(items))
	for i := range items {
		responses[i] = *toItemResponse(&items[i])
	}
	return responses, total, nil
}

// Update updates an item's name and prices
func (s *ItemService) Update(ctx context.Context, businessID, id uuid.UUID, req UpdateItemRequest) (*ItemResponse, error) {
	item, err := s.itemRepo.FindByIDForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Inventory item not found")
	}

	if err := item.Update(req.Name); err != nil {
		return nil, err
	}

	currency := item.Currency
	if req.Currency != "" {
		currency = valueobject.Currency(req.Currency)
	}
	sellingPrice, err := valueobject.NewMoney(req.SellingPrice, currency)
	if err != nil {
		return nil, err
	}
	costPrice, err := valueobject.NewMoney(req.CostPrice, currency)
	if err != nil {
		return nil, err
	}
	if err := item.SetPrices(sellingPrice, costPrice); err != nil {
		return nil, err
	}

	if err := s.itemRepo.SaveWithLock(ctx, item); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, item)

	return toItemResponse(item), nil
}

// Delete deletes an item
func (s *ItemService) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	item, err := s.itemRepo.FindByIDForBusiness(ctx, businessID, id)
	if err != nil {
		return err
	}
	if item == nil {
		return shared.NewDomainError("NOT_FOUND", "Inventory item not found")
	}

	item.MarkDeleted()

	if err := s.itemRepo.Delete(ctx, businessID, id); err != nil {
		return err
	}

	s.publishDomainEvents(ctx, item)

	return nil
}

// AdjustStock sets the counted quantity of a product after a stock take
func (s *ItemService) AdjustStock(ctx context.Context, businessID, id uuid.UUID, req AdjustStockRequest) (*ItemResponse, error) {
	item, err := s.itemRepo.FindByIDForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Inventory item not found")
	}

	if err := item.AdjustStock(req.Quantity); err != nil {
		return nil, err
	}

	if err := s.itemRepo.SaveWithLock(ctx, item); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, item)

	return toItemResponse(item), nil
}

// LowStock lists the products running low, including those fully out
func (s *ItemService) LowStock(ctx context.Context, businessID uuid.UUID) ([]ItemResponse, error) {
	low, err := s.itemRepo.FindLowStock(ctx, businessID)
	if err != nil {
		return nil, err
	}
	out, err := s.itemRepo.FindOutOfStock(ctx, businessID)
	if err != nil {
		return nil, err
	}

	responses := make([]ItemResponse, 0, len(low)+len(out))
	for i := range low {
		responses = append(responses, *toItemResponse(&low[i]))
	}
	for i := range out {
		responses = append(responses, *toItemResponse(&out[i]))
	}
	return responses, nil
}

// publishDomainEvents publishes all domain events from the item
func (s *ItemService) publishDomainEvents(ctx context.Context, item *inventory.Item) {
	if s.eventPublisher == nil {
		return
	}
	events := item.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	item.ClearDomainEvents()
}

func toItemResponse(item *inventory.Item) *ItemResponse {
	return &ItemResponse{
		ID:           item.ID,
		Name:         item.Name,
		Type:         string(item.Type),
		Quantity:     item.Quantity,
		StockLevel:   string(item.Level()),
		SellingPrice: item.SellingPrice,
		CostPrice:    item.CostPrice,
		Currency:     string(item.Currency),
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
		Version:      item.Version,
	}
}
