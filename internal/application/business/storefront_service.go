package business

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	ledgerapp "github.com/tallybook/backend/internal/application/ledger"
	"github.com/tallybook/backend/internal/domain/business"
	"github.com/tallybook/backend/internal/domain/inventory"
	"github.com/tallybook/backend/internal/domain/ledger"
	"github.com/tallybook/backend/internal/domain/shared"
)

// StorefrontService serves the public online shop: the published catalog
// and incoming orders. Orders land in the ledger as unpaid sales, so the
// owner settles them like any other credit sale.
type StorefrontService struct {
	businessRepo business.BusinessRepository
	itemRepo     inventory.ItemRepository
	transactions *ledgerapp.TransactionService
}

// NewStorefrontService creates a new StorefrontService
func NewStorefrontService(businessRepo business.BusinessRepository, itemRepo inventory.ItemRepository, transactions *ledgerapp.TransactionService) *StorefrontService {
	return &StorefrontService{
		businessRepo: businessRepo,
		itemRepo:     itemRepo,
		transactions: transactions,
	}
}

// ===================== DTOs =====================

// StorefrontProfileResponse is the public face of a business
type StorefrontProfileResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	LogoURL  string    `json:"logo_url,omitempty"`
	Address  string    `json:"address,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	Currency string    `json:"currency"`
}

// StorefrontItemResponse represents a catalog entry. Cost prices and
// stock counts stay private; buyers only see availability.
type StorefrontItemResponse struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	InStock  bool            `json:"in_stock"`
}

// StorefrontCatalogResponse bundles the shop profile with a catalog page
type StorefrontCatalogResponse struct {
	Business StorefrontProfileResponse `json:"business"`
	Items    []StorefrontItemResponse  `json:"items"`
	Total    int64                     `json:"total"`
}

// OrderLineRequest represents one ordered catalog entry
type OrderLineRequest struct {
	ItemID   uuid.UUID `json:"item_id" binding:"required"`
	Quantity int64     `json:"quantity" binding:"required,gt=0"`
}

// PlaceOrderRequest represents an incoming storefront order
type PlaceOrderRequest struct {
	CustomerName  string             `json:"customer_name" binding:"required"`
	CustomerPhone string             `json:"customer_phone"`
	Notes         string             `json:"notes"`
	Items         []OrderLineRequest `json:"items" binding:"required,min=1,dive"`
}

// OrderResponse confirms a placed order
type OrderResponse struct {
	OrderID  uuid.UUID       `json:"order_id"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
	PlacedAt time.Time       `json:"placed_at"`
}

// ===================== Operations =====================

// Catalog returns the public catalog page for a published storefront
func (s *StorefrontService) Catalog(ctx context.Context, businessID uuid.UUID, page, pageSize int) (*StorefrontCatalogResponse, error) {
	biz, err := s.publishedBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	filter := inventory.DefaultItemFilter()
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 {
		filter.PageSize = pageSize
	}

	items, total, err := s.itemRepo.FindAllForBusiness(ctx, businessID, filter)
	if err != nil {
		return nil, err
	}

	entries := make([]StorefrontItemResponse, len(items))
	for i, item := range items {
		entries[i] = StorefrontItemResponse{
			ID:       item.ID,
			Name:     item.Name,
			Type:     string(item.Type),
			Price:    item.SellingPrice,
			Currency: string(item.Currency),
			InStock:  !item.TracksStock() || item.CurrentQuantity() > 0,
		}
	}

	return &StorefrontCatalogResponse{
		Business: toStorefrontProfile(biz),
		Items:    entries,
		Total:    total,
	}, nil
}

// PlaceOrder records an order as an unpaid sale. Prices come from the
// catalog, never from the request.
func (s *StorefrontService) PlaceOrder(ctx context.Context, businessID uuid.UUID, req PlaceOrderRequest) (*OrderResponse, error) {
	biz, err := s.publishedBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	lines, err := s.resolveOrderLines(ctx, businessID, req.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.transactions.Create(ctx, businessID, ledgerapp.CreateTransactionRequest{
		Type:          string(ledger.TransactionTypeSale),
		Date:          time.Now(),
		Currency:      string(biz.Currency),
		Notes:         orderNotes(req),
		Items:         lines,
		Discount:      decimal.Zero,
		AmountPaid:    decimal.Zero,
		PaymentMethod: string(ledger.PaymentMethodOther),
	})
	if err != nil {
		return nil, err
	}

	return &OrderResponse{
		OrderID:  tx.ID,
		Total:    tx.Total,
		Currency: tx.Currency,
		Status:   tx.PaymentStatus,
		PlacedAt: tx.CreatedAt,
	}, nil
}

// ===================== Helpers =====================

func (s *StorefrontService) publishedBusiness(ctx context.Context, businessID uuid.UUID) (*business.Business, error) {
	biz, err := s.businessRepo.FindByID(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if biz == nil || !biz.HasStorefront() {
		return nil, shared.NewDomainError("NOT_FOUND", "Storefront not found")
	}
	return biz, nil
}

// resolveOrderLines looks every ordered item up and prices the line from
// the stored selling price
func (s *StorefrontService) resolveOrderLines(ctx context.Context, businessID uuid.UUID, lines []OrderLineRequest) ([]ledgerapp.LineItemRequest, error) {
	ids := make([]uuid.UUID, len(lines))
	for i, line := range lines {
		ids[i] = line.ItemID
	}

	items, err := s.itemRepo.FindByIDs(ctx, businessID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*inventory.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	resolved := make([]ledgerapp.LineItemRequest, 0, len(lines))
	for _, line := range lines {
		item, ok := byID[line.ItemID]
		if !ok {
			return nil, shared.NewDomainError("NOT_FOUND", "Item is no longer available")
		}
		itemID := item.ID
		resolved = append(resolved, ledgerapp.LineItemRequest{
			ItemID:    &itemID,
			Name:      item.Name,
			Quantity:  line.Quantity,
			UnitPrice: item.SellingPrice,
		})
	}
	return resolved, nil
}

func orderNotes(req PlaceOrderRequest) string {
	notes := fmt.Sprintf("Online order from %s", req.CustomerName)
	if req.CustomerPhone != "" {
		notes = fmt.Sprintf("%s (%s)", notes, req.CustomerPhone)
	}
	if req.Notes != "" {
		notes = fmt.Sprintf("%s: %s", notes, req.Notes)
	}
	return notes
}

func toStorefrontProfile(biz *business.Business) StorefrontProfileResponse {
	return StorefrontProfileResponse{
		ID:       biz.ID,
		Name:     biz.Name,
		LogoURL:  biz.LogoURL,
		Address:  biz.Address,
		Phone:    biz.Phone,
		Currency: string(biz.Currency),
	}
}
