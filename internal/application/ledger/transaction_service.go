package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallybook/backend/internal/domain/business"
	"github.com/tallybook/backend/internal/domain/inventory"
	"github.com/tallybook/backend/internal/domain/ledger"
	"github.com/tallybook/backend/internal/domain/partner"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/domain/shared/valueobject"
	"github.com/tallybook/backend/internal/infrastructure/telemetry"
)

// TransactionService provides application-level ledger operations
type TransactionService struct {
	txRepo         ledger.TransactionRepository
	contactRepo    partner.ContactRepository
	itemRepo       inventory.ItemRepository
	businessRepo   business.BusinessRepository
	eventPublisher shared.EventPublisher
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	txRepo ledger.TransactionRepository,
	contactRepo partner.ContactRepository,
	itemRepo inventory.ItemRepository,
	businessRepo business.BusinessRepository,
) *TransactionService {
	return &TransactionService{
		txRepo:       txRepo,
		contactRepo:  contactRepo,
		itemRepo:     itemRepo,
		businessRepo: businessRepo,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *TransactionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ===================== DTOs =====================

// LineItemRequest represents one transaction line in a request
type LineItemRequest struct {
	ItemID    *uuid.UUID      `json:"item_id"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateTransactionRequest represents a request to record a transaction
type CreateTransactionRequest struct {
	Type          string            `json:"type" binding:"required,oneof=sale expense"`
	Date          time.Time         `json:"date" binding:"required"`
	Currency      string            `json:"currency"`
	ContactID     *uuid.UUID        `json:"contact_id"`
	Category      string            `json:"category"`
	Notes         string            `json:"notes"`
	Items         []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	Discount      decimal.Decimal   `json:"discount"`
	AmountPaid    decimal.Decimal   `json:"amount_paid"`
	PaymentMethod string            `json:"payment_method"`
}

// UpdateTransactionRequest represents a request to edit a transaction.
// Derived fields are recomputed from what is submitted here.
type UpdateTransactionRequest struct {
	Date          time.Time         `json:"date" binding:"required"`
	ContactID     *uuid.UUID        `json:"contact_id"`
	Category      string            `json:"category"`
	Notes         string            `json:"notes"`
	Items         []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	Discount      decimal.Decimal   `json:"discount"`
	AmountPaid    decimal.Decimal   `json:"amount_paid"`
	PaymentMethod string            `json:"payment_method" binding:"required"`
}

// RecordPaymentRequest represents a payment against an existing transaction
type RecordPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Method string          `json:"method"`
}

// TransactionListFilter defines filtering options for transaction list queries
type TransactionListFilter struct {
	Type      string     `form:"type"`
	Status    string     `form:"status"`
	ContactID *uuid.UUID `form:"contact_id"`
	Category  string     `form:"category"`
	DateFrom  *time.Time `form:"date_from"`
	DateTo    *time.Time `form:"date_to"`
	Search    string     `form:"search"`
	Page      int        `form:"page"`
	PageSize  int        `form:"page_size"`
	OrderBy   string     `form:"order_by"`
	OrderDir  string     `form:"order_dir"`
}

// LineItemResponse represents one transaction line in API responses
type LineItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ItemID    *uuid.UUID      `json:"item_id,omitempty"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID            uuid.UUID          `json:"id"`
	BusinessID    uuid.UUID          `json:"business_id"`
	Type          string             `json:"type"`
	Date          time.Time          `json:"date"`
	ContactID     *uuid.UUID         `json:"contact_id,omitempty"`
	ContactName   string             `json:"contact_name,omitempty"`
	Category      string             `json:"category,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	Currency      string             `json:"currency"`
	Items         []LineItemResponse `json:"items"`
	Discount      decimal.Decimal    `json:"discount"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	Total         decimal.Decimal    `json:"total"`
	AmountPaid    decimal.Decimal    `json:"amount_paid"`
	Balance       decimal.Decimal    `json:"balance"`
	PaymentStatus string             `json:"payment_status"`
	PaymentMethod string             `json:"payment_method"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	Version       int                `json:"version"`
}

// ===================== Operations =====================

// Create records a new transaction. Sale lines that reference inventory
// items decrement their stock; insufficient stock rejects the whole request.
func (s *TransactionService) Create(ctx context.Context, businessID uuid.UUID, req CreateTransactionRequest) (*TransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "create_transaction",
		telemetry.WithAttribute(telemetry.SpanAttrTransactionType, req.Type))
	defer span.End()

	currency, err := s.resolveCurrency(ctx, businessID, req.Currency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	items, err := buildLineItems(req.Items, currency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	tx, err := ledger.NewTransaction(
		businessID,
		ledger.TransactionType(req.Type),
		req.Date,
		currency,
		items,
		req.Discount,
		req.AmountPaid,
		ledger.PaymentMethod(req.PaymentMethod),
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if req.ContactID != nil {
		if err := s.linkContact(ctx, businessID, tx, *req.ContactID); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	if req.Category != "" {
		if err := tx.SetCategory(req.Category); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	if req.Notes != "" {
		tx.SetNotes(req.Notes)
	}

	if err := s.applyStockChanges(ctx, businessID, stockDeltas(tx.Type, nil, tx.Items)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.txRepo.Save(ctx, tx); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishTransactionEvents(ctx, tx)

	return toTransactionResponse(tx), nil
}

// GetByID gets a transaction by ID
func (s *TransactionService) GetByID(ctx context.Context, businessID, id uuid.UUID) (*TransactionResponse, error) {
	tx, err := s.txRepo.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Transaction not found")
	}
	return toTransactionResponse(tx), nil
}

// List lists transactions with filtering and pagination
func (s *TransactionService) List(ctx context.Context, businessID uuid.UUID, filter TransactionListFilter) ([]TransactionResponse, int64, error) {
	domainFilter := ledger.DefaultTransactionFilter()
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
	domainFilter.Category = filter.Category
	domainFilter.ContactID = filter.ContactID
	domainFilter.DateFrom = filter.DateFrom
	domainFilter.DateTo = filter.DateTo

	if filter.Type != "" {
		txType := ledger.TransactionType(filter.Type)
		if !txType.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_INPUT", "Transaction type must be sale or expense")
		}
		domainFilter.Types = []ledger.TransactionType{txType}
	}
	if filter.Status != "" {
		status := ledger.PaymentStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_INPUT", "Unknown payment status")
		}
		domainFilter.Statuses = []ledger.PaymentStatus{status}
	}

	txs, total, err := s.txRepo.FindAll(ctx, businessID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]TransactionResponse, len(txs))
	for i := range txs {
		responses[i] = *toTransactionResponse(&txs[i])
	}
	return responses, total, nil
}

// Update replaces the editable fields of a transaction and re-derives the
// monetary state. Stock moves by the difference between the old and new
// sale lines.
func (s *TransactionService) Update(ctx context.Context, businessID, id uuid.UUID, req UpdateTransactionRequest) (*TransactionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "update_transaction")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrTransactionID, id.String())

	tx, err := s.txRepo.FindByID(ctx, businessID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if tx == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Transaction not found")
	}

	items, err := buildLineItems(req.Items, tx.Currency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	oldItems := tx.Items

	if err := tx.Update(req.Date, items, req.Discount, req.AmountPaid, ledger.PaymentMethod(req.PaymentMethod)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if req.ContactID != nil {
		if err := s.linkContact(ctx, businessID, tx, *req.ContactID); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	} else {
		tx.ClearContact()
	}
	if tx.Type == ledger.TransactionTypeExpense {
		if err := tx.SetCategory(req.Category); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	tx.SetNotes(req.Notes)

	if err := s.applyStockChanges(ctx, businessID, stockDeltas(tx.Type, oldItems, tx.Items)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.txRepo.Save(ctx, tx); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishTransactionEvents(ctx, tx)

	return toTransactionResponse(tx), nil
}

// RecordPayment applies a payment to a transaction and re-derives its status
func (s *TransactionService) RecordPayment(ctx context.Context, businessID, id uuid.UUID, req RecordPaymentRequest) (*TransactionResponse, error) {
	tx, err := s.txRepo.FindByID(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Transaction not found")
	}

	if err := tx.ApplyPayment(req.Amount, ledger.PaymentMethod(req.Method)); err != nil {
		return nil, err
	}

	if err := s.txRepo.Save(ctx, tx); err != nil {
		return nil, err
	}

	s.publishTransactionEvents(ctx, tx)

	return toTransactionResponse(tx), nil
}

// Delete removes a transaction, restores any stock its sale lines consumed
// and cascades to the documents issued for it.
func (s *TransactionService) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "delete_transaction")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrTransactionID, id.String())

	tx, err := s.txRepo.FindByID(ctx, businessID, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if tx == nil {
		return shared.NewDomainError("NOT_FOUND", "Transaction not found")
	}

	if err := s.applyStockChanges(ctx, businessID, stockDeltas(tx.Type, tx.Items, nil)); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	tx.MarkDeleted()

	// The repository removes the transaction and its documents atomically.
	if err := s.txRepo.Delete(ctx, businessID, id); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.publishTransactionEvents(ctx, tx)

	return nil
}

// ===================== Helpers =====================

func (s *TransactionService) resolveCurrency(ctx context.Context, businessID uuid.UUID, requested string) (valueobject.Currency, error) {
	if requested != "" {
		return valueobject.Currency(requested), nil
	}
	biz, err := s.businessRepo.FindByID(ctx, businessID)
	if err != nil {
		return "", err
	}
	if biz == nil {
		return valueobject.DefaultCurrency, nil
	}
	return biz.Currency, nil
}

func (s *TransactionService) linkContact(ctx context.Context, businessID uuid.UUID, tx *ledger.Transaction, contactID uuid.UUID) error {
	contact, err := s.contactRepo.FindByIDForBusiness(ctx, businessID, contactID)
	if err != nil {
		return err
	}
	if contact == nil {
		return shared.NewDomainError("NOT_FOUND", "Contact not found")
	}
	return tx.SetContact(contact.ID, contact.Name)
}

func buildLineItems(reqs []LineItemRequest, currency valueobject.Currency) ([]ledger.LineItem, error) {
	items := make([]ledger.LineItem, 0, len(reqs))
	for i, r := range reqs {
		price, err := valueobject.NewMoney(r.UnitPrice, currency)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		var item ledger.LineItem
		if r.ItemID != nil {
			item, err = ledger.NewInventoryLineItem(*r.ItemID, r.Name, r.Quantity, price)
		} else {
			item, err = ledger.NewLineItem(r.Name, r.Quantity, price)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// stockDeltas computes the net stock movement per referenced inventory item
// when a sale's lines change. A positive delta leaves the shelf, a negative
// one returns to it. Expenses never move stock.
func stockDeltas(txType ledger.TransactionType, before, after []ledger.LineItem) map[uuid.UUID]int64 {
	if txType != ledger.TransactionTypeSale {
		return nil
	}
	deltas := make(map[uuid.UUID]int64)
	for _, item := range after {
		if item.ItemID != nil {
			deltas[*item.ItemID] += item.Quantity
		}
	}
	for _, item := range before {
		if item.ItemID != nil {
			deltas[*item.ItemID] -= item.Quantity
		}
	}
	for id, delta := range deltas {
		if delta == 0 {
			delete(deltas, id)
		}
	}
	return deltas
}

func (s *TransactionService) applyStockChanges(ctx context.Context, businessID uuid.UUID, deltas map[uuid.UUID]int64) error {
	if len(deltas) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	items, err := s.itemRepo.FindByIDs(ctx, businessID, ids)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*inventory.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	// Check availability before touching anything so an insufficient line
	// rejects the whole request instead of leaving stock half-moved.
	for id, delta := range deltas {
		item, ok := byID[id]
		if !ok {
			if delta > 0 {
				return shared.NewDomainError("NOT_FOUND", "Referenced inventory item not found")
			}
			// Restoring stock for an item deleted since the sale: nothing to do.
			continue
		}
		if delta > 0 && !item.CanFulfill(delta) {
			return shared.NewDomainError("INSUFFICIENT_STOCK",
				fmt.Sprintf("Insufficient stock for %s", item.Name))
		}
	}

	for id, delta := range deltas {
		item, ok := byID[id]
		if !ok || !item.TracksStock() {
			continue
		}
		if delta > 0 {
			err = item.DecreaseStock(delta)
		} else {
			err = item.IncreaseStock(-delta)
		}
		if err != nil {
			return err
		}
		if err := s.itemRepo.SaveWithLock(ctx, item); err != nil {
			return err
		}
		s.publishItemEvents(ctx, item)
	}
	return nil
}

// publishTransactionEvents publishes all domain events from the transaction
func (s *TransactionService) publishTransactionEvents(ctx context.Context, tx *ledger.Transaction) {
	if s.eventPublisher == nil {
		return
	}
	events := tx.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	tx.ClearDomainEvents()
}

func (s *TransactionService) publishItemEvents(ctx context.Context, item *inventory.Item) {
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

func toLineItemResponses(items ledger.LineItems) []LineItemResponse {
	responses := make([]LineItemResponse, len(items))
	for i, item := range items {
		responses[i] = LineItemResponse{
			ID:        item.ID,
			ItemID:    item.ItemID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		}
	}
	return responses
}

func toTransactionResponse(tx *ledger.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:            tx.ID,
		BusinessID:    tx.BusinessID,
		Type:          string(tx.Type),
		Date:          tx.Date,
		ContactID:     tx.ContactID,
		ContactName:   tx.ContactName,
		Category:      tx.Category,
		Notes:         tx.Notes,
		Currency:      string(tx.Currency),
		Items:         toLineItemResponses(tx.Items),
		Discount:      tx.Discount,
		Subtotal:      tx.Subtotal,
		Total:         tx.Total,
		AmountPaid:    tx.AmountPaid,
		Balance:       tx.Balance,
		PaymentStatus: string(tx.PaymentStatus),
		PaymentMethod: string(tx.PaymentMethod),
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
		Version:       tx.Version,
	}
}
