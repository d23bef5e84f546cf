package partner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallybook/backend/internal/domain/ledger"
	"github.com/tallybook/backend/internal/domain/partner"
	"github.com/tallybook/backend/internal/domain/shared"
)

// ContactService provides application-level contact operations
type ContactService struct {
	contactRepo    partner.ContactRepository
	txRepo         ledger.TransactionRepository
	eventPublisher shared.EventPublisher
}

// NewContactService creates a new ContactService
func NewContactService(contactRepo partner.ContactRepository, txRepo ledger.TransactionRepository) *ContactService {
	return &ContactService{
		contactRepo: contactRepo,
		txRepo:      txRepo,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ContactService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ===================== DTOs =====================

// CreateContactRequest represents a request to create a contact
type CreateContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Type    string `json:"type" binding:"required,oneof=customer supplier"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// UpdateContactRequest represents a request to update a contact
type UpdateContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Type    string `json:"type" binding:"required,oneof=customer supplier"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// ContactListFilter defines filtering options for contact list queries
type ContactListFilter struct {
	Type     string `form:"type"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
}

// ContactResponse represents a contact in API responses
type ContactResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DebtTransactionResponse is one open transaction inside a debt report
type DebtTransactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	Date          time.Time       `json:"date"`
	Total         decimal.Decimal `json:"total"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	PaymentStatus string          `json:"payment_status"`
}

// ContactDebtResponse reports what one contact still owes
type ContactDebtResponse struct {
	ContactID    uuid.UUID                 `json:"contact_id"`
	ContactName  string                    `json:"contact_name"`
	TotalOwed    decimal.Decimal           `json:"total_owed"`
	OpenCount    int                       `json:"open_count"`
	Transactions []DebtTransactionResponse `json:"transactions"`
}

// DebtSummaryResponse reports every debtor with an open balance
type DebtSummaryResponse struct {
	TotalOutstanding decimal.Decimal        `json:"total_outstanding"`
	Debtors          []ledger.DebtorBalance `json:"debtors"`
}

// ===================== Operations =====================

// Create creates a new contact
func (s *ContactService) Create(ctx context.Context, businessID uuid.UUID, req CreateContactRequest) (*ContactResponse, error) {
	if req.Phone != "" {
		exists, err := s.contactRepo.ExistsByPhone(ctx, businessID, req.Phone)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "A contact with this phone already exists")
		}
	}

	contact, err := partner.NewContact(businessID, req.Name, partner.ContactType(req.Type))
	if err != nil {
		return nil, err
	}
	if err := contact.SetDetails(req.Phone, req.Email, req.Address); err != nil {
		return nil, err
	}
	if req.Notes != "" {
		contact.SetNotes(req.Notes)
	}

	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, contact)

	return toContactResponse(contact), nil
}

// GetByID gets a contact by ID
func (s *ContactService) GetByID(ctx context.Context, businessID, id uuid.UUID) (*ContactResponse, error) {
	contact, err := s.contactRepo.FindByIDForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Contact not found")
	}
	return toContactResponse(contact), nil
}

// List lists contacts with filtering and pagination
func (s *ContactService) List(ctx context.Context, businessID uuid.UUID, filter ContactListFilter) ([]ContactResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
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

	var contacts []partner.Contact
	var err error
	if filter.Type != "" {
		contactType := partner.ContactType(filter.Type)
		if !contactType.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_INPUT", "Contact type must be customer or supplier")
		}
		domainFilter.Filters["type"] = string(contactType)
		contacts, err = s.contactRepo.FindByType(ctx, businessID, contactType, domainFilter)
	} else {
		contacts, err = s.contactRepo.FindAllForBusiness(ctx, businessID, domainFilter)
	}
	if err != nil {
		return nil, 0, err
	}

	total, err := s.contactRepo.CountForBusiness(ctx, businessID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ContactResponse, len(contacts))
	for i := range contacts {
		responses[i] = *toContactResponse(&contacts[i])
	}
	return responses, total, nil
}

// Update updates a contact
func (s *ContactService) Update(ctx context.Context, businessID, id uuid.UUID, req UpdateContactRequest) (*ContactResponse, error) {
	contact, err := s.contactRepo.FindByIDForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Contact not found")
	}

	if req.Phone != "" && req.Phone != contact.Phone {
		exists, err := s.contactRepo.ExistsByPhone(ctx, businessID, req.Phone)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "A contact with this phone already exists")
		}
	}

	if err := contact.Update(req.Name, partner.ContactType(req.Type)); err != nil {
		return nil, err
	}
	if err := contact.SetDetails(req.Phone, req.Email, req.Address); err != nil {
		return nil, err
	}
	contact.SetNotes(req.Notes)

	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, contact)

	return toContactResponse(contact), nil
}

// Delete deletes a contact. Deletion is refused while any transaction still
// references the contact, so the ledger history keeps its names.
func (s *ContactService) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	contact, err := s.contactRepo.FindByIDForBusiness(ctx, businessID, id)
	if err != nil {
		return err
	}
	if contact == nil {
		return shared.NewDomainError("NOT_FOUND", "Contact not found")
	}

	count, err := s.txRepo.CountByContact(ctx, businessID, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.NewDomainError("CONTACT_IN_USE",
			fmt.Sprintf("Contact is referenced by %d transaction(s) and cannot be deleted", count))
	}

	contact.MarkDeleted()

	if err := s.contactRepo.Delete(ctx, businessID, id); err != nil {
		return err
	}

	s.publishDomainEvents(ctx, contact)

	return nil
}

// Debt reports the open balance one contact owes, with the transactions
// behind it
func (s *ContactService) Debt(ctx context.Context, businessID, contactID uuid.UUID) (*ContactDebtResponse, error) {
	contact, err := s.contactRepo.FindByIDForBusiness(ctx, businessID, contactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Contact not found")
	}

	open := []ledger.PaymentStatus{ledger.PaymentStatusUnpaid, ledger.PaymentStatusPartiallyPaid}
	txs, err := s.txRepo.FindByContact(ctx, businessID, contactID, open)
	if err != nil {
		return nil, err
	}

	transactions := make([]DebtTransactionResponse, len(txs))
	for i := range txs {
		tx := &txs[i]
		transactions[i] = DebtTransactionResponse{
			ID:            tx.ID,
			Type:          string(tx.Type),
			Date:          tx.Date,
			Total:         tx.Total,
			AmountPaid:    tx.AmountPaid,
			Outstanding:   tx.Outstanding(),
			PaymentStatus: string(tx.PaymentStatus),
		}
	}

	return &ContactDebtResponse{
		ContactID:    contact.ID,
		ContactName:  contact.Name,
		TotalOwed:    ledger.OutstandingBalance(txs),
		OpenCount:    len(txs),
		Transactions: transactions,
	}, nil
}

// DebtSummary folds every open transaction into per-contact owed balances,
// largest debt first
func (s *ContactService) DebtSummary(ctx context.Context, businessID uuid.UUID) (*DebtSummaryResponse, error) {
	txs, err := s.txRepo.FindOutstanding(ctx, businessID)
	if err != nil {
		return nil, err
	}

	debtors := ledger.OutstandingByContact(txs)
	total := decimal.Zero
	for _, d := range debtors {
		total = total.Add(d.Owed)
	}

	return &DebtSummaryResponse{
		TotalOutstanding: total,
		Debtors:          debtors,
	}, nil
}

// publishDomainEvents publishes all domain events from the contact
func (s *ContactService) publishDomainEvents(ctx context.Context, contact *partner.Contact) {
	if s.eventPublisher == nil {
		return
	}
	events := contact.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	contact.ClearDomainEvents()
}

func toContactResponse(contact *partner.Contact) *ContactResponse {
	return &ContactResponse{
		ID:        contact.ID,
		Name:      contact.Name,
		Type:      string(contact.Type),
		Phone:     contact.Phone,
		Email:     contact.Email,
		Address:   contact.Address,
		Notes:     contact.Notes,
		CreatedAt: contact.CreatedAt,
		UpdatedAt: contact.UpdatedAt,
	}
}
