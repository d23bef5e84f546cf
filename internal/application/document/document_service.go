package document

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/business"
	"github.com/tallybook/backend/internal/domain/document"
	"github.com/tallybook/backend/internal/domain/ledger"
	"github.com/tallybook/backend/internal/domain/shared"
)

// ExportPayload is everything the external renderer needs to produce a
// deliverable document
type ExportPayload struct {
	Document    *document.Document  `json:"document"`
	Transaction *ledger.Transaction `json:"transaction"`
	Business    *business.Business  `json:"business"`
}

// Exporter renders a document into its deliverable form. Rendering happens
// outside this service; the export must succeed before a draft may move to
// sent.
type Exporter interface {
	Export(ctx context.Context, payload ExportPayload) ([]byte, string, error)
}

// DocumentService provides application-level document operations
type DocumentService struct {
	documentRepo   document.DocumentRepository
	txRepo         ledger.TransactionRepository
	businessRepo   business.BusinessRepository
	exporter       Exporter
	eventPublisher shared.EventPublisher
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	documentRepo document.DocumentRepository,
	txRepo ledger.TransactionRepository,
	businessRepo business.BusinessRepository,
	exporter Exporter,
) *DocumentService {
	return &DocumentService{
		documentRepo: documentRepo,
		txRepo:       txRepo,
		businessRepo: businessRepo,
		exporter:     exporter,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *DocumentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// ===================== DTOs =====================

// IssueDocumentRequest represents a request to issue a document for a
// transaction
type IssueDocumentRequest struct {
	Type string `json:"type" binding:"required,oneof=receipt invoice"`
}

// DocumentListFilter defines filtering options for document list queries
type DocumentListFilter struct {
	Type     string `form:"type"`
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// DocumentResponse represents a document in API responses
type DocumentResponse struct {
	ID            uuid.UUID  `json:"id"`
	TransactionID uuid.UUID  `json:"transaction_id"`
	Type          string     `json:"type"`
	Number        string     `json:"number"`
	Status        string     `json:"status"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	ViewedAt      *time.Time `json:"viewed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ExportResult carries the rendered document blob
type ExportResult struct {
	Document    *DocumentResponse
	Content     []byte
	ContentType string
}

// ===================== Operations =====================

// Issue creates a draft document for a transaction with the next number in
// the business sequence
func (s *DocumentService) Issue(ctx context.Context, businessID, transactionID uuid.UUID, req IssueDocumentRequest) (*DocumentResponse, error) {
	tx, err := s.txRepo.FindByID(ctx, businessID, transactionID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Transaction not found")
	}

	docType := document.DocumentType(req.Type)
	number, err := s.documentRepo.GenerateNumber(ctx, businessID, docType)
	if err != nil {
		return nil, err
	}

	doc, err := document.NewDocument(businessID, transactionID, docType, number)
	if err != nil {
		return nil, err
	}

	if err := s.documentRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, doc)

	return toDocumentResponse(doc), nil
}

// GetByID gets a document by ID
func (s *DocumentService) GetByID(ctx context.Context, businessID, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.documentRepo.FindByIDForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Document not found")
	}
	return toDocumentResponse(doc), nil
}

// List lists documents with filtering and pagination
func (s *DocumentService) List(ctx context.Context, businessID uuid.UUID, filter DocumentListFilter) ([]DocumentResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.Type != "" {
		docType := document.DocumentType(filter.Type)
		if !docType.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_INPUT", "Document type must be 'receipt' or 'invoice'")
		}
		domainFilter.Filters["type"] = string(docType)
	}
	if filter.Status != "" {
		status := document.DocumentStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_INPUT", "Unknown document status")
		}
		domainFilter.Filters["status"] = string(status)
	}

	docs, err := s.documentRepo.FindAllForBusiness(ctx, businessID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.documentRepo.CountForBusiness(ctx, businessID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]DocumentResponse, len(docs))
	for i := range docs {
		responses[i] = *toDocumentResponse(&docs[i])
	}
	return responses, total, nil
}

// ListByTransaction lists the documents issued for one transaction
func (s *DocumentService) ListByTransaction(ctx context.Context, businessID, transactionID uuid.UUID) ([]DocumentResponse, error) {
	docs, err := s.documentRepo.FindByTransactionID(ctx, businessID, transactionID)
	if err != nil {
		return nil, err
	}
	responses := make([]DocumentResponse, len(docs))
	for i := range docs {
		responses[i] = *toDocumentResponse(&docs[i])
	}
	return responses, nil
}

// Export renders the document through the external exporter. A draft moves
// to sent only after the exporter returns success; re-exporting a sent or
// viewed document renders again without touching the status.
func (s *DocumentService) Export(ctx context.Context, businessID, id uuid.UUID) (*ExportResult, error) {
	doc, err := s.documentRepo.FindByIDForBusiness(ctx, businessID, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Document not found")
	}

	tx, err := s.txRepo.FindByID(ctx, businessID, doc.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, shared.NewDomainError("INCONSISTENT_STATE", "Document refers to a missing transaction")
	}

	biz, err := s.businessRepo.FindByID(ctx, businessID)
	if err != nil {
		return nil, err
	}

	content, contentType, err := s.exporter.Export(ctx, ExportPayload{
		Document:    doc,
		Transaction: tx,
		Business:    biz,
	})
	if err != nil {
		return nil, err
	}

	if doc.Status == document.DocumentStatusDraft {
		if err := doc.MarkSent(); err != nil {
			return nil, err
		}
		if err := s.documentRepo.Save(ctx, doc); err != nil {
			return nil, err
		}
		s.publishDomainEvents(ctx, doc)
	}

	return &ExportResult{
		Document:    toDocumentResponse(doc),
		Content:     content,
		ContentType: contentType,
	}, nil
}

// ConfirmViewed records that the recipient opened the document. The
// confirmation arrives without business scope, so the lookup is by plain ID.
// Confirming twice is a no-op.
func (s *DocumentService) ConfirmViewed(ctx context.Context, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.documentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Document not found")
	}

	alreadyViewed := doc.Status == document.DocumentStatusViewed

	if err := doc.ConfirmViewed(); err != nil {
		return nil, err
	}

	if !alreadyViewed {
		if err := s.documentRepo.Save(ctx, doc); err != nil {
			return nil, err
		}
		s.publishDomainEvents(ctx, doc)
	}

	return toDocumentResponse(doc), nil
}

// publishDomainEvents publishes all domain events from the document
func (s *DocumentService) publishDomainEvents(ctx context.Context, doc *document.Document) {
	if s.eventPublisher == nil {
		return
	}
	events := doc.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	doc.ClearDomainEvents()
}

func toDocumentResponse(doc *document.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:            doc.ID,
		TransactionID: doc.TransactionID,
		Type:          string(doc.Type),
		Number:        doc.Number,
		Status:        string(doc.Status),
		SentAt:        doc.SentAt,
		ViewedAt:      doc.ViewedAt,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}
