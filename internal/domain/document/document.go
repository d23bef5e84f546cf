package document

import (
	"time"

	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/shared"
)

// DocumentType represents the kind of document generated for a transaction
type DocumentType string

const (
	DocumentTypeReceipt DocumentType = "receipt"
	DocumentTypeInvoice DocumentType = "invoice"
)

// IsValid checks if the type is a valid DocumentType
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeReceipt, DocumentTypeInvoice:
		return true
	}
	return false
}

// String returns the string representation of DocumentType
func (t DocumentType) String() string {
	return string(t)
}

// DocumentStatus represents where a document is in its delivery lifecycle
type DocumentStatus string

const (
	DocumentStatusDraft  DocumentStatus = "draft"
	DocumentStatusSent   DocumentStatus = "sent"
	DocumentStatusViewed DocumentStatus = "viewed"
)

// IsValid checks if the status is a valid DocumentStatus
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusSent, DocumentStatusViewed:
		return true
	}
	return false
}

// String returns the string representation of DocumentStatus
func (s DocumentStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s DocumentStatus) CanTransitionTo(target DocumentStatus) bool {
	switch s {
	case DocumentStatusDraft:
		return target == DocumentStatusSent
	case DocumentStatusSent:
		return target == DocumentStatusViewed
	case DocumentStatusViewed:
		return false // Terminal state
	}
	return false
}

// Document represents a receipt or invoice generated for a transaction.
// It moves draft to sent on first successful export and sent to viewed when
// the recipient opens it. It is deleted together with its transaction.
type Document struct {
	shared.BusinessAggregateRoot
	TransactionID uuid.UUID      `gorm:"type:uuid;not null;index"`
	Type          DocumentType   `gorm:"type:varchar(20);not null"`
	Number        string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_document_business_number,priority:2"`
	Status        DocumentStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	SentAt        *time.Time
	ViewedAt      *time.Time
}

// TableName returns the table name for GORM
func (Document) TableName() string {
	return "documents"
}

// NewDocument creates a new draft document for a transaction
func NewDocument(businessID, transactionID uuid.UUID, docType DocumentType, number string) (*Document, error) {
	if businessID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Business ID cannot be empty")
	}
	if transactionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Transaction ID cannot be empty")
	}
	if !docType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Document type must be 'receipt' or 'invoice'")
	}
	if number == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Document number cannot be empty")
	}

	doc := &Document{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		TransactionID:         transactionID,
		Type:                  docType,
		Number:                number,
		Status:                DocumentStatusDraft,
	}

	doc.AddDomainEvent(NewDocumentCreatedEvent(doc))

	return doc, nil
}

// MarkSent records the draft-to-sent transition. Callers invoke it only
// after the export completed; a document never reaches sent without one.
func (d *Document) MarkSent() error {
	if !d.Status.CanTransitionTo(DocumentStatusSent) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot mark as sent from status: "+d.Status.String())
	}

	now := time.Now()
	d.Status = DocumentStatusSent
	d.SentAt = &now
	d.UpdatedAt = now
	d.IncrementVersion()

	d.AddDomainEvent(NewDocumentSentEvent(d))

	return nil
}

// ConfirmViewed records the sent-to-viewed transition triggered by the
// recipient opening the document. Repeat confirmations are no-ops.
func (d *Document) ConfirmViewed() error {
	if d.Status == DocumentStatusViewed {
		return nil
	}
	if !d.Status.CanTransitionTo(DocumentStatusViewed) {
		return shared.NewDomainError("INVALID_STATE",
			"Cannot mark as viewed from status: "+d.Status.String())
	}

	now := time.Now()
	d.Status = DocumentStatusViewed
	d.ViewedAt = &now
	d.UpdatedAt = now
	d.IncrementVersion()

	d.AddDomainEvent(NewDocumentViewedEvent(d))

	return nil
}

// MarkDeleted emits the deletion event; the repository removes the row
func (d *Document) MarkDeleted() {
	d.AddDomainEvent(NewDocumentDeletedEvent(d))
}

// IsDraft returns true while the document has never been exported
func (d *Document) IsDraft() bool {
	return d.Status == DocumentStatusDraft
}

// IsSent returns true once the document has been exported at least once
func (d *Document) IsSent() bool {
	return d.Status == DocumentStatusSent
}

// IsViewed returns true once the recipient has opened the document
func (d *Document) IsViewed() bool {
	return d.Status == DocumentStatusViewed
}
