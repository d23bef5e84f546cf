package document

import (
	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeDocument = "Document"

// Event type constants
const (
	EventTypeDocumentCreated = "DocumentCreated"
	EventTypeDocumentSent    = "DocumentSent"
	EventTypeDocumentViewed  = "DocumentViewed"
	EventTypeDocumentDeleted = "DocumentDeleted"
)

// DocumentCreatedEvent is published when a draft document is generated
type DocumentCreatedEvent struct {
	shared.BaseDomainEvent
	DocumentID    uuid.UUID    `json:"document_id"`
	TransactionID uuid.UUID    `json:"transaction_id"`
	Type          DocumentType `json:"type"`
	Number        string       `json:"number"`
}

// NewDocumentCreatedEvent creates a new DocumentCreatedEvent
func NewDocumentCreatedEvent(doc *Document) *DocumentCreatedEvent {
	return &DocumentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCreated, AggregateTypeDocument, doc.ID, doc.BusinessID),
		DocumentID:      doc.ID,
		TransactionID:   doc.TransactionID,
		Type:            doc.Type,
		Number:          doc.Number,
	}
}

// DocumentSentEvent is published when a document is exported for the first time
type DocumentSentEvent struct {
	shared.BaseDomainEvent
	DocumentID uuid.UUID `json:"document_id"`
	Number     string    `json:"number"`
}

// NewDocumentSentEvent creates a new DocumentSentEvent
func NewDocumentSentEvent(doc *Document) *DocumentSentEvent {
	return &DocumentSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentSent, AggregateTypeDocument, doc.ID, doc.BusinessID),
		DocumentID:      doc.ID,
		Number:          doc.Number,
	}
}

// DocumentViewedEvent is published when the recipient opens the document
type DocumentViewedEvent struct {
	shared.BaseDomainEvent
	DocumentID uuid.UUID `json:"document_id"`
	Number     string    `json:"number"`
}

// NewDocumentViewedEvent creates a new DocumentViewedEvent
func NewDocumentViewedEvent(doc *Document) *DocumentViewedEvent {
	return &DocumentViewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentViewed, AggregateTypeDocument, doc.ID, doc.BusinessID),
		DocumentID:      doc.ID,
		Number:          doc.Number,
	}
}

// DocumentDeletedEvent is published when a document is deleted
type DocumentDeletedEvent struct {
	shared.BaseDomainEvent
	DocumentID    uuid.UUID `json:"document_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Number        string    `json:"number"`
}

// NewDocumentDeletedEvent creates a new DocumentDeletedEvent
func NewDocumentDeletedEvent(doc *Document) *DocumentDeletedEvent {
	return &DocumentDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentDeleted, AggregateTypeDocument, doc.ID, doc.BusinessID),
		DocumentID:      doc.ID,
		TransactionID:   doc.TransactionID,
		Number:          doc.Number,
	}
}
