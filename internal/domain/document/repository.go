package document

import (
	"context"

	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/shared"
)

// DocumentRepository defines the interface for document persistence
type DocumentRepository interface {
	// FindByID finds a document by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// FindByIDForBusiness finds a document by ID within a business
	FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*Document, error)

	// FindByNumber finds a document by its number within a business
	FindByNumber(ctx context.Context, businessID uuid.UUID, number string) (*Document, error)

	// FindByTransactionID finds the documents generated for a transaction
	FindByTransactionID(ctx context.Context, businessID, transactionID uuid.UUID) ([]Document, error)

	// FindAllForBusiness finds documents for a business matching the filter
	FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]Document, error)

	// Save creates or updates a document
	Save(ctx context.Context, doc *Document) error

	// Delete deletes a document within a business
	Delete(ctx context.Context, businessID, id uuid.UUID) error

	// DeleteByTransactionID deletes all documents tied to a transaction.
	// Used by the transaction delete cascade.
	DeleteByTransactionID(ctx context.Context, businessID, transactionID uuid.UUID) error

	// CountForBusiness counts documents for a business
	CountForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) (int64, error)

	// GenerateNumber generates the next document number for the business,
	// sequenced per type and month, e.g. INV-202506-00012.
	GenerateNumber(ctx context.Context, businessID uuid.UUID, docType DocumentType) (string, error)
}
