package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/shared"
)

// ContactRepository defines the interface for contact persistence
type ContactRepository interface {
	// FindByID finds a contact by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Contact, error)

	// FindByIDForBusiness finds a contact by ID within a business
	FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*Contact, error)

	// FindByPhone finds a contact by phone number within a business
	FindByPhone(ctx context.Context, businessID uuid.UUID, phone string) (*Contact, error)

	// FindAllForBusiness finds all contacts for a business matching the filter
	FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]Contact, error)

	// FindByType finds contacts by type for a business
	FindByType(ctx context.Context, businessID uuid.UUID, contactType ContactType, filter shared.Filter) ([]Contact, error)

	// FindByIDs finds multiple contacts by their IDs within a business
	FindByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]Contact, error)

	// Save creates or updates a contact
	Save(ctx context.Context, contact *Contact) error

	// Delete deletes a contact within a business
	Delete(ctx context.Context, businessID, id uuid.UUID) error

	// CountForBusiness counts contacts for a business
	CountForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) (int64, error)

	// ExistsByPhone checks if a contact with the given phone exists in the business
	ExistsByPhone(ctx context.Context, businessID uuid.UUID, phone string) (bool, error)
}
