package business

import (
	"context"

	"github.com/google/uuid"
)

// BusinessRepository defines the interface for business persistence
type BusinessRepository interface {
	// FindByID finds a business by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Business, error)

	// FindBySlug finds a business by its storefront slug
	FindBySlug(ctx context.Context, slug string) (*Business, error)

	// FindAll lists businesses with pagination
	FindAll(ctx context.Context, page, pageSize int) ([]Business, int64, error)

	// Save creates or updates a business
	Save(ctx context.Context, business *Business) error

	// Delete deletes a business
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsBySlug checks whether a storefront slug is taken
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
}
