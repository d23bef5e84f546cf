package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/business"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBusinessRepository implements BusinessRepository using GORM
type GormBusinessRepository struct {
	db *gorm.DB
}

// NewGormBusinessRepository creates a new GormBusinessRepository
func NewGormBusinessRepository(db *gorm.DB) *GormBusinessRepository {
	return &GormBusinessRepository{db: db}
}

// FindByID finds a business by its ID
func (r *GormBusinessRepository) FindByID(ctx context.Context, id uuid.UUID) (*business.Business, error) {
	var model models.BusinessModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySlug finds a business by its storefront slug
func (r *GormBusinessRepository) FindBySlug(ctx context.Context, slug string) (*business.Business, error) {
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Slug cannot be empty")
	}
	var model models.BusinessModel
	if err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists businesses with pagination
func (r *GormBusinessRepository) FindAll(ctx context.Context, page, pageSize int) ([]business.Business, int64, error) {
	var businessModels []models.BusinessModel
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.BusinessModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Model(&models.BusinessModel{}).Order("created_at ASC")
	if page > 0 && pageSize > 0 {
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	if err := query.Find(&businessModels).Error; err != nil {
		return nil, 0, err
	}

	businesses := make([]business.Business, len(businessModels))
	for i, model := range businessModels {
		businesses[i] = *model.ToDomain()
	}
	return businesses, total, nil
}

// Save creates or updates a business
func (r *GormBusinessRepository) Save(ctx context.Context, b *business.Business) error {
	model := models.BusinessModelFromDomain(b)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete deletes a business
func (r *GormBusinessRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.BusinessModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ExistsBySlug checks whether a storefront slug is taken
func (r *GormBusinessRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	if slug == "" {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.BusinessModel{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormBusinessRepository implements BusinessRepository
var _ business.BusinessRepository = (*GormBusinessRepository)(nil)
