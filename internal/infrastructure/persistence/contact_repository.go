package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/partner"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormContactRepository implements ContactRepository using GORM
type GormContactRepository struct {
	db *gorm.DB
}

// NewGormContactRepository creates a new GormContactRepository
func NewGormContactRepository(db *gorm.DB) *GormContactRepository {
	return &GormContactRepository{db: db}
}

// FindByID finds a contact by its ID
func (r *GormContactRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Contact, error) {
	var model models.ContactModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForBusiness finds a contact by ID within a business
func (r *GormContactRepository) FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*partner.Contact, error) {
	var model models.ContactModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPhone finds a contact by phone number within a business
func (r *GormContactRepository) FindByPhone(ctx context.Context, businessID uuid.UUID, phone string) (*partner.Contact, error) {
	if phone == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Phone cannot be empty")
	}
	var model models.ContactModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND phone = ?", businessID, phone).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForBusiness finds all contacts for a business
func (r *GormContactRepository) FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]partner.Contact, error) {
	var contactModels []models.ContactModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ContactModel{}).Where("business_id = ?", businessID), filter)

	if err := query.Find(&contactModels).Error; err != nil {
		return nil, err
	}

	contacts := make([]partner.Contact, len(contactModels))
	for i, model := range contactModels {
		contacts[i] = *model.ToDomain()
	}
	return contacts, nil
}

// FindByType finds contacts by type (customer/supplier)
func (r *GormContactRepository) FindByType(ctx context.Context, businessID uuid.UUID, contactType partner.ContactType, filter shared.Filter) ([]partner.Contact, error) {
	var contactModels []models.ContactModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.ContactModel{}).
			Where("business_id = ? AND type = ?", businessID, contactType),
		filter,
	)

	if err := query.Find(&contactModels).Error; err != nil {
		return nil, err
	}

	contacts := make([]partner.Contact, len(contactModels))
	for i, model := range contactModels {
		contacts[i] = *model.ToDomain()
	}
	return contacts, nil
}

// FindByIDs finds multiple contacts by their IDs
func (r *GormContactRepository) FindByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]partner.Contact, error) {
	if len(ids) == 0 {
		return []partner.Contact{}, nil
	}

	var contactModels []models.ContactModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND id IN ?", businessID, ids).
		Find(&contactModels).Error; err != nil {
		return nil, err
	}

	contacts := make([]partner.Contact, len(contactModels))
	for i, model := range contactModels {
		contacts[i] = *model.ToDomain()
	}
	return contacts, nil
}

// Save creates or updates a contact
func (r *GormContactRepository) Save(ctx context.Context, contact *partner.Contact) error {
	model := models.ContactModelFromDomain(contact)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete deletes a contact within a business
func (r *GormContactRepository) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ContactModel{}, "business_id = ? AND id = ?", businessID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountForBusiness counts contacts for a business
func (r *GormContactRepository) CountForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.ContactModel{}).Where("business_id = ?", businessID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByPhone checks if a contact with the given phone exists in the business
func (r *GormContactRepository) ExistsByPhone(ctx context.Context, businessID uuid.UUID, phone string) (bool, error) {
	if phone == "" {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ContactModel{}).
		Where("business_id = ? AND phone = ?", businessID, phone).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter options to the query
func (r *GormContactRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, ContactSortFields, "name")
	orderDir := "ASC"
	if strings.ToLower(filter.OrderDir) == "desc" {
		orderDir = "DESC"
	}
	query = query.Order(orderBy + " " + orderDir)

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormContactRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR phone ILIKE ? OR email ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "type":
			query = query.Where("type = ?", value)
		}
	}

	return query
}

// Ensure GormContactRepository implements ContactRepository
var _ partner.ContactRepository = (*GormContactRepository)(nil)
