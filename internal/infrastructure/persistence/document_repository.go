package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/document"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDocumentRepository implements DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID finds a document by its ID
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForBusiness finds a document by ID within a business
func (r *GormDocumentRepository) FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*document.Document, error) {
	var model models.DocumentModel
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

// FindByNumber finds a document by its number within a business
func (r *GormDocumentRepository) FindByNumber(ctx context.Context, businessID uuid.UUID, number string) (*document.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND number = ?", businessID, number).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTransactionID finds the documents generated for a transaction
func (r *GormDocumentRepository) FindByTransactionID(ctx context.Context, businessID, transactionID uuid.UUID) ([]document.Document, error) {
	var documentModels []models.DocumentModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND transaction_id = ?", businessID, transactionID).
		Order("created_at DESC").
		Find(&documentModels).Error; err != nil {
		return nil, err
	}

	documents := make([]document.Document, len(documentModels))
	for i, model := range documentModels {
		documents[i] = *model.ToDomain()
	}
	return documents, nil
}

// FindAllForBusiness finds documents for a business matching the filter
func (r *GormDocumentRepository) FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]document.Document, error) {
	query := r.db.WithContext(ctx).Model(&models.DocumentModel{}).
		Where("business_id = ?", businessID)
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, DocumentSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	var documentModels []models.DocumentModel
	if err := query.Find(&documentModels).Error; err != nil {
		return nil, err
	}

	documents := make([]document.Document, len(documentModels))
	for i, model := range documentModels {
		documents[i] = *model.ToDomain()
	}
	return documents, nil
}

// Save creates or updates a document
func (r *GormDocumentRepository) Save(ctx context.Context, doc *document.Document) error {
	model := models.DocumentModelFromDomain(doc)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete deletes a document within a business
func (r *GormDocumentRepository) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.DocumentModel{}, "business_id = ? AND id = ?", businessID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByTransactionID deletes all documents tied to a transaction.
// Zero rows affected is not an error: most transactions never issue a document.
func (r *GormDocumentRepository) DeleteByTransactionID(ctx context.Context, businessID, transactionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.DocumentModel{}, "business_id = ? AND transaction_id = ?", businessID, transactionID).Error
}

// CountForBusiness counts documents for a business
func (r *GormDocumentRepository) CountForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.DocumentModel{}).
		Where("business_id = ?", businessID)
	query = r.applyFilterWithoutPagination(query, filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GenerateNumber generates the next document number for the business,
// sequenced per type and month, e.g. INV-202506-00012. Concurrent calls can
// produce the same candidate; the unique index on (business_id, number)
// rejects the duplicate at save time.
func (r *GormDocumentRepository) GenerateNumber(ctx context.Context, businessID uuid.UUID, docType document.DocumentType) (string, error) {
	prefix := "RCP"
	if docType == document.DocumentTypeInvoice {
		prefix = "INV"
	}
	monthPrefix := fmt.Sprintf("%s-%s-", prefix, time.Now().UTC().Format("200601"))

	var last string
	err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select("number").
		Where("business_id = ? AND number LIKE ?", businessID, monthPrefix+"%").
		Order("number DESC").
		Limit(1).
		Scan(&last).Error
	if err != nil {
		return "", err
	}

	seq := 1
	if last != "" {
		if n, parseErr := strconv.Atoi(strings.TrimPrefix(last, monthPrefix)); parseErr == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("%s%05d", monthPrefix, seq), nil
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormDocumentRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("number ILIKE ?", searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "type":
			query = query.Where("type = ?", value)
		case "status":
			query = query.Where("status = ?", value)
		case "transaction_id":
			query = query.Where("transaction_id = ?", value)
		}
	}

	return query
}

// Ensure GormDocumentRepository implements DocumentRepository
var _ document.DocumentRepository = (*GormDocumentRepository)(nil)
