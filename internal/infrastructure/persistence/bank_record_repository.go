package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/banking"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormBankRecordRepository implements BankRecordRepository using GORM
type GormBankRecordRepository struct {
	db *gorm.DB
}

// NewGormBankRecordRepository creates a new GormBankRecordRepository
func NewGormBankRecordRepository(db *gorm.DB) *GormBankRecordRepository {
	return &GormBankRecordRepository{db: db}
}

// FindByID finds a record by its ID
func (r *GormBankRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*banking.BankPaymentRecord, error) {
	var model models.BankPaymentRecordModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForBusiness finds a record by ID within a business
func (r *GormBankRecordRepository) FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*banking.BankPaymentRecord, error) {
	var model models.BankPaymentRecordModel
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

// FindByTransactionID finds the record linked to a transaction, if any
func (r *GormBankRecordRepository) FindByTransactionID(ctx context.Context, businessID, transactionID uuid.UUID) (*banking.BankPaymentRecord, error) {
	var model models.BankPaymentRecordModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND transaction_id = ?", businessID, transactionID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForBusiness finds records for a business matching the filter, with
// the total match count for pagination
func (r *GormBankRecordRepository) FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter banking.BankRecordFilter) ([]banking.BankPaymentRecord, int64, error) {
	var recordModels []models.BankPaymentRecordModel
	var total int64

	countQuery := r.db.WithContext(ctx).Model(&models.BankPaymentRecordModel{}).
		Where("business_id = ?", businessID)
	countQuery = r.applyFilterWithoutPagination(countQuery, filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Model(&models.BankPaymentRecordModel{}).
		Where("business_id = ?", businessID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&recordModels).Error; err != nil {
		return nil, 0, err
	}

	records := make([]banking.BankPaymentRecord, len(recordModels))
	for i, model := range recordModels {
		records[i] = *model.ToDomain()
	}
	return records, total, nil
}

// FindUnprocessed finds all records still awaiting conversion
func (r *GormBankRecordRepository) FindUnprocessed(ctx context.Context, businessID uuid.UUID) ([]banking.BankPaymentRecord, error) {
	var recordModels []models.BankPaymentRecordModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND processed = ?", businessID, false).
		Order("date DESC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}

	records := make([]banking.BankPaymentRecord, len(recordModels))
	for i, model := range recordModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// Save creates or updates a record
func (r *GormBankRecordRepository) Save(ctx context.Context, record *banking.BankPaymentRecord) error {
	model := models.BankPaymentRecordModelFromDomain(record)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveBatch creates multiple records in one write (statement import)
func (r *GormBankRecordRepository) SaveBatch(ctx context.Context, records []*banking.BankPaymentRecord) error {
	if len(records) == 0 {
		return nil
	}
	recordModels := make([]*models.BankPaymentRecordModel, len(records))
	for i, rec := range records {
		recordModels[i] = models.BankPaymentRecordModelFromDomain(rec)
	}
	return r.db.WithContext(ctx).Save(recordModels).Error
}

// MarkProcessed links a record to its transaction with a single conditional
// write. The WHERE clause only matches while processed is still false, so of
// two racing conversions exactly one sees RowsAffected == 1. The loser gets
// shared.ErrAlreadyProcessed and must not create a transaction.
func (r *GormBankRecordRepository) MarkProcessed(ctx context.Context, businessID, recordID, transactionID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.BankPaymentRecordModel{}).
		Where("id = ? AND business_id = ? AND processed = ?", recordID, businessID, false).
		Updates(map[string]interface{}{
			"processed":      true,
			"transaction_id": transactionID,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish a lost race from a record that never existed.
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.BankPaymentRecordModel{}).
			Where("id = ? AND business_id = ?", recordID, businessID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrAlreadyProcessed
	}
	return nil
}

// CountUnprocessed counts records still awaiting conversion
func (r *GormBankRecordRepository) CountUnprocessed(ctx context.Context, businessID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.BankPaymentRecordModel{}).
		Where("business_id = ? AND processed = ?", businessID, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormBankRecordRepository) applyFilter(query *gorm.DB, filter banking.BankRecordFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, BankRecordSortFields, "date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormBankRecordRepository) applyFilterWithoutPagination(query *gorm.DB, filter banking.BankRecordFilter) *gorm.DB {
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Processed != nil {
		query = query.Where("processed = ?", *filter.Processed)
	}
	if filter.DateFrom != nil {
		query = query.Where("date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("date <= ?", *filter.DateTo)
	}
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("description ILIKE ? OR beneficiary_name ILIKE ?",
			searchPattern, searchPattern)
	}
	return query
}

// Ensure GormBankRecordRepository implements BankRecordRepository
var _ banking.BankRecordRepository = (*GormBankRecordRepository)(nil)
