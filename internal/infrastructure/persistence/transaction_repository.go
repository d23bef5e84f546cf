package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/ledger"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTransactionRepository implements TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Save creates or updates a transaction
func (r *GormTransactionRepository) Save(ctx context.Context, tx *ledger.Transaction) error {
	model := models.TransactionModelFromDomain(tx)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a transaction by ID within a business
func (r *GormTransactionRepository) FindByID(ctx context.Context, businessID, id uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
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

// FindAll finds transactions for a business matching the filter, with the
// total match count for pagination
func (r *GormTransactionRepository) FindAll(ctx context.Context, businessID uuid.UUID, filter ledger.TransactionFilter) ([]ledger.Transaction, int64, error) {
	var transactionModels []models.TransactionModel
	var total int64

	countQuery := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("business_id = ?", businessID)
	countQuery = r.applyFilterWithoutPagination(countQuery, filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("business_id = ?", businessID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&transactionModels).Error; err != nil {
		return nil, 0, err
	}

	transactions := make([]ledger.Transaction, len(transactionModels))
	for i, model := range transactionModels {
		transactions[i] = *model.ToDomain()
	}
	return transactions, total, nil
}

// FindByContact finds the contact's transactions, optionally narrowed to the
// given payment statuses
func (r *GormTransactionRepository) FindByContact(ctx context.Context, businessID, contactID uuid.UUID, statuses []ledger.PaymentStatus) ([]ledger.Transaction, error) {
	query := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("business_id = ? AND contact_id = ?", businessID, contactID)

	if len(statuses) > 0 {
		query = query.Where("payment_status IN ?", statuses)
	}

	var transactionModels []models.TransactionModel
	if err := query.Order("date DESC").Find(&transactionModels).Error; err != nil {
		return nil, err
	}

	transactions := make([]ledger.Transaction, len(transactionModels))
	for i, model := range transactionModels {
		transactions[i] = *model.ToDomain()
	}
	return transactions, nil
}

// FindOutstanding finds every transaction that still carries a balance
func (r *GormTransactionRepository) FindOutstanding(ctx context.Context, businessID uuid.UUID) ([]ledger.Transaction, error) {
	var transactionModels []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND payment_status IN ?", businessID,
			[]ledger.PaymentStatus{ledger.PaymentStatusUnpaid, ledger.PaymentStatusPartiallyPaid}).
		Order("date ASC").
		Find(&transactionModels).Error; err != nil {
		return nil, err
	}

	transactions := make([]ledger.Transaction, len(transactionModels))
	for i, model := range transactionModels {
		transactions[i] = *model.ToDomain()
	}
	return transactions, nil
}

// FindInWindow finds all transactions dated within [from, to]. No paging:
// the analytics aggregator folds the full window.
func (r *GormTransactionRepository) FindInWindow(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]ledger.Transaction, error) {
	var transactionModels []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND date >= ? AND date <= ?", businessID, from, to).
		Order("date ASC").
		Find(&transactionModels).Error; err != nil {
		return nil, err
	}

	transactions := make([]ledger.Transaction, len(transactionModels))
	for i, model := range transactionModels {
		transactions[i] = *model.ToDomain()
	}
	return transactions, nil
}

// CountByContact counts how many transactions reference the contact
func (r *GormTransactionRepository) CountByContact(ctx context.Context, businessID, contactID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("business_id = ? AND contact_id = ?", businessID, contactID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes the transaction row and its issued documents in one
// database transaction, so a failed cascade rolls back the whole delete
// and no document is ever left pointing at a missing transaction.
func (r *GormTransactionRepository) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.DocumentModel{}, "business_id = ? AND transaction_id = ?", businessID, id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.TransactionModel{}, "business_id = ? AND id = ?", businessID, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// applyFilter applies filter options to the query
func (r *GormTransactionRepository) applyFilter(query *gorm.DB, filter ledger.TransactionFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, TransactionSortFields, "date")
	orderDir := "DESC"
	if strings.ToLower(filter.OrderDir) == "asc" {
		orderDir = "ASC"
	}
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormTransactionRepository) applyFilterWithoutPagination(query *gorm.DB, filter ledger.TransactionFilter) *gorm.DB {
	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("payment_status IN ?", filter.Statuses)
	}
	if filter.ContactID != nil {
		query = query.Where("contact_id = ?", *filter.ContactID)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.DateFrom != nil {
		query = query.Where("date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("date <= ?", *filter.DateTo)
	}
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("contact_name ILIKE ? OR notes ILIKE ? OR category ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}
	return query
}

// Ensure GormTransactionRepository implements TransactionRepository
var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
