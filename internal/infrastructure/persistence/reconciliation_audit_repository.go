package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/banking"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReconciliationAuditRepository implements ReconciliationAuditRepository using GORM.
// The trail is append-only: entries are created and read, never updated.
type GormReconciliationAuditRepository struct {
	db *gorm.DB
}

// NewGormReconciliationAuditRepository creates a new GormReconciliationAuditRepository
func NewGormReconciliationAuditRepository(db *gorm.DB) *GormReconciliationAuditRepository {
	return &GormReconciliationAuditRepository{db: db}
}

// Save appends an audit entry
func (r *GormReconciliationAuditRepository) Save(ctx context.Context, audit *banking.ReconciliationAudit) error {
	model := models.ReconciliationAuditModelFromDomain(audit)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindAllForBusiness lists audit entries for a business, newest first
func (r *GormReconciliationAuditRepository) FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]banking.ReconciliationAudit, error) {
	query := r.db.WithContext(ctx).Model(&models.ReconciliationAuditModel{}).
		Where("business_id = ?", businessID)

	for key, value := range filter.Filters {
		switch key {
		case "outcome":
			query = query.Where("outcome = ?", value)
		}
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var auditModels []models.ReconciliationAuditModel
	if err := query.Order("created_at DESC").Find(&auditModels).Error; err != nil {
		return nil, err
	}

	audits := make([]banking.ReconciliationAudit, len(auditModels))
	for i, model := range auditModels {
		audits[i] = *model.ToDomain()
	}
	return audits, nil
}

// FindByRecordID lists audit entries for one bank record
func (r *GormReconciliationAuditRepository) FindByRecordID(ctx context.Context, businessID, recordID uuid.UUID) ([]banking.ReconciliationAudit, error) {
	var auditModels []models.ReconciliationAuditModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND record_id = ?", businessID, recordID).
		Order("created_at DESC").
		Find(&auditModels).Error; err != nil {
		return nil, err
	}

	audits := make([]banking.ReconciliationAudit, len(auditModels))
	for i, model := range auditModels {
		audits[i] = *model.ToDomain()
	}
	return audits, nil
}

// FindInconsistent lists entries recording partial failures
func (r *GormReconciliationAuditRepository) FindInconsistent(ctx context.Context, businessID uuid.UUID) ([]banking.ReconciliationAudit, error) {
	var auditModels []models.ReconciliationAuditModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND outcome = ?", businessID, banking.ReconciliationOutcomeInconsistent).
		Order("created_at DESC").
		Find(&auditModels).Error; err != nil {
		return nil, err
	}

	audits := make([]banking.ReconciliationAudit, len(auditModels))
	for i, model := range auditModels {
		audits[i] = *model.ToDomain()
	}
	return audits, nil
}

// CountForBusiness counts audit entries for a business
func (r *GormReconciliationAuditRepository) CountForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ReconciliationAuditModel{}).
		Where("business_id = ?", businessID)

	for key, value := range filter.Filters {
		switch key {
		case "outcome":
			query = query.Where("outcome = ?", value)
		}
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormReconciliationAuditRepository implements ReconciliationAuditRepository
var _ banking.ReconciliationAuditRepository = (*GormReconciliationAuditRepository)(nil)
