package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallybook/backend/internal/domain/banking"
	"github.com/tallybook/backend/internal/domain/shared"
)

// BankPaymentRecordModel is the persistence model for the BankPaymentRecord aggregate.
type BankPaymentRecordModel struct {
	BusinessAggregateModel
	Date            time.Time              `gorm:"not null;index"`
	Type            banking.BankRecordType `gorm:"type:varchar(20);not null;index"`
	Description     string                 `gorm:"type:varchar(500);not null"`
	Amount          decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	BeneficiaryName string                 `gorm:"type:varchar(200)"`
	TransactionID   *uuid.UUID             `gorm:"type:uuid;uniqueIndex"`
	Processed       bool                   `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (BankPaymentRecordModel) TableName() string {
	return "bank_payment_records"
}

// ToDomain converts the persistence model to a domain BankPaymentRecord aggregate.
func (m *BankPaymentRecordModel) ToDomain() *banking.BankPaymentRecord {
	return &banking.BankPaymentRecord{
		BusinessAggregateRoot: shared.BusinessAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: shared.BaseEntity{
					ID:        m.ID,
					CreatedAt: m.CreatedAt,
					UpdatedAt: m.UpdatedAt,
				},
				Version: m.Version,
			},
			BusinessID: m.BusinessID,
		},
		Date:            m.Date,
		Type:            m.Type,
		Description:     m.Description,
		Amount:          m.Amount,
		BeneficiaryName: m.BeneficiaryName,
		TransactionID:   m.TransactionID,
		Processed:       m.Processed,
	}
}

// FromDomain populates the persistence model from a domain BankPaymentRecord aggregate.
func (m *BankPaymentRecordModel) FromDomain(r *banking.BankPaymentRecord) {
	m.FromDomainBusinessAggregateRoot(r.BusinessAggregateRoot)
	m.Date = r.Date
	m.Type = r.Type
	m.Description = r.Description
	m.Amount = r.Amount
	m.BeneficiaryName = r.BeneficiaryName
	m.TransactionID = r.TransactionID
	m.Processed = r.Processed
}

// BankPaymentRecordModelFromDomain creates a new persistence model from a domain BankPaymentRecord aggregate.
func BankPaymentRecordModelFromDomain(r *banking.BankPaymentRecord) *BankPaymentRecordModel {
	m := &BankPaymentRecordModel{}
	m.FromDomain(r)
	return m
}

// ReconciliationAuditModel is the persistence model for reconciliation audit entries.
// Audit entries are append-only and are never updated, so the model carries no
// version or updated-at column.
type ReconciliationAuditModel struct {
	ID            uuid.UUID                     `gorm:"type:uuid;primary_key"`
	BusinessID    uuid.UUID                     `gorm:"type:uuid;not null;index"`
	RecordID      uuid.UUID                     `gorm:"type:uuid;not null;index"`
	TransactionID *uuid.UUID                    `gorm:"type:uuid"`
	Outcome       banking.ReconciliationOutcome `gorm:"type:varchar(20);not null;index"`
	Detail        string                        `gorm:"type:text"`
	CreatedAt     time.Time                     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReconciliationAuditModel) TableName() string {
	return "reconciliation_audits"
}

// ToDomain converts the persistence model to a domain ReconciliationAudit entry.
func (m *ReconciliationAuditModel) ToDomain() *banking.ReconciliationAudit {
	return &banking.ReconciliationAudit{
		ID:            m.ID,
		BusinessID:    m.BusinessID,
		RecordID:      m.RecordID,
		TransactionID: m.TransactionID,
		Outcome:       m.Outcome,
		Detail:        m.Detail,
		CreatedAt:     m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain ReconciliationAudit entry.
func (m *ReconciliationAuditModel) FromDomain(a *banking.ReconciliationAudit) {
	m.ID = a.ID
	m.BusinessID = a.BusinessID
	m.RecordID = a.RecordID
	m.TransactionID = a.TransactionID
	m.Outcome = a.Outcome
	m.Detail = a.Detail
	m.CreatedAt = a.CreatedAt
}

// ReconciliationAuditModelFromDomain creates a new persistence model from a domain ReconciliationAudit entry.
func ReconciliationAuditModelFromDomain(a *banking.ReconciliationAudit) *ReconciliationAuditModel {
	m := &ReconciliationAuditModel{}
	m.FromDomain(a)
	return m
}
