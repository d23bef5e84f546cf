package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/document"
	"github.com/tallybook/backend/internal/domain/shared"
)

// DocumentModel is the persistence model for the Document aggregate.
type DocumentModel struct {
	BusinessAggregateModel
	TransactionID uuid.UUID               `gorm:"type:uuid;not null;index"`
	Type          document.DocumentType   `gorm:"type:varchar(20);not null"`
	Number        string                  `gorm:"type:varchar(50);not null;uniqueIndex:idx_document_business_number,priority:2"`
	Status        document.DocumentStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	SentAt        *time.Time
	ViewedAt      *time.Time
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the persistence model to a domain Document aggregate.
func (m *DocumentModel) ToDomain() *document.Document {
	return &document.Document{
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
		TransactionID: m.TransactionID,
		Type:          m.Type,
		Number:        m.Number,
		Status:        m.Status,
		SentAt:        m.SentAt,
		ViewedAt:      m.ViewedAt,
	}
}

// FromDomain populates the persistence model from a domain Document aggregate.
func (m *DocumentModel) FromDomain(d *document.Document) {
	m.FromDomainBusinessAggregateRoot(d.BusinessAggregateRoot)
	m.TransactionID = d.TransactionID
	m.Type = d.Type
	m.Number = d.Number
	m.Status = d.Status
	m.SentAt = d.SentAt
	m.ViewedAt = d.ViewedAt
}

// DocumentModelFromDomain creates a new persistence model from a domain Document aggregate.
func DocumentModelFromDomain(d *document.Document) *DocumentModel {
	m := &DocumentModel{}
	m.FromDomain(d)
	return m
}
