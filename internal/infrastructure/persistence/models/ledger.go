package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallybook/backend/internal/domain/ledger"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/domain/shared/valueobject"
)

// TransactionModel is the persistence model for the Transaction aggregate.
// Line items are stored as a JSONB snapshot so deleting an inventory item
// never alters the books.
type TransactionModel struct {
	BusinessAggregateModel
	Type          ledger.TransactionType `gorm:"type:varchar(20);not null;index"`
	Date          time.Time              `gorm:"not null;index"`
	ContactID     *uuid.UUID             `gorm:"type:uuid;index"`
	ContactName   string                 `gorm:"type:varchar(200)"`
	Category      string                 `gorm:"type:varchar(100);index"`
	Notes         string                 `gorm:"type:text"`
	Currency      valueobject.Currency   `gorm:"type:varchar(3);not null;default:'USD'"`
	Items         ledger.LineItems       `gorm:"type:jsonb;not null;default:'[]'"`
	Discount      decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	Subtotal      decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	Total         decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	AmountPaid    decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	Balance       decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	PaymentStatus ledger.PaymentStatus   `gorm:"type:varchar(20);not null;index"`
	PaymentMethod ledger.PaymentMethod   `gorm:"type:varchar(20);not null;default:'cash'"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction aggregate.
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	return &ledger.Transaction{
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
		Type:          m.Type,
		Date:          m.Date,
		ContactID:     m.ContactID,
		ContactName:   m.ContactName,
		Category:      m.Category,
		Notes:         m.Notes,
		Currency:      m.Currency,
		Items:         m.Items,
		Discount:      m.Discount,
		Subtotal:      m.Subtotal,
		Total:         m.Total,
		AmountPaid:    m.AmountPaid,
		Balance:       m.Balance,
		PaymentStatus: m.PaymentStatus,
		PaymentMethod: m.PaymentMethod,
	}
}

// FromDomain populates the persistence model from a domain Transaction aggregate.
func (m *TransactionModel) FromDomain(t *ledger.Transaction) {
	m.FromDomainBusinessAggregateRoot(t.BusinessAggregateRoot)
	m.Type = t.Type
	m.Date = t.Date
	m.ContactID = t.ContactID
	m.ContactName = t.ContactName
	m.Category = t.Category
	m.Notes = t.Notes
	m.Currency = t.Currency
	m.Items = t.Items
	m.Discount = t.Discount
	m.Subtotal = t.Subtotal
	m.Total = t.Total
	m.AmountPaid = t.AmountPaid
	m.Balance = t.Balance
	m.PaymentStatus = t.PaymentStatus
	m.PaymentMethod = t.PaymentMethod
}

// TransactionModelFromDomain creates a new persistence model from a domain Transaction aggregate.
func TransactionModelFromDomain(t *ledger.Transaction) *TransactionModel {
	m := &TransactionModel{}
	m.FromDomain(t)
	return m
}
