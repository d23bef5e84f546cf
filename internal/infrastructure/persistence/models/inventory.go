package models

import (
	"github.com/shopspring/decimal"
	"github.com/tallybook/backend/internal/domain/inventory"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/domain/shared/valueobject"
)

// ItemModel is the persistence model for the Item aggregate.
// Quantity is NULL for services, which never track stock.
type ItemModel struct {
	BusinessAggregateModel
	Name         string               `gorm:"type:varchar(200);not null;index"`
	Type         inventory.ItemType   `gorm:"type:varchar(20);not null;default:'product';index"`
	Quantity     *int64               `gorm:"type:bigint"`
	SellingPrice decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	CostPrice    decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Currency     valueobject.Currency `gorm:"type:varchar(3);not null;default:'USD'"`
}

// TableName returns the table name for GORM
func (ItemModel) TableName() string {
	return "items"
}

// ToDomain converts the persistence model to a domain Item aggregate.
func (m *ItemModel) ToDomain() *inventory.Item {
	return &inventory.Item{
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
		Name:         m.Name,
		Type:         m.Type,
		Quantity:     m.Quantity,
		SellingPrice: m.SellingPrice,
		CostPrice:    m.CostPrice,
		Currency:     m.Currency,
	}
}

// FromDomain populates the persistence model from a domain Item aggregate.
func (m *ItemModel) FromDomain(i *inventory.Item) {
	m.FromDomainBusinessAggregateRoot(i.BusinessAggregateRoot)
	m.Name = i.Name
	m.Type = i.Type
	m.Quantity = i.Quantity
	m.SellingPrice = i.SellingPrice
	m.CostPrice = i.CostPrice
	m.Currency = i.Currency
}

// ItemModelFromDomain creates a new persistence model from a domain Item aggregate.
func ItemModelFromDomain(i *inventory.Item) *ItemModel {
	m := &ItemModel{}
	m.FromDomain(i)
	return m
}
