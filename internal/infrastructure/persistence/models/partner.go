package models

import (
	"github.com/tallybook/backend/internal/domain/partner"
	"github.com/tallybook/backend/internal/domain/shared"
)

// ContactModel is the persistence model for the Contact aggregate.
type ContactModel struct {
	BusinessAggregateModel
	Name    string              `gorm:"type:varchar(200);not null;index"`
	Type    partner.ContactType `gorm:"type:varchar(20);not null;default:'customer'"`
	Phone   string              `gorm:"type:varchar(50);index"`
	Email   string              `gorm:"type:varchar(200);index"`
	Address string              `gorm:"type:text"`
	Notes   string              `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ContactModel) TableName() string {
	return "contacts"
}

// ToDomain converts the persistence model to a domain Contact aggregate.
func (m *ContactModel) ToDomain() *partner.Contact {
	return &partner.Contact{
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
		Name:    m.Name,
		Type:    m.Type,
		Phone:   m.Phone,
		Email:   m.Email,
		Address: m.Address,
		Notes:   m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Contact aggregate.
func (m *ContactModel) FromDomain(c *partner.Contact) {
	m.FromDomainBusinessAggregateRoot(c.BusinessAggregateRoot)
	m.Name = c.Name
	m.Type = c.Type
	m.Phone = c.Phone
	m.Email = c.Email
	m.Address = c.Address
	m.Notes = c.Notes
}

// ContactModelFromDomain creates a new persistence model from a domain Contact aggregate.
func ContactModelFromDomain(c *partner.Contact) *ContactModel {
	m := &ContactModel{}
	m.FromDomain(c)
	return m
}
