package models

import (
	"github.com/tallybook/backend/internal/domain/business"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/domain/shared/valueobject"
)

// BusinessModel is the persistence model for the Business aggregate.
// A business is the tenancy root, so it embeds AggregateModel rather than
// BusinessAggregateModel.
type BusinessModel struct {
	AggregateModel
	Name              string               `gorm:"type:varchar(200);not null"`
	OwnerName         string               `gorm:"type:varchar(100)"`
	Phone             string               `gorm:"type:varchar(50)"`
	Email             string               `gorm:"type:varchar(200)"`
	Address           string               `gorm:"type:text"`
	Currency          valueobject.Currency `gorm:"type:varchar(3);not null;default:'USD'"`
	LogoURL           string               `gorm:"type:varchar(500)"`
	Slug              string               `gorm:"type:varchar(100);uniqueIndex"`
	StorefrontEnabled bool                 `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (BusinessModel) TableName() string {
	return "businesses"
}

// ToDomain converts the persistence model to a domain Business aggregate.
func (m *BusinessModel) ToDomain() *business.Business {
	return &business.Business{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Name:              m.Name,
		OwnerName:         m.OwnerName,
		Phone:             m.Phone,
		Email:             m.Email,
		Address:           m.Address,
		Currency:          m.Currency,
		LogoURL:           m.LogoURL,
		Slug:              m.Slug,
		StorefrontEnabled: m.StorefrontEnabled,
	}
}

// FromDomain populates the persistence model from a domain Business aggregate.
func (m *BusinessModel) FromDomain(b *business.Business) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.Name = b.Name
	m.OwnerName = b.OwnerName
	m.Phone = b.Phone
	m.Email = b.Email
	m.Address = b.Address
	m.Currency = b.Currency
	m.LogoURL = b.LogoURL
	m.Slug = b.Slug
	m.StorefrontEnabled = b.StorefrontEnabled
}

// BusinessModelFromDomain creates a new persistence model from a domain Business aggregate.
func BusinessModelFromDomain(b *business.Business) *BusinessModel {
	m := &BusinessModel{}
	m.FromDomain(b)
	return m
}
