package business

import (
	"strings"
	"time"

	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/domain/shared/valueobject"
)

// Business represents a registered business and its bookkeeping profile.
// It is the aggregate root every other record is scoped under.
type Business struct {
	shared.BaseAggregateRoot
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
func (Business) TableName() string {
	return "businesses"
}

// NewBusiness creates a new business profile
func NewBusiness(name string, currency valueobject.Currency) (*Business, error) {
	if err := validateBusinessName(name); err != nil {
		return nil, err
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unsupported currency code")
	}

	business := &Business{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Currency:          currency,
	}

	business.AddDomainEvent(NewBusinessCreatedEvent(business))

	return business, nil
}

// Update updates the business name
func (b *Business) Update(name string) error {
	if err := validateBusinessName(name); err != nil {
		return err
	}

	b.Name = name
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewBusinessUpdatedEvent(b))

	return nil
}

// SetContact sets the owner's contact information
func (b *Business) SetContact(ownerName, phone, email string) error {
	if ownerName != "" && len(ownerName) > 100 {
		return shared.NewDomainError("INVALID_INPUT", "Owner name cannot exceed 100 characters")
	}
	if phone != "" && len(phone) > 50 {
		return shared.NewDomainError("INVALID_INPUT", "Phone cannot exceed 50 characters")
	}
	if email != "" && len(email) > 200 {
		return shared.NewDomainError("INVALID_INPUT", "Email cannot exceed 200 characters")
	}

	b.OwnerName = ownerName
	b.Phone = phone
	b.Email = email
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	return nil
}

// SetAddress sets the business address
func (b *Business) SetAddress(address string) error {
	if address != "" && len(address) > 500 {
		return shared.NewDomainError("INVALID_INPUT", "Address cannot exceed 500 characters")
	}

	b.Address = address
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	return nil
}

// SetLogoURL sets the business logo URL
func (b *Business) SetLogoURL(url string) error {
	if url != "" && len(url) > 500 {
		return shared.NewDomainError("INVALID_INPUT", "Logo URL cannot exceed 500 characters")
	}

	b.LogoURL = url
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	return nil
}

// SetCurrency changes the default currency for new records.
// Existing records keep the currency they were recorded in.
func (b *Business) SetCurrency(currency valueobject.Currency) error {
	if !currency.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", "Unsupported currency code")
	}

	b.Currency = currency
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewBusinessUpdatedEvent(b))

	return nil
}

// EnableStorefront publishes the online shop under the given slug
func (b *Business) EnableStorefront(slug string) error {
	if err := validateSlug(slug); err != nil {
		return err
	}

	b.Slug = strings.ToLower(slug)
	b.StorefrontEnabled = true
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewBusinessStorefrontChangedEvent(b))

	return nil
}

// DisableStorefront takes the online shop offline. The slug stays reserved.
func (b *Business) DisableStorefront() {
	b.StorefrontEnabled = false
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewBusinessStorefrontChangedEvent(b))
}

// HasStorefront returns true when the online shop is published
func (b *Business) HasStorefront() bool {
	return b.StorefrontEnabled && b.Slug != ""
}

func validateBusinessName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_INPUT", "Business name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_INPUT", "Business name cannot exceed 200 characters")
	}
	return nil
}

func validateSlug(slug string) error {
	if slug == "" {
		return shared.NewDomainError("INVALID_INPUT", "Storefront slug cannot be empty")
	}
	if len(slug) > 100 {
		return shared.NewDomainError("INVALID_INPUT", "Storefront slug cannot exceed 100 characters")
	}
	for _, r := range slug {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-') {
			return shared.NewDomainError("INVALID_INPUT", "Storefront slug can only contain letters, numbers, and hyphens")
		}
	}
	return nil
}
