package partner

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/shared"
)

// ContactType represents the role a contact plays for the business
type ContactType string

const (
	ContactTypeCustomer ContactType = "customer"
	ContactTypeSupplier ContactType = "supplier"
)

// IsValid checks if the type is a valid ContactType
func (t ContactType) IsValid() bool {
	switch t {
	case ContactTypeCustomer, ContactTypeSupplier:
		return true
	}
	return false
}

// String returns the string representation of ContactType
func (t ContactType) String() string {
	return string(t)
}

// Contact represents a customer or supplier the business trades with.
// It is the aggregate root for contact-related operations.
type Contact struct {
	shared.BusinessAggregateRoot
	Name    string      `gorm:"type:varchar(200);not null;index"`
	Type    ContactType `gorm:"type:varchar(20);not null;default:'customer'"`
	Phone   string      `gorm:"type:varchar(50);index"`
	Email   string      `gorm:"type:varchar(200);index"`
	Address string      `gorm:"type:text"`
	Notes   string      `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Contact) TableName() string {
	return "contacts"
}

// NewContact creates a new contact with required fields
func NewContact(businessID uuid.UUID, name string, contactType ContactType) (*Contact, error) {
	if businessID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Business ID cannot be empty")
	}
	if err := validateContactName(name); err != nil {
		return nil, err
	}
	if contactType == "" {
		contactType = ContactTypeCustomer
	}
	if !contactType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Contact type must be 'customer' or 'supplier'")
	}

	contact := &Contact{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		Name:                  name,
		Type:                  contactType,
	}

	contact.AddDomainEvent(NewContactCreatedEvent(contact))

	return contact, nil
}

// Update updates the contact's name and type
func (c *Contact) Update(name string, contactType ContactType) error {
	if err := validateContactName(name); err != nil {
		return err
	}
	if !contactType.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", "Contact type must be 'customer' or 'supplier'")
	}

	c.Name = name
	c.Type = contactType
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	c.AddDomainEvent(NewContactUpdatedEvent(c))

	return nil
}

// SetDetails sets the contact's reachability details
func (c *Contact) SetDetails(phone, email, address string) error {
	if phone != "" {
		if err := validateContactPhone(phone); err != nil {
			return err
		}
	}
	if email != "" {
		if err := validateContactEmail(email); err != nil {
			return err
		}
	}
	if address != "" && len(address) > 500 {
		return shared.NewDomainError("INVALID_INPUT", "Address cannot exceed 500 characters")
	}

	c.Phone = phone
	c.Email = email
	c.Address = address
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}

// SetNotes sets the contact's notes
func (c *Contact) SetNotes(notes string) {
	c.Notes = notes
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// MarkDeleted emits the deletion event; the repository removes the row
func (c *Contact) MarkDeleted() {
	c.AddDomainEvent(NewContactDeletedEvent(c))
}

// IsCustomer returns true if the contact buys from the business
func (c *Contact) IsCustomer() bool {
	return c.Type == ContactTypeCustomer
}

// IsSupplier returns true if the contact sells to the business
func (c *Contact) IsSupplier() bool {
	return c.Type == ContactTypeSupplier
}

func validateContactName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_INPUT", "Contact name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_INPUT", "Contact name cannot exceed 200 characters")
	}
	return nil
}

func validateContactPhone(phone string) error {
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_INPUT", "Phone number cannot exceed 50 characters")
	}
	// Allow digits, spaces, hyphens, parentheses, and plus sign
	validPhone := regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)
	if !validPhone.MatchString(phone) {
		return shared.NewDomainError("INVALID_INPUT", "Invalid phone number format")
	}
	return nil
}

func validateContactEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_INPUT", "Email cannot exceed 200 characters")
	}
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_INPUT", "Invalid email format")
	}
	return nil
}
