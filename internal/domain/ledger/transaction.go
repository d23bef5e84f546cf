package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/domain/shared/valueobject"
)

// TransactionType distinguishes money coming in from money going out
type TransactionType string

const (
	TransactionTypeSale    TransactionType = "sale"
	TransactionTypeExpense TransactionType = "expense"
)

// IsValid checks if the type is a valid TransactionType
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeSale, TransactionTypeExpense:
		return true
	}
	return false
}

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// PaymentStatus is derived from balance and amount paid, never set directly
type PaymentStatus string

const (
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusPartiallyPaid, PaymentStatusUnpaid:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentMethod represents how a transaction was (or will be) paid
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodOther        PaymentMethod = "other"
)

// IsValid checks if the method is a valid PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard, PaymentMethodMobileMoney, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// LineItem represents one line of a transaction.
// Subtotal is always Quantity * UnitPrice rounded to the currency minor unit.
type LineItem struct {
	ID        uuid.UUID       `json:"id"`
	ItemID    *uuid.UUID      `json:"item_id,omitempty"` // optional inventory item link
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// NewLineItem creates a line item and computes its subtotal
func NewLineItem(name string, quantity int64, unitPrice valueobject.Money) (LineItem, error) {
	if name == "" {
		return LineItem{}, shared.NewDomainError("INVALID_INPUT", "Line item name cannot be empty")
	}
	if quantity <= 0 {
		return LineItem{}, shared.NewDomainError("INVALID_INPUT", "Line item quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return LineItem{}, shared.NewDomainError("INVALID_INPUT", "Line item price cannot be negative")
	}

	subtotal := unitPrice.MultiplyByInt(quantity).RoundToMinorUnit()

	return LineItem{
		ID:        uuid.New(),
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice.Amount(),
		Subtotal:  subtotal.Amount(),
	}, nil
}

// NewInventoryLineItem creates a line item linked to an inventory item
func NewInventoryLineItem(itemID uuid.UUID, name string, quantity int64, unitPrice valueobject.Money) (LineItem, error) {
	if itemID == uuid.Nil {
		return LineItem{}, shared.NewDomainError("INVALID_INPUT", "Inventory item ID cannot be empty")
	}
	li, err := NewLineItem(name, quantity, unitPrice)
	if err != nil {
		return LineItem{}, err
	}
	li.ItemID = &itemID
	return li, nil
}

// LineItems is a slice of LineItem that implements GORM Scanner/Valuer for JSONB storage
type LineItems []LineItem

// Value implements driver.Valuer interface for GORM to store as JSONB
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = LineItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan LineItems: unsupported type")
	}

	if len(bytes) == 0 {
		*l = LineItems{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}

// Totals is the derived monetary state of a transaction
type Totals struct {
	Subtotal decimal.Decimal
	Total    decimal.Decimal
	Balance  decimal.Decimal
	Status   PaymentStatus
}

// DeriveTotals computes the derived monetary fields from the independent ones.
// The computation is pure and idempotent:
//
//	subtotal = sum of line subtotals
//	total    = max(subtotal - discount, 0)
//	balance  = total - amount paid (negative when over-paid, never clamped)
//	status   = paid when balance <= 0, unpaid when nothing was paid on a
//	           positive total, partially_paid otherwise
func DeriveTotals(items []LineItem, discount, amountPaid decimal.Decimal) (Totals, error) {
	if discount.IsNegative() {
		return Totals{}, shared.NewDomainError("INVALID_INPUT", "Discount cannot be negative")
	}
	if amountPaid.IsNegative() {
		return Totals{}, shared.NewDomainError("INVALID_INPUT", "Amount paid cannot be negative")
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal)
	}

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	balance := total.Sub(amountPaid)

	var status PaymentStatus
	switch {
	case balance.LessThanOrEqual(decimal.Zero):
		status = PaymentStatusPaid
	case amountPaid.IsZero():
		status = PaymentStatusUnpaid
	default:
		status = PaymentStatusPartiallyPaid
	}

	return Totals{
		Subtotal: subtotal,
		Total:    total,
		Balance:  balance,
		Status:   status,
	}, nil
}

// Transaction represents one recorded sale or expense event.
// All monetary fields besides Discount and AmountPaid are derived and
// recomputed on every mutation.
type Transaction struct {
	shared.BusinessAggregateRoot
	Type          TransactionType      `gorm:"type:varchar(20);not null;index"`
	Date          time.Time            `gorm:"not null;index"`
	ContactID     *uuid.UUID           `gorm:"type:uuid;index"`
	ContactName   string               `gorm:"type:varchar(200)"`
	Category      string               `gorm:"type:varchar(100);index"` // expense category, empty for sales
	Notes         string               `gorm:"type:text"`
	Currency      valueobject.Currency `gorm:"type:varchar(3);not null;default:'USD'"`
	Items         LineItems            `gorm:"type:jsonb;not null;default:'[]'"`
	Discount      decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Subtotal      decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Total         decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	AmountPaid    decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Balance       decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	PaymentStatus PaymentStatus        `gorm:"type:varchar(20);not null;index"`
	PaymentMethod PaymentMethod        `gorm:"type:varchar(20);not null;default:'cash'"`
}

// TableName returns the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}

// NewTransaction creates a transaction and derives its monetary fields
func NewTransaction(
	businessID uuid.UUID,
	txType TransactionType,
	date time.Time,
	currency valueobject.Currency,
	items []LineItem,
	discount decimal.Decimal,
	amountPaid decimal.Decimal,
	method PaymentMethod,
) (*Transaction, error) {
	if businessID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Business ID cannot be empty")
	}
	if !txType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Transaction type must be sale or expense")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Transaction date is required")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unsupported currency")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Transaction must have at least one line item")
	}
	if method == "" {
		method = PaymentMethodCash
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unknown payment method")
	}

	totals, err := DeriveTotals(items, discount, amountPaid)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		Type:                  txType,
		Date:                  date,
		Currency:              currency,
		Items:                 items,
		Discount:              discount,
		Subtotal:              totals.Subtotal,
		Total:                 totals.Total,
		AmountPaid:            amountPaid,
		Balance:               totals.Balance,
		PaymentStatus:         totals.Status,
		PaymentMethod:         method,
	}

	tx.AddDomainEvent(NewTransactionRecordedEvent(tx))

	return tx, nil
}

// SetContact links the transaction to a contact
func (t *Transaction) SetContact(contactID uuid.UUID, name string) error {
	if contactID == uuid.Nil {
		return shared.NewDomainError("INVALID_INPUT", "Contact ID cannot be empty")
	}
	t.ContactID = &contactID
	t.ContactName = name
	t.UpdatedAt = time.Now()
	return nil
}

// ClearContact removes the contact link
func (t *Transaction) ClearContact() {
	t.ContactID = nil
	t.ContactName = ""
	t.UpdatedAt = time.Now()
}

// SetCategory assigns an expense category.
// Sales carry no category; the breakdowns group them by product instead.
func (t *Transaction) SetCategory(category string) error {
	if t.Type != TransactionTypeExpense {
		return shared.NewDomainError("INVALID_INPUT", "Category applies to expense transactions only")
	}
	t.Category = category
	t.UpdatedAt = time.Now()
	return nil
}

// SetNotes sets the free-form notes
func (t *Transaction) SetNotes(notes string) {
	t.Notes = notes
	t.UpdatedAt = time.Now()
}

// Update replaces the independent fields and re-derives everything else.
// Deriving twice from the same inputs yields identical results.
func (t *Transaction) Update(
	date time.Time,
	items []LineItem,
	discount decimal.Decimal,
	amountPaid decimal.Decimal,
	method PaymentMethod,
) error {
	if date.IsZero() {
		return shared.NewDomainError("INVALID_INPUT", "Transaction date is required")
	}
	if len(items) == 0 {
		return shared.NewDomainError("INVALID_INPUT", "Transaction must have at least one line item")
	}
	if !method.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", "Unknown payment method")
	}

	totals, err := DeriveTotals(items, discount, amountPaid)
	if err != nil {
		return err
	}

	t.Date = date
	t.Items = items
	t.Discount = discount
	t.AmountPaid = amountPaid
	t.PaymentMethod = method
	t.applyTotals(totals)
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTransactionUpdatedEvent(t))

	return nil
}

// ApplyPayment records an additional payment against the transaction.
// Over-payment is allowed and results in a negative balance.
func (t *Transaction) ApplyPayment(amount decimal.Decimal, method PaymentMethod) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_INPUT", "Payment amount must be positive")
	}
	if method != "" {
		if !method.IsValid() {
			return shared.NewDomainError("INVALID_INPUT", "Unknown payment method")
		}
		t.PaymentMethod = method
	}

	newPaid := t.AmountPaid.Add(amount)
	totals, err := DeriveTotals(t.Items, t.Discount, newPaid)
	if err != nil {
		return err
	}

	t.AmountPaid = newPaid
	t.applyTotals(totals)
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTransactionPaymentAppliedEvent(t, amount))

	return nil
}

// MarkDeleted emits the deletion event; the repository removes the row
func (t *Transaction) MarkDeleted() {
	t.AddDomainEvent(NewTransactionDeletedEvent(t))
}

// TotalMoney returns the total as a Money value object
func (t *Transaction) TotalMoney() valueobject.Money {
	return valueobject.MustMoney(t.Total, t.Currency)
}

// BalanceMoney returns the balance as a Money value object
func (t *Transaction) BalanceMoney() valueobject.Money {
	return valueobject.MustMoney(t.Balance, t.Currency)
}

// Outstanding returns the amount still owed on this transaction.
// Fully paid transactions contribute nothing.
func (t *Transaction) Outstanding() decimal.Decimal {
	if t.PaymentStatus == PaymentStatusPaid {
		return decimal.Zero
	}
	return t.Total.Sub(t.AmountPaid)
}

func (t *Transaction) applyTotals(totals Totals) {
	t.Subtotal = totals.Subtotal
	t.Total = totals.Total
	t.Balance = totals.Balance
	t.PaymentStatus = totals.Status
}
