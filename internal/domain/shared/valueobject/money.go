package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 currency code.
type Currency string

const (
	USD Currency = "USD" // US Dollar (default)
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	NGN Currency = "NGN" // Nigerian Naira
	GHS Currency = "GHS" // Ghanaian Cedi
	KES Currency = "KES" // Kenyan Shilling
	ZAR Currency = "ZAR" // South African Rand
	JPY Currency = "JPY" // Japanese Yen
)

// DefaultCurrency applies when a business has not picked one.
const DefaultCurrency = USD

// minorUnits holds the decimal places per currency. Anything not listed
// uses two.
var minorUnits = map[Currency]int32{
	JPY: 0,
}

// IsValid reports whether the currency is one the system supports.
func (c Currency) IsValid() bool {
	switch c {
	case USD, EUR, GBP, NGN, GHS, KES, ZAR, JPY:
		return true
	}
	return false
}

// MinorUnits returns the currency's number of decimal places.
func (c Currency) MinorUnits() int32 {
	if units, ok := minorUnits[c]; ok {
		return units
	}
	return 2
}

func (c Currency) String() string {
	return string(c)
}

// Money is an immutable amount-plus-currency pair. Arithmetic returns
// new values and refuses to mix currencies.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney builds a Money; the currency must be non-empty.
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromString parses the amount from its decimal string form.
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// MustMoney is NewMoney for constants and tests; panics on an empty
// currency.
func MustMoney(amount decimal.Decimal, currency Currency) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }

// derive keeps the currency while swapping the amount.
func (m Money) derive(amount decimal.Decimal) Money {
	return Money{amount: amount, currency: m.currency}
}

func (m Money) sameCurrency(op string, other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("cannot %s money with different currencies: %s and %s",
			op, m.currency, other.currency)
	}
	return nil
}

// Add sums two amounts of the same currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency("add", other); err != nil {
		return Money{}, err
	}
	return m.derive(m.amount.Add(other.amount)), nil
}

// Subtract takes other away from m; both must share a currency.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency("subtract", other); err != nil {
		return Money{}, err
	}
	return m.derive(m.amount.Sub(other.amount)), nil
}

// Multiply scales the amount by factor.
func (m Money) Multiply(factor decimal.Decimal) Money {
	return m.derive(m.amount.Mul(factor))
}

// MultiplyByInt scales the amount by an integer factor, e.g. a quantity.
func (m Money) MultiplyByInt(factor int64) Money {
	return m.Multiply(decimal.NewFromInt(factor))
}

// Negate flips the sign.
func (m Money) Negate() Money {
	return m.derive(m.amount.Neg())
}

// Abs drops the sign.
func (m Money) Abs() Money {
	return m.derive(m.amount.Abs())
}

// Round rounds to the given number of decimal places.
func (m Money) Round(places int32) Money {
	return m.derive(m.amount.Round(places))
}

// RoundToMinorUnit rounds to the currency's own precision.
func (m Money) RoundToMinorUnit() Money {
	return m.Round(m.currency.MinorUnits())
}

// Equals reports amount and currency equality.
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// compare returns m.amount <=> other.amount, erroring on mixed currencies.
func (m Money) compare(other Money) (int, error) {
	if err := m.sameCurrency("compare", other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

func (m Money) LessThan(other Money) (bool, error) {
	c, err := m.compare(other)
	return c < 0, err
}

func (m Money) LessThanOrEqual(other Money) (bool, error) {
	c, err := m.compare(other)
	return c <= 0, err
}

func (m Money) GreaterThan(other Money) (bool, error) {
	c, err := m.compare(other)
	return c > 0, err
}

func (m Money) GreaterThanOrEqual(other Money) (bool, error) {
	c, err := m.compare(other)
	return c >= 0, err
}

// String renders "12.50 USD" style, at the currency's precision.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.StringFixed(), m.currency)
}

// StringFixed renders the bare amount at the currency's precision.
func (m Money) StringFixed() string {
	return m.amount.StringFixed(m.currency.MinorUnits())
}

// Float64 converts the amount, possibly losing precision. Display only.
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON renders the amount as a string so precision survives
// JavaScript clients.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{
		Amount:   m.amount.String(),
		Currency: m.currency,
	})
}

// UnmarshalJSON supports API request binding and reading snapshots from
// external sources.
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	m.amount = amount
	m.currency = v.Currency
	return nil
}

// Value stores the amount only; the currency lives in its own column.
func (m Money) Value() (driver.Value, error) {
	return m.amount.String(), nil
}

// Scan reads the numeric amount; the currency defaults to
// DefaultCurrency unless already set on the receiver.
func (m *Money) Scan(value any) error {
	if value == nil {
		m.amount = decimal.Zero
		m.currency = DefaultCurrency
		return nil
	}

	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case float64:
		raw = decimal.NewFromFloat(v).String()
	case int64:
		raw = decimal.NewFromInt(v).String()
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid decimal value: %w", err)
	}
	m.amount = amount
	if m.currency == "" {
		m.currency = DefaultCurrency
	}
	return nil
}

// WithCurrency re-tags the amount, used when hydrating from storage
// where the currency column is read separately.
func (m Money) WithCurrency(currency Currency) Money {
	return Money{amount: m.amount, currency: currency}
}
