package csvimport

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRow(line int, data map[string]string) *Row {
	return &Row{LineNumber: line, Data: data}
}

func TestField(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		rule := Field("beneficiary")

		assert.Equal(t, "beneficiary", rule.Column)
		assert.Equal(t, TypeString, rule.Type)
		assert.False(t, rule.Required)
		assert.Equal(t, "2006-01-02", rule.DateFormat)
	})

	t.Run("options compose", func(t *testing.T) {
		rule := Field("amount",
			Required(),
			Typed(TypeDecimal),
			Between(decimal.Zero, decimal.NewFromInt(1000000)),
		)

		assert.True(t, rule.Required)
		assert.Equal(t, TypeDecimal, rule.Type)
		require.NotNil(t, rule.MinValue)
		require.NotNil(t, rule.MaxValue)
		assert.True(t, rule.MaxValue.Equal(decimal.NewFromInt(1000000)))
	})
}

func TestFieldValidator_Required(t *testing.T) {
	v := NewFieldValidator([]FieldRule{
		Field("date", Required()),
		Field("beneficiary"),
	}, 10)

	ok := v.ValidateRow(newRow(2, map[string]string{"date": "", "beneficiary": ""}))

	assert.False(t, ok)
	require.Equal(t, 1, v.Errors().Count())
	assert.Equal(t, ErrCodeImportRequiredField, v.Errors().Errors()[0].Code)
	assert.Equal(t, "date", v.Errors().Errors()[0].Column)
}

func TestFieldValidator_Types(t *testing.T) {
	tests := []struct {
		name  string
		rule  FieldRule
		value string
		valid bool
	}{
		{"valid int", Field("quantity", Typed(TypeInt)), "5", true},
		{"invalid int", Field("quantity", Typed(TypeInt)), "five", false},
		{"valid decimal", Field("amount", Typed(TypeDecimal)), "50.25", true},
		{"invalid decimal", Field("amount", Typed(TypeDecimal)), "fifty", false},
		{"valid date", Field("date", Typed(TypeDate)), "2026-08-01", true},
		{"invalid date", Field("date", Typed(TypeDate)), "01-08-2026", false},
		{"custom date format", Field("date", Typed(TypeDate), DateFormat("02/01/2006")), "01/08/2026", true},
		{"valid email", Field("email", Typed(TypeEmail)), "owner@example.com", true},
		{"invalid email", Field("email", Typed(TypeEmail)), "not-an-email", false},
		{"valid bool", Field("processed", Typed(TypeBool)), "yes", true},
		{"invalid bool", Field("processed", Typed(TypeBool)), "maybe", false},
		{"valid uuid", Field("contact_id", Typed(TypeUUID)), "f47ac10b-58cc-4372-a567-0e02b2c3d479", true},
		{"invalid uuid", Field("contact_id", Typed(TypeUUID)), "not-a-uuid", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewFieldValidator([]FieldRule{tt.rule}, 10)
			assert.Equal(t, tt.valid, v.ValidateRow(newRow(2, map[string]string{tt.rule.Column: tt.value})))
		})
	}
}

func TestFieldValidator_EmptyOptionalSkipsChecks(t *testing.T) {
	v := NewFieldValidator([]FieldRule{
		Field("amount", Typed(TypeDecimal)),
	}, 10)

	assert.True(t, v.ValidateRow(newRow(2, map[string]string{"amount": ""})))
	assert.False(t, v.Errors().HasErrors())
}

func TestFieldValidator_Length(t *testing.T) {
	v := NewFieldValidator([]FieldRule{
		Field("description", Length(3, 10)),
	}, 10)

	assert.True(t, v.ValidateRow(newRow(2, map[string]string{"description": "Parking"})))
	assert.False(t, v.ValidateRow(newRow(3, map[string]string{"description": "ab"})))
	assert.False(t, v.ValidateRow(newRow(4, map[string]string{"description": "a very long description"})))
	assert.Equal(t, 2, v.Errors().Count())
}

func TestFieldValidator_Range(t *testing.T) {
	v := NewFieldValidator([]FieldRule{
		Field("amount", Typed(TypeDecimal), Between(decimal.Zero, decimal.NewFromInt(100))),
	}, 10)

	assert.True(t, v.ValidateRow(newRow(2, map[string]string{"amount": "50.00"})))
	assert.False(t, v.ValidateRow(newRow(3, map[string]string{"amount": "-1"})))
	assert.False(t, v.ValidateRow(newRow(4, map[string]string{"amount": "101"})))

	errs := v.Errors().Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, ErrCodeImportInvalidRange, errs[0].Code)
}

func TestFieldValidator_Pattern(t *testing.T) {
	v := NewFieldValidator([]FieldRule{
		Field("reference", Matching(`^TXN-\d{6}$`, "TXN-NNNNNN")),
	}, 10)

	assert.True(t, v.ValidateRow(newRow(2, map[string]string{"reference": "TXN-000123"})))
	assert.False(t, v.ValidateRow(newRow(3, map[string]string{"reference": "REF-1"})))
	assert.Contains(t, v.Errors().Errors()[0].Message, "TXN-NNNNNN")
}

func TestFieldValidator_UniqueInFile(t *testing.T) {
	v := NewFieldValidator([]FieldRule{
		Field("reference", UniqueInFile()),
	}, 10)

	assert.True(t, v.ValidateRow(newRow(2, map[string]string{"reference": "TXN-000123"})))
	assert.True(t, v.ValidateRow(newRow(3, map[string]string{"reference": "TXN-000124"})))
	assert.False(t, v.ValidateRow(newRow(4, map[string]string{"reference": "TXN-000123"})))

	errs := v.Errors().Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeImportDuplicateInFile, errs[0].Code)
	assert.Contains(t, errs[0].Message, "first seen in row 2")
}

func TestFieldValidator_CheckedBy(t *testing.T) {
	v := NewFieldValidator([]FieldRule{
		Field("type", Required(), CheckedBy(func(value string) error {
			if value != "money_in" && value != "money_out" {
				return fmt.Errorf("type must be 'money_in' or 'money_out'")
			}
			return nil
		})),
	}, 10)

	assert.True(t, v.ValidateRow(newRow(2, map[string]string{"type": "money_in"})))
	assert.False(t, v.ValidateRow(newRow(3, map[string]string{"type": "transfer"})))
	assert.Contains(t, v.Errors().Errors()[0].Message, "money_out")
}

func TestFieldValidator_CollectsAcrossRows(t *testing.T) {
	v := NewFieldValidator([]FieldRule{
		Field("date", Required(), Typed(TypeDate)),
		Field("amount", Required(), Typed(TypeDecimal)),
	}, 10)

	v.ValidateRow(newRow(2, map[string]string{"date": "bad", "amount": "50.00"}))
	v.ValidateRow(newRow(3, map[string]string{"date": "2026-08-01", "amount": "fifty"}))

	s := v.Errors().String()
	assert.Contains(t, s, "row 2, column 'date'")
	assert.Contains(t, s, "row 3, column 'amount'")
	assert.True(t, strings.Contains(s, "2 error(s) found"))
}

func TestFieldValidator_Reset(t *testing.T) {
	v := NewFieldValidator([]FieldRule{
		Field("reference", UniqueInFile()),
	}, 10)

	v.ValidateRow(newRow(2, map[string]string{"reference": "TXN-000123"}))
	v.Reset()

	// after reset the same value no longer counts as a duplicate
	assert.True(t, v.ValidateRow(newRow(2, map[string]string{"reference": "TXN-000123"})))
	assert.False(t, v.Errors().HasErrors())
}
