package csvimport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowError_Error(t *testing.T) {
	withColumn := NewRowError(3, "amount", ErrCodeImportInvalidType, "expected decimal")
	assert.Equal(t, "row 3, column 'amount': expected decimal", withColumn.Error())

	withoutColumn := NewRowError(5, "", ErrCodeImportMalformedRow, "wrong number of fields")
	assert.Equal(t, "row 5: wrong number of fields", withoutColumn.Error())
}

func TestErrorCollection_Add(t *testing.T) {
	ec := NewErrorCollection(10)
	assert.False(t, ec.HasErrors())

	ec.AddRequiredError(2, "date")
	ec.AddTypeError(3, "amount", "decimal", "fifty")

	assert.True(t, ec.HasErrors())
	assert.Equal(t, 2, ec.Count())
	assert.Equal(t, 2, ec.TotalCount())
	assert.False(t, ec.IsTruncated())

	errs := ec.Errors()
	assert.Equal(t, ErrCodeImportRequiredField, errs[0].Code)
	assert.Equal(t, "fifty", errs[1].Value)
}

func TestErrorCollection_Truncation(t *testing.T) {
	ec := NewErrorCollection(3)

	for i := 1; i <= 5; i++ {
		ec.AddRequiredError(i, "date")
	}

	assert.Equal(t, 3, ec.Count())
	assert.Equal(t, 5, ec.TotalCount())
	assert.True(t, ec.IsTruncated())
	assert.Contains(t, ec.String(), "5 error(s) found")
	assert.Contains(t, ec.String(), "showing first 3")
}

func TestErrorCollection_DefaultLimit(t *testing.T) {
	ec := NewErrorCollection(0)
	for i := 0; i < 150; i++ {
		ec.AddRequiredError(i, "date")
	}
	assert.Equal(t, 100, ec.Count())
	assert.Equal(t, 150, ec.TotalCount())
}

func TestErrorCollection_Clear(t *testing.T) {
	ec := NewErrorCollection(10)
	ec.AddRequiredError(2, "date")
	ec.Clear()

	assert.False(t, ec.HasErrors())
	assert.Equal(t, 0, ec.Count())
	assert.Equal(t, "no errors", ec.String())
}

func TestErrorCollection_String(t *testing.T) {
	ec := NewErrorCollection(10)
	ec.AddRequiredError(2, "description")
	ec.AddLengthError(3, "beneficiary", 0, 200)

	s := ec.String()
	assert.Contains(t, s, "2 error(s) found")
	assert.Contains(t, s, "row 2, column 'description'")
	assert.Contains(t, s, "length must be at most 200")
}
