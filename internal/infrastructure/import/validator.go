package csvimport

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FieldType names the syntactic check applied to a column value.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt     FieldType = "int"
	TypeDecimal FieldType = "decimal"
	TypeDate    FieldType = "date"
	TypeEmail   FieldType = "email"
	TypeBool    FieldType = "bool"
	TypeUUID    FieldType = "uuid"
)

// FieldRule is the full set of checks for one column of an imported file.
type FieldRule struct {
	Column      string
	Type        FieldType
	Required    bool
	MinLength   int
	MaxLength   int
	MinValue    *decimal.Decimal
	MaxValue    *decimal.Decimal
	Pattern     *regexp.Regexp
	PatternDesc string
	DateFormat  string
	Unique      bool
	CustomFunc  func(value string) error
}

// FieldOption configures a single aspect of a FieldRule.
type FieldOption func(*FieldRule)

// Field assembles the rule for one column. With no options the column is
// an optional free-form string.
func Field(column string, opts ...FieldOption) FieldRule {
	rule := FieldRule{
		Column:     column,
		Type:       TypeString,
		DateFormat: "2006-01-02",
	}
	for _, opt := range opts {
		opt(&rule)
	}
	return rule
}

// Required rejects empty values.
func Required() FieldOption {
	return func(r *FieldRule) { r.Required = true }
}

// Typed sets the syntactic type check.
func Typed(t FieldType) FieldOption {
	return func(r *FieldRule) { r.Type = t }
}

// DateFormat overrides the Go reference layout for TypeDate columns.
func DateFormat(layout string) FieldOption {
	return func(r *FieldRule) { r.DateFormat = layout }
}

// Length bounds the value's length in bytes; zero means unbounded.
func Length(min, max int) FieldOption {
	return func(r *FieldRule) {
		r.MinLength = min
		r.MaxLength = max
	}
}

// Between bounds a numeric column inclusively.
func Between(min, max decimal.Decimal) FieldOption {
	return func(r *FieldRule) {
		r.MinValue = &min
		r.MaxValue = &max
	}
}

// Matching requires the value to match pattern; description is what the
// row error reports.
func Matching(pattern, description string) FieldOption {
	compiled := regexp.MustCompile(pattern)
	return func(r *FieldRule) {
		r.Pattern = compiled
		r.PatternDesc = description
	}
}

// UniqueInFile rejects a value already seen in an earlier row.
func UniqueInFile() FieldOption {
	return func(r *FieldRule) { r.Unique = true }
}

// CheckedBy adds a caller-supplied check run after the built-in ones.
func CheckedBy(fn func(value string) error) FieldOption {
	return func(r *FieldRule) { r.CustomFunc = fn }
}

// FieldValidator validates rows against a set of field rules, collecting
// every violation rather than stopping at the first.
type FieldValidator struct {
	rules     []FieldRule
	seen      map[string]map[string]int // column -> value -> first row number
	collected *ErrorCollection
}

func NewFieldValidator(rules []FieldRule, maxErrors int) *FieldValidator {
	return &FieldValidator{
		rules:     rules,
		seen:      make(map[string]map[string]int),
		collected: NewErrorCollection(maxErrors),
	}
}

// ValidateRow runs every rule against the row. It returns false if the
// row has at least one violation; the details land in Errors().
func (v *FieldValidator) ValidateRow(row *Row) bool {
	ok := true
	for _, rule := range v.rules {
		if !v.checkField(row, rule) {
			ok = false
		}
	}
	return ok
}

func (v *FieldValidator) checkField(row *Row, rule FieldRule) bool {
	value := row.Get(rule.Column)
	line := row.LineNumber

	if value == "" {
		if rule.Required {
			v.collected.AddRequiredError(line, rule.Column)
			return false
		}
		return true
	}

	if err := checkType(value, rule.Type, rule.DateFormat); err != nil {
		v.collected.AddTypeError(line, rule.Column, string(rule.Type), value)
		return false
	}

	ok := true
	if (rule.MinLength > 0 && len(value) < rule.MinLength) ||
		(rule.MaxLength > 0 && len(value) > rule.MaxLength) {
		v.collected.AddLengthError(line, rule.Column, rule.MinLength, rule.MaxLength)
		ok = false
	}

	if rule.Type == TypeInt || rule.Type == TypeDecimal {
		if err := checkRange(value, rule.MinValue, rule.MaxValue); err != nil {
			if rule.MinValue != nil && rule.MaxValue != nil {
				minFloat, _ := rule.MinValue.Float64()
				maxFloat, _ := rule.MaxValue.Float64()
				v.collected.AddRangeError(line, rule.Column, minFloat, maxFloat)
			} else {
				v.collected.AddValidationError(line, rule.Column, ErrCodeImportInvalidRange, err.Error())
			}
			ok = false
		}
	}

	if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
		v.collected.AddPatternError(line, rule.Column, rule.PatternDesc, value)
		ok = false
	}

	if rule.Unique && !v.checkUnique(line, rule.Column, value) {
		ok = false
	}

	if rule.CustomFunc != nil {
		if err := rule.CustomFunc(value); err != nil {
			v.collected.AddValidationError(line, rule.Column, ErrCodeImportValidation, err.Error())
			ok = false
		}
	}
	return ok
}

func (v *FieldValidator) checkUnique(line int, column, value string) bool {
	if v.seen[column] == nil {
		v.seen[column] = make(map[string]int)
	}
	if firstRow, dup := v.seen[column][value]; dup {
		v.collected.Add(NewRowErrorWithValue(line, column, ErrCodeImportDuplicateInFile,
			fmt.Sprintf("duplicate value '%s' (first seen in row %d)", value, firstRow), value))
		return false
	}
	v.seen[column][value] = line
	return true
}

// typeParsers holds the syntactic check per field type. The layout
// argument only matters for dates. TypeString accepts anything.
var typeParsers = map[FieldType]func(value, layout string) error{
	TypeInt:     func(v, _ string) error { _, err := strconv.ParseInt(v, 10, 64); return err },
	TypeDecimal: func(v, _ string) error { _, err := decimal.NewFromString(v); return err },
	TypeDate:    func(v, layout string) error { _, err := time.Parse(layout, v); return err },
	TypeEmail:   func(v, _ string) error { _, err := mail.ParseAddress(v); return err },
	TypeUUID:    func(v, _ string) error { _, err := uuid.Parse(v); return err },
	TypeBool:    func(v, _ string) error { return parseBoolish(v) },
}

func parseBoolish(value string) error {
	switch strings.ToLower(value) {
	case "true", "false", "1", "0", "yes", "no", "y", "n":
		return nil
	}
	return fmt.Errorf("invalid boolean value: %s", value)
}

func checkType(value string, fieldType FieldType, dateFormat string) error {
	if parse, ok := typeParsers[fieldType]; ok {
		return parse(value, dateFormat)
	}
	return nil
}

func checkRange(value string, min, max *decimal.Decimal) error {
	d, err := decimal.NewFromString(value)
	switch {
	case err != nil:
		return err
	case min != nil && d.LessThan(*min):
		return fmt.Errorf("value %s is less than minimum %s", value, min.String())
	case max != nil && d.GreaterThan(*max):
		return fmt.Errorf("value %s is greater than maximum %s", value, max.String())
	}
	return nil
}

// Errors returns the collected violations.
func (v *FieldValidator) Errors() *ErrorCollection {
	return v.collected
}

// Reset clears validator state so it can run another file.
func (v *FieldValidator) Reset() {
	v.seen = make(map[string]map[string]int)
	v.collected.Clear()
}
