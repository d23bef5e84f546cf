package banking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallybook/backend/internal/domain/shared"
)

// BankRecordType represents the direction of an imported bank-statement line
type BankRecordType string

const (
	BankRecordTypeMoneyIn  BankRecordType = "money_in"
	BankRecordTypeMoneyOut BankRecordType = "money_out"
)

// IsValid checks if the type is a valid BankRecordType
func (t BankRecordType) IsValid() bool {
	switch t {
	case BankRecordTypeMoneyIn, BankRecordTypeMoneyOut:
		return true
	}
	return false
}

// String returns the string representation of BankRecordType
func (t BankRecordType) String() string {
	return string(t)
}

// BankPaymentRecord represents one imported line from a bank statement.
// A record converts into at most one transaction; once processed it is terminal.
type BankPaymentRecord struct {
	shared.BusinessAggregateRoot
	Date            time.Time       `gorm:"not null;index"`
	Type            BankRecordType  `gorm:"type:varchar(20);not null;index"`
	Description     string          `gorm:"type:varchar(500);not null"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BeneficiaryName string          `gorm:"type:varchar(200)"`
	TransactionID   *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	Processed       bool            `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (BankPaymentRecord) TableName() string {
	return "bank_payment_records"
}

// NewBankPaymentRecord creates a new unprocessed bank payment record
func NewBankPaymentRecord(
	businessID uuid.UUID,
	date time.Time,
	recordType BankRecordType,
	description string,
	amount decimal.Decimal,
	beneficiaryName string,
) (*BankPaymentRecord, error) {
	if businessID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Business ID cannot be empty")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Record date is required")
	}
	if !recordType.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Record type must be 'money_in' or 'money_out'")
	}
	if description == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Record description cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Record amount must be positive")
	}

	record := &BankPaymentRecord{
		BusinessAggregateRoot: shared.NewBusinessAggregateRoot(businessID),
		Date:                  date,
		Type:                  recordType,
		Description:           description,
		Amount:                amount,
		BeneficiaryName:       beneficiaryName,
		Processed:             false,
	}

	record.AddDomainEvent(NewBankRecordImportedEvent(record))

	return record, nil
}

// IsMoneyIn returns true for incoming payments
func (r *BankPaymentRecord) IsMoneyIn() bool {
	return r.Type == BankRecordTypeMoneyIn
}

// IsMoneyOut returns true for outgoing payments
func (r *BankPaymentRecord) IsMoneyOut() bool {
	return r.Type == BankRecordTypeMoneyOut
}

// CanConvert returns true if the record has not been converted yet
func (r *BankPaymentRecord) CanConvert() bool {
	return !r.Processed
}

// MarkProcessed links the record to its converted transaction and flips the
// processed flag. The flag flips false to true exactly once; a processed
// record rejects any further attempt.
func (r *BankPaymentRecord) MarkProcessed(transactionID uuid.UUID) error {
	if r.Processed {
		return shared.NewDomainError("ALREADY_PROCESSED", "Bank record has already been converted")
	}
	if transactionID == uuid.Nil {
		return shared.NewDomainError("INVALID_INPUT", "Transaction ID cannot be empty")
	}

	r.TransactionID = &transactionID
	r.Processed = true
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewBankRecordProcessedEvent(r))

	return nil
}
