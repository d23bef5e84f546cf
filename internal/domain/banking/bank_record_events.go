package banking

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallybook/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeBankRecord = "BankPaymentRecord"

// Event type constants
const (
	EventTypeBankRecordImported  = "BankRecordImported"
	EventTypeBankRecordProcessed = "BankRecordProcessed"
)

// BankRecordImportedEvent is published when a bank-statement line is imported
type BankRecordImportedEvent struct {
	shared.BaseDomainEvent
	RecordID    uuid.UUID       `json:"record_id"`
	Type        BankRecordType  `json:"type"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// NewBankRecordImportedEvent creates a new BankRecordImportedEvent
func NewBankRecordImportedEvent(record *BankPaymentRecord) *BankRecordImportedEvent {
	return &BankRecordImportedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBankRecordImported, AggregateTypeBankRecord, record.ID, record.BusinessID),
		RecordID:        record.ID,
		Type:            record.Type,
		Description:     record.Description,
		Amount:          record.Amount,
	}
}

// BankRecordProcessedEvent is published when a record is converted into a transaction
type BankRecordProcessedEvent struct {
	shared.BaseDomainEvent
	RecordID      uuid.UUID       `json:"record_id"`
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// NewBankRecordProcessedEvent creates a new BankRecordProcessedEvent
func NewBankRecordProcessedEvent(record *BankPaymentRecord) *BankRecordProcessedEvent {
	var transactionID uuid.UUID
	if record.TransactionID != nil {
		transactionID = *record.TransactionID
	}
	return &BankRecordProcessedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBankRecordProcessed, AggregateTypeBankRecord, record.ID, record.BusinessID),
		RecordID:        record.ID,
		TransactionID:   transactionID,
		Amount:          record.Amount,
	}
}
