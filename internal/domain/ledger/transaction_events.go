package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tallybook/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeTransaction = "Transaction"

// Event type constants
const (
	EventTypeTransactionRecorded       = "TransactionRecorded"
	EventTypeTransactionUpdated        = "TransactionUpdated"
	EventTypeTransactionPaymentApplied = "TransactionPaymentApplied"
	EventTypeTransactionDeleted        = "TransactionDeleted"
)

// TransactionRecordedEvent is raised when a new transaction enters the ledger
type TransactionRecordedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	Type          TransactionType `json:"transaction_type"`
	Total         decimal.Decimal `json:"total"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	ContactID     *uuid.UUID      `json:"contact_id,omitempty"`
}

// NewTransactionRecordedEvent creates a new TransactionRecordedEvent
func NewTransactionRecordedEvent(tx *Transaction) *TransactionRecordedEvent {
	return &TransactionRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionRecorded, AggregateTypeTransaction, tx.ID, tx.BusinessID),
		TransactionID:   tx.ID,
		Type:            tx.Type,
		Total:           tx.Total,
		AmountPaid:      tx.AmountPaid,
		PaymentStatus:   tx.PaymentStatus,
		ContactID:       tx.ContactID,
	}
}

// EventType returns the event type name
func (e *TransactionRecordedEvent) EventType() string {
	return EventTypeTransactionRecorded
}

// TransactionUpdatedEvent is raised when a transaction is edited and re-derived
type TransactionUpdatedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	Type          TransactionType `json:"transaction_type"`
	Total         decimal.Decimal `json:"total"`
	Balance       decimal.Decimal `json:"balance"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// NewTransactionUpdatedEvent creates a new TransactionUpdatedEvent
func NewTransactionUpdatedEvent(tx *Transaction) *TransactionUpdatedEvent {
	return &TransactionUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionUpdated, AggregateTypeTransaction, tx.ID, tx.BusinessID),
		TransactionID:   tx.ID,
		Type:            tx.Type,
		Total:           tx.Total,
		Balance:         tx.Balance,
		PaymentStatus:   tx.PaymentStatus,
	}
}

// EventType returns the event type name
func (e *TransactionUpdatedEvent) EventType() string {
	return EventTypeTransactionUpdated
}

// TransactionPaymentAppliedEvent is raised when a payment is recorded
type TransactionPaymentAppliedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Balance       decimal.Decimal `json:"balance"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// NewTransactionPaymentAppliedEvent creates a new TransactionPaymentAppliedEvent
func NewTransactionPaymentAppliedEvent(tx *Transaction, amount decimal.Decimal) *TransactionPaymentAppliedEvent {
	return &TransactionPaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionPaymentApplied, AggregateTypeTransaction, tx.ID, tx.BusinessID),
		TransactionID:   tx.ID,
		Amount:          amount,
		AmountPaid:      tx.AmountPaid,
		Balance:         tx.Balance,
		PaymentStatus:   tx.PaymentStatus,
	}
}

// EventType returns the event type name
func (e *TransactionPaymentAppliedEvent) EventType() string {
	return EventTypeTransactionPaymentApplied
}

// TransactionDeletedEvent is raised when a transaction is removed.
// Linked documents are deleted in the same unit of work.
type TransactionDeletedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID       `json:"transaction_id"`
	Type          TransactionType `json:"transaction_type"`
	Total         decimal.Decimal `json:"total"`
}

// NewTransactionDeletedEvent creates a new TransactionDeletedEvent
func NewTransactionDeletedEvent(tx *Transaction) *TransactionDeletedEvent {
	return &TransactionDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionDeleted, AggregateTypeTransaction, tx.ID, tx.BusinessID),
		TransactionID:   tx.ID,
		Type:            tx.Type,
		Total:           tx.Total,
	}
}

// EventType returns the event type name
func (e *TransactionDeletedEvent) EventType() string {
	return EventTypeTransactionDeleted
}
