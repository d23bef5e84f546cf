package banking

import (
	"time"

	"github.com/google/uuid"
)

// ReconciliationOutcome classifies the result of a conversion attempt
type ReconciliationOutcome string

const (
	// ReconciliationOutcomeCompleted means the transaction was created and the record flipped
	ReconciliationOutcomeCompleted ReconciliationOutcome = "completed"
	// ReconciliationOutcomeRejected means the record was already processed and nothing was written
	ReconciliationOutcomeRejected ReconciliationOutcome = "rejected"
	// ReconciliationOutcomeInconsistent means the two dependent writes diverged and
	// the ledger may hold an orphan transaction. Never retried automatically.
	ReconciliationOutcomeInconsistent ReconciliationOutcome = "inconsistent"
)

// IsValid checks if the outcome is a valid ReconciliationOutcome
func (o ReconciliationOutcome) IsValid() bool {
	switch o {
	case ReconciliationOutcomeCompleted, ReconciliationOutcomeRejected, ReconciliationOutcomeInconsistent:
		return true
	}
	return false
}

// String returns the string representation of ReconciliationOutcome
func (o ReconciliationOutcome) String() string {
	return string(o)
}

// ReconciliationAudit is one append-only entry in the reconciliation trail.
// Inconsistent entries are the surface for partially-failed conversions.
type ReconciliationAudit struct {
	ID            uuid.UUID             `gorm:"type:uuid;primaryKey"`
	BusinessID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	RecordID      uuid.UUID             `gorm:"type:uuid;not null;index"`
	TransactionID *uuid.UUID            `gorm:"type:uuid"`
	Outcome       ReconciliationOutcome `gorm:"type:varchar(20);not null;index"`
	Detail        string                `gorm:"type:text"`
	CreatedAt     time.Time             `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM
func (ReconciliationAudit) TableName() string {
	return "reconciliation_audits"
}

// NewReconciliationAudit creates a new audit entry
func NewReconciliationAudit(businessID, recordID uuid.UUID, transactionID *uuid.UUID, outcome ReconciliationOutcome, detail string) *ReconciliationAudit {
	return &ReconciliationAudit{
		ID:            uuid.New(),
		BusinessID:    businessID,
		RecordID:      recordID,
		TransactionID: transactionID,
		Outcome:       outcome,
		Detail:        detail,
		CreatedAt:     time.Now(),
	}
}

// IsInconsistent returns true if the entry records a partial failure
func (a *ReconciliationAudit) IsInconsistent() bool {
	return a.Outcome == ReconciliationOutcomeInconsistent
}
