package banking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/shared"
)

// BankRecordFilter carries query options for listing bank payment records
type BankRecordFilter struct {
	Type      *BankRecordType
	Processed *bool
	DateFrom  *time.Time
	DateTo    *time.Time
	Search    string
	Page      int
	PageSize  int
	OrderBy   string
	OrderDir  string
}

// DefaultBankRecordFilter returns a filter with sensible defaults
func DefaultBankRecordFilter() BankRecordFilter {
	return BankRecordFilter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "date",
		OrderDir: "desc",
	}
}

// BankRecordRepository defines the interface for bank payment record persistence
type BankRecordRepository interface {
	// FindByID finds a record by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*BankPaymentRecord, error)

	// FindByIDForBusiness finds a record by ID within a business
	FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*BankPaymentRecord, error)

	// FindByTransactionID finds the record linked to a transaction, if any
	FindByTransactionID(ctx context.Context, businessID, transactionID uuid.UUID) (*BankPaymentRecord, error)

	// FindAllForBusiness finds records for a business matching the filter
	FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter BankRecordFilter) ([]BankPaymentRecord, int64, error)

	// FindUnprocessed finds all records still awaiting conversion
	FindUnprocessed(ctx context.Context, businessID uuid.UUID) ([]BankPaymentRecord, error)

	// Save creates or updates a record
	Save(ctx context.Context, record *BankPaymentRecord) error

	// SaveBatch creates multiple records in one write (statement import)
	SaveBatch(ctx context.Context, records []*BankPaymentRecord) error

	// MarkProcessed links a record to its transaction with a single conditional
	// write: the flag flips only while processed is still false. Returns
	// shared.ErrAlreadyProcessed when another conversion won the race and
	// shared.ErrNotFound when the record does not exist.
	MarkProcessed(ctx context.Context, businessID, recordID, transactionID uuid.UUID) error

	// CountUnprocessed counts records still awaiting conversion
	CountUnprocessed(ctx context.Context, businessID uuid.UUID) (int64, error)
}

// ReconciliationAuditRepository defines the interface for the audit trail
type ReconciliationAuditRepository interface {
	// Save appends an audit entry
	Save(ctx context.Context, audit *ReconciliationAudit) error

	// FindAllForBusiness lists audit entries for a business, newest first
	FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) ([]ReconciliationAudit, error)

	// FindByRecordID lists audit entries for one bank record
	FindByRecordID(ctx context.Context, businessID, recordID uuid.UUID) ([]ReconciliationAudit, error)

	// FindInconsistent lists entries recording partial failures
	FindInconsistent(ctx context.Context, businessID uuid.UUID) ([]ReconciliationAudit, error)

	// CountForBusiness counts audit entries for a business
	CountForBusiness(ctx context.Context, businessID uuid.UUID, filter shared.Filter) (int64, error)
}
