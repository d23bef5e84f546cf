package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransactionFilter narrows transaction queries
type TransactionFilter struct {
	Types     []TransactionType
	Statuses  []PaymentStatus
	ContactID *uuid.UUID
	Category  string
	DateFrom  *time.Time
	DateTo    *time.Time
	Search    string
	Page      int
	PageSize  int
	OrderBy   string
	OrderDir  string
}

// DefaultTransactionFilter returns a filter with default paging
func DefaultTransactionFilter() TransactionFilter {
	return TransactionFilter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "date",
		OrderDir: "desc",
	}
}

// TransactionRepository persists transactions
type TransactionRepository interface {
	Save(ctx context.Context, tx *Transaction) error
	FindByID(ctx context.Context, businessID, id uuid.UUID) (*Transaction, error)
	FindAll(ctx context.Context, businessID uuid.UUID, filter TransactionFilter) ([]Transaction, int64, error)
	// FindByContact returns the contact's transactions, optionally narrowed
	// to the given payment statuses.
	FindByContact(ctx context.Context, businessID, contactID uuid.UUID, statuses []PaymentStatus) ([]Transaction, error)
	// FindOutstanding returns every transaction that still carries a balance.
	// Feeds the debt summary fold.
	FindOutstanding(ctx context.Context, businessID uuid.UUID) ([]Transaction, error)
	// FindInWindow returns all transactions dated within [from, to] for
	// aggregation. No paging: the ledger aggregator folds the full window.
	FindInWindow(ctx context.Context, businessID uuid.UUID, from, to time.Time) ([]Transaction, error)
	// CountByContact reports how many transactions reference the contact.
	// Contact deletion is blocked while this is non-zero.
	CountByContact(ctx context.Context, businessID, contactID uuid.UUID) (int64, error)
	// Delete removes the transaction together with the documents issued
	// for it, atomically. A document must never outlive its transaction.
	Delete(ctx context.Context, businessID, id uuid.UUID) error
}
