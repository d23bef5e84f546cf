package ledger

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OutstandingBalance sums (total - amount_paid) over transactions that are
// not fully paid. It is a pure fold: adding an unpaid transaction never
// decreases the result, and paying one down never increases it.
func OutstandingBalance(txs []Transaction) decimal.Decimal {
	sum := decimal.Zero
	for i := range txs {
		sum = sum.Add(txs[i].Outstanding())
	}
	return sum
}

// DebtorBalance is the owed amount for one contact
type DebtorBalance struct {
	ContactID   uuid.UUID       `json:"contact_id"`
	ContactName string          `json:"contact_name"`
	Owed        decimal.Decimal `json:"owed"`
	OpenCount   int             `json:"open_count"`
}

// OutstandingByContact folds non-paid transactions into per-contact owed
// balances. Transactions without a contact are skipped. The slice is ordered
// by owed amount descending; equal amounts keep first-encountered order.
func OutstandingByContact(txs []Transaction) []DebtorBalance {
	balances := make(map[uuid.UUID]*DebtorBalance)
	order := make([]uuid.UUID, 0)

	for i := range txs {
		tx := &txs[i]
		if tx.ContactID == nil || tx.PaymentStatus == PaymentStatusPaid {
			continue
		}
		b, ok := balances[*tx.ContactID]
		if !ok {
			b = &DebtorBalance{
				ContactID:   *tx.ContactID,
				ContactName: tx.ContactName,
				Owed:        decimal.Zero,
			}
			balances[*tx.ContactID] = b
			order = append(order, *tx.ContactID)
		}
		b.Owed = b.Owed.Add(tx.Outstanding())
		b.OpenCount++
	}

	result := make([]DebtorBalance, 0, len(order))
	for _, id := range order {
		result = append(result, *balances[id])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Owed.GreaterThan(result[j].Owed)
	})
	return result
}
