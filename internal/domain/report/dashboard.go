package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DashboardSummary is a read model of the quick stats shown on the home
// dashboard. It is assembled by aggregate queries, not loaded aggregates.
type DashboardSummary struct {
	BusinessID  uuid.UUID `json:"business_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	TotalSales    decimal.Decimal `json:"total_sales"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	SaleCount     int64           `json:"sale_count"`
	ExpenseCount  int64           `json:"expense_count"`

	// OutstandingReceivables sums the balance of unpaid and partially
	// paid sales; OutstandingPayables does the same for expenses.
	OutstandingReceivables decimal.Decimal `json:"outstanding_receivables"`
	OutstandingPayables    decimal.Decimal `json:"outstanding_payables"`

	UnprocessedBankRecords int64 `json:"unprocessed_bank_records"`
	LowStockCount          int64 `json:"low_stock_count"`
	OutOfStockCount        int64 `json:"out_of_stock_count"`
}

// DashboardFilter scopes the dashboard queries
type DashboardFilter struct {
	BusinessID uuid.UUID `json:"-"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
}

// DashboardRepository defines the interface for dashboard summary queries
type DashboardRepository interface {
	// GetDashboardSummary returns the quick stats for the period
	GetDashboardSummary(ctx context.Context, filter DashboardFilter) (*DashboardSummary, error)
}
