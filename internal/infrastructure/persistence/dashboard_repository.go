package persistence

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tallybook/backend/internal/domain/inventory"
	"github.com/tallybook/backend/internal/domain/ledger"
	"github.com/tallybook/backend/internal/domain/report"
)

// GormDashboardRepository implements DashboardRepository using GORM
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewGormDashboardRepository creates a new GormDashboardRepository
func NewGormDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

type transactionTotals struct {
	Total decimal.Decimal
	Count int64
}

// GetDashboardSummary returns the quick stats for the period. Monetary
// totals and counts are scoped to the filter period; the bank record and
// stock counters are point-in-time and ignore the period.
func (r *GormDashboardRepository) GetDashboardSummary(ctx context.Context, filter report.DashboardFilter) (*report.DashboardSummary, error) {
	summary := &report.DashboardSummary{
		BusinessID:  filter.BusinessID,
		PeriodStart: filter.StartDate,
		PeriodEnd:   filter.EndDate,
	}

	sales, err := r.transactionTotals(ctx, filter, ledger.TransactionTypeSale)
	if err != nil {
		return nil, err
	}
	summary.TotalSales = sales.Total
	summary.SaleCount = sales.Count

	expenses, err := r.transactionTotals(ctx, filter, ledger.TransactionTypeExpense)
	if err != nil {
		return nil, err
	}
	summary.TotalExpenses = expenses.Total
	summary.ExpenseCount = expenses.Count

	summary.NetProfit = summary.TotalSales.Sub(summary.TotalExpenses)

	// Outstanding balances are not period scoped: an old unpaid invoice
	// is still owed today.
	summary.OutstandingReceivables, err = r.outstandingBalance(ctx, filter, ledger.TransactionTypeSale)
	if err != nil {
		return nil, err
	}
	summary.OutstandingPayables, err = r.outstandingBalance(ctx, filter, ledger.TransactionTypeExpense)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Table("bank_payment_records").
		Where("business_id = ?", filter.BusinessID).
		Where("processed = ?", false).
		Count(&summary.UnprocessedBankRecords).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Table("items").
		Where("business_id = ?", filter.BusinessID).
		Where("quantity IS NOT NULL AND quantity > 0 AND quantity <= ?", int64(inventory.LowStockThreshold)).
		Count(&summary.LowStockCount).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Table("items").
		Where("business_id = ?", filter.BusinessID).
		Where("quantity IS NOT NULL AND quantity = 0").
		Count(&summary.OutOfStockCount).Error; err != nil {
		return nil, err
	}

	return summary, nil
}

func (r *GormDashboardRepository) transactionTotals(ctx context.Context, filter report.DashboardFilter, txType ledger.TransactionType) (transactionTotals, error) {
	var totals transactionTotals
	err := r.db.WithContext(ctx).Table("transactions").
		Select("COALESCE(SUM(total), 0) AS total, COUNT(*) AS count").
		Where("business_id = ?", filter.BusinessID).
		Where("type = ?", txType).
		Where("date BETWEEN ? AND ?", filter.StartDate, filter.EndDate).
		Scan(&totals).Error
	return totals, err
}

func (r *GormDashboardRepository) outstandingBalance(ctx context.Context, filter report.DashboardFilter, txType ledger.TransactionType) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.WithContext(ctx).Table("transactions").
		Select("COALESCE(SUM(balance), 0)").
		Where("business_id = ?", filter.BusinessID).
		Where("type = ?", txType).
		Where("payment_status <> ?", ledger.PaymentStatusPaid).
		Scan(&balance).Error
	return balance, err
}

// Interface compliance check
var _ report.DashboardRepository = (*GormDashboardRepository)(nil)
