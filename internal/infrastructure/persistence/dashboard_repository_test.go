package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tallybook/backend/internal/domain/report"
)

func newMockDashboardRepository(t *testing.T) (*GormDashboardRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormDashboardRepository(gormDB), mock, mockDB
}

func TestGormDashboardRepository_GetDashboardSummary(t *testing.T) {
	repo, mock, mockDB := newMockDashboardRepository(t)
	defer mockDB.Close()

	businessID := uuid.New()
	filter := report.DashboardFilter{
		BusinessID: businessID,
		StartDate:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC),
	}

	// Queries run in a fixed order: sale totals, expense totals,
	// receivables, payables, bank records, low stock, out of stock.
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(total\), 0\) AS total, COUNT\(\*\) AS count FROM "transactions"`).
		WithArgs(businessID, "sale", filter.StartDate, filter.EndDate).
		WillReturnRows(sqlmock.NewRows([]string{"total", "count"}).AddRow("150.00", 3))

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(total\), 0\) AS total, COUNT\(\*\) AS count FROM "transactions"`).
		WithArgs(businessID, "expense", filter.StartDate, filter.EndDate).
		WillReturnRows(sqlmock.NewRows([]string{"total", "count"}).AddRow("40.00", 2))

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(balance\), 0\) FROM "transactions"`).
		WithArgs(businessID, "sale", "paid").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("25.00"))

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(balance\), 0\) FROM "transactions"`).
		WithArgs(businessID, "expense", "paid").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("10.00"))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "bank_payment_records"`).
		WithArgs(businessID, false).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "items"`).
		WithArgs(businessID, int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	mock.ExpectQuery(`SELECT count\(\*\) FROM "items"`).
		WithArgs(businessID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	summary, err := repo.GetDashboardSummary(context.Background(), filter)

	require.NoError(t, err)
	assert.Equal(t, businessID, summary.BusinessID)
	assert.Equal(t, "150", summary.TotalSales.String())
	assert.Equal(t, int64(3), summary.SaleCount)
	assert.Equal(t, "40", summary.TotalExpenses.String())
	assert.Equal(t, int64(2), summary.ExpenseCount)
	assert.Equal(t, "110", summary.NetProfit.String())
	assert.Equal(t, "25", summary.OutstandingReceivables.String())
	assert.Equal(t, "10", summary.OutstandingPayables.String())
	assert.Equal(t, int64(4), summary.UnprocessedBankRecords)
	assert.Equal(t, int64(2), summary.LowStockCount)
	assert.Equal(t, int64(1), summary.OutOfStockCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDashboardRepository_GetDashboardSummary_QueryError(t *testing.T) {
	repo, mock, mockDB := newMockDashboardRepository(t)
	defer mockDB.Close()

	filter := report.DashboardFilter{
		BusinessID: uuid.New(),
		StartDate:  time.Now().AddDate(0, -1, 0),
		EndDate:    time.Now(),
	}

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(total\), 0\)`).
		WillReturnError(sql.ErrConnDone)

	summary, err := repo.GetDashboardSummary(context.Background(), filter)

	assert.Error(t, err)
	assert.Nil(t, summary)
}
