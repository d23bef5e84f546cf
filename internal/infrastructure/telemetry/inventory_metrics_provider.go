// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormInventoryMetricsProvider implements InventoryMetricsProvider using GORM.
// It queries the items table directly for aggregated stock metrics. The low
// stock threshold is injected so this package stays independent of the domain
// layer.
type GormInventoryMetricsProvider struct {
	db                *gorm.DB
	lowStockThreshold int64
}

// NewGormInventoryMetricsProvider creates a new GormInventoryMetricsProvider.
func NewGormInventoryMetricsProvider(db *gorm.DB, lowStockThreshold int64) *GormInventoryMetricsProvider {
	return &GormInventoryMetricsProvider{db: db, lowStockThreshold: lowStockThreshold}
}

// GetLowStockCount returns the number of products at or below the low stock
// threshold. Out-of-stock products are counted separately.
func (p *GormInventoryMetricsProvider) GetLowStockCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("items").
		Where("type = ?", "product").
		Where("quantity IS NOT NULL AND quantity > 0 AND quantity <= ?", p.lowStockThreshold).
		Count(&count).Error

	return count, err
}

// GetOutOfStockCount returns the number of products with zero quantity.
func (p *GormInventoryMetricsProvider) GetOutOfStockCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("items").
		Where("type = ?", "product").
		Where("quantity = 0").
		Count(&count).Error

	return count, err
}

// GormBankingMetricsProvider implements BankingMetricsProvider using GORM.
type GormBankingMetricsProvider struct {
	db *gorm.DB
}

// NewGormBankingMetricsProvider creates a new GormBankingMetricsProvider.
func NewGormBankingMetricsProvider(db *gorm.DB) *GormBankingMetricsProvider {
	return &GormBankingMetricsProvider{db: db}
}

// GetUnprocessedRecordCount returns the number of imported bank records that
// have not been converted into transactions.
func (p *GormBankingMetricsProvider) GetUnprocessedRecordCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("bank_payment_records").
		Where("processed = ?", false).
		Count(&count).Error

	return count, err
}
