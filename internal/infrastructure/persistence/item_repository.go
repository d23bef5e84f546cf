package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/tallybook/backend/internal/domain/inventory"
	"github.com/tallybook/backend/internal/domain/shared"
	"github.com/tallybook/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormItemRepository implements ItemRepository using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// FindByID finds an item by its ID
func (r *GormItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Item, error) {
	var model models.ItemModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForBusiness finds an item by ID within a business
func (r *GormItemRepository) FindByIDForBusiness(ctx context.Context, businessID, id uuid.UUID) (*inventory.Item, error) {
	var model models.ItemModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND id = ?", businessID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple items by their IDs
func (r *GormItemRepository) FindByIDs(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) ([]inventory.Item, error) {
	if len(ids) == 0 {
		return []inventory.Item{}, nil
	}

	var itemModels []models.ItemModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND id IN ?", businessID, ids).
		Find(&itemModels).Error; err != nil {
		return nil, err
	}

	items := make([]inventory.Item, len(itemModels))
	for i, model := range itemModels {
		items[i] = *model.ToDomain()
	}
	return items, nil
}

// FindAllForBusiness finds items for a business matching the filter, with the
// total match count for pagination
func (r *GormItemRepository) FindAllForBusiness(ctx context.Context, businessID uuid.UUID, filter inventory.ItemFilter) ([]inventory.Item, int64, error) {
	var itemModels []models.ItemModel
	var total int64

	countQuery := r.db.WithContext(ctx).Model(&models.ItemModel{}).
		Where("business_id = ?", businessID)
	countQuery = r.applyFilterWithoutPagination(countQuery, filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Model(&models.ItemModel{}).
		Where("business_id = ?", businessID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&itemModels).Error; err != nil {
		return nil, 0, err
	}

	items := make([]inventory.Item, len(itemModels))
	for i, model := range itemModels {
		items[i] = *model.ToDomain()
	}
	return items, total, nil
}

// FindLowStock finds products with positive stock at or below the low-stock threshold
func (r *GormItemRepository) FindLowStock(ctx context.Context, businessID uuid.UUID) ([]inventory.Item, error) {
	var itemModels []models.ItemModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND type = ?", businessID, inventory.ItemTypeProduct).
		Where("quantity IS NOT NULL AND quantity > 0 AND quantity <= ?", int64(inventory.LowStockThreshold)).
		Order("quantity ASC").
		Find(&itemModels).Error; err != nil {
		return nil, err
	}

	items := make([]inventory.Item, len(itemModels))
	for i, model := range itemModels {
		items[i] = *model.ToDomain()
	}
	return items, nil
}

// FindOutOfStock finds products with zero stock
func (r *GormItemRepository) FindOutOfStock(ctx context.Context, businessID uuid.UUID) ([]inventory.Item, error) {
	var itemModels []models.ItemModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND type = ? AND quantity = 0", businessID, inventory.ItemTypeProduct).
		Order("name ASC").
		Find(&itemModels).Error; err != nil {
		return nil, err
	}

	items := make([]inventory.Item, len(itemModels))
	for i, model := range itemModels {
		items[i] = *model.ToDomain()
	}
	return items, nil
}

// Save creates or updates an item
func (r *GormItemRepository) Save(ctx context.Context, item *inventory.Item) error {
	model := models.ItemModelFromDomain(item)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves an item with optimistic locking (version check).
// Returns an error if the version has changed (concurrent stock movement).
func (r *GormItemRepository) SaveWithLock(ctx context.Context, item *inventory.Item) error {
	model := models.ItemModelFromDomain(item)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", item.ID, item.Version-1).
		Updates(map[string]interface{}{
			"name":          model.Name,
			"type":          model.Type,
			"quantity":      model.Quantity,
			"selling_price": model.SellingPrice,
			"cost_price":    model.CostPrice,
			"currency":      model.Currency,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The item has been modified by another operation")
	}
	return nil
}

// Delete deletes an item within a business
func (r *GormItemRepository) Delete(ctx context.Context, businessID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ItemModel{}, "business_id = ? AND id = ?", businessID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountForBusiness counts items for a business
func (r *GormItemRepository) CountForBusiness(ctx context.Context, businessID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ItemModel{}).
		Where("business_id = ?", businessID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountLowStock counts low-stock products across all businesses
func (r *GormItemRepository) CountLowStock(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ItemModel{}).
		Where("type = ?", inventory.ItemTypeProduct).
		Where("quantity IS NOT NULL AND quantity > 0 AND quantity <= ?", int64(inventory.LowStockThreshold)).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountOutOfStock counts out-of-stock products across all businesses
func (r *GormItemRepository) CountOutOfStock(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ItemModel{}).
		Where("type = ? AND quantity = 0", inventory.ItemTypeProduct).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormItemRepository) applyFilter(query *gorm.DB, filter inventory.ItemFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, ItemSortFields, "name")
	orderDir := "ASC"
	if strings.ToLower(filter.OrderDir) == "desc" {
		orderDir = "DESC"
	}
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormItemRepository) applyFilterWithoutPagination(query *gorm.DB, filter inventory.ItemFilter) *gorm.DB {
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Level != nil {
		switch *filter.Level {
		case inventory.StockLevelOutOfStock:
			query = query.Where("type = ? AND quantity = 0", inventory.ItemTypeProduct)
		case inventory.StockLevelLowStock:
			query = query.Where("type = ?", inventory.ItemTypeProduct).
				Where("quantity IS NOT NULL AND quantity > 0 AND quantity <= ?", int64(inventory.LowStockThreshold))
		case inventory.StockLevelInStock:
			query = query.Where("type = ?", inventory.ItemTypeProduct).
				Where("quantity IS NOT NULL AND quantity > ?", int64(inventory.LowStockThreshold))
		}
	}
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	return query
}

// Ensure GormItemRepository implements ItemRepository
var _ inventory.ItemRepository = (*GormItemRepository)(nil)
