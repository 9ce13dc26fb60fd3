package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"storevision-service/internal/models"
)

// ErrNotFound is returned when a record doesn't exist
var ErrNotFound = errors.New("record not found")

// Cache TTL constants
const (
	productCacheTTL = 5 * time.Minute

	cacheKeyPrefix = "storevision:inventory:"
)

// InventoryRepositoryInterface defines the contract for inventory data access
type InventoryRepositoryInterface interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*models.Product, error)
	ListProductsByStore(ctx context.Context, storeID string) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ApplyStockDelta(ctx context.Context, productID uuid.UUID, userID string, delta int) (*models.Product, *models.StockHistory, error)
	QueryStockHistory(ctx context.Context, q models.StockHistoryQuery) ([]models.StockHistory, error)
	QueryStockHistoryByStore(ctx context.Context, storeID string, since time.Time, order models.HistoryOrder) ([]models.StockHistory, error)
	CountStockMovementsByStore(ctx context.Context, storeID string) (map[uuid.UUID]int, error)
	GetLowStockProducts(ctx context.Context, storeID string, threshold int) ([]models.Product, error)
	GetInventoryStats(ctx context.Context, storeID string, lowStockThreshold int) (*models.InventoryStats, error)
	RedisHealth(ctx context.Context) error
}

type InventoryRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewInventoryRepository(db *gorm.DB, redisClient *redis.Client) *InventoryRepository {
	return &InventoryRepository{
		db:    db,
		redis: redisClient,
	}
}

func productCacheKey(id uuid.UUID) string {
	return cacheKeyPrefix + "product:" + id.String()
}

func (r *InventoryRepository) invalidateProductCache(ctx context.Context, id uuid.UUID) {
	if r.redis == nil {
		return
	}
	_ = r.redis.Del(ctx, productCacheKey(id)).Err()
}

// RedisHealth returns the health status of the Redis connection
func (r *InventoryRepository) RedisHealth(ctx context.Context) error {
	if r.redis == nil {
		return fmt.Errorf("redis not configured")
	}
	return r.redis.Ping(ctx).Err()
}

// ========== Product Operations ==========

// CreateProduct creates a new product
func (r *InventoryRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Create(product).Error
}

// GetProductByID retrieves a product by ID, with read-through caching
func (r *InventoryRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if r.redis != nil {
		val, err := r.redis.Get(ctx, productCacheKey(id)).Result()
		if err == nil {
			var product models.Product
			if err := json.Unmarshal([]byte(val), &product); err == nil {
				return &product, nil
			}
		}
	}

	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if r.redis != nil {
		if data, marshalErr := json.Marshal(product); marshalErr == nil {
			r.redis.Set(ctx, productCacheKey(id), data, productCacheTTL)
		}
	}

	return &product, nil
}

// GetProductBySKU retrieves a product by SKU
func (r *InventoryRepository) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// ListProductsByStore retrieves all products for a store
func (r *InventoryRepository) ListProductsByStore(ctx context.Context, storeID string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("store_id = ?", storeID).
		Order("name ASC").
		Find(&products).Error
	return products, err
}

// UpdateProduct updates catalog fields. Stock is never part of updates;
// stock changes go through ApplyStockDelta so the ledger stays complete.
func (r *InventoryRepository) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	delete(updates, "stock")
	delete(updates, "sku")
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	r.invalidateProductCache(ctx, id)
	return nil
}

// DeleteProduct deletes a product
func (r *InventoryRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	r.invalidateProductCache(ctx, id)
	return nil
}

// ========== Stock Reconciliation ==========

// ApplyStockDelta applies a signed stock change to a product and appends the
// matching ledger row in a single transaction. The new stock clamps at zero;
// the history row keeps the raw requested delta so the ledger reflects what
// was asked for, not what was applied. The clamp-and-add runs as one UPDATE
// so concurrent reconciliations cannot interleave a stale read.
func (r *InventoryRepository) ApplyStockDelta(ctx context.Context, productID uuid.UUID, userID string, delta int) (*models.Product, *models.StockHistory, error) {
	var product models.Product
	var history models.StockHistory

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Product{}).
			Where("id = ?", productID).
			Updates(map[string]interface{}{
				"stock":      gorm.Expr("CASE WHEN stock + ? < 0 THEN 0 ELSE stock + ? END", delta, delta),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := tx.Where("id = ?", productID).First(&product).Error; err != nil {
			return err
		}

		history = models.StockHistory{
			ProductID: productID,
			UserID:    userID,
			Delta:     delta,
			Stock:     product.Stock,
			Date:      time.Now().UTC(),
		}
		return tx.Create(&history).Error
	})
	if err != nil {
		return nil, nil, err
	}

	r.invalidateProductCache(ctx, productID)
	return &product, &history, nil
}

// QueryStockHistory returns ledger rows with optional product and date
// filters. The order parameter is explicit: desc for display, asc for
// trend aggregation.
func (r *InventoryRepository) QueryStockHistory(ctx context.Context, q models.StockHistoryQuery) ([]models.StockHistory, error) {
	var history []models.StockHistory
	query := r.db.WithContext(ctx).Model(&models.StockHistory{})

	if q.ProductID != nil {
		query = query.Where("product_id = ?", *q.ProductID)
	}
	if q.Start != nil {
		query = query.Where("date >= ?", *q.Start)
	}
	if q.End != nil {
		query = query.Where("date <= ?", *q.End)
	}

	order := "date DESC"
	if q.Order == models.HistoryOrderAsc {
		order = "date ASC"
	}

	err := query.Preload("Product").Order(order).Find(&history).Error
	return history, err
}

// QueryStockHistoryByStore returns ledger rows for every product of a store
// since the given time, for insight aggregation.
func (r *InventoryRepository) QueryStockHistoryByStore(ctx context.Context, storeID string, since time.Time, order models.HistoryOrder) ([]models.StockHistory, error) {
	var history []models.StockHistory

	orderClause := "stock_history.date DESC"
	if order == models.HistoryOrderAsc {
		orderClause = "stock_history.date ASC"
	}

	err := r.db.WithContext(ctx).
		Joins("JOIN products ON products.id = stock_history.product_id").
		Where("products.store_id = ? AND stock_history.date >= ?", storeID, since).
		Preload("Product").
		Order(orderClause).
		Find(&history).Error
	return history, err
}

// CountStockMovementsByStore counts all-time ledger rows per product for a
// store, for product performance ranking
func (r *InventoryRepository) CountStockMovementsByStore(ctx context.Context, storeID string) (map[uuid.UUID]int, error) {
	var rows []struct {
		ProductID uuid.UUID
		Total     int
	}
	err := r.db.WithContext(ctx).Model(&models.StockHistory{}).
		Select("stock_history.product_id AS product_id, COUNT(*) AS total").
		Joins("JOIN products ON products.id = stock_history.product_id").
		Where("products.store_id = ?", storeID).
		Group("stock_history.product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.ProductID] = row.Total
	}
	return counts, nil
}

// GetLowStockProducts returns products at or below the threshold
func (r *InventoryRepository) GetLowStockProducts(ctx context.Context, storeID string, threshold int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND stock <= ?", storeID, threshold).
		Order("stock ASC").
		Find(&products).Error
	return products, err
}

// GetInventoryStats returns catalog totals for a store
func (r *InventoryRepository) GetInventoryStats(ctx context.Context, storeID string, lowStockThreshold int) (*models.InventoryStats, error) {
	stats := &models.InventoryStats{}

	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("store_id = ?", storeID).
		Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}

	var totals struct {
		TotalStock int64
		TotalValue float64
	}
	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select("COALESCE(SUM(stock), 0) as total_stock, COALESCE(SUM(stock * price), 0) as total_value").
		Where("store_id = ?", storeID).
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	stats.TotalStock = totals.TotalStock
	stats.TotalValue = totals.TotalValue

	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("store_id = ? AND stock <= ?", storeID, lowStockThreshold).
		Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
