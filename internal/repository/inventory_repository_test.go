package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storevision-service/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.StockHistory{},
		&models.ScanEvent{},
		&models.ScanItem{},
		&models.ScanResult{},
	))

	return db
}

func createTestProduct(t *testing.T, repo *InventoryRepository, storeID, sku string, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		StoreID: storeID,
		SKU:     sku,
		Name:    "Test Product " + sku,
		Price:   4.50,
		Stock:   stock,
	}
	require.NoError(t, repo.CreateProduct(context.Background(), product))
	return product
}

// ===========================================
// Product Tests
// ===========================================

func TestCreateProduct_AssignsID(t *testing.T) {
	repo := NewInventoryRepository(setupTestDB(t), nil)

	product := createTestProduct(t, repo, "store-1", "AA-001", 5)

	assert.NotEqual(t, uuid.Nil, product.ID)
}

func TestGetProductBySKU(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(setupTestDB(t), nil)

	created := createTestProduct(t, repo, "store-1", "AA-001", 5)

	found, err := repo.GetProductBySKU(ctx, "AA-001")
	assert.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = repo.GetProductBySKU(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProduct_StockAndSKUImmutable(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(setupTestDB(t), nil)

	product := createTestProduct(t, repo, "store-1", "AA-001", 5)

	err := repo.UpdateProduct(ctx, product.ID, map[string]interface{}{
		"name":  "Renamed",
		"stock": 999,
		"sku":   "HACKED",
	})
	assert.NoError(t, err)

	updated, err := repo.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 5, updated.Stock)
	assert.Equal(t, "AA-001", updated.SKU)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	repo := NewInventoryRepository(setupTestDB(t), nil)

	err := repo.UpdateProduct(context.Background(), uuid.New(), map[string]interface{}{"name": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProduct(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(setupTestDB(t), nil)

	product := createTestProduct(t, repo, "store-1", "AA-001", 5)

	assert.NoError(t, repo.DeleteProduct(ctx, product.ID))

	_, err := repo.GetProductByID(ctx, product.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.DeleteProduct(ctx, product.ID), ErrNotFound)
}

// ===========================================
// Stock Reconciliation Tests
// ===========================================

func TestApplyStockDelta_ClampsAtZeroKeepsRawDelta(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(setupTestDB(t), nil)

	product := createTestProduct(t, repo, "store-1", "AA-001", 0)

	// +10 from zero
	updated, history, err := repo.ApplyStockDelta(ctx, product.ID, "user-1", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Stock)
	assert.Equal(t, 10, history.Delta)
	assert.Equal(t, 10, history.Stock)

	// -15 overdraws: stock clamps at zero, ledger keeps -15
	updated, history, err = repo.ApplyStockDelta(ctx, product.ID, "user-1", -15)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Stock)
	assert.Equal(t, -15, history.Delta)
	assert.Equal(t, 0, history.Stock)

	// +3 resumes from the clamped level, not from -5
	updated, history, err = repo.ApplyStockDelta(ctx, product.ID, "user-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Stock)
	assert.Equal(t, 3, history.Delta)
	assert.Equal(t, 3, history.Stock)

	rows, err := repo.QueryStockHistory(ctx, models.StockHistoryQuery{
		ProductID: &product.ID,
		Order:     models.HistoryOrderAsc,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int{10, -15, 3}, []int{rows[0].Delta, rows[1].Delta, rows[2].Delta})
	assert.Equal(t, []int{10, 0, 3}, []int{rows[0].Stock, rows[1].Stock, rows[2].Stock})
}

func TestApplyStockDelta_ProductNotFound(t *testing.T) {
	repo := NewInventoryRepository(setupTestDB(t), nil)

	_, _, err := repo.ApplyStockDelta(context.Background(), uuid.New(), "user-1", 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyStockDelta_NoHistoryOnFailure(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewInventoryRepository(db, nil)

	_, _, err := repo.ApplyStockDelta(ctx, uuid.New(), "user-1", 5)
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.StockHistory{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

// ===========================================
// Stock History Query Tests
// ===========================================

func seedHistory(t *testing.T, db *gorm.DB, productID uuid.UUID, entries []models.StockHistory) {
	t.Helper()
	for i := range entries {
		entries[i].ProductID = productID
		entries[i].UserID = "user-1"
		require.NoError(t, db.Create(&entries[i]).Error)
	}
}

func TestQueryStockHistory_OrderAndDateFilters(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewInventoryRepository(db, nil)

	product := createTestProduct(t, repo, "store-1", "AA-001", 0)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	seedHistory(t, db, product.ID, []models.StockHistory{
		{Delta: 1, Stock: 1, Date: base},
		{Delta: 2, Stock: 3, Date: base.Add(24 * time.Hour)},
		{Delta: 3, Stock: 6, Date: base.Add(48 * time.Hour)},
	})

	desc, err := repo.QueryStockHistory(ctx, models.StockHistoryQuery{ProductID: &product.ID})
	require.NoError(t, err)
	require.Len(t, desc, 3)
	assert.Equal(t, 3, desc[0].Delta)

	asc, err := repo.QueryStockHistory(ctx, models.StockHistoryQuery{
		ProductID: &product.ID,
		Order:     models.HistoryOrderAsc,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, asc[0].Delta)

	start := base.Add(12 * time.Hour)
	end := base.Add(36 * time.Hour)
	window, err := repo.QueryStockHistory(ctx, models.StockHistoryQuery{
		ProductID: &product.ID,
		Start:     &start,
		End:       &end,
	})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, 2, window[0].Delta)
}

func TestQueryStockHistoryByStore_ScopedToStore(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewInventoryRepository(db, nil)

	mine := createTestProduct(t, repo, "store-1", "AA-001", 0)
	other := createTestProduct(t, repo, "store-2", "BB-001", 0)

	now := time.Now().UTC()
	seedHistory(t, db, mine.ID, []models.StockHistory{{Delta: 5, Stock: 5, Date: now}})
	seedHistory(t, db, other.ID, []models.StockHistory{{Delta: 9, Stock: 9, Date: now}})

	rows, err := repo.QueryStockHistoryByStore(ctx, "store-1", now.Add(-time.Hour), models.HistoryOrderAsc)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, mine.ID, rows[0].ProductID)
	require.NotNil(t, rows[0].Product)
	assert.Equal(t, "AA-001", rows[0].Product.SKU)
}

func TestCountStockMovementsByStore_PerProduct(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewInventoryRepository(db, nil)

	busy := createTestProduct(t, repo, "store-1", "AA-001", 0)
	idle := createTestProduct(t, repo, "store-1", "AA-002", 0)
	other := createTestProduct(t, repo, "store-2", "BB-001", 0)

	now := time.Now().UTC()
	seedHistory(t, db, busy.ID, []models.StockHistory{
		{Delta: 5, Stock: 5, Date: now},
		{Delta: -2, Stock: 3, Date: now},
	})
	seedHistory(t, db, other.ID, []models.StockHistory{{Delta: 9, Stock: 9, Date: now}})

	counts, err := repo.CountStockMovementsByStore(ctx, "store-1")
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 2, counts[busy.ID])
	assert.Equal(t, 0, counts[idle.ID])
}

// ===========================================
// Stats Tests
// ===========================================

func TestGetLowStockProducts(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(setupTestDB(t), nil)

	createTestProduct(t, repo, "store-1", "AA-001", 2)
	createTestProduct(t, repo, "store-1", "AA-002", 50)
	createTestProduct(t, repo, "store-2", "BB-001", 1)

	low, err := repo.GetLowStockProducts(ctx, "store-1", 5)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "AA-001", low[0].SKU)
}

func TestGetInventoryStats(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(setupTestDB(t), nil)

	createTestProduct(t, repo, "store-1", "AA-001", 2)  // 2 * 4.50 = 9.00
	createTestProduct(t, repo, "store-1", "AA-002", 10) // 10 * 4.50 = 45.00
	createTestProduct(t, repo, "store-2", "BB-001", 99)

	stats, err := repo.GetInventoryStats(ctx, "store-1", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalProducts)
	assert.Equal(t, int64(12), stats.TotalStock)
	assert.InDelta(t, 54.0, stats.TotalValue, 0.001)
	assert.Equal(t, int64(1), stats.LowStockCount)
}
