package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"storevision-service/internal/models"
	"storevision-service/internal/repository"
)

// MockInventoryRepository is a mock implementation of InventoryRepositoryInterface
type MockInventoryRepository struct {
	mock.Mock
}

// Ensure MockInventoryRepository implements the interface
var _ repository.InventoryRepositoryInterface = (*MockInventoryRepository)(nil)

func (m *MockInventoryRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	if args.Error(0) == nil {
		product.ID = uuid.New()
		product.CreatedAt = time.Now()
	}
	return args.Error(0)
}

func (m *MockInventoryRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockInventoryRepository) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockInventoryRepository) ListProductsByStore(ctx context.Context, storeID string) ([]models.Product, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockInventoryRepository) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockInventoryRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInventoryRepository) ApplyStockDelta(ctx context.Context, productID uuid.UUID, userID string, delta int) (*models.Product, *models.StockHistory, error) {
	args := m.Called(ctx, productID, userID, delta)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*models.Product), args.Get(1).(*models.StockHistory), args.Error(2)
}

func (m *MockInventoryRepository) QueryStockHistory(ctx context.Context, q models.StockHistoryQuery) ([]models.StockHistory, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]models.StockHistory), args.Error(1)
}

func (m *MockInventoryRepository) QueryStockHistoryByStore(ctx context.Context, storeID string, since time.Time, order models.HistoryOrder) ([]models.StockHistory, error) {
	args := m.Called(ctx, storeID, since, order)
	return args.Get(0).([]models.StockHistory), args.Error(1)
}

func (m *MockInventoryRepository) CountStockMovementsByStore(ctx context.Context, storeID string) (map[uuid.UUID]int, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).(map[uuid.UUID]int), args.Error(1)
}

func (m *MockInventoryRepository) GetLowStockProducts(ctx context.Context, storeID string, threshold int) ([]models.Product, error) {
	args := m.Called(ctx, storeID, threshold)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockInventoryRepository) GetInventoryStats(ctx context.Context, storeID string, lowStockThreshold int) (*models.InventoryStats, error) {
	args := m.Called(ctx, storeID, lowStockThreshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryStats), args.Error(1)
}

func (m *MockInventoryRepository) RedisHealth(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func createProductRequest(sku string) *models.CreateProductRequest {
	return &models.CreateProductRequest{
		SKU:   sku,
		Name:  "Sparkling Water 500ml",
		Price: 1.95,
		Stock: 24,
	}
}

// ===========================================
// Create Product Tests
// ===========================================

func TestCreateProduct_Success(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockInventoryRepository)
	service := NewInventoryService(mockRepo, nil, 5, nil)

	mockRepo.On("GetProductBySKU", ctx, "SW-500").
		Return(nil, repository.ErrNotFound)
	mockRepo.On("CreateProduct", ctx, mock.AnythingOfType("*models.Product")).
		Return(nil)

	product, err := service.CreateProduct(ctx, "store-1", createProductRequest("SW-500"))

	assert.NoError(t, err)
	assert.NotNil(t, product)
	assert.Equal(t, "store-1", product.StoreID)
	assert.Equal(t, "SW-500", product.SKU)
	assert.Equal(t, 24, product.Stock)
	mockRepo.AssertExpectations(t)
}

func TestCreateProduct_DuplicateSKU(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockInventoryRepository)
	service := NewInventoryService(mockRepo, nil, 5, nil)

	mockRepo.On("GetProductBySKU", ctx, "SW-500").
		Return(&models.Product{ID: uuid.New(), SKU: "SW-500"}, nil)

	product, err := service.CreateProduct(ctx, "store-1", createProductRequest("SW-500"))

	assert.Nil(t, product)
	assert.ErrorIs(t, err, ErrSKUExists)
	mockRepo.AssertExpectations(t)
}

// ===========================================
// Get / Update Product Tests
// ===========================================

func TestGetProduct_NotFound(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	mockRepo := new(MockInventoryRepository)
	service := NewInventoryService(mockRepo, nil, 5, nil)

	mockRepo.On("GetProductByID", ctx, productID).
		Return(nil, repository.ErrNotFound)

	product, err := service.GetProduct(ctx, productID)

	assert.Nil(t, product)
	assert.ErrorIs(t, err, ErrProductNotFound)
	mockRepo.AssertExpectations(t)
}

func TestUpdateProduct_OnlyProvidedFields(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()
	newPrice := 2.49

	mockRepo := new(MockInventoryRepository)
	service := NewInventoryService(mockRepo, nil, 5, nil)

	mockRepo.On("UpdateProduct", ctx, productID, map[string]interface{}{"price": 2.49}).
		Return(nil)
	mockRepo.On("GetProductByID", ctx, productID).
		Return(&models.Product{ID: productID, Price: 2.49}, nil)

	product, err := service.UpdateProduct(ctx, productID, &models.UpdateProductRequest{Price: &newPrice})

	assert.NoError(t, err)
	assert.Equal(t, 2.49, product.Price)
	mockRepo.AssertExpectations(t)
}

func TestUpdateProduct_NoFieldsSkipsWrite(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	mockRepo := new(MockInventoryRepository)
	service := NewInventoryService(mockRepo, nil, 5, nil)

	mockRepo.On("GetProductByID", ctx, productID).
		Return(&models.Product{ID: productID}, nil)

	product, err := service.UpdateProduct(ctx, productID, &models.UpdateProductRequest{})

	assert.NoError(t, err)
	assert.NotNil(t, product)
	mockRepo.AssertNotCalled(t, "UpdateProduct")
	mockRepo.AssertExpectations(t)
}

// ===========================================
// Stock Ledger Tests
// ===========================================

func TestUpdateStock_Success(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	mockRepo := new(MockInventoryRepository)
	service := NewInventoryService(mockRepo, nil, 5, nil)

	product := &models.Product{ID: productID, SKU: "SW-500", Stock: 7}
	history := &models.StockHistory{ProductID: productID, Delta: -3, Stock: 7}
	mockRepo.On("ApplyStockDelta", ctx, productID, "user-1", -3).
		Return(product, history, nil)

	result, err := service.UpdateStock(ctx, productID, "user-1", -3)

	assert.NoError(t, err)
	assert.Equal(t, 7, result.Stock)
	mockRepo.AssertExpectations(t)
}

func TestUpdateStock_ProductNotFound(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	mockRepo := new(MockInventoryRepository)
	service := NewInventoryService(mockRepo, nil, 5, nil)

	mockRepo.On("ApplyStockDelta", ctx, productID, "user-1", 10).
		Return(nil, nil, repository.ErrNotFound)

	result, err := service.UpdateStock(ctx, productID, "user-1", 10)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrProductNotFound)
	mockRepo.AssertExpectations(t)
}

func TestGetStockHistory_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	mockRepo := new(MockInventoryRepository)
	service := NewInventoryService(mockRepo, nil, 5, nil)

	mockRepo.On("GetProductByID", ctx, productID).
		Return(nil, repository.ErrNotFound)

	history, err := service.GetStockHistory(ctx, models.StockHistoryQuery{ProductID: &productID})

	assert.Nil(t, history)
	assert.ErrorIs(t, err, ErrProductNotFound)
	mockRepo.AssertNotCalled(t, "QueryStockHistory")
	mockRepo.AssertExpectations(t)
}

func TestGetLowStockProducts_UsesThreshold(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockInventoryRepository)
	service := NewInventoryService(mockRepo, nil, 10, nil)

	mockRepo.On("GetLowStockProducts", ctx, "store-1", 10).
		Return([]models.Product{{SKU: "SW-500", Stock: 2}}, nil)

	products, err := service.GetLowStockProducts(ctx, "store-1")

	assert.NoError(t, err)
	assert.Len(t, products, 1)
	mockRepo.AssertExpectations(t)
}
