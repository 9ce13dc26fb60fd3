package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storevision-service/internal/events"
	"storevision-service/internal/metrics"
	"storevision-service/internal/models"
	"storevision-service/internal/repository"
)

// Service-level errors for inventory operations
var (
	ErrProductNotFound = errors.New("product not found")
	ErrSKUExists       = errors.New("product with this SKU already exists")
)

// StockEventPublisher publishes stock lifecycle events
type StockEventPublisher interface {
	PublishStockUpdated(ctx context.Context, event events.StockUpdatedEvent) error
	PublishStockLow(ctx context.Context, event events.StockLowEvent) error
}

// InventoryService owns the product catalog and the stock ledger
type InventoryService struct {
	repo              repository.InventoryRepositoryInterface
	publisher         StockEventPublisher
	lowStockThreshold int
	logger            *logrus.Logger
}

// NewInventoryService creates a new inventory service
func NewInventoryService(
	repo repository.InventoryRepositoryInterface,
	publisher StockEventPublisher,
	lowStockThreshold int,
	logger *logrus.Logger,
) *InventoryService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if lowStockThreshold <= 0 {
		lowStockThreshold = 5
	}
	return &InventoryService{
		repo:              repo,
		publisher:         publisher,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
	}
}

// CreateProduct creates a product after checking SKU uniqueness
func (s *InventoryService) CreateProduct(ctx context.Context, storeID string, req *models.CreateProductRequest) (*models.Product, error) {
	existing, err := s.repo.GetProductBySKU(ctx, req.SKU)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrSKUExists, req.SKU)
	}

	product := &models.Product{
		StoreID:     storeID,
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"productId": product.ID,
		"sku":       product.SKU,
		"storeId":   storeID,
	}).Info("Product created")

	return product, nil
}

// GetProduct retrieves a product by ID
func (s *InventoryService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// GetProductBySKU retrieves a product by SKU
func (s *InventoryService) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	product, err := s.repo.GetProductBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// ListProducts lists a store's catalog
func (s *InventoryService) ListProducts(ctx context.Context, storeID string) ([]models.Product, error) {
	return s.repo.ListProductsByStore(ctx, storeID)
}

// UpdateProduct updates catalog fields; stock and SKU are immutable here
func (s *InventoryService) UpdateProduct(ctx context.Context, id uuid.UUID, req *models.UpdateProductRequest) (*models.Product, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.ImageURL != nil {
		updates["image_url"] = *req.ImageURL
	}

	if len(updates) > 0 {
		if err := s.repo.UpdateProduct(ctx, id, updates); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}
	}

	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a product from the catalog
func (s *InventoryService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	return nil
}

// UpdateStock applies a signed delta through the ledger. The resulting
// stock clamps at zero per step; the ledger row always records the delta
// that was requested.
func (s *InventoryService) UpdateStock(ctx context.Context, productID uuid.UUID, userID string, delta int) (*models.Product, error) {
	product, history, err := s.repo.ApplyStockDelta(ctx, productID, userID, delta)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}
	metrics.StockReconciliationsTotal.Inc()

	s.logger.WithFields(logrus.Fields{
		"productId": productID,
		"userId":    userID,
		"delta":     delta,
		"stock":     product.Stock,
	}).Info("Stock updated")

	if s.publisher != nil {
		go s.publishStockEvents(*product, history.Delta, userID)
	}

	return product, nil
}

func (s *InventoryService) publishStockEvents(product models.Product, delta int, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	previous := product.Stock - delta
	if previous < 0 {
		previous = 0
	}

	_ = s.publisher.PublishStockUpdated(ctx, events.StockUpdatedEvent{
		ProductID:     product.ID.String(),
		SKU:           product.SKU,
		StoreID:       product.StoreID,
		UserID:        userID,
		Delta:         delta,
		Stock:         product.Stock,
		PreviousStock: previous,
	})

	if product.Stock <= s.lowStockThreshold {
		_ = s.publisher.PublishStockLow(ctx, events.StockLowEvent{
			ProductID:   product.ID.String(),
			SKU:         product.SKU,
			ProductName: product.Name,
			StoreID:     product.StoreID,
			Stock:       product.Stock,
			Threshold:   s.lowStockThreshold,
		})
	}
}

// GetStockHistory queries the ledger with optional filters and explicit order
func (s *InventoryService) GetStockHistory(ctx context.Context, q models.StockHistoryQuery) ([]models.StockHistory, error) {
	if q.ProductID != nil {
		if _, err := s.GetProduct(ctx, *q.ProductID); err != nil {
			return nil, err
		}
	}
	return s.repo.QueryStockHistory(ctx, q)
}

// GetLowStockProducts lists products at or below the low-stock threshold
func (s *InventoryService) GetLowStockProducts(ctx context.Context, storeID string) ([]models.Product, error) {
	return s.repo.GetLowStockProducts(ctx, storeID, s.lowStockThreshold)
}

// GetStats returns catalog totals for a store
func (s *InventoryService) GetStats(ctx context.Context, storeID string) (*models.InventoryStats, error) {
	return s.repo.GetInventoryStats(ctx, storeID, s.lowStockThreshold)
}
