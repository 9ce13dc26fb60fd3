package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storevision-service/internal/middleware"
	"storevision-service/internal/models"
	"storevision-service/internal/services"
)

type InventoryHandler struct {
	service *services.InventoryService
	logger  *logrus.Logger
}

func NewInventoryHandler(service *services.InventoryService, logger *logrus.Logger) *InventoryHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &InventoryHandler{service: service, logger: logger}
}

// CreateProduct creates a new product
// POST /api/v1/products
func (h *InventoryHandler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	product, err := h.service.CreateProduct(c.Request.Context(), middleware.GetStoreID(c), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.ProductResponse{Success: true, Data: product})
}

// GetProduct retrieves a product by ID
// GET /api/v1/products/:id
func (h *InventoryHandler) GetProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondValidationError(c, err)
		return
	}

	product, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product})
}

// GetProductBySKU retrieves a product by SKU
// GET /api/v1/products/sku/:sku
func (h *InventoryHandler) GetProductBySKU(c *gin.Context) {
	product, err := h.service.GetProductBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product})
}

// ListProducts lists the store's catalog
// GET /api/v1/products
func (h *InventoryHandler) ListProducts(c *gin.Context) {
	products, err := h.service.ListProducts(c.Request.Context(), middleware.GetStoreID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ProductListResponse{Success: true, Data: products})
}

// UpdateProduct updates catalog fields of a product
// PUT /api/v1/products/:id
func (h *InventoryHandler) UpdateProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondValidationError(c, err)
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	product, err := h.service.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product})
}

// DeleteProduct removes a product
// DELETE /api/v1/products/:id
func (h *InventoryHandler) DeleteProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.service.DeleteProduct(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	message := "Product deleted"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &message})
}

// UpdateStock applies a signed stock delta through the ledger
// POST /api/v1/products/:id/stock
func (h *InventoryHandler) UpdateStock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondValidationError(c, err)
		return
	}

	var req models.UpdateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	product, err := h.service.UpdateStock(c.Request.Context(), id, middleware.GetUserID(c), req.Delta)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product})
}

// GetStockHistory queries the stock ledger
// GET /api/v1/stock-history?productId=&start=&end=&order=
func (h *InventoryHandler) GetStockHistory(c *gin.Context) {
	query := models.StockHistoryQuery{Order: models.HistoryOrderDesc}

	if raw := c.Query("productId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondValidationError(c, err)
			return
		}
		query.ProductID = &id
	}
	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondValidationError(c, err)
			return
		}
		query.Start = &t
	}
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondValidationError(c, err)
			return
		}
		query.End = &t
	}
	if c.Query("order") == string(models.HistoryOrderAsc) {
		query.Order = models.HistoryOrderAsc
	}

	history, err := h.service.GetStockHistory(c.Request.Context(), query)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StockHistoryListResponse{Success: true, Data: history})
}

// GetLowStock lists products at or below the low-stock threshold
// GET /api/v1/products/low-stock
func (h *InventoryHandler) GetLowStock(c *gin.Context) {
	products, err := h.service.GetLowStockProducts(c.Request.Context(), middleware.GetStoreID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ProductListResponse{Success: true, Data: products})
}

// GetStats returns catalog totals for the store
// GET /api/v1/products/stats
func (h *InventoryHandler) GetStats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context(), middleware.GetStoreID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.InventoryStatsResponse{Success: true, Data: stats})
}
