package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product represents a catalog item owned by a store.
// Stock is a cache of the running ledger sum; it is only written through
// the stock reconciliation path, never through product updates.
type Product struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	StoreID     string    `json:"storeId" gorm:"type:varchar(255);not null;index"`
	SKU         string    `json:"sku" gorm:"type:varchar(100);not null;uniqueIndex"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`
	Price       float64   `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	Stock       int       `json:"stock" gorm:"not null;default:0"`
	ImageURL    *string   `json:"imageUrl,omitempty" gorm:"column:image_url;type:varchar(512)"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// StockHistory is one immutable row of the stock ledger. Delta holds the
// raw requested change (it may exceed what was applied when the product
// stock clamped at zero); Stock holds the absolute level after the write.
type StockHistory struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ProductID uuid.UUID `json:"productId" gorm:"type:uuid;not null;index"`
	UserID    string    `json:"userId" gorm:"type:varchar(255);not null;index"`
	Delta     int       `json:"delta" gorm:"not null"`
	Stock     int       `json:"stock" gorm:"not null"`
	Date      time.Time `json:"date" gorm:"not null;index"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (h *StockHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.Date.IsZero() {
		h.Date = time.Now().UTC()
	}
	return nil
}

// TableName implementations
func (Product) TableName() string {
	return "products"
}

func (StockHistory) TableName() string {
	return "stock_history"
}

// HistoryOrder controls ledger query ordering. Newest-first suits display,
// oldest-first suits trend aggregation.
type HistoryOrder string

const (
	HistoryOrderAsc  HistoryOrder = "asc"
	HistoryOrderDesc HistoryOrder = "desc"
)

// Request/Response models

type CreateProductRequest struct {
	SKU         string  `json:"sku" binding:"required,min=1,max=100"`
	Name        string  `json:"name" binding:"required,min=1,max=255"`
	Description *string `json:"description,omitempty"`
	Price       float64 `json:"price" binding:"gte=0"`
	Stock       int     `json:"stock" binding:"gte=0"`
	ImageURL    *string `json:"imageUrl,omitempty"`
}

// UpdateProductRequest deliberately has no stock field; stock changes go
// through the ledger endpoint so every movement leaves a history row.
type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	ImageURL    *string  `json:"imageUrl,omitempty"`
}

type UpdateStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type StockHistoryQuery struct {
	ProductID *uuid.UUID
	Start     *time.Time
	End       *time.Time
	Order     HistoryOrder
}

// Response models
type ProductResponse struct {
	Success bool     `json:"success"`
	Data    *Product `json:"data,omitempty"`
	Message *string  `json:"message,omitempty"`
}

type ProductListResponse struct {
	Success bool      `json:"success"`
	Data    []Product `json:"data"`
}

type StockHistoryListResponse struct {
	Success bool           `json:"success"`
	Data    []StockHistory `json:"data"`
}

// InventoryStats summarizes a store's catalog for the dashboard.
type InventoryStats struct {
	TotalProducts int64   `json:"totalProducts"`
	TotalStock    int64   `json:"totalStock"`
	TotalValue    float64 `json:"totalValue"`
	LowStockCount int64   `json:"lowStockCount"`
}

type InventoryStatsResponse struct {
	Success bool            `json:"success"`
	Data    *InventoryStats `json:"data,omitempty"`
}

type ErrorResponse struct {
	Success bool  `json:"success"`
	Error   Error `json:"error"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message *string     `json:"message,omitempty"`
}

// PaginationMeta represents pagination metadata
type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}
