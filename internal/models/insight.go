package models

import "time"

// DailyMovement summarizes one day of ledger activity for a store
type DailyMovement struct {
	Date           string  `json:"date"`
	StockIn        int     `json:"stockIn"`
	StockOut       int     `json:"stockOut"`
	NetChange      int     `json:"netChange"`
	MovementCount  int     `json:"movementCount"`
	EstimatedValue float64 `json:"estimatedValue"`
}

// ScanInsights summarizes scan activity over a window
type ScanInsights struct {
	TotalScans      int            `json:"totalScans"`
	StatusCounts    map[string]int `json:"statusCounts"`
	SuccessRate     float64        `json:"successRate"`
	TotalDetections int            `json:"totalDetections"`
	RecentScans     []ScanEvent    `json:"recentScans"`
}

// InventoryTrendPoint is one day of aggregate inventory movement
type InventoryTrendPoint struct {
	Date          string `json:"date"`
	TotalMovement int    `json:"totalMovement"`
	NetChange     int    `json:"netChange"`
}

// RestockRecommendation suggests a reorder for one product based on its
// recent consumption rate
type RestockRecommendation struct {
	ProductID           string  `json:"productId"`
	SKU                 string  `json:"sku"`
	ProductName         string  `json:"productName"`
	CurrentStock        int     `json:"currentStock"`
	AvgDailyConsumption float64 `json:"avgDailyConsumption"`
	DaysUntilStockout   float64 `json:"daysUntilStockout"`
	SuggestedQuantity   int     `json:"suggestedRestockQuantity"`
	Priority            string  `json:"priority"`
}

// ProductInsight ranks one product by how often it shows up in scan tallies
type ProductInsight struct {
	ProductID           string  `json:"productId"`
	SKU                 string  `json:"sku"`
	ProductName         string  `json:"productName"`
	CurrentStock        int     `json:"currentStock"`
	Price               float64 `json:"price"`
	TotalScanned        int     `json:"totalScanned"`
	TotalStockMovements int     `json:"totalStockMovements"`
}

// UserActivity summarizes one user's actions over a window
type UserActivity struct {
	UserID       string `json:"userId"`
	ScanCount    int    `json:"scanCount"`
	StockUpdates int    `json:"stockUpdates"`
	TotalActions int    `json:"totalActions"`
}

// ProductSales estimates sales for one product from negative ledger deltas
type ProductSales struct {
	ProductID        string  `json:"productId"`
	SKU              string  `json:"sku"`
	ProductName      string  `json:"productName"`
	UnitsSold        int     `json:"unitsSold"`
	EstimatedRevenue float64 `json:"estimatedRevenue"`
}

// SalesInsights summarizes estimated sales over a window
type SalesInsights struct {
	TotalUnitsSold   int            `json:"totalUnitsSold"`
	EstimatedRevenue float64        `json:"estimatedRevenue"`
	TopProducts      []ProductSales `json:"topProducts"`
	WindowStart      time.Time      `json:"windowStart"`
	WindowEnd        time.Time      `json:"windowEnd"`
}

type DailyMovementsResponse struct {
	Success bool            `json:"success"`
	Data    []DailyMovement `json:"data"`
}

type ScanInsightsResponse struct {
	Success bool          `json:"success"`
	Data    *ScanInsights `json:"data,omitempty"`
}

type InventoryTrendsResponse struct {
	Success bool                  `json:"success"`
	Data    []InventoryTrendPoint `json:"data"`
}

type RestockRecommendationsResponse struct {
	Success bool                    `json:"success"`
	Data    []RestockRecommendation `json:"data"`
}

type SalesInsightsResponse struct {
	Success bool           `json:"success"`
	Data    *SalesInsights `json:"data,omitempty"`
}

type ProductInsightsResponse struct {
	Success bool             `json:"success"`
	Data    []ProductInsight `json:"data"`
}

type UserActivityResponse struct {
	Success bool           `json:"success"`
	Data    []UserActivity `json:"data"`
}
