package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"storevision-service/internal/models"
	"storevision-service/internal/repository"
)

// InsightService derives analytics from the stock ledger and scan history.
// All methods are read-only.
type InsightService struct {
	inventoryRepo repository.InventoryRepositoryInterface
	scanRepo      repository.ScanRepositoryInterface
	logger        *logrus.Logger
}

// NewInsightService creates a new insight service
func NewInsightService(
	inventoryRepo repository.InventoryRepositoryInterface,
	scanRepo repository.ScanRepositoryInterface,
	logger *logrus.Logger,
) *InsightService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &InsightService{
		inventoryRepo: inventoryRepo,
		scanRepo:      scanRepo,
		logger:        logger,
	}
}

func windowStart(days int) time.Time {
	if days <= 0 {
		days = 7
	}
	return time.Now().UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)
}

// DailyMovements aggregates ledger rows into per-day in/out totals
func (s *InsightService) DailyMovements(ctx context.Context, storeID string, days int) ([]models.DailyMovement, error) {
	history, err := s.inventoryRepo.QueryStockHistoryByStore(ctx, storeID, windowStart(days), models.HistoryOrderAsc)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*models.DailyMovement)
	var order []string
	for _, row := range history {
		day := row.Date.UTC().Format("2006-01-02")
		m, ok := byDay[day]
		if !ok {
			m = &models.DailyMovement{Date: day}
			byDay[day] = m
			order = append(order, day)
		}

		if row.Delta > 0 {
			m.StockIn += row.Delta
		} else {
			m.StockOut += -row.Delta
		}
		m.NetChange += row.Delta
		m.MovementCount++
		if row.Product != nil {
			m.EstimatedValue += float64(row.Delta) * row.Product.Price
		}
	}

	movements := make([]models.DailyMovement, 0, len(order))
	for _, day := range order {
		movements = append(movements, *byDay[day])
	}
	return movements, nil
}

// ScanActivity summarizes the caller's scan outcomes over the window:
// status breakdown, success rate and total detections
func (s *InsightService) ScanActivity(ctx context.Context, userID string, days int) (*models.ScanInsights, error) {
	scans, err := s.scanRepo.ListScanEventsSince(ctx, userID, windowStart(days))
	if err != nil {
		return nil, err
	}

	insights := &models.ScanInsights{
		TotalScans:   len(scans),
		StatusCounts: map[string]int{},
		RecentScans:  []models.ScanEvent{},
	}

	terminal := 0
	for _, scan := range scans {
		insights.StatusCounts[string(scan.Status)]++
		insights.TotalDetections += len(scan.Results)
		switch scan.Status {
		case models.ScanStatusCompleted, models.ScanStatusFailed:
			terminal++
		}
	}
	if terminal > 0 {
		insights.SuccessRate = float64(insights.StatusCounts[string(models.ScanStatusCompleted)]) / float64(terminal)
	}

	limit := 10
	if len(scans) < limit {
		limit = len(scans)
	}
	insights.RecentScans = scans[:limit]

	return insights, nil
}

// ProductPerformance ranks a store's products by how often they appear in
// scan tallies, with their all-time ledger movement counts alongside
func (s *InsightService) ProductPerformance(ctx context.Context, storeID string, limit int) ([]models.ProductInsight, error) {
	if limit <= 0 {
		limit = 10
	}

	products, err := s.inventoryRepo.ListProductsByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	scanned, err := s.scanRepo.SumScanItemCountsByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	movements, err := s.inventoryRepo.CountStockMovementsByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	insights := make([]models.ProductInsight, 0, len(products))
	for _, p := range products {
		insights = append(insights, models.ProductInsight{
			ProductID:           p.ID.String(),
			SKU:                 p.SKU,
			ProductName:         p.Name,
			CurrentStock:        p.Stock,
			Price:               p.Price,
			TotalScanned:        scanned[p.ID],
			TotalStockMovements: movements[p.ID],
		})
	}

	sort.Slice(insights, func(i, j int) bool {
		return insights[i].TotalScanned > insights[j].TotalScanned
	})
	if len(insights) > limit {
		insights = insights[:limit]
	}
	return insights, nil
}

// UserActivity counts ledger writes and scans per user over the window.
// Users surface through their ledger activity in the store; scans carry no
// store, so a user whose only activity is scanning doesn't appear.
func (s *InsightService) UserActivity(ctx context.Context, storeID string, days int) ([]models.UserActivity, error) {
	start := windowStart(days)
	history, err := s.inventoryRepo.QueryStockHistoryByStore(ctx, storeID, start, models.HistoryOrderAsc)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]*models.UserActivity)
	var userIDs []string
	for _, row := range history {
		a, ok := byUser[row.UserID]
		if !ok {
			a = &models.UserActivity{UserID: row.UserID}
			byUser[row.UserID] = a
			userIDs = append(userIDs, row.UserID)
		}
		a.StockUpdates++
	}

	scanCounts, err := s.scanRepo.CountScanEventsByUser(ctx, userIDs, start)
	if err != nil {
		return nil, err
	}

	activity := make([]models.UserActivity, 0, len(userIDs))
	for _, id := range userIDs {
		a := byUser[id]
		a.ScanCount = scanCounts[id]
		a.TotalActions = a.StockUpdates + a.ScanCount
		activity = append(activity, *a)
	}

	sort.Slice(activity, func(i, j int) bool {
		return activity[i].TotalActions > activity[j].TotalActions
	})
	return activity, nil
}

// InventoryTrends returns per-day total and net movement for trend charts
func (s *InsightService) InventoryTrends(ctx context.Context, storeID string, days int) ([]models.InventoryTrendPoint, error) {
	history, err := s.inventoryRepo.QueryStockHistoryByStore(ctx, storeID, windowStart(days), models.HistoryOrderAsc)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*models.InventoryTrendPoint)
	var order []string
	for _, row := range history {
		day := row.Date.UTC().Format("2006-01-02")
		p, ok := byDay[day]
		if !ok {
			p = &models.InventoryTrendPoint{Date: day}
			byDay[day] = p
			order = append(order, day)
		}
		if row.Delta > 0 {
			p.TotalMovement += row.Delta
		} else {
			p.TotalMovement += -row.Delta
		}
		p.NetChange += row.Delta
	}

	trends := make([]models.InventoryTrendPoint, 0, len(order))
	for _, day := range order {
		trends = append(trends, *byDay[day])
	}
	return trends, nil
}

// RestockRecommendations flags products running out based on their average
// daily consumption over the window. Suggested quantity covers two weeks of
// consumption with a floor of 10 units.
func (s *InsightService) RestockRecommendations(ctx context.Context, storeID string, days int) ([]models.RestockRecommendation, error) {
	if days <= 0 {
		days = 30
	}
	history, err := s.inventoryRepo.QueryStockHistoryByStore(ctx, storeID, windowStart(days), models.HistoryOrderAsc)
	if err != nil {
		return nil, err
	}

	type consumption struct {
		product *models.Product
		sold    int
	}
	byProduct := make(map[string]*consumption)
	for _, row := range history {
		if row.Delta >= 0 || row.Product == nil {
			continue
		}
		key := row.ProductID.String()
		c, ok := byProduct[key]
		if !ok {
			c = &consumption{product: row.Product}
			byProduct[key] = c
		}
		c.sold += -row.Delta
	}

	var recommendations []models.RestockRecommendation
	for id, c := range byProduct {
		avgDaily := float64(c.sold) / float64(days)
		if avgDaily <= 0 {
			continue
		}

		daysLeft := float64(c.product.Stock) / avgDaily
		suggested := int(math.Ceil(avgDaily * 14))
		if suggested < 10 {
			suggested = 10
		}

		priority := "LOW"
		switch {
		case daysLeft <= 3:
			priority = "HIGH"
		case daysLeft <= 7:
			priority = "MEDIUM"
		}

		recommendations = append(recommendations, models.RestockRecommendation{
			ProductID:           id,
			SKU:                 c.product.SKU,
			ProductName:         c.product.Name,
			CurrentStock:        c.product.Stock,
			AvgDailyConsumption: avgDaily,
			DaysUntilStockout:   daysLeft,
			SuggestedQuantity:   suggested,
			Priority:            priority,
		})
	}

	sort.Slice(recommendations, func(i, j int) bool {
		return recommendations[i].DaysUntilStockout < recommendations[j].DaysUntilStockout
	})
	return recommendations, nil
}

// SalesInsights estimates sales from negative ledger deltas times product
// price. Outbound stock is not always a sale, so these are estimates.
func (s *InsightService) SalesInsights(ctx context.Context, storeID string, days int) (*models.SalesInsights, error) {
	start := windowStart(days)
	history, err := s.inventoryRepo.QueryStockHistoryByStore(ctx, storeID, start, models.HistoryOrderAsc)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string]*models.ProductSales)
	insights := &models.SalesInsights{
		WindowStart: start,
		WindowEnd:   time.Now().UTC(),
	}

	for _, row := range history {
		if row.Delta >= 0 || row.Product == nil {
			continue
		}
		sold := -row.Delta
		revenue := float64(sold) * row.Product.Price

		insights.TotalUnitsSold += sold
		insights.EstimatedRevenue += revenue

		key := row.ProductID.String()
		p, ok := byProduct[key]
		if !ok {
			p = &models.ProductSales{
				ProductID:   key,
				SKU:         row.Product.SKU,
				ProductName: row.Product.Name,
			}
			byProduct[key] = p
		}
		p.UnitsSold += sold
		p.EstimatedRevenue += revenue
	}

	top := make([]models.ProductSales, 0, len(byProduct))
	for _, p := range byProduct {
		top = append(top, *p)
	}
	sort.Slice(top, func(i, j int) bool {
		return top[i].EstimatedRevenue > top[j].EstimatedRevenue
	})
	if len(top) > 5 {
		top = top[:5]
	}
	insights.TopProducts = top

	return insights, nil
}
