package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storevision-service/internal/middleware"
	"storevision-service/internal/models"
	"storevision-service/internal/services"
)

type InsightHandler struct {
	service *services.InsightService
	logger  *logrus.Logger
}

func NewInsightHandler(service *services.InsightService, logger *logrus.Logger) *InsightHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &InsightHandler{service: service, logger: logger}
}

func daysParam(c *gin.Context, fallback int) int {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(fallback)))
	if err != nil || days <= 0 || days > 365 {
		return fallback
	}
	return days
}

// DailyMovements returns per-day ledger totals
// GET /api/v1/insights/daily?days=7
func (h *InsightHandler) DailyMovements(c *gin.Context) {
	movements, err := h.service.DailyMovements(c.Request.Context(), middleware.GetStoreID(c), daysParam(c, 7))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DailyMovementsResponse{Success: true, Data: movements})
}

// ScanActivity returns the caller's scan outcome breakdown and success rate
// GET /api/v1/insights/scans?days=7
func (h *InsightHandler) ScanActivity(c *gin.Context) {
	insights, err := h.service.ScanActivity(c.Request.Context(), middleware.GetUserID(c), daysParam(c, 7))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ScanInsightsResponse{Success: true, Data: insights})
}

// ProductPerformance returns products ranked by scan frequency
// GET /api/v1/insights/products?limit=10
func (h *InsightHandler) ProductPerformance(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 10
	}

	insights, err := h.service.ProductPerformance(c.Request.Context(), middleware.GetStoreID(c), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ProductInsightsResponse{Success: true, Data: insights})
}

// UserActivity returns per-user action counts over the window
// GET /api/v1/insights/user-activity?days=7
func (h *InsightHandler) UserActivity(c *gin.Context) {
	activity, err := h.service.UserActivity(c.Request.Context(), middleware.GetStoreID(c), daysParam(c, 7))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.UserActivityResponse{Success: true, Data: activity})
}

// InventoryTrends returns per-day movement for trend charts
// GET /api/v1/insights/trends?days=30
func (h *InsightHandler) InventoryTrends(c *gin.Context) {
	trends, err := h.service.InventoryTrends(c.Request.Context(), middleware.GetStoreID(c), daysParam(c, 30))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.InventoryTrendsResponse{Success: true, Data: trends})
}

// RestockRecommendations returns reorder suggestions by consumption rate
// GET /api/v1/insights/restock?days=30
func (h *InsightHandler) RestockRecommendations(c *gin.Context) {
	recommendations, err := h.service.RestockRecommendations(c.Request.Context(), middleware.GetStoreID(c), daysParam(c, 30))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.RestockRecommendationsResponse{Success: true, Data: recommendations})
}

// SalesInsights returns estimated sales from outbound ledger movement
// GET /api/v1/insights/sales?days=30
func (h *InsightHandler) SalesInsights(c *gin.Context) {
	insights, err := h.service.SalesInsights(c.Request.Context(), middleware.GetStoreID(c), daysParam(c, 30))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SalesInsightsResponse{Success: true, Data: insights})
}
