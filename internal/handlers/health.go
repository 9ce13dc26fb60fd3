package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"storevision-service/internal/events"
	"storevision-service/internal/repository"
)

// HealthCheck returns service health status (basic)
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "storevision-service",
	})
}

type HealthHandler struct {
	db        *gorm.DB
	repo      repository.InventoryRepositoryInterface
	publisher *events.Publisher
}

func NewHealthHandler(db *gorm.DB, repo repository.InventoryRepositoryInterface, publisher *events.Publisher) *HealthHandler {
	return &HealthHandler{db: db, repo: repo, publisher: publisher}
}

// ReadyCheck verifies the database connection is usable
func (h *HealthHandler) ReadyCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// ExtendedHealthCheck reports the state of optional backends. Missing
// backends degrade the report without failing it; they are optional by
// configuration.
func (h *HealthHandler) ExtendedHealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	health := gin.H{
		"status":  "healthy",
		"service": "storevision-service",
		"checks":  gin.H{},
	}
	checks := health["checks"].(gin.H)

	if err := h.repo.RedisHealth(ctx); err != nil {
		checks["redis"] = gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		}
	} else {
		checks["redis"] = gin.H{
			"status": "healthy",
		}
	}

	if h.publisher == nil {
		checks["nats"] = gin.H{"status": "not configured"}
	} else if h.publisher.IsConnected() {
		checks["nats"] = gin.H{"status": "healthy"}
	} else {
		checks["nats"] = gin.H{"status": "unhealthy"}
	}

	for _, check := range checks {
		if checkMap, ok := check.(gin.H); ok {
			if status, ok := checkMap["status"]; ok && status == "unhealthy" {
				health["status"] = "degraded"
				break
			}
		}
	}

	c.JSON(http.StatusOK, health)
}
