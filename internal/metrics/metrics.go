// Package metrics exposes prometheus collectors for the service
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storevision_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes HTTP request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storevision_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ScansStartedTotal counts scan passes that entered processing
	ScansStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storevision_scans_started_total",
			Help: "Total number of scan passes started",
		},
	)

	// ScansCompletedTotal counts scan passes that recorded results
	ScansCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storevision_scans_completed_total",
			Help: "Total number of scan passes completed",
		},
	)

	// ScansFailedTotal counts scan passes that ended in the failed state
	ScansFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storevision_scans_failed_total",
			Help: "Total number of scan passes failed",
		},
	)

	// DetectionDuration observes end-to-end detection call latency
	DetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "storevision_detection_duration_seconds",
			Help:    "Detection provider call duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)

	// StockReconciliationsTotal counts ledger writes
	StockReconciliationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storevision_stock_reconciliations_total",
			Help: "Total number of stock reconciliations applied",
		},
	)
)

// Middleware records request count and latency per route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}
