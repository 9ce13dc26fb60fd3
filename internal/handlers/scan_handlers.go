package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storevision-service/internal/middleware"
	"storevision-service/internal/models"
	"storevision-service/internal/services"
)

type ScanHandler struct {
	service *services.ScanService
	logger  *logrus.Logger
}

func NewScanHandler(service *services.ScanService, logger *logrus.Logger) *ScanHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ScanHandler{service: service, logger: logger}
}

// CreateScanEvent starts a new scan session
// POST /api/v1/scans
func (h *ScanHandler) CreateScanEvent(c *gin.Context) {
	event, err := h.service.CreateScanEvent(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.ScanEventResponse{Success: true, Data: event})
}

// GetScanEvent retrieves a scan with its items and results
// GET /api/v1/scans/:id
func (h *ScanHandler) GetScanEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondValidationError(c, err)
		return
	}

	event, err := h.service.GetScanEvent(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ScanEventResponse{Success: true, Data: event})
}

// ListScanEvents lists scans, newest first. ?mine=true restricts to the
// caller's own scans.
// GET /api/v1/scans
func (h *ScanHandler) ListScanEvents(c *gin.Context) {
	userID := ""
	if c.Query("mine") == "true" {
		userID = middleware.GetUserID(c)
	}

	events, err := h.service.ListScanEvents(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ScanEventListResponse{Success: true, Data: events})
}

// ListQueuedScans lists scans waiting for their detection pass
// GET /api/v1/scans/queued
func (h *ScanHandler) ListQueuedScans(c *gin.Context) {
	h.listByStatus(c, models.ScanStatusQueued)
}

// ListProcessingScans lists scans mid-pass, oldest first, so stuck scans
// are easy to spot
// GET /api/v1/scans/processing
func (h *ScanHandler) ListProcessingScans(c *gin.Context) {
	h.listByStatus(c, models.ScanStatusProcessing)
}

func (h *ScanHandler) listByStatus(c *gin.Context, status models.ScanStatus) {
	events, err := h.service.ListScansByStatus(c.Request.Context(), status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ScanEventListResponse{Success: true, Data: events})
}

// AddItem appends a manual tally to a queued scan
// POST /api/v1/scans/:id/items
func (h *ScanHandler) AddItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondValidationError(c, err)
		return
	}

	var req models.AddScanItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	item, err := h.service.AddItem(c.Request.Context(), id, req.ProductID, req.Count)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.ScanItemResponse{Success: true, Data: item})
}

// RemoveItem removes a manual tally from a queued scan
// DELETE /api/v1/scans/items/:itemId
func (h *ScanHandler) RemoveItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.service.RemoveItem(c.Request.Context(), itemID); err != nil {
		respondServiceError(c, err)
		return
	}

	message := "Scan item removed"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &message})
}

// Upload runs the single detection pass for a queued scan
// POST /api/v1/scans/:id/upload
func (h *ScanHandler) Upload(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondValidationError(c, err)
		return
	}

	var req models.UploadScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	image, err := decodeImagePayload(req.Image)
	if err != nil {
		respondValidationError(c, err)
		return
	}

	event, err := h.service.UploadAndProcess(c.Request.Context(), id, image, req.Prompts)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ScanEventResponse{Success: true, Data: event})
}

// CompleteScan force-completes a scan (administrative)
// POST /api/v1/scans/:id/complete
func (h *ScanHandler) CompleteScan(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondValidationError(c, err)
		return
	}

	event, err := h.service.CompleteScan(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ScanEventResponse{Success: true, Data: event})
}

// CancelScan hard-deletes a scan with its items and results
// DELETE /api/v1/scans/:id
func (h *ScanHandler) CancelScan(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondValidationError(c, err)
		return
	}

	if err := h.service.CancelScan(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}

	message := "Scan event deleted"
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Message: &message})
}

// decodeImagePayload accepts plain base64 or a data URI
func decodeImagePayload(payload string) ([]byte, error) {
	if idx := strings.Index(payload, ";base64,"); idx >= 0 {
		payload = payload[idx+len(";base64,"):]
	}

	image, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("image must be base64 encoded: %w", err)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("image payload is empty")
	}
	return image, nil
}
