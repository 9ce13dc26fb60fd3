package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storevision-service/internal/models"
	"storevision-service/internal/services"
)

// respondServiceError maps service errors onto the response envelope.
// External failures (upload, detection) get 502 so callers can tell a
// provider problem from a bug here; missing capabilities get 503.
func respondServiceError(c *gin.Context, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrScanNotFound),
		errors.Is(err, services.ErrScanItemNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, services.ErrSKUExists):
		status, code = http.StatusConflict, "SKU_EXISTS"
	case errors.Is(err, services.ErrInvalidScanState):
		status, code = http.StatusConflict, "INVALID_STATE"
	case errors.Is(err, services.ErrImageUploadFailed):
		status, code = http.StatusBadGateway, "UPLOAD_FAILED"
	case errors.Is(err, services.ErrDetectionFailed):
		status, code = http.StatusBadGateway, "DETECTION_FAILED"
	case errors.Is(err, services.ErrChatFailed):
		status, code = http.StatusBadGateway, "CHAT_FAILED"
	case errors.Is(err, services.ErrImageStoreUnavailable),
		errors.Is(err, services.ErrDetectorUnavailable),
		errors.Is(err, services.ErrChatUnavailable):
		status, code = http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"
	default:
		status, code = http.StatusInternalServerError, "INTERNAL_ERROR"
	}

	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: err.Error(),
		},
	})
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		},
	})
}
