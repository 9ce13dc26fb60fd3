package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storevision-service/internal/models"
	"storevision-service/internal/services"
)

type AssistantHandler struct {
	service *services.AssistantService
	logger  *logrus.Logger
}

func NewAssistantHandler(service *services.AssistantService, logger *logrus.Logger) *AssistantHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AssistantHandler{service: service, logger: logger}
}

// Chat proxies an assistant conversation to the chat provider
// POST /api/v1/ai/chat
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	reply, err := h.service.Chat(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ChatResponse{Success: true, Data: reply})
}
