package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storevision-service/internal/clients"
	"storevision-service/internal/middleware"
	"storevision-service/internal/models"
	"storevision-service/internal/services"
)

type stubChatProvider struct {
	reply string
	err   error
}

func (s *stubChatProvider) Complete(ctx context.Context, messages []clients.ChatTurn, model string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func setupAssistantRouter(t *testing.T, provider services.ChatProvider) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service := services.NewAssistantService(provider, nil)
	handler := NewAssistantHandler(service, nil)

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(middleware.DevelopmentAuthMiddleware())
	api.Use(middleware.StoreMiddleware())
	api.POST("/ai/chat", handler.Chat)
	return router
}

// ===========================================
// Assistant Chat Tests
// ===========================================

func TestChat_API(t *testing.T) {
	router := setupAssistantRouter(t, &stubChatProvider{reply: "Restock bottled water first."})

	w := doJSON(t, router, http.MethodPost, "/api/v1/ai/chat", gin.H{
		"message": "What should I restock?",
		"history": []gin.H{
			{"role": "user", "content": "Hi"},
			{"role": "assistant", "content": "Hello!"},
		},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "Restock bottled water first.", resp.Data.Response)
	require.Len(t, resp.Data.UpdatedHistory, 4)
	assert.Equal(t, "assistant", resp.Data.UpdatedHistory[3].Role)
}

func TestChat_API_NotConfigured(t *testing.T) {
	router := setupAssistantRouter(t, nil)

	w := doJSON(t, router, http.MethodPost, "/api/v1/ai/chat", gin.H{"message": "Hi"})

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", errorCode(t, w))
}

func TestChat_API_ProviderFailure(t *testing.T) {
	router := setupAssistantRouter(t, &stubChatProvider{err: assert.AnError})

	w := doJSON(t, router, http.MethodPost, "/api/v1/ai/chat", gin.H{"message": "Hi"})

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "CHAT_FAILED", errorCode(t, w))
}

func TestChat_API_MissingMessage(t *testing.T) {
	router := setupAssistantRouter(t, &stubChatProvider{reply: "ok"})

	w := doJSON(t, router, http.MethodPost, "/api/v1/ai/chat", gin.H{})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestChat_API_RejectsUnknownRole(t *testing.T) {
	router := setupAssistantRouter(t, &stubChatProvider{reply: "ok"})

	w := doJSON(t, router, http.MethodPost, "/api/v1/ai/chat", gin.H{
		"message": "Hi",
		"history": []gin.H{{"role": "tool", "content": "nope"}},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}
