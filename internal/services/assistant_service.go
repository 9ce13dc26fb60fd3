package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"storevision-service/internal/clients"
	"storevision-service/internal/models"
)

// Service-level errors for assistant operations
var (
	ErrChatUnavailable = errors.New("chat provider is not configured")
	ErrChatFailed      = errors.New("chat completion failed")
)

const chatTimeout = 60 * time.Second

// ChatProvider is the capability behind the inventory assistant. A nil
// provider means the capability is absent and chat refuses up front.
type ChatProvider interface {
	Complete(ctx context.Context, messages []clients.ChatTurn, model string) (string, error)
}

// AssistantService proxies conversational questions to the chat provider
type AssistantService struct {
	provider ChatProvider
	logger   *logrus.Logger
}

// NewAssistantService creates a new assistant service. provider may be nil
// when no chat backend is configured.
func NewAssistantService(provider ChatProvider, logger *logrus.Logger) *AssistantService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AssistantService{
		provider: provider,
		logger:   logger,
	}
}

// Chat appends the user message to the conversation, asks the provider, and
// returns the reply with the updated history so stateless clients can keep
// the conversation going.
func (s *AssistantService) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatReply, error) {
	if s.provider == nil {
		return nil, ErrChatUnavailable
	}

	turns := make([]clients.ChatTurn, 0, len(req.History)+1)
	for _, m := range req.History {
		turns = append(turns, clients.ChatTurn{Role: m.Role, Content: m.Content})
	}
	turns = append(turns, clients.ChatTurn{Role: "user", Content: req.Message})

	chatCtx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()
	reply, err := s.provider.Complete(chatCtx, turns, req.Model)
	if err != nil {
		s.logger.WithError(err).Error("Chat completion failed")
		return nil, fmt.Errorf("%w: %v", ErrChatFailed, err)
	}

	updated := make([]models.ChatMessage, 0, len(req.History)+2)
	updated = append(updated, req.History...)
	updated = append(updated,
		models.ChatMessage{Role: "user", Content: req.Message},
		models.ChatMessage{Role: "assistant", Content: reply},
	)

	return &models.ChatReply{Response: reply, UpdatedHistory: updated}, nil
}
