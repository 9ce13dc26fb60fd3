package models

// ChatMessage is one turn of an assistant conversation
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant system"`
	Content string `json:"content" binding:"required"`
}

// ChatRequest carries the new user message plus the prior conversation, so
// clients stay stateless between turns
type ChatRequest struct {
	Message string        `json:"message" binding:"required"`
	History []ChatMessage `json:"history,omitempty" binding:"omitempty,dive"`
	Model   string        `json:"model,omitempty"`
}

// ChatReply is the assistant answer with the full updated history
type ChatReply struct {
	Response       string        `json:"response"`
	UpdatedHistory []ChatMessage `json:"updatedHistory"`
}

type ChatResponse struct {
	Success bool       `json:"success"`
	Data    *ChatReply `json:"data,omitempty"`
}
