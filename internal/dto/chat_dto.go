package dto

import (
	"time"

	"legal-assistant-be/internal/entity"
)

type ChatMessageDTO struct {
	Role      string     `json:"role" validate:"required,oneof=user assistant"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type ChatRequest struct {
	Message   string            `json:"message" validate:"required,min=1,max=2000"`
	History   []ChatMessageDTO  `json:"history" validate:"dive"`
	Documents []entity.Document `json:"documents"`
	Language  string            `json:"language,omitempty"`
}

// StreamChunk is one frame of the chat event stream. Exactly one field set of
// {Error} or {Done=true} terminates the stream; Content frames may precede it.
type StreamChunk struct {
	Content   string `json:"content,omitempty"`
	Done      bool   `json:"done"`
	Error     string `json:"error,omitempty"`
	SessionId string `json:"session_id,omitempty"`
}
