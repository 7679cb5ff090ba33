package dto

import (
	"legal-assistant-be/internal/entity"
)

type CreateSessionResponse struct {
	SessionId string `json:"session_id"`
	Message   string `json:"message"`
}

type SessionInfoResponse struct {
	Session       *entity.Session   `json:"session"`
	Documents     []entity.Document `json:"documents"`
	DocumentCount int               `json:"document_count"`
}

type DeleteSessionResponse struct {
	Message string `json:"message"`
}
