package dto

import (
	"legal-assistant-be/internal/entity"
)

type UploadResponse struct {
	Success        bool              `json:"success"`
	Message        string            `json:"message"`
	Documents      []entity.Document `json:"documents"`
	TotalDocuments int               `json:"total_documents"`
	SessionId      string            `json:"session_id"`
}

type ListDocumentsResponse struct {
	Documents []entity.Document `json:"documents"`
	SessionId string            `json:"session_id"`
	Count     int               `json:"count"`
}

type DeleteDocumentResponse struct {
	Message   string `json:"message"`
	SessionId string `json:"session_id"`
}
