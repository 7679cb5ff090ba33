package entity

import (
	"time"
)

// Session groups uploaded documents and conversation context under one opaque id.
// All state lives in the session repository; nothing survives a delete.
type Session struct {
	Id            string    `json:"session_id"`
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `json:"last_activity"`
	DocumentCount int       `json:"document_count"`
}
