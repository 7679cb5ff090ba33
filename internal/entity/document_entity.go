package entity

import (
	"time"
)

type Document struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
	TextContent string    `json:"text_content,omitempty"`
	Clauses     []Clause  `json:"clauses,omitempty"`
	SessionId   string    `json:"session_id,omitempty"`
	FilePath    string    `json:"-"`
}

// Clause is server-computed during upload and read-only afterwards.
type Clause struct {
	Number     string  `json:"number"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Type       string  `json:"type"` // "supportive" | "critical" | "neutral"
	DocumentId string  `json:"document_id,omitempty"`
}

const (
	ClauseSupportive = "supportive"
	ClauseCritical   = "critical"
	ClauseNeutral    = "neutral"
)
