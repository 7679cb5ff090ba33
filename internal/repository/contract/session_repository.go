package contract

import (
	"context"

	"legal-assistant-be/internal/entity"
)

// ISessionRepository stores sessions and their bound documents. Documents never
// outlive their session: DeleteSession removes both.
type ISessionRepository interface {
	SaveSession(ctx context.Context, session *entity.Session) error
	GetSession(ctx context.Context, sessionId string) (*entity.Session, bool)
	TouchSession(ctx context.Context, sessionId string) bool
	DeleteSession(ctx context.Context, sessionId string) bool

	AddDocument(ctx context.Context, sessionId string, doc *entity.Document) bool
	GetDocuments(ctx context.Context, sessionId string) []entity.Document
	RemoveDocument(ctx context.Context, sessionId string, documentId string) (*entity.Document, bool)

	SessionIds(ctx context.Context) []string
}
