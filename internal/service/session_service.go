package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/pkg/logger"
	"legal-assistant-be/internal/repository/contract"

	"github.com/google/uuid"
)

type ISessionService interface {
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	// GetOrCreateSession resolves the X-Session-ID header: a live id is kept
	// (and touched), anything else is replaced by a fresh session.
	GetOrCreateSession(ctx context.Context, sessionId string) (string, error)
	GetSession(ctx context.Context, sessionId string) (*entity.Session, bool)
	GetSessionInfo(ctx context.Context, sessionId string) (*dto.SessionInfoResponse, bool)
	DeleteSession(ctx context.Context, sessionId string) bool
	CleanupExpiredSessions(ctx context.Context) int
	RunJanitor(ctx context.Context, interval time.Duration)
}

type sessionService struct {
	repo    contract.ISessionRepository
	timeout time.Duration
	logger  logger.ILogger
}

func NewSessionService(repo contract.ISessionRepository, timeout time.Duration, sysLogger logger.ILogger) ISessionService {
	return &sessionService{
		repo:    repo,
		timeout: timeout,
		logger:  sysLogger,
	}
}

func (s *sessionService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	now := time.Now()
	session := &entity.Session{
		Id:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.repo.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("session", "Created new session", map[string]interface{}{"session_id": session.Id})
	return &dto.CreateSessionResponse{
		SessionId: session.Id,
		Message:   "Session created successfully",
	}, nil
}

func (s *sessionService) GetOrCreateSession(ctx context.Context, sessionId string) (string, error) {
	if sessionId != "" {
		if _, found := s.GetSession(ctx, sessionId); found {
			s.repo.TouchSession(ctx, sessionId)
			return sessionId, nil
		}
		s.logger.Warn("session", "Session not found, creating new one", map[string]interface{}{"session_id": sessionId})
	}

	created, err := s.CreateSession(ctx)
	if err != nil {
		return "", err
	}
	return created.SessionId, nil
}

// GetSession returns a live session. Expired sessions are cleaned up on the
// spot and reported as missing, so callers never see a stale one.
func (s *sessionService) GetSession(ctx context.Context, sessionId string) (*entity.Session, bool) {
	session, found := s.repo.GetSession(ctx, sessionId)
	if !found {
		return nil, false
	}
	if s.isExpired(session) {
		s.DeleteSession(ctx, sessionId)
		return nil, false
	}
	return session, true
}

func (s *sessionService) GetSessionInfo(ctx context.Context, sessionId string) (*dto.SessionInfoResponse, bool) {
	session, found := s.GetSession(ctx, sessionId)
	if !found {
		return nil, false
	}
	documents := s.repo.GetDocuments(ctx, sessionId)
	return &dto.SessionInfoResponse{
		Session:       session,
		Documents:     documents,
		DocumentCount: len(documents),
	}, true
}

// DeleteSession removes the session, its documents, and their files on disk.
func (s *sessionService) DeleteSession(ctx context.Context, sessionId string) bool {
	documents := s.repo.GetDocuments(ctx, sessionId)
	for _, doc := range documents {
		if doc.FilePath == "" {
			continue
		}
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Error("session", "Failed to remove document file", map[string]interface{}{
				"file_path": doc.FilePath,
				"error":     err.Error(),
			})
		}
	}

	deleted := s.repo.DeleteSession(ctx, sessionId)
	if deleted {
		s.logger.Info("session", "Cleaned up session", map[string]interface{}{
			"session_id":     sessionId,
			"document_count": len(documents),
		})
	}
	return deleted
}

func (s *sessionService) CleanupExpiredSessions(ctx context.Context) int {
	var expired []string
	for _, id := range s.repo.SessionIds(ctx) {
		if session, found := s.repo.GetSession(ctx, id); found && s.isExpired(session) {
			expired = append(expired, id)
		}
	}

	for _, id := range expired {
		s.DeleteSession(ctx, id)
	}

	if len(expired) > 0 {
		s.logger.Info("session", "Cleaned up expired sessions", map[string]interface{}{"count": len(expired)})
	}
	return len(expired)
}

// RunJanitor sweeps expired sessions until the context is cancelled.
func (s *sessionService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupExpiredSessions(ctx)
		}
	}
}

func (s *sessionService) isExpired(session *entity.Session) bool {
	return time.Now().After(session.LastActivity.Add(s.timeout))
}
