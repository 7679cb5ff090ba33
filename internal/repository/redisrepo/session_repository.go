package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "legal:session:"
	metaField        = "meta"
	docFieldPrefix   = "doc:"
)

// SessionRepository mirrors the in-memory store onto a redis hash per session
// (field "meta" for the session record, "doc:<id>" per document). Useful when
// the API restarts should not drop active sessions.
type SessionRepository struct {
	client  *redis.Client
	timeout time.Duration
}

var _ contract.ISessionRepository = &SessionRepository{}

func NewSessionRepository(client *redis.Client, sessionTimeout time.Duration) *SessionRepository {
	return &SessionRepository{
		client:  client,
		timeout: sessionTimeout,
	}
}

func (r *SessionRepository) SaveSession(ctx context.Context, session *entity.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	key := sessionKey(session.Id)
	if err := r.client.HSet(ctx, key, metaField, payload).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return r.client.Expire(ctx, key, 2*r.timeout).Err()
}

func (r *SessionRepository) GetSession(ctx context.Context, sessionId string) (*entity.Session, bool) {
	raw, err := r.client.HGet(ctx, sessionKey(sessionId), metaField).Result()
	if err != nil {
		return nil, false
	}
	var session entity.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, false
	}
	return &session, true
}

func (r *SessionRepository) TouchSession(ctx context.Context, sessionId string) bool {
	session, found := r.GetSession(ctx, sessionId)
	if !found {
		return false
	}
	session.LastActivity = time.Now()
	return r.SaveSession(ctx, session) == nil
}

func (r *SessionRepository) DeleteSession(ctx context.Context, sessionId string) bool {
	deleted, err := r.client.Del(ctx, sessionKey(sessionId)).Result()
	return err == nil && deleted > 0
}

func (r *SessionRepository) AddDocument(ctx context.Context, sessionId string, doc *entity.Document) bool {
	session, found := r.GetSession(ctx, sessionId)
	if !found {
		return false
	}
	doc.SessionId = sessionId
	payload, err := json.Marshal(doc)
	if err != nil {
		return false
	}
	key := sessionKey(sessionId)
	if err := r.client.HSet(ctx, key, docFieldPrefix+doc.Id, payload).Err(); err != nil {
		return false
	}
	session.DocumentCount++
	session.LastActivity = time.Now()
	return r.SaveSession(ctx, session) == nil
}

func (r *SessionRepository) GetDocuments(ctx context.Context, sessionId string) []entity.Document {
	fields, err := r.client.HGetAll(ctx, sessionKey(sessionId)).Result()
	if err != nil {
		return []entity.Document{}
	}
	docs := make([]entity.Document, 0, len(fields))
	for field, raw := range fields {
		if field == metaField {
			continue
		}
		var doc entity.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	// Redis hashes are unordered; keep listing stable by upload time.
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.Before(docs[j].UploadedAt)
	})
	return docs
}

func (r *SessionRepository) RemoveDocument(ctx context.Context, sessionId string, documentId string) (*entity.Document, bool) {
	key := sessionKey(sessionId)
	raw, err := r.client.HGet(ctx, key, docFieldPrefix+documentId).Result()
	if err != nil {
		return nil, false
	}
	var doc entity.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false
	}
	if err := r.client.HDel(ctx, key, docFieldPrefix+documentId).Err(); err != nil {
		return nil, false
	}
	if session, found := r.GetSession(ctx, sessionId); found {
		session.DocumentCount--
		session.LastActivity = time.Now()
		_ = r.SaveSession(ctx, session)
	}
	return &doc, true
}

func (r *SessionRepository) SessionIds(ctx context.Context) []string {
	var ids []string
	iter := r.client.Scan(ctx, 0, sessionKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(sessionKeyPrefix):])
	}
	return ids
}

func sessionKey(sessionId string) string {
	return sessionKeyPrefix + sessionId
}
