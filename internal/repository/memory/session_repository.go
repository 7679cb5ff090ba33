package memory

import (
	"context"
	"sync"
	"time"

	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

type sessionRecord struct {
	session   *entity.Session
	documents []entity.Document
}

// SessionRepository keeps sessions in a go-cache with a TTL backstop. Inactivity
// expiry is decided by the session service; the cache TTL only guards against
// a dead janitor.
type SessionRepository struct {
	cache *cache.Cache
	mu    sync.Mutex
}

var _ contract.ISessionRepository = &SessionRepository{}

func NewSessionRepository(sessionTimeout time.Duration) *SessionRepository {
	// Keep entries around twice the logical timeout so the service-level
	// janitor can still observe (and clean up after) expired sessions.
	c := cache.New(2*sessionTimeout, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) SaveSession(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Set(session.Id, &sessionRecord{session: session}, cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) GetSession(_ context.Context, sessionId string) (*entity.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, found := r.get(sessionId)
	if !found {
		return nil, false
	}
	copied := *rec.session
	return &copied, true
}

func (r *SessionRepository) TouchSession(_ context.Context, sessionId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, found := r.get(sessionId)
	if !found {
		return false
	}
	rec.session.LastActivity = time.Now()
	r.cache.Set(sessionId, rec, cache.DefaultExpiration)
	return true
}

func (r *SessionRepository) DeleteSession(_ context.Context, sessionId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.get(sessionId); !found {
		return false
	}
	r.cache.Delete(sessionId)
	return true
}

func (r *SessionRepository) AddDocument(_ context.Context, sessionId string, doc *entity.Document) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, found := r.get(sessionId)
	if !found {
		return false
	}
	doc.SessionId = sessionId
	rec.documents = append(rec.documents, *doc)
	rec.session.DocumentCount = len(rec.documents)
	rec.session.LastActivity = time.Now()
	r.cache.Set(sessionId, rec, cache.DefaultExpiration)
	return true
}

func (r *SessionRepository) GetDocuments(_ context.Context, sessionId string) []entity.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, found := r.get(sessionId)
	if !found {
		return []entity.Document{}
	}
	out := make([]entity.Document, len(rec.documents))
	copy(out, rec.documents)
	return out
}

func (r *SessionRepository) RemoveDocument(_ context.Context, sessionId string, documentId string) (*entity.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, found := r.get(sessionId)
	if !found {
		return nil, false
	}
	for i, doc := range rec.documents {
		if doc.Id == documentId {
			removed := doc
			rec.documents = append(rec.documents[:i], rec.documents[i+1:]...)
			rec.session.DocumentCount = len(rec.documents)
			rec.session.LastActivity = time.Now()
			r.cache.Set(sessionId, rec, cache.DefaultExpiration)
			return &removed, true
		}
	}
	return nil, false
}

func (r *SessionRepository) SessionIds(_ context.Context) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.cache.Items()
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	return ids
}

func (r *SessionRepository) get(sessionId string) (*sessionRecord, bool) {
	if x, found := r.cache.Get(sessionId); found {
		return x.(*sessionRecord), true
	}
	return nil, false
}
