package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"legal-assistant-be/internal/pkg/logger"
)

// SessionHandle owns the one opaque session id this client holds. The server
// may rotate the id at any time by answering with a different X-Session-ID;
// Adopt follows the rotation transparently so the next request carries the
// current id.
type SessionHandle struct {
	mu sync.Mutex
	id string

	baseURL    string
	httpClient *http.Client
	logger     logger.ILogger
}

func NewSessionHandle(baseURL string, httpClient *http.Client, sysLogger logger.ILogger) *SessionHandle {
	return &SessionHandle{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     sysLogger,
	}
}

// Current reports the held id. The second result distinguishes "no session
// yet" from a session with no documents.
func (h *SessionHandle) Current() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.id, h.id != ""
}

// Ensure returns the held id, creating a server-side session first if none is
// held.
func (h *SessionHandle) Ensure(ctx context.Context) (string, error) {
	h.mu.Lock()
	if h.id != "" {
		id := h.id
		h.mu.Unlock()
		return id, nil
	}
	h.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, "POST", h.baseURL+"/session", nil)
	if err != nil {
		return "", &SessionCreationError{Cause: err}
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", &SessionCreationError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &SessionCreationError{Cause: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var payload struct {
		SessionId string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &SessionCreationError{Cause: fmt.Errorf("decode response: %w", err)}
	}
	if payload.SessionId == "" {
		return "", &SessionCreationError{Cause: fmt.Errorf("server returned no session id")}
	}

	h.Adopt(payload.SessionId)
	h.logger.Info("session", "Session established", map[string]interface{}{"session_id": payload.SessionId})
	return payload.SessionId, nil
}

// Attach adds the session id header to the request. No-op when no session is
// held; operations that require one must call Ensure first.
func (h *SessionHandle) Attach(req *http.Request) {
	if id, ok := h.Current(); ok {
		req.Header.Set(sessionHeader, id)
	}
}

// Adopt replaces the held id. Called for every response that carries a
// session header so server-initiated rotation is followed.
func (h *SessionHandle) Adopt(id string) {
	if id == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.id != "" && h.id != id {
		h.logger.Info("session", "Adopting rotated session id", map[string]interface{}{
			"old": h.id,
			"new": id,
		})
	}
	h.id = id
}

// AdoptFromResponse picks up a rotated id from the response header, if any.
func (h *SessionHandle) AdoptFromResponse(resp *http.Response) {
	h.Adopt(resp.Header.Get(sessionHeader))
}

// Invalidate drops the locally held id without contacting the server. Used on
// explicit clear and when the server reports the id unknown.
func (h *SessionHandle) Invalidate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.id = ""
}
