// Package assistant is the client side of the document chat protocol: it
// keeps a server-held session, the documents bound to it, and the chat
// history, and decodes assistant replies as they stream in over a long-lived
// HTTP response.
package assistant

import (
	"net/http"
	"time"

	"legal-assistant-be/internal/pkg/logger"
)

const sessionHeader = "X-Session-ID"

// Client bundles the shared plumbing (endpoint, transport, session) that the
// registry and controller operate on.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	Session  *SessionHandle
	Registry *DocumentRegistry
	History  *ChatHistory

	logger logger.ILogger
}

// NewClient wires a full client against the given API base URL. sysLogger may
// be nil, in which case logging is discarded.
func NewClient(baseURL string, sysLogger logger.ILogger) *Client {
	if sysLogger == nil {
		sysLogger = nopLogger{}
	}
	httpClient := &http.Client{
		// Bounded wait for session creation and uploads. Chat turns manage
		// their own lifetime via context.
		Timeout: 60 * time.Second,
	}

	session := NewSessionHandle(baseURL, httpClient, sysLogger)
	registry := NewDocumentRegistry(baseURL, httpClient, session, sysLogger)

	return &Client{
		BaseURL:    baseURL,
		HTTPClient: httpClient,
		Session:    session,
		Registry:   registry,
		History:    NewChatHistory(),
		logger:     sysLogger,
	}
}

// NewChatController builds the turn state machine on top of this client.
func (c *Client) NewChatController(handler Handler) *ChatController {
	return NewChatController(c.BaseURL, c.Session, c.Registry, c.History, handler, c.logger)
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }
