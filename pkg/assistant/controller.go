package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"legal-assistant-be/internal/pkg/logger"
)

type TurnState int

const (
	StateIdle TurnState = iota
	StateSending
	StateStreaming
	StateCompleted
	StateFailed
)

func (s TurnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const cancelledMessage = "Response generation was cancelled."

// Handler receives stream events synchronously, one call per event, so a UI
// can render token-by-token without batching delay. May be nil.
type Handler func(StreamEvent)

// ChatController drives one conversational turn at a time: it establishes the
// session, snapshots the document set, opens the streaming call, applies
// decoded events to the history, and enforces single-flight and cancellation.
type ChatController struct {
	mu     sync.Mutex
	state  TurnState
	cancel context.CancelFunc

	baseURL    string
	httpClient *http.Client
	session    *SessionHandle
	registry   *DocumentRegistry
	history    *ChatHistory
	handler    Handler
	logger     logger.ILogger
}

func NewChatController(
	baseURL string,
	session *SessionHandle,
	registry *DocumentRegistry,
	history *ChatHistory,
	handler Handler,
	sysLogger logger.ILogger,
) *ChatController {
	if sysLogger == nil {
		sysLogger = nopLogger{}
	}
	return &ChatController{
		baseURL: baseURL,
		// No client-level timeout: a streaming response lives as long as the
		// model keeps talking. The turn context governs its lifetime.
		httpClient: &http.Client{},
		session:    session,
		registry:   registry,
		history:    history,
		handler:    handler,
		logger:     sysLogger,
	}
}

func (c *ChatController) State() TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send runs one turn for the given user message. It blocks until the turn
// terminates, invoking the handler per event along the way. A send while a
// turn is in flight is rejected with ErrTurnInProgress and leaves the history
// untouched.
func (c *ChatController) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	turnCtx, err := c.begin(ctx)
	if err != nil {
		return err
	}

	c.history.AppendUser(text)
	return c.runTurn(turnCtx, text)
}

// Regenerate re-issues the most recent user message after dropping the
// assistant reply it produced. The user message itself is already the tail of
// history and is not re-appended.
func (c *ChatController) Regenerate(ctx context.Context) error {
	lastUser, ok := c.history.LastUserText()
	if !ok {
		return ErrNoUserMessage
	}

	turnCtx, err := c.begin(ctx)
	if err != nil {
		return err
	}

	c.history.TruncateAfterLastUser()
	return c.runTurn(turnCtx, lastUser)
}

// Cancel aborts the in-flight turn's transport. Idempotent: calling it after
// the turn finished (or without one) does nothing.
func (c *ChatController) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// ClearChat empties the conversation. Only valid between turns.
func (c *ChatController) ClearChat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return ErrTurnInProgress
	}
	c.history.Clear()
	return nil
}

// begin atomically claims the single-flight slot and arms cancellation.
func (c *ChatController) begin(ctx context.Context) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return nil, ErrTurnInProgress
	}
	c.state = StateSending
	turnCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	return turnCtx, nil
}

func (c *ChatController) setState(s TurnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// finish records the terminal state and releases the single-flight slot.
func (c *ChatController) finish(failed bool) {
	c.mu.Lock()
	if failed {
		c.state = StateFailed
	} else {
		c.state = StateCompleted
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateIdle
	c.mu.Unlock()
}

type wireMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type turnRequest struct {
	Message   string        `json:"message"`
	History   []wireMessage `json:"history"`
	Documents []Document    `json:"documents"`
}

func (c *ChatController) runTurn(ctx context.Context, text string) (err error) {
	failed := true
	defer func() { c.finish(failed) }()

	sessionId, err := c.session.Ensure(ctx)
	if err != nil {
		c.failBeforeStream("Could not establish a session. Please try again.")
		return err
	}

	body, err := json.Marshal(c.buildRequest(text))
	if err != nil {
		c.failBeforeStream("Could not build the chat request.")
		return fmt.Errorf("marshal turn request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		c.failBeforeStream("Could not build the chat request.")
		return &NetworkError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	c.session.Attach(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			c.failBeforeStream(cancelledMessage)
			return ctx.Err()
		}
		c.failBeforeStream("Could not reach the assistant service.")
		return &NetworkError{Cause: err}
	}
	defer resp.Body.Close()
	c.session.AdoptFromResponse(resp)

	if resp.StatusCode == http.StatusNotFound {
		// The server no longer knows this session: everything bound to it is
		// gone, so the local mirrors must not pretend otherwise.
		c.expireSession(sessionId)
		return ErrSessionExpired
	}
	if resp.StatusCode != http.StatusOK {
		c.failBeforeStream(fmt.Sprintf("The assistant service returned an error (status %d).", resp.StatusCode))
		return &NetworkError{Cause: fmt.Errorf("chat: status %d", resp.StatusCode)}
	}

	c.setState(StateStreaming)
	messageId := c.history.BeginAssistant()

	turnErr := c.consumeStream(ctx, resp.Body, messageId)
	failed = turnErr != nil
	return turnErr
}

// consumeStream feeds arriving chunks through the decoder and applies events
// to the history until a terminal event, cancellation, or transport end.
func (c *ChatController) consumeStream(ctx context.Context, body io.Reader, messageId string) error {
	decoder := NewStreamDecoder()
	buf := make([]byte, 4096)

	var turnErr error
	terminated := false

	apply := func(events []StreamEvent) {
		for _, ev := range events {
			c.session.Adopt(ev.SessionId)
			switch ev.Type {
			case EventContentDelta:
				c.history.AppendDelta(messageId, ev.Content)
			case EventDone:
				c.history.Complete(messageId, "")
				terminated = true
			case EventError:
				c.history.Fail(messageId, ev.Message)
				turnErr = &ModelError{Message: ev.Message}
				terminated = true
			}
			c.emit(ev)
		}
	}

	for !terminated {
		// A cancel request must win over data already in flight: drop the
		// decoder's buffered partial line and emit nothing further.
		if ctx.Err() != nil {
			decoder.Discard()
			c.history.Fail(messageId, cancelledMessage)
			c.emit(StreamEvent{Type: EventError, Message: cancelledMessage})
			return ctx.Err()
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			apply(decoder.Feed(string(buf[:n])))
		}
		if readErr != nil {
			if terminated {
				break
			}
			if errors.Is(readErr, io.EOF) {
				// Server closed without an explicit terminator: whatever
				// content accumulated stands as the full reply.
				apply(decoder.Finish())
				break
			}
			if ctx.Err() != nil {
				decoder.Discard()
				c.history.Fail(messageId, cancelledMessage)
				c.emit(StreamEvent{Type: EventError, Message: cancelledMessage})
				return ctx.Err()
			}
			c.history.Fail(messageId, "The connection to the assistant service was lost.")
			c.emit(StreamEvent{Type: EventError, Message: readErr.Error()})
			return &NetworkError{Cause: readErr}
		}
	}

	return turnErr
}

// buildRequest role-maps the history into the wire shape. The trailing user
// message travels in the message field, not the history, so it is excluded
// from the replayed log. The document set is snapshotted here: uploads that
// land after this point do not affect the in-flight turn.
func (c *ChatController) buildRequest(text string) turnRequest {
	messages := c.history.Messages()
	if len(messages) > 0 && messages[len(messages)-1].Role == RoleUser {
		messages = messages[:len(messages)-1]
	}

	history := make([]wireMessage, 0, len(messages))
	for _, msg := range messages {
		history = append(history, wireMessage{
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.CreatedAt,
		})
	}

	return turnRequest{
		Message:   text,
		History:   history,
		Documents: c.registry.Snapshot(),
	}
}

// failBeforeStream records a turn failure that happened before an assistant
// message existed, so the error is still visible in the conversation.
func (c *ChatController) failBeforeStream(message string) {
	messageId := c.history.BeginAssistant()
	c.history.Fail(messageId, message)
	c.emit(StreamEvent{Type: EventError, Message: message})
}

// expireSession clears every local trace of a session the server disowned.
func (c *ChatController) expireSession(sessionId string) {
	c.logger.Warn("controller", "Server reported session unknown, clearing local state", map[string]interface{}{
		"session_id": sessionId,
	})
	c.session.Invalidate()
	c.registry.Invalidate()
	c.history.Clear()
}

func (c *ChatController) emit(ev StreamEvent) {
	if c.handler != nil {
		c.handler(ev)
	}
}
