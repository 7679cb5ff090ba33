package assistant

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry in the conversation log. User messages are created
// complete and never change. Assistant messages start empty with
// Streaming=true and grow until the turn terminates.
type ChatMessage struct {
	Id        string
	Role      string
	Content   string
	CreatedAt time.Time
	Streaming bool
}

// ChatHistory is the ordered, append-only conversation log. Mutation is
// restricted to the single in-flight assistant message; everything else is
// immutable once appended.
type ChatHistory struct {
	mu       sync.Mutex
	messages []ChatMessage
}

func NewChatHistory() *ChatHistory {
	return &ChatHistory{}
}

// AppendUser adds a completed user message. Empty input (after trimming) is
// ignored.
func (h *ChatHistory) AppendUser(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, ChatMessage{
		Id:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	})
}

// BeginAssistant opens the streaming assistant message for a turn and returns
// its id. At most one may be open; a second open is a bug in the caller's
// single-flight handling, so it panics rather than corrupting the log.
func (h *ChatHistory) BeginAssistant() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, msg := range h.messages {
		if msg.Streaming {
			panic("assistant: BeginAssistant while another message is streaming")
		}
	}
	msg := ChatMessage{
		Id:        uuid.NewString(),
		Role:      RoleAssistant,
		CreatedAt: time.Now(),
		Streaming: true,
	}
	h.messages = append(h.messages, msg)
	return msg.Id
}

// AppendDelta grows the named message's content. A missing id is not an
// error: the turn may have been cleared mid-stream.
func (h *ChatHistory) AppendDelta(messageId, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if msg := h.find(messageId); msg != nil {
		msg.Content += text
	}
}

// Complete closes the streaming message. A non-empty finalText that differs
// from the accumulated content replaces it (authoritative server payload).
func (h *ChatHistory) Complete(messageId, finalText string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msg := h.find(messageId)
	if msg == nil {
		return
	}
	if finalText != "" && finalText != msg.Content {
		msg.Content = finalText
	}
	msg.Streaming = false
}

// Fail closes the streaming message with a user-facing error string.
func (h *ChatHistory) Fail(messageId, errorText string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msg := h.find(messageId)
	if msg == nil {
		return
	}
	msg.Content = errorText
	msg.Streaming = false
}

// TruncateAfterLastUser drops every message after (not including) the most
// recent user message. This is what regeneration relies on.
func (h *ChatHistory) TruncateAfterLastUser() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.messages) - 1; i >= 0; i-- {
		if h.messages[i].Role == RoleUser {
			h.messages = h.messages[:i+1]
			return
		}
	}
	h.messages = nil
}

// LastUserText returns the content of the most recent user message.
func (h *ChatHistory) LastUserText() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.messages) - 1; i >= 0; i-- {
		if h.messages[i].Role == RoleUser {
			return h.messages[i].Content, true
		}
	}
	return "", false
}

// Messages returns a copy of the log.
func (h *ChatHistory) Messages() []ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ChatMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *ChatHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Clear empties the log.
func (h *ChatHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}

func (h *ChatHistory) find(messageId string) *ChatMessage {
	for i := range h.messages {
		if h.messages[i].Id == messageId {
			return &h.messages[i]
		}
	}
	return nil
}
