package assistant

import (
	"errors"
	"fmt"
)

var (
	// ErrTurnInProgress rejects a send while another turn is outside Idle.
	// Turns are never queued or interleaved.
	ErrTurnInProgress = errors.New("a chat turn is already in progress")

	// ErrEmptyMessage rejects empty or whitespace-only input.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNoUserMessage means Regenerate was called on an empty conversation.
	ErrNoUserMessage = errors.New("no user message to regenerate")

	// ErrSessionExpired means the server no longer recognizes the session id.
	// All local session, document, and chat state is cleared when this is
	// detected.
	ErrSessionExpired = errors.New("session expired")
)

// SessionCreationError wraps a failed POST /session.
type SessionCreationError struct {
	Cause error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("create session: %v", e.Cause)
}

func (e *SessionCreationError) Unwrap() error {
	return e.Cause
}

// UploadRejectedError is a client-fixable rejection (bad type or size)
// reported by the server with a 4xx detail string.
type UploadRejectedError struct {
	Reason string
}

func (e *UploadRejectedError) Error() string {
	return fmt.Sprintf("upload rejected: %s", e.Reason)
}

// UploadFailedError is a transport-level upload failure.
type UploadFailedError struct {
	Cause error
}

func (e *UploadFailedError) Error() string {
	return fmt.Sprintf("upload failed: %v", e.Cause)
}

func (e *UploadFailedError) Unwrap() error {
	return e.Cause
}

// ModelError is a server-reported error frame. Fatal to the turn only.
type ModelError struct {
	Message string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model error: %s", e.Message)
}

// NetworkError is a transport-level failure during a turn.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}
