package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(o *Options) {
		o.MaxTokens = maxTokens
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the full response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// StreamChat sends a chat history and delivers the response incrementally.
	// onDelta is called once per generated fragment, in order; returning an
	// error from it aborts the stream.
	StreamChat(ctx context.Context, history []Message, onDelta func(delta string) error, options ...Option) error

	// Ping reports whether the backend is reachable and the model is loaded
	Ping(ctx context.Context) bool
}
