package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/pkg/logger"
	"legal-assistant-be/pkg/llm"
)

const systemPrompt = `You are a specialized AI legal assistant with expertise in analyzing legal and insurance documents. Your role is to:

1. Analyze contracts, policies, and legal agreements
2. Break down complex legal language into understandable terms
3. Highlight important terms, conditions, and potential risks
4. Answer user questions about their documents with precision

Guidelines:
- Always base your responses on the provided document content
- Cite specific clause numbers when referencing document sections
- Highlight both benefits and potential risks
- If information is unclear or missing, state this explicitly
- Never provide legal advice - only document analysis and explanation`

// historyWindow limits how much conversation is replayed to the model.
const historyWindow = 5

type IChatService interface {
	// StreamChat runs one conversational turn, calling emit once per outgoing
	// stream frame. It always terminates the frame sequence itself (done or
	// error); a non-nil return only means emit failed (client went away).
	StreamChat(ctx context.Context, sessionId string, req *dto.ChatRequest, emit func(dto.StreamChunk) error) error
	Ping(ctx context.Context) bool
}

type chatService struct {
	provider    llm.LLMProvider
	documentSvc IDocumentService
	logger      logger.ILogger
}

func NewChatService(provider llm.LLMProvider, documentSvc IDocumentService, sysLogger logger.ILogger) IChatService {
	return &chatService{
		provider:    provider,
		documentSvc: documentSvc,
		logger:      sysLogger,
	}
}

func (s *chatService) StreamChat(ctx context.Context, sessionId string, req *dto.ChatRequest, emit func(dto.StreamChunk) error) error {
	// Preflight: a dead model backend should fail the turn before streaming starts.
	if !s.provider.Ping(ctx) {
		s.logger.Error("chat", "Model backend not available", map[string]interface{}{"session_id": sessionId})
		return emit(dto.StreamChunk{
			Error:     "AI service is not available. Please ensure the model backend is running and the model is installed.",
			Done:      true,
			SessionId: sessionId,
		})
	}

	docContext := s.documentSvc.BuildContext(ctx, sessionId, req.Documents)
	if strings.TrimSpace(docContext) == "" {
		return emit(dto.StreamChunk{
			Error:     "I don't see any documents uploaded yet. Please upload some legal documents first so I can help analyze them.",
			Done:      true,
			SessionId: sessionId,
		})
	}

	history := s.buildHistory(docContext, req)

	s.logger.Info("chat", "Starting model stream", map[string]interface{}{
		"session_id":   sessionId,
		"context_size": len(docContext),
		"history_len":  len(req.History),
	})

	streamErr := s.provider.StreamChat(ctx, history, func(delta string) error {
		if err := emit(dto.StreamChunk{
			Content:   delta,
			Done:      false,
			SessionId: sessionId,
		}); err != nil {
			return &emitFailure{cause: err}
		}
		return nil
	})

	if streamErr != nil {
		var emitErr *emitFailure
		if errors.As(streamErr, &emitErr) {
			return emitErr.cause
		}
		s.logger.Error("chat", "Model stream failed", map[string]interface{}{
			"session_id": sessionId,
			"error":      streamErr.Error(),
		})
		return emit(dto.StreamChunk{
			Error:     friendlyModelError(streamErr),
			Done:      true,
			SessionId: sessionId,
		})
	}

	return emit(dto.StreamChunk{Done: true, SessionId: sessionId})
}

func (s *chatService) Ping(ctx context.Context) bool {
	return s.provider.Ping(ctx)
}

// buildHistory assembles the model conversation: system prompt with document
// context, a bounded slice of prior turns, then the current question.
func (s *chatService) buildHistory(docContext string, req *dto.ChatRequest) []llm.Message {
	messages := []llm.Message{
		{Role: "system", Content: systemPrompt + "\n\nDOCUMENT CONTEXT:\n" + docContext},
	}

	start := 0
	if len(req.History) > historyWindow {
		start = len(req.History) - historyWindow
	}
	for _, msg := range req.History[start:] {
		role := msg.Role
		if role != "user" && role != "assistant" {
			role = "user"
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Content})
	}

	messages = append(messages, llm.Message{Role: "user", Content: req.Message})
	return messages
}

// emitFailure distinguishes "the client stopped reading" from model errors
// inside the provider callback chain.
type emitFailure struct {
	cause error
}

func (e *emitFailure) Error() string {
	return fmt.Sprintf("emit frame: %v", e.cause)
}

func friendlyModelError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(strings.ToLower(msg), "timeout"), strings.Contains(strings.ToLower(msg), "deadline"):
		return "The AI service is taking too long to respond. Please try with a shorter question."
	case strings.Contains(strings.ToLower(msg), "connect"):
		return "Unable to connect to the AI service. Please ensure the model backend is running and try again."
	default:
		return fmt.Sprintf("AI service error: %s", msg)
	}
}
