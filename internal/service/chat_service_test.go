package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/entity"
)

func newTestChatService(t *testing.T, provider *fakeProvider) IChatService {
	t.Helper()
	repo := newTestRepo(t, "sess-1")
	docSvc := newTestDocumentService(t, repo)
	return NewChatService(provider, docSvc, testLogger{})
}

func requestWithDocuments(message string) *dto.ChatRequest {
	return &dto.ChatRequest{
		Message: message,
		Documents: []entity.Document{{
			Name:        "lease.txt",
			TextContent: "7.1 Either party may terminate this lease with thirty days notice.",
		}},
	}
}

func collectChunks(svc IChatService, req *dto.ChatRequest) ([]dto.StreamChunk, error) {
	var chunks []dto.StreamChunk
	err := svc.StreamChat(context.Background(), "sess-1", req, func(chunk dto.StreamChunk) error {
		chunks = append(chunks, chunk)
		return nil
	})
	return chunks, err
}

func TestStreamChatHappyPath(t *testing.T) {
	provider := &fakeProvider{alive: true, deltas: []string{"Yes, ", "with 30 days notice."}}
	svc := newTestChatService(t, provider)

	chunks, err := collectChunks(svc, requestWithDocuments("Can I terminate early?"))
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 2 deltas + done", len(chunks))
	}
	if chunks[0].Content != "Yes, " || chunks[0].Done {
		t.Errorf("chunks[0] = %+v", chunks[0])
	}
	if chunks[1].Content != "with 30 days notice." {
		t.Errorf("chunks[1] = %+v", chunks[1])
	}
	last := chunks[2]
	if !last.Done || last.Error != "" || last.Content != "" {
		t.Errorf("terminal chunk = %+v", last)
	}
	for _, chunk := range chunks {
		if chunk.SessionId != "sess-1" {
			t.Errorf("chunk missing session id: %+v", chunk)
		}
	}
}

func TestStreamChatDeadBackend(t *testing.T) {
	provider := &fakeProvider{alive: false}
	svc := newTestChatService(t, provider)

	chunks, err := collectChunks(svc, requestWithDocuments("hello"))
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}

	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want a single error frame", len(chunks))
	}
	if !chunks[0].Done || chunks[0].Error == "" {
		t.Errorf("chunk = %+v, want terminal error", chunks[0])
	}
}

func TestStreamChatWithoutDocuments(t *testing.T) {
	provider := &fakeProvider{alive: true, deltas: []string{"should not run"}}
	svc := newTestChatService(t, provider)

	chunks, err := collectChunks(svc, &dto.ChatRequest{Message: "analyze my contract"})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}

	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	if !strings.Contains(chunks[0].Error, "don't see any documents") {
		t.Errorf("error = %q", chunks[0].Error)
	}
	if provider.gotHistory != nil {
		t.Error("model was called despite missing documents")
	}
}

func TestStreamChatModelFailureBecomesErrorFrame(t *testing.T) {
	provider := &fakeProvider{
		alive:     true,
		deltas:    []string{"partial "},
		streamErr: errors.New("connect: connection refused"),
	}
	svc := newTestChatService(t, provider)

	chunks, err := collectChunks(svc, requestWithDocuments("hello"))
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}

	last := chunks[len(chunks)-1]
	if !last.Done || !strings.Contains(last.Error, "Unable to connect") {
		t.Errorf("terminal chunk = %+v", last)
	}
}

// When the client stops reading, the service reports the emit failure instead
// of wrapping it into another frame nobody can receive.
func TestStreamChatClientHangup(t *testing.T) {
	provider := &fakeProvider{alive: true, deltas: []string{"a", "b", "c"}}
	svc := newTestChatService(t, provider)

	hangup := errors.New("connection reset by peer")
	var emitted int
	err := svc.StreamChat(context.Background(), "sess-1", requestWithDocuments("hi"), func(chunk dto.StreamChunk) error {
		emitted++
		if emitted > 1 {
			return hangup
		}
		return nil
	})

	if !errors.Is(err, hangup) {
		t.Errorf("err = %v, want the emit failure", err)
	}
}

func TestStreamChatHistoryAssembly(t *testing.T) {
	provider := &fakeProvider{alive: true, deltas: []string{"ok"}}
	svc := newTestChatService(t, provider)

	req := requestWithDocuments("latest question")
	for i := 0; i < 8; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		req.History = append(req.History, dto.ChatMessageDTO{Role: role, Content: strings.Repeat("m", i+1)})
	}

	if _, err := collectChunks(svc, req); err != nil {
		t.Fatalf("StreamChat: %v", err)
	}

	got := provider.gotHistory
	// system prompt + bounded window + current question
	if len(got) != 1+5+1 {
		t.Fatalf("history = %d messages, want 7", len(got))
	}
	if got[0].Role != "system" || !strings.Contains(got[0].Content, "DOCUMENT CONTEXT:") {
		t.Errorf("system message = %+v", got[0])
	}
	if got[len(got)-1].Role != "user" || got[len(got)-1].Content != "latest question" {
		t.Errorf("tail message = %+v", got[len(got)-1])
	}
	// The window keeps the most recent prior turns.
	if got[1].Content != strings.Repeat("m", 4) {
		t.Errorf("window start = %+v", got[1])
	}
}

func TestChatServicePing(t *testing.T) {
	svc := newTestChatService(t, &fakeProvider{alive: true})
	if !svc.Ping(context.Background()) {
		t.Error("Ping = false with a live backend")
	}

	svc = newTestChatService(t, &fakeProvider{alive: false})
	if svc.Ping(context.Background()) {
		t.Error("Ping = true with a dead backend")
	}
}
