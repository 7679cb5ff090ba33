package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"testing"
	"time"

	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/repository/memory"
	"legal-assistant-be/pkg/llm"
)

type testLogger struct{}

func (testLogger) Debug(string, string, map[string]interface{}) {}
func (testLogger) Info(string, string, map[string]interface{})  {}
func (testLogger) Warn(string, string, map[string]interface{})  {}
func (testLogger) Error(string, string, map[string]interface{}) {}
func (testLogger) Sync() error                                  { return nil }

func newTestRepo(t *testing.T, sessionId string) *memory.SessionRepository {
	t.Helper()
	repo := memory.NewSessionRepository(time.Hour)
	now := time.Now()
	if err := repo.SaveSession(context.Background(), &entity.Session{
		Id:           sessionId,
		CreatedAt:    now,
		LastActivity: now,
	}); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return repo
}

// makeFileHeader builds a real multipart.FileHeader the way Fiber hands one to
// the service.
func makeFileHeader(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("files", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	writer.Close()

	form, err := multipart.NewReader(&buf, writer.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["files"][0]
}

// fakeProvider scripts the model backend for chat service tests.
type fakeProvider struct {
	alive     bool
	deltas    []string
	streamErr error

	gotHistory []llm.Message
}

func (f *fakeProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	var sb bytes.Buffer
	for _, d := range f.deltas {
		sb.WriteString(d)
	}
	return sb.String(), f.streamErr
}

func (f *fakeProvider) StreamChat(ctx context.Context, history []llm.Message, onDelta func(string) error, opts ...llm.Option) error {
	f.gotHistory = history
	for _, d := range f.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return f.streamErr
}

func (f *fakeProvider) Ping(ctx context.Context) bool {
	return f.alive
}
