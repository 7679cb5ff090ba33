package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"legal-assistant-be/internal/bootstrap"
	"legal-assistant-be/internal/config"
	"legal-assistant-be/internal/controller"
	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/repository/memory"
	"legal-assistant-be/internal/service"
	"legal-assistant-be/pkg/llm/ollama"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

type testLogger struct{}

func (testLogger) Debug(string, string, map[string]interface{}) {}
func (testLogger) Info(string, string, map[string]interface{})  {}
func (testLogger) Warn(string, string, map[string]interface{})  {}
func (testLogger) Error(string, string, map[string]interface{}) {}
func (testLogger) Sync() error                                  { return nil }

// fakeOllama plays the model backend: /api/tags reports the model installed,
// /api/chat streams a fixed NDJSON reply.
func fakeOllama(t *testing.T, model string, deltas ...string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"models": []map[string]string{{"name": model}},
		})
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		for _, d := range deltas {
			payload, _ := json.Marshal(map[string]interface{}{
				"message": map[string]string{"role": "assistant", "content": d},
				"done":    false,
			})
			fmt.Fprintf(w, "%s\n", payload)
		}
		fmt.Fprintln(w, `{"message": {"role": "assistant", "content": ""}, "done": true}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, ollamaURL string) *fiber.App {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{
			Port:               "0",
			CorsAllowedOrigins: "http://localhost:3000",
			Environment:        "development",
		},
		Ollama: config.OllamaConfig{
			BaseURL:        ollamaURL,
			Model:          "test-model",
			TimeoutSeconds: 10,
		},
		Upload: config.UploadConfig{
			Dir:               t.TempDir(),
			MaxFileSize:       1024 * 1024,
			AllowedExtensions: []string{"pdf", "jpg", "jpeg", "png", "txt"},
		},
		Session: config.SessionConfig{
			TimeoutSeconds: 3600,
			Store:          "memory",
		},
	}

	sysLogger := testLogger{}
	sessionRepo := memory.NewSessionRepository(time.Hour)
	llmProvider := ollama.NewOllamaProvider(cfg.Ollama.BaseURL, cfg.Ollama.Model, 10*time.Second)

	extractor := service.NewPlainTextExtractor(sysLogger)
	sessionService := service.NewSessionService(sessionRepo, time.Hour, sysLogger)
	documentService := service.NewDocumentService(sessionRepo, extractor, cfg.Upload, sysLogger)
	chatService := service.NewChatService(llmProvider, documentService, sysLogger)

	container := &bootstrap.Container{
		HealthController:   controller.NewHealthController(chatService, extractor),
		SessionController:  controller.NewSessionController(sessionService),
		DocumentController: controller.NewDocumentController(documentService, sessionService, sysLogger),
		ChatController:     controller.NewChatController(chatService, sessionService, 10*time.Second, sysLogger),
		SessionService:     sessionService,
	}

	return New(cfg, container).GetApp()
}

func createSession(t *testing.T, app *fiber.App) string {
	t.Helper()
	req := httptest.NewRequest("POST", "/session", nil)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload dto.CreateSessionResponse
	json.NewDecoder(resp.Body).Decode(&payload)
	assert.NotEmpty(t, payload.SessionId)
	assert.Equal(t, payload.SessionId, resp.Header.Get("X-Session-ID"))
	return payload.SessionId
}

func uploadDocument(t *testing.T, app *fiber.App, sessionId, filename, content string) dto.UploadResponse {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("files", filename)
	part.Write([]byte(content))
	writer.Close()

	req := httptest.NewRequest("POST", "/upload-documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if sessionId != "" {
		req.Header.Set("X-Session-ID", sessionId)
	}

	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload dto.UploadResponse
	json.NewDecoder(resp.Body).Decode(&payload)
	return payload
}

func TestHealthEndpoint(t *testing.T) {
	backend := fakeOllama(t, "test-model")
	app := newTestApp(t, backend.URL)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload dto.HealthResponse
	json.NewDecoder(resp.Body).Decode(&payload)
	assert.Equal(t, "healthy", payload.Status)
	assert.Equal(t, "connected", payload.Services["ollama"])
	assert.Equal(t, "unavailable", payload.Services["ocr"])
}

func TestSessionLifecycle(t *testing.T) {
	backend := fakeOllama(t, "test-model")
	app := newTestApp(t, backend.URL)

	sessionId := createSession(t, app)

	// Show
	resp, err := app.Test(httptest.NewRequest("GET", "/session/"+sessionId, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var info dto.SessionInfoResponse
	json.NewDecoder(resp.Body).Decode(&info)
	assert.Equal(t, sessionId, info.Session.Id)
	assert.Equal(t, 0, info.DocumentCount)

	// Delete
	resp, err = app.Test(httptest.NewRequest("DELETE", "/session/"+sessionId, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Gone now
	resp, err = app.Test(httptest.NewRequest("GET", "/session/"+sessionId, nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var apiErr struct {
		Detail string `json:"detail"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	assert.Equal(t, "Session not found", apiErr.Detail)
}

func TestUploadAndListDocuments(t *testing.T) {
	backend := fakeOllama(t, "test-model")
	app := newTestApp(t, backend.URL)

	// Upload without a session header auto-creates one.
	uploaded := uploadDocument(t, app, "", "lease.txt",
		"4.2 The tenant shall not sublet the premises without written consent.")
	assert.True(t, uploaded.Success)
	assert.Equal(t, 1, uploaded.TotalDocuments)
	assert.NotEmpty(t, uploaded.SessionId)
	assert.Len(t, uploaded.Documents[0].Clauses, 1)

	req := httptest.NewRequest("GET", "/documents", nil)
	req.Header.Set("X-Session-ID", uploaded.SessionId)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)

	var listed dto.ListDocumentsResponse
	json.NewDecoder(resp.Body).Decode(&listed)
	assert.Equal(t, 1, listed.Count)
	assert.Equal(t, "lease.txt", listed.Documents[0].Name)
}

func TestUploadAllFilesRejected(t *testing.T) {
	backend := fakeOllama(t, "test-model")
	app := newTestApp(t, backend.URL)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, _ := writer.CreateFormFile("files", "malware.exe")
	part.Write([]byte("MZ"))
	writer.Close()

	req := httptest.NewRequest("POST", "/upload-documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req, -1)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr struct {
		Detail string `json:"detail"`
	}
	json.NewDecoder(resp.Body).Decode(&apiErr)
	assert.Contains(t, apiErr.Detail, "All files failed")
}

func TestDeleteDocument(t *testing.T) {
	backend := fakeOllama(t, "test-model")
	app := newTestApp(t, backend.URL)

	uploaded := uploadDocument(t, app, "", "nda.txt",
		"2.1 The receiving party shall keep all disclosed information confidential.")
	docId := uploaded.Documents[0].Id

	req := httptest.NewRequest("DELETE", "/documents/"+docId, nil)
	req.Header.Set("X-Session-ID", uploaded.SessionId)
	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Second delete hits nothing.
	req = httptest.NewRequest("DELETE", "/documents/"+docId, nil)
	req.Header.Set("X-Session-ID", uploaded.SessionId)
	resp, err = app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChatStreamsFrames(t *testing.T) {
	backend := fakeOllama(t, "test-model", "Yes, ", "after 30 days.")
	app := newTestApp(t, backend.URL)

	uploaded := uploadDocument(t, app, "", "lease.txt",
		"7.1 Either party may terminate this lease with thirty days notice.")

	chatBody, _ := json.Marshal(dto.ChatRequest{Message: "Can I terminate early?"})
	req := httptest.NewRequest("POST", "/chat", bytes.NewReader(chatBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", uploaded.SessionId)

	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uploaded.SessionId, resp.Header.Get("X-Session-ID"))

	raw, err := io.ReadAll(resp.Body)
	assert.NoError(t, err)

	var content strings.Builder
	var sawDone bool
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var chunk dto.StreamChunk
		assert.NoError(t, json.Unmarshal([]byte(line[len("data: "):]), &chunk))
		assert.Empty(t, chunk.Error)
		content.WriteString(chunk.Content)
		if chunk.Done {
			sawDone = true
		}
	}

	assert.Equal(t, "Yes, after 30 days.", content.String())
	assert.True(t, sawDone, "no done frame in stream")
}

func TestChatWithoutDocumentsStreamsErrorFrame(t *testing.T) {
	backend := fakeOllama(t, "test-model", "unused")
	app := newTestApp(t, backend.URL)

	sessionId := createSession(t, app)

	chatBody, _ := json.Marshal(dto.ChatRequest{Message: "analyze my contract"})
	req := httptest.NewRequest("POST", "/chat", bytes.NewReader(chatBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", sessionId)

	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "don't see any documents")
}

func TestChatValidation(t *testing.T) {
	backend := fakeOllama(t, "test-model")
	app := newTestApp(t, backend.URL)

	chatBody, _ := json.Marshal(dto.ChatRequest{Message: ""})
	req := httptest.NewRequest("POST", "/chat", bytes.NewReader(chatBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRootEndpoint(t *testing.T) {
	backend := fakeOllama(t, "test-model")
	app := newTestApp(t, backend.URL)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]string
	json.NewDecoder(resp.Body).Decode(&payload)
	assert.Contains(t, payload["message"], "Document Assistant")
}
