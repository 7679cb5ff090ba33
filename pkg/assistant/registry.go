package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"legal-assistant-be/internal/pkg/logger"
)

// Document mirrors the server's document record. It is immutable once
// returned: text and clauses are server-computed during upload.
type Document struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	MimeType    string    `json:"type"`
	SizeBytes   int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
	TextContent string    `json:"text_content,omitempty"`
	Clauses     []Clause  `json:"clauses,omitempty"`
}

// Clause is an opaque payload from the extraction service; read-only here.
type Clause struct {
	Number     string  `json:"number"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"type"`
	DocumentId string  `json:"document_id,omitempty"`
}

// UploadFile is one file to send in an upload call.
type UploadFile struct {
	Name    string
	Content io.Reader
}

// DocumentRegistry tracks the documents bound to the current session. The
// server is authoritative; the local set is a best-effort mirror that is
// wiped together with the session.
type DocumentRegistry struct {
	mu        sync.Mutex
	documents []Document

	baseURL    string
	httpClient *http.Client
	session    *SessionHandle
	logger     logger.ILogger
}

func NewDocumentRegistry(baseURL string, httpClient *http.Client, session *SessionHandle, sysLogger logger.ILogger) *DocumentRegistry {
	return &DocumentRegistry{
		baseURL:    baseURL,
		httpClient: httpClient,
		session:    session,
		logger:     sysLogger,
	}
}

// List fetches the server's document set for the held session and refreshes
// the mirror. Without a held session it returns an empty set with no network
// call: nothing has been uploaded yet, which is not an error.
func (r *DocumentRegistry) List(ctx context.Context) ([]Document, error) {
	if _, held := r.session.Current(); !held {
		return []Document{}, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", r.baseURL+"/documents", nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	r.session.Attach(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Cause: err}
	}
	defer resp.Body.Close()
	r.session.AdoptFromResponse(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{Cause: fmt.Errorf("list documents: status %d", resp.StatusCode)}
	}

	var payload struct {
		Documents []Document `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode document list: %w", err)
	}

	r.mu.Lock()
	r.documents = payload.Documents
	r.mu.Unlock()
	return payload.Documents, nil
}

// Upload ensures a session exists, sends the files as one multipart request,
// and merges the returned documents into the mirror. The merge appends rather
// than replaces so concurrent partial uploads stay additive.
func (r *DocumentRegistry) Upload(ctx context.Context, files ...UploadFile) ([]Document, error) {
	if len(files) == 0 {
		return nil, &UploadRejectedError{Reason: "no files provided"}
	}

	if _, err := r.session.Ensure(ctx); err != nil {
		return nil, err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, file := range files {
		part, err := writer.CreateFormFile("files", file.Name)
		if err != nil {
			return nil, &UploadFailedError{Cause: err}
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, &UploadFailedError{Cause: err}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, &UploadFailedError{Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.baseURL+"/upload-documents", &body)
	if err != nil {
		return nil, &UploadFailedError{Cause: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	r.session.Attach(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &UploadFailedError{Cause: err}
	}
	defer resp.Body.Close()
	r.session.AdoptFromResponse(resp)

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var detail struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&detail)
		if detail.Detail == "" {
			detail.Detail = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, &UploadRejectedError{Reason: detail.Detail}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UploadFailedError{Cause: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var payload struct {
		Documents []Document `json:"documents"`
		SessionId string     `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &UploadFailedError{Cause: fmt.Errorf("decode response: %w", err)}
	}
	r.session.Adopt(payload.SessionId)

	r.mu.Lock()
	r.documents = append(r.documents, payload.Documents...)
	r.mu.Unlock()

	r.logger.Info("registry", "Documents uploaded", map[string]interface{}{"count": len(payload.Documents)})
	return payload.Documents, nil
}

// Delete removes a document locally first, then on the server. A server
// failure is logged but the optimistic local removal stands; the mirror
// reconverges on the next List.
func (r *DocumentRegistry) Delete(ctx context.Context, documentId string) error {
	r.mu.Lock()
	for i, doc := range r.documents {
		if doc.Id == documentId {
			r.documents = append(r.documents[:i], r.documents[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, "DELETE", r.baseURL+"/documents/"+documentId, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	r.session.Attach(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Warn("registry", "Server-side document delete failed", map[string]interface{}{
			"document_id": documentId,
			"error":       err.Error(),
		})
		return &NetworkError{Cause: err}
	}
	defer resp.Body.Close()
	r.session.AdoptFromResponse(resp)

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("registry", "Server rejected document delete", map[string]interface{}{
			"document_id": documentId,
			"status":      resp.StatusCode,
		})
	}
	return nil
}

// ClearAll deletes the whole session server-side (which cascades to every
// bound document) and drops all local state.
func (r *DocumentRegistry) ClearAll(ctx context.Context) error {
	id, held := r.session.Current()
	if held {
		req, err := http.NewRequestWithContext(ctx, "DELETE", r.baseURL+"/session/"+id, nil)
		if err != nil {
			return fmt.Errorf("build clear request: %w", err)
		}
		resp, err := r.httpClient.Do(req)
		if err != nil {
			return &NetworkError{Cause: err}
		}
		resp.Body.Close()
	}

	r.session.Invalidate()
	r.mu.Lock()
	r.documents = nil
	r.mu.Unlock()
	return nil
}

// Snapshot returns the local mirror without touching the network. Used to
// freeze the document set at send-time for a chat turn.
func (r *DocumentRegistry) Snapshot() []Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Document, len(r.documents))
	copy(out, r.documents)
	return out
}

// Invalidate wipes the local mirror. Called when the session itself dies.
func (r *DocumentRegistry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents = nil
}
