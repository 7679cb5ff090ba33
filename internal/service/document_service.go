package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"legal-assistant-be/internal/config"
	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/pkg/logger"
	"legal-assistant-be/internal/repository/contract"
	"legal-assistant-be/pkg/legal"

	"github.com/google/uuid"
)

type IDocumentService interface {
	// ProcessUpload validates, stores, and analyzes one uploaded file, binding
	// the resulting document to the session.
	ProcessUpload(ctx context.Context, sessionId string, file *multipart.FileHeader) (*entity.Document, error)
	ListDocuments(ctx context.Context, sessionId string) []entity.Document
	DeleteDocument(ctx context.Context, sessionId string, documentId string) bool
	// BuildContext renders documents into the prompt context block. When the
	// request carries no documents, the session's own set is used.
	BuildContext(ctx context.Context, sessionId string, requestDocs []entity.Document) string
}

type documentService struct {
	repo      contract.ISessionRepository
	extractor ITextExtractor
	cfg       config.UploadConfig
	logger    logger.ILogger
}

func NewDocumentService(
	repo contract.ISessionRepository,
	extractor ITextExtractor,
	cfg config.UploadConfig,
	sysLogger logger.ILogger,
) IDocumentService {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		sysLogger.Error("document", "Failed to create upload directory", map[string]interface{}{
			"dir":   cfg.Dir,
			"error": err.Error(),
		})
	}
	return &documentService{
		repo:      repo,
		extractor: extractor,
		cfg:       cfg,
		logger:    sysLogger,
	}
}

func (s *documentService) ProcessUpload(ctx context.Context, sessionId string, file *multipart.FileHeader) (*entity.Document, error) {
	if err := s.validateFile(file); err != nil {
		return nil, err
	}

	filePath, err := s.saveFile(file)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", file.Filename, err)
	}

	extractedText, err := s.extractor.ExtractText(ctx, filePath)
	if err != nil {
		// Extraction failure degrades the document, it does not reject it.
		s.logger.Warn("document", "Text extraction failed", map[string]interface{}{
			"file":  file.Filename,
			"error": err.Error(),
		})
		extractedText = ""
	}

	doc := s.buildDocument(filePath, extractedText, file.Filename)

	if ok := s.repo.AddDocument(ctx, sessionId, doc); !ok {
		_ = os.Remove(filePath)
		return nil, fmt.Errorf("session %s no longer exists", sessionId)
	}

	s.logger.Info("document", "Processed document", map[string]interface{}{
		"name":       doc.Name,
		"session_id": sessionId,
		"chars":      len(extractedText),
		"clauses":    len(doc.Clauses),
	})
	return doc, nil
}

func (s *documentService) ListDocuments(ctx context.Context, sessionId string) []entity.Document {
	return s.repo.GetDocuments(ctx, sessionId)
}

func (s *documentService) DeleteDocument(ctx context.Context, sessionId string, documentId string) bool {
	removed, ok := s.repo.RemoveDocument(ctx, sessionId, documentId)
	if !ok {
		return false
	}
	if removed.FilePath != "" {
		if err := os.Remove(removed.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Error("document", "Failed to remove file", map[string]interface{}{
				"file_path": removed.FilePath,
				"error":     err.Error(),
			})
		}
	}
	s.logger.Info("document", "Document deleted", map[string]interface{}{
		"document_id": documentId,
		"session_id":  sessionId,
	})
	return true
}

func (s *documentService) BuildContext(ctx context.Context, sessionId string, requestDocs []entity.Document) string {
	docs := requestDocs
	if len(docs) == 0 {
		docs = s.repo.GetDocuments(ctx, sessionId)
	}
	if len(docs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== UPLOADED DOCUMENTS ===\n")
	for _, doc := range docs {
		fmt.Fprintf(&b, "\nDocument: %s\n", doc.Name)
		if doc.TextContent != "" {
			content := doc.TextContent
			if len(content) > 2000 {
				content = content[:2000] + "..."
			}
			b.WriteString(content)
			b.WriteString("\n")
		}
		if len(doc.Clauses) > 0 {
			b.WriteString("\nKey Clauses:\n")
			for i, clause := range doc.Clauses {
				if i == 5 {
					break
				}
				text := clause.Text
				if len(text) > 200 {
					text = text[:200] + "..."
				}
				fmt.Fprintf(&b, "- %s: %s\n", clause.Number, text)
			}
		}
		b.WriteString(strings.Repeat("-", 50))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *documentService) validateFile(file *multipart.FileHeader) error {
	if file.Filename == "" {
		return fmt.Errorf("file has no name")
	}

	ext := fileExtension(file.Filename)
	allowed := false
	for _, a := range s.cfg.AllowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("invalid file type .%s (allowed: %s)", ext, strings.Join(s.cfg.AllowedExtensions, ", "))
	}

	if file.Size > s.cfg.MaxFileSize {
		return fmt.Errorf("file size %d exceeds maximum %d bytes", file.Size, s.cfg.MaxFileSize)
	}
	return nil
}

func (s *documentService) saveFile(file *multipart.FileHeader) (string, error) {
	fileId := uuid.NewString()
	filename := fmt.Sprintf("%s.%s", fileId, fileExtension(file.Filename))
	filePath := filepath.Join(s.cfg.Dir, filename)

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		_ = os.Remove(filePath)
		return "", fmt.Errorf("write file: %w", err)
	}
	// The multipart header size is client-supplied; re-check what actually landed.
	if written > s.cfg.MaxFileSize {
		_ = os.Remove(filePath)
		return "", fmt.Errorf("file size %d exceeds maximum %d bytes", written, s.cfg.MaxFileSize)
	}

	return filePath, nil
}

func (s *documentService) buildDocument(filePath, extractedText, originalFilename string) *entity.Document {
	fileId := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))

	var size int64
	if stat, err := os.Stat(filePath); err == nil {
		size = stat.Size()
	}

	clauses := legal.ExtractClauses(extractedText)
	entityClauses := make([]entity.Clause, len(clauses))
	for i, c := range clauses {
		entityClauses[i] = entity.Clause{
			Number:     c.Number,
			Text:       c.Text,
			Confidence: c.Confidence,
			Type:       c.Type,
			DocumentId: fileId,
		}
	}

	return &entity.Document{
		Id:          fileId,
		Name:        originalFilename,
		Type:        mimeTypeFor(originalFilename),
		Size:        size,
		UploadedAt:  time.Now(),
		TextContent: extractedText,
		Clauses:     entityClauses,
		FilePath:    filePath,
	}
}

func fileExtension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

func mimeTypeFor(filename string) string {
	switch fileExtension(filename) {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
