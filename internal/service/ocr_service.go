package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"legal-assistant-be/internal/pkg/logger"
)

// ITextExtractor is the boundary to the document text extraction collaborator.
// The real OCR engine (scanned PDFs, images) lives outside this service; the
// API only depends on this contract.
type ITextExtractor interface {
	ExtractText(ctx context.Context, filePath string) (string, error)
	Available() bool
}

// plainTextExtractor handles the formats that need no OCR at all and reports
// everything else as empty. It keeps the upload pipeline functional when no
// OCR engine is deployed.
type plainTextExtractor struct {
	logger logger.ILogger
}

func NewPlainTextExtractor(sysLogger logger.ILogger) ITextExtractor {
	return &plainTextExtractor{logger: sysLogger}
}

func (e *plainTextExtractor) ExtractText(_ context.Context, filePath string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	switch ext {
	case "txt", "md":
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
		return string(content), nil
	default:
		e.logger.Warn("ocr", "No OCR engine configured for file type, skipping extraction", map[string]interface{}{
			"file_path": filePath,
			"extension": ext,
		})
		return "", nil
	}
}

func (e *plainTextExtractor) Available() bool {
	return false
}
