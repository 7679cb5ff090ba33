package controller

import (
	"fmt"
	"strings"

	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/pkg/logger"
	"legal-assistant-be/internal/pkg/serverutils"
	"legal-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
	sessionService  service.ISessionService
	logger          logger.ILogger
}

func NewDocumentController(
	documentService service.IDocumentService,
	sessionService service.ISessionService,
	sysLogger logger.ILogger,
) IDocumentController {
	return &documentController{
		documentService: documentService,
		sessionService:  sessionService,
		logger:          sysLogger,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	r.Post("/upload-documents", c.Upload)
	r.Get("/documents", c.List)
	r.Delete("/documents/:id", c.Delete)
}

func (c *documentController) Upload(ctx *fiber.Ctx) error {
	sessionId, err := c.sessionService.GetOrCreateSession(ctx.Context(), ctx.Get(sessionHeader))
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}
	ctx.Set(sessionHeader, sessionId)

	form, err := ctx.MultipartForm()
	if err != nil {
		return serverutils.BadRequest("expected multipart form upload")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return serverutils.BadRequest("no files provided")
	}

	c.logger.Info("document", "Received files for upload", map[string]interface{}{
		"count":      len(files),
		"session_id": sessionId,
	})

	var processed []entity.Document
	var failed []string

	for _, file := range files {
		doc, err := c.documentService.ProcessUpload(ctx.Context(), sessionId, file)
		if err != nil {
			c.logger.Error("document", "Failed to process file", map[string]interface{}{
				"file":  file.Filename,
				"error": err.Error(),
			})
			failed = append(failed, fmt.Sprintf("%s: %v", file.Filename, err))
			continue
		}
		processed = append(processed, *doc)
	}

	if len(processed) == 0 && len(failed) > 0 {
		return serverutils.BadRequest("All files failed to process: " + strings.Join(failed, "; "))
	}

	message := fmt.Sprintf("Successfully processed %d documents", len(processed))
	if len(failed) > 0 {
		preview := failed
		if len(preview) > 3 {
			preview = preview[:3]
		}
		message += fmt.Sprintf(". %d files failed: %s", len(failed), strings.Join(preview, "; "))
	}

	return ctx.JSON(dto.UploadResponse{
		Success:        true,
		Message:        message,
		Documents:      processed,
		TotalDocuments: len(processed),
		SessionId:      sessionId,
	})
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	sessionId, err := c.sessionService.GetOrCreateSession(ctx.Context(), ctx.Get(sessionHeader))
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}
	ctx.Set(sessionHeader, sessionId)

	documents := c.documentService.ListDocuments(ctx.Context(), sessionId)
	return ctx.JSON(dto.ListDocumentsResponse{
		Documents: documents,
		SessionId: sessionId,
		Count:     len(documents),
	})
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	sessionId, err := c.sessionService.GetOrCreateSession(ctx.Context(), ctx.Get(sessionHeader))
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}
	ctx.Set(sessionHeader, sessionId)

	documentId := ctx.Params("id")
	if deleted := c.documentService.DeleteDocument(ctx.Context(), sessionId, documentId); !deleted {
		return serverutils.NotFound("Document not found")
	}

	return ctx.JSON(dto.DeleteDocumentResponse{
		Message:   "Document deleted successfully",
		SessionId: sessionId,
	})
}
