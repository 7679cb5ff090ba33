package controller

import (
	"time"

	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const apiVersion = "1.0.0"

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
	Root(ctx *fiber.Ctx) error
}

type healthController struct {
	chatService service.IChatService
	extractor   service.ITextExtractor
}

func NewHealthController(chatService service.IChatService, extractor service.ITextExtractor) IHealthController {
	return &healthController{
		chatService: chatService,
		extractor:   extractor,
	}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
	r.Get("/", c.Root)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	ollamaStatus := "disconnected"
	if c.chatService.Ping(ctx.Context()) {
		ollamaStatus = "connected"
	}

	ocrStatus := "unavailable"
	if c.extractor.Available() {
		ocrStatus = "available"
	}

	return ctx.JSON(dto.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Services: map[string]string{
			"api":    "running",
			"ollama": ollamaStatus,
			"ocr":    ocrStatus,
		},
		Version: apiVersion,
	})
}

func (c *healthController) Root(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"message": "Smart Legal & Insurance Document Assistant API",
		"version": apiVersion,
		"health":  "/health",
	})
}
