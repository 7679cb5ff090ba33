package controller

import (
	"legal-assistant-be/internal/pkg/serverutils"
	"legal-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const sessionHeader = "X-Session-ID"

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessionService service.ISessionService
}

func NewSessionController(sessionService service.ISessionService) ISessionController {
	return &sessionController{
		sessionService: sessionService,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	r.Post("/session", c.Create)
	r.Get("/session/:id", c.Show)
	r.Delete("/session/:id", c.Delete)
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	res, err := c.sessionService.CreateSession(ctx.Context())
	if err != nil {
		return err
	}

	ctx.Set(sessionHeader, res.SessionId)
	return ctx.JSON(res)
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("id")

	info, found := c.sessionService.GetSessionInfo(ctx.Context(), sessionId)
	if !found {
		return serverutils.NotFound("Session not found")
	}

	ctx.Set(sessionHeader, sessionId)
	return ctx.JSON(info)
}

func (c *sessionController) Delete(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("id")

	if deleted := c.sessionService.DeleteSession(ctx.Context(), sessionId); !deleted {
		return serverutils.NotFound("Session not found")
	}

	return ctx.JSON(fiber.Map{"message": "Session deleted successfully"})
}
