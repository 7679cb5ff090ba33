package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/pkg/logger"
	"legal-assistant-be/internal/pkg/serverutils"
	"legal-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService    service.IChatService
	sessionService service.ISessionService
	streamTimeout  time.Duration
	logger         logger.ILogger
}

func NewChatController(
	chatService service.IChatService,
	sessionService service.ISessionService,
	streamTimeout time.Duration,
	sysLogger logger.ILogger,
) IChatController {
	return &chatController{
		chatService:    chatService,
		sessionService: sessionService,
		streamTimeout:  streamTimeout,
		logger:         sysLogger,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	r.Post("/chat", c.Chat)
}

// Chat answers one conversational turn as a line-oriented event stream:
// "data: {json}\n\n" frames carrying content deltas, then a done or error frame.
func (c *chatController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return serverutils.BadRequest("invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	sessionId, err := c.sessionService.GetOrCreateSession(ctx.Context(), ctx.Get(sessionHeader))
	if err != nil {
		return fmt.Errorf("resolve session: %w", err)
	}

	c.logger.Info("chat", "Chat request", map[string]interface{}{
		"session_id": sessionId,
		"length":     len(req.Message),
	})

	ctx.Set(sessionHeader, sessionId)
	ctx.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set("Connection", "keep-alive")

	// The fiber context is dead once this handler returns; everything the
	// stream writer needs is captured by value here.
	chatSvc := c.chatService
	sysLogger := c.logger
	timeout := c.streamTimeout
	request := req

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		streamCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		emit := func(chunk dto.StreamChunk) error {
			payload, err := json.Marshal(chunk)
			if err != nil {
				return fmt.Errorf("marshal frame: %w", err)
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return err
			}
			// Flush per frame so the client renders token-by-token.
			return w.Flush()
		}

		if err := chatSvc.StreamChat(streamCtx, sessionId, &request, emit); err != nil {
			// Emit failures mean the client hung up; nothing left to send.
			sysLogger.Warn("chat", "Stream aborted", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
		}
	}))

	return nil
}
