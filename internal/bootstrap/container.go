package bootstrap

import (
	"context"
	"log"
	"time"

	"legal-assistant-be/internal/config"
	"legal-assistant-be/internal/controller"
	"legal-assistant-be/internal/pkg/logger"
	"legal-assistant-be/internal/repository/contract"
	"legal-assistant-be/internal/repository/memory"
	"legal-assistant-be/internal/repository/redisrepo"
	"legal-assistant-be/internal/service"
	"legal-assistant-be/pkg/llm/ollama"

	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	HealthController   controller.IHealthController
	SessionController  controller.ISessionController
	DocumentController controller.IDocumentController
	ChatController     controller.IChatController

	// Background Services (Exposed for main.go to run)
	SessionService service.ISessionService
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	sessionTimeout := time.Duration(cfg.Session.TimeoutSeconds) * time.Second
	ollamaTimeout := time.Duration(cfg.Ollama.TimeoutSeconds) * time.Second

	// 2. Session Storage
	var sessionRepo contract.ISessionRepository
	if cfg.Session.Store == "redis" {
		opt, err := redis.ParseURL(cfg.Session.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.Session.RedisURL}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to in-memory sessions", err)
			sessionRepo = memory.NewSessionRepository(sessionTimeout)
		} else {
			log.Println("[INFO] Using Session Store: REDIS")
			sessionRepo = redisrepo.NewSessionRepository(rdb, sessionTimeout)
		}
	} else {
		log.Println("[INFO] Using Session Store: MEMORY")
		sessionRepo = memory.NewSessionRepository(sessionTimeout)
	}

	// 3. Model Backend
	llmProvider := ollama.NewOllamaProvider(cfg.Ollama.BaseURL, cfg.Ollama.Model, ollamaTimeout)
	log.Printf("[INFO] Using LLM Provider: OLLAMA (%s)", cfg.Ollama.Model)

	// 4. Services
	extractor := service.NewPlainTextExtractor(sysLogger)
	sessionService := service.NewSessionService(sessionRepo, sessionTimeout, sysLogger)
	documentService := service.NewDocumentService(sessionRepo, extractor, cfg.Upload, sysLogger)
	chatService := service.NewChatService(llmProvider, documentService, sysLogger)

	// 5. Controllers
	return &Container{
		HealthController:   controller.NewHealthController(chatService, extractor),
		SessionController:  controller.NewSessionController(sessionService),
		DocumentController: controller.NewDocumentController(documentService, sessionService, sysLogger),
		ChatController:     controller.NewChatController(chatService, sessionService, ollamaTimeout, sysLogger),

		SessionService: sessionService,
	}
}
