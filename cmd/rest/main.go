package main

import (
	"context"
	"log"
	"time"

	"legal-assistant-be/internal/bootstrap"
	"legal-assistant-be/internal/config"
	"legal-assistant-be/internal/server"
	"legal-assistant-be/internal/tracer"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)

	// 3. Start Background Services
	go func() {
		log.Println("Background: Starting Session Janitor...")
		container.SessionService.RunJanitor(context.Background(), 5*time.Minute)
	}()

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}
