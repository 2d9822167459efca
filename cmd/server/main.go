package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/sprint-ai/internal/app"
	"github.com/ahmednasr/sprint-ai/internal/config"
	"github.com/ahmednasr/sprint-ai/internal/handler"
	"github.com/ahmednasr/sprint-ai/internal/middleware"
)

// main is the single entry‑point for the REST API.
func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("Configuration loaded:")
	log.Printf("  - Database: %s", cfg.DBPath)
	log.Printf("  - Chunk store: %s", cfg.ChunkStore)
	log.Printf("  - Embeddings: %s (dim %d)", cfg.EmbeddingProvider, cfg.EmbeddingDim)
	log.Printf("  - LLM: %s", cfg.LLMProvider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open stores and providers, wire the pipeline
	a, err := app.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	// Create Fiber app
	srv := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Add middleware
	srv.Use(middleware.Logging()...)

	// Register routes
	handler.RegisterRoutes(srv, a.RAG, a.RAG, a.Projects)

	// Add health check
	handler.NewHealthHandler(a.DB, a.Mongo).Register(srv)

	go func() {
		<-ctx.Done()
		log.Printf("Shutting down")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := srv.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
