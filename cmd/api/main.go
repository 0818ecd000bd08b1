package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expansion-evaluator/api"
	"expansion-evaluator/internal/app"
	"expansion-evaluator/internal/config"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if envPort := os.Getenv("API_PORT"); envPort != "" {
		cfg.Server.Port = envPort
	}

	logger := app.NewLogger(cfg.LogLevel, false)

	services, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialise services: %v", err)
	}
	services.Start()

	handler := api.NewHandler(services.Orchestrator, services.Evaluator, services.Background, cfg, logger)
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.SetupRouter(cfg, handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting API server on port %s", cfg.Server.Port)
		logger.Info("Available endpoints:")
		logger.Info("  GET  /health                    - Health check")
		logger.Info("  POST /api/v1/extract            - Extract products from a store")
		logger.Info("  POST /api/v1/evaluate           - Evaluate an expansion store")
		logger.Info("  GET  /api/v1/background/status  - Background worker status")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("API server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down API server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Background.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown: %v", err)
	}
	services.Close()
}
