package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/NicoEspin/chatbot-portfolio/config"
	"github.com/NicoEspin/chatbot-portfolio/knowledge"
	"github.com/NicoEspin/chatbot-portfolio/web"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	corpus, err := knowledge.Load(cfg.KnowledgePath)
	if err != nil {
		logger.Fatal("Failed to load knowledge corpus", zap.Error(err))
	}
	logger.Info("Knowledge corpus loaded", zap.Int("records", len(corpus)))

	webServer := web.NewServer(cfg, corpus, logger)

	// Create context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	port := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting portfolio chat API", zap.String("port", port))
	if err := webServer.Start(ctx, port); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}
