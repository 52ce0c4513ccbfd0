package web

import (
	"context"
	"net/http"
	"time"

	"github.com/NicoEspin/chatbot-portfolio/config"
	"github.com/NicoEspin/chatbot-portfolio/knowledge"
	"github.com/NicoEspin/chatbot-portfolio/llmclient"
	"github.com/NicoEspin/chatbot-portfolio/rag"
	"github.com/NicoEspin/chatbot-portfolio/web/handlers"
	"github.com/NicoEspin/chatbot-portfolio/web/middleware"
	"github.com/NicoEspin/chatbot-portfolio/web/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router      *gin.Engine
	logger      *zap.Logger
	config      *config.Config
	rateLimiter *middleware.ClientRateLimiter
}

func NewServer(cfg *config.Config, corpus []knowledge.Record, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Authorization", "Accept"},
		MaxAge:       12 * time.Hour,
	}))

	retriever := rag.NewRetriever(corpus, cfg.RetrieveCacheSize, logger)
	llm := llmclient.New(cfg, logger)
	relay := services.NewRelayService(cfg, llm, logger)
	chatHandler := handlers.NewChatHandler(cfg, retriever, llm, relay, logger)

	rateLimiter := middleware.NewClientRateLimiter(middleware.RateLimiterConfig{
		MessagesPerMinute: cfg.RateLimitPerMinute,
		BurstSize:         cfg.RateLimitBurstSize,
	}, logger)

	server := &Server{
		router:      router,
		logger:      logger,
		config:      cfg,
		rateLimiter: rateLimiter,
	}

	api := router.Group("/api", rateLimiter.Middleware())
	api.POST("/chat", chatHandler.Send)
	api.POST("/chat/stream", chatHandler.Stream)

	router.GET("/health", chatHandler.Health)

	return server
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server failed to start", zap.Error(err))
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()

	s.logger.Info("Shutting down web server")
	s.rateLimiter.Stop()
	return srv.Shutdown(context.Background())
}
