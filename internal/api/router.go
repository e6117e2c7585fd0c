package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nvkv/botfleet/internal/api/handlers"
	"github.com/nvkv/botfleet/internal/api/middleware"
	"github.com/nvkv/botfleet/internal/config"
)

type Server struct {
	Config *config.Config
	Router *gin.Engine
}

func NewServer(cfg *config.Config, h *handlers.Handler, logger *zap.Logger) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())

	server := &Server{
		Config: cfg,
		Router: router,
	}

	server.setupRoutes(h)
	return server
}

func (s *Server) setupRoutes(h *handlers.Handler) {
	// Health check
	s.Router.GET("/health", handlers.HealthCheck)
	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Payment gateway callbacks
	webhooks := s.Router.Group("/webhooks")
	webhooks.Use(middleware.WebhookAuth(s.Config.Billing.WebhookSecret))
	{
		webhooks.POST("/payment", h.PaymentWebhook)
	}

	// API routes (protected)
	api := s.Router.Group("/api/v1")
	api.Use(middleware.AuthRequired(s.Config.Auth.JWTSecret))
	{
		api.POST("/bots", h.CreateBot)
		api.GET("/subscriptions/:tenant_id", h.GetSubscription)
		api.POST("/subscriptions/:tenant_id/payments", h.CreatePaymentLink)
	}
}
