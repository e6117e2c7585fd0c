package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nvkv/botfleet/internal/api"
	"github.com/nvkv/botfleet/internal/api/handlers"
	"github.com/nvkv/botfleet/internal/billing"
	"github.com/nvkv/botfleet/internal/cache"
	"github.com/nvkv/botfleet/internal/config"
	"github.com/nvkv/botfleet/internal/credstore"
	"github.com/nvkv/botfleet/internal/metrics"
	"github.com/nvkv/botfleet/internal/provision"
	"github.com/nvkv/botfleet/internal/runtime"
	"github.com/nvkv/botfleet/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	// Database
	db, err := store.NewConnection(cfg.Database.URL, cfg.Database.MaxConnections, cfg.Database.MaxIdleConns)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	subscriptions, err := store.NewStore(db)
	if err != nil {
		log.Fatal("Failed to initialize store:", err)
	}

	// Redis (optional)
	var redisCache *cache.Client
	if cfg.Redis.URL != "" {
		redisCache = cache.NewClient(cfg.Redis.URL)
		defer redisCache.Close()
	}

	collector := metrics.NewCollector()

	// Provisioning pipeline
	creds := credstore.NewStore(cfg.Fleet.BotsDir)
	backend := runtime.NewDockerBackend(cfg.Fleet.DockerBinary, cfg.Fleet.OpsPerSecond, logger)
	provisioner := provision.NewProvisioner(
		subscriptions, creds, backend,
		cfg.Fleet.TemplateDir, cfg.Fleet.BotsDir,
		collector, logger,
	)

	// Billing
	var gateway billing.PaymentGateway
	if cfg.Billing.BaseURL != "" {
		gateway = billing.NewClient(cfg.Billing.BaseURL, cfg.Billing.ShopID, cfg.Billing.SecretKey, cfg.Billing.ReturnURL)
	}
	billingService := billing.NewService(gateway, subscriptions, collector, logger)

	// API Server
	var subsCache handlers.SubscriptionCache
	if redisCache != nil {
		subsCache = redisCache
	}
	handler := handlers.NewHandler(provisioner, subscriptions, billingService, subsCache, logger)
	server := api.NewServer(cfg, handler, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.Router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	log.Printf("API server started on port %s", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
