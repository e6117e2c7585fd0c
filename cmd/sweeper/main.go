package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nvkv/botfleet/internal/billing"
	"github.com/nvkv/botfleet/internal/cache"
	"github.com/nvkv/botfleet/internal/config"
	"github.com/nvkv/botfleet/internal/credstore"
	"github.com/nvkv/botfleet/internal/metrics"
	"github.com/nvkv/botfleet/internal/notify"
	"github.com/nvkv/botfleet/internal/runtime"
	"github.com/nvkv/botfleet/internal/store"
	"github.com/nvkv/botfleet/internal/sweep"
	"github.com/nvkv/botfleet/pkg/telegram"
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

	// Redis lease keeps two sweeper processes from double-reclaiming
	var locker sweep.Locker
	if cfg.Redis.URL != "" {
		redisCache := cache.NewClient(cfg.Redis.URL)
		defer redisCache.Close()
		locker = redisCache
	}

	collector := metrics.NewCollector()

	creds := credstore.NewStore(cfg.Fleet.BotsDir)
	backend := runtime.NewDockerBackend(cfg.Fleet.DockerBinary, cfg.Fleet.OpsPerSecond, logger)

	var gateway billing.PaymentGateway
	if cfg.Billing.BaseURL != "" {
		gateway = billing.NewClient(cfg.Billing.BaseURL, cfg.Billing.ShopID, cfg.Billing.SecretKey, cfg.Billing.ReturnURL)
	}
	billingService := billing.NewService(gateway, subscriptions, collector, logger)

	notifier := notify.NewNotifier(creds, billingService, telegram.NewClient(cfg.Telegram.APIBaseURL), logger)

	sweeper := sweep.NewSweeper(
		subscriptions, backend, notifier, locker,
		cfg.Sweep.GracePeriod, cfg.Sweep.LeaseTTL,
		collector, logger,
	)

	ctx, cancel := context.WithCancel(context.Background())

	ticker := time.NewTicker(cfg.Sweep.Interval)
	defer ticker.Stop()

	go func() {
		runSweep(ctx, sweeper)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runSweep(ctx, sweeper)
			}
		}
	}()

	log.Println("Sweeper started")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down sweeper...")
	cancel()
	log.Println("Sweeper stopped")
}

func runSweep(ctx context.Context, sweeper *sweep.Sweeper) {
	stats, err := sweeper.RunOnce(ctx)
	if err != nil {
		if err == sweep.ErrSweepInProgress {
			log.Println("Previous sweep still running, skipping tick")
			return
		}
		log.Printf("Sweep failed: %v", err)
		return
	}

	log.Printf("Swept %d subscriptions, reclaimed %d", stats.Evaluated, stats.Reclaimed)
}
