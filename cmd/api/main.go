package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/esyasil/clearroom/internal/ai"
	"github.com/esyasil/clearroom/internal/analytics"
	"github.com/esyasil/clearroom/internal/batch"
	"github.com/esyasil/clearroom/internal/billing"
	"github.com/esyasil/clearroom/internal/cache"
	"github.com/esyasil/clearroom/internal/config"
	"github.com/esyasil/clearroom/internal/database"
	"github.com/esyasil/clearroom/internal/entitlement"
	"github.com/esyasil/clearroom/internal/logging"
	"github.com/esyasil/clearroom/internal/metrics"
	"github.com/esyasil/clearroom/internal/middleware"
	"github.com/esyasil/clearroom/internal/storage"
	"github.com/esyasil/clearroom/internal/tracing"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Tracing
	_, closer, err := tracing.Init(cfg.Tracing)
	if err != nil {
		logger.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer closer.Close()

	// Database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(context.Background()); err != nil {
		logger.Fatalf("Failed to ensure schema: %v", err)
	}

	repo := database.NewRepository(db)

	// Cache
	accountCache, err := cache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer accountCache.Close()

	// Result storage (optional)
	var results batch.ResultStore
	if cfg.Storage.Enabled {
		store, err := storage.New(cfg.Storage)
		if err != nil {
			logger.Fatalf("Failed to initialize storage: %v", err)
		}
		results = store
	}

	// Model dispatch client
	dispatcher, err := ai.NewClient(context.Background(), cfg.AI)
	if err != nil {
		logger.Fatalf("Failed to create AI client: %v", err)
	}

	// Services
	ledger := entitlement.NewLedger(repo, accountCache, logger)
	orchestrator := batch.NewOrchestrator(dispatcher, ledger, repo, results, logger, cfg.Batch.MaxImages)
	billingSvc := billing.NewService(cfg.Stripe, ledger, logger)

	auth := middleware.NewAuthenticator(cfg.Auth)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	api := &API{
		processor: orchestrator,
		accounts:  ledger,
		billing:   billingSvc,
		stats:     repo,
		usage:     analytics.NewService(repo),
		cache:     accountCache,
		logger:    logger,
	}

	router := setupRouter(api, auth, limiter, logger, cfg.Server.MaxBodyBytes)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:           addr,
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	// Metrics server on its own listener
	var metricsSrv *metrics.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.NewServer(cfg.Metrics.Port, logger)
		go func() {
			if err := metricsSrv.Start(); err != nil {
				logger.Errorf("Metrics server error: %v", err)
			}
		}()
	}

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logger.Errorf("Metrics server shutdown error: %v", err)
		}
	}

	logger.Info("Server stopped")
}
