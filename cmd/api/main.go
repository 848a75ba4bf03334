package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cointracker/config"
	httpHandler "cointracker/internal/adapter/http/handler"
	"cointracker/internal/adapter/provider/blockchair"
	pgStorage "cointracker/internal/adapter/storage/postgres"
	redisStorage "cointracker/internal/adapter/storage/redis"
	"cointracker/internal/core/ports"
	"cointracker/internal/service"
	"cointracker/pkg/logger"

	"golang.org/x/time/rate"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting CoinTracker")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	jobRepo := pgStorage.NewSyncJobRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)
	balanceCache := redisStorage.NewBalanceCache(rdb)

	// Provider client behind the process-wide outbound limiter. Every
	// outbound call, from every worker, shares this budget.
	limiter := rate.NewLimiter(rate.Limit(cfg.Provider.RatePerSecond), cfg.Provider.Burst)
	provider := blockchair.New(blockchair.Config{
		BaseURL:    cfg.Provider.BaseURL,
		Timeout:    cfg.Provider.RequestTimeout,
		MaxRetries: cfg.Provider.MaxRetries,
		PageSize:   cfg.Provider.PageSize,
	}, limiter, log)

	// Initialize business services
	reconciler := service.NewReconciler(txRepo, walletRepo, transactor, log)
	syncSvc := service.NewSyncService(
		walletRepo,
		txRepo,
		jobRepo,
		provider,
		reconciler,
		cfg.Sync.JobTimeout,
		cfg.Provider.MaxTransactions,
		log,
	)
	walletSvc := service.NewWalletService(walletRepo, txRepo, provider, balanceCache, log)

	// Worker pool for background sync jobs
	scheduler := service.NewScheduler(syncSvc, jobRepo, cfg.Sync.Workers, cfg.Sync.QueueSize, log)
	scheduler.Start()

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		Scheduler:      scheduler,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop accepting sync work and drain in-flight jobs
	scheduler.Stop()

	log.Info().Msg("Server exited")
}
