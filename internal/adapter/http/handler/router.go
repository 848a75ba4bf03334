package handler

import (
	"cointracker/internal/adapter/http/middleware"
	redisStore "cointracker/internal/adapter/storage/redis"
	"cointracker/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	Scheduler      ports.SyncScheduler
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check verifying PostgreSQL and Redis
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	walletHandler := NewWalletHandler(deps.WalletSvc)
	syncHandler := NewSyncHandler(deps.Scheduler)

	wallets := v1.Group("/wallets")
	{
		wallets.POST("", rl("wallets_write"), walletHandler.Create)
		wallets.GET("", rl("read"), walletHandler.List)
		wallets.GET("/:address", rl("read"), walletHandler.Get)
		wallets.DELETE("/:address", rl("wallets_write"), walletHandler.Delete)
		wallets.GET("/:address/balance", rl("read"), walletHandler.GetBalance)
		wallets.GET("/:address/transactions", rl("read"), walletHandler.ListTransactions)
		wallets.POST("/:address/sync", rl("sync"), syncHandler.StartSync)
	}

	jobs := v1.Group("/jobs")
	{
		jobs.GET("/:id", rl("read"), syncHandler.GetJob)
	}

	return r
}
