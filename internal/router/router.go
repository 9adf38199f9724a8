package router

import (
	"github.com/eaglebank/ledger/internal/handler"
	"github.com/eaglebank/ledger/shared/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Options struct {
	APIKey     string
	APIKeyHash string
	Limiter    *middleware.Limiter
	Logger     *zap.Logger
}

// SetupRouter mounts the public probes and the key-protected account routes.
func SetupRouter(h *handler.LedgerHandler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceID())
	r.Use(middleware.LoggingMiddleware(opts.Logger))
	r.Use(middleware.Metrics())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", middleware.APIKeyHeader, middleware.HeaderTraceID},
		ExposeHeaders:    []string{middleware.HeaderTraceID},
		AllowCredentials: false,
	}))
	r.Use(middleware.RateLimit(opts.Limiter))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	accounts := r.Group("/accounts", middleware.APIKeyAuth(opts.APIKey, opts.APIKeyHash))
	{
		accounts.POST("", h.CreateAccount)
		accounts.POST("/:id/deposit", h.Deposit)
		accounts.POST("/:id/withdraw", h.Withdraw)
		accounts.GET("/:id/balance", h.GetBalance)
		accounts.GET("/:id/transactions", h.GetTransactions)
	}

	return r
}
