package handler

import (
	"pix-reconciler/internal/adapter/http/middleware"
	redisStore "pix-reconciler/internal/adapter/storage/redis"
	"pix-reconciler/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Webhook            WebhookConfig
	Debug              bool  // registers POST /webhook/test
	MaxBodyBytes       int64 // 0 = 1 MB
	NotificationRouter ports.NotificationRouter
	SigSvc             ports.SignatureVerifier
	EventStats         EventStats                 // nil = no event counters on /webhook/status
	ChargeSvc          ports.ChargeService        // nil = charge routes disabled
	ReportSvc          ports.ReportService        // nil = reports API disabled
	TokenSvc           ports.TokenService         // required with ReportSvc
	RateLimitStore     *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers     []ports.HealthChecker
	Logger             zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
// The caller selects the gin mode.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBody))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

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

	audit := middleware.AuditLog(deps.Logger)

	// --- Provider notifications (signature verified in the handler) ---
	webhookHandler := NewWebhookHandler(deps.Webhook, deps.NotificationRouter, deps.SigSvc, deps.EventStats, deps.Logger)
	webhook := r.Group("/webhook")
	{
		webhook.GET("/status", webhookHandler.Status)
		if deps.Debug {
			webhook.POST("/test", rl("webhook"), audit, webhookHandler.Test)
		}
		webhook.POST("/:provider", rl("webhook"), webhookHandler.Receive)
	}

	v1 := r.Group("/api/v1")

	if deps.ChargeSvc != nil {
		chargeHandler := NewChargeHandler(deps.ChargeSvc)
		charges := v1.Group("/charges", audit)
		{
			charges.POST("", rl("charges"), chargeHandler.Create)
			charges.GET("/:id", rl("charges"), chargeHandler.Get)
			charges.POST("/:id/simulate", rl("charges_simulate"), chargeHandler.Simulate)
		}
	}

	// --- JWT-authenticated routes (operators) ---
	if deps.ReportSvc != nil && deps.TokenSvc != nil {
		jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
		reportHandler := NewReportHandler(deps.ReportSvc)
		reports := v1.Group("/reports", jwtAuth, rl("reports"))
		{
			reports.GET("/summary", reportHandler.Summary)
			reports.GET("/product", reportHandler.Product)
			reports.GET("/transactions", reportHandler.Transactions)
		}
	}

	return r
}
