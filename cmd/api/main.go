package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pix-reconciler/config"
	httpHandler "pix-reconciler/internal/adapter/http/handler"
	"pix-reconciler/internal/adapter/provider"
	"pix-reconciler/internal/adapter/storage/eventlog"
	redisStorage "pix-reconciler/internal/adapter/storage/redis"
	"pix-reconciler/internal/core/ports"
	"pix-reconciler/internal/service"
	"pix-reconciler/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/zoobzio/clockz"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("PIX_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting PIX reconciler")

	ctx := context.Background()
	loc, _ := cfg.Report.Location()

	// Event log
	fileLog := eventlog.New(cfg.EventLog.Path, logger.Component(log, "eventlog"))
	healthCheckers := []ports.HealthChecker{fileLog}

	// Optional Redis: status cache and rate limiting
	var (
		statusCache    ports.StatusCache
		rateLimitStore *redisStorage.RateLimitStore
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()

		statusCache = redisStorage.NewStatusCache(rdb)
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Redis disabled: no status cache, no rate limiting")
	}

	sigSvc := service.NewHMACSignatureService()

	// Event bus and subscribers
	bus := service.NewEventBus(service.EventBusConfig{
		Workers:   cfg.Events.Workers,
		QueueSize: cfg.Events.QueueSize,
		Timeout:   cfg.Events.Timeout,
	}, logger.Component(log, "events"))

	if statusCache != nil {
		if err := service.RegisterStatusCacheSubscriber(bus, statusCache, cfg.Charge.StatusTTL, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to register status cache subscriber")
		}
	}
	if err := service.RegisterConfirmationSubscriber(bus, logger.Component(log, "confirmation")); err != nil {
		log.Fatal().Err(err).Msg("Failed to register confirmation subscriber")
	}
	if cfg.Forward.Enabled {
		fwd := service.NewWebhookForwarder(service.WebhookForwarderConfig{
			URL:             cfg.Forward.URL,
			Secret:          cfg.Forward.Secret,
			SignatureHeader: cfg.Forward.SignatureHeader,
			MaxAttempts:     cfg.Forward.MaxAttempts,
			RetryBackoff:    cfg.Forward.RetryBackoff,
		}, sigSvc, nil, clockz.RealClock, logger.Component(log, "forwarder"))
		if err := service.RegisterForwardSubscriber(bus, fwd); err != nil {
			log.Fatal().Err(err).Msg("Failed to register forward subscriber")
		}
		log.Info().Str("url", cfg.Forward.URL).Msg("Event forwarding enabled")
	}

	// Core services
	notificationRouter := service.NewNotificationRouter(fileLog, bus, logger.Component(log, "router"))

	var chargeSvc ports.ChargeService
	if cfg.Provider.APIKey != "" {
		providerClient := provider.NewClient(cfg.Provider, nil, logger.Component(log, "provider"))
		chargeSvc = service.NewChargeService(providerClient, statusCache, chargeDefaults(cfg.Charge), log)
	} else {
		log.Warn().Msg("provider.api_key not set, charge routes disabled")
	}

	var (
		reportSvc ports.ReportService
		tokenSvc  ports.TokenService
	)
	if cfg.JWT.Secret != "" {
		agg := service.NewAggregator(cfg.Charge.ProductName, cfg.Charge.ProductPrice, loc, clockz.RealClock)
		reportSvc = service.NewReportService(fileLog, agg, service.NewExporter(log), logger.Component(log, "reports"))
		tokenSvc = service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	} else {
		log.Warn().Msg("jwt.secret not set, reports API disabled")
	}

	if !cfg.Webhook.VerifySignature {
		log.Warn().Msg("Webhook signature verification is DISABLED")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Webhook: httpHandler.WebhookConfig{
			Secret:             cfg.Webhook.Secret,
			VerifySignature:    cfg.Webhook.VerifySignature,
			SignatureHeader:    cfg.Webhook.SignatureHeader,
			Providers:          cfg.Webhook.Providers,
			UnrecognizedStatus: cfg.Webhook.UnrecognizedStatus,
			ServiceName:        cfg.Charge.ProductName + " Webhook",
			ProductPrice:       cfg.Charge.ProductPrice,
		},
		Debug:              cfg.Server.Mode == gin.DebugMode,
		MaxBodyBytes:       cfg.Server.MaxBodyBytes,
		NotificationRouter: notificationRouter,
		SigSvc:             sigSvc,
		EventStats:         bus,
		ChargeSvc:          chargeSvc,
		ReportSvc:          reportSvc,
		TokenSvc:           tokenSvc,
		RateLimitStore:     rateLimitStore,
		HealthCheckers:     healthCheckers,
		Logger:             log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Str("eventlog", fileLog.Path()).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	// Requests are done; let queued subscriber deliveries finish.
	if err := bus.Close(); err != nil {
		log.Error().Err(err).Msg("Event bus close failed")
	}

	log.Info().Msg("Server exited")
}

func chargeDefaults(c config.ChargeConfig) service.ChargeDefaults {
	return service.ChargeDefaults{
		Amount:           c.ProductPrice,
		Description:      c.Description,
		ExpiresIn:        c.ExpiresIn,
		ExternalIDPrefix: c.ExternalIDPrefix,
		StatusTTL:        c.StatusTTL,
	}
}
