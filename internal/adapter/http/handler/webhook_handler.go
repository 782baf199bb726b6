package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"pix-reconciler/internal/adapter/http/dto"
	"pix-reconciler/internal/adapter/http/middleware"
	"pix-reconciler/internal/core/domain"
	"pix-reconciler/internal/core/ports"
	"pix-reconciler/pkg/apperror"
	"pix-reconciler/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/rs/zerolog"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
)

// WebhookConfig holds the inbound webhook settings.
type WebhookConfig struct {
	Secret          string
	VerifySignature bool
	SignatureHeader string
	Providers       []string
	// UnrecognizedStatus is 400 (reject) or 200 (acknowledge and ignore).
	UnrecognizedStatus int
	ServiceName        string
	ProductPrice       int64
}

// EventStats exposes event bus counters on the status endpoint.
type EventStats interface {
	Metrics() hookz.Metrics
}

// WebhookHandler receives provider notifications.
type WebhookHandler struct {
	cfg    WebhookConfig
	router ports.NotificationRouter
	sigSvc ports.SignatureVerifier
	stats  EventStats
	clock  clockz.Clock
	log    zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler. stats may be nil.
func NewWebhookHandler(cfg WebhookConfig, router ports.NotificationRouter, sigSvc ports.SignatureVerifier, stats EventStats, log zerolog.Logger) *WebhookHandler {
	if cfg.SignatureHeader == "" {
		cfg.SignatureHeader = "X-Webhook-Signature"
	}
	if cfg.UnrecognizedStatus == 0 {
		cfg.UnrecognizedStatus = http.StatusBadRequest
	}
	return &WebhookHandler{
		cfg:    cfg,
		router: router,
		sigSvc: sigSvc,
		stats:  stats,
		clock:  clockz.RealClock,
		log:    log,
	}
}

// Receive handles POST /webhook/:provider.
func (h *WebhookHandler) Receive(c *gin.Context) {
	provider := c.Param("provider")
	if !slices.Contains(h.cfg.Providers, provider) {
		response.Error(c, apperror.ErrNotFound("webhook provider"))
		return
	}
	log := h.log.With().Str("provider", provider).Str("client_ip", c.ClientIP()).Logger()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			response.Error(c, apperror.ErrBodyTooLarge())
			return
		}
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	if h.cfg.VerifySignature {
		if !h.sigSvc.Verify(h.cfg.Secret, body, c.GetHeader(h.cfg.SignatureHeader)) {
			log.Warn().Msg("webhook signature rejected")
			response.Error(c, apperror.ErrInvalidSignature())
			return
		}
	} else {
		log.Warn().Msg("webhook signature verification is disabled, accepting unsigned notification")
	}

	var req dto.WebhookNotification
	if err := json.Unmarshal(body, &req); err != nil {
		log.Warn().Err(err).Msg("webhook body is not valid JSON")
		response.Error(c, apperror.Validation("invalid JSON body"))
		return
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		response.Error(c, apperror.ErrMalformedPayload("missing event type"))
		return
	}

	h.route(c, log, req.Type, req.Data)
}

// Test handles POST /webhook/test: routes a synthetic charge.paid notification.
func (h *WebhookHandler) Test(c *gin.Context) {
	now := h.clock.Now()
	data, err := json.Marshal(map[string]any{
		"id":      fmt.Sprintf("test_charge_%d", now.Unix()),
		"amount":  h.cfg.ProductPrice,
		"status":  string(domain.ChargeStatusPaid),
		"devMode": true,
		"customer": map[string]string{
			"name":      "Cliente Teste",
			"email":     "teste@example.com",
			"cellphone": "+55 11 99999-9999",
		},
		"createdAt": now.UTC().Format("2006-01-02T15:04:05.000Z"),
	})
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	log := h.log.With().Str("provider", "test").Str("client_ip", c.ClientIP()).Logger()
	h.route(c, log, domain.EventChargePaid, data)
}

// Status handles GET /webhook/status.
func (h *WebhookHandler) Status(c *gin.Context) {
	body := gin.H{
		"status":    "active",
		"service":   h.cfg.ServiceName,
		"timestamp": h.clock.Now().UTC().Format(time.RFC3339),
	}
	if h.stats != nil {
		m := h.stats.Metrics()
		body["events"] = gin.H{
			"queue_depth":      m.QueueDepth,
			"queue_capacity":   m.QueueCapacity,
			"processed":        m.TasksProcessed,
			"failed":           m.TasksFailed,
			"rejected":         m.TasksRejected,
			"expired":          m.TasksExpired,
			"registered_hooks": m.RegisteredHooks,
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h *WebhookHandler) route(c *gin.Context, log zerolog.Logger, eventType string, data json.RawMessage) {
	outcome, err := h.router.Route(c.Request.Context(), eventType, data)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("webhook could not be recorded")
		response.Error(c, err)
		return
	}

	switch outcome.Kind {
	case ports.OutcomeHandled:
		response.OK(c, dto.WebhookAck{
			Status:    "handled",
			EventType: eventType,
			ChargeID:  outcome.Event.ChargeID,
		})
	case ports.OutcomeUnrecognized:
		if h.cfg.UnrecognizedStatus == http.StatusOK {
			log.Warn().Str("event_type", eventType).Msg("acknowledging unrecognized webhook event type")
			response.OK(c, dto.WebhookAck{Status: "ignored", EventType: eventType})
			return
		}
		response.Error(c, apperror.ErrUnrecognizedEvent(eventType, h.cfg.UnrecognizedStatus))
	case ports.OutcomeMalformedPayload:
		response.Error(c, apperror.ErrMalformedPayload(outcome.Reason))
	default:
		response.Error(c, apperror.InternalError(fmt.Errorf("unknown routing outcome %q", outcome.Kind)))
	}
}
