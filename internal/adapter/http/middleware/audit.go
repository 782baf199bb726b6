package middleware

import (
	"net/http"
	"time"

	"pix-reconciler/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Audit actions recorded for successful write operations.
const (
	AuditChargeCreate   = "charge.create"
	AuditChargeSimulate = "charge.simulate"
	AuditWebhookTest    = "webhook.test"
)

// AuditLog writes one audit entry per successful write operation on a
// known route. Entries go to a dedicated "audit" logger.
func AuditLog(log zerolog.Logger) gin.HandlerFunc {
	audit := log.With().Str("component", "audit").Logger()

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		action := auditAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		event := audit.Info().
			Str("action", action).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("ip", c.ClientIP()).
			Dur("latency", time.Since(start))
		if id := c.Param("id"); id != "" {
			event = event.Str("charge_id", id)
		}
		if subject := c.GetString(CtxSubject); subject != "" {
			event = event.Str("subject", subject)
		}
		if reqID := c.GetString(response.CtxRequestID); reqID != "" {
			event = event.Str("request_id", reqID)
		}
		event.Msg("audit")
	}
}

func auditAction(route, method string) string {
	if method != http.MethodPost {
		return ""
	}
	switch route {
	case "/api/v1/charges":
		return AuditChargeCreate
	case "/api/v1/charges/:id/simulate":
		return AuditChargeSimulate
	case "/webhook/test":
		return AuditWebhookTest
	}
	return ""
}
