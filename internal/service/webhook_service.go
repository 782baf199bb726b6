package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pix-reconciler/internal/core/domain"
	"pix-reconciler/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/zoobzio/clockz"
)

// ForwardPayload is the JSON body posted to the downstream system.
type ForwardPayload struct {
	EventType string      `json:"event_type"`
	Data      ForwardData `json:"data"`
}

// ForwardData carries the recorded event.
type ForwardData struct {
	ChargeID   string          `json:"charge_id"`
	Status     string          `json:"status"`
	Amount     int64           `json:"amount"`
	Customer   domain.Customer `json:"customer"`
	RecordedAt int64           `json:"recorded_at"`
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookForwarderConfig configures outbound delivery.
type WebhookForwarderConfig struct {
	URL             string
	Secret          string
	SignatureHeader string
	MaxAttempts     int
	RetryBackoff    time.Duration
}

// WebhookForwarder relays recorded payment events to a downstream URL,
// signing each body with the same HMAC scheme accepted on the way in.
type WebhookForwarder struct {
	cfg        WebhookForwarderConfig
	signer     ports.SignatureVerifier
	httpClient HTTPClient
	clock      clockz.Clock
	log        zerolog.Logger
}

// NewWebhookForwarder creates a forwarder. httpClient may be nil.
func NewWebhookForwarder(cfg WebhookForwarderConfig, signer ports.SignatureVerifier, httpClient HTTPClient, clock clockz.Clock, log zerolog.Logger) *WebhookForwarder {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.SignatureHeader == "" {
		cfg.SignatureHeader = "X-Webhook-Signature"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if clock == nil {
		clock = clockz.RealClock
	}
	return &WebhookForwarder{
		cfg:        cfg,
		signer:     signer,
		httpClient: httpClient,
		clock:      clock,
		log:        log,
	}
}

// Forward delivers one event, retrying with exponential backoff until a 2xx
// answer, the attempt budget or ctx runs out.
func (f *WebhookForwarder) Forward(ctx context.Context, eventType string, ev domain.PaymentEvent) error {
	body, err := json.Marshal(ForwardPayload{
		EventType: eventType,
		Data: ForwardData{
			ChargeID:   ev.ChargeID,
			Status:     string(ev.Status),
			Amount:     ev.AmountMinorUnits,
			Customer:   ev.Customer,
			RecordedAt: ev.Timestamp.Unix(),
		},
	})
	if err != nil {
		return fmt.Errorf("encoding forward payload: %w", err)
	}
	signature := f.signer.Sign(f.cfg.Secret, body)

	log := f.log.With().Str("charge_id", ev.ChargeID).Str("event_type", eventType).Logger()
	backoff := f.cfg.RetryBackoff

	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("forwarding cancelled after %d attempts: %w", attempt-1, ctx.Err())
			case <-f.clock.After(backoff):
			}
			backoff *= 2
		}

		lastErr = f.deliver(ctx, body, signature)
		if lastErr == nil {
			log.Info().Int("attempt", attempt).Msg("forward: delivered")
			return nil
		}
		log.Warn().Err(lastErr).Int("attempt", attempt).Msg("forward: delivery failed")
	}

	log.Error().Err(lastErr).Msg("forward: all attempts exhausted")
	return lastErr
}

func (f *WebhookForwarder) deliver(ctx context.Context, body []byte, signature string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(f.cfg.SignatureHeader, signature)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("downstream answered HTTP %d", resp.StatusCode)
	}
	return nil
}
