package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"pix-reconciler/internal/core/domain"
	"pix-reconciler/internal/core/ports"

	"github.com/rs/zerolog"
)

// EventPublisher fans stored events out to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, event domain.PaymentEvent)
}

// chargePayload is the subset of a provider notification's data object we record.
// Alternate keys cover older payload shapes.
type chargePayload struct {
	ID       string           `json:"id"`
	ChargeID string           `json:"chargeId"`
	PixID    string           `json:"pix_id"`
	Amount   json.Number      `json:"amount"`
	Customer *customerPayload `json:"customer"`
}

type customerPayload struct {
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	Cellphone  string           `json:"cellphone"`
	Phone      string           `json:"phone"`
	TaxID      string           `json:"taxId"`
	TaxIDSnake string           `json:"tax_id"`
	Metadata   *customerPayload `json:"metadata"`
}

func (c *customerPayload) toDomain() domain.Customer {
	if c == nil {
		return domain.Customer{}
	}
	out := domain.Customer{
		Name:  c.Name,
		Email: c.Email,
		Phone: firstNonEmpty(c.Cellphone, c.Phone),
		TaxID: firstNonEmpty(c.TaxID, c.TaxIDSnake),
	}
	if c.Metadata != nil {
		meta := c.Metadata.toDomain()
		out.Name = firstNonEmpty(out.Name, meta.Name)
		out.Email = firstNonEmpty(out.Email, meta.Email)
		out.Phone = firstNonEmpty(out.Phone, meta.Phone)
		out.TaxID = firstNonEmpty(out.TaxID, meta.TaxID)
	}
	return out
}

// notificationRouter implements ports.NotificationRouter.
type notificationRouter struct {
	eventLog  ports.EventLog
	publisher EventPublisher
	log       zerolog.Logger
}

// NewNotificationRouter creates a router appending to eventLog.
// publisher may be nil.
func NewNotificationRouter(eventLog ports.EventLog, publisher EventPublisher, log zerolog.Logger) ports.NotificationRouter {
	return &notificationRouter{
		eventLog:  eventLog,
		publisher: publisher,
		log:       log,
	}
}

// Route records a recognized notification. Unrecognized and malformed
// notifications are reported in the outcome and never reach the log.
func (r *notificationRouter) Route(ctx context.Context, eventType string, data json.RawMessage) (ports.RoutingOutcome, error) {
	status, ok := domain.StatusForEventType(eventType)
	if !ok {
		r.log.Warn().Str("event_type", eventType).Msg("unrecognized webhook event")
		return ports.RoutingOutcome{Kind: ports.OutcomeUnrecognized, EventType: eventType}, nil
	}

	event, reason := normalize(status, data)
	if reason != "" {
		r.log.Warn().Str("event_type", eventType).Str("reason", reason).Msg("malformed webhook payload")
		return ports.RoutingOutcome{Kind: ports.OutcomeMalformedPayload, EventType: eventType, Reason: reason}, nil
	}

	if err := r.eventLog.Append(ctx, event); err != nil {
		r.log.Error().Err(err).Str("event_type", eventType).Str("charge_id", event.ChargeID).Msg("failed to append payment event")
		return ports.RoutingOutcome{}, err
	}

	r.log.Info().
		Str("event_type", eventType).
		Str("charge_id", event.ChargeID).
		Str("status", string(event.Status)).
		Int64("amount", event.AmountMinorUnits).
		Msg("payment event recorded")

	if r.publisher != nil {
		r.publisher.Publish(ctx, eventType, *event)
	}

	return ports.RoutingOutcome{Kind: ports.OutcomeHandled, EventType: eventType, Event: event}, nil
}

// normalize builds the event from the data object, returning a reason when it cannot.
func normalize(status domain.ChargeStatus, data json.RawMessage) (*domain.PaymentEvent, string) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, "data must be a JSON object"
	}

	var p chargePayload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, "data fields have unexpected types"
	}

	var amount int64
	if p.Amount != "" {
		n, err := p.Amount.Int64()
		if err != nil {
			return nil, "amount must be an integer number of cents"
		}
		amount = n
	}

	event, err := domain.NewPaymentEvent(
		firstNonEmpty(p.ID, p.ChargeID, p.PixID),
		status,
		amount,
		p.Customer.toDomain(),
		json.RawMessage(trimmed),
	)
	if err != nil {
		return nil, strings.TrimPrefix(err.Error(), domain.ErrInvalidEvent.Error()+": ")
	}
	return event, ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
