package service

import (
	"context"
	"fmt"
	"time"

	"pix-reconciler/internal/core/domain"
	"pix-reconciler/internal/core/ports"

	"github.com/rs/zerolog"
)

var recordedEventTypes = []string{
	domain.EventChargePaid,
	domain.EventChargeExpired,
	domain.EventChargeCancelled,
}

// RegisterStatusCacheSubscriber keeps cache in step with every recorded event.
func RegisterStatusCacheSubscriber(bus *EventBus, cache ports.StatusCache, ttl time.Duration, log zerolog.Logger) error {
	update := func(ctx context.Context, ev domain.PaymentEvent) error {
		if err := cache.Set(ctx, ev.ChargeID, ev.Status, ttl); err != nil {
			log.Warn().Err(err).Str("charge_id", ev.ChargeID).Msg("status cache update failed")
			return err
		}
		return nil
	}

	for _, eventType := range recordedEventTypes {
		if err := bus.Subscribe(eventType, update); err != nil {
			return fmt.Errorf("subscribing status cache to %s: %w", eventType, err)
		}
	}
	return nil
}

// RegisterConfirmationSubscriber logs a payment confirmation for every paid charge.
// Outbound customer messaging plugs in here.
func RegisterConfirmationSubscriber(bus *EventBus, log zerolog.Logger) error {
	return bus.Subscribe(domain.EventChargePaid, func(_ context.Context, ev domain.PaymentEvent) error {
		log.Info().
			Str("charge_id", ev.ChargeID).
			Str("customer", ev.Customer.DisplayName()).
			Str("email", ev.Customer.Email).
			Str("tax_id", ev.Customer.MaskedTaxID()).
			Str("amount", domain.FormatBRL(ev.AmountMinorUnits)).
			Msg("payment confirmed")
		return nil
	})
}

// RegisterForwardSubscriber relays every recorded event through fwd.
func RegisterForwardSubscriber(bus *EventBus, fwd *WebhookForwarder) error {
	for _, eventType := range recordedEventTypes {
		err := bus.Subscribe(eventType, func(ctx context.Context, ev domain.PaymentEvent) error {
			return fwd.Forward(ctx, eventType, ev)
		})
		if err != nil {
			return fmt.Errorf("subscribing forwarder to %s: %w", eventType, err)
		}
	}
	return nil
}
