package service

import (
	"context"
	"time"

	"pix-reconciler/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/zoobzio/hookz"
)

// EventBusConfig sizes the asynchronous subscriber pool.
type EventBusConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// EventBus delivers stored payment events to subscribers off the request path.
type EventBus struct {
	hooks *hookz.Hooks[domain.PaymentEvent]
	log   zerolog.Logger
}

// NewEventBus creates the bus. Zero config values keep the hookz defaults.
func NewEventBus(cfg EventBusConfig, log zerolog.Logger) *EventBus {
	var opts []hookz.Option
	if cfg.Workers > 0 {
		opts = append(opts, hookz.WithWorkers(cfg.Workers))
	}
	if cfg.QueueSize > 0 {
		opts = append(opts, hookz.WithQueueSize(cfg.QueueSize))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, hookz.WithTimeout(cfg.Timeout))
	}

	return &EventBus{
		hooks: hookz.New[domain.PaymentEvent](opts...),
		log:   log,
	}
}

// Subscribe registers fn for one event type.
func (b *EventBus) Subscribe(eventType string, fn func(context.Context, domain.PaymentEvent) error) error {
	_, err := b.hooks.Hook(eventType, fn)
	return err
}

// Publish hands the event to the subscribers of eventType. It never blocks on
// them and never fails the caller; a full queue or a closed bus is logged.
func (b *EventBus) Publish(ctx context.Context, eventType string, event domain.PaymentEvent) {
	if err := b.hooks.Emit(context.WithoutCancel(ctx), eventType, event); err != nil {
		b.log.Warn().Err(err).
			Str("event_type", eventType).
			Str("charge_id", event.ChargeID).
			Msg("payment event not delivered to subscribers")
	}
}

// Close drains in-flight deliveries and stops the workers.
func (b *EventBus) Close() error {
	return b.hooks.Close()
}

// Metrics reports delivery counters from the worker pool.
func (b *EventBus) Metrics() hookz.Metrics {
	return b.hooks.Metrics()
}
