package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pix-reconciler/internal/core/domain"
	"pix-reconciler/internal/core/ports"
	"pix-reconciler/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/zoobzio/clockz"
)

// paymentMonitor implements ports.PaymentMonitor.
type paymentMonitor struct {
	provider    ports.PaymentProvider
	clock       clockz.Clock
	minInterval time.Duration
	log         zerolog.Logger
}

// MonitorOption configures the payment monitor.
type MonitorOption func(*paymentMonitor)

// WithMonitorClock sets the clock used between checks.
func WithMonitorClock(clock clockz.Clock) MonitorOption {
	return func(m *paymentMonitor) {
		m.clock = clock
	}
}

// WithMinInterval sets the smallest polling interval Watch accepts.
func WithMinInterval(d time.Duration) MonitorOption {
	return func(m *paymentMonitor) {
		m.minInterval = d
	}
}

// NewPaymentMonitor creates a new payment monitor.
func NewPaymentMonitor(provider ports.PaymentProvider, log zerolog.Logger, opts ...MonitorOption) ports.PaymentMonitor {
	m := &paymentMonitor{
		provider: provider,
		clock:    clockz.RealClock,
		log:      log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Watch polls the provider until the charge settles, the attempt budget runs
// out or ctx is cancelled. The returned error is only set for invalid options.
func (m *paymentMonitor) Watch(ctx context.Context, chargeID string, opts ports.MonitorOptions) (*ports.MonitorResult, error) {
	chargeID = strings.TrimSpace(chargeID)
	if chargeID == "" {
		return nil, apperror.Validation("charge id is required")
	}
	if opts.MaxAttempts < 1 {
		return nil, apperror.Validation("max attempts must be at least 1")
	}
	if opts.Interval < 0 || opts.Interval < m.minInterval {
		return nil, apperror.Validation(fmt.Sprintf("interval must be at least %s", m.minInterval))
	}

	session := domain.MonitorSession{
		ChargeID:    chargeID,
		MaxAttempts: opts.MaxAttempts,
		Interval:    opts.Interval,
		State:       domain.MonitorPolling,
	}
	log := m.log.With().Str("charge_id", chargeID).Logger()
	log.Info().Int("max_attempts", opts.MaxAttempts).Dur("interval", opts.Interval).Msg("monitoring charge")

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return m.finish(log, session, domain.MonitorCancelledByCaller), nil
		}

		// A check already sent to the provider runs to completion.
		charge, err := m.provider.CheckCharge(context.WithoutCancel(ctx), chargeID)
		session.AttemptsUsed = attempt
		if err != nil {
			session.LastErr = err
			log.Warn().Err(err).Int("attempt", attempt).Msg("charge check failed")
		} else {
			session.LastErr = nil
			session.Status = charge.Status
			session.State = domain.MonitorStateFor(charge.Status)
			log.Debug().Int("attempt", attempt).Str("status", string(charge.Status)).Msg("charge checked")
		}

		if opts.OnAttempt != nil {
			opts.OnAttempt(session)
		}
		if session.State.IsTerminal() {
			return m.finish(log, session, session.State), nil
		}
		if attempt == opts.MaxAttempts {
			break
		}

		if !m.sleep(ctx, opts.Interval) {
			return m.finish(log, session, domain.MonitorCancelledByCaller), nil
		}
	}

	if session.LastErr != nil {
		return m.finish(log, session, domain.MonitorErrored), nil
	}
	return m.finish(log, session, domain.MonitorTimedOut), nil
}

// sleep waits for d and reports false if ctx was cancelled first.
func (m *paymentMonitor) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-m.clock.After(d):
		return true
	}
}

func (m *paymentMonitor) finish(log zerolog.Logger, session domain.MonitorSession, state domain.MonitorState) *ports.MonitorResult {
	log.Info().
		Str("state", string(state)).
		Int("attempts", session.AttemptsUsed).
		Str("last_status", string(session.Status)).
		Msg("monitoring finished")

	return &ports.MonitorResult{
		ChargeID:   session.ChargeID,
		State:      state,
		Attempts:   session.AttemptsUsed,
		LastStatus: session.Status,
		LastErr:    session.LastErr,
	}
}
