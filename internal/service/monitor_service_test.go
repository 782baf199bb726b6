package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pix-reconciler/internal/core/domain"
	"pix-reconciler/internal/core/ports"
	"pix-reconciler/internal/core/ports/mocks"
	"pix-reconciler/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setupMonitor(t *testing.T, opts ...MonitorOption) (ports.PaymentMonitor, *mocks.MockPaymentProvider) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockPaymentProvider(ctrl)
	return NewPaymentMonitor(provider, zerolog.Nop(), opts...), provider
}

func chargeWith(status domain.ChargeStatus) *domain.Charge {
	return &domain.Charge{ID: "pix_char_1", Status: status}
}

func TestPaymentMonitor_TimesOutAfterExactBudget(t *testing.T) {
	m, provider := setupMonitor(t)
	provider.EXPECT().CheckCharge(gomock.Any(), "pix_char_1").Return(chargeWith(domain.ChargeStatusPending), nil).Times(3)

	var remaining []int
	res, err := m.Watch(context.Background(), "pix_char_1", ports.MonitorOptions{
		MaxAttempts: 3,
		OnAttempt: func(s domain.MonitorSession) {
			remaining = append(remaining, s.Remaining())
		},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.MonitorTimedOut, res.State)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, domain.ChargeStatusPending, res.LastStatus)
	assert.Equal(t, []int{2, 1, 0}, remaining)
}

func TestPaymentMonitor_StopsOnTerminalStatus(t *testing.T) {
	tests := []struct {
		status domain.ChargeStatus
		state  domain.MonitorState
	}{
		{domain.ChargeStatusPaid, domain.MonitorPaid},
		{domain.ChargeStatusExpired, domain.MonitorExpired},
		{domain.ChargeStatusCancelled, domain.MonitorCancelled},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			m, provider := setupMonitor(t)
			gomock.InOrder(
				provider.EXPECT().CheckCharge(gomock.Any(), "pix_char_1").Return(chargeWith(domain.ChargeStatusPending), nil),
				provider.EXPECT().CheckCharge(gomock.Any(), "pix_char_1").Return(chargeWith(tt.status), nil),
			)

			res, err := m.Watch(context.Background(), "pix_char_1", ports.MonitorOptions{MaxAttempts: 10})
			require.NoError(t, err)
			assert.Equal(t, tt.state, res.State)
			assert.Equal(t, 2, res.Attempts)
			assert.Equal(t, tt.status, res.LastStatus)
		})
	}
}

func TestPaymentMonitor_ErrorsConsumeAttempts(t *testing.T) {
	m, provider := setupMonitor(t)
	transportErr := apperror.ErrProviderUnavailable(errors.New("connection reset"))
	gomock.InOrder(
		provider.EXPECT().CheckCharge(gomock.Any(), "pix_char_1").Return(nil, transportErr),
		provider.EXPECT().CheckCharge(gomock.Any(), "pix_char_1").Return(chargeWith(domain.ChargeStatusPaid), nil),
	)

	res, err := m.Watch(context.Background(), "pix_char_1", ports.MonitorOptions{MaxAttempts: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.MonitorPaid, res.State)
	assert.Equal(t, 2, res.Attempts)
	assert.NoError(t, res.LastErr)
}

func TestPaymentMonitor_ErroredWhenFinalAttemptFails(t *testing.T) {
	m, provider := setupMonitor(t)
	transportErr := apperror.ErrProviderUnavailable(errors.New("timeout"))
	gomock.InOrder(
		provider.EXPECT().CheckCharge(gomock.Any(), "pix_char_1").Return(chargeWith(domain.ChargeStatusPending), nil),
		provider.EXPECT().CheckCharge(gomock.Any(), "pix_char_1").Return(nil, transportErr),
	)

	res, err := m.Watch(context.Background(), "pix_char_1", ports.MonitorOptions{MaxAttempts: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.MonitorErrored, res.State)
	assert.Equal(t, 2, res.Attempts)
	assert.ErrorIs(t, res.LastErr, transportErr)
	assert.Equal(t, domain.ChargeStatusPending, res.LastStatus)
}

func TestPaymentMonitor_TimedOutWhenEarlierAttemptFailed(t *testing.T) {
	m, provider := setupMonitor(t)
	gomock.InOrder(
		provider.EXPECT().CheckCharge(gomock.Any(), "pix_char_1").Return(nil, errors.New("boom")),
		provider.EXPECT().CheckCharge(gomock.Any(), "pix_char_1").Return(chargeWith(domain.ChargeStatusPending), nil),
	)

	res, err := m.Watch(context.Background(), "pix_char_1", ports.MonitorOptions{MaxAttempts: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.MonitorTimedOut, res.State)
}

func TestPaymentMonitor_CancelledBeforeFirstCheck(t *testing.T) {
	m, _ := setupMonitor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := m.Watch(ctx, "pix_char_1", ports.MonitorOptions{MaxAttempts: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.MonitorCancelledByCaller, res.State)
	assert.Equal(t, 0, res.Attempts)
}

func TestPaymentMonitor_CancelledWhileSleeping(t *testing.T) {
	m, provider := setupMonitor(t)
	provider.EXPECT().CheckCharge(gomock.Any(), "pix_char_1").Return(chargeWith(domain.ChargeStatusPending), nil).Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan *ports.MonitorResult, 1)
	go func() {
		res, err := m.Watch(ctx, "pix_char_1", ports.MonitorOptions{
			Interval:    time.Hour,
			MaxAttempts: 5,
			OnAttempt:   func(domain.MonitorSession) { cancel() },
		})
		assert.NoError(t, err)
		done <- res
	}()

	select {
	case res := <-done:
		assert.Equal(t, domain.MonitorCancelledByCaller, res.State)
		assert.Equal(t, 1, res.Attempts)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not observe cancellation")
	}
}

func TestPaymentMonitor_CheckIsDetachedFromCaller(t *testing.T) {
	m, provider := setupMonitor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider.EXPECT().CheckCharge(gomock.Any(), "pix_char_1").
		DoAndReturn(func(checkCtx context.Context, _ string) (*domain.Charge, error) {
			cancel()
			assert.NoError(t, checkCtx.Err(), "in-flight check must survive caller cancellation")
			return chargeWith(domain.ChargeStatusPaid), nil
		})

	res, err := m.Watch(ctx, "pix_char_1", ports.MonitorOptions{MaxAttempts: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.MonitorPaid, res.State)
}

func TestPaymentMonitor_SleepsBetweenChecks(t *testing.T) {
	m, provider := setupMonitor(t)
	provider.EXPECT().CheckCharge(gomock.Any(), "pix_char_1").Return(chargeWith(domain.ChargeStatusPending), nil).Times(3)

	start := time.Now()
	res, err := m.Watch(context.Background(), "pix_char_1", ports.MonitorOptions{Interval: 20 * time.Millisecond, MaxAttempts: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.MonitorTimedOut, res.State)
	// two sleeps, none after the final attempt
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestPaymentMonitor_Validation(t *testing.T) {
	m, _ := setupMonitor(t, WithMinInterval(time.Second))

	tests := []struct {
		name     string
		chargeID string
		opts     ports.MonitorOptions
	}{
		{"empty charge id", "  ", ports.MonitorOptions{Interval: time.Second, MaxAttempts: 1}},
		{"zero attempts", "pix_char_1", ports.MonitorOptions{Interval: time.Second, MaxAttempts: 0}},
		{"interval below floor", "pix_char_1", ports.MonitorOptions{Interval: 10 * time.Millisecond, MaxAttempts: 3}},
		{"negative interval", "pix_char_1", ports.MonitorOptions{Interval: -time.Second, MaxAttempts: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.Watch(context.Background(), tt.chargeID, tt.opts)
			assert.Nil(t, res)
			assert.True(t, apperror.Is(err, apperror.CodeValidation))
		})
	}
}
