package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"pix-reconciler/internal/core/domain"
	"pix-reconciler/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestBus(t *testing.T) *EventBus {
	t.Helper()
	return NewEventBus(EventBusConfig{Workers: 2, QueueSize: 16, Timeout: time.Second}, zerolog.Nop())
}

func TestEventBus_DeliversToSubscribersOfType(t *testing.T) {
	bus := newTestBus(t)

	var mu sync.Mutex
	var paid, expired []string
	require.NoError(t, bus.Subscribe(domain.EventChargePaid, func(_ context.Context, ev domain.PaymentEvent) error {
		mu.Lock()
		defer mu.Unlock()
		paid = append(paid, ev.ChargeID)
		return nil
	}))
	require.NoError(t, bus.Subscribe(domain.EventChargeExpired, func(_ context.Context, ev domain.PaymentEvent) error {
		mu.Lock()
		defer mu.Unlock()
		expired = append(expired, ev.ChargeID)
		return nil
	}))

	bus.Publish(context.Background(), domain.EventChargePaid, domain.PaymentEvent{ChargeID: "a"})
	bus.Publish(context.Background(), domain.EventChargeExpired, domain.PaymentEvent{ChargeID: "b"})
	bus.Publish(context.Background(), domain.EventChargeCancelled, domain.PaymentEvent{ChargeID: "c"})
	require.NoError(t, bus.Close())

	assert.Equal(t, []string{"a"}, paid)
	assert.Equal(t, []string{"b"}, expired)
	assert.Equal(t, int64(2), bus.Metrics().TasksProcessed)
}

func TestEventBus_CancelledPublisherStillDelivers(t *testing.T) {
	bus := newTestBus(t)
	delivered := make(chan error, 1)
	require.NoError(t, bus.Subscribe(domain.EventChargePaid, func(ctx context.Context, _ domain.PaymentEvent) error {
		delivered <- ctx.Err()
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, domain.EventChargePaid, domain.PaymentEvent{ChargeID: "a"})
	cancel()
	require.NoError(t, bus.Close())

	select {
	case err := <-delivered:
		assert.NotErrorIs(t, err, context.Canceled)
	default:
		t.Fatal("subscriber was not called")
	}
}

func TestEventBus_PublishAfterCloseIsLogged(t *testing.T) {
	var logBuf bytes.Buffer
	bus := NewEventBus(EventBusConfig{}, zerolog.New(&logBuf))
	require.NoError(t, bus.Subscribe(domain.EventChargePaid, func(context.Context, domain.PaymentEvent) error { return nil }))
	require.NoError(t, bus.Close())

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), domain.EventChargePaid, domain.PaymentEvent{ChargeID: "late"})
	})
	assert.Contains(t, logBuf.String(), "payment event not delivered to subscribers")
	assert.Contains(t, logBuf.String(), "late")
	assert.Error(t, bus.Close(), "second close reports the bus is already closed")
}

func TestStatusCacheSubscriber(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockStatusCache(ctrl)
	bus := newTestBus(t)
	require.NoError(t, RegisterStatusCacheSubscriber(bus, cache, time.Hour, zerolog.Nop()))

	cache.EXPECT().Set(gomock.Any(), "a", domain.ChargeStatusPaid, time.Hour).Return(nil)
	cache.EXPECT().Set(gomock.Any(), "b", domain.ChargeStatusCancelled, time.Hour).Return(errors.New("redis down"))

	bus.Publish(context.Background(), domain.EventChargePaid, domain.PaymentEvent{ChargeID: "a", Status: domain.ChargeStatusPaid})
	bus.Publish(context.Background(), domain.EventChargeCancelled, domain.PaymentEvent{ChargeID: "b", Status: domain.ChargeStatusCancelled})
	require.NoError(t, bus.Close())

	assert.Equal(t, int64(1), bus.Metrics().TasksFailed)
}

func TestConfirmationSubscriber_MasksTaxID(t *testing.T) {
	var logBuf bytes.Buffer
	bus := newTestBus(t)
	require.NoError(t, RegisterConfirmationSubscriber(bus, zerolog.New(&logBuf)))

	bus.Publish(context.Background(), domain.EventChargePaid, domain.PaymentEvent{
		ChargeID:         "a",
		Status:           domain.ChargeStatusPaid,
		AmountMinorUnits: 34700,
		Customer:         domain.Customer{Name: "Maria", TaxID: "52998224725"},
	})
	bus.Publish(context.Background(), domain.EventChargeExpired, domain.PaymentEvent{ChargeID: "b"})
	require.NoError(t, bus.Close())

	out := logBuf.String()
	assert.Contains(t, out, "payment confirmed")
	assert.Contains(t, out, "R$ 347.00")
	assert.Contains(t, out, "*********25")
	assert.NotContains(t, out, "52998224725")
	assert.NotContains(t, out, `"charge_id":"b"`)
}

func TestForwardSubscriber(t *testing.T) {
	var mu sync.Mutex
	var forwarded []string
	httpClient := &mockHTTPClient{
		doFunc: func(req *http.Request) (*http.Response, error) {
			var p ForwardPayload
			require.NoError(t, json.NewDecoder(req.Body).Decode(&p))
			mu.Lock()
			forwarded = append(forwarded, p.EventType)
			mu.Unlock()
			return respond(http.StatusOK), nil
		},
	}
	fwd := NewWebhookForwarder(testForwarderConfig(), NewHMACSignatureService(), httpClient, nil, newTestLogger())

	bus := newTestBus(t)
	require.NoError(t, RegisterForwardSubscriber(bus, fwd))

	bus.Publish(context.Background(), domain.EventChargePaid, forwardedEvent())
	bus.Publish(context.Background(), domain.EventChargeExpired, forwardedEvent())
	require.NoError(t, bus.Close())

	assert.ElementsMatch(t, []string{"charge.paid", "charge.expired"}, forwarded)
}
