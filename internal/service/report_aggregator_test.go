package service

import (
	"encoding/json"
	"math/rand"
	"slices"
	"testing"
	"time"

	"pix-reconciler/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrice = 34700

func newTestAggregator() *Aggregator {
	return NewAggregator("PrescrevaMe Premium", testPrice, time.UTC, nil)
}

func makeEvent(id string, status domain.ChargeStatus, amount int64, name string, ts time.Time) domain.PaymentEvent {
	return domain.PaymentEvent{
		Timestamp:        ts,
		ChargeID:         id,
		Status:           status,
		AmountMinorUnits: amount,
		Customer:         domain.Customer{Name: name},
	}
}

func sampleEvents() []domain.PaymentEvent {
	sep := time.Date(2025, 9, 26, 10, 0, 0, 0, time.UTC)
	oct := time.Date(2025, 10, 1, 9, 30, 0, 0, time.UTC)
	return []domain.PaymentEvent{
		makeEvent("a", domain.ChargeStatusPending, testPrice, "Maria", sep),
		makeEvent("a", domain.ChargeStatusPaid, testPrice, "Maria", sep.Add(time.Minute)),
		makeEvent("b", domain.ChargeStatusExpired, testPrice, "João", sep.Add(time.Hour)),
		makeEvent("c", domain.ChargeStatusPaid, 1000, "", oct),
		makeEvent("d", domain.ChargeStatusPaid, testPrice, "João", oct.Add(time.Hour)),
		makeEvent("e", domain.ChargeStatusCancelled, 500, "Ana", oct.Add(2*time.Hour)),
	}
}

func TestAggregator_PendingThenPaidScenario(t *testing.T) {
	events := []domain.PaymentEvent{
		makeEvent("a", domain.ChargeStatusPending, testPrice, "", time.Now()),
		makeEvent("a", domain.ChargeStatusPaid, testPrice, "", time.Now()),
	}

	summary := newTestAggregator().Summarize(slices.Values(events))

	assert.Equal(t, map[domain.ChargeStatus]int{domain.ChargeStatusPending: 1, domain.ChargeStatusPaid: 1}, summary.StatusBreakdown)
	assert.Equal(t, int64(34700), summary.TotalAmount)
	assert.Equal(t, 2, summary.TotalTransactions)
}

func TestAggregator_Summarize(t *testing.T) {
	summary := newTestAggregator().Summarize(slices.Values(sampleEvents()))

	assert.Equal(t, 6, summary.TotalTransactions)
	assert.Equal(t, int64(testPrice+1000+testPrice), summary.TotalAmount)
	assert.Equal(t, map[domain.ChargeStatus]int{
		domain.ChargeStatusPending:   1,
		domain.ChargeStatusPaid:      3,
		domain.ChargeStatusExpired:   1,
		domain.ChargeStatusCancelled: 1,
	}, summary.StatusBreakdown)
	assert.Equal(t, map[string]int{"2025-09-26": 3, "2025-10-01": 3}, summary.DailyBreakdown)
	assert.Equal(t, map[string]int{"2025-09": 3, "2025-10": 3}, summary.MonthlyBreakdown)
	assert.Equal(t, map[string]int{"Maria": 2, "João": 2, "Unknown": 1, "Ana": 1}, summary.CustomerBreakdown)
	assert.Equal(t, map[string]int{"PIX": 6}, summary.PaymentMethods)

	top := summary.TopCustomers(2)
	require.Len(t, top, 2)
	assert.Equal(t, "João", top[0].Name)
	assert.Equal(t, "Maria", top[1].Name)
}

func TestAggregator_SummarizeIsOrderIndependent(t *testing.T) {
	events := sampleEvents()
	agg := newTestAggregator()
	want := agg.Summarize(slices.Values(events))

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := slices.Clone(events)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := agg.Summarize(slices.Values(shuffled))
		assert.Equal(t, want.TotalAmount, got.TotalAmount)
		assert.Equal(t, want.StatusBreakdown, got.StatusBreakdown)
		assert.Equal(t, want.DailyBreakdown, got.DailyBreakdown)
		assert.Equal(t, want.CustomerBreakdown, got.CustomerBreakdown)
	}
}

func TestAggregator_DuplicatePaidIsCountedTwice(t *testing.T) {
	now := time.Now()
	events := []domain.PaymentEvent{
		makeEvent("a", domain.ChargeStatusPaid, testPrice, "Maria", now),
		makeEvent("a", domain.ChargeStatusPaid, testPrice, "Maria", now),
	}

	summary := newTestAggregator().Summarize(slices.Values(events))
	assert.Equal(t, int64(2*testPrice), summary.TotalAmount)
}

func TestAggregator_CalendarBucketsFollowLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	agg := NewAggregator("p", testPrice, loc, nil)

	// 01:30 UTC on Oct 1st is still Sep 30th in São Paulo.
	events := []domain.PaymentEvent{makeEvent("a", domain.ChargeStatusPaid, 1, "", time.Date(2025, 10, 1, 1, 30, 0, 0, time.UTC))}
	summary := agg.Summarize(slices.Values(events))

	assert.Equal(t, map[string]int{"2025-09-30": 1}, summary.DailyBreakdown)
	assert.Equal(t, map[string]int{"2025-09": 1}, summary.MonthlyBreakdown)
}

func TestAggregator_Product(t *testing.T) {
	report := newTestAggregator().Product(slices.Values(sampleEvents()))

	assert.Equal(t, "PrescrevaMe Premium", report.Product)
	assert.Equal(t, int64(testPrice), report.Price)
	assert.Equal(t, 4, report.TotalSubscriptions)
	assert.Equal(t, 2, report.ConfirmedSubscriptions)
	assert.Equal(t, int64(2*testPrice), report.Revenue)
	assert.InDelta(t, 50.0, report.ConversionRate, 1e-9)
	assert.Equal(t, map[string]int{"Maria": 2, "João": 2}, report.CustomerAnalysis)
	assert.Equal(t, map[string]int{"2025-09": 3, "2025-10": 1}, report.MonthlySubscriptions)
}

func TestAggregator_ProductCustomerAnalysisCountsAttempts(t *testing.T) {
	now := time.Now()
	events := []domain.PaymentEvent{
		makeEvent("a", domain.ChargeStatusPending, testPrice, "Ana", now),
		makeEvent("a", domain.ChargeStatusPaid, testPrice, "Ana", now),
		makeEvent("b", domain.ChargeStatusPending, testPrice, "Bruno", now),
		makeEvent("c", domain.ChargeStatusExpired, testPrice, "", now),
		makeEvent("d", domain.ChargeStatusPaid, 1000, "Carla", now),
	}

	report := newTestAggregator().Product(slices.Values(events))
	assert.Equal(t, map[string]int{"Ana": 2, "Bruno": 1, "Unknown": 1}, report.CustomerAnalysis)
}

func TestAggregator_ConversionRateWithoutAttempts(t *testing.T) {
	events := []domain.PaymentEvent{makeEvent("x", domain.ChargeStatusPaid, 1, "", time.Now())}

	report := newTestAggregator().Product(slices.Values(events))
	assert.Equal(t, 0, report.TotalSubscriptions)
	assert.Equal(t, float64(0), report.ConversionRate)
	assert.Empty(t, report.CustomerAnalysis)
}

func TestAggregator_ConversionRateIsUnrounded(t *testing.T) {
	now := time.Now()
	events := []domain.PaymentEvent{
		makeEvent("a", domain.ChargeStatusPaid, testPrice, "", now),
		makeEvent("b", domain.ChargeStatusPending, testPrice, "", now),
		makeEvent("c", domain.ChargeStatusExpired, testPrice, "", now),
	}

	report := newTestAggregator().Product(slices.Values(events))
	assert.InDelta(t, 100.0/3.0, report.ConversionRate, 1e-9)
}

func TestAggregator_EmptyInput(t *testing.T) {
	reports := newTestAggregator().Aggregate(slices.Values([]domain.PaymentEvent(nil)))

	assert.Equal(t, 0, reports.Summary.TotalTransactions)
	assert.Equal(t, int64(0), reports.Summary.TotalAmount)
	assert.NotNil(t, reports.Summary.StatusBreakdown)
	assert.Equal(t, 0, reports.Product.TotalSubscriptions)
	assert.Empty(t, reports.Details)
}

func TestAggregator_Detail(t *testing.T) {
	ts := time.Date(2025, 9, 26, 10, 0, 0, 0, time.UTC)
	camel := domain.PaymentEvent{
		Timestamp:        ts,
		ChargeID:         "pix_char_1",
		Status:           domain.ChargeStatusPaid,
		AmountMinorUnits: 34700,
		Customer:         domain.Customer{Name: "Maria", Email: "maria@example.com", Phone: "11999999999", TaxID: "52998224725"},
		Raw:              json.RawMessage(`{"id":"pix_char_1","createdAt":"2025-09-26T09:59:00Z","expiresAt":"2025-09-26T10:14:00Z","devMode":true}`),
	}
	snake := domain.PaymentEvent{
		Timestamp: ts.Add(time.Second),
		ChargeID:  "pix_char_2",
		Status:    domain.ChargeStatusExpired,
		Raw:       json.RawMessage(`{"created_at":"2025-09-26T09:00:00","expires_at":"2025-09-26T09:15:00","dev_mode":false}`),
	}
	bare := domain.PaymentEvent{Timestamp: ts, ChargeID: "pix_char_3", Status: domain.ChargeStatusPending, AmountMinorUnits: 5}

	rows := newTestAggregator().Detail(slices.Values([]domain.PaymentEvent{camel, snake, bare}))
	require.Len(t, rows, 3)

	assert.Equal(t, domain.DetailRecord{
		Timestamp:       "2025-09-26T10:00:00Z",
		ChargeID:        "pix_char_1",
		Status:          "PAID",
		Amount:          34700,
		AmountFormatted: "R$ 347.00",
		CustomerName:    "Maria",
		CustomerEmail:   "maria@example.com",
		CustomerPhone:   "11999999999",
		CustomerTaxID:   "52998224725",
		CreatedAt:       "2025-09-26T09:59:00Z",
		ExpiresAt:       "2025-09-26T10:14:00Z",
		DevMode:         true,
	}, rows[0])

	assert.Equal(t, "pix_char_2", rows[1].ChargeID)
	assert.Equal(t, "2025-09-26T09:00:00", rows[1].CreatedAt)
	assert.Equal(t, "2025-09-26T09:15:00", rows[1].ExpiresAt)
	assert.False(t, rows[1].DevMode)

	assert.Equal(t, "R$ 0.05", rows[2].AmountFormatted)
	assert.Empty(t, rows[2].CreatedAt)
}

func TestAggregator_AggregateMatchesSeparateProjections(t *testing.T) {
	agg := newTestAggregator()
	events := sampleEvents()

	all := agg.Aggregate(slices.Values(events))

	assert.Equal(t, agg.Summarize(slices.Values(events)).StatusBreakdown, all.Summary.StatusBreakdown)
	assert.Equal(t, agg.Product(slices.Values(events)).Revenue, all.Product.Revenue)
	assert.Equal(t, agg.Detail(slices.Values(events)), all.Details)
}
