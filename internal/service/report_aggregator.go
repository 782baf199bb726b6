package service

import (
	"encoding/json"
	"iter"
	"time"

	"pix-reconciler/internal/core/domain"
	"pix-reconciler/internal/core/ports"

	"github.com/zoobzio/clockz"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// Aggregator projects payment events onto the summary, product and detail reports.
// It is stateless between calls and safe for concurrent use.
type Aggregator struct {
	product string
	price   int64
	loc     *time.Location
	clock   clockz.Clock
}

// NewAggregator creates an Aggregator for a single fixed-price product.
// Calendar buckets are computed in loc (UTC when nil).
func NewAggregator(product string, price int64, loc *time.Location, clock clockz.Clock) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = clockz.RealClock
	}
	return &Aggregator{product: product, price: price, loc: loc, clock: clock}
}

// Summarize builds the whole-log summary.
func (a *Aggregator) Summarize(events iter.Seq[domain.PaymentEvent]) *domain.SummaryReport {
	acc := a.newAccumulator(false)
	for ev := range events {
		acc.add(ev)
	}
	return acc.summary
}

// Product builds the report for events priced at the configured product price.
func (a *Aggregator) Product(events iter.Seq[domain.PaymentEvent]) *domain.ProductReport {
	acc := a.newAccumulator(false)
	for ev := range events {
		acc.add(ev)
	}
	return acc.productReport()
}

// Detail flattens every event into a row, preserving input order.
func (a *Aggregator) Detail(events iter.Seq[domain.PaymentEvent]) []domain.DetailRecord {
	rows := make([]domain.DetailRecord, 0)
	for ev := range events {
		rows = append(rows, detailRecord(ev))
	}
	return rows
}

// Aggregate computes the three projections in a single pass.
func (a *Aggregator) Aggregate(events iter.Seq[domain.PaymentEvent]) *ports.Reports {
	acc := a.newAccumulator(true)
	for ev := range events {
		acc.add(ev)
	}
	return &ports.Reports{
		Summary: acc.summary,
		Product: acc.productReport(),
		Details: acc.details,
	}
}

type accumulator struct {
	agg         *Aggregator
	summary     *domain.SummaryReport
	product     *domain.ProductReport
	withDetails bool
	details     []domain.DetailRecord
}

func (a *Aggregator) newAccumulator(withDetails bool) *accumulator {
	now := a.clock.Now().In(a.loc)
	acc := &accumulator{
		agg:     a,
		summary: domain.NewSummaryReport(now),
		product: &domain.ProductReport{
			GeneratedAt:          now,
			Product:              a.product,
			Price:                a.price,
			CustomerAnalysis:     make(map[string]int),
			MonthlySubscriptions: make(map[string]int),
		},
		withDetails: withDetails,
	}
	if withDetails {
		acc.details = make([]domain.DetailRecord, 0)
	}
	return acc
}

func (acc *accumulator) add(ev domain.PaymentEvent) {
	local := ev.Timestamp.In(acc.agg.loc)
	day := local.Format(dayLayout)
	month := local.Format(monthLayout)
	name := ev.Customer.DisplayName()

	s := acc.summary
	s.TotalTransactions++
	s.StatusBreakdown[ev.Status]++
	if ev.Status == domain.ChargeStatusPaid {
		s.TotalAmount += ev.AmountMinorUnits
	}
	s.DailyBreakdown[day]++
	s.MonthlyBreakdown[month]++
	s.CustomerBreakdown[name]++
	s.PaymentMethods[domain.PaymentMethodPIX]++

	if ev.AmountMinorUnits == acc.agg.price {
		p := acc.product
		p.TotalSubscriptions++
		p.MonthlySubscriptions[month]++
		p.CustomerAnalysis[name]++
		if ev.Status == domain.ChargeStatusPaid {
			p.ConfirmedSubscriptions++
			p.Revenue += ev.AmountMinorUnits
		}
	}

	if acc.withDetails {
		acc.details = append(acc.details, detailRecord(ev))
	}
}

func (acc *accumulator) productReport() *domain.ProductReport {
	p := acc.product
	if p.TotalSubscriptions > 0 {
		p.ConversionRate = 100 * float64(p.ConfirmedSubscriptions) / float64(p.TotalSubscriptions)
	}
	return p
}

// rawCharge holds the charge fields the detail report reads from the stored payload.
type rawCharge struct {
	CreatedAt      string `json:"createdAt"`
	CreatedAtSnake string `json:"created_at"`
	ExpiresAt      string `json:"expiresAt"`
	ExpiresAtSnake string `json:"expires_at"`
	DevMode        *bool  `json:"devMode"`
	DevModeSnake   *bool  `json:"dev_mode"`
}

func detailRecord(ev domain.PaymentEvent) domain.DetailRecord {
	rec := domain.DetailRecord{
		Timestamp:       ev.Timestamp.UTC().Format(time.RFC3339Nano),
		ChargeID:        ev.ChargeID,
		Status:          string(ev.Status),
		Amount:          ev.AmountMinorUnits,
		AmountFormatted: domain.FormatBRL(ev.AmountMinorUnits),
		CustomerName:    ev.Customer.Name,
		CustomerEmail:   ev.Customer.Email,
		CustomerPhone:   ev.Customer.Phone,
		CustomerTaxID:   ev.Customer.TaxID,
	}

	var raw rawCharge
	if len(ev.Raw) > 0 && json.Unmarshal(ev.Raw, &raw) == nil {
		rec.CreatedAt = firstNonEmpty(raw.CreatedAt, raw.CreatedAtSnake)
		rec.ExpiresAt = firstNonEmpty(raw.ExpiresAt, raw.ExpiresAtSnake)
		switch {
		case raw.DevMode != nil:
			rec.DevMode = *raw.DevMode
		case raw.DevModeSnake != nil:
			rec.DevMode = *raw.DevModeSnake
		}
	}
	return rec
}
