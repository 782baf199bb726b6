package domain

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// PaymentMethodPIX is the only payment method recorded by the event log.
const PaymentMethodPIX = "PIX"

// SummaryReport aggregates the whole event log.
type SummaryReport struct {
	GeneratedAt       time.Time            `json:"generated_at"`
	TotalTransactions int                  `json:"total_transactions"`
	TotalAmount       int64                `json:"total_amount"` // PAID events only
	StatusBreakdown   map[ChargeStatus]int `json:"status_breakdown"`
	DailyBreakdown    map[string]int       `json:"daily_breakdown"`
	MonthlyBreakdown  map[string]int       `json:"monthly_breakdown"`
	CustomerBreakdown map[string]int       `json:"customer_breakdown"`
	PaymentMethods    map[string]int       `json:"payment_methods"`
}

// NewSummaryReport returns a zero-valued report with initialised maps.
func NewSummaryReport(generatedAt time.Time) *SummaryReport {
	return &SummaryReport{
		GeneratedAt:       generatedAt,
		StatusBreakdown:   make(map[ChargeStatus]int),
		DailyBreakdown:    make(map[string]int),
		MonthlyBreakdown:  make(map[string]int),
		CustomerBreakdown: make(map[string]int),
		PaymentMethods:    make(map[string]int),
	}
}

// CustomerCount is one entry of a customer ranking.
type CustomerCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TopCustomers returns the n customers with the most events, ties broken by name.
func (r *SummaryReport) TopCustomers(n int) []CustomerCount {
	out := make([]CustomerCount, 0, len(r.CustomerBreakdown))
	for name, count := range r.CustomerBreakdown {
		out = append(out, CustomerCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ProductReport projects the log onto a single fixed-price product.
type ProductReport struct {
	GeneratedAt            time.Time      `json:"generated_at"`
	Product                string         `json:"product"`
	Price                  int64          `json:"price"`
	TotalSubscriptions     int            `json:"total_subscriptions"`
	ConfirmedSubscriptions int            `json:"confirmed_subscriptions"`
	Revenue                int64          `json:"revenue"`
	ConversionRate         float64        `json:"conversion_rate"`
	CustomerAnalysis       map[string]int `json:"customer_analysis"`
	MonthlySubscriptions   map[string]int `json:"monthly_subscriptions"`
}

// DetailRecord is one flattened row of the detailed export.
type DetailRecord struct {
	Timestamp       string `json:"timestamp"`
	ChargeID        string `json:"charge_id"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	AmountFormatted string `json:"amount_formatted"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerTaxID   string `json:"customer_tax_id"`
	CreatedAt       string `json:"created_at"`
	ExpiresAt       string `json:"expires_at"`
	DevMode         bool   `json:"dev_mode"`
}

// DetailHeader lists the CSV column names, matching the JSON field names.
var DetailHeader = []string{
	"timestamp", "charge_id", "status", "amount", "amount_formatted",
	"customer_name", "customer_email", "customer_phone", "customer_tax_id",
	"created_at", "expires_at", "dev_mode",
}

// CSVRow renders the record in DetailHeader order.
func (d DetailRecord) CSVRow() []string {
	return []string{
		d.Timestamp,
		d.ChargeID,
		d.Status,
		strconv.FormatInt(d.Amount, 10),
		d.AmountFormatted,
		d.CustomerName,
		d.CustomerEmail,
		d.CustomerPhone,
		d.CustomerTaxID,
		d.CreatedAt,
		d.ExpiresAt,
		strconv.FormatBool(d.DevMode),
	}
}

// FormatBRL renders minor units as "R$ 347.00".
func FormatBRL(minorUnits int64) string {
	sign := ""
	if minorUnits < 0 {
		sign = "-"
		minorUnits = -minorUnits
	}
	return fmt.Sprintf("R$ %s%d.%02d", sign, minorUnits/100, minorUnits%100)
}
