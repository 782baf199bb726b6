package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ChargeStatus is the provider-side lifecycle state of a PIX charge.
type ChargeStatus string

const (
	ChargeStatusPending   ChargeStatus = "PENDING"
	ChargeStatusPaid      ChargeStatus = "PAID"
	ChargeStatusExpired   ChargeStatus = "EXPIRED"
	ChargeStatusCancelled ChargeStatus = "CANCELLED"
)

// ParseChargeStatus accepts the four known statuses, case-insensitively.
func ParseChargeStatus(s string) (ChargeStatus, error) {
	switch st := ChargeStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case ChargeStatusPending, ChargeStatusPaid, ChargeStatusExpired, ChargeStatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidEvent, s)
	}
}

// IsTerminal returns true if no further transition is expected.
func (s ChargeStatus) IsTerminal() bool {
	return s == ChargeStatusPaid || s == ChargeStatusExpired || s == ChargeStatusCancelled
}

// Webhook event types handled by the router.
const (
	EventChargePaid      = "charge.paid"
	EventChargeExpired   = "charge.expired"
	EventChargeCancelled = "charge.cancelled"
)

var eventStatuses = map[string]ChargeStatus{
	EventChargePaid:      ChargeStatusPaid,
	EventChargeExpired:   ChargeStatusExpired,
	EventChargeCancelled: ChargeStatusCancelled,
}

// StatusForEventType maps a webhook event type to the status it records.
func StatusForEventType(eventType string) (ChargeStatus, bool) {
	st, ok := eventStatuses[eventType]
	return st, ok
}

// EventTypeForStatus is the inverse of StatusForEventType. PENDING has no event type.
func EventTypeForStatus(status ChargeStatus) string {
	for eventType, st := range eventStatuses {
		if st == status {
			return eventType
		}
	}
	return ""
}

// ErrInvalidEvent is returned by NewPaymentEvent when an invariant does not hold.
var ErrInvalidEvent = errors.New("invalid payment event")

// UnknownCustomer is the bucket used for events without a customer name.
const UnknownCustomer = "Unknown"

// Customer identifies the payer. Every field is optional.
type Customer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	TaxID string `json:"taxId,omitempty"`
}

// DisplayName returns the name used to group reports.
func (c Customer) DisplayName() string {
	if strings.TrimSpace(c.Name) == "" {
		return UnknownCustomer
	}
	return c.Name
}

// MaskedTaxID keeps the last two digits of the tax id.
func (c Customer) MaskedTaxID() string {
	if len(c.TaxID) <= 2 {
		return c.TaxID
	}
	return strings.Repeat("*", len(c.TaxID)-2) + c.TaxID[len(c.TaxID)-2:]
}

// PaymentEvent is one ingested lifecycle notification. It is immutable once appended.
type PaymentEvent struct {
	Timestamp        time.Time       `json:"timestamp"`
	ChargeID         string          `json:"chargeId"`
	Status           ChargeStatus    `json:"status"`
	AmountMinorUnits int64           `json:"amountMinorUnits"`
	Customer         Customer        `json:"customer"`
	Raw              json.RawMessage `json:"raw,omitempty"`
}

// NewPaymentEvent builds a validated event. The timestamp is assigned by the event log.
// raw is stored compacted, the form it takes once written to the log.
func NewPaymentEvent(chargeID string, status ChargeStatus, amount int64, customer Customer, raw json.RawMessage) (*PaymentEvent, error) {
	chargeID = strings.TrimSpace(chargeID)
	if chargeID == "" {
		return nil, fmt.Errorf("%w: empty charge id", ErrInvalidEvent)
	}
	if amount < 0 {
		return nil, fmt.Errorf("%w: negative amount %d", ErrInvalidEvent, amount)
	}
	st, err := ParseChargeStatus(string(status))
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, fmt.Errorf("%w: raw payload is not JSON", ErrInvalidEvent)
		}
		raw = buf.Bytes()
	}

	return &PaymentEvent{
		ChargeID:         chargeID,
		Status:           st,
		AmountMinorUnits: amount,
		Customer: Customer{
			Name:  strings.TrimSpace(customer.Name),
			Email: strings.TrimSpace(customer.Email),
			Phone: strings.TrimSpace(customer.Phone),
			TaxID: strings.TrimSpace(customer.TaxID),
		},
		Raw: raw,
	}, nil
}

// Validate checks the invariants of an event read back from storage.
func (e *PaymentEvent) Validate() error {
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}
	if strings.TrimSpace(e.ChargeID) == "" {
		return fmt.Errorf("%w: empty charge id", ErrInvalidEvent)
	}
	if e.AmountMinorUnits < 0 {
		return fmt.Errorf("%w: negative amount %d", ErrInvalidEvent, e.AmountMinorUnits)
	}
	if _, err := ParseChargeStatus(string(e.Status)); err != nil {
		return err
	}
	return nil
}
