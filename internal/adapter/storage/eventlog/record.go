package eventlog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pix-reconciler/internal/core/domain"
)

// record is the on-disk line shape. It accepts the current field names and
// the ones written by the earlier webhook scripts (pix_id, amount, data).
type record struct {
	Timestamp        string          `json:"timestamp"`
	ChargeID         string          `json:"chargeId"`
	PixID            string          `json:"pix_id"`
	Status           string          `json:"status"`
	AmountMinorUnits *json.Number    `json:"amountMinorUnits"`
	Amount           *json.Number    `json:"amount"`
	Customer         *recordCustomer `json:"customer"`
	Raw              json.RawMessage `json:"raw"`
	Data             json.RawMessage `json:"data"`
}

type recordCustomer struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Cellphone  string `json:"cellphone"`
	TaxID      string `json:"taxId"`
	TaxIDSnake string `json:"tax_id"`
}

// Naive layouts carry no offset and are read as UTC.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func decodeRecord(line []byte) (domain.PaymentEvent, error) {
	var rec record
	if err := json.Unmarshal(line, &rec); err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("decoding line: %w", err)
	}

	ts, err := parseTimestamp(rec.Timestamp)
	if err != nil {
		return domain.PaymentEvent{}, err
	}

	status, err := domain.ParseChargeStatus(rec.Status)
	if err != nil {
		return domain.PaymentEvent{}, err
	}

	amountField := rec.AmountMinorUnits
	if amountField == nil {
		amountField = rec.Amount
	}
	var amount int64
	if amountField != nil && *amountField != "" {
		amount, err = amountField.Int64()
		if err != nil {
			return domain.PaymentEvent{}, fmt.Errorf("amount %q is not an integer", amountField.String())
		}
	}

	ev := domain.PaymentEvent{
		Timestamp:        ts,
		ChargeID:         rec.ChargeID,
		Status:           status,
		AmountMinorUnits: amount,
		Raw:              rec.Raw,
	}
	if ev.ChargeID == "" {
		ev.ChargeID = rec.PixID
	}
	if len(ev.Raw) == 0 {
		ev.Raw = rec.Data
	}
	if c := rec.Customer; c != nil {
		ev.Customer = domain.Customer{
			Name:  c.Name,
			Email: c.Email,
			Phone: c.Phone,
			TaxID: c.TaxID,
		}
		if ev.Customer.Phone == "" {
			ev.Customer.Phone = c.Cellphone
		}
		if ev.Customer.TaxID == "" {
			ev.Customer.TaxID = c.TaxIDSnake
		}
	}

	if err := ev.Validate(); err != nil {
		return domain.PaymentEvent{}, err
	}
	return ev, nil
}
