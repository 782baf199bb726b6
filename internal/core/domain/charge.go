package domain

import "time"

// Charge is the provider's view of a PIX charge.
type Charge struct {
	ID           string       `json:"id"`
	Status       ChargeStatus `json:"status"`
	Amount       int64        `json:"amount"`
	BRCode       string       `json:"brCode,omitempty"`
	BRCodeBase64 string       `json:"brCodeBase64,omitempty"`
	ExpiresAt    *time.Time   `json:"expiresAt,omitempty"`
	CreatedAt    *time.Time   `json:"createdAt,omitempty"`
	DevMode      bool         `json:"devMode"`
}

// CreateChargeInput describes a new charge.
type CreateChargeInput struct {
	Amount      int64
	Description string
	ExpiresIn   time.Duration
	Customer    Customer
	ExternalID  string
}
