package dto

import (
	"encoding/json"
	"time"

	"pix-reconciler/internal/core/domain"
)

// WebhookNotification is the body posted by the payment provider.
type WebhookNotification struct {
	Type string          `json:"type" binding:"required"`
	Data json.RawMessage `json:"data"`
}

// WebhookAck is the body answered to the provider.
type WebhookAck struct {
	Status    string `json:"status"`
	EventType string `json:"event_type"`
	ChargeID  string `json:"charge_id,omitempty"`
}

// CustomerRequest identifies the payer of a new charge.
type CustomerRequest struct {
	Name      string `json:"name" binding:"required,min=2,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Cellphone string `json:"cellphone" binding:"required,phone"`
	TaxID     string `json:"tax_id" binding:"required,taxid"`
}

// CreateChargeRequest is the request body for charge creation.
// Zero values fall back to the configured product defaults.
type CreateChargeRequest struct {
	Amount      int64            `json:"amount" binding:"omitempty,gt=0"`
	Description string           `json:"description" binding:"max=140"`
	ExpiresIn   int              `json:"expires_in" binding:"omitempty,min=60,max=86400"` // seconds
	ExternalID  string           `json:"external_id" binding:"omitempty,max=100,safe_id"`
	Customer    *CustomerRequest `json:"customer"`
}

// ToInput converts the request into the service input.
func (r CreateChargeRequest) ToInput() domain.CreateChargeInput {
	in := domain.CreateChargeInput{
		Amount:      r.Amount,
		Description: r.Description,
		ExpiresIn:   time.Duration(r.ExpiresIn) * time.Second,
		ExternalID:  r.ExternalID,
	}
	if r.Customer != nil {
		in.Customer = domain.Customer{
			Name:  r.Customer.Name,
			Email: r.Customer.Email,
			Phone: r.Customer.Cellphone,
			TaxID: r.Customer.TaxID,
		}
	}
	return in
}

// SimulateRequest is the optional body for payment simulation.
type SimulateRequest struct {
	Metadata map[string]string `json:"metadata"`
}

// ChargeResponse is the response body for charge operations.
type ChargeResponse struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	Amount          int64   `json:"amount,omitempty"`
	AmountFormatted string  `json:"amount_formatted,omitempty"`
	BRCode          string  `json:"br_code,omitempty"`
	BRCodeBase64    string  `json:"br_code_base64,omitempty"`
	ExpiresAt       *string `json:"expires_at,omitempty"`
	DevMode         bool    `json:"dev_mode"`
}

// NewChargeResponse maps a provider charge to its response body.
func NewChargeResponse(c *domain.Charge) ChargeResponse {
	resp := ChargeResponse{
		ID:           c.ID,
		Status:       string(c.Status),
		Amount:       c.Amount,
		BRCode:       c.BRCode,
		BRCodeBase64: c.BRCodeBase64,
		DevMode:      c.DevMode,
	}
	if c.Amount > 0 {
		resp.AmountFormatted = domain.FormatBRL(c.Amount)
	}
	if c.ExpiresAt != nil {
		s := c.ExpiresAt.UTC().Format(time.RFC3339)
		resp.ExpiresAt = &s
	}
	return resp
}

// TransactionQuery holds the query parameters of the detail listing.
type TransactionQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status"`
}

// TransactionListResponse wraps a page of detail rows.
type TransactionListResponse struct {
	Items      []domain.DetailRecord `json:"items"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}
