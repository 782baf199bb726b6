package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pix-reconciler/config"
	"pix-reconciler/internal/core/domain"
	"pix-reconciler/pkg/apperror"

	"github.com/rs/zerolog"
)

const userAgent = "pix-reconciler/1.0"

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 1 << 20

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.PaymentProvider against the AbacatePay REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates a provider client. httpClient may be nil.
func NewClient(cfg config.ProviderConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		log:        log,
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error json.RawMessage `json:"error"`
}

type chargeData struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"`
	Status       string `json:"status"`
	DevMode      bool   `json:"devMode"`
	BRCode       string `json:"brCode"`
	BRCodeBase64 string `json:"brCodeBase64"`
	CreatedAt    string `json:"createdAt"`
	ExpiresAt    string `json:"expiresAt"`
}

type createRequest struct {
	Amount      int64            `json:"amount"`
	ExpiresIn   int64            `json:"expiresIn,omitempty"`
	Description string           `json:"description,omitempty"`
	Customer    *customerRequest `json:"customer,omitempty"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

type customerRequest struct {
	Name      string `json:"name"`
	Cellphone string `json:"cellphone"`
	Email     string `json:"email"`
	TaxID     string `json:"taxId"`
}

// CreateCharge creates a PIX QR code charge.
func (c *Client) CreateCharge(ctx context.Context, input domain.CreateChargeInput) (*domain.Charge, error) {
	body := createRequest{
		Amount:      input.Amount,
		ExpiresIn:   int64(input.ExpiresIn / time.Second),
		Description: input.Description,
	}
	if cu := input.Customer; cu != (domain.Customer{}) {
		body.Customer = &customerRequest{
			Name:      cu.Name,
			Cellphone: cu.Phone,
			Email:     cu.Email,
			TaxID:     cu.TaxID,
		}
	}
	if input.ExternalID != "" {
		body.Metadata = map[string]any{"externalId": input.ExternalID}
	}

	charge, err := c.do(ctx, http.MethodPost, "/pixQrCode/create", nil, body)
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("charge_id", charge.ID).Int64("amount", charge.Amount).Bool("dev_mode", charge.DevMode).Msg("PIX charge created")
	return charge, nil
}

// CheckCharge fetches the current status of a charge.
func (c *Client) CheckCharge(ctx context.Context, chargeID string) (*domain.Charge, error) {
	charge, err := c.do(ctx, http.MethodGet, "/pixQrCode/check", url.Values{"id": {chargeID}}, nil)
	if err != nil {
		return nil, err
	}
	if charge.ID == "" {
		charge.ID = chargeID
	}
	return charge, nil
}

// SimulatePayment settles a dev mode charge.
func (c *Client) SimulatePayment(ctx context.Context, chargeID string, metadata map[string]string) (*domain.Charge, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	charge, err := c.do(ctx, http.MethodPost, "/pixQrCode/simulate-payment", url.Values{"id": {chargeID}},
		map[string]any{"metadata": metadata})
	if err != nil {
		return nil, err
	}
	if charge.ID == "" {
		charge.ID = chargeID
	}
	c.log.Info().Str("charge_id", charge.ID).Str("status", string(charge.Status)).Msg("PIX payment simulated")
	return charge, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (*domain.Charge, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("encoding %s request: %w", path, err))
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("building %s request: %w", path, err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("reading %s response: %w", path, err))
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("%s %s: HTTP %d", method, path, resp.StatusCode))
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if msg := errorMessage(env.Error); msg != "" {
		return nil, apperror.ErrProviderRejected(msg)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if resp.StatusCode == http.StatusNotFound {
			return nil, apperror.ErrNotFound("charge")
		}
		return nil, apperror.ErrProviderRejected(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}
	if decodeErr != nil {
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("decoding %s response: %w", path, decodeErr))
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, apperror.ErrProviderRejected("response carried no data")
	}

	var data chargeData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("decoding %s data: %w", path, err))
	}
	return data.toDomain(), nil
}

func (d chargeData) toDomain() *domain.Charge {
	return &domain.Charge{
		ID:           d.ID,
		Status:       domain.ChargeStatus(strings.ToUpper(d.Status)),
		Amount:       d.Amount,
		BRCode:       d.BRCode,
		BRCodeBase64: d.BRCodeBase64,
		CreatedAt:    parseTime(d.CreatedAt),
		ExpiresAt:    parseTime(d.ExpiresAt),
		DevMode:      d.DevMode,
	}
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

// errorMessage renders the envelope's error field, which may be null, a string or an object.
func errorMessage(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || trimmed == `""` {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return trimmed
}
