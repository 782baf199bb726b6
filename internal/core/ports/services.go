package ports

import (
	"context"
	"encoding/json"
	"time"

	"pix-reconciler/internal/core/domain"
)

// SignatureVerifier handles HMAC-SHA256 signing and verification of webhook bodies.
type SignatureVerifier interface {
	Sign(secret string, payload []byte) string
	Verify(secret string, payload []byte, signatureHex string) bool
}

// OutcomeKind classifies the result of routing a notification.
type OutcomeKind string

const (
	OutcomeHandled          OutcomeKind = "HANDLED"
	OutcomeUnrecognized     OutcomeKind = "UNRECOGNIZED"
	OutcomeMalformedPayload OutcomeKind = "MALFORMED_PAYLOAD"
)

// RoutingOutcome tells the boundary what happened to a notification.
type RoutingOutcome struct {
	Kind      OutcomeKind
	EventType string
	Event     *domain.PaymentEvent // set when Kind is OutcomeHandled
	Reason    string               // set when Kind is OutcomeMalformedPayload
}

// NotificationRouter maps an inbound event type to its status and records it.
type NotificationRouter interface {
	// Route returns an error only when the event log rejects the append.
	Route(ctx context.Context, eventType string, data json.RawMessage) (RoutingOutcome, error)
}

// PaymentProvider is the remote PIX provider API.
type PaymentProvider interface {
	CreateCharge(ctx context.Context, input domain.CreateChargeInput) (*domain.Charge, error)
	CheckCharge(ctx context.Context, chargeID string) (*domain.Charge, error)
	SimulatePayment(ctx context.Context, chargeID string, metadata map[string]string) (*domain.Charge, error)
}

// ChargeService creates and inspects charges on behalf of callers.
type ChargeService interface {
	Create(ctx context.Context, input domain.CreateChargeInput) (*domain.Charge, error)
	Check(ctx context.Context, chargeID string) (*domain.Charge, error)
	Simulate(ctx context.Context, chargeID string, metadata map[string]string) (*domain.Charge, error)
}

// MonitorOptions configures one monitor run.
type MonitorOptions struct {
	Interval    time.Duration
	MaxAttempts int
	// OnAttempt is called after every check with the session state.
	OnAttempt func(domain.MonitorSession)
}

// MonitorResult is the terminal outcome of a monitor run.
type MonitorResult struct {
	ChargeID   string
	State      domain.MonitorState
	Attempts   int
	LastStatus domain.ChargeStatus
	LastErr    error
}

// PaymentMonitor polls a charge until it settles or the budget runs out.
type PaymentMonitor interface {
	Watch(ctx context.Context, chargeID string, opts MonitorOptions) (*MonitorResult, error)
}

// Reports bundles the projections produced from one pass over the log.
type Reports struct {
	Summary *domain.SummaryReport
	Product *domain.ProductReport
	Details []domain.DetailRecord
}

// ReportFiles lists the files written by ReportService.Generate.
type ReportFiles struct {
	DetailCSV   string // empty when the log has no events
	SummaryJSON string
	ProductJSON string
	// Reports holds the projections the files were written from.
	Reports *Reports
}

// All returns the non-empty paths.
func (f ReportFiles) All() []string {
	out := make([]string, 0, 3)
	for _, p := range []string{f.DetailCSV, f.SummaryJSON, f.ProductJSON} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DetailFilter narrows and pages detail rows.
type DetailFilter struct {
	Status   *domain.ChargeStatus
	Page     int
	PageSize int
}

// ReportService builds reports from the event log.
type ReportService interface {
	Summary(ctx context.Context) (*domain.SummaryReport, error)
	Product(ctx context.Context) (*domain.ProductReport, error)
	Details(ctx context.Context, filter DetailFilter) ([]domain.DetailRecord, int, error)
	Aggregate(ctx context.Context) (*Reports, error)
	Generate(ctx context.Context, outDir string) (*ReportFiles, error)
}

// Exporter serialises report projections to files.
type Exporter interface {
	ToCSV(rows []domain.DetailRecord, path string) error
	ToJSON(v any, path string) error
}

// TokenService handles operator JWTs for the reports API.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
}
