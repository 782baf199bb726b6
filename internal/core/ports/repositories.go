package ports

import (
	"context"
	"iter"
	"time"

	"pix-reconciler/internal/core/domain"
)

// EventLog is the append-only store of payment events.
type EventLog interface {
	// Append stamps the event with the current time and persists it as one record.
	Append(ctx context.Context, event *domain.PaymentEvent) error
	// ReadAll returns a sequence read fresh from storage on every range.
	// A non-nil error is yielded at most once, as the final element, on a fatal read fault.
	ReadAll(ctx context.Context) iter.Seq2[domain.PaymentEvent, error]
}

// StatusCache keeps the latest known status per charge.
type StatusCache interface {
	Set(ctx context.Context, chargeID string, status domain.ChargeStatus, ttl time.Duration) error
	// Get returns ok=false when nothing is cached for the charge.
	Get(ctx context.Context, chargeID string) (status domain.ChargeStatus, ok bool, err error)
}

// ReportArchive stores generated report files outside the host.
type ReportArchive interface {
	Upload(ctx context.Context, localPath string) (key string, err error)
}
