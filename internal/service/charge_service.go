package service

import (
	"context"
	"strings"
	"time"

	"pix-reconciler/internal/core/domain"
	"pix-reconciler/internal/core/ports"
	"pix-reconciler/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ChargeDefaults fills in what a create request leaves out.
type ChargeDefaults struct {
	Amount           int64
	Description      string
	ExpiresIn        time.Duration
	ExternalIDPrefix string
	// StatusTTL bounds how long a settled status is served from the cache.
	StatusTTL time.Duration
}

// chargeService implements ports.ChargeService.
type chargeService struct {
	provider ports.PaymentProvider
	cache    ports.StatusCache
	defaults ChargeDefaults
	log      zerolog.Logger
}

// NewChargeService creates a new charge service. cache may be nil.
func NewChargeService(provider ports.PaymentProvider, cache ports.StatusCache, defaults ChargeDefaults, log zerolog.Logger) ports.ChargeService {
	return &chargeService{
		provider: provider,
		cache:    cache,
		defaults: defaults,
		log:      log,
	}
}

// Create opens a new PIX charge with the provider.
func (s *chargeService) Create(ctx context.Context, input domain.CreateChargeInput) (*domain.Charge, error) {
	if input.Amount == 0 {
		input.Amount = s.defaults.Amount
	}
	if input.Amount <= 0 {
		return nil, apperror.Validation("amount must be a positive number of cents")
	}
	if strings.TrimSpace(input.Description) == "" {
		input.Description = s.defaults.Description
	}
	if input.ExpiresIn <= 0 {
		input.ExpiresIn = s.defaults.ExpiresIn
	}
	if input.ExternalID == "" {
		input.ExternalID = s.defaults.ExternalIDPrefix + uuid.NewString()
	}

	charge, err := s.provider.CreateCharge(ctx, input)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("charge_id", charge.ID).
		Str("external_id", input.ExternalID).
		Int64("amount", charge.Amount).
		Msg("charge created")
	return charge, nil
}

// Check returns the charge status, preferring a settled status already
// delivered by webhook over a provider round trip.
func (s *chargeService) Check(ctx context.Context, chargeID string) (*domain.Charge, error) {
	chargeID = strings.TrimSpace(chargeID)
	if chargeID == "" {
		return nil, apperror.Validation("charge id is required")
	}

	if s.cache != nil {
		status, ok, err := s.cache.Get(ctx, chargeID)
		if err != nil {
			s.log.Warn().Err(err).Str("charge_id", chargeID).Msg("status cache lookup failed, asking provider")
		}
		if ok {
			return &domain.Charge{ID: chargeID, Status: status}, nil
		}
	}

	charge, err := s.provider.CheckCharge(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, charge)
	return charge, nil
}

// Simulate settles a dev mode charge. Live charges are refused.
func (s *chargeService) Simulate(ctx context.Context, chargeID string, metadata map[string]string) (*domain.Charge, error) {
	chargeID = strings.TrimSpace(chargeID)
	if chargeID == "" {
		return nil, apperror.Validation("charge id is required")
	}

	current, err := s.provider.CheckCharge(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	if !current.DevMode {
		s.log.Warn().Str("charge_id", chargeID).Msg("refusing to simulate payment of a live charge")
		return nil, apperror.ErrSandboxOnly()
	}

	charge, err := s.provider.SimulatePayment(ctx, chargeID, metadata)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, charge)
	return charge, nil
}

// remember caches terminal statuses only.
func (s *chargeService) remember(ctx context.Context, charge *domain.Charge) {
	if s.cache == nil || !charge.Status.IsTerminal() {
		return
	}
	if err := s.cache.Set(ctx, charge.ID, charge.Status, s.defaults.StatusTTL); err != nil {
		s.log.Warn().Err(err).Str("charge_id", charge.ID).Msg("status cache update failed")
	}
}
