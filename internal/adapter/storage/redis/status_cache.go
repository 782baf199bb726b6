package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pix-reconciler/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// StatusCache implements ports.StatusCache using Redis strings.
type StatusCache struct {
	client *goredis.Client
	prefix string
}

// NewStatusCache creates a new Redis-backed charge status cache.
func NewStatusCache(client *goredis.Client) *StatusCache {
	return &StatusCache{
		client: client,
		prefix: "charge:status:",
	}
}

// Set records the latest status of a charge for ttl.
func (c *StatusCache) Set(ctx context.Context, chargeID string, status domain.ChargeStatus, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+chargeID, string(status), ttl).Err(); err != nil {
		return fmt.Errorf("redis status set: %w", err)
	}
	return nil
}

// Get returns ok=false when the charge has no cached status.
// A cached value that is no longer a known status is treated as absent.
func (c *StatusCache) Get(ctx context.Context, chargeID string) (domain.ChargeStatus, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+chargeID).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis status get: %w", err)
	}

	status, err := domain.ParseChargeStatus(val)
	if err != nil {
		return "", false, nil
	}
	return status, true, nil
}
