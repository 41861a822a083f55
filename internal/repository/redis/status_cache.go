package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/planora/account-service/internal/core/port"
)

// OnboardingStatusRepository caches the reconciled onboarding flag in Redis.
// Values are stored as "1"/"0" under a per-user key with a short TTL so a
// repair write-back becomes visible within minutes even without an explicit
// invalidation.
type OnboardingStatusRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewOnboardingStatusRepository constructs the cache adapter.
func NewOnboardingStatusRepository(client *redis.Client, keyPrefix string) *OnboardingStatusRepository {
	if keyPrefix == "" {
		keyPrefix = "onboarding_status"
	}
	return &OnboardingStatusRepository{client: client, keyPrefix: keyPrefix}
}

// Get returns the cached flag. found is false on a miss.
func (r *OnboardingStatusRepository) Get(ctx context.Context, userID string) (bool, bool, error) {
	value, err := r.client.Get(ctx, r.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("redis get: %w", err)
	}

	return value == "1", true, nil
}

// Set stores the flag with the supplied TTL.
func (r *OnboardingStatusRepository) Set(ctx context.Context, userID string, complete bool, ttl time.Duration) error {
	value := "0"
	if complete {
		value = "1"
	}

	if err := r.client.Set(ctx, r.key(userID), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Invalidate drops the cached flag so the next read hits the stores.
func (r *OnboardingStatusRepository) Invalidate(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

func (r *OnboardingStatusRepository) key(userID string) string {
	return fmt.Sprintf("%s:%s", r.keyPrefix, userID)
}

var _ port.OnboardingStatusCache = (*OnboardingStatusRepository)(nil)
