package port

import (
	"context"
	"time"
)

// OnboardingStatusCache caches the aggregated onboarding-complete value so the
// read path can skip the three-store fan-out. A cache failure is never fatal;
// callers fall back to direct reads.
type OnboardingStatusCache interface {
	Get(ctx context.Context, userID string) (value bool, found bool, err error)
	Set(ctx context.Context, userID string, complete bool, ttl time.Duration) error
	Invalidate(ctx context.Context, userID string) error
}
