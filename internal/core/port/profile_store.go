package port

import (
	"context"
	"time"

	"github.com/planora/account-service/internal/core/domain"
)

// ProfileStore exposes persistence behavior for profile records. Each mutator
// writes a fixed, declared column set; there is no field-by-field fallback on
// schema mismatch.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Upsert(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.Profile, error)
	SetOnboardingComplete(ctx context.Context, userID string, complete bool) error
	// SetAccountStatus flips the lifecycle state and stamps or clears the
	// deletion-requested timestamp in the same write.
	SetAccountStatus(ctx context.Context, userID string, status domain.AccountStatus, deletionRequestedAt *time.Time) error
	// SetPendingEmailChange records the candidate address and drops the
	// verified flag. An empty address clears the pending change.
	SetPendingEmailChange(ctx context.Context, userID string, newEmail string) error
	// ApplyVerifiedEmail promotes the verified address to the authoritative
	// email, clears the pending change, and marks the address verified.
	ApplyVerifiedEmail(ctx context.Context, userID string, email string) error
	Delete(ctx context.Context, userID string) error
}
