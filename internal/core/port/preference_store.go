package port

import "context"

// PreferenceStore exposes the two operations this service needs from the
// travel-preferences record: existence (an onboarding-completion signal) and
// removal during purge.
type PreferenceStore interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Delete(ctx context.Context, userID string) error
}
