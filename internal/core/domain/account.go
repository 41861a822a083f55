package domain

import "time"

// AccountStatus enumerates the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive          AccountStatus = "active"
	AccountStatusPendingDeletion AccountStatus = "pending_deletion"
)

// Profile mirrors the persisted representation in the profiles table.
type Profile struct {
	UserID              string
	Name                string
	Email               string
	Location            string
	OnboardingComplete  bool
	AccountStatus       AccountStatus
	EmailVerified       bool
	PendingEmailChange  *string
	DeletionRequestedAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ProfilePatch carries the fields an upsert may set. Nil pointers leave the
// stored value untouched; the column set is fixed and an unknown column is a
// hard error at the adapter, never a partial write.
type ProfilePatch struct {
	Name     *string
	Email    *string
	Location *string
}

// Identity is the normalized view of the identity-provider record. Metadata
// is an opaque key/value map owned by the provider; this service only reads
// and merges individual keys.
type Identity struct {
	ID       string
	Email    string
	Metadata map[string]any
}
