package domain

import "time"

// DeletionRequestStatus enumerates the states of a deletion request.
type DeletionRequestStatus string

const (
	DeletionStatusPending   DeletionRequestStatus = "pending"
	DeletionStatusCancelled DeletionRequestStatus = "cancelled"
	DeletionStatusCompleted DeletionRequestStatus = "completed"
)

// DeletionRequest mirrors the persisted representation in the
// deletion_requests table. The raw recovery token is never stored; only its
// SHA-256 hash. Completed rows are immutable and retained for audit.
type DeletionRequest struct {
	ID                string
	UserID            string
	Email             string
	RequestedAt       time.Time
	ScheduledPurgeAt  time.Time
	Status            DeletionRequestStatus
	RecoveryTokenHash string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsPending reports whether the request still guards the account.
func (r DeletionRequest) IsPending() bool {
	return r.Status == DeletionStatusPending
}

// Due reports whether the recovery window has elapsed at the given instant.
func (r DeletionRequest) Due(now time.Time) bool {
	return r.IsPending() && !now.Before(r.ScheduledPurgeAt)
}
