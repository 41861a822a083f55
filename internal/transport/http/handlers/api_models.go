package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports liveness status.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// OnboardingStatusResponse reports the reconciled onboarding value.
type OnboardingStatusResponse struct {
	UserID             string `json:"user_id"`
	OnboardingComplete bool   `json:"onboarding_complete"`
}

// ReconcileRequest seeds the profile before a reconcile pass. Name and email
// are only used when no profile row exists yet.
type ReconcileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ReconcileResponse reports the aggregate value and whether drift was repaired.
type ReconcileResponse struct {
	UserID             string `json:"user_id"`
	OnboardingComplete bool   `json:"onboarding_complete"`
	Repaired           bool   `json:"repaired"`
}

// DeletionRequestPayload carries the address confirmation for a deletion request.
type DeletionRequestPayload struct {
	Email string `json:"email" binding:"required"`
}

// DeletionRequestedResponse returns the one-time recovery token. It is the
// only place the raw token ever appears.
type DeletionRequestedResponse struct {
	RequestID        string    `json:"request_id"`
	RecoveryToken    string    `json:"recovery_token"`
	RequestedAt      time.Time `json:"requested_at"`
	ScheduledPurgeAt time.Time `json:"scheduled_purge_at"`
}

// DeletionStatusResponse is the read-only deletion state view.
type DeletionStatusResponse struct {
	Pending          bool       `json:"pending"`
	RequestedAt      *time.Time `json:"requested_at,omitempty"`
	ScheduledPurgeAt *time.Time `json:"scheduled_purge_at,omitempty"`
	DaysRemaining    int        `json:"days_remaining"`
}

// RecoverRequest carries the recovery token for account reactivation.
type RecoverRequest struct {
	RecoveryToken string `json:"recovery_token" binding:"required"`
}

// EmailChangeRequest carries the candidate address.
type EmailChangeRequest struct {
	NewEmail string `json:"new_email" binding:"required"`
}

// EmailChangeResponse reports whether the change request was accepted.
type EmailChangeResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// EmailVerifiedCallback is posted by the identity provider once the user
// confirms the new address.
type EmailVerifiedCallback struct {
	UserID string `json:"user_id" binding:"required"`
	Email  string `json:"email" binding:"required"`
}

// PurgeResponse reports the outcome of a purge pass for one user.
type PurgeResponse struct {
	UserID    string `json:"user_id"`
	Purged    bool   `json:"purged"`
	RequestID string `json:"request_id,omitempty"`
}
