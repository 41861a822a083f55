package usecase

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports a missing or malformed required input. It is never
// retried; the caller must fix the request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func requiredField(field string) error {
	return &ValidationError{Field: field}
}

// NotFoundError reports that no matching profile, request, or token exists.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// ConflictError reports a state collision, such as a second deletion request
// while one is already pending.
type ConflictError struct {
	Resource string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Reason)
}

// PermissionError reports that the caller is not the owner of the account it
// tried to act on.
type PermissionError struct {
	ActorID string
	UserID  string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("actor %s may not modify account %s", e.ActorID, e.UserID)
}

// PartialFailureError reports that one write of a multi-store saga succeeded
// while a later one failed and the completed steps could not be rolled back.
// It carries enough detail for an operator or a repair job to finish or undo
// the operation by hand.
type PartialFailureError struct {
	Operation       string
	FailedStep      string
	CompletedSteps  []string
	Compensated     bool
	CompensationErr error
	Cause           error
}

func (e *PartialFailureError) Error() string {
	msg := fmt.Sprintf("%s: step %q failed after steps [%s] completed",
		e.Operation, e.FailedStep, strings.Join(e.CompletedSteps, ", "))
	if e.CompensationErr != nil {
		msg += fmt.Sprintf("; compensation failed: %v", e.CompensationErr)
	} else if !e.Compensated {
		msg += "; no compensation available"
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

func (e *PartialFailureError) Unwrap() error { return e.Cause }

// StoreError wraps an adapter failure. Retryable is set by the adapter; the
// core never retries on its own.
type StoreError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// RateLimitExceededError reports that a caller hit the sliding-window limit
// for an operation.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s", e.Scope)
}
