package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/planora/account-service/internal/core/domain"
	"github.com/planora/account-service/internal/core/port"
	"github.com/planora/account-service/internal/infra/logger"
	"github.com/planora/account-service/internal/infra/security"
	"github.com/planora/account-service/internal/repository"
)

const (
	defaultRecoveryWindow   = 30 * 24 * time.Hour
	recoveryTokenByteLength = 16 // 128-bit random token

	opRequestDeletion = "request_deletion"
	opRecoverAccount  = "recover_account"
)

// ErrRecoveryTokenInvalid indicates the presented token matches no pending
// request: wrong token, already cancelled, or already completed.
var ErrRecoveryTokenInvalid = errors.New("recovery token invalid")

// DeletionLifecycle owns the account deletion state machine:
// Active -> PendingDeletion -> Active (recovery) | Purged (terminal).
type DeletionLifecycle struct {
	profiles    port.ProfileStore
	requests    port.DeletionRequestStore
	preferences port.PreferenceStore
	identities  port.IdentityStore
	events      port.EventPublisher
	cache       port.OnboardingStatusCache
	logger      *zap.Logger
	now         func() time.Time

	recoveryWindow time.Duration
	purgeIdentity  bool
}

// DeletionGrant is returned once from RequestDeletion. The raw token is the
// only copy; the caller is responsible for delivering it to the user.
type DeletionGrant struct {
	RecoveryToken    string
	RequestID        string
	RequestedAt      time.Time
	ScheduledPurgeAt time.Time
}

// DeletionStatus is the read-only view of a user's deletion state.
type DeletionStatus struct {
	Pending          bool
	RequestedAt      *time.Time
	ScheduledPurgeAt *time.Time
	DaysRemaining    int
}

// PurgeResult reports whether a purge actually removed data. A no-op purge
// (no pending request, or already completed) is a success with Purged false.
type PurgeResult struct {
	Purged    bool
	RequestID string
}

// NewDeletionLifecycle constructs a DeletionLifecycle.
func NewDeletionLifecycle(profiles port.ProfileStore, requests port.DeletionRequestStore, preferences port.PreferenceStore, identities port.IdentityStore, events port.EventPublisher, log *zap.Logger) *DeletionLifecycle {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeletionLifecycle{
		profiles:       profiles,
		requests:       requests,
		preferences:    preferences,
		identities:     identities,
		events:         events,
		logger:         log,
		now:            time.Now,
		recoveryWindow: defaultRecoveryWindow,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *DeletionLifecycle) WithClock(clock func() time.Time) *DeletionLifecycle {
	if clock != nil {
		s.now = clock
	}
	return s
}

// WithRecoveryWindow overrides the default 30-day recovery window.
func (s *DeletionLifecycle) WithRecoveryWindow(window time.Duration) *DeletionLifecycle {
	if window > 0 {
		s.recoveryWindow = window
	}
	return s
}

// WithIdentityPurge controls whether purge also removes the identity record.
func (s *DeletionLifecycle) WithIdentityPurge(enabled bool) *DeletionLifecycle {
	s.purgeIdentity = enabled
	return s
}

// WithStatusCache attaches the onboarding cache so purge can invalidate it.
func (s *DeletionLifecycle) WithStatusCache(cache port.OnboardingStatusCache) *DeletionLifecycle {
	s.cache = cache
	return s
}

// RequestDeletion opens the 30-day recovery window for an account. Two writes
// against independent stores are required; they run as a saga. If the request
// insert fails after the profile flip succeeded, the profile is reverted to
// active before the error is returned.
func (s *DeletionLifecycle) RequestDeletion(ctx context.Context, userID, email string) (*DeletionGrant, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, requiredField("user id")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, requiredField("email")
	}

	// Optimistic single-pending guard. A true race between two concurrent
	// calls may still insert two rows; recovery and purge operate per
	// request id, so a duplicate is drift, not corruption.
	existing, err := s.requests.FindPendingByUser(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr("find pending deletion request", err)
	}
	if existing != nil {
		return nil, &ConflictError{Resource: "deletion request", Reason: "a pending request already exists for this user"}
	}

	if _, err := s.profiles.Get(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "profile"}
		}
		return nil, storeErr("get profile", err)
	}

	rawToken, err := security.GenerateRecoveryToken(recoveryTokenByteLength)
	if err != nil {
		return nil, fmt.Errorf("generate recovery token: %w", err)
	}

	now := s.now().UTC()
	purgeAt := now.Add(s.recoveryWindow)

	req := domain.DeletionRequest{
		ID:                uuid.NewString(),
		UserID:            userID,
		Email:             email,
		RequestedAt:       now,
		ScheduledPurgeAt:  purgeAt,
		Status:            domain.DeletionStatusPending,
		RecoveryTokenHash: security.HashToken(rawToken),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	sg := newSaga(opRequestDeletion, s.logger,
		sagaStep{
			name: "mark_profile_pending_deletion",
			run: func(ctx context.Context) error {
				return s.profiles.SetAccountStatus(ctx, userID, domain.AccountStatusPendingDeletion, &now)
			},
			compensate: func(ctx context.Context) error {
				return s.profiles.SetAccountStatus(ctx, userID, domain.AccountStatusActive, nil)
			},
		},
		sagaStep{
			name: "insert_deletion_request",
			run: func(ctx context.Context) error {
				return s.requests.Insert(ctx, req)
			},
		},
	)
	if err := sg.execute(ctx); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cerr := s.cache.Invalidate(ctx, userID); cerr != nil {
			s.logger.Debug("onboarding cache invalidation failed", zap.String("user_id", userID), zap.Error(cerr))
		}
	}

	s.publishDeletionRequested(ctx, req)

	s.logger.Info("deletion requested",
		zap.String("user_id", userID),
		zap.String("request_id", req.ID),
		zap.String("email", logger.MaskEmail(email)),
		zap.Time("scheduled_purge_at", purgeAt),
	)

	return &DeletionGrant{
		RecoveryToken:    rawToken,
		RequestID:        req.ID,
		RequestedAt:      now,
		ScheduledPurgeAt: purgeAt,
	}, nil
}

// Recover cancels a pending deletion using its single-use recovery token.
// The token is valid only while the owning request is pending, so a replayed
// call finds nothing and fails harmlessly with ErrRecoveryTokenInvalid.
//
// The cancel write and the profile reactivation hit independent stores. The
// cancel is deliberately irreversible: if reactivation fails afterwards, the
// request stays cancelled while the profile still reads pending-deletion, and
// that inconsistency is surfaced as a PartialFailureError for an operator or
// retry to repair.
func (s *DeletionLifecycle) Recover(ctx context.Context, recoveryToken string) error {
	recoveryToken = strings.TrimSpace(recoveryToken)
	if recoveryToken == "" {
		return requiredField("recovery token")
	}

	req, err := s.requests.FindByTokenHash(ctx, security.HashToken(recoveryToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRecoveryTokenInvalid
		}
		return storeErr("find deletion request by token", err)
	}
	if !req.IsPending() {
		return ErrRecoveryTokenInvalid
	}

	sg := newSaga(opRecoverAccount, s.logger,
		sagaStep{
			name: "cancel_deletion_request",
			run: func(ctx context.Context) error {
				return s.requests.UpdateStatus(ctx, req.ID, domain.DeletionStatusCancelled)
			},
		},
		sagaStep{
			name: "reactivate_profile",
			run: func(ctx context.Context) error {
				return s.profiles.SetAccountStatus(ctx, req.UserID, domain.AccountStatusActive, nil)
			},
		},
	)
	if err := sg.execute(ctx); err != nil {
		return err
	}

	s.publishDeletionRecovered(ctx, *req)

	s.logger.Info("deletion recovered",
		zap.String("user_id", req.UserID),
		zap.String("request_id", req.ID),
	)

	return nil
}

// CheckStatus is a pure read of the user's deletion state.
func (s *DeletionLifecycle) CheckStatus(ctx context.Context, userID string) (*DeletionStatus, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, requiredField("user id")
	}

	req, err := s.requests.FindPendingByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &DeletionStatus{Pending: false}, nil
		}
		return nil, storeErr("find pending deletion request", err)
	}

	requestedAt := req.RequestedAt
	purgeAt := req.ScheduledPurgeAt

	return &DeletionStatus{
		Pending:          true,
		RequestedAt:      &requestedAt,
		ScheduledPurgeAt: &purgeAt,
		DaysRemaining:    daysUntil(s.now().UTC(), purgeAt),
	}, nil
}

// Purge irreversibly removes the user's data once the recovery window has
// elapsed. Invoked only by the external scheduler, never by user action.
// Idempotent: a user with no pending request is a no-op success, which
// protects against the scheduler firing twice for the same due request.
//
// Ordering: dependent records first (preferences), then the profile, then the
// identity record when configured, and the request is marked completed last.
// A failure part-way leaves the request pending so the next scheduler run
// retries; every delete tolerates an already-missing row.
func (s *DeletionLifecycle) Purge(ctx context.Context, userID string) (*PurgeResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, requiredField("user id")
	}

	req, err := s.requests.FindPendingByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("purge skipped: no pending deletion request", zap.String("user_id", userID))
			return &PurgeResult{Purged: false}, nil
		}
		return nil, storeErr("find pending deletion request", err)
	}

	if err := s.preferences.Delete(ctx, userID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr("delete preferences", err)
	}

	if err := s.profiles.Delete(ctx, userID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr("delete profile", err)
	}

	identityRemoved := false
	if s.purgeIdentity {
		if err := s.identities.Delete(ctx, userID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, storeErr("delete identity", err)
		}
		identityRemoved = true
	}

	if err := s.requests.UpdateStatus(ctx, req.ID, domain.DeletionStatusCompleted); err != nil {
		return nil, storeErr("complete deletion request", err)
	}

	if s.cache != nil {
		if cerr := s.cache.Invalidate(ctx, userID); cerr != nil {
			s.logger.Debug("onboarding cache invalidation failed", zap.String("user_id", userID), zap.Error(cerr))
		}
	}

	s.publishDeletionPurged(ctx, *req, identityRemoved)

	s.logger.Info("account purged",
		zap.String("user_id", userID),
		zap.String("request_id", req.ID),
		zap.Bool("identity_removed", identityRemoved),
	)

	return &PurgeResult{Purged: true, RequestID: req.ID}, nil
}

// daysUntil returns the ceiling of the remaining whole days, clamped to zero.
func daysUntil(now, deadline time.Time) int {
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}

func (s *DeletionLifecycle) publishDeletionRequested(ctx context.Context, req domain.DeletionRequest) {
	if s.events == nil {
		return
	}
	event := domain.DeletionRequestedEvent{
		EventID:          uuid.NewString(),
		UserID:           req.UserID,
		RequestID:        req.ID,
		RequestedAt:      req.RequestedAt,
		ScheduledPurgeAt: req.ScheduledPurgeAt,
	}
	if err := s.events.PublishDeletionRequested(ctx, event); err != nil {
		s.logger.Warn("publish deletion requested failed", zap.String("user_id", req.UserID), zap.Error(err))
	}
}

func (s *DeletionLifecycle) publishDeletionRecovered(ctx context.Context, req domain.DeletionRequest) {
	if s.events == nil {
		return
	}
	event := domain.DeletionRecoveredEvent{
		EventID:     uuid.NewString(),
		UserID:      req.UserID,
		RequestID:   req.ID,
		RecoveredAt: s.now().UTC(),
	}
	if err := s.events.PublishDeletionRecovered(ctx, event); err != nil {
		s.logger.Warn("publish deletion recovered failed", zap.String("user_id", req.UserID), zap.Error(err))
	}
}

func (s *DeletionLifecycle) publishDeletionPurged(ctx context.Context, req domain.DeletionRequest, identityRemoved bool) {
	if s.events == nil {
		return
	}
	event := domain.DeletionPurgedEvent{
		EventID:         uuid.NewString(),
		UserID:          req.UserID,
		RequestID:       req.ID,
		PurgedAt:        s.now().UTC(),
		IdentityRemoved: identityRemoved,
	}
	if err := s.events.PublishDeletionPurged(ctx, event); err != nil {
		s.logger.Warn("publish deletion purged failed", zap.String("user_id", req.UserID), zap.Error(err))
	}
}
