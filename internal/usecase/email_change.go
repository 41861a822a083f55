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
	"github.com/planora/account-service/internal/repository"
)

const (
	emailChangeRateLimitScope = "email_change"
	opRequestEmailChange      = "request_email_change"

	defaultEmailChangeMaxAttempts = 5
	defaultEmailChangeWindow      = time.Hour
)

// EmailChangeCoordinator owns the two-phase email change: phase one records
// the pending address on the profile and asks the identity provider to
// challenge it; phase two, driven by the provider's verification callback,
// promotes the address to authoritative. The profile email never changes
// before verification completes.
type EmailChangeCoordinator struct {
	profiles   port.ProfileStore
	verifier   port.VerificationSender
	events     port.EventPublisher
	rateLimits port.RateLimitStore
	logger     *zap.Logger
	now        func() time.Time

	maxAttempts int
	window      time.Duration
}

// EmailChangeReceipt reports whether a change request was accepted.
type EmailChangeReceipt struct {
	Accepted bool
	Message  string
}

// NewEmailChangeCoordinator constructs an EmailChangeCoordinator.
func NewEmailChangeCoordinator(profiles port.ProfileStore, verifier port.VerificationSender, events port.EventPublisher, log *zap.Logger) *EmailChangeCoordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &EmailChangeCoordinator{
		profiles:    profiles,
		verifier:    verifier,
		events:      events,
		logger:      log,
		now:         time.Now,
		maxAttempts: defaultEmailChangeMaxAttempts,
		window:      defaultEmailChangeWindow,
	}
}

// WithRateLimit attaches a sliding-window limit to change requests.
func (s *EmailChangeCoordinator) WithRateLimit(store port.RateLimitStore, maxAttempts int, window time.Duration) *EmailChangeCoordinator {
	s.rateLimits = store
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
	if window > 0 {
		s.window = window
	}
	return s
}

// WithClock allows tests to override the clock used by the coordinator.
func (s *EmailChangeCoordinator) WithClock(clock func() time.Time) *EmailChangeCoordinator {
	if clock != nil {
		s.now = clock
	}
	return s
}

// RequestEmailChange records newEmail as the pending address and delegates
// the verification challenge to the identity provider. Only the account owner
// may request a change. The authoritative email is untouched until the
// provider's callback confirms verification.
func (s *EmailChangeCoordinator) RequestEmailChange(ctx context.Context, actorID, userID, newEmail string) (*EmailChangeReceipt, error) {
	actorID = strings.TrimSpace(actorID)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, requiredField("user id")
	}
	if actorID == "" || actorID != userID {
		return nil, &PermissionError{ActorID: actorID, UserID: userID}
	}

	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if newEmail == "" {
		return nil, requiredField("email")
	}
	if !strings.Contains(newEmail, "@") {
		return nil, &ValidationError{Field: "email", Reason: "not a valid address"}
	}

	if err := s.enforceRateLimit(ctx, userID); err != nil {
		return nil, err
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "profile"}
		}
		return nil, storeErr("get profile", err)
	}

	if strings.EqualFold(profile.Email, newEmail) {
		return &EmailChangeReceipt{Accepted: false, Message: "address already bound to this account"}, nil
	}

	// Double submission of the same address: the challenge is already on its
	// way, accept without re-sending.
	if profile.PendingEmailChange != nil && strings.EqualFold(*profile.PendingEmailChange, newEmail) {
		return &EmailChangeReceipt{Accepted: true, Message: "verification already pending for this address"}, nil
	}

	previousPending := profile.PendingEmailChange

	sg := newSaga(opRequestEmailChange, s.logger,
		sagaStep{
			name: "record_pending_change",
			run: func(ctx context.Context) error {
				return s.profiles.SetPendingEmailChange(ctx, userID, newEmail)
			},
			compensate: func(ctx context.Context) error {
				restore := ""
				if previousPending != nil {
					restore = *previousPending
				}
				return s.profiles.SetPendingEmailChange(ctx, userID, restore)
			},
		},
		sagaStep{
			name: "send_verification_challenge",
			run: func(ctx context.Context) error {
				return s.verifier.SendEmailChangeChallenge(ctx, userID, newEmail)
			},
		},
	)
	if err := sg.execute(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("email change requested",
		zap.String("user_id", userID),
		zap.String("new_email", logger.MaskEmail(newEmail)),
	)

	return &EmailChangeReceipt{Accepted: true, Message: "verification email sent"}, nil
}

// CompleteEmailChange is invoked by the provider's verification callback. If
// no pending change matches the verified address the call is a no-op rather
// than an error, which makes replayed callbacks harmless.
func (s *EmailChangeCoordinator) CompleteEmailChange(ctx context.Context, userID, verifiedEmail string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return requiredField("user id")
	}
	verifiedEmail = strings.ToLower(strings.TrimSpace(verifiedEmail))
	if verifiedEmail == "" {
		return requiredField("email")
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "profile"}
		}
		return storeErr("get profile", err)
	}

	if profile.PendingEmailChange == nil || !strings.EqualFold(*profile.PendingEmailChange, verifiedEmail) {
		s.logger.Info("email change callback ignored: no matching pending change",
			zap.String("user_id", userID),
			zap.String("email", logger.MaskEmail(verifiedEmail)),
		)
		return nil
	}

	if err := s.profiles.ApplyVerifiedEmail(ctx, userID, verifiedEmail); err != nil {
		return storeErr("apply verified email", err)
	}

	s.publishEmailChanged(ctx, userID, verifiedEmail)

	s.logger.Info("email change completed",
		zap.String("user_id", userID),
		zap.String("email", logger.MaskEmail(verifiedEmail)),
	)

	return nil
}

func (s *EmailChangeCoordinator) enforceRateLimit(ctx context.Context, userID string) error {
	if s.rateLimits == nil || s.maxAttempts <= 0 {
		return nil
	}

	now := s.now().UTC()
	storageKey := fmt.Sprintf("%s:%s", emailChangeRateLimitScope, userID)

	if err := s.rateLimits.TrimWindow(ctx, storageKey, s.window, now); err != nil {
		s.logger.Warn("email change rate limit trim failed", zap.Error(err))
		return nil
	}

	count, err := s.rateLimits.CountAttempts(ctx, storageKey, s.window, now)
	if err != nil {
		s.logger.Warn("email change rate limit count failed", zap.Error(err))
		return nil
	}

	if count >= s.maxAttempts {
		retryAfter := time.Duration(0)
		if oldest, ok, err := s.rateLimits.OldestAttempt(ctx, storageKey, s.window, now); err == nil && ok {
			if reset := oldest.Add(s.window); reset.After(now) {
				retryAfter = reset.Sub(now)
			}
		} else if err != nil {
			s.logger.Warn("email change rate limit oldest lookup failed", zap.Error(err))
		}
		return &RateLimitExceededError{Scope: emailChangeRateLimitScope, RetryAfter: retryAfter}
	}

	if err := s.rateLimits.RecordAttempt(ctx, storageKey, now); err != nil {
		s.logger.Warn("email change rate limit record failed", zap.Error(err))
	}

	return nil
}

func (s *EmailChangeCoordinator) publishEmailChanged(ctx context.Context, userID, email string) {
	if s.events == nil {
		return
	}
	event := domain.EmailChangedEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		NewEmail:  email,
		ChangedAt: s.now().UTC(),
	}
	if err := s.events.PublishEmailChanged(ctx, event); err != nil {
		s.logger.Warn("publish email changed failed", zap.String("user_id", userID), zap.Error(err))
	}
}
