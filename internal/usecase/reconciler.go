package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/planora/account-service/internal/core/domain"
	"github.com/planora/account-service/internal/core/port"
	"github.com/planora/account-service/internal/repository"
)

// onboardingMetadataKey is the only identity-metadata key this service reads.
const onboardingMetadataKey = "onboarding_complete"

const defaultStatusCacheTTL = 5 * time.Minute

// ReconcileResult reports the aggregate onboarding value and whether any
// drifted replica was repaired.
type ReconcileResult struct {
	Value bool
	Fixed bool
}

// StatusReconciler derives the effective onboarding-complete value from three
// independently written signals and repairs drift between them. The profile
// record is the designated authority; the identity-metadata flag and the
// preferences row are replicas repaired toward the aggregate.
type StatusReconciler struct {
	identities  port.IdentityStore
	profiles    port.ProfileStore
	preferences port.PreferenceStore
	cache       port.OnboardingStatusCache
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewStatusReconciler constructs a StatusReconciler.
func NewStatusReconciler(identities port.IdentityStore, profiles port.ProfileStore, preferences port.PreferenceStore, logger *zap.Logger) *StatusReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusReconciler{
		identities:  identities,
		profiles:    profiles,
		preferences: preferences,
		cacheTTL:    defaultStatusCacheTTL,
		logger:      logger,
	}
}

// WithStatusCache attaches an aggregate-value cache to the read path.
func (s *StatusReconciler) WithStatusCache(cache port.OnboardingStatusCache, ttl time.Duration) *StatusReconciler {
	s.cache = cache
	if ttl > 0 {
		s.cacheTTL = ttl
	}
	return s
}

type onboardingSignals struct {
	metadata    bool
	metadataOK  bool
	profile     bool
	profileOK   bool
	preferences bool
}

func (sig onboardingSignals) aggregate() bool {
	return sig.metadata || sig.profile || sig.preferences
}

// IsOnboardingComplete returns the OR of the three completion signals. Any
// single signal being true is authoritative evidence of completion. An
// unreadable signal counts as false; the read path never fails because one
// store is down.
func (s *StatusReconciler) IsOnboardingComplete(ctx context.Context, userID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, requiredField("user id")
	}

	if s.cache != nil {
		if value, found, err := s.cache.Get(ctx, userID); err != nil {
			s.logger.Debug("onboarding cache read failed", zap.String("user_id", userID), zap.Error(err))
		} else if found {
			return value, nil
		}
	}

	sig := s.readSignals(ctx, userID)
	value := sig.aggregate()

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, value, s.cacheTTL); err != nil {
			s.logger.Debug("onboarding cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	return value, nil
}

// Reconcile computes the aggregate value and writes it back into every
// readable store that disagrees. Repair writes are best effort: a failed
// write-back is logged, never surfaced. The preferences signal is derived
// from row existence and cannot be retroactively created, so it is read-only
// here. The caller must have ensured a profile row exists.
func (s *StatusReconciler) Reconcile(ctx context.Context, userID string) (ReconcileResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ReconcileResult{}, requiredField("user id")
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ReconcileResult{}, &NotFoundError{Resource: "profile"}
		}
		return ReconcileResult{}, storeErr("get profile", err)
	}

	sig := onboardingSignals{profile: profile.OnboardingComplete, profileOK: true}
	sig.metadata, sig.metadataOK = s.readIdentitySignal(ctx, userID)
	sig.preferences = s.readPreferencesSignal(ctx, userID)
	value := sig.aggregate()

	result := ReconcileResult{Value: value}

	if value && !sig.profile {
		if err := s.profiles.SetOnboardingComplete(ctx, userID, true); err != nil {
			s.logger.Warn("onboarding repair write to profile failed",
				zap.String("user_id", userID), zap.Error(err))
		} else {
			result.Fixed = true
		}
	}

	if value && sig.metadataOK && !sig.metadata {
		if err := s.identities.UpdateMetadata(ctx, userID, map[string]any{onboardingMetadataKey: true}); err != nil {
			s.logger.Warn("onboarding repair write to identity metadata failed",
				zap.String("user_id", userID), zap.Error(err))
		} else {
			result.Fixed = true
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, value, s.cacheTTL); err != nil {
			s.logger.Debug("onboarding cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	return result, nil
}

// EnsureProfile creates or refreshes the profile row reconciliation depends
// on. Invoked by callers before Reconcile; Reconcile itself never creates
// profiles.
func (s *StatusReconciler) EnsureProfile(ctx context.Context, userID, name, email string) (*domain.Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, requiredField("user id")
	}

	patch := domain.ProfilePatch{}
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		patch.Name = &trimmed
	}
	if trimmed := strings.TrimSpace(email); trimmed != "" {
		patch.Email = &trimmed
	}

	profile, err := s.profiles.Upsert(ctx, userID, patch)
	if err != nil {
		return nil, storeErr("upsert profile", err)
	}
	return profile, nil
}

func (s *StatusReconciler) readSignals(ctx context.Context, userID string) onboardingSignals {
	var sig onboardingSignals

	sig.metadata, sig.metadataOK = s.readIdentitySignal(ctx, userID)
	sig.preferences = s.readPreferencesSignal(ctx, userID)

	profile, err := s.profiles.Get(ctx, userID)
	switch {
	case err == nil:
		sig.profileOK = true
		sig.profile = profile.OnboardingComplete
	case errors.Is(err, repository.ErrNotFound):
		sig.profileOK = true
	default:
		s.logger.Warn("profile signal unreadable", zap.String("user_id", userID), zap.Error(err))
	}

	return sig
}

func (s *StatusReconciler) readIdentitySignal(ctx context.Context, userID string) (flag bool, readable bool) {
	identity, err := s.identities.GetUser(ctx, userID)
	switch {
	case err == nil:
		return metadataFlag(identity.Metadata, onboardingMetadataKey), true
	case errors.Is(err, repository.ErrNotFound):
		return false, true
	default:
		s.logger.Warn("identity signal unreadable", zap.String("user_id", userID), zap.Error(err))
		return false, false
	}
}

func (s *StatusReconciler) readPreferencesSignal(ctx context.Context, userID string) bool {
	exists, err := s.preferences.Exists(ctx, userID)
	if err != nil {
		s.logger.Warn("preferences signal unreadable", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	return exists
}

// metadataFlag tolerates the loose typing of the identity metadata map, where
// historical writers stored the flag as a bool or a string.
func metadataFlag(metadata map[string]any, key string) bool {
	if metadata == nil {
		return false
	}
	switch v := metadata[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}
