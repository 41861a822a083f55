package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/planora/account-service/internal/core/domain"
)

func activeProfile(userID string, onboarded bool) *domain.Profile {
	return &domain.Profile{
		UserID:             userID,
		Name:               "Avery",
		Email:              "avery@example.com",
		OnboardingComplete: onboarded,
		AccountStatus:      domain.AccountStatusActive,
	}
}

func TestIsOnboardingCompleteAggregatesWithOr(t *testing.T) {
	cases := []struct {
		name        string
		metadata    any
		profile     bool
		preferences bool
		want        bool
	}{
		{name: "all false", metadata: false, profile: false, preferences: false, want: false},
		{name: "metadata only", metadata: true, profile: false, preferences: false, want: true},
		{name: "profile only", metadata: false, profile: true, preferences: false, want: true},
		{name: "preferences only", metadata: false, profile: false, preferences: true, want: true},
		{name: "string metadata", metadata: "true", profile: false, preferences: false, want: true},
		{name: "garbage metadata", metadata: 42, profile: false, preferences: false, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			identities := &stubIdentityStore{identity: &domain.Identity{
				ID:       "user-1",
				Metadata: map[string]any{"onboarding_complete": tc.metadata},
			}}
			profiles := newStubProfileStore(activeProfile("user-1", tc.profile))
			preferences := &stubPreferenceStore{exists: tc.preferences}

			svc := NewStatusReconciler(identities, profiles, preferences, zaptest.NewLogger(t))

			got, err := svc.IsOnboardingComplete(context.Background(), "user-1")
			if err != nil {
				t.Fatalf("IsOnboardingComplete: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsOnboardingCompleteToleratesUnreadableStores(t *testing.T) {
	identities := &stubIdentityStore{getErr: errStoreDown}
	profiles := newStubProfileStore()
	profiles.getErr = errStoreDown
	preferences := &stubPreferenceStore{exists: true}

	svc := NewStatusReconciler(identities, profiles, preferences, zaptest.NewLogger(t))

	got, err := svc.IsOnboardingComplete(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("read path must not fail when a store is down: %v", err)
	}
	if !got {
		t.Fatal("remaining readable signal should drive the aggregate")
	}
}

func TestIsOnboardingCompleteUsesCache(t *testing.T) {
	identities := &stubIdentityStore{getErr: errStoreDown}
	profiles := newStubProfileStore()
	profiles.getErr = errStoreDown
	preferences := &stubPreferenceStore{existsErr: errStoreDown}

	cache := newStubStatusCache()
	cache.values["user-1"] = true

	svc := NewStatusReconciler(identities, profiles, preferences, zaptest.NewLogger(t)).
		WithStatusCache(cache, time.Minute)

	got, err := svc.IsOnboardingComplete(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("IsOnboardingComplete: %v", err)
	}
	if !got {
		t.Fatal("cached value should short-circuit the store fan-out")
	}
}

func TestIsOnboardingCompletePopulatesCacheOnMiss(t *testing.T) {
	identities := &stubIdentityStore{identity: &domain.Identity{
		ID:       "user-1",
		Metadata: map[string]any{"onboarding_complete": true},
	}}
	profiles := newStubProfileStore(activeProfile("user-1", false))
	preferences := &stubPreferenceStore{}
	cache := newStubStatusCache()

	svc := NewStatusReconciler(identities, profiles, preferences, zaptest.NewLogger(t)).
		WithStatusCache(cache, time.Minute)

	if _, err := svc.IsOnboardingComplete(context.Background(), "user-1"); err != nil {
		t.Fatalf("IsOnboardingComplete: %v", err)
	}
	if value, found := cache.values["user-1"]; !found || !value {
		t.Fatalf("expected cache to hold true, got %v found=%v", value, found)
	}
}

func TestReconcileRepairsDriftedProfile(t *testing.T) {
	identities := &stubIdentityStore{identity: &domain.Identity{
		ID:       "user-1",
		Metadata: map[string]any{"onboarding_complete": true},
	}}
	profiles := newStubProfileStore(activeProfile("user-1", false))
	preferences := &stubPreferenceStore{}

	svc := NewStatusReconciler(identities, profiles, preferences, zaptest.NewLogger(t))

	result, err := svc.Reconcile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Value {
		t.Fatal("aggregate should be true")
	}
	if !result.Fixed {
		t.Fatal("drifted profile flag should have been repaired")
	}
	if !profiles.profiles["user-1"].OnboardingComplete {
		t.Fatal("profile flag not written")
	}
}

func TestReconcileRepairsDriftedMetadata(t *testing.T) {
	identities := &stubIdentityStore{identity: &domain.Identity{
		ID:       "user-1",
		Metadata: map[string]any{},
	}}
	profiles := newStubProfileStore(activeProfile("user-1", true))
	preferences := &stubPreferenceStore{}

	svc := NewStatusReconciler(identities, profiles, preferences, zaptest.NewLogger(t))

	result, err := svc.Reconcile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Fixed {
		t.Fatal("drifted metadata flag should have been repaired")
	}
	if len(identities.metadataWrites) != 1 {
		t.Fatalf("expected one metadata write, got %d", len(identities.metadataWrites))
	}
	if v, ok := identities.metadataWrites[0]["onboarding_complete"].(bool); !ok || !v {
		t.Fatalf("unexpected metadata patch: %v", identities.metadataWrites[0])
	}
}

func TestReconcileSkipsMetadataRepairWhenIdentityUnreadable(t *testing.T) {
	identities := &stubIdentityStore{getErr: errStoreDown}
	profiles := newStubProfileStore(activeProfile("user-1", true))
	preferences := &stubPreferenceStore{}

	svc := NewStatusReconciler(identities, profiles, preferences, zaptest.NewLogger(t))

	result, err := svc.Reconcile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !result.Value {
		t.Fatal("aggregate should be true")
	}
	if len(identities.metadataWrites) != 0 {
		t.Fatal("must not write metadata when the identity record was unreadable")
	}
}

func TestReconcileFailedRepairIsNotSurfaced(t *testing.T) {
	identities := &stubIdentityStore{identity: &domain.Identity{
		ID:       "user-1",
		Metadata: map[string]any{"onboarding_complete": true},
	}}
	profiles := newStubProfileStore(activeProfile("user-1", false))
	profiles.setOnboardingErr = errStoreDown
	preferences := &stubPreferenceStore{}

	svc := NewStatusReconciler(identities, profiles, preferences, zaptest.NewLogger(t))

	result, err := svc.Reconcile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("repair failures must not surface: %v", err)
	}
	if !result.Value {
		t.Fatal("aggregate should still be true")
	}
	if result.Fixed {
		t.Fatal("failed repair must not be reported as fixed")
	}
}

func TestReconcileUnknownUser(t *testing.T) {
	svc := NewStatusReconciler(&stubIdentityStore{}, newStubProfileStore(), &stubPreferenceStore{}, zaptest.NewLogger(t))

	_, err := svc.Reconcile(context.Background(), "ghost")

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestEnsureProfileCreatesRow(t *testing.T) {
	profiles := newStubProfileStore()
	svc := NewStatusReconciler(&stubIdentityStore{}, profiles, &stubPreferenceStore{}, zaptest.NewLogger(t))

	profile, err := svc.EnsureProfile(context.Background(), "user-1", "Avery", "avery@example.com")
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if profile.Name != "Avery" || profile.Email != "avery@example.com" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestEnsureProfileRequiresUserID(t *testing.T) {
	svc := NewStatusReconciler(&stubIdentityStore{}, newStubProfileStore(), &stubPreferenceStore{}, zaptest.NewLogger(t))

	_, err := svc.EnsureProfile(context.Background(), "  ", "Avery", "avery@example.com")

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
