package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newEmailFixture(t *testing.T, profiles *stubProfileStore) (*EmailChangeCoordinator, *stubVerificationSender, *recordingPublisher) {
	t.Helper()
	verifier := &stubVerificationSender{}
	events := &recordingPublisher{}
	svc := NewEmailChangeCoordinator(profiles, verifier, events, zaptest.NewLogger(t)).
		WithClock(fixedClock)
	return svc, verifier, events
}

func TestRequestEmailChangeRecordsPendingAndSendsChallenge(t *testing.T) {
	profiles := newStubProfileStore(activeProfile("user-1", true))
	svc, verifier, _ := newEmailFixture(t, profiles)

	receipt, err := svc.RequestEmailChange(context.Background(), "user-1", "user-1", "New@Example.com")
	if err != nil {
		t.Fatalf("RequestEmailChange: %v", err)
	}
	if !receipt.Accepted {
		t.Fatalf("expected acceptance, got %+v", receipt)
	}

	profile := profiles.profiles["user-1"]
	if profile.PendingEmailChange == nil || *profile.PendingEmailChange != "new@example.com" {
		t.Fatalf("pending change %v, want new@example.com", profile.PendingEmailChange)
	}
	if profile.Email != "avery@example.com" {
		t.Fatal("authoritative email must not change before verification")
	}
	if len(verifier.sent) != 1 || verifier.sent[0] != "new@example.com" {
		t.Fatalf("unexpected challenges: %v", verifier.sent)
	}
}

func TestRequestEmailChangeRejectsNonOwner(t *testing.T) {
	profiles := newStubProfileStore(activeProfile("user-1", true))
	svc, _, _ := newEmailFixture(t, profiles)

	_, err := svc.RequestEmailChange(context.Background(), "intruder", "user-1", "new@example.com")

	var permission *PermissionError
	if !errors.As(err, &permission) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
}

func TestRequestEmailChangeValidatesAddress(t *testing.T) {
	profiles := newStubProfileStore(activeProfile("user-1", true))
	svc, _, _ := newEmailFixture(t, profiles)

	_, err := svc.RequestEmailChange(context.Background(), "user-1", "user-1", "not-an-address")

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRequestEmailChangeSameAddressIsRejectedWithoutError(t *testing.T) {
	profiles := newStubProfileStore(activeProfile("user-1", true))
	svc, verifier, _ := newEmailFixture(t, profiles)

	receipt, err := svc.RequestEmailChange(context.Background(), "user-1", "user-1", "Avery@Example.com")
	if err != nil {
		t.Fatalf("RequestEmailChange: %v", err)
	}
	if receipt.Accepted {
		t.Fatal("same address must not be accepted")
	}
	if len(verifier.sent) != 0 {
		t.Fatal("no challenge may be sent for the current address")
	}
}

func TestRequestEmailChangeDuplicatePendingDoesNotResend(t *testing.T) {
	pending := "new@example.com"
	profile := activeProfile("user-1", true)
	profile.PendingEmailChange = &pending
	profiles := newStubProfileStore(profile)
	svc, verifier, _ := newEmailFixture(t, profiles)

	receipt, err := svc.RequestEmailChange(context.Background(), "user-1", "user-1", "new@example.com")
	if err != nil {
		t.Fatalf("RequestEmailChange: %v", err)
	}
	if !receipt.Accepted {
		t.Fatal("duplicate submission should be accepted")
	}
	if len(verifier.sent) != 0 {
		t.Fatal("duplicate submission must not re-send the challenge")
	}
}

func TestRequestEmailChangeRestoresPendingWhenChallengeFails(t *testing.T) {
	previous := "earlier@example.com"
	profile := activeProfile("user-1", true)
	profile.PendingEmailChange = &previous
	profiles := newStubProfileStore(profile)

	svc, verifier, _ := newEmailFixture(t, profiles)
	verifier.sendErr = errStoreDown

	_, err := svc.RequestEmailChange(context.Background(), "user-1", "user-1", "new@example.com")
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected challenge failure to surface, got %v", err)
	}

	var partial *PartialFailureError
	if errors.As(err, &partial) {
		t.Fatalf("compensated rollback must not report partial failure: %v", err)
	}

	got := profiles.profiles["user-1"].PendingEmailChange
	if got == nil || *got != previous {
		t.Fatalf("pending change %v, want restored %q", got, previous)
	}
}

func TestRequestEmailChangeEnforcesRateLimit(t *testing.T) {
	profiles := newStubProfileStore(activeProfile("user-1", true))
	svc, _, _ := newEmailFixture(t, profiles)
	svc.WithRateLimit(&stubRateLimitStore{}, 2, time.Hour)

	for i := 0; i < 2; i++ {
		addr := "a@example.com"
		if i == 1 {
			addr = "b@example.com"
		}
		if _, err := svc.RequestEmailChange(context.Background(), "user-1", "user-1", addr); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}

	_, err := svc.RequestEmailChange(context.Background(), "user-1", "user-1", "c@example.com")

	var limited *RateLimitExceededError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitExceededError, got %v", err)
	}
	if limited.RetryAfter <= 0 || limited.RetryAfter > time.Hour {
		t.Fatalf("unexpected retry-after: %v", limited.RetryAfter)
	}
}

func TestCompleteEmailChangePromotesVerifiedAddress(t *testing.T) {
	pending := "new@example.com"
	profile := activeProfile("user-1", true)
	profile.PendingEmailChange = &pending
	profiles := newStubProfileStore(profile)
	svc, _, events := newEmailFixture(t, profiles)

	if err := svc.CompleteEmailChange(context.Background(), "user-1", "New@Example.com"); err != nil {
		t.Fatalf("CompleteEmailChange: %v", err)
	}

	got := profiles.profiles["user-1"]
	if got.Email != "new@example.com" {
		t.Fatalf("email %q, want new@example.com", got.Email)
	}
	if got.PendingEmailChange != nil {
		t.Fatal("pending change should be cleared")
	}
	if !got.EmailVerified {
		t.Fatal("address should be marked verified")
	}
	if len(events.changed) != 1 || events.changed[0].NewEmail != "new@example.com" {
		t.Fatalf("unexpected events: %+v", events.changed)
	}
}

func TestCompleteEmailChangeIgnoresMismatchedCallback(t *testing.T) {
	pending := "new@example.com"
	profile := activeProfile("user-1", true)
	profile.PendingEmailChange = &pending
	profiles := newStubProfileStore(profile)
	svc, _, events := newEmailFixture(t, profiles)

	if err := svc.CompleteEmailChange(context.Background(), "user-1", "other@example.com"); err != nil {
		t.Fatalf("mismatched callback must be a no-op: %v", err)
	}

	if profiles.profiles["user-1"].Email != "avery@example.com" {
		t.Fatal("email must not change on a mismatched callback")
	}
	if len(events.changed) != 0 {
		t.Fatal("no event may be published for an ignored callback")
	}
}

func TestCompleteEmailChangeReplayedCallbackIsHarmless(t *testing.T) {
	pending := "new@example.com"
	profile := activeProfile("user-1", true)
	profile.PendingEmailChange = &pending
	profiles := newStubProfileStore(profile)
	svc, _, events := newEmailFixture(t, profiles)

	if err := svc.CompleteEmailChange(context.Background(), "user-1", "new@example.com"); err != nil {
		t.Fatalf("first callback: %v", err)
	}
	if err := svc.CompleteEmailChange(context.Background(), "user-1", "new@example.com"); err != nil {
		t.Fatalf("replayed callback: %v", err)
	}
	if len(events.changed) != 1 {
		t.Fatalf("replay must not publish a second event, got %d", len(events.changed))
	}
}

func TestCompleteEmailChangeUnknownProfile(t *testing.T) {
	svc, _, _ := newEmailFixture(t, newStubProfileStore())

	err := svc.CompleteEmailChange(context.Background(), "ghost", "new@example.com")

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
