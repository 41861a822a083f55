package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/planora/account-service/internal/core/domain"
	"github.com/planora/account-service/internal/repository"
)

// stubProfileStore is an in-memory ProfileStore with per-method error
// injection.
type stubProfileStore struct {
	profiles map[string]*domain.Profile

	getErr              error
	upsertErr           error
	setOnboardingErr    error
	setStatusErr        error
	setPendingEmailErr  error
	applyVerifiedErr    error
	deleteErr           error
	setStatusCalls      int
	setOnboardingCalls  int
	pendingEmailHistory []string
}

func newStubProfileStore(profiles ...*domain.Profile) *stubProfileStore {
	s := &stubProfileStore{profiles: make(map[string]*domain.Profile)}
	for _, p := range profiles {
		s.profiles[p.UserID] = p
	}
	return s
}

func (s *stubProfileStore) Get(_ context.Context, userID string) (*domain.Profile, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *p
	return &copy, nil
}

func (s *stubProfileStore) Upsert(_ context.Context, userID string, patch domain.ProfilePatch) (*domain.Profile, error) {
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	p, ok := s.profiles[userID]
	if !ok {
		p = &domain.Profile{UserID: userID, AccountStatus: domain.AccountStatusActive}
		s.profiles[userID] = p
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Email != nil {
		p.Email = *patch.Email
	}
	if patch.Location != nil {
		p.Location = *patch.Location
	}
	copy := *p
	return &copy, nil
}

func (s *stubProfileStore) SetOnboardingComplete(_ context.Context, userID string, complete bool) error {
	s.setOnboardingCalls++
	if s.setOnboardingErr != nil {
		return s.setOnboardingErr
	}
	p, ok := s.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	p.OnboardingComplete = complete
	return nil
}

func (s *stubProfileStore) SetAccountStatus(_ context.Context, userID string, status domain.AccountStatus, deletionRequestedAt *time.Time) error {
	s.setStatusCalls++
	if s.setStatusErr != nil {
		return s.setStatusErr
	}
	p, ok := s.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	p.AccountStatus = status
	p.DeletionRequestedAt = deletionRequestedAt
	return nil
}

func (s *stubProfileStore) SetPendingEmailChange(_ context.Context, userID string, newEmail string) error {
	s.pendingEmailHistory = append(s.pendingEmailHistory, newEmail)
	if s.setPendingEmailErr != nil {
		return s.setPendingEmailErr
	}
	p, ok := s.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if newEmail == "" {
		p.PendingEmailChange = nil
	} else {
		p.PendingEmailChange = &newEmail
	}
	p.EmailVerified = false
	return nil
}

func (s *stubProfileStore) ApplyVerifiedEmail(_ context.Context, userID string, email string) error {
	if s.applyVerifiedErr != nil {
		return s.applyVerifiedErr
	}
	p, ok := s.profiles[userID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Email = email
	p.PendingEmailChange = nil
	p.EmailVerified = true
	return nil
}

func (s *stubProfileStore) Delete(_ context.Context, userID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.profiles[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.profiles, userID)
	return nil
}

// stubRequestStore is an in-memory DeletionRequestStore.
type stubRequestStore struct {
	requests map[string]*domain.DeletionRequest

	insertErr       error
	updateStatusErr error
	findErr         error
}

func newStubRequestStore(requests ...*domain.DeletionRequest) *stubRequestStore {
	s := &stubRequestStore{requests: make(map[string]*domain.DeletionRequest)}
	for _, r := range requests {
		s.requests[r.ID] = r
	}
	return s
}

func (s *stubRequestStore) Insert(_ context.Context, req domain.DeletionRequest) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	copy := req
	s.requests[req.ID] = &copy
	return nil
}

func (s *stubRequestStore) UpdateStatus(_ context.Context, id string, status domain.DeletionRequestStatus) error {
	if s.updateStatusErr != nil {
		return s.updateStatusErr
	}
	r, ok := s.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	r.Status = status
	return nil
}

func (s *stubRequestStore) FindByTokenHash(_ context.Context, tokenHash string) (*domain.DeletionRequest, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, r := range s.requests {
		if r.RecoveryTokenHash == tokenHash {
			copy := *r
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubRequestStore) FindPendingByUser(_ context.Context, userID string) (*domain.DeletionRequest, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, r := range s.requests {
		if r.UserID == userID && r.IsPending() {
			copy := *r
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubRequestStore) ListDue(_ context.Context, reference time.Time, limit int) ([]domain.DeletionRequest, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	var due []domain.DeletionRequest
	for _, r := range s.requests {
		if r.Due(reference) {
			due = append(due, *r)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

// stubPreferenceStore reports a fixed existence value.
type stubPreferenceStore struct {
	exists    bool
	existsErr error
	deleteErr error
	deleted   []string
}

func (s *stubPreferenceStore) Exists(context.Context, string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	return s.exists, nil
}

func (s *stubPreferenceStore) Delete(_ context.Context, userID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, userID)
	return nil
}

// stubIdentityStore serves a single identity record.
type stubIdentityStore struct {
	identity *domain.Identity

	getErr    error
	updateErr error
	deleteErr error

	metadataWrites []map[string]any
	deleted        []string
}

func (s *stubIdentityStore) GetUser(_ context.Context, id string) (*domain.Identity, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.identity == nil || s.identity.ID != id {
		return nil, repository.ErrNotFound
	}
	copy := *s.identity
	return &copy, nil
}

func (s *stubIdentityStore) UpdateMetadata(_ context.Context, id string, metadata map[string]any) error {
	s.metadataWrites = append(s.metadataWrites, metadata)
	if s.updateErr != nil {
		return s.updateErr
	}
	if s.identity == nil || s.identity.ID != id {
		return repository.ErrNotFound
	}
	if s.identity.Metadata == nil {
		s.identity.Metadata = map[string]any{}
	}
	for k, v := range metadata {
		s.identity.Metadata[k] = v
	}
	return nil
}

func (s *stubIdentityStore) Delete(_ context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, id)
	return nil
}

// recordingPublisher captures every published event.
type recordingPublisher struct {
	requested []domain.DeletionRequestedEvent
	recovered []domain.DeletionRecoveredEvent
	purged    []domain.DeletionPurgedEvent
	changed   []domain.EmailChangedEvent
}

func (p *recordingPublisher) PublishDeletionRequested(_ context.Context, event domain.DeletionRequestedEvent) error {
	p.requested = append(p.requested, event)
	return nil
}

func (p *recordingPublisher) PublishDeletionRecovered(_ context.Context, event domain.DeletionRecoveredEvent) error {
	p.recovered = append(p.recovered, event)
	return nil
}

func (p *recordingPublisher) PublishDeletionPurged(_ context.Context, event domain.DeletionPurgedEvent) error {
	p.purged = append(p.purged, event)
	return nil
}

func (p *recordingPublisher) PublishEmailChanged(_ context.Context, event domain.EmailChangedEvent) error {
	p.changed = append(p.changed, event)
	return nil
}

// stubStatusCache is an in-memory OnboardingStatusCache.
type stubStatusCache struct {
	values map[string]bool

	getErr error
	setErr error

	sets        int
	invalidated []string
}

func newStubStatusCache() *stubStatusCache {
	return &stubStatusCache{values: make(map[string]bool)}
}

func (s *stubStatusCache) Get(_ context.Context, userID string) (bool, bool, error) {
	if s.getErr != nil {
		return false, false, s.getErr
	}
	value, found := s.values[userID]
	return value, found, nil
}

func (s *stubStatusCache) Set(_ context.Context, userID string, complete bool, _ time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.sets++
	s.values[userID] = complete
	return nil
}

func (s *stubStatusCache) Invalidate(_ context.Context, userID string) error {
	s.invalidated = append(s.invalidated, userID)
	delete(s.values, userID)
	return nil
}

// stubVerificationSender records challenge sends.
type stubVerificationSender struct {
	sendErr error
	sent    []string
}

func (s *stubVerificationSender) SendEmailChangeChallenge(_ context.Context, _ string, newEmail string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, newEmail)
	return nil
}

// stubRateLimitStore keeps attempts in a slice.
type stubRateLimitStore struct {
	attempts []time.Time
}

func (s *stubRateLimitStore) TrimWindow(_ context.Context, _ string, window time.Duration, reference time.Time) error {
	cutoff := reference.Add(-window)
	kept := s.attempts[:0]
	for _, at := range s.attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	s.attempts = kept
	return nil
}

func (s *stubRateLimitStore) CountAttempts(_ context.Context, _ string, window time.Duration, reference time.Time) (int, error) {
	cutoff := reference.Add(-window)
	count := 0
	for _, at := range s.attempts {
		if at.After(cutoff) && !at.After(reference) {
			count++
		}
	}
	return count, nil
}

func (s *stubRateLimitStore) RecordAttempt(_ context.Context, _ string, at time.Time) error {
	s.attempts = append(s.attempts, at)
	return nil
}

func (s *stubRateLimitStore) OldestAttempt(_ context.Context, _ string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	cutoff := reference.Add(-window)
	var oldest time.Time
	found := false
	for _, at := range s.attempts {
		if at.After(cutoff) && !at.After(reference) {
			if !found || at.Before(oldest) {
				oldest = at
				found = true
			}
		}
	}
	return oldest, found, nil
}

var errStoreDown = errors.New("store down")
