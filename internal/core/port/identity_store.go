package port

import (
	"context"

	"github.com/planora/account-service/internal/core/domain"
)

// IdentityStore adapts the hosted identity backend. Metadata writes merge the
// supplied keys into the stored map; unrelated keys are preserved.
type IdentityStore interface {
	GetUser(ctx context.Context, id string) (*domain.Identity, error)
	UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error
	Delete(ctx context.Context, id string) error
}

// VerificationSender delivers an email-change verification challenge through
// the identity provider. The provider owns the challenge lifecycle; this
// service only triggers it.
type VerificationSender interface {
	SendEmailChangeChallenge(ctx context.Context, userID string, newEmail string) error
}
