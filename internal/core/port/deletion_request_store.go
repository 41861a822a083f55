package port

import (
	"context"
	"time"

	"github.com/planora/account-service/internal/core/domain"
)

// DeletionRequestStore persists the deletion-request log. Requests are looked
// up by recovery-token hash, never by the raw token.
type DeletionRequestStore interface {
	Insert(ctx context.Context, req domain.DeletionRequest) error
	UpdateStatus(ctx context.Context, id string, status domain.DeletionRequestStatus) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*domain.DeletionRequest, error)
	FindPendingByUser(ctx context.Context, userID string) (*domain.DeletionRequest, error)
	// ListDue returns pending requests whose scheduled purge time is at or
	// before the reference instant, oldest first.
	ListDue(ctx context.Context, reference time.Time, limit int) ([]domain.DeletionRequest, error)
}
