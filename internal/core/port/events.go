package port

import (
	"context"

	"github.com/planora/account-service/internal/core/domain"
)

// EventPublisher publishes account-lifecycle events to the message bus.
type EventPublisher interface {
	PublishDeletionRequested(ctx context.Context, event domain.DeletionRequestedEvent) error
	PublishDeletionRecovered(ctx context.Context, event domain.DeletionRecoveredEvent) error
	PublishDeletionPurged(ctx context.Context, event domain.DeletionPurgedEvent) error
	PublishEmailChanged(ctx context.Context, event domain.EmailChangedEvent) error
}
