package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/planora/account-service/internal/core/domain"
	"github.com/planora/account-service/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without brokers.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishDeletionRequested logs deletion.requested events.
func (p *StubPublisher) PublishDeletionRequested(_ context.Context, event domain.DeletionRequestedEvent) error {
	p.logEvent("deletion.requested", event.UserID, event.RequestedAt, event)
	return nil
}

// PublishDeletionRecovered logs deletion.recovered events.
func (p *StubPublisher) PublishDeletionRecovered(_ context.Context, event domain.DeletionRecoveredEvent) error {
	p.logEvent("deletion.recovered", event.UserID, event.RecoveredAt, event)
	return nil
}

// PublishDeletionPurged logs deletion.purged events.
func (p *StubPublisher) PublishDeletionPurged(_ context.Context, event domain.DeletionPurgedEvent) error {
	p.logEvent("deletion.purged", event.UserID, event.PurgedAt, event)
	return nil
}

// PublishEmailChanged logs email.changed events.
func (p *StubPublisher) PublishEmailChanged(_ context.Context, event domain.EmailChangedEvent) error {
	p.logEvent("email.changed", event.UserID, event.ChangedAt, event)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
