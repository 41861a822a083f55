package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/planora/account-service/internal/core/domain"
	"github.com/planora/account-service/internal/core/port"
	"github.com/planora/account-service/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishDeletionRequested publishes account.deletion.requested events.
func (p *EventPublisher) PublishDeletionRequested(ctx context.Context, event domain.DeletionRequestedEvent) error {
	return p.publish(ctx, event.EventID, "deletion.requested", event.UserID, event.RequestedAt, event)
}

// PublishDeletionRecovered publishes account.deletion.recovered events.
func (p *EventPublisher) PublishDeletionRecovered(ctx context.Context, event domain.DeletionRecoveredEvent) error {
	return p.publish(ctx, event.EventID, "deletion.recovered", event.UserID, event.RecoveredAt, event)
}

// PublishDeletionPurged publishes account.deletion.purged events.
func (p *EventPublisher) PublishDeletionPurged(ctx context.Context, event domain.DeletionPurgedEvent) error {
	return p.publish(ctx, event.EventID, "deletion.purged", event.UserID, event.PurgedAt, event)
}

// PublishEmailChanged publishes account.email.changed events.
func (p *EventPublisher) PublishEmailChanged(ctx context.Context, event domain.EmailChangedEvent) error {
	return p.publish(ctx, event.EventID, "email.changed", event.UserID, event.ChangedAt, event)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
