package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kstash/work-better/internal/core/domain"
	"github.com/kstash/work-better/internal/core/port"
	"github.com/kstash/work-better/internal/infra/config"
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

type eventEnvelope struct {
	EventID     string            `json:"event_id"`
	EventType   string            `json:"event_type"`
	PrincipalID string            `json:"principal_id,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Version     string            `json:"version"`
	Payload     any               `json:"payload"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, principalID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	envelope := eventEnvelope{
		EventID:     id,
		EventType:   eventType,
		PrincipalID: principalID,
		Timestamp:   ts.UTC(),
		Version:     schemaVersion,
		Payload:     payload,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
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

// PublishLoginSucceeded publishes auth.login.succeeded events.
func (p *EventPublisher) PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error {
	payload := struct {
		PrincipalID string    `json:"principal_id"`
		Username    string    `json:"username"`
		SourceIP    string    `json:"source_ip,omitempty"`
		UserAgent   string    `json:"user_agent,omitempty"`
		OccurredAt  time.Time `json:"occurred_at"`
	}{
		PrincipalID: event.PrincipalID,
		Username:    event.Username,
		SourceIP:    event.SourceIP,
		UserAgent:   event.UserAgent,
		OccurredAt:  event.OccurredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.login.succeeded", event.PrincipalID, event.OccurredAt, payload)
}

// PublishLoginFailed publishes auth.login.failed events.
func (p *EventPublisher) PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error {
	payload := struct {
		Username   string    `json:"username"`
		Status     string    `json:"status"`
		SourceIP   string    `json:"source_ip,omitempty"`
		UserAgent  string    `json:"user_agent,omitempty"`
		OccurredAt time.Time `json:"occurred_at"`
	}{
		Username:   event.Username,
		Status:     string(event.Status),
		SourceIP:   event.SourceIP,
		UserAgent:  event.UserAgent,
		OccurredAt: event.OccurredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.login.failed", "", event.OccurredAt, payload)
}

// PublishSessionRevoked publishes auth.session.revoked events.
func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := struct {
		PrincipalID string    `json:"principal_id"`
		Reason      string    `json:"reason"`
		OccurredAt  time.Time `json:"occurred_at"`
	}{
		PrincipalID: event.PrincipalID,
		Reason:      event.Reason,
		OccurredAt:  event.OccurredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.session.revoked", event.PrincipalID, event.OccurredAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
