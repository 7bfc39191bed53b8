package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kstash/work-better/internal/core/domain"
	"github.com/kstash/work-better/internal/core/port"
	"github.com/kstash/work-better/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// brokers are configured, typically in development.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(log *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: log}
}

func (p *StubPublisher) logEvent(eventType string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	all := append([]zap.Field{
		zap.String("event_type", eventType),
		zap.Time("timestamp", at.UTC()),
	}, fields...)

	p.logger.Info("stub event published", all...)
}

// PublishLoginSucceeded logs auth.login.succeeded events.
func (p *StubPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	p.logEvent("auth.login.succeeded", event.OccurredAt,
		zap.String("principal_id", event.PrincipalID),
		zap.String("username", logger.MaskEmail(event.Username)),
	)
	return nil
}

// PublishLoginFailed logs auth.login.failed events.
func (p *StubPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	p.logEvent("auth.login.failed", event.OccurredAt,
		zap.String("username", logger.MaskEmail(event.Username)),
		zap.String("status", string(event.Status)),
	)
	return nil
}

// PublishSessionRevoked logs auth.session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.logEvent("auth.session.revoked", event.OccurredAt,
		zap.String("principal_id", event.PrincipalID),
		zap.String("reason", event.Reason),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
