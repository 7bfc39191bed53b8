package port

import (
	"context"

	"github.com/kstash/work-better/internal/core/domain"
)

// EventPublisher publishes authentication lifecycle events to the message bus.
// Publishing is fire-and-forget: failures are logged by implementations and
// never propagate into the auth flow.
type EventPublisher interface {
	PublishLoginSucceeded(ctx context.Context, event domain.LoginSucceededEvent) error
	PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error
	PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error
}
