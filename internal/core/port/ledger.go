package port

import (
	"context"
	"time"

	"github.com/kstash/work-better/internal/core/domain"
)

// AttemptLedger is the durable, append-only record of login attempts.
//
// Record errors must never fail the caller's auth flow; the orchestrator logs
// them and moves on. CountRecentFailures counts attempts with status
// INVALID_CREDENTIALS whose timestamp falls inside the window ending at
// reference; the window edge is inclusive.
type AttemptLedger interface {
	Record(ctx context.Context, attempt domain.LoginAttempt) error
	CountRecentFailures(ctx context.Context, username string, window time.Duration, reference time.Time) (int, error)
}
