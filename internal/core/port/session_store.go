package port

import (
	"context"
	"time"

	"github.com/kstash/work-better/internal/repository"
)

// ErrSessionNotFound aliases the repository sentinel so callers can test for
// an absent session without importing the repository package directly.
var ErrSessionNotFound = repository.ErrNotFound

// SessionStore holds the single active refresh token per principal with a
// native TTL. Set overwrites unconditionally (latest login wins); Delete of an
// absent key is not an error. All operations are atomic at the key level.
type SessionStore interface {
	Set(ctx context.Context, principalID, refreshToken string, ttl time.Duration) error
	Get(ctx context.Context, principalID string) (string, error)
	Delete(ctx context.Context, principalID string) error
}
