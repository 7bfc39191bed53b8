package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kstash/work-better/internal/core/port"
	"github.com/kstash/work-better/internal/repository"
)

// SessionStore keeps the single active refresh token per principal in Redis,
// one key per principal with the refresh-token lifetime as native TTL.
type SessionStore struct {
	client *redis.Client
	prefix string
}

// NewSessionStore constructs a store using the provided client and key prefix.
func NewSessionStore(client *redis.Client, prefix string) *SessionStore {
	if prefix == "" {
		prefix = "auth:refresh_token"
	}
	return &SessionStore{client: client, prefix: prefix}
}

// Set overwrites the principal's refresh token unconditionally. Overwrite
// semantics are intentional: the latest login wins.
func (s *SessionStore) Set(ctx context.Context, principalID, refreshToken string, ttl time.Duration) error {
	if principalID == "" {
		return fmt.Errorf("principal id is required")
	}
	if refreshToken == "" {
		return fmt.Errorf("refresh token is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	if err := s.client.Set(ctx, s.key(principalID), refreshToken, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Get returns the stored refresh token, or repository.ErrNotFound when the
// principal has no live session (never created, expired, or deleted).
func (s *SessionStore) Get(ctx context.Context, principalID string) (string, error) {
	if principalID == "" {
		return "", fmt.Errorf("principal id is required")
	}

	value, err := s.client.Get(ctx, s.key(principalID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}

	return value, nil
}

// Delete removes the principal's session. Deleting an absent key is not an error.
func (s *SessionStore) Delete(ctx context.Context, principalID string) error {
	if principalID == "" {
		return fmt.Errorf("principal id is required")
	}

	if err := s.client.Del(ctx, s.key(principalID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

func (s *SessionStore) key(principalID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, principalID)
}

var _ port.SessionStore = (*SessionStore)(nil)
