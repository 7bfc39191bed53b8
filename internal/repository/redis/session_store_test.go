package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/kstash/work-better/internal/repository"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestSessionStore_SetAndGet(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewSessionStore(client, "auth:refresh_token")

	ctx := context.Background()
	ttl := 24 * time.Hour

	if err := store.Set(ctx, "user-1", "token-abc", ttl); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != "token-abc" {
		t.Fatalf("expected token-abc, got %s", got)
	}

	remaining := server.TTL("auth:refresh_token:user-1")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected ttl within (0, %v], got %v", ttl, remaining)
	}
}

func TestSessionStore_OverwriteWins(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewSessionStore(client, "auth:refresh_token")

	ctx := context.Background()

	if err := store.Set(ctx, "user-1", "first-login", time.Hour); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := store.Set(ctx, "user-1", "second-login", time.Hour); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, err := store.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != "second-login" {
		t.Fatalf("expected second-login to supersede, got %s", got)
	}
}

func TestSessionStore_GetAbsent(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewSessionStore(client, "auth:refresh_token")

	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionStore_GetAfterExpiry(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewSessionStore(client, "auth:refresh_token")

	ctx := context.Background()

	if err := store.Set(ctx, "user-1", "token-abc", time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	server.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "user-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestSessionStore_DeleteIdempotent(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewSessionStore(client, "auth:refresh_token")

	ctx := context.Background()

	if err := store.Set(ctx, "user-1", "token-abc", time.Hour); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := store.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := store.Get(ctx, "user-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Absent key is not an error.
	if err := store.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete of absent key returned error: %v", err)
	}
}

func TestSessionStore_InvalidInput(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewSessionStore(client, "auth:refresh_token")

	ctx := context.Background()

	if err := store.Set(ctx, "", "token", time.Hour); err == nil {
		t.Fatalf("expected error for empty principal id")
	}
	if err := store.Set(ctx, "user-1", "", time.Hour); err == nil {
		t.Fatalf("expected error for empty token")
	}
	if err := store.Set(ctx, "user-1", "token", 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
}
