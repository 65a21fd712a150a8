package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, s
}

func TestSaveAndLookupSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveSession(ctx, "token-1", "user-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	userID, err := store.LookupUserID(ctx, "token-1")
	if err != nil {
		t.Fatalf("LookupUserID failed: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("expected user-1, got %s", userID)
	}
}

func TestTokensAreStoredHashed(t *testing.T) {
	store, s := setupTestRedis(t)

	if err := store.SaveSession(context.Background(), "plain-token", "user-1", time.Time{}); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	if s.Exists("session:plain-token") {
		t.Fatalf("raw token must not be used as key")
	}
	if !s.Exists(store.key("plain-token")) {
		t.Fatalf("expected hashed key to exist")
	}
}

func TestLookupExpiredSession(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	if err := store.SaveSession(ctx, "short", "user-1", time.Now().Add(time.Second)); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	s.FastForward(2 * time.Second)

	if _, err := store.LookupUserID(ctx, "short"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLookupUnknownSession(t *testing.T) {
	store, _ := setupTestRedis(t)

	if _, err := store.LookupUserID(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSaveSessionRequiresFields(t *testing.T) {
	store, _ := setupTestRedis(t)

	if err := store.SaveSession(context.Background(), "", "user-1", time.Time{}); err == nil {
		t.Fatalf("expected error for empty token")
	}
}
