// Package session resolves bearer tokens to the identity of the caller.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 30 * 24 * time.Hour

var ErrSessionNotFound = errors.New("session not found or expired")

type sessionData struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisStore maps hashed bearer tokens to user ids.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "session:",
	}
}

func (s *RedisStore) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + hex.EncodeToString(sum[:])
}

// SaveSession binds token to userID until expiresAt. A zero or past expiry
// falls back to DefaultTTL.
func (s *RedisStore) SaveSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	if token == "" || userID == "" {
		return fmt.Errorf("save session: token and user id are required")
	}

	jsonData, err := json.Marshal(sessionData{
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if err := s.client.Set(ctx, s.key(token), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LookupUserID returns the user bound to token, or ErrSessionNotFound.
func (s *RedisStore) LookupUserID(ctx context.Context, token string) (string, error) {
	jsonData, err := s.client.Get(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup session: %w", err)
	}

	var data sessionData
	if err := json.Unmarshal([]byte(jsonData), &data); err != nil {
		return "", fmt.Errorf("unmarshal session: %w", err)
	}
	if data.UserID == "" {
		return "", ErrSessionNotFound
	}

	return data.UserID, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
