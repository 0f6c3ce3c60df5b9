package question

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	tokenKey = "opentdb:session_token"

	// Open Trivia DB tokens expire after six hours of inactivity; keep
	// ours a little shorter so we refresh before the server forgets it.
	tokenTTL = 5 * time.Hour
)

// RedisTokenStore persists the session token in Redis so restarts do not
// reset question deduplication.
type RedisTokenStore struct {
	client redis.UniversalClient
}

// NewRedisTokenStore creates a TokenStore backed by the given client.
func NewRedisTokenStore(client redis.UniversalClient) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

// Token returns the stored token, or empty when none is set.
func (s *RedisTokenStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, tokenKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get session token: %w", err)
	}
	// Sliding expiry: any use keeps the token alive.
	s.client.Expire(ctx, tokenKey, tokenTTL)
	return token, nil
}

// SetToken stores the token with the sliding TTL.
func (s *RedisTokenStore) SetToken(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, tokenKey, token, tokenTTL).Err(); err != nil {
		return fmt.Errorf("set session token: %w", err)
	}
	return nil
}

// ClearToken drops the stored token.
func (s *RedisTokenStore) ClearToken(ctx context.Context) error {
	if err := s.client.Del(ctx, tokenKey).Err(); err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	return nil
}
