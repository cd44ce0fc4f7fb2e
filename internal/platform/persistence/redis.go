package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Raul302/Push-notifications-brazof/pkg/delivery"
)

// redisClient defines the interface we need from go-redis.
type redisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Close() error
}

// RedisTokenStore implements delivery.TokenStore on Redis string keys
// (`token:<userID>`). Intended for deployments that already run Redis and
// want credential lookups off the hot path of a relational store.
type RedisTokenStore struct {
	client redisClient
	logger zerolog.Logger
}

// NewRedisTokenStore is the constructor for the RedisTokenStore.
func NewRedisTokenStore(client redisClient, logger zerolog.Logger) (*RedisTokenStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	return &RedisTokenStore{
		client: client,
		logger: logger.With().Str("component", "redis_token_store").Logger(),
	}, nil
}

func tokenKey(userID string) string { return "token:" + userID }

// Put stores or replaces the user's push credential. Tokens never expire;
// they are only overwritten.
func (s *RedisTokenStore) Put(ctx context.Context, userID, token string) error {
	if err := s.client.Set(ctx, tokenKey(userID), token, 0).Err(); err != nil {
		return fmt.Errorf("failed to set token for %s: %w", userID, err)
	}
	s.logger.Debug().Str("user", userID).Msg("Token stored.")
	return nil
}

// Get returns the stored credential, or delivery.ErrTokenNotFound.
func (s *RedisTokenStore) Get(ctx context.Context, userID string) (string, error) {
	token, err := s.client.Get(ctx, tokenKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", delivery.ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get token for %s: %w", userID, err)
	}
	return token, nil
}

// Close releases the Redis client.
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}
