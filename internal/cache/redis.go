package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// redisCache implements Cache on top of a Redis client, relying on Redis
// server-side key expiry for the TTL semantics.
type redisCache struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedis creates a Redis-backed cache.
func NewRedis(client *redis.Client, logger zerolog.Logger) Cache {
	return &redisCache{
		client: client,
		logger: logger.With().Str("cache", "redis").Logger(),
	}
}

// Set stores value under key with the given TTL.
func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("failed to set cache key")
		return fmt.Errorf("failed to set cache key: %w", err)
	}
	return nil
}

// Get returns the value for key, or ErrCacheMiss when absent or expired.
func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		c.logger.Error().Err(err).Str("key", key).Msg("failed to get cache key")
		return nil, fmt.Errorf("failed to get cache key: %w", err)
	}
	return value, nil
}

// Delete removes key.
func (c *redisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("failed to delete cache key")
		return fmt.Errorf("failed to delete cache key: %w", err)
	}
	return nil
}
