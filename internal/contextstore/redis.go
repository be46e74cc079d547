package contextstore

import (
	"context"
	"errors"
	"time"

	"github.com/chatcat/chatcat/internal/cache"
)

// RedisBackend stores contexts in Redis with an optional TTL.
type RedisBackend struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewRedisBackend creates a RedisBackend. ttl <= 0 stores without expiry.
func NewRedisBackend(c *cache.Cache, ttl time.Duration) *RedisBackend {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisBackend{cache: c, ttl: ttl}
}

// Save stores text under key.
func (r *RedisBackend) Save(ctx context.Context, key, text string) error {
	return r.cache.SetContextText(ctx, key, text, r.ttl)
}

// Load returns the text stored under key, or ErrNotFound.
func (r *RedisBackend) Load(ctx context.Context, key string) (string, error) {
	text, err := r.cache.GetContextText(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", ErrNotFound
	}
	return text, err
}
