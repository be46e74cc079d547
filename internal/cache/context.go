package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const contextKeyPrefix = "context:"

// SetContextText stores scraped text under a context key.
// A zero ttl stores the entry without expiry.
func (c *Cache) SetContextText(ctx context.Context, key, text string, ttl time.Duration) error {
	if err := c.client.Set(ctx, contextKeyPrefix+key, text, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store context: %w", err)
	}
	return nil
}

// GetContextText loads the text stored under key.
// Returns ErrCacheMiss if the key is absent or expired.
func (c *Cache) GetContextText(ctx context.Context, key string) (string, error) {
	text, err := c.client.Get(ctx, contextKeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("failed to load context: %w", err)
	}
	return text, nil
}
