package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "ratelimit:"

// fixedWindowScript increments the counter for the current window and sets
// its expiry on first hit. Returns {count, pttl_ms}.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local window_ms = tonumber(ARGV[1])

	local count = redis.call('INCR', key)
	if count == 1 then
		redis.call('PEXPIRE', key, window_ms)
	end

	local ttl = redis.call('PTTL', key)
	if ttl < 0 then
		redis.call('PEXPIRE', key, window_ms)
		ttl = window_ms
	end

	return {count, ttl}
`)

// HitWindow records one hit against the fixed window identified by bucket,
// identity and window length. It returns the hit count inside the window and
// the time at which the window resets.
func (c *Cache) HitWindow(ctx context.Context, bucket, identity string, window time.Duration) (int64, time.Time, error) {
	key := fmt.Sprintf("%s%s:%s:%d", rateLimitPrefix, bucket, hashIP(identity), window.Milliseconds())

	result, err := fixedWindowScript.Run(ctx, c.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("rate limit script failed: %w", err)
	}

	return result[0], time.Now().Add(time.Duration(result[1]) * time.Millisecond), nil
}

// hashIP keeps raw client addresses out of Redis.
func hashIP(ip string) string {
	hash := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(hash[:8])
}
