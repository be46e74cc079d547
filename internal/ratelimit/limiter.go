package ratelimit

import (
	"context"
	"time"
)

// Bucket names.
const (
	BucketDefault    = "default"
	BucketProcessURL = "process_url"
	BucketChat       = "chat"
)

// Counter records hits in fixed windows.
type Counter interface {
	HitWindow(ctx context.Context, bucket, identity string, window time.Duration) (int64, time.Time, error)
}

// Result describes the outcome of a limit check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter applies per-bucket rules to client identities.
type Limiter struct {
	counter Counter
	buckets map[string][]Rule
	now     func() time.Time
}

// New creates a Limiter. buckets maps bucket name to the rules enforced on it.
func New(counter Counter, buckets map[string][]Rule) *Limiter {
	return &Limiter{
		counter: counter,
		buckets: buckets,
		now:     time.Now,
	}
}

// Rules returns the rules configured for bucket.
func (l *Limiter) Rules(bucket string) []Rule {
	return l.buckets[bucket]
}

// Allow records a hit for identity in bucket and reports whether every rule
// of the bucket still holds. Buckets without rules always allow.
//
// Rules are checked in order and checking stops at the first violation. On a
// counter error the request is allowed and the error returned so the caller
// can log it.
func (l *Limiter) Allow(ctx context.Context, identity, bucket string) (Result, error) {
	rules := l.buckets[bucket]
	if len(rules) == 0 {
		return Result{Allowed: true}, nil
	}

	var tightest Result
	for i, rule := range rules {
		count, resetAt, err := l.counter.HitWindow(ctx, bucket, identity, rule.Window)
		if err != nil {
			return Result{Allowed: true}, err
		}

		remaining := int64(rule.Limit) - count
		if remaining < 0 {
			remaining = 0
		}

		res := Result{
			Allowed:   count <= int64(rule.Limit),
			Limit:     rule.Limit,
			Remaining: remaining,
			ResetAt:   resetAt,
		}

		if !res.Allowed {
			res.RetryAfter = resetAt.Sub(l.now())
			if res.RetryAfter < time.Second {
				res.RetryAfter = time.Second
			}
			return res, nil
		}

		if i == 0 || res.Remaining < tightest.Remaining {
			tightest = res
		}
	}

	return tightest, nil
}
