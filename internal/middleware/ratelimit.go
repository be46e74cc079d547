package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chatcat/chatcat/internal/metrics"
	"github.com/chatcat/chatcat/internal/ratelimit"
)

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter *ratelimit.Limiter
	Metrics metrics.Recorder
	Enabled bool
}

// RateLimit returns middleware that counts each request against bucket for
// the client address. Every route it wraps shares one counter. Requests over
// any of the bucket's rules get 429 and never reach next. Counter failures
// let the request through.
//
// Apply after chi's RealIP so proxied clients are told apart.
func RateLimit(cfg RateLimitConfig, bucket string) func(http.Handler) http.Handler {
	return rateLimit(cfg, bucket, false)
}

// RateLimitPerRoute is RateLimit with a separate counter for each route it
// wraps, keyed by the chi route pattern. It must run after routing, inside a
// Group or With chain.
func RateLimitPerRoute(cfg RateLimitConfig, bucket string) func(http.Handler) http.Handler {
	return rateLimit(cfg, bucket, true)
}

func rateLimit(cfg RateLimitConfig, bucket string, perRoute bool) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || cfg.Limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			identity := ClientIP(r)
			counterKey := identity
			if perRoute {
				counterKey = identity + " " + routeScope(r)
			}

			result, err := cfg.Limiter.Allow(r.Context(), counterKey, bucket)
			if err != nil {
				logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("bucket", bucket),
					slog.String("ip", identity),
				)
				// Fail open - allow request
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, result)

			if !result.Allowed {
				retryAfter := retryAfterSeconds(result.RetryAfter)
				recorder.IncRateLimited(bucket)
				logger.Warn("rate limit exceeded",
					slog.String("bucket", bucket),
					slog.String("ip", identity),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.Int("limit", result.Limit),
					slog.Int("retry_after_seconds", retryAfter),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
					fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds rounds up so clients never retry before the window resets.
func retryAfterSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

// routeScope names the matched route, or the raw path when routing has not
// run yet.
func routeScope(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// setRateLimitHeaders sets standard rate limit response headers.
// Later buckets in a chain overwrite earlier ones, so the innermost
// (strictest) bucket is what the client sees.
func setRateLimitHeaders(w http.ResponseWriter, result ratelimit.Result) {
	if result.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	}
}

// ClientIP returns the host part of the request's remote address.
// chi's RealIP middleware has already replaced RemoteAddr with the
// forwarded client address when one is present.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
