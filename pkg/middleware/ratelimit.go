package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/grinplace/pkg/httputil"
	"github.com/platinummonkey/grinplace/pkg/observability"
)

// RateLimitConfig is a fixed window limit
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the window
	RequestsPerWindow int
	// WindowDuration is the window length
	WindowDuration time.Duration
}

// DefaultLoginRateLimitConfig allows 10 login attempts per minute per client
func DefaultLoginRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Minute,
	}
}

// RateLimiter counts requests per key in Redis so limits are shared across
// instances.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	prefix string
}

// NewRateLimiter creates a Redis-backed fixed window limiter
func NewRateLimiter(client *redis.Client, config RateLimitConfig, prefix string) *RateLimiter {
	if config.RequestsPerWindow <= 0 || config.WindowDuration <= 0 {
		config = DefaultLoginRateLimitConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RateLimiter{
		redis:  client,
		config: config,
		prefix: prefix,
	}
}

func (rl *RateLimiter) redisKey(key string) string {
	return fmt.Sprintf("%s:%s", rl.prefix, key)
}

// Allow counts a request against key. On Redis errors the request is
// allowed and the error returned.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := rl.redisKey(key)

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rl.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		ttl = pipe.TTL(ctx, redisKey)
		return nil
	})
	if err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}
	count := incr.Val()

	// A counter without an expiry starts the window, including one left
	// behind by an earlier failed EXPIRE.
	if ttl.Val() < 0 {
		if err := rl.redis.Expire(ctx, redisKey, rl.config.WindowDuration).Err(); err != nil {
			return true, fmt.Errorf("redis error: %w", err)
		}
	}

	return count <= int64(rl.config.RequestsPerWindow), nil
}

// Remaining returns the requests left in the current window
func (rl *RateLimiter) Remaining(ctx context.Context, key string) (int, error) {
	count, err := rl.redis.Get(ctx, rl.redisKey(key)).Int()
	if err == redis.Nil {
		return rl.config.RequestsPerWindow, nil
	}
	if err != nil {
		return 0, err
	}

	remaining := rl.config.RequestsPerWindow - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// TTL returns the time until the window resets
func (rl *RateLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rl.redis.TTL(ctx, rl.redisKey(key)).Result()
}

// Reset clears the window for key
func (rl *RateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, rl.redisKey(key)).Err()
}

// RateLimitMiddleware limits requests per client IP
type RateLimitMiddleware struct {
	limiter  *RateLimiter
	scope    string
	metrics  *observability.Metrics
	clientIP func(*http.Request) string
}

// NewRateLimitMiddleware limits requests per client IP under scope, e.g.
// "login". metrics may be nil.
func NewRateLimitMiddleware(limiter *RateLimiter, scope string, metrics *observability.Metrics) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter:  limiter,
		scope:    scope,
		metrics:  metrics,
		clientIP: httputil.ClientIP,
	}
}

// TrustProxyHeaders keys clients by X-Forwarded-For or X-Real-IP instead of
// the connection address. Enable only behind a proxy that sets them.
func (m *RateLimitMiddleware) TrustProxyHeaders(trust bool) *RateLimitMiddleware {
	if trust {
		m.clientIP = httputil.ProxiedClientIP
	} else {
		m.clientIP = httputil.ClientIP
	}
	return m
}

// Handler wraps next with the limit. Redis failures fail open.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := m.scope + ":" + m.clientIP(r)

		allowed, err := m.limiter.Allow(ctx, key)
		if err != nil {
			observability.FromContext(ctx).WithError(err).Warn("Rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		limit := strconv.Itoa(m.limiter.config.RequestsPerWindow)
		if !allowed {
			m.metrics.RecordRateLimited(m.scope)
			m.rateLimitExceeded(ctx, w, key, limit)
			return
		}

		w.Header().Set("X-RateLimit-Limit", limit)
		if remaining, err := m.limiter.Remaining(ctx, key); err == nil {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) rateLimitExceeded(ctx context.Context, w http.ResponseWriter, key, limit string) {
	retryAfter := m.limiter.config.WindowDuration
	if ttl, err := m.limiter.TTL(ctx, key); err == nil && ttl > 0 {
		retryAfter = ttl
	}
	seconds := int64(math.Ceil(retryAfter.Seconds()))

	w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
	w.Header().Set("X-RateLimit-Limit", limit)
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(retryAfter).Unix(), 10))
	httputil.WriteTooManyRequests(w, "too many requests, try again later")
}
