// Package ratelimit enforces a per-IP request budget backed by Redis. The
// limiter protects capacity, not correctness, so a Redis outage fails open.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sells-group/listing-aggregator/internal/config"
)

const keyPrefix = "ratelimit:"

// Limiter counts requests per client IP over a fixed window.
type Limiter struct {
	rdb    *redis.Client
	points int
	window time.Duration
}

// New creates a Limiter using the given Redis endpoint.
func New(cfg config.RateLimitConfig, redisAddr string) *Limiter {
	return &Limiter{
		rdb:    redis.NewClient(&redis.Options{Addr: redisAddr}),
		points: cfg.Points,
		window: cfg.Window(),
	}
}

// Allow consumes one point for ip. When the budget is exhausted it returns
// false with the time until the window resets. Redis errors allow the
// request through.
func (l *Limiter) Allow(ctx context.Context, ip string) (bool, time.Duration) {
	key := keyPrefix + ip

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		zap.L().Warn("rate limiter unavailable, failing open", zap.Error(err))
		return true, 0
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			zap.L().Warn("rate limiter expire failed", zap.Error(err))
		}
	}
	if count <= int64(l.points) {
		return true, 0
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = l.window
	}
	return false, ttl
}

// Close releases the underlying Redis connection.
func (l *Limiter) Close() error {
	return l.rdb.Close()
}

// Middleware rejects over-budget requests with 429 and a Retry-After
// header in whole seconds.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := l.Allow(r.Context(), clientIP(r))
		if !allowed {
			secs := int(retryAfter.Round(time.Second).Seconds())
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`)) //nolint:errcheck
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP resolves the caller's address, honoring proxy headers when
// present.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
