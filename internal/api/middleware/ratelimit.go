package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ejsmile/systech-aidd/internal/metrics"
)

// RateLimit defines limits for an endpoint pattern.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// RateLimiter implements per-IP fixed-window rate limiting backed by Redis.
// With no Redis client configured it passes every request through, so the
// API stays usable in development.
type RateLimiter struct {
	client *redis.Client
	limits map[string]RateLimit
	logger zerolog.Logger
}

// NewRateLimiter creates a rate limiter. client may be nil.
func NewRateLimiter(client *redis.Client, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		logger: logger,
		limits: map[string]RateLimit{
			"POST /api/v1/chat/message":    {30, time.Minute},
			"GET /api/v1/chat/history/":    {120, time.Minute},
			"DELETE /api/v1/chat/history/": {30, time.Minute},
			"GET /api/v1/statistics":       {60, time.Minute},
			"POST /api/v1/admin/query":     {10, time.Minute},
		},
	}
}

// Middleware enforces the configured limits.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.client == nil {
			next.ServeHTTP(w, r)
			return
		}

		endpoint, limit, ok := rl.match(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		window := time.Now().Unix() / int64(limit.Window.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%s:%d", endpoint, clientIP(r), window)

		count, err := rl.client.Incr(r.Context(), key).Result()
		if err != nil {
			// Redis trouble must not take the API down.
			rl.logger.Warn().Err(err).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			rl.client.Expire(r.Context(), key, limit.Window)
		}

		remaining := int64(limit.Requests) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit.Requests) {
			metrics.RateLimitHits.WithLabelValues(endpoint).Inc()
			rl.logger.Warn().
				Str("endpoint", endpoint).
				Str("ip", clientIP(r)).
				Msg("rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(int(limit.Window.Seconds())))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// match finds the limit for the request, prefix-matching patterns that end
// in a slash.
func (rl *RateLimiter) match(r *http.Request) (string, RateLimit, bool) {
	target := r.Method + " " + r.URL.Path
	for pattern, limit := range rl.limits {
		if strings.HasSuffix(pattern, "/") {
			if strings.HasPrefix(target, pattern) {
				return pattern, limit, true
			}
			continue
		}
		if target == pattern {
			return pattern, limit, true
		}
	}
	return "", RateLimit{}, false
}

// clientIP extracts the client address. RealIP middleware may have already
// rewritten RemoteAddr to a bare IP, in which case SplitHostPort fails and
// the value is used as is.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
