package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a sliding-window limiter keyed by client IP, kept in a
// Redis sorted set so every gateway replica shares the count. It guards the
// login endpoint against password guessing.
type RateLimiter struct {
	redis     redis.UniversalClient
	limit     int
	window    time.Duration
	keyPrefix string
	log       *logger.Logger
	now       func() time.Time
}

func NewRateLimiter(client redis.UniversalClient, limit int, window time.Duration, log *logger.Logger) *RateLimiter {
	return &RateLimiter{
		redis:     client,
		limit:     limit,
		window:    window,
		keyPrefix: "ratelimit:login:",
		log:       log,
		now:       time.Now,
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, resetAt := rl.allow(r.Context(), rl.keyPrefix+clientIP(r))

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retry := int(resetAt.Sub(rl.now()).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allow fails open when Redis is unreachable.
func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, int, time.Time) {
	now := rl.now()
	windowStart := now.Add(-rl.window)

	pipe := rl.redis.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	count := pipe.ZCard(ctx, key)
	oldest := pipe.ZRangeWithScores(ctx, key, 0, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		rl.log.Warn("Rate limiter unavailable: %v", err)
		return true, rl.limit, now.Add(rl.window)
	}

	if int(count.Val()) >= rl.limit {
		resetAt := now.Add(rl.window)
		if zs := oldest.Val(); len(zs) > 0 {
			resetAt = time.Unix(0, int64(zs[0].Score)).Add(rl.window)
		}
		return false, 0, resetAt
	}

	pipe = rl.redis.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d-%d", now.UnixNano(), count.Val()),
	})
	pipe.Expire(ctx, key, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.log.Warn("Rate limiter unavailable: %v", err)
	}

	remaining := rl.limit - int(count.Val()) - 1
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, now.Add(rl.window)
}

// clientIP relies on chi's RealIP middleware having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
