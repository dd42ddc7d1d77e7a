package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// windowTTL keeps counter keys around a little past their minute so slow
// consumers still observe a full window.
const windowTTL = 2 * time.Minute

// FixedWindowLimiter counts requests per organization per minute in Redis.
// The counter store is shared across instances, which is what makes the
// per-minute limit meaningful behind a load balancer. When Redis is
// unreachable the limiter degrades to a per-process token bucket instead of
// failing the request path.
type FixedWindowLimiter struct {
	client   *redis.Client
	logger   *zap.Logger
	fallback *localLimiter
}

func NewFixedWindowLimiter(client *redis.Client, logger *zap.Logger) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		client:   client,
		logger:   logger.Named("RateLimiter"),
		fallback: newLocalLimiter(),
	}
}

// Allow reports whether the caller identified by key may proceed under
// limitPerMinute. A non-positive limit disables limiting for the key.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string, limitPerMinute int) bool {
	if limitPerMinute <= 0 {
		return true
	}

	window := time.Now().Unix() / 60
	bucket := fmt.Sprintf("ratelimit:%s:%d", key, window)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, bucket)
	pipe.Expire(ctx, bucket, windowTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("Redis rate limit counter unavailable, using local fallback",
			zap.String("key", key),
			zap.Error(err),
		)
		return l.fallback.allow(key, limitPerMinute)
	}

	return incr.Val() <= int64(limitPerMinute)
}

// localLimiter is the degraded mode: one token bucket per key, refilled at
// the per-minute rate. Counts are per process, not shared.
type localLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{buckets: make(map[string]*rate.Limiter)}
}

func (l *localLimiter) allow(key string, limitPerMinute int) bool {
	l.mu.Lock()
	lim, ok := l.buckets[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(limitPerMinute)/60.0), limitPerMinute)
		l.buckets[key] = lim
	}
	l.mu.Unlock()

	return lim.Allow()
}
