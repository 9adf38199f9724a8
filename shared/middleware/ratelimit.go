package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Limiter admits requests at a steady rate. With a Redis client it also
// enforces a fixed one-second window shared by every replica.
type Limiter struct {
	local  *rate.Limiter
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewLimiter returns nil when rps is zero or negative, meaning unlimited.
func NewLimiter(client *redis.Client, key string, rps, burst int, logger *zap.Logger) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = rps
	}
	return &Limiter{
		local:  rate.NewLimiter(rate.Limit(rps), burst),
		client: client,
		key:    key,
		logger: logger,
	}
}

// Allow reports whether one more request may proceed now.
func (l *Limiter) Allow(ctx context.Context) bool {
	if l == nil {
		return true
	}
	if !l.local.Allow() {
		return false
	}
	if l.client == nil {
		return true
	}

	window := l.key + ":" + time.Now().UTC().Format("20060102150405")
	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, window)
	pipe.Expire(ctx, window, 2*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("redis rate limit failed; using local limit only", zap.Error(err))
		return true
	}
	if incr.Val() > int64(l.local.Burst()) {
		l.logger.Warn("global rate limit exceeded", zap.Int64("count", incr.Val()))
		return false
	}
	return true
}

// RateLimit rejects requests with 429 once the limiter is exhausted.
func RateLimit(l *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.Request.Context()) {
			c.Header("Retry-After", "1")
			RespondWithError(c, http.StatusTooManyRequests, "Rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
