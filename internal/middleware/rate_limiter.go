package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/HiteshriGautam/Store-Rating-System/internal/metrics"
	"github.com/HiteshriGautam/Store-Rating-System/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiterConfig defines rate limiting rules
type RateLimiterConfig struct {
	MaxRequests int           // Maximum requests allowed in the window
	Window      time.Duration // Fixed window length
	Prefix      string        // Separates counters of different route groups
}

// RateLimiter is a fixed-window, per-IP request counter in Redis.
type RateLimiter struct {
	redis  *redis.Client
	config RateLimiterConfig
}

func NewRateLimiter(redisClient *redis.Client, config RateLimiterConfig) *RateLimiter {
	if config.Prefix == "" {
		config.Prefix = "default"
	}
	return &RateLimiter{
		redis:  redisClient,
		config: config,
	}
}

// Middleware rejects callers over the limit with 429. Redis failures let the
// request through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		remaining, retryAfter, err := rl.CheckLimit(c.Request.Context(), clientIP)
		if err != nil {
			logger.Log.Warn("Rate limiter unavailable, allowing request",
				zap.String("ip", clientIP),
				zap.Error(err),
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))

		if remaining < 0 {
			metrics.RateLimited.Inc()
			seconds := int(retryAfter.Round(time.Second).Seconds())
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"retry_after": seconds,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CheckLimit counts one request for key. remaining goes negative once the
// limit is exceeded, and retryAfter is then the time left in the window.
func (rl *RateLimiter) CheckLimit(ctx context.Context, key string) (remaining int, retryAfter time.Duration, err error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", rl.config.Prefix, key)

	// SET NX EX opens the window with its expiry and INCR keeps the TTL, so a
	// counter never exists without one.
	var incr *redis.IntCmd
	_, err = rl.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, redisKey, 0, rl.config.Window)
		incr = pipe.Incr(ctx, redisKey)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	count := incr.Val()

	remaining = rl.config.MaxRequests - int(count)
	if remaining >= 0 {
		return remaining, 0, nil
	}

	ttl, err := rl.redis.TTL(ctx, redisKey).Result()
	if err != nil || ttl < 0 {
		ttl = rl.config.Window
	}
	return remaining, ttl, nil
}
