package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Counter is the part of a Redis client the rate limiter needs
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RateLimit allows perMinute requests per client IP in each clock minute.
// Counters live in Redis so the limit holds across API replicas. When
// Redis is unreachable requests pass through.
func RateLimit(rdb Counter, perMinute int, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rdb == nil || perMinute <= 0 {
			return c.Next()
		}

		now := time.Now()
		window := now.Unix() / 60
		key := fmt.Sprintf("rl:ip:%s:minute:%d", c.IP(), window)
		ctx := c.UserContext()

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Warn().Err(err).Msg("rate limit check failed")
			return c.Next()
		}
		if count == 1 {
			if err := rdb.Expire(ctx, key, 2*time.Minute).Err(); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limit counter expiry not set")
			}
		}

		reset := (window + 1) * 60
		remaining := int64(perMinute) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

		if count > int64(perMinute) {
			retryAfter := reset - now.Unix()
			c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(retryAfter, 10))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":       "rate_limit_exceeded",
				"message":     "Too many calculation requests per minute",
				"limit":       perMinute,
				"retry_after": retryAfter,
			})
		}

		return c.Next()
	}
}
