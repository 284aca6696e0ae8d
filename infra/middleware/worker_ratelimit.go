package middleware

import (
	"fmt"
	"strconv"
	"time"

	"subscription_server/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// UserRateLimiter is a Redis fixed-window limiter keyed by the authenticated user.
type UserRateLimiter struct {
	redis  *redis.Client
	name   string
	limit  int
	window time.Duration
}

func NewUserRateLimiter(client *redis.Client, name string, limit int, window time.Duration) *UserRateLimiter {
	return &UserRateLimiter{redis: client, name: name, limit: limit, window: window}
}

func (rl *UserRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rl.redis == nil || rl.limit <= 0 {
			return c.Next()
		}
		userID, ok := c.Locals("user_id").(uuid.UUID)
		if !ok {
			return c.Next()
		}

		window := time.Now().Unix() / int64(rl.window.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%s:%d", rl.name, userID, window)

		pipe := rl.redis.TxPipeline()
		incr := pipe.Incr(c.Context(), key)
		pipe.Expire(c.Context(), key, rl.window)
		if _, err := pipe.Exec(c.Context()); err != nil {
			// Redis 장애 시 요청은 통과
			logger.WithError(err).Warn("rate limiter unavailable")
			return c.Next()
		}

		count := int(incr.Val())
		remaining := rl.limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > rl.limit {
			retryAfter := rl.window - time.Duration(time.Now().Unix()%int64(rl.window.Seconds()))*time.Second
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retryAfter.Seconds())))
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}
