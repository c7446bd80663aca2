package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const signInRatePrefix = "rl:signin:"

// SignInRateLimit caps sign-in attempts per email (or client IP when the body
// carries none) in fixed one-minute windows. It fails open without Redis or
// when Redis errors.
func SignInRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		var req struct {
			Email string `json:"email"`
		}
		_ = c.BodyParser(&req)
		subject := strings.ToLower(strings.TrimSpace(req.Email))
		if subject == "" {
			subject = c.IP()
		}

		key := signInRatePrefix + subject
		ctx := c.UserContext()
		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			if logger != nil {
				logger.Warn("sign-in rate limit unavailable", "error", err)
			}
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(ctx, key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many sign-in attempts, try again later")
		}
		return c.Next()
	}
}
