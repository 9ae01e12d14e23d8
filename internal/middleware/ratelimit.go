// Package middleware contains Echo middleware shared by the HTTP routes.
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/skyreserve/inventory-reservation/internal/config"
)

// RateLimit enforces a fixed-window request limit per client IP and route
// using a Redis counter.  When the limiter is disabled or rdb is nil the
// middleware passes every request through, and Redis errors fail open so a
// cache outage never blocks reservations.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	windowSec := int64(cfg.Window / time.Second)
	if windowSec < 1 {
		windowSec = 1
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			window := time.Now().Unix() / windowSec
			key := fmt.Sprintf("%s:%s:%s:%d", cfg.Prefix, c.RealIP(), c.Path(), window)

			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if n == 1 {
				_ = rdb.Expire(ctx, key, cfg.Window).Err()
			}
			if n > int64(cfg.Limit) {
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", windowSec))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
