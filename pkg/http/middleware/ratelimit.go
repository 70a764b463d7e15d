package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Limiter is a keyed token bucket.
type Limiter interface {
	Allow(key string) bool
	RetryAfter(key string) time.Duration
}

// RateLimit rejects requests from a client IP that has no tokens left.
func RateLimit(l Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if l.Allow(key) {
				return next(c)
			}
			wait := int(math.Ceil(l.RetryAfter(key).Seconds()))
			c.Response().Header().Set("Retry-After", strconv.Itoa(max(wait, 1)))
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"status":  http.StatusTooManyRequests,
				"message": "Rate limit exceeded, please try again later.",
			})
		}
	}
}
