package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"PulseWatch/pkg/logger"
)

// RequestLogging logs every request at debug, 5xx at error and slow
// requests at warn.
func RequestLogging(log *logger.Logger, slow time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req, res := c.Request(), c.Response()
			elapsed := time.Since(start)
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("route", routeOf(c)),
				logger.Int("status", res.Status),
				logger.String("remote", c.RealIP()),
				logger.Duration("duration_ms", elapsed),
				logger.Int64("bytes", res.Size),
			}
			switch {
			case res.Status >= 500:
				log.Error("http request failed", fields...)
			case slow > 0 && elapsed >= slow:
				log.Warn("http request slow", fields...)
			default:
				log.Debug("http request", fields...)
			}
			return nil
		}
	}
}

func routeOf(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return c.Request().URL.Path
}
