package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/civic-service-portal/internal/metrics"
)

// RequestLogger logs one line per request and records HTTP metrics.
// The metrics endpoint itself is neither logged nor counted.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/metrics" {
				return next(c)
			}
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			dur := time.Since(start)
			status := c.Response().Status
			metrics.RecordHTTPRequest(c.Request().Method, c.Path(), status, dur)

			entry := log.WithFields(logrus.Fields{
				"method":      c.Request().Method,
				"path":        c.Request().URL.Path,
				"route":       c.Path(),
				"status":      status,
				"duration_ms": dur.Milliseconds(),
				"actor_id":    currentUserID(c),
				"request_id":  c.Response().Header().Get(echo.HeaderXRequestID),
			})
			switch {
			case status >= 500:
				entry.Error("request")
			case status >= 400:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
			return nil
		}
	}
}
