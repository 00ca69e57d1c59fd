// Package middleware provides Echo middleware for logging, metrics and
// cross-origin policy.
package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger returns an Echo middleware that logs each request with slog.
// The route table is a catch-all, so the log line carries the upstream kind
// derived from the path instead of a route name.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			kind := "api"
			if strings.HasPrefix(req.URL.Path, "/static/") {
				kind = "static"
			}

			logger.Info("request",
				"method", req.Method,
				"path", req.URL.Path,
				"kind", kind,
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"remote_ip", c.RealIP(),
				"bytes_out", res.Size,
			)

			return err
		}
	}
}
