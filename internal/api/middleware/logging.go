package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ericfisherdev/projectsync/internal/metrics"
)

// LoggingConfig holds configuration for the logging middleware.
type LoggingConfig struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	SkipPaths []string
}

// LoggingMiddleware logs one structured line per request and records the
// HTTP metrics. Skipped paths are still measured.
func LoggingMiddleware(config LoggingConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		latency := time.Since(started)

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		status := c.Writer.Status()
		config.Metrics.ObserveHTTP(c.Request.Method, endpoint, strconv.Itoa(status), latency)

		if skip[c.Request.URL.Path] {
			return
		}

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", latency,
			"client_ip", c.ClientIP(),
			"request_id", GetRequestID(c),
		}
		if id, ok := identity(c); ok {
			attrs = append(attrs, "user_id", id.UserID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			config.Logger.Error("HTTP request", attrs...)
		case status >= 400:
			config.Logger.Warn("HTTP request", attrs...)
		default:
			config.Logger.Info("HTTP request", attrs...)
		}
	}
}
