package middleware

import (
	"strings"
	"time"

	"github.com/bassista/go_reel/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs "METHOD path status in duration" for requests under prefix.
// Server errors are logged at error level, client errors at warn.
func RequestLogger(prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !strings.HasPrefix(path, prefix) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		entry := logger.WithComponent("http").WithFields(logrus.Fields{
			"status":      status,
			"duration_ms": elapsed.Milliseconds(),
		})
		format := "%s %s %d in %v"
		args := []any{c.Request.Method, path, status, elapsed.Round(time.Millisecond)}
		switch {
		case status >= 500:
			entry.Errorf(format, args...)
		case status >= 400:
			entry.Warnf(format, args...)
		default:
			entry.Infof(format, args...)
		}
	}
}
