package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// requestLogger replaces gin's default logger so access lines share the JSON
// stream with the rest of the server. Successful requests stay at debug; the
// websocket upgrade would otherwise drown everything else out.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"ip", c.ClientIP(),
			"duration_ms", time.Since(start).Milliseconds(),
			"response_bytes", c.Writer.Size(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			logger.Error("http request", attrs...)
		case status >= 400:
			logger.Warn("http request", attrs...)
		default:
			logger.Debug("http request", attrs...)
		}
	}
}

// newServerErrorWriter bridges net/http's error log onto slog. Handshake
// failures for hosts outside the configured domain are discarded; scanners
// hammer the TLS port constantly and the HostPolicy rejection already tells
// the whole story.
func newServerErrorWriter(logger *slog.Logger) io.Writer {
	return &serverErrorWriter{logger: logger}
}

type serverErrorWriter struct {
	logger *slog.Logger
}

func (w *serverErrorWriter) Write(p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	if line == "" {
		return len(p), nil
	}
	if strings.Contains(line, "TLS handshake error") && strings.Contains(line, "not configured") {
		return len(p), nil
	}
	w.logger.Log(context.Background(), slog.LevelWarn, "http server error", "detail", line)
	return len(p), nil
}
