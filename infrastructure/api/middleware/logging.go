// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/facegate/facegate/internal/log"
)

// Logging returns a middleware that logs one line per completed request,
// carrying the request and correlation IDs. Health probes and interactive
// frame verifications poll continuously, so those paths log at debug to keep
// the default feed readable. Run CorrelationID before this middleware so the
// correlation ID is in the context.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if isPollingPath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.LogAttrs(r.Context(), level, "request completed",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("correlation_id", log.CorrelationID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

// isPollingPath reports whether the path is hit in a tight client loop.
func isPollingPath(path string) bool {
	return strings.HasPrefix(path, "/health") ||
		strings.HasSuffix(path, "/verify/frame")
}
