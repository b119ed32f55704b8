package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	requestIDHeader = "X-Request-Id"
	maxRequestIDLen = 64
)

type loggerKey struct{}

// requestLogger tags each request with an id, stores a request-scoped logger
// in the context, and records the outcome.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id, _ = gonanoid.New(12)
		}
		w.Header().Set(requestIDHeader, id)

		logger := s.logger.With("request_id", id, "method", r.Method, "path", r.URL.Path)
		ctx := context.WithValue(r.Context(), loggerKey{}, logger)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		s.svc.Metrics.ObserveRequest(r.Method, route, strconv.Itoa(status), elapsed.Seconds())

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(r.Context(), level, "request", "status", status, "bytes", ww.BytesWritten(), "elapsed", elapsed)
	})
}

// loggerFrom returns the request-scoped logger, falling back to fallback.
func loggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return fallback
}
