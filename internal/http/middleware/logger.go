// Package middleware holds the HTTP middleware shared by every route:
// request IDs, the request-scoped zerolog logger and panic recovery.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Logger builds a child of base for each request carrying request_id,
// method, path and ip, stores it in the request context, and writes one
// line when the request completes. Severity follows the status class:
// 5xx Error, 4xx Warn, everything else Info.
//
// It must run after RequestID.
func Logger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLog := base.With().
				Str("request_id", GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("ip", r.RemoteAddr).
				Logger()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(reqLog.WithContext(r.Context())))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			var e *zerolog.Event
			switch {
			case status >= 500:
				e = reqLog.Error()
			case status >= 400:
				e = reqLog.Warn()
			default:
				e = reqLog.Info()
			}

			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				e = e.Str("route", rctx.RoutePattern())
			}

			e.
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("latency", time.Since(start)).
				Str("user_agent", r.UserAgent()).
				Msg("API")
		})
	}
}

// GetLogger returns the request-scoped logger, or a disabled logger when
// Logger did not run.
func GetLogger(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
