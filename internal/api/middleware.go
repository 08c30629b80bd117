package api

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/jeevan-health/triage/internal/metrics"
	"github.com/jeevan-health/triage/pkg/schema"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// instrument wraps a route handler with panic recovery, request logging
// and request metrics labelled by route pattern.
func instrument(route string, h http.Handler, m *metrics.Collector, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		defer func() {
			if p := recover(); p != nil {
				logger.ErrorContext(r.Context(), "handler panic",
					slog.String("route", route), slog.Any("panic", p), slog.String("stack", string(debug.Stack())))
				if rec.status == 0 {
					writeError(rec, http.StatusInternalServerError, schema.ErrCodeInternal, "internal error")
				}
			}
			if rec.status == 0 {
				rec.status = http.StatusOK
			}
			elapsed := time.Since(start)
			m.ObserveHTTP(r.Method, route, rec.status, elapsed)
			logger.DebugContext(r.Context(), "request",
				slog.String("route", route), slog.Int("status", rec.status), slog.Duration("elapsed", elapsed))
		}()

		h.ServeHTTP(rec, r)
	})
}
