package middlewares

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"okrproject/logger"
	"okrproject/metrics"

	"github.com/google/uuid"
)

const (
	RequestIDHeader                  = "X-Request-ID"
	RequestIDContextKey   contextKey = "request_id"
	maxIncomingRequestIDs            = 128
)

// RequestID tags every request with an id, reusing a sane incoming X-Request-ID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxIncomingRequestIDs {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIDContextKey, id)))
	})
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return id
	}
	return ""
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// AccessLog logs one line per request and feeds the latency histogram. It
// must wrap the mux so the matched route pattern is known afterwards.
func AccessLog(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			pattern := r.Pattern
			if pattern == "" {
				pattern = "unmatched"
			}
			metrics.HTTPRequestDuration.WithLabelValues(pattern, strconv.Itoa(rec.status)).Observe(elapsed.Seconds())

			kv := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"pattern", pattern,
				"status", rec.status,
				"duration_ms", elapsed.Milliseconds(),
				"request_id", GetRequestID(r.Context()),
			}
			switch {
			case rec.status >= 500:
				log.Error("request failed", kv...)
			case rec.status >= 400:
				log.Warn("request rejected", kv...)
			default:
				log.Info("request served", kv...)
			}
		})
	}
}

// Chain applies middlewares so that the first one listed runs first.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
