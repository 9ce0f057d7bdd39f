// Package trace assigns request IDs, logs request start and completion
// and keeps the request counters served by the metrics endpoint.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"despeses/internal/log"
)

type requestIDKey struct{}

// Middleware traces every request passing through it.
type Middleware struct {
	extractIP func(*http.Request) string

	totalRequests      int64
	totalDurationMicro int64
}

// Metrics is a snapshot of the request counters.
type Metrics struct {
	TotalRequests     int64 `json:"total_requests"`
	AvgResponseMicros int64 `json:"avg_response_micros"`
}

// NewMiddleware creates a trace middleware. extractIP resolves the
// client IP for log lines; nil leaves it empty.
func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	return &Middleware{extractIP: extractIP}
}

// Middleware wraps next with request tracing. Each request gets an ID,
// a request-scoped logger in its context and start/completion log
// lines whose level follows the response status.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := GenerateRequestID()
		logger := slog.Default().With(
			log.FieldRequestID, requestID,
			log.FieldClientIP, clientIP,
		)

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		ctx = log.WithContext(ctx, logger)
		r = r.WithContext(ctx)

		logger.InfoContext(ctx, "HTTP request started",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			"query", r.URL.RawQuery,
			log.FieldUserAgent, r.Header.Get("User-Agent"),
			"content_length", r.ContentLength,
		)

		atomic.AddInt64(&m.totalRequests, 1)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		rw.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		atomic.AddInt64(&m.totalDurationMicro, duration.Microseconds())

		level := slog.LevelInfo
		switch {
		case rw.statusCode >= 500:
			level = slog.LevelError
		case rw.statusCode >= 400:
			level = slog.LevelWarn
		}

		logger.Log(ctx, level, "HTTP request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
		)
	})
}

// Metrics returns the counters accumulated so far.
func (m *Middleware) Metrics() Metrics {
	total := atomic.LoadInt64(&m.totalRequests)
	var avg int64
	if total > 0 {
		avg = atomic.LoadInt64(&m.totalDurationMicro) / total
	}
	return Metrics{TotalRequests: total, AvgResponseMicros: avg}
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// GenerateRequestID creates a unique ID for correlating log lines.
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Timestamp fallback if the random source fails.
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID returns the request ID attached by the middleware, or
// an empty string.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
