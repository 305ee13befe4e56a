package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/politicianfinder/evalengine/pkg/metrics"
)

// MetricsMiddleware records request count, latency and error class for
// next under endpoint, a fixed route name rather than the raw path, so
// politician ids never become label values.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		durationMs := float64(time.Since(start).Milliseconds())
		code := strconv.Itoa(status)

		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, durationMs)

		if errorType, severity, ok := classifyStatus(status); ok {
			metrics.RecordErrorByEndpoint(endpoint, r.Method, errorType)
			metrics.RecordErrorByType(errorType, severity)
			metrics.RecordErrorLatency("http", errorType, durationMs)
		}
	}
}

// classifyStatus maps an error status to the error type and severity labels
// written by writeError. ok is false for non-error statuses.
func classifyStatus(status int) (errorType, severity string, ok bool) {
	switch {
	case status < http.StatusBadRequest:
		return "", "", false
	case status == http.StatusServiceUnavailable:
		return "unavailable", "high", true
	case status >= http.StatusInternalServerError:
		return "server_error", "high", true
	case status == http.StatusTooManyRequests:
		return "backpressure", "medium", true
	case status == http.StatusNotFound:
		return "not_found", "low", true
	default:
		return "client_error", "medium", true
	}
}
