package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"image-pipeline/internal/metrics"
)

// metricsResponseWriter wraps http.ResponseWriter to capture the status code.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{w, http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are paths that should not be recorded
	SkipPaths []string

	// PublicPath is the image-serving URL prefix. Everything beneath it is
	// collapsed into a single label value to keep cardinality bounded.
	PublicPath string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig(publicPath string) MetricsConfig {
	return MetricsConfig{
		SkipPaths:  []string{"/metrics", "/health", "/healthz", "/livez", "/readyz"},
		PublicPath: publicPath,
	}
}

// Metrics returns a middleware that records Prometheus metrics
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newMetricsResponseWriter(w)
			start := time.Now()

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			path := normalizePath(r.URL.Path, config.PublicPath)
			status := strconv.Itoa(wrapped.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// normalizePath avoids per-image label cardinality: each image request has a
// unique URL, so everything under the public prefix records as one series.
func normalizePath(path, publicPath string) string {
	if publicPath != "" && strings.HasPrefix(path, publicPath) {
		return strings.TrimSuffix(publicPath, "/") + "/{image}"
	}
	return path
}
