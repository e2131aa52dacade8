// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// staticRoutes are recorded under their own path label without rewriting.
var staticRoutes = map[string]bool{
	"/":                     true,
	"/feed":                 true,
	"/items":                true,
	"/swipes":               true,
	"/matches":              true,
	"/conversations":        true,
	"/interviews":           true,
	"/uploads/sign":         true,
	"/telemetry/playback":   true,
	"/canary/metrics":       true,
	"/canary/metrics/reset": true,
	"/canary/rollback":      true,
	"/health":               true,
	"/ready":                true,
	"/metrics":              true,
}

// collectionActions lists the subresources reachable under /{collection}/{id}/.
// A collection with an empty set only has the bare /{collection}/{id} form.
var collectionActions = map[string]map[string]bool{
	"items":         {"engagement": true, "moderation": true},
	"matches":       {"advance": true, "reject": true, "stage": true},
	"conversations": {"messages": true, "ws": true},
	"interviews":    {"reschedule": true, "complete": true, "cancel": true},
	"follows":       {},
	"profiles":      {"viewer": true, "avatar": true},
}

// normalizePath rewrites dynamic path segments to route patterns so the
// path label stays bounded. /items/9f2c... becomes /items/{id}.
// Unknown paths pass through unchanged.
func normalizePath(path string) string {
	if staticRoutes[path] {
		return path
	}

	parts := strings.Split(path, "/")
	if len(parts) < 3 || parts[0] != "" || parts[2] == "" {
		return path
	}
	actions, ok := collectionActions[parts[1]]
	if !ok {
		return path
	}

	switch len(parts) {
	case 3:
		return "/" + parts[1] + "/{id}"
	case 4:
		if actions[parts[3]] {
			return "/" + parts[1] + "/{id}/" + parts[3]
		}
	}
	return path
}

// metricsResponseWriter captures the status code and bytes written for a response.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader records the first status code; later calls are ignored.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// Unwrap returns the wrapped http.ResponseWriter.
func (mrw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return mrw.ResponseWriter
}

// HTTPMetrics records duration, size, and count metrics for each request.
// Health probes (/health, /ready) are skipped.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			mrw := newMetricsResponseWriter(w)

			requestSize := int64(0)
			if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
				if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
					requestSize = size
				}
			}

			next.ServeHTTP(mrw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(mrw.statusCode),
				time.Since(start).Seconds(),
				requestSize,
				mrw.size,
			)
		})
	}
}
