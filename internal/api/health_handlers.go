// Package api provides HTTP API handlers for the SwipeHire API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/swipehire/swipehire-api/internal/middleware"
)

// HealthChecker reports whether an external dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// readyTimeout bounds the whole readiness probe. Kubernetes probes have
// their own timeout; answering late is as bad as answering unhealthy.
const readyTimeout = 5 * time.Second

// dependency is a named checker consulted by the readiness probe.
type dependency struct {
	name    string
	checker HealthChecker
}

// HealthHandlers serves the liveness and readiness probes.
type HealthHandlers struct {
	deps []dependency
}

// HealthHandlersConfig configures the health check handlers. Nil checkers
// are skipped; a deployment on in-memory repositories has no dependencies
// to probe.
type HealthHandlersConfig struct {
	DBChecker    HealthChecker
	RedisChecker HealthChecker
}

func NewHealthHandlers(config HealthHandlersConfig) *HealthHandlers {
	h := &HealthHandlers{}
	if config.DBChecker != nil {
		h.deps = append(h.deps, dependency{name: "database", checker: config.DBChecker})
	}
	if config.RedisChecker != nil {
		h.deps = append(h.deps, dependency{name: "redis", checker: config.RedisChecker})
	}
	return h
}

// HealthResponse is the JSON body of both probes.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

func (h *HealthHandlers) requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet {
		return true
	}
	ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
	WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	return false
}

func writeHealth(w http.ResponseWriter, status int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("failed to encode health response", "error", err)
	}
}

// Health handles GET /health, the liveness probe. Answering at all means
// the process is alive, so no dependencies are consulted.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if !h.requireGet(w, r) {
		return
	}

	writeHealth(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Checks:    map[string]string{"runtime": "ok"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready, the readiness probe. Every configured
// dependency must answer, or the instance is taken out of rotation
// with a 503.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	if !h.requireGet(w, r) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	healthy := true
	for _, dep := range h.deps {
		if err := dep.checker.HealthCheck(ctx); err != nil {
			checks[dep.name] = "error"
			healthy = false
			slog.WarnContext(ctx, "dependency health check failed",
				"dependency", dep.name, "error", err)
			continue
		}
		checks[dep.name] = "ok"
	}

	status, statusCode := "healthy", http.StatusOK
	if !healthy {
		status, statusCode = "unhealthy", http.StatusServiceUnavailable
	}

	writeHealth(w, statusCode, HealthResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
