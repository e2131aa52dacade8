package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/swipehire/swipehire-api/internal/middleware"
)

// CanaryHandler exposes the canary rollout's operational endpoints: metrics
// snapshots, window resets, and manual rollback.
type CanaryHandler struct {
	router *middleware.CanaryRouter
	logger *slog.Logger
}

// CanaryActionResponse acknowledges a rollback or reset.
type CanaryActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// NewCanaryHandler creates a new canary handler.
func NewCanaryHandler(router *middleware.CanaryRouter, logger *slog.Logger) *CanaryHandler {
	return &CanaryHandler{router: router, logger: logger}
}

func (h *CanaryHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode canary response", "error", err)
	}
}

// GetMetrics handles GET /canary/metrics.
func (h *CanaryHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.router.GetMetrics())
}

// Rollback handles POST /canary/rollback. The optional body carries a
// reason for the audit log.
func (h *CanaryHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
		req.Reason = "manual_rollback"
	}

	h.router.Rollback(req.Reason)
	h.logger.Info("manual canary rollback triggered", "reason", req.Reason)

	h.writeJSON(w, CanaryActionResponse{
		Success: true,
		Message: "Canary deployment rolled back",
		Reason:  req.Reason,
	})
}

// ResetMetrics handles POST /canary/metrics/reset.
func (h *CanaryHandler) ResetMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.router.ResetMetrics()
	h.logger.Info("canary metrics window reset")

	h.writeJSON(w, CanaryActionResponse{
		Success: true,
		Message: "Canary metrics reset",
	})
}
