package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/swipehire/swipehire-api/internal/middleware"
)

// maxPlaybackBatch caps a single telemetry submission. Clients flush every
// few seconds, so batches larger than this indicate a misbehaving client.
const maxPlaybackBatch = 100

// playbackMetricNames is the set of measurements clients are allowed to
// report. Unknown names are dropped rather than rejected so that older
// servers tolerate newer clients.
var playbackMetricNames = map[string]bool{
	"startup_ms":       true,
	"stall_count":      true,
	"watch_seconds":    true,
	"abandon_position": true,
}

// TelemetryHandlers ingests client playback telemetry. Accepted metrics are
// emitted as structured log lines for the downstream aggregation pipeline.
type TelemetryHandlers struct {
	logger *slog.Logger
}

func NewTelemetryHandlers(logger *slog.Logger) *TelemetryHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelemetryHandlers{logger: logger}
}

// PlaybackMetric is a single measurement taken during video playback.
type PlaybackMetric struct {
	ItemID         string  `json:"item_id"`
	Name           string  `json:"name"`
	Value          float64 `json:"value"`
	SessionID      string  `json:"session_id,omitempty"`
	ConnectionType string  `json:"connection_type,omitempty"`
	Timestamp      int64   `json:"timestamp"` // unix millis
}

// PlaybackBatch is the request payload for POST /telemetry/playback.
type PlaybackBatch struct {
	Metrics   []PlaybackMetric `json:"metrics"`
	UserAgent string           `json:"user_agent,omitempty"`
	ViewerID  string           `json:"viewer_id,omitempty"`
}

// PostMetrics handles POST /telemetry/playback.
func (h *TelemetryHandlers) PostMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var batch PlaybackBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}

	if len(batch.Metrics) == 0 {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "At least one metric required")
		return
	}
	if len(batch.Metrics) > maxPlaybackBatch {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Too many metrics in one batch")
		return
	}

	accepted := 0
	for _, m := range batch.Metrics {
		if !playbackMetricNames[m.Name] || m.ItemID == "" {
			h.logger.WarnContext(ctx, "dropping playback metric",
				"metric_name", m.Name,
				"item_id", m.ItemID,
			)
			continue
		}
		accepted++
		h.logger.InfoContext(ctx, "playback_metric",
			"metric_name", m.Name,
			"item_id", m.ItemID,
			"value", m.Value,
			"feed_session", m.SessionID,
			"connection_type", m.ConnectionType,
			"viewer_id", batch.ViewerID,
			"user_agent", batch.UserAgent,
			"timestamp", time.UnixMilli(m.Timestamp),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":           "accepted",
		"metrics_received": accepted,
	}); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode telemetry response", "error", err)
	}
}
