package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postPlayback(t *testing.T, handler *TelemetryHandlers, method string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/telemetry/playback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler.PostMetrics(w, req)
	return w
}

func playbackBody(t *testing.T, batch PlaybackBatch) []byte {
	t.Helper()
	data, err := json.Marshal(batch)
	if err != nil {
		t.Fatalf("marshal batch: %v", err)
	}
	return data
}

func TestTelemetryHandlers_AcceptsBatch(t *testing.T) {
	logBuf := &bytes.Buffer{}
	handler := NewTelemetryHandlers(slog.New(slog.NewJSONHandler(logBuf, nil)))

	body := playbackBody(t, PlaybackBatch{
		Metrics: []PlaybackMetric{
			{ItemID: "item-1", Name: "startup_ms", Value: 423.5, SessionID: "fs-abc", ConnectionType: "wifi", Timestamp: 1234567890000},
			{ItemID: "item-1", Name: "watch_seconds", Value: 18.2, SessionID: "fs-abc", ConnectionType: "wifi", Timestamp: 1234567890100},
		},
		UserAgent: "SwipeHire/2.4.0 (iOS 19)",
		ViewerID:  "viewer-1",
	})

	w := postPlayback(t, handler, http.MethodPost, body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}

	var resp struct {
		Status          string `json:"status"`
		MetricsReceived int    `json:"metrics_received"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "accepted" {
		t.Errorf("status = %q, want accepted", resp.Status)
	}
	if resp.MetricsReceived != 2 {
		t.Errorf("metrics_received = %d, want 2", resp.MetricsReceived)
	}

	for _, want := range []string{"playback_metric", "startup_ms", "watch_seconds", "fs-abc", "viewer-1"} {
		if !strings.Contains(logBuf.String(), want) {
			t.Errorf("log output missing %q", want)
		}
	}
}

func TestTelemetryHandlers_DropsUnknownMetrics(t *testing.T) {
	logBuf := &bytes.Buffer{}
	handler := NewTelemetryHandlers(slog.New(slog.NewJSONHandler(logBuf, nil)))

	body := playbackBody(t, PlaybackBatch{
		Metrics: []PlaybackMetric{
			{ItemID: "item-2", Name: "stall_count", Value: 2, Timestamp: 1234567890200},
			{ItemID: "item-2", Name: "battery_level", Value: 0.4, Timestamp: 1234567890300},
			{ItemID: "", Name: "watch_seconds", Value: 5, Timestamp: 1234567890400},
		},
	})

	w := postPlayback(t, handler, http.MethodPost, body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}

	var resp struct {
		MetricsReceived int `json:"metrics_received"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.MetricsReceived != 1 {
		t.Errorf("metrics_received = %d, want 1 (unknown name and missing item dropped)", resp.MetricsReceived)
	}
	if !strings.Contains(logBuf.String(), "dropping playback metric") {
		t.Error("expected a drop warning in the log output")
	}
}

func TestTelemetryHandlers_Rejects(t *testing.T) {
	handler := NewTelemetryHandlers(slog.New(slog.NewTextHandler(io.Discard, nil)))

	oversized := PlaybackBatch{}
	for i := 0; i < maxPlaybackBatch+1; i++ {
		oversized.Metrics = append(oversized.Metrics, PlaybackMetric{
			ItemID: fmt.Sprintf("item-%d", i), Name: "watch_seconds", Value: 1,
		})
	}

	tests := []struct {
		name       string
		method     string
		body       []byte
		wantStatus int
		wantCode   string
	}{
		{"get not allowed", http.MethodGet, nil, http.StatusMethodNotAllowed, ErrCodeBadRequest},
		{"put not allowed", http.MethodPut, nil, http.StatusMethodNotAllowed, ErrCodeBadRequest},
		{"empty batch", http.MethodPost, []byte(`{"metrics":[]}`), http.StatusBadRequest, ErrCodeBadRequest},
		{"malformed json", http.MethodPost, []byte(`{"metrics": [invalid]}`), http.StatusBadRequest, ErrCodeBadRequest},
		{"not json at all", http.MethodPost, []byte(`startup_ms=423`), http.StatusBadRequest, ErrCodeBadRequest},
		{"oversized batch", http.MethodPost, playbackBody(t, oversized), http.StatusBadRequest, ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postPlayback(t, handler, tt.method, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Error.Code != tt.wantCode {
				t.Errorf("error code = %s, want %s", errResp.Error.Code, tt.wantCode)
			}
		})
	}
}
