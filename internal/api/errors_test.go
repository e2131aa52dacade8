package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/swipehire/swipehire-api/internal/middleware"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse error body %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		code    string
		message string
	}{
		{"not found", http.StatusNotFound, ErrCodeNotFound, "Item not found"},
		{"validation", http.StatusBadRequest, ErrCodeValidation, "Invalid headline"},
		{"auth failed", http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required"},
		{"rate limited", http.StatusTooManyRequests, ErrCodeRateLimited, "Too many swipes"},
		{"duplicate match", http.StatusConflict, ErrCodeDuplicateMatch, "An open match already exists"},
		{"terminal stage", http.StatusConflict, ErrCodeTerminalStage, "Match is already settled"},
		{"internal", http.StatusInternalServerError, ErrCodeInternal, "Something went wrong"},
		{"empty message", http.StatusInternalServerError, ErrCodeInternal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, context.Background(), tt.status, tt.code, tt.message)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
				t.Errorf("Content-Type = %s, want application/json", ct)
			}

			resp := decodeError(t, w)
			if resp.Error.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Error.Code, tt.code)
			}
			if resp.Error.Message != tt.message {
				t.Errorf("message = %q, want %q", resp.Error.Message, tt.message)
			}
		})
	}
}

func TestWriteError_EnvelopeShape(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, context.Background(), http.StatusBadRequest, ErrCodeValidation, "Invalid email format")

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	// Exactly {"error": {"code", "message"}}, nothing else.
	if len(response) != 1 {
		t.Errorf("expected 1 top-level key, got %d: %v", len(response), response)
	}
	errorObj, ok := response["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'error' to be an object, got %T", response["error"])
	}
	if len(errorObj) != 2 {
		t.Errorf("expected code and message only, got %v", errorObj)
	}
	if errorObj["code"] != ErrCodeValidation {
		t.Errorf("code = %v, want %s", errorObj["code"], ErrCodeValidation)
	}
	if errorObj["message"] != "Invalid email format" {
		t.Errorf("message = %v", errorObj["message"])
	}
}

func TestWriteError_MessageSurvivesJSONEscaping(t *testing.T) {
	w := httptest.NewRecorder()

	message := `Headline contains "quotes", <tags> & ampersands`
	WriteError(w, context.Background(), http.StatusBadRequest, ErrCodeValidation, message)

	if resp := decodeError(t, w); resp.Error.Message != message {
		t.Errorf("message = %q, want %q", resp.Error.Message, message)
	}
}

func TestWriteError_LogsErrorCode(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := middleware.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Item not found")
	}))

	req := httptest.NewRequest(http.MethodGet, "/items/9f2c", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if resp := decodeError(t, w); resp.Error.Code != ErrCodeNotFound {
		t.Errorf("code = %s, want %s", resp.Error.Code, ErrCodeNotFound)
	}

	var entry struct {
		Level     string `json:"level"`
		Status    int    `json:"status"`
		ErrorCode string `json:"error_code"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v, log: %s", err, buf.String())
	}
	if entry.Status != http.StatusNotFound {
		t.Errorf("logged status = %d, want 404", entry.Status)
	}
	if entry.Level != "WARN" {
		t.Errorf("log level = %s, want WARN for 4xx", entry.Level)
	}
	if entry.ErrorCode != ErrCodeNotFound {
		t.Errorf("logged error_code = %s, want %s", entry.ErrorCode, ErrCodeNotFound)
	}
}

func TestWriteError_LogsRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := middleware.RequestID(
		middleware.Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid token")
		})),
	)

	req := httptest.NewRequest(http.MethodPost, "/swipes", nil)
	req.Header.Set("X-Request-ID", "req-swipe-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	var entry struct {
		RequestID string `json:"request_id"`
		ErrorCode string `json:"error_code"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry.RequestID != "req-swipe-123" {
		t.Errorf("logged request_id = %s, want req-swipe-123", entry.RequestID)
	}
	if entry.ErrorCode != ErrCodeAuthFailed {
		t.Errorf("logged error_code = %s, want %s", entry.ErrorCode, ErrCodeAuthFailed)
	}
}
