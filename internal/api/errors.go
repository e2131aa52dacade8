// Package api provides HTTP API utilities including standardized error handling.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/swipehire/swipehire-api/internal/middleware"
)

// Error codes shared across handlers.
const (
	ErrCodeValidation  = "validation_error"
	ErrCodeAuthFailed  = "auth_failed"
	ErrCodeNotFound    = "not_found"
	ErrCodeRateLimited = "rate_limited"
	ErrCodeInternal    = "internal_error"
	ErrCodeForbidden   = "forbidden"
	ErrCodeConflict    = "conflict"
	ErrCodeBadRequest  = "bad_request"
)

// Domain-specific error codes.
const (
	// ErrCodeInvalidKind indicates an unknown content kind.
	ErrCodeInvalidKind = "invalid_kind"

	// ErrCodeInvalidDirection indicates an unknown swipe direction.
	ErrCodeInvalidDirection = "invalid_direction"

	// ErrCodeInvalidStage indicates an unknown pipeline stage.
	ErrCodeInvalidStage = "invalid_stage"

	// ErrCodeTerminalStage indicates the match is already hired or rejected.
	ErrCodeTerminalStage = "terminal_stage"

	// ErrCodeInvalidTransition indicates a disallowed stage transition.
	ErrCodeInvalidTransition = "invalid_transition"

	// ErrCodeDuplicateMatch indicates an open match already exists for the pair.
	ErrCodeDuplicateMatch = "duplicate_match"

	// ErrCodeNotParticipant indicates the user is not part of the conversation.
	ErrCodeNotParticipant = "not_participant"

	// ErrCodeEmptyBody indicates a message body with no content.
	ErrCodeEmptyBody = "empty_body"

	// ErrCodePastStartTime indicates an interview scheduled in the past.
	ErrCodePastStartTime = "past_start_time"

	// ErrCodeAlreadySettled indicates the interview is completed or cancelled.
	ErrCodeAlreadySettled = "already_settled"

	// ErrCodeUnsupportedType indicates an unsupported content type for upload.
	ErrCodeUnsupportedType = "unsupported_type"

	// ErrCodeFileTooLarge indicates an upload exceeding the size limit for its kind.
	ErrCodeFileTooLarge = "file_too_large"
)

// ErrorResponse is the envelope every API error uses:
// {"error": {"code": "...", "message": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes the standard JSON error envelope with the given status.
//
// Pass a context that went through middleware.SetErrorCode so the logging
// middleware can attach the code to its access log line:
//
//	ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
//	WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "Item not found")
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	middleware.UpdateResponseContext(w, ctx)

	data, err := json.Marshal(ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}
