package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/swipehire/swipehire-api/internal/interview"
	"github.com/swipehire/swipehire-api/internal/middleware"
	"github.com/swipehire/swipehire-api/internal/validate"
)

// ScheduleInterviewRequest represents the request body for scheduling an
// interview slot on a match.
type ScheduleInterviewRequest struct {
	MatchID         string    `json:"match_id"`
	ScheduledBy     string    `json:"scheduled_by,omitempty"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	MeetingURL      string    `json:"meeting_url,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

// RescheduleInterviewRequest represents the request body for moving an
// interview to a new start time.
type RescheduleInterviewRequest struct {
	StartsAt time.Time `json:"starts_at"`
}

// SettleInterviewRequest represents the request body for completing or
// cancelling an interview.
type SettleInterviewRequest struct {
	Notes string `json:"notes,omitempty"`
}

// InterviewHandlers holds dependencies for interview HTTP handlers.
type InterviewHandlers struct {
	repo interview.Repository
}

// NewInterviewHandlers creates a new InterviewHandlers instance.
func NewInterviewHandlers(repo interview.Repository) *InterviewHandlers {
	return &InterviewHandlers{repo: repo}
}

// interviewIDFromPath extracts the interview ID from /interviews/{id} or
// /interviews/{id}/...
func interviewIDFromPath(r *http.Request) string {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/interviews/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[0])
}

// ScheduleInterview handles POST /interviews - schedules an interview slot.
func (h *InterviewHandlers) ScheduleInterview(w http.ResponseWriter, r *http.Request) {
	var req ScheduleInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	scheduledBy := middleware.GetUserID(r.Context())
	if scheduledBy == "" {
		scheduledBy = strings.TrimSpace(req.ScheduledBy)
	}

	meetingURL := strings.TrimSpace(req.MeetingURL)
	if meetingURL != "" {
		var err error
		if meetingURL, err = validate.MeetingURL(meetingURL); err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation,
				"Meeting URL must be a public https link")
			return
		}
	}

	notes, err := validate.Notes(req.Notes)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid notes: "+err.Error())
		return
	}

	slot := &interview.Interview{
		MatchID:     strings.TrimSpace(req.MatchID),
		ScheduledBy: scheduledBy,
		StartsAt:    req.StartsAt,
		Duration:    time.Duration(req.DurationMinutes) * time.Minute,
		MeetingURL:  meetingURL,
		Notes:       notes,
	}
	if slot.Duration <= 0 {
		slot.Duration = interview.DefaultDuration
	}

	created, err := h.repo.Schedule(slot)
	if err != nil {
		switch {
		case errors.Is(err, interview.ErrMissingMatch):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "match_id is required")
		case errors.Is(err, interview.ErrPastStartTime):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodePastStartTime)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodePastStartTime, "Interview start time must be in the future")
		default:
			slog.ErrorContext(r.Context(), "failed to schedule interview", "error", err)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to schedule interview")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// GetInterview handles GET /interviews/{id}.
func (h *InterviewHandlers) GetInterview(w http.ResponseWriter, r *http.Request) {
	id := interviewIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Interview ID is required")
		return
	}

	slot, err := h.repo.GetByID(id)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Interview not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(slot); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// ListInterviews handles GET /interviews?match_id= - lists a match's
// interviews, soonest first.
func (h *InterviewHandlers) ListInterviews(w http.ResponseWriter, r *http.Request) {
	matchID := strings.TrimSpace(r.URL.Query().Get("match_id"))
	if matchID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "match_id is required")
		return
	}

	interviews, err := h.repo.ListForMatch(matchID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list interviews", "error", err, "match_id", matchID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list interviews")
		return
	}
	if interviews == nil {
		interviews = []*interview.Interview{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"interviews": interviews}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// RescheduleInterview handles POST /interviews/{id}/reschedule.
func (h *InterviewHandlers) RescheduleInterview(w http.ResponseWriter, r *http.Request) {
	id := interviewIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Interview ID is required")
		return
	}

	var req RescheduleInterviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	slot, err := h.repo.Reschedule(id, req.StartsAt)
	if err != nil {
		h.writeSettleError(w, r, err, id)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(slot); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// CompleteInterview handles POST /interviews/{id}/complete.
func (h *InterviewHandlers) CompleteInterview(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.repo.Complete)
}

// CancelInterview handles POST /interviews/{id}/cancel.
func (h *InterviewHandlers) CancelInterview(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.repo.Cancel)
}

// settle is the shared handler for completing or cancelling an interview.
func (h *InterviewHandlers) settle(w http.ResponseWriter, r *http.Request, op func(id, notes string) (*interview.Interview, error)) {
	id := interviewIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Interview ID is required")
		return
	}

	var req SettleInterviewRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
			return
		}
	}

	notes, err := validate.Notes(req.Notes)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid notes: "+err.Error())
		return
	}

	slot, err := op(id, notes)
	if err != nil {
		h.writeSettleError(w, r, err, id)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(slot); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// writeSettleError maps interview domain errors onto the response envelope.
func (h *InterviewHandlers) writeSettleError(w http.ResponseWriter, r *http.Request, err error, id string) {
	switch {
	case errors.Is(err, interview.ErrInterviewNotFound):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Interview not found")
	case errors.Is(err, interview.ErrAlreadySettled):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAlreadySettled)
		WriteError(w, ctx, http.StatusConflict, ErrCodeAlreadySettled, "Interview is already completed or cancelled")
	case errors.Is(err, interview.ErrPastStartTime):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodePastStartTime)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodePastStartTime, "Interview start time must be in the future")
	default:
		slog.ErrorContext(r.Context(), "interview operation failed", "error", err, "interview_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update interview")
	}
}
