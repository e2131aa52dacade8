package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/swipehire/swipehire-api/internal/match"
	"github.com/swipehire/swipehire-api/internal/middleware"
)

// CreateMatchRequest represents the request body for creating a match
// directly, outside the mutual-swipe flow.
type CreateMatchRequest struct {
	SeekerID    string `json:"seeker_id"`
	RecruiterID string `json:"recruiter_id"`
	JobItemID   string `json:"job_item_id,omitempty"`
}

// StageCommandRequest represents the request body for pipeline commands.
// Target is only used by the explicit stage move.
type StageCommandRequest struct {
	ActorID string `json:"actor_id,omitempty"`
	Note    string `json:"note,omitempty"`
	Target  string `json:"target,omitempty"`
}

// MatchHandlers holds dependencies for match and pipeline HTTP handlers.
type MatchHandlers struct {
	repo match.Repository
}

// NewMatchHandlers creates a new MatchHandlers instance.
func NewMatchHandlers(repo match.Repository) *MatchHandlers {
	return &MatchHandlers{repo: repo}
}

// matchIDFromPath extracts the match ID from /matches/{id} or /matches/{id}/...
func matchIDFromPath(r *http.Request) string {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/matches/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[0])
}

// CreateMatch handles POST /matches - creates a match in the sourced stage.
func (h *MatchHandlers) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	m := &match.Match{
		SeekerID:    strings.TrimSpace(req.SeekerID),
		RecruiterID: strings.TrimSpace(req.RecruiterID),
		JobItemID:   strings.TrimSpace(req.JobItemID),
	}

	created, err := h.repo.Create(m)
	if err != nil {
		switch {
		case errors.Is(err, match.ErrMissingParticipant):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Both seeker_id and recruiter_id are required")
		case errors.Is(err, match.ErrDuplicateMatch):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeDuplicateMatch)
			WriteError(w, ctx, http.StatusConflict, ErrCodeDuplicateMatch, "An open match already exists for this pair")
		default:
			slog.ErrorContext(r.Context(), "failed to create match", "error", err)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create match")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// GetMatch handles GET /matches/{id}.
func (h *MatchHandlers) GetMatch(w http.ResponseWriter, r *http.Request) {
	id := matchIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Match ID is required")
		return
	}

	m, err := h.repo.GetByID(id)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Match not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(m); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// ListMatches handles GET /matches?user_id= - lists a user's matches,
// newest first.
func (h *MatchHandlers) ListMatches(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "user_id is required")
		return
	}

	matches, err := h.repo.ListForUser(userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list matches", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list matches")
		return
	}
	if matches == nil {
		matches = []*match.Match{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"matches": matches}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// AdvanceCandidate handles POST /matches/{id}/advance - moves the match to
// the next forward pipeline stage.
func (h *MatchHandlers) AdvanceCandidate(w http.ResponseWriter, r *http.Request) {
	h.runStageCommand(w, r, func(id string, req StageCommandRequest) (*match.Match, error) {
		return h.repo.Advance(id, req.ActorID, req.Note)
	})
}

// RejectCandidate handles POST /matches/{id}/reject - moves the match to the
// rejected stage.
func (h *MatchHandlers) RejectCandidate(w http.ResponseWriter, r *http.Request) {
	h.runStageCommand(w, r, func(id string, req StageCommandRequest) (*match.Match, error) {
		return h.repo.Reject(id, req.ActorID, req.Note)
	})
}

// MoveStage handles POST /matches/{id}/stage - moves the match to an
// explicit stage, forward or back.
func (h *MatchHandlers) MoveStage(w http.ResponseWriter, r *http.Request) {
	h.runStageCommand(w, r, func(id string, req StageCommandRequest) (*match.Match, error) {
		target := match.Stage(strings.TrimSpace(req.Target))
		if target == "" {
			return nil, match.ErrInvalidStage
		}
		return h.repo.MoveStage(id, target, req.ActorID, req.Note)
	})
}

// runStageCommand is the shared dispatch for the three pipeline commands:
// parse, run the command, map domain errors to the response envelope.
func (h *MatchHandlers) runStageCommand(w http.ResponseWriter, r *http.Request, cmd func(id string, req StageCommandRequest) (*match.Match, error)) {
	id := matchIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Match ID is required")
		return
	}

	var req StageCommandRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
			return
		}
	}
	if req.ActorID == "" {
		req.ActorID = middleware.GetUserID(r.Context())
	}

	m, err := cmd(id, req)
	if err != nil {
		switch {
		case errors.Is(err, match.ErrMatchNotFound):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Match not found")
		case errors.Is(err, match.ErrTerminalStage):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeTerminalStage)
			WriteError(w, ctx, http.StatusConflict, ErrCodeTerminalStage, "Match is in a terminal stage")
		case errors.Is(err, match.ErrInvalidStage):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidStage)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidStage, "Unknown pipeline stage")
		case errors.Is(err, match.ErrInvalidTransition):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidTransition)
			WriteError(w, ctx, http.StatusConflict, ErrCodeInvalidTransition, "Stage transition not allowed")
		default:
			slog.ErrorContext(r.Context(), "pipeline command failed", "error", err, "match_id", id)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update match")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(m); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
