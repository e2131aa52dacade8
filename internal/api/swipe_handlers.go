package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/swipehire/swipehire-api/internal/content"
	"github.com/swipehire/swipehire-api/internal/feedcache"
	"github.com/swipehire/swipehire-api/internal/interaction"
	"github.com/swipehire/swipehire-api/internal/match"
	"github.com/swipehire/swipehire-api/internal/middleware"
	"github.com/swipehire/swipehire-api/internal/profile"
)

// SwipeRequest represents the request body for recording a swipe.
type SwipeRequest struct {
	UserID         string   `json:"user_id,omitempty"`
	TargetID       string   `json:"target_id"`
	TargetType     string   `json:"target_type"`
	TargetAuthorID string   `json:"target_author_id,omitempty"`
	TargetKind     string   `json:"target_kind,omitempty"`
	TargetTags     []string `json:"target_tags,omitempty"`
	Direction      string   `json:"direction"`
}

// SwipeResponse is the response body for POST /swipes. Match is set when the
// swipe completed a mutual positive pair and created a match.
type SwipeResponse struct {
	Swipe *interaction.Swipe `json:"swipe"`
	Match *match.Match       `json:"match,omitempty"`
}

// SwipeHandlers holds dependencies for swipe and follow HTTP handlers.
type SwipeHandlers struct {
	interactions interaction.Repository
	matches      match.Repository
	profiles     profile.Repository
	sessions     feedcache.Store
}

// NewSwipeHandlers creates a new SwipeHandlers instance. The sessions store
// is optional; without it positive swipes skip the session liked-set update.
func NewSwipeHandlers(interactions interaction.Repository, matches match.Repository, profiles profile.Repository, sessions feedcache.Store) *SwipeHandlers {
	return &SwipeHandlers{
		interactions: interactions,
		matches:      matches,
		profiles:     profiles,
		sessions:     sessions,
	}
}

// RecordSwipe handles POST /swipes - records a directional swipe.
//
// A positive swipe on a content target is also marked in the viewer's feed
// session so the inferred-like signal applies on the next re-rank. A positive
// swipe against an author completes a match when that author has already
// swiped positively on the viewer.
func (h *SwipeHandlers) RecordSwipe(w http.ResponseWriter, r *http.Request) {
	var req SwipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		userID = strings.TrimSpace(req.UserID)
	}
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "user_id is required")
		return
	}

	swipe := &interaction.Swipe{
		UserID:         userID,
		TargetID:       strings.TrimSpace(req.TargetID),
		TargetType:     interaction.TargetType(req.TargetType),
		TargetAuthorID: strings.TrimSpace(req.TargetAuthorID),
		TargetKind:     content.Kind(req.TargetKind),
		TargetTags:     normalizeTags(req.TargetTags),
		Direction:      interaction.Direction(req.Direction),
	}

	if err := h.interactions.RecordSwipe(swipe); err != nil {
		switch {
		case errors.Is(err, interaction.ErrInvalidDirection):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidDirection)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidDirection, "Direction must be positive or negative")
		case errors.Is(err, interaction.ErrInvalidTargetType):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Target type must be content, job, or author")
		case errors.Is(err, interaction.ErrMissingTarget):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "target_id is required")
		default:
			slog.ErrorContext(r.Context(), "failed to record swipe", "error", err, "user_id", userID)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record swipe")
		}
		return
	}

	resp := SwipeResponse{Swipe: swipe}

	if swipe.Direction == interaction.DirectionPositive {
		h.markSessionLiked(r, swipe)
		resp.Match = h.tryCreateMatch(r, swipe)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// markSessionLiked marks a positive content swipe in the viewer's active
// feed session. A missing session is fine; the swipe history still feeds
// the ranking signals.
func (h *SwipeHandlers) markSessionLiked(r *http.Request, swipe *interaction.Swipe) {
	if h.sessions == nil || swipe.TargetType != interaction.TargetContent {
		return
	}

	session, err := h.sessions.Get(r.Context(), swipe.UserID)
	if err != nil {
		return
	}
	session.MarkLiked(swipe.TargetID)
	if err := h.sessions.Put(r.Context(), session, feedcache.DefaultSessionTTL); err != nil {
		slog.WarnContext(r.Context(), "failed to update feed session liked set", "user_id", swipe.UserID, "error", err)
	}
}

// tryCreateMatch creates a match when the swiped author has already swiped
// positively on the viewer. Returns nil when no mutual pair exists yet, the
// roles cannot be resolved, or an open match already covers the pair.
func (h *SwipeHandlers) tryCreateMatch(r *http.Request, swipe *interaction.Swipe) *match.Match {
	if h.matches == nil || swipe.TargetAuthorID == "" || swipe.TargetAuthorID == swipe.UserID {
		return nil
	}

	theirSwipes, err := h.interactions.ListSwipes(swipe.TargetAuthorID)
	if err != nil {
		slog.WarnContext(r.Context(), "failed to check reciprocal swipes", "author_id", swipe.TargetAuthorID, "error", err)
		return nil
	}

	var mutual bool
	for _, s := range theirSwipes {
		if s.Direction != interaction.DirectionPositive {
			continue
		}
		if s.TargetID == swipe.UserID || s.TargetAuthorID == swipe.UserID {
			mutual = true
			break
		}
	}
	if !mutual {
		return nil
	}

	seekerID, recruiterID := h.resolvePair(swipe)
	if seekerID == "" || recruiterID == "" {
		return nil
	}

	m := &match.Match{SeekerID: seekerID, RecruiterID: recruiterID}
	if swipe.TargetType == interaction.TargetJob || swipe.TargetKind == content.KindJobOpening {
		m.JobItemID = swipe.TargetID
	}

	created, err := h.matches.Create(m)
	if err != nil {
		if !errors.Is(err, match.ErrDuplicateMatch) {
			slog.WarnContext(r.Context(), "failed to create match from mutual swipe", "error", err)
		}
		return nil
	}

	slog.InfoContext(r.Context(), "match created from mutual swipe",
		"match_id", created.ID, "seeker_id", seekerID, "recruiter_id", recruiterID)
	return created
}

// resolvePair decides which side of the marketplace each participant is on.
// The author's profile role is authoritative; a job-opening target implies
// the swiper is the seeker when no profile exists.
func (h *SwipeHandlers) resolvePair(swipe *interaction.Swipe) (seekerID, recruiterID string) {
	if h.profiles != nil {
		if author, err := h.profiles.GetAuthor(swipe.TargetAuthorID); err == nil {
			switch author.Role {
			case profile.RoleRecruiter:
				return swipe.UserID, swipe.TargetAuthorID
			case profile.RoleSeeker:
				return swipe.TargetAuthorID, swipe.UserID
			}
		}
	}
	if swipe.TargetType == interaction.TargetJob || swipe.TargetKind == content.KindJobOpening {
		return swipe.UserID, swipe.TargetAuthorID
	}
	return "", ""
}

// Follow handles POST /follows/{authorID} - adds an author to the viewer's
// follow set. Idempotent.
func (h *SwipeHandlers) Follow(w http.ResponseWriter, r *http.Request) {
	userID, authorID, ok := h.followArgs(w, r)
	if !ok {
		return
	}

	if err := h.interactions.Follow(userID, authorID); err != nil {
		slog.ErrorContext(r.Context(), "failed to record follow", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record follow")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unfollow handles DELETE /follows/{authorID}.
func (h *SwipeHandlers) Unfollow(w http.ResponseWriter, r *http.Request) {
	userID, authorID, ok := h.followArgs(w, r)
	if !ok {
		return
	}

	if err := h.interactions.Unfollow(userID, authorID); err != nil {
		if errors.Is(err, interaction.ErrFollowNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Follow not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to remove follow", "error", err, "user_id", userID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to remove follow")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// followArgs extracts the viewer and target author for a follow operation.
// The viewer comes from the auth context, falling back to ?user_id for
// unauthenticated deployments.
func (h *SwipeHandlers) followArgs(w http.ResponseWriter, r *http.Request) (userID, authorID string, ok bool) {
	userID = middleware.GetUserID(r.Context())
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "user_id is required")
		return "", "", false
	}

	authorID = strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/follows/"))
	if authorID == "" || strings.Contains(authorID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Author ID is required")
		return "", "", false
	}

	return userID, authorID, true
}
