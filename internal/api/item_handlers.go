package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/swipehire/swipehire-api/internal/content"
	"github.com/swipehire/swipehire-api/internal/middleware"
	"github.com/swipehire/swipehire-api/internal/validate"
)

// MaxItemTags caps the number of tags on a single item.
const MaxItemTags = 20

// CreateItemRequest represents the request body for publishing a content item.
type CreateItemRequest struct {
	AuthorID     string   `json:"author_id"`
	Kind         string   `json:"kind"`
	Caption      string   `json:"caption,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	VideoURL     string   `json:"video_url"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
}

// UpdateItemRequest represents the request body for updating an item.
// Author and kind are immutable after creation.
type UpdateItemRequest struct {
	Caption      *string  `json:"caption,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	ThumbnailURL *string  `json:"thumbnail_url,omitempty"`
}

// EngagementRequest represents the request body for recording an engagement action.
type EngagementRequest struct {
	Action string `json:"action"`
}

// ModerationRequest represents the request body for setting moderation state.
type ModerationRequest struct {
	State string `json:"state"`
}

// ItemHandlers holds dependencies for content item HTTP handlers.
type ItemHandlers struct {
	repo content.Repository
}

// NewItemHandlers creates a new ItemHandlers instance.
func NewItemHandlers(repo content.Repository) *ItemHandlers {
	return &ItemHandlers{repo: repo}
}

// CreateItem handles POST /items - publishes a new content item.
// New items start in pending moderation.
func (h *ItemHandlers) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if strings.TrimSpace(req.AuthorID) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "author_id is required")
		return
	}

	kind := content.Kind(req.Kind)
	if !content.ValidKind(kind) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidKind)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidKind, "Unknown content kind: "+req.Kind)
		return
	}

	if strings.TrimSpace(req.VideoURL) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "video_url is required")
		return
	}

	caption, err := validate.Caption(req.Caption)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid caption: "+err.Error())
		return
	}

	if len(req.Tags) > MaxItemTags {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Too many tags (max 20)")
		return
	}

	thumbnailURL, errMsg := validateThumbnailURL(req.ThumbnailURL)
	if errMsg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg)
		return
	}

	item := &content.Item{
		AuthorID:     strings.TrimSpace(req.AuthorID),
		Kind:         kind,
		Caption:      caption,
		Tags:         normalizeTags(req.Tags),
		VideoURL:     strings.TrimSpace(req.VideoURL),
		ThumbnailURL: thumbnailURL,
		Moderation:   content.ModerationPending,
	}

	if err := h.repo.Create(item); err != nil {
		slog.ErrorContext(r.Context(), "failed to create item", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create item")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(item); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// GetItem handles GET /items/{id} - retrieves a single item.
func (h *ItemHandlers) GetItem(w http.ResponseWriter, r *http.Request) {
	id := itemIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Item ID is required")
		return
	}

	item, err := h.repo.GetByID(id)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Item not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(item); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// ListItems handles GET /items - lists recent items, optionally scoped to an
// author with ?author_id=.
func (h *ItemHandlers) ListItems(w http.ResponseWriter, r *http.Request) {
	authorID := strings.TrimSpace(r.URL.Query().Get("author_id"))

	var (
		items []*content.Item
		err   error
	)
	if authorID != "" {
		items, err = h.repo.ListByAuthor(authorID)
	} else {
		limit, errMsg := parseNonNegativeInt(r.URL.Query().Get("limit"), 50)
		if errMsg != "" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "limit must be a non-negative integer")
			return
		}
		items, err = h.repo.ListRecent(limit)
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list items", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list items")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"items": items}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// UpdateItem handles PATCH /items/{id} - updates mutable item fields.
func (h *ItemHandlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := itemIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Item ID is required")
		return
	}

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	item, err := h.repo.GetByID(id)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Item not found")
		return
	}

	if req.Caption != nil {
		caption, err := validate.Caption(*req.Caption)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid caption: "+err.Error())
			return
		}
		item.Caption = caption
	}
	if req.Tags != nil {
		if len(req.Tags) > MaxItemTags {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Too many tags (max 20)")
			return
		}
		item.Tags = normalizeTags(req.Tags)
	}
	if req.ThumbnailURL != nil {
		thumbnailURL, errMsg := validateThumbnailURL(*req.ThumbnailURL)
		if errMsg != "" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg)
			return
		}
		item.ThumbnailURL = thumbnailURL
	}

	if err := h.repo.Update(item); err != nil {
		slog.ErrorContext(r.Context(), "failed to update item", "error", err, "item_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update item")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(item); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// DeleteItem handles DELETE /items/{id}.
func (h *ItemHandlers) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := itemIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Item ID is required")
		return
	}

	if err := h.repo.Delete(id); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Item not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RecordEngagement handles POST /items/{id}/engagement - applies a single
// view, like, share, or comment increment.
func (h *ItemHandlers) RecordEngagement(w http.ResponseWriter, r *http.Request) {
	id := itemIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Item ID is required")
		return
	}

	var req EngagementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	item, err := h.repo.IncrementEngagement(id, content.EngagementAction(req.Action))
	if err != nil {
		switch {
		case errors.Is(err, content.ErrInvalidAction):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Unknown engagement action: "+req.Action)
		case errors.Is(err, content.ErrItemNotFound):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Item not found")
		default:
			slog.ErrorContext(r.Context(), "failed to record engagement", "error", err, "item_id", id)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record engagement")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(item); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// SetModeration handles POST /items/{id}/moderation - moves an item between
// moderation states. Rejected items drop out of the feed immediately.
func (h *ItemHandlers) SetModeration(w http.ResponseWriter, r *http.Request) {
	id := itemIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Item ID is required")
		return
	}

	var req ModerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	state := content.ModerationState(req.State)
	switch state {
	case content.ModerationApproved, content.ModerationPending, content.ModerationRejected:
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Unknown moderation state: "+req.State)
		return
	}

	item, err := h.repo.GetByID(id)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Item not found")
		return
	}

	item.Moderation = state
	if err := h.repo.Update(item); err != nil {
		slog.ErrorContext(r.Context(), "failed to update moderation state", "error", err, "item_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update moderation state")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(item); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// itemIDFromPath extracts the item ID from /items/{id} or /items/{id}/...
func itemIDFromPath(r *http.Request) string {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/items/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[0])
}

// validateThumbnailURL accepts empty values and storage-relative keys as-is;
// absolute URLs must pass the external media checks. Returns the normalized
// value and an error message for the client.
func validateThumbnailURL(raw string) (string, string) {
	thumb := strings.TrimSpace(raw)
	if thumb == "" || !strings.Contains(thumb, "://") {
		return thumb, ""
	}
	validated, err := validate.MediaURL(thumb)
	if err != nil {
		return "", "Thumbnail URL must be a public http(s) link"
	}
	return validated, ""
}

// normalizeTags trims whitespace and drops empty tags.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
