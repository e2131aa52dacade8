package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/swipehire/swipehire-api/internal/middleware"
	"github.com/swipehire/swipehire-api/internal/profile"
	"github.com/swipehire/swipehire-api/internal/validate"
)

// UpsertAuthorRequest represents the request body for creating or replacing
// an author profile.
type UpsertAuthorRequest struct {
	DisplayName     string   `json:"display_name"`
	Headline        string   `json:"headline,omitempty"`
	CompanyName     string   `json:"company_name,omitempty"`
	CompanyIndustry string   `json:"company_industry,omitempty"`
	Location        string   `json:"location,omitempty"`
	CultureTraits   []string `json:"culture_traits,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	ContactEmail    string   `json:"contact_email,omitempty"`
	Role            string   `json:"role"`
}

// UpsertViewerRequest represents the request body for creating or replacing
// a viewer profile used for feed personalization.
type UpsertViewerRequest struct {
	Role                string   `json:"role"`
	Skills              []string `json:"skills,omitempty"`
	Location            string   `json:"location,omitempty"`
	CulturePreferences  []string `json:"culture_preferences,omitempty"`
	PreferredCategories []string `json:"preferred_categories,omitempty"`
	ExperienceLevel     string   `json:"experience_level,omitempty"`
}

// ProfileHandlers holds dependencies for profile HTTP handlers.
type ProfileHandlers struct {
	repo profile.Repository
}

// NewProfileHandlers creates a new ProfileHandlers instance.
func NewProfileHandlers(repo profile.Repository) *ProfileHandlers {
	return &ProfileHandlers{repo: repo}
}

// profileIDFromPath extracts the profile ID from /profiles/{id} or
// /profiles/{id}/viewer.
func profileIDFromPath(r *http.Request) string {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/profiles/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return strings.TrimSpace(parts[0])
}

// GetAuthor handles GET /profiles/{id} - retrieves an author profile.
func (h *ProfileHandlers) GetAuthor(w http.ResponseWriter, r *http.Request) {
	id := profileIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Profile ID is required")
		return
	}

	author, err := h.repo.GetAuthor(id)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Profile not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(author); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// UpsertAuthor handles PUT /profiles/{id} - creates or replaces an author
// profile. The path ID wins over any ID in the body.
func (h *ProfileHandlers) UpsertAuthor(w http.ResponseWriter, r *http.Request) {
	id := profileIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Profile ID is required")
		return
	}

	var req UpsertAuthorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	displayName, err := validate.DisplayName(req.DisplayName)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid display name: "+err.Error())
		return
	}

	headline, err := validate.Headline(req.Headline)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid headline: "+err.Error())
		return
	}

	var contactEmail string
	if strings.TrimSpace(req.ContactEmail) != "" {
		contactEmail, err = validate.Email(req.ContactEmail)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid contact email")
			return
		}
	}

	author := &profile.Author{
		ID:              id,
		DisplayName:     displayName,
		Headline:        headline,
		CompanyName:     strings.TrimSpace(req.CompanyName),
		CompanyIndustry: strings.TrimSpace(req.CompanyIndustry),
		Location:        strings.TrimSpace(req.Location),
		CultureTraits:   normalizeTags(req.CultureTraits),
		Skills:          normalizeTags(req.Skills),
		ContactEmail:    contactEmail,
		Role:            profile.Role(req.Role),
	}

	if err := h.repo.UpsertAuthor(author); err != nil {
		if errors.Is(err, profile.ErrInvalidRole) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Role must be seeker or recruiter")
			return
		}
		slog.ErrorContext(r.Context(), "failed to upsert author", "error", err, "author_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to save profile")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(author); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// GetViewer handles GET /profiles/{id}/viewer - retrieves the viewer
// profile used for feed personalization.
func (h *ProfileHandlers) GetViewer(w http.ResponseWriter, r *http.Request) {
	id := profileIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Profile ID is required")
		return
	}

	viewer, err := h.repo.GetViewer(id)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Viewer profile not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(viewer); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// UpsertViewer handles PUT /profiles/{id}/viewer - creates or replaces the
// viewer profile. Changing the profile does not invalidate an active feed
// session; the new preferences apply on the next ranking.
func (h *ProfileHandlers) UpsertViewer(w http.ResponseWriter, r *http.Request) {
	id := profileIDFromPath(r)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Profile ID is required")
		return
	}

	var req UpsertViewerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	viewer := &profile.ViewerProfile{
		UserID:              id,
		Role:                profile.Role(req.Role),
		Skills:              normalizeTags(req.Skills),
		Location:            strings.TrimSpace(req.Location),
		CulturePreferences:  normalizeTags(req.CulturePreferences),
		PreferredCategories: normalizeTags(req.PreferredCategories),
		ExperienceLevel:     strings.TrimSpace(req.ExperienceLevel),
	}

	if err := h.repo.UpsertViewer(viewer); err != nil {
		if errors.Is(err, profile.ErrInvalidRole) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Role must be seeker or recruiter")
			return
		}
		slog.ErrorContext(r.Context(), "failed to upsert viewer profile", "error", err, "user_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to save viewer profile")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(viewer); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
