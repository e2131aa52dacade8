// Package api provides HTTP handlers for the SwipeHire service surface.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/swipehire/swipehire-api/internal/middleware"
	"github.com/swipehire/swipehire-api/internal/upload"
)

// SignUploadRequest represents the request body for POST /uploads/sign.
type SignUploadRequest struct {
	Kind        string  `json:"kind"`
	ContentType string  `json:"content_type"`
	SizeBytes   int64   `json:"size_bytes"`
	OwnerID     *string `json:"owner_id,omitempty"`
}

func (r SignUploadRequest) validate() string {
	switch {
	case r.Kind == "":
		return "kind is required"
	case r.ContentType == "":
		return "content_type is required"
	case r.SizeBytes <= 0:
		return "size_bytes must be positive"
	}
	return ""
}

// SignUploadResponse represents the response for POST /uploads/sign.
type SignUploadResponse struct {
	URL       string `json:"url"`
	Key       string `json:"key"`
	ExpiresAt string `json:"expires_at"` // RFC 3339
}

// signUploadErrors maps upload service failures to client-facing codes.
// Anything not listed is treated as an internal error.
var signUploadErrors = []struct {
	err     error
	code    string
	message string
}{
	{upload.ErrUnsupportedKind, ErrCodeValidation, "Unsupported upload kind. Allowed kinds: video, thumbnail, avatar, resume"},
	{upload.ErrUnsupportedType, ErrCodeUnsupportedType, "Unsupported content type for this upload kind"},
	{upload.ErrFileTooLarge, ErrCodeFileTooLarge, "File size exceeds maximum allowed"},
	{upload.ErrInvalidOwnerID, ErrCodeValidation, "Invalid owner ID"},
}

// UploadHandlers holds dependencies for upload HTTP handlers.
type UploadHandlers struct {
	uploadService *upload.Service
}

func NewUploadHandlers(uploadService *upload.Service) *UploadHandlers {
	return &UploadHandlers{uploadService: uploadService}
}

// SignUpload handles POST /uploads/sign. It returns a pre-signed PUT URL
// for a direct upload; the kind selects the MIME allow-list and size cap
// (video, thumbnail, avatar, resume).
func (h *UploadHandlers) SignUpload(w http.ResponseWriter, r *http.Request) {
	fail := func(code, message string) {
		ctx := middleware.SetErrorCode(r.Context(), code)
		WriteError(w, ctx, http.StatusBadRequest, code, message)
	}

	var req SignUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if msg := req.validate(); msg != "" {
		fail(ErrCodeValidation, msg)
		return
	}

	signedURL, err := h.uploadService.GenerateSignedURL(r.Context(), upload.SignedURLRequest{
		Kind:        upload.Kind(req.Kind),
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		OwnerID:     req.OwnerID,
	})
	if err != nil {
		for _, mapping := range signUploadErrors {
			if errors.Is(err, mapping.err) {
				fail(mapping.code, mapping.message)
				return
			}
		}
		slog.ErrorContext(r.Context(), "failed to generate signed URL", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to generate signed URL")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(SignUploadResponse{
		URL:       signedURL.URL,
		Key:       signedURL.Key,
		ExpiresAt: signedURL.ExpiresAt.Format(time.RFC3339),
	}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
