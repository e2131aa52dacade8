package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/swipehire/swipehire-api/internal/image"
	"github.com/swipehire/swipehire-api/internal/middleware"
	"github.com/swipehire/swipehire-api/internal/profile"
	"github.com/swipehire/swipehire-api/internal/upload"
	"github.com/swipehire/swipehire-api/internal/validate"
)

// MaxAvatarBytes caps raw avatar uploads before processing.
const MaxAvatarBytes = 10 * 1024 * 1024

// AvatarResponse is the response for POST /profiles/{id}/avatar.
type AvatarResponse struct {
	AvatarURL string `json:"avatar_url"`
	Key       string `json:"key"`
}

// AvatarHandlers processes and stores profile photos. Unlike video uploads,
// which go straight to R2 with a presigned URL, avatars pass through the
// server so EXIF metadata can be stripped and the image resized.
type AvatarHandlers struct {
	profiles profile.Repository
	uploads  *upload.Service
}

// NewAvatarHandlers creates a new AvatarHandlers instance.
func NewAvatarHandlers(profiles profile.Repository, uploads *upload.Service) *AvatarHandlers {
	return &AvatarHandlers{profiles: profiles, uploads: uploads}
}

// UploadAvatar handles POST /profiles/{id}/avatar. The body is the raw
// image; the sanitized result is re-encoded as JPEG and stored under the
// avatar prefix, and the author's avatar URL is updated.
func (h *AvatarHandlers) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/profiles/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "avatar" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Profile not found")
		return
	}
	authorID := parts[0]

	contentType := r.Header.Get("Content-Type")
	if _, err := validate.MIMEType(contentType, []string{validate.MIMEImageJPEG, validate.MIMEImagePNG}); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnsupportedType)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeUnsupportedType,
			"Avatar must be image/jpeg or image/png")
		return
	}

	author, err := h.profiles.GetAuthor(authorID)
	if err != nil {
		if errors.Is(err, profile.ErrAuthorNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Profile not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to load author", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load profile")
		return
	}

	body := http.MaxBytesReader(w, r.Body, MaxAvatarBytes)
	processed, err := image.AvatarProcessor().Process(body)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Could not decode image")
		return
	}

	key, err := upload.GenerateObjectKey(upload.KindAvatar, "image/jpeg", &authorID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to build avatar key", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to store avatar")
		return
	}

	_, err = h.uploads.GetS3Client().PutObject(r.Context(), &s3.PutObjectInput{
		Bucket:      aws.String(h.uploads.GetBucketName()),
		Key:         aws.String(key),
		Body:        bytes.NewReader(processed),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to store avatar", "error", err, "key", key)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to store avatar")
		return
	}

	author.AvatarURL = "/" + key
	if err := h.profiles.UpsertAuthor(author); err != nil {
		slog.ErrorContext(r.Context(), "failed to update avatar url", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update profile")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(AvatarResponse{AvatarURL: author.AvatarURL, Key: key}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
