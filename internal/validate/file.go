package validate

import (
	"errors"
	"fmt"
	"strings"
)

// File validation errors
var (
	ErrInvalidMIMEType = errors.New("invalid MIME type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrFileTooSmall    = errors.New("file too small")
)

// MIME types accepted across upload surfaces.
const (
	MIMEImageJPEG = "image/jpeg"
	MIMEImagePNG  = "image/png"
	MIMEImageWebP = "image/webp"
	MIMEVideoMP4  = "video/mp4"
	MIMEVideoWebM = "video/webm"
	MIMEVideoQT   = "video/quicktime"
	MIMEAppPDF    = "application/pdf"
)

// FileConstraints bounds an upload: which MIME types it may declare and how
// large it may be. A zero size bound disables that bound.
type FileConstraints struct {
	AllowedTypes []string
	MaxSizeBytes int64
	MinSizeBytes int64
}

// MIMEType checks a declared content type against an allow-list and returns
// it normalized to lowercase.
func MIMEType(mimeType string, allowedTypes []string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if normalized == "" {
		return "", ErrEmpty
	}
	for _, allowed := range allowedTypes {
		if strings.EqualFold(normalized, allowed) {
			return normalized, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not accepted here", ErrInvalidMIMEType, normalized)
}

// FileSize checks a declared size against the constraints' bounds.
func FileSize(sizeBytes int64, c FileConstraints) error {
	switch {
	case sizeBytes <= 0:
		return errors.New("file size must be positive")
	case c.MinSizeBytes > 0 && sizeBytes < c.MinSizeBytes:
		return fmt.Errorf("%w: %d bytes is under the %d byte minimum", ErrFileTooSmall, sizeBytes, c.MinSizeBytes)
	case c.MaxSizeBytes > 0 && sizeBytes > c.MaxSizeBytes:
		return fmt.Errorf("%w: %d bytes is over the %d byte cap", ErrFileTooLarge, sizeBytes, c.MaxSizeBytes)
	}
	return nil
}

// File validates a declared MIME type and size together and returns the
// normalized MIME type.
func File(mimeType string, sizeBytes int64, c FileConstraints) (string, error) {
	normalized, err := MIMEType(mimeType, c.AllowedTypes)
	if err != nil {
		return "", err
	}
	if err := FileSize(sizeBytes, c); err != nil {
		return "", err
	}
	return normalized, nil
}
