// Package upload provides services for generating signed URLs for direct R2 uploads.
package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/swipehire/swipehire-api/internal/validate"
)

// Kind selects an upload category with its own MIME allow-list, size cap,
// and key prefix.
type Kind string

const (
	KindVideo     Kind = "video"     // feed videos
	KindThumbnail Kind = "thumbnail" // video thumbnails
	KindAvatar    Kind = "avatar"    // profile photos
	KindResume    Kind = "resume"    // seeker resumes
)

// Validation errors
var (
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrUnsupportedKind = errors.New("unsupported upload kind")
	ErrFileTooLarge    = errors.New("file size exceeds maximum allowed")
	ErrInvalidOwnerID  = errors.New("invalid owner ID")
)

// defaultURLExpiry is how long a presigned PUT stays usable.
const defaultURLExpiry = 5 * time.Minute

// kindSpec describes the constraints for one upload kind. The extension map
// doubles as the MIME allow-list.
type kindSpec struct {
	prefix     string
	maxBytes   int64
	extensions map[string]string // MIME type -> file extension
}

func (s kindSpec) constraints() validate.FileConstraints {
	types := make([]string, 0, len(s.extensions))
	for mimeType := range s.extensions {
		types = append(types, mimeType)
	}
	return validate.FileConstraints{
		AllowedTypes: types,
		MaxSizeBytes: s.maxBytes,
	}
}

var kindSpecs = map[Kind]kindSpec{
	KindVideo: {
		prefix:   "videos",
		maxBytes: 500 * 1024 * 1024,
		extensions: map[string]string{
			validate.MIMEVideoMP4:  ".mp4",
			validate.MIMEVideoWebM: ".webm",
			validate.MIMEVideoQT:   ".mov",
		},
	},
	KindThumbnail: {
		prefix:   "thumbnails",
		maxBytes: 5 * 1024 * 1024,
		extensions: map[string]string{
			validate.MIMEImageJPEG: ".jpg",
			validate.MIMEImagePNG:  ".png",
		},
	},
	KindAvatar: {
		prefix:   "avatars",
		maxBytes: 10 * 1024 * 1024,
		extensions: map[string]string{
			validate.MIMEImageJPEG: ".jpg",
			validate.MIMEImagePNG:  ".png",
		},
	},
	KindResume: {
		prefix:   "resumes",
		maxBytes: 10 * 1024 * 1024,
		extensions: map[string]string{
			validate.MIMEAppPDF: ".pdf",
		},
	},
}

// SignedURLRequest represents a request for a signed upload URL.
type SignedURLRequest struct {
	Kind        Kind
	ContentType string
	SizeBytes   int64
	OwnerID     *string // owning item or user; nil files under "temp"
}

// SignedURLResponse carries the presigned PUT URL and the object key it
// will write to.
type SignedURLResponse struct {
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service issues presigned R2 upload URLs.
type Service struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	urlExpiry     time.Duration
	timeNow       func() time.Time // For testability
}

// ServiceConfig holds configuration for the upload service.
type ServiceConfig struct {
	BucketName       string
	AccessKeyID      string
	SecretAccessKey  string
	Endpoint         string
	URLExpiryMinutes int // Default: 5 minutes
}

// NewService creates a new upload service with the given configuration.
func NewService(cfg ServiceConfig) (*Service, error) {
	for _, required := range []struct {
		value, name string
	}{
		{cfg.BucketName, "bucket name"},
		{cfg.AccessKeyID, "access key ID"},
		{cfg.SecretAccessKey, "secret access key"},
		{cfg.Endpoint, "endpoint"},
	} {
		if required.value == "" {
			return nil, errors.New(required.name + " is required")
		}
	}

	expiry := defaultURLExpiry
	if cfg.URLExpiryMinutes > 0 {
		expiry = time.Duration(cfg.URLExpiryMinutes) * time.Minute
	}

	// R2 wants the "auto" region and path-style addressing.
	s3Client := s3.New(s3.Options{
		Region: "auto",
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: true,
	})

	return &Service{
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    cfg.BucketName,
		urlExpiry:     expiry,
		timeNow:       time.Now,
	}, nil
}

// ValidateContentType checks if the content type is allowed for the kind.
func ValidateContentType(kind Kind, contentType string) error {
	spec, ok := kindSpecs[kind]
	if !ok {
		return ErrUnsupportedKind
	}
	if _, err := validate.MIMEType(contentType, spec.constraints().AllowedTypes); err != nil {
		return fmt.Errorf("%w for %s uploads: %q", ErrUnsupportedType, kind, contentType)
	}
	return nil
}

// ValidateFileSize checks if the file size is within the kind's limit.
func ValidateFileSize(kind Kind, sizeBytes int64) error {
	spec, ok := kindSpecs[kind]
	if !ok {
		return ErrUnsupportedKind
	}
	if err := validate.FileSize(sizeBytes, spec.constraints()); err != nil {
		if errors.Is(err, validate.ErrFileTooLarge) {
			return fmt.Errorf("%w: %s uploads are capped at %d bytes", ErrFileTooLarge, kind, spec.maxBytes)
		}
		return err
	}
	return nil
}

// GenerateObjectKey builds the key {kind prefix}/{ownerID or temp}/uuid.ext.
func GenerateObjectKey(kind Kind, contentType string, ownerID *string) (string, error) {
	spec, ok := kindSpecs[kind]
	if !ok {
		return "", ErrUnsupportedKind
	}
	ext, ok := spec.extensions[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}

	owner := "temp"
	if ownerID != nil && *ownerID != "" {
		owner = sanitizePathComponent(*ownerID)
		if owner == "" {
			return "", ErrInvalidOwnerID
		}
	}

	return fmt.Sprintf("%s/%s/%s%s", spec.prefix, owner, uuid.New().String(), ext), nil
}

// sanitizePathComponent strips everything but alphanumerics, hyphens and
// underscores so caller-supplied IDs cannot traverse the key space.
func sanitizePathComponent(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// GenerateSignedURL validates the request and returns a presigned PUT URL
// for direct upload to R2.
func (s *Service) GenerateSignedURL(ctx context.Context, req SignedURLRequest) (*SignedURLResponse, error) {
	if err := ValidateContentType(req.Kind, req.ContentType); err != nil {
		return nil, err
	}
	if err := ValidateFileSize(req.Kind, req.SizeBytes); err != nil {
		return nil, err
	}
	key, err := GenerateObjectKey(req.Kind, req.ContentType, req.OwnerID)
	if err != nil {
		return nil, err
	}

	presignedReq, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		ContentType:   aws.String(req.ContentType),
		ContentLength: aws.Int64(req.SizeBytes),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.urlExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign request: %w", err)
	}

	return &SignedURLResponse{
		URL:       presignedReq.URL,
		Key:       key,
		ExpiresAt: s.timeNow().Add(s.urlExpiry),
	}, nil
}

// GetS3Client returns the S3 client for services that store objects
// directly, like avatar processing.
func (s *Service) GetS3Client() *s3.Client {
	return s.s3Client
}

// GetBucketName returns the bucket the service writes to.
func (s *Service) GetBucketName() string {
	return s.bucketName
}
