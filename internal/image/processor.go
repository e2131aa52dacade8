// Package image sanitizes and resizes user-submitted images: profile
// avatars and video thumbnails. All uploads are re-encoded and stripped of
// EXIF metadata before they reach the CDN.
package image

import (
	"fmt"
	"io"

	"github.com/h2non/bimg"
)

// Processor re-encodes images to a fixed format and bounding box.
type Processor struct {
	quality   int
	format    bimg.ImageType
	maxWidth  int
	maxHeight int
}

// NewProcessor builds a processor. quality is the JPEG/WebP encoding quality
// (1-100); maxWidth/maxHeight bound the output dimensions, 0 means unbounded.
func NewProcessor(quality int, format bimg.ImageType, maxWidth, maxHeight int) *Processor {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Processor{
		quality:   quality,
		format:    format,
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
	}
}

// AvatarProcessor is the preset for profile avatars: 512x512 JPEG.
func AvatarProcessor() *Processor {
	return NewProcessor(85, bimg.JPEG, 512, 512)
}

// ThumbnailProcessor is the preset for video thumbnails: 720x1280 JPEG,
// matching the portrait feed player.
func ThumbnailProcessor() *Processor {
	return NewProcessor(80, bimg.JPEG, 720, 1280)
}

// Process reads one image, strips its metadata, applies the size bound, and
// re-encodes it. GPS coordinates, camera details, and timestamps never make
// it to stored files.
func (p *Processor) Process(r io.Reader) ([]byte, error) {
	inputBytes, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input image: %w", err)
	}

	img := bimg.NewImage(inputBytes)
	metadata, err := img.Metadata()
	if err != nil {
		return nil, fmt.Errorf("failed to read image metadata: %w", err)
	}

	options := bimg.Options{
		Quality:       p.quality,
		StripMetadata: true,
		Type:          p.format,
	}
	// Only shrink, never upscale
	if p.maxWidth > 0 && metadata.Size.Width > p.maxWidth {
		options.Width = p.maxWidth
	}
	if p.maxHeight > 0 && metadata.Size.Height > p.maxHeight {
		options.Height = p.maxHeight
	}

	outputBytes, err := img.Process(options)
	if err != nil {
		return nil, fmt.Errorf("failed to process image: %w", err)
	}
	return outputBytes, nil
}

// VerifyNoEXIF reports whether the image carries no identifying EXIF fields.
func VerifyNoEXIF(imageBytes []byte) (bool, error) {
	metadata, err := bimg.NewImage(imageBytes).Metadata()
	if err != nil {
		return false, fmt.Errorf("failed to read image metadata: %w", err)
	}

	exif := metadata.EXIF
	hasEXIF := exif.Make != "" || exif.Model != "" ||
		exif.GPSLatitude != "" || exif.GPSLongitude != "" ||
		exif.DateTimeOriginal != "" || exif.Software != ""
	return !hasEXIF, nil
}
