// Package media provides image processing utilities
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

const (
	// ThumbnailMaxSize bounds both sides of a thumbnail.
	ThumbnailMaxSize = 480
	thumbnailQuality = 85
	thumbnailSuffix  = "-thumb.webp"
)

var ErrNotImage = errors.New("not a supported image")

// ImageProcessor creates webp thumbnails for uploaded images.
type ImageProcessor struct {
	maxSize int
	quality float32
}

// NewImageProcessor creates a new ImageProcessor with the default bounds.
func NewImageProcessor() *ImageProcessor {
	return &ImageProcessor{maxSize: ThumbnailMaxSize, quality: thumbnailQuality}
}

// IsImage reports whether a file should get a thumbnail. SVG and icons are
// served as-is.
func IsImage(filename, contentType string) bool {
	switch strings.ToLower(path.Ext(filename)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".tif", ".tiff":
		return true
	}
	switch strings.ToLower(contentType) {
	case "image/png", "image/jpeg", "image/gif", "image/webp", "image/bmp", "image/tiff":
		return true
	}
	return false
}

// ThumbnailName derives the thumbnail blob name: photo.jpg -> photo-thumb.webp.
func ThumbnailName(name string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + thumbnailSuffix
}

// Thumbnail decodes r and returns a webp no larger than the processor bounds.
// Smaller images are re-encoded without upscaling.
func (p *ImageProcessor) Thumbnail(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > p.maxSize || bounds.Dy() > p.maxSize {
		img = imaging.Fit(img, p.maxSize, p.maxSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode webp thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

var dataURLPattern = regexp.MustCompile(`^data:(image/[\w.+-]+);base64,`)

// IsDataURL reports whether s is a base64 image data URL.
func IsDataURL(s string) bool {
	return dataURLPattern.MatchString(s)
}

// DecodeDataURL splits a base64 image data URL into its content type, a file
// extension and the decoded bytes.
func DecodeDataURL(data string) (contentType, ext string, decoded []byte, err error) {
	m := dataURLPattern.FindStringSubmatch(data)
	if m == nil {
		return "", "", nil, fmt.Errorf("invalid image data URL")
	}
	contentType = m[1]
	ext = extractExtension(contentType)
	decoded, err = base64.StdEncoding.DecodeString(data[len(m[0]):])
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return contentType, ext, decoded, nil
}

// extractExtension maps an image MIME type to a file extension
func extractExtension(contentType string) string {
	switch contentType {
	case "image/svg+xml":
		return "svg"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/x-icon", "image/vnd.microsoft.icon":
		return "ico"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	}
	// Fallback to PNG
	return "png"
}
