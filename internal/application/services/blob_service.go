package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/blob"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/media"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/security"
)

// ErrTooLarge is returned for files over the per-file upload limit.
var ErrTooLarge = errors.New("file exceeds the upload size limit")

// UploadFile is one file of a multipart upload.
type UploadFile struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// UploadedFile describes a stored upload.
type UploadedFile struct {
	Name         string `json:"name"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// BlobService lists and stores uploads, adding webp thumbnails for images.
type BlobService struct {
	storage   blob.Storage
	images    *media.ImageProcessor
	maxBytes  int64
	container string
	logger    *logging.ChanneledLogger
}

// NewBlobService creates the blob service. defaultContainer receives uploads
// that name no container.
func NewBlobService(storage blob.Storage, images *media.ImageProcessor, maxBytes int64, defaultContainer string, logger *logging.ChanneledLogger) *BlobService {
	return &BlobService{
		storage:   storage,
		images:    images,
		maxBytes:  maxBytes,
		container: defaultContainer,
		logger:    logger,
	}
}

func (s *BlobService) ListContainers(ctx context.Context) ([]string, error) {
	names, err := s.storage.ListContainers(ctx)
	if err != nil {
		s.logger.Storage().Error("Container listing failed", "driver", s.storage.Driver(), "error", err.Error())
	}
	return names, err
}

func (s *BlobService) List(ctx context.Context, container string) ([]blob.Object, error) {
	if !blob.ValidContainer(container) {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid container name %q", container)}
	}
	objects, err := s.storage.List(ctx, container)
	if err != nil && !errors.Is(err, blob.ErrNotFound) {
		s.logger.Storage().Error("Blob listing failed", "driver", s.storage.Driver(), "container", container, "error", err.Error())
	}
	return objects, err
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename keeps the base name of an upload to a safe charset.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeNameChars.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		return "file"
	}
	if len(name) > 120 {
		ext := path.Ext(name)
		if len(ext) > 16 {
			ext = ""
		}
		name = name[:120-len(ext)] + ext
	}
	return name
}

// BlobName builds {folder}/{ulid}-{sanitized name}.
func BlobName(folder, filename string) (string, error) {
	name := security.GenerateULID() + "-" + SanitizeFilename(filename)
	if folder = strings.Trim(strings.TrimSpace(folder), "/"); folder != "" {
		name = folder + "/" + name
	}
	return blob.CleanName(name)
}

// Upload stores files under container/folder. Every file is checked before
// any is written.
func (s *BlobService) Upload(ctx context.Context, container, folder string, files []UploadFile) ([]UploadedFile, error) {
	if container == "" {
		container = s.container
	}
	if !blob.ValidContainer(container) {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid container name %q", container)}
	}
	if len(files) == 0 {
		return nil, &ValidationError{Message: "no files were uploaded"}
	}
	for _, f := range files {
		if f.Size > s.maxBytes {
			return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrTooLarge, f.Filename, f.Size, s.maxBytes)
		}
	}

	out := make([]UploadedFile, 0, len(files))
	for _, f := range files {
		uploaded, err := s.uploadOne(ctx, container, folder, f)
		if err != nil {
			return out, err
		}
		out = append(out, uploaded)
	}
	return out, nil
}

func (s *BlobService) uploadOne(ctx context.Context, container, folder string, f UploadFile) (UploadedFile, error) {
	start := time.Now()
	name, err := BlobName(folder, f.Filename)
	if err != nil {
		return UploadedFile{}, &ValidationError{Message: fmt.Sprintf("invalid folder %q", folder)}
	}

	rc, err := f.Open()
	if err != nil {
		return UploadedFile{}, err
	}
	defer rc.Close()

	// One extra byte detects sizes the multipart header understated.
	data, err := io.ReadAll(io.LimitReader(rc, s.maxBytes+1))
	if err != nil {
		return UploadedFile{}, err
	}
	if int64(len(data)) > s.maxBytes {
		return UploadedFile{}, fmt.Errorf("%w: %s", ErrTooLarge, f.Filename)
	}

	obj, err := s.storage.Put(ctx, container, name, bytes.NewReader(data), f.ContentType)
	if err != nil {
		s.logger.Storage().Error("Upload failed", "driver", s.storage.Driver(), "container", container, "name", name, "error", err.Error())
		return UploadedFile{}, err
	}
	uploaded := UploadedFile{Name: obj.Name, URL: obj.URL}

	if s.images != nil && media.IsImage(f.Filename, f.ContentType) {
		uploaded.ThumbnailURL = s.thumbnail(ctx, container, name, data)
	}

	s.logger.Storage().Info("File uploaded",
		"driver", s.storage.Driver(), "container", container, "name", name, "bytes", len(data), "duration", time.Since(start))
	return uploaded, nil
}

// thumbnail stores a webp preview. Failures only cost the preview.
func (s *BlobService) thumbnail(ctx context.Context, container, name string, data []byte) string {
	thumb, err := s.images.Thumbnail(bytes.NewReader(data))
	if err != nil {
		s.logger.Storage().Warn("Thumbnail generation failed", "name", name, "error", err.Error())
		return ""
	}
	obj, err := s.storage.Put(ctx, container, media.ThumbnailName(name), bytes.NewReader(thumb), "image/webp")
	if err != nil {
		s.logger.Storage().Warn("Thumbnail upload failed", "name", name, "error", err.Error())
		return ""
	}
	return obj.URL
}

// UploadDataURL stores an inline base64 image, as rich-text editors produce.
func (s *BlobService) UploadDataURL(ctx context.Context, folder, dataURL string) (UploadedFile, error) {
	contentType, ext, data, err := media.DecodeDataURL(dataURL)
	if err != nil {
		return UploadedFile{}, &ValidationError{Message: err.Error()}
	}
	return s.uploadOne(ctx, s.container, folder, UploadFile{
		Filename:    "image." + ext,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open:        func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	})
}
