// Package blob stores uploaded files in Azure Blob Storage or on local disk.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/pkg/config"
)

var (
	ErrInvalidContainer = errors.New("invalid container name")
	ErrInvalidName      = errors.New("invalid blob name")
	ErrNotFound         = errors.New("container not found")
)

// Object describes one stored blob.
type Object struct {
	Container    string    `json:"container"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType,omitempty"`
	LastModified time.Time `json:"lastModified,omitempty"`
}

// Storage is implemented by every driver.
type Storage interface {
	Driver() string
	ListContainers(ctx context.Context) ([]string, error)
	List(ctx context.Context, container string) ([]Object, error)
	Put(ctx context.Context, container, name string, r io.Reader, contentType string) (Object, error)
	Delete(ctx context.Context, container, name string) error
}

// Same rule Azure applies to container names.
var containerPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9]|-[a-z0-9]){2,62}$`)

// ValidContainer reports whether name is a usable container name.
func ValidContainer(name string) bool {
	return containerPattern.MatchString(name)
}

// CleanName normalizes a blob name to forward slashes with no empty, "." or
// ".." segments.
func CleanName(name string) (string, error) {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	var parts []string
	for _, part := range strings.Split(name, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", ErrInvalidName
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return "", ErrInvalidName
	}
	cleaned := path.Join(parts...)
	if len(cleaned) > 1024 {
		return "", ErrInvalidName
	}
	return cleaned, nil
}

func checkTarget(container, name string) (string, error) {
	if !ValidContainer(container) {
		return "", fmt.Errorf("%w: %q", ErrInvalidContainer, container)
	}
	return CleanName(name)
}

// FromConfig builds the driver named by STORAGE_DRIVER.
func FromConfig(logger *logging.ChanneledLogger) (Storage, error) {
	switch config.StorageDriver {
	case "", "local":
		logger.Storage().Info("Blob storage driver selected", "driver", "local", "dir", config.LocalUploadDir)
		return NewLocal(config.LocalUploadDir, "/media"), nil
	case "azure":
		if config.AzureStorageConnectionString == "" {
			return nil, errors.New("AZURE_STORAGE_CONNECTION_STRING is required for the azure storage driver")
		}
		az, err := NewAzure(config.AzureStorageConnectionString)
		if err != nil {
			return nil, err
		}
		logger.Storage().Info("Blob storage driver selected", "driver", "azure", "account", az.URL())
		return az, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER: %s", config.StorageDriver)
	}
}
