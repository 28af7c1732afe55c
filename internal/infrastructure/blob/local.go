package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// Local stores blobs under BaseDir/{container}/{name}; the HTTP server exposes
// BaseDir at URLPrefix.
type Local struct {
	BaseDir   string
	URLPrefix string
}

func NewLocal(baseDir, urlPrefix string) *Local {
	return &Local{BaseDir: baseDir, URLPrefix: urlPrefix}
}

func (l *Local) Driver() string { return "local" }

func (l *Local) ListContainers(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.BaseDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", l.BaseDir, err)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() && ValidContainer(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (l *Local) List(ctx context.Context, container string) ([]Object, error) {
	if !ValidContainer(container) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContainer, container)
	}
	root := filepath.Join(l.BaseDir, container)
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, container)
	}

	objects := []Object{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		objects = append(objects, Object{
			Container:    container,
			Name:         name,
			URL:          joinURL(l.URLPrefix, container, name),
			Size:         info.Size(),
			ContentType:  mime.TypeByExtension(path.Ext(name)),
			LastModified: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", container, err)
	}
	return objects, nil
}

func (l *Local) Put(ctx context.Context, container, name string, r io.Reader, contentType string) (Object, error) {
	name, err := checkTarget(container, name)
	if err != nil {
		return Object{}, err
	}
	dst := filepath.Join(l.BaseDir, container, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Object{}, fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Object{}, err
	}
	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(dst)
		return Object{}, fmt.Errorf("failed to write %s/%s: %w", container, name, errors.Join(copyErr, closeErr))
	}
	return Object{
		Container:   container,
		Name:        name,
		URL:         joinURL(l.URLPrefix, container, name),
		Size:        n,
		ContentType: contentType,
	}, nil
}

func (l *Local) Delete(ctx context.Context, container, name string) error {
	name, err := checkTarget(container, name)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(l.BaseDir, container, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
