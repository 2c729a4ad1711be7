package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/simple-filehost/pkg/filehost"
)

// Backend is a filesystem implementation of the filehost.BlobStore interface
type Backend struct {
	baseDir string
}

var _ filehost.BlobStore = (*Backend)(nil)

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Root directory holding the category directories
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{baseDir: config.BaseDir}, nil
}

// BaseDir returns the root directory.
func (b *Backend) BaseDir() string {
	return b.baseDir
}

// EnsureDir creates a category directory below the base directory.
func (b *Backend) EnsureDir(dir string) error {
	if err := os.MkdirAll(filepath.Join(b.baseDir, dir), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// Stage writes reader to a new file in dir. The stored name is a fresh UUID
// plus the original extension, so two records never share a path.
func (b *Backend) Stage(ctx context.Context, dir, originalName string, reader io.Reader) (string, int64, error) {
	target := filepath.Join(b.baseDir, dir)
	if err := os.MkdirAll(target, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(target, uuid.NewString()+safeExt(originalName))
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}

	n, err := io.Copy(file, reader)
	if err != nil {
		file.Close()
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to close file: %w", err)
	}

	return path, n, nil
}

// Read reads the whole file at path.
func (b *Backend) Read(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Remove deletes the file at path. A file that is already gone is an error,
// so callers never drop a record whose path they could not confirm.
func (b *Backend) Remove(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Size returns the byte length of the file at path.
func (b *Backend) Size(ctx context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get file info: %w", err)
	}
	return info.Size(), nil
}

func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) > 16 || strings.ContainsAny(ext, `/\`) {
		return ""
	}
	return ext
}
