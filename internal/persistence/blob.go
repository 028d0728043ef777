package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dlfdkwl/discord-tiket/internal/config"
)

// ErrBlobNotFound signals an absent blob. Callers treat it as a typed
// absent-value, not a failure.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore reads and writes named blobs with full-overwrite semantics.
// It backs both the tenant settings document and ticket transcripts.
type BlobStore interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Exists(ctx context.Context, name string) (bool, error)
}

// NewBlobStore selects a driver from configuration.
func NewBlobStore(cfg config.StorageConfig, logger *zap.Logger) (BlobStore, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFileStore(cfg.DataDir)
	case "redis":
		return NewRedisStore(cfg.Redis, logger), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// FileStore persists blobs as files under a root directory. Writes go to a
// temporary file first and are renamed into place so a crash never leaves a
// partially written blob.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

func (s *FileStore) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *FileStore) Write(ctx context.Context, name string, data []byte) error {
	target := s.path(name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".blob-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *FileStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
