package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Store persists catalogs by name.
type Store interface {
	Save(ctx context.Context, name string, c Catalog) error
	Load(ctx context.Context, name string) (Catalog, error)
}

// FileStore keeps catalogs as text files in a directory.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{dir: dir, logger: logger}
}

// Path returns the file backing the named catalog.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Save writes the catalog, replacing any previous file atomically.
func (s *FileStore) Save(_ context.Context, name string, c Catalog) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, c); err != nil {
		return err
	}

	target := s.Path(name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write catalog: %s - %w", name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to write catalog: %s - %w", name, err)
	}

	s.logger.Info("saved catalog", zap.String("path", target), zap.Int("entries", len(c)))
	return nil
}

// Load reads the named catalog.
func (s *FileStore) Load(_ context.Context, name string) (Catalog, error) {
	target := s.Path(name)
	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, target)
		}
		return nil, fmt.Errorf("failed to open catalog: %s - %w", target, err)
	}
	defer f.Close()

	c, err := Decode(f, s.logger.With(zap.String("catalog", target)))
	if err != nil {
		return nil, err
	}

	s.logger.Info("loaded catalog", zap.String("path", target), zap.Int("entries", len(c)))
	return c, nil
}
