// Package filesystem serves a local mirror of a repository server.
//
// The mirror root holds one directory per repository. Listings and file
// metadata are answered in the storage API shape, with file timestamps in
// the OS (ctime) format.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/taigrr/artifact-reaper/internal/types"
	"github.com/taigrr/artifact-reaper/internal/uri"
)

// TimeLayout is the layout used for Created and LastModified.
const TimeLayout = "Mon Jan _2 15:04:05 2006"

// Service answers fetches and deletes against a mirror directory.
type Service struct {
	root string
}

// New creates a Service rooted at mirrorPath.
func New(mirrorPath string) *Service {
	absPath, _ := filepath.Abs(mirrorPath)
	return &Service{root: absPath}
}

// Root returns the absolute mirror root.
func (s *Service) Root() string {
	return s.root
}

// ResolvePath maps a catalog key to a path inside the mirror.
func (s *Service) ResolvePath(key string) (string, error) {
	key = strings.TrimSpace(key)
	normalized := strings.TrimPrefix(key, "/")

	fullPath := filepath.Join(s.root, filepath.FromSlash(normalized))
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", err
	}

	relPath, err := filepath.Rel(s.root, absPath)
	if err != nil {
		return "", err
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal not allowed: %s", key)
	}

	return absPath, nil
}

// Fetch returns a folder listing or file metadata for key.
func (s *Service) Fetch(ctx context.Context, key string) (*types.DirectoryNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath, err := s.ResolvePath(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, describe(key, err)
	}

	repo, rest := uri.SplitKey(key)
	node := &types.DirectoryNode{Repo: repo, Path: rest, URI: key}

	if !info.IsDir() {
		ts := info.ModTime().Format(TimeLayout)
		node.Created = ts
		node.LastModified = ts
		return node, nil
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, describe(key, err)
	}

	node.Children = make([]types.Child, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && !entry.Type().IsRegular() {
			continue
		}
		node.Children = append(node.Children, types.Child{
			URI:    "/" + entry.Name(),
			Folder: entry.IsDir(),
		})
	}
	return node, nil
}

// Delete removes a file and reports the result as an HTTP status.
func (s *Service) Delete(ctx context.Context, key string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	fullPath, err := s.ResolvePath(key)
	if err != nil {
		return http.StatusBadRequest, nil
	}
	if fullPath == s.root {
		return http.StatusForbidden, nil
	}
	if err := os.Remove(fullPath); err != nil {
		return statusOf(err), nil
	}
	return http.StatusNoContent, nil
}

// Probe reports whether key exists, as an HTTP status.
func (s *Service) Probe(ctx context.Context, key string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	fullPath, err := s.ResolvePath(key)
	if err != nil {
		return http.StatusBadRequest, nil
	}
	if _, err := os.Stat(fullPath); err != nil {
		return statusOf(err), nil
	}
	return http.StatusOK, nil
}

func describe(key string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("not found: %s", key)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("permission denied: %s", key)
	default:
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, fs.ErrPermission):
		return http.StatusForbidden
	default:
		return http.StatusConflict
	}
}
