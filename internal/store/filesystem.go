package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"catalog-go/internal/catalog"
)

var validKey = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// FileSystemStore is a filesystem-based implementation of catalog.Store.
// Each key is one file under the root directory:
//
//	<root>/
//	  products.json
//	  last_sync.json
//	  metadata.json
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a store rooted at the given directory,
// creating it if needed.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

// Get reads the file for key.
func (s *FileSystemStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, true, nil
}

// Set writes value for key using atomic write (temp file + rename).
func (s *FileSystemStore) Set(_ context.Context, key string, value []byte) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, value)
}

// Remove deletes the file for key.
func (s *FileSystemStore) Remove(_ context.Context, key string) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

func (s *FileSystemStore) pathFor(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid store key: %q", key)
	}
	return filepath.Join(s.root, key+".json"), nil
}

// writeFileAtomic writes data to a temp file in the destination directory
// and renames it into place.
func writeFileAtomic(destPath string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemStore implements catalog.Store interface
var _ catalog.Store = (*FileSystemStore)(nil)
