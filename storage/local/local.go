package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/davidvella/xsort/storage"
)

// Storage keeps runs as numbered files in one directory.
type Storage struct {
	dir   string
	owned bool
}

func NewLocalStorage(dir string) *Storage {
	return &Storage{dir: dir}
}

// NewTempStorage creates a private directory under parent (os.TempDir when
// empty). Close removes it along with any runs left behind.
func NewTempStorage(parent string) (*Storage, error) {
	dir, err := os.MkdirTemp(parent, "xsort-runs-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	s := NewLocalStorage(dir)
	s.owned = true
	return s, nil
}

// Dir returns the directory holding the runs.
func (s *Storage) Dir() string {
	return s.dir
}

func (s *Storage) Name(index int) string {
	return filepath.Join(s.dir, strconv.Itoa(index))
}

func (s *Storage) Create(_ context.Context, index int) (io.WriteCloser, error) {
	path := s.Name(index)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("failed to create file %s: %w", path, storage.ErrRunExists)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}
	return file, nil
}

func (s *Storage) Open(_ context.Context, index int) (io.ReadCloser, error) {
	path := s.Name(index)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	return file, nil
}

func (s *Storage) Delete(_ context.Context, index int) error {
	path := s.Name(index)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return nil
}

// Close removes the directory if this Storage created it.
func (s *Storage) Close() error {
	if !s.owned {
		return nil
	}
	return os.RemoveAll(s.dir)
}
