// Package storage keeps roster files on the local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for names that are empty or point outside the base directory.
var ErrInvalidName = errors.New("storage: invalid file name")

// ErrExists is returned by Create when the target file is already present.
var ErrExists = errors.New("storage: file already exists")

// LocalStorage persists files on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "."
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save writes data under the base directory and returns the written path. Only
// the last element of filename is used, so server supplied names cannot escape.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", filename, err)
	}
	return path, nil
}

// Create writes data like Save but fails with ErrExists when the file is already present.
func (s *LocalStorage) Create(filename string, data []byte) (string, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return "", err
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", ErrExists
		}
		return "", fmt.Errorf("create %s: %w", filename, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close() //nolint:errcheck
		return "", fmt.Errorf("write %s: %w", filename, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", filename, err)
	}
	return path, nil
}

// ReadFile reads a file from anywhere on disk, refusing anything larger than limit bytes.
// A non-positive limit disables the check.
func ReadFile(path string, limit int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck

	var reader io.Reader = file
	if limit > 0 {
		reader = io.LimitReader(file, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("read %s: file exceeds %d bytes", path, limit)
	}
	return data, nil
}

// Path exposes the location a name would be written to.
func (s *LocalStorage) Path(filename string) (string, error) {
	return s.resolve(filename)
}

func (s *LocalStorage) resolve(filename string) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", ErrInvalidName
	}
	return filepath.Join(s.baseDir, name), nil
}
