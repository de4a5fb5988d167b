// Package safefileio provides read-only, whole-file access to object files
// with protection against symlink substitution and resource exhaustion.
//
// Files are mapped into memory where the platform supports it and read into
// a private buffer otherwise. The returned bytes must never be written to.
package safefileio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DefaultMaxFileSize is the default maximum file size for mapping (1 GB).
const DefaultMaxFileSize = 1 << 30

// Options controls how MapFile opens a path.
type Options struct {
	// FollowSymlinks allows the final path component and its directories to be symlinks.
	FollowSymlinks bool

	// MaxFileSize rejects larger files. Zero means DefaultMaxFileSize.
	MaxFileSize int64
}

// Mapping is a read-only view of a file's contents.
type Mapping struct {
	path    string
	data    []byte
	release func([]byte) error
}

// Path returns the absolute path the mapping was created from.
func (m *Mapping) Path() string {
	return m.path
}

// Bytes returns the file contents. The slice is invalid after Close.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Len returns the file size in bytes.
func (m *Mapping) Len() int {
	return len(m.data)
}

// Close releases the mapping. Calling Close more than once is harmless.
func (m *Mapping) Close() error {
	if m.release == nil {
		return nil
	}
	data, release := m.data, m.release
	m.data, m.release = nil, nil
	return release(data)
}

// MapFile opens path read-only and returns its whole contents.
//
// Unless opts.FollowSymlinks is set, the file is opened with O_NOFOLLOW and
// every directory component is checked after opening, so a symlink swapped in
// between the check and the open is still detected.
func MapFile(path string, opts Options) (*Mapping, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilePath, err)
	}

	flag := os.O_RDONLY
	if !opts.FollowSymlinks {
		flag |= noFollowFlag
	}
	// #nosec G304 - absPath is cleaned above and symlinks are refused unless allowed
	file, err := os.OpenFile(absPath, flag, 0)
	if err != nil {
		if isNoFollowError(err) {
			return nil, fmt.Errorf("%w: %s", ErrIsSymlink, absPath)
		}
		return nil, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("error closing file after mapping", slog.String("path", absPath), slog.Any("error", closeErr))
		}
	}()

	if !opts.FollowSymlinks {
		if err := verifyPathComponents(absPath); err != nil {
			return nil, err
		}
	}

	// Use the descriptor, not the path, so the checked file is the mapped file.
	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotRegularFile, absPath, fileInfo.Mode())
	}

	limit := opts.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	if fileInfo.Size() > limit {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, fileInfo.Size(), limit)
	}

	// Empty files have nothing to map.
	if fileInfo.Size() == 0 {
		return &Mapping{path: absPath}, nil
	}

	data, release, err := mapReadOnly(file, int(fileInfo.Size()))
	if err != nil {
		return nil, fmt.Errorf("failed to map %s: %w", absPath, err)
	}
	return &Mapping{path: absPath, data: data, release: release}, nil
}

// verifyPathComponents checks that no directory of absPath is a symlink.
// This is called after opening the file to prevent TOCTOU attacks.
func verifyPathComponents(absPath string) error {
	current := filepath.Dir(absPath)
	for {
		parent := filepath.Dir(current)
		if parent == current {
			return nil // root
		}

		fi, err := os.Lstat(current)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("failed to stat %s: %w", current, err)
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s", ErrIsSymlink, current)
		}

		current = parent
	}
}

// ReadFile returns a private copy of path's contents, opened with the same
// checks as MapFile.
func ReadFile(path string, opts Options) ([]byte, error) {
	m, err := MapFile(path, opts)
	if err != nil {
		return nil, err
	}
	data := append([]byte(nil), m.Bytes()...)
	if err := m.Close(); err != nil {
		return nil, fmt.Errorf("failed to release %s: %w", m.Path(), err)
	}
	return data, nil
}

// OpenForAppend opens path for appending, creating it with perm if needed.
// Symlinks are refused at every path component.
func OpenForAppend(path string, perm os.FileMode) (*os.File, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilePath, err)
	}

	// #nosec G304 - absPath is cleaned above and opened with O_NOFOLLOW
	file, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND|noFollowFlag, perm)
	if err != nil {
		if isNoFollowError(err) {
			return nil, fmt.Errorf("%w: %s", ErrIsSymlink, absPath)
		}
		return nil, err
	}
	if err := verifyPathComponents(absPath); err != nil {
		_ = file.Close()
		return nil, err
	}
	fileInfo, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotRegularFile, absPath, fileInfo.Mode())
	}
	return file, nil
}
