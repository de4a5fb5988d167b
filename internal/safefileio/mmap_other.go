//go:build !unix

package safefileio

import (
	"fmt"
	"io"
	"os"
)

// O_NOFOLLOW is unavailable; path components are still checked after opening.
const noFollowFlag = 0

// mapReadOnly reads the file into a private buffer on platforms without mmap.
func mapReadOnly(file *os.File, size int) ([]byte, func([]byte) error, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(file, data); err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, func([]byte) error { return nil }, nil
}

func isNoFollowError(error) bool {
	return false
}
