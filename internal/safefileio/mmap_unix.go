//go:build unix

package safefileio

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

const noFollowFlag = unix.O_NOFOLLOW

// mapReadOnly maps size bytes of file with PROT_READ and MAP_PRIVATE.
// The mapping stays valid after the descriptor is closed.
func mapReadOnly(file *os.File, size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(int(file.Fd()), 0, size, unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	return data, unix.Munmap, nil
}

// isNoFollowError checks if the error indicates we tried to open a symlink
func isNoFollowError(err error) bool {
	var e *os.PathError
	if !errors.As(err, &e) {
		return false
	}
	return errors.Is(e.Err, unix.ELOOP) || errors.Is(e.Err, unix.EMLINK)
}
