package safefileio

import "errors"

var (
	// ErrInvalidFilePath indicates that the specified file path is invalid.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrIsSymlink indicates that the specified path, or one of its directories, is a symbolic link.
	ErrIsSymlink = errors.New("path is a symbolic link")

	// ErrFileTooLarge indicates that the file exceeds the configured maximum size.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNotRegularFile indicates that the path names a device, FIFO, socket or directory.
	ErrNotRegularFile = errors.New("not a regular file")
)
