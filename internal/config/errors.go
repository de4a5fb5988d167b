package config

import "errors"

// Configuration loading errors
var (
	// ErrInvalidConfigPath is returned when the config file path is invalid
	ErrInvalidConfigPath = errors.New("invalid config file path")

	// ErrUnknownKey is returned when the file contains a key elfcheck does not know
	ErrUnknownKey = errors.New("unknown configuration key")

	// ErrInvalidValue is returned when a known key has an unacceptable value
	ErrInvalidValue = errors.New("invalid configuration value")
)
