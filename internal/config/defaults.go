package config

import "github.com/isseis/go-elfcheck/internal/safefileio"

// Default values for configuration fields
const (
	DefaultColor          = "auto"
	DefaultFormat         = "text"
	DefaultSyntax         = "gnu"
	DefaultLogLevel       = "info"
	DefaultFollowSymlinks = false
	DefaultMaxFileSize    = int64(safefileio.DefaultMaxFileSize)
)

// Default returns a configuration with every field at its default.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields of cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Output.Color == "" {
		cfg.Output.Color = DefaultColor
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = DefaultFormat
	}
	if cfg.Output.Syntax == "" {
		cfg.Output.Syntax = DefaultSyntax
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Loader.FollowSymlinks == nil {
		v := DefaultFollowSymlinks
		cfg.Loader.FollowSymlinks = &v
	}
	if cfg.Loader.MaxFileSize == nil {
		v := DefaultMaxFileSize
		cfg.Loader.MaxFileSize = &v
	}
}
