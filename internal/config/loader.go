// Package config loads the optional TOML configuration file of elfcheck and
// resolves it into typed settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/isseis/go-elfcheck/internal/disasm"
	"github.com/isseis/go-elfcheck/internal/report"
	"github.com/isseis/go-elfcheck/internal/safefileio"
	"github.com/isseis/go-elfcheck/internal/terminal"
	"github.com/pelletier/go-toml/v2"
)

// Config mirrors the TOML file layout. Pointer fields distinguish "unset"
// from the zero value.
type Config struct {
	Output  OutputConfig  `toml:"output"`
	Logging LoggingConfig `toml:"logging"`
	Loader  LoaderConfig  `toml:"loader"`
}

// OutputConfig is the [output] table.
type OutputConfig struct {
	Color  string `toml:"color"`
	Format string `toml:"format"`
	Syntax string `toml:"syntax"`
}

// LoggingConfig is the [logging] table.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoaderConfig is the [loader] table.
type LoaderConfig struct {
	FollowSymlinks *bool  `toml:"follow_symlinks"`
	MaxFileSize    *int64 `toml:"max_file_size"`
}

// Settings is a validated configuration.
type Settings struct {
	Color       terminal.ColorMode
	Format      report.Format
	Syntax      disasm.Syntax
	LogLevel    slog.Level
	LogFile     string
	FileOptions safefileio.Options
}

// LoadFile reads and parses the configuration at path. The file itself is
// opened like an object file: symlinks are refused.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return nil, ErrInvalidConfigPath
	}
	content, err := safefileio.ReadFile(filepath.Clean(path), safefileio.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML content, rejects unknown keys and applies defaults.
func Parse(content []byte) (*Config, error) {
	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(content)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, strict.String())
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Resolve validates every field and converts it to its typed form.
func (c *Config) Resolve() (*Settings, error) {
	cfg := *c
	ApplyDefaults(&cfg)

	colorMode, err := terminal.ParseColorMode(cfg.Output.Color)
	if err != nil {
		return nil, fmt.Errorf("%w: output.color: %w", ErrInvalidValue, err)
	}
	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: output.format: %w", ErrInvalidValue, err)
	}
	syntax, err := disasm.ParseSyntax(cfg.Output.Syntax)
	if err != nil {
		return nil, fmt.Errorf("%w: output.syntax: %w", ErrInvalidValue, err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		return nil, fmt.Errorf("%w: logging.level: %w", ErrInvalidValue, err)
	}
	if *cfg.Loader.MaxFileSize <= 0 {
		return nil, fmt.Errorf("%w: loader.max_file_size must be positive, got %d", ErrInvalidValue, *cfg.Loader.MaxFileSize)
	}

	return &Settings{
		Color:    colorMode,
		Format:   format,
		Syntax:   syntax,
		LogLevel: level,
		LogFile:  cfg.Logging.File,
		FileOptions: safefileio.Options{
			FollowSymlinks: *cfg.Loader.FollowSymlinks,
			MaxFileSize:    *cfg.Loader.MaxFileSize,
		},
	}, nil
}
