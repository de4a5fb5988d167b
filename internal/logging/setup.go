// Package logging configures log/slog for elfcheck: a human-readable console
// handler whose level can be toggled at run time, and an optional JSON log
// file fed through a MultiHandler.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/isseis/go-elfcheck/internal/safefileio"
	"github.com/oklog/ulid/v2"
)

// RunIDKey is the attribute key that identifies one invocation.
const RunIDKey = "run_id"

// logFilePerm is the mode of newly created log files.
const logFilePerm os.FileMode = 0o600

// ErrNilLevel is returned when Options has no Level.
var ErrNilLevel = errors.New("logging: Level is required")

// NewRunID returns a new lexically sortable run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// Options configures Setup.
type Options struct {
	// Level is shared by the console handler; changing it toggles debug output.
	Level *slog.LevelVar
	// Console receives human-readable records.
	Console io.Writer
	// Color enables colored level tags on the console.
	Color bool
	// FilePath, when set, appends JSON records at Debug level and above.
	FilePath string
	// RunID is attached to every record. Empty generates one.
	RunID string
}

// Logging is a configured logger and the resources it holds.
type Logging struct {
	Logger *slog.Logger
	RunID  string

	file *os.File
}

// Setup builds the logger described by opts.
func Setup(opts Options) (*Logging, error) {
	if opts.Level == nil {
		return nil, ErrNilLevel
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	runID := opts.RunID
	if runID == "" {
		runID = NewRunID()
	}

	consoleHandler, err := NewConsoleHandler(ConsoleHandlerOptions{
		Writer: console,
		Level:  opts.Level,
		Color:  opts.Color,
	})
	if err != nil {
		return nil, err
	}
	handlers := []slog.Handler{consoleHandler}

	var file *os.File
	if opts.FilePath != "" {
		file, err = safefileio.OpenForAppend(opts.FilePath, logFilePerm)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	logger := slog.New(NewMultiHandler(handlers...)).With(slog.String(RunIDKey, runID))
	return &Logging{Logger: logger, RunID: runID, file: file}, nil
}

// Close flushes and closes the log file, if any.
func (l *Logging) Close() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
