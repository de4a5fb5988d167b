// Package main provides the elfcheck command. It inspects 32-bit ELF objects
// and predicts symbol conflicts between two of them before they are linked.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/isseis/go-elfcheck/internal/config"
	"github.com/isseis/go-elfcheck/internal/disasm"
	"github.com/isseis/go-elfcheck/internal/logging"
	"github.com/isseis/go-elfcheck/internal/reconcile"
	"github.com/isseis/go-elfcheck/internal/registry"
	"github.com/isseis/go-elfcheck/internal/report"
	"github.com/isseis/go-elfcheck/internal/shell"
	"github.com/isseis/go-elfcheck/internal/terminal"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var (
	errNoCommand      = errors.New("a command is required")
	errUnknownCommand = errors.New("unknown command")
	errArgCount       = errors.New("wrong number of arguments")
)

type cliOptions struct {
	configPath     string
	debug          bool
	color          string
	format         string
	syntax         string
	logFile        string
	followSymlinks bool

	// set records the flags given explicitly on the command line.
	set map[string]bool

	command string
	args    []string
}

// command is one subcommand. minArgs/maxArgs bound its positional arguments.
type command struct {
	usage   string
	minArgs int
	maxArgs int
	run     func(*app, []string) error
}

var commands = map[string]command{
	"header":   {usage: "header FILE [FILE]", minArgs: 1, maxArgs: registry.Capacity, run: (*app).header},
	"sections": {usage: "sections FILE [FILE]", minArgs: 1, maxArgs: registry.Capacity, run: (*app).sections},
	"symbols":  {usage: "symbols FILE [FILE]", minArgs: 1, maxArgs: registry.Capacity, run: (*app).symbols},
	"check":    {usage: "check FILE_A FILE_B", minArgs: 2, maxArgs: 2, run: (*app).check},
	"disasm":   {usage: "disasm FILE SYMBOL", minArgs: 2, maxArgs: 2, run: (*app).disasm},
	"shell":    {usage: "shell", minArgs: 0, maxArgs: 0},
}

var commandOrder = []string{"header", "sections", "symbols", "check", "disasm", "shell"}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	settings, err := loadSettings(opts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	level := &slog.LevelVar{}
	level.Set(settings.LogLevel)
	lg, err := logging.Setup(logging.Options{
		Level:    level,
		Console:  stderr,
		Color:    terminal.NewCapabilities(terminal.Options{Mode: settings.Color, Output: stderr}).SupportsColor(),
		FilePath: settings.LogFile,
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	defer func() {
		if err := lg.Close(); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error closing log file: %v\n", err)
		}
	}()
	logger := lg.Logger.With(slog.String("command", opts.command))
	logger.Debug("starting", slog.Any("args", opts.args), slog.String("format", string(settings.Format)))

	useColor := terminal.NewCapabilities(terminal.Options{Mode: settings.Color, Output: stdout}).SupportsColor()
	reporter, err := report.New(stdout, report.Options{Format: settings.Format, Color: useColor})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	a := &app{
		reg:      registry.New(registry.Options{FileOptions: settings.FileOptions, Logger: logger}),
		reporter: reporter,
		decoder:  disasm.NewDecoder(settings.Syntax),
		logger:   logger,
	}
	defer func() {
		if err := a.reg.Close(); err != nil {
			logger.Warn("error releasing objects", slog.Any("error", err))
		}
	}()

	if opts.command == "shell" {
		sh := shell.New(shell.Options{
			In:       stdin,
			Out:      stdout,
			Registry: a.reg,
			Level:    level,
			Logger:   logger,
			Reporter: reporter,
			Decoder:  a.decoder,
		})
		if err := sh.Run(context.Background()); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		return exitOK
	}

	if err := commands[opts.command].run(a, opts.args); err != nil {
		logger.Debug("command failed", slog.Any("error", err))
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

// parseArgs reports its own errors to stderr, so callers only map them to an
// exit code.
func parseArgs(args []string, stderr io.Writer) (*cliOptions, error) {
	opts := &cliOptions{set: map[string]bool{}}

	fs := flag.NewFlagSet("elfcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(fs, stderr) }
	fs.StringVar(&opts.configPath, "config", "", "Path to a TOML configuration file")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&opts.color, "color", "", "Color output: auto, always or never")
	fs.StringVar(&opts.format, "format", "", "Output format: text or json")
	fs.StringVar(&opts.syntax, "syntax", "", "Disassembly syntax: gnu or intel")
	fs.StringVar(&opts.logFile, "log-file", "", "Append JSON log records to this file")
	fs.BoolVar(&opts.followSymlinks, "follow-symlinks", false, "Allow object paths that contain symlinks")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	if err := opts.bindCommand(fs.Args()); err != nil {
		printUsage(fs, stderr)
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, err
	}
	return opts, nil
}

func (opts *cliOptions) bindCommand(rest []string) error {
	if len(rest) == 0 {
		return errNoCommand
	}
	opts.command, opts.args = rest[0], rest[1:]
	cmd, ok := commands[opts.command]
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownCommand, opts.command)
	}
	if len(opts.args) < cmd.minArgs || len(opts.args) > cmd.maxArgs {
		return fmt.Errorf("%w: usage: %s", errArgCount, cmd.usage)
	}
	return nil
}

// loadSettings merges the configuration file with explicitly given flags.
func loadSettings(opts *cliOptions) (*config.Settings, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.LoadFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.set["color"] {
		cfg.Output.Color = opts.color
	}
	if opts.set["format"] {
		cfg.Output.Format = opts.format
	}
	if opts.set["syntax"] {
		cfg.Output.Syntax = opts.syntax
	}
	if opts.set["log-file"] {
		cfg.Logging.File = opts.logFile
	}
	if opts.set["follow-symlinks"] {
		follow := opts.followSymlinks
		cfg.Loader.FollowSymlinks = &follow
	}
	if opts.debug {
		cfg.Logging.Level = "debug"
	}
	return cfg.Resolve()
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, "Usage: %s [flags] <command> [args]\n\nCommands:\n", filepath.Base(os.Args[0]))
	for _, name := range commandOrder {
		_, _ = fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	_, _ = fmt.Fprintln(w, "\nFlags:")
	fs.PrintDefaults()
}

// app holds the per-invocation state shared by the one-shot commands.
type app struct {
	reg      *registry.Registry
	reporter report.Reporter
	decoder  *disasm.Decoder
	logger   *slog.Logger
}

func (a *app) load(paths []string) ([]*registry.Object, error) {
	objs := make([]*registry.Object, 0, len(paths))
	for _, p := range paths {
		obj, err := a.reg.Load(p)
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

func (a *app) header(paths []string) error {
	objs, err := a.load(paths)
	if err != nil {
		return err
	}
	for _, obj := range objs {
		if err := a.reporter.Header(obj.Path(), obj.Header); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) sections(paths []string) error {
	objs, err := a.load(paths)
	if err != nil {
		return err
	}
	for _, obj := range objs {
		if err := a.reporter.Sections(obj.Path(), obj.Sections); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) symbols(paths []string) error {
	objs, err := a.load(paths)
	if err != nil {
		return err
	}
	for _, obj := range objs {
		report.LogSymbolTable(context.Background(), a.logger, obj.Path(), obj.File)
		syms, err := obj.Symbols()
		if err != nil {
			return fmt.Errorf("%s: %w", obj.Path(), err)
		}
		if err := a.reporter.Symbols(obj.Path(), syms); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) check(paths []string) error {
	objs, err := a.load(paths)
	if err != nil {
		return err
	}
	if objs[0] == objs[1] {
		return fmt.Errorf("%w: both arguments name %s", reconcile.ErrReconciliationUnavailable, objs[0].Path())
	}
	findings, err := reconcile.Check(objs[0], objs[1])
	if err != nil {
		return err
	}
	return a.reporter.Findings(objs[0].Path(), objs[1].Path(), findings)
}

func (a *app) disasm(args []string) error {
	objs, err := a.load(args[:1])
	if err != nil {
		return err
	}
	listing, err := disasm.Symbol(objs[0].File, args[1], a.decoder)
	if err != nil {
		return err
	}
	return a.reporter.Disassembly(objs[0].Path(), listing)
}
