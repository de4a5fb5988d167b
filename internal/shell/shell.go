// Package shell implements the interactive numbered menu of elfcheck.
//
// Each prompt accepts either a menu number or a named command with
// shell-style quoted arguments, for example:
//
//	1
//	examine "build/my object.o"
//	disasm a.o main
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/isseis/go-elfcheck/internal/disasm"
	"github.com/isseis/go-elfcheck/internal/registry"
	"github.com/isseis/go-elfcheck/internal/report"
	"github.com/kballard/go-shellquote"
)

// action runs one menu entry or command. A true result ends the session.
type action func(ctx context.Context, args []string) (quit bool)

type menuItem struct {
	name string
	run  action
}

// Options configures a Shell.
type Options struct {
	In       io.Reader
	Out      io.Writer
	Registry *registry.Registry
	// Level is toggled between Info and Debug by the debug action.
	Level    *slog.LevelVar
	Logger   *slog.Logger
	Reporter report.Reporter
	Decoder  *disasm.Decoder
}

// Shell is one interactive session. It is not safe for concurrent use.
type Shell struct {
	in       *bufio.Scanner
	out      io.Writer
	reg      *registry.Registry
	level    *slog.LevelVar
	logger   *slog.Logger
	reporter report.Reporter
	decoder  *disasm.Decoder

	menu     []menuItem
	commands map[string]action
	debug    bool
}

// New creates a shell. Out defaults to io.Discard, Logger to slog.Default,
// Reporter to plain text on Out, Decoder to GNU syntax.
func New(opts Options) *Shell {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	in := opts.In
	if in == nil {
		in = strings.NewReader("")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := opts.Level
	if level == nil {
		level = &slog.LevelVar{}
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter, _ = report.New(out, report.Options{Format: report.FormatText})
	}
	decoder := opts.Decoder
	if decoder == nil {
		decoder = disasm.NewDecoder(disasm.GNUSyntax)
	}
	reg := opts.Registry
	if reg == nil {
		reg = registry.New(registry.Options{Logger: logger})
	}

	s := &Shell{
		in:       bufio.NewScanner(in),
		out:      out,
		reg:      reg,
		level:    level,
		logger:   logger,
		reporter: reporter,
		decoder:  decoder,
		debug:    level.Level() <= slog.LevelDebug,
	}
	s.menu = []menuItem{
		{"Toggle Debug Mode", s.toggleDebug},
		{"Examine ELF File", s.examine},
		{"Print Section Names", s.printSections},
		{"Print Symbols", s.printSymbols},
		{"Check Files for Merge", s.checkMerge},
		{"Merge ELF Files", s.merge},
		{"Quit", s.quit},
	}
	s.commands = map[string]action{
		"debug":    s.toggleDebug,
		"examine":  s.examine,
		"load":     s.examine,
		"sections": s.printSections,
		"symbols":  s.printSymbols,
		"check":    s.checkMerge,
		"merge":    s.merge,
		"quit":     s.quit,
		"exit":     s.quit,
		"unload":   s.unload,
		"files":    s.listFiles,
		"disasm":   s.disassemble,
		"help":     s.help,
	}
	return s
}

// Run shows the menu and executes choices until quit or end of input. Both
// release every loaded object.
func (s *Shell) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			s.release()
			return err
		}
		s.printMenu()
		line, ok := s.readLine()
		if !ok {
			s.release()
			return s.in.Err()
		}
		if s.dispatch(ctx, line) {
			return nil
		}
	}
}

// dispatch runs one input line and reports whether the session ended.
func (s *Shell) dispatch(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		s.println("Invalid choice")
		return false
	}
	if choice, err := strconv.Atoi(line); err == nil {
		if choice < 0 || choice >= len(s.menu) {
			s.println("Invalid choice")
			return false
		}
		return s.menu[choice].run(ctx, nil)
	}

	words, err := shellquote.Split(line)
	if err != nil {
		s.printf("Invalid command line: %v\n", err)
		return false
	}
	if len(words) == 0 {
		s.println("Invalid choice")
		return false
	}
	cmd, ok := s.commands[strings.ToLower(words[0])]
	if !ok {
		s.printf("Unknown command %q, type help for a list\n", words[0])
		return false
	}
	return cmd(ctx, words[1:])
}

func (s *Shell) printMenu() {
	s.println("Choose action:")
	for i, item := range s.menu {
		s.printf("%d-%s\n", i, item.name)
	}
}

func (s *Shell) readLine() (string, bool) {
	if !s.in.Scan() {
		return "", false
	}
	return s.in.Text(), true
}

func (s *Shell) release() {
	if err := s.reg.Close(); err != nil {
		s.logger.Warn("error releasing objects", slog.Any("error", err))
	}
}

func (s *Shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) println(msg string) {
	_, _ = io.WriteString(s.out, msg+"\n")
}
