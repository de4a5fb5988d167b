package shell

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/isseis/go-elfcheck/internal/disasm"
	"github.com/isseis/go-elfcheck/internal/elf32"
	"github.com/isseis/go-elfcheck/internal/reconcile"
	"github.com/isseis/go-elfcheck/internal/registry"
	"github.com/isseis/go-elfcheck/internal/report"
)

func (s *Shell) toggleDebug(_ context.Context, _ []string) bool {
	s.debug = !s.debug
	if s.debug {
		s.level.Set(slog.LevelDebug)
		s.println("Debug flag now on")
	} else {
		s.level.Set(slog.LevelInfo)
		s.println("Debug flag now off")
	}
	return false
}

// examine loads a file, prompting for its name when none is given, and
// prints its header.
func (s *Shell) examine(_ context.Context, args []string) bool {
	var path string
	if len(args) > 0 {
		path = args[0]
	} else {
		s.printf("Enter ELF file name: ")
		line, ok := s.readLine()
		if !ok {
			s.println("")
			return false
		}
		path = strings.TrimSpace(line)
	}
	if path == "" {
		s.println("No file name given")
		return false
	}

	obj, err := s.reg.Load(path)
	if err != nil {
		s.reportLoadError(path, err)
		return false
	}
	if err := s.reporter.Header(obj.Path(), obj.Header); err != nil {
		s.logger.Error("failed to write report", slog.Any("error", err))
	}
	return false
}

func (s *Shell) reportLoadError(path string, err error) {
	s.logger.Debug("load failed", slog.String("path", path), slog.Any("error", err))
	switch {
	case errors.Is(err, registry.ErrCapacityExceeded):
		s.printf("Cannot handle more than %d ELF files.\n", registry.Capacity)
	case errors.Is(err, elf32.ErrInvalidMagic):
		s.println("Not an ELF file")
	default:
		s.printf("Error: %v\n", err)
	}
}

// selected returns the resident objects named by args, or every resident
// object when args is empty. It never loads a file.
func (s *Shell) selected(args []string) ([]*registry.Object, bool) {
	if len(args) == 0 {
		objs := s.reg.Objects()
		if len(objs) == 0 {
			s.println("No ELF files loaded")
			return nil, false
		}
		return objs, true
	}
	objs := make([]*registry.Object, 0, len(args))
	for _, path := range args {
		obj, ok := s.reg.Lookup(path)
		if !ok {
			s.printf("%s is not loaded\n", path)
			return nil, false
		}
		objs = append(objs, obj)
	}
	return objs, true
}

func (s *Shell) printSections(_ context.Context, args []string) bool {
	objs, ok := s.selected(args)
	if !ok {
		return false
	}
	for _, obj := range objs {
		if err := s.reporter.Sections(obj.Path(), obj.Sections); err != nil {
			s.logger.Error("failed to write report", slog.Any("error", err))
			return false
		}
	}
	return false
}

// printSymbols prints the symbol table of each selected object. An object
// without a usable table is reported and the remaining objects are still printed.
func (s *Shell) printSymbols(ctx context.Context, args []string) bool {
	objs, ok := s.selected(args)
	if !ok {
		return false
	}
	for _, obj := range objs {
		report.LogSymbolTable(ctx, s.logger, obj.Path(), obj.File)
		syms, err := obj.Symbols()
		if err != nil {
			s.reportSymbolError(obj.Path(), err)
			continue
		}
		if err := s.reporter.Symbols(obj.Path(), syms); err != nil {
			s.logger.Error("failed to write report", slog.Any("error", err))
			return false
		}
	}
	return false
}

func (s *Shell) reportSymbolError(path string, err error) {
	switch {
	case errors.Is(err, elf32.ErrSymbolTableMissing):
		s.printf("Symbol table not found in %s\n", path)
	case errors.Is(err, elf32.ErrStringTableMissing):
		s.printf("String table not found in %s\n", path)
	default:
		s.printf("Invalid headers or string table for %s: %v\n", path, err)
	}
}

func (s *Shell) checkMerge(_ context.Context, _ []string) bool {
	first, second, ok := s.reg.Pair()
	if !ok {
		s.println("Error: Exactly 2 ELF files must be opened and mapped.")
		return false
	}
	findings, err := reconcile.Reconcile(first, second)
	if err != nil {
		if errors.Is(err, elf32.ErrSymbolTableMissing) {
			s.println("Feature not supported: Each file must contain exactly one symbol table.")
		} else {
			s.printf("Error: %v\n", err)
		}
		return false
	}
	s.logger.Debug("reconciled", slog.String("first", first.Path()), slog.String("second", second.Path()), slog.Int("findings", len(findings)))
	if err := s.reporter.Findings(first.Path(), second.Path(), findings); err != nil {
		s.logger.Error("failed to write report", slog.Any("error", err))
	}
	return false
}

func (s *Shell) merge(_ context.Context, _ []string) bool {
	s.println("Not implemented yet")
	return false
}

func (s *Shell) quit(_ context.Context, _ []string) bool {
	s.release()
	s.println("quitting")
	return true
}

func (s *Shell) unload(_ context.Context, args []string) bool {
	if len(args) != 1 {
		s.println("usage: unload FILE")
		return false
	}
	if err := s.reg.Unload(args[0]); err != nil {
		s.printf("Error: %v\n", err)
		return false
	}
	s.printf("Unloaded %s\n", args[0])
	return false
}

func (s *Shell) listFiles(_ context.Context, _ []string) bool {
	objs := s.reg.Objects()
	if len(objs) == 0 {
		s.println("No ELF files loaded")
		return false
	}
	for _, obj := range objs {
		s.printf("[%d] %s\n", obj.Slot(), obj.Path())
	}
	return false
}

// disassemble loads FILE if needed and lists SYMBOL's instructions.
func (s *Shell) disassemble(_ context.Context, args []string) bool {
	if len(args) != 2 {
		s.println("usage: disasm FILE SYMBOL")
		return false
	}
	obj, err := s.reg.Load(args[0])
	if err != nil {
		s.reportLoadError(args[0], err)
		return false
	}
	listing, err := disasm.Symbol(obj.File, args[1], s.decoder)
	if err != nil {
		s.printf("Error: %v\n", err)
		return false
	}
	if err := s.reporter.Disassembly(obj.Path(), listing); err != nil {
		s.logger.Error("failed to write report", slog.Any("error", err))
	}
	return false
}

func (s *Shell) help(_ context.Context, _ []string) bool {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	s.println("Commands: " + strings.Join(names, ", "))
	return false
}
