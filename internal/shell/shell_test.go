//go:build test

package shell

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	elf32testing "github.com/isseis/go-elfcheck/internal/elf32/testing"
	"github.com/isseis/go-elfcheck/internal/registry"
	"github.com/isseis/go-elfcheck/internal/safefileio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir    string
	reg    *registry.Registry
	level  *slog.LevelVar
	logBuf *bytes.Buffer
	out    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logBuf := &bytes.Buffer{}
	level := &slog.LevelVar{}
	logger := slog.New(slog.NewJSONHandler(logBuf, &slog.HandlerOptions{Level: level}))
	return &fixture{
		dir:    t.TempDir(),
		reg:    registry.New(registry.Options{Logger: logger, FileOptions: safefileio.Options{FollowSymlinks: true}}),
		level:  level,
		logBuf: logBuf,
		out:    &bytes.Buffer{},
	}
}

func (f *fixture) run(t *testing.T, lines ...string) string {
	t.Helper()
	sh := New(Options{
		In:       strings.NewReader(strings.Join(lines, "\n") + "\n"),
		Out:      f.out,
		Registry: f.reg,
		Level:    f.level,
		Logger:   slog.New(slog.NewJSONHandler(f.logBuf, &slog.HandlerOptions{Level: f.level})),
	})
	require.NoError(t, sh.Run(context.Background()))
	return f.out.String()
}

// objects writes a.o and b.o whose symbols produce one finding of each kind.
func (f *fixture) objects(t *testing.T) (string, string) {
	t.Helper()
	a := elf32testing.NewBuilder().
		AddText([]byte{0x55, 0x89, 0xe5, 0x5d, 0xc3}).
		Defined("main", ".text").
		Undefined("helper").
		Undefined("missing_fn").
		WriteFile(t, f.dir, "a.o")
	b := elf32testing.NewBuilder().
		AddText([]byte{0xc3}).
		Defined("main", ".text").
		Undefined("helper").
		WriteFile(t, f.dir, "b.o")
	return a, b
}

func TestShell_MenuSession(t *testing.T) {
	f := newFixture(t)
	a, b := f.objects(t)

	out := f.run(t, "1", a, "1", b, "2", "3", "4", "5", "6")

	assert.True(t, strings.HasPrefix(out, "Choose action:\n0-Toggle Debug Mode\n1-Examine ELF File\n"))
	assert.Contains(t, out, "6-Quit\n")
	assert.Contains(t, out, "Enter ELF file name: ")
	assert.Contains(t, out, "Magic: ELF\n")
	assert.Contains(t, out, "Data Encoding: 2's complement, little endian\n")
	assert.Contains(t, out, "File "+a+"\n")
	assert.Contains(t, out, "[ 1] .text            PROGBITS")
	assert.Contains(t, out, "   Num:    Value  Size Type    Bind   Vis      Ndx Name\n")
	assert.Contains(t, out, "Symbol main multiply defined.\n")
	assert.Contains(t, out, "Symbol helper undefined in both files.\n")
	assert.Contains(t, out, "Symbol missing_fn undefined in second file.\n")
	assert.Contains(t, out, "Not implemented yet\n")
	assert.True(t, strings.HasSuffix(out, "quitting\n"))

	assert.Equal(t, 0, f.reg.Len(), "quit releases every object")
}

func TestShell_LoadErrors(t *testing.T) {
	f := newFixture(t)
	a, b := f.objects(t)
	c := elf32testing.NewBuilder().WriteFile(t, f.dir, "c.o")
	script := filepath.Join(f.dir, "run.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0o600))

	out := f.run(t,
		"examine "+script,
		"examine "+a,
		"examine "+a, // reuse, not a new slot
		"examine "+filepath.Join(f.dir, "missing.o"),
		"examine "+b,
		"examine "+c,
		"quit")

	assert.Contains(t, out, "Not an ELF file\n")
	assert.Contains(t, out, "Cannot handle more than 2 ELF files.\n")
	assert.Contains(t, out, "Error: open ")
	assert.Equal(t, 1, strings.Count(out, "Cannot handle"))
}

func TestShell_CheckNeedsTwoFiles(t *testing.T) {
	f := newFixture(t)
	a, _ := f.objects(t)

	out := f.run(t, "4", "examine "+a, "check", "quit")
	assert.Equal(t, 2, strings.Count(out, "Error: Exactly 2 ELF files must be opened and mapped.\n"))
}

func TestShell_CheckWithoutSymbolTable(t *testing.T) {
	f := newFixture(t)
	a, _ := f.objects(t)
	nb := elf32testing.NewBuilder().AddText([]byte{0xc3})
	nb.NoSymbolTable = true
	bare := nb.WriteFile(t, f.dir, "bare.o")

	out := f.run(t, "examine "+a, "examine "+bare, "check", "symbols", "quit")
	assert.Contains(t, out, "Feature not supported: Each file must contain exactly one symbol table.\n")
	assert.Contains(t, out, "Symbol table not found in "+bare+"\n")
	assert.Contains(t, out, "File: "+a+"\n", "the other object is still printed")
}

func TestShell_DebugToggle(t *testing.T) {
	f := newFixture(t)
	a, _ := f.objects(t)

	out := f.run(t, "0", "examine "+a, "symbols", "0", "quit")
	assert.Contains(t, out, "Debug flag now on\n")
	assert.Contains(t, out, "Debug flag now off\n")
	assert.Equal(t, slog.LevelInfo, f.level.Level())

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(f.logBuf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if rec["msg"] == "symbol table" {
			found = true
			assert.Equal(t, float64(4), rec["symbol_count"])
		}
	}
	assert.True(t, found, "debug mode logs the symbol table layout")
}

func TestShell_NamedCommands(t *testing.T) {
	f := newFixture(t)
	spaced := elf32testing.NewBuilder().
		AddText([]byte{0x55, 0x89, 0xe5, 0x5d, 0xc3}).
		Defined("main", ".text").
		WriteFile(t, f.dir, "my object.o")

	out := f.run(t,
		`load "`+spaced+`"`,
		"files",
		`disasm "`+spaced+`" main`,
		`disasm "`+spaced+`" nope`,
		`unload "`+spaced+`"`,
		"files",
		`unload "`+spaced+`"`,
		"help",
		"frobnicate",
		`examine "unterminated`,
		"exit")

	assert.Contains(t, out, "[0] "+spaced+"\n")
	assert.Contains(t, out, "Disassembly of main in "+spaced+" (.text):\n")
	assert.Contains(t, out, "  00000000:  55 ")
	assert.Contains(t, out, "defined symbol not found: nope")
	assert.Contains(t, out, "Unloaded "+spaced+"\n")
	assert.Contains(t, out, "No ELF files loaded\n")
	assert.Contains(t, out, "object not loaded")
	assert.Contains(t, out, "Commands: check, debug, disasm, examine, exit, files, help, load, merge, quit, sections, symbols, unload\n")
	assert.Contains(t, out, "Unknown command \"frobnicate\"")
	assert.Contains(t, out, "Invalid command line: ")
}

func TestShell_PrintSelectedObject(t *testing.T) {
	f := newFixture(t)
	a, b := f.objects(t)
	// c.o exists on disk but is never loaded.
	missing := elf32testing.NewBuilder().AddText([]byte{0xc3}).Defined("c_only", ".text").WriteFile(t, f.dir, "c.o")

	out := f.run(t,
		"load "+a,
		"load "+b,
		"symbols "+b,
		"sections "+missing,
		"symbols "+missing,
		"quit")

	assert.Contains(t, out, "helper")
	assert.NotContains(t, out, "missing_fn")
	assert.Equal(t, 2, strings.Count(out, missing+" is not loaded\n"))
	assert.NotContains(t, out, "c_only")
}

func TestShell_InvalidChoices(t *testing.T) {
	f := newFixture(t)
	out := f.run(t, "7", "-1", "", "2", "3", "6")
	assert.Equal(t, 3, strings.Count(out, "Invalid choice\n"))
	assert.Equal(t, 2, strings.Count(out, "No ELF files loaded\n"))
}

func TestShell_EndOfInputReleasesObjects(t *testing.T) {
	f := newFixture(t)
	a, _ := f.objects(t)

	sh := New(Options{In: strings.NewReader("examine " + a + "\n"), Out: f.out, Registry: f.reg})
	require.NoError(t, sh.Run(context.Background()))
	assert.Equal(t, 0, f.reg.Len())
	assert.NotContains(t, f.out.String(), "quitting")
}

func TestShell_ExaminePromptAtEndOfInput(t *testing.T) {
	f := newFixture(t)
	sh := New(Options{In: strings.NewReader("1\n"), Out: f.out, Registry: f.reg})
	require.NoError(t, sh.Run(context.Background()))
	assert.Contains(t, f.out.String(), "Enter ELF file name: ")
}

func TestShell_ContextCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sh := New(Options{In: strings.NewReader("2\n"), Out: f.out, Registry: f.reg})
	assert.ErrorIs(t, sh.Run(ctx), context.Canceled)
}
