//go:build test

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	elf32testing "github.com/isseis/go-elfcheck/internal/elf32/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	t.Setenv("CLICOLOR_FORCE", "")
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// tempDir resolves symlinks in the temporary directory path, which the loader
// refuses by default.
func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

// writePair writes two objects that produce one finding of each kind.
func writePair(t *testing.T) (string, string) {
	t.Helper()
	dir := tempDir(t)
	a := elf32testing.NewBuilder().
		AddText([]byte{0x55, 0x89, 0xe5, 0x5d, 0xc3}).
		Defined("main", ".text").
		Defined("util", ".text").
		Undefined("helper").
		Undefined("missing_fn").
		WriteFile(t, dir, "a.o")
	b := elf32testing.NewBuilder().
		AddText([]byte{0xc3}).
		Defined("main", ".text").
		Undefined("util").
		Undefined("helper").
		WriteFile(t, dir, "b.o")
	return a, b
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{name: "no command", args: nil, wantCode: exitUsage, wantErr: "a command is required"},
		{name: "unknown command", args: []string{"link"}, wantCode: exitUsage, wantErr: "unknown command: link"},
		{name: "check needs two files", args: []string{"check", "a.o"}, wantCode: exitUsage, wantErr: "usage: check FILE_A FILE_B"},
		{name: "too many files", args: []string{"header", "a", "b", "c"}, wantCode: exitUsage, wantErr: "wrong number of arguments"},
		{name: "unknown flag", args: []string{"-verbose", "header", "a"}, wantCode: exitUsage},
		{name: "help", args: []string{"-h"}, wantCode: exitOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runCLI(t, "", tt.args...)
			assert.Equal(t, tt.wantCode, r.code)
			assert.Contains(t, r.stderr, "Usage:")
			if tt.wantErr != "" {
				assert.Contains(t, r.stderr, tt.wantErr)
			}
		})
	}
}

func TestRun_Header(t *testing.T) {
	a, _ := writePair(t)
	r := runCLI(t, "", "header", a)

	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "File: "+a)
	assert.Contains(t, r.stdout, "Magic: ELF")
	assert.Contains(t, r.stdout, "Entry point address: 0x0")
}

func TestRun_Sections(t *testing.T) {
	a, _ := writePair(t)
	r := runCLI(t, "", "sections", a)

	require.Equal(t, exitOK, r.code, r.stderr)
	for _, name := range []string{".text", ".symtab", ".strtab", ".shstrtab"} {
		assert.Contains(t, r.stdout, name)
	}
}

func TestRun_SymbolsJSON(t *testing.T) {
	a, _ := writePair(t)
	r := runCLI(t, "", "-format", "json", "symbols", a)
	require.Equal(t, exitOK, r.code, r.stderr)

	var doc struct {
		File    string `json:"file"`
		Symbols []struct {
			Name    string `json:"name"`
			Defined bool   `json:"defined"`
		} `json:"symbols"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &doc))
	assert.Equal(t, a, doc.File)
	require.Len(t, doc.Symbols, 5)
	assert.Equal(t, "main", doc.Symbols[1].Name)
	assert.True(t, doc.Symbols[1].Defined)
	assert.False(t, doc.Symbols[3].Defined)
}

func TestRun_Check(t *testing.T) {
	a, b := writePair(t)
	r := runCLI(t, "", "check", a, b)

	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Symbol main multiply defined.")
	assert.Contains(t, r.stdout, "Symbol helper undefined in both files.")
	assert.Contains(t, r.stdout, "Symbol missing_fn undefined in second file.")
	assert.NotContains(t, r.stdout, "util")

	r = runCLI(t, "", "check", a, a)
	assert.Equal(t, exitError, r.code)
	assert.Contains(t, r.stderr, "reconciliation unavailable")
}

func TestRun_CheckWithoutSymbolTable(t *testing.T) {
	a, _ := writePair(t)
	noSymtab := elf32testing.NewBuilder().AddText([]byte{0xc3})
	noSymtab.NoSymbolTable = true
	bad := noSymtab.WriteFile(t, tempDir(t), "bad.o")

	r := runCLI(t, "", "check", a, bad)
	assert.Equal(t, exitError, r.code)
	assert.Contains(t, r.stderr, "Error: ")
	assert.Contains(t, r.stderr, "reconciliation unavailable")
}

func TestRun_Disasm(t *testing.T) {
	a, _ := writePair(t)

	r := runCLI(t, "", "disasm", a, "main")
	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Disassembly of main in "+a+" (.text):")
	assert.Contains(t, r.stdout, "push")
	assert.Contains(t, r.stdout, "%ebp")

	r = runCLI(t, "", "-syntax", "intel", "disasm", a, "main")
	require.Equal(t, exitOK, r.code, r.stderr)
	assert.NotContains(t, r.stdout, "%ebp")

	r = runCLI(t, "", "disasm", a, "helper")
	assert.Equal(t, exitError, r.code)
	assert.Contains(t, r.stderr, "defined symbol not found")
}

func TestRun_LoadErrors(t *testing.T) {
	dir := tempDir(t)
	notELF := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notELF, []byte("plain text, not an object file at all......................"), 0o600))

	r := runCLI(t, "", "header", notELF)
	assert.Equal(t, exitError, r.code)
	assert.Contains(t, r.stderr, "Error: ")

	r = runCLI(t, "", "header", filepath.Join(dir, "missing.o"))
	assert.Equal(t, exitError, r.code)
	assert.Contains(t, r.stderr, "Error: ")
}

func TestRun_Symlinks(t *testing.T) {
	a, _ := writePair(t)
	link := filepath.Join(tempDir(t), "link.o")
	require.NoError(t, os.Symlink(a, link))

	r := runCLI(t, "", "header", link)
	assert.Equal(t, exitError, r.code)

	r = runCLI(t, "", "-follow-symlinks", "header", link)
	assert.Equal(t, exitOK, r.code, r.stderr)
}

func TestRun_Config(t *testing.T) {
	a, _ := writePair(t)
	dir := tempDir(t)

	cfgPath := filepath.Join(dir, "elfcheck.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[output]\nformat = \"json\"\n"), 0o600))

	t.Run("file sets format", func(t *testing.T) {
		r := runCLI(t, "", "-config", cfgPath, "header", a)
		require.Equal(t, exitOK, r.code, r.stderr)
		assert.True(t, json.Valid([]byte(r.stdout)))
	})

	t.Run("flag overrides file", func(t *testing.T) {
		r := runCLI(t, "", "-config", cfgPath, "-format", "text", "header", a)
		require.Equal(t, exitOK, r.code, r.stderr)
		assert.Contains(t, r.stdout, "Magic: ELF")
	})

	t.Run("unknown key", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.toml")
		require.NoError(t, os.WriteFile(bad, []byte("[output]\ncolour = \"never\"\n"), 0o600))
		r := runCLI(t, "", "-config", bad, "header", a)
		assert.Equal(t, exitError, r.code)
		assert.Contains(t, r.stderr, "Error: ")
	})

	t.Run("invalid flag value", func(t *testing.T) {
		r := runCLI(t, "", "-format", "yaml", "header", a)
		assert.Equal(t, exitError, r.code)
		assert.Contains(t, r.stderr, "output.format")
	})
}

func TestRun_DebugLogFile(t *testing.T) {
	a, _ := writePair(t)
	logPath := filepath.Join(tempDir(t), "elfcheck.log")

	r := runCLI(t, "", "-debug", "-log-file", logPath, "symbols", a)
	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Contains(t, r.stderr, "DEBUG")
	assert.Contains(t, r.stderr, "symbol table")

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.NotEmpty(t, lines)
	for _, line := range lines {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		assert.NotEmpty(t, rec["run_id"])
		assert.Equal(t, "symbols", rec["command"])
	}
}

func TestRun_Shell(t *testing.T) {
	a, b := writePair(t)
	stdin := strings.Join([]string{"1", a, "1", b, "4", "6"}, "\n") + "\n"

	r := runCLI(t, stdin, "shell")
	require.Equal(t, exitOK, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Choose action:")
	assert.Contains(t, r.stdout, "Symbol main multiply defined.")
	assert.Contains(t, r.stdout, "quitting")
}
