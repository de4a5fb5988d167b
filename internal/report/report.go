// Package report renders decoded objects, reconciliation findings and
// disassembly listings as text tables or JSON.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/isseis/go-elfcheck/internal/color"
	"github.com/isseis/go-elfcheck/internal/disasm"
	"github.com/isseis/go-elfcheck/internal/elf32"
	"github.com/isseis/go-elfcheck/internal/reconcile"
)

// Format selects the output encoding.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat parses text or json. The empty string is text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid output format %q (want text or json)", s)
	}
}

// Reporter writes one report per call.
type Reporter interface {
	Header(path string, h *elf32.Header) error
	Sections(path string, sections []elf32.Section) error
	Symbols(path string, syms []elf32.Symbol) error
	Findings(first, second string, findings []reconcile.Finding) error
	Disassembly(path string, l *disasm.Listing) error
}

// Options configures New.
type Options struct {
	Format Format
	// Color enables ANSI colors in text output. JSON output is never colored.
	Color bool
}

// New returns a Reporter writing to w.
func New(w io.Writer, opts Options) (Reporter, error) {
	switch opts.Format {
	case "", FormatText:
		return &TextReporter{w: w, scheme: color.For(opts.Color)}, nil
	case FormatJSON:
		return NewJSONReporter(w), nil
	default:
		return nil, fmt.Errorf("invalid output format %q", opts.Format)
	}
}
