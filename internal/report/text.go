package report

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/isseis/go-elfcheck/internal/color"
	"github.com/isseis/go-elfcheck/internal/disasm"
	"github.com/isseis/go-elfcheck/internal/elf32"
	"github.com/isseis/go-elfcheck/internal/reconcile"
)

// TextReporter prints the readelf-like tables of the interactive tool.
type TextReporter struct {
	w      io.Writer
	scheme color.Scheme
	err    error
}

// NewTextReporter returns a text reporter using scheme for highlights.
func NewTextReporter(w io.Writer, scheme color.Scheme) *TextReporter {
	return &TextReporter{w: w, scheme: scheme}
}

// printf records the first write error and drops later output.
func (r *TextReporter) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

func (r *TextReporter) flush() error {
	err := r.err
	r.err = nil
	return err
}

// Header prints the file header fields.
func (r *TextReporter) Header(path string, h *elf32.Header) error {
	r.printf("%s\n", r.scheme.Heading("File: "+path))
	r.printf("Magic: %.3s\n", h.Magic[1:])
	r.printf("Class: %s\n", h.Class)
	r.printf("Data Encoding: %s\n", h.EncodingDescription())
	r.printf("Version: %d\n", h.Version)
	r.printf("OS/ABI: %s\n", h.OSABI)
	r.printf("Type: %s\n", h.Type)
	r.printf("Machine: %s\n", h.Machine)
	r.printf("Entry point address: %s\n", r.scheme.Address(fmt.Sprintf("0x%x", h.Entry)))
	r.printf("Flags: 0x%x\n", h.Flags)
	r.printf("Size of this header: %d\n", h.EhSize)
	r.printf("Section header table offset: %d\n", h.ShOff)
	r.printf("Number of section header entries: %d\n", h.ShNum)
	r.printf("Size of each section header entry: %d\n", h.ShEntSize)
	r.printf("Section header string table index: %d\n", h.ShStrIndex)
	r.printf("Program header table offset: %d\n", h.PhOff)
	r.printf("Number of program header entries: %d\n", h.PhNum)
	r.printf("Size of each program header entry: %d\n", h.PhEntSize)
	return r.flush()
}

// Sections prints one row per section header.
func (r *TextReporter) Sections(path string, sections []elf32.Section) error {
	r.printf("%s\n", r.scheme.Heading("File "+path))
	r.printf("[%-3s] %-16s %-12s %-8s %-6s %-6s\n", "Nr", "Name", "Type", "Addr", "Off", "Size")
	for _, s := range sections {
		r.printf("[%2d] %-16s %-12s %08x %06x %06x\n", s.Index, s.Name, s.Type, s.Addr, s.Offset, s.Size)
	}
	return r.flush()
}

// Symbols prints the symbol table, null entry included.
func (r *TextReporter) Symbols(path string, syms []elf32.Symbol) error {
	r.printf("%s\n", r.scheme.Heading("File: "+path))
	r.printf("   Num:    Value  Size Type    Bind   Vis      Ndx Name\n")
	for _, s := range syms {
		r.printf("  %4d: %08x %5d %-7s %-6s %-7s %4s %s\n",
			s.Index, s.Value, s.Size, s.Type, s.Binding, s.Visibility, s.Section, s.Name)
	}
	return r.flush()
}

// Findings prints one line per predicted conflict.
func (r *TextReporter) Findings(first, second string, findings []reconcile.Finding) error {
	r.printf("%s\n", r.scheme.Heading(fmt.Sprintf("Checking %s against %s", first, second)))
	if len(findings) == 0 {
		r.printf("%s\n", r.scheme.OK("No conflicts found."))
		return r.flush()
	}
	for _, f := range findings {
		paint := r.scheme.Warning
		if f.Kind == reconcile.MultiplyDefined {
			paint = r.scheme.Error
		}
		r.printf("%s\n", paint(f.Message()))
	}
	return r.flush()
}

// Disassembly prints address, raw bytes and mnemonic per instruction.
func (r *TextReporter) Disassembly(path string, l *disasm.Listing) error {
	r.printf("%s\n", r.scheme.Heading(fmt.Sprintf("Disassembly of %s in %s (%s):", l.Symbol.Name, path, l.Section.Name)))
	for _, inst := range l.Instructions {
		text := inst.Text
		switch {
		case inst.Op == 0:
			text = r.scheme.Error(text)
		case disasm.IsControlFlow(inst):
			text = r.scheme.Warning(text)
		}
		r.printf("  %s:  %-21s %s\n", r.scheme.Address(fmt.Sprintf("%08x", inst.Addr)), spacedHex(inst.Raw), text)
	}
	return r.flush()
}

// spacedHex formats b as "55 89 e5".
func spacedHex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	s := hex.EncodeToString(b)
	out := make([]byte, 0, len(s)+len(b)-1)
	for i := 0; i < len(s); i += 2 {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, s[i], s[i+1])
	}
	return string(out)
}
