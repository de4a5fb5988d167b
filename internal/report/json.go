package report

import (
	"encoding/json"
	"io"

	"github.com/isseis/go-elfcheck/internal/disasm"
	"github.com/isseis/go-elfcheck/internal/elf32"
	"github.com/isseis/go-elfcheck/internal/reconcile"
)

// JSONReporter writes one indented JSON document per report.
type JSONReporter struct {
	enc *json.Encoder
}

// NewJSONReporter returns a reporter encoding to w.
func NewJSONReporter(w io.Writer) *JSONReporter {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &JSONReporter{enc: enc}
}

// HeaderDoc is the JSON form of a file header.
type HeaderDoc struct {
	File            string `json:"file"`
	Magic           string `json:"magic"`
	Class           string `json:"class"`
	DataEncoding    string `json:"data_encoding"`
	Version         uint8  `json:"version"`
	OSABI           string `json:"os_abi"`
	Type            string `json:"type"`
	Machine         string `json:"machine"`
	Entry           uint32 `json:"entry"`
	Flags           uint32 `json:"flags"`
	HeaderSize      uint16 `json:"header_size"`
	SectionOffset   uint32 `json:"section_header_offset"`
	SectionCount    uint16 `json:"section_header_count"`
	SectionEntSize  uint16 `json:"section_header_entry_size"`
	SectionStrIndex uint16 `json:"section_name_table_index"`
	ProgramOffset   uint32 `json:"program_header_offset"`
	ProgramCount    uint16 `json:"program_header_count"`
	ProgramEntSize  uint16 `json:"program_header_entry_size"`
}

// SectionDoc is the JSON form of a section header.
type SectionDoc struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Kind      string `json:"kind"`
	Flags     uint32 `json:"flags"`
	Addr      uint32 `json:"addr"`
	Offset    uint32 `json:"offset"`
	Size      uint32 `json:"size"`
	Link      uint32 `json:"link"`
	Info      uint32 `json:"info"`
	AddrAlign uint32 `json:"addralign"`
	EntSize   uint32 `json:"entsize"`
}

// SymbolDoc is the JSON form of a symbol.
type SymbolDoc struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Value      uint32 `json:"value"`
	Size       uint32 `json:"size"`
	Type       string `json:"type"`
	Binding    string `json:"binding"`
	Visibility string `json:"visibility"`
	Section    string `json:"section"`
	Defined    bool   `json:"defined"`
}

// FindingDoc is the JSON form of a reconciliation finding.
type FindingDoc struct {
	Kind        string `json:"kind"`
	Symbol      string `json:"symbol"`
	FirstIndex  int    `json:"first_index"`
	SecondIndex int    `json:"second_index"`
	Message     string `json:"message"`
}

// InstructionDoc is the JSON form of one instruction.
type InstructionDoc struct {
	Addr        uint32 `json:"addr"`
	Bytes       string `json:"bytes"`
	Text        string `json:"text"`
	ControlFlow bool   `json:"control_flow"`
	// Bad marks bytes that do not decode.
	Bad bool `json:"bad,omitempty"`
}

// Header writes {"header": ...}.
func (r *JSONReporter) Header(path string, h *elf32.Header) error {
	return r.enc.Encode(struct {
		Header HeaderDoc `json:"header"`
	}{HeaderDoc{
		File:            path,
		Magic:           string(h.Magic[1:]),
		Class:           h.Class.String(),
		DataEncoding:    h.EncodingDescription(),
		Version:         h.Version,
		OSABI:           h.OSABI.String(),
		Type:            h.Type.String(),
		Machine:         h.Machine.String(),
		Entry:           h.Entry,
		Flags:           h.Flags,
		HeaderSize:      h.EhSize,
		SectionOffset:   h.ShOff,
		SectionCount:    h.ShNum,
		SectionEntSize:  h.ShEntSize,
		SectionStrIndex: h.ShStrIndex,
		ProgramOffset:   h.PhOff,
		ProgramCount:    h.PhNum,
		ProgramEntSize:  h.PhEntSize,
	}})
}

// Sections writes {"file": ..., "sections": [...]}.
func (r *JSONReporter) Sections(path string, sections []elf32.Section) error {
	docs := make([]SectionDoc, 0, len(sections))
	for _, s := range sections {
		docs = append(docs, SectionDoc{
			Index:     s.Index,
			Name:      s.Name,
			Type:      s.Type.String(),
			Kind:      s.Kind().String(),
			Flags:     s.Flags,
			Addr:      s.Addr,
			Offset:    s.Offset,
			Size:      s.Size,
			Link:      s.Link,
			Info:      s.Info,
			AddrAlign: s.AddrAlign,
			EntSize:   s.EntSize,
		})
	}
	return r.enc.Encode(struct {
		File     string       `json:"file"`
		Sections []SectionDoc `json:"sections"`
	}{path, docs})
}

// Symbols writes {"file": ..., "symbols": [...]}.
func (r *JSONReporter) Symbols(path string, syms []elf32.Symbol) error {
	docs := make([]SymbolDoc, 0, len(syms))
	for _, s := range syms {
		docs = append(docs, SymbolDoc{
			Index:      s.Index,
			Name:       s.Name,
			Value:      s.Value,
			Size:       s.Size,
			Type:       s.Type.String(),
			Binding:    s.Binding.String(),
			Visibility: s.Visibility.String(),
			Section:    s.Section.String(),
			Defined:    s.Defined(),
		})
	}
	return r.enc.Encode(struct {
		File    string      `json:"file"`
		Symbols []SymbolDoc `json:"symbols"`
	}{path, docs})
}

// Findings writes {"first": ..., "second": ..., "findings": [...]}.
func (r *JSONReporter) Findings(first, second string, findings []reconcile.Finding) error {
	docs := make([]FindingDoc, 0, len(findings))
	for _, f := range findings {
		docs = append(docs, FindingDoc{
			Kind:        f.Kind.String(),
			Symbol:      f.Name,
			FirstIndex:  f.FirstIndex,
			SecondIndex: f.SecondIndex,
			Message:     f.Message(),
		})
	}
	return r.enc.Encode(struct {
		First    string       `json:"first"`
		Second   string       `json:"second"`
		Findings []FindingDoc `json:"findings"`
	}{first, second, docs})
}

// Disassembly writes {"file": ..., "symbol": ..., "instructions": [...]}.
func (r *JSONReporter) Disassembly(path string, l *disasm.Listing) error {
	docs := make([]InstructionDoc, 0, len(l.Instructions))
	for _, inst := range l.Instructions {
		docs = append(docs, InstructionDoc{
			Addr:        inst.Addr,
			Bytes:       spacedHex(inst.Raw),
			Text:        inst.Text,
			ControlFlow: disasm.IsControlFlow(inst),
			Bad:         inst.Op == 0,
		})
	}
	return r.enc.Encode(struct {
		File         string           `json:"file"`
		Symbol       string           `json:"symbol"`
		Section      string           `json:"section"`
		Instructions []InstructionDoc `json:"instructions"`
	}{path, l.Symbol.Name, l.Section.Name, docs})
}
