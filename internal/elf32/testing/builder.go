//go:build test

// Package elf32testing provides a synthetic ELF32 object builder for tests.
package elf32testing

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// AbsSection is the SymbolSpec.Section value that produces SHN_ABS.
const AbsSection = "*ABS*"

const (
	headerSize       = 52
	sectionEntrySize = 40
	symbolEntrySize  = 16
	progHeaderSize   = 32
)

// SectionSpec describes a section added with AddSection.
type SectionSpec struct {
	Name  string
	Type  elf.SectionType
	Flags elf.SectionFlag
	Addr  uint32
	Data  []byte
	// Size overrides len(Data); used for NOBITS sections.
	Size uint32
}

// SymbolSpec describes a symbol added with AddSymbol. An empty Section makes
// the symbol undefined.
type SymbolSpec struct {
	Name       string
	Value      uint32
	Size       uint32
	Type       elf.SymType
	Bind       elf.SymBind
	Visibility elf.SymVis
	Section    string
}

// Builder assembles a relocatable ELF32 object in memory. The section order
// is: NULL, the sections added with AddSection, .symtab, .strtab, .shstrtab.
type Builder struct {
	Order          binary.ByteOrder
	Type           elf.Type
	Machine        elf.Machine
	Entry          uint32
	Flags          uint32
	ProgramHeaders int

	// NoSymbolTable omits .symtab; NoStringTable omits .strtab.
	NoSymbolTable bool
	NoStringTable bool
	// SymbolTablePadding appends bytes that do not form a whole entry.
	SymbolTablePadding int

	sections []SectionSpec
	symbols  []SymbolSpec
}

// NewBuilder returns a little-endian EM_386 relocatable object builder.
func NewBuilder() *Builder {
	return &Builder{
		Order:   binary.LittleEndian,
		Type:    elf.ET_REL,
		Machine: elf.EM_386,
	}
}

// AddSection appends a section after the previously added ones.
func (b *Builder) AddSection(s SectionSpec) *Builder {
	b.sections = append(b.sections, s)
	return b
}

// AddText appends an executable PROGBITS .text section holding code.
func (b *Builder) AddText(code []byte) *Builder {
	return b.AddSection(SectionSpec{
		Name:  ".text",
		Type:  elf.SHT_PROGBITS,
		Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR,
		Data:  code,
	})
}

// AddSymbol appends a symbol after the reserved null entry.
func (b *Builder) AddSymbol(s SymbolSpec) *Builder {
	b.symbols = append(b.symbols, s)
	return b
}

// Defined adds a global FUNC symbol owned by the named section.
func (b *Builder) Defined(name, section string) *Builder {
	return b.AddSymbol(SymbolSpec{Name: name, Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Section: section})
}

// Undefined adds a global NOTYPE symbol with SHN_UNDEF.
func (b *Builder) Undefined(name string) *Builder {
	return b.AddSymbol(SymbolSpec{Name: name, Type: elf.STT_NOTYPE, Bind: elf.STB_GLOBAL})
}

type plannedSection struct {
	name    string
	typ     elf.SectionType
	flags   elf.SectionFlag
	addr    uint32
	data    []byte
	size    uint32
	link    uint32
	info    uint32
	align   uint32
	entsize uint32
	nameOff uint32
	offset  uint32
}

type stringTable struct {
	data []byte
	offs map[string]uint32
}

func newStringTable() *stringTable {
	return &stringTable{data: []byte{0}, offs: map[string]uint32{"": 0}}
}

func (t *stringTable) add(s string) uint32 {
	if off, ok := t.offs[s]; ok {
		return off
	}
	off := uint32(len(t.data))
	t.data = append(t.data, s...)
	t.data = append(t.data, 0)
	t.offs[s] = off
	return off
}

// Build lays out the object and returns its bytes. It panics on a symbol
// that names a section which was not added.
func (b *Builder) Build() []byte {
	plan := []plannedSection{{}}
	index := map[string]uint16{}
	for _, s := range b.sections {
		index[s.Name] = uint16(len(plan))
		size := s.Size
		if size == 0 {
			size = uint32(len(s.Data))
		}
		plan = append(plan, plannedSection{
			name: s.Name, typ: s.Type, flags: s.Flags, addr: s.Addr,
			data: s.Data, size: size, align: 4,
		})
	}

	symtabIdx, strtabIdx := -1, -1
	if !b.NoSymbolTable {
		symtabIdx = len(plan)
		plan = append(plan, plannedSection{name: ".symtab", typ: elf.SHT_SYMTAB, align: 4, entsize: symbolEntrySize})
	}
	if !b.NoStringTable {
		strtabIdx = len(plan)
		plan = append(plan, plannedSection{name: ".strtab", typ: elf.SHT_STRTAB, align: 1})
	}
	shstrIdx := len(plan)
	plan = append(plan, plannedSection{name: ".shstrtab", typ: elf.SHT_STRTAB, align: 1})

	strtab := newStringTable()
	if symtabIdx >= 0 {
		symtab := make([]byte, symbolEntrySize, symbolEntrySize*(len(b.symbols)+1))
		locals := 1
		for i, sym := range b.symbols {
			var shndx uint16
			switch sym.Section {
			case "":
				shndx = uint16(elf.SHN_UNDEF)
			case AbsSection:
				shndx = uint16(elf.SHN_ABS)
			default:
				idx, ok := index[sym.Section]
				if !ok {
					panic(fmt.Sprintf("elf32testing: symbol %q names unknown section %q", sym.Name, sym.Section))
				}
				shndx = idx
			}
			if sym.Bind == elf.STB_LOCAL && locals == i+1 {
				locals++
			}
			entry := make([]byte, symbolEntrySize)
			b.Order.PutUint32(entry[0:], strtab.add(sym.Name))
			b.Order.PutUint32(entry[4:], sym.Value)
			b.Order.PutUint32(entry[8:], sym.Size)
			entry[12] = byte(sym.Bind)<<4 | byte(sym.Type)&0xf
			entry[13] = byte(sym.Visibility) & 0x3
			b.Order.PutUint16(entry[14:], shndx)
			symtab = append(symtab, entry...)
		}
		symtab = append(symtab, make([]byte, b.SymbolTablePadding)...)
		plan[symtabIdx].data = symtab
		plan[symtabIdx].size = uint32(len(symtab))
		plan[symtabIdx].info = uint32(locals)
		if strtabIdx >= 0 {
			plan[symtabIdx].link = uint32(strtabIdx)
		}
	}
	if strtabIdx >= 0 {
		plan[strtabIdx].data = strtab.data
		plan[strtabIdx].size = uint32(len(strtab.data))
	}

	shstrtab := newStringTable()
	for i := range plan {
		plan[i].nameOff = shstrtab.add(plan[i].name)
	}
	plan[shstrIdx].data = shstrtab.data
	plan[shstrIdx].size = uint32(len(shstrtab.data))

	out := make([]byte, headerSize, 4096)
	phoff := uint32(0)
	if b.ProgramHeaders > 0 {
		phoff = uint32(len(out))
		out = append(out, make([]byte, b.ProgramHeaders*progHeaderSize)...)
	}
	for i := 1; i < len(plan); i++ {
		out = pad(out, plan[i].align)
		plan[i].offset = uint32(len(out))
		if plan[i].typ != elf.SHT_NOBITS {
			out = append(out, plan[i].data...)
		}
	}
	out = pad(out, 4)
	shoff := uint32(len(out))
	for _, s := range plan {
		entry := make([]byte, sectionEntrySize)
		b.Order.PutUint32(entry[0:], s.nameOff)
		b.Order.PutUint32(entry[4:], uint32(s.typ))
		b.Order.PutUint32(entry[8:], uint32(s.flags))
		b.Order.PutUint32(entry[12:], s.addr)
		b.Order.PutUint32(entry[16:], s.offset)
		b.Order.PutUint32(entry[20:], s.size)
		b.Order.PutUint32(entry[24:], s.link)
		b.Order.PutUint32(entry[28:], s.info)
		b.Order.PutUint32(entry[32:], s.align)
		b.Order.PutUint32(entry[36:], s.entsize)
		out = append(out, entry...)
	}

	copy(out[0:4], "\x7fELF")
	out[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	if b.Order == binary.BigEndian {
		out[elf.EI_DATA] = byte(elf.ELFDATA2MSB)
	} else {
		out[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	}
	out[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	b.Order.PutUint16(out[16:], uint16(b.Type))
	b.Order.PutUint16(out[18:], uint16(b.Machine))
	b.Order.PutUint32(out[20:], uint32(elf.EV_CURRENT))
	b.Order.PutUint32(out[24:], b.Entry)
	b.Order.PutUint32(out[28:], phoff)
	b.Order.PutUint32(out[32:], shoff)
	b.Order.PutUint32(out[36:], b.Flags)
	b.Order.PutUint16(out[40:], headerSize)
	b.Order.PutUint16(out[42:], progHeaderSize)
	b.Order.PutUint16(out[44:], uint16(b.ProgramHeaders))
	b.Order.PutUint16(out[46:], sectionEntrySize)
	b.Order.PutUint16(out[48:], uint16(len(plan)))
	b.Order.PutUint16(out[50:], uint16(shstrIdx))
	return out
}

func pad(b []byte, align uint32) []byte {
	if align <= 1 {
		return b
	}
	for uint32(len(b))%align != 0 {
		b = append(b, 0)
	}
	return b
}

// WriteFile builds the object and writes it to name inside dir.
func (b *Builder) WriteFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, b.Build(), 0o600))
	return path
}
