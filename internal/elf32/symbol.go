package elf32

import (
	"debug/elf"
	"fmt"
)

// SymbolStringTableName is the section name of the string table that holds
// symbol names. Objects usually carry a second string table (.shstrtab) for
// section names which must not be used for symbols.
const SymbolStringTableName = ".strtab"

// SymbolType is the st_info type nibble.
type SymbolType uint8

// String returns the readelf spelling of the type, or UNKNOWN.
func (t SymbolType) String() string {
	switch elf.SymType(t) {
	case elf.STT_NOTYPE:
		return "NOTYPE"
	case elf.STT_OBJECT:
		return "OBJECT"
	case elf.STT_FUNC:
		return "FUNC"
	case elf.STT_SECTION:
		return "SECTION"
	case elf.STT_FILE:
		return "FILE"
	case elf.STT_COMMON:
		return "COMMON"
	case elf.STT_TLS:
		return "TLS"
	default:
		return "UNKNOWN"
	}
}

// SymbolBinding is the st_info binding nibble.
type SymbolBinding uint8

func (b SymbolBinding) String() string {
	switch elf.SymBind(b) {
	case elf.STB_LOCAL:
		return "LOCAL"
	case elf.STB_GLOBAL:
		return "GLOBAL"
	case elf.STB_WEAK:
		return "WEAK"
	default:
		return "UNKNOWN"
	}
}

// SymbolVisibility is the low bits of st_other.
type SymbolVisibility uint8

func (v SymbolVisibility) String() string {
	switch elf.SymVis(v) {
	case elf.STV_DEFAULT:
		return "DEFAULT"
	case elf.STV_INTERNAL:
		return "INTERNAL"
	case elf.STV_HIDDEN:
		return "HIDDEN"
	case elf.STV_PROTECTED:
		return "PROTECTED"
	default:
		return "UNKNOWN"
	}
}

// RefKind tells how a symbol's st_shndx was interpreted.
type RefKind int

const (
	// RefSection refers to an entry of the section header table.
	RefSection RefKind = iota
	// RefUndefined is st_shndx == SHN_UNDEF.
	RefUndefined
	// RefAbsolute is any index outside the section header table, SHN_ABS included.
	RefAbsolute
)

// SectionRef is the owning section of a symbol.
type SectionRef struct {
	Kind  RefKind
	Index uint16
	Name  string
}

// String returns "UND", "ABS" or the section name.
func (r SectionRef) String() string {
	switch r.Kind {
	case RefUndefined:
		return "UND"
	case RefAbsolute:
		return "ABS"
	default:
		return r.Name
	}
}

// Symbol is one decoded symbol table entry.
type Symbol struct {
	Index      int
	Name       string
	NameOffset uint32
	Value      uint32
	Size       uint32
	Info       uint8
	Other      uint8
	Type       SymbolType
	Binding    SymbolBinding
	Visibility SymbolVisibility
	Section    SectionRef
}

// Defined reports whether the symbol has an owning section (anything but SHN_UNDEF).
func (s Symbol) Defined() bool {
	return s.Section.Kind != RefUndefined
}

// SymbolTableInfo describes where the symbol table and its string table live.
type SymbolTableInfo struct {
	SymbolTable Section
	StringTable Section
	Count       int
	// Remainder is SymbolTable.Size modulo the entry size. A non-zero value
	// means the table is corrupt; the trailing partial entry is ignored.
	Remainder int
}

// locateSymbolTable finds the single SHT_SYMTAB section and the STRTAB section
// named SymbolStringTableName.
func locateSymbolTable(sections []Section) (SymbolTableInfo, error) {
	var info SymbolTableInfo
	symtabs, strtabs := 0, 0
	for _, s := range sections {
		switch s.Type {
		case SectionType(elf.SHT_SYMTAB):
			symtabs++
			info.SymbolTable = s
		case SectionType(elf.SHT_STRTAB):
			if s.Name == SymbolStringTableName {
				strtabs++
				info.StringTable = s
			}
		}
	}

	switch {
	case symtabs == 0:
		return info, ErrSymbolTableMissing
	case symtabs > 1:
		return info, fmt.Errorf("%w: found %d symbol tables, exactly one is supported", ErrSymbolTableMissing, symtabs)
	case strtabs == 0:
		return info, ErrStringTableMissing
	case strtabs > 1:
		return info, fmt.Errorf("%w: %d sections named %s", ErrStringTableMissing, strtabs, SymbolStringTableName)
	}

	info.Count = int(info.SymbolTable.Size / SymbolSize)
	info.Remainder = int(info.SymbolTable.Size % SymbolSize)
	return info, nil
}

// parseSymbols decodes every entry of the symbol table described by info.
func parseSymbols(v view, sections []Section, info SymbolTableInfo) ([]Symbol, error) {
	strtab, err := sectionContent(v, info.StringTable)
	if err != nil {
		return nil, fmt.Errorf("symbol string table: %w", err)
	}
	table, err := v.span(uint64(info.SymbolTable.Offset), uint64(info.Count)*SymbolSize)
	if err != nil {
		return nil, fmt.Errorf("symbol table: %w", err)
	}

	symbols := make([]Symbol, info.Count)
	for i := range symbols {
		b := table[i*SymbolSize : (i+1)*SymbolSize]
		s := &symbols[i]
		s.Index = i
		s.NameOffset = v.order.Uint32(b[0:])
		s.Value = v.order.Uint32(b[4:])
		s.Size = v.order.Uint32(b[8:])
		s.Info = b[12]
		s.Other = b[13]
		shndx := v.order.Uint16(b[14:])

		s.Type = SymbolType(s.Info & 0xf)
		s.Binding = SymbolBinding(s.Info >> 4)
		s.Visibility = SymbolVisibility(s.Other & 0x3)
		s.Section = resolveSectionRef(sections, shndx)

		if s.NameOffset != 0 {
			name, err := stringTable(strtab).lookup(s.NameOffset)
			if err != nil {
				return nil, fmt.Errorf("name of symbol %d: %w", i, err)
			}
			s.Name = name
		}
	}
	return symbols, nil
}

func resolveSectionRef(sections []Section, shndx uint16) SectionRef {
	switch {
	case shndx == uint16(elf.SHN_UNDEF):
		return SectionRef{Kind: RefUndefined, Index: shndx}
	case int(shndx) >= len(sections):
		return SectionRef{Kind: RefAbsolute, Index: shndx}
	default:
		return SectionRef{Kind: RefSection, Index: shndx, Name: sections[shndx].Name}
	}
}
