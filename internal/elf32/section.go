package elf32

import (
	"debug/elf"
	"fmt"
)

// SectionType is the raw sh_type value of a section header.
type SectionType uint32

// String returns the section type name as readelf spells it.
// Unrecognized values are reported as UNKNOWN.
func (t SectionType) String() string {
	switch elf.SectionType(t) {
	case elf.SHT_NULL:
		return "NULL"
	case elf.SHT_PROGBITS:
		return "PROGBITS"
	case elf.SHT_SYMTAB:
		return "SYMTAB"
	case elf.SHT_STRTAB:
		return "STRTAB"
	case elf.SHT_RELA:
		return "RELA"
	case elf.SHT_HASH:
		return "HASH"
	case elf.SHT_DYNAMIC:
		return "DYNAMIC"
	case elf.SHT_NOTE:
		return "NOTE"
	case elf.SHT_NOBITS:
		return "NOBITS"
	case elf.SHT_REL:
		return "REL"
	case elf.SHT_SHLIB:
		return "SHLIB"
	case elf.SHT_DYNSYM:
		return "DYNSYM"
	case elf.SHT_LOPROC:
		return "LOPROC"
	case elf.SHT_HIPROC:
		return "HIPROC"
	case elf.SHT_LOUSER:
		return "LOUSER"
	case elf.SHT_HIUSER:
		return "HIUSER"
	default:
		return "UNKNOWN"
	}
}

// SectionKind is the coarse classification of a section type.
type SectionKind int

const (
	KindUnknown SectionKind = iota
	KindNull
	KindProgBits
	KindSymbolTable
	KindStringTable
	KindRelocation
	KindHash
	KindDynamic
	KindNote
	KindNoBits
	// KindOther covers recognized types outside the kinds above (DYNSYM, INIT_ARRAY, ...).
	KindOther
)

var sectionKindNames = map[SectionKind]string{
	KindUnknown:     "unknown",
	KindNull:        "null",
	KindProgBits:    "program-data",
	KindSymbolTable: "symbol-table",
	KindStringTable: "string-table",
	KindRelocation:  "relocation",
	KindHash:        "hash",
	KindDynamic:     "dynamic",
	KindNote:        "note",
	KindNoBits:      "no-bits",
	KindOther:       "other",
}

func (k SectionKind) String() string {
	if name, ok := sectionKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("SectionKind(%d)", int(k))
}

// Kind classifies the section type. It never fails: values outside the known
// ranges map to KindUnknown.
func (t SectionType) Kind() SectionKind {
	switch elf.SectionType(t) {
	case elf.SHT_NULL:
		return KindNull
	case elf.SHT_PROGBITS:
		return KindProgBits
	case elf.SHT_SYMTAB:
		return KindSymbolTable
	case elf.SHT_STRTAB:
		return KindStringTable
	case elf.SHT_RELA, elf.SHT_REL:
		return KindRelocation
	case elf.SHT_HASH, elf.SHT_GNU_HASH:
		return KindHash
	case elf.SHT_DYNAMIC:
		return KindDynamic
	case elf.SHT_NOTE:
		return KindNote
	case elf.SHT_NOBITS:
		return KindNoBits
	case elf.SHT_SHLIB, elf.SHT_DYNSYM, elf.SHT_INIT_ARRAY, elf.SHT_FINI_ARRAY,
		elf.SHT_PREINIT_ARRAY, elf.SHT_GROUP, elf.SHT_SYMTAB_SHNDX,
		elf.SHT_GNU_VERDEF, elf.SHT_GNU_VERNEED, elf.SHT_GNU_VERSYM:
		return KindOther
	default:
		return KindUnknown
	}
}

// Section is one decoded section header with its resolved name.
type Section struct {
	Index      int
	Name       string
	NameOffset uint32
	Type       SectionType
	Flags      uint32
	Addr       uint32
	Offset     uint32
	Size       uint32
	Link       uint32
	Info       uint32
	AddrAlign  uint32
	EntSize    uint32
}

// Kind is shorthand for s.Type.Kind().
func (s Section) Kind() SectionKind {
	return s.Type.Kind()
}

// parseSections reads ShNum entries starting at ShOff and resolves every
// section name through sections[ShStrIndex].
func parseSections(v view, h *Header) ([]Section, error) {
	if h.ShNum == 0 {
		return nil, nil
	}

	sections := make([]Section, h.ShNum)
	for i := range sections {
		base := uint64(h.ShOff) + uint64(i)*uint64(h.ShEntSize)
		b, err := v.span(base, SectionHeaderSize)
		if err != nil {
			return nil, fmt.Errorf("section header %d: %w", i, err)
		}
		sections[i] = Section{
			Index:      i,
			NameOffset: v.order.Uint32(b[0:]),
			Type:       SectionType(v.order.Uint32(b[4:])),
			Flags:      v.order.Uint32(b[8:]),
			Addr:       v.order.Uint32(b[12:]),
			Offset:     v.order.Uint32(b[16:]),
			Size:       v.order.Uint32(b[20:]),
			Link:       v.order.Uint32(b[24:]),
			Info:       v.order.Uint32(b[28:]),
			AddrAlign:  v.order.Uint32(b[32:]),
			EntSize:    v.order.Uint32(b[36:]),
		}
	}

	// No section name table: names stay empty.
	if h.ShStrIndex == uint16(elf.SHN_UNDEF) {
		return sections, nil
	}
	if int(h.ShStrIndex) >= len(sections) {
		return nil, fmt.Errorf("%w: section name table index %d out of %d sections", ErrCorruptStringTable, h.ShStrIndex, len(sections))
	}

	shstrtab, err := sectionContent(v, sections[h.ShStrIndex])
	if err != nil {
		return nil, fmt.Errorf("section name table: %w", err)
	}
	for i := range sections {
		name, err := stringTable(shstrtab).lookup(sections[i].NameOffset)
		if err != nil {
			return nil, fmt.Errorf("name of section %d: %w", i, err)
		}
		sections[i].Name = name
	}
	return sections, nil
}

// sectionContent returns the file bytes of s. NOBITS sections occupy no file
// space and yield nil.
func sectionContent(v view, s Section) ([]byte, error) {
	if s.Type == SectionType(elf.SHT_NOBITS) {
		return nil, nil
	}
	return v.span(uint64(s.Offset), uint64(s.Size))
}
