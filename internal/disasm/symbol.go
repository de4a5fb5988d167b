package disasm

import (
	"debug/elf"
	"errors"
	"fmt"
	"sort"

	"github.com/isseis/go-elfcheck/internal/elf32"
)

// Static errors
var (
	// ErrUnsupportedMachine indicates the object is not EM_386.
	ErrUnsupportedMachine = errors.New("disassembly supports only EM_386 objects")

	// ErrSymbolNotFound indicates no defined symbol has the requested name.
	ErrSymbolNotFound = errors.New("defined symbol not found")

	// ErrNotFunction indicates the symbol is not a function or untyped label.
	ErrNotFunction = errors.New("symbol is not a function")

	// ErrNoCode indicates the symbol does not point into executable file bytes.
	ErrNoCode = errors.New("symbol has no code")
)

// Listing is the disassembly of one symbol.
type Listing struct {
	Symbol       elf32.Symbol
	Section      elf32.Section
	Instructions []Instruction
}

// Symbol disassembles the first defined symbol called name in f.
func Symbol(f *elf32.File, name string, d *Decoder) (*Listing, error) {
	if f.Header.Machine != elf.EM_386 {
		return nil, fmt.Errorf("%w: machine is %s", ErrUnsupportedMachine, f.Header.Machine)
	}
	syms, err := f.Symbols()
	if err != nil {
		return nil, err
	}

	sym, ok := findDefined(syms, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, name)
	}
	if sym.Type != elf32.SymbolType(elf.STT_FUNC) && sym.Type != elf32.SymbolType(elf.STT_NOTYPE) {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotFunction, name, sym.Type)
	}
	if sym.Section.Kind != elf32.RefSection {
		return nil, fmt.Errorf("%w: %s is in %s", ErrNoCode, name, sym.Section)
	}

	sect := f.Sections[sym.Section.Index]
	if sect.Type != elf32.SectionType(elf.SHT_PROGBITS) || elf.SectionFlag(sect.Flags)&elf.SHF_EXECINSTR == 0 {
		return nil, fmt.Errorf("%w: section %s is not executable", ErrNoCode, sect.Name)
	}
	data, err := f.SectionData(sect.Index)
	if err != nil {
		return nil, err
	}

	// Relocatable objects store section offsets in st_value; linked files
	// store virtual addresses.
	relocatable := f.Header.Type == elf.ET_REL
	start := uint64(sym.Value)
	if !relocatable {
		if sym.Value < sect.Addr {
			return nil, fmt.Errorf("%w: %s at %#x precedes section %s", ErrNoCode, name, sym.Value, sect.Name)
		}
		start = uint64(sym.Value - sect.Addr)
	}
	if start >= uint64(len(data)) {
		return nil, fmt.Errorf("%w: %s lies outside section %s", ErrNoCode, name, sect.Name)
	}
	end := uint64(len(data))
	if sym.Size > 0 && start+uint64(sym.Size) < end {
		end = start + uint64(sym.Size)
	}

	if !relocatable {
		d = d.WithSymbols(newSymbolLookup(syms))
	}
	return &Listing{
		Symbol:       sym,
		Section:      sect,
		Instructions: d.DecodeAll(data[start:end], sym.Value),
	}, nil
}

func findDefined(syms []elf32.Symbol, name string) (elf32.Symbol, bool) {
	for i := 1; i < len(syms); i++ {
		if syms[i].Name == name && syms[i].Defined() {
			return syms[i], true
		}
	}
	return elf32.Symbol{}, false
}

type addrSymbol struct {
	addr uint32
	size uint32
	name string
}

// newSymbolLookup resolves addresses to the nearest preceding named
// function or object symbol.
func newSymbolLookup(syms []elf32.Symbol) func(uint64) (string, uint64) {
	var table []addrSymbol
	for _, s := range syms {
		if s.Name == "" || s.Section.Kind != elf32.RefSection {
			continue
		}
		if s.Type != elf32.SymbolType(elf.STT_FUNC) && s.Type != elf32.SymbolType(elf.STT_OBJECT) {
			continue
		}
		table = append(table, addrSymbol{addr: s.Value, size: s.Size, name: s.Name})
	}
	sort.Slice(table, func(i, j int) bool { return table[i].addr < table[j].addr })

	return func(addr uint64) (string, uint64) {
		i := sort.Search(len(table), func(i int) bool { return uint64(table[i].addr) > addr }) - 1
		if i < 0 {
			return "", 0
		}
		s := table[i]
		if s.size > 0 && addr >= uint64(s.addr)+uint64(s.size) {
			return "", 0
		}
		return s.name, uint64(s.addr)
	}
}
