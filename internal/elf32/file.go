package elf32

import "fmt"

// File is a decoded ELF32 object. It keeps a reference to the raw bytes it
// was parsed from and never modifies them.
type File struct {
	Header   *Header
	Sections []Section

	v view

	// symbol table, decoded on first use
	symDecoded bool
	symInfo    SymbolTableInfo
	symbols    []Symbol
	symErr     error
}

// Parse decodes the header and section header table of data.
func Parse(data []byte) (*File, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	v := view{data: data, order: h.ByteOrder()}
	sections, err := parseSections(v, h)
	if err != nil {
		return nil, err
	}
	return &File{Header: h, Sections: sections, v: v}, nil
}

// Size returns the length of the underlying buffer.
func (f *File) Size() int {
	return len(f.v.data)
}

// Symbols returns the decoded symbol table. The result, success or failure,
// is computed once and reused on later calls. Index 0 is the reserved null
// symbol and is included so indices match the table.
func (f *File) Symbols() ([]Symbol, error) {
	f.decodeSymbols()
	return f.symbols, f.symErr
}

// SymbolTable returns the location of the symbol table and its string table.
func (f *File) SymbolTable() (SymbolTableInfo, error) {
	f.decodeSymbols()
	return f.symInfo, f.symErr
}

func (f *File) decodeSymbols() {
	if f.symDecoded {
		return
	}
	f.symDecoded = true
	f.symInfo, f.symErr = locateSymbolTable(f.Sections)
	if f.symErr != nil {
		return
	}
	f.symbols, f.symErr = parseSymbols(f.v, f.Sections, f.symInfo)
}

// SectionData returns the file bytes backing the section at index.
func (f *File) SectionData(index int) ([]byte, error) {
	if index < 0 || index >= len(f.Sections) {
		return nil, fmt.Errorf("%w: section index %d out of %d sections", ErrTruncatedFile, index, len(f.Sections))
	}
	return sectionContent(f.v, f.Sections[index])
}
