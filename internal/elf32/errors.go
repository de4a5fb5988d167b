package elf32

import "errors"

// Static errors
var (
	// ErrInvalidMagic indicates the first four bytes are not "\x7fELF".
	ErrInvalidMagic = errors.New("invalid ELF magic")

	// ErrTruncatedFile indicates a header field points outside the buffer.
	ErrTruncatedFile = errors.New("truncated ELF file")

	// ErrCorruptStringTable indicates a name offset outside its string table,
	// or a name without a terminating NUL.
	ErrCorruptStringTable = errors.New("corrupt string table")

	// ErrSymbolTableMissing indicates the file does not carry exactly one SHT_SYMTAB section.
	ErrSymbolTableMissing = errors.New("symbol table not found")

	// ErrStringTableMissing indicates the symbol string table is absent or ambiguous.
	ErrStringTableMissing = errors.New("symbol string table not found")

	// ErrUnsupportedClass indicates the file is not ELFCLASS32.
	ErrUnsupportedClass = errors.New("unsupported ELF class")

	// ErrUnsupportedEncoding indicates EI_DATA is neither little nor big endian.
	ErrUnsupportedEncoding = errors.New("unsupported ELF data encoding")
)
