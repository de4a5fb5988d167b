// Package elf32 decodes 32-bit ELF object files held in memory.
//
// The decoder never dereferences a field before validating that its offset and
// size fall inside the byte buffer, so malformed input produces one of the
// package's sentinel errors instead of a panic.
//
// # Usage
//
//	f, err := elf32.Parse(data)
//	if err != nil {
//	    return err
//	}
//	for _, s := range f.Sections {
//	    fmt.Println(s.Index, s.Name, s.Type)
//	}
//	syms, err := f.Symbols()
//
// Parse decodes the file header and the section header table eagerly. The
// symbol table is decoded on the first call to Symbols and cached, so a file
// without a symbol table can still be inspected.
//
// # Limitations
//
// - Only ELFCLASS32 files are accepted
// - Relocations, program headers contents and symbol versioning are not decoded
package elf32
