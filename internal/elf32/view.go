package elf32

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// view is a bounds-checked window over the raw file bytes. All multi-byte
// reads use the byte order of the object being decoded.
type view struct {
	data  []byte
	order binary.ByteOrder
}

// span validates that [off, off+size) lies inside the buffer and returns it.
// The arithmetic is done in uint64 so 32-bit offsets cannot overflow.
func (v view) span(off, size uint64) ([]byte, error) {
	end := off + size
	if end < off || end > uint64(len(v.data)) {
		return nil, fmt.Errorf("%w: range [%#x, %#x) exceeds %d bytes", ErrTruncatedFile, off, end, len(v.data))
	}
	return v.data[off:end], nil
}

// stringTable is a blob of NUL-terminated strings addressed by byte offset.
type stringTable []byte

// lookup returns the string starting at off. The string must be terminated
// inside the table.
func (t stringTable) lookup(off uint32) (string, error) {
	if uint64(off) >= uint64(len(t)) {
		return "", fmt.Errorf("%w: offset %d outside table of %d bytes", ErrCorruptStringTable, off, len(t))
	}
	rest := t[off:]
	n := bytes.IndexByte(rest, 0)
	if n < 0 {
		return "", fmt.Errorf("%w: string at offset %d is not terminated", ErrCorruptStringTable, off)
	}
	return string(rest[:n]), nil
}
