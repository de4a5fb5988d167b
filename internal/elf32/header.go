package elf32

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
)

// elfMagicStr is the ELF magic number string literal.
const elfMagicStr = "\x7fELF"

// elfMagicLen is the number of bytes in the ELF magic number.
const elfMagicLen = len(elfMagicStr)

// Fixed ELF32 structure sizes.
const (
	HeaderSize        = 52
	SectionHeaderSize = 40
	ProgramHeaderSize = 32
	SymbolSize        = 16
)

// Header is the decoded ELF32 file header.
type Header struct {
	Magic      [4]byte
	Class      elf.Class
	Data       elf.Data
	Version    uint8
	OSABI      elf.OSABI
	Type       elf.Type
	Machine    elf.Machine
	Entry      uint32
	PhOff      uint32
	ShOff      uint32
	Flags      uint32
	EhSize     uint16
	PhEntSize  uint16
	PhNum      uint16
	ShEntSize  uint16
	ShNum      uint16
	ShStrIndex uint16
}

// ByteOrder returns the byte order selected by the header's EI_DATA byte.
func (h *Header) ByteOrder() binary.ByteOrder {
	if h.Data == elf.ELFDATA2MSB {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// EncodingDescription describes the data encoding the way readelf does.
func (h *Header) EncodingDescription() string {
	switch h.Data {
	case elf.ELFDATA2LSB:
		return "2's complement, little endian"
	case elf.ELFDATA2MSB:
		return "2's complement, big endian"
	default:
		return fmt.Sprintf("unknown (%d)", uint8(h.Data))
	}
}

// IsELFMagic reports whether data starts with the ELF magic number.
func IsELFMagic(data []byte) bool {
	return len(data) >= elfMagicLen && string(data[:elfMagicLen]) == elfMagicStr
}

// ParseHeader validates and decodes the file header at the start of data.
// Every offset/size pair the header declares is checked against len(data)
// before the header is returned.
func ParseHeader(data []byte) (*Header, error) {
	if !IsELFMagic(data) {
		return nil, ErrInvalidMagic
	}
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncatedFile, HeaderSize, len(data))
	}

	h := &Header{
		Class:   elf.Class(data[elf.EI_CLASS]),
		Data:    elf.Data(data[elf.EI_DATA]),
		Version: data[elf.EI_VERSION],
		OSABI:   elf.OSABI(data[elf.EI_OSABI]),
	}
	copy(h.Magic[:], data[:elfMagicLen])

	if h.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedClass, h.Class)
	}
	if h.Data != elf.ELFDATA2LSB && h.Data != elf.ELFDATA2MSB {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedEncoding, uint8(h.Data))
	}

	// The length check above guarantees every fixed field is in range.
	order := h.ByteOrder()
	h.Type = elf.Type(order.Uint16(data[16:]))
	h.Machine = elf.Machine(order.Uint16(data[18:]))
	h.Entry = order.Uint32(data[24:])
	h.PhOff = order.Uint32(data[28:])
	h.ShOff = order.Uint32(data[32:])
	h.Flags = order.Uint32(data[36:])
	h.EhSize = order.Uint16(data[40:])
	h.PhEntSize = order.Uint16(data[42:])
	h.PhNum = order.Uint16(data[44:])
	h.ShEntSize = order.Uint16(data[46:])
	h.ShNum = order.Uint16(data[48:])
	h.ShStrIndex = order.Uint16(data[50:])

	if err := h.validateExtents(uint64(len(data))); err != nil {
		return nil, err
	}
	return h, nil
}

// validateExtents checks the section and program header tables fit the buffer.
func (h *Header) validateExtents(size uint64) error {
	if h.ShNum > 0 {
		if h.ShEntSize < SectionHeaderSize {
			return fmt.Errorf("%w: section entry size %d smaller than %d", ErrTruncatedFile, h.ShEntSize, SectionHeaderSize)
		}
		end := uint64(h.ShOff) + uint64(h.ShNum)*uint64(h.ShEntSize)
		if end > size {
			return fmt.Errorf("%w: section header table ends at %#x, file is %d bytes", ErrTruncatedFile, end, size)
		}
	}
	if h.PhNum > 0 {
		if h.PhEntSize < ProgramHeaderSize {
			return fmt.Errorf("%w: program entry size %d smaller than %d", ErrTruncatedFile, h.PhEntSize, ProgramHeaderSize)
		}
		end := uint64(h.PhOff) + uint64(h.PhNum)*uint64(h.PhEntSize)
		if end > size {
			return fmt.Errorf("%w: program header table ends at %#x, file is %d bytes", ErrTruncatedFile, end, size)
		}
	}
	return nil
}
