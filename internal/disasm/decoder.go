// Package disasm disassembles the code of function symbols in 32-bit x86
// (EM_386) objects.
package disasm

import (
	"errors"
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// x86_32BitMode is the bit width passed to x86asm for EM_386 code.
const x86_32BitMode = 32

// ErrUndecodable indicates the bytes do not start a valid instruction.
var ErrUndecodable = errors.New("undecodable instruction")

// Syntax selects the assembler dialect used for Instruction.Text.
type Syntax int

const (
	// GNUSyntax is AT&T syntax as printed by objdump.
	GNUSyntax Syntax = iota
	// IntelSyntax is Intel syntax.
	IntelSyntax
)

// ParseSyntax maps "gnu"/"att" and "intel" to a Syntax.
func ParseSyntax(s string) (Syntax, error) {
	switch s {
	case "", "gnu", "att":
		return GNUSyntax, nil
	case "intel":
		return IntelSyntax, nil
	default:
		return 0, fmt.Errorf("unknown assembler syntax %q", s)
	}
}

// Instruction is one decoded x86 instruction.
type Instruction struct {
	// Addr is the address of the first byte: section-relative in relocatable
	// objects, virtual otherwise.
	Addr uint32

	// Len is the instruction length in bytes.
	Len int

	// Op is the instruction opcode. It is zero for undecodable bytes.
	Op x86asm.Op

	// Args are the instruction arguments with unused slots trimmed.
	Args []x86asm.Arg

	// Raw contains the raw instruction bytes.
	Raw []byte

	// Text is the formatted instruction, "(bad)" for undecodable bytes.
	Text string
}

// Decoder decodes 32-bit x86 machine code.
type Decoder struct {
	syntax Syntax
	lookup x86asm.SymLookup
}

// NewDecoder creates a decoder printing in the given syntax.
func NewDecoder(syntax Syntax) *Decoder {
	return &Decoder{syntax: syntax}
}

// WithSymbols returns a copy of d that names branch targets through lookup.
func (d *Decoder) WithSymbols(lookup x86asm.SymLookup) *Decoder {
	return &Decoder{syntax: d.syntax, lookup: lookup}
}

// Decode decodes a single instruction at the start of code.
func (d *Decoder) Decode(code []byte, addr uint32) (Instruction, error) {
	inst, err := x86asm.Decode(code, x86_32BitMode)
	if err != nil {
		return Instruction{}, fmt.Errorf("%w at %#x: %w", ErrUndecodable, addr, err)
	}
	// x86asm reports a stray prefix or truncated opcode as a one-byte
	// pseudo-instruction with no opcode.
	if inst.Op == 0 {
		return Instruction{}, fmt.Errorf("%w at %#x: %s", ErrUndecodable, addr, inst)
	}

	// Trim trailing nil arguments (x86asm.Arg is an interface, unused slots are nil)
	args := inst.Args[:]
	for len(args) > 0 && args[len(args)-1] == nil {
		args = args[:len(args)-1]
	}

	var text string
	switch d.syntax {
	case IntelSyntax:
		text = x86asm.IntelSyntax(inst, uint64(addr), d.lookup)
	default:
		text = x86asm.GNUSyntax(inst, uint64(addr), d.lookup)
	}

	return Instruction{
		Addr: addr,
		Len:  inst.Len,
		Op:   inst.Op,
		Args: args,
		Raw:  code[:inst.Len],
		Text: text,
	}, nil
}

// DecodeAll decodes code linearly. An undecodable byte becomes a one-byte
// "(bad)" instruction and decoding resumes after it.
func (d *Decoder) DecodeAll(code []byte, addr uint32) []Instruction {
	var out []Instruction
	for off := 0; off < len(code); {
		inst, err := d.Decode(code[off:], addr+uint32(off))
		if err != nil {
			inst = Instruction{Addr: addr + uint32(off), Len: 1, Raw: code[off : off+1], Text: "(bad)"}
		}
		out = append(out, inst)
		off += inst.Len
	}
	return out
}

// IsControlFlow reports whether the instruction transfers control.
func IsControlFlow(inst Instruction) bool {
	switch inst.Op {
	case x86asm.JMP, x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE,
		x86asm.JE, x86asm.JG, x86asm.JGE, x86asm.JL, x86asm.JLE,
		x86asm.JNE, x86asm.JNO, x86asm.JNP, x86asm.JNS, x86asm.JO,
		x86asm.JP, x86asm.JS, x86asm.JCXZ, x86asm.JECXZ,
		x86asm.CALL, x86asm.RET, x86asm.IRET, x86asm.INT,
		x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE:
		return true
	}
	return false
}
