// Package reconcile predicts static-link symbol conflicts between two ELF32
// objects without performing a link.
//
// The scan is one-directional: every named symbol of the first object is
// looked up in the second, and only the first match by name is inspected.
// Symbols that exist only in the second object are never reported.
package reconcile

import (
	"errors"
	"fmt"

	"github.com/isseis/go-elfcheck/internal/elf32"
)

// ErrReconciliationUnavailable indicates the inputs cannot be compared: the
// wrong number of objects, or a symbol table that failed to decode.
var ErrReconciliationUnavailable = errors.New("reconciliation unavailable")

// FindingKind classifies a predicted conflict.
type FindingKind int

const (
	// MultiplyDefined means both objects define the symbol.
	MultiplyDefined FindingKind = iota
	// UndefinedInBoth means both objects reference the symbol without defining it.
	UndefinedInBoth
	// UndefinedInSecondFile means the first object references a symbol the second lacks.
	UndefinedInSecondFile
)

func (k FindingKind) String() string {
	switch k {
	case MultiplyDefined:
		return "multiply_defined"
	case UndefinedInBoth:
		return "undefined_in_both"
	case UndefinedInSecondFile:
		return "undefined_in_second_file"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Finding is one predicted conflict.
type Finding struct {
	Kind FindingKind
	Name string
	// FirstIndex is the symbol index in the first object.
	FirstIndex int
	// SecondIndex is the matching symbol index in the second object, or -1.
	SecondIndex int
}

// Message renders the finding the way the merge check reports it.
func (f Finding) Message() string {
	switch f.Kind {
	case MultiplyDefined:
		return fmt.Sprintf("Symbol %s multiply defined.", f.Name)
	case UndefinedInBoth:
		return fmt.Sprintf("Symbol %s undefined in both files.", f.Name)
	case UndefinedInSecondFile:
		return fmt.Sprintf("Symbol %s undefined in second file.", f.Name)
	default:
		return fmt.Sprintf("Symbol %s: %s", f.Name, f.Kind)
	}
}

// SymbolSource is an object whose symbol table can be compared.
type SymbolSource interface {
	Path() string
	Symbols() ([]elf32.Symbol, error)
}

// Check reconciles exactly two objects, in order.
func Check(objects ...SymbolSource) ([]Finding, error) {
	if len(objects) != 2 {
		return nil, fmt.Errorf("%w: exactly 2 ELF files must be loaded, have %d", ErrReconciliationUnavailable, len(objects))
	}
	return Reconcile(objects[0], objects[1])
}

// Reconcile compares a's symbols against b's.
func Reconcile(a, b SymbolSource) ([]Finding, error) {
	symsA, err := a.Symbols()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReconciliationUnavailable, a.Path(), err)
	}
	symsB, err := b.Symbols()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrReconciliationUnavailable, b.Path(), err)
	}
	return Symbols(symsA, symsB), nil
}

// Symbols compares two decoded symbol tables. Index 0 of each table is the
// reserved null symbol and is skipped, as are unnamed symbols of a.
func Symbols(a, b []elf32.Symbol) []Finding {
	var findings []Finding
	for i := 1; i < len(a); i++ {
		symA := a[i]
		if symA.Name == "" {
			continue
		}

		j := firstMatch(b, symA.Name)
		switch {
		case symA.Defined():
			if j >= 0 && b[j].Defined() {
				findings = append(findings, Finding{Kind: MultiplyDefined, Name: symA.Name, FirstIndex: i, SecondIndex: j})
			}
		case j < 0:
			findings = append(findings, Finding{Kind: UndefinedInSecondFile, Name: symA.Name, FirstIndex: i, SecondIndex: -1})
		case !b[j].Defined():
			findings = append(findings, Finding{Kind: UndefinedInBoth, Name: symA.Name, FirstIndex: i, SecondIndex: j})
		}
	}
	return findings
}

// firstMatch returns the index of the first symbol of syms, after the null
// entry, named name, or -1.
func firstMatch(syms []elf32.Symbol, name string) int {
	for j := 1; j < len(syms); j++ {
		if syms[j].Name == name {
			return j
		}
	}
	return -1
}
