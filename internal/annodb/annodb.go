// Package annodb is the disassembly database that traced control flow is
// reconciled into: outgoing references and symbols keyed by linear address.
package annodb

import "errors"

// ErrOutOfRange is returned when an address is outside the database's address space.
var ErrOutOfRange = errors.New("address out of range")

// RefKind is the flow type of a reference, named as Ghidra names RefType.
type RefKind string

const (
	ComputedJump      RefKind = "COMPUTED_JUMP"
	ComputedCall      RefKind = "COMPUTED_CALL"
	UnconditionalJump RefKind = "UNCONDITIONAL_JUMP"
	UnconditionalCall RefKind = "UNCONDITIONAL_CALL"
	Data              RefKind = "DATA"
)

// SourceType is the provenance of a reference or symbol.
type SourceType string

const (
	SourceDefault     SourceType = "DEFAULT"
	SourceAnalysis    SourceType = "ANALYSIS"
	SourceImported    SourceType = "IMPORTED"
	SourceUserDefined SourceType = "USER_DEFINED"
)

// ParseSourceType accepts the names above, case-sensitive.
func ParseSourceType(s string) (SourceType, bool) {
	switch st := SourceType(s); st {
	case SourceDefault, SourceAnalysis, SourceImported, SourceUserDefined:
		return st, true
	}
	return "", false
}

// SymbolKind distinguishes named labels from function names and the
// placeholder names an analyzer generates on its own.
type SymbolKind string

const (
	SymbolLabel    SymbolKind = "label"
	SymbolFunction SymbolKind = "function"
	SymbolDynamic  SymbolKind = "dynamic"
)

// ParseSymbolKind accepts label, function or dynamic.
func ParseSymbolKind(s string) (SymbolKind, bool) {
	switch k := SymbolKind(s); k {
	case SymbolLabel, SymbolFunction, SymbolDynamic:
		return k, true
	}
	return "", false
}

// Reference is an outgoing flow reference. Index orders the references of
// one source; imported references use the position in the traced list.
type Reference struct {
	From   uint32     `json:"from"`
	To     uint32     `json:"to"`
	Kind   RefKind    `json:"kind"`
	Source SourceType `json:"source"`
	Index  int        `json:"index"`
}

// Symbol is a name at an address. At most one symbol per address is primary.
type Symbol struct {
	Addr    uint32     `json:"addr"`
	Name    string     `json:"name"`
	Kind    SymbolKind `json:"kind"`
	Source  SourceType `json:"source"`
	Primary bool       `json:"primary"`
}

// Database is what reconciliation needs from the disassembly database.
type Database interface {
	// Resolve translates a physical address into the database's address space.
	Resolve(physical uint32) (uint32, error)

	HasReferencesFrom(from uint32) (bool, error)
	ReferencesFrom(from uint32) ([]Reference, error)
	// RemoveReferencesFrom deletes every outgoing reference of from.
	RemoveReferencesFrom(from uint32) (int, error)
	// RemoveReferences deletes the references of from with the given kind and source.
	RemoveReferences(from uint32, kind RefKind, source SourceType) (int, error)
	AddReference(ref Reference) error

	// Symbols returns every symbol at addr.
	Symbols(addr uint32) ([]Symbol, error)
	PrimarySymbol(addr uint32) (Symbol, bool, error)
	CreateLabel(addr uint32, name string, source SourceType) error
}

// Snapshot is the full database content in address order.
type Snapshot struct {
	References []Reference `json:"references"`
	Symbols    []Symbol    `json:"symbols"`
}
