package types

import "katana-node/core/felt"

// ClassKind distinguishes the two class encodings this adapter supports.
type ClassKind uint8

const (
	ClassLegacy ClassKind = iota
	ClassSierra
)

// EntryPoint maps a selector to its offset within a legacy program.
type EntryPoint struct {
	Selector felt.Felt
	Offset   uint64
}

// ContractClass is either a legacy (Cairo 0) class, stored as a compressed
// program plus entry-point table, or a Sierra class, stored as bytecode plus
// ABI plus compiled CASM. Both carry a unique class hash; Sierra classes
// additionally carry a compiled class hash used by the class trie.
type ContractClass struct {
	Kind ClassKind
	Hash felt.Felt

	// Legacy fields.
	ProgramCompressed []byte
	EntryPoints       []EntryPoint

	// Sierra fields.
	SierraProgram     []felt.Felt
	ABI               string
	CompiledClassHash felt.Felt
	CasmBytecode      []byte
}

// IsDeclared is a convenience nil check used by the execution engine's
// "undeclared class" admission check.
func (c *ContractClass) IsDeclared() bool { return c != nil }
