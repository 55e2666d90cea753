package types

import "katana-node/core/felt"

// StorageKV is one (address, key) -> value write within a block.
type StorageKV struct {
	Address felt.Address
	Key     felt.Felt
	Value   felt.Felt
}

// StateDelta is everything one block's execution wrote to state.
// StorageWrites keeps the order in which slots were first written;
// CachedState.Diff builds DeclaredClasses from a map, so that slice's order
// is not defined.
type StateDelta struct {
	NonceUpdates       map[felt.Address]felt.Felt
	StorageWrites      []StorageKV
	ClassHashUpdates   map[felt.Address]felt.Felt // address -> newly assigned class hash
	DeclaredClasses    []*ContractClass           // classes (legacy and sierra) declared this block
	CompiledClassPairs map[felt.Felt]felt.Felt     // class hash -> compiled class hash, sierra only
}

// NewStateDelta returns an empty, ready-to-use StateDelta.
func NewStateDelta() *StateDelta {
	return &StateDelta{
		NonceUpdates:       make(map[felt.Address]felt.Felt),
		ClassHashUpdates:   make(map[felt.Address]felt.Felt),
		CompiledClassPairs: make(map[felt.Felt]felt.Felt),
	}
}

// Merge folds other into d, keeping other's values on key collision (later
// writes win, matching in-block overwrite semantics).
func (d *StateDelta) Merge(other *StateDelta) {
	for addr, nonce := range other.NonceUpdates {
		d.NonceUpdates[addr] = nonce
	}
	d.StorageWrites = append(d.StorageWrites, other.StorageWrites...)
	for addr, ch := range other.ClassHashUpdates {
		d.ClassHashUpdates[addr] = ch
	}
	d.DeclaredClasses = append(d.DeclaredClasses, other.DeclaredClasses...)
	for ch, cch := range other.CompiledClassPairs {
		d.CompiledClassPairs[ch] = cch
	}
}
