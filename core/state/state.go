// Package state implements the state-provider abstraction the execution
// engine reads through: a latest view backed directly by the
// store, a historical view pinned to a past block, and a writable cached
// overlay the producer accumulates a block's writes into before committing.
package state

import (
	"katana-node/core/felt"
	"katana-node/core/types"
)

// Reader is the read surface every state provider exposes, regardless of
// whether it targets the chain tip or a historical block.
type Reader interface {
	Nonce(addr felt.Address) (felt.Felt, error)
	StorageAt(addr felt.Address, key felt.Felt) (felt.Felt, error)
	ClassHashAt(addr felt.Address) (felt.Felt, error)
	Class(classHash felt.Felt) (*types.ContractClass, error)
	CompiledClassHash(classHash felt.Felt) (felt.Felt, error)
}

// Store is the subset of core/store.Store a state provider reads through.
// Defined here (rather than imported) so this package has no dependency on
// the storage engine's concrete type.
type Store interface {
	LatestNonce(addr felt.Address) (felt.Felt, bool, error)
	LatestStorage(addr felt.Address, key felt.Felt) (felt.Felt, bool, error)
	LatestContractClass(addr felt.Address) (felt.Felt, bool, error)
	HistoricalNonce(addr felt.Address, number uint64) (felt.Felt, bool, error)
	HistoricalStorage(addr felt.Address, key felt.Felt, number uint64) (felt.Felt, bool, error)
	HistoricalContractClass(addr felt.Address, number uint64) (felt.Felt, bool, error)
	Class(classHash felt.Felt) (*types.ContractClass, error)
	CompiledClassHash(classHash felt.Felt) (felt.Felt, bool, error)
}

// LatestStateProvider reads the chain tip directly from the store.
type LatestStateProvider struct {
	store Store
}

// NewLatestStateProvider builds a Reader over the store's latest values.
func NewLatestStateProvider(s Store) *LatestStateProvider { return &LatestStateProvider{store: s} }

func (p *LatestStateProvider) Nonce(addr felt.Address) (felt.Felt, error) {
	v, _, err := p.store.LatestNonce(addr)
	return v, err
}

func (p *LatestStateProvider) StorageAt(addr felt.Address, key felt.Felt) (felt.Felt, error) {
	v, _, err := p.store.LatestStorage(addr, key)
	return v, err
}

func (p *LatestStateProvider) ClassHashAt(addr felt.Address) (felt.Felt, error) {
	v, _, err := p.store.LatestContractClass(addr)
	return v, err
}

func (p *LatestStateProvider) Class(classHash felt.Felt) (*types.ContractClass, error) {
	if classHash.IsZero() {
		return nil, nil
	}
	c, err := p.store.Class(classHash)
	if err != nil {
		return nil, nil //nolint:nilerr // undeclared class surfaces as (nil, nil); caller checks IsDeclared
	}
	return c, nil
}

func (p *LatestStateProvider) CompiledClassHash(classHash felt.Felt) (felt.Felt, error) {
	v, _, err := p.store.CompiledClassHash(classHash)
	return v, err
}

// HistoricalStateProvider reads the store's view as of a fixed past block
// number ("Historical(block_number)").
type HistoricalStateProvider struct {
	store  Store
	number uint64
}

// NewHistoricalStateProvider pins a Reader to blockNumber.
func NewHistoricalStateProvider(s Store, blockNumber uint64) *HistoricalStateProvider {
	return &HistoricalStateProvider{store: s, number: blockNumber}
}

func (p *HistoricalStateProvider) Nonce(addr felt.Address) (felt.Felt, error) {
	v, _, err := p.store.HistoricalNonce(addr, p.number)
	return v, err
}

func (p *HistoricalStateProvider) StorageAt(addr felt.Address, key felt.Felt) (felt.Felt, error) {
	v, _, err := p.store.HistoricalStorage(addr, key, p.number)
	return v, err
}

func (p *HistoricalStateProvider) ClassHashAt(addr felt.Address) (felt.Felt, error) {
	v, _, err := p.store.HistoricalContractClass(addr, p.number)
	return v, err
}

func (p *HistoricalStateProvider) Class(classHash felt.Felt) (*types.ContractClass, error) {
	if classHash.IsZero() {
		return nil, nil
	}
	c, err := p.store.Class(classHash)
	if err != nil {
		return nil, nil //nolint:nilerr
	}
	return c, nil
}

func (p *HistoricalStateProvider) CompiledClassHash(classHash felt.Felt) (felt.Felt, error) {
	v, _, err := p.store.CompiledClassHash(classHash)
	return v, err
}
