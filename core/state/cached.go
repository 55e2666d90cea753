package state

import (
	"sync"

	"katana-node/core/felt"
	"katana-node/core/types"
)

// storageKey flattens (address, key) into one comparable map key.
type storageKey struct {
	addr felt.Address
	key  felt.Felt
}

// CachedState is a copy-on-write overlay over a Reader: reads fall through
// to the underlying provider on a miss, and every write is tracked so the
// accumulated changes can be materialized into a types.StateDelta at the end
// of block production ("CachedState accumulates writes ...
// exposes Diff() -> StateDelta").
//
// Mirrors the connection-pool idiom of a single mutex guarding a
// handful of plain maps (core/connection_pool.go) rather than introducing a
// generic cache library: the access pattern here is block-scoped and
// single-writer, so a lock-free or sharded structure would add complexity
// the workload never exercises.
type CachedState struct {
	mu sync.Mutex

	base Reader

	nonces            map[felt.Address]felt.Felt
	storage           map[storageKey]felt.Felt
	classHashes       map[felt.Address]felt.Felt
	declaredClasses   map[felt.Felt]*types.ContractClass
	compiledClassPairs map[felt.Felt]felt.Felt

	storageOrder []storageKey // insertion order, for deterministic StateDelta.StorageWrites
}

// NewCachedState builds a writable overlay reading through to base.
func NewCachedState(base Reader) *CachedState {
	return &CachedState{
		base:               base,
		nonces:             make(map[felt.Address]felt.Felt),
		storage:            make(map[storageKey]felt.Felt),
		classHashes:        make(map[felt.Address]felt.Felt),
		declaredClasses:    make(map[felt.Felt]*types.ContractClass),
		compiledClassPairs: make(map[felt.Felt]felt.Felt),
	}
}

func (c *CachedState) Nonce(addr felt.Address) (felt.Felt, error) {
	c.mu.Lock()
	if v, ok := c.nonces[addr]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()
	return c.base.Nonce(addr)
}

func (c *CachedState) StorageAt(addr felt.Address, key felt.Felt) (felt.Felt, error) {
	c.mu.Lock()
	if v, ok := c.storage[storageKey{addr, key}]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()
	return c.base.StorageAt(addr, key)
}

func (c *CachedState) ClassHashAt(addr felt.Address) (felt.Felt, error) {
	c.mu.Lock()
	if v, ok := c.classHashes[addr]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()
	return c.base.ClassHashAt(addr)
}

func (c *CachedState) Class(classHash felt.Felt) (*types.ContractClass, error) {
	c.mu.Lock()
	if v, ok := c.declaredClasses[classHash]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()
	return c.base.Class(classHash)
}

func (c *CachedState) CompiledClassHash(classHash felt.Felt) (felt.Felt, error) {
	c.mu.Lock()
	if v, ok := c.compiledClassPairs[classHash]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()
	return c.base.CompiledClassHash(classHash)
}

// SetNonce records a nonce write.
func (c *CachedState) SetNonce(addr felt.Address, nonce felt.Felt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nonces[addr] = nonce
}

// SetStorage records a storage write, preserving first-write order for the
// eventual StateDelta.
func (c *CachedState) SetStorage(addr felt.Address, key, value felt.Felt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := storageKey{addr, key}
	if _, ok := c.storage[k]; !ok {
		c.storageOrder = append(c.storageOrder, k)
	}
	c.storage[k] = value
}

// SetClassHash records that addr is now deployed with the given class hash.
func (c *CachedState) SetClassHash(addr felt.Address, classHash felt.Felt) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.classHashes[addr] = classHash
}

// DeclareClass records a newly declared class.
func (c *CachedState) DeclareClass(class *types.ContractClass) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.declaredClasses[class.Hash] = class
	if class.Kind == types.ClassSierra {
		c.compiledClassPairs[class.Hash] = class.CompiledClassHash
	}
}

// Diff materializes every tracked write into a types.StateDelta.
func (c *CachedState) Diff() *types.StateDelta {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := types.NewStateDelta()
	for addr, n := range c.nonces {
		d.NonceUpdates[addr] = n
	}
	for _, k := range c.storageOrder {
		d.StorageWrites = append(d.StorageWrites, types.StorageKV{Address: k.addr, Key: k.key, Value: c.storage[k]})
	}
	for addr, ch := range c.classHashes {
		d.ClassHashUpdates[addr] = ch
	}
	for _, class := range c.declaredClasses {
		d.DeclaredClasses = append(d.DeclaredClasses, class)
	}
	for ch, cch := range c.compiledClassPairs {
		d.CompiledClassPairs[ch] = cch
	}
	return d
}
