// Package trie implements the sparse Merkle-Patricia commitment tries that
// back the contract, class and per-contract-storage commitments. Keys are 251-bit paths taken MSB-first over a Felt's big-endian
// representation.
package trie

import (
	"fmt"
	"sync"

	"katana-node/core/felt"
)

// NodeStore persists encoded trie nodes and committed roots, keyed by a
// caller-chosen namespace. The blockchain store (core/store) implements this
// on top of its TrieNodes table.
type NodeStore interface {
	PutNode(namespace string, hash felt.Felt, encoded []byte) error
	GetNode(namespace string, hash felt.Felt) ([]byte, bool, error)
	PutRoot(namespace string, commitID uint64, root felt.Felt) error
	GetRoot(namespace string, commitID uint64) (felt.Felt, bool, error)
}

// Manager owns every named trie (the contract trie, the class trie, and one
// per-contract storage trie per address) and coordinates their commit_id
// tagging, so a single block commit can atomically advance all of them.
type Manager struct {
	mu      sync.RWMutex
	store   NodeStore
	leaves  map[string]map[[32]byte]felt.Felt // namespace -> key bytes -> value (committed)
	pending map[string]map[[32]byte]felt.Felt // namespace -> key bytes -> value (buffered)
	roots   map[string]felt.Felt              // namespace -> current root
}

// NewManager constructs an empty Manager backed by store.
func NewManager(store NodeStore) *Manager {
	return &Manager{
		store:   store,
		leaves:  make(map[string]map[[32]byte]felt.Felt),
		pending: make(map[string]map[[32]byte]felt.Felt),
		roots:   make(map[string]felt.Felt),
	}
}

func keyBytes(key felt.Felt) [32]byte { return key.BytesBE() }

// Insert buffers an update under namespace, to be materialized on the next
// Commit. The producer uses "contract", "class", and "storage:" followed by
// a contract address's 32 big-endian bytes as namespaces.
func (m *Manager) Insert(namespace string, key, value felt.Felt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending[namespace] == nil {
		m.pending[namespace] = make(map[[32]byte]felt.Felt)
	}
	m.pending[namespace][keyBytes(key)] = value
}

// Commit materializes every namespace's buffered updates, persists changed
// nodes, and tags the new roots with commitID (the block number).
func (m *Manager) Commit(commitID uint64) (map[string]felt.Felt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]felt.Felt)
	for namespace, updates := range m.pending {
		if m.leaves[namespace] == nil {
			m.leaves[namespace] = make(map[[32]byte]felt.Felt)
		}
		for k, v := range updates {
			if v.IsZero() {
				delete(m.leaves[namespace], k)
			} else {
				m.leaves[namespace][k] = v
			}
		}

		root, nodes := buildRoot(m.leaves[namespace], func(b [32]byte) felt.Felt { return felt.FromBytesBE(b[:]) })
		for hash, n := range nodes {
			if err := m.store.PutNode(namespace, hash, n.encode()); err != nil {
				return nil, fmt.Errorf("trie: persist node: %w", err)
			}
		}
		if err := m.store.PutRoot(namespace, commitID, root); err != nil {
			return nil, fmt.Errorf("trie: persist root: %w", err)
		}
		m.roots[namespace] = root
		out[namespace] = root
	}
	m.pending = make(map[string]map[[32]byte]felt.Felt)
	return out, nil
}

// Root returns namespace's current (latest committed) root hash.
func (m *Manager) Root(namespace string) felt.Felt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roots[namespace]
}

// GetMultiProof produces a de-duplicated node set proving the value at every
// requested key under namespace's current root.
func (m *Manager) GetMultiProof(namespace string, keys []felt.Felt) (MultiProof, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	root := m.roots[namespace]
	_, nodes := buildRoot(m.leaves[namespace], func(b [32]byte) felt.Felt { return felt.FromBytesBE(b[:]) })
	return getMultiProof(root, keys, nodes), nil
}

// Snapshot is a read-only view of a namespace rooted at a historical commit.
// Writes to a Snapshot are a programming error, not a runtime possibility:
// Snapshot exposes no mutating methods at all.
type Snapshot struct {
	namespace string
	root      felt.Felt
	full      map[felt.Felt]storedNode
	store     NodeStore
}

// SnapshotAt returns a read-only view of namespace rooted at the commit
// tagged with blockNumber. It is restricted to reads by its type: there is no Insert method.
func (m *Manager) SnapshotAt(namespace string, blockNumber uint64) (*Snapshot, error) {
	root, ok, err := m.store.GetRoot(namespace, blockNumber)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("trie: no committed root for namespace %q at block %d", namespace, blockNumber)
	}
	return &Snapshot{namespace: namespace, root: root, store: m.store}, nil
}

// Root returns the snapshot's fixed root hash.
func (s *Snapshot) Root() felt.Felt { return s.root }

// Get resolves key's value under the snapshot's root, loading nodes lazily
// from the backing NodeStore.
func (s *Snapshot) Get(key felt.Felt) (felt.Felt, error) {
	cur := s.root
	path := key.Bit251Path()
	depth := 0
	for {
		if cur.IsZero() {
			return felt.Zero(), nil
		}
		encoded, ok, err := s.store.GetNode(s.namespace, cur)
		if err != nil {
			return felt.Zero(), err
		}
		if !ok {
			return felt.Zero(), fmt.Errorf("trie: missing node %s in namespace %q", cur.Hex(), s.namespace)
		}
		n, err := decodeNode(encoded)
		if err != nil {
			return felt.Zero(), err
		}
		switch n.Kind {
		case kindLeaf:
			return n.Value, nil
		case kindEdge:
			for i, bit := range n.Path {
				if depth+i >= len(path) || path[depth+i] != bit {
					return felt.Zero(), nil
				}
			}
			depth += len(n.Path)
			cur = n.Child
		case kindBinary:
			if path[depth] {
				cur = n.Right
			} else {
				cur = n.Left
			}
			depth++
		}
	}
}
