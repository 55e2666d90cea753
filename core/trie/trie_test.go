package trie

import (
	"testing"

	"katana-node/core/felt"
)

type memStore struct {
	nodes map[string]map[felt.Felt][]byte
	roots map[string]map[uint64]felt.Felt
}

func newMemStore() *memStore {
	return &memStore{nodes: make(map[string]map[felt.Felt][]byte), roots: make(map[string]map[uint64]felt.Felt)}
}

func (m *memStore) PutNode(ns string, hash felt.Felt, encoded []byte) error {
	if m.nodes[ns] == nil {
		m.nodes[ns] = make(map[felt.Felt][]byte)
	}
	m.nodes[ns][hash] = encoded
	return nil
}

func (m *memStore) GetNode(ns string, hash felt.Felt) ([]byte, bool, error) {
	b, ok := m.nodes[ns][hash]
	return b, ok, nil
}

func (m *memStore) PutRoot(ns string, commitID uint64, root felt.Felt) error {
	if m.roots[ns] == nil {
		m.roots[ns] = make(map[uint64]felt.Felt)
	}
	m.roots[ns][commitID] = root
	return nil
}

func (m *memStore) GetRoot(ns string, commitID uint64) (felt.Felt, bool, error) {
	r, ok := m.roots[ns][commitID]
	return r, ok, nil
}

func TestEmptyTrieRootIsZero(t *testing.T) {
	mgr := NewManager(newMemStore())
	if _, err := mgr.Commit(0); err != nil {
		t.Fatal(err)
	}
	if got := mgr.Root("contract"); !got.IsZero() {
		t.Fatalf("empty trie root should be zero, got %s", got.Hex())
	}
}

func TestOrderIndependentRoot(t *testing.T) {
	keys := []felt.Felt{felt.FromUint64(1), felt.FromUint64(2), felt.FromUint64(3)}
	vals := []felt.Felt{felt.FromUint64(100), felt.FromUint64(200), felt.FromUint64(300)}

	mgr1 := NewManager(newMemStore())
	for i := range keys {
		mgr1.Insert("contract", keys[i], vals[i])
	}
	if _, err := mgr1.Commit(1); err != nil {
		t.Fatal(err)
	}

	mgr2 := NewManager(newMemStore())
	order := []int{2, 0, 1}
	for _, i := range order {
		mgr2.Insert("contract", keys[i], vals[i])
	}
	if _, err := mgr2.Commit(1); err != nil {
		t.Fatal(err)
	}

	if !mgr1.Root("contract").Equal(mgr2.Root("contract")) {
		t.Fatalf("roots differ by insertion order: %s != %s", mgr1.Root("contract").Hex(), mgr2.Root("contract").Hex())
	}
}

func TestMultiProofRoundTrip(t *testing.T) {
	mgr := NewManager(newMemStore())
	keys := []felt.Felt{felt.FromUint64(7), felt.FromUint64(42), felt.FromUint64(1000)}
	vals := []felt.Felt{felt.FromUint64(1), felt.FromUint64(2), felt.FromUint64(3)}
	for i := range keys {
		mgr.Insert("contract", keys[i], vals[i])
	}
	if _, err := mgr.Commit(1); err != nil {
		t.Fatal(err)
	}

	proof, err := mgr.GetMultiProof("contract", keys)
	if err != nil {
		t.Fatal(err)
	}
	for i := range keys {
		if !proof.Verify(keys[i], vals[i]) {
			t.Fatalf("proof failed to verify key %s -> %s", keys[i].Hex(), vals[i].Hex())
		}
	}
	if proof.Verify(keys[0], vals[1]) {
		t.Fatal("proof should not verify the wrong value")
	}
}

func TestNonMembership(t *testing.T) {
	mgr := NewManager(newMemStore())
	mgr.Insert("contract", felt.FromUint64(1), felt.FromUint64(10))
	if _, err := mgr.Commit(1); err != nil {
		t.Fatal(err)
	}
	absent := felt.FromUint64(999)
	proof, err := mgr.GetMultiProof("contract", []felt.Felt{absent})
	if err != nil {
		t.Fatal(err)
	}
	if !proof.Verify(absent, felt.Zero()) {
		t.Fatal("non-membership proof should verify zero value")
	}
}

func TestSnapshotAtHistoricalRoot(t *testing.T) {
	store := newMemStore()
	mgr := NewManager(store)
	mgr.Insert("contract", felt.FromUint64(1), felt.FromUint64(10))
	if _, err := mgr.Commit(1); err != nil {
		t.Fatal(err)
	}
	mgr.Insert("contract", felt.FromUint64(1), felt.FromUint64(20))
	if _, err := mgr.Commit(2); err != nil {
		t.Fatal(err)
	}

	snap1, err := mgr.SnapshotAt("contract", 1)
	if err != nil {
		t.Fatal(err)
	}
	v, err := snap1.Get(felt.FromUint64(1))
	if err != nil {
		t.Fatal(err)
	}
	if !v.Equal(felt.FromUint64(10)) {
		t.Fatalf("historical snapshot should see 10, got %s", v.Hex())
	}

	snap2, err := mgr.SnapshotAt("contract", 2)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := snap2.Get(felt.FromUint64(1))
	if err != nil {
		t.Fatal(err)
	}
	if !v2.Equal(felt.FromUint64(20)) {
		t.Fatalf("latest snapshot should see 20, got %s", v2.Hex())
	}
}
