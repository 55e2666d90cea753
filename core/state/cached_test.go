package state

import (
	"testing"

	"katana-node/core/felt"
	"katana-node/core/types"
)

type fakeReader struct {
	nonces map[felt.Address]felt.Felt
}

func (f *fakeReader) Nonce(addr felt.Address) (felt.Felt, error) {
	if v, ok := f.nonces[addr]; ok {
		return v, nil
	}
	return felt.Zero(), nil
}
func (f *fakeReader) StorageAt(felt.Address, felt.Felt) (felt.Felt, error)        { return felt.Zero(), nil }
func (f *fakeReader) ClassHashAt(felt.Address) (felt.Felt, error)                 { return felt.Zero(), nil }
func (f *fakeReader) Class(felt.Felt) (*types.ContractClass, error)               { return nil, nil }
func (f *fakeReader) CompiledClassHash(felt.Felt) (felt.Felt, error)              { return felt.Zero(), nil }

func TestCachedStateFallsThroughOnMiss(t *testing.T) {
	addr := felt.NewAddress(felt.FromUint64(1))
	base := &fakeReader{nonces: map[felt.Address]felt.Felt{addr: felt.FromUint64(5)}}
	cs := NewCachedState(base)

	n, err := cs.Nonce(addr)
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}
	if !n.Equal(felt.FromUint64(5)) {
		t.Fatalf("expected base value 5, got %s", n)
	}
}

func TestCachedStateTracksWritesAndDiff(t *testing.T) {
	base := &fakeReader{nonces: map[felt.Address]felt.Felt{}}
	cs := NewCachedState(base)

	addr := felt.NewAddress(felt.FromUint64(2))
	cs.SetNonce(addr, felt.FromUint64(1))
	cs.SetStorage(addr, felt.FromUint64(10), felt.FromUint64(100))
	cs.SetStorage(addr, felt.FromUint64(11), felt.FromUint64(200))

	n, err := cs.Nonce(addr)
	if err != nil || !n.Equal(felt.FromUint64(1)) {
		t.Fatalf("expected overlay nonce 1, got %v err=%v", n, err)
	}

	delta := cs.Diff()
	if !delta.NonceUpdates[addr].Equal(felt.FromUint64(1)) {
		t.Fatalf("delta missing nonce update")
	}
	if len(delta.StorageWrites) != 2 {
		t.Fatalf("expected 2 storage writes, got %d", len(delta.StorageWrites))
	}
	if !delta.StorageWrites[0].Key.Equal(felt.FromUint64(10)) {
		t.Fatalf("expected insertion order preserved")
	}
}

func TestDeclareClassRecordsCompiledPair(t *testing.T) {
	base := &fakeReader{nonces: map[felt.Address]felt.Felt{}}
	cs := NewCachedState(base)

	class := &types.ContractClass{
		Kind:              types.ClassSierra,
		Hash:              felt.FromUint64(77),
		CompiledClassHash: felt.FromUint64(88),
	}
	cs.DeclareClass(class)

	delta := cs.Diff()
	if len(delta.DeclaredClasses) != 1 {
		t.Fatalf("expected 1 declared class")
	}
	if !delta.CompiledClassPairs[felt.FromUint64(77)].Equal(felt.FromUint64(88)) {
		t.Fatalf("expected compiled class pair recorded")
	}
}
