package chainspec

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDevNDeclaresSharedAccountClass(t *testing.T) {
	spec := DevN(0, 3)

	if len(spec.PredeployedClasses) != 1 {
		t.Fatalf("expected one shared account class, got %d", len(spec.PredeployedClasses))
	}
	classHash := spec.PredeployedClasses[0].Hash

	if len(spec.Allocations) != 3 {
		t.Fatalf("expected 3 allocations, got %d", len(spec.Allocations))
	}
	for _, alloc := range spec.Allocations {
		if !alloc.ClassHash.Equal(classHash) {
			t.Fatalf("allocation %s references undeclared class %s", alloc.Address.Hex(), alloc.ClassHash.Hex())
		}
		if _, ok := spec.STRKBalances[alloc.Address]; !ok {
			t.Fatalf("allocation %s has no funded STRK balance", alloc.Address.Hex())
		}
	}
}

func TestDevNSeedLeavesAccountAddressesStable(t *testing.T) {
	a := DevN(0, 2)
	b := DevN(7, 2)

	if len(a.Allocations) != len(b.Allocations) {
		t.Fatalf("account count should not depend on seed")
	}
	for i := range a.Allocations {
		if !a.Allocations[i].Address.Equal(b.Allocations[i].Address) {
			t.Fatalf("account %d address changed across seeds", i)
		}
	}
	if a.SequencerAddress.Equal(b.SequencerAddress) {
		t.Fatalf("expected seed to perturb the sequencer address")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	spec := DevN(1, 2)
	path := filepath.Join(t.TempDir(), "chainspec.yaml")

	if err := Save(spec, path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !loaded.ChainID.Equal(spec.ChainID) {
		t.Fatalf("chain id mismatch after round trip")
	}
	if len(loaded.PredeployedClasses) != len(spec.PredeployedClasses) {
		t.Fatalf("predeployed class count mismatch: want %d, got %d", len(spec.PredeployedClasses), len(loaded.PredeployedClasses))
	}
	if !loaded.PredeployedClasses[0].Hash.Equal(spec.PredeployedClasses[0].Hash) {
		t.Fatalf("predeployed class hash mismatch after round trip")
	}
	if len(loaded.Allocations) != len(spec.Allocations) {
		t.Fatalf("allocation count mismatch after round trip")
	}
	for _, alloc := range spec.Allocations {
		bal, ok := loaded.STRKBalances[alloc.Address]
		if !ok {
			t.Fatalf("missing balance for %s after round trip", alloc.Address.Hex())
		}
		if !bal.Equal(spec.STRKBalances[alloc.Address]) {
			t.Fatalf("balance mismatch for %s after round trip", alloc.Address.Hex())
		}
	}
}

func TestLoadRejectsUnknownClassKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	contents := "chain_id: \"0x1\"\npredeployed_classes:\n  - kind: bogus\n    hash: \"0x2\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for an unknown class kind")
	}
}
