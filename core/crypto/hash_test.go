package crypto

import (
	"testing"

	"katana-node/core/felt"
)

func TestPoseidonDeterministic(t *testing.T) {
	a := felt.FromUint64(1)
	b := felt.FromUint64(2)
	h1 := Poseidon(a, b)
	h2 := Poseidon(a, b)
	if !h1.Equal(h2) {
		t.Fatalf("Poseidon not deterministic: %s != %s", h1.Hex(), h2.Hex())
	}
}

func TestPoseidonSensitiveToOrder(t *testing.T) {
	a := felt.FromUint64(1)
	b := felt.FromUint64(2)
	if Poseidon(a, b).Equal(Poseidon(b, a)) {
		t.Fatal("Poseidon(a,b) should differ from Poseidon(b,a)")
	}
}

func TestPedersenDeterministic(t *testing.T) {
	a := felt.FromUint64(10)
	b := felt.FromUint64(20)
	if !Pedersen(a, b).Equal(Pedersen(a, b)) {
		t.Fatal("Pedersen not deterministic")
	}
	if Pedersen(a, b).Equal(Pedersen(b, a)) {
		t.Fatal("Pedersen should be order sensitive")
	}
}
