package felt

import "testing"

func TestHexRoundTrip(t *testing.T) {
	cases := []string{"0x0", "0x1", "0xdeadbeef", "0x7ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"}
	for _, c := range cases {
		f, err := FromHex(c)
		if err != nil {
			t.Fatalf("FromHex(%s): %v", c, err)
		}
		if got := f.Hex(); got != c {
			t.Fatalf("round trip mismatch: want %s got %s", c, got)
		}
	}
}

func TestArithmetic(t *testing.T) {
	a := FromUint64(5)
	b := FromUint64(7)
	if got := a.Add(b); got.Hex() != FromUint64(12).Hex() {
		t.Fatalf("5+7 = %s, want 12", got.Hex())
	}
	if got := a.Mul(b); got.Hex() != FromUint64(35).Hex() {
		t.Fatalf("5*7 = %s, want 35", got.Hex())
	}
	if got := b.Sub(a); got.Hex() != FromUint64(2).Hex() {
		t.Fatalf("7-5 = %s, want 2", got.Hex())
	}
}

func TestInverse(t *testing.T) {
	a := FromUint64(42)
	inv, err := a.Inverse()
	if err != nil {
		t.Fatal(err)
	}
	if got := a.Mul(inv); !got.Equal(One()) {
		t.Fatalf("a*a^-1 = %s, want 1", got.Hex())
	}
	if _, err := Zero().Inverse(); err == nil {
		t.Fatal("expected error inverting zero")
	}
}

func TestBytesRoundTrip(t *testing.T) {
	a := FromUint64(123456789)
	be := a.BytesBE()
	if got := FromBytesBE(be[:]); !got.Equal(a) {
		t.Fatalf("bytes round trip mismatch")
	}
}

func TestAddressIdempotent(t *testing.T) {
	f := FromUint64(999999)
	a1 := NewAddress(f)
	a2 := NewAddress(a1.Felt())
	if !a1.Equal(a2) {
		t.Fatalf("NewAddress not idempotent: %s != %s", a1.Hex(), a2.Hex())
	}
}

func TestBit251PathLength(t *testing.T) {
	f := MustFromHex("0x1234")
	path := f.Bit251Path()
	if len(path) != 251 {
		t.Fatalf("expected 251 bits, got %d", len(path))
	}
}
