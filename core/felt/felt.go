// Package felt implements arithmetic over the 252-bit STARK prime field used
// throughout the sequencer: addresses, hashes and every storage value are a
// Felt.
package felt

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"
)

// modulus is the STARK prime: 2^251 + 17*2^192 + 1.
var modulus = func() *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), 251)
	t := new(big.Int).Lsh(big.NewInt(17), 192)
	m.Add(m, t)
	m.Add(m, big.NewInt(1))
	return m
}()

// Bound is the field modulus, exported for callers that need to normalize
// values (e.g. contract-address space reduction).
func Bound() *big.Int { return new(big.Int).Set(modulus) }

// Felt is a canonical representative of the STARK prime field, total-ordered
// by its big-endian unsigned representation. The backing store is a fixed
// [32]byte array rather than math/big.Int so that Felt stays comparable and
// usable as a map key (every nonce/storage/class-hash table in core/types
// and core/state keys on Felt/Address directly); arithmetic still goes
// through math/big internally.
type Felt struct {
	b [32]byte
}

// Zero returns the additive identity.
func Zero() Felt { return Felt{} }

// One returns the multiplicative identity.
func One() Felt { return FromUint64(1) }

// FromUint64 builds a Felt from a small unsigned integer.
func FromUint64(x uint64) Felt {
	var f Felt
	for i := 0; i < 8; i++ {
		f.b[31-i] = byte(x >> (8 * uint(i)))
	}
	return f
}

// FromBigInt reduces an arbitrary big.Int into the field.
func FromBigInt(x *big.Int) Felt {
	var r big.Int
	r.Mod(x, modulus)
	if r.Sign() < 0 {
		r.Add(&r, modulus)
	}
	var f Felt
	rb := r.Bytes()
	copy(f.b[32-len(rb):], rb)
	return f
}

// FromBytesBE reduces a big-endian byte slice into the field.
func FromBytesBE(b []byte) Felt {
	return FromBigInt(new(big.Int).SetBytes(b))
}

// MustFromHex parses a "0x"-prefixed hex string, panicking on malformed
// input. Intended for constants.
func MustFromHex(s string) Felt {
	f, err := FromHex(s)
	if err != nil {
		panic(err)
	}
	return f
}

// FromHex parses a "0x"-prefixed (or bare) hex string into a Felt.
func FromHex(s string) (Felt, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if s == "" {
		return Zero(), nil
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Felt{}, fmt.Errorf("felt: invalid hex: %w", err)
	}
	return FromBytesBE(b), nil
}

// BytesBE returns the big-endian 32-byte representation.
func (f Felt) BytesBE() [32]byte { return f.b }

// BytesLE returns the little-endian 32-byte representation.
func (f Felt) BytesLE() [32]byte {
	var out [32]byte
	for i := range f.b {
		out[i] = f.b[31-i]
	}
	return out
}

// big returns the arbitrary-precision value of f, for use in arithmetic.
func (f Felt) big() *big.Int { return new(big.Int).SetBytes(f.b[:]) }

// Hex renders the canonical "0x"-prefixed, zero-trimmed hex form.
func (f Felt) Hex() string {
	if f.IsZero() {
		return "0x0"
	}
	return "0x" + f.big().Text(16)
}

// String satisfies fmt.Stringer.
func (f Felt) String() string { return f.Hex() }

// IsZero reports whether f is the additive identity.
func (f Felt) IsZero() bool { return f.b == [32]byte{} }

// Cmp total-orders two Felts by their canonical representative. Since both
// sides are fixed-width big-endian unsigned integers, a lexicographic byte
// compare equals a numeric compare.
func (f Felt) Cmp(o Felt) int { return bytes.Compare(f.b[:], o.b[:]) }

// Equal reports value equality.
func (f Felt) Equal(o Felt) bool { return f.b == o.b }

// Add returns f+o mod p.
func (f Felt) Add(o Felt) Felt {
	var r big.Int
	r.Add(f.big(), o.big())
	return FromBigInt(&r)
}

// Sub returns f-o mod p.
func (f Felt) Sub(o Felt) Felt {
	var r big.Int
	r.Sub(f.big(), o.big())
	return FromBigInt(&r)
}

// Mul returns f*o mod p.
func (f Felt) Mul(o Felt) Felt {
	var r big.Int
	r.Mul(f.big(), o.big())
	return FromBigInt(&r)
}

// Inverse returns the multiplicative inverse of f, or an error if f is zero.
func (f Felt) Inverse() (Felt, error) {
	if f.IsZero() {
		return Felt{}, errors.New("felt: inverse of zero")
	}
	var r big.Int
	r.ModInverse(f.big(), modulus)
	return FromBigInt(&r), nil
}

// BigInt returns the value as an arbitrary-precision integer.
func (f Felt) BigInt() *big.Int { return f.big() }

// Bit251Path returns the low 251 bits of the big-endian representation as a
// bit slice (MSB first), the path used to key the commitment tries.
func (f Felt) Bit251Path() []bool {
	be := f.BytesBE()
	// Skip the top five bits of the 256-bit representation (256 - 251 = 5).
	// Addresses are normalized below 2^251, so their path carries every bit
	// of the value; for a Felt at or above 2^251, bit 251 is not part of it.
	const skip = 256 - 251
	full := make([]bool, 0, 256)
	for _, b := range be {
		for i := 7; i >= 0; i-- {
			full = append(full, (b>>uint(i))&1 == 1)
		}
	}
	return full[skip:][:251]
}

// MarshalJSON renders the canonical hex form for RPC payloads.
func (f Felt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.Hex() + `"`), nil
}

// UnmarshalJSON parses a hex-encoded Felt from an RPC payload.
func (f *Felt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := FromHex(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// EncodeRLP renders the Felt as its big-endian byte string, so it nests
// naturally inside RLP-encoded block, transaction and receipt records (the
// chosen wire codec; see core/ledger.go's use of go-ethereum/rlp).
func (f Felt) EncodeRLP(w io.Writer) error {
	b := f.BytesBE()
	return rlp.Encode(w, b[:])
}

// DecodeRLP reverses EncodeRLP.
func (f *Felt) DecodeRLP(s *rlp.Stream) error {
	var b []byte
	if err := s.Decode(&b); err != nil {
		return err
	}
	*f = FromBytesBE(b)
	return nil
}
