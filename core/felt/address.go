package felt

import (
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

// addressBound is 2^251, the normalization space for contract addresses
// ("ContractAddress::new(felt) normalizes into the address
// space and must be idempotent").
var addressBound = new(big.Int).Lsh(big.NewInt(1), 251)

// Address is a Felt normalized into the contract-address space.
type Address struct {
	f Felt
}

// NewAddress normalizes x into the address space. Calling NewAddress again on
// the result is a no-op (idempotent).
func NewAddress(x Felt) Address {
	var r big.Int
	r.Mod(x.BigInt(), addressBound)
	return Address{f: FromBigInt(&r)}
}

// Felt returns the underlying field element.
func (a Address) Felt() Felt { return a.f }

// Hex renders the canonical hex form.
func (a Address) Hex() string { return a.f.Hex() }

// String satisfies fmt.Stringer.
func (a Address) String() string { return a.f.Hex() }

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool { return a.f.IsZero() }

// Equal reports value equality.
func (a Address) Equal(o Address) bool { return a.f.Equal(o.f) }

// MarshalJSON delegates to the underlying Felt encoding.
func (a Address) MarshalJSON() ([]byte, error) { return a.f.MarshalJSON() }

// UnmarshalJSON delegates to the underlying Felt decoding and re-normalizes.
func (a *Address) UnmarshalJSON(data []byte) error {
	var f Felt
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	*a = NewAddress(f)
	return nil
}

// EncodeRLP delegates to the underlying Felt.
func (a Address) EncodeRLP(w io.Writer) error { return a.f.EncodeRLP(w) }

// DecodeRLP delegates to the underlying Felt and re-normalizes.
func (a *Address) DecodeRLP(s *rlp.Stream) error {
	if err := a.f.DecodeRLP(s); err != nil {
		return err
	}
	*a = NewAddress(a.f)
	return nil
}
