package trie

import (
	"encoding/binary"
	"errors"
	"fmt"

	"katana-node/core/crypto"
	"katana-node/core/felt"
)

// kind tags the three node shapes this trie supports: Binary(left, right),
// Edge(path_bits, child) and Leaf(value).
type kind byte

const (
	kindBinary kind = iota
	kindEdge
	kindLeaf
)

// storedNode is the persisted representation of one trie node. Only the
// fields relevant to its kind are populated.
type storedNode struct {
	Kind  kind
	Left  felt.Felt // binary
	Right felt.Felt // binary
	Path  []bool    // edge: remaining path bits, MSB first
	Child felt.Felt // edge
	Value felt.Felt // leaf
}

// hash computes the node's hash: "Hash of a node is defined
// recursively so that the root is a deterministic function of the set of
// (key, value) pairs with non-zero values."
func (n storedNode) hash() felt.Felt {
	switch n.Kind {
	case kindLeaf:
		return n.Value
	case kindBinary:
		return crypto.Pedersen(n.Left, n.Right)
	case kindEdge:
		return crypto.Pedersen(n.Child, pathToFelt(n.Path)).Add(felt.FromUint64(uint64(len(n.Path))))
	default:
		panic(fmt.Sprintf("trie: unknown node kind %d", n.Kind))
	}
}

// pathToFelt packs an MSB-first bit slice into a field element so it can be
// mixed into an edge node's hash.
func pathToFelt(path []bool) felt.Felt {
	var b [32]byte
	for i, bit := range path {
		if !bit {
			continue
		}
		byteIdx := 31 - i/8
		bitIdx := uint(i % 8)
		b[byteIdx] |= 1 << bitIdx
	}
	return felt.FromBytesBE(b[:])
}

// encode serializes a node for durable storage. Variable-length fields
// (Path) are length-prefixed so the record stays decodable without external
// framing, matching the rest of the codec.
func (n storedNode) encode() []byte {
	switch n.Kind {
	case kindLeaf:
		out := make([]byte, 1+32)
		out[0] = byte(kindLeaf)
		v := n.Value.BytesBE()
		copy(out[1:], v[:])
		return out
	case kindBinary:
		out := make([]byte, 1+32+32)
		out[0] = byte(kindBinary)
		l := n.Left.BytesBE()
		r := n.Right.BytesBE()
		copy(out[1:33], l[:])
		copy(out[33:65], r[:])
		return out
	case kindEdge:
		out := make([]byte, 1+4+len(n.Path)+32)
		out[0] = byte(kindEdge)
		binary.BigEndian.PutUint32(out[1:5], uint32(len(n.Path)))
		for i, bit := range n.Path {
			if bit {
				out[5+i] = 1
			}
		}
		c := n.Child.BytesBE()
		copy(out[5+len(n.Path):], c[:])
		return out
	default:
		panic("trie: encode of unknown node kind")
	}
}

func decodeNode(b []byte) (storedNode, error) {
	if len(b) < 1 {
		return storedNode{}, errors.New("trie: empty node encoding")
	}
	switch kind(b[0]) {
	case kindLeaf:
		if len(b) != 33 {
			return storedNode{}, errors.New("trie: malformed leaf encoding")
		}
		return storedNode{Kind: kindLeaf, Value: felt.FromBytesBE(b[1:33])}, nil
	case kindBinary:
		if len(b) != 65 {
			return storedNode{}, errors.New("trie: malformed binary encoding")
		}
		return storedNode{Kind: kindBinary, Left: felt.FromBytesBE(b[1:33]), Right: felt.FromBytesBE(b[33:65])}, nil
	case kindEdge:
		if len(b) < 5 {
			return storedNode{}, errors.New("trie: malformed edge encoding")
		}
		n := int(binary.BigEndian.Uint32(b[1:5]))
		if len(b) != 5+n+32 {
			return storedNode{}, errors.New("trie: malformed edge encoding length")
		}
		path := make([]bool, n)
		for i := 0; i < n; i++ {
			path[i] = b[5+i] == 1
		}
		child := felt.FromBytesBE(b[5+n : 5+n+32])
		return storedNode{Kind: kindEdge, Path: path, Child: child}, nil
	default:
		return storedNode{}, fmt.Errorf("trie: unknown node kind byte %d", b[0])
	}
}
