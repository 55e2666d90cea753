package trie

import "katana-node/core/felt"

// MultiProof is a de-duplicated set of nodes sufficient to prove the value at
// every key a caller requested under a known root. It is keyed
// by node hash, which is how overlapping sibling subtrees across multiple
// keys collapse into a single entry.
type MultiProof struct {
	nodes map[felt.Felt]storedNode
	root  felt.Felt
}

// walk resolves key's value by descending from root using only the nodes
// available in store (either the full in-memory node set, or a MultiProof).
// A missing node mid-path is a non-membership result only when it corresponds
// to an edge mismatch or an implicit empty (zero-hash) child; any other gap
// means the proof is insufficient and ok is false.
func walk(root felt.Felt, path []bool, store map[felt.Felt]storedNode) (value felt.Felt, ok bool) {
	cur := root
	depth := 0
	for {
		if cur.IsZero() {
			return felt.Zero(), true
		}
		n, found := store[cur]
		if !found {
			return felt.Zero(), false
		}
		switch n.Kind {
		case kindLeaf:
			return n.Value, true
		case kindEdge:
			for i, bit := range n.Path {
				if depth+i >= len(path) || path[depth+i] != bit {
					return felt.Zero(), true // edge mismatch: proven absent
				}
			}
			depth += len(n.Path)
			cur = n.Child
		case kindBinary:
			if depth >= len(path) {
				return felt.Zero(), false
			}
			if path[depth] {
				cur = n.Right
			} else {
				cur = n.Left
			}
			depth++
		}
	}
}

// GetMultiProof produces the minimal node set proving the value at every
// requested key under root, by unioning the per-key root-to-leaf traversals.
func getMultiProof(root felt.Felt, keys []felt.Felt, full map[felt.Felt]storedNode) MultiProof {
	proof := make(map[felt.Felt]storedNode)
	for _, k := range keys {
		collectPath(root, k.Bit251Path(), full, proof)
	}
	return MultiProof{nodes: proof, root: root}
}

func collectPath(root felt.Felt, path []bool, full, sink map[felt.Felt]storedNode) {
	cur := root
	depth := 0
	for {
		if cur.IsZero() {
			return
		}
		n, found := full[cur]
		if !found {
			return
		}
		sink[cur] = n
		switch n.Kind {
		case kindLeaf:
			return
		case kindEdge:
			for i, bit := range n.Path {
				if depth+i >= len(path) || path[depth+i] != bit {
					return
				}
			}
			depth += len(n.Path)
			cur = n.Child
		case kindBinary:
			if depth >= len(path) {
				return
			}
			if path[depth] {
				cur = n.Right
			} else {
				cur = n.Left
			}
			depth++
		}
	}
}

// Verify checks that key maps to value under the proof's root. It is a pure
// function of (root, proof, key, leaf-hash fn).
func (p MultiProof) Verify(key, value felt.Felt) bool {
	got, ok := walk(p.root, key.Bit251Path(), p.nodes)
	if !ok {
		return false
	}
	return got.Equal(value)
}

// Root returns the root this proof was produced against.
func (p MultiProof) Root() felt.Felt { return p.root }

// Size reports the number of distinct nodes carried by the proof.
func (p MultiProof) Size() int { return len(p.nodes) }

// EncodedNodes returns every node in the proof in its wire encoding, keyed
// by node hash, for transports (e.g. the RPC façade's get_storage_proof)
// that need to ship the proof off-process.
func (p MultiProof) EncodedNodes() map[felt.Felt][]byte {
	out := make(map[felt.Felt][]byte, len(p.nodes))
	for hash, n := range p.nodes {
		out[hash] = n.encode()
	}
	return out
}
