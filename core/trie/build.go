package trie

import (
	"sort"

	"katana-node/core/felt"
)

const pathHeight = 251

type entry struct {
	path  []bool
	value felt.Felt
}

// buildSubtree recursively constructs the minimal subtree covering entries,
// writing every node it creates into sink, and returns the subtree's root
// hash. height is the number of remaining path bits to consume. An empty
// entries slice yields the zero hash, matching the invariant that unwritten
// keys carry the zero value.
func buildSubtree(entries []entry, height int, sink map[felt.Felt]storedNode) felt.Felt {
	if len(entries) == 0 {
		return felt.Zero()
	}
	if len(entries) == 1 {
		leaf := storedNode{Kind: kindLeaf, Value: entries[0].value}
		leafHash := leaf.hash()
		sink[leafHash] = leaf

		remaining := entries[0].path[pathHeight-height:]
		if len(remaining) == 0 {
			return leafHash
		}
		edge := storedNode{Kind: kindEdge, Path: remaining, Child: leafHash}
		edgeHash := edge.hash()
		sink[edgeHash] = edge
		return edgeHash
	}

	bitPos := pathHeight - height
	var left, right []entry
	for _, e := range entries {
		if e.path[bitPos] {
			right = append(right, e)
		} else {
			left = append(left, e)
		}
	}

	leftHash := buildSubtree(left, height-1, sink)
	rightHash := buildSubtree(right, height-1, sink)
	bin := storedNode{Kind: kindBinary, Left: leftHash, Right: rightHash}
	binHash := bin.hash()
	sink[binHash] = bin
	return binHash
}

// buildRoot computes the root hash for a full set of non-zero (key, value)
// pairs and returns every node created along the way.
func buildRoot(leaves map[[32]byte]felt.Felt, keyOf func([32]byte) felt.Felt) (felt.Felt, map[felt.Felt]storedNode) {
	entries := make([]entry, 0, len(leaves))
	for k, v := range leaves {
		if v.IsZero() {
			continue
		}
		entries = append(entries, entry{path: keyOf(k).Bit251Path(), value: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		return lessPath(entries[i].path, entries[j].path)
	})
	sink := make(map[felt.Felt]storedNode)
	root := buildSubtree(entries, pathHeight, sink)
	return root, sink
}

func lessPath(a, b []bool) bool {
	for i := range a {
		if a[i] != b[i] {
			return !a[i] && b[i]
		}
	}
	return false
}
