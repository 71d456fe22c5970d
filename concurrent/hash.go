package concurrent

import (
	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/hasher"
)

// computeParentNode hashes node with sibling in the order leafIndex's bit
// at level dictates: a 0 bit means node is the left child.
func computeParentNode(h hasher.Hasher, node, sibling accumulator.Bytes32, leafIndex uint64, level uint) (accumulator.Bytes32, error) {
	if (leafIndex>>level)%2 == 0 {
		return h.Hashv(node, sibling)
	}
	return h.Hashv(sibling, node)
}

// computeRoot walks leaf up to the root along proof, the sibling at each
// level ordered by leafIndex's bits.
func computeRoot(h hasher.Hasher, leaf accumulator.Bytes32, leafIndex uint64, proof []accumulator.Bytes32) (accumulator.Bytes32, error) {
	node := leaf
	for level, sibling := range proof {
		var err error
		node, err = computeParentNode(h, node, sibling, leafIndex, uint(level))
		if err != nil {
			return accumulator.Bytes32{}, err
		}
	}
	return node, nil
}
