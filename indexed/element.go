// Package indexed implements the indexed Merkle tree: a Merkle tree whose
// leaves double as nodes of a sorted singly-linked list, so a
// non-membership proof for a candidate value is just an inclusion proof
// of its would-be predecessor. The underlying Merkle mutation uses the
// same full-recomputation walk as the sparse reference tree, with a
// triple-value leaf hash and linked-list bookkeeping layered on top.
package indexed

import (
	"math/big"

	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/hasher"
)

// Element is one entry in the sorted linked list: a value plus a pointer,
// by tree leaf index, to the next-higher value in the list.
type Element struct {
	Value     *big.Int
	NextIndex uint64
	NextValue *big.Int
}

// hash returns the leaf value this Element hashes to: Hashv(value,
// next_index, next_value). This is deliberately not the reference tree's
// Hashv(index, value) pairing, since the list pointer, not the tree
// position, is what a non-membership proof needs to authenticate.
func (e Element) hash(h hasher.Hasher) (accumulator.Bytes32, error) {
	nextIndex := new(big.Int).SetUint64(e.NextIndex)
	return h.Hashv(
		accumulator.BigIntToBytes32(e.Value),
		accumulator.BigIntToBytes32(nextIndex),
		accumulator.BigIntToBytes32(e.NextValue),
	)
}

func (e Element) clone() Element {
	return Element{
		Value:     new(big.Int).Set(e.Value),
		NextIndex: e.NextIndex,
		NextValue: new(big.Int).Set(e.NextValue),
	}
}

// fieldMax is the sentinel "infinity" value the highest element in the
// list points past: one less than the scalar field modulus, since no
// value congruent to the modulus itself is ever a canonical node value.
var fieldMax = new(big.Int).Sub(hasher.BN254FieldModulus, big.NewInt(1))
