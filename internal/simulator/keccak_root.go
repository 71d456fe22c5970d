// Package simulator recomputes Keccak proof roots with an independent
// hash implementation (x/crypto sha3 rather than go-ethereum's crypto
// package), so proof-codec tests catch a bug shared by the production
// path and its checker.
package simulator

import (
	"math/big"

	"golang.org/x/crypto/sha3"

	"github.com/lumenstate/accumulator"
)

// ComputeRoot rebuilds a root from (leaf, index, enables, siblings) the
// way merkleproof.ComputeRoot does for the Keccak family, but with its
// own hashing and walk. Disabled levels carry an implied zero sibling;
// an all-zero pair stays zero, the untouched-empty-subtree rule.
func ComputeRoot(depth uint16, leaf accumulator.Bytes32, index, enables *big.Int, siblings []accumulator.Bytes32) accumulator.Bytes32 {
	current := leaf
	siblingIndex := 0

	for i := uint(0); i < uint(depth); i++ {
		var sibling accumulator.Bytes32
		if enables.Bit(int(i)) == 1 && siblingIndex < len(siblings) {
			sibling = siblings[siblingIndex]
			siblingIndex++
		}

		if current.IsZero() && sibling.IsZero() {
			continue
		}

		if index.Bit(int(i)) == 1 {
			current = keccakPair(sibling, current)
		} else {
			current = keccakPair(current, sibling)
		}
	}

	return current
}

func keccakPair(left, right accumulator.Bytes32) accumulator.Bytes32 {
	d := sha3.NewLegacyKeccak256()
	d.Write(left[:])
	d.Write(right[:])
	var out accumulator.Bytes32
	copy(out[:], d.Sum(nil))
	return out
}
