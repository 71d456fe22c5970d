// Package merkleproof holds the hasher-parameterized proof reconstruction
// and verification helpers shared by the reference tree and the indexed
// tree: root-from-proof recomputation generalized
// from a single fixed Keccak256 hash to any hasher.Hasher.
package merkleproof

import (
	"math/big"

	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/hasher"
)

// ComputeRoot rebuilds a root from a leaf-to-root proof. For existence
// proofs current starts at leaf; for non-existence proofs it starts at the
// zero value and, per level, if both the running value and the sibling are
// zero, the result stays zero (an untouched empty subtree).
func ComputeRoot(h hasher.Hasher, depth uint16, leaf accumulator.Bytes32, index, enables *big.Int, siblings []accumulator.Bytes32) (accumulator.Bytes32, error) {
	current := leaf
	siblingIndex := 0

	for i := uint(0); i < uint(depth); i++ {
		bit := accumulator.GetBit(index, i)
		var sibling accumulator.Bytes32
		if accumulator.GetBit(enables, i) == 1 {
			if siblingIndex < len(siblings) {
				sibling = siblings[siblingIndex]
				siblingIndex++
			}
		}

		if current.IsZero() && sibling.IsZero() {
			continue
		}

		var err error
		if bit == 1 {
			current, err = h.Hashv(sibling, current)
		} else {
			current, err = h.Hashv(current, sibling)
		}
		if err != nil {
			return accumulator.Bytes32{}, err
		}
	}

	return current, nil
}

// ComputeRootFromProof is ComputeRoot specialized over an
// accumulator.Proof/UpdateProof shaped value.
func ComputeRootFromProof(h hasher.Hasher, depth uint16, proof *accumulator.Proof) (accumulator.Bytes32, error) {
	if proof == nil {
		return accumulator.Bytes32{}, nil
	}
	leaf := accumulator.Bytes32{}
	if proof.Exists {
		leaf = proof.Leaf
	}
	return ComputeRoot(h, depth, leaf, proof.Index, proof.Enables, proof.Siblings)
}

// VerifyProof reports whether proof reconstructs root.
func VerifyProof(h hasher.Hasher, root accumulator.Bytes32, depth uint16, proof *accumulator.Proof) (bool, error) {
	computed, err := ComputeRootFromProof(h, depth, proof)
	if err != nil {
		return false, err
	}
	return computed == root, nil
}

// VerifyUpdateProof checks that updateProof's old leaf reconstructs oldRoot
// and that substituting NewLeaf along the same siblings reconstructs
// newRoot.
func VerifyUpdateProof(h hasher.Hasher, oldRoot, newRoot accumulator.Bytes32, depth uint16, updateProof *accumulator.UpdateProof) (bool, error) {
	oldProof := &accumulator.Proof{
		Exists: updateProof.Exists, Leaf: updateProof.Leaf, Value: updateProof.Value,
		Index: updateProof.Index, Enables: updateProof.Enables, Siblings: updateProof.Siblings,
	}
	ok, err := VerifyProof(h, oldRoot, depth, oldProof)
	if err != nil || !ok {
		return false, err
	}

	newProof := &accumulator.Proof{
		Exists: true, Leaf: updateProof.NewLeaf, Value: updateProof.NewLeaf,
		Index: updateProof.Index, Enables: updateProof.Enables, Siblings: updateProof.Siblings,
	}
	computedNewRoot, err := ComputeRootFromProof(h, depth, newProof)
	if err != nil {
		return false, err
	}
	return computedNewRoot == newRoot, nil
}

// BatchVerifyProof verifies multiple proofs against the same root.
func BatchVerifyProof(h hasher.Hasher, root accumulator.Bytes32, depth uint16, proofs []*accumulator.Proof) ([]bool, error) {
	results := make([]bool, len(proofs))
	for i, p := range proofs {
		ok, err := VerifyProof(h, root, depth, p)
		if err != nil {
			return nil, err
		}
		results[i] = ok
	}
	return results, nil
}
