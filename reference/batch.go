package reference

import (
	"fmt"
	"math/big"

	"github.com/lumenstate/accumulator"
)

// BatchInsert inserts multiple leaves, continuing past individual failures
// and collecting one UpdateProof per successful insert.
func (t *Tree) BatchInsert(indices []*big.Int, leaves []accumulator.Bytes32) ([]*accumulator.UpdateProof, error) {
	if len(indices) != len(leaves) {
		return nil, fmt.Errorf("reference: indices and leaves must have same length")
	}
	proofs := make([]*accumulator.UpdateProof, len(indices))
	for i := range indices {
		t.mu.Lock()
		proof, err := t.insertInternal(indices[i], leaves[i])
		t.mu.Unlock()
		if err != nil {
			proofs[i] = nil
			continue
		}
		proofs[i] = proof
	}
	return proofs, nil
}

// BatchGet retrieves multiple proofs.
func (t *Tree) BatchGet(indices []*big.Int) ([]*accumulator.Proof, error) {
	proofs := make([]*accumulator.Proof, len(indices))
	for i, index := range indices {
		proof, err := t.ProofOfLeaf(index)
		if err != nil {
			return nil, err
		}
		proofs[i] = proof
	}
	return proofs, nil
}

// Operation is a single step in an atomic ExecuteBatch call.
type Operation struct {
	Kind  OperationKind
	Index *big.Int
	Leaf  accumulator.Bytes32
}

// OperationKind enumerates ExecuteBatch step types.
type OperationKind int

const (
	OpInsert OperationKind = iota
	OpUpdate
)

// ExecuteBatch applies operations atomically: on any failure the root is
// rolled back to its value before the call and the error identifies the
// failing step.
func (t *Tree) ExecuteBatch(operations []Operation) ([]*accumulator.UpdateProof, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	oldRoot := t.root
	proofs := make([]*accumulator.UpdateProof, len(operations))

	for i, op := range operations {
		var proof *accumulator.UpdateProof
		var err error

		switch op.Kind {
		case OpInsert:
			proof, err = t.insertInternal(op.Index, op.Leaf)
		case OpUpdate:
			proof, err = t.updateInternal(op.Index, op.Leaf)
		default:
			err = fmt.Errorf("reference: unknown operation kind: %d", op.Kind)
		}

		if err != nil {
			t.root = oldRoot
			return nil, fmt.Errorf("reference: batch operation %d failed: %w", i, err)
		}
		proofs[i] = proof
	}

	return proofs, nil
}
