// Package reference implements the full, non-compressed Merkle trees used
// as testing oracles by the other tree variants in this module. It
// generalizes a sparse Merkle tree's full-recomputation walk and Database
// storage seam from a fixed Keccak256 256-bit sparse tree to a
// bounded-height, pluggable-hasher full tree with sequential append
// tracking.
package reference

import (
	"math/big"
	"sync"

	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/hasher"
	"github.com/lumenstate/accumulator/merkleproof"
)

// MaxDepth is the largest tree height this package will construct.
const MaxDepth = 256

var one = big.NewInt(1)

// Tree is a full, non-compressed Merkle tree: every node is stored
// explicitly in the backing Database, keyed by its own hash.
type Tree struct {
	db        accumulator.Database
	h         hasher.Hasher
	root      accumulator.Bytes32
	depth     uint16
	nextIndex uint64
	mu        sync.RWMutex
}

// New creates a Tree over db with the given height and hasher.
func New(db accumulator.Database, depth uint16, h hasher.Hasher) (*Tree, error) {
	if depth == 0 || depth > MaxDepth {
		return nil, &InvalidTreeDepthError{Depth: depth}
	}
	if db == nil {
		return nil, accumulator.ErrNilDatabase
	}
	if h == nil {
		return nil, accumulator.ErrNilHasher
	}
	return &Tree{db: db, h: h, depth: depth}, nil
}

// Root returns the current root hash.
func (t *Tree) Root() accumulator.Bytes32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Depth returns the tree height.
func (t *Tree) Depth() uint16 { return t.depth }

// NextIndex returns the next free leaf position for Append.
func (t *Tree) NextIndex() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nextIndex
}

// Append inserts leaf at the next free index and advances the append
// cursor.
func (t *Tree) Append(leaf accumulator.Bytes32) (*accumulator.UpdateProof, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	index := new(big.Int).SetUint64(t.nextIndex)
	proof, err := t.insertInternal(index, leaf)
	if err != nil {
		return nil, err
	}
	t.nextIndex++
	return proof, nil
}

// Update replaces the leaf at index. index must already hold a leaf.
func (t *Tree) Update(index *big.Int, newLeaf accumulator.Bytes32) (*accumulator.UpdateProof, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.updateInternal(index, newLeaf)
}

// ProofOfLeaf returns the inclusion/non-inclusion proof for index.
func (t *Tree) ProofOfLeaf(index *big.Int) (*accumulator.Proof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.get(index)
}

// LeafIndex returns the tree index storing leafHash, if any.
func (t *Tree) LeafIndex(leafHash accumulator.Bytes32) (*big.Int, bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	leaf, err := t.getLeaf(leafHash)
	if err != nil {
		return nil, false, err
	}
	if leaf == nil {
		return nil, false, nil
	}
	return leaf.Index, true, nil
}

// Exists reports whether index currently holds a leaf.
func (t *Tree) Exists(index *big.Int) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.exists(index)
}

// VerifyProof checks proof against the tree's current root.
func (t *Tree) VerifyProof(proof *accumulator.Proof) (bool, error) {
	t.mu.RLock()
	root, depth := t.root, t.depth
	t.mu.RUnlock()
	return merkleproof.VerifyProof(t.h, root, depth, proof)
}

func (t *Tree) validateIndex(index *big.Int) error {
	if index.Sign() < 0 {
		return &accumulator.OutOfRangeError{Index: index.Int64(), TreeDepth: t.depth}
	}
	if t.depth < MaxDepth {
		maxIndex := new(big.Int).Lsh(one, uint(t.depth))
		if index.Cmp(maxIndex) >= 0 {
			return &accumulator.OutOfRangeError{Index: index.Int64(), TreeDepth: t.depth}
		}
	}
	return nil
}

func (t *Tree) insertInternal(index *big.Int, leaf accumulator.Bytes32) (*accumulator.UpdateProof, error) {
	exists, err := t.exists(index)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &accumulator.KeyExistsError{Index: index.Int64()}
	}
	return t.upsert(index, leaf)
}

func (t *Tree) updateInternal(index *big.Int, newLeaf accumulator.Bytes32) (*accumulator.UpdateProof, error) {
	exists, err := t.exists(index)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &accumulator.KeyNotFoundError{Index: index.Int64()}
	}
	return t.upsert(index, newLeaf)
}

func (t *Tree) exists(index *big.Int) (bool, error) {
	if err := t.validateIndex(index); err != nil {
		return false, err
	}
	leaf, err := t.getLeafByIndex(index)
	if err != nil {
		return false, err
	}
	return !leaf.IsZero(), nil
}

// computeLeafHash derives the node value stored for (index, value), reusing
// the active hasher rather than a hardcoded Keccak256 call.
func (t *Tree) computeLeafHash(index *big.Int, value accumulator.Bytes32) (accumulator.Bytes32, error) {
	return t.h.Hashv(accumulator.BigIntToBytes32(index), value)
}

func (t *Tree) get(index *big.Int) (*accumulator.Proof, error) {
	if err := t.validateIndex(index); err != nil {
		return nil, err
	}

	enables := big.NewInt(0)
	siblings := make([]accumulator.Bytes32, 0, t.depth)
	current := t.root

	for i := int(t.depth) - 1; i >= 0; i-- {
		if current.IsZero() {
			break
		}
		node, err := t.getNode(current)
		if err != nil {
			return nil, err
		}
		if node.IsEmpty() {
			break
		}

		bit := accumulator.GetBit(index, uint(i))
		var sibling accumulator.Bytes32
		if bit == 0 {
			sibling = node.Right
			current = node.Left
		} else {
			sibling = node.Left
			current = node.Right
		}
		if !sibling.IsZero() {
			siblings = append([]accumulator.Bytes32{sibling}, siblings...)
			enables = accumulator.SetBit(enables, uint(i), 1)
		}
	}

	if !current.IsZero() {
		leafData, err := t.getLeaf(current)
		if err != nil {
			return nil, err
		}
		if leafData != nil && leafData.Index.Cmp(index) == 0 {
			leafHash, err := t.computeLeafHash(leafData.Index, leafData.Value)
			if err != nil {
				return nil, err
			}
			return &accumulator.Proof{Exists: true, Leaf: leafHash, Value: leafData.Value, Index: index, Enables: enables, Siblings: siblings}, nil
		}
	}

	return &accumulator.Proof{Exists: false, Index: index, Enables: enables, Siblings: siblings}, nil
}

func (t *Tree) upsert(index *big.Int, newLeaf accumulator.Bytes32) (*accumulator.UpdateProof, error) {
	if err := t.validateIndex(index); err != nil {
		return nil, err
	}

	oldProof, err := t.get(index)
	if err != nil {
		return nil, err
	}

	leafHash, err := t.computeLeafHash(index, newLeaf)
	if err != nil {
		return nil, err
	}

	if err := t.setLeaf(leafHash, &LeafData{Index: index, Value: newLeaf}); err != nil {
		return nil, err
	}

	current := leafHash
	siblingIndex := 0
	for i := uint(0); i < uint(t.depth); i++ {
		bit := accumulator.GetBit(index, i)

		var sibling accumulator.Bytes32
		if accumulator.GetBit(oldProof.Enables, i) == 1 && siblingIndex < len(oldProof.Siblings) {
			sibling = oldProof.Siblings[siblingIndex]
			siblingIndex++
		}

		node := &accumulator.Node{}
		if bit == 0 {
			node.Left, node.Right = current, sibling
		} else {
			node.Left, node.Right = sibling, current
		}

		parent, err := t.h.Hashv(node.Left, node.Right)
		if err != nil {
			return nil, err
		}
		if !node.Left.IsZero() || !node.Right.IsZero() {
			if err := t.setNode(parent, node); err != nil {
				return nil, err
			}
		}
		current = parent
	}

	t.root = current

	if oldProof.Exists && !oldProof.Leaf.IsZero() && oldProof.Leaf != leafHash {
		if err := t.deleteLeaf(oldProof.Leaf); err != nil {
			return nil, err
		}
	}

	return &accumulator.UpdateProof{
		Exists: oldProof.Exists, Leaf: oldProof.Leaf, Value: oldProof.Value,
		Index: oldProof.Index, Enables: oldProof.Enables, Siblings: oldProof.Siblings,
		NewLeaf: leafHash,
	}, nil
}

// InvalidTreeDepthError reports a depth outside (0, MaxDepth].
type InvalidTreeDepthError struct {
	Depth uint16
}

func (e *InvalidTreeDepthError) Error() string {
	return "reference: invalid tree depth (must be between 1 and 256)"
}
