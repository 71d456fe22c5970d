package reference

import (
	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/hasher"
)

// DenseTree is the golden model for the append-ordered tree variants:
// a bounded-height tree holding every node of every level explicitly,
// with leaves stored raw and absent subtrees standing in as the
// hasher's precomputed empty-subtree roots. The concurrent and batched
// trees must agree with it bit-for-bit after any operation sequence,
// which is what makes it the oracle their property tests replay
// against. Everything is recomputed from the leaves on each mutation;
// an oracle optimizes for being obviously correct, not for speed.
type DenseTree struct {
	h           hasher.Hasher
	height      uint16
	canopyDepth uint16
	leaves      []accumulator.Bytes32
	layers      [][]accumulator.Bytes32 // layers[0] = leaves, layers[height][0] = root
}

// NewDenseTree builds an empty DenseTree of the given height. Proofs
// returned by ProofOfLeaf with withCanopy=true omit the top canopyDepth
// sibling levels, matching what clients submit to a canopied tree.
func NewDenseTree(h hasher.Hasher, height, canopyDepth uint16) (*DenseTree, error) {
	if h == nil {
		return nil, accumulator.ErrNilHasher
	}
	if height == 0 || int(height) > hasher.Depth {
		return nil, &InvalidTreeDepthError{Depth: height}
	}
	if canopyDepth > height {
		return nil, &InvalidTreeDepthError{Depth: canopyDepth}
	}
	t := &DenseTree{h: h, height: height, canopyDepth: canopyDepth}
	if err := t.recompute(); err != nil {
		return nil, err
	}
	return t, nil
}

// Root returns the current root.
func (t *DenseTree) Root() accumulator.Bytes32 {
	return t.layers[t.height][0]
}

// NextIndex returns the number of appended leaves.
func (t *DenseTree) NextIndex() uint64 {
	return uint64(len(t.leaves))
}

// Leaf returns the raw leaf at index.
func (t *DenseTree) Leaf(index uint64) (accumulator.Bytes32, error) {
	if index >= uint64(len(t.leaves)) {
		return accumulator.Bytes32{}, accumulator.ErrInvalidIndex
	}
	return t.leaves[index], nil
}

// LeafIndex returns the position of the first leaf equal to hash.
func (t *DenseTree) LeafIndex(hash accumulator.Bytes32) (uint64, bool) {
	for i, leaf := range t.leaves {
		if leaf == hash {
			return uint64(i), true
		}
	}
	return 0, false
}

// Append inserts leaf at the next free index.
func (t *DenseTree) Append(leaf accumulator.Bytes32) error {
	if uint64(len(t.leaves)) >= uint64(1)<<t.height {
		return accumulator.ErrTreeFull
	}
	t.leaves = append(t.leaves, leaf)
	return t.recompute()
}

// Update replaces the leaf at index, which must already hold one.
func (t *DenseTree) Update(index uint64, leaf accumulator.Bytes32) error {
	if index >= uint64(len(t.leaves)) {
		return accumulator.ErrCannotUpdateEmpty
	}
	t.leaves[index] = leaf
	return t.recompute()
}

// node returns the stored node at (level, i), or the empty-subtree root
// for positions past the populated frontier.
func (t *DenseTree) node(level uint16, i uint64) accumulator.Bytes32 {
	layer := t.layers[level]
	if i < uint64(len(layer)) {
		return layer[i]
	}
	return t.h.ZeroBytes()[level]
}

// ProofOfLeaf returns the sibling path for index, deepest level first.
// With withCanopy=true the top canopyDepth siblings are omitted, the
// form a client submits against a canopied tree.
func (t *DenseTree) ProofOfLeaf(index uint64, withCanopy bool) ([]accumulator.Bytes32, error) {
	if index >= uint64(1)<<t.height {
		return nil, accumulator.ErrInvalidIndex
	}
	levels := t.height
	if withCanopy {
		levels -= t.canopyDepth
	}
	proof := make([]accumulator.Bytes32, levels)
	for level := uint16(0); level < levels; level++ {
		proof[level] = t.node(level, (index>>level)^1)
	}
	return proof, nil
}

func (t *DenseTree) recompute() error {
	t.layers = make([][]accumulator.Bytes32, t.height+1)
	t.layers[0] = t.leaves

	for level := uint16(0); level < t.height; level++ {
		below := t.layers[level]
		width := (len(below) + 1) / 2
		above := make([]accumulator.Bytes32, width)
		for i := 0; i < width; i++ {
			left := t.node(level, uint64(2*i))
			right := t.node(level, uint64(2*i)+1)
			parent, err := t.h.Hashv(left, right)
			if err != nil {
				return err
			}
			above[i] = parent
		}
		t.layers[level+1] = above
	}

	if len(t.layers[t.height]) == 0 {
		t.layers[t.height] = []accumulator.Bytes32{t.h.ZeroBytes()[t.height]}
	}
	return nil
}
