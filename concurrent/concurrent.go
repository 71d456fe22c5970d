// Package concurrent implements the append-optimized Merkle tree every
// compressed-state account is built on: many callers can prepare proofs
// against slightly stale roots and have them patched forward from the
// changelog, so updates to different leaves never invalidate each other.
// Changelog-patched proofs, a canopy of cached upper nodes, and a
// ring-buffered root history are what make that reconciliation cheap
// enough to run on every call.
package concurrent

import (
	"sync"

	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/boundedvec"
	"github.com/lumenstate/accumulator/hasher"
)

// Tree is a concurrent Merkle tree of fixed height, with a bounded
// changelog for proof patching, a bounded root history ring, and an
// optional canopy of cached upper-level nodes.
type Tree struct {
	h hasher.Hasher

	height      uint16
	canopyDepth uint16

	filledSubtrees *boundedvec.BoundedVec[accumulator.Bytes32]
	changelog      *boundedvec.CyclicBoundedVec[ChangelogEntry]
	roots          *boundedvec.CyclicBoundedVec[accumulator.Bytes32]
	canopy         *boundedvec.BoundedVec[accumulator.Bytes32]

	nextIndex      uint64
	sequenceNumber uint64
	rightmostLeaf  accumulator.Bytes32

	mu sync.RWMutex
}

func canopySize(canopyDepth uint16) int {
	if canopyDepth == 0 {
		return 0
	}
	return (1 << (canopyDepth + 1)) - 2
}

// New builds and initializes a Tree of the given height, changelog
// capacity, root history capacity, and canopy depth.
func New(h hasher.Hasher, height uint16, changelogSize, rootsSize int, canopyDepth uint16) (*Tree, error) {
	if h == nil {
		return nil, accumulator.ErrNilHasher
	}
	if height == 0 || int(height) > hasher.Depth {
		return nil, &InvalidHeightError{Height: height, MaxHeight: hasher.Depth}
	}
	if canopyDepth > height {
		return nil, &InvalidHeightError{Height: canopyDepth, MaxHeight: height}
	}

	t := &Tree{
		h:              h,
		height:         height,
		canopyDepth:    canopyDepth,
		filledSubtrees: boundedvec.NewBoundedVec[accumulator.Bytes32](int(height)),
		changelog:      boundedvec.NewCyclicBoundedVec[ChangelogEntry](changelogSize),
		roots:          boundedvec.NewCyclicBoundedVec[accumulator.Bytes32](rootsSize),
		canopy:         boundedvec.NewBoundedVec[accumulator.Bytes32](canopySize(canopyDepth)),
	}
	if err := t.init(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) init() error {
	zero := t.h.ZeroBytes()

	root := zero[t.height]
	t.roots.Push(root)

	path := make([]accumulator.Bytes32, t.height)
	for i := range path {
		path[i] = zero[i]
	}
	t.changelog.Push(ChangelogEntry{Root: root, Path: path, Index: 0})

	for i := 0; i < int(t.height); i++ {
		if err := t.filledSubtrees.Push(zero[i]); err != nil {
			return err
		}
	}

	for levelI := 0; levelI < int(t.canopyDepth); levelI++ {
		levelNodes := 1 << (levelI + 1)
		node := zero[int(t.height)-levelI-1]
		for i := 0; i < levelNodes; i++ {
			if err := t.canopy.Push(node); err != nil {
				return err
			}
		}
	}

	return nil
}

// Height returns the tree's fixed height.
func (t *Tree) Height() uint16 { return t.height }

// CanopyDepth returns the number of upper levels cached in the canopy.
func (t *Tree) CanopyDepth() uint16 { return t.canopyDepth }

// Root returns the current root.
func (t *Tree) Root() accumulator.Bytes32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	root, _ := t.roots.Last()
	return root
}

// RootIndex returns the absolute index of the current root within the
// root history ring.
func (t *Tree) RootIndex() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.roots.LastIndex()
}

// ChangelogIndex returns the absolute index of the most recent changelog
// entry.
func (t *Tree) ChangelogIndex() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.changelog.LastIndex()
}

// NextIndex returns the next free leaf position for Append.
func (t *Tree) NextIndex() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nextIndex
}

// SequenceNumber returns the number of root transitions since init.
func (t *Tree) SequenceNumber() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sequenceNumber
}

// RightmostLeaf returns the most recently appended or updated-at-frontier
// leaf value.
func (t *Tree) RightmostLeaf() accumulator.Bytes32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rightmostLeaf
}

func (t *Tree) currentIndex() uint64 {
	if t.nextIndex > 0 {
		return t.nextIndex - 1
	}
	return 0
}

// Append inserts a single leaf at the append frontier.
func (t *Tree) Append(leaf accumulator.Bytes32) (*ChangelogEntry, error) {
	entries, err := t.AppendBatch([]accumulator.Bytes32{leaf})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEmptyChangelogEntries
	}
	return &entries[0], nil
}

// AppendBatch inserts leaves starting at the append frontier, filling up
// each leaf's path only as far as needed before the next leaf in the
// batch starts sharing ancestors with it (the "fillup index" shortcut:
// next_index's trailing run of one-bits tells us how many levels the next
// leaf will immediately share).
func (t *Tree) AppendBatch(leaves []accumulator.Bytes32) ([]ChangelogEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(leaves) == 0 {
		return nil, nil
	}
	if t.nextIndex+uint64(len(leaves))-1 >= uint64(1)<<t.height {
		return nil, accumulator.ErrTreeFull
	}

	firstLeafIndex := t.nextIndex
	paths := newMerklePaths(int(t.height), len(leaves))
	filled := t.filledSubtrees.All()

	for leafI, leaf := range leaves {
		currentIndex := t.nextIndex
		currentNode := leaf

		paths.addLeaf()
		paths.set(0, currentNode)

		// Levels above the fillup index are shared with the next leaf in
		// the batch and get filled in by its loop instead.
		fillupIndex := int(t.height)
		if leafI < len(leaves)-1 {
			fillupIndex = trailingOnes(t.nextIndex) + 1
		}

		for i := 0; i < fillupIndex; i++ {
			isLeft := currentIndex%2 == 0

			var err error
			if isLeft {
				emptyNode := t.h.ZeroBytes()[i]
				filled[i] = currentNode
				currentNode, err = t.h.Hashv(currentNode, emptyNode)
			} else {
				currentNode, err = t.h.Hashv(filled[i], currentNode)
			}
			if err != nil {
				return nil, err
			}

			if i < int(t.height)-1 {
				paths.set(i+1, currentNode)
			}
			currentIndex /= 2
		}

		paths.setRoot(currentNode)

		t.roots.Push(currentNode)
		t.sequenceNumber++
		t.nextIndex++
		t.rightmostLeaf = leaf
	}

	entries := paths.toChangelogEntries(firstLeafIndex)
	for _, entry := range entries {
		t.changelog.Push(entry)
	}

	if t.canopyDepth > 0 {
		t.updateCanopy(entries)
	}

	return entries, nil
}

// trailingOnes counts the number of consecutive one bits starting at bit 0.
func trailingOnes(x uint64) int {
	count := 0
	for x&1 == 1 {
		count++
		x >>= 1
	}
	return count
}

func (t *Tree) updateCanopy(entries []ChangelogEntry) {
	for _, entry := range entries {
		pathLen := len(entry.Path)
		for i := 0; i < int(t.canopyDepth); i++ {
			pathIndex := pathLen - 1 - i
			if pathIndex < 0 {
				break
			}
			level := int(t.height) - i - 1
			index := (uint64(1) << uint(int(t.height)-level)) + (entry.Index >> uint(level))
			t.canopy.Set(int(index)-2, entry.Path[pathIndex])
		}
	}
}

// updateProofFromCanopy extends proof (prepared to height-canopyDepth
// siblings) with the cached canopy siblings up to the root.
func (t *Tree) updateProofFromCanopy(leafIndex uint64, proof []accumulator.Bytes32) ([]accumulator.Bytes32, error) {
	nodeIndex := (uint64(1) << t.height) + leafIndex
	nodeIndex >>= uint(t.height) - uint(t.canopyDepth)

	for nodeIndex > 1 {
		canopyIndex := int(nodeIndex) - 2
		if canopyIndex%2 == 0 {
			canopyIndex++
		} else {
			canopyIndex--
		}
		sibling, err := t.canopy.Get(canopyIndex)
		if err != nil {
			return nil, err
		}
		proof = append(proof, sibling)
		nodeIndex >>= 1
	}

	return proof, nil
}

// updateProofFromChangelog patches proof against every changelog entry
// recorded since changelogIndex, up to and including the current one.
func (t *Tree) updateProofFromChangelog(changelogIndex int, leafIndex uint64, proof []accumulator.Bytes32) error {
	length := t.changelog.Len()
	if length == 0 {
		return nil
	}

	target := (t.changelog.LastIndex() + 1) % length
	i := (changelogIndex + 1) % length
	for i != target {
		entry, err := t.changelog.Get(i)
		if err != nil {
			return err
		}
		if err := entry.UpdateProof(leafIndex, proof); err != nil {
			return err
		}
		i = (i + 1) % length
	}

	return nil
}

func (t *Tree) validateProof(leaf accumulator.Bytes32, leafIndex uint64, proof []accumulator.Bytes32) error {
	expectedRoot, err := t.roots.Last()
	if err != nil {
		return err
	}
	computed, err := computeRoot(t.h, leaf, leafIndex, proof)
	if err != nil {
		return err
	}
	if computed != expectedRoot {
		return &accumulator.InvalidProofError{Expected: expectedRoot, Computed: computed}
	}
	return nil
}

func (t *Tree) updateLeafInTree(newLeaf accumulator.Bytes32, leafIndex uint64, proof []accumulator.Bytes32) (ChangelogEntry, error) {
	node := newLeaf
	path := make([]accumulator.Bytes32, t.height)

	for j, sibling := range proof {
		path[j] = node
		var err error
		node, err = computeParentNode(t.h, node, sibling, leafIndex, uint(j))
		if err != nil {
			return ChangelogEntry{}, err
		}
	}

	entry := ChangelogEntry{Root: node, Path: path, Index: leafIndex}
	t.changelog.Push(entry)
	t.roots.Push(node)
	t.sequenceNumber++

	entry.UpdateSubtrees(t.nextIndex-1, t.filledSubtrees.All())

	if t.canopyDepth > 0 {
		t.updateCanopy([]ChangelogEntry{entry})
	}

	if t.nextIndex < (uint64(1)<<t.height) && leafIndex >= t.currentIndex() {
		t.rightmostLeaf = newLeaf
	}

	return entry, nil
}

// Update replaces the leaf at leafIndex. changelogIndex must be the
// changelog position that was current when proof was prepared; Update
// patches proof forward through any intervening changes before
// validating and applying it. oldLeaf is the value proof was built
// against.
func (t *Tree) Update(changelogIndex int, oldLeaf, newLeaf accumulator.Bytes32, leafIndex uint64, proof []accumulator.Bytes32) (*ChangelogEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	expectedProofLen := int(t.height) - int(t.canopyDepth)
	if len(proof) != expectedProofLen {
		return nil, &accumulator.InvalidProofLengthError{Expected: expectedProofLen, Actual: len(proof)}
	}
	if leafIndex >= t.nextIndex {
		return nil, accumulator.ErrCannotUpdateEmpty
	}

	full := make([]accumulator.Bytes32, len(proof), t.height)
	copy(full, proof)

	if t.canopyDepth > 0 {
		var err error
		full, err = t.updateProofFromCanopy(leafIndex, full)
		if err != nil {
			return nil, err
		}
	}

	if err := t.updateProofFromChangelog(changelogIndex, leafIndex, full); err != nil {
		return nil, err
	}

	if err := t.validateProof(oldLeaf, leafIndex, full); err != nil {
		return nil, err
	}

	entry, err := t.updateLeafInTree(newLeaf, leafIndex, full)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
