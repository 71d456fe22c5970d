package concurrent

import (
	"math/bits"

	"github.com/lumenstate/accumulator"
)

// ChangelogEntry records the recomputed root-ward path of one append or
// update, so a proof prepared against an older root can be patched forward
// instead of re-fetched from the host. Path[j] is the node value on this
// entry's own path at level j, the same value a sibling proof for another
// leaf needs at the level where the two paths diverge.
type ChangelogEntry struct {
	Root  accumulator.Bytes32
	Path  []accumulator.Bytes32
	Index uint64
}

// UpdateProof patches proof in place if leafIndex's path was affected by
// this entry's own update at entry.Index. The affected level is the
// highest bit at which leafIndex and entry.Index differ: above that bit
// the two paths share an ancestor, and entry.Path at that level is the
// new sibling leafIndex's proof must use.
//
// Returns ErrLeafAlreadyUpdated when leafIndex == entry.Index: the same
// leaf was updated again after the proof was prepared, and patching
// cannot recover a valid proof.
func (e *ChangelogEntry) UpdateProof(leafIndex uint64, proof []accumulator.Bytes32) error {
	if leafIndex == e.Index {
		return accumulator.ErrLeafAlreadyUpdated
	}
	level := bits.Len64(leafIndex^e.Index) - 1
	if level < 0 || level >= len(proof) || level >= len(e.Path) {
		return nil
	}
	proof[level] = e.Path[level]
	return nil
}

// merklePaths accumulates one path per appended leaf during AppendBatch.
// A leaf's own loop only computes nodes up to its fillup level; every node
// above that is shared with a later leaf in the batch, so set() hands each
// computed node to every pending path whose next unfilled level matches.
type merklePaths struct {
	height int
	paths  [][]accumulator.Bytes32
}

func newMerklePaths(height, leaves int) *merklePaths {
	return &merklePaths{height: height, paths: make([][]accumulator.Bytes32, 0, leaves)}
}

func (m *merklePaths) addLeaf() {
	m.paths = append(m.paths, make([]accumulator.Bytes32, 0, m.height+1))
}

func (m *merklePaths) set(level int, node accumulator.Bytes32) {
	for i := range m.paths {
		if len(m.paths[i]) == level {
			m.paths[i] = append(m.paths[i], node)
		}
	}
}

// setRoot completes every path that has all height levels filled. Slot
// height holds the root the tree had right after that leaf's append.
func (m *merklePaths) setRoot(root accumulator.Bytes32) {
	m.set(m.height, root)
}

func (m *merklePaths) toChangelogEntries(firstLeafIndex uint64) []ChangelogEntry {
	entries := make([]ChangelogEntry, len(m.paths))
	for i, p := range m.paths {
		entries[i] = ChangelogEntry{
			Root:  p[m.height],
			Path:  p[:m.height],
			Index: firstLeafIndex + uint64(i),
		}
	}
	return entries
}

// UpdateSubtrees refreshes filledSubtrees the same way UpdateProof
// refreshes a caller's proof, using the append frontier (rightmostIndex)
// as the comparison index instead of an external leaf.
func (e *ChangelogEntry) UpdateSubtrees(rightmostIndex uint64, filledSubtrees []accumulator.Bytes32) {
	if rightmostIndex == e.Index {
		return
	}
	level := bits.Len64(rightmostIndex^e.Index) - 1
	if level < 0 || level >= len(filledSubtrees) || level >= len(e.Path) {
		return
	}
	filledSubtrees[level] = e.Path[level]
}
