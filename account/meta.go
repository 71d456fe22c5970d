package account

import (
	"encoding/binary"

	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/boundedvec"
)

// Both headers are plain data with fixed marshalled sizes, so they can
// sit at the front of a durable buffer or inside a ZeroCopySlice region.
var (
	_ boundedvec.Fixed = (*TreeMeta)(nil)
	_ boundedvec.Fixed = (*QueueMeta)(nil)
)

// treeMetaSize is the on-wire size of TreeMeta: 8 (discriminator) + 1
// (tree type) + 2 (height) + 2 (canopy depth) + 4 (changelog capacity)
// + 4 (roots capacity) + 8 (next index) + 8 (sequence number) + 4
// (current changelog index) + 4 (current root index) + 32 (rightmost
// leaf) + 8 (rolled-over-at) + 32 (owner) = 117 bytes.
const treeMetaSize = 8 + 1 + 2 + 2 + 4 + 4 + 8 + 8 + 4 + 4 + 32 + 8 + 32

// TreeMeta is the fixed-size header every concurrent or batched tree
// account begins with: the immutable-after-init geometry plus every
// mutable counter a reload needs to resume the tree without replaying
// its history. It implements boundedvec.Fixed so it can sit at the
// front of a durable account buffer the same way a ZeroCopySlice
// element does.
type TreeMeta struct {
	Discriminator     Discriminator
	TreeType          accumulator.TreeType
	Height            uint16
	CanopyDepth       uint16
	ChangelogCapacity uint32
	RootsCapacity     uint32

	NextIndex             uint64
	SequenceNumber        uint64
	CurrentChangelogIndex uint32
	CurrentRootIndex      uint32
	RightmostLeaf         accumulator.Bytes32

	// RolledOverAt is the sequence number at which the tree was frozen,
	// or 0 while it is still live. A frozen tree accepts no further
	// appends or nullifies; its root history stays queryable.
	RolledOverAt uint64

	Owner accumulator.Bytes32
}

// Size returns treeMetaSize, satisfying boundedvec.Fixed.
func (TreeMeta) Size() int { return treeMetaSize }

// MarshalFixed writes m to dst, which must be at least Size() bytes.
func (m TreeMeta) MarshalFixed(dst []byte) {
	copy(dst[0:8], m.Discriminator[:])
	dst[8] = byte(m.TreeType)
	binary.BigEndian.PutUint16(dst[9:11], m.Height)
	binary.BigEndian.PutUint16(dst[11:13], m.CanopyDepth)
	binary.BigEndian.PutUint32(dst[13:17], m.ChangelogCapacity)
	binary.BigEndian.PutUint32(dst[17:21], m.RootsCapacity)
	binary.BigEndian.PutUint64(dst[21:29], m.NextIndex)
	binary.BigEndian.PutUint64(dst[29:37], m.SequenceNumber)
	binary.BigEndian.PutUint32(dst[37:41], m.CurrentChangelogIndex)
	binary.BigEndian.PutUint32(dst[41:45], m.CurrentRootIndex)
	copy(dst[45:77], m.RightmostLeaf[:])
	binary.BigEndian.PutUint64(dst[77:85], m.RolledOverAt)
	copy(dst[85:117], m.Owner[:])
}

// UnmarshalFixed reads m from src, which must be at least Size() bytes.
func (m *TreeMeta) UnmarshalFixed(src []byte) error {
	if len(src) < treeMetaSize {
		return &accumulator.BufferSizeError{Field: "TreeMeta", Expected: treeMetaSize, Actual: len(src)}
	}
	copy(m.Discriminator[:], src[0:8])
	m.TreeType = accumulator.TreeType(src[8])
	m.Height = binary.BigEndian.Uint16(src[9:11])
	m.CanopyDepth = binary.BigEndian.Uint16(src[11:13])
	m.ChangelogCapacity = binary.BigEndian.Uint32(src[13:17])
	m.RootsCapacity = binary.BigEndian.Uint32(src[17:21])
	m.NextIndex = binary.BigEndian.Uint64(src[21:29])
	m.SequenceNumber = binary.BigEndian.Uint64(src[29:37])
	m.CurrentChangelogIndex = binary.BigEndian.Uint32(src[37:41])
	m.CurrentRootIndex = binary.BigEndian.Uint32(src[41:45])
	copy(m.RightmostLeaf[:], src[45:77])
	m.RolledOverAt = binary.BigEndian.Uint64(src[77:85])
	copy(m.Owner[:], src[85:117])
	return nil
}

// queueMetaSize is the on-wire size of QueueMeta: 8 (discriminator) + 1
// (kind) + 4 (num batches) + 4 (batch size) + 4 (zkp-batch size) + 4
// (current batch index) + 4 (pending batch index) + 8 (bloom capacity)
// + 4 (num bloom iterations) + 32 (associated tree) = 73 bytes.
const queueMetaSize = 8 + 1 + 4 + 4 + 4 + 4 + 4 + 8 + 4 + 32

// QueueMeta is the fixed-size header every batched-tree input/output
// queue account begins with.
type QueueMeta struct {
	Discriminator     Discriminator
	Kind              uint8
	NumBatches        uint32
	BatchSize         uint32
	ZkpBatchSize      uint32
	CurrentBatchIndex uint32
	PendingBatchIndex uint32
	BloomCapacity     uint64
	NumBloomIters     uint32
	AssociatedTree    accumulator.Bytes32
}

// Size returns queueMetaSize, satisfying boundedvec.Fixed.
func (QueueMeta) Size() int { return queueMetaSize }

// MarshalFixed writes q to dst, which must be at least Size() bytes.
func (q QueueMeta) MarshalFixed(dst []byte) {
	copy(dst[0:8], q.Discriminator[:])
	dst[8] = q.Kind
	binary.BigEndian.PutUint32(dst[9:13], q.NumBatches)
	binary.BigEndian.PutUint32(dst[13:17], q.BatchSize)
	binary.BigEndian.PutUint32(dst[17:21], q.ZkpBatchSize)
	binary.BigEndian.PutUint32(dst[21:25], q.CurrentBatchIndex)
	binary.BigEndian.PutUint32(dst[25:29], q.PendingBatchIndex)
	binary.BigEndian.PutUint64(dst[29:37], q.BloomCapacity)
	binary.BigEndian.PutUint32(dst[37:41], q.NumBloomIters)
	copy(dst[41:73], q.AssociatedTree[:])
}

// UnmarshalFixed reads q from src, which must be at least Size() bytes.
func (q *QueueMeta) UnmarshalFixed(src []byte) error {
	if len(src) < queueMetaSize {
		return &accumulator.BufferSizeError{Field: "QueueMeta", Expected: queueMetaSize, Actual: len(src)}
	}
	copy(q.Discriminator[:], src[0:8])
	q.Kind = src[8]
	q.NumBatches = binary.BigEndian.Uint32(src[9:13])
	q.BatchSize = binary.BigEndian.Uint32(src[13:17])
	q.ZkpBatchSize = binary.BigEndian.Uint32(src[17:21])
	q.CurrentBatchIndex = binary.BigEndian.Uint32(src[21:25])
	q.PendingBatchIndex = binary.BigEndian.Uint32(src[25:29])
	q.BloomCapacity = binary.BigEndian.Uint64(src[29:37])
	q.NumBloomIters = binary.BigEndian.Uint32(src[37:41])
	copy(q.AssociatedTree[:], src[41:73])
	return nil
}

// AssertAssociated validates that meta's AssociatedTree matches treeID,
// the check a host must run before accepting any instruction that pairs
// a queue account with a tree account.
func (q QueueMeta) AssertAssociated(treeID accumulator.Bytes32) error {
	if q.AssociatedTree != treeID {
		return accumulator.ErrMerkleTreeAndQueueNotAssociated
	}
	return nil
}
