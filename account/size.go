package account

import (
	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/batched"
)

// bytes32Size is the wire size of one accumulator.Bytes32.
const bytes32Size = 32

// changelogEntrySize is the wire size of one concurrent tree changelog
// entry: a leaf index (8 bytes) plus one Bytes32 per tree level.
func changelogEntrySize(height uint16) int {
	return 8 + int(height)*bytes32Size
}

// canopyNodeCount mirrors concurrent.canopySize: a canopy of depth d
// caches every node from level 1 down to level d, 2^(d+1)-2 nodes total.
func canopyNodeCount(canopyDepth uint16) int {
	if canopyDepth == 0 {
		return 0
	}
	return (1 << (canopyDepth + 1)) - 2
}

// ExpectedAccountSize computes the exact byte size a concurrent-tree
// durable account must have, as a pure function of its construction
// parameters: TreeMeta header, a filled-subtrees vector of height
// entries, a changelog ring of changelogSize entries, a root history
// ring of rootsSize entries, and a canopy cache.
//
// An account's length is always computed from its construction arguments
// before allocation, never discovered from the buffer itself.
func ExpectedAccountSize(height uint16, changelogSize, rootsSize int, canopyDepth uint16) int {
	size := treeMetaSize
	size += int(height) * bytes32Size // filledSubtrees
	size += changelogSize * changelogEntrySize(height)
	size += rootsSize * bytes32Size
	size += canopyNodeCount(canopyDepth) * bytes32Size
	return size
}

// batchDescriptorSize is the wire size of one Batch descriptor: state
// (1) + batch size (4) + zkp batch size (4) + inserted elements (4) +
// inserted zkps (4) + sequence number (8) + root index (4) + bloom
// zeroed flag (1).
const batchDescriptorSize = 1 + 4 + 4 + 4 + 4 + 8 + 4 + 1

// queueRegionsSize is the byte size of the typed regions behind a
// QueueMeta header: per batch, one descriptor, one value vector (output
// queues only), one bloom filter bit-array, and one hashchain store of
// batchSize/zkpBatchSize slots.
func queueRegionsSize(q QueueMeta) int {
	bloomBytes := (int(q.BloomCapacity) + 7) / 8
	perBatch := batchDescriptorSize + bloomBytes
	if q.ZkpBatchSize > 0 {
		perBatch += int(q.BatchSize/q.ZkpBatchSize) * bytes32Size
	}
	if q.Kind == uint8(batched.KindOutput) { // output queues store the raw leaves
		perBatch += int(q.BatchSize) * bytes32Size
	}
	return int(q.NumBatches) * perBatch
}

// ExpectedQueueAccountSize computes the exact byte size a standalone
// queue account must have: a QueueMeta header followed by its regions.
func ExpectedQueueAccountSize(q QueueMeta) int {
	return queueMetaSize + queueRegionsSize(q)
}

// ExpectedBatchedAccountSize computes the exact byte size a batched
// tree account must have: the TreeMeta + QueueMeta double header, the
// cyclic root history, then the input queue's regions.
func ExpectedBatchedAccountSize(m TreeMeta, q QueueMeta) int {
	return treeMetaSize + queueMetaSize + int(m.RootsCapacity)*bytes32Size + queueRegionsSize(q)
}

// hashSetHeaderSize is the fixed prefix of a nullifier hash-set
// account: discriminator (8) + sequence threshold (8) + capacity
// indices (4) + capacity values (4).
const hashSetHeaderSize = 8 + 8 + 4 + 4

// hashSetCellSize is the wire size of one value cell: value + sequence
// number.
const hashSetCellSize = bytes32Size + 8

// ExpectedHashSetAccountSize computes the exact byte size a nullifier
// hash-set account must have: the fixed header, one int64 slot per
// probe-table entry, and one Cell per value slot.
func ExpectedHashSetAccountSize(capacityIndices, capacityValues int) int {
	return hashSetHeaderSize + capacityIndices*8 + capacityValues*hashSetCellSize
}

// ValidateAccountSize reports an *accumulator.InvalidAccountSizeError if
// len(buf) does not equal want.
func ValidateAccountSize(buf []byte, want int) error {
	if len(buf) != want {
		return &accumulator.InvalidAccountSizeError{Expected: want, Actual: len(buf)}
	}
	return nil
}
