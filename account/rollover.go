package account

import "github.com/lumenstate/accumulator"

// DefaultRolloverThresholdPercent is the fraction (of a tree's total leaf
// capacity) of filled leaves past which a tree is considered due for
// rollover.
const DefaultRolloverThresholdPercent = 95

// RolloverThreshold returns the leaf-index count at which a tree of the
// given height should roll over to a successor account, computed as
// thresholdPercent percent of the tree's total capacity (2^height).
func RolloverThreshold(height uint16, thresholdPercent uint64) uint64 {
	capacity := uint64(1) << height
	return capacity * thresholdPercent / 100
}

// NeedsRollover reports whether a tree currently at nextIndex leaves
// filled, out of 2^height total, has crossed thresholdPercent.
func NeedsRollover(height uint16, nextIndex uint64, thresholdPercent uint64) bool {
	return nextIndex >= RolloverThreshold(height, thresholdPercent)
}

// Rollover describes the transition from one tree account to its
// successor. Writes to Old stop being accepted once Old.NextIndex
// crosses its threshold; reads against Old remain valid indefinitely, so
// a rollover never invalidates previously issued proofs.
type Rollover struct {
	OldTreeID accumulator.Bytes32
	NewTreeID accumulator.Bytes32
	// RolledOverAt is the sequence number of Old at the moment rollover
	// was triggered, recorded so a host can tell which changelog entries
	// of Old still belong to the pre-rollover lineage.
	RolledOverAt uint64
}

// CheckRollover returns a non-nil *RolloverError if height/nextIndex has
// crossed thresholdPercent, naming the exact threshold that was crossed
// so a host can decide whether to reject the write or redirect it to a
// successor tree.
func CheckRollover(height uint16, nextIndex uint64, thresholdPercent uint64) error {
	threshold := RolloverThreshold(height, thresholdPercent)
	if nextIndex >= threshold {
		return &RolloverError{NextIndex: nextIndex, Threshold: threshold}
	}
	return nil
}
