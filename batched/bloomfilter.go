// Package batched implements the batched Merkle tree: queues of staged
// leaves and nullifiers are hash-chained and proved off-chain in
// fixed-size zkp batches, each proof gating a single root transition.
// The bloom filter and the quadratic-probed nullifier cache are the two
// short-term membership structures a batch needs between "filled" and
// "installed".
package batched

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bitset"

	"github.com/lumenstate/accumulator"
)

// BloomFilter is the per-batch non-inclusion cache: cheap enough to check
// on every insert, valid only until the batch it belongs to is installed
// and its grace period elapses.
type BloomFilter struct {
	bits     *bitset.BitSet
	capacity uint
	numIters uint
	zeroed   bool
}

// NewBloomFilter builds a bloom filter of capacity bits using numIters
// independent probe positions per inserted value.
func NewBloomFilter(capacity, numIters uint) *BloomFilter {
	if capacity == 0 {
		capacity = 1
	}
	if numIters == 0 {
		numIters = 1
	}
	return &BloomFilter{bits: bitset.New(capacity), capacity: capacity, numIters: numIters}
}

// positions derives numIters probe bit-positions from value via Kirsch-
// Mitzenmacher double hashing: h1 and h2 come from the low and high halves
// of value (bytes 16..32 and 0..16, each folded to 64 bits), and position
// i is (h1 + i*h2) mod capacity.
func (bf *BloomFilter) positions(value accumulator.Bytes32) []uint {
	h1 := binary.BigEndian.Uint64(value[16:24]) ^ binary.BigEndian.Uint64(value[24:32])
	h2 := binary.BigEndian.Uint64(value[0:8]) ^ binary.BigEndian.Uint64(value[8:16])
	if h2 == 0 {
		h2 = 1
	}
	positions := make([]uint, bf.numIters)
	for i := uint(0); i < bf.numIters; i++ {
		positions[i] = uint((h1 + uint64(i)*h2) % uint64(bf.capacity))
	}
	return positions
}

// Contains reports whether value's bits are all set. A zeroed filter
// always reports false: its evidence has expired.
func (bf *BloomFilter) Contains(value accumulator.Bytes32) bool {
	if bf.zeroed {
		return false
	}
	for _, pos := range bf.positions(value) {
		if !bf.bits.Test(pos) {
			return false
		}
	}
	return true
}

// Insert sets value's bits.
func (bf *BloomFilter) Insert(value accumulator.Bytes32) {
	for _, pos := range bf.positions(value) {
		bf.bits.Set(pos)
	}
}

// Zero clears every bit and marks the filter zeroed, so Contains never
// reports a false positive for evidence that has aged out.
func (bf *BloomFilter) Zero() {
	bf.bits.ClearAll()
	bf.zeroed = true
}

// Zeroed reports whether Zero has been called since the last reuse.
func (bf *BloomFilter) Zeroed() bool { return bf.zeroed }

// reset clears the zeroed flag and the bits, preparing the filter for a
// fresh batch occupying the same ring slot.
func (bf *BloomFilter) reset() {
	bf.bits.ClearAll()
	bf.zeroed = false
}
