// Package hashset implements the nullifier store: an open-addressed,
// quadratic-probed set used as a short-term membership cache for spent
// compressed accounts between batch installs: two parallel arrays,
// quadratic probing, sequence-number-gated reclamation. Built in the
// style of this module's other fixed-capacity containers (boundedvec)
// rather than a growable Go map, since the durable layout is a pair of
// fixed-size arrays over host-provided bytes.
package hashset

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/lumenstate/accumulator"
)

// Cell is one live or reclaimable entry in the value table.
type Cell struct {
	Value accumulator.Bytes32
	// SequenceNumber is nil while the cell is live. Once set, the cell
	// becomes eligible for reclamation once the tree's sequence number
	// reaches it.
	SequenceNumber *uint64
}

func (c *Cell) isStale(currentSeq uint64) bool {
	return c.SequenceNumber != nil && currentSeq >= *c.SequenceNumber
}

// Store is the quadratic-probed nullifier set. indices is a prime-sized
// table of pointers into values; values holds the actual cells. Both are
// preallocated and never reallocated, mirroring a durable byte buffer's
// fixed capacity.
type Store struct {
	indices []int64 // -1 means empty
	values  []*Cell // nil means empty

	capacityIndices int
	capacityValues  int
	sequenceThresh  uint64

	nextValueIndex int

	mu sync.Mutex
}

// DefaultLoadFactor matches the reference design's probe-capacity sizing:
// capacity_indices is the next prime at or above capacity_values /
// loadFactor, keeping the probe table sparse enough that quadratic
// probing terminates quickly.
const DefaultLoadFactor = 0.5

// New builds a Store sized for capacityValues live cells, retiring a
// cell only after sequenceThreshold sequence numbers have elapsed since
// it was marked. capacityIndices is derived from capacityValues via
// NextPrime(capacityValues / loadFactor) unless an explicit value > 0 is
// supplied.
func New(capacityValues int, sequenceThreshold uint64, capacityIndices int) (*Store, error) {
	if capacityValues <= 0 {
		return nil, &InvalidCapacityError{Field: "capacity_values", Value: capacityValues}
	}
	if capacityIndices <= 0 {
		capacityIndices = NextPrime(int(float64(capacityValues) / DefaultLoadFactor))
	}
	if capacityIndices < capacityValues {
		return nil, &InvalidCapacityError{Field: "capacity_indices", Value: capacityIndices}
	}

	indices := make([]int64, capacityIndices)
	for i := range indices {
		indices[i] = -1
	}

	return &Store{
		indices:         indices,
		values:          make([]*Cell, capacityValues),
		capacityIndices: capacityIndices,
		capacityValues:  capacityValues,
		sequenceThresh:  sequenceThreshold,
	}, nil
}

// CapacityIndices returns the size of the probe table.
func (s *Store) CapacityIndices() int { return s.capacityIndices }

// CapacityValues returns the size of the value table.
func (s *Store) CapacityValues() int { return s.capacityValues }

// SequenceThreshold returns the configured reclamation delay.
func (s *Store) SequenceThreshold() uint64 { return s.sequenceThresh }

// Len returns the number of value slots ever allocated (including stale
// ones not yet reclaimed).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextValueIndex
}

// probeSlot computes (value + i*i) mod capacityIndices using a fixed-width
// 256-bit integer, avoiding math/big allocation on the hot insert path.
func probeSlot(value accumulator.Bytes32, i, capacityIndices int) int {
	v := new(uint256.Int).SetBytes(value[:])
	step := new(uint256.Int).SetUint64(uint64(i) * uint64(i))
	v.Add(v, step)
	mod := uint256.NewInt(uint64(capacityIndices))
	v.Mod(v, mod)
	return int(v.Uint64())
}

// Insert adds value to the set at currentSeq. It returns ErrElementAlreadyExists
// if value is already live, reuses the earliest stale slot it encounters
// if the probe span finds no empty slot, and fails with ErrHashSetFull if the
// whole probe span has neither an empty nor a reusable stale slot.
func (s *Store) Insert(value accumulator.Bytes32, currentSeq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staleCellIndex := int64(-1)
	emptySlot := -1

	for i := 0; i < s.capacityIndices; i++ {
		slot := probeSlot(value, i, s.capacityIndices)
		cellIndex := s.indices[slot]

		// The first empty slot ends the probe chain: the value cannot live
		// past it, so there is nothing left to conflict with.
		if cellIndex == -1 {
			emptySlot = slot
			break
		}

		cell := s.values[cellIndex]
		if cell.Value == value && !cell.isStale(currentSeq) {
			return accumulator.ErrElementAlreadyExists
		}
		if staleCellIndex == -1 && cell.isStale(currentSeq) {
			staleCellIndex = cellIndex
		}
	}

	if emptySlot != -1 && s.nextValueIndex < s.capacityValues {
		return s.insertAt(emptySlot, value)
	}
	if staleCellIndex != -1 {
		s.values[staleCellIndex] = &Cell{Value: value}
		return nil
	}

	return accumulator.ErrHashSetFull
}

func (s *Store) insertAt(slot int, value accumulator.Bytes32) error {
	if s.nextValueIndex >= s.capacityValues {
		return accumulator.ErrHashSetFull
	}
	cellIndex := s.nextValueIndex
	s.values[cellIndex] = &Cell{Value: value}
	s.indices[slot] = int64(cellIndex)
	s.nextValueIndex++
	return nil
}

// FindElement returns the live cell for value at currentSeq, or nil if
// value is absent or its cell has gone stale.
func (s *Store) FindElement(value accumulator.Bytes32, currentSeq uint64) *Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findElementLocked(value, currentSeq)
}

func (s *Store) findElementLocked(value accumulator.Bytes32, currentSeq uint64) *Cell {
	for i := 0; i < s.capacityIndices; i++ {
		slot := probeSlot(value, i, s.capacityIndices)
		cellIndex := s.indices[slot]
		if cellIndex == -1 {
			return nil
		}
		cell := s.values[cellIndex]
		// A stale same-value cell does not end the search: a live copy may
		// sit further along the probe chain if the stale slot was skipped
		// over at insert time.
		if cell.Value == value && !cell.isStale(currentSeq) {
			return cell
		}
	}
	return nil
}

// Contains reports whether value is live at currentSeq.
func (s *Store) Contains(value accumulator.Bytes32, currentSeq uint64) bool {
	return s.FindElement(value, currentSeq) != nil
}

// MarkWithSequenceNumber schedules value for reclamation once the tree's
// sequence number reaches seq + the store's configured threshold.
func (s *Store) MarkWithSequenceNumber(value accumulator.Bytes32, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell := s.findElementLocked(value, 0)
	if cell == nil {
		return accumulator.ErrElementDoesNotExist
	}
	retireAt := seq + s.sequenceThresh
	cell.SequenceNumber = &retireAt
	return nil
}

// NextPrime returns the smallest prime >= n (n < 2 returns 2).
func NextPrime(n int) int {
	if n < 2 {
		return 2
	}
	for candidate := n; ; candidate++ {
		if isPrime(candidate) {
			return candidate
		}
	}
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for i := 3; i*i <= n; i += 2 {
		if n%i == 0 {
			return false
		}
	}
	return true
}
