package batched

import (
	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/hasher"
)

// Kind distinguishes a BMT's two queue roles. Output queues stage newly
// appended leaves (state trees only); input queues stage nullifiers
// (state trees) or new addresses (address trees).
type Kind uint8

const (
	KindOutput Kind = iota
	KindInput
)

// Queue is one ring of batches plus the per-batch bloom filters and
// hashchain stores the insertion algorithm runs against.
type Queue struct {
	kind Kind
	h    hasher.Hasher

	batches           []*Batch
	blooms            []*BloomFilter
	hashchainStore    [][]accumulator.Bytes32 // [batchIdx][zkpIdx]
	running           []accumulator.Bytes32   // [batchIdx] in-flight hashchain fold
	valueVecs         [][]accumulator.Bytes32 // [batchIdx][elementIdx], output queue only
	currentBatchIndex int
	pendingBatchIndex int

	batchSize    int
	zkpBatchSize int
}

// NewQueue builds a queue of numBatches ring slots, each holding batchSize
// elements subdivided into zkpBatchSize-sized zkp-batches, with a bloom
// filter of bloomCapacity bits using numBloomIters probe positions per
// element.
func NewQueue(kind Kind, h hasher.Hasher, numBatches, batchSize, zkpBatchSize int, bloomCapacity, numBloomIters uint) (*Queue, error) {
	if h == nil {
		return nil, accumulator.ErrNilHasher
	}
	if numBatches <= 0 || batchSize <= 0 || zkpBatchSize <= 0 || batchSize%zkpBatchSize != 0 {
		return nil, &InvalidQueueConfigError{NumBatches: numBatches, BatchSize: batchSize, ZkpBatchSize: zkpBatchSize}
	}

	q := &Queue{
		kind:           kind,
		h:              h,
		batches:        make([]*Batch, numBatches),
		blooms:         make([]*BloomFilter, numBatches),
		hashchainStore: make([][]accumulator.Bytes32, numBatches),
		running:        make([]accumulator.Bytes32, numBatches),
		batchSize:      batchSize,
		zkpBatchSize:   zkpBatchSize,
	}
	if kind == KindOutput {
		q.valueVecs = make([][]accumulator.Bytes32, numBatches)
	}
	for i := 0; i < numBatches; i++ {
		q.batches[i] = newBatch(batchSize, zkpBatchSize)
		q.blooms[i] = NewBloomFilter(bloomCapacity, numBloomIters)
		q.hashchainStore[i] = make([]accumulator.Bytes32, batchSize/zkpBatchSize)
		if kind == KindOutput {
			q.valueVecs[i] = make([]accumulator.Bytes32, 0, batchSize)
		}
	}
	return q, nil
}

// NumBatches returns the ring size.
func (q *Queue) NumBatches() int { return len(q.batches) }

// CurrentBatchIndex returns the ring slot currently accepting inserts.
func (q *Queue) CurrentBatchIndex() int { return q.currentBatchIndex }

// PendingBatchIndex returns the ring slot awaiting its next zkp install.
func (q *Queue) PendingBatchIndex() int { return q.pendingBatchIndex }

// Batch returns the batch descriptor at ring slot i.
func (q *Queue) Batch(i int) (*Batch, error) {
	if i < 0 || i >= len(q.batches) {
		return nil, accumulator.ErrInvalidBatchIndex
	}
	return q.batches[i], nil
}

// ValueAt returns the raw leaf stored at position idx of batch i, for
// output queues only.
func (q *Queue) ValueAt(batchIdx, idx int) (accumulator.Bytes32, error) {
	if q.kind != KindOutput {
		return accumulator.Bytes32{}, accumulator.ErrInvalidQueueType
	}
	if batchIdx < 0 || batchIdx >= len(q.valueVecs) {
		return accumulator.Bytes32{}, accumulator.ErrInvalidBatchIndex
	}
	vec := q.valueVecs[batchIdx]
	if idx < 0 || idx >= len(vec) {
		return accumulator.Bytes32{}, accumulator.ErrInvalidIndex
	}
	return vec[idx], nil
}

// advanceCurrentBatch moves the fill cursor to the next ring slot. The
// slot may still be awaiting installation; inserts against it fail with
// ErrQueueFull until it reaches Inserted and can be reused.
func (q *Queue) advanceCurrentBatch() {
	q.currentBatchIndex = (q.currentBatchIndex + 1) % len(q.batches)
}

// reuseBatch clears an Inserted batch's ring slot for a fresh fill:
// counters, hashchain rows, the in-flight fold, and (for output queues)
// the value vector. The bloom filter is recycled only if its evidence
// was already aged out; otherwise its bits are kept and merged into the
// new batch's, trading a few false positives for never losing a live
// non-inclusion guarantee.
func (q *Queue) reuseBatch(i int) {
	q.batches[i].reset()
	if q.blooms[i].Zeroed() {
		q.blooms[i].reset()
	}
	for j := range q.hashchainStore[i] {
		q.hashchainStore[i][j] = accumulator.Bytes32{}
	}
	q.running[i] = accumulator.Bytes32{}
	if q.valueVecs != nil {
		q.valueVecs[i] = q.valueVecs[i][:0]
	}
}

// InsertIntoCurrentBatch stages one element: bloomValue is what the bloom
// filter and non-inclusion checks operate on; hashchainValue is what the
// running hashchain folds in (for nullifiers these differ from
// bloomValue; for appends they are typically identical).
func (q *Queue) InsertIntoCurrentBatch(bloomValue, hashchainValue accumulator.Bytes32) error {
	active := q.batches[q.currentBatchIndex]
	if active.State == StateInserted {
		q.reuseBatch(q.currentBatchIndex)
	}
	if active.State != StateFill {
		return ErrQueueFull
	}

	activeBloom := q.blooms[q.currentBatchIndex]
	if !activeBloom.Zeroed() && activeBloom.Contains(bloomValue) {
		return accumulator.ErrElementAlreadyExists
	}

	if q.kind == KindInput {
		for i, bloom := range q.blooms {
			if i == q.currentBatchIndex {
				continue
			}
			if !bloom.Zeroed() && bloom.Contains(bloomValue) {
				return accumulator.ErrElementAlreadyExists
			}
		}
	}

	activeBloom.Insert(bloomValue)

	if q.kind == KindOutput {
		q.valueVecs[q.currentBatchIndex] = append(q.valueVecs[q.currentBatchIndex], bloomValue)
	}

	firstInZkpBatch := active.NumInsertedElements%q.zkpBatchSize == 0
	if firstInZkpBatch {
		q.running[q.currentBatchIndex] = hashchainValue
	} else {
		folded, err := q.h.Hashv(q.running[q.currentBatchIndex], hashchainValue)
		if err != nil {
			return err
		}
		q.running[q.currentBatchIndex] = folded
	}

	active.NumInsertedElements++

	if active.NumInsertedElements%q.zkpBatchSize == 0 {
		zkpIndex := active.NumInsertedElements/q.zkpBatchSize - 1
		q.hashchainStore[q.currentBatchIndex][zkpIndex] = q.running[q.currentBatchIndex]
		q.running[q.currentBatchIndex] = accumulator.Bytes32{}
	}

	if active.NumInsertedElements == active.BatchSize {
		active.State = StateReadyForZkp
		q.advanceCurrentBatch()
	}
	return nil
}
