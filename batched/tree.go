package batched

import (
	"math/big"
	"sync"

	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/boundedvec"
	"github.com/lumenstate/accumulator/hasher"
)

// Tree is the batched Merkle tree's on-chain-side bookkeeping: it does
// not store tree nodes (those are reconstructed off-chain by the
// prover/forester from the value vectors and hashchains), only the root
// history, the queues, and the counters a root transition must update.
type Tree struct {
	h        hasher.Hasher
	treeType accumulator.TreeType
	verifier Verifier

	height         uint16
	nextIndex      uint64
	sequenceNumber uint64

	roots *boundedvec.CyclicBoundedVec[accumulator.Bytes32]

	Output *Queue // nil for address trees
	Input  *Queue

	mu sync.Mutex
}

// Config groups the per-queue sizing parameters New needs.
type Config struct {
	NumBatches, BatchSize, ZkpBatchSize int
	BloomCapacity, NumBloomIters        uint
}

// New builds a batched tree. For a BatchedState tree, outputCfg and
// inputCfg must both be non-nil (leaf appends and nullifications). For a
// BatchedAddress tree, outputCfg must be nil and inputCfg configures
// address-append batches.
func New(h hasher.Hasher, verifier Verifier, treeType accumulator.TreeType, height uint16, rootsCapacity int, outputCfg, inputCfg *Config) (*Tree, error) {
	if h == nil {
		return nil, accumulator.ErrNilHasher
	}
	if verifier == nil {
		return nil, accumulator.ErrNilVerifier
	}
	if treeType != accumulator.TreeTypeBatchedState && treeType != accumulator.TreeTypeBatchedAddress {
		return nil, accumulator.ErrInvalidTreeType
	}
	if height == 0 || int(height) > hasher.Depth {
		return nil, &InvalidHeightError{Height: height}
	}

	t := &Tree{
		h:        h,
		treeType: treeType,
		verifier: verifier,
		height:   height,
		roots:    boundedvec.NewCyclicBoundedVec[accumulator.Bytes32](rootsCapacity),
	}

	if treeType == accumulator.TreeTypeBatchedAddress {
		// Address trees never start empty: the two linked-list sentinels
		// occupy leaves 0 and 1 from the first root on.
		root, err := indexedEmptyRoot(h, height)
		if err != nil {
			return nil, err
		}
		t.nextIndex = 2
		t.roots.Push(root)
	} else {
		t.roots.Push(h.ZeroBytes()[height])
	}

	if treeType == accumulator.TreeTypeBatchedState {
		if outputCfg == nil || inputCfg == nil {
			return nil, accumulator.ErrInvalidQueueType
		}
		output, err := NewQueue(KindOutput, h, outputCfg.NumBatches, outputCfg.BatchSize, outputCfg.ZkpBatchSize, outputCfg.BloomCapacity, outputCfg.NumBloomIters)
		if err != nil {
			return nil, err
		}
		input, err := NewQueue(KindInput, h, inputCfg.NumBatches, inputCfg.BatchSize, inputCfg.ZkpBatchSize, inputCfg.BloomCapacity, inputCfg.NumBloomIters)
		if err != nil {
			return nil, err
		}
		t.Output, t.Input = output, input
	} else {
		if outputCfg != nil {
			return nil, accumulator.ErrInvalidQueueType
		}
		input, err := NewQueue(KindInput, h, inputCfg.NumBatches, inputCfg.BatchSize, inputCfg.ZkpBatchSize, inputCfg.BloomCapacity, inputCfg.NumBloomIters)
		if err != nil {
			return nil, err
		}
		t.Input = input
	}

	return t, nil
}

// indexedEmptyRoot derives the root of an address tree holding only its
// two linked-list sentinels: the low element (0, 1, fieldMax) at leaf 0
// and the high element (fieldMax, 0, 0) at leaf 1, with every other
// subtree empty. Leaf hashing matches the indexed tree's
// (value, next_index, next_value) triple.
func indexedEmptyRoot(h hasher.Hasher, height uint16) (accumulator.Bytes32, error) {
	fieldMax := accumulator.BigIntToBytes32(new(big.Int).Sub(hasher.BN254FieldModulus, big.NewInt(1)))

	lowLeaf, err := h.Hashv(accumulator.Bytes32{}, beU64(1), fieldMax)
	if err != nil {
		return accumulator.Bytes32{}, err
	}
	highLeaf, err := h.Hashv(fieldMax, accumulator.Bytes32{}, accumulator.Bytes32{})
	if err != nil {
		return accumulator.Bytes32{}, err
	}

	node, err := h.Hashv(lowLeaf, highLeaf)
	if err != nil {
		return accumulator.Bytes32{}, err
	}
	for level := uint16(1); level < height; level++ {
		node, err = h.Hashv(node, h.ZeroBytes()[level])
		if err != nil {
			return accumulator.Bytes32{}, err
		}
	}
	return node, nil
}

// Height returns the tree's fixed height.
func (t *Tree) Height() uint16 { return t.height }

// Root returns the current on-chain root.
func (t *Tree) Root() accumulator.Bytes32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	root, _ := t.roots.Last()
	return root
}

// SequenceNumber returns the number of root transitions installed.
func (t *Tree) SequenceNumber() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sequenceNumber
}

// NextIndex returns, for state trees, the count of appended leaves
// across all installed output-queue zkp-batches; for address trees, the
// installed address-append count plus the two sentinels.
func (t *Tree) NextIndex() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextIndex
}

// InstallEvent summarizes one successful zkp-batch root transition, the
// record downstream indexers replay to mirror the off-chain state.
// OldNextIndex/NewNextIndex differ only for
// transitions that append (output-queue and address installs).
type InstallEvent struct {
	BatchIndex     int
	ZkpBatchIndex  int
	NewRoot        accumulator.Bytes32
	RootIndex      int
	SequenceNumber uint64
	BatchSize      int
	OldNextIndex   uint64
	NewNextIndex   uint64
}

// AppendLeaf stages a new leaf into the state tree's output queue. The
// leaf doubles as its own hashchain value: appends need no
// domain-separated fold input the way nullifications do.
func (t *Tree) AppendLeaf(leaf accumulator.Bytes32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.treeType != accumulator.TreeTypeBatchedState {
		return accumulator.ErrInvalidTreeType
	}
	if err := t.Output.InsertIntoCurrentBatch(leaf, leaf); err != nil {
		return err
	}
	t.agePreviousBatch(t.Output, t.Output.currentBatchIndex)
	return nil
}

// InsertNullifier stages a spent account hash into the input queue. The
// bloom filter sees accountHash; the hashchain folds
// H(accountHash, leafIndex, txHash) so the circuit binds the
// nullification to both the leaf position and the transaction.
func (t *Tree) InsertNullifier(accountHash accumulator.Bytes32, leafIndex uint64, txHash accumulator.Bytes32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.treeType != accumulator.TreeTypeBatchedState {
		return accumulator.ErrInvalidTreeType
	}
	hashchainValue, err := t.h.Hashv(accountHash, beU64(leafIndex), txHash)
	if err != nil {
		return err
	}
	if err := t.Input.InsertIntoCurrentBatch(accountHash, hashchainValue); err != nil {
		return err
	}
	t.agePreviousBatch(t.Input, t.Input.currentBatchIndex)
	return nil
}

// InsertAddress stages a freshly derived address into an address tree's
// input queue.
func (t *Tree) InsertAddress(address accumulator.Bytes32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.treeType != accumulator.TreeTypeBatchedAddress {
		return accumulator.ErrInvalidTreeType
	}
	if err := t.Input.InsertIntoCurrentBatch(address, address); err != nil {
		return err
	}
	t.agePreviousBatch(t.Input, t.Input.currentBatchIndex)
	return nil
}

// InstallBatchRoot installs the next pending zkp-batch of queue against
// newRoot, gated by verifier. queue must be either t.Output or t.Input.
func (t *Tree) InstallBatchRoot(queue *Queue, newRoot accumulator.Bytes32, proof CompressedProof) (*InstallEvent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if queue == nil || (queue != t.Output && queue != t.Input) {
		return nil, accumulator.ErrMerkleTreeAndQueueNotAssociated
	}

	instIdx := queue.pendingBatchIndex
	batch := queue.batches[instIdx]
	if batch.State != StateReadyForZkp {
		return nil, ErrBatchNotReady
	}

	zkpIndex := batch.NumInsertedZkps
	oldRoot, err := t.roots.Last()
	if err != nil {
		return nil, err
	}
	leavesHashchain := queue.hashchainStore[instIdx][zkpIndex]

	publicInputHash, verify, err := t.publicInputAndVerifier(queue, oldRoot, newRoot, leavesHashchain)
	if err != nil {
		return nil, err
	}
	if err := verify(batch.BatchSize, publicInputHash, proof); err != nil {
		return nil, err
	}

	oldNextIndex := t.nextIndex
	t.sequenceNumber++
	t.roots.Push(newRoot)

	if queue.kind == KindOutput || (queue.kind == KindInput && t.treeType == accumulator.TreeTypeBatchedAddress) {
		t.nextIndex += uint64(queue.zkpBatchSize)
	}

	batch.NumInsertedZkps++
	if batch.NumInsertedZkps == batch.totalZkps() {
		batch.State = StateInserted
		// The batch's recorded sequence number is a forward threshold:
		// once the tree's own sequence number reaches it, every root
		// that predates this batch's final root has been overwritten
		// and the bloom evidence can be dropped without unprotecting
		// any retained root.
		batch.SequenceNumber = t.sequenceNumber + uint64(t.roots.Capacity())
		batch.RootIndex = t.roots.LastIndex()
	}

	// Aging runs against the still-unadvanced pending slot, so the ring
	// predecessor examined is the batch installed just before this one.
	t.agePreviousBatch(queue, instIdx)

	if batch.State == StateInserted {
		queue.pendingBatchIndex = (queue.pendingBatchIndex + 1) % len(queue.batches)
	}

	return &InstallEvent{
		BatchIndex:     instIdx,
		ZkpBatchIndex:  zkpIndex,
		NewRoot:        newRoot,
		RootIndex:      t.roots.LastIndex(),
		SequenceNumber: t.sequenceNumber,
		BatchSize:      batch.BatchSize,
		OldNextIndex:   oldNextIndex,
		NewNextIndex:   t.nextIndex,
	}, nil
}

func (t *Tree) publicInputAndVerifier(queue *Queue, oldRoot, newRoot, leavesHashchain accumulator.Bytes32) (accumulator.Bytes32, func(int, accumulator.Bytes32, CompressedProof) error, error) {
	if queue.kind == KindOutput {
		hash, err := outputPublicInputHash(t.h, oldRoot, newRoot, leavesHashchain, t.nextIndex)
		return hash, t.verifier.VerifyBatchAppendWithProofs, err
	}
	if t.treeType == accumulator.TreeTypeBatchedAddress {
		hash, err := addressInputPublicInputHash(t.h, oldRoot, newRoot, leavesHashchain, t.nextIndex)
		return hash, t.verifier.VerifyBatchAddressUpdate, err
	}
	hash, err := stateInputPublicInputHash(t.h, oldRoot, newRoot, leavesHashchain)
	return hash, t.verifier.VerifyBatchUpdate, err
}

// ZeroOutPreviousBatchBloomFilter ages out the ring predecessor of the
// queue's pending batch, once it has been fully installed and the
// pending batch itself has absorbed at least half its capacity.
// Install and insert paths both run this check
// internally; it is exported so a host can also drive aging explicitly
// between instructions.
func (t *Tree) ZeroOutPreviousBatchBloomFilter(queue *Queue) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if queue == nil || (queue != t.Output && queue != t.Input) {
		return accumulator.ErrMerkleTreeAndQueueNotAssociated
	}
	t.agePreviousBatch(queue, queue.pendingBatchIndex)
	return nil
}

// agePreviousBatch zeroes the bloom filter of the batch preceding refIdx
// in the ring, provided that predecessor is fully installed and not yet
// zeroed, and the batch at refIdx has absorbed at least half its
// capacity. The half-full condition is the grace period: clients get
// the window between "installed" and "refIdx half-filled" to switch
// from bloom-backed non-inclusion to proofs against the updated root.
func (t *Tree) agePreviousBatch(queue *Queue, refIdx int) {
	n := len(queue.batches)
	prevIdx := (refIdx - 1 + n) % n
	if prevIdx == refIdx {
		return
	}
	prev := queue.batches[prevIdx]
	if prev.State != StateInserted || prev.BloomFilterZeroed {
		return
	}

	ref := queue.batches[refIdx]
	if ref.NumInsertedElements*2 < ref.BatchSize {
		return
	}

	queue.blooms[prevIdx].Zero()
	prev.BloomFilterZeroed = true
	t.zeroOutRoots(prev.SequenceNumber, prev.RootIndex)
}

// zeroOutRoots invalidates every root-history slot that could still
// prove inclusion of a value the just-zeroed bloom filter no longer
// vouches for: every retained root older than the batch's own final
// root, walking from the oldest slot up to but excluding
// firstSafeRootIndex. Once the tree's sequence number has reached the
// batch's forward threshold s, the whole ring has turned over since the
// install and nothing is left to zero. The walk stops one slot short of
// the first safe root rather than including it.
func (t *Tree) zeroOutRoots(s uint64, firstSafeRootIndex int) {
	if s <= t.sequenceNumber {
		return
	}
	idx := t.roots.FirstIndex()
	for idx != firstSafeRootIndex {
		t.roots.Set(idx, accumulator.Bytes32{})
		idx = (idx + 1) % t.roots.Capacity()
	}
}

// RootAt returns the root history entry at absolute ring index i.
func (t *Tree) RootAt(i int) (accumulator.Bytes32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.roots.Get(i)
}

// RootHistoryLen reports how many root-history slots are populated.
func (t *Tree) RootHistoryLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.roots.Len()
}
