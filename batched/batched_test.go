package batched

import (
	"testing"

	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/hasher"
	"github.com/lumenstate/accumulator/reference"
)

// acceptVerifier is a stub Verifier that accepts every call, standing in
// for the real Groth16 predicate this engine treats as an opaque black
// box.
type acceptVerifier struct{ calls int }

func (v *acceptVerifier) VerifyBatchUpdate(int, accumulator.Bytes32, CompressedProof) error {
	v.calls++
	return nil
}
func (v *acceptVerifier) VerifyBatchAppendWithProofs(int, accumulator.Bytes32, CompressedProof) error {
	v.calls++
	return nil
}
func (v *acceptVerifier) VerifyBatchAddressUpdate(int, accumulator.Bytes32, CompressedProof) error {
	v.calls++
	return nil
}

// rejectVerifier refuses every proof, for checking that a failed verify
// leaves the tree untouched.
type rejectVerifier struct{}

func (rejectVerifier) VerifyBatchUpdate(int, accumulator.Bytes32, CompressedProof) error {
	return &accumulator.InvalidProofError{}
}
func (rejectVerifier) VerifyBatchAppendWithProofs(int, accumulator.Bytes32, CompressedProof) error {
	return &accumulator.InvalidProofError{}
}
func (rejectVerifier) VerifyBatchAddressUpdate(int, accumulator.Bytes32, CompressedProof) error {
	return &accumulator.InvalidProofError{}
}

func newTestStateTree(t *testing.T, v Verifier) *Tree {
	t.Helper()
	h, err := hasher.NewPoseidonHasher()
	if err != nil {
		t.Fatalf("NewPoseidonHasher: %v", err)
	}
	cfg := &Config{NumBatches: 2, BatchSize: 8, ZkpBatchSize: 2, BloomCapacity: 512, NumBloomIters: 3}
	inputCfg := &Config{NumBatches: 2, BatchSize: 8, ZkpBatchSize: 2, BloomCapacity: 512, NumBloomIters: 3}
	tree, err := New(h, v, accumulator.TreeTypeBatchedState, 26, 16, cfg, inputCfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tree
}

func leafAt(b byte) accumulator.Bytes32 {
	var v accumulator.Bytes32
	v[31] = b
	return v
}

// batch_size=8, zkp_batch_size=2, num_batches=2, height=26: append 8
// leaves; batch[0] transitions
// Fill -> ReadyForZkp at the 8th; four successive install calls with
// correct proofs drive num_inserted_zkps 0->4, root history gains 4
// entries, next_index increases by 8, batch[0] reaches Inserted,
// pending_batch_index becomes 1.
func TestStateBatchInstall(t *testing.T) {
	tree := newTestStateTree(t, &acceptVerifier{})

	for i := 0; i < 8; i++ {
		if err := tree.AppendLeaf(leafAt(byte(i))); err != nil {
			t.Fatalf("AppendLeaf(%d): %v", i, err)
		}
	}

	batch0, err := tree.Output.Batch(0)
	if err != nil {
		t.Fatalf("Batch(0): %v", err)
	}
	if batch0.State != StateReadyForZkp {
		t.Fatalf("batch0.State = %v, want ReadyForZkp", batch0.State)
	}
	if tree.Output.CurrentBatchIndex() != 1 {
		t.Fatalf("CurrentBatchIndex = %d, want 1", tree.Output.CurrentBatchIndex())
	}

	startRootLen := tree.RootHistoryLen()
	startNextIndex := tree.NextIndex()

	for i := 0; i < 4; i++ {
		var fakeRoot accumulator.Bytes32
		fakeRoot[0] = byte(i + 1)
		event, err := tree.InstallBatchRoot(tree.Output, fakeRoot, CompressedProof{})
		if err != nil {
			t.Fatalf("InstallBatchRoot(%d): %v", i, err)
		}
		if event.ZkpBatchIndex != i {
			t.Fatalf("event.ZkpBatchIndex = %d, want %d", event.ZkpBatchIndex, i)
		}
		if event.OldNextIndex != uint64(2*i) || event.NewNextIndex != uint64(2*(i+1)) {
			t.Fatalf("event next index %d -> %d, want %d -> %d",
				event.OldNextIndex, event.NewNextIndex, 2*i, 2*(i+1))
		}
	}

	if batch0.NumInsertedZkps != 4 {
		t.Fatalf("NumInsertedZkps = %d, want 4", batch0.NumInsertedZkps)
	}
	if batch0.State != StateInserted {
		t.Fatalf("batch0.State = %v, want Inserted", batch0.State)
	}
	if tree.RootHistoryLen() != startRootLen+4 {
		t.Fatalf("RootHistoryLen = %d, want %d", tree.RootHistoryLen(), startRootLen+4)
	}
	if tree.NextIndex() != startNextIndex+8 {
		t.Fatalf("NextIndex = %d, want %d", tree.NextIndex(), startNextIndex+8)
	}
	if tree.Output.PendingBatchIndex() != 1 {
		t.Fatalf("PendingBatchIndex = %d, want 1", tree.Output.PendingBatchIndex())
	}
}

// TestInstallRootMatchesReplayedReference checks that each installed
// root equals the root an independent replay of the ingested leaves
// produces on the dense reference tree.
func TestInstallRootMatchesReplayedReference(t *testing.T) {
	h, err := hasher.NewPoseidonHasher()
	if err != nil {
		t.Fatalf("NewPoseidonHasher: %v", err)
	}
	tree := newTestStateTree(t, &acceptVerifier{})
	golden, err := reference.NewDenseTree(h, 26, 0)
	if err != nil {
		t.Fatalf("NewDenseTree: %v", err)
	}

	leaves := make([]accumulator.Bytes32, 8)
	for i := range leaves {
		leaves[i] = leafAt(byte(i + 1))
		if err := tree.AppendLeaf(leaves[i]); err != nil {
			t.Fatalf("AppendLeaf(%d): %v", i, err)
		}
	}

	for zkp := 0; zkp < 4; zkp++ {
		// Replay this zkp-batch's leaves on the oracle; the root it
		// reaches is the root the prover would commit to.
		for j := 0; j < 2; j++ {
			if err := golden.Append(leaves[2*zkp+j]); err != nil {
				t.Fatalf("golden Append: %v", err)
			}
		}
		newRoot := golden.Root()
		event, err := tree.InstallBatchRoot(tree.Output, newRoot, CompressedProof{})
		if err != nil {
			t.Fatalf("InstallBatchRoot(zkp %d): %v", zkp, err)
		}
		if tree.Root() != newRoot {
			t.Fatalf("installed root %x != replayed reference root %x", tree.Root(), newRoot)
		}
		if event.NewNextIndex != golden.NextIndex() {
			t.Fatalf("NewNextIndex = %d, want replayed %d", event.NewNextIndex, golden.NextIndex())
		}
	}
}

func TestInstallRejectedProofLeavesStateUntouched(t *testing.T) {
	tree := newTestStateTree(t, rejectVerifier{})

	for i := 0; i < 8; i++ {
		if err := tree.AppendLeaf(leafAt(byte(i))); err != nil {
			t.Fatalf("AppendLeaf(%d): %v", i, err)
		}
	}

	rootBefore := tree.Root()
	seqBefore := tree.SequenceNumber()

	if _, err := tree.InstallBatchRoot(tree.Output, leafAt(0xCC), CompressedProof{}); err == nil {
		t.Fatalf("InstallBatchRoot with rejecting verifier succeeded")
	}
	if tree.Root() != rootBefore || tree.SequenceNumber() != seqBefore {
		t.Fatalf("rejected install mutated tree state")
	}
	batch0, _ := tree.Output.Batch(0)
	if batch0.NumInsertedZkps != 0 {
		t.Fatalf("NumInsertedZkps = %d after rejected install, want 0", batch0.NumInsertedZkps)
	}
}

func TestInstallOnUnassociatedQueueFails(t *testing.T) {
	tree := newTestStateTree(t, &acceptVerifier{})
	other := newTestStateTree(t, &acceptVerifier{})

	if _, err := tree.InstallBatchRoot(other.Input, leafAt(1), CompressedProof{}); err != accumulator.ErrMerkleTreeAndQueueNotAssociated {
		t.Fatalf("install on foreign queue = %v, want ErrMerkleTreeAndQueueNotAssociated", err)
	}
}

func TestNullifierDoubleSpendRejected(t *testing.T) {
	tree := newTestStateTree(t, &acceptVerifier{})

	accountHash := leafAt(0x11)
	txHash := leafAt(0x22)
	if err := tree.InsertNullifier(accountHash, 3, txHash); err != nil {
		t.Fatalf("InsertNullifier: %v", err)
	}
	if err := tree.InsertNullifier(accountHash, 3, txHash); err != accumulator.ErrElementAlreadyExists {
		t.Fatalf("second InsertNullifier = %v, want ErrElementAlreadyExists", err)
	}
}

func TestAddressTreeInstall(t *testing.T) {
	h, err := hasher.NewPoseidonHasher()
	if err != nil {
		t.Fatalf("NewPoseidonHasher: %v", err)
	}
	inputCfg := &Config{NumBatches: 2, BatchSize: 4, ZkpBatchSize: 2, BloomCapacity: 512, NumBloomIters: 3}
	tree, err := New(h, &acceptVerifier{}, accumulator.TreeTypeBatchedAddress, 26, 16, nil, inputCfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// The initial root holds the two sentinels, never the empty-tree root.
	if tree.Root() == h.ZeroBytes()[26] {
		t.Fatalf("address tree initial root is the empty-tree root")
	}
	if tree.NextIndex() != 2 {
		t.Fatalf("NextIndex = %d, want 2 (sentinels)", tree.NextIndex())
	}
	if tree.Output != nil {
		t.Fatalf("address tree has an output queue")
	}

	for i := 0; i < 4; i++ {
		if err := tree.InsertAddress(leafAt(byte(i + 1))); err != nil {
			t.Fatalf("InsertAddress(%d): %v", i, err)
		}
	}
	for i := 0; i < 2; i++ {
		var root accumulator.Bytes32
		root[0] = byte(i + 1)
		if _, err := tree.InstallBatchRoot(tree.Input, root, CompressedProof{}); err != nil {
			t.Fatalf("InstallBatchRoot(%d): %v", i, err)
		}
	}
	if tree.NextIndex() != 2+4 {
		t.Fatalf("NextIndex = %d, want 6 after installing 4 addresses", tree.NextIndex())
	}
}

// Bloom aging with num_batches=2: fill batch 0,
// install all its zkps (state Inserted, bloom not zeroed). Inserting into
// batch 1 up to half its capacity zeroes batch 0's bloom and every
// root-history slot older than batch 0's final installed root.
func TestBloomAging(t *testing.T) {
	tree := newTestStateTree(t, &acceptVerifier{})

	for i := 0; i < 8; i++ {
		if err := tree.AppendLeaf(leafAt(byte(i))); err != nil {
			t.Fatalf("fill batch0[%d]: %v", i, err)
		}
	}
	var lastInstalledRoot accumulator.Bytes32
	for i := 0; i < 4; i++ {
		var fakeRoot accumulator.Bytes32
		fakeRoot[0] = byte(i + 1)
		if _, err := tree.InstallBatchRoot(tree.Output, fakeRoot, CompressedProof{}); err != nil {
			t.Fatalf("install batch0 zkp %d: %v", i, err)
		}
		lastInstalledRoot = fakeRoot
	}

	batch0, _ := tree.Output.Batch(0)
	if batch0.State != StateInserted || batch0.BloomFilterZeroed {
		t.Fatalf("batch0 = %+v, want Inserted and not zeroed", batch0)
	}
	firstSafeRootIndex := batch0.RootIndex

	for i := 0; i < 3; i++ {
		if err := tree.AppendLeaf(leafAt(byte(100 + i))); err != nil {
			t.Fatalf("fill batch1[%d]: %v", i, err)
		}
	}
	if batch0.BloomFilterZeroed {
		t.Fatalf("bloom zeroed before batch1 reached half capacity")
	}

	// The insert that brings batch1 to half capacity triggers aging.
	if err := tree.AppendLeaf(leafAt(103)); err != nil {
		t.Fatalf("fill batch1[3]: %v", err)
	}
	if !batch0.BloomFilterZeroed {
		t.Fatalf("batch0.BloomFilterZeroed = false, want true at half-filled batch1")
	}

	// Every retained root older than batch0's final root is zeroed; the
	// final root itself survives at the recorded first-safe index.
	for i := 0; i < firstSafeRootIndex; i++ {
		got, err := tree.RootAt(i)
		if err != nil {
			t.Fatalf("RootAt(%d): %v", i, err)
		}
		if !got.IsZero() {
			t.Fatalf("root at ring index %d not zeroed", i)
		}
	}
	got, err := tree.RootAt(firstSafeRootIndex)
	if err != nil {
		t.Fatalf("RootAt(%d): %v", firstSafeRootIndex, err)
	}
	if got != lastInstalledRoot {
		t.Fatalf("first safe root = %x, want last installed root %x", got, lastInstalledRoot)
	}
}

// A fully cycled ring slot becomes fillable again: after both batches
// install and age, appending must transparently reuse batch 0's slot.
func TestBatchSlotReuseAfterInstall(t *testing.T) {
	tree := newTestStateTree(t, &acceptVerifier{})

	install := func(n int, tag byte) {
		t.Helper()
		for i := 0; i < n; i++ {
			var root accumulator.Bytes32
			root[0] = tag
			root[1] = byte(i + 1)
			if _, err := tree.InstallBatchRoot(tree.Output, root, CompressedProof{}); err != nil {
				t.Fatalf("install (tag %d, zkp %d): %v", tag, i, err)
			}
		}
	}

	for i := 0; i < 8; i++ {
		if err := tree.AppendLeaf(leafAt(byte(i))); err != nil {
			t.Fatalf("fill batch0[%d]: %v", i, err)
		}
	}
	install(4, 0xA0)

	for i := 0; i < 8; i++ {
		if err := tree.AppendLeaf(leafAt(byte(50 + i))); err != nil {
			t.Fatalf("fill batch1[%d]: %v", i, err)
		}
	}
	install(4, 0xB0)

	// Both slots installed; the fill cursor wrapped back to slot 0.
	if got := tree.Output.CurrentBatchIndex(); got != 0 {
		t.Fatalf("CurrentBatchIndex = %d, want 0", got)
	}
	if err := tree.AppendLeaf(leafAt(0xEE)); err != nil {
		t.Fatalf("AppendLeaf into reused slot: %v", err)
	}
	batch0, _ := tree.Output.Batch(0)
	if batch0.State != StateFill || batch0.NumInsertedElements != 1 {
		t.Fatalf("reused batch0 = %+v, want Fill with 1 element", batch0)
	}
}
