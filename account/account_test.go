package account

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/batched"
)

func TestDiscriminatorValidate(t *testing.T) {
	buf := make([]byte, 8, 16)
	copy(buf, DiscriminatorConcurrentState[:])
	if err := DiscriminatorConcurrentState.Validate(buf); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := DiscriminatorConcurrentAddress.Validate(buf); err == nil {
		t.Fatalf("Validate with mismatched discriminator succeeded, want error")
	}
}

func TestTreeTypeDiscriminatorRoundTrip(t *testing.T) {
	cases := []struct {
		tt   accumulator.TreeType
		want Discriminator
	}{
		{accumulator.TreeTypeState, DiscriminatorConcurrentState},
		{accumulator.TreeTypeAddress, DiscriminatorConcurrentAddress},
		{accumulator.TreeTypeBatchedState, DiscriminatorBatchedState},
		{accumulator.TreeTypeBatchedAddress, DiscriminatorBatchedAddress},
	}
	for _, c := range cases {
		got, err := TreeTypeDiscriminator(c.tt)
		if err != nil {
			t.Fatalf("TreeTypeDiscriminator(%v): %v", c.tt, err)
		}
		if got != c.want {
			t.Fatalf("TreeTypeDiscriminator(%v) = %v, want %v", c.tt, got, c.want)
		}
	}
}

func TestTreeMetaMarshalRoundTrip(t *testing.T) {
	want := TreeMeta{
		Discriminator:         DiscriminatorConcurrentState,
		TreeType:              accumulator.TreeTypeState,
		Height:                26,
		CanopyDepth:           10,
		ChangelogCapacity:     64,
		RootsCapacity:         32,
		NextIndex:             12345,
		SequenceNumber:        67890,
		CurrentChangelogIndex: 17,
		CurrentRootIndex:      9,
		RightmostLeaf:         accumulator.Bytes32{0x11, 0x22},
		RolledOverAt:          4242,
		Owner:                 accumulator.Bytes32{0xAB, 0xCD},
	}
	buf := make([]byte, want.Size())
	want.MarshalFixed(buf)

	var got TreeMeta
	if err := got.UnmarshalFixed(buf); err != nil {
		t.Fatalf("UnmarshalFixed: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestTreeMetaUnmarshalShortBuffer(t *testing.T) {
	var m TreeMeta
	if err := m.UnmarshalFixed(make([]byte, 10)); err == nil {
		t.Fatalf("UnmarshalFixed with short buffer succeeded, want error")
	}
}

func TestQueueMetaMarshalRoundTrip(t *testing.T) {
	want := QueueMeta{
		Discriminator:     DiscriminatorOutputQueue,
		Kind:              0,
		NumBatches:        2,
		BatchSize:         8,
		ZkpBatchSize:      4,
		CurrentBatchIndex: 1,
		PendingBatchIndex: 0,
		BloomCapacity:     2048,
		NumBloomIters:     3,
		AssociatedTree:    accumulator.Bytes32{0x01},
	}
	buf := make([]byte, want.Size())
	want.MarshalFixed(buf)

	var got QueueMeta
	if err := got.UnmarshalFixed(buf); err != nil {
		t.Fatalf("UnmarshalFixed: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	treeID := accumulator.Bytes32{0x01}
	if err := got.AssertAssociated(treeID); err != nil {
		t.Fatalf("AssertAssociated: %v", err)
	}
	if err := got.AssertAssociated(accumulator.Bytes32{0x02}); err == nil {
		t.Fatalf("AssertAssociated with mismatched tree succeeded, want error")
	}
}

func TestExpectedAccountSize(t *testing.T) {
	// height=4, changelogSize=8, rootsSize=8, canopyDepth=2: a small,
	// hand-checkable configuration.
	got := ExpectedAccountSize(4, 8, 8, 2)
	want := treeMetaSize +
		4*bytes32Size + // filledSubtrees
		8*(8+4*bytes32Size) + // changelog entries
		8*bytes32Size + // roots
		6*bytes32Size // canopy: 2^3-2 = 6 nodes
	if got != want {
		t.Fatalf("ExpectedAccountSize = %d, want %d", got, want)
	}
}

func TestValidateAccountSize(t *testing.T) {
	want := ExpectedAccountSize(4, 8, 8, 2)
	if err := ValidateAccountSize(make([]byte, want), want); err != nil {
		t.Fatalf("ValidateAccountSize: %v", err)
	}
	if err := ValidateAccountSize(make([]byte, want-1), want); err == nil {
		t.Fatalf("ValidateAccountSize with wrong size succeeded, want error")
	}
}

func TestDecodeVariant(t *testing.T) {
	cases := map[Variant]Discriminator{
		VariantConcurrentState:   DiscriminatorConcurrentState,
		VariantConcurrentAddress: DiscriminatorConcurrentAddress,
		VariantBatchedState:      DiscriminatorBatchedState,
		VariantBatchedAddress:    DiscriminatorBatchedAddress,
		VariantOutputQueue:       DiscriminatorOutputQueue,
		VariantInputQueue:        DiscriminatorInputQueue,
		VariantHashSet:           DiscriminatorHashSet,
	}
	for want, d := range cases {
		buf := make([]byte, 8)
		copy(buf, d[:])
		got, err := DecodeVariant(buf)
		if err != nil {
			t.Fatalf("DecodeVariant(%v): %v", want, err)
		}
		if got != want {
			t.Fatalf("DecodeVariant = %v, want %v", got, want)
		}
	}

	if _, err := DecodeVariant([]byte{1, 2, 3}); err == nil {
		t.Fatalf("DecodeVariant on short buffer succeeded")
	}
	unknown := []byte{'X', 'X', 'X', 'X', 'X', 'X', 'X', 'X'}
	if _, err := DecodeVariant(unknown); err != accumulator.ErrInvalidTreeType {
		t.Fatalf("DecodeVariant on unknown tag = %v, want ErrInvalidTreeType", err)
	}
}

func concurrentTreeBuffer(t *testing.T) (TreeMeta, []byte) {
	t.Helper()
	meta := TreeMeta{
		Discriminator:     DiscriminatorConcurrentState,
		TreeType:          accumulator.TreeTypeState,
		Height:            4,
		CanopyDepth:       2,
		ChangelogCapacity: 8,
		RootsCapacity:     8,
		NextIndex:         3,
		SequenceNumber:    3,
	}
	buf := make([]byte, ExpectedAccountSize(meta.Height, int(meta.ChangelogCapacity), int(meta.RootsCapacity), meta.CanopyDepth))
	meta.MarshalFixed(buf)
	return meta, buf
}

func TestDecodeViewConcurrentTree(t *testing.T) {
	meta, buf := concurrentTreeBuffer(t)

	view, err := DecodeView(buf)
	if err != nil {
		t.Fatalf("DecodeView: %v", err)
	}
	tv, ok := view.(*ConcurrentTreeView)
	if !ok {
		t.Fatalf("DecodeView returned %T, want *ConcurrentTreeView", view)
	}
	if tv.Variant() != VariantConcurrentState {
		t.Fatalf("Variant = %v, want ConcurrentState", tv.Variant())
	}
	if tv.Meta != meta {
		t.Fatalf("decoded meta = %+v, want %+v", tv.Meta, meta)
	}
}

func TestDecodeViewRejectsWrongSize(t *testing.T) {
	_, buf := concurrentTreeBuffer(t)

	if _, err := DecodeView(buf[:len(buf)-1]); err == nil {
		t.Fatalf("DecodeView with truncated buffer succeeded")
	}
	grown := append(append([]byte{}, buf...), 0)
	_, err := DecodeView(grown)
	if err == nil {
		t.Fatalf("DecodeView with oversized buffer succeeded")
	}
	var sizeErr *accumulator.InvalidAccountSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("error type = %T, want *InvalidAccountSizeError", err)
	}
	if sizeErr.Expected != len(buf) || sizeErr.Actual != len(buf)+1 {
		t.Fatalf("InvalidAccountSizeError = %+v, want expected %d actual %d", sizeErr, len(buf), len(buf)+1)
	}
}

func TestDecodeViewQueue(t *testing.T) {
	meta := QueueMeta{
		Discriminator: DiscriminatorOutputQueue,
		Kind:          uint8(batched.KindOutput),
		NumBatches:    2,
		BatchSize:     8,
		ZkpBatchSize:  2,
		BloomCapacity: 512,
		NumBloomIters: 3,
	}
	buf := make([]byte, ExpectedQueueAccountSize(meta))
	meta.MarshalFixed(buf)

	view, err := DecodeView(buf)
	if err != nil {
		t.Fatalf("DecodeView: %v", err)
	}
	qv, ok := view.(*QueueView)
	if !ok {
		t.Fatalf("DecodeView returned %T, want *QueueView", view)
	}
	if qv.Variant() != VariantOutputQueue || qv.Meta != meta {
		t.Fatalf("decoded queue view = %+v", qv)
	}
}

func TestDecodeViewHashSet(t *testing.T) {
	buf := make([]byte, ExpectedHashSetAccountSize(521, 256))
	copy(buf, DiscriminatorHashSet[:])
	binary.BigEndian.PutUint64(buf[8:16], 4)
	binary.BigEndian.PutUint32(buf[16:20], 521)
	binary.BigEndian.PutUint32(buf[20:24], 256)

	view, err := DecodeView(buf)
	if err != nil {
		t.Fatalf("DecodeView: %v", err)
	}
	hv, ok := view.(*HashSetView)
	if !ok {
		t.Fatalf("DecodeView returned %T, want *HashSetView", view)
	}
	if hv.SequenceThreshold != 4 || hv.CapacityIndices != 521 || hv.CapacityValues != 256 {
		t.Fatalf("decoded hash-set view = %+v", hv)
	}
}

func TestRolloverThreshold(t *testing.T) {
	// height=10 -> capacity 1024, 95% -> 972 (integer division).
	got := RolloverThreshold(10, DefaultRolloverThresholdPercent)
	if got != 972 {
		t.Fatalf("RolloverThreshold = %d, want 972", got)
	}
	if NeedsRollover(10, 971, DefaultRolloverThresholdPercent) {
		t.Fatalf("NeedsRollover(971) = true, want false")
	}
	if !NeedsRollover(10, 972, DefaultRolloverThresholdPercent) {
		t.Fatalf("NeedsRollover(972) = false, want true")
	}
}

func TestCheckRollover(t *testing.T) {
	if err := CheckRollover(10, 500, DefaultRolloverThresholdPercent); err != nil {
		t.Fatalf("CheckRollover below threshold: %v", err)
	}
	err := CheckRollover(10, 1000, DefaultRolloverThresholdPercent)
	if err == nil {
		t.Fatalf("CheckRollover above threshold succeeded, want error")
	}
	rerr, ok := err.(*RolloverError)
	if !ok {
		t.Fatalf("error type = %T, want *RolloverError", err)
	}
	if rerr.NextIndex != 1000 {
		t.Fatalf("RolloverError.NextIndex = %d, want 1000", rerr.NextIndex)
	}
}
