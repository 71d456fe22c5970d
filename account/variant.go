package account

import (
	"encoding/binary"

	"github.com/lumenstate/accumulator"
)

// Variant identifies which durable account kind a buffer holds, decoded
// from its leading discriminator before any other byte is trusted.
type Variant uint8

const (
	VariantConcurrentState Variant = iota + 1
	VariantConcurrentAddress
	VariantBatchedState
	VariantBatchedAddress
	VariantOutputQueue
	VariantInputQueue
	VariantHashSet
)

func (v Variant) String() string {
	switch v {
	case VariantConcurrentState:
		return "ConcurrentState"
	case VariantConcurrentAddress:
		return "ConcurrentAddress"
	case VariantBatchedState:
		return "BatchedState"
	case VariantBatchedAddress:
		return "BatchedAddress"
	case VariantOutputQueue:
		return "OutputQueue"
	case VariantInputQueue:
		return "InputQueue"
	case VariantHashSet:
		return "HashSet"
	default:
		return "Unknown"
	}
}

// DecodeVariant reads the buffer's leading 8 bytes and maps them to the
// account variant they tag. It fails with a BufferSizeError on a buffer
// too short to carry a discriminator and with ErrInvalidTreeType on a
// tag this engine does not define.
func DecodeVariant(buf []byte) (Variant, error) {
	if len(buf) < 8 {
		return 0, &accumulator.BufferSizeError{Field: "discriminator", Expected: 8, Actual: len(buf)}
	}
	var d Discriminator
	copy(d[:], buf[:8])

	switch d {
	case DiscriminatorConcurrentState:
		return VariantConcurrentState, nil
	case DiscriminatorConcurrentAddress:
		return VariantConcurrentAddress, nil
	case DiscriminatorBatchedState:
		return VariantBatchedState, nil
	case DiscriminatorBatchedAddress:
		return VariantBatchedAddress, nil
	case DiscriminatorOutputQueue:
		return VariantOutputQueue, nil
	case DiscriminatorInputQueue:
		return VariantInputQueue, nil
	case DiscriminatorHashSet:
		return VariantHashSet, nil
	default:
		return 0, accumulator.ErrInvalidTreeType
	}
}

// View is a typed, size-checked decoding of an account buffer. A View
// is only ever handed out after the whole buffer's length has been
// validated against the geometry its own header declares; a host never
// type-asserts on unchecked bytes.
type View interface {
	Variant() Variant
}

// ConcurrentTreeView is the decoded header of a concurrent tree
// account.
type ConcurrentTreeView struct {
	Kind Variant
	Meta TreeMeta
}

func (v *ConcurrentTreeView) Variant() Variant { return v.Kind }

// BatchedTreeView is the decoded double header of a batched tree
// account: the tree metadata plus its input queue's metadata.
type BatchedTreeView struct {
	Kind  Variant
	Meta  TreeMeta
	Queue QueueMeta
}

func (v *BatchedTreeView) Variant() Variant { return v.Kind }

// QueueView is the decoded header of a standalone queue account.
type QueueView struct {
	Kind Variant
	Meta QueueMeta
}

func (v *QueueView) Variant() Variant { return v.Kind }

// HashSetView is the decoded header of a nullifier hash-set account.
type HashSetView struct {
	SequenceThreshold uint64
	CapacityIndices   int
	CapacityValues    int
}

func (v *HashSetView) Variant() Variant { return VariantHashSet }

// DecodeView decodes buf into the typed view its discriminator names,
// validating the buffer's total length against the size the header's
// own geometry implies before returning. This is the single entry
// point a host dispatches an opaque account buffer through.
func DecodeView(buf []byte) (View, error) {
	variant, err := DecodeVariant(buf)
	if err != nil {
		return nil, err
	}

	switch variant {
	case VariantConcurrentState, VariantConcurrentAddress:
		return decodeConcurrentTreeView(variant, buf)
	case VariantBatchedState, VariantBatchedAddress:
		return decodeBatchedTreeView(variant, buf)
	case VariantOutputQueue, VariantInputQueue:
		return decodeQueueView(variant, buf)
	default:
		return decodeHashSetView(buf)
	}
}

func decodeConcurrentTreeView(variant Variant, buf []byte) (*ConcurrentTreeView, error) {
	var meta TreeMeta
	if err := meta.UnmarshalFixed(buf); err != nil {
		return nil, err
	}
	want := ExpectedAccountSize(meta.Height, int(meta.ChangelogCapacity), int(meta.RootsCapacity), meta.CanopyDepth)
	if err := ValidateAccountSize(buf, want); err != nil {
		return nil, err
	}
	return &ConcurrentTreeView{Kind: variant, Meta: meta}, nil
}

func decodeBatchedTreeView(variant Variant, buf []byte) (*BatchedTreeView, error) {
	var meta TreeMeta
	if err := meta.UnmarshalFixed(buf); err != nil {
		return nil, err
	}
	var queue QueueMeta
	if len(buf) < treeMetaSize+queueMetaSize {
		return nil, &accumulator.BufferSizeError{Field: "QueueMeta", Expected: treeMetaSize + queueMetaSize, Actual: len(buf)}
	}
	if err := queue.UnmarshalFixed(buf[treeMetaSize:]); err != nil {
		return nil, err
	}
	if err := ValidateAccountSize(buf, ExpectedBatchedAccountSize(meta, queue)); err != nil {
		return nil, err
	}
	return &BatchedTreeView{Kind: variant, Meta: meta, Queue: queue}, nil
}

func decodeQueueView(variant Variant, buf []byte) (*QueueView, error) {
	var meta QueueMeta
	if err := meta.UnmarshalFixed(buf); err != nil {
		return nil, err
	}
	if err := ValidateAccountSize(buf, ExpectedQueueAccountSize(meta)); err != nil {
		return nil, err
	}
	return &QueueView{Kind: variant, Meta: meta}, nil
}

func decodeHashSetView(buf []byte) (*HashSetView, error) {
	if len(buf) < hashSetHeaderSize {
		return nil, &accumulator.BufferSizeError{Field: "HashSetHeader", Expected: hashSetHeaderSize, Actual: len(buf)}
	}
	view := &HashSetView{
		SequenceThreshold: binary.BigEndian.Uint64(buf[8:16]),
		CapacityIndices:   int(binary.BigEndian.Uint32(buf[16:20])),
		CapacityValues:    int(binary.BigEndian.Uint32(buf[20:24])),
	}
	if err := ValidateAccountSize(buf, ExpectedHashSetAccountSize(view.CapacityIndices, view.CapacityValues)); err != nil {
		return nil, err
	}
	return view, nil
}
