// Package events implements the changelog/event encoding every successful
// root transition emits: a discriminated union
// tagged V1/V2/V3, replayable by downstream indexers to mirror off-chain
// state without re-deriving proofs. Payloads follow the same hex/JSON
// marshalling conventions as the proof codec, wrapped in a tagged union
// via encoding/json + RawMessage.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/batched"
)

// Tag identifies which concrete payload an Envelope carries.
type Tag string

const (
	// TagChangelog carries a single-leaf CMT mutation (append or update).
	TagChangelog Tag = "V1"
	// TagIndexed carries an IMT insertion (a low-element update plus a
	// new-element append).
	TagIndexed Tag = "V2"
	// TagBatch carries a BMT zkp-batch root transition summary.
	TagBatch Tag = "V3"
)

// Envelope is the wire record every event is wrapped in; downstream
// indexers dispatch on Tag before unmarshalling Data into the matching
// concrete payload.
type Envelope struct {
	Tag    Tag             `json:"tag"`
	TreeID accumulator.Bytes32 `json:"treeId"`
	Data   json.RawMessage `json:"data"`
}

// ChangelogEvent is the V1 payload: one CMT changelog entry.
type ChangelogEvent struct {
	Root           accumulator.Bytes32   `json:"root"`
	Path           []accumulator.Bytes32 `json:"path"`
	LeafIndex      uint64                `json:"leafIndex"`
	SequenceNumber uint64                `json:"sequenceNumber"`
}

// IndexedEvent is the V2 payload: one IMT insertion.
type IndexedEvent struct {
	LowElementIndex uint64              `json:"lowElementIndex"`
	NewLowRoot      accumulator.Bytes32 `json:"newLowRoot"`
	NewElementIndex uint64              `json:"newElementIndex"`
	Root            accumulator.Bytes32 `json:"root"`
	SequenceNumber  uint64              `json:"sequenceNumber"`
}

// BatchEvent is the V3 payload: one BMT zkp-batch install.
type BatchEvent struct {
	BatchIndex     int                 `json:"batchIndex"`
	ZkpBatchIndex  int                 `json:"zkpBatchIndex"`
	NewRoot        accumulator.Bytes32 `json:"newRoot"`
	RootIndex      int                 `json:"rootIndex"`
	SequenceNumber uint64              `json:"sequenceNumber"`
	BatchSize      int                 `json:"batchSize"`
	// OldNextIndex/NewNextIndex differ only for append transitions
	// (output-queue and address installs); for state-input transitions
	// both carry the tree's unchanged next index.
	OldNextIndex uint64 `json:"oldNextIndex,omitempty"`
	NewNextIndex uint64 `json:"newNextIndex,omitempty"`
}

// EncodeChangelog wraps a ChangelogEvent in an Envelope tagged V1.
func EncodeChangelog(treeID accumulator.Bytes32, e ChangelogEvent) (*Envelope, error) {
	return encode(treeID, TagChangelog, e)
}

// EncodeIndexed wraps an IndexedEvent in an Envelope tagged V2.
func EncodeIndexed(treeID accumulator.Bytes32, e IndexedEvent) (*Envelope, error) {
	return encode(treeID, TagIndexed, e)
}

// EncodeBatch wraps a BatchEvent in an Envelope tagged V3.
func EncodeBatch(treeID accumulator.Bytes32, e BatchEvent) (*Envelope, error) {
	return encode(treeID, TagBatch, e)
}

// EncodeBatchInstall lifts the summary a successful InstallBatchRoot
// returns into its V3 wire record.
func EncodeBatchInstall(treeID accumulator.Bytes32, e *batched.InstallEvent) (*Envelope, error) {
	return encode(treeID, TagBatch, BatchEvent{
		BatchIndex:     e.BatchIndex,
		ZkpBatchIndex:  e.ZkpBatchIndex,
		NewRoot:        e.NewRoot,
		RootIndex:      e.RootIndex,
		SequenceNumber: e.SequenceNumber,
		BatchSize:      e.BatchSize,
		OldNextIndex:   e.OldNextIndex,
		NewNextIndex:   e.NewNextIndex,
	})
}

// ID derives a stable identifier for the record from its tag, tree, and
// payload bytes. Event IDs never enter a circuit, so they use a plain
// Keccak digest rather than a field-reduced hash.
func (e *Envelope) ID() accumulator.Bytes32 {
	data := make([]byte, 0, len(e.Tag)+len(e.TreeID)+len(e.Data))
	data = append(data, e.Tag...)
	data = append(data, e.TreeID[:]...)
	data = append(data, e.Data...)
	var id accumulator.Bytes32
	copy(id[:], crypto.Keccak256(data))
	return id
}

func encode(treeID accumulator.Bytes32, tag Tag, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Tag: tag, TreeID: treeID, Data: data}, nil
}

// Decode dispatches on env.Tag and returns the concrete payload as one of
// *ChangelogEvent, *IndexedEvent, or *BatchEvent.
func Decode(env *Envelope) (interface{}, error) {
	switch env.Tag {
	case TagChangelog:
		var e ChangelogEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		return &e, nil
	case TagIndexed:
		var e IndexedEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		return &e, nil
	case TagBatch:
		var e BatchEvent
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, err
		}
		return &e, nil
	default:
		return nil, fmt.Errorf("events: unknown tag %q", env.Tag)
	}
}

// Marshal serializes env to its JSON wire form.
func Marshal(env *Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Unmarshal parses an Envelope from its JSON wire form.
func Unmarshal(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
