package events

import (
	"testing"

	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/batched"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	treeID := accumulator.Bytes32{0x01}

	env, err := EncodeBatch(treeID, BatchEvent{
		BatchIndex:     0,
		ZkpBatchIndex:  1,
		NewRoot:        accumulator.Bytes32{0xAB},
		RootIndex:      3,
		SequenceNumber: 5,
		BatchSize:      8,
		OldNextIndex:   0,
		NewNextIndex:   8,
	})
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	if env.Tag != TagBatch {
		t.Fatalf("Tag = %v, want TagBatch", env.Tag)
	}

	wire, err := Marshal(env)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	decodedEnv, err := Unmarshal(wire)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	payload, err := Decode(decodedEnv)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	batchEvent, ok := payload.(*BatchEvent)
	if !ok {
		t.Fatalf("Decode returned %T, want *BatchEvent", payload)
	}
	if batchEvent.NewNextIndex != 8 || batchEvent.SequenceNumber != 5 {
		t.Fatalf("batchEvent = %+v, unexpected field values", batchEvent)
	}
}

func TestEncodeBatchInstall(t *testing.T) {
	treeID := accumulator.Bytes32{0x02}
	env, err := EncodeBatchInstall(treeID, &batched.InstallEvent{
		BatchIndex:     1,
		ZkpBatchIndex:  2,
		NewRoot:        accumulator.Bytes32{0xCD},
		RootIndex:      7,
		SequenceNumber: 9,
		BatchSize:      8,
		OldNextIndex:   8,
		NewNextIndex:   10,
	})
	if err != nil {
		t.Fatalf("EncodeBatchInstall: %v", err)
	}

	payload, err := Decode(env)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	e, ok := payload.(*BatchEvent)
	if !ok {
		t.Fatalf("Decode returned %T, want *BatchEvent", payload)
	}
	if e.BatchIndex != 1 || e.ZkpBatchIndex != 2 || e.NewNextIndex != 10 {
		t.Fatalf("decoded event = %+v, unexpected field values", e)
	}

	if env.ID().IsZero() {
		t.Fatalf("event ID is zero")
	}
	other, err := EncodeBatchInstall(accumulator.Bytes32{0x03}, &batched.InstallEvent{})
	if err != nil {
		t.Fatalf("EncodeBatchInstall: %v", err)
	}
	if env.ID() == other.ID() {
		t.Fatalf("distinct events share an ID")
	}
}

func TestDecodeUnknownTagFails(t *testing.T) {
	env := &Envelope{Tag: "V9", Data: []byte(`{}`)}
	if _, err := Decode(env); err == nil {
		t.Fatalf("Decode with unknown tag succeeded, want error")
	}
}
