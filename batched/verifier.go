package batched

import (
	"encoding/binary"

	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/hasher"
)

// CompressedProof is the Groth16 proof in its on-chain-submitted
// compressed form: the prover service returns an
// uncompressed JSON proof; the off-chain client compresses it to these
// three fixed-size fields before submission.
type CompressedProof struct {
	A [64]byte
	B [128]byte
	C [64]byte
}

// Verifier is the external Groth16 verification predicate this engine
// treats as an opaque, total, blocking black box.
// It is never implemented inside this module; hosts supply a concrete
// implementation wired to their proving system.
type Verifier interface {
	VerifyBatchUpdate(batchSize int, publicInputHash accumulator.Bytes32, proof CompressedProof) error
	VerifyBatchAppendWithProofs(batchSize int, publicInputHash accumulator.Bytes32, proof CompressedProof) error
	VerifyBatchAddressUpdate(batchSize int, publicInputHash accumulator.Bytes32, proof CompressedProof) error
}

// beU64 big-endian-encodes v into the low bytes of a 32-byte field.
func beU64(v uint64) accumulator.Bytes32 {
	var b accumulator.Bytes32
	binary.BigEndian.PutUint64(b[24:], v)
	return b
}

// outputPublicInputHash computes H(old_root, new_root, leaves_hashchain,
// start_index_be) for an output (append) queue zkp-batch install.
func outputPublicInputHash(h hasher.Hasher, oldRoot, newRoot, leavesHashchain accumulator.Bytes32, startIndex uint64) (accumulator.Bytes32, error) {
	return h.Hashv(oldRoot, newRoot, leavesHashchain, beU64(startIndex))
}

// stateInputPublicInputHash computes H(old_root, new_root,
// leaves_hashchain) for an input queue (nullifier) zkp-batch install on a
// state tree.
func stateInputPublicInputHash(h hasher.Hasher, oldRoot, newRoot, leavesHashchain accumulator.Bytes32) (accumulator.Bytes32, error) {
	return h.Hashv(oldRoot, newRoot, leavesHashchain)
}

// addressInputPublicInputHash computes H(old_root, new_root,
// leaves_hashchain, next_index_be) for an input queue (address) zkp-batch
// install on an address tree.
func addressInputPublicInputHash(h hasher.Hasher, oldRoot, newRoot, leavesHashchain accumulator.Bytes32, nextIndex uint64) (accumulator.Bytes32, error) {
	return h.Hashv(oldRoot, newRoot, leavesHashchain, beU64(nextIndex))
}
