// Package hasher defines the pluggable domain-separated hashing abstraction
// shared by every tree variant: the concurrent tree, the batched tree, the
// indexed tree, and the reference golden model.
package hasher

import (
	"math/big"

	"github.com/lumenstate/accumulator"
)

// Depth is the maximum supported tree height; ZeroBytes caches one
// empty-subtree root per level up to this depth.
const Depth = 40

// BN254FieldModulus is the scalar field every node value is a canonical
// big-endian representative of, regardless of which Hasher produced it.
// Shared by the Poseidon hasher and by the indexed tree / hash-set, which
// both need the field's top element as a sentinel "infinity" value.
var BN254FieldModulus, _ = new(big.Int).SetString(
	"21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

// Hasher is a domain-separated hash family. Two field-reducing families
// ship: Poseidon (in-circuit roots) and SHA-256 (event-only side trees). A
// third, Keccak, returns raw digests without field reduction; it backs the
// reference tree in the Keccak proof tests, whose roots are cross-checked
// against the independent recomputation in package internal/simulator.
type Hasher interface {
	// Hashv hashes an arbitrary number of 32-byte inputs into a single
	// 32-byte output, canonical and field-reduced for Poseidon and SHA-256.
	Hashv(inputs ...accumulator.Bytes32) (accumulator.Bytes32, error)

	// ZeroBytes returns the precomputed empty-subtree root for each level,
	// indexed so that ZeroBytes()[0] is the empty leaf and ZeroBytes()[i] is
	// the root of an empty subtree of height i.
	ZeroBytes() *[Depth + 1]accumulator.Bytes32

	// Discriminator identifies the hash family on the wire.
	Discriminator() uint8
}

const (
	DiscriminatorPoseidon uint8 = iota + 1
	DiscriminatorSHA256
	DiscriminatorKeccak256
)

// validateFieldInputs rejects any input that is not a canonical scalar.
// The field-constrained families never coerce: two inputs differing only
// above the modulus must not hash identically, so out-of-range values
// fail with ErrInputLargerThanField instead of being reduced.
func validateFieldInputs(inputs []accumulator.Bytes32) error {
	for _, in := range inputs {
		if new(big.Int).SetBytes(in[:]).Cmp(BN254FieldModulus) >= 0 {
			return accumulator.ErrInputLargerThanField
		}
	}
	return nil
}

// buildZeroBytes derives the empty-subtree cache for a hasher by repeatedly
// hashing the empty leaf with itself, the way every variant in this package
// does at construction time.
func buildZeroBytes(h Hasher, emptyLeaf accumulator.Bytes32) (*[Depth + 1]accumulator.Bytes32, error) {
	var zero [Depth + 1]accumulator.Bytes32
	zero[0] = emptyLeaf
	for i := 1; i <= Depth; i++ {
		next, err := h.Hashv(zero[i-1], zero[i-1])
		if err != nil {
			return nil, err
		}
		zero[i] = next
	}
	return &zero, nil
}
