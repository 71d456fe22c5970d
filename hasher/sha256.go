package hasher

import (
	"crypto/sha256"
	"math/big"

	"github.com/lumenstate/accumulator"
)

// SHA256Hasher is the generic, non-field-specific hash family used for
// event-only side trees that never enter a ZK circuit. Its output is still
// reduced modulo the BN254 scalar field so every node value satisfies the
// same "canonical scalar" contract regardless of which hasher produced it.
type SHA256Hasher struct {
	zero *[Depth + 1]accumulator.Bytes32
}

// NewSHA256Hasher builds a SHA256Hasher with its empty-subtree cache
// precomputed.
func NewSHA256Hasher() (*SHA256Hasher, error) {
	h := &SHA256Hasher{}
	zero, err := buildZeroBytes(h, accumulator.Bytes32{})
	if err != nil {
		return nil, err
	}
	h.zero = zero
	return h, nil
}

// Hashv hashes the inputs, which must all be canonical scalars; a value
// at or above the modulus fails with ErrInputLargerThanField rather
// than being reduced. Only the digest is field-reduced.
func (h *SHA256Hasher) Hashv(inputs ...accumulator.Bytes32) (accumulator.Bytes32, error) {
	if err := validateFieldInputs(inputs); err != nil {
		return accumulator.Bytes32{}, err
	}
	d := sha256.New()
	for _, in := range inputs {
		d.Write(in[:])
	}
	sum := d.Sum(nil)
	v := new(big.Int).SetBytes(sum)
	v.Mod(v, BN254FieldModulus)
	return accumulator.BigIntToBytes32(v), nil
}

func (h *SHA256Hasher) ZeroBytes() *[Depth + 1]accumulator.Bytes32 {
	return h.zero
}

func (h *SHA256Hasher) Discriminator() uint8 { return DiscriminatorSHA256 }
