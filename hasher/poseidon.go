package hasher

import (
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/lumenstate/accumulator"
)

// PoseidonHasher is the in-circuit hash family: Poseidon over the BN254
// scalar field, as required for every root a ZK circuit must re-derive.
type PoseidonHasher struct {
	zero *[Depth + 1]accumulator.Bytes32
}

// NewPoseidonHasher builds a PoseidonHasher with its empty-subtree cache
// precomputed.
func NewPoseidonHasher() (*PoseidonHasher, error) {
	h := &PoseidonHasher{}
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
func (h *PoseidonHasher) Hashv(inputs ...accumulator.Bytes32) (accumulator.Bytes32, error) {
	if err := validateFieldInputs(inputs); err != nil {
		return accumulator.Bytes32{}, err
	}
	ints := make([]*big.Int, len(inputs))
	for i, in := range inputs {
		ints[i] = new(big.Int).SetBytes(in[:])
	}
	out, err := poseidon.Hash(ints)
	if err != nil {
		return accumulator.Bytes32{}, err
	}
	out.Mod(out, BN254FieldModulus)
	return accumulator.BigIntToBytes32(out), nil
}

func (h *PoseidonHasher) ZeroBytes() *[Depth + 1]accumulator.Bytes32 {
	return h.zero
}

func (h *PoseidonHasher) Discriminator() uint8 { return DiscriminatorPoseidon }
