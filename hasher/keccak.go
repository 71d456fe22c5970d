package hasher

import (
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/lumenstate/accumulator"
)

// KeccakHasher is a Keccak256 sparse-tree hash. It is not one of the two
// families used for in-circuit or event trees, but backs the reference
// golden-model tree (package reference) in the Keccak proof tests, whose
// roots are cross-checked against the independent sha3-based recomputation
// in package internal/simulator and against saved proof fixtures.
type KeccakHasher struct {
	zero *[Depth + 1]accumulator.Bytes32
}

// NewKeccakHasher builds a KeccakHasher with its empty-subtree cache
// precomputed.
func NewKeccakHasher() (*KeccakHasher, error) {
	h := &KeccakHasher{}
	zero, err := buildZeroBytes(h, accumulator.Bytes32{})
	if err != nil {
		return nil, err
	}
	h.zero = zero
	return h, nil
}

func (h *KeccakHasher) Hashv(inputs ...accumulator.Bytes32) (accumulator.Bytes32, error) {
	// Zero-zero stays zero: an empty subtree hashed with itself is still
	// empty, so untouched regions of a sparse tree never accrete hashes.
	if len(inputs) == 2 && inputs[0].IsZero() && inputs[1].IsZero() {
		return accumulator.Bytes32{}, nil
	}
	data := make([]byte, 0, 32*len(inputs))
	for _, in := range inputs {
		data = append(data, in[:]...)
	}
	sum := crypto.Keccak256(data)
	var out accumulator.Bytes32
	copy(out[:], sum)
	return out, nil
}

func (h *KeccakHasher) ZeroBytes() *[Depth + 1]accumulator.Bytes32 {
	return h.zero
}

func (h *KeccakHasher) Discriminator() uint8 { return DiscriminatorKeccak256 }
