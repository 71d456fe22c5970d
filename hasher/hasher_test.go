package hasher

import (
	"math/big"
	"testing"

	"github.com/lumenstate/accumulator"
)

func allHashers(t *testing.T) map[string]Hasher {
	t.Helper()
	poseidon, err := NewPoseidonHasher()
	if err != nil {
		t.Fatalf("NewPoseidonHasher: %v", err)
	}
	sha, err := NewSHA256Hasher()
	if err != nil {
		t.Fatalf("NewSHA256Hasher: %v", err)
	}
	keccak, err := NewKeccakHasher()
	if err != nil {
		t.Fatalf("NewKeccakHasher: %v", err)
	}
	return map[string]Hasher{"poseidon": poseidon, "sha256": sha, "keccak": keccak}
}

func TestZeroBytesChain(t *testing.T) {
	for name, h := range allHashers(t) {
		t.Run(name, func(t *testing.T) {
			zero := h.ZeroBytes()
			for i := 1; i <= Depth; i++ {
				want, err := h.Hashv(zero[i-1], zero[i-1])
				if err != nil {
					t.Fatalf("Hashv at level %d: %v", i, err)
				}
				if zero[i] != want {
					t.Fatalf("zero[%d] = %x, want H(zero[%d], zero[%d]) = %x", i, zero[i], i-1, i-1, want)
				}
			}
		})
	}
}

func TestHashvDeterministicAndOrderSensitive(t *testing.T) {
	a := accumulator.Bytes32{31: 1}
	b := accumulator.Bytes32{31: 2}

	for name, h := range allHashers(t) {
		t.Run(name, func(t *testing.T) {
			first, err := h.Hashv(a, b)
			if err != nil {
				t.Fatalf("Hashv: %v", err)
			}
			second, err := h.Hashv(a, b)
			if err != nil {
				t.Fatalf("Hashv: %v", err)
			}
			if first != second {
				t.Fatalf("Hashv not deterministic: %x vs %x", first, second)
			}
			swapped, err := h.Hashv(b, a)
			if err != nil {
				t.Fatalf("Hashv: %v", err)
			}
			if swapped == first {
				t.Fatalf("Hashv(a,b) == Hashv(b,a), expected order sensitivity")
			}
		})
	}
}

// The two field-constrained families must only emit canonical scalars,
// and must reject non-canonical inputs rather than reduce them: two
// inputs differing only above the modulus would otherwise hash
// identically.
func TestFieldConstrainedFamilies(t *testing.T) {
	valid := accumulator.Bytes32{31: 7}
	tooLarge := accumulator.BigIntToBytes32(BN254FieldModulus) // modulus itself, first invalid value
	var maxed accumulator.Bytes32
	for i := range maxed {
		maxed[i] = 0xFF
	}

	for _, name := range []string{"poseidon", "sha256"} {
		h := allHashers(t)[name]
		t.Run(name, func(t *testing.T) {
			out, err := h.Hashv(valid, valid)
			if err != nil {
				t.Fatalf("Hashv(valid): %v", err)
			}
			if accumulator.Bytes32ToBigInt(out).Cmp(BN254FieldModulus) >= 0 {
				t.Fatalf("output %x is not a canonical scalar", out)
			}

			for _, bad := range []accumulator.Bytes32{tooLarge, maxed} {
				if _, err := h.Hashv(valid, bad); err != accumulator.ErrInputLargerThanField {
					t.Fatalf("Hashv(non-canonical %x) = %v, want ErrInputLargerThanField", bad[:4], err)
				}
			}
		})
	}
}

func TestKeccakEmptyPairStaysEmpty(t *testing.T) {
	h, err := NewKeccakHasher()
	if err != nil {
		t.Fatalf("NewKeccakHasher: %v", err)
	}
	out, err := h.Hashv(accumulator.Bytes32{}, accumulator.Bytes32{})
	if err != nil {
		t.Fatalf("Hashv: %v", err)
	}
	if !out.IsZero() {
		t.Fatalf("H(0,0) = %x, want zero (untouched empty subtree)", out)
	}
	if !h.ZeroBytes()[Depth].IsZero() {
		t.Fatalf("keccak empty-subtree roots should collapse to zero at every level")
	}
}

func TestDiscriminatorsDistinct(t *testing.T) {
	seen := map[uint8]string{}
	for name, h := range allHashers(t) {
		d := h.Discriminator()
		if prev, ok := seen[d]; ok {
			t.Fatalf("%s and %s share discriminator %d", prev, name, d)
		}
		seen[d] = name
	}
}

func TestModulusMatchesCurveOrder(t *testing.T) {
	want, ok := new(big.Int).SetString(
		"21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	if !ok || BN254FieldModulus.Cmp(want) != 0 {
		t.Fatalf("BN254FieldModulus mismatch")
	}
}
