// Command generate_test_data produces golden proof vectors for the
// sparse reference Merkle tree: it builds a small tree, inserts random
// leaves, and dumps every proof as an internal/vectors fixture.
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/hasher"
	"github.com/lumenstate/accumulator/internal/vectors"
	"github.com/lumenstate/accumulator/reference"
)

func main() {
	depth := flag.Uint("depth", 4, "tree depth")
	count := flag.Uint("count", 4, "number of leaves to insert")
	out := flag.String("out", "testdata/proof_vectors.json", "output path")
	flag.Parse()

	h, err := hasher.NewPoseidonHasher()
	if err != nil {
		fatal(err)
	}

	db := accumulator.NewInMemoryDatabase()
	tree, err := reference.New(db, uint16(*depth), h)
	if err != nil {
		fatal(err)
	}

	leaves := make([]accumulator.Bytes32, *count)
	for i := range leaves {
		var b [32]byte
		if _, err := rand.Read(b[:]); err != nil {
			fatal(err)
		}
		// Clear the top bits so every leaf is a canonical scalar; the
		// hasher rejects values at or above the field modulus.
		b[0] &= 0x0F
		leaves[i] = accumulator.Bytes32(b)
	}

	for _, leaf := range leaves {
		if _, err := tree.Append(leaf); err != nil {
			fatal(err)
		}
	}

	vecs := make([]vectors.ProofVector, len(leaves))
	for i := range leaves {
		proof, err := tree.ProofOfLeaf(big.NewInt(int64(i)))
		if err != nil {
			fatal(err)
		}
		siblings := make([]string, len(proof.Siblings))
		for j, s := range proof.Siblings {
			siblings[j] = s.String()
		}
		vecs[i] = vectors.ProofVector{
			TreeDepth: uint16(*depth),
			Leaf:      proof.Leaf.String(),
			Index:     accumulator.SerializeBigInt(proof.Index),
			Enables:   accumulator.SerializeBigInt(proof.Enables),
			Siblings:  siblings,
			Expected:  tree.Root().String(),
		}
	}

	if err := vectors.Save(*out, vecs); err != nil {
		fatal(err)
	}
	fmt.Printf("wrote %d proof vectors to %s (root %s)\n", len(vecs), *out, tree.Root())
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
