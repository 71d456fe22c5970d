package accumulator

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// SerializeProof converts a Proof to its serialized, JSON-friendly format.
func SerializeProof(proof *Proof) *SerializedProof {
	siblings := make([]string, len(proof.Siblings))
	for i, sibling := range proof.Siblings {
		siblings[i] = sibling.String()
	}

	exists := uint8(0)
	if proof.Exists {
		exists = 1
	}

	return &SerializedProof{
		Exists:   exists,
		Index:    proof.Index,
		Leaf:     proof.Leaf.String(),
		Value:    proof.Value.String(),
		Enables:  fmt.Sprintf("0x%x", proof.Enables),
		Siblings: siblings,
	}
}

// DeserializeProof converts a SerializedProof back into a Proof.
func DeserializeProof(sp *SerializedProof) (*Proof, error) {
	leaf, err := NewBytes32FromHex(sp.Leaf)
	if err != nil {
		return nil, fmt.Errorf("invalid leaf hex: %w", err)
	}
	value, err := NewBytes32FromHex(sp.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid value hex: %w", err)
	}

	enablesHex := strings.TrimPrefix(sp.Enables, "0x")
	enables := new(big.Int)
	if _, ok := enables.SetString(enablesHex, 16); !ok {
		return nil, fmt.Errorf("invalid enables hex: %s", sp.Enables)
	}

	siblings := make([]Bytes32, len(sp.Siblings))
	for i, siblingHex := range sp.Siblings {
		sibling, err := NewBytes32FromHex(siblingHex)
		if err != nil {
			return nil, fmt.Errorf("invalid sibling hex at index %d: %w", i, err)
		}
		siblings[i] = sibling
	}

	return &Proof{
		Exists:   sp.Exists != 0,
		Index:    sp.Index,
		Leaf:     leaf,
		Value:    value,
		Enables:  enables,
		Siblings: siblings,
	}, nil
}

// SerializeUpdateProof converts an UpdateProof to its serialized format.
func SerializeUpdateProof(proof *UpdateProof) *SerializedUpdateProof {
	siblings := make([]string, len(proof.Siblings))
	for i, sibling := range proof.Siblings {
		siblings[i] = sibling.String()
	}

	exists := uint8(0)
	if proof.Exists {
		exists = 1
	}

	return &SerializedUpdateProof{
		Exists:   exists,
		Index:    proof.Index,
		Leaf:     proof.Leaf.String(),
		Value:    proof.Value.String(),
		Enables:  fmt.Sprintf("0x%x", proof.Enables),
		Siblings: siblings,
		NewLeaf:  proof.NewLeaf.String(),
	}
}

// DeserializeUpdateProof converts a SerializedUpdateProof back into an
// UpdateProof.
func DeserializeUpdateProof(sup *SerializedUpdateProof) (*UpdateProof, error) {
	base := &SerializedProof{
		Exists: sup.Exists, Index: sup.Index, Leaf: sup.Leaf,
		Value: sup.Value, Enables: sup.Enables, Siblings: sup.Siblings,
	}
	proof, err := DeserializeProof(base)
	if err != nil {
		return nil, err
	}

	newLeaf, err := NewBytes32FromHex(sup.NewLeaf)
	if err != nil {
		return nil, fmt.Errorf("invalid new leaf hex: %w", err)
	}

	return &UpdateProof{
		Exists: proof.Exists, Index: proof.Index, Leaf: proof.Leaf,
		Value: proof.Value, Enables: proof.Enables, Siblings: proof.Siblings,
		NewLeaf: newLeaf,
	}, nil
}

// ProofToJSON converts a proof to a generic JSON-friendly map, matching the
// wire shape the prover service expects for client-side inclusion and
// non-inclusion requests.
func ProofToJSON(proof *Proof) map[string]interface{} {
	siblings := make([]string, len(proof.Siblings))
	for i, s := range proof.Siblings {
		siblings[i] = s.String()
	}

	return map[string]interface{}{
		"exists":   proof.Exists,
		"index":    proof.Index.String(),
		"leaf":     proof.Leaf.String(),
		"value":    proof.Value.String(),
		"enables":  fmt.Sprintf("0x%x", proof.Enables),
		"siblings": siblings,
	}
}

// UpdateProofToJSON converts an update proof to a JSON-friendly map.
func UpdateProofToJSON(proof *UpdateProof) map[string]interface{} {
	base := ProofToJSON(&Proof{
		Exists: proof.Exists, Index: proof.Index, Leaf: proof.Leaf,
		Value: proof.Value, Enables: proof.Enables, Siblings: proof.Siblings,
	})
	base["newLeaf"] = proof.NewLeaf.String()
	return base
}

// ParseHex parses a hex string with or without a 0x prefix.
func ParseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

// FormatHex formats bytes as a hex string with a 0x prefix.
func FormatHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// SerializeBigInt serializes a big.Int to a hex string.
func SerializeBigInt(value *big.Int) string {
	if value == nil {
		return "0x0"
	}
	return fmt.Sprintf("0x%x", value)
}

// DeserializeBigInt deserializes a hex string to a big.Int.
func DeserializeBigInt(s string) (*big.Int, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return big.NewInt(0), nil
	}
	value := new(big.Int)
	if _, ok := value.SetString(s, 16); !ok {
		return nil, fmt.Errorf("invalid big int hex: 0x%s", s)
	}
	return value, nil
}

// SerializedProof is the wire format of a Proof.
type SerializedProof struct {
	Exists   uint8    `json:"exists"`
	Index    *big.Int `json:"index"`
	Leaf     string   `json:"leaf"`
	Value    string   `json:"value"`
	Enables  string   `json:"enables"`
	Siblings []string `json:"siblings"`
}

// SerializedUpdateProof is the wire format of an UpdateProof.
type SerializedUpdateProof struct {
	Exists   uint8    `json:"exists"`
	Index    *big.Int `json:"index"`
	Leaf     string   `json:"leaf"`
	Value    string   `json:"value"`
	Enables  string   `json:"enables"`
	Siblings []string `json:"siblings"`
	NewLeaf  string   `json:"newLeaf"`
}
