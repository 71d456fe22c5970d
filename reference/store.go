package reference

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/lumenstate/accumulator"
)

// LeafData is the raw (index, value) pair stored behind a leaf hash.
type LeafData struct {
	Index *big.Int
	Value accumulator.Bytes32
}

// Database key prefixes distinguishing node, leaf, and index records sharing
// one flat key space.
const (
	nodePrefix      = "n:"
	leafPrefix      = "l:"
	leafIndexPrefix = "i:"
)

func (t *Tree) getNode(hash accumulator.Bytes32) (*accumulator.Node, error) {
	data, err := t.db.Get([]byte(nodePrefix + hex.EncodeToString(hash[:])))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &accumulator.Node{}, nil
	}
	if len(data) != 64 {
		return nil, fmt.Errorf("reference: invalid node data length: expected 64, got %d", len(data))
	}
	node := &accumulator.Node{}
	copy(node.Left[:], data[0:32])
	copy(node.Right[:], data[32:64])
	return node, nil
}

func (t *Tree) setNode(hash accumulator.Bytes32, node *accumulator.Node) error {
	data := append(append([]byte{}, node.Left[:]...), node.Right[:]...)
	return t.db.Set([]byte(nodePrefix+hex.EncodeToString(hash[:])), data)
}

func (t *Tree) getLeaf(hash accumulator.Bytes32) (*LeafData, error) {
	data, err := t.db.Get([]byte(leafPrefix + hex.EncodeToString(hash[:])))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 32 {
		return nil, fmt.Errorf("reference: invalid leaf data length: expected at least 32, got %d", len(data))
	}
	var value accumulator.Bytes32
	copy(value[:], data[0:32])
	index := new(big.Int).SetBytes(data[32:])
	return &LeafData{Index: index, Value: value}, nil
}

func (t *Tree) setLeaf(hash accumulator.Bytes32, leaf *LeafData) error {
	indexBytes := leaf.Index.Bytes()
	data := append(append([]byte{}, leaf.Value[:]...), indexBytes...)
	if err := t.db.Set([]byte(leafPrefix+hex.EncodeToString(hash[:])), data); err != nil {
		return err
	}
	return t.db.Set([]byte(leafIndexPrefix+hex.EncodeToString(indexBytes)), hash[:])
}

func (t *Tree) deleteLeaf(hash accumulator.Bytes32) error {
	leaf, err := t.getLeaf(hash)
	if err != nil {
		return err
	}
	if leaf != nil {
		if err := t.db.Delete([]byte(leafIndexPrefix + hex.EncodeToString(leaf.Index.Bytes()))); err != nil {
			return err
		}
	}
	return t.db.Delete([]byte(leafPrefix + hex.EncodeToString(hash[:])))
}

func (t *Tree) getLeafByIndex(index *big.Int) (accumulator.Bytes32, error) {
	data, err := t.db.Get([]byte(leafIndexPrefix + hex.EncodeToString(index.Bytes())))
	if err != nil {
		return accumulator.Bytes32{}, err
	}
	if len(data) != 32 {
		return accumulator.Bytes32{}, nil
	}
	var hash accumulator.Bytes32
	copy(hash[:], data)
	return hash, nil
}
