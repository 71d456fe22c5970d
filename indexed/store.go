package indexed

import (
	"encoding/hex"

	"github.com/lumenstate/accumulator"
)

const nodePrefix = "n:"

func (t *Tree) getNode(hash accumulator.Bytes32) (*accumulator.Node, error) {
	data, err := t.db.Get([]byte(nodePrefix + hex.EncodeToString(hash[:])))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &accumulator.Node{}, nil
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
