package indexed

import (
	"math/big"
	"sync"

	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/hasher"
	"github.com/lumenstate/accumulator/merkleproof"
)

// Tree is an indexed Merkle tree: a bounded-height Merkle tree whose
// leaves are Element hashes, paired with an IndexedArray mirror of the
// sorted linked list those leaves encode.
type Tree struct {
	db    accumulator.Database
	h     hasher.Hasher
	root  accumulator.Bytes32
	depth uint16

	sequenceNumber uint64

	array *IndexedArray

	mu sync.RWMutex
}

// New builds and initializes an indexed Merkle tree, seeding the two
// sentinel elements every non-membership proof is eventually anchored
// against: a low sentinel {0, 1, fieldMax} at index 0, and a high
// sentinel {fieldMax, 0, 0} at index 1.
func New(db accumulator.Database, depth uint16, h hasher.Hasher) (*Tree, error) {
	if db == nil {
		return nil, accumulator.ErrNilDatabase
	}
	if h == nil {
		return nil, accumulator.ErrNilHasher
	}
	if depth == 0 || int(depth) > hasher.Depth {
		return nil, &InvalidDepthError{Depth: depth}
	}

	t := &Tree{db: db, h: h, depth: depth, array: newIndexedArray()}
	if err := t.init(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree) init() error {
	low := Element{Value: big.NewInt(0), NextIndex: 1, NextValue: new(big.Int).Set(fieldMax)}
	high := Element{Value: new(big.Int).Set(fieldMax), NextIndex: 0, NextValue: big.NewInt(0)}

	lowHash, err := low.hash(t.h)
	if err != nil {
		return err
	}
	if err := t.setLeaf(0, lowHash); err != nil {
		return err
	}
	t.array.push(low)

	highHash, err := high.hash(t.h)
	if err != nil {
		return err
	}
	if err := t.setLeaf(1, highHash); err != nil {
		return err
	}
	t.array.push(high)

	return nil
}

// Root returns the current root.
func (t *Tree) Root() accumulator.Bytes32 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Depth returns the tree height.
func (t *Tree) Depth() uint16 { return t.depth }

// SequenceNumber returns the number of root transitions since New,
// counting the two sentinel writes. Each Insert advances it by 2: one
// low-element update plus one append.
func (t *Tree) SequenceNumber() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sequenceNumber
}

// NextIndex returns the next free leaf position.
func (t *Tree) NextIndex() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(t.array.Len())
}

// Element returns a copy of the list element stored at index.
func (t *Tree) Element(index uint64) (Element, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.array.Get(index)
}

// FindLowElementForNonexistent locates the predecessor x would be
// inserted after, failing with ErrElementAlreadyExists if x is already
// present.
func (t *Tree) FindLowElementForNonexistent(x *big.Int) (uint64, Element, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.array.FindLowElementForNonexistent(x)
}

// NewElementWithLowElementIndex derives the updated low element and the
// new element to append, without mutating any state.
func (t *Tree) NewElementWithLowElementIndex(lowIndex uint64, x *big.Int) (newLow Element, newElement Element, newIndex uint64, err error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	low, err := t.array.Get(lowIndex)
	if err != nil {
		return Element{}, Element{}, 0, err
	}

	newIndex = uint64(t.array.Len())
	newLow = Element{Value: low.Value, NextIndex: newIndex, NextValue: x}
	newElement = Element{Value: x, NextIndex: low.NextIndex, NextValue: low.NextValue}
	return newLow, newElement, newIndex, nil
}

// Insert finds x's predecessor, updates the low element's next pointer,
// appends x as a new element, and mirrors both mutations into the
// IndexedArray, all under one lock so the tree and the array never
// observe an intermediate state.
func (t *Tree) Insert(x *big.Int) (*UpdateResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	lowIndex, low, err := t.array.FindLowElementForNonexistent(x)
	if err != nil {
		return nil, err
	}

	newIndex := uint64(t.array.Len())
	newLow := Element{Value: low.Value, NextIndex: newIndex, NextValue: x}
	newElement := Element{Value: x, NextIndex: low.NextIndex, NextValue: low.NextValue}

	newLowHash, err := newLow.hash(t.h)
	if err != nil {
		return nil, err
	}
	if err := t.setLeaf(lowIndex, newLowHash); err != nil {
		return nil, err
	}

	newElementHash, err := newElement.hash(t.h)
	if err != nil {
		return nil, err
	}
	if err := t.setLeaf(newIndex, newElementHash); err != nil {
		return nil, err
	}

	t.array.set(lowIndex, newLow)
	t.array.push(newElement)

	return &UpdateResult{
		LowElementIndex: lowIndex,
		NewLowElement:   newLow,
		NewElementIndex: newIndex,
		NewElement:      newElement,
		Root:            t.root,
	}, nil
}

// UpdateResult reports the state produced by Insert: the updated low
// element, the freshly appended element, and the root after both leaves
// were written.
type UpdateResult struct {
	LowElementIndex uint64
	NewLowElement   Element
	NewElementIndex uint64
	NewElement      Element
	Root            accumulator.Bytes32
}

// ProofOfLeaf returns the inclusion proof for the element currently
// stored at index.
func (t *Tree) ProofOfLeaf(index uint64) (*accumulator.Proof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.get(index)
}

// VerifyProof checks proof against the tree's current root.
func (t *Tree) VerifyProof(proof *accumulator.Proof) (bool, error) {
	t.mu.RLock()
	root, depth := t.root, t.depth
	t.mu.RUnlock()
	return merkleproof.VerifyProof(t.h, root, depth, proof)
}

func (t *Tree) validateIndex(index uint64) error {
	if t.depth < hasher.Depth {
		max := uint64(1) << t.depth
		if index >= max {
			return &accumulator.OutOfRangeError{Index: int64(index), TreeDepth: t.depth}
		}
	}
	return nil
}

func (t *Tree) get(index uint64) (*accumulator.Proof, error) {
	if err := t.validateIndex(index); err != nil {
		return nil, err
	}

	bigIndex := new(big.Int).SetUint64(index)
	enables := big.NewInt(0)
	siblings := make([]accumulator.Bytes32, 0, t.depth)
	current := t.root

	for i := int(t.depth) - 1; i >= 0; i-- {
		if current.IsZero() {
			break
		}
		node, err := t.getNode(current)
		if err != nil {
			return nil, err
		}
		if node.IsEmpty() {
			break
		}

		bit := accumulator.GetBit(bigIndex, uint(i))
		var sibling accumulator.Bytes32
		if bit == 0 {
			sibling = node.Right
			current = node.Left
		} else {
			sibling = node.Left
			current = node.Right
		}
		if !sibling.IsZero() {
			siblings = append([]accumulator.Bytes32{sibling}, siblings...)
			enables = accumulator.SetBit(enables, uint(i), 1)
		}
	}

	exists := uint64(t.array.Len()) > index
	return &accumulator.Proof{
		Exists: exists, Leaf: current, Value: current,
		Index: bigIndex, Enables: enables, Siblings: siblings,
	}, nil
}

// setLeaf writes leafHash at index, recomputing the path to the root
// exactly like the reference tree's upsert, reusing the previous proof's
// siblings to avoid re-walking already-empty subtrees.
func (t *Tree) setLeaf(index uint64, leafHash accumulator.Bytes32) error {
	if err := t.validateIndex(index); err != nil {
		return err
	}

	oldProof, err := t.get(index)
	if err != nil {
		return err
	}

	bigIndex := new(big.Int).SetUint64(index)
	current := leafHash
	siblingIndex := 0

	for i := uint(0); i < uint(t.depth); i++ {
		bit := accumulator.GetBit(bigIndex, i)

		var sibling accumulator.Bytes32
		if accumulator.GetBit(oldProof.Enables, i) == 1 && siblingIndex < len(oldProof.Siblings) {
			sibling = oldProof.Siblings[siblingIndex]
			siblingIndex++
		}

		node := &accumulator.Node{}
		if bit == 0 {
			node.Left, node.Right = current, sibling
		} else {
			node.Left, node.Right = sibling, current
		}

		parent, err := t.h.Hashv(node.Left, node.Right)
		if err != nil {
			return err
		}
		if !node.Left.IsZero() || !node.Right.IsZero() {
			if err := t.setNode(parent, node); err != nil {
				return err
			}
		}
		current = parent
	}

	t.root = current
	t.sequenceNumber++
	return nil
}

// InvalidDepthError reports a depth outside (0, hasher.Depth].
type InvalidDepthError struct {
	Depth uint16
}

func (e *InvalidDepthError) Error() string {
	return "indexed: invalid tree depth"
}
