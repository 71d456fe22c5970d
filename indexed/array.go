package indexed

import (
	"math/big"

	"github.com/lumenstate/accumulator"
)

// IndexedArray mirrors the sorted linked list the tree's leaves encode,
// kept in plain memory so lookups don't require walking hashed nodes.
type IndexedArray struct {
	elements []Element
}

func newIndexedArray() *IndexedArray {
	return &IndexedArray{}
}

// Len returns the number of elements, including both sentinels.
func (a *IndexedArray) Len() int { return len(a.elements) }

// Get returns a copy of the element at index i.
func (a *IndexedArray) Get(i uint64) (Element, error) {
	if i >= uint64(len(a.elements)) {
		return Element{}, &accumulator.OutOfRangeError{Index: int64(i)}
	}
	return a.elements[i].clone(), nil
}

func (a *IndexedArray) set(i uint64, e Element) {
	a.elements[i] = e
}

func (a *IndexedArray) push(e Element) uint64 {
	a.elements = append(a.elements, e)
	return uint64(len(a.elements) - 1)
}

// FindLowElementForNonexistent returns the index and value of the unique
// element low such that low.Value < x < low.NextValue, the predecessor x
// would be inserted after. Fails with ErrElementAlreadyExists if any
// element's value already equals x.
func (a *IndexedArray) FindLowElementForNonexistent(x *big.Int) (uint64, Element, error) {
	for i, e := range a.elements {
		if e.Value.Cmp(x) == 0 {
			return 0, Element{}, accumulator.ErrElementAlreadyExists
		}
		if e.Value.Cmp(x) < 0 && x.Cmp(e.NextValue) < 0 {
			return uint64(i), e.clone(), nil
		}
	}
	return 0, Element{}, accumulator.ErrElementDoesNotExist
}
