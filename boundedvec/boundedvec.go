// Package boundedvec implements the zero-copy fixed-capacity containers
// every tree variant in this module is built on top of: a push-only bounded
// vector, an overwrite-oldest ring, and a typed slice view. BoundedVec and
// CyclicBoundedVec allocate their own storage of the requested capacity
// and take no external buffer. ZeroCopySlice is the one container laid over
// a caller-provided byte buffer; it validates that buffer's size against its
// declared capacity at construction, the safe-Go stand-in for raw-pointer
// casts into an account's bytes.
package boundedvec

import "github.com/lumenstate/accumulator"

// BoundedVec is a fixed-capacity, push-only, indexable container. It never
// grows past the capacity fixed at construction and never reallocates.
type BoundedVec[T any] struct {
	items    []T
	capacity int
}

// NewBoundedVec allocates a BoundedVec with the given capacity.
func NewBoundedVec[T any](capacity int) *BoundedVec[T] {
	return &BoundedVec[T]{items: make([]T, 0, capacity), capacity: capacity}
}

// Push appends a value, failing with ErrCapacityExceeded once full.
func (v *BoundedVec[T]) Push(item T) error {
	if len(v.items) >= v.capacity {
		return ErrCapacityExceeded
	}
	v.items = append(v.items, item)
	return nil
}

// Get returns the item at index i.
func (v *BoundedVec[T]) Get(i int) (T, error) {
	var zero T
	if i < 0 || i >= len(v.items) {
		return zero, accumulator.ErrInvalidIndex
	}
	return v.items[i], nil
}

// Set overwrites the item at index i; i must already be populated.
func (v *BoundedVec[T]) Set(i int, item T) error {
	if i < 0 || i >= len(v.items) {
		return accumulator.ErrInvalidIndex
	}
	v.items[i] = item
	return nil
}

// Len returns the number of populated items.
func (v *BoundedVec[T]) Len() int { return len(v.items) }

// Capacity returns the fixed capacity.
func (v *BoundedVec[T]) Capacity() int { return v.capacity }

// Last returns the most recently pushed item.
func (v *BoundedVec[T]) Last() (T, error) {
	var zero T
	if len(v.items) == 0 {
		return zero, accumulator.ErrInvalidIndex
	}
	return v.items[len(v.items)-1], nil
}

// All returns the populated items without copying the backing array.
func (v *BoundedVec[T]) All() []T { return v.items }
