package boundedvec

import "github.com/lumenstate/accumulator"

// Fixed is implemented by plain-data types with a fixed marshalled size and
// no heap pointers, the Go stand-in for a Pod/repr(C) constraint.
type Fixed interface {
	Size() int
	MarshalFixed(dst []byte)
	UnmarshalFixed(src []byte) error
}

// ZeroCopySlice is a typed view over n*elemSize aligned bytes. The buffer
// carries no length prefix or header: the element count is the capacity
// fixed at construction. It never allocates beyond the provided buffer;
// every read decodes a fixed-size element in place.
type ZeroCopySlice[T Fixed] struct {
	buf      []byte
	elemSize int
	length   int
	newElem  func() T
}

// NewZeroCopySlice validates buf against capacity*elemSize and returns a
// view over its first capacity*elemSize bytes. If buf is shorter than
// capacity*elemSize it fails with a BufferSizeError naming the field; a
// longer buffer is accepted and its tail ignored.
func NewZeroCopySlice[T Fixed](field string, buf []byte, capacity int, newElem func() T) (*ZeroCopySlice[T], error) {
	var probe T
	if newElem != nil {
		probe = newElem()
	}
	elemSize := probe.Size()
	expected := capacity * elemSize
	if len(buf) < expected {
		return nil, &accumulator.BufferSizeError{Field: field, Expected: expected, Actual: len(buf)}
	}
	return &ZeroCopySlice[T]{buf: buf[:expected], elemSize: elemSize, length: capacity, newElem: newElem}, nil
}

// Len returns the number of elements the view covers.
func (z *ZeroCopySlice[T]) Len() int { return z.length }

// Get decodes and returns the element at index i.
func (z *ZeroCopySlice[T]) Get(i int) (T, error) {
	var zero T
	if i < 0 || i >= z.length {
		return zero, accumulator.ErrInvalidIndex
	}
	elem := z.newElem()
	off := i * z.elemSize
	if err := elem.UnmarshalFixed(z.buf[off : off+z.elemSize]); err != nil {
		return zero, err
	}
	return elem, nil
}

// Set encodes item into slot i in place.
func (z *ZeroCopySlice[T]) Set(i int, item T) error {
	if i < 0 || i >= z.length {
		return accumulator.ErrInvalidIndex
	}
	off := i * z.elemSize
	item.MarshalFixed(z.buf[off : off+z.elemSize])
	return nil
}
