package boundedvec

import (
	"errors"
	"testing"

	"github.com/lumenstate/accumulator"
)

func TestBoundedVecPushToCapacity(t *testing.T) {
	v := NewBoundedVec[int](3)
	for i := 0; i < 3; i++ {
		if err := v.Push(i); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}
	if err := v.Push(3); err != ErrCapacityExceeded {
		t.Fatalf("Push past capacity = %v, want ErrCapacityExceeded", err)
	}
	if v.Len() != 3 || v.Capacity() != 3 {
		t.Fatalf("Len/Capacity = %d/%d, want 3/3", v.Len(), v.Capacity())
	}

	last, err := v.Last()
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if last != 2 {
		t.Fatalf("Last = %d, want 2", last)
	}

	if err := v.Set(1, 42); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := v.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 42 {
		t.Fatalf("Get(1) = %d, want 42", got)
	}
	if _, err := v.Get(3); err != accumulator.ErrInvalidIndex {
		t.Fatalf("Get(3) = %v, want ErrInvalidIndex", err)
	}
}

// Ring cyclicity: the element at
// (first_index + len - 1) mod capacity is the most recent one, both
// before the ring fills and after it wraps.
func TestCyclicBoundedVecWrapInvariant(t *testing.T) {
	r := NewCyclicBoundedVec[int](4)
	for i := 0; i < 7; i++ {
		r.Push(i)

		last, err := r.Last()
		if err != nil {
			t.Fatalf("Last after push %d: %v", i, err)
		}
		if last != i {
			t.Fatalf("Last = %d after push %d", last, i)
		}

		wrapped, err := r.Get(r.FirstIndex() + r.Len() - 1)
		if err != nil {
			t.Fatalf("Get(first+len-1) after push %d: %v", i, err)
		}
		if wrapped != last {
			t.Fatalf("ring[first+len-1 mod cap] = %d, want last %d", wrapped, last)
		}
	}

	// Seven pushes into capacity four: 0..2 overwritten, 3..6 retained.
	if r.Len() != 4 {
		t.Fatalf("Len = %d, want 4", r.Len())
	}
	oldest, err := r.Get(r.FirstIndex())
	if err != nil {
		t.Fatalf("Get(FirstIndex): %v", err)
	}
	if oldest != 3 {
		t.Fatalf("oldest retained = %d, want 3", oldest)
	}
}

func TestCyclicBoundedVecSetInPlace(t *testing.T) {
	r := NewCyclicBoundedVec[int](3)
	for i := 0; i < 3; i++ {
		r.Push(i)
	}
	r.Set(r.FirstIndex(), -1)
	got, err := r.Get(r.FirstIndex())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != -1 {
		t.Fatalf("Get(FirstIndex) = %d, want -1", got)
	}
	// Set must not move the cursor.
	last, _ := r.Last()
	if last != 2 {
		t.Fatalf("Last = %d after Set, want 2", last)
	}
}

type fixedU64 uint64

func (fixedU64) Size() int { return 8 }
func (f fixedU64) MarshalFixed(dst []byte) {
	v := uint64(f)
	for i := 0; i < 8; i++ {
		dst[7-i] = byte(v >> (8 * i))
	}
}
func (f *fixedU64) UnmarshalFixed(src []byte) error {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(src[i])
	}
	*f = fixedU64(v)
	return nil
}

func TestZeroCopySliceRoundTrip(t *testing.T) {
	buf := make([]byte, 4*8)
	s, err := NewZeroCopySlice("test", buf, 4, func() *fixedU64 { return new(fixedU64) })
	if err != nil {
		t.Fatalf("NewZeroCopySlice: %v", err)
	}

	want := fixedU64(0xDEADBEEF)
	if err := s.Set(2, &want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(2)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *got != want {
		t.Fatalf("Get(2) = %x, want %x", *got, want)
	}
	if _, err := s.Get(4); err != accumulator.ErrInvalidIndex {
		t.Fatalf("Get(4) = %v, want ErrInvalidIndex", err)
	}
}

func TestZeroCopySliceRejectsShortBuffer(t *testing.T) {
	_, err := NewZeroCopySlice("roots", make([]byte, 24), 4, func() *fixedU64 { return new(fixedU64) })
	if err == nil {
		t.Fatalf("NewZeroCopySlice with short buffer succeeded")
	}
	var sizeErr *accumulator.BufferSizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("error type = %T, want *BufferSizeError", err)
	}
	if sizeErr.Field != "roots" || sizeErr.Expected != 32 || sizeErr.Actual != 24 {
		t.Fatalf("BufferSizeError = %+v, want {roots 32 24}", sizeErr)
	}
}
