package accumulator

import (
	"errors"
	"fmt"
)

// Stable error codes surfaced to the host. These never get renumbered once
// shipped; new kinds append.
const (
	codeBufferSize uint32 = 1000 + iota
	codeInvalidAccountSize
	codeInvalidTreeType
	codeInvalidQueueType
	codeTreeIsFull
	codeInvalidProof
	codeInvalidProofLength
	codeCannotUpdateEmpty
	codeLeafAlreadyUpdated
	codeElementAlreadyExists
	codeElementDoesNotExist
	codeHashSetFull
	codeInvalidIndex
	codeInvalidBatchIndex
	codeIntegerOverflow
	codeTreeAndQueueNotAssociated
	codeInputLargerThanField
)

// Sentinel errors for parameterless conditions.
var (
	ErrInvalidTreeType                = errors.New("invalid tree type for this operation")
	ErrInvalidQueueType                = errors.New("invalid queue type for this operation")
	ErrTreeIsFull                      = errors.New("tree is full, rollover required")
	ErrTreeFull                        = errors.New("tree is full")
	ErrCannotUpdateEmpty               = errors.New("cannot update an empty leaf")
	ErrLeafAlreadyUpdated              = errors.New("leaf was already updated by a later changelog entry")
	ErrElementAlreadyExists            = errors.New("element already exists")
	ErrElementDoesNotExist             = errors.New("element does not exist")
	ErrHashSetFull                     = errors.New("hash-set probe window exhausted")
	ErrInvalidIndex                    = errors.New("index out of range")
	ErrInvalidBatchIndex               = errors.New("batch index out of range")
	ErrIntegerOverflow                 = errors.New("counter overflow")
	ErrMerkleTreeAndQueueNotAssociated = errors.New("merkle tree and queue accounts are not associated")
	ErrInputLargerThanField            = errors.New("input is not a canonical field element")
	ErrNilDatabase                     = errors.New("database cannot be nil")
	ErrNilHasher                       = errors.New("hasher cannot be nil")
	ErrNilVerifier                     = errors.New("verifier cannot be nil")
)

// coder is implemented by every typed error carrying its own stable code.
type coder interface{ Code() uint32 }

// CodeOf maps err to the stable numeric code the host surfaces. Unknown
// errors map to 0.
func CodeOf(err error) uint32 {
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	switch {
	case errors.Is(err, ErrInvalidTreeType):
		return codeInvalidTreeType
	case errors.Is(err, ErrInvalidQueueType):
		return codeInvalidQueueType
	case errors.Is(err, ErrTreeIsFull), errors.Is(err, ErrTreeFull):
		return codeTreeIsFull
	case errors.Is(err, ErrCannotUpdateEmpty):
		return codeCannotUpdateEmpty
	case errors.Is(err, ErrLeafAlreadyUpdated):
		return codeLeafAlreadyUpdated
	case errors.Is(err, ErrElementAlreadyExists):
		return codeElementAlreadyExists
	case errors.Is(err, ErrElementDoesNotExist):
		return codeElementDoesNotExist
	case errors.Is(err, ErrHashSetFull):
		return codeHashSetFull
	case errors.Is(err, ErrInvalidIndex):
		return codeInvalidIndex
	case errors.Is(err, ErrInvalidBatchIndex):
		return codeInvalidBatchIndex
	case errors.Is(err, ErrIntegerOverflow):
		return codeIntegerOverflow
	case errors.Is(err, ErrMerkleTreeAndQueueNotAssociated):
		return codeTreeAndQueueNotAssociated
	case errors.Is(err, ErrInputLargerThanField):
		return codeInputLargerThanField
	default:
		return 0
	}
}

// BufferSizeError reports a durable-buffer size mismatch for a named field.
type BufferSizeError struct {
	Field    string
	Expected int
	Actual   int
}

func (e *BufferSizeError) Error() string {
	return fmt.Sprintf("%s buffer size mismatch: expected %d bytes, got %d", e.Field, e.Expected, e.Actual)
}

func (e *BufferSizeError) Code() uint32 { return codeBufferSize }

// InvalidAccountSizeError reports a whole-account size mismatch.
type InvalidAccountSizeError struct {
	Expected int
	Actual   int
}

func (e *InvalidAccountSizeError) Error() string {
	return fmt.Sprintf("invalid account size: expected %d bytes, got %d", e.Expected, e.Actual)
}

func (e *InvalidAccountSizeError) Code() uint32 { return codeInvalidAccountSize }

// InvalidProofError reports a root mismatch during proof verification.
type InvalidProofError struct {
	Expected Bytes32
	Computed Bytes32
}

func (e *InvalidProofError) Error() string {
	return fmt.Sprintf("invalid proof: expected root %s, computed %s", e.Expected, e.Computed)
}

func (e *InvalidProofError) Code() uint32 { return codeInvalidProof }

// InvalidProofLengthError reports a proof whose sibling count does not match
// height minus canopy depth.
type InvalidProofLengthError struct {
	Expected int
	Actual   int
}

func (e *InvalidProofLengthError) Error() string {
	return fmt.Sprintf("invalid proof length: expected %d siblings, got %d", e.Expected, e.Actual)
}

func (e *InvalidProofLengthError) Code() uint32 { return codeInvalidProofLength }

// OutOfRangeError reports an index outside the tree's addressable range.
type OutOfRangeError struct {
	Index     int64
	TreeDepth uint16
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range for tree depth %d", e.Index, e.TreeDepth)
}

func (e *OutOfRangeError) Code() uint32 { return codeInvalidIndex }

// KeyNotFoundError reports a missing key on update/delete.
type KeyNotFoundError struct {
	Index int64
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key not found at index: %d", e.Index)
}

func (e *KeyNotFoundError) Code() uint32 { return codeElementDoesNotExist }

// KeyExistsError reports an existing key on insert.
type KeyExistsError struct {
	Index int64
}

func (e *KeyExistsError) Error() string {
	return fmt.Sprintf("key already exists at index: %d", e.Index)
}

func (e *KeyExistsError) Code() uint32 { return codeElementAlreadyExists }

// IsKeyExistsError reports whether err is a *KeyExistsError.
func IsKeyExistsError(err error) bool {
	var target *KeyExistsError
	return errors.As(err, &target)
}

// IsKeyNotFoundError reports whether err is a *KeyNotFoundError.
func IsKeyNotFoundError(err error) bool {
	var target *KeyNotFoundError
	return errors.As(err, &target)
}

// IsInvalidProofError reports whether err is an *InvalidProofError.
func IsInvalidProofError(err error) bool {
	var target *InvalidProofError
	return errors.As(err, &target)
}
