// Package account implements the host/account binding glue: the 8-byte
// discriminator + fixed header every durable tree/queue account begins
// with, whole-account size validation as a pure function of a tree's
// construction parameters, and the rollover lifecycle that retires a
// tree once it nears capacity. The discriminator is validated before
// any other header field is trusted; an account's length is always
// computed from construction arguments, never discovered from the
// buffer itself.
package account

import "github.com/lumenstate/accumulator"

// Discriminator is the 8-byte tag identifying which account variant a
// durable buffer holds.
type Discriminator [8]byte

// Variant discriminators, one per durable account kind this engine
// defines. Values are stable ASCII tags; they never change once an
// account of that kind has shipped.
var (
	DiscriminatorConcurrentState   = Discriminator{'C', 'o', 'n', 'c', 'S', 't', 'a', 't'}
	DiscriminatorConcurrentAddress = Discriminator{'C', 'o', 'n', 'c', 'A', 'd', 'd', 'r'}
	DiscriminatorBatchedState      = Discriminator{'B', 'a', 't', 'c', 'h', 'M', 't', 'a'}
	DiscriminatorBatchedAddress    = Discriminator{'B', 'a', 't', 'c', 'h', 'A', 'd', 'r'}
	DiscriminatorOutputQueue       = Discriminator{'B', 'a', 't', 'c', 'h', 'O', 'u', 't'}
	DiscriminatorInputQueue        = Discriminator{'B', 'a', 't', 'c', 'h', 'I', 'n', ' '}
	DiscriminatorHashSet           = Discriminator{'N', 'u', 'l', 'l', 'S', 'e', 't', ' '}
)

// TreeTypeDiscriminator returns the expected account discriminator for a
// given tree type, distinguishing the concurrent-tree variants from the
// batched-tree variants the way the real account layout does (the
// discriminator, not the TreeType field alone, is what a host checks
// before trusting any other field in the header).
func TreeTypeDiscriminator(t accumulator.TreeType) (Discriminator, error) {
	switch t {
	case accumulator.TreeTypeState:
		return DiscriminatorConcurrentState, nil
	case accumulator.TreeTypeAddress:
		return DiscriminatorConcurrentAddress, nil
	case accumulator.TreeTypeBatchedState:
		return DiscriminatorBatchedState, nil
	case accumulator.TreeTypeBatchedAddress:
		return DiscriminatorBatchedAddress, nil
	default:
		return Discriminator{}, accumulator.ErrInvalidTreeType
	}
}

// Validate reports whether buf begins with want, failing with
// ErrInvalidTreeType on a discriminator mismatch.
func (want Discriminator) Validate(buf []byte) error {
	if len(buf) < 8 {
		return &accumulator.BufferSizeError{Field: "discriminator", Expected: 8, Actual: len(buf)}
	}
	var got Discriminator
	copy(got[:], buf[:8])
	if got != want {
		return accumulator.ErrInvalidTreeType
	}
	return nil
}
