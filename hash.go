package accumulator

import "math/big"

// GetBit extracts a bit at the given position from a big.Int.
func GetBit(value *big.Int, position uint) uint {
	return uint(value.Bit(int(position)))
}

// SetBit returns a copy of value with the bit at position set to bit.
func SetBit(value *big.Int, position uint, bit uint) *big.Int {
	result := new(big.Int).Set(value)
	result.SetBit(result, int(position), bit)
	return result
}
