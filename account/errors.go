package account

import "fmt"

// RolloverError reports that an operation was attempted against a tree
// past its rollover threshold without a replacement tree configured.
type RolloverError struct {
	NextIndex uint64
	Threshold uint64
}

func (e *RolloverError) Error() string {
	return fmt.Sprintf("tree at index %d has crossed rollover threshold %d, rollover required", e.NextIndex, e.Threshold)
}
