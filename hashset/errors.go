package hashset

import "fmt"

// InvalidCapacityError reports a non-positive or inconsistent capacity
// parameter passed to New.
type InvalidCapacityError struct {
	Field string
	Value int
}

func (e *InvalidCapacityError) Error() string {
	return fmt.Sprintf("hashset: invalid %s: %d", e.Field, e.Value)
}
