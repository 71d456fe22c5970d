package concurrent

import (
	"errors"
	"fmt"
)

// ErrEmptyChangelogEntries reports an Append call whose underlying
// AppendBatch produced no changelog entry. AppendBatch itself returns no
// error for zero leaves.
var ErrEmptyChangelogEntries = errors.New("concurrent tree: append produced no changelog entries")

// InvalidHeightError reports a tree height outside (0, hasher.Depth].
type InvalidHeightError struct {
	Height    uint16
	MaxHeight uint16
}

func (e *InvalidHeightError) Error() string {
	return fmt.Sprintf("concurrent tree: invalid height %d (must be between 1 and %d)", e.Height, e.MaxHeight)
}
