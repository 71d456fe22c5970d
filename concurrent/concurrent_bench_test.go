package concurrent

import (
	"testing"

	"github.com/lumenstate/accumulator"
	"github.com/lumenstate/accumulator/internal/profiler"
)

// TestAppendBatchAllocationProfile exercises internal/profiler's allocation
// tracker against a large AppendBatch call, the way a capacity-planning
// pass over this tree would: it only asserts the operation still succeeds
// under tracking, not a specific allocation budget, since GC behavior is
// not something a unit test should pin down.
func TestAppendBatchAllocationProfile(t *testing.T) {
	tree := newTestTree(t, 10, 2)

	leaves := make([]accumulator.Bytes32, 256)
	for i := range leaves {
		leaves[i] = leafAt(byte(i))
	}

	tracker := profiler.NewAllocationTracker("concurrent.AppendBatch/256")
	if _, err := tree.AppendBatch(leaves); err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}
	stats := tracker.Stop()

	if stats.Name != "concurrent.AppendBatch/256" {
		t.Fatalf("tracker name = %q, want concurrent.AppendBatch/256", stats.Name)
	}
	if tree.NextIndex() != 256 {
		t.Fatalf("NextIndex = %d, want 256", tree.NextIndex())
	}
}
