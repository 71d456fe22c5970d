// Package profiler measures the allocation cost of a single operation,
// for capacity-planning passes over the fixed-capacity containers the
// tree packages are built on.
package profiler

import (
	"fmt"
	"runtime"
)

// AllocationTracker captures heap counters at construction and reports
// the delta at Stop.
type AllocationTracker struct {
	name  string
	start runtime.MemStats
}

// AllocationStats is the delta a tracker observed between its creation
// and Stop.
type AllocationStats struct {
	Name        string
	AllocBytes  uint64
	Mallocs     uint64
	NumGCCycles uint32
}

// NewAllocationTracker snapshots the runtime's heap counters under the
// given operation name.
func NewAllocationTracker(name string) *AllocationTracker {
	t := &AllocationTracker{name: name}
	runtime.ReadMemStats(&t.start)
	return t
}

// Stop reads the counters again and returns the delta.
func (t *AllocationTracker) Stop() AllocationStats {
	var end runtime.MemStats
	runtime.ReadMemStats(&end)
	return AllocationStats{
		Name:        t.name,
		AllocBytes:  end.TotalAlloc - t.start.TotalAlloc,
		Mallocs:     end.Mallocs - t.start.Mallocs,
		NumGCCycles: end.NumGC - t.start.NumGC,
	}
}

func (s AllocationStats) String() string {
	return fmt.Sprintf("%s: %d B across %d allocations (%d GC cycles)",
		s.Name, s.AllocBytes, s.Mallocs, s.NumGCCycles)
}
