package guestmem

import (
	"sync"

	luauhost "github.com/luaugo/luauhost"
)

// Allocation records one guest allocation made on behalf of a call.
type Allocation struct {
	Ptr  uint32
	Size uint32
}

// AllocationList tracks temporary guest allocations so they can be released
// together after a call completes. Lists are pooled; see Release.
type AllocationList struct {
	allocations []Allocation
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &AllocationList{allocations: make([]Allocation, 0, 8)}
	},
}

// NewAllocationList gets a list from the pool.
func NewAllocationList() *AllocationList {
	return allocationListPool.Get().(*AllocationList)
}

const maxPooledAllocationCapacity = 128

// Release returns the list to the pool. Must call after Free(); the list is
// invalid after Release.
func (al *AllocationList) Release() {
	// Only pool small lists to prevent memory bloat
	if cap(al.allocations) > maxPooledAllocationCapacity {
		return
	}
	al.Reset()
	allocationListPool.Put(al)
}

// FreeAndRelease frees every tracked allocation and returns the list to the
// pool.
func (al *AllocationList) FreeAndRelease(alloc luauhost.Allocator) {
	al.Free(alloc)
	al.Release()
}

// Add records an allocation.
func (al *AllocationList) Add(ptr, size uint32) {
	al.allocations = append(al.allocations, Allocation{
		Ptr:  ptr,
		Size: size,
	})
}

// Free releases every tracked allocation through the runtime's allocator.
// Zero pointers are skipped.
func (al *AllocationList) Free(alloc luauhost.Allocator) {
	if alloc == nil {
		return
	}
	for _, a := range al.allocations {
		if a.Ptr != 0 {
			alloc.Free(a.Ptr)
		}
	}
}

// Reset clears the list without freeing.
func (al *AllocationList) Reset() {
	al.allocations = al.allocations[:0]
}

// Count returns the number of tracked allocations.
func (al *AllocationList) Count() int {
	return len(al.allocations)
}
