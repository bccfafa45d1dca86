package runtime

import (
	"context"

	"github.com/luaugo/luauhost/errors"
	"github.com/luaugo/luauhost/guestmem"
)

// Scope batches guest allocations made on behalf of one call so they can be
// released together. Arguments marshaled through a scope are tracked as raw
// pointers; Close returns every one of them to the runtime's allocator in a
// single sweep. For buffers that outlive a call, use NewBuffer instead.
type Scope struct {
	inst *Instance
	list *guestmem.AllocationList
}

// NewScope opens an allocation scope on the instance. The caller must Close
// it when the call the allocations serve has completed.
func (i *Instance) NewScope() *Scope {
	return &Scope{
		inst: i,
		list: guestmem.NewAllocationList(),
	}
}

// NewBuffer allocates guest memory through the build's allocator, copies
// data into it, and tracks the allocation for release at Close. Zero-length
// data yields a zero pointer without touching the allocator.
func (s *Scope) NewBuffer(ctx context.Context, data []byte) (uint32, error) {
	if s.list == nil {
		return 0, errors.NotInitialized(errors.PhaseMemory, "allocation scope")
	}
	s.inst.inst.SetAllocContext(ctx)

	size := uint32(len(data))
	if size == 0 {
		return 0, nil
	}

	mem := s.inst.inst.Memory()
	if mem == nil {
		return 0, errors.NotInitialized(errors.PhaseMemory, "linear memory")
	}

	ptr, err := s.inst.inst.Allocator().Alloc(size)
	if err != nil {
		return 0, err
	}
	s.list.Add(ptr, size)
	if err := mem.Write(ptr, data); err != nil {
		return 0, err
	}
	return ptr, nil
}

// NewString copies str into guest memory and tracks the allocation for
// release at Close.
func (s *Scope) NewString(ctx context.Context, str string) (uint32, error) {
	return s.NewBuffer(ctx, []byte(str))
}

// Count returns the number of allocations the scope tracks.
func (s *Scope) Count() int {
	if s.list == nil {
		return 0
	}
	return s.list.Count()
}

// Close releases every tracked allocation through the runtime's allocator.
// The scope and all pointers it handed out are invalid afterwards. Close is
// idempotent.
func (s *Scope) Close(ctx context.Context) {
	if s.list == nil {
		return
	}
	s.inst.inst.SetAllocContext(ctx)
	s.list.FreeAndRelease(s.inst.inst.Allocator())
	s.list = nil
}
