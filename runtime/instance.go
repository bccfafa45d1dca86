package runtime

import (
	"context"

	luauhost "github.com/luaugo/luauhost"
	"github.com/luaugo/luauhost/engine"
	"github.com/luaugo/luauhost/errors"
	"github.com/luaugo/luauhost/guestmem"
)

// Instance is a running runtime build.
// It is NOT safe for concurrent use; see the engine package.
type Instance struct {
	inst *engine.Instance
}

// Memory returns the instance's linear memory.
func (i *Instance) Memory() luauhost.Memory {
	return i.inst.Memory()
}

// Allocator returns the allocator backed by the build's exports.
func (i *Instance) Allocator() luauhost.Allocator {
	return i.inst.Allocator()
}

// Call invokes an exported function with raw i32/i64 arguments.
func (i *Instance) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	i.inst.SetAllocContext(ctx)
	return i.inst.Call(ctx, name, args...)
}

// NewBuffer allocates guest memory through the build's allocator, copies
// data into it, and hands ownership to the caller.
func (i *Instance) NewBuffer(ctx context.Context, data []byte) (*guestmem.Buffer, error) {
	i.inst.SetAllocContext(ctx)

	mem := i.inst.Memory()
	if mem == nil {
		return nil, errors.NotInitialized(errors.PhaseMemory, "linear memory")
	}

	size := uint32(len(data))
	if size == 0 {
		return guestmem.New(0, 0, i.inst.Allocator(), mem), nil
	}

	ptr, err := i.inst.Allocator().Alloc(size)
	if err != nil {
		return nil, err
	}
	if err := mem.Write(ptr, data); err != nil {
		i.inst.Allocator().Free(ptr)
		return nil, err
	}
	return guestmem.New(ptr, size, i.inst.Allocator(), mem), nil
}

// NewString copies s into guest memory and hands ownership to the caller.
func (i *Instance) NewString(ctx context.Context, s string) (*guestmem.Buffer, error) {
	return i.NewBuffer(ctx, []byte(s))
}

// ReleaseBuffer returns a raw runtime-allocated pointer to the runtime's
// allocator. A zero ptr is a no-op; anything else must come from the
// matching allocator and be released exactly once. This is the unchecked
// path; prefer the owning guestmem.Buffer for buffers the host holds onto.
func (i *Instance) ReleaseBuffer(ctx context.Context, ptr uint32) {
	i.inst.ReleaseBuffer(ctx, ptr)
}

// Close tears the instance down.
func (i *Instance) Close(ctx context.Context) error {
	return i.inst.Close(ctx)
}
