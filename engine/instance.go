package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	luauhost "github.com/luaugo/luauhost"
	"github.com/luaugo/luauhost/errors"
)

// Instance is a running runtime build.
// It is NOT safe for concurrent use from multiple goroutines.
// Each goroutine should have its own Instance, or access must be
// synchronized externally.
type Instance struct {
	module   *Module
	instance api.Module
	memory   *GuestMemory
	allocFn  api.Function
	freeFn   api.Function
	alloc    *guestAllocator
	stackBuf []uint64
}

// Memory returns the instance's linear memory, or nil if the build exports
// none.
func (i *Instance) Memory() luauhost.Memory {
	if i.memory == nil {
		return nil
	}
	return i.memory
}

// Allocator returns the allocator backed by the build's alloc/free exports.
func (i *Instance) Allocator() luauhost.Allocator {
	return i.alloc
}

// ExportedFunction returns an exported function by name, or nil.
func (i *Instance) ExportedFunction(name string) api.Function {
	if i.instance == nil {
		return nil
	}
	return i.instance.ExportedFunction(name)
}

// Call invokes an exported function with raw i32/i64 arguments.
func (i *Instance) Call(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	fn := i.ExportedFunction(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "function", name)
	}
	results, err := fn.Call(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	return results, nil
}

// ReleaseBuffer returns a runtime-allocated buffer to the runtime's
// allocator. A zero ptr is a no-op. The ptr must have come from the matching
// allocator and not have been released before; violations are undefined, as
// in the allocator the runtime was built with. No tracking is performed.
func (i *Instance) ReleaseBuffer(ctx context.Context, ptr uint32) {
	if ptr == 0 {
		return
	}
	i.alloc.free(ctx, ptr)
}

// SetAllocContext pins ctx for allocator calls made without one, such as
// guestmem.Buffer.Free. Callers that interleave contexts should pin before
// each batch of work.
func (i *Instance) SetAllocContext(ctx context.Context) {
	i.alloc.setContext(ctx)
}

// Close tears the instance down. Buffers still owned by the host become
// invalid with it.
func (i *Instance) Close(ctx context.Context) error {
	var firstErr error
	if i.instance != nil {
		if err := i.instance.Close(ctx); err != nil {
			firstErr = err
		}
		i.instance = nil
	}
	// Clear references to help GC
	i.memory = nil
	i.allocFn = nil
	i.freeFn = nil
	i.alloc = nil
	i.stackBuf = nil
	return firstErr
}

// guestAllocator implements luauhost.Allocator over the build's exports.
type guestAllocator struct {
	allocFn    api.Function
	freeFn     api.Function
	currentCtx context.Context
	stackBuf   []uint64
	stackMutex sync.Mutex
}

func (a *guestAllocator) setContext(ctx context.Context) {
	a.stackMutex.Lock()
	defer a.stackMutex.Unlock()
	a.currentCtx = ctx
}

func (a *guestAllocator) Alloc(size uint32) (uint32, error) {
	if a.allocFn == nil {
		return 0, errors.NotInitialized(errors.PhaseMemory, "allocator")
	}

	a.stackMutex.Lock()
	defer a.stackMutex.Unlock()

	ctx := a.currentCtx
	if ctx == nil {
		ctx = context.Background()
	}

	a.stackBuf[0] = uint64(size)
	if err := a.allocFn.CallWithStack(ctx, a.stackBuf[:1]); err != nil {
		return 0, errors.AllocationFailed(size, err)
	}
	return uint32(a.stackBuf[0]), nil
}

func (a *guestAllocator) Free(ptr uint32) {
	a.stackMutex.Lock()
	ctx := a.currentCtx
	a.stackMutex.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	a.free(ctx, ptr)
}

func (a *guestAllocator) free(ctx context.Context, ptr uint32) {
	if a.freeFn == nil || ptr == 0 {
		return
	}

	a.stackMutex.Lock()
	defer a.stackMutex.Unlock()

	a.stackBuf[0] = uint64(ptr)
	if err := a.freeFn.CallWithStack(ctx, a.stackBuf[:1]); err != nil {
		Logger().Warn("Free: release call failed",
			zap.Uint32("ptr", ptr),
			zap.Error(err))
	}
}

// GuestMemory wraps wazero memory to implement luauhost.Memory
type GuestMemory struct {
	mem api.Memory
}

func (m *GuestMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(offset, length)
	}
	return data, nil
}

func (m *GuestMemory) Write(offset uint32, data []byte) error {
	if ok := m.mem.Write(offset, data); !ok {
		return errors.OutOfBounds(offset, uint32(len(data)))
	}
	return nil
}

func (m *GuestMemory) ReadU32(offset uint32) (uint32, error) {
	val, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(offset, 4)
	}
	return val, nil
}

func (m *GuestMemory) WriteU32(offset uint32, value uint32) error {
	if ok := m.mem.WriteUint32Le(offset, value); !ok {
		return errors.OutOfBounds(offset, 4)
	}
	return nil
}

func (m *GuestMemory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// Compile-time checks against the root interfaces
var _ luauhost.Memory = (*GuestMemory)(nil)
var _ luauhost.MemorySizer = (*GuestMemory)(nil)
var _ luauhost.Allocator = (*guestAllocator)(nil)
