package guestmem

import (
	luauhost "github.com/luaugo/luauhost"
	"github.com/luaugo/luauhost/errors"
)

// Buffer owns one region of guest memory that the runtime handed to the
// host. Ownership transfers at hand-off: the host is the exclusive owner
// until Free or Leak, and the underlying pointer must not be released
// through any other path while the Buffer owns it.
//
// Free releases the region through the runtime's allocator exactly once.
// Unlike the raw Allocator.Free path, a second Free through the same Buffer
// is inert: the wrapper tracks release so that accidental double release
// through it cannot corrupt the guest allocator. This is a deliberate
// divergence from the unchecked allocator primitive, which remains available
// via Leak for callers that manage the raw pointer themselves.
type Buffer struct {
	alloc    luauhost.Allocator
	mem      luauhost.Memory
	ptr      uint32
	size     uint32
	released bool
}

// New wraps a guest allocation in an owning Buffer. ptr must have come from
// alloc and not been released. A zero ptr yields a Buffer whose Free is a
// no-op.
func New(ptr, size uint32, alloc luauhost.Allocator, mem luauhost.Memory) *Buffer {
	return &Buffer{
		ptr:   ptr,
		size:  size,
		alloc: alloc,
		mem:   mem,
	}
}

// Ptr returns the raw guest pointer, or 0 after release.
func (b *Buffer) Ptr() uint32 {
	if b.released {
		return 0
	}
	return b.ptr
}

// Size returns the allocation size in bytes.
func (b *Buffer) Size() uint32 {
	return b.size
}

// Bytes reads the buffer's contents out of guest memory. The returned slice
// aliases linear memory and is only valid until the next guest call.
func (b *Buffer) Bytes() ([]byte, error) {
	if b.released {
		return nil, errors.InvalidInput(errors.PhaseMemory, "read of released buffer")
	}
	if b.ptr == 0 {
		return nil, nil
	}
	return b.mem.Read(b.ptr, b.size)
}

// String returns the buffer's contents as a copied string.
func (b *Buffer) String() (string, error) {
	data, err := b.Bytes()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Free returns the region to the runtime's allocator. A zero pointer and an
// already-released Buffer are no-ops. After Free the pointer is invalid and
// must never be dereferenced.
func (b *Buffer) Free() {
	if b.released {
		return
	}
	b.released = true
	if b.ptr == 0 {
		return
	}
	b.alloc.Free(b.ptr)
}

// Leak relinquishes ownership without releasing, returning the raw pointer.
// The caller becomes responsible for releasing it through the runtime's
// allocator; the Buffer is inert afterwards. Intended for buffers that are
// intentionally long-lived or handed onward across another boundary.
func (b *Buffer) Leak() uint32 {
	if b.released {
		return 0
	}
	b.released = true
	return b.ptr
}

// Released reports whether ownership has ended, by Free or Leak.
func (b *Buffer) Released() bool {
	return b.released
}
