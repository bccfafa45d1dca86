// Package guestmem manages host ownership of buffers allocated inside the
// embedded runtime.
//
// The runtime's allocator is the only party that may release its
// allocations, and it performs no tracking: releasing a foreign pointer or
// releasing twice is undefined. Buffer wraps one hand-off in an owning value
// with a single explicit Free, keeping the unchecked raw path available via
// Leak. AllocationList batches temporary allocations made while marshaling a
// call so they are released together afterwards.
package guestmem
