package luauhost

// Memory represents the runtime's linear memory as seen from the host.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	WriteU32(offset uint32, value uint32) error
}

// MemorySizer provides the current size of linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator allocates and releases memory through the runtime's own
// allocator exports. Free with ptr 0 is a no-op. Releasing a pointer that
// did not come from Alloc, or releasing it twice, is a contract violation
// with undefined consequences; the allocator performs no tracking.
type Allocator interface {
	Alloc(size uint32) (uint32, error)
	Free(ptr uint32)
}
