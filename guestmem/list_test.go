package guestmem

import (
	"testing"
)

func TestAllocationList_FreeAll(t *testing.T) {
	alloc := newFakeAllocator()

	al := NewAllocationList()
	p1, _ := alloc.Alloc(8)
	p2, _ := alloc.Alloc(16)
	al.Add(p1, 8)
	al.Add(p2, 16)

	if al.Count() != 2 {
		t.Fatalf("Count = %d, want 2", al.Count())
	}

	al.FreeAndRelease(alloc)

	if len(alloc.frees) != 2 {
		t.Fatalf("expected 2 frees, got %v", alloc.frees)
	}
}

func TestAllocationList_SkipsZeroPointers(t *testing.T) {
	alloc := newFakeAllocator()

	al := NewAllocationList()
	al.Add(0, 8)
	al.FreeAndRelease(alloc)

	if len(alloc.frees) != 0 {
		t.Fatalf("zero pointer must not be freed, got %v", alloc.frees)
	}
}

func TestAllocationList_NilAllocator(t *testing.T) {
	al := NewAllocationList()
	al.Add(64, 8)
	// Must not panic.
	al.Free(nil)
	al.Release()
}

func TestAllocationList_Reuse(t *testing.T) {
	al := NewAllocationList()
	al.Add(64, 8)
	al.Release()

	al2 := NewAllocationList()
	if al2.Count() != 0 {
		t.Fatalf("pooled list must come back empty, got %d entries", al2.Count())
	}
	al2.Release()
}
