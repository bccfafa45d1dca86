package wasmbin

// Names configures the export and import names the stub runtime is built
// with. Zero values take the stock Luau names.
type Names struct {
	AssertModule string
	Assert       string
	Memory       string
	Alloc        string
	Free         string
}

func (n *Names) defaults() {
	if n.AssertModule == "" {
		n.AssertModule = "env"
	}
	if n.Assert == "" {
		n.Assert = "luau_assert"
	}
	if n.Memory == "" {
		n.Memory = "memory"
	}
	if n.Alloc == "" {
		n.Alloc = "luau_alloc"
	}
	if n.Free == "" {
		n.Free = "luau_free"
	}
}

// Fixed data layout of the stub runtime's memory.
const (
	stubExprOff = 16 // "x > 0"
	stubFileOff = 32 // "script.cpp"
	stubFuncOff = 48 // "check"
	stubHeap    = 4096
)

// StubRuntime builds the in-repo stand-in for a real Luau runtime build with
// the stock ABI names. Its exports:
//
//	memory      exported linear memory, 1 page
//	luau_alloc  (size i32) -> (ptr i32): 8-byte-aligned bump allocator
//	luau_free   (ptr i32): no-op except the most recent allocation, which is
//	            handed back to the bump pointer so an alloc/free/alloc
//	            sequence observably reuses the address
//	check       (cond i32) -> (status i32): returns 0 when cond is non-zero;
//	            otherwise raises the assert import with expression "x > 0",
//	            file "script.cpp", line 42, function "check" and returns the
//	            handler's status to the caller
func StubRuntime() []byte {
	return StubRuntimeNamed(Names{})
}

// StubRuntimeNamed builds the stub runtime with custom ABI names.
func StubRuntimeNamed(names Names) []byte {
	names.defaults()

	m := NewModule()

	i32 := []byte{I32}
	tAssert := m.AddType([]byte{I32, I32, I32, I32, I32, I32, I32}, i32)
	tAlloc := m.AddType(i32, i32)
	tFree := m.AddType(i32, nil)

	assertIdx := m.ImportFunc(names.AssertModule, names.Assert, tAssert)

	m.AddMemory(1)
	heap := m.AddGlobal(true, stubHeap) // bump pointer
	last := m.AddGlobal(true, 0)        // most recent allocation

	// alloc: result is the old bump pointer; the new one is rounded up to 8.
	alloc := NewCode().
		GlobalGet(heap).
		GlobalSet(last).
		GlobalGet(heap).
		GlobalGet(heap).
		LocalGet(0).
		I32Add().
		I32Const(7).
		I32Add().
		I32Const(-8).
		I32And().
		GlobalSet(heap).
		End()

	// free: ignore null; roll the bump pointer back when releasing the most
	// recent allocation so reuse is observable from the host.
	free := NewCode().
		LocalGet(0).
		I32Eqz().
		If().
		Return().
		End().
		LocalGet(0).
		GlobalGet(last).
		I32Eq().
		If().
		LocalGet(0).
		GlobalSet(heap).
		End().
		End()

	// check: a passing condition returns 0 without touching the host; a
	// failing one reports through the assert import and surfaces its status.
	check := NewCode().
		LocalGet(0).
		If().
		I32Const(0).
		Return().
		End().
		I32Const(stubExprOff).
		I32Const(5).
		I32Const(stubFileOff).
		I32Const(10).
		I32Const(42).
		I32Const(stubFuncOff).
		I32Const(5).
		Call(assertIdx).
		End()

	allocIdx := m.AddFunc(tAlloc, alloc.Bytes())
	freeIdx := m.AddFunc(tFree, free.Bytes())
	checkIdx := m.AddFunc(tAlloc, check.Bytes())

	m.ExportMemory(names.Memory)
	m.ExportFunc(names.Alloc, allocIdx)
	m.ExportFunc(names.Free, freeIdx)
	m.ExportFunc("check", checkIdx)

	m.AddData(stubExprOff, []byte("x > 0"))
	m.AddData(stubFileOff, []byte("script.cpp"))
	m.AddData(stubFuncOff, []byte("check"))

	return m.Build()
}
