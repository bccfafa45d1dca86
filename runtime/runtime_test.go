package runtime

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/luaugo/luauhost/assert"
	"github.com/luaugo/luauhost/internal/wasmbin"
)

// newTestInstance spins up a runtime with its own bridge and an instance of
// the stub runtime build.
func newTestInstance(t *testing.T) (*Runtime, *Instance, *assert.Bridge) {
	t.Helper()
	ctx := context.Background()

	bridge := assert.NewBridge()
	rt, err := New(ctx, Options{Bridge: bridge})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { rt.Close(ctx) })

	mod, err := rt.LoadModule(ctx, wasmbin.StubRuntime())
	if err != nil {
		t.Fatal(err)
	}

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { inst.Close(ctx) })

	return rt, inst, bridge
}

func TestAssertionBridge_Diagnostic(t *testing.T) {
	ctx := context.Background()
	rt, inst, _ := newTestInstance(t)

	var buf bytes.Buffer
	rt.RegisterAssertionHandler(assert.Writer(&buf))

	// Failing invariant check inside the build.
	results, err := inst.Call(ctx, "check", 0)
	if err != nil {
		t.Fatal(err)
	}

	want := "script.cpp(42): ASSERTION FAILED: x > 0\n"
	if buf.String() != want {
		t.Errorf("diagnostic = %q, want %q", buf.String(), want)
	}
	if results[0] != uint64(assert.Abort) {
		t.Errorf("check reported status %d to the guest, want abort", results[0])
	}
}

func TestAssertionBridge_PassingCheckIsSilent(t *testing.T) {
	ctx := context.Background()
	rt, inst, _ := newTestInstance(t)

	var buf bytes.Buffer
	rt.RegisterAssertionHandler(assert.Writer(&buf))

	results, err := inst.Call(ctx, "check", 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0] != 0 {
		t.Errorf("passing check returned %d, want 0", results[0])
	}
	if buf.Len() != 0 {
		t.Errorf("passing check produced output: %q", buf.String())
	}
}

func TestAssertionBridge_HandlerRegisteredAfterInstantiation(t *testing.T) {
	ctx := context.Background()
	rt, inst, _ := newTestInstance(t)

	// The build consults the bridge slot at failure time, so a handler
	// installed after the instance exists still sees the failure.
	var seenExpr, seenFile, seenFn string
	var seenLine int
	rt.RegisterAssertionHandler(func(expr, file string, line int, fn string) int {
		seenExpr, seenFile, seenLine, seenFn = expr, file, line, fn
		return assert.Abort
	})

	if _, err := inst.Call(ctx, "check", 0); err != nil {
		t.Fatal(err)
	}

	if seenExpr != "x > 0" || seenFile != "script.cpp" || seenLine != 42 || seenFn != "check" {
		t.Errorf("handler saw (%q, %q, %d, %q)", seenExpr, seenFile, seenLine, seenFn)
	}
}

func TestAssertionBridge_DoubleRegistrationSingleLine(t *testing.T) {
	ctx := context.Background()
	rt, inst, _ := newTestInstance(t)

	var buf bytes.Buffer
	h := assert.Writer(&buf)
	rt.RegisterAssertionHandler(h)
	rt.RegisterAssertionHandler(h)

	if _, err := inst.Call(ctx, "check", 0); err != nil {
		t.Fatal(err)
	}

	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Errorf("expected one diagnostic line, got %d: %q", got, buf.String())
	}
}

func TestAssertionBridge_ContinueStatusReachesGuest(t *testing.T) {
	ctx := context.Background()
	rt, inst, _ := newTestInstance(t)

	rt.RegisterAssertionHandler(func(_, _ string, _ int, _ string) int {
		return assert.Continue
	})

	results, err := inst.Call(ctx, "check", 0)
	if err != nil {
		t.Fatal(err)
	}
	if results[0] != uint64(assert.Continue) {
		t.Errorf("guest saw status %d, want continue", results[0])
	}
}

func TestNewString_RoundTrip(t *testing.T) {
	ctx := context.Background()
	_, inst, _ := newTestInstance(t)

	b, err := inst.NewString(ctx, "hello luau")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Free()

	s, err := b.String()
	if err != nil {
		t.Fatal(err)
	}
	if s != "hello luau" {
		t.Errorf("round trip = %q", s)
	}
}

func TestReleaseBuffer_ReuseAfterRelease(t *testing.T) {
	ctx := context.Background()
	_, inst, _ := newTestInstance(t)

	first, err := inst.NewBuffer(ctx, []byte("0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	ptr := first.Ptr()
	first.Free()

	// The stub allocator hands the released address straight back, which is
	// how reuse is observed from outside.
	second, err := inst.NewBuffer(ctx, []byte("0123456789abcdef"))
	if err != nil {
		t.Fatal(err)
	}
	defer second.Free()

	if second.Ptr() != ptr {
		t.Errorf("released memory not reused: first=%d second=%d", ptr, second.Ptr())
	}
}

func TestReleaseBuffer_NullIsNoOp(t *testing.T) {
	ctx := context.Background()
	rt, inst, _ := newTestInstance(t)

	var buf bytes.Buffer
	rt.RegisterAssertionHandler(assert.Writer(&buf))

	// Must not crash, must not produce output, must not disturb the
	// allocator.
	before, err := inst.NewBuffer(ctx, []byte("abcdefgh"))
	if err != nil {
		t.Fatal(err)
	}
	beforePtr := before.Ptr()
	before.Free()

	inst.ReleaseBuffer(ctx, 0)

	after, err := inst.NewBuffer(ctx, []byte("abcdefgh"))
	if err != nil {
		t.Fatal(err)
	}
	defer after.Free()

	if after.Ptr() != beforePtr {
		t.Errorf("null release disturbed allocator state: %d vs %d", beforePtr, after.Ptr())
	}
	if buf.Len() != 0 {
		t.Errorf("null release produced output: %q", buf.String())
	}
}

func TestLeak_ThenRawRelease(t *testing.T) {
	ctx := context.Background()
	_, inst, _ := newTestInstance(t)

	b, err := inst.NewBuffer(ctx, []byte("longlived"))
	if err != nil {
		t.Fatal(err)
	}

	raw := b.Leak()
	if raw == 0 {
		t.Fatal("Leak returned 0 for live buffer")
	}

	// Caller owns the raw pointer now; release it through the unchecked
	// path exactly once.
	inst.ReleaseBuffer(ctx, raw)
}

func TestScope_ReleasesAllAllocations(t *testing.T) {
	ctx := context.Background()
	_, inst, _ := newTestInstance(t)

	scope := inst.NewScope()

	p1, err := scope.NewString(ctx, "first argument")
	if err != nil {
		t.Fatal(err)
	}
	p2, err := scope.NewBuffer(ctx, []byte("second argument"))
	if err != nil {
		t.Fatal(err)
	}
	if p1 == 0 || p2 == 0 || p1 == p2 {
		t.Fatalf("bad scope allocations: %d, %d", p1, p2)
	}
	if scope.Count() != 2 {
		t.Errorf("scope tracks %d allocations, want 2", scope.Count())
	}

	data, err := inst.Memory().Read(p2, uint32(len("second argument")))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second argument" {
		t.Errorf("scope buffer holds %q", data)
	}

	scope.Close(ctx)

	// The sweep freed the most recent allocation last, so the stub allocator
	// hands its address straight back.
	next, err := inst.NewBuffer(ctx, []byte("next call"))
	if err != nil {
		t.Fatal(err)
	}
	defer next.Free()
	if next.Ptr() != p2 {
		t.Errorf("scope close did not release memory: got %d, want %d", next.Ptr(), p2)
	}
}

func TestScope_CloseIdempotent(t *testing.T) {
	ctx := context.Background()
	_, inst, _ := newTestInstance(t)

	scope := inst.NewScope()
	if _, err := scope.NewString(ctx, "once"); err != nil {
		t.Fatal(err)
	}

	scope.Close(ctx)
	scope.Close(ctx)

	if _, err := scope.NewString(ctx, "after close"); err == nil {
		t.Error("allocation through a closed scope must fail")
	}
	if scope.Count() != 0 {
		t.Errorf("closed scope reports %d allocations", scope.Count())
	}
}

func TestScope_ZeroLengthIsZeroPointer(t *testing.T) {
	ctx := context.Background()
	_, inst, _ := newTestInstance(t)

	scope := inst.NewScope()
	defer scope.Close(ctx)

	ptr, err := scope.NewBuffer(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ptr != 0 {
		t.Errorf("zero-length allocation returned %d", ptr)
	}
	if scope.Count() != 0 {
		t.Errorf("zero-length allocation tracked: count %d", scope.Count())
	}
}

func TestLoadModuleWithManifest_CustomABINames(t *testing.T) {
	ctx := context.Background()

	bridge := assert.NewBridge()
	rt, err := New(ctx, Options{Bridge: bridge})
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close(ctx)

	wasm := wasmbin.StubRuntimeNamed(wasmbin.Names{
		AssertModule: "host",
		Assert:       "on_assert",
		Alloc:        "new_buf",
		Free:         "del_buf",
	})
	manifestJSON := []byte(`{
		"name": "custom",
		"abi": {
			"alloc": "new_buf",
			"free": "del_buf",
			"assert": "on_assert",
			"assert_module": "host"
		}
	}`)

	mod, err := rt.LoadModuleWithManifest(ctx, wasm, manifestJSON)
	if err != nil {
		t.Fatal(err)
	}
	if mod.Manifest().Name != "custom" {
		t.Errorf("manifest name = %q", mod.Manifest().Name)
	}

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer inst.Close(ctx)

	var buf bytes.Buffer
	rt.RegisterAssertionHandler(assert.Writer(&buf))

	if _, err := inst.Call(ctx, "check", 0); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "ASSERTION FAILED") {
		t.Errorf("renamed assert import did not reach the bridge: %q", buf.String())
	}

	b, err := inst.NewString(ctx, "renamed exports")
	if err != nil {
		t.Fatal(err)
	}
	b.Free()
}

func TestLoadModuleWithManifest_InvalidManifest(t *testing.T) {
	ctx := context.Background()
	rt, err := New(ctx, Options{Bridge: assert.NewBridge()})
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close(ctx)

	if _, err := rt.LoadModuleWithManifest(ctx, wasmbin.StubRuntime(), []byte(`{}`)); err == nil {
		t.Error("manifest without name must be rejected")
	}
}

func TestMultipleInstances_IndependentAllocators(t *testing.T) {
	ctx := context.Background()

	bridge := assert.NewBridge()
	rt, err := New(ctx, Options{Bridge: bridge})
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close(ctx)

	mod, err := rt.LoadModule(ctx, wasmbin.StubRuntime())
	if err != nil {
		t.Fatal(err)
	}

	a, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close(ctx)

	b, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close(ctx)

	ba, err := a.NewString(ctx, "instance a")
	if err != nil {
		t.Fatal(err)
	}
	bb, err := b.NewString(ctx, "instance b")
	if err != nil {
		t.Fatal(err)
	}

	sa, _ := ba.String()
	sb, _ := bb.String()
	if sa != "instance a" || sb != "instance b" {
		t.Errorf("instances share state: %q / %q", sa, sb)
	}

	ba.Free()
	bb.Free()
}
