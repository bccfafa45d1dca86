package wasmbin

import (
	"bytes"
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

func TestWriteULEB(t *testing.T) {
	cases := []struct {
		v    uint32
		want []byte
	}{
		{0, []byte{0x00}},
		{7, []byte{0x07}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{4096, []byte{0x80, 0x20}},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		writeULEB(&buf, c.v)
		if !bytes.Equal(buf.Bytes(), c.want) {
			t.Errorf("uleb(%d) = %x, want %x", c.v, buf.Bytes(), c.want)
		}
	}
}

func TestWriteSLEB(t *testing.T) {
	cases := []struct {
		v    int32
		want []byte
	}{
		{0, []byte{0x00}},
		{7, []byte{0x07}},
		{42, []byte{0x2A}},
		{63, []byte{0x3F}},
		{64, []byte{0xC0, 0x00}},
		{-8, []byte{0x78}},
		{-64, []byte{0x40}},
		{-65, []byte{0xBF, 0x7F}},
		{4096, []byte{0x80, 0x20}},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		writeSLEB(&buf, c.v)
		if !bytes.Equal(buf.Bytes(), c.want) {
			t.Errorf("sleb(%d) = %x, want %x", c.v, buf.Bytes(), c.want)
		}
	}
}

func TestStubRuntime_Header(t *testing.T) {
	wasm := StubRuntime()
	if len(wasm) < 8 {
		t.Fatal("module too short")
	}
	if !bytes.Equal(wasm[:4], []byte{0x00, 0x61, 0x73, 0x6D}) {
		t.Errorf("bad magic: %x", wasm[:4])
	}
	if !bytes.Equal(wasm[4:8], []byte{0x01, 0x00, 0x00, 0x00}) {
		t.Errorf("bad version: %x", wasm[4:8])
	}
}

func TestStubRuntime_Deterministic(t *testing.T) {
	if !bytes.Equal(StubRuntime(), StubRuntime()) {
		t.Error("fixture must be deterministic")
	}
}

func TestStubRuntime_CompilesAndRuns(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	i32 := api.ValueTypeI32
	_, err := r.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = 1
		}), []api.ValueType{i32, i32, i32, i32, i32, i32, i32}, []api.ValueType{i32}).
		Export("luau_assert").
		Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}

	mod, err := r.Instantiate(ctx, StubRuntime())
	if err != nil {
		t.Fatalf("stub runtime must instantiate: %v", err)
	}

	// Allocator round trip: releasing the most recent allocation makes the
	// address reusable.
	alloc := mod.ExportedFunction("luau_alloc")
	free := mod.ExportedFunction("luau_free")

	res, err := alloc.Call(ctx, 16)
	if err != nil {
		t.Fatal(err)
	}
	first := res[0]

	if _, err := free.Call(ctx, first); err != nil {
		t.Fatal(err)
	}

	res, err = alloc.Call(ctx, 16)
	if err != nil {
		t.Fatal(err)
	}
	if res[0] != first {
		t.Errorf("expected reuse of %d, got %d", first, res[0])
	}
}

func TestStubRuntimeNamed_CustomNames(t *testing.T) {
	wasm := StubRuntimeNamed(Names{
		AssertModule: "host",
		Assert:       "on_assert",
		Alloc:        "new_buf",
		Free:         "del_buf",
	})

	for _, name := range []string{"host", "on_assert", "new_buf", "del_buf", "memory"} {
		if !bytes.Contains(wasm, []byte(name)) {
			t.Errorf("module missing name %q", name)
		}
	}
}
