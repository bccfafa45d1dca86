package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/luaugo/luauhost/assert"
	"github.com/luaugo/luauhost/errors"
	"github.com/luaugo/luauhost/manifest"
)

// Engine wraps a wazero runtime. One engine hosts any number of compiled
// modules; all of them share the engine's host-module namespace.
type Engine struct {
	runtime     wazero.Runtime
	assertMu    sync.Mutex
	assertDone  map[string]bool
	assertCache map[string]*assert.Bridge
}

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32
}

// New creates a new wazero-based engine
func New(ctx context.Context) (*Engine, error) {
	return NewWithConfig(ctx, nil)
}

// NewWithConfig creates a new engine with custom configuration
func NewWithConfig(ctx context.Context, cfg *Config) (*Engine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()

	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return &Engine{
		runtime:     runtime,
		assertDone:  make(map[string]bool),
		assertCache: make(map[string]*assert.Bridge),
	}, nil
}

// LoadModule compiles a runtime build. abi names the exports and the assert
// import; bridge receives the build's invariant failures. The assert host
// module is instantiated on first use of its module name and dispatches
// through the bridge current at failure time, so handlers registered later
// still apply.
func (e *Engine) LoadModule(ctx context.Context, wasmBytes []byte, abi manifest.ABI, bridge *assert.Bridge) (*Module, error) {
	if bridge == nil {
		bridge = assert.Default
	}

	if err := e.initAssertModule(ctx, abi.AssertModule, abi.Assert, bridge); err != nil {
		return nil, err
	}

	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("compile failed: %w", err)
	}

	return &Module{
		engine:   e,
		runtime:  e.runtime,
		compiled: compiled,
		abi:      abi,
	}, nil
}

// Close releases the engine and everything instantiated in it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// initAssertModule instantiates the host module carrying the assert import.
// Safe for concurrent calls. A module name can only be claimed once per
// engine; loading a second build that wants the same import module with a
// different bridge is rejected rather than silently rerouted.
func (e *Engine) initAssertModule(ctx context.Context, moduleName, funcName string, bridge *assert.Bridge) error {
	key := moduleName + "." + funcName

	e.assertMu.Lock()
	defer e.assertMu.Unlock()

	if e.assertDone[key] {
		if e.assertCache[key] != bridge {
			return errors.Registration(moduleName, funcName,
				fmt.Errorf("import module already bound to a different assert bridge"))
		}
		return nil
	}

	i32 := api.ValueTypeI32
	_, err := e.runtime.NewHostModuleBuilder(moduleName).
		NewFunctionBuilder().
		WithGoModuleFunction(assertFailFunc(bridge),
			[]api.ValueType{i32, i32, i32, i32, i32, i32, i32},
			[]api.ValueType{i32}).
		Export(funcName).
		Instantiate(ctx)
	if err != nil {
		return errors.Registration(moduleName, funcName, err)
	}

	e.assertDone[key] = true
	e.assertCache[key] = bridge
	return nil
}

// assertFailFunc adapts the runtime's assert import to the bridge. Stack
// layout: exprPtr, exprLen, filePtr, fileLen, line, funcPtr, funcLen.
// The strings live in the calling module's memory and are copied out before
// the handler runs; they are invalid the moment the guest resumes.
func assertFailFunc(bridge *assert.Bridge) api.GoModuleFunc {
	return func(_ context.Context, mod api.Module, stack []uint64) {
		mem := mod.Memory()

		expr := readGuestString(mem, uint32(stack[0]), uint32(stack[1]))
		file := readGuestString(mem, uint32(stack[2]), uint32(stack[3]))
		line := int(int32(stack[4]))
		function := readGuestString(mem, uint32(stack[5]), uint32(stack[6]))

		stack[0] = uint64(uint32(bridge.Fail(expr, file, line, function)))
	}
}

// readGuestString copies a (ptr, len) pair out of guest memory. A bad range
// yields an empty string; the diagnostic still fires with what is readable.
func readGuestString(mem api.Memory, ptr, length uint32) string {
	if length == 0 {
		return ""
	}
	data, ok := mem.Read(ptr, length)
	if !ok {
		return ""
	}
	return string(data)
}
