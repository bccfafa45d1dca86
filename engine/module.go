package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/luaugo/luauhost/errors"
	"github.com/luaugo/luauhost/manifest"
)

// Module is a compiled runtime build, ready to instantiate.
type Module struct {
	engine   *Engine
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	abi      manifest.ABI
}

// ABI returns the export and import names this module was loaded with.
func (m *Module) ABI() manifest.ABI {
	return m.abi
}

// ExportedFunctions returns the definitions of the module's function
// exports, keyed by export name.
func (m *Module) ExportedFunctions() map[string]api.FunctionDefinition {
	if m.compiled == nil {
		return nil
	}
	return m.compiled.ExportedFunctions()
}

// Instantiate creates a running instance. Instances are anonymous so several
// can coexist in one engine.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	mod, err := m.runtime.InstantiateModule(ctx, m.compiled,
		wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	inst := &Instance{
		module:   m,
		instance: mod,
		stackBuf: make([]uint64, 8),
	}

	if mem := mod.ExportedMemory(m.abi.Memory); mem != nil {
		inst.memory = &GuestMemory{mem: mem}
	}

	allocFn := mod.ExportedFunction(m.abi.Alloc)
	freeFn := mod.ExportedFunction(m.abi.Free)
	if freeFn == nil {
		if cerr := mod.Close(ctx); cerr != nil {
			Logger().Warn("Instantiate: close after missing export failed",
				zap.String("export", m.abi.Free),
				zap.Error(cerr))
		}
		return nil, errors.NotFound(errors.PhaseRuntime, "export", m.abi.Free)
	}

	inst.allocFn = allocFn
	inst.freeFn = freeFn
	inst.alloc = &guestAllocator{
		allocFn:  allocFn,
		freeFn:   freeFn,
		stackBuf: inst.stackBuf,
	}

	return inst, nil
}

// Close releases the compiled module.
func (m *Module) Close(ctx context.Context) error {
	if m.compiled == nil {
		return nil
	}
	err := m.compiled.Close(ctx)
	m.compiled = nil
	if err != nil {
		return fmt.Errorf("close module: %w", err)
	}
	return nil
}
