package runtime

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/luaugo/luauhost/assert"
	"github.com/luaugo/luauhost/engine"
	"github.com/luaugo/luauhost/errors"
	"github.com/luaugo/luauhost/manifest"
)

// Options configures a Runtime.
type Options struct {
	// Engine tunes the underlying wazero engine. Nil means defaults.
	Engine *engine.Config
	// Bridge receives invariant failures from every build loaded into this
	// runtime. Nil means the process-wide assert.Default bridge; tests
	// should inject their own.
	Bridge *assert.Bridge
}

// Runtime owns an engine and the assertion bridge its builds report to.
type Runtime struct {
	engine *engine.Engine
	bridge *assert.Bridge
}

// New creates a runtime.
func New(ctx context.Context, opts Options) (*Runtime, error) {
	bridge := opts.Bridge
	if bridge == nil {
		bridge = assert.Default
	}

	eng, err := engine.NewWithConfig(ctx, opts.Engine)
	if err != nil {
		return nil, errors.Load("create engine", err)
	}

	return &Runtime{
		engine: eng,
		bridge: bridge,
	}, nil
}

// Bridge returns the assertion bridge builds in this runtime report to.
func (r *Runtime) Bridge() *assert.Bridge {
	return r.bridge
}

// RegisterAssertionHandler installs h on the runtime's bridge, replacing any
// previous handler. It takes effect immediately, including for instances
// already running, and may be called any number of times.
func (r *Runtime) RegisterAssertionHandler(h assert.Handler) {
	r.bridge.Register(h)
}

// LoadModule loads a runtime build that uses the stock Luau ABI names.
func (r *Runtime) LoadModule(ctx context.Context, wasm []byte) (*Module, error) {
	return r.load(ctx, wasm, manifest.Default())
}

// LoadModuleWithManifest loads a runtime build described by a manifest JSON
// document.
func (r *Runtime) LoadModuleWithManifest(ctx context.Context, wasm, manifestJSON []byte) (*Module, error) {
	m, err := manifest.Parse(manifestJSON)
	if err != nil {
		return nil, err
	}
	return r.load(ctx, wasm, m)
}

func (r *Runtime) load(ctx context.Context, wasm []byte, m *manifest.Manifest) (*Module, error) {
	mod, err := r.engine.LoadModule(ctx, wasm, m.ABI, r.bridge)
	if err != nil {
		return nil, errors.Load("load module", err)
	}
	return &Module{
		runtime:  r,
		mod:      mod,
		manifest: m,
	}, nil
}

// Close releases all runtime resources.
// All instances must be closed before calling this.
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}

// Module is a loaded runtime build.
type Module struct {
	runtime  *Runtime
	mod      *engine.Module
	manifest *manifest.Manifest
}

// Manifest returns the manifest the build was loaded with.
func (m *Module) Manifest() *manifest.Manifest {
	return m.manifest
}

// ExportedFunctions returns the definitions of the build's function exports,
// keyed by export name.
func (m *Module) ExportedFunctions() map[string]api.FunctionDefinition {
	return m.mod.ExportedFunctions()
}

// Instantiate creates a running instance of the build.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	inst, err := m.mod.Instantiate(ctx)
	if err != nil {
		return nil, err
	}
	inst.SetAllocContext(ctx)
	return &Instance{inst: inst}, nil
}

// Close releases the compiled build.
func (m *Module) Close(ctx context.Context) error {
	return m.mod.Close(ctx)
}
