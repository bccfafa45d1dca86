// Package manifest describes a runtime build's host ABI: the names of the
// exports the host calls (memory, alloc, free) and the import the runtime
// uses to report failed invariant checks. Builds that ship a manifest JSON
// alongside the .wasm can rename any of these; builds without one get the
// stock Luau names.
package manifest

import (
	"encoding/json"

	"github.com/xeipuuv/gojsonschema"

	"github.com/luaugo/luauhost/errors"
)

// Stock ABI names used by the reference Luau runtime build.
const (
	DefaultMemory       = "memory"
	DefaultAlloc        = "luau_alloc"
	DefaultFree         = "luau_free"
	DefaultAssert       = "luau_assert"
	DefaultAssertModule = "env"
)

// ABI names the boundary between host and runtime build.
type ABI struct {
	// Memory is the exported linear memory name.
	Memory string `json:"memory,omitempty"`
	// Alloc is the exported allocation function: (size i32) -> (ptr i32).
	Alloc string `json:"alloc,omitempty"`
	// Free is the exported release function: (ptr i32) -> ().
	Free string `json:"free,omitempty"`
	// Assert is the imported invariant-failure function:
	// (exprPtr, exprLen, filePtr, fileLen, line, funcPtr, funcLen i32) -> (status i32).
	Assert string `json:"assert,omitempty"`
	// AssertModule is the import module name the runtime expects Assert under.
	AssertModule string `json:"assert_module,omitempty"`
}

// Manifest describes one runtime build.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	ABI     ABI    `json:"abi,omitempty"`
}

// Default returns a manifest with the stock Luau ABI names.
func Default() *Manifest {
	return &Manifest{
		Name: "luau",
		ABI: ABI{
			Memory:       DefaultMemory,
			Alloc:        DefaultAlloc,
			Free:         DefaultFree,
			Assert:       DefaultAssert,
			AssertModule: DefaultAssertModule,
		},
	}
}

// Parse validates data against the manifest schema, unmarshals it, and fills
// omitted ABI names with the stock defaults.
func Parse(data []byte) (*Manifest, error) {
	schema := gojsonschema.NewStringLoader(Schema)
	document := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schema, document)
	if err != nil {
		return nil, errors.Manifest("validate manifest", err)
	}
	if !result.Valid() {
		// report first error
		return nil, errors.Manifest(result.Errors()[0].String(), nil)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Manifest("decode manifest", err)
	}
	m.applyDefaults()
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if m.ABI.Memory == "" {
		m.ABI.Memory = DefaultMemory
	}
	if m.ABI.Alloc == "" {
		m.ABI.Alloc = DefaultAlloc
	}
	if m.ABI.Free == "" {
		m.ABI.Free = DefaultFree
	}
	if m.ABI.Assert == "" {
		m.ABI.Assert = DefaultAssert
	}
	if m.ABI.AssertModule == "" {
		m.ABI.AssertModule = DefaultAssertModule
	}
}
