// Package luauhost embeds a WebAssembly build of the Luau runtime in a Go
// process and provides the host-side glue the runtime needs: an assertion
// bridge for its internal invariant checks and a release path for buffers it
// hands to the host.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	luauhost/            Root package with core Memory and Allocator interfaces
//	├── runtime/         High-level API for loading and running a runtime build
//	├── engine/          Low-level wazero integration
//	├── assert/          Assertion bridge: handler slot and diagnostic output
//	├── guestmem/        Owned guest buffers and release bookkeeping
//	├── manifest/        Runtime build manifests (ABI export/import names)
//	├── config/          Host configuration and logger construction
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Load a runtime build and run it:
//
//	rt, err := runtime.New(ctx, runtime.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	rt.RegisterAssertionHandler(assert.Stdout())
//
//	mod, err := rt.LoadModule(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
// # Assertion Bridge
//
// The runtime imports a single host function for its invariant checks. When a
// check fails the bridge invokes the registered handler with the failing
// expression, source location, and enclosing function, then returns the
// handler's status to the runtime: non-zero requests the runtime's own fatal
// abort path, zero continues past the check. The default handler prints one
// diagnostic line per failure and always requests abort.
//
// # Buffer Ownership
//
// Buffers allocated inside the runtime and handed to the host are owned by
// the host from the moment of hand-off. They are released exactly once
// through the runtime's own allocator; after release the handle is invalid.
// Double release is a caller contract violation with undefined consequences,
// matching the allocator the runtime was built with. The guestmem package
// wraps raw handles in an owning Buffer type to make accidental double
// release harder to write.
//
// # Memory Model
//
// WASM linear memory can only grow, never shrink. Released buffers remain
// part of the instance's memory and are available for reuse by the runtime's
// allocator.
//
// # Thread Safety
//
// Runtime and Module are safe for concurrent use. Instance is NOT thread-safe
// and should be used by a single goroutine, or access must be synchronized.
package luauhost
