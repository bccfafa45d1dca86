// Package engine provides the low-level wazero integration: compiling
// runtime builds, instantiating them, bridging the assert import to a
// handler, and exposing the build's allocator and linear memory to the rest
// of the library.
//
// Most callers should use the runtime package instead, which wraps an engine
// with buffer ownership helpers and manifest handling.
package engine
