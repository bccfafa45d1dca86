// Package runtime is the high-level API for embedding a Luau runtime build:
// create a Runtime, register an assertion handler, load the build, and work
// with instances and the buffers they hand over.
package runtime
