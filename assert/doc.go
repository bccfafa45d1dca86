// Package assert bridges the embedded runtime's internal invariant checks to
// a host-side handler.
//
// The runtime reports every failed invariant check through one imported host
// function. That import lands on a Bridge, which holds a single replaceable
// Handler. The handler's status travels back into the runtime: non-zero
// requests the runtime's fatal abort path, zero continues execution past the
// failed check.
//
// The default handler writes one diagnostic line per failure,
//
//	script.cpp(42): ASSERTION FAILED: x > 0
//
// to standard output and always requests abort. It is a logging tee, not a
// suppressor.
//
// Each runtime should carry its own Bridge so tests can install handlers
// without affecting each other; the package-level Default bridge exists for
// processes that want the classic set-and-forget registration.
package assert
