package assert

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Handler processes a failed invariant check raised inside the embedded
// runtime. The expression, file, and function strings are borrowed from the
// runtime and are only valid for the duration of the call; a handler that
// needs them longer must copy them.
//
// The returned status is reported back to the runtime: non-zero requests the
// runtime's own fatal abort path, zero tells it to continue past the failed
// check.
type Handler func(expression, file string, line int, function string) int

// Status values returned by handlers.
const (
	Continue = 0
	Abort    = 1
)

// Bridge is a handler slot for one runtime. The runtime consults the slot on
// every invariant failure, so a handler registered after instantiation still
// takes effect.
//
// Registration is an unconditional assignment: it cannot fail, and
// registering twice simply replaces the previous handler.
type Bridge struct {
	mu      sync.RWMutex
	handler Handler
}

// NewBridge creates a bridge with the default stdout handler installed.
func NewBridge() *Bridge {
	return &Bridge{handler: Stdout()}
}

// Register installs h as the bridge's handler, replacing any previous one.
// A nil h restores the default stdout handler.
func (b *Bridge) Register(h Handler) {
	if h == nil {
		h = Stdout()
	}
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// Handler returns the currently registered handler.
func (b *Bridge) Handler() Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handler
}

// Fail delivers one invariant failure to the registered handler and returns
// its status.
func (b *Bridge) Fail(expression, file string, line int, function string) int {
	return b.Handler()(expression, file, line, function)
}

// Writer returns a handler that writes the fixed single-line diagnostic
//
//	<file>(<line>): ASSERTION FAILED: <expression>
//
// to w and always requests abort. The enclosing function name is accepted
// but not printed, matching the diagnostic format of the upstream runtime.
func Writer(w io.Writer) Handler {
	return func(expression, file string, line int, _ string) int {
		fmt.Fprintf(w, "%s(%d): ASSERTION FAILED: %s\n", file, line, expression)
		return Abort
	}
}

// Stdout returns the default handler: the Writer diagnostic on os.Stdout.
func Stdout() Handler {
	return Writer(os.Stdout)
}

// Logged tees each failure into log before delegating to next. The status
// returned by next is passed through unchanged. A nil next defaults to the
// stdout handler; a nil log defaults to the nop logger.
func Logged(log *zap.Logger, next Handler) Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if next == nil {
		next = Stdout()
	}
	return func(expression, file string, line int, function string) int {
		log.Error("assertion failed",
			zap.String("expression", expression),
			zap.String("file", file),
			zap.Int("line", line),
			zap.String("function", function))
		return next(expression, file, line, function)
	}
}

// Default is the process-wide bridge used by runtimes that are not given
// their own. Construction code should prefer an injected bridge so tests can
// install distinct handlers without cross-test leakage.
var Default = NewBridge()

// Register installs h on the process-wide Default bridge.
func Register(h Handler) {
	Default.Register(h)
}
