package ecma

import (
	"fmt"
	"io"

	"github.com/cwbudde/go-ecma/internal/runtime"
)

// Options configure a Context.
type Options struct {
	// StrictDefault makes every script strict-mode code.
	StrictDefault bool

	// StackLimit bounds the interpreter frame stack; exceeding it raises
	// RangeError("stack overflow"). Zero selects the default.
	StackLimit int

	// HeapThreshold is the initial allocation budget (bytes) before the
	// first collection. Zero selects the default (~1 MiB).
	HeapThreshold int

	// ModuleLoader resolves module requests: (referrer, specifier) to a
	// compiled Module. Specifiers arrive normalized; duplicate loads for
	// the same pair are served from the cache without calling back.
	ModuleLoader func(ctx *Context, referrer, specifier string) (*Module, error)

	// OnUnhandledRejection receives rejected promises that never got a
	// handler. The default logs through the console logger and continues.
	OnUnhandledRejection func(reason Value)

	// ConsoleOutput receives console built-in output through the default
	// logger. nil drops console output unless Logger is set.
	ConsoleOutput io.Writer

	// Logger overrides the console logger entirely.
	Logger ConsoleLogger

	// ImportMeta initializes import.meta objects per module specifier.
	ImportMeta func(ctx *Context, specifier string) map[string]Value

	// ExposeGC installs a global gc() function forcing a collection;
	// intended for tests.
	ExposeGC bool
}

// Option mutates Options.
type Option func(*Options)

// WithStrict sets the strict-mode default.
func WithStrict(strict bool) Option {
	return func(o *Options) { o.StrictDefault = strict }
}

// WithStackLimit bounds the frame stack.
func WithStackLimit(limit int) Option {
	return func(o *Options) { o.StackLimit = limit }
}

// WithHeapThreshold sets the initial GC threshold in bytes.
func WithHeapThreshold(bytes int) Option {
	return func(o *Options) { o.HeapThreshold = bytes }
}

// WithModuleLoader installs the host module loader callback.
func WithModuleLoader(loader func(ctx *Context, referrer, specifier string) (*Module, error)) Option {
	return func(o *Options) { o.ModuleLoader = loader }
}

// WithConsole routes console output to w.
func WithConsole(w io.Writer) Option {
	return func(o *Options) { o.ConsoleOutput = w }
}

// WithUnhandledRejection installs the unhandled-rejection callback.
func WithUnhandledRejection(fn func(reason Value)) Option {
	return func(o *Options) { o.OnUnhandledRejection = fn }
}

// WithExposedGC installs the global gc() hook.
func WithExposedGC() Option {
	return func(o *Options) { o.ExposeGC = true }
}

// ConsoleLogger receives console output: a level string, the group depth,
// and the formatted message.
type ConsoleLogger = runtime.ConsoleLogger

// writerLogger is the default logger: plain lines with two-space group
// indentation.
type writerLogger struct {
	w io.Writer
}

func (l *writerLogger) Log(level string, depth int, msg string) {
	for i := 0; i < depth; i++ {
		fmt.Fprint(l.w, "  ")
	}
	fmt.Fprintln(l.w, msg)
}
