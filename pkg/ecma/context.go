// Package ecma is the embedding API: create a Context, evaluate scripts,
// compile and link modules, register native functions, and drive the job
// queue. One Context owns one realm (heap, intrinsics, global object); all
// entries into a Context must be serialized by the embedder.
package ecma

import (
	"github.com/cwbudde/go-ecma/internal/builtins"
	"github.com/cwbudde/go-ecma/internal/bytecode"
	"github.com/cwbudde/go-ecma/internal/errors"
	"github.com/cwbudde/go-ecma/internal/lexer"
	"github.com/cwbudde/go-ecma/internal/module"
	"github.com/cwbudde/go-ecma/internal/parser"
	"github.com/cwbudde/go-ecma/internal/runtime"
	"github.com/cwbudde/go-ecma/internal/source"
	"github.com/cwbudde/go-ecma/pkg/token"
)

// Value is the engine's tagged value, re-exported for embedders.
type Value = runtime.Value

// Object is the engine object record.
type Object = runtime.Object

// FunctionCall carries the arguments of a host-function invocation.
type FunctionCall = runtime.NativeCall

// Convenience constructors for primitive values.
var (
	Undefined = runtime.Undefined
	Null      = runtime.Null
	Boolean   = runtime.Boolean
	Number    = runtime.Number
	Int       = runtime.Int
)

// String builds a string value.
func String(s string) Value {
	return runtime.StringValue(runtime.NewString(s))
}

// ObjectValue wraps an object reference as a value.
func ObjectValue(o *Object) Value { return runtime.ObjectValue(o) }

// Context is one isolated evaluation unit: realm, VM, and module linker.
type Context struct {
	opts   Options
	realm  *runtime.Realm
	vm     *bytecode.VM
	linker *module.Linker
}

// New creates a Context with fully initialized intrinsics.
func New(options ...Option) *Context {
	var opts Options
	for _, o := range options {
		o(&opts)
	}

	realm := runtime.NewRealm(opts.HeapThreshold)
	ctx := &Context{opts: opts, realm: realm}

	if opts.Logger != nil {
		realm.Logger = opts.Logger
	} else if opts.ConsoleOutput != nil {
		realm.Logger = &writerLogger{w: opts.ConsoleOutput}
	}
	if opts.OnUnhandledRejection != nil {
		realm.OnUnhandledRejection = opts.OnUnhandledRejection
	}

	ctx.vm = bytecode.NewVM(realm, opts.StackLimit)
	builtins.Initialize(realm, builtins.Hooks{
		CompileFunction: ctx.compileDynamicFunction,
		ExposeGC:        opts.ExposeGC,
	})
	ctx.linker = module.NewLinker(realm, ctx.vm, ctx.loaderAdapter())
	ctx.vm.OnImportCall = ctx.dynamicImport
	ctx.vm.OnImportMeta = ctx.importMeta

	return ctx
}

// Realm exposes the underlying realm for advanced embedders.
func (ctx *Context) Realm() *runtime.Realm { return ctx.realm }

// GlobalObject returns the realm's global object.
func (ctx *Context) GlobalObject() *Object { return ctx.realm.Global }

// Eval parses, compiles, and runs source as a classic script, returning
// the completion value. The job queue drains before Eval returns
// (microtask checkpoint at the end of every script evaluation).
func (ctx *Context) Eval(src string) (Value, error) {
	return ctx.EvalWithName(src, "<eval>")
}

// EvalWithName is Eval with a file name for error positions.
func (ctx *Context) EvalWithName(src, file string) (Value, error) {
	cb, err := ctx.compileScript(src, file)
	if err != nil {
		return runtime.Undefined(), err
	}
	v, err := ctx.vm.RunProgram(cb)
	if err != nil {
		return runtime.Undefined(), ctx.convertError(err, src, file)
	}
	if jobsErr := ctx.RunJobs(); jobsErr != nil {
		return v, jobsErr
	}
	return v, nil
}

// EvalBytes decodes raw script bytes (UTF-8 or UTF-16 with BOM) and
// evaluates them.
func (ctx *Context) EvalBytes(raw []byte, file string) (Value, error) {
	text, err := source.Decode(raw)
	if err != nil {
		return runtime.Undefined(), err
	}
	return ctx.EvalWithName(text, file)
}

// compileScript runs the front end over src.
func (ctx *Context) compileScript(src, file string) (*bytecode.CodeBlock, error) {
	src = source.DecodeString(src)
	var p *parser.Parser
	if ctx.opts.StrictDefault {
		p = parser.NewStrict(lexer.New(src))
	} else {
		p = parser.New(lexer.New(src))
	}
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, ctx.syntaxError(errs[0].Message, errs[0].Pos, src, file)
	}
	cb, err := bytecode.Compile(program, ctx.realm, file)
	if err != nil {
		if ce, ok := err.(*bytecode.CompileError); ok {
			return nil, ctx.syntaxError(ce.Message, ce.Pos, src, file)
		}
		return nil, err
	}
	return cb, nil
}

func (ctx *Context) syntaxError(msg string, pos token.Position, src, file string) error {
	return &errors.ScriptError{
		Kind:    errors.SyntaxError,
		Message: msg,
		Pos:     pos,
		Source:  src,
		File:    file,
	}
}

// RunJobs drains the microtask queue: promise reactions and async
// continuations run in enqueue order, then unhandled rejections flush to
// the host callback.
func (ctx *Context) RunJobs() error {
	if err := ctx.realm.RunJobs(); err != nil {
		return ctx.convertError(err, "", "")
	}
	ctx.realm.FlushUnhandledRejections()
	return nil
}

// Interrupt sets the cancellation flag; safe to call from another
// goroutine. The next back-edge or call check raises
// RangeError("execution interrupted").
func (ctx *Context) Interrupt() { ctx.realm.Interrupt() }

// Collect forces a full garbage collection at a safe point.
func (ctx *Context) Collect() { ctx.realm.Heap.Collect() }

// NewFunction registers a native function usable from script.
func (ctx *Context) NewFunction(name string, length int, fn func(call *FunctionCall) (Value, error)) *Object {
	return ctx.realm.NewNativeFunction(name, length, fn)
}

// SetGlobal defines a property on the global object.
func (ctx *Context) SetGlobal(name string, v Value) error {
	_, err := runtime.Set(ctx.realm, ctx.realm.Global, runtime.StringKey(name), v, true)
	return ctx.convertError(err, "", "")
}

// GetGlobal reads a property of the global object.
func (ctx *Context) GetGlobal(name string) (Value, error) {
	v, err := runtime.Get(ctx.realm, ctx.realm.Global, runtime.StringKey(name))
	if err != nil {
		return runtime.Undefined(), ctx.convertError(err, "", "")
	}
	return v, nil
}

// convertError turns engine errors into ScriptError at the boundary.
func (ctx *Context) convertError(err error, src, file string) error {
	if err == nil {
		return nil
	}
	thrown, ok := err.(*runtime.Thrown)
	if !ok {
		return err
	}
	se := &errors.ScriptError{
		Kind:    errors.GenericError,
		Message: thrown.Value.Inspect(),
		Stack:   thrown.Stack,
		Source:  src,
		File:    file,
	}
	if thrown.Value.IsObject() {
		obj := thrown.Value.Obj()
		if ed, isErr := obj.Data().(*runtime.ErrorData); isErr {
			se.Kind = ed.Kind
			if msg, err2 := runtime.Get(ctx.realm, obj, runtime.StringKey("message")); err2 == nil && msg.IsString() {
				se.Message = msg.Str().String()
			}
		}
	}
	if len(se.Stack) > 0 {
		se.Pos = se.Stack.Top().Pos
	}
	return se
}

// compileDynamicFunction backs the Function constructor.
func (ctx *Context) compileDynamicFunction(params, body string) (Value, error) {
	src := "(function anonymous(" + params + "\n) {\n" + body + "\n});"
	cb, err := ctx.compileScript(src, "<function>")
	if err != nil {
		if se, ok := err.(*errors.ScriptError); ok {
			return runtime.Undefined(), ctx.realm.NewSyntaxError("%s", se.Message)
		}
		return runtime.Undefined(), err
	}
	return ctx.vm.RunProgram(cb)
}
