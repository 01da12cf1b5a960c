package ecma

import (
	"github.com/cwbudde/go-ecma/internal/bytecode"
	"github.com/cwbudde/go-ecma/internal/errors"
	"github.com/cwbudde/go-ecma/internal/lexer"
	"github.com/cwbudde/go-ecma/internal/module"
	"github.com/cwbudde/go-ecma/internal/parser"
	"github.com/cwbudde/go-ecma/internal/runtime"
	"github.com/cwbudde/go-ecma/internal/source"
)

// Module is a compiled module record bound to one Context.
type Module struct {
	ctx *Context
	rec *module.Module
}

// Specifier returns the module's normalized specifier.
func (m *Module) Specifier() string { return m.rec.Specifier }

// Requests returns the specifiers the module imports, in source order.
func (m *Module) Requests() []string { return m.rec.Requests() }

// CompileModule parses and compiles source as module code under the given
// specifier. The module is registered in the context's load cache.
func (ctx *Context) CompileModule(src, specifier string) (*Module, error) {
	src = source.DecodeString(src)
	p := parser.NewModule(lexer.New(src))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, ctx.syntaxError(errs[0].Message, errs[0].Pos, src, specifier)
	}
	cb, err := bytecode.Compile(program, ctx.realm, specifier)
	if err != nil {
		if ce, ok := err.(*bytecode.CompileError); ok {
			return nil, ctx.syntaxError(ce.Message, ce.Pos, src, specifier)
		}
		return nil, err
	}
	rec := module.New(specifier, program, cb)
	ctx.linker.Register(rec)
	return &Module{ctx: ctx, rec: rec}, nil
}

// Link resolves the module's dependency graph through the host loader and
// creates the module environments.
func (m *Module) Link() error {
	if err := m.ctx.linker.Link(m.rec); err != nil {
		return m.ctx.convertError(err, "", m.rec.Specifier)
	}
	return nil
}

// Evaluate runs the module graph and returns a promise: fulfilled with
// undefined on success, rejected with the thrown value on failure. The job
// queue drains before Evaluate returns.
func (m *Module) Evaluate() (Value, error) {
	cap := m.ctx.realm.NewPromiseCapability()
	if err := m.ctx.linker.Evaluate(m.rec); err != nil {
		reason := runtime.ThrownValue(m.ctx.realm, err)
		_, _ = m.ctx.realm.Call(runtime.ObjectValue(cap.Reject), runtime.Undefined(), []runtime.Value{reason})
	} else {
		_, _ = m.ctx.realm.Call(runtime.ObjectValue(cap.Resolve), runtime.Undefined(), []runtime.Value{runtime.Undefined()})
	}
	if err := m.ctx.RunJobs(); err != nil {
		return runtime.ObjectValue(cap.Promise), err
	}
	return runtime.ObjectValue(cap.Promise), nil
}

// Namespace returns the module namespace exotic object; the module must be
// linked.
func (m *Module) Namespace() (*Object, error) {
	if m.rec.Status() < module.Linked {
		return nil, &errors.ScriptError{Kind: errors.TypeError, Message: "module is not linked"}
	}
	return m.ctx.linker.Namespace(m.rec), nil
}

// Get reads one exported value; the module must be evaluated.
func (m *Module) Get(name string) (Value, error) {
	ns, err := m.Namespace()
	if err != nil {
		return runtime.Undefined(), err
	}
	v, err := runtime.Get(m.ctx.realm, ns, runtime.StringKey(name))
	if err != nil {
		return runtime.Undefined(), m.ctx.convertError(err, "", m.rec.Specifier)
	}
	return v, nil
}

// loaderAdapter bridges the host loader into the linker.
func (ctx *Context) loaderAdapter() module.Loader {
	return func(referrer, specifier string) (*module.Module, error) {
		if ctx.opts.ModuleLoader == nil {
			return nil, &errors.ScriptError{
				Kind:    errors.TypeError,
				Message: "no module loader installed",
			}
		}
		m, err := ctx.opts.ModuleLoader(ctx, referrer, specifier)
		if err != nil {
			return nil, err
		}
		return m.rec, nil
	}
}

// dynamicImport backs import(): load, link, evaluate, and resolve the
// promise with the namespace object.
func (ctx *Context) dynamicImport(referrer *bytecode.CodeBlock, specifier runtime.Value) (runtime.Value, error) {
	cap := ctx.realm.NewPromiseCapability()

	spec, err := runtime.ToString(ctx.realm, specifier)
	if err != nil {
		return runtime.Undefined(), err
	}
	normalized := module.Normalize(referrer.File, spec.String())

	settle := func(err error) {
		if err != nil {
			reason := runtime.ThrownValue(ctx.realm, err)
			_, _ = ctx.realm.Call(runtime.ObjectValue(cap.Reject), runtime.Undefined(), []runtime.Value{reason})
			return
		}
		rec, _ := ctx.linker.Lookup(normalized)
		ns := ctx.linker.Namespace(rec)
		_, _ = ctx.realm.Call(runtime.ObjectValue(cap.Resolve), runtime.Undefined(), []runtime.Value{runtime.ObjectValue(ns)})
	}

	rec, ok := ctx.linker.Lookup(normalized)
	if !ok {
		loaded, err := ctx.loaderAdapter()(referrer.File, normalized)
		if err != nil {
			settle(err)
			return runtime.ObjectValue(cap.Promise), nil
		}
		if loaded.Specifier == "" {
			loaded.Specifier = normalized
		}
		ctx.linker.Register(loaded)
		rec = loaded
	}
	if err := ctx.linker.Link(rec); err != nil {
		settle(err)
		return runtime.ObjectValue(cap.Promise), nil
	}
	settle(ctx.linker.Evaluate(rec))
	return runtime.ObjectValue(cap.Promise), nil
}

// importMeta materializes import.meta for a module code block.
func (ctx *Context) importMeta(referrer *bytecode.CodeBlock) runtime.Value {
	meta := ctx.realm.NewObject(nil)
	_, _ = runtime.CreateDataProperty(ctx.realm, meta, runtime.StringKey("url"),
		runtime.StringValue(ctx.realm.Intern(referrer.File)))
	if ctx.opts.ImportMeta != nil {
		for k, v := range ctx.opts.ImportMeta(ctx, referrer.File) {
			_, _ = runtime.CreateDataProperty(ctx.realm, meta, runtime.StringKey(k), v)
		}
	}
	return runtime.ObjectValue(meta)
}
