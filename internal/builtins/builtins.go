// Package builtins populates a realm with the engine-provided intrinsics:
// the minimum set the core needs for conformance hooks (Object, Function,
// Array, Error, Promise, the iterator protocols, Map/Set and their weak
// variants) plus JSON, Math, console, and the global functions.
package builtins

import (
	"math"

	"github.com/cwbudde/go-ecma/internal/runtime"
)

// Hooks are the host-supplied behaviors the built-ins cannot implement
// without the front end or embedder: dynamic Function compilation and the
// gc() test hook.
type Hooks struct {
	// CompileFunction backs the Function constructor: params source and
	// body source to a callable. nil disables dynamic Function with a
	// TypeError.
	CompileFunction func(params, body string) (runtime.Value, error)

	// ExposeGC installs a global gc() forcing a full collection.
	ExposeGC bool
}

// Initialize creates every intrinsic and the global object. It must run
// before any code executes in the realm.
func Initialize(r *runtime.Realm, hooks Hooks) {
	in := &r.Intrinsics

	// Bootstrap order matters: %Object.prototype% has no prototype, and
	// %Function.prototype% must exist before the first native function.
	in.ObjectProto = r.NewObject(nil)
	in.FunctionProto = r.NewObject(in.ObjectProto)
	in.FunctionProto.SetClass("Function")
	in.FunctionProto.SetData(&runtime.FunctionData{Name: "", Native: func(call *runtime.NativeCall) (runtime.Value, error) {
		return runtime.Undefined(), nil
	}})

	in.IteratorProto = r.NewObject(in.ObjectProto)
	in.ArrayProto = r.NewObject(in.ObjectProto)
	in.ArrayProto.SetClass("Array")
	in.StringProto = r.NewObject(in.ObjectProto)
	in.NumberProto = r.NewObject(in.ObjectProto)
	in.BooleanProto = r.NewObject(in.ObjectProto)
	in.SymbolProto = r.NewObject(in.ObjectProto)
	in.BigIntProto = r.NewObject(in.ObjectProto)
	in.RegExpProto = r.NewObject(in.ObjectProto)
	in.ArrayIteratorProto = r.NewObject(in.IteratorProto)
	in.StringIteratorProto = r.NewObject(in.IteratorProto)
	in.MapIteratorProto = r.NewObject(in.IteratorProto)
	in.SetIteratorProto = r.NewObject(in.IteratorProto)
	in.GeneratorProto = r.NewObject(in.IteratorProto)
	in.AsyncGeneratorProto = r.NewObject(in.ObjectProto)
	in.PromiseProto = r.NewObject(in.ObjectProto)
	in.MapProto = r.NewObject(in.ObjectProto)
	in.SetProto = r.NewObject(in.ObjectProto)
	in.WeakMapProto = r.NewObject(in.ObjectProto)
	in.WeakSetProto = r.NewObject(in.ObjectProto)

	setupErrorIntrinsics(r)

	global := r.NewPlainObject()
	r.Global = global
	r.GlobalEnv = r.NewGlobalEnv(global)

	setupObject(r)
	setupFunction(r, hooks)
	setupArray(r)
	setupString(r)
	setupNumberBooleanSymbol(r)
	setupIterators(r)
	setupPromise(r)
	setupCollections(r)
	setupMath(r)
	setupJSON(r)
	setupConsole(r)

	setupGlobals(r, hooks)
}

// defFn installs a built-in method with the standard attributes.
func defFn(r *runtime.Realm, target *runtime.Object, name string, length int, fn runtime.NativeFunc) {
	f := r.NewNativeFunction(name, length, fn)
	_, _ = runtime.DefineDataProperty(r, target, runtime.StringKey(name), runtime.ObjectValue(f), runtime.MethodAttrs)
}

// defSymFn installs a method keyed by a well-known symbol.
func defSymFn(r *runtime.Realm, target *runtime.Object, sym *runtime.Symbol, name string, length int, fn runtime.NativeFunc) {
	f := r.NewNativeFunction(name, length, fn)
	_, _ = runtime.DefineDataProperty(r, target, runtime.SymbolKey(sym), runtime.ObjectValue(f), runtime.MethodAttrs)
}

// defValue installs a data property with the given attributes.
func defValue(r *runtime.Realm, target *runtime.Object, name string, v runtime.Value, attrs runtime.Attributes) {
	_, _ = runtime.DefineDataProperty(r, target, runtime.StringKey(name), v, attrs)
}

// defGetter installs a native accessor.
func defGetter(r *runtime.Realm, target *runtime.Object, name string, fn runtime.NativeFunc) {
	g := r.NewNativeFunction("get "+name, 0, fn)
	_, _ = runtime.DefineAccessorProperty(r, target, runtime.StringKey(name), g, nil, runtime.AttrConfigurable)
}

// setupGlobals assembles the global object's value properties and
// functions.
func setupGlobals(r *runtime.Realm, hooks Hooks) {
	g := r.Global
	in := &r.Intrinsics

	defValue(r, g, "globalThis", runtime.ObjectValue(g), runtime.AttrWritable|runtime.AttrConfigurable)
	defValue(r, g, "undefined", runtime.Undefined(), 0)
	defValue(r, g, "NaN", runtime.NaN(), 0)
	defValue(r, g, "Infinity", runtime.Number(math.Inf(1)), 0)

	for name, ctor := range map[string]*runtime.Object{
		"Object": in.Object, "Function": in.Function, "Array": in.Array,
		"Promise": in.Promise, "Error": in.Error,
	} {
		defValue(r, g, name, runtime.ObjectValue(ctor), runtime.AttrWritable|runtime.AttrConfigurable)
	}
	for kind, ctor := range in.ErrorCtors {
		if kind != "Error" {
			defValue(r, g, string(kind), runtime.ObjectValue(ctor), runtime.AttrWritable|runtime.AttrConfigurable)
		}
	}

	defFn(r, g, "isNaN", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		n, err := runtime.ToNumber(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Boolean(math.IsNaN(n)), nil
	})
	defFn(r, g, "isFinite", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		n, err := runtime.ToNumber(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Boolean(!math.IsNaN(n) && !math.IsInf(n, 0)), nil
	})
	defFn(r, g, "parseFloat", 1, builtinParseFloat(r))
	defFn(r, g, "parseInt", 2, builtinParseInt(r))

	if hooks.ExposeGC {
		defFn(r, g, "gc", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
			r.Heap.Collect()
			return runtime.Undefined(), nil
		})
	}
}
