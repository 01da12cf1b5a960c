package runtime

import "github.com/cwbudde/go-ecma/internal/gc"

// FunctionKind distinguishes the function flavors the VM must drive
// differently.
type FunctionKind uint8

const (
	FuncNormal FunctionKind = iota
	FuncArrow
	FuncGenerator
	FuncAsync
	FuncAsyncGenerator
	FuncClassConstructor
)

// CompiledCode is the compiled-function surface the runtime needs; the
// bytecode package's CodeBlock implements it. The indirection keeps the
// value model free of a dependency on the instruction set.
type CompiledCode interface {
	FunctionName() string
	ParamCount() int
	IsStrict() bool
	IsGenerator() bool
	IsAsync() bool
	IsArrow() bool
}

// NativeCall carries the arguments of a host-function invocation.
type NativeCall struct {
	Realm     *Realm
	Func      *Object
	This      Value
	Args      []Value
	NewTarget Value
}

// Arg returns the i-th argument or undefined.
func (c *NativeCall) Arg(i int) Value {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return Undefined()
}

// NativeFunc is the signature of built-in and embedder-registered
// functions.
type NativeFunc func(call *NativeCall) (Value, error)

// BoundData records Function.prototype.bind results.
type BoundData struct {
	Target *Object
	This   Value
	Args   []Value
}

// FunctionData is the host payload of every callable object.
type FunctionData struct {
	Name        string
	Length      int
	Kind        FunctionKind
	Strict      bool
	Constructor bool

	// Exactly one of Native, Code, or Bound is set.
	Native NativeFunc
	Code   CompiledCode
	Bound  *BoundData

	// Env is the closure environment paired with Code.
	Env *Environment

	// HomeObject supports super property access in methods.
	HomeObject *Object
}

func (fd *FunctionData) Trace(mk *gc.Marker) {
	mk.Mark(fd.Env)
	mk.Mark(fd.HomeObject)
	if fd.Bound != nil {
		mk.Mark(fd.Bound.Target)
		fd.Bound.This.mark(mk)
		for _, a := range fd.Bound.Args {
			a.mark(mk)
		}
	}
}

// NewNativeFunction creates a callable object wrapping a Go function.
func (r *Realm) NewNativeFunction(name string, length int, fn NativeFunc) *Object {
	o := r.NewObject(r.Intrinsics.FunctionProto)
	o.class = "Function"
	o.data = &FunctionData{
		Name:   name,
		Length: length,
		Native: fn,
	}
	r.defineNameLength(o, name, length)
	return o
}

// NewNativeConstructor creates a constructible native function.
func (r *Realm) NewNativeConstructor(name string, length int, fn NativeFunc) *Object {
	o := r.NewNativeFunction(name, length, fn)
	o.FunctionData().Constructor = true
	return o
}

// NewCompiledFunction creates the function object for a compiled code unit
// closed over env.
func (r *Realm) NewCompiledFunction(code CompiledCode, env *Environment) *Object {
	o := r.NewObject(r.Intrinsics.FunctionProto)
	o.class = "Function"
	kind := FuncNormal
	ctor := true
	switch {
	case code.IsArrow():
		kind = FuncArrow
		ctor = false
	case code.IsGenerator() && code.IsAsync():
		kind = FuncAsyncGenerator
		ctor = false
	case code.IsGenerator():
		kind = FuncGenerator
		ctor = false
	case code.IsAsync():
		kind = FuncAsync
		ctor = false
	}
	o.data = &FunctionData{
		Name:        code.FunctionName(),
		Length:      code.ParamCount(),
		Kind:        kind,
		Strict:      code.IsStrict(),
		Constructor: ctor,
		Code:        code,
		Env:         env,
	}
	r.defineNameLength(o, code.FunctionName(), code.ParamCount())

	if ctor {
		// Constructors (not arrow, generator or async) get a fresh prototype object
		// with a back-reference.
		proto := r.NewPlainObject()
		_, _ = DefineDataProperty(r, proto, StringKey("constructor"), ObjectValue(o), MethodAttrs)
		_, _ = DefineDataProperty(r, o, StringKey("prototype"), ObjectValue(proto), AttrWritable)
	}
	if kind == FuncGenerator {
		proto := r.NewObject(r.Intrinsics.GeneratorProto)
		_, _ = DefineDataProperty(r, o, StringKey("prototype"), ObjectValue(proto), AttrWritable)
	}
	return o
}

func (r *Realm) defineNameLength(o *Object, name string, length int) {
	_, _ = DefineDataProperty(r, o, StringKey("name"), StringValue(r.Intern(name)), AttrConfigurable)
	_, _ = DefineDataProperty(r, o, StringKey("length"), Int(length), AttrConfigurable)
}

// Call invokes a callable value with the given receiver and arguments.
func (r *Realm) Call(f Value, this Value, args []Value) (Value, error) {
	if !f.IsCallable() {
		return Undefined(), r.NewTypeError("%s is not a function", f.Inspect())
	}
	return r.callObject(f.Obj(), this, args, Undefined())
}

// Construct invokes a constructor with new.
func (r *Realm) Construct(f Value, args []Value, newTarget Value) (Value, error) {
	if !f.IsConstructor() {
		return Undefined(), r.NewTypeError("%s is not a constructor", f.Inspect())
	}
	if newTarget.IsUndefined() {
		newTarget = f
	}
	fn := f.Obj()
	fd := fn.FunctionData()

	if fd.Bound != nil {
		boundArgs := append(append([]Value{}, fd.Bound.Args...), args...)
		nt := newTarget
		if nt.IsObject() && nt.Obj() == fn {
			nt = ObjectValue(fd.Bound.Target)
		}
		return r.Construct(ObjectValue(fd.Bound.Target), boundArgs, nt)
	}

	if fd.Native != nil {
		return fd.Native(&NativeCall{Realm: r, Func: fn, This: Undefined(), Args: args, NewTarget: newTarget})
	}

	// Scripted construct: create this from newTarget's prototype and run
	// the body; a non-object return yields the created object.
	protoVal, err := GetV(r, newTarget, StringKey("prototype"))
	if err != nil {
		return Undefined(), err
	}
	proto := r.Intrinsics.ObjectProto
	if protoVal.IsObject() {
		proto = protoVal.Obj()
	}
	thisObj := r.NewObject(proto)

	result, err := r.callObject(fn, ObjectValue(thisObj), args, newTarget)
	if err != nil {
		return Undefined(), err
	}
	if result.IsObject() {
		return result, nil
	}
	return ObjectValue(thisObj), nil
}

// callObject dispatches through bound and native layers to the VM hook.
func (r *Realm) callObject(fn *Object, this Value, args []Value, newTarget Value) (Value, error) {
	fd := fn.FunctionData()
	if fd.Bound != nil {
		boundArgs := append(append([]Value{}, fd.Bound.Args...), args...)
		return r.callObject(fd.Bound.Target, fd.Bound.This, boundArgs, newTarget)
	}
	if fd.Native != nil {
		return fd.Native(&NativeCall{Realm: r, Func: fn, This: this, Args: args, NewTarget: newTarget})
	}
	if r.CallCompiled == nil {
		return Undefined(), r.NewTypeError("no interpreter attached to realm")
	}
	return r.CallCompiled(fn, this, args, newTarget)
}

// Bind creates the bound-function object for Function.prototype.bind.
func (r *Realm) Bind(target *Object, this Value, args []Value) *Object {
	o := r.NewObject(r.Intrinsics.FunctionProto)
	o.class = "Function"
	td := target.FunctionData()
	o.data = &FunctionData{
		Name:        "bound " + td.Name,
		Length:      max(0, td.Length-len(args)),
		Constructor: td.Constructor,
		Bound:       &BoundData{Target: target, This: this, Args: args},
	}
	r.defineNameLength(o, "bound "+td.Name, max(0, td.Length-len(args)))
	return o
}

// CallWithNewTarget invokes a callable with an explicit new.target, used
// by super() calls which run the parent constructor against an existing
// this.
func (r *Realm) CallWithNewTarget(fn *Object, this Value, args []Value, newTarget Value) (Value, error) {
	if !fn.IsCallable() {
		return Undefined(), r.NewTypeError("target is not callable")
	}
	return r.callObject(fn, this, args, newTarget)
}
