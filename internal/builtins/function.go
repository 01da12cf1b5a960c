package builtins

import "github.com/cwbudde/go-ecma/internal/runtime"

// setupFunction wires %Function% and %Function.prototype%.
func setupFunction(r *runtime.Realm, hooks Hooks) {
	in := &r.Intrinsics
	proto := in.FunctionProto

	ctor := r.NewNativeConstructor("Function", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		if hooks.CompileFunction == nil {
			return runtime.Undefined(), r.NewTypeError("dynamic Function is not available in this context")
		}
		params := ""
		body := ""
		if len(call.Args) > 0 {
			bodyVal, err := runtime.ToString(r, call.Args[len(call.Args)-1])
			if err != nil {
				return runtime.Undefined(), err
			}
			body = bodyVal.String()
			for i, a := range call.Args[:len(call.Args)-1] {
				s, err := runtime.ToString(r, a)
				if err != nil {
					return runtime.Undefined(), err
				}
				if i > 0 {
					params += ","
				}
				params += s.String()
			}
		}
		return hooks.CompileFunction(params, body)
	})
	in.Function = ctor
	defValue(r, ctor, "prototype", runtime.ObjectValue(proto), 0)
	defValue(r, proto, "constructor", runtime.ObjectValue(ctor), runtime.MethodAttrs)

	defFn(r, proto, "call", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		var rest []runtime.Value
		if len(call.Args) > 1 {
			rest = call.Args[1:]
		}
		return r.Call(call.This, call.Arg(0), rest)
	})
	defFn(r, proto, "apply", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		var args []runtime.Value
		if list := call.Arg(1); !list.IsNullish() {
			if !list.IsObject() {
				return runtime.Undefined(), r.NewTypeError("apply arguments must be an array-like object")
			}
			var err error
			args, err = arrayLikeToList(r, list.Obj())
			if err != nil {
				return runtime.Undefined(), err
			}
		}
		return r.Call(call.This, call.Arg(0), args)
	})
	defFn(r, proto, "bind", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		if !call.This.IsCallable() {
			return runtime.Undefined(), r.NewTypeError("Function.prototype.bind called on non-callable")
		}
		var boundArgs []runtime.Value
		if len(call.Args) > 1 {
			boundArgs = append(boundArgs, call.Args[1:]...)
		}
		return runtime.ObjectValue(r.Bind(call.This.Obj(), call.Arg(0), boundArgs)), nil
	})
	defFn(r, proto, "toString", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		if !call.This.IsCallable() {
			return runtime.Undefined(), r.NewTypeError("Function.prototype.toString called on non-callable")
		}
		fd := call.This.Obj().FunctionData()
		name := fd.Name
		if fd.Native != nil {
			return runtime.StringValue(r.Intern("function " + name + "() { [native code] }")), nil
		}
		return runtime.StringValue(r.Intern("function " + name + "() { [compiled code] }")), nil
	})
	defSymFn(r, proto, r.WellKnown.HasInstance, "[Symbol.hasInstance]", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		if !call.This.IsCallable() {
			return runtime.False(), nil
		}
		ok, err := runtime.OrdinaryHasInstance(r, call.This.Obj(), call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Boolean(ok), nil
	})
}

// arrayLikeToList reads length and indexed properties.
func arrayLikeToList(r *runtime.Realm, obj *runtime.Object) ([]runtime.Value, error) {
	lenVal, err := runtime.Get(r, obj, runtime.StringKey("length"))
	if err != nil {
		return nil, err
	}
	n, err := runtime.ToLength(r, lenVal)
	if err != nil {
		return nil, err
	}
	out := make([]runtime.Value, 0, n)
	for i := int64(0); i < n; i++ {
		v, err := runtime.Get(r, obj, runtime.IndexKey(uint32(i)))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
