package builtins

import "github.com/cwbudde/go-ecma/internal/runtime"

// setupPromise wires %Promise% and %Promise.prototype% over the runtime's
// promise state machine and job queue.
func setupPromise(r *runtime.Realm) {
	in := &r.Intrinsics
	proto := in.PromiseProto
	proto.SetClass("Promise")

	ctor := r.NewNativeConstructor("Promise", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		if call.NewTarget.IsUndefined() {
			return runtime.Undefined(), r.NewTypeError("Promise constructor requires new")
		}
		executor := call.Arg(0)
		if !executor.IsCallable() {
			return runtime.Undefined(), r.NewTypeError("Promise executor is not a function")
		}
		promise := r.NewPromiseObject()
		resolve, reject := r.CreateResolvingFunctions(promise)
		_, err := r.Call(executor, runtime.Undefined(), []runtime.Value{
			runtime.ObjectValue(resolve), runtime.ObjectValue(reject),
		})
		if err != nil {
			if t, ok := err.(*runtime.Thrown); ok {
				_, _ = r.Call(runtime.ObjectValue(reject), runtime.Undefined(), []runtime.Value{t.Value})
			} else {
				return runtime.Undefined(), err
			}
		}
		return runtime.ObjectValue(promise), nil
	})
	in.Promise = ctor
	defValue(r, ctor, "prototype", runtime.ObjectValue(proto), 0)
	defValue(r, proto, "constructor", runtime.ObjectValue(ctor), runtime.MethodAttrs)

	defFn(r, ctor, "resolve", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		return runtime.ObjectValue(r.PromiseResolveValue(call.Arg(0))), nil
	})
	defFn(r, ctor, "reject", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		cap := r.NewPromiseCapability()
		_, err := r.Call(runtime.ObjectValue(cap.Reject), runtime.Undefined(), []runtime.Value{call.Arg(0)})
		return runtime.ObjectValue(cap.Promise), err
	})
	defFn(r, ctor, "all", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		items, err := runtime.IterateToList(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		cap := r.NewPromiseCapability()
		results := make([]runtime.Value, len(items))
		remaining := len(items)
		if remaining == 0 {
			_, _ = r.Call(runtime.ObjectValue(cap.Resolve), runtime.Undefined(),
				[]runtime.Value{runtime.ObjectValue(r.NewArray())})
			return runtime.ObjectValue(cap.Promise), nil
		}
		for i, item := range items {
			idx := i
			inner := r.PromiseResolveValue(item)
			onOK := r.NewNativeFunction("", 1, func(c2 *runtime.NativeCall) (runtime.Value, error) {
				results[idx] = c2.Arg(0)
				remaining--
				if remaining == 0 {
					_, _ = r.Call(runtime.ObjectValue(cap.Resolve), runtime.Undefined(),
						[]runtime.Value{runtime.ObjectValue(r.NewArray(results...))})
				}
				return runtime.Undefined(), nil
			})
			r.PerformPromiseThen(inner, runtime.ObjectValue(onOK), runtime.ObjectValue(cap.Reject), nil)
		}
		return runtime.ObjectValue(cap.Promise), nil
	})
	defFn(r, ctor, "race", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		items, err := runtime.IterateToList(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		cap := r.NewPromiseCapability()
		for _, item := range items {
			inner := r.PromiseResolveValue(item)
			r.PerformPromiseThen(inner, runtime.ObjectValue(cap.Resolve), runtime.ObjectValue(cap.Reject), nil)
		}
		return runtime.ObjectValue(cap.Promise), nil
	})

	defFn(r, proto, "then", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		promise, err := thisPromise(r, call)
		if err != nil {
			return runtime.Undefined(), err
		}
		cap := r.NewPromiseCapability()
		return r.PerformPromiseThen(promise, call.Arg(0), call.Arg(1), cap), nil
	})
	defFn(r, proto, "catch", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		promise, err := thisPromise(r, call)
		if err != nil {
			return runtime.Undefined(), err
		}
		cap := r.NewPromiseCapability()
		return r.PerformPromiseThen(promise, runtime.Undefined(), call.Arg(0), cap), nil
	})
	defFn(r, proto, "finally", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		promise, err := thisPromise(r, call)
		if err != nil {
			return runtime.Undefined(), err
		}
		onFinally := call.Arg(0)
		wrap := func(passthrough func(v runtime.Value) (runtime.Value, error)) runtime.Value {
			fn := r.NewNativeFunction("", 1, func(c2 *runtime.NativeCall) (runtime.Value, error) {
				if onFinally.IsCallable() {
					if _, err := r.Call(onFinally, runtime.Undefined(), nil); err != nil {
						return runtime.Undefined(), err
					}
				}
				return passthrough(c2.Arg(0))
			})
			return runtime.ObjectValue(fn)
		}
		cap := r.NewPromiseCapability()
		onOK := wrap(func(v runtime.Value) (runtime.Value, error) { return v, nil })
		onErr := wrap(func(v runtime.Value) (runtime.Value, error) {
			return runtime.Undefined(), runtime.Throw(v)
		})
		return r.PerformPromiseThen(promise, onOK, onErr, cap), nil
	})
}

func thisPromise(r *runtime.Realm, call *runtime.NativeCall) (*runtime.Object, error) {
	if call.This.IsObject() {
		if runtime.PromiseDataOf(call.This.Obj()) != nil {
			return call.This.Obj(), nil
		}
	}
	return nil, r.NewTypeError("Promise.prototype method called on incompatible receiver")
}
