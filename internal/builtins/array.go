package builtins

import (
	"strings"

	"github.com/cwbudde/go-ecma/internal/runtime"
)

// setupArray wires %Array%, %Array.prototype%, and the array iterator.
func setupArray(r *runtime.Realm) {
	in := &r.Intrinsics
	proto := in.ArrayProto

	ctor := r.NewNativeConstructor("Array", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		if len(call.Args) == 1 && call.Arg(0).IsNumber() {
			n, err := runtime.ToUint32(r, call.Arg(0))
			if err != nil {
				return runtime.Undefined(), err
			}
			if float64(n) != call.Arg(0).Num() {
				return runtime.Undefined(), r.NewRangeError("invalid array length")
			}
			arr := r.NewArray()
			_, err = runtime.Set(r, arr, runtime.StringKey("length"), runtime.Number(float64(n)), true)
			return runtime.ObjectValue(arr), err
		}
		return runtime.ObjectValue(r.NewArray(call.Args...)), nil
	})
	in.Array = ctor
	defValue(r, ctor, "prototype", runtime.ObjectValue(proto), 0)
	defValue(r, proto, "constructor", runtime.ObjectValue(ctor), runtime.MethodAttrs)

	defFn(r, ctor, "isArray", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		return runtime.Boolean(call.Arg(0).IsObject() && call.Arg(0).Obj().Class() == "Array"), nil
	})
	defFn(r, ctor, "of", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		return runtime.ObjectValue(r.NewArray(call.Args...)), nil
	})
	defFn(r, ctor, "from", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		src := call.Arg(0)
		mapper := call.Arg(1)
		var items []runtime.Value
		var err error
		if src.IsObject() || src.IsString() {
			iter, iterErr := runtime.GetV(r, src, runtime.SymbolKey(r.WellKnown.Iterator))
			if iterErr == nil && iter.IsCallable() {
				items, err = runtime.IterateToList(r, src)
			} else if src.IsObject() {
				items, err = arrayLikeToList(r, src.Obj())
			}
		}
		if err != nil {
			return runtime.Undefined(), err
		}
		arr := r.NewArray()
		for i, it := range items {
			v := it
			if mapper.IsCallable() {
				v, err = r.Call(mapper, runtime.Undefined(), []runtime.Value{it, runtime.Int(i)})
				if err != nil {
					return runtime.Undefined(), err
				}
			}
			runtime.ArrayAppend(arr, v)
		}
		return runtime.ObjectValue(arr), nil
	})

	thisArray := func(call *runtime.NativeCall) (*runtime.Object, error) {
		if !call.This.IsObject() {
			return nil, r.NewTypeError("Array.prototype method called on non-object")
		}
		return call.This.Obj(), nil
	}

	defFn(r, proto, "push", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		arr, err := thisArray(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		for _, a := range call.Args {
			runtime.ArrayAppend(arr, a)
		}
		return runtime.Int(int(runtime.ArrayLength(arr))), nil
	})
	defFn(r, proto, "pop", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		arr, err := thisArray(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		n := runtime.ArrayLength(arr)
		if n == 0 {
			return runtime.Undefined(), nil
		}
		v, _ := runtime.ArrayAt(arr, n-1)
		_, err = runtime.Set(r, arr, runtime.StringKey("length"), runtime.Number(float64(n-1)), true)
		return v, err
	})
	defFn(r, proto, "shift", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		arr, err := thisArray(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		n := runtime.ArrayLength(arr)
		if n == 0 {
			return runtime.Undefined(), nil
		}
		first, _ := runtime.ArrayAt(arr, 0)
		for i := uint32(1); i < n; i++ {
			v, _ := runtime.ArrayAt(arr, i)
			_, _ = runtime.Set(r, arr, runtime.IndexKey(i-1), v, false)
		}
		_, err = runtime.Set(r, arr, runtime.StringKey("length"), runtime.Number(float64(n-1)), true)
		return first, err
	})
	defFn(r, proto, "unshift", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		arr, err := thisArray(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		n := runtime.ArrayLength(arr)
		shift := uint32(len(call.Args))
		for i := int64(n) - 1; i >= 0; i-- {
			v, _ := runtime.ArrayAt(arr, uint32(i))
			_, _ = runtime.Set(r, arr, runtime.IndexKey(uint32(i)+shift), v, false)
		}
		for i, a := range call.Args {
			_, _ = runtime.Set(r, arr, runtime.IndexKey(uint32(i)), a, false)
		}
		return runtime.Int(int(runtime.ArrayLength(arr))), nil
	})
	defFn(r, proto, "slice", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		arr, err := thisArray(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		n := int64(runtime.ArrayLength(arr))
		start := clampRelative(r, call.Arg(0), n, 0)
		end := clampRelative(r, call.Arg(1), n, n)
		out := r.NewArray()
		for i := start; i < end; i++ {
			v, _ := runtime.ArrayAt(arr, uint32(i))
			runtime.ArrayAppend(out, v)
		}
		return runtime.ObjectValue(out), nil
	})
	defFn(r, proto, "concat", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		arr, err := thisArray(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		out := r.NewArray()
		appendAll := func(v runtime.Value) {
			if v.IsObject() && v.Obj().Class() == "Array" {
				src := v.Obj()
				for i := uint32(0); i < runtime.ArrayLength(src); i++ {
					el, _ := runtime.ArrayAt(src, i)
					runtime.ArrayAppend(out, el)
				}
				return
			}
			runtime.ArrayAppend(out, v)
		}
		appendAll(runtime.ObjectValue(arr))
		for _, a := range call.Args {
			appendAll(a)
		}
		return runtime.ObjectValue(out), nil
	})
	defFn(r, proto, "indexOf", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		arr, err := thisArray(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		for i := uint32(0); i < runtime.ArrayLength(arr); i++ {
			v, ok := runtime.ArrayAt(arr, i)
			if ok && runtime.StrictEquals(v, call.Arg(0)) {
				return runtime.Int(int(i)), nil
			}
		}
		return runtime.Int(-1), nil
	})
	defFn(r, proto, "includes", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		arr, err := thisArray(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		for i := uint32(0); i < runtime.ArrayLength(arr); i++ {
			v, _ := runtime.ArrayAt(arr, i)
			if runtime.SameValueZero(v, call.Arg(0)) {
				return runtime.True(), nil
			}
		}
		return runtime.False(), nil
	})
	defFn(r, proto, "join", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		arr, err := thisArray(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		sep := ","
		if !call.Arg(0).IsUndefined() {
			s, err := runtime.ToString(r, call.Arg(0))
			if err != nil {
				return runtime.Undefined(), err
			}
			sep = s.String()
		}
		var parts []string
		for i := uint32(0); i < runtime.ArrayLength(arr); i++ {
			v, ok := runtime.ArrayAt(arr, i)
			if !ok || v.IsNullish() || v.IsEmpty() {
				parts = append(parts, "")
				continue
			}
			s, err := runtime.ToString(r, v)
			if err != nil {
				return runtime.Undefined(), err
			}
			parts = append(parts, s.String())
		}
		return runtime.StringValue(r.Intern(strings.Join(parts, sep))), nil
	})
	defFn(r, proto, "reverse", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		arr, err := thisArray(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		n := runtime.ArrayLength(arr)
		for i, j := uint32(0), n-1; n > 0 && i < j; i, j = i+1, j-1 {
			a, _ := runtime.ArrayAt(arr, i)
			b, _ := runtime.ArrayAt(arr, j)
			_, _ = runtime.Set(r, arr, runtime.IndexKey(i), b, false)
			_, _ = runtime.Set(r, arr, runtime.IndexKey(j), a, false)
		}
		return runtime.ObjectValue(arr), nil
	})

	eachFn := func(name string, visit func(out *runtime.Object, cb, thisArg, v runtime.Value, i int) (stop bool, result runtime.Value, err error), makeResult func() *runtime.Object, defaultResult func(out *runtime.Object) runtime.Value) {
		defFn(r, proto, name, 1, func(call *runtime.NativeCall) (runtime.Value, error) {
			arr, err := thisArray(call)
			if err != nil {
				return runtime.Undefined(), err
			}
			cb := call.Arg(0)
			if !cb.IsCallable() {
				return runtime.Undefined(), r.NewTypeError("%s is not a function", cb.Inspect())
			}
			var out *runtime.Object
			if makeResult != nil {
				out = makeResult()
			}
			for i := uint32(0); i < runtime.ArrayLength(arr); i++ {
				v, ok := runtime.ArrayAt(arr, i)
				if !ok {
					continue
				}
				stop, result, err := visit(out, cb, call.Arg(1), v, int(i))
				if err != nil {
					return runtime.Undefined(), err
				}
				if stop {
					return result, nil
				}
			}
			if defaultResult != nil {
				return defaultResult(out), nil
			}
			return runtime.Undefined(), nil
		})
	}

	eachFn("forEach", func(out *runtime.Object, cb, thisArg, v runtime.Value, i int) (bool, runtime.Value, error) {
		_, err := r.Call(cb, thisArg, []runtime.Value{v, runtime.Int(i)})
		return false, runtime.Undefined(), err
	}, nil, nil)

	eachFn("map", func(out *runtime.Object, cb, thisArg, v runtime.Value, i int) (bool, runtime.Value, error) {
		mapped, err := r.Call(cb, thisArg, []runtime.Value{v, runtime.Int(i)})
		if err != nil {
			return false, runtime.Undefined(), err
		}
		runtime.ArrayAppend(out, mapped)
		return false, runtime.Undefined(), nil
	}, func() *runtime.Object { return r.NewArray() }, func(out *runtime.Object) runtime.Value {
		return runtime.ObjectValue(out)
	})

	eachFn("filter", func(out *runtime.Object, cb, thisArg, v runtime.Value, i int) (bool, runtime.Value, error) {
		keep, err := r.Call(cb, thisArg, []runtime.Value{v, runtime.Int(i)})
		if err != nil {
			return false, runtime.Undefined(), err
		}
		if runtime.ToBoolean(keep) {
			runtime.ArrayAppend(out, v)
		}
		return false, runtime.Undefined(), nil
	}, func() *runtime.Object { return r.NewArray() }, func(out *runtime.Object) runtime.Value {
		return runtime.ObjectValue(out)
	})

	eachFn("find", func(out *runtime.Object, cb, thisArg, v runtime.Value, i int) (bool, runtime.Value, error) {
		hit, err := r.Call(cb, thisArg, []runtime.Value{v, runtime.Int(i)})
		if err != nil {
			return false, runtime.Undefined(), err
		}
		if runtime.ToBoolean(hit) {
			return true, v, nil
		}
		return false, runtime.Undefined(), nil
	}, nil, nil)

	eachFn("some", func(out *runtime.Object, cb, thisArg, v runtime.Value, i int) (bool, runtime.Value, error) {
		hit, err := r.Call(cb, thisArg, []runtime.Value{v, runtime.Int(i)})
		if err != nil {
			return false, runtime.Undefined(), err
		}
		if runtime.ToBoolean(hit) {
			return true, runtime.True(), nil
		}
		return false, runtime.Undefined(), nil
	}, nil, func(out *runtime.Object) runtime.Value { return runtime.False() })

	eachFn("every", func(out *runtime.Object, cb, thisArg, v runtime.Value, i int) (bool, runtime.Value, error) {
		hit, err := r.Call(cb, thisArg, []runtime.Value{v, runtime.Int(i)})
		if err != nil {
			return false, runtime.Undefined(), err
		}
		if !runtime.ToBoolean(hit) {
			return true, runtime.False(), nil
		}
		return false, runtime.Undefined(), nil
	}, nil, func(out *runtime.Object) runtime.Value { return runtime.True() })

	defFn(r, proto, "reduce", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		arr, err := thisArray(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		cb := call.Arg(0)
		if !cb.IsCallable() {
			return runtime.Undefined(), r.NewTypeError("reducer is not a function")
		}
		n := runtime.ArrayLength(arr)
		i := uint32(0)
		var acc runtime.Value
		if len(call.Args) > 1 {
			acc = call.Arg(1)
		} else {
			if n == 0 {
				return runtime.Undefined(), r.NewTypeError("reduce of empty array with no initial value")
			}
			acc, _ = runtime.ArrayAt(arr, 0)
			i = 1
		}
		for ; i < n; i++ {
			v, ok := runtime.ArrayAt(arr, i)
			if !ok {
				continue
			}
			acc, err = r.Call(cb, runtime.Undefined(), []runtime.Value{acc, v, runtime.Int(int(i))})
			if err != nil {
				return runtime.Undefined(), err
			}
		}
		return acc, nil
	})

	// Iteration protocol.
	values := r.NewNativeFunction("values", 0, arrayIteratorCtor(r, "values"))
	_, _ = runtime.DefineDataProperty(r, proto, runtime.StringKey("values"), runtime.ObjectValue(values), runtime.MethodAttrs)
	_, _ = runtime.DefineDataProperty(r, proto, runtime.SymbolKey(r.WellKnown.Iterator), runtime.ObjectValue(values), runtime.MethodAttrs)
	defFn(r, proto, "keys", 0, arrayIteratorCtor(r, "keys"))
	defFn(r, proto, "entries", 0, arrayIteratorCtor(r, "entries"))
}

// clampRelative resolves slice-style relative indices.
func clampRelative(r *runtime.Realm, v runtime.Value, length, dflt int64) int64 {
	if v.IsUndefined() {
		return dflt
	}
	n, err := runtime.ToNumber(r, v)
	if err != nil {
		return dflt
	}
	i := int64(n)
	if i < 0 {
		i += length
	}
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}
