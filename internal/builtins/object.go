package builtins

import "github.com/cwbudde/go-ecma/internal/runtime"

// setupObject wires %Object%, %Object.prototype%, and the reflection
// statics.
func setupObject(r *runtime.Realm) {
	in := &r.Intrinsics
	proto := in.ObjectProto

	ctor := r.NewNativeConstructor("Object", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		arg := call.Arg(0)
		if arg.IsNullish() {
			return runtime.ObjectValue(r.NewPlainObject()), nil
		}
		obj, err := runtime.ToObject(r, arg)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.ObjectValue(obj), nil
	})
	in.Object = ctor
	defValue(r, ctor, "prototype", runtime.ObjectValue(proto), 0)
	defValue(r, proto, "constructor", runtime.ObjectValue(ctor), runtime.MethodAttrs)

	defFn(r, ctor, "keys", 1, objectKeysImpl(r, func(key runtime.PropertyKey, v runtime.Value) runtime.Value {
		return runtime.StringValue(r.Intern(key.String()))
	}))
	defFn(r, ctor, "values", 1, objectKeysImpl(r, func(key runtime.PropertyKey, v runtime.Value) runtime.Value {
		return v
	}))
	defFn(r, ctor, "entries", 1, objectKeysImpl(r, func(key runtime.PropertyKey, v runtime.Value) runtime.Value {
		return runtime.ObjectValue(r.NewArray(runtime.StringValue(r.Intern(key.String())), v))
	}))

	defFn(r, ctor, "getPrototypeOf", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		obj, err := runtime.ToObject(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.ObjectValue(obj.Methods().GetPrototypeOf(obj)), nil
	})
	defFn(r, ctor, "setPrototypeOf", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		target := call.Arg(0)
		if !target.IsObject() {
			return target, nil
		}
		var proto *runtime.Object
		if call.Arg(1).IsObject() {
			proto = call.Arg(1).Obj()
		} else if !call.Arg(1).IsNull() {
			return runtime.Undefined(), r.NewTypeError("prototype must be an object or null")
		}
		if !target.Obj().Methods().SetPrototypeOf(target.Obj(), proto) {
			return runtime.Undefined(), r.NewTypeError("cannot set prototype of this object")
		}
		return target, nil
	})
	defFn(r, ctor, "create", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		var proto *runtime.Object
		switch {
		case call.Arg(0).IsObject():
			proto = call.Arg(0).Obj()
		case call.Arg(0).IsNull():
		default:
			return runtime.Undefined(), r.NewTypeError("prototype must be an object or null")
		}
		obj := r.NewObject(proto)
		if props := call.Arg(1); props.IsObject() {
			if err := defineProperties(r, obj, props.Obj()); err != nil {
				return runtime.Undefined(), err
			}
		}
		return runtime.ObjectValue(obj), nil
	})
	defFn(r, ctor, "assign", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		target, err := runtime.ToObject(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		for _, src := range call.Args[1:] {
			if src.IsNullish() {
				continue
			}
			from, err := runtime.ToObject(r, src)
			if err != nil {
				return runtime.Undefined(), err
			}
			for _, key := range from.Methods().OwnPropertyKeys(from) {
				desc, ok := from.Methods().GetOwnProperty(r, from, key)
				if !ok || !desc.Enumerable {
					continue
				}
				v, err := runtime.Get(r, from, key)
				if err != nil {
					return runtime.Undefined(), err
				}
				if _, err := runtime.Set(r, target, key, v, true); err != nil {
					return runtime.Undefined(), err
				}
			}
		}
		return runtime.ObjectValue(target), nil
	})
	defFn(r, ctor, "defineProperty", 3, func(call *runtime.NativeCall) (runtime.Value, error) {
		if !call.Arg(0).IsObject() {
			return runtime.Undefined(), r.NewTypeError("Object.defineProperty called on non-object")
		}
		obj := call.Arg(0).Obj()
		key, err := runtime.ToPropertyKey(r, call.Arg(1))
		if err != nil {
			return runtime.Undefined(), err
		}
		desc, err := toPropertyDescriptor(r, call.Arg(2))
		if err != nil {
			return runtime.Undefined(), err
		}
		ok, err := obj.Methods().DefineOwnProperty(r, obj, key, desc)
		if err != nil {
			return runtime.Undefined(), err
		}
		if !ok {
			return runtime.Undefined(), r.NewTypeError("cannot define property %s", key.String())
		}
		return call.Arg(0), nil
	})
	defFn(r, ctor, "getOwnPropertyDescriptor", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		obj, err := runtime.ToObject(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		key, err := runtime.ToPropertyKey(r, call.Arg(1))
		if err != nil {
			return runtime.Undefined(), err
		}
		desc, ok := obj.Methods().GetOwnProperty(r, obj, key)
		if !ok {
			return runtime.Undefined(), nil
		}
		return runtime.ObjectValue(fromPropertyDescriptor(r, desc)), nil
	})
	defFn(r, ctor, "getOwnPropertyNames", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		obj, err := runtime.ToObject(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		arr := r.NewArray()
		for _, key := range obj.Methods().OwnPropertyKeys(obj) {
			if !key.IsSymbol() {
				runtime.ArrayAppend(arr, runtime.StringValue(r.Intern(key.String())))
			}
		}
		return runtime.ObjectValue(arr), nil
	})
	defFn(r, ctor, "preventExtensions", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		if call.Arg(0).IsObject() {
			obj := call.Arg(0).Obj()
			obj.Methods().PreventExtensions(obj)
		}
		return call.Arg(0), nil
	})
	defFn(r, ctor, "isExtensible", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		if !call.Arg(0).IsObject() {
			return runtime.False(), nil
		}
		obj := call.Arg(0).Obj()
		return runtime.Boolean(obj.Methods().IsExtensible(obj)), nil
	})
	defFn(r, ctor, "is", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		return runtime.Boolean(runtime.SameValue(call.Arg(0), call.Arg(1))), nil
	})

	// Prototype methods.
	defFn(r, proto, "hasOwnProperty", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		obj, err := runtime.ToObject(r, call.This)
		if err != nil {
			return runtime.Undefined(), err
		}
		key, err := runtime.ToPropertyKey(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		_, ok := obj.Methods().GetOwnProperty(r, obj, key)
		return runtime.Boolean(ok), nil
	})
	defFn(r, proto, "isPrototypeOf", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		if !call.Arg(0).IsObject() || !call.This.IsObject() {
			return runtime.False(), nil
		}
		target := call.This.Obj()
		for o := call.Arg(0).Obj().Proto(); o != nil; o = o.Proto() {
			if o == target {
				return runtime.True(), nil
			}
		}
		return runtime.False(), nil
	})
	defFn(r, proto, "propertyIsEnumerable", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		obj, err := runtime.ToObject(r, call.This)
		if err != nil {
			return runtime.Undefined(), err
		}
		key, err := runtime.ToPropertyKey(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		desc, ok := obj.Methods().GetOwnProperty(r, obj, key)
		return runtime.Boolean(ok && desc.Enumerable), nil
	})
	defFn(r, proto, "toString", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		switch {
		case call.This.IsUndefined():
			return runtime.StringValue(r.Intern("[object Undefined]")), nil
		case call.This.IsNull():
			return runtime.StringValue(r.Intern("[object Null]")), nil
		}
		obj, err := runtime.ToObject(r, call.This)
		if err != nil {
			return runtime.Undefined(), err
		}
		tag := obj.Class()
		custom, err := runtime.Get(r, obj, runtime.SymbolKey(r.WellKnown.ToStringTag))
		if err == nil && custom.IsString() {
			tag = custom.Str().String()
		}
		return runtime.StringValue(r.Intern("[object " + tag + "]")), nil
	})
	defFn(r, proto, "valueOf", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		obj, err := runtime.ToObject(r, call.This)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.ObjectValue(obj), nil
	})
}

// objectKeysImpl shares the keys/values/entries loop.
func objectKeysImpl(r *runtime.Realm, pick func(key runtime.PropertyKey, v runtime.Value) runtime.Value) runtime.NativeFunc {
	return func(call *runtime.NativeCall) (runtime.Value, error) {
		obj, err := runtime.ToObject(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		arr := r.NewArray()
		for _, key := range obj.Methods().OwnPropertyKeys(obj) {
			if key.IsSymbol() {
				continue
			}
			desc, ok := obj.Methods().GetOwnProperty(r, obj, key)
			if !ok || !desc.Enumerable {
				continue
			}
			v, err := runtime.Get(r, obj, key)
			if err != nil {
				return runtime.Undefined(), err
			}
			runtime.ArrayAppend(arr, pick(key, v))
		}
		return runtime.ObjectValue(arr), nil
	}
}

// toPropertyDescriptor converts a descriptor object.
func toPropertyDescriptor(r *runtime.Realm, v runtime.Value) (runtime.PropertyDescriptor, error) {
	var desc runtime.PropertyDescriptor
	if !v.IsObject() {
		return desc, r.NewTypeError("property descriptor must be an object")
	}
	obj := v.Obj()
	read := func(name string) (runtime.Value, bool, error) {
		key := runtime.StringKey(name)
		has, err := runtime.HasProperty(r, obj, key)
		if err != nil || !has {
			return runtime.Undefined(), false, err
		}
		val, err := runtime.Get(r, obj, key)
		return val, err == nil, err
	}

	if val, ok, err := read("value"); err != nil {
		return desc, err
	} else if ok {
		desc.Value = val
		desc.HasValue = true
	}
	if val, ok, err := read("writable"); err != nil {
		return desc, err
	} else if ok {
		desc.Writable = runtime.ToBoolean(val)
		desc.HasWritable = true
	}
	if val, ok, err := read("enumerable"); err != nil {
		return desc, err
	} else if ok {
		desc.Enumerable = runtime.ToBoolean(val)
		desc.HasEnumerable = true
	}
	if val, ok, err := read("configurable"); err != nil {
		return desc, err
	} else if ok {
		desc.Configurable = runtime.ToBoolean(val)
		desc.HasConfigurable = true
	}
	if val, ok, err := read("get"); err != nil {
		return desc, err
	} else if ok {
		if !val.IsUndefined() && !val.IsCallable() {
			return desc, r.NewTypeError("getter must be callable")
		}
		if val.IsCallable() {
			desc.Get = val.Obj()
		}
		desc.HasGet = true
	}
	if val, ok, err := read("set"); err != nil {
		return desc, err
	} else if ok {
		if !val.IsUndefined() && !val.IsCallable() {
			return desc, r.NewTypeError("setter must be callable")
		}
		if val.IsCallable() {
			desc.Set = val.Obj()
		}
		desc.HasSet = true
	}
	if desc.IsAccessorDescriptor() && (desc.HasValue || desc.HasWritable) {
		return desc, r.NewTypeError("descriptor cannot be both data and accessor")
	}
	return desc, nil
}

// fromPropertyDescriptor reifies a descriptor as an object.
func fromPropertyDescriptor(r *runtime.Realm, desc runtime.PropertyDescriptor) *runtime.Object {
	o := r.NewPlainObject()
	if desc.IsAccessorDescriptor() {
		gv, sv := runtime.Undefined(), runtime.Undefined()
		if desc.Get != nil {
			gv = runtime.ObjectValue(desc.Get)
		}
		if desc.Set != nil {
			sv = runtime.ObjectValue(desc.Set)
		}
		_, _ = runtime.CreateDataProperty(r, o, runtime.StringKey("get"), gv)
		_, _ = runtime.CreateDataProperty(r, o, runtime.StringKey("set"), sv)
	} else {
		_, _ = runtime.CreateDataProperty(r, o, runtime.StringKey("value"), desc.Value)
		_, _ = runtime.CreateDataProperty(r, o, runtime.StringKey("writable"), runtime.Boolean(desc.Writable))
	}
	_, _ = runtime.CreateDataProperty(r, o, runtime.StringKey("enumerable"), runtime.Boolean(desc.Enumerable))
	_, _ = runtime.CreateDataProperty(r, o, runtime.StringKey("configurable"), runtime.Boolean(desc.Configurable))
	return o
}

func defineProperties(r *runtime.Realm, target *runtime.Object, props *runtime.Object) error {
	for _, key := range props.Methods().OwnPropertyKeys(props) {
		desc, ok := props.Methods().GetOwnProperty(r, props, key)
		if !ok || !desc.Enumerable {
			continue
		}
		raw, err := runtime.Get(r, props, key)
		if err != nil {
			return err
		}
		pd, err := toPropertyDescriptor(r, raw)
		if err != nil {
			return err
		}
		if _, err := target.Methods().DefineOwnProperty(r, target, key, pd); err != nil {
			return err
		}
	}
	return nil
}
