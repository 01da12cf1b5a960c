package builtins

import (
	"github.com/cwbudde/go-ecma/internal/gc"
	"github.com/cwbudde/go-ecma/internal/runtime"
)

// setupCollections wires Map, Set, WeakMap, and WeakSet.
func setupCollections(r *runtime.Realm) {
	in := &r.Intrinsics

	// Map.
	mapProto := in.MapProto
	mapProto.SetClass("Map")
	mapCtor := r.NewNativeConstructor("Map", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		if call.NewTarget.IsUndefined() {
			return runtime.Undefined(), r.NewTypeError("Map constructor requires new")
		}
		m := r.NewMapObject()
		if iterable := call.Arg(0); !iterable.IsNullish() {
			items, err := runtime.IterateToList(r, iterable)
			if err != nil {
				return runtime.Undefined(), err
			}
			d := runtime.MapDataOf(m)
			for _, item := range items {
				if !item.IsObject() {
					return runtime.Undefined(), r.NewTypeError("map entry is not an object")
				}
				k, err := runtime.Get(r, item.Obj(), runtime.IndexKey(0))
				if err != nil {
					return runtime.Undefined(), err
				}
				v, err := runtime.Get(r, item.Obj(), runtime.IndexKey(1))
				if err != nil {
					return runtime.Undefined(), err
				}
				d.Set(k, v)
			}
		}
		return runtime.ObjectValue(m), nil
	})
	defValue(r, r.Global, "Map", runtime.ObjectValue(mapCtor), runtime.AttrWritable|runtime.AttrConfigurable)
	defValue(r, mapCtor, "prototype", runtime.ObjectValue(mapProto), 0)
	defValue(r, mapProto, "constructor", runtime.ObjectValue(mapCtor), runtime.MethodAttrs)

	mapThis := func(call *runtime.NativeCall) (*runtime.MapData, error) {
		if call.This.IsObject() {
			if d := runtime.MapDataOf(call.This.Obj()); d != nil {
				return d, nil
			}
		}
		return nil, r.NewTypeError("Map.prototype method called on incompatible receiver")
	}
	defFn(r, mapProto, "get", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := mapThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		v, _ := d.Get(call.Arg(0))
		return v, nil
	})
	defFn(r, mapProto, "set", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := mapThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		d.Set(call.Arg(0), call.Arg(1))
		return call.This, nil
	})
	defFn(r, mapProto, "has", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := mapThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Boolean(d.Has(call.Arg(0))), nil
	})
	defFn(r, mapProto, "delete", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := mapThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Boolean(d.Delete(call.Arg(0))), nil
	})
	defFn(r, mapProto, "clear", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := mapThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		d.Clear()
		return runtime.Undefined(), nil
	})
	defFn(r, mapProto, "forEach", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := mapThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		cb := call.Arg(0)
		if !cb.IsCallable() {
			return runtime.Undefined(), r.NewTypeError("callback is not a function")
		}
		err = d.Each(func(k, v runtime.Value) error {
			_, cerr := r.Call(cb, call.Arg(1), []runtime.Value{v, k, call.This})
			return cerr
		})
		return runtime.Undefined(), err
	})
	defGetter(r, mapProto, "size", func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := mapThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Int(d.Size()), nil
	})
	entriesFn := r.NewNativeFunction("entries", 0, collectionIterator(r, "entries", in.MapIteratorProto))
	_, _ = runtime.DefineDataProperty(r, mapProto, runtime.StringKey("entries"), runtime.ObjectValue(entriesFn), runtime.MethodAttrs)
	_, _ = runtime.DefineDataProperty(r, mapProto, runtime.SymbolKey(r.WellKnown.Iterator), runtime.ObjectValue(entriesFn), runtime.MethodAttrs)
	defFn(r, mapProto, "keys", 0, collectionIterator(r, "keys", in.MapIteratorProto))
	defFn(r, mapProto, "values", 0, collectionIterator(r, "values", in.MapIteratorProto))
	defCollectionIterNext(r, in.MapIteratorProto)

	// Set.
	setProto := in.SetProto
	setProto.SetClass("Set")
	setCtor := r.NewNativeConstructor("Set", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		if call.NewTarget.IsUndefined() {
			return runtime.Undefined(), r.NewTypeError("Set constructor requires new")
		}
		s := r.NewSetObject()
		if iterable := call.Arg(0); !iterable.IsNullish() {
			items, err := runtime.IterateToList(r, iterable)
			if err != nil {
				return runtime.Undefined(), err
			}
			d := runtime.SetDataOf(s)
			for _, item := range items {
				d.Add(item)
			}
		}
		return runtime.ObjectValue(s), nil
	})
	defValue(r, r.Global, "Set", runtime.ObjectValue(setCtor), runtime.AttrWritable|runtime.AttrConfigurable)
	defValue(r, setCtor, "prototype", runtime.ObjectValue(setProto), 0)
	defValue(r, setProto, "constructor", runtime.ObjectValue(setCtor), runtime.MethodAttrs)

	setThis := func(call *runtime.NativeCall) (*runtime.SetData, error) {
		if call.This.IsObject() {
			if d := runtime.SetDataOf(call.This.Obj()); d != nil {
				return d, nil
			}
		}
		return nil, r.NewTypeError("Set.prototype method called on incompatible receiver")
	}
	defFn(r, setProto, "add", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := setThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		d.Add(call.Arg(0))
		return call.This, nil
	})
	defFn(r, setProto, "has", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := setThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Boolean(d.Has(call.Arg(0))), nil
	})
	defFn(r, setProto, "delete", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := setThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Boolean(d.Delete(call.Arg(0))), nil
	})
	defFn(r, setProto, "clear", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := setThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		d.Clear()
		return runtime.Undefined(), nil
	})
	defGetter(r, setProto, "size", func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := setThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Int(d.Size()), nil
	})
	valuesFn := r.NewNativeFunction("values", 0, collectionIterator(r, "values", in.SetIteratorProto))
	_, _ = runtime.DefineDataProperty(r, setProto, runtime.StringKey("values"), runtime.ObjectValue(valuesFn), runtime.MethodAttrs)
	_, _ = runtime.DefineDataProperty(r, setProto, runtime.SymbolKey(r.WellKnown.Iterator), runtime.ObjectValue(valuesFn), runtime.MethodAttrs)
	defCollectionIterNext(r, in.SetIteratorProto)

	// WeakMap.
	wmProto := in.WeakMapProto
	wmProto.SetClass("WeakMap")
	wmCtor := r.NewNativeConstructor("WeakMap", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		if call.NewTarget.IsUndefined() {
			return runtime.Undefined(), r.NewTypeError("WeakMap constructor requires new")
		}
		return runtime.ObjectValue(r.NewWeakMapObject()), nil
	})
	defValue(r, r.Global, "WeakMap", runtime.ObjectValue(wmCtor), runtime.AttrWritable|runtime.AttrConfigurable)
	defValue(r, wmCtor, "prototype", runtime.ObjectValue(wmProto), 0)
	defValue(r, wmProto, "constructor", runtime.ObjectValue(wmCtor), runtime.MethodAttrs)

	wmThis := func(call *runtime.NativeCall) (*runtime.WeakMapData, error) {
		if call.This.IsObject() {
			if d := runtime.WeakMapDataOf(call.This.Obj()); d != nil {
				return d, nil
			}
		}
		return nil, r.NewTypeError("WeakMap.prototype method called on incompatible receiver")
	}
	weakKey := func(call *runtime.NativeCall) (*runtime.Object, error) {
		if !call.Arg(0).IsObject() {
			return nil, r.NewTypeError("weak collection keys must be objects")
		}
		return call.Arg(0).Obj(), nil
	}
	defFn(r, wmProto, "get", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := wmThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		if !call.Arg(0).IsObject() {
			return runtime.Undefined(), nil
		}
		v, _ := d.Get(call.Arg(0).Obj())
		return v, nil
	})
	defFn(r, wmProto, "set", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := wmThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		key, err := weakKey(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		d.Set(key, call.Arg(1))
		return call.This, nil
	})
	defFn(r, wmProto, "has", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := wmThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		if !call.Arg(0).IsObject() {
			return runtime.False(), nil
		}
		return runtime.Boolean(d.Has(call.Arg(0).Obj())), nil
	})
	defFn(r, wmProto, "delete", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := wmThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		if !call.Arg(0).IsObject() {
			return runtime.False(), nil
		}
		return runtime.Boolean(d.Delete(call.Arg(0).Obj())), nil
	})

	// WeakSet.
	wsProto := in.WeakSetProto
	wsProto.SetClass("WeakSet")
	wsCtor := r.NewNativeConstructor("WeakSet", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		if call.NewTarget.IsUndefined() {
			return runtime.Undefined(), r.NewTypeError("WeakSet constructor requires new")
		}
		return runtime.ObjectValue(r.NewWeakSetObject()), nil
	})
	defValue(r, r.Global, "WeakSet", runtime.ObjectValue(wsCtor), runtime.AttrWritable|runtime.AttrConfigurable)
	defValue(r, wsCtor, "prototype", runtime.ObjectValue(wsProto), 0)
	defValue(r, wsProto, "constructor", runtime.ObjectValue(wsCtor), runtime.MethodAttrs)

	wsThis := func(call *runtime.NativeCall) (*runtime.WeakSetData, error) {
		if call.This.IsObject() {
			if d := runtime.WeakSetDataOf(call.This.Obj()); d != nil {
				return d, nil
			}
		}
		return nil, r.NewTypeError("WeakSet.prototype method called on incompatible receiver")
	}
	defFn(r, wsProto, "add", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := wsThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		key, err := weakKey(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		d.Add(key)
		return call.This, nil
	})
	defFn(r, wsProto, "has", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := wsThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		if !call.Arg(0).IsObject() {
			return runtime.False(), nil
		}
		return runtime.Boolean(d.Has(call.Arg(0).Obj())), nil
	})
	defFn(r, wsProto, "delete", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, err := wsThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		if !call.Arg(0).IsObject() {
			return runtime.False(), nil
		}
		return runtime.Boolean(d.Delete(call.Arg(0).Obj())), nil
	})
}

// collectionIteratorData walks a map or set's live entries.
type collectionIteratorData struct {
	target *runtime.Object
	kind   string
	index  int
}

func (d *collectionIteratorData) Trace(mk *gc.Marker) {
	mk.Mark(d.target)
}

func collectionIterator(r *runtime.Realm, kind string, proto *runtime.Object) runtime.NativeFunc {
	return func(call *runtime.NativeCall) (runtime.Value, error) {
		if !call.This.IsObject() || runtime.MapDataOf(call.This.Obj()) == nil && runtime.SetDataOf(call.This.Obj()) == nil {
			return runtime.Undefined(), r.NewTypeError("iterator on incompatible receiver")
		}
		it := r.NewObject(proto)
		it.SetClass("Collection Iterator")
		it.SetData(&collectionIteratorData{target: call.This.Obj(), kind: kind})
		return runtime.ObjectValue(it), nil
	}
}

func defCollectionIterNext(r *runtime.Realm, proto *runtime.Object) {
	defFn(r, proto, "next", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		if !call.This.IsObject() {
			return runtime.Undefined(), r.NewTypeError("next called on non-object")
		}
		d, _ := call.This.Obj().Data().(*collectionIteratorData)
		if d == nil {
			return runtime.Undefined(), r.NewTypeError("next called on incompatible receiver")
		}
		var md *runtime.MapData
		if m := runtime.MapDataOf(d.target); m != nil {
			md = m
		} else if s := runtime.SetDataOf(d.target); s != nil {
			md = &s.MapData
		}
		if md == nil {
			return runtime.ObjectValue(runtime.CreateIterResult(r, runtime.Undefined(), true)), nil
		}

		// Walk live entries past the iterator's cursor.
		i := 0
		var result runtime.Value
		found := false
		_ = md.Each(func(k, v runtime.Value) error {
			if found {
				return nil
			}
			if i < d.index {
				i++
				return nil
			}
			d.index = i + 1
			i++
			found = true
			switch d.kind {
			case "keys":
				result = k
			case "values":
				result = v
			default:
				result = runtime.ObjectValue(r.NewArray(k, v))
			}
			return nil
		})
		if !found {
			return runtime.ObjectValue(runtime.CreateIterResult(r, runtime.Undefined(), true)), nil
		}
		return runtime.ObjectValue(runtime.CreateIterResult(r, result, false)), nil
	})
}
