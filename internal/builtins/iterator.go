package builtins

import (
	"github.com/cwbudde/go-ecma/internal/gc"
	"github.com/cwbudde/go-ecma/internal/runtime"
)

// arrayIteratorData is the host payload of array iterator objects.
type arrayIteratorData struct {
	target *runtime.Object
	kind   string // "keys", "values", "entries"
	index  uint32
	done   bool
}

func (d *arrayIteratorData) Trace(mk *gc.Marker) {
	mk.Mark(d.target)
}

// arrayIteratorCtor builds the keys/values/entries methods.
func arrayIteratorCtor(r *runtime.Realm, kind string) runtime.NativeFunc {
	return func(call *runtime.NativeCall) (runtime.Value, error) {
		if !call.This.IsObject() {
			return runtime.Undefined(), r.NewTypeError("array iterator on non-object")
		}
		it := r.NewObject(r.Intrinsics.ArrayIteratorProto)
		it.SetClass("Array Iterator")
		it.SetData(&arrayIteratorData{target: call.This.Obj(), kind: kind})
		return runtime.ObjectValue(it), nil
	}
}

// setupIterators wires %IteratorPrototype%, the array and string
// iterators, and %GeneratorPrototype%.
func setupIterators(r *runtime.Realm) {
	in := &r.Intrinsics

	// %IteratorPrototype%[@@iterator] returns the receiver.
	defSymFn(r, in.IteratorProto, r.WellKnown.Iterator, "[Symbol.iterator]", 0,
		func(call *runtime.NativeCall) (runtime.Value, error) {
			return call.This, nil
		})

	defFn(r, in.ArrayIteratorProto, "next", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		if !call.This.IsObject() {
			return runtime.Undefined(), r.NewTypeError("next called on non-iterator")
		}
		d, _ := call.This.Obj().Data().(*arrayIteratorData)
		if d == nil {
			return runtime.Undefined(), r.NewTypeError("next called on incompatible receiver")
		}
		if d.done || d.index >= runtime.ArrayLength(d.target) {
			d.done = true
			return runtime.ObjectValue(runtime.CreateIterResult(r, runtime.Undefined(), true)), nil
		}
		i := d.index
		d.index++
		v, _ := runtime.ArrayAt(d.target, i)
		if v.IsEmpty() {
			v = runtime.Undefined()
		}
		switch d.kind {
		case "keys":
			return runtime.ObjectValue(runtime.CreateIterResult(r, runtime.Int(int(i)), false)), nil
		case "entries":
			pair := r.NewArray(runtime.Int(int(i)), v)
			return runtime.ObjectValue(runtime.CreateIterResult(r, runtime.ObjectValue(pair), false)), nil
		default:
			return runtime.ObjectValue(runtime.CreateIterResult(r, v, false)), nil
		}
	})

	// String iterator: code points.
	defSymFn(r, in.StringProto, r.WellKnown.Iterator, "[Symbol.iterator]", 0,
		func(call *runtime.NativeCall) (runtime.Value, error) {
			s, err := runtime.ToString(r, call.This)
			if err != nil {
				return runtime.Undefined(), err
			}
			it := r.NewObject(in.StringIteratorProto)
			it.SetClass("String Iterator")
			it.SetData(&stringIteratorData{str: s})
			return runtime.ObjectValue(it), nil
		})
	defFn(r, in.StringIteratorProto, "next", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		d, _ := call.This.Obj().Data().(*stringIteratorData)
		if d == nil {
			return runtime.Undefined(), r.NewTypeError("next called on incompatible receiver")
		}
		if d.index >= d.str.Length() {
			return runtime.ObjectValue(runtime.CreateIterResult(r, runtime.Undefined(), true)), nil
		}
		start := d.index
		end := start + 1
		u := d.str.At(start)
		if u >= 0xD800 && u <= 0xDBFF && end < d.str.Length() {
			if lo := d.str.At(end); lo >= 0xDC00 && lo <= 0xDFFF {
				end++
			}
		}
		d.index = end
		return runtime.ObjectValue(runtime.CreateIterResult(r, runtime.StringValue(d.str.Slice(start, end)), false)), nil
	})

	// %GeneratorPrototype%: next/throw/return resume the saved frame via
	// the VM hook.
	resume := func(mode runtime.GeneratorResumeMode) runtime.NativeFunc {
		return func(call *runtime.NativeCall) (runtime.Value, error) {
			if r.ResumeGenerator == nil {
				return runtime.Undefined(), r.NewTypeError("no interpreter attached to realm")
			}
			if !call.This.IsObject() {
				return runtime.Undefined(), r.NewTypeError("generator method on non-object")
			}
			return r.ResumeGenerator(call.This.Obj(), mode, call.Arg(0))
		}
	}
	defFn(r, in.GeneratorProto, "next", 1, resume(runtime.ResumeNext))
	defFn(r, in.GeneratorProto, "throw", 1, resume(runtime.ResumeThrow))
	defFn(r, in.GeneratorProto, "return", 1, resume(runtime.ResumeReturn))
}

type stringIteratorData struct {
	str   *runtime.String
	index int
}

func (d *stringIteratorData) Trace(mk *gc.Marker) {}
