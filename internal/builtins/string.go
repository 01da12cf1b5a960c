package builtins

import (
	"strings"
	"unicode/utf16"

	"github.com/cwbudde/go-ecma/internal/runtime"
)

// setupString wires %String% and %String.prototype%.
func setupString(r *runtime.Realm) {
	in := &r.Intrinsics
	proto := in.StringProto
	proto.SetClass("String")

	ctor := r.NewNativeConstructor("String", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		if len(call.Args) == 0 {
			if call.NewTarget.IsUndefined() {
				return runtime.StringValue(r.Intern("")), nil
			}
			return runtime.ObjectValue(runtime.NewStringExotic(r, r.Intern(""))), nil
		}
		arg := call.Arg(0)
		if arg.IsSymbol() && call.NewTarget.IsUndefined() {
			return runtime.StringValue(r.Intern(arg.Sym().String())), nil
		}
		s, err := runtime.ToString(r, arg)
		if err != nil {
			return runtime.Undefined(), err
		}
		if call.NewTarget.IsUndefined() {
			return runtime.StringValue(s), nil
		}
		return runtime.ObjectValue(runtime.NewStringExotic(r, s)), nil
	})
	defValue(r, r.Global, "String", runtime.ObjectValue(ctor), runtime.AttrWritable|runtime.AttrConfigurable)
	defValue(r, ctor, "prototype", runtime.ObjectValue(proto), 0)
	defValue(r, proto, "constructor", runtime.ObjectValue(ctor), runtime.MethodAttrs)

	defFn(r, ctor, "fromCharCode", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		units := make([]uint16, 0, len(call.Args))
		for _, a := range call.Args {
			n, err := runtime.ToNumber(r, a)
			if err != nil {
				return runtime.Undefined(), err
			}
			units = append(units, uint16(int64(n)))
		}
		return runtime.StringValue(runtime.NewStringFromUnits(units)), nil
	})

	thisString := func(call *runtime.NativeCall) (*runtime.String, error) {
		if err := runtime.RequireObjectCoercible(r, call.This); err != nil {
			return nil, err
		}
		return runtime.ToString(r, call.This)
	}

	defFn(r, proto, "charAt", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		s, err := thisString(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		i, err := runtime.ToNumber(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		idx := int(i)
		if idx < 0 || idx >= s.Length() {
			return runtime.StringValue(r.Intern("")), nil
		}
		return runtime.StringValue(s.Slice(idx, idx+1)), nil
	})
	defFn(r, proto, "charCodeAt", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		s, err := thisString(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		i, err := runtime.ToNumber(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		idx := int(i)
		if idx < 0 || idx >= s.Length() {
			return runtime.NaN(), nil
		}
		return runtime.Int(int(s.At(idx))), nil
	})
	defFn(r, proto, "codePointAt", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		s, err := thisString(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		i, err := runtime.ToNumber(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		idx := int(i)
		if idx < 0 || idx >= s.Length() {
			return runtime.Undefined(), nil
		}
		u := s.At(idx)
		if u >= 0xD800 && u <= 0xDBFF && idx+1 < s.Length() {
			if lo := s.At(idx + 1); lo >= 0xDC00 && lo <= 0xDFFF {
				return runtime.Int(int(utf16.DecodeRune(rune(u), rune(lo)))), nil
			}
		}
		return runtime.Int(int(u)), nil
	})
	defFn(r, proto, "indexOf", 1, stringIndexOf(r, thisString, false))
	defFn(r, proto, "lastIndexOf", 1, stringIndexOf(r, thisString, true))
	defFn(r, proto, "includes", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		s, sub, err := stringPair(r, call, thisString)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Boolean(strings.Contains(s, sub)), nil
	})
	defFn(r, proto, "startsWith", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		s, sub, err := stringPair(r, call, thisString)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Boolean(strings.HasPrefix(s, sub)), nil
	})
	defFn(r, proto, "endsWith", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		s, sub, err := stringPair(r, call, thisString)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Boolean(strings.HasSuffix(s, sub)), nil
	})
	defFn(r, proto, "slice", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		s, err := thisString(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		n := int64(s.Length())
		start := clampRelative(r, call.Arg(0), n, 0)
		end := clampRelative(r, call.Arg(1), n, n)
		if start >= end {
			return runtime.StringValue(r.Intern("")), nil
		}
		return runtime.StringValue(s.Slice(int(start), int(end))), nil
	})
	defFn(r, proto, "substring", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		s, err := thisString(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		n := int64(s.Length())
		a := clampAbsolute(r, call.Arg(0), n, 0)
		b := clampAbsolute(r, call.Arg(1), n, n)
		if a > b {
			a, b = b, a
		}
		return runtime.StringValue(s.Slice(int(a), int(b))), nil
	})
	defFn(r, proto, "toUpperCase", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		s, err := thisString(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.StringValue(runtime.NewString(strings.ToUpper(s.String()))), nil
	})
	defFn(r, proto, "toLowerCase", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		s, err := thisString(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.StringValue(runtime.NewString(strings.ToLower(s.String()))), nil
	})
	defFn(r, proto, "trim", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		s, err := thisString(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.StringValue(runtime.NewString(strings.TrimSpace(s.String()))), nil
	})
	defFn(r, proto, "repeat", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		s, err := thisString(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		n, err := runtime.ToNumber(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		if n < 0 {
			return runtime.Undefined(), r.NewRangeError("repeat count must be non-negative")
		}
		return runtime.StringValue(runtime.NewString(strings.Repeat(s.String(), int(n)))), nil
	})
	defFn(r, proto, "split", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		s, err := thisString(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		if call.Arg(0).IsUndefined() {
			return runtime.ObjectValue(r.NewArray(runtime.StringValue(s))), nil
		}
		sep, err := runtime.ToString(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		parts := strings.Split(s.String(), sep.String())
		arr := r.NewArray()
		for _, p := range parts {
			runtime.ArrayAppend(arr, runtime.StringValue(runtime.NewString(p)))
		}
		return runtime.ObjectValue(arr), nil
	})
	defFn(r, proto, "concat", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		s, err := thisString(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		out := s
		for _, a := range call.Args {
			part, err := runtime.ToString(r, a)
			if err != nil {
				return runtime.Undefined(), err
			}
			out = runtime.Concat(out, part)
		}
		return runtime.StringValue(out), nil
	})
	defFn(r, proto, "toString", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		return stringThisValue(r, call)
	})
	defFn(r, proto, "valueOf", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		return stringThisValue(r, call)
	})
}

// stringThisValue unwraps a string receiver (primitive or wrapper).
func stringThisValue(r *runtime.Realm, call *runtime.NativeCall) (runtime.Value, error) {
	if call.This.IsString() {
		return call.This, nil
	}
	if call.This.IsObject() {
		if pd, ok := call.This.Obj().Data().(*runtime.PrimitiveData); ok && pd.Value.IsString() {
			return pd.Value, nil
		}
	}
	return runtime.Undefined(), r.NewTypeError("String.prototype method called on incompatible receiver")
}

func stringPair(r *runtime.Realm, call *runtime.NativeCall, thisString func(*runtime.NativeCall) (*runtime.String, error)) (string, string, error) {
	s, err := thisString(call)
	if err != nil {
		return "", "", err
	}
	sub, err := runtime.ToString(r, call.Arg(0))
	if err != nil {
		return "", "", err
	}
	return s.String(), sub.String(), nil
}

func stringIndexOf(r *runtime.Realm, thisString func(*runtime.NativeCall) (*runtime.String, error), last bool) runtime.NativeFunc {
	return func(call *runtime.NativeCall) (runtime.Value, error) {
		s, sub, err := stringPair(r, call, thisString)
		if err != nil {
			return runtime.Undefined(), err
		}
		var byteIdx int
		if last {
			byteIdx = strings.LastIndex(s, sub)
		} else {
			byteIdx = strings.Index(s, sub)
		}
		if byteIdx < 0 {
			return runtime.Int(-1), nil
		}
		// Convert the byte offset back to UTF-16 units.
		prefix := runtime.NewString(s[:byteIdx])
		return runtime.Int(prefix.Length()), nil
	}
}

// clampAbsolute resolves substring-style indices (negatives clamp to 0).
func clampAbsolute(r *runtime.Realm, v runtime.Value, length, dflt int64) int64 {
	if v.IsUndefined() {
		return dflt
	}
	n, err := runtime.ToNumber(r, v)
	if err != nil {
		return dflt
	}
	i := int64(n)
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}
