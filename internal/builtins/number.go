package builtins

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/cwbudde/go-ecma/internal/runtime"
)

// setupNumberBooleanSymbol wires the remaining primitive wrappers: Number,
// Boolean, Symbol, and BigInt.
func setupNumberBooleanSymbol(r *runtime.Realm) {
	in := &r.Intrinsics

	// Number.
	numberProto := in.NumberProto
	numberProto.SetClass("Number")
	numberCtor := r.NewNativeConstructor("Number", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		n := 0.0
		if len(call.Args) > 0 {
			var err error
			n, err = runtime.ToNumber(r, call.Arg(0))
			if err != nil {
				return runtime.Undefined(), err
			}
		}
		if call.NewTarget.IsUndefined() {
			return runtime.Number(n), nil
		}
		obj, err := runtime.ToObject(r, runtime.Number(n))
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.ObjectValue(obj), nil
	})
	defValue(r, r.Global, "Number", runtime.ObjectValue(numberCtor), runtime.AttrWritable|runtime.AttrConfigurable)
	defValue(r, numberCtor, "prototype", runtime.ObjectValue(numberProto), 0)
	defValue(r, numberProto, "constructor", runtime.ObjectValue(numberCtor), runtime.MethodAttrs)

	defValue(r, numberCtor, "MAX_SAFE_INTEGER", runtime.Number(1<<53-1), 0)
	defValue(r, numberCtor, "MIN_SAFE_INTEGER", runtime.Number(-(1<<53 - 1)), 0)
	defValue(r, numberCtor, "EPSILON", runtime.Number(math.Nextafter(1, 2)-1), 0)
	defValue(r, numberCtor, "POSITIVE_INFINITY", runtime.Number(math.Inf(1)), 0)
	defValue(r, numberCtor, "NEGATIVE_INFINITY", runtime.Number(math.Inf(-1)), 0)
	defValue(r, numberCtor, "NaN", runtime.NaN(), 0)

	defFn(r, numberCtor, "isNaN", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		return runtime.Boolean(call.Arg(0).IsNumber() && math.IsNaN(call.Arg(0).Num())), nil
	})
	defFn(r, numberCtor, "isFinite", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		v := call.Arg(0)
		return runtime.Boolean(v.IsNumber() && !math.IsNaN(v.Num()) && !math.IsInf(v.Num(), 0)), nil
	})
	defFn(r, numberCtor, "isInteger", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		v := call.Arg(0)
		return runtime.Boolean(v.IsNumber() && !math.IsNaN(v.Num()) && !math.IsInf(v.Num(), 0) && v.Num() == math.Trunc(v.Num())), nil
	})
	defFn(r, numberCtor, "parseFloat", 1, builtinParseFloat(r))
	defFn(r, numberCtor, "parseInt", 2, builtinParseInt(r))

	numberThis := func(call *runtime.NativeCall) (float64, error) {
		if call.This.IsNumber() {
			return call.This.Num(), nil
		}
		if call.This.IsObject() {
			if pd, ok := call.This.Obj().Data().(*runtime.PrimitiveData); ok && pd.Value.IsNumber() {
				return pd.Value.Num(), nil
			}
		}
		return 0, r.NewTypeError("Number.prototype method called on incompatible receiver")
	}
	defFn(r, numberProto, "toString", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		n, err := numberThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		radix := 10
		if !call.Arg(0).IsUndefined() {
			rv, err := runtime.ToNumber(r, call.Arg(0))
			if err != nil {
				return runtime.Undefined(), err
			}
			radix = int(rv)
		}
		if radix < 2 || radix > 36 {
			return runtime.Undefined(), r.NewRangeError("radix must be between 2 and 36")
		}
		if radix == 10 {
			return runtime.StringValue(r.Intern(runtime.NumberToString(n))), nil
		}
		return runtime.StringValue(r.Intern(strconv.FormatInt(int64(n), radix))), nil
	})
	defFn(r, numberProto, "toFixed", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		n, err := numberThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		digits := 0
		if !call.Arg(0).IsUndefined() {
			dv, err := runtime.ToNumber(r, call.Arg(0))
			if err != nil {
				return runtime.Undefined(), err
			}
			digits = int(dv)
		}
		if digits < 0 || digits > 100 {
			return runtime.Undefined(), r.NewRangeError("toFixed digits out of range")
		}
		return runtime.StringValue(r.Intern(strconv.FormatFloat(n, 'f', digits, 64))), nil
	})
	defFn(r, numberProto, "valueOf", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		n, err := numberThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Number(n), nil
	})

	// Boolean.
	boolProto := in.BooleanProto
	boolProto.SetClass("Boolean")
	boolCtor := r.NewNativeConstructor("Boolean", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		b := runtime.ToBoolean(call.Arg(0))
		if call.NewTarget.IsUndefined() {
			return runtime.Boolean(b), nil
		}
		obj, err := runtime.ToObject(r, runtime.Boolean(b))
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.ObjectValue(obj), nil
	})
	defValue(r, r.Global, "Boolean", runtime.ObjectValue(boolCtor), runtime.AttrWritable|runtime.AttrConfigurable)
	defValue(r, boolCtor, "prototype", runtime.ObjectValue(boolProto), 0)
	defValue(r, boolProto, "constructor", runtime.ObjectValue(boolCtor), runtime.MethodAttrs)

	boolThis := func(call *runtime.NativeCall) (bool, error) {
		if call.This.IsBoolean() {
			return call.This.Bool(), nil
		}
		if call.This.IsObject() {
			if pd, ok := call.This.Obj().Data().(*runtime.PrimitiveData); ok && pd.Value.IsBoolean() {
				return pd.Value.Bool(), nil
			}
		}
		return false, r.NewTypeError("Boolean.prototype method called on incompatible receiver")
	}
	defFn(r, boolProto, "toString", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		b, err := boolThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.StringValue(r.Intern(strconv.FormatBool(b))), nil
	})
	defFn(r, boolProto, "valueOf", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		b, err := boolThis(call)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Boolean(b), nil
	})

	// Symbol.
	symProto := in.SymbolProto
	symProto.SetClass("Symbol")
	symCtor := r.NewNativeFunction("Symbol", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		if !call.NewTarget.IsUndefined() {
			return runtime.Undefined(), r.NewTypeError("Symbol is not a constructor")
		}
		var desc *runtime.String
		if !call.Arg(0).IsUndefined() {
			s, err := runtime.ToString(r, call.Arg(0))
			if err != nil {
				return runtime.Undefined(), err
			}
			desc = s
		}
		return runtime.SymbolValue(runtime.NewSymbol(desc)), nil
	})
	defValue(r, r.Global, "Symbol", runtime.ObjectValue(symCtor), runtime.AttrWritable|runtime.AttrConfigurable)
	defValue(r, symCtor, "prototype", runtime.ObjectValue(symProto), 0)
	defValue(r, symProto, "constructor", runtime.ObjectValue(symCtor), runtime.MethodAttrs)

	defValue(r, symCtor, "iterator", runtime.SymbolValue(r.WellKnown.Iterator), 0)
	defValue(r, symCtor, "asyncIterator", runtime.SymbolValue(r.WellKnown.AsyncIterator), 0)
	defValue(r, symCtor, "toPrimitive", runtime.SymbolValue(r.WellKnown.ToPrimitive), 0)
	defValue(r, symCtor, "toStringTag", runtime.SymbolValue(r.WellKnown.ToStringTag), 0)
	defValue(r, symCtor, "hasInstance", runtime.SymbolValue(r.WellKnown.HasInstance), 0)
	defValue(r, symCtor, "unscopables", runtime.SymbolValue(r.WellKnown.Unscopables), 0)
	defValue(r, symCtor, "species", runtime.SymbolValue(r.WellKnown.Species), 0)

	defFn(r, symCtor, "for", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		key, err := runtime.ToString(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.SymbolValue(r.RegisteredSymbol(key.String())), nil
	})
	defFn(r, symCtor, "keyFor", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		if !call.Arg(0).IsSymbol() {
			return runtime.Undefined(), r.NewTypeError("Symbol.keyFor requires a symbol")
		}
		if key, ok := r.SymbolRegistryKey(call.Arg(0).Sym()); ok {
			return runtime.StringValue(r.Intern(key)), nil
		}
		return runtime.Undefined(), nil
	})
	defFn(r, symProto, "toString", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		sym, err := symbolThis(r, call)
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.StringValue(r.Intern(sym.String())), nil
	})

	// BigInt.
	bigProto := in.BigIntProto
	bigProto.SetClass("BigInt")
	bigCtor := r.NewNativeFunction("BigInt", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
		if !call.NewTarget.IsUndefined() {
			return runtime.Undefined(), r.NewTypeError("BigInt is not a constructor")
		}
		arg := call.Arg(0)
		switch {
		case arg.IsBigInt():
			return arg, nil
		case arg.IsNumber():
			if arg.Num() != math.Trunc(arg.Num()) || math.IsInf(arg.Num(), 0) || math.IsNaN(arg.Num()) {
				return runtime.Undefined(), r.NewRangeError("cannot convert %s to BigInt", arg.Inspect())
			}
			return runtime.BigIntValue(big.NewInt(int64(arg.Num()))), nil
		case arg.IsString():
			text := strings.TrimSpace(arg.Str().String())
			i, ok := new(big.Int).SetString(text, 0)
			if !ok {
				return runtime.Undefined(), r.NewSyntaxError("cannot convert %q to BigInt", text)
			}
			return runtime.BigIntValue(i), nil
		case arg.IsBoolean():
			if arg.Bool() {
				return runtime.BigIntValue(big.NewInt(1)), nil
			}
			return runtime.BigIntValue(big.NewInt(0)), nil
		default:
			return runtime.Undefined(), r.NewTypeError("cannot convert %s to BigInt", arg.Inspect())
		}
	})
	defValue(r, r.Global, "BigInt", runtime.ObjectValue(bigCtor), runtime.AttrWritable|runtime.AttrConfigurable)
	defValue(r, bigCtor, "prototype", runtime.ObjectValue(bigProto), 0)
	defValue(r, bigProto, "constructor", runtime.ObjectValue(bigCtor), runtime.MethodAttrs)
	defFn(r, bigProto, "toString", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		if call.This.IsBigInt() {
			return runtime.StringValue(r.Intern(call.This.BigInt().String())), nil
		}
		if call.This.IsObject() {
			if pd, ok := call.This.Obj().Data().(*runtime.PrimitiveData); ok && pd.Value.IsBigInt() {
				return runtime.StringValue(r.Intern(pd.Value.BigInt().String())), nil
			}
		}
		return runtime.Undefined(), r.NewTypeError("BigInt.prototype.toString called on incompatible receiver")
	})
}

func symbolThis(r *runtime.Realm, call *runtime.NativeCall) (*runtime.Symbol, error) {
	if call.This.IsSymbol() {
		return call.This.Sym(), nil
	}
	if call.This.IsObject() {
		if pd, ok := call.This.Obj().Data().(*runtime.PrimitiveData); ok && pd.Value.IsSymbol() {
			return pd.Value.Sym(), nil
		}
	}
	return nil, r.NewTypeError("Symbol.prototype method called on incompatible receiver")
}

// builtinParseFloat implements the global parseFloat.
func builtinParseFloat(r *runtime.Realm) runtime.NativeFunc {
	return func(call *runtime.NativeCall) (runtime.Value, error) {
		s, err := runtime.ToString(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		text := strings.TrimSpace(s.String())
		end := len(text)
		for end > 0 {
			if _, perr := strconv.ParseFloat(text[:end], 64); perr == nil {
				break
			}
			end--
		}
		if end == 0 {
			return runtime.NaN(), nil
		}
		f, _ := strconv.ParseFloat(text[:end], 64)
		return runtime.Number(f), nil
	}
}

// builtinParseInt implements the global parseInt.
func builtinParseInt(r *runtime.Realm) runtime.NativeFunc {
	return func(call *runtime.NativeCall) (runtime.Value, error) {
		s, err := runtime.ToString(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		text := strings.TrimSpace(s.String())
		radix := 0
		if !call.Arg(1).IsUndefined() {
			rv, err := runtime.ToNumber(r, call.Arg(1))
			if err != nil {
				return runtime.Undefined(), err
			}
			radix = int(rv)
		}

		sign := 1.0
		if strings.HasPrefix(text, "-") {
			sign = -1
			text = text[1:]
		} else {
			text = strings.TrimPrefix(text, "+")
		}
		if radix == 0 {
			if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
				radix = 16
				text = text[2:]
			} else {
				radix = 10
			}
		} else if radix == 16 {
			text = strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X")
		}
		if radix < 2 || radix > 36 {
			return runtime.NaN(), nil
		}

		end := 0
		for end < len(text) {
			if _, perr := strconv.ParseUint(text[:end+1], radix, 64); perr != nil {
				break
			}
			end++
		}
		if end == 0 {
			return runtime.NaN(), nil
		}
		v, _ := strconv.ParseUint(text[:end], radix, 64)
		return runtime.Number(sign * float64(v)), nil
	}
}
