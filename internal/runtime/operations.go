package runtime

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Get reads o[key] with o itself as receiver.
func Get(r *Realm, o *Object, key PropertyKey) (Value, error) {
	return o.methods.Get(r, o, key, ObjectValue(o))
}

// Set writes o[key]; when throwOnFail is set a refused write is a
// TypeError (strict-mode assignment).
func Set(r *Realm, o *Object, key PropertyKey, v Value, throwOnFail bool) (bool, error) {
	ok, err := o.methods.Set(r, o, key, v, ObjectValue(o))
	if err != nil {
		return false, err
	}
	if !ok && throwOnFail {
		return false, r.NewTypeError("cannot assign to property '%s'", key.String())
	}
	return ok, nil
}

// HasProperty checks key on o and its prototype chain.
func HasProperty(r *Realm, o *Object, key PropertyKey) (bool, error) {
	return o.methods.HasProperty(r, o, key)
}

// DefineDataProperty defines a data property with explicit attributes.
func DefineDataProperty(r *Realm, o *Object, key PropertyKey, v Value, attrs Attributes) (bool, error) {
	return o.methods.DefineOwnProperty(r, o, key, DataDescriptor(v, attrs))
}

// CreateDataProperty defines a default-attribute data property.
func CreateDataProperty(r *Realm, o *Object, key PropertyKey, v Value) (bool, error) {
	return DefineDataProperty(r, o, key, v, DefaultDataAttrs)
}

// DefineAccessorProperty defines an accessor property.
func DefineAccessorProperty(r *Realm, o *Object, key PropertyKey, get, set *Object, attrs Attributes) (bool, error) {
	return o.methods.DefineOwnProperty(r, o, key, AccessorDescriptor(get, set, attrs|AttrAccessor))
}

// GetV reads key from any value, routing primitives through their wrapper
// prototypes without materializing wrappers.
func GetV(r *Realm, v Value, key PropertyKey) (Value, error) {
	switch v.Kind() {
	case KindObject:
		return v.Obj().methods.Get(r, v.Obj(), key, v)
	case KindUndefined, KindNull, KindEmpty:
		return Undefined(), r.NewTypeError("cannot read property '%s' of %s", key.String(), v.Inspect())
	case KindString:
		s := v.Str()
		if !key.IsSymbol() {
			if key.str == "length" {
				return Int(s.Length()), nil
			}
			if idx, ok := key.AsIndex(); ok {
				if int(idx) < s.Length() {
					return StringValue(s.Slice(int(idx), int(idx)+1)), nil
				}
				return Undefined(), nil
			}
		}
		return protoGet(r, r.Intrinsics.StringProto, key, v)
	case KindNumber:
		return protoGet(r, r.Intrinsics.NumberProto, key, v)
	case KindBoolean:
		return protoGet(r, r.Intrinsics.BooleanProto, key, v)
	case KindBigInt:
		return protoGet(r, r.Intrinsics.BigIntProto, key, v)
	case KindSymbol:
		if !key.IsSymbol() && key.str == "description" {
			if desc := v.Sym().Description; desc != nil {
				return StringValue(desc), nil
			}
			return Undefined(), nil
		}
		return protoGet(r, r.Intrinsics.SymbolProto, key, v)
	default:
		return Undefined(), nil
	}
}

func protoGet(r *Realm, proto *Object, key PropertyKey, receiver Value) (Value, error) {
	if proto == nil {
		return Undefined(), nil
	}
	return proto.methods.Get(r, proto, key, receiver)
}

// SetV writes key on any value; primitive receivers silently drop the
// write in sloppy mode and throw in strict mode.
func SetV(r *Realm, v Value, key PropertyKey, val Value, strict bool) error {
	switch v.Kind() {
	case KindObject:
		ok, err := v.Obj().methods.Set(r, v.Obj(), key, val, v)
		if err != nil {
			return err
		}
		if !ok && strict {
			return r.NewTypeError("cannot assign to property '%s'", key.String())
		}
		return nil
	case KindUndefined, KindNull, KindEmpty:
		return r.NewTypeError("cannot set property '%s' of %s", key.String(), v.Inspect())
	default:
		if strict {
			return r.NewTypeError("cannot create property '%s' on %s", key.String(), TypeOf(v))
		}
		return nil
	}
}

// RequireObjectCoercible rejects undefined and null.
func RequireObjectCoercible(r *Realm, v Value) error {
	if v.IsNullish() || v.IsEmpty() {
		return r.NewTypeError("value is not object coercible: %s", v.Inspect())
	}
	return nil
}

// ToObject wraps primitives in their object forms.
func ToObject(r *Realm, v Value) (*Object, error) {
	switch v.Kind() {
	case KindObject:
		return v.Obj(), nil
	case KindString:
		o := NewStringExotic(r, v.Str())
		return o, nil
	case KindNumber:
		o := r.NewObject(r.Intrinsics.NumberProto)
		o.class = "Number"
		o.data = &PrimitiveData{Value: v}
		return o, nil
	case KindBoolean:
		o := r.NewObject(r.Intrinsics.BooleanProto)
		o.class = "Boolean"
		o.data = &PrimitiveData{Value: v}
		return o, nil
	case KindBigInt:
		o := r.NewObject(r.Intrinsics.BigIntProto)
		o.class = "BigInt"
		o.data = &PrimitiveData{Value: v}
		return o, nil
	case KindSymbol:
		o := r.NewObject(r.Intrinsics.SymbolProto)
		o.class = "Symbol"
		o.data = &PrimitiveData{Value: v}
		return o, nil
	default:
		return nil, r.NewTypeError("cannot convert %s to object", v.Inspect())
	}
}

// PrimitiveData is the [[PrimitiveValue]] payload of wrapper objects.
type PrimitiveData struct {
	Value Value
}

// ToPrimitive applies the abstract operation with the given hint
// ("default", "number", "string"), consulting @@toPrimitive first.
func ToPrimitive(r *Realm, v Value, hint string) (Value, error) {
	if !v.IsObject() {
		return v, nil
	}
	o := v.Obj()

	exotic, err := Get(r, o, SymbolKey(r.WellKnown.ToPrimitive))
	if err != nil {
		return Undefined(), err
	}
	if !exotic.IsNullish() {
		result, err := r.Call(exotic, v, []Value{StringValue(r.Intern(hint))})
		if err != nil {
			return Undefined(), err
		}
		if !result.IsObject() {
			return result, nil
		}
		return Undefined(), r.NewTypeError("Symbol.toPrimitive returned an object")
	}

	order := []string{"valueOf", "toString"}
	if hint == "string" {
		order = []string{"toString", "valueOf"}
	}
	for _, name := range order {
		method, err := Get(r, o, StringKey(name))
		if err != nil {
			return Undefined(), err
		}
		if method.IsCallable() {
			result, err := r.Call(method, v, nil)
			if err != nil {
				return Undefined(), err
			}
			if !result.IsObject() {
				return result, nil
			}
		}
	}
	return Undefined(), r.NewTypeError("cannot convert object to primitive value")
}

// ToNumber applies the ToNumber abstract operation.
func ToNumber(r *Realm, v Value) (float64, error) {
	switch v.Kind() {
	case KindNumber:
		return v.Num(), nil
	case KindUndefined, KindEmpty:
		return math.NaN(), nil
	case KindNull:
		return 0, nil
	case KindBoolean:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	case KindString:
		return StringToNumber(v.Str().String()), nil
	case KindSymbol:
		return 0, r.NewTypeError("cannot convert a Symbol to a number")
	case KindBigInt:
		return 0, r.NewTypeError("cannot convert a BigInt to a number")
	default:
		prim, err := ToPrimitive(r, v, "number")
		if err != nil {
			return 0, err
		}
		return ToNumber(r, prim)
	}
}

// ToNumeric yields a Number or BigInt value.
func ToNumeric(r *Realm, v Value) (Value, error) {
	prim, err := ToPrimitive(r, v, "number")
	if err != nil {
		return Undefined(), err
	}
	if prim.IsBigInt() {
		return prim, nil
	}
	n, err := ToNumber(r, prim)
	if err != nil {
		return Undefined(), err
	}
	return Number(n), nil
}

// StringToNumber implements the string grammar of ToNumber.
func StringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		var base int
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			if u, err := strconv.ParseUint(s[2:], base, 64); err == nil {
				return float64(u)
			}
			return math.NaN()
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ToString applies the ToString abstract operation.
func ToString(r *Realm, v Value) (*String, error) {
	switch v.Kind() {
	case KindString:
		return v.Str(), nil
	case KindUndefined, KindEmpty:
		return r.Intern("undefined"), nil
	case KindNull:
		return r.Intern("null"), nil
	case KindBoolean:
		return r.Intern(strconv.FormatBool(v.Bool())), nil
	case KindNumber:
		return r.Intern(NumberToString(v.Num())), nil
	case KindBigInt:
		return r.Intern(v.BigInt().String()), nil
	case KindSymbol:
		return nil, r.NewTypeError("cannot convert a Symbol to a string")
	default:
		prim, err := ToPrimitive(r, v, "string")
		if err != nil {
			return nil, err
		}
		return ToString(r, prim)
	}
}

// ToPropertyKey converts a value to a string or symbol key.
func ToPropertyKey(r *Realm, v Value) (PropertyKey, error) {
	prim, err := ToPrimitive(r, v, "string")
	if err != nil {
		return PropertyKey{}, err
	}
	if prim.IsSymbol() {
		return SymbolKey(prim.Sym()), nil
	}
	s, err := ToString(r, prim)
	if err != nil {
		return PropertyKey{}, err
	}
	return StringKey(s.Key()), nil
}

// ToInt32 applies the ToInt32 abstract operation.
func ToInt32(r *Realm, v Value) (int32, error) {
	f, err := ToNumber(r, v)
	if err != nil {
		return 0, err
	}
	return toInt32(f), nil
}

func toInt32(f float64) int32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(uint32(int64(math.Trunc(f))))
}

// ToUint32 applies the ToUint32 abstract operation.
func ToUint32(r *Realm, v Value) (uint32, error) {
	f, err := ToNumber(r, v)
	if err != nil {
		return 0, err
	}
	return toUint32(f), nil
}

func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return uint32(int64(math.Trunc(f)))
}

// ToLength clamps to [0, 2^53-1].
func ToLength(r *Realm, v Value) (int64, error) {
	f, err := ToNumber(r, v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || f <= 0 {
		return 0, nil
	}
	const maxLength = 1<<53 - 1
	if f > maxLength {
		return maxLength, nil
	}
	return int64(f), nil
}

// Add implements the + operator: string concatenation or numeric addition,
// including BigInt and the mixing TypeError.
func Add(r *Realm, a, b Value) (Value, error) {
	pa, err := ToPrimitive(r, a, "default")
	if err != nil {
		return Undefined(), err
	}
	pb, err := ToPrimitive(r, b, "default")
	if err != nil {
		return Undefined(), err
	}
	if pa.IsString() || pb.IsString() {
		sa, err := ToString(r, pa)
		if err != nil {
			return Undefined(), err
		}
		sb, err := ToString(r, pb)
		if err != nil {
			return Undefined(), err
		}
		return StringValue(Concat(sa, sb)), nil
	}
	na, err := ToNumeric(r, pa)
	if err != nil {
		return Undefined(), err
	}
	nb, err := ToNumeric(r, pb)
	if err != nil {
		return Undefined(), err
	}
	if na.IsBigInt() != nb.IsBigInt() {
		return Undefined(), r.NewTypeError("cannot mix BigInt and other types, use explicit conversions")
	}
	if na.IsBigInt() {
		return BigIntValue(new(big.Int).Add(na.BigInt(), nb.BigInt())), nil
	}
	return Number(na.Num() + nb.Num()), nil
}

// NumericBinary applies the remaining arithmetic operators to numeric
// operands. op is one of "-", "*", "/", "%", "**", "&", "|", "^", "<<",
// ">>", ">>>".
func NumericBinary(r *Realm, op string, a, b Value) (Value, error) {
	na, err := ToNumeric(r, a)
	if err != nil {
		return Undefined(), err
	}
	nb, err := ToNumeric(r, b)
	if err != nil {
		return Undefined(), err
	}
	if na.IsBigInt() != nb.IsBigInt() {
		return Undefined(), r.NewTypeError("cannot mix BigInt and other types, use explicit conversions")
	}
	if na.IsBigInt() {
		return bigIntBinary(r, op, na.BigInt(), nb.BigInt())
	}
	x, y := na.Num(), nb.Num()
	switch op {
	case "-":
		return Number(x - y), nil
	case "*":
		return Number(x * y), nil
	case "/":
		return Number(x / y), nil
	case "%":
		return Number(math.Mod(x, y)), nil
	case "**":
		return Number(math.Pow(x, y)), nil
	case "&":
		return Number(float64(toInt32(x) & toInt32(y))), nil
	case "|":
		return Number(float64(toInt32(x) | toInt32(y))), nil
	case "^":
		return Number(float64(toInt32(x) ^ toInt32(y))), nil
	case "<<":
		return Number(float64(toInt32(x) << (toUint32(y) & 31))), nil
	case ">>":
		return Number(float64(toInt32(x) >> (toUint32(y) & 31))), nil
	case ">>>":
		return Number(float64(toUint32(x) >> (toUint32(y) & 31))), nil
	default:
		return Undefined(), r.NewTypeError("unknown numeric operator %q", op)
	}
}

func bigIntBinary(r *Realm, op string, x, y *big.Int) (Value, error) {
	z := new(big.Int)
	switch op {
	case "-":
		return BigIntValue(z.Sub(x, y)), nil
	case "*":
		return BigIntValue(z.Mul(x, y)), nil
	case "/":
		if y.Sign() == 0 {
			return Undefined(), r.NewRangeError("division by zero")
		}
		return BigIntValue(z.Quo(x, y)), nil
	case "%":
		if y.Sign() == 0 {
			return Undefined(), r.NewRangeError("division by zero")
		}
		return BigIntValue(z.Rem(x, y)), nil
	case "**":
		if y.Sign() < 0 {
			return Undefined(), r.NewRangeError("exponent must be non-negative")
		}
		return BigIntValue(z.Exp(x, y, nil)), nil
	case "&":
		return BigIntValue(z.And(x, y)), nil
	case "|":
		return BigIntValue(z.Or(x, y)), nil
	case "^":
		return BigIntValue(z.Xor(x, y)), nil
	case "<<":
		if !y.IsInt64() {
			return Undefined(), r.NewRangeError("shift amount out of range")
		}
		return BigIntValue(z.Lsh(x, uint(y.Int64()))), nil
	case ">>":
		if !y.IsInt64() {
			return Undefined(), r.NewRangeError("shift amount out of range")
		}
		return BigIntValue(z.Rsh(x, uint(y.Int64()))), nil
	default:
		return Undefined(), r.NewTypeError("operator %q is not defined for BigInt", op)
	}
}

// Negate implements unary minus.
func Negate(r *Realm, v Value) (Value, error) {
	n, err := ToNumeric(r, v)
	if err != nil {
		return Undefined(), err
	}
	if n.IsBigInt() {
		return BigIntValue(new(big.Int).Neg(n.BigInt())), nil
	}
	return Number(-n.Num()), nil
}

// BitwiseNot implements ~.
func BitwiseNot(r *Realm, v Value) (Value, error) {
	n, err := ToNumeric(r, v)
	if err != nil {
		return Undefined(), err
	}
	if n.IsBigInt() {
		return BigIntValue(new(big.Int).Not(n.BigInt())), nil
	}
	return Number(float64(^toInt32(n.Num()))), nil
}

// LessThan implements the abstract relational comparison; the bool result
// is invalid when undefined is reported (NaN operands).
func LessThan(r *Realm, a, b Value) (result, undefined bool, err error) {
	pa, err := ToPrimitive(r, a, "number")
	if err != nil {
		return false, false, err
	}
	pb, err := ToPrimitive(r, b, "number")
	if err != nil {
		return false, false, err
	}
	if pa.IsString() && pb.IsString() {
		return pa.Str().Compare(pb.Str()) < 0, false, nil
	}
	if pa.IsBigInt() && pb.IsBigInt() {
		return pa.BigInt().Cmp(pb.BigInt()) < 0, false, nil
	}
	if pa.IsBigInt() || pb.IsBigInt() {
		// Mixed BigInt/Number comparison is defined (unlike arithmetic).
		fa, fb, ok := mixedToFloats(pa, pb)
		if !ok {
			return false, true, nil
		}
		return fa < fb, false, nil
	}
	na, err := ToNumber(r, pa)
	if err != nil {
		return false, false, err
	}
	nb, err := ToNumber(r, pb)
	if err != nil {
		return false, false, err
	}
	if math.IsNaN(na) || math.IsNaN(nb) {
		return false, true, nil
	}
	return na < nb, false, nil
}

func mixedToFloats(a, b Value) (float64, float64, bool) {
	toF := func(v Value) (float64, bool) {
		if v.IsBigInt() {
			f, _ := new(big.Float).SetInt(v.BigInt()).Float64()
			return f, true
		}
		if v.IsNumber() {
			if math.IsNaN(v.Num()) {
				return 0, false
			}
			return v.Num(), true
		}
		return 0, false
	}
	fa, ok := toF(a)
	if !ok {
		return 0, 0, false
	}
	fb, ok := toF(b)
	if !ok {
		return 0, 0, false
	}
	return fa, fb, true
}

// Equals implements the == abstract equality comparison.
func Equals(r *Realm, a, b Value) (bool, error) {
	if a.Kind() == b.Kind() {
		return StrictEquals(a, b), nil
	}
	switch {
	case a.IsNullish() && b.IsNullish():
		return true, nil
	case a.IsNumber() && b.IsString():
		return a.Num() == StringToNumber(b.Str().String()), nil
	case a.IsString() && b.IsNumber():
		return StringToNumber(a.Str().String()) == b.Num(), nil
	case a.IsBigInt() && b.IsString():
		if i, ok := new(big.Int).SetString(strings.TrimSpace(b.Str().String()), 10); ok {
			return a.BigInt().Cmp(i) == 0, nil
		}
		return false, nil
	case a.IsString() && b.IsBigInt():
		return Equals(r, b, a)
	case a.IsBoolean():
		return Equals(r, Number(boolToFloat(a.Bool())), b)
	case b.IsBoolean():
		return Equals(r, a, Number(boolToFloat(b.Bool())))
	case (a.IsNumber() || a.IsBigInt()) && (b.IsNumber() || b.IsBigInt()):
		fa, fb, ok := mixedToFloats(a, b)
		if !ok {
			return false, nil
		}
		return fa == fb, nil
	case a.IsObject() && (b.IsNumber() || b.IsString() || b.IsBigInt() || b.IsSymbol()):
		pa, err := ToPrimitive(r, a, "default")
		if err != nil {
			return false, err
		}
		return Equals(r, pa, b)
	case b.IsObject() && (a.IsNumber() || a.IsString() || a.IsBigInt() || a.IsSymbol()):
		pb, err := ToPrimitive(r, b, "default")
		if err != nil {
			return false, err
		}
		return Equals(r, a, pb)
	default:
		return false, nil
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// InstanceOf implements the instanceof operator, honoring @@hasInstance.
func InstanceOf(r *Realm, v, target Value) (bool, error) {
	if !target.IsObject() {
		return false, r.NewTypeError("right-hand side of 'instanceof' is not an object")
	}
	method, err := Get(r, target.Obj(), SymbolKey(r.WellKnown.HasInstance))
	if err != nil {
		return false, err
	}
	if method.IsCallable() {
		result, err := r.Call(method, target, []Value{v})
		if err != nil {
			return false, err
		}
		return ToBoolean(result), nil
	}
	if !target.IsCallable() {
		return false, r.NewTypeError("right-hand side of 'instanceof' is not callable")
	}
	return OrdinaryHasInstance(r, target.Obj(), v)
}

// OrdinaryHasInstance walks v's prototype chain looking for target's
// prototype property.
func OrdinaryHasInstance(r *Realm, target *Object, v Value) (bool, error) {
	if fd := target.FunctionData(); fd != nil && fd.Bound != nil {
		return OrdinaryHasInstance(r, fd.Bound.Target, v)
	}
	if !v.IsObject() {
		return false, nil
	}
	protoVal, err := Get(r, target, StringKey("prototype"))
	if err != nil {
		return false, err
	}
	if !protoVal.IsObject() {
		return false, r.NewTypeError("function has non-object prototype in instanceof check")
	}
	proto := protoVal.Obj()
	for o := v.Obj().methods.GetPrototypeOf(v.Obj()); o != nil; o = o.methods.GetPrototypeOf(o) {
		if o == proto {
			return true, nil
		}
	}
	return false, nil
}

// InOperator implements `key in obj`.
func InOperator(r *Realm, key, obj Value) (bool, error) {
	if !obj.IsObject() {
		return false, r.NewTypeError("cannot use 'in' operator on %s", TypeOf(obj))
	}
	pk, err := ToPropertyKey(r, key)
	if err != nil {
		return false, err
	}
	return HasProperty(r, obj.Obj(), pk)
}

// NewArray creates an array exotic object holding the given elements.
func (r *Realm) NewArray(values ...Value) *Object {
	o := r.NewObject(r.Intrinsics.ArrayProto)
	o.class = "Array"
	o.methods = &arrayMethods
	for i, v := range values {
		o.elems.set(uint32(i), v)
	}
	o.elems.length = uint32(len(values))
	return o
}

// ArrayLength returns an array's length.
func ArrayLength(o *Object) uint32 { return o.elems.length }

// ArrayAppend pushes a value.
func ArrayAppend(o *Object, v Value) {
	o.elems.set(o.elems.length, v)
}

// ArrayAt reads an element without prototype traversal.
func ArrayAt(o *Object, i uint32) (Value, bool) {
	entry, ok := o.elems.get(i)
	if !ok || entry.attrs.Accessor() {
		return Undefined(), ok
	}
	return entry.slot.value, true
}
