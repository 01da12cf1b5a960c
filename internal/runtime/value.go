// Package runtime implements the engine's value representation and object
// model: tagged values, dual-storage strings, symbols, shape-indexed
// objects with internal-method vtables, runtime environments, the realm
// record with its intrinsics and job queue, and the abstract operations the
// VM and built-ins share.
package runtime

import (
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/cwbudde/go-ecma/internal/gc"
)

// Kind tags a Value.
type Kind uint8

const (
	// KindEmpty is the engine-internal sentinel for uninitialized lexical
	// bindings and array holes. It must never escape to user code.
	KindEmpty Kind = iota
	KindUndefined
	KindNull
	KindBoolean
	KindNumber
	KindBigInt
	KindString
	KindSymbol
	KindObject
)

var kindNames = [...]string{
	KindEmpty:     "empty",
	KindUndefined: "undefined",
	KindNull:      "null",
	KindBoolean:   "boolean",
	KindNumber:    "number",
	KindBigInt:    "bigint",
	KindString:    "string",
	KindSymbol:    "symbol",
	KindObject:    "object",
}

// String returns the kind's name for diagnostics.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is the engine's tagged value: one of the eight language types plus
// the internal Empty sentinel. Numbers are stored unboxed; everything
// heap-like hangs off ref.
type Value struct {
	ref  any // *String, *Symbol, *big.Int, *Object
	num  float64
	kind Kind
	b    bool
}

// Constructors.

// Undefined returns the undefined value.
func Undefined() Value { return Value{kind: KindUndefined} }

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Empty returns the internal uninitialized-binding sentinel.
func Empty() Value { return Value{kind: KindEmpty} }

// Boolean returns a boolean value.
func Boolean(b bool) Value { return Value{kind: KindBoolean, b: b} }

// True and False are the boolean constants.
func True() Value  { return Boolean(true) }
func False() Value { return Boolean(false) }

// Number returns an f64 number value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Int returns a number value from an integer.
func Int(i int) Value { return Number(float64(i)) }

// NaN returns the canonical NaN.
func NaN() Value { return Number(math.NaN()) }

// BigIntValue wraps an arbitrary-precision integer. BigInts are immutable
// and shared by reference.
func BigIntValue(i *big.Int) Value { return Value{kind: KindBigInt, ref: i} }

// StringValue wraps a heap string.
func StringValue(s *String) Value { return Value{kind: KindString, ref: s} }

// SymbolValue wraps a symbol.
func SymbolValue(s *Symbol) Value { return Value{kind: KindSymbol, ref: s} }

// ObjectValue wraps an object reference.
func ObjectValue(o *Object) Value {
	if o == nil {
		return Null()
	}
	return Value{kind: KindObject, ref: o}
}

// Predicates.

func (v Value) Kind() Kind        { return v.kind }
func (v Value) IsEmpty() bool     { return v.kind == KindEmpty }
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }
func (v Value) IsNull() bool      { return v.kind == KindNull }
func (v Value) IsNullish() bool   { return v.kind == KindNull || v.kind == KindUndefined }
func (v Value) IsBoolean() bool   { return v.kind == KindBoolean }
func (v Value) IsNumber() bool    { return v.kind == KindNumber }
func (v Value) IsBigInt() bool    { return v.kind == KindBigInt }
func (v Value) IsString() bool    { return v.kind == KindString }
func (v Value) IsSymbol() bool    { return v.kind == KindSymbol }
func (v Value) IsObject() bool    { return v.kind == KindObject }

// IsCallable reports whether the value is an object with a [[Call]] method.
func (v Value) IsCallable() bool {
	return v.kind == KindObject && v.Obj().IsCallable()
}

// IsConstructor reports whether the value can be used with new.
func (v Value) IsConstructor() bool {
	return v.kind == KindObject && v.Obj().IsConstructor()
}

// Accessors. Calling an accessor for the wrong kind is a programming error.

func (v Value) Bool() bool { return v.b }

func (v Value) Num() float64 { return v.num }

func (v Value) Str() *String { return v.ref.(*String) }

func (v Value) Sym() *Symbol { return v.ref.(*Symbol) }

func (v Value) BigInt() *big.Int { return v.ref.(*big.Int) }

func (v Value) Obj() *Object { return v.ref.(*Object) }

// mark traces the value's object reference during collection. Strings,
// symbols, and bigints contain no heap pointers and are not traced.
func (v Value) mark(mk *gc.Marker) {
	if v.kind == KindObject {
		mk.Mark(v.ref.(*Object))
	}
}

// MarkValue is the exported form of mark for collaborating packages' Trace
// implementations.
func MarkValue(mk *gc.Marker, v Value) { v.mark(mk) }

// ToBoolean applies the ToBoolean abstract operation; it cannot throw.
func ToBoolean(v Value) bool {
	switch v.kind {
	case KindBoolean:
		return v.b
	case KindUndefined, KindNull, KindEmpty:
		return false
	case KindNumber:
		return v.num != 0 && !math.IsNaN(v.num)
	case KindBigInt:
		return v.BigInt().Sign() != 0
	case KindString:
		return v.Str().Length() > 0
	default:
		return true
	}
}

// TypeOf returns the typeof operator's result.
func TypeOf(v Value) string {
	switch v.kind {
	case KindUndefined, KindEmpty:
		return "undefined"
	case KindNull:
		return "object"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindBigInt:
		return "bigint"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	default:
		if v.Obj().IsCallable() {
			return "function"
		}
		return "object"
	}
}

// SameValue implements the SameValue comparison: NaN equals NaN, +0 and -0
// differ.
func SameValue(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	if a.kind == KindNumber {
		if math.IsNaN(a.num) && math.IsNaN(b.num) {
			return true
		}
		if a.num == 0 && b.num == 0 {
			return math.Signbit(a.num) == math.Signbit(b.num)
		}
		return a.num == b.num
	}
	return sameNonNumber(a, b)
}

// SameValueZero is SameValue except +0 equals -0; it keys Map and Set.
func SameValueZero(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	if a.kind == KindNumber {
		if math.IsNaN(a.num) && math.IsNaN(b.num) {
			return true
		}
		return a.num == b.num
	}
	return sameNonNumber(a, b)
}

// StrictEquals implements ===.
func StrictEquals(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	if a.kind == KindNumber {
		return a.num == b.num // NaN !== NaN
	}
	return sameNonNumber(a, b)
}

func sameNonNumber(a, b Value) bool {
	switch a.kind {
	case KindUndefined, KindNull, KindEmpty:
		return true
	case KindBoolean:
		return a.b == b.b
	case KindBigInt:
		return a.BigInt().Cmp(b.BigInt()) == 0
	case KindString:
		return a.Str().Equals(b.Str())
	case KindSymbol, KindObject:
		return a.ref == b.ref
	default:
		return false
	}
}

// NumberToString formats a number per the language's ToString(Number)
// rules for the common cases.
func NumberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		s := strconv.FormatFloat(f, 'g', -1, 64)
		return s
	}
}

// Inspect formats a value for diagnostics and console output.
func (v Value) Inspect() string {
	switch v.kind {
	case KindEmpty:
		return "<empty>"
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return NumberToString(v.num)
	case KindBigInt:
		return v.BigInt().String() + "n"
	case KindString:
		return v.Str().String()
	case KindSymbol:
		return v.Sym().String()
	default:
		return v.Obj().Inspect()
	}
}

// GoString implements fmt.GoStringer for debugging.
func (v Value) GoString() string {
	return fmt.Sprintf("Value(%s: %s)", v.kind, v.Inspect())
}
