package builtins

import (
	"math"
	"math/rand"

	"github.com/cwbudde/go-ecma/internal/runtime"
)

// setupMath wires the Math namespace object.
func setupMath(r *runtime.Realm) {
	m := r.NewPlainObject()
	m.SetClass("Math")
	defValue(r, r.Global, "Math", runtime.ObjectValue(m), runtime.AttrWritable|runtime.AttrConfigurable)

	defValue(r, m, "PI", runtime.Number(math.Pi), 0)
	defValue(r, m, "E", runtime.Number(math.E), 0)
	defValue(r, m, "LN2", runtime.Number(math.Ln2), 0)
	defValue(r, m, "SQRT2", runtime.Number(math.Sqrt2), 0)

	unary := func(name string, fn func(float64) float64) {
		defFn(r, m, name, 1, func(call *runtime.NativeCall) (runtime.Value, error) {
			n, err := runtime.ToNumber(r, call.Arg(0))
			if err != nil {
				return runtime.Undefined(), err
			}
			return runtime.Number(fn(n)), nil
		})
	}
	unary("abs", math.Abs)
	unary("floor", math.Floor)
	unary("ceil", math.Ceil)
	unary("round", func(f float64) float64 { return math.Floor(f + 0.5) })
	unary("trunc", math.Trunc)
	unary("sqrt", math.Sqrt)
	unary("cbrt", math.Cbrt)
	unary("log", math.Log)
	unary("log2", math.Log2)
	unary("log10", math.Log10)
	unary("exp", math.Exp)
	unary("sin", math.Sin)
	unary("cos", math.Cos)
	unary("tan", math.Tan)
	unary("atan", math.Atan)
	unary("asin", math.Asin)
	unary("acos", math.Acos)
	unary("sign", func(f float64) float64 {
		switch {
		case math.IsNaN(f):
			return f
		case f > 0:
			return 1
		case f < 0:
			return -1
		default:
			return f
		}
	})

	defFn(r, m, "pow", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		a, err := runtime.ToNumber(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		b, err := runtime.ToNumber(r, call.Arg(1))
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Number(math.Pow(a, b)), nil
	})
	defFn(r, m, "atan2", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		y, err := runtime.ToNumber(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		x, err := runtime.ToNumber(r, call.Arg(1))
		if err != nil {
			return runtime.Undefined(), err
		}
		return runtime.Number(math.Atan2(y, x)), nil
	})

	extremum := func(name string, better func(a, b float64) bool, empty float64) {
		defFn(r, m, name, 2, func(call *runtime.NativeCall) (runtime.Value, error) {
			best := empty
			for _, a := range call.Args {
				n, err := runtime.ToNumber(r, a)
				if err != nil {
					return runtime.Undefined(), err
				}
				if math.IsNaN(n) {
					return runtime.NaN(), nil
				}
				if better(n, best) {
					best = n
				}
			}
			return runtime.Number(best), nil
		})
	}
	extremum("max", func(a, b float64) bool { return a > b }, math.Inf(-1))
	extremum("min", func(a, b float64) bool { return a < b }, math.Inf(1))

	defFn(r, m, "random", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		return runtime.Number(rand.Float64()), nil
	})
}
