package builtins

import (
	"github.com/cwbudde/go-ecma/internal/errors"
	"github.com/cwbudde/go-ecma/internal/runtime"
)

// errorKinds lists the language error hierarchy of §7 plus the base kind.
var errorKinds = []errors.Kind{
	errors.GenericError,
	errors.TypeError,
	errors.RangeError,
	errors.ReferenceError,
	errors.SyntaxError,
	errors.URIError,
	errors.EvalError,
}

// setupErrorIntrinsics builds the Error prototypes and constructors. It
// runs before the global object exists so realm error helpers work during
// the rest of initialization.
func setupErrorIntrinsics(r *runtime.Realm) {
	in := &r.Intrinsics
	in.ErrorCtors = make(map[errors.Kind]*runtime.Object)

	in.ErrorProto = r.NewObject(in.ObjectProto)
	in.ErrorProto.SetClass("Error")

	protoFor := func(kind errors.Kind) *runtime.Object {
		if kind == errors.GenericError {
			return in.ErrorProto
		}
		p := r.NewObject(in.ErrorProto)
		p.SetClass("Error")
		return p
	}

	for _, kind := range errorKinds {
		proto := protoFor(kind)
		switch kind {
		case errors.TypeError:
			in.TypeErrorProto = proto
		case errors.RangeError:
			in.RangeErrorProto = proto
		case errors.ReferenceError:
			in.ReferenceErrorProto = proto
		case errors.SyntaxError:
			in.SyntaxErrorProto = proto
		case errors.URIError:
			in.URIErrorProto = proto
		case errors.EvalError:
			in.EvalErrorProto = proto
		}

		k := kind
		ctor := r.NewNativeConstructor(string(kind), 1, func(call *runtime.NativeCall) (runtime.Value, error) {
			// super(...) calls arrive with an existing this to augment;
			// plain calls and constructs create the error object.
			var obj *runtime.Object
			if call.This.IsObject() && call.This.Obj().Class() == "Error" {
				obj = call.This.Obj()
			} else if call.This.IsObject() && !call.NewTarget.IsUndefined() {
				obj = call.This.Obj()
				obj.SetClass("Error")
				obj.SetData(&runtime.ErrorData{Kind: k})
			} else {
				obj = r.NewError(k, "")
			}
			if !call.Arg(0).IsUndefined() {
				msg, err := runtime.ToString(r, call.Arg(0))
				if err != nil {
					return runtime.Undefined(), err
				}
				_, _ = runtime.DefineDataProperty(r, obj, runtime.StringKey("message"),
					runtime.StringValue(msg), runtime.AttrWritable|runtime.AttrConfigurable)
			}
			return runtime.ObjectValue(obj), nil
		})
		in.ErrorCtors[kind] = ctor
		if kind == errors.GenericError {
			in.Error = ctor
		}

		defValue(r, ctor, "prototype", runtime.ObjectValue(proto), 0)
		defValue(r, proto, "constructor", runtime.ObjectValue(ctor), runtime.MethodAttrs)
		defValue(r, proto, "name", runtime.StringValue(r.Intern(string(kind))), runtime.AttrWritable|runtime.AttrConfigurable)
		defValue(r, proto, "message", runtime.StringValue(r.Intern("")), runtime.AttrWritable|runtime.AttrConfigurable)

		if kind != errors.GenericError {
			ctor.Methods().SetPrototypeOf(ctor, in.ErrorCtors[errors.GenericError])
		}
	}

	defFn(r, in.ErrorProto, "toString", 0, func(call *runtime.NativeCall) (runtime.Value, error) {
		if !call.This.IsObject() {
			return runtime.Undefined(), r.NewTypeError("Error.prototype.toString called on non-object")
		}
		obj := call.This.Obj()
		nameV, err := runtime.Get(r, obj, runtime.StringKey("name"))
		if err != nil {
			return runtime.Undefined(), err
		}
		msgV, err := runtime.Get(r, obj, runtime.StringKey("message"))
		if err != nil {
			return runtime.Undefined(), err
		}
		name := "Error"
		if !nameV.IsUndefined() {
			s, err := runtime.ToString(r, nameV)
			if err != nil {
				return runtime.Undefined(), err
			}
			name = s.String()
		}
		msg := ""
		if !msgV.IsUndefined() {
			s, err := runtime.ToString(r, msgV)
			if err != nil {
				return runtime.Undefined(), err
			}
			msg = s.String()
		}
		switch {
		case msg == "":
			return runtime.StringValue(r.Intern(name)), nil
		case name == "":
			return runtime.StringValue(r.Intern(msg)), nil
		default:
			return runtime.StringValue(r.Intern(name + ": " + msg)), nil
		}
	})
}
