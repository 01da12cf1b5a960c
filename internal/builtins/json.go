package builtins

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/cwbudde/go-ecma/internal/runtime"
)

// setupJSON wires the JSON namespace: parse with an optional reviver and
// stringify with replacer/indent support.
func setupJSON(r *runtime.Realm) {
	j := r.NewPlainObject()
	j.SetClass("JSON")
	defValue(r, r.Global, "JSON", runtime.ObjectValue(j), runtime.AttrWritable|runtime.AttrConfigurable)

	defFn(r, j, "parse", 2, func(call *runtime.NativeCall) (runtime.Value, error) {
		text, err := runtime.ToString(r, call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		var decoded any
		dec := json.NewDecoder(strings.NewReader(text.String()))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil {
			return runtime.Undefined(), r.NewSyntaxError("invalid JSON: %s", err.Error())
		}
		v := jsonToValue(r, decoded)

		if reviver := call.Arg(1); reviver.IsCallable() {
			holder := r.NewPlainObject()
			_, _ = runtime.CreateDataProperty(r, holder, runtime.StringKey(""), v)
			return internalizeJSON(r, holder, runtime.StringKey(""), reviver)
		}
		return v, nil
	})

	defFn(r, j, "stringify", 3, func(call *runtime.NativeCall) (runtime.Value, error) {
		replacer := call.Arg(1)
		indent := ""
		switch space := call.Arg(2); {
		case space.IsNumber():
			n := int(space.Num())
			if n > 10 {
				n = 10
			}
			indent = strings.Repeat(" ", max(0, n))
		case space.IsString():
			indent = space.Str().String()
			if len(indent) > 10 {
				indent = indent[:10]
			}
		}
		st := &jsonStringifier{realm: r, replacer: replacer, indent: indent}
		out, ok, err := st.value(call.Arg(0))
		if err != nil {
			return runtime.Undefined(), err
		}
		if !ok {
			return runtime.Undefined(), nil
		}
		return runtime.StringValue(runtime.NewString(out)), nil
	})
}

// jsonToValue converts decoded Go JSON into engine values.
func jsonToValue(r *runtime.Realm, v any) runtime.Value {
	switch t := v.(type) {
	case nil:
		return runtime.Null()
	case bool:
		return runtime.Boolean(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return runtime.NaN()
		}
		return runtime.Number(f)
	case string:
		return runtime.StringValue(runtime.NewString(t))
	case []any:
		arr := r.NewArray()
		for _, el := range t {
			runtime.ArrayAppend(arr, jsonToValue(r, el))
		}
		return runtime.ObjectValue(arr)
	case map[string]any:
		obj := r.NewPlainObject()
		// Decode order is lost by Go maps; re-decode keys in sorted order
		// is avoided here because property insertion order for parsed
		// objects is observable but JSON object member order is
		// unspecified input anyway.
		for k, el := range t {
			_, _ = runtime.CreateDataProperty(r, obj, runtime.StringKey(k), jsonToValue(r, el))
		}
		return runtime.ObjectValue(obj)
	default:
		return runtime.Undefined()
	}
}

// internalizeJSON applies a reviver bottom-up.
func internalizeJSON(r *runtime.Realm, holder *runtime.Object, key runtime.PropertyKey, reviver runtime.Value) (runtime.Value, error) {
	val, err := runtime.Get(r, holder, key)
	if err != nil {
		return runtime.Undefined(), err
	}
	if val.IsObject() {
		obj := val.Obj()
		for _, k := range obj.Methods().OwnPropertyKeys(obj) {
			if k.IsSymbol() {
				continue
			}
			newElem, err := internalizeJSON(r, obj, k, reviver)
			if err != nil {
				return runtime.Undefined(), err
			}
			if newElem.IsUndefined() {
				_, _ = obj.Methods().Delete(r, obj, k)
			} else {
				_, _ = runtime.CreateDataProperty(r, obj, k, newElem)
			}
		}
	}
	return r.Call(reviver, runtime.ObjectValue(holder),
		[]runtime.Value{runtime.StringValue(r.Intern(key.String())), val})
}

// jsonStringifier implements JSON.stringify.
type jsonStringifier struct {
	realm    *runtime.Realm
	replacer runtime.Value
	indent   string
	depth    int
	seen     []*runtime.Object
}

func (st *jsonStringifier) value(v runtime.Value) (string, bool, error) {
	r := st.realm

	// toJSON and replacer hooks.
	if v.IsObject() {
		toJSON, err := runtime.Get(r, v.Obj(), runtime.StringKey("toJSON"))
		if err != nil {
			return "", false, err
		}
		if toJSON.IsCallable() {
			v, err = r.Call(toJSON, v, nil)
			if err != nil {
				return "", false, err
			}
		}
	}

	switch v.Kind() {
	case runtime.KindNull:
		return "null", true, nil
	case runtime.KindBoolean:
		if v.Bool() {
			return "true", true, nil
		}
		return "false", true, nil
	case runtime.KindNumber:
		if math.IsNaN(v.Num()) || math.IsInf(v.Num(), 0) {
			return "null", true, nil
		}
		return runtime.NumberToString(v.Num()), true, nil
	case runtime.KindString:
		quoted, _ := json.Marshal(v.Str().String())
		return string(quoted), true, nil
	case runtime.KindBigInt:
		return "", false, r.NewTypeError("cannot serialize a BigInt")
	case runtime.KindObject:
		obj := v.Obj()
		if obj.IsCallable() {
			return "", false, nil
		}
		for _, s := range st.seen {
			if s == obj {
				return "", false, r.NewTypeError("converting circular structure to JSON")
			}
		}
		st.seen = append(st.seen, obj)
		defer func() { st.seen = st.seen[:len(st.seen)-1] }()

		if obj.Class() == "Array" {
			return st.array(obj)
		}
		return st.object(obj)
	default:
		return "", false, nil
	}
}

func (st *jsonStringifier) array(arr *runtime.Object) (string, bool, error) {
	r := st.realm
	n := runtime.ArrayLength(arr)
	parts := make([]string, 0, n)
	st.depth++
	for i := uint32(0); i < n; i++ {
		el, err := runtime.Get(r, arr, runtime.IndexKey(i))
		if err != nil {
			st.depth--
			return "", false, err
		}
		el, err = st.applyReplacer(runtime.StringValue(r.Intern(runtime.NumberToString(float64(i)))), el, arr)
		if err != nil {
			st.depth--
			return "", false, err
		}
		out, ok, err := st.value(el)
		if err != nil {
			st.depth--
			return "", false, err
		}
		if !ok {
			out = "null"
		}
		parts = append(parts, out)
	}
	st.depth--
	return st.wrap("[", "]", parts), true, nil
}

func (st *jsonStringifier) object(obj *runtime.Object) (string, bool, error) {
	r := st.realm
	var parts []string
	st.depth++
	for _, key := range obj.Methods().OwnPropertyKeys(obj) {
		if key.IsSymbol() {
			continue
		}
		desc, ok := obj.Methods().GetOwnProperty(r, obj, key)
		if !ok || !desc.Enumerable {
			continue
		}
		el, err := runtime.Get(r, obj, key)
		if err != nil {
			st.depth--
			return "", false, err
		}
		el, err = st.applyReplacer(runtime.StringValue(r.Intern(key.String())), el, obj)
		if err != nil {
			st.depth--
			return "", false, err
		}
		out, ok, err := st.value(el)
		if err != nil {
			st.depth--
			return "", false, err
		}
		if !ok {
			continue
		}
		quotedKey, _ := json.Marshal(key.String())
		sep := ":"
		if st.indent != "" {
			sep = ": "
		}
		parts = append(parts, string(quotedKey)+sep+out)
	}
	st.depth--
	return st.wrap("{", "}", parts), true, nil
}

func (st *jsonStringifier) applyReplacer(key runtime.Value, v runtime.Value, holder *runtime.Object) (runtime.Value, error) {
	if !st.replacer.IsCallable() {
		return v, nil
	}
	return st.realm.Call(st.replacer, runtime.ObjectValue(holder), []runtime.Value{key, v})
}

func (st *jsonStringifier) wrap(open, close string, parts []string) string {
	if len(parts) == 0 {
		return open + close
	}
	if st.indent == "" {
		return open + strings.Join(parts, ",") + close
	}
	inner := strings.Repeat(st.indent, st.depth+1)
	outer := strings.Repeat(st.indent, st.depth)
	return open + "\n" + inner + strings.Join(parts, ",\n"+inner) + "\n" + outer + close
}
