package runtime

import (
	"sort"

	"github.com/cwbudde/go-ecma/internal/gc"
)

// Array exotic objects: the length property is virtual and index writes
// keep it current; shrinking length truncates.

var arrayMethods = InternalMethods{
	GetPrototypeOf:    func(o *Object) *Object { return o.proto },
	SetPrototypeOf:    ordinarySetPrototypeOf,
	IsExtensible:      func(o *Object) bool { return o.extensible },
	PreventExtensions: func(o *Object) bool { o.extensible = false; return true },
	GetOwnProperty:    arrayGetOwnProperty,
	DefineOwnProperty: arrayDefineOwnProperty,
	HasProperty:       ordinaryHasProperty,
	Get:               ordinaryGet,
	Set:               ordinarySet,
	Delete:            ordinaryDelete,
	OwnPropertyKeys:   arrayOwnPropertyKeys,
}

func arrayGetOwnProperty(r *Realm, o *Object, key PropertyKey) (PropertyDescriptor, bool) {
	if !key.IsSymbol() && key.str == "length" {
		return DataDescriptor(Number(float64(o.elems.length)), AttrWritable), true
	}
	return ordinaryGetOwnProperty(r, o, key)
}

func arrayDefineOwnProperty(r *Realm, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	if !key.IsSymbol() && key.str == "length" {
		if !desc.HasValue {
			return true, nil
		}
		newLen, err := ToUint32(r, desc.Value)
		if err != nil {
			return false, err
		}
		check, err := ToNumber(r, desc.Value)
		if err != nil {
			return false, err
		}
		if float64(newLen) != check {
			return false, r.NewRangeError("invalid array length")
		}
		return o.elems.truncate(newLen), nil
	}
	return ordinaryDefineOwnProperty(r, o, key, desc)
}

func arrayOwnPropertyKeys(o *Object) []PropertyKey {
	keys := []PropertyKey{}
	for _, idx := range o.elems.indices() {
		keys = append(keys, IndexKey(idx))
	}
	keys = append(keys, StringKey("length"))
	var named []PropertyKey
	if o.dict != nil {
		for _, e := range o.dict.entries {
			named = append(named, e.key)
		}
	} else if o.shape != nil {
		named = o.shape.Keys()
	}
	for _, k := range named {
		if !k.IsSymbol() {
			keys = append(keys, k)
		}
	}
	for _, k := range named {
		if k.IsSymbol() {
			keys = append(keys, k)
		}
	}
	return keys
}

// String exotic objects expose their code units as integer-indexed
// non-writable properties plus a length.

var stringMethods = InternalMethods{
	GetPrototypeOf:    func(o *Object) *Object { return o.proto },
	SetPrototypeOf:    ordinarySetPrototypeOf,
	IsExtensible:      func(o *Object) bool { return o.extensible },
	PreventExtensions: func(o *Object) bool { o.extensible = false; return true },
	GetOwnProperty:    stringGetOwnProperty,
	DefineOwnProperty: stringDefineOwnProperty,
	HasProperty:       ordinaryHasProperty,
	Get:               ordinaryGet,
	Set:               ordinarySet,
	Delete:            ordinaryDelete,
	OwnPropertyKeys:   stringOwnPropertyKeys,
}

// NewStringExotic wraps a string primitive in its object form.
func NewStringExotic(r *Realm, s *String) *Object {
	o := r.NewObject(r.Intrinsics.StringProto)
	o.class = "String"
	o.methods = &stringMethods
	o.data = &PrimitiveData{Value: StringValue(s)}
	return o
}

func stringPrimitive(o *Object) *String {
	if pd, ok := o.data.(*PrimitiveData); ok && pd.Value.IsString() {
		return pd.Value.Str()
	}
	return nil
}

func stringGetOwnProperty(r *Realm, o *Object, key PropertyKey) (PropertyDescriptor, bool) {
	s := stringPrimitive(o)
	if s != nil && !key.IsSymbol() {
		if key.str == "length" {
			return DataDescriptor(Int(s.Length()), 0), true
		}
		if idx, ok := key.AsIndex(); ok && int(idx) < s.Length() {
			ch := StringValue(s.Slice(int(idx), int(idx)+1))
			return DataDescriptor(ch, AttrEnumerable), true
		}
	}
	return ordinaryGetOwnProperty(r, o, key)
}

func stringDefineOwnProperty(r *Realm, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	s := stringPrimitive(o)
	if s != nil && !key.IsSymbol() {
		if key.str == "length" {
			return false, nil
		}
		if idx, ok := key.AsIndex(); ok && int(idx) < s.Length() {
			return false, nil
		}
	}
	return ordinaryDefineOwnProperty(r, o, key, desc)
}

func stringOwnPropertyKeys(o *Object) []PropertyKey {
	var keys []PropertyKey
	if s := stringPrimitive(o); s != nil {
		for i := 0; i < s.Length(); i++ {
			keys = append(keys, IndexKey(uint32(i)))
		}
		keys = append(keys, ordinaryOwnPropertyKeys(o)...)
		keys = append(keys, StringKey("length"))
		return keys
	}
	return ordinaryOwnPropertyKeys(o)
}

// Arguments exotic objects: with a simple parameter list in sloppy mode,
// indexed slots alias the parameter bindings through the function
// environment (mapped arguments).

// ArgumentsData links mapped indices to environment slots.
type ArgumentsData struct {
	Env *Environment
	// SlotOf maps argument index -> environment slot; -1 once unmapped.
	SlotOf []int
}

func (a *ArgumentsData) Trace(mk *gc.Marker) {
	mk.Mark(a.Env)
}

var argumentsMethods = InternalMethods{
	GetPrototypeOf:    func(o *Object) *Object { return o.proto },
	SetPrototypeOf:    ordinarySetPrototypeOf,
	IsExtensible:      func(o *Object) bool { return o.extensible },
	PreventExtensions: func(o *Object) bool { o.extensible = false; return true },
	GetOwnProperty:    argumentsGetOwnProperty,
	DefineOwnProperty: argumentsDefineOwnProperty,
	HasProperty:       ordinaryHasProperty,
	Get:               ordinaryGet,
	Set:               ordinarySet,
	Delete:            argumentsDelete,
	OwnPropertyKeys:   ordinaryOwnPropertyKeys,
}

func argumentsData(o *Object) *ArgumentsData {
	d, _ := o.data.(*ArgumentsData)
	return d
}

func argumentsMappedSlot(o *Object, key PropertyKey) (int, bool) {
	d := argumentsData(o)
	if d == nil {
		return 0, false
	}
	idx, ok := key.AsIndex()
	if !ok || int(idx) >= len(d.SlotOf) {
		return 0, false
	}
	slot := d.SlotOf[idx]
	if slot < 0 {
		return 0, false
	}
	return slot, true
}

func argumentsGetOwnProperty(r *Realm, o *Object, key PropertyKey) (PropertyDescriptor, bool) {
	desc, ok := ordinaryGetOwnProperty(r, o, key)
	if !ok {
		return desc, false
	}
	if slot, mapped := argumentsMappedSlot(o, key); mapped {
		desc.Value = argumentsData(o).Env.GetSlot(slot)
	}
	return desc, true
}

func argumentsDefineOwnProperty(r *Realm, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	if slot, mapped := argumentsMappedSlot(o, key); mapped {
		d := argumentsData(o)
		if desc.HasValue {
			d.Env.SetSlot(slot, desc.Value)
		}
		if desc.IsAccessorDescriptor() || (desc.HasWritable && !desc.Writable) {
			// The alias breaks when the property stops being a plain
			// writable data property.
			idx, _ := key.AsIndex()
			d.SlotOf[idx] = -1
		}
	}
	return ordinaryDefineOwnProperty(r, o, key, desc)
}

func argumentsDelete(r *Realm, o *Object, key PropertyKey) (bool, error) {
	if _, mapped := argumentsMappedSlot(o, key); mapped {
		idx, _ := key.AsIndex()
		argumentsData(o).SlotOf[idx] = -1
	}
	return ordinaryDelete(r, o, key)
}

// NewArguments builds an arguments object. For mapped arguments, slotOf
// aliases indices to parameter environment slots; pass nil for unmapped.
func (r *Realm) NewArguments(args []Value, callee *Object, env *Environment, slotOf []int) *Object {
	o := r.NewObject(r.Intrinsics.ObjectProto)
	o.class = "Arguments"
	if slotOf != nil {
		o.methods = &argumentsMethods
		o.data = &ArgumentsData{Env: env, SlotOf: slotOf}
	}
	for i, a := range args {
		o.elems.set(uint32(i), a)
	}
	_, _ = DefineDataProperty(r, o, StringKey("length"), Int(len(args)), AttrWritable|AttrConfigurable)
	if callee != nil {
		_, _ = DefineDataProperty(r, o, StringKey("callee"), ObjectValue(callee), AttrWritable|AttrConfigurable)
	}
	_, _ = DefineDataProperty(r, o, SymbolKey(r.WellKnown.Iterator),
		mustGetArrayIteratorValues(r), MethodAttrs)
	return o
}

func mustGetArrayIteratorValues(r *Realm) Value {
	if r.Intrinsics.ArrayProto == nil {
		return Undefined()
	}
	v, err := Get(r, r.Intrinsics.ArrayProto, SymbolKey(r.WellKnown.Iterator))
	if err != nil {
		return Undefined()
	}
	return v
}

// Module namespace exotic objects: frozen views over a module
// environment's exported bindings.

// NamespaceData links the namespace object to its module environment.
type NamespaceData struct {
	Env   *Environment
	Names []string // sorted export names
}

func (n *NamespaceData) Trace(mk *gc.Marker) {
	mk.Mark(n.Env)
}

var namespaceMethods = InternalMethods{
	GetPrototypeOf:    func(o *Object) *Object { return nil },
	SetPrototypeOf:    func(o *Object, proto *Object) bool { return proto == nil },
	IsExtensible:      func(o *Object) bool { return false },
	PreventExtensions: func(o *Object) bool { return true },
	GetOwnProperty:    namespaceGetOwnProperty,
	DefineOwnProperty: func(r *Realm, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
		return false, nil
	},
	HasProperty: namespaceHasProperty,
	Get:         ordinaryGet,
	Set: func(r *Realm, o *Object, key PropertyKey, v Value, receiver Value) (bool, error) {
		return false, nil
	},
	Delete: func(r *Realm, o *Object, key PropertyKey) (bool, error) {
		_, has := namespaceGetOwnProperty(r, o, key)
		return !has, nil
	},
	OwnPropertyKeys: namespaceOwnPropertyKeys,
}

// NewModuleNamespace creates the namespace object over env's exports.
func (r *Realm) NewModuleNamespace(env *Environment, names []string) *Object {
	sorted := append([]string{}, names...)
	sort.Strings(sorted)
	o := r.NewObject(nil)
	o.class = "Module"
	o.methods = &namespaceMethods
	o.extensible = false
	o.data = &NamespaceData{Env: env, Names: sorted}
	return o
}

func namespaceData(o *Object) *NamespaceData {
	d, _ := o.data.(*NamespaceData)
	return d
}

func namespaceGetOwnProperty(r *Realm, o *Object, key PropertyKey) (PropertyDescriptor, bool) {
	d := namespaceData(o)
	if key.IsSymbol() || d == nil {
		return ordinaryGetOwnProperty(r, o, key)
	}
	for _, name := range d.Names {
		if name == key.str {
			if b, ok := d.Env.named[name]; ok {
				return DataDescriptor(b.value, AttrWritable|AttrEnumerable), true
			}
			return DataDescriptor(Undefined(), AttrWritable|AttrEnumerable), true
		}
	}
	return PropertyDescriptor{}, false
}

func namespaceHasProperty(r *Realm, o *Object, key PropertyKey) (bool, error) {
	_, ok := namespaceGetOwnProperty(r, o, key)
	return ok, nil
}

func namespaceOwnPropertyKeys(o *Object) []PropertyKey {
	d := namespaceData(o)
	var keys []PropertyKey
	for _, name := range d.Names {
		keys = append(keys, StringKey(name))
	}
	return keys
}
