package runtime

import (
	"strings"

	"github.com/cwbudde/go-ecma/internal/gc"
)

// propSlot is one named-property storage cell: either a data value or an
// accessor pair, selected by the property's attributes.
type propSlot struct {
	value Value
	get   *Object
	set   *Object
}

// dictEntry is one property in dictionary mode.
type dictEntry struct {
	key   PropertyKey
	slot  propSlot
	attrs Attributes
}

// dict replaces shape-indexed storage once an object's layout stops being
// shareable (deletions, attribute mutation).
type dict struct {
	entries []dictEntry
	index   map[PropertyKey]int
}

func (d *dict) lookup(key PropertyKey) (int, bool) {
	i, ok := d.index[key]
	return i, ok
}

func (d *dict) add(key PropertyKey, slot propSlot, attrs Attributes) {
	d.index[key] = len(d.entries)
	d.entries = append(d.entries, dictEntry{key: key, slot: slot, attrs: attrs})
}

func (d *dict) remove(key PropertyKey) {
	i, ok := d.index[key]
	if !ok {
		return
	}
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	delete(d.index, key)
	for j := i; j < len(d.entries); j++ {
		d.index[d.entries[j].key] = j
	}
}

// HostData payloads that hold engine values implement Trace so the
// collector can reach them.
type HostData interface {
	Trace(mk *gc.Marker)
}

// Object is the engine object record: shape-indexed named storage, a
// distinct indexed-element container, a prototype link, an extensible
// flag, an internal-method vtable, and an optional host-data payload.
type Object struct {
	hdr gc.Header

	shape *Shape
	slots []propSlot
	dict  *dict // non-nil in dictionary mode

	elems elements

	proto      *Object
	extensible bool

	methods *InternalMethods

	// class is the brand reported by Object.prototype.toString and used
	// by host-data type checks.
	class string

	// data carries built-in payloads: function records, map tables,
	// promise state, iterator positions.
	data any
}

// Header implements gc.Managed.
func (o *Object) Header() *gc.Header { return &o.hdr }

// Trace implements gc.Managed.
func (o *Object) Trace(mk *gc.Marker) {
	mk.Mark(o.proto)
	for i := range o.slots {
		o.slots[i].value.mark(mk)
		mk.Mark(o.slots[i].get)
		mk.Mark(o.slots[i].set)
	}
	if o.dict != nil {
		for i := range o.dict.entries {
			e := &o.dict.entries[i]
			e.slot.value.mark(mk)
			mk.Mark(e.slot.get)
			mk.Mark(e.slot.set)
		}
	}
	o.elems.trace(mk)
	if t, ok := o.data.(HostData); ok {
		t.Trace(mk)
	}
}

// approximate per-object footprint for GC scheduling.
const objectBaseSize = 128

// NewObject allocates an ordinary object with the given prototype.
func (r *Realm) NewObject(proto *Object) *Object {
	o := &Object{
		shape:      r.rootShape,
		proto:      proto,
		extensible: true,
		methods:    &ordinaryMethods,
		class:      "Object",
	}
	r.Heap.Alloc(o, objectBaseSize)
	return o
}

// NewPlainObject allocates an object with %Object.prototype%.
func (r *Realm) NewPlainObject() *Object {
	return r.NewObject(r.Intrinsics.ObjectProto)
}

// Class returns the object's brand string.
func (o *Object) Class() string { return o.class }

// SetClass sets the brand; used by built-in constructors.
func (o *Object) SetClass(c string) { o.class = c }

// Data returns the host-data payload.
func (o *Object) Data() any { return o.data }

// SetData installs a host-data payload.
func (o *Object) SetData(d any) { o.data = d }

// Proto returns the prototype link.
func (o *Object) Proto() *Object { return o.proto }

// Methods returns the internal-method vtable.
func (o *Object) Methods() *InternalMethods { return o.methods }

// SetMethods installs an exotic vtable; done at object creation.
func (o *Object) SetMethods(m *InternalMethods) { o.methods = m }

// IsCallable reports whether the object carries function data with a call
// behavior.
func (o *Object) IsCallable() bool {
	fd, ok := o.data.(*FunctionData)
	return ok && fd != nil
}

// IsConstructor reports whether the object may be used with new.
func (o *Object) IsConstructor() bool {
	fd, ok := o.data.(*FunctionData)
	return ok && fd.Constructor
}

// FunctionData returns the function payload, or nil.
func (o *Object) FunctionData() *FunctionData {
	fd, _ := o.data.(*FunctionData)
	return fd
}

// InternalMethods is the vtable selecting the object's essential internal
// method variants: ordinary, array-exotic, string-exotic,
// arguments-exotic, bound-function, module-namespace.
type InternalMethods struct {
	GetPrototypeOf    func(o *Object) *Object
	SetPrototypeOf    func(o *Object, proto *Object) bool
	IsExtensible      func(o *Object) bool
	PreventExtensions func(o *Object) bool
	GetOwnProperty    func(r *Realm, o *Object, key PropertyKey) (PropertyDescriptor, bool)
	DefineOwnProperty func(r *Realm, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error)
	HasProperty       func(r *Realm, o *Object, key PropertyKey) (bool, error)
	Get               func(r *Realm, o *Object, key PropertyKey, receiver Value) (Value, error)
	Set               func(r *Realm, o *Object, key PropertyKey, v Value, receiver Value) (bool, error)
	Delete            func(r *Realm, o *Object, key PropertyKey) (bool, error)
	OwnPropertyKeys   func(o *Object) []PropertyKey
}

// ordinaryMethods is the vtable shared by all ordinary objects. It is set
// in init, because its entries reach NewObject, which refers back to it.
var ordinaryMethods InternalMethods

func init() { ordinaryMethods = ordinaryMethodTable }

var ordinaryMethodTable = InternalMethods{
	GetPrototypeOf:    func(o *Object) *Object { return o.proto },
	SetPrototypeOf:    ordinarySetPrototypeOf,
	IsExtensible:      func(o *Object) bool { return o.extensible },
	PreventExtensions: func(o *Object) bool { o.extensible = false; return true },
	GetOwnProperty:    ordinaryGetOwnProperty,
	DefineOwnProperty: ordinaryDefineOwnProperty,
	HasProperty:       ordinaryHasProperty,
	Get:               ordinaryGet,
	Set:               ordinarySet,
	Delete:            ordinaryDelete,
	OwnPropertyKeys:   ordinaryOwnPropertyKeys,
}

func ordinarySetPrototypeOf(o *Object, proto *Object) bool {
	if o.proto == proto {
		return true
	}
	if !o.extensible {
		return false
	}
	// Prototype chains must stay acyclic.
	for p := proto; p != nil; p = p.proto {
		if p == o {
			return false
		}
	}
	o.proto = proto
	return true
}

// getOwnSlot finds the named slot for key, consulting shape or dictionary
// storage.
func (o *Object) getOwnSlot(key PropertyKey) (*propSlot, Attributes, bool) {
	if o.dict != nil {
		if i, ok := o.dict.lookup(key); ok {
			e := &o.dict.entries[i]
			return &e.slot, e.attrs, true
		}
		return nil, 0, false
	}
	if slot, attrs, ok := o.shape.Lookup(key); ok {
		return &o.slots[slot], attrs, true
	}
	return nil, 0, false
}

func ordinaryGetOwnProperty(r *Realm, o *Object, key PropertyKey) (PropertyDescriptor, bool) {
	if idx, ok := key.AsIndex(); ok {
		if entry, ok := o.elems.get(idx); ok {
			return slotDescriptor(entry.slot, entry.attrs), true
		}
		return PropertyDescriptor{}, false
	}
	if slot, attrs, ok := o.getOwnSlot(key); ok {
		return slotDescriptor(*slot, attrs), true
	}
	return PropertyDescriptor{}, false
}

func slotDescriptor(slot propSlot, attrs Attributes) PropertyDescriptor {
	if attrs.Accessor() {
		d := AccessorDescriptor(slot.get, slot.set, attrs)
		return d
	}
	return DataDescriptor(slot.value, attrs)
}

// ordinaryDefineOwnProperty validates the define against the current
// property and extensibility, then stores.
func ordinaryDefineOwnProperty(r *Realm, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	current, exists := o.methods.GetOwnProperty(r, o, key)

	if !exists {
		if !o.extensible {
			return false, nil
		}
		o.storeNew(key, descriptorSlot(desc), completeAttrs(desc))
		return true, nil
	}

	// Validation against the existing property.
	if !current.Configurable {
		if desc.HasConfigurable && desc.Configurable {
			return false, nil
		}
		if desc.HasEnumerable && desc.Enumerable != current.Enumerable {
			return false, nil
		}
		if desc.IsAccessorDescriptor() != current.IsAccessorDescriptor() && !desc.IsGenericDescriptor() {
			return false, nil
		}
		if current.IsAccessorDescriptor() && desc.IsAccessorDescriptor() {
			if desc.HasGet && desc.Get != current.Get {
				return false, nil
			}
			if desc.HasSet && desc.Set != current.Set {
				return false, nil
			}
		} else if !current.IsAccessorDescriptor() && !current.Writable {
			if desc.HasWritable && desc.Writable {
				return false, nil
			}
			if desc.HasValue && !SameValue(desc.Value, current.Value) {
				return false, nil
			}
		}
	}

	merged := mergeDescriptors(current, desc)
	o.storeExisting(key, descriptorSlot(merged), merged.Attrs())
	return true, nil
}

// completeAttrs fills absent fields with their defaults (false).
func completeAttrs(desc PropertyDescriptor) Attributes {
	return desc.Attrs()
}

func descriptorSlot(desc PropertyDescriptor) propSlot {
	if desc.IsAccessorDescriptor() {
		return propSlot{get: desc.Get, set: desc.Set}
	}
	return propSlot{value: desc.Value}
}

func mergeDescriptors(current, desc PropertyDescriptor) PropertyDescriptor {
	out := current
	if desc.IsAccessorDescriptor() && !current.IsAccessorDescriptor() {
		out = PropertyDescriptor{
			Enumerable:      current.Enumerable,
			Configurable:    current.Configurable,
			HasGet:          true,
			HasSet:          true,
			HasEnumerable:   true,
			HasConfigurable: true,
		}
	} else if desc.IsDataDescriptor() && current.IsAccessorDescriptor() {
		out = PropertyDescriptor{
			Enumerable:      current.Enumerable,
			Configurable:    current.Configurable,
			HasValue:        true,
			HasWritable:     true,
			HasEnumerable:   true,
			HasConfigurable: true,
		}
	}
	if desc.HasValue {
		out.Value = desc.Value
		out.HasValue = true
	}
	if desc.HasGet {
		out.Get = desc.Get
		out.HasGet = true
	}
	if desc.HasSet {
		out.Set = desc.Set
		out.HasSet = true
	}
	if desc.HasWritable {
		out.Writable = desc.Writable
	}
	if desc.HasEnumerable {
		out.Enumerable = desc.Enumerable
	}
	if desc.HasConfigurable {
		out.Configurable = desc.Configurable
	}
	return out
}

// storeNew adds a property that does not exist yet.
func (o *Object) storeNew(key PropertyKey, slot propSlot, attrs Attributes) {
	if idx, ok := key.AsIndex(); ok {
		o.elems.define(idx, elemEntry{slot: slot, attrs: attrs})
		return
	}
	if o.dict != nil {
		o.dict.add(key, slot, attrs)
		return
	}
	o.shape = o.shape.AddProperty(key, attrs)
	o.slots = append(o.slots, slot)
}

// storeExisting overwrites a property in place. Attribute changes force
// dictionary mode, because sibling objects share the shape.
func (o *Object) storeExisting(key PropertyKey, slot propSlot, attrs Attributes) {
	if idx, ok := key.AsIndex(); ok {
		o.elems.define(idx, elemEntry{slot: slot, attrs: attrs})
		return
	}
	if o.dict != nil {
		if i, ok := o.dict.lookup(key); ok {
			o.dict.entries[i].slot = slot
			o.dict.entries[i].attrs = attrs
		} else {
			o.dict.add(key, slot, attrs)
		}
		return
	}
	if shapeSlotIdx, shapeAttrs, ok := o.shape.Lookup(key); ok {
		if shapeAttrs == attrs {
			o.slots[shapeSlotIdx] = slot
			return
		}
		o.toDictionary()
		o.storeExisting(key, slot, attrs)
		return
	}
	o.storeNew(key, slot, attrs)
}

// toDictionary transitions the object to per-object property storage.
func (o *Object) toDictionary() {
	if o.dict != nil {
		return
	}
	d := &dict{index: make(map[PropertyKey]int)}
	for _, key := range o.shape.Keys() {
		slotIdx, attrs, _ := o.shape.Lookup(key)
		d.add(key, o.slots[slotIdx], attrs)
	}
	o.dict = d
	o.slots = nil
	o.shape = nil
}

func ordinaryHasProperty(r *Realm, o *Object, key PropertyKey) (bool, error) {
	for cur := o; cur != nil; {
		if _, ok := cur.methods.GetOwnProperty(r, cur, key); ok {
			return true, nil
		}
		cur = cur.methods.GetPrototypeOf(cur)
	}
	return false, nil
}

func ordinaryGet(r *Realm, o *Object, key PropertyKey, receiver Value) (Value, error) {
	desc, ok := o.methods.GetOwnProperty(r, o, key)
	if !ok {
		parent := o.methods.GetPrototypeOf(o)
		if parent == nil {
			return Undefined(), nil
		}
		return parent.methods.Get(r, parent, key, receiver)
	}
	if !desc.IsAccessorDescriptor() {
		return desc.Value, nil
	}
	if desc.Get == nil {
		return Undefined(), nil
	}
	return r.Call(ObjectValue(desc.Get), receiver, nil)
}

func ordinarySet(r *Realm, o *Object, key PropertyKey, v Value, receiver Value) (bool, error) {
	desc, ok := o.methods.GetOwnProperty(r, o, key)
	if !ok {
		parent := o.methods.GetPrototypeOf(o)
		if parent != nil {
			return parent.methods.Set(r, parent, key, v, receiver)
		}
		desc = DataDescriptor(Undefined(), DefaultDataAttrs)
	}

	if desc.IsAccessorDescriptor() {
		if desc.Set == nil {
			return false, nil
		}
		_, err := r.Call(ObjectValue(desc.Set), receiver, []Value{v})
		return err == nil, err
	}
	if !desc.Writable {
		return false, nil
	}

	// The write lands on the receiver, not necessarily on o.
	if !receiver.IsObject() {
		return false, nil
	}
	target := receiver.Obj()
	existing, exists := target.methods.GetOwnProperty(r, target, key)
	if exists {
		if existing.IsAccessorDescriptor() || !existing.Writable {
			return false, nil
		}
		valueDesc := PropertyDescriptor{Value: v, HasValue: true}
		return target.methods.DefineOwnProperty(r, target, key, valueDesc)
	}
	return target.methods.DefineOwnProperty(r, target, key, DataDescriptor(v, DefaultDataAttrs))
}

func ordinaryDelete(r *Realm, o *Object, key PropertyKey) (bool, error) {
	if idx, ok := key.AsIndex(); ok {
		if entry, exists := o.elems.get(idx); exists {
			if !entry.attrs.Configurable() {
				return false, nil
			}
			o.elems.delete(idx)
		}
		return true, nil
	}

	_, attrs, ok := o.getOwnSlot(key)
	if !ok {
		return true, nil
	}
	if !attrs.Configurable() {
		return false, nil
	}
	if o.dict == nil {
		o.toDictionary()
	}
	o.dict.remove(key)
	return true, nil
}

// ordinaryOwnPropertyKeys returns integer indices in ascending order, then
// string keys in creation order, then symbol keys in creation order.
func ordinaryOwnPropertyKeys(o *Object) []PropertyKey {
	var keys []PropertyKey
	for _, idx := range o.elems.indices() {
		keys = append(keys, IndexKey(idx))
	}

	var named []PropertyKey
	if o.dict != nil {
		for _, e := range o.dict.entries {
			named = append(named, e.key)
		}
	} else {
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

// Inspect formats the object for diagnostics.
func (o *Object) Inspect() string {
	if fd := o.FunctionData(); fd != nil {
		name := fd.Name
		if name == "" {
			name = "anonymous"
		}
		return "[Function: " + name + "]"
	}
	switch o.class {
	case "Array":
		var sb strings.Builder
		sb.WriteString("[")
		n := int(o.elems.length)
		for i := 0; i < n && i < 16; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			if entry, ok := o.elems.get(uint32(i)); ok && !entry.attrs.Accessor() {
				sb.WriteString(entry.slot.value.Inspect())
			}
		}
		if n > 16 {
			sb.WriteString(", ...")
		}
		sb.WriteString("]")
		return sb.String()
	case "Error":
		return "[object Error]"
	default:
		return "[object " + o.class + "]"
	}
}
