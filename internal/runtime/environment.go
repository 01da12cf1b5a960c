package runtime

import "github.com/cwbudde/go-ecma/internal/gc"

// EnvKind classifies runtime environments.
type EnvKind uint8

const (
	EnvDeclarative EnvKind = iota
	EnvFunction
	EnvModule
	EnvObject
	EnvGlobal
)

// BindingDesc describes one binding of a compiled scope.
type BindingDesc struct {
	Name    string
	Mutable bool
}

// ScopeDescriptor is the compiled description of a runtime scope: binding
// names, mutability, and slot order. The compiler emits one per scope that
// has escaping bindings; environments share them.
type ScopeDescriptor struct {
	Kind     EnvKind
	Bindings []BindingDesc
}

// SlotOf resolves a name to its slot index in environments using this
// descriptor.
func (d *ScopeDescriptor) SlotOf(name string) (int, bool) {
	for i, b := range d.Bindings {
		if b.Name == name {
			return i, true
		}
	}
	return 0, false
}

// namedBinding is one dynamically created binding in the global or module
// environment's declarative half.
type namedBinding struct {
	value       Value
	mutable     bool
	initialized bool
}

// Environment is a runtime scope record. Slot-addressed bindings come from
// compiled scope descriptors; the global and module environments
// additionally keep a by-name declarative half because successive scripts
// extend them. Object environments wrap a user object (with statements and
// the global object half).
type Environment struct {
	hdr gc.Header

	kind  EnvKind
	desc  *ScopeDescriptor
	slots []Value
	named map[string]*namedBinding

	// object backs object environments; for the global environment it is
	// the global object consulted after the declarative half.
	object *Object

	// isWith selects @@unscopables handling on lookups.
	isWith bool

	outer *Environment

	// Function-environment state.
	this      Value
	newTarget Value
	funcObj   *Object
	hasThis   bool
}

// Header implements gc.Managed.
func (e *Environment) Header() *gc.Header { return &e.hdr }

// Trace implements gc.Managed.
func (e *Environment) Trace(mk *gc.Marker) {
	for _, v := range e.slots {
		v.mark(mk)
	}
	for _, b := range e.named {
		b.value.mark(mk)
	}
	mk.Mark(e.object)
	mk.Mark(e.outer)
	e.this.mark(mk)
	e.newTarget.mark(mk)
	mk.Mark(e.funcObj)
}

const envBaseSize = 64

// NewDeclarativeEnv creates a block or similar declarative environment with
// slots sized from the descriptor. Slots start Empty: reads before
// initialization are temporal-dead-zone errors.
func (r *Realm) NewDeclarativeEnv(desc *ScopeDescriptor, outer *Environment) *Environment {
	e := &Environment{
		kind:  EnvDeclarative,
		desc:  desc,
		outer: outer,
	}
	if desc != nil {
		e.slots = make([]Value, len(desc.Bindings))
		for i := range e.slots {
			e.slots[i] = Empty()
		}
	}
	r.Heap.Alloc(e, envBaseSize+16*len(e.slots))
	return e
}

// NewFunctionEnv creates the environment of one function invocation.
func (r *Realm) NewFunctionEnv(desc *ScopeDescriptor, outer *Environment, this Value, newTarget Value, fn *Object) *Environment {
	e := r.NewDeclarativeEnv(desc, outer)
	e.kind = EnvFunction
	e.this = this
	e.newTarget = newTarget
	e.funcObj = fn
	e.hasThis = true
	return e
}

// NewObjectEnv wraps an object as an environment (with statements).
func (r *Realm) NewObjectEnv(obj *Object, outer *Environment, isWith bool) *Environment {
	e := &Environment{
		kind:   EnvObject,
		object: obj,
		isWith: isWith,
		outer:  outer,
	}
	r.Heap.Alloc(e, envBaseSize)
	return e
}

// NewGlobalEnv creates the global environment: a declarative half for
// lexical declarations and the global object for var and property globals.
func (r *Realm) NewGlobalEnv(global *Object) *Environment {
	e := &Environment{
		kind:   EnvGlobal,
		named:  make(map[string]*namedBinding),
		object: global,
	}
	r.Heap.Alloc(e, envBaseSize)
	return e
}

// NewModuleEnv creates a module environment with by-name bindings.
func (r *Realm) NewModuleEnv(outer *Environment) *Environment {
	e := &Environment{
		kind:  EnvModule,
		named: make(map[string]*namedBinding),
		outer: outer,
	}
	r.Heap.Alloc(e, envBaseSize)
	return e
}

// Outer returns the enclosing environment.
func (e *Environment) Outer() *Environment { return e.outer }

// Kind returns the environment kind.
func (e *Environment) Kind() EnvKind { return e.kind }

// BoundObject returns the wrapped object of an object environment.
func (e *Environment) BoundObject() *Object { return e.object }

// GetSlot reads a slot directly; the compiler guarantees the index.
func (e *Environment) GetSlot(i int) Value { return e.slots[i] }

// SetSlot writes a slot directly.
func (e *Environment) SetSlot(i int, v Value) { e.slots[i] = v }

// This resolves the this binding, walking past arrow-function frames that
// have none.
func (e *Environment) This() (Value, bool) {
	for cur := e; cur != nil; cur = cur.outer {
		if cur.hasThis {
			return cur.this, true
		}
	}
	return Undefined(), false
}

// NewTargetValue resolves new.target through the environment chain.
func (e *Environment) NewTargetValue() Value {
	for cur := e; cur != nil; cur = cur.outer {
		if cur.hasThis {
			return cur.newTarget
		}
	}
	return Undefined()
}

// FunctionObject resolves the active function through the chain.
func (e *Environment) FunctionObject() *Object {
	for cur := e; cur != nil; cur = cur.outer {
		if cur.hasThis {
			return cur.funcObj
		}
	}
	return nil
}

// DeclareNamed creates a by-name binding (global/module declarative half).
// Lexical bindings start uninitialized.
func (e *Environment) DeclareNamed(name string, mutable, initialized bool) {
	b := &namedBinding{mutable: mutable, initialized: initialized}
	if initialized {
		b.value = Undefined()
	} else {
		b.value = Empty()
	}
	e.named[name] = b
}

// HasNamed reports whether the declarative half declares name.
func (e *Environment) HasNamed(name string) bool {
	_, ok := e.named[name]
	return ok
}

// InitNamed initializes a by-name binding.
func (e *Environment) InitNamed(name string, v Value) {
	if b, ok := e.named[name]; ok {
		b.value = v
		b.initialized = true
	}
}

// GetName implements the runtime name lookup of §4.6: walk environments
// innermost-out, honoring object environments and the global two halves.
// A missing name is a ReferenceError.
func GetName(r *Realm, env *Environment, name string) (Value, error) {
	for e := env; e != nil; e = e.outer {
		v, found, err := e.lookupHere(r, name)
		if err != nil {
			return Undefined(), err
		}
		if found {
			if v.IsEmpty() {
				return Undefined(), r.NewReferenceError("cannot access '%s' before initialization", name)
			}
			return v, nil
		}
	}
	return Undefined(), r.NewReferenceError("%s is not defined", name)
}

// GetNameOrUndefined is GetName for typeof: unresolvable names yield
// undefined instead of throwing; TDZ reads still throw.
func GetNameOrUndefined(r *Realm, env *Environment, name string) (Value, error) {
	for e := env; e != nil; e = e.outer {
		v, found, err := e.lookupHere(r, name)
		if err != nil {
			return Undefined(), err
		}
		if found {
			if v.IsEmpty() {
				return Undefined(), r.NewReferenceError("cannot access '%s' before initialization", name)
			}
			return v, nil
		}
	}
	return Undefined(), nil
}

// lookupHere checks a single environment record.
func (e *Environment) lookupHere(r *Realm, name string) (Value, bool, error) {
	switch e.kind {
	case EnvObject:
		has, err := e.objectHasBinding(r, name)
		if err != nil || !has {
			return Undefined(), false, err
		}
		v, err := Get(r, e.object, StringKey(name))
		return v, true, err
	case EnvGlobal:
		if b, ok := e.named[name]; ok {
			return b.value, true, nil
		}
		key := StringKey(name)
		has, err := HasProperty(r, e.object, key)
		if err != nil || !has {
			return Undefined(), false, err
		}
		v, err := Get(r, e.object, key)
		return v, true, err
	default:
		if e.named != nil {
			if b, ok := e.named[name]; ok {
				return b.value, true, nil
			}
			return Undefined(), false, nil
		}
		if e.desc != nil {
			if slot, ok := e.desc.SlotOf(name); ok {
				return e.slots[slot], true, nil
			}
		}
		return Undefined(), false, nil
	}
}

// objectHasBinding implements HasBinding for object environments,
// honoring @@unscopables on with environments.
func (e *Environment) objectHasBinding(r *Realm, name string) (bool, error) {
	key := StringKey(name)
	has, err := HasProperty(r, e.object, key)
	if err != nil || !has {
		return false, err
	}
	if !e.isWith {
		return true, nil
	}
	unscopables, err := Get(r, e.object, SymbolKey(r.WellKnown.Unscopables))
	if err != nil {
		return false, err
	}
	if unscopables.IsObject() {
		blocked, err := Get(r, unscopables.Obj(), key)
		if err != nil {
			return false, err
		}
		if ToBoolean(blocked) {
			return false, nil
		}
	}
	return true, nil
}

// SetName implements the runtime name assignment of §4.6. In strict mode a
// missing name is a ReferenceError; in sloppy mode the write creates a
// global property.
func SetName(r *Realm, env *Environment, name string, v Value, strict bool) error {
	for e := env; e != nil; e = e.outer {
		switch e.kind {
		case EnvObject:
			has, err := e.objectHasBinding(r, name)
			if err != nil {
				return err
			}
			if has {
				_, err := Set(r, e.object, StringKey(name), v, strict)
				return err
			}
		case EnvGlobal:
			if b, ok := e.named[name]; ok {
				if b.value.IsEmpty() {
					return r.NewReferenceError("cannot access '%s' before initialization", name)
				}
				if !b.mutable {
					return r.NewTypeError("assignment to constant variable")
				}
				b.value = v
				return nil
			}
			key := StringKey(name)
			has, err := HasProperty(r, e.object, key)
			if err != nil {
				return err
			}
			if has || !strict {
				ok, err := Set(r, e.object, key, v, false)
				if err != nil {
					return err
				}
				if !ok && strict {
					return r.NewTypeError("cannot assign to read only property '%s'", name)
				}
				return nil
			}
			return r.NewReferenceError("%s is not defined", name)
		default:
			if e.named != nil {
				if b, ok := e.named[name]; ok {
					if b.value.IsEmpty() {
						return r.NewReferenceError("cannot access '%s' before initialization", name)
					}
					if !b.mutable {
						return r.NewTypeError("assignment to constant variable")
					}
					b.value = v
					return nil
				}
				continue
			}
			if e.desc != nil {
				if slot, ok := e.desc.SlotOf(name); ok {
					if e.slots[slot].IsEmpty() {
						return r.NewReferenceError("cannot access '%s' before initialization", name)
					}
					if !e.desc.Bindings[slot].Mutable {
						return r.NewTypeError("assignment to constant variable")
					}
					e.slots[slot] = v
					return nil
				}
			}
		}
	}
	if strict {
		return r.NewReferenceError("%s is not defined", name)
	}
	// Sloppy-mode writes to unresolved names create global properties.
	global := r.GlobalEnv.object
	_, err := Set(r, global, StringKey(name), v, false)
	return err
}

// DeleteName implements delete on an unqualified name: only object-backed
// (and global object) bindings are deletable.
func DeleteName(r *Realm, env *Environment, name string) (bool, error) {
	for e := env; e != nil; e = e.outer {
		switch e.kind {
		case EnvObject:
			has, err := e.objectHasBinding(r, name)
			if err != nil {
				return false, err
			}
			if has {
				return e.object.methods.Delete(r, e.object, StringKey(name))
			}
		case EnvGlobal:
			if _, ok := e.named[name]; ok {
				return false, nil
			}
			key := StringKey(name)
			has, err := HasProperty(r, e.object, key)
			if err != nil {
				return false, err
			}
			if has {
				return e.object.methods.Delete(r, e.object, key)
			}
		default:
			if e.named != nil {
				if _, ok := e.named[name]; ok {
					return false, nil
				}
			}
			if e.desc != nil {
				if _, ok := e.desc.SlotOf(name); ok {
					return false, nil
				}
			}
		}
	}
	return true, nil
}

// NameOfSlot reports the binding name of a slot for error messages.
func (e *Environment) NameOfSlot(i int) string {
	if e.desc != nil && i < len(e.desc.Bindings) {
		return e.desc.Bindings[i].Name
	}
	return "<binding>"
}

// GetSlotChecked reads a slot, throwing on a temporal-dead-zone read.
func (e *Environment) GetSlotChecked(r *Realm, i int) (Value, error) {
	v := e.slots[i]
	if v.IsEmpty() {
		return Undefined(), r.NewReferenceError("cannot access '%s' before initialization", e.NameOfSlot(i))
	}
	return v, nil
}

// SetSlotChecked writes a slot, honoring dead zones and immutability.
func (e *Environment) SetSlotChecked(r *Realm, i int, v Value) error {
	if e.slots[i].IsEmpty() {
		return r.NewReferenceError("cannot access '%s' before initialization", e.NameOfSlot(i))
	}
	if e.desc != nil && i < len(e.desc.Bindings) && !e.desc.Bindings[i].Mutable {
		return r.NewTypeError("assignment to constant variable")
	}
	e.slots[i] = v
	return nil
}

// Descriptor returns the environment's scope descriptor.
func (e *Environment) Descriptor() *ScopeDescriptor { return e.desc }

// FreshenEnv creates a per-iteration copy of a declarative environment:
// same descriptor and outer link, slot values copied, so closures created
// in the previous iteration keep their own bindings.
func (r *Realm) FreshenEnv(e *Environment) *Environment {
	fresh := r.NewDeclarativeEnv(e.desc, e.outer)
	copy(fresh.slots, e.slots)
	return fresh
}

// InitName initializes a by-name binding through the chain: used by global
// and module top-level declarations.
func InitName(r *Realm, env *Environment, name string, v Value) error {
	for e := env; e != nil; e = e.outer {
		if e.named != nil {
			if b, ok := e.named[name]; ok {
				b.value = v
				b.initialized = true
				return nil
			}
		}
		if e.kind == EnvGlobal {
			// A global var or function declaration lands on the global
			// object.
			_, err := Set(r, e.object, StringKey(name), v, false)
			return err
		}
	}
	return SetName(r, env, name, v, false)
}
