package runtime

import "github.com/cwbudde/go-ecma/internal/gc"

// IteratorRecord bundles an iterator object with its cached next method,
// per the iteration protocol.
type IteratorRecord struct {
	Iterator Value
	Next     Value
	Done     bool
}

// GetIterator retrieves v's @@iterator and opens an iterator record.
func GetIterator(r *Realm, v Value) (*IteratorRecord, error) {
	method, err := GetV(r, v, SymbolKey(r.WellKnown.Iterator))
	if err != nil {
		return nil, err
	}
	return GetIteratorFromMethod(r, v, method)
}

// GetAsyncIterator retrieves @@asyncIterator, wrapping a sync iterator when
// only that is available.
func GetAsyncIterator(r *Realm, v Value) (*IteratorRecord, error) {
	method, err := GetV(r, v, SymbolKey(r.WellKnown.AsyncIterator))
	if err != nil {
		return nil, err
	}
	if !method.IsNullish() {
		return GetIteratorFromMethod(r, v, method)
	}
	sync, err := GetIterator(r, v)
	if err != nil {
		return nil, err
	}
	wrapped := r.NewAsyncFromSyncIterator(sync)
	next, err := Get(r, wrapped, StringKey("next"))
	if err != nil {
		return nil, err
	}
	return &IteratorRecord{Iterator: ObjectValue(wrapped), Next: next}, nil
}

// GetIteratorFromMethod opens a record by calling an iterator method.
func GetIteratorFromMethod(r *Realm, v Value, method Value) (*IteratorRecord, error) {
	if !method.IsCallable() {
		return nil, r.NewTypeError("%s is not iterable", v.Inspect())
	}
	iter, err := r.Call(method, v, nil)
	if err != nil {
		return nil, err
	}
	if !iter.IsObject() {
		return nil, r.NewTypeError("iterator result is not an object")
	}
	next, err := Get(r, iter.Obj(), StringKey("next"))
	if err != nil {
		return nil, err
	}
	return &IteratorRecord{Iterator: iter, Next: next}, nil
}

// IteratorNext advances the iterator, optionally passing a value.
func IteratorNext(r *Realm, rec *IteratorRecord, arg *Value) (*Object, error) {
	var args []Value
	if arg != nil {
		args = []Value{*arg}
	}
	result, err := r.Call(rec.Next, rec.Iterator, args)
	if err != nil {
		return nil, err
	}
	if !result.IsObject() {
		return nil, r.NewTypeError("iterator result is not an object")
	}
	return result.Obj(), nil
}

// IteratorComplete reads the done flag of a result object.
func IteratorComplete(r *Realm, result *Object) (bool, error) {
	done, err := Get(r, result, StringKey("done"))
	if err != nil {
		return false, err
	}
	return ToBoolean(done), nil
}

// IteratorValue reads the value of a result object.
func IteratorValue(r *Realm, result *Object) (Value, error) {
	return Get(r, result, StringKey("value"))
}

// IteratorStep advances and unpacks one iteration: done reports exhaustion.
func IteratorStep(r *Realm, rec *IteratorRecord) (Value, bool, error) {
	result, err := IteratorNext(r, rec, nil)
	if err != nil {
		return Undefined(), false, err
	}
	done, err := IteratorComplete(r, result)
	if err != nil {
		return Undefined(), false, err
	}
	if done {
		rec.Done = true
		return Undefined(), true, nil
	}
	v, err := IteratorValue(r, result)
	return v, false, err
}

// IteratorClose calls the iterator's return method for early exits. When
// unwinding an existing failure, close errors are swallowed so the
// original error wins.
func IteratorClose(r *Realm, rec *IteratorRecord, prevErr error) error {
	if rec.Done {
		return prevErr
	}
	retMethod, err := GetV(r, rec.Iterator, StringKey("return"))
	if err != nil {
		if prevErr != nil {
			return prevErr
		}
		return err
	}
	if retMethod.IsNullish() {
		return prevErr
	}
	result, err := r.Call(retMethod, rec.Iterator, nil)
	if prevErr != nil {
		return prevErr
	}
	if err != nil {
		return err
	}
	if !result.IsObject() {
		return r.NewTypeError("iterator return result is not an object")
	}
	return nil
}

// CreateIterResult builds a {value, done} object.
func CreateIterResult(r *Realm, value Value, done bool) *Object {
	o := r.NewPlainObject()
	_, _ = CreateDataProperty(r, o, StringKey("value"), value)
	_, _ = CreateDataProperty(r, o, StringKey("done"), Boolean(done))
	return o
}

// IterateToList drains an iterable into a slice (spread evaluation).
func IterateToList(r *Realm, v Value) ([]Value, error) {
	rec, err := GetIterator(r, v)
	if err != nil {
		return nil, err
	}
	var out []Value
	for {
		item, done, err := IteratorStep(r, rec)
		if err != nil {
			return nil, err
		}
		if done {
			return out, nil
		}
		out = append(out, item)
	}
}

// ForInIteratorData is the host payload of for-in enumerators: a snapshot
// of the enumerable string keys along the prototype chain, deduplicated,
// rechecked for liveness as iteration proceeds.
type ForInIteratorData struct {
	Target *Object
	Keys   []string
	Index  int
}

func (f *ForInIteratorData) Trace(mk *gc.Marker) {
	mk.Mark(f.Target)
}

// NewForInIterator snapshots obj's enumerable keys.
func (r *Realm) NewForInIterator(obj *Object) *Object {
	seen := make(map[string]bool)
	var keys []string
	for cur := obj; cur != nil; cur = cur.methods.GetPrototypeOf(cur) {
		for _, key := range cur.methods.OwnPropertyKeys(cur) {
			if key.IsSymbol() || seen[key.str] {
				continue
			}
			seen[key.str] = true
			if desc, ok := cur.methods.GetOwnProperty(r, cur, key); ok && desc.Enumerable {
				keys = append(keys, key.str)
			}
		}
	}
	o := r.NewObject(nil)
	o.class = "ForInIterator"
	o.data = &ForInIteratorData{Target: obj, Keys: keys}
	return o
}

// ForInNext returns the next live key, or done.
func ForInNext(r *Realm, iter *Object) (Value, bool, error) {
	d, _ := iter.data.(*ForInIteratorData)
	if d == nil {
		return Undefined(), true, nil
	}
	for d.Index < len(d.Keys) {
		key := d.Keys[d.Index]
		d.Index++
		// Keys deleted mid-loop are skipped.
		has, err := HasProperty(r, d.Target, StringKey(key))
		if err != nil {
			return Undefined(), false, err
		}
		if has {
			return StringValue(r.Intern(key)), false, nil
		}
	}
	return Undefined(), true, nil
}
