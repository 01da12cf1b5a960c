package runtime

import "github.com/cwbudde/go-ecma/internal/gc"

// mapEntry is one key-value pair; deleted entries become tombstones so
// live iterators stay stable.
type mapEntry struct {
	key     Value
	value   Value
	deleted bool
}

// MapData is the ordered entry table behind Map objects. Keys compare with
// SameValueZero.
type MapData struct {
	entries []*mapEntry
	size    int
}

func (m *MapData) Trace(mk *gc.Marker) {
	for _, e := range m.entries {
		if !e.deleted {
			e.key.mark(mk)
			e.value.mark(mk)
		}
	}
}

// NewMapObject allocates an empty Map.
func (r *Realm) NewMapObject() *Object {
	o := r.NewObject(r.Intrinsics.MapProto)
	o.class = "Map"
	o.data = &MapData{}
	return o
}

// MapDataOf extracts the map payload, or nil.
func MapDataOf(o *Object) *MapData {
	d, _ := o.data.(*MapData)
	return d
}

// Size returns the number of live entries.
func (m *MapData) Size() int { return m.size }

func (m *MapData) find(key Value) *mapEntry {
	for _, e := range m.entries {
		if !e.deleted && SameValueZero(e.key, key) {
			return e
		}
	}
	return nil
}

// Get returns the value for key.
func (m *MapData) Get(key Value) (Value, bool) {
	if e := m.find(key); e != nil {
		return e.value, true
	}
	return Undefined(), false
}

// Has reports key membership.
func (m *MapData) Has(key Value) bool { return m.find(key) != nil }

// Set inserts or updates an entry, normalizing -0 keys to +0.
func (m *MapData) Set(key, value Value) {
	if key.IsNumber() && key.Num() == 0 {
		key = Number(0)
	}
	if e := m.find(key); e != nil {
		e.value = value
		return
	}
	m.entries = append(m.entries, &mapEntry{key: key, value: value})
	m.size++
}

// Delete tombstones an entry.
func (m *MapData) Delete(key Value) bool {
	if e := m.find(key); e != nil {
		e.deleted = true
		e.key = Undefined()
		e.value = Undefined()
		m.size--
		return true
	}
	return false
}

// Clear tombstones everything.
func (m *MapData) Clear() {
	for _, e := range m.entries {
		e.deleted = true
		e.key = Undefined()
		e.value = Undefined()
	}
	m.size = 0
}

// Each visits live entries in insertion order; the callback may mutate the
// map (tombstones keep positions stable).
func (m *MapData) Each(fn func(key, value Value) error) error {
	for i := 0; i < len(m.entries); i++ {
		e := m.entries[i]
		if e.deleted {
			continue
		}
		if err := fn(e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}

// SetData backs Set objects; it reuses the map table with ignored values.
type SetData struct {
	MapData
}

// NewSetObject allocates an empty Set.
func (r *Realm) NewSetObject() *Object {
	o := r.NewObject(r.Intrinsics.SetProto)
	o.class = "Set"
	o.data = &SetData{}
	return o
}

// SetDataOf extracts the set payload, or nil.
func SetDataOf(o *Object) *SetData {
	d, _ := o.data.(*SetData)
	return d
}

// Add inserts a member.
func (s *SetData) Add(v Value) { s.Set(v, v) }

// WeakMapData backs WeakMap objects: each entry is a GC ephemeron so a
// key's reachability controls the pair's lifetime without key-retention
// cycles.
type WeakMapData struct {
	owner   *Object
	heap    *gc.Heap
	entries []*gc.Ephemeron
}

// The ephemerons are registered with the heap directly; nothing to trace
// here (values must NOT be strongly held by the weak map).
func (w *WeakMapData) Trace(mk *gc.Marker) {}

// NewWeakMapObject allocates an empty WeakMap.
func (r *Realm) NewWeakMapObject() *Object {
	o := r.NewObject(r.Intrinsics.WeakMapProto)
	o.class = "WeakMap"
	o.data = &WeakMapData{owner: o, heap: r.Heap}
	return o
}

// WeakMapDataOf extracts the weak-map payload, or nil.
func WeakMapDataOf(o *Object) *WeakMapData {
	d, _ := o.data.(*WeakMapData)
	return d
}

func (w *WeakMapData) find(key *Object) *gc.Ephemeron {
	for _, e := range w.entries {
		if e.Alive() && e.Key == gc.Managed(key) {
			return e
		}
	}
	return nil
}

// Get returns the value for key.
func (w *WeakMapData) Get(key *Object) (Value, bool) {
	if e := w.find(key); e != nil {
		if obj, ok := e.Value.(*Object); ok {
			return ObjectValue(obj), true
		}
		if box, ok := e.Value.(*valueBox); ok {
			return box.value, true
		}
	}
	return Undefined(), false
}

// Has reports key membership.
func (w *WeakMapData) Has(key *Object) bool { return w.find(key) != nil }

// Set inserts or updates an entry.
func (w *WeakMapData) Set(key *Object, value Value) {
	if e := w.find(key); e != nil {
		e.Value = boxWeakValue(w.heap, value)
		return
	}
	w.prune()
	w.entries = append(w.entries, w.heap.NewEphemeron(w.owner, key, boxWeakValue(w.heap, value)))
}

// Delete clears an entry.
func (w *WeakMapData) Delete(key *Object) bool {
	if e := w.find(key); e != nil {
		e.Clear()
		return true
	}
	return false
}

// prune drops entries killed by the collector.
func (w *WeakMapData) prune() {
	live := w.entries[:0]
	for _, e := range w.entries {
		if e.Alive() {
			live = append(live, e)
		}
	}
	w.entries = live
}

// valueBox wraps a primitive weak-map value as a heap cell so the
// ephemeron can reference it uniformly.
type valueBox struct {
	hdr   gc.Header
	value Value
}

func (b *valueBox) Header() *gc.Header    { return &b.hdr }
func (b *valueBox) Trace(mk *gc.Marker)   { b.value.mark(mk) }

func boxWeakValue(heap *gc.Heap, v Value) gc.Managed {
	if v.IsObject() {
		return v.Obj()
	}
	box := &valueBox{value: v}
	heap.Alloc(box, 32)
	return box
}

// WeakSetData backs WeakSet objects.
type WeakSetData struct {
	WeakMapData
}

// NewWeakSetObject allocates an empty WeakSet.
func (r *Realm) NewWeakSetObject() *Object {
	o := r.NewObject(r.Intrinsics.WeakSetProto)
	o.class = "WeakSet"
	o.data = &WeakSetData{WeakMapData{owner: o, heap: r.Heap}}
	return o
}

// WeakSetDataOf extracts the weak-set payload, or nil.
func WeakSetDataOf(o *Object) *WeakSetData {
	d, _ := o.data.(*WeakSetData)
	return d
}

// Add inserts a member.
func (w *WeakSetData) Add(member *Object) { w.Set(member, ObjectValue(member)) }
