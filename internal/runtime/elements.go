package runtime

import "github.com/cwbudde/go-ecma/internal/gc"

// sparseCutoff is the gap past the dense tail at which indexed storage
// switches to the sparse map.
const sparseCutoff = 1024

// elemEntry is one sparse element with non-default attributes allowed.
type elemEntry struct {
	slot  propSlot
	attrs Attributes
}

// elements is the indexed-property container kept separate from named
// storage. Dense mode is a vector with Empty holes; the sparse map takes
// over for far-out indices or non-default attributes.
type elements struct {
	dense  []Value
	sparse map[uint32]elemEntry
	length uint32 // array length; tracked for array exotic objects
}

func (e *elements) trace(mk *gc.Marker) {
	for _, v := range e.dense {
		v.mark(mk)
	}
	for _, entry := range e.sparse {
		entry.slot.value.mark(mk)
		mk.Mark(entry.slot.get)
		mk.Mark(entry.slot.set)
	}
}

// get returns the element at idx.
func (e *elements) get(idx uint32) (elemEntry, bool) {
	if int(idx) < len(e.dense) {
		v := e.dense[idx]
		if v.IsEmpty() {
			return elemEntry{}, false
		}
		return elemEntry{slot: propSlot{value: v}, attrs: DefaultDataAttrs}, true
	}
	if e.sparse != nil {
		entry, ok := e.sparse[idx]
		return entry, ok
	}
	return elemEntry{}, false
}

// set stores a plain data element with default attributes.
func (e *elements) set(idx uint32, v Value) {
	if e.sparse != nil {
		e.sparse[idx] = elemEntry{slot: propSlot{value: v}, attrs: DefaultDataAttrs}
	} else if int(idx) < len(e.dense) {
		e.dense[idx] = v
	} else if int(idx) <= len(e.dense)+sparseCutoff {
		for len(e.dense) < int(idx) {
			e.dense = append(e.dense, Empty())
		}
		e.dense = append(e.dense, v)
	} else {
		e.toSparse()
		e.sparse[idx] = elemEntry{slot: propSlot{value: v}, attrs: DefaultDataAttrs}
	}
	if idx >= e.length {
		e.length = idx + 1
	}
}

// define stores an element with explicit attributes, forcing sparse mode
// when they are not the defaults.
func (e *elements) define(idx uint32, entry elemEntry) {
	if entry.attrs == DefaultDataAttrs && !entry.attrs.Accessor() && e.sparse == nil {
		e.set(idx, entry.slot.value)
		return
	}
	e.toSparse()
	e.sparse[idx] = entry
	if idx >= e.length {
		e.length = idx + 1
	}
}

// delete removes an element; it reports whether the element existed.
func (e *elements) delete(idx uint32) bool {
	if int(idx) < len(e.dense) {
		had := !e.dense[idx].IsEmpty()
		e.dense[idx] = Empty()
		return had
	}
	if e.sparse != nil {
		if _, ok := e.sparse[idx]; ok {
			delete(e.sparse, idx)
			return true
		}
	}
	return false
}

// toSparse migrates dense storage into the map.
func (e *elements) toSparse() {
	if e.sparse != nil {
		return
	}
	e.sparse = make(map[uint32]elemEntry, len(e.dense))
	for i, v := range e.dense {
		if !v.IsEmpty() {
			e.sparse[uint32(i)] = elemEntry{slot: propSlot{value: v}, attrs: DefaultDataAttrs}
		}
	}
	e.dense = nil
}

// indices returns the present indices in ascending order.
func (e *elements) indices() []uint32 {
	var out []uint32
	for i, v := range e.dense {
		if !v.IsEmpty() {
			out = append(out, uint32(i))
		}
	}
	if e.sparse != nil {
		for idx := range e.sparse {
			out = append(out, idx)
		}
		sortUint32(out)
	}
	return out
}

// truncate drops elements at or above newLen (array length shrink). It
// reports whether every removal succeeded (non-configurable sparse entries
// stop the shrink, per the array exotic semantics).
func (e *elements) truncate(newLen uint32) bool {
	if e.sparse != nil {
		idxs := e.indices()
		for i := len(idxs) - 1; i >= 0; i-- {
			idx := idxs[i]
			if idx < newLen {
				break
			}
			entry := e.sparse[idx]
			if !entry.attrs.Configurable() {
				e.length = idx + 1
				return false
			}
			delete(e.sparse, idx)
		}
		e.length = newLen
		return true
	}
	if int(newLen) < len(e.dense) {
		e.dense = e.dense[:newLen]
	}
	e.length = newLen
	return true
}

func sortUint32(xs []uint32) {
	// Insertion sort: index lists are short in practice and the dense
	// prefix is already ordered.
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}
