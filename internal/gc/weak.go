package gc

// WeakRef is a reference that does not keep its target alive. After a
// collection in which the target was unreachable through strong references,
// Get reports the target as dead.
type WeakRef struct {
	target   Managed
	released bool
}

// NewWeakRef registers a weak reference to target.
func (h *Heap) NewWeakRef(target Managed) *WeakRef {
	w := &WeakRef{target: target}
	h.weakRefs = append(h.weakRefs, w)
	return w
}

// Get returns the target, or nil and false if it has been collected.
func (w *WeakRef) Get() (Managed, bool) {
	if w.target == nil {
		return nil, false
	}
	return w.target, true
}

// Release drops the weak reference itself; the heap forgets it at the next
// collection.
func (w *WeakRef) Release() {
	w.released = true
	w.target = nil
}

// Ephemeron is a (key, value) pair whose value stays alive only while the
// key is reachable through some path that does not run through this
// ephemeron. Weak maps hold one per entry.
type Ephemeron struct {
	Key   Managed
	Value Managed

	// owner is the weak map holding the entry; entries of a dead owner are
	// dropped wholesale.
	owner Managed
	dead  bool
}

// NewEphemeron registers an ephemeron owned by owner (typically the weak
// map object holding the entry).
func (h *Heap) NewEphemeron(owner, key, value Managed) *Ephemeron {
	e := &Ephemeron{Key: key, Value: value, owner: owner}
	h.ephemera = append(h.ephemera, e)
	return e
}

// Alive reports whether the entry is still live.
func (e *Ephemeron) Alive() bool { return !e.dead && e.Key != nil }

// Clear kills the entry without waiting for a collection (weak-map delete).
func (e *Ephemeron) Clear() {
	e.dead = true
	e.Key = nil
	e.Value = nil
}

func (e *Ephemeron) ownerDead() bool {
	return e.owner != nil && !e.owner.Header().marked
}
