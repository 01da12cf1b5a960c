// Package gc implements the engine's precise, stop-the-world, non-moving
// tracing collector. Heap objects implement Managed; the collector walks
// them tri-color style from the registered root sets, runs an ephemeron
// fixpoint for weak-map entries, gives finalizers a chance to resurrect,
// and finally sweeps.
//
// Each Context owns exactly one Heap; nothing in this package is shared
// process-wide.
package gc

// Header is the per-object bookkeeping embedded in every managed object.
type Header struct {
	next      Managed
	size      int
	pins      int32
	marked    bool
	finalized bool
}

// Marker is handed to Trace implementations to mark outgoing strong
// references.
type Marker struct {
	worklist []Managed
}

// Mark records a strong reference to m. Nil targets are ignored.
func (mk *Marker) Mark(m Managed) {
	if m == nil {
		return
	}
	if h := m.Header(); !h.marked {
		h.marked = true
		mk.worklist = append(mk.worklist, m)
	}
}

// Managed is implemented by every heap-allocated engine object.
type Managed interface {
	// Header returns the object's GC header. Implementations embed a
	// Header and return a pointer to it.
	Header() *Header

	// Trace calls mk.Mark for every strong reference the object holds.
	Trace(mk *Marker)
}

// HasFinalizer is implemented by objects that must run cleanup before being
// swept. Finalizers may resurrect their object by storing it somewhere
// reachable; the collector re-marks before sweeping.
type HasFinalizer interface {
	Managed
	Finalize()
}

// RootProvider enumerates a set of roots. The VM, the realm, and the handle
// table each register one.
type RootProvider interface {
	Roots(mk *Marker)
}

// RootFunc adapts a function to RootProvider.
type RootFunc func(mk *Marker)

// Roots implements RootProvider.
func (f RootFunc) Roots(mk *Marker) { f(mk) }

// DefaultThreshold is the initial allocation budget before the first
// collection.
const DefaultThreshold = 1 << 20 // 1 MiB

// Heap owns the allocation list, the root providers, and the weak
// reference tables.
type Heap struct {
	head      Managed
	roots     []RootProvider
	weakRefs  []*WeakRef
	ephemera  []*Ephemeron
	allocated int
	threshold int
	liveCount int

	// sweeping guards against dereferencing heap pointers during the sweep
	// phase, which is a programming error.
	sweeping bool

	// Stats
	collections int
}

// NewHeap creates a heap with the given collection threshold in bytes; zero
// selects DefaultThreshold.
func NewHeap(threshold int) *Heap {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Heap{threshold: threshold}
}

// AddRoots registers a root provider for every future collection.
func (h *Heap) AddRoots(r RootProvider) {
	h.roots = append(h.roots, r)
}

// Alloc links a freshly created object into the heap. size is the object's
// approximate footprint used for collection scheduling.
func (h *Heap) Alloc(m Managed, size int) {
	h.assertNotSweeping()
	hd := m.Header()
	hd.next = h.head
	hd.size = size
	h.head = m
	h.allocated += size
	h.liveCount++
}

// ShouldCollect reports whether the allocation counter has crossed the
// threshold; callers trigger Collect at the next safe point.
func (h *Heap) ShouldCollect() bool {
	return h.allocated >= h.threshold
}

// Pin marks m as referenced from native code; pinned objects are roots.
func (h *Heap) Pin(m Managed) {
	m.Header().pins++
}

// Unpin releases one native reference.
func (h *Heap) Unpin(m Managed) {
	if hd := m.Header(); hd.pins > 0 {
		hd.pins--
	}
}

// Allocated returns the current allocation counter.
func (h *Heap) Allocated() int { return h.allocated }

// Collections returns the number of completed collections.
func (h *Heap) Collections() int { return h.collections }

// LiveCount returns the number of objects currently linked into the heap.
func (h *Heap) LiveCount() int { return h.liveCount }

func (h *Heap) assertNotSweeping() {
	if h.sweeping {
		panic("gc: heap access during sweep phase")
	}
}

// Collect runs a full mark/finalize/sweep cycle.
func (h *Heap) Collect() {
	h.assertNotSweeping()

	for {
		h.mark()
		if !h.finalize() {
			break
		}
		// A finalizer ran and may have resurrected objects: clear marks
		// and re-mark from the roots before deciding what to sweep.
		h.clearMarks()
	}

	h.clearWeak()
	h.sweep()
	h.collections++

	// Grow the threshold so steady-state programs do not collect on every
	// allocation burst.
	if h.allocated*2 > h.threshold {
		h.threshold = h.allocated * 2
	}
}

// mark walks the object graph from the root set, then runs the ephemeron
// fixpoint: an ephemeron's value is marked only once its key is proven
// reachable from outside the ephemeron itself.
func (h *Heap) mark() {
	mk := &Marker{}

	for _, r := range h.roots {
		r.Roots(mk)
	}
	// Pinned objects are roots regardless of in-heap references.
	for m := h.head; m != nil; m = m.Header().next {
		if m.Header().pins > 0 {
			mk.Mark(m)
		}
	}

	h.drain(mk)

	// Ephemeron fixpoint.
	for {
		progressed := false
		for _, e := range h.ephemera {
			if e.dead || e.Key == nil {
				continue
			}
			if e.ownerDead() {
				continue
			}
			if e.Key.Header().marked && e.Value != nil && !e.Value.Header().marked {
				mk.Mark(e.Value)
				progressed = true
			}
		}
		if !progressed {
			break
		}
		h.drain(mk)
	}
}

func (h *Heap) drain(mk *Marker) {
	for len(mk.worklist) > 0 {
		m := mk.worklist[len(mk.worklist)-1]
		mk.worklist = mk.worklist[:len(mk.worklist)-1]
		m.Trace(mk)
	}
}

// finalize runs finalizers of unreachable objects. It reports whether any
// finalizer ran, in which case the caller re-marks before sweeping.
func (h *Heap) finalize() bool {
	ran := false
	for m := h.head; m != nil; m = m.Header().next {
		hd := m.Header()
		if hd.marked || hd.finalized {
			continue
		}
		if f, ok := m.(HasFinalizer); ok {
			hd.finalized = true
			f.Finalize()
			ran = true
		}
	}
	return ran
}

// clearWeak runs after the mark fixpoint: weak references to unmarked
// targets are cleared, and ephemeron entries with unmarked keys die.
func (h *Heap) clearWeak() {
	liveRefs := h.weakRefs[:0]
	for _, w := range h.weakRefs {
		if w.target != nil && !w.target.Header().marked {
			w.target = nil
		}
		if !w.released {
			liveRefs = append(liveRefs, w)
		}
	}
	h.weakRefs = liveRefs

	liveEph := h.ephemera[:0]
	for _, e := range h.ephemera {
		if e.dead {
			continue
		}
		if e.owner != nil && !e.owner.Header().marked {
			// The weak map itself died; drop its entries.
			e.dead = true
			continue
		}
		if e.Key != nil && !e.Key.Header().marked {
			e.dead = true
			e.Key = nil
			e.Value = nil
			continue
		}
		liveEph = append(liveEph, e)
	}
	h.ephemera = liveEph
}

// sweep unlinks every unmarked object and clears the marks of survivors.
func (h *Heap) sweep() {
	h.sweeping = true
	defer func() { h.sweeping = false }()

	var prev Managed
	m := h.head
	allocated := 0
	count := 0
	for m != nil {
		hd := m.Header()
		next := hd.next
		if hd.marked {
			hd.marked = false
			allocated += hd.size
			count++
			prev = m
		} else {
			if prev == nil {
				h.head = next
			} else {
				prev.Header().next = next
			}
			hd.next = nil
		}
		m = next
	}
	h.allocated = allocated
	h.liveCount = count
}

func (h *Heap) clearMarks() {
	for m := h.head; m != nil; m = m.Header().next {
		m.Header().marked = false
	}
}
