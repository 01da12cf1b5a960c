package gc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// node is a minimal managed object for collector tests.
type node struct {
	header   Header
	children []*node
	finalized *bool
}

func (n *node) Header() *Header { return &n.header }

func (n *node) Trace(mk *Marker) {
	for _, c := range n.children {
		mk.Mark(c)
	}
}

// finalNode runs a finalizer; optionally resurrecting itself into a target.
type finalNode struct {
	node
	resurrectInto *node
}

func (f *finalNode) Finalize() {
	if f.finalized != nil {
		*f.finalized = true
	}
	if f.resurrectInto != nil {
		f.resurrectInto.children = append(f.resurrectInto.children, &f.node)
	}
}

// rootSet is a mutable root provider.
type rootSet struct {
	nodes []Managed
}

func (r *rootSet) Roots(mk *Marker) {
	for _, n := range r.nodes {
		mk.Mark(n)
	}
}

func newTestHeap() (*Heap, *rootSet) {
	h := NewHeap(1)
	roots := &rootSet{}
	h.AddRoots(roots)
	return h, roots
}

func alloc(h *Heap) *node {
	n := &node{}
	h.Alloc(n, 64)
	return n
}

func TestReachableSurvives(t *testing.T) {
	h, roots := newTestHeap()

	root := alloc(h)
	child := alloc(h)
	root.children = append(root.children, child)
	roots.nodes = append(roots.nodes, root)

	h.Collect()
	assert.Equal(t, 2, h.LiveCount())
}

func TestUnreachableCollected(t *testing.T) {
	h, roots := newTestHeap()

	root := alloc(h)
	garbage := alloc(h)
	_ = garbage
	roots.nodes = append(roots.nodes, root)

	h.Collect()
	assert.Equal(t, 1, h.LiveCount())
}

func TestCycleCollected(t *testing.T) {
	h, roots := newTestHeap()

	root := alloc(h)
	roots.nodes = append(roots.nodes, root)

	a := alloc(h)
	b := alloc(h)
	a.children = append(a.children, b)
	b.children = append(b.children, a)

	h.Collect()
	assert.Equal(t, 1, h.LiveCount(), "unreachable cycle must be collected")
}

func TestPinnedObjectIsRoot(t *testing.T) {
	h, _ := newTestHeap()

	n := alloc(h)
	h.Pin(n)
	h.Collect()
	assert.Equal(t, 1, h.LiveCount())

	h.Unpin(n)
	h.Collect()
	assert.Equal(t, 0, h.LiveCount())
}

func TestWeakRefCleared(t *testing.T) {
	h, roots := newTestHeap()

	strong := alloc(h)
	weakTarget := alloc(h)
	roots.nodes = append(roots.nodes, strong)
	w := h.NewWeakRef(weakTarget)

	if _, ok := w.Get(); !ok {
		t.Fatal("weak target alive before collection")
	}
	h.Collect()
	if _, ok := w.Get(); ok {
		t.Error("weak reference must be cleared after target collection")
	}
}

func TestWeakRefKeptWhileStrong(t *testing.T) {
	h, roots := newTestHeap()

	target := alloc(h)
	roots.nodes = append(roots.nodes, target)
	w := h.NewWeakRef(target)

	h.Collect()
	got, ok := w.Get()
	require.True(t, ok)
	assert.Same(t, target, got.(*node))
}

func TestEphemeronKeyCollected(t *testing.T) {
	h, roots := newTestHeap()

	owner := alloc(h) // stands in for the weak map
	roots.nodes = append(roots.nodes, owner)

	key := alloc(h)
	value := alloc(h)
	e := h.NewEphemeron(owner, key, value)

	// The key is reachable only through the ephemeron: both key and value
	// must be collected.
	h.Collect()
	assert.False(t, e.Alive(), "entry with unreachable key must die")
	assert.Equal(t, 1, h.LiveCount())
}

func TestEphemeronKeyReachable(t *testing.T) {
	h, roots := newTestHeap()

	owner := alloc(h)
	key := alloc(h)
	value := alloc(h)
	roots.nodes = append(roots.nodes, owner, key)
	e := h.NewEphemeron(owner, key, value)

	h.Collect()
	assert.True(t, e.Alive())
	assert.Equal(t, 3, h.LiveCount(), "key and value must survive while key is strongly reachable")
}

func TestEphemeronValueDoesNotRetainKey(t *testing.T) {
	h, roots := newTestHeap()

	owner := alloc(h)
	roots.nodes = append(roots.nodes, owner)

	key := alloc(h)
	value := alloc(h)
	// A cycle through the ephemeron's value must not keep the key alive.
	value.children = append(value.children, key)
	e := h.NewEphemeron(owner, key, value)

	h.Collect()
	assert.False(t, e.Alive(), "key reachable only through the ephemeron value must still die")
}

func TestFinalizerRuns(t *testing.T) {
	h, roots := newTestHeap()
	root := alloc(h)
	roots.nodes = append(roots.nodes, root)

	finalized := false
	f := &finalNode{}
	f.finalized = &finalized
	h.Alloc(f, 64)

	h.Collect()
	assert.True(t, finalized, "finalizer must run before sweep")
	assert.Equal(t, 1, h.LiveCount())
}

func TestFinalizerResurrection(t *testing.T) {
	h, roots := newTestHeap()
	root := alloc(h)
	roots.nodes = append(roots.nodes, root)

	finalized := false
	f := &finalNode{resurrectInto: root}
	f.finalized = &finalized
	h.Alloc(f, 64)

	h.Collect()
	assert.True(t, finalized)
	assert.Equal(t, 2, h.LiveCount(), "resurrected object must survive the sweep")
}

func TestThresholdGrows(t *testing.T) {
	h := NewHeap(128)
	roots := &rootSet{}
	h.AddRoots(roots)

	for i := 0; i < 16; i++ {
		roots.nodes = append(roots.nodes, Managed(alloc(h)))
	}
	require.True(t, h.ShouldCollect())
	h.Collect()
	assert.False(t, h.ShouldCollect(), "threshold must grow past live size")
	assert.Equal(t, 16, h.LiveCount())
}
