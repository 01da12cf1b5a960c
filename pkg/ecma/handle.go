package ecma

import "github.com/cwbudde/go-ecma/internal/runtime"

// Handle is a root reference held by native code: while unreleased, the
// referenced object survives collection regardless of in-heap
// reachability. Handles are tied to their Context and must be released on
// the context's thread.
type Handle struct {
	ctx      *Context
	obj      *runtime.Object
	released bool
}

// NewHandle pins an object value as a GC root.
func (ctx *Context) NewHandle(v Value) *Handle {
	h := &Handle{ctx: ctx}
	if v.IsObject() {
		h.obj = v.Obj()
		ctx.realm.Heap.Pin(h.obj)
	}
	return h
}

// Value returns the held value.
func (h *Handle) Value() Value {
	if h.obj == nil || h.released {
		return runtime.Undefined()
	}
	return runtime.ObjectValue(h.obj)
}

// Release drops the root; using the handle afterwards yields undefined.
// Releasing twice is a no-op.
func (h *Handle) Release() {
	if h.released || h.obj == nil {
		h.released = true
		return
	}
	h.released = true
	h.ctx.realm.Heap.Unpin(h.obj)
}
