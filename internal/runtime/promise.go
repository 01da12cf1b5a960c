package runtime

import "github.com/cwbudde/go-ecma/internal/gc"

// PromiseState is the promise's internal state machine.
type PromiseState uint8

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

type reactionType uint8

const (
	reactionFulfill reactionType = iota
	reactionReject
)

// reaction is one queued then-handler with its result capability.
type reaction struct {
	typ        reactionType
	handler    Value // undefined for pass-through
	capability *PromiseCapability
}

// PromiseData is the host payload of promise objects.
type PromiseData struct {
	State            PromiseState
	Result           Value
	FulfillReactions []*reaction
	RejectReactions  []*reaction
	Handled          bool
}

func (p *PromiseData) Trace(mk *gc.Marker) {
	p.Result.mark(mk)
	for _, rs := range [][]*reaction{p.FulfillReactions, p.RejectReactions} {
		for _, re := range rs {
			re.handler.mark(mk)
			if re.capability != nil {
				mk.Mark(re.capability.Promise)
				mk.Mark(re.capability.Resolve)
				mk.Mark(re.capability.Reject)
			}
		}
	}
}

// PromiseCapability bundles a promise with its resolving functions.
type PromiseCapability struct {
	Promise *Object
	Resolve *Object
	Reject  *Object
}

// NewPromiseObject allocates a pending promise.
func (r *Realm) NewPromiseObject() *Object {
	o := r.NewObject(r.Intrinsics.PromiseProto)
	o.class = "Promise"
	o.data = &PromiseData{State: PromisePending, Result: Undefined()}
	return o
}

// PromiseDataOf extracts the promise payload, or nil.
func PromiseDataOf(o *Object) *PromiseData {
	d, _ := o.data.(*PromiseData)
	return d
}

// NewPromiseCapability creates a promise with exposed resolving functions.
func (r *Realm) NewPromiseCapability() *PromiseCapability {
	promise := r.NewPromiseObject()
	resolve, reject := r.CreateResolvingFunctions(promise)
	return &PromiseCapability{Promise: promise, Resolve: resolve, Reject: reject}
}

// CreateResolvingFunctions builds the resolve/reject pair sharing an
// already-resolved guard.
func (r *Realm) CreateResolvingFunctions(promise *Object) (*Object, *Object) {
	alreadyResolved := false

	resolve := r.NewNativeFunction("resolve", 1, func(call *NativeCall) (Value, error) {
		if alreadyResolved {
			return Undefined(), nil
		}
		alreadyResolved = true
		r.resolvePromise(promise, call.Arg(0))
		return Undefined(), nil
	})
	reject := r.NewNativeFunction("reject", 1, func(call *NativeCall) (Value, error) {
		if alreadyResolved {
			return Undefined(), nil
		}
		alreadyResolved = true
		r.RejectPromise(promise, call.Arg(0))
		return Undefined(), nil
	})
	return resolve, reject
}

// resolvePromise fulfills with a plain value or chains on a thenable.
func (r *Realm) resolvePromise(promise *Object, resolution Value) {
	if resolution.IsObject() && resolution.Obj() == promise {
		r.RejectPromise(promise, ObjectValue(r.NewError("TypeError", "chaining cycle detected in promise resolution")))
		return
	}
	if !resolution.IsObject() {
		r.FulfillPromise(promise, resolution)
		return
	}
	then, err := Get(r, resolution.Obj(), StringKey("then"))
	if err != nil {
		r.RejectPromise(promise, thrownValue(r, err))
		return
	}
	if !then.IsCallable() {
		r.FulfillPromise(promise, resolution)
		return
	}
	// PromiseResolveThenableJob.
	r.EnqueueJob(&Job{
		Refs: []Value{ObjectValue(promise), resolution, then},
		Fn: func() error {
			resolve, reject := r.CreateResolvingFunctions(promise)
			_, err := r.Call(then, resolution, []Value{ObjectValue(resolve), ObjectValue(reject)})
			if err != nil {
				if t, ok := err.(*Thrown); ok {
					_, callErr := r.Call(ObjectValue(reject), Undefined(), []Value{t.Value})
					return callErr
				}
				return err
			}
			return nil
		},
	})
}

// FulfillPromise settles the promise as fulfilled and schedules reactions.
func (r *Realm) FulfillPromise(promise *Object, value Value) {
	d := PromiseDataOf(promise)
	if d == nil || d.State != PromisePending {
		return
	}
	reactions := d.FulfillReactions
	d.State = PromiseFulfilled
	d.Result = value
	d.FulfillReactions = nil
	d.RejectReactions = nil
	for _, re := range reactions {
		r.enqueueReactionJob(re, value)
	}
}

// RejectPromise settles the promise as rejected; unhandled rejections are
// reported to the host callback after the queue drains.
func (r *Realm) RejectPromise(promise *Object, reason Value) {
	d := PromiseDataOf(promise)
	if d == nil || d.State != PromisePending {
		return
	}
	reactions := d.RejectReactions
	d.State = PromiseRejected
	d.Result = reason
	d.FulfillReactions = nil
	d.RejectReactions = nil
	if !d.Handled {
		r.pendingRejections = append(r.pendingRejections, promise)
	}
	for _, re := range reactions {
		r.enqueueReactionJob(re, reason)
	}
}

// PerformPromiseThen attaches handlers, returning the derived promise when
// a capability is supplied.
func (r *Realm) PerformPromiseThen(promise *Object, onFulfilled, onRejected Value, cap *PromiseCapability) Value {
	d := PromiseDataOf(promise)
	if d == nil {
		return Undefined()
	}
	fulfill := &reaction{typ: reactionFulfill, handler: onFulfilled, capability: cap}
	reject := &reaction{typ: reactionReject, handler: onRejected, capability: cap}

	switch d.State {
	case PromisePending:
		d.FulfillReactions = append(d.FulfillReactions, fulfill)
		d.RejectReactions = append(d.RejectReactions, reject)
	case PromiseFulfilled:
		r.enqueueReactionJob(fulfill, d.Result)
	case PromiseRejected:
		r.enqueueReactionJob(reject, d.Result)
	}
	d.Handled = true
	if cap == nil {
		return Undefined()
	}
	return ObjectValue(cap.Promise)
}

// enqueueReactionJob schedules one PromiseReactionJob.
func (r *Realm) enqueueReactionJob(re *reaction, argument Value) {
	r.EnqueueJob(&Job{
		Refs: []Value{re.handler, argument},
		Fn: func() error {
			var result Value
			var err error
			if re.handler.IsCallable() {
				result, err = r.Call(re.handler, Undefined(), []Value{argument})
			} else if re.typ == reactionFulfill {
				result = argument
			} else {
				err = Throw(argument)
			}

			if re.capability == nil {
				if err != nil {
					if _, ok := err.(*Thrown); ok {
						return nil // no chained promise to carry it
					}
					return err
				}
				return nil
			}
			if err != nil {
				if t, ok := err.(*Thrown); ok {
					_, callErr := r.Call(ObjectValue(re.capability.Reject), Undefined(), []Value{t.Value})
					return callErr
				}
				return err
			}
			_, callErr := r.Call(ObjectValue(re.capability.Resolve), Undefined(), []Value{result})
			return callErr
		},
	})
}

// PromiseResolveValue returns v if it is already a promise of this realm,
// otherwise a promise fulfilled with v.
func (r *Realm) PromiseResolveValue(v Value) *Object {
	if v.IsObject() {
		if d := PromiseDataOf(v.Obj()); d != nil {
			return v.Obj()
		}
	}
	cap := r.NewPromiseCapability()
	_, _ = r.Call(ObjectValue(cap.Resolve), Undefined(), []Value{v})
	return cap.Promise
}

// FlushUnhandledRejections invokes the host callback for promises that
// were rejected and never picked up a handler. Called after the job queue
// drains.
func (r *Realm) FlushUnhandledRejections() {
	pending := r.pendingRejections
	r.pendingRejections = nil
	for _, p := range pending {
		d := PromiseDataOf(p)
		if d == nil || d.Handled || d.State != PromiseRejected {
			continue
		}
		if r.OnUnhandledRejection != nil {
			r.OnUnhandledRejection(d.Result)
		} else if r.Logger != nil {
			r.Logger.Log("error", 0, "Uncaught (in promise) "+d.Result.Inspect())
		}
	}
}

// thrownValue extracts the language value of an error, converting engine
// errors into generic Error objects.
func thrownValue(r *Realm, err error) Value {
	if t, ok := err.(*Thrown); ok {
		return t.Value
	}
	return ObjectValue(r.NewError("Error", "%s", err.Error()))
}

// ThrownValue is the exported form used by the VM and builtins.
func ThrownValue(r *Realm, err error) Value { return thrownValue(r, err) }

// asyncFromSyncData wraps a sync iterator record for async iteration.
type asyncFromSyncData struct {
	sync *IteratorRecord
}

func (a *asyncFromSyncData) Trace(mk *gc.Marker) {
	a.sync.Iterator.mark(mk)
	a.sync.Next.mark(mk)
}

// NewAsyncFromSyncIterator wraps a sync iterator: each next() returns a
// promise resolving the awaited result object.
func (r *Realm) NewAsyncFromSyncIterator(sync *IteratorRecord) *Object {
	o := r.NewObject(r.Intrinsics.IteratorProto)
	o.class = "AsyncFromSyncIterator"
	o.data = &asyncFromSyncData{sync: sync}

	next := r.NewNativeFunction("next", 1, func(call *NativeCall) (Value, error) {
		cap := r.NewPromiseCapability()
		var arg *Value
		if len(call.Args) > 0 {
			arg = &call.Args[0]
		}
		result, err := IteratorNext(r, sync, arg)
		if err != nil {
			_, _ = r.Call(ObjectValue(cap.Reject), Undefined(), []Value{thrownValue(r, err)})
			return ObjectValue(cap.Promise), nil
		}
		done, err := IteratorComplete(r, result)
		if err == nil {
			var v Value
			v, err = IteratorValue(r, result)
			if err == nil {
				// Await the inner value before surfacing the result pair.
				inner := r.PromiseResolveValue(v)
				onOK := r.NewNativeFunction("", 1, func(c2 *NativeCall) (Value, error) {
					return ObjectValue(CreateIterResult(r, c2.Arg(0), done)), nil
				})
				chained := r.PerformPromiseThen(inner, ObjectValue(onOK), Undefined(), r.NewPromiseCapability())
				_, _ = r.Call(ObjectValue(cap.Resolve), Undefined(), []Value{chained})
				return ObjectValue(cap.Promise), nil
			}
		}
		_, _ = r.Call(ObjectValue(cap.Reject), Undefined(), []Value{thrownValue(r, err)})
		return ObjectValue(cap.Promise), nil
	})
	_, _ = DefineDataProperty(r, o, StringKey("next"), ObjectValue(next), MethodAttrs)
	return o
}
