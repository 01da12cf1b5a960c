package runtime

import (
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/go-ecma/internal/errors"
	"github.com/cwbudde/go-ecma/internal/gc"
)

// Intrinsics is the realm's table of engine-provided objects. The builtins
// package populates it during realm initialization.
type Intrinsics struct {
	ObjectProto   *Object
	FunctionProto *Object
	ArrayProto    *Object
	StringProto   *Object
	NumberProto   *Object
	BooleanProto  *Object
	SymbolProto   *Object
	BigIntProto   *Object
	RegExpProto   *Object

	ErrorProto          *Object
	TypeErrorProto      *Object
	RangeErrorProto     *Object
	ReferenceErrorProto *Object
	SyntaxErrorProto    *Object
	URIErrorProto       *Object
	EvalErrorProto      *Object

	IteratorProto       *Object
	ArrayIteratorProto  *Object
	StringIteratorProto *Object
	MapIteratorProto    *Object
	SetIteratorProto    *Object
	GeneratorProto      *Object
	AsyncGeneratorProto *Object

	PromiseProto *Object
	MapProto     *Object
	SetProto     *Object
	WeakMapProto *Object
	WeakSetProto *Object

	Object   *Object
	Function *Object
	Array    *Object
	Promise  *Object
	Error    *Object

	ErrorCtors map[errors.Kind]*Object
}

func (in *Intrinsics) trace(mk *gc.Marker) {
	for _, o := range []*Object{
		in.ObjectProto, in.FunctionProto, in.ArrayProto, in.StringProto,
		in.NumberProto, in.BooleanProto, in.SymbolProto, in.BigIntProto,
		in.RegExpProto, in.ErrorProto, in.TypeErrorProto, in.RangeErrorProto,
		in.ReferenceErrorProto, in.SyntaxErrorProto, in.URIErrorProto,
		in.EvalErrorProto, in.IteratorProto, in.ArrayIteratorProto,
		in.StringIteratorProto, in.MapIteratorProto, in.SetIteratorProto,
		in.GeneratorProto, in.AsyncGeneratorProto, in.PromiseProto,
		in.MapProto, in.SetProto, in.WeakMapProto, in.WeakSetProto,
		in.Object, in.Function, in.Array, in.Promise, in.Error,
	} {
		mk.Mark(o)
	}
	for _, o := range in.ErrorCtors {
		mk.Mark(o)
	}
}

// Job is one pending microtask: promise reactions and async continuations.
// Refs keeps captured values visible to the collector.
type Job struct {
	Fn   func() error
	Refs []Value
}

// ConsoleLogger receives console built-in output. The default
// implementation writes plain lines to an io.Writer; embedders inject
// their own.
type ConsoleLogger interface {
	Log(level string, depth int, msg string)
}

// Realm owns one global environment, its intrinsics, heap, interner, and
// job queue. Nothing is shared between realms except primitive values.
type Realm struct {
	Heap *gc.Heap

	Global    *Object
	GlobalEnv *Environment

	Intrinsics Intrinsics
	WellKnown  WellKnownSymbols

	rootShape *Shape

	atoms          map[string]*String
	symbolRegistry map[string]*Symbol

	jobs              []*Job
	pendingRejections []*Object

	interrupted atomic.Bool

	// CallCompiled is installed by the VM: it runs a compiled function
	// object. The indirection breaks the runtime -> bytecode dependency.
	CallCompiled func(fn *Object, this Value, args []Value, newTarget Value) (Value, error)

	// ResumeGenerator is installed by the VM: it resumes a suspended
	// generator object with next, throw, or return semantics.
	ResumeGenerator func(gen *Object, mode GeneratorResumeMode, v Value) (Value, error)

	// OnUnhandledRejection is the host callback for rejected promises with
	// no handlers; the default logs through the console logger.
	OnUnhandledRejection func(reason Value)

	// Logger receives console output.
	Logger ConsoleLogger
}

// NewRealm creates an empty realm with its own heap. The caller (the
// builtins package via the embedding API) must populate the intrinsics and
// global object before running code.
func NewRealm(heapThreshold int) *Realm {
	r := &Realm{
		Heap:           gc.NewHeap(heapThreshold),
		WellKnown:      newWellKnownSymbols(),
		rootShape:      NewRootShape(),
		atoms:          make(map[string]*String),
		symbolRegistry: make(map[string]*Symbol),
	}
	r.Heap.AddRoots(gc.RootFunc(r.markRoots))
	return r
}

func (r *Realm) markRoots(mk *gc.Marker) {
	mk.Mark(r.Global)
	mk.Mark(r.GlobalEnv)
	r.Intrinsics.trace(mk)
	for _, job := range r.jobs {
		for _, v := range job.Refs {
			v.mark(mk)
		}
	}
	for _, p := range r.pendingRejections {
		mk.Mark(p)
	}
}

// RootShape returns the realm's empty object shape.
func (r *Realm) RootShape() *Shape { return r.rootShape }

// Intern returns the canonical *String for text, so property keys and
// repeated literals share storage.
func (r *Realm) Intern(text string) *String {
	if s, ok := r.atoms[text]; ok {
		return s
	}
	s := NewString(text)
	r.atoms[text] = s
	return s
}

// RegisteredSymbol implements Symbol.for's registry.
func (r *Realm) RegisteredSymbol(key string) *Symbol {
	if s, ok := r.symbolRegistry[key]; ok {
		return s
	}
	s := NewSymbol(r.Intern(key))
	r.symbolRegistry[key] = s
	return s
}

// SymbolRegistryKey implements Symbol.keyFor.
func (r *Realm) SymbolRegistryKey(sym *Symbol) (string, bool) {
	for k, s := range r.symbolRegistry {
		if s == sym {
			return k, true
		}
	}
	return "", false
}

// EnqueueJob appends a job to the FIFO queue.
func (r *Realm) EnqueueJob(job *Job) {
	r.jobs = append(r.jobs, job)
}

// RunJobs drains the queue. Jobs run to completion in enqueue order; jobs
// they enqueue run in the same drain.
func (r *Realm) RunJobs() error {
	for len(r.jobs) > 0 {
		job := r.jobs[0]
		r.jobs = r.jobs[1:]
		if err := job.Fn(); err != nil {
			return err
		}
		r.MaybeCollect()
	}
	return nil
}

// PendingJobs reports the queue length.
func (r *Realm) PendingJobs() int { return len(r.jobs) }

// Interrupt sets the cancellation flag; safe to call from another thread.
func (r *Realm) Interrupt() { r.interrupted.Store(true) }

// ClearInterrupt resets the flag before a fresh evaluation.
func (r *Realm) ClearInterrupt() { r.interrupted.Store(false) }

// CheckInterrupt returns the interruption error if the flag is set. The VM
// calls it on every backward jump and call.
func (r *Realm) CheckInterrupt() error {
	if r.interrupted.Load() {
		r.interrupted.Store(false)
		return r.NewRangeError("execution interrupted")
	}
	return nil
}

// MaybeCollect runs a collection at a safe point if the heap asks for one.
func (r *Realm) MaybeCollect() {
	if r.Heap.ShouldCollect() {
		r.Heap.Collect()
	}
}

// GeneratorResumeMode selects how a suspended generator frame resumes.
type GeneratorResumeMode uint8

const (
	ResumeNext GeneratorResumeMode = iota
	ResumeThrow
	ResumeReturn
)

// Thrown is a language-level exception travelling as a Go error: the
// thrown value plus the stack captured at the throw site.
type Thrown struct {
	Value Value
	Stack errors.StackTrace
}

// Error implements the error interface.
func (t *Thrown) Error() string {
	return "uncaught " + t.Value.Inspect()
}

// Throw wraps a value as an exception.
func Throw(v Value) *Thrown { return &Thrown{Value: v} }

// NewError creates a language error object of the given kind. The builtins
// package installs the per-kind prototypes; before initialization a plain
// object stands in so early failures still carry information.
func (r *Realm) NewError(kind errors.Kind, format string, args ...any) *Object {
	msg := fmt.Sprintf(format, args...)
	proto := r.errorProto(kind)
	var o *Object
	if proto != nil {
		o = r.NewObject(proto)
	} else {
		o = r.NewObject(r.Intrinsics.ObjectProto)
	}
	o.class = "Error"
	o.data = &ErrorData{Kind: kind}
	_, _ = DefineDataProperty(r, o, StringKey("message"), StringValue(r.Intern(msg)), AttrWritable|AttrConfigurable)
	return o
}

func (r *Realm) errorProto(kind errors.Kind) *Object {
	switch kind {
	case errors.TypeError:
		return r.Intrinsics.TypeErrorProto
	case errors.RangeError:
		return r.Intrinsics.RangeErrorProto
	case errors.ReferenceError:
		return r.Intrinsics.ReferenceErrorProto
	case errors.SyntaxError:
		return r.Intrinsics.SyntaxErrorProto
	case errors.URIError:
		return r.Intrinsics.URIErrorProto
	case errors.EvalError:
		return r.Intrinsics.EvalErrorProto
	default:
		return r.Intrinsics.ErrorProto
	}
}

// ErrorData tags error objects with their kind and captured stack.
type ErrorData struct {
	Kind  errors.Kind
	Stack errors.StackTrace
}

// NewTypeError returns a thrown TypeError.
func (r *Realm) NewTypeError(format string, args ...any) error {
	return Throw(ObjectValue(r.NewError(errors.TypeError, format, args...)))
}

// NewRangeError returns a thrown RangeError.
func (r *Realm) NewRangeError(format string, args ...any) error {
	return Throw(ObjectValue(r.NewError(errors.RangeError, format, args...)))
}

// NewReferenceError returns a thrown ReferenceError.
func (r *Realm) NewReferenceError(format string, args ...any) error {
	return Throw(ObjectValue(r.NewError(errors.ReferenceError, format, args...)))
}

// NewSyntaxError returns a thrown SyntaxError (dynamic Function/eval parse
// failures).
func (r *Realm) NewSyntaxError(format string, args ...any) error {
	return Throw(ObjectValue(r.NewError(errors.SyntaxError, format, args...)))
}
