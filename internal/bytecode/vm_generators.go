package bytecode

import (
	"github.com/cwbudde/go-ecma/internal/gc"
	"github.com/cwbudde/go-ecma/internal/runtime"
)

// generatorState is the possible lifecycle of a generator object.
type generatorState uint8

const (
	genSuspendedStart generatorState = iota
	genSuspendedYield
	genRunning
	genDone
)

// GeneratorData is the host payload of generator objects: the suspended
// frame (pc, registers, environment pointer) plus the lifecycle state.
type GeneratorData struct {
	frame *frame
	state generatorState
}

// Trace implements runtime.HostData: a suspended frame's registers stay
// alive through the generator object.
func (g *GeneratorData) Trace(mk *gc.Marker) {
	if g.frame != nil {
		g.frame.trace(mk)
	}
}

// newGeneratorObject creates the generator for a generator-function call:
// the frame is prepared but not started.
func (vm *VM) newGeneratorObject(fn *runtime.Object, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
	r := vm.realm
	f, err := vm.prepareFrame(fn, this, args, runtime.Undefined())
	if err != nil {
		return runtime.Undefined(), err
	}
	f.generator = true

	proto := r.Intrinsics.GeneratorProto
	protoVal, err := runtime.Get(r, fn, runtime.StringKey("prototype"))
	if err == nil && protoVal.IsObject() {
		proto = protoVal.Obj()
	}
	gen := r.NewObject(proto)
	gen.SetClass("Generator")
	gen.SetData(&GeneratorData{frame: f, state: genSuspendedStart})
	return runtime.ObjectValue(gen), nil
}

// resumeGenerator is the realm hook behind the generator prototype's
// next/throw/return methods: resume the saved frame at its pc with the
// provided value (or injected completion).
func (vm *VM) resumeGenerator(gen *runtime.Object, mode runtime.GeneratorResumeMode, v runtime.Value) (runtime.Value, error) {
	r := vm.realm
	gd, _ := gen.Data().(*GeneratorData)
	if gd == nil {
		return runtime.Undefined(), r.NewTypeError("receiver is not a generator")
	}

	switch gd.state {
	case genRunning:
		return runtime.Undefined(), r.NewTypeError("generator is already running")
	case genDone:
		switch mode {
		case runtime.ResumeThrow:
			return runtime.Undefined(), runtime.Throw(v)
		case runtime.ResumeReturn:
			return runtime.ObjectValue(runtime.CreateIterResult(r, v, true)), nil
		default:
			return runtime.ObjectValue(runtime.CreateIterResult(r, runtime.Undefined(), true)), nil
		}
	case genSuspendedStart:
		if mode == runtime.ResumeThrow {
			gd.state = genDone
			return runtime.Undefined(), runtime.Throw(v)
		}
		if mode == runtime.ResumeReturn {
			gd.state = genDone
			return runtime.ObjectValue(runtime.CreateIterResult(r, v, true)), nil
		}
	default: // suspended at a yield: deliver the resume value or injection
		if mode == runtime.ResumeNext {
			gd.frame.injected = &injection{mode: runtime.ResumeNext, value: v}
		} else {
			gd.frame.injected = &injection{mode: mode, value: v}
		}
	}

	gd.state = genRunning
	res, err := vm.execute(gd.frame)
	if err != nil {
		gd.state = genDone
		return runtime.Undefined(), err
	}
	switch res.kind {
	case resYield:
		gd.state = genSuspendedYield
		return runtime.ObjectValue(runtime.CreateIterResult(r, res.value, false)), nil
	default:
		gd.state = genDone
		return runtime.ObjectValue(runtime.CreateIterResult(r, res.value, true)), nil
	}
}

// startAsyncFunction begins an async function call: the body runs to its
// first await (or completion) and the returned promise settles through the
// async step machinery.
func (vm *VM) startAsyncFunction(fn *runtime.Object, this runtime.Value, args []runtime.Value) (runtime.Value, error) {
	r := vm.realm
	cap := r.NewPromiseCapability()
	f, err := vm.prepareFrame(fn, this, args, runtime.Undefined())
	if err != nil {
		return runtime.Undefined(), err
	}
	f.async = true
	vm.stepAsync(f, cap)
	return runtime.ObjectValue(cap.Promise), nil
}

// stepAsync drives one segment of an async function: run until await,
// return, or throw. Awaits attach continuations that re-enter here from
// the job queue.
func (vm *VM) stepAsync(f *frame, cap *runtime.PromiseCapability) {
	r := vm.realm
	res, err := vm.execute(f)
	if err != nil {
		_, _ = r.Call(runtime.ObjectValue(cap.Reject), runtime.Undefined(), []runtime.Value{runtime.ThrownValue(r, err)})
		return
	}
	switch res.kind {
	case resAwait:
		awaited := r.PromiseResolveValue(res.value)
		onFulfilled := r.NewNativeFunction("", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
			f.injected = &injection{mode: runtime.ResumeNext, value: call.Arg(0)}
			vm.stepAsync(f, cap)
			return runtime.Undefined(), nil
		})
		onRejected := r.NewNativeFunction("", 1, func(call *runtime.NativeCall) (runtime.Value, error) {
			f.injected = &injection{mode: runtime.ResumeThrow, value: call.Arg(0)}
			vm.stepAsync(f, cap)
			return runtime.Undefined(), nil
		})
		r.PerformPromiseThen(awaited, runtime.ObjectValue(onFulfilled), runtime.ObjectValue(onRejected), nil)
	default:
		_, _ = r.Call(runtime.ObjectValue(cap.Resolve), runtime.Undefined(), []runtime.Value{res.value})
	}
}
