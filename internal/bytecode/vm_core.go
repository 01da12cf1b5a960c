package bytecode

import (
	"encoding/binary"

	"github.com/cwbudde/go-ecma/internal/errors"
	"github.com/cwbudde/go-ecma/internal/gc"
	"github.com/cwbudde/go-ecma/internal/runtime"
)

// Default VM configuration.
const (
	defaultFrameLimit = 1000
)

// VM interprets CodeBlocks against a realm. One VM serves one realm (and
// thus one thread); it installs itself as the realm's compiled-call hook.
type VM struct {
	realm      *runtime.Realm
	frameLimit int

	// active tracks every live frame (including suspended generator
	// frames reachable from objects) for GC rooting of registers.
	active []*frame

	// OnImportCall resolves dynamic import(); installed by the embedding
	// layer. It returns a promise value.
	OnImportCall func(referrer *CodeBlock, specifier runtime.Value) (runtime.Value, error)

	// OnImportMeta supplies import.meta objects per module code block.
	OnImportMeta func(referrer *CodeBlock) runtime.Value
}

// NewVM creates a VM bound to realm and installs the realm hooks.
func NewVM(realm *runtime.Realm, frameLimit int) *VM {
	if frameLimit <= 0 {
		frameLimit = defaultFrameLimit
	}
	vm := &VM{realm: realm, frameLimit: frameLimit}
	realm.CallCompiled = vm.callCompiled
	realm.ResumeGenerator = vm.resumeGenerator
	realm.Heap.AddRoots(gc.RootFunc(vm.markRoots))
	return vm
}

// Realm returns the bound realm.
func (vm *VM) Realm() *runtime.Realm { return vm.realm }

func (vm *VM) markRoots(mk *gc.Marker) {
	for _, f := range vm.active {
		f.trace(mk)
	}
}

// frame is one activation: code block, program counter, register file,
// environment pointer, this binding, and the suspension bookkeeping for
// generators and async functions.
type frame struct {
	block *CodeBlock
	pc    int
	regs  []runtime.Value

	env      *runtime.Environment
	envDepth int

	this      runtime.Value
	fnObj     *runtime.Object
	newTarget runtime.Value
	args      []runtime.Value

	// retReg is the caller-frame register receiving the return value.
	retReg int

	// generator marks frames that may suspend on yield; async marks
	// await-capable frames.
	generator bool
	async     bool

	// resumeReg receives the value delivered by the driver on resume.
	resumeReg int

	// injected carries a throw or return delivered with the resume.
	injected *injection
}

type injection struct {
	mode  runtime.GeneratorResumeMode
	value runtime.Value
}

func (f *frame) trace(mk *gc.Marker) {
	for _, v := range f.regs {
		runtime.MarkValue(mk, v)
	}
	mk.Mark(f.env)
	runtime.MarkValue(mk, f.this)
	mk.Mark(f.fnObj)
	runtime.MarkValue(mk, f.newTarget)
	for _, v := range f.args {
		runtime.MarkValue(mk, v)
	}
}

// resultKind describes how execute finished.
type resultKind int

const (
	resDone resultKind = iota
	resYield
	resAwait
)

type executeResult struct {
	kind  resultKind
	value runtime.Value
}

// fetch decodes the instruction at f.pc, honoring width prefixes, and
// returns the opcode with its operands. opStart is the offset used for
// handler lookup and source maps.
func (f *frame) fetch() (op OpCode, operands [4]int, opStart int) {
	code := f.block.Code
	opStart = f.pc
	op = OpCode(code[f.pc])
	f.pc++
	width := 1
	switch op {
	case OpWide:
		width = 2
		op = OpCode(code[f.pc])
		f.pc++
	case OpExtraWide:
		width = 4
		op = OpCode(code[f.pc])
		f.pc++
	}
	n := op.OperandCount()
	for i := 0; i < n; i++ {
		switch width {
		case 1:
			operands[i] = int(code[f.pc])
		case 2:
			operands[i] = int(binary.LittleEndian.Uint16(code[f.pc:]))
		default:
			operands[i] = int(int32(binary.LittleEndian.Uint32(code[f.pc:])))
		}
		f.pc += width
	}
	return op, operands, opStart
}

// captureStack builds a stack trace from the active frame list, innermost
// first.
func (vm *VM) captureStack(frames []*frame, pc int) errors.StackTrace {
	var st errors.StackTrace
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		at := f.pc
		if i == len(frames)-1 {
			at = pc
		}
		name := f.block.Name
		if name == "" && f.block.Flags&FlagGlobalCode != 0 {
			name = "<global>"
		}
		st = append(st, errors.StackFrame{
			FunctionName: name,
			FileName:     f.block.File,
			Pos:          f.block.PositionAt(uint32(at)),
		})
	}
	return st
}

// execute drives the dispatch loop over an explicit frame stack, starting
// from initial. Scripted calls push frames here instead of growing the Go
// stack; only generator resumes and native calls re-enter.
func (vm *VM) execute(initial *frame) (executeResult, error) {
	frames := []*frame{initial}
	vm.active = append(vm.active, initial)
	baseActive := len(vm.active) - 1
	defer func() { vm.active = vm.active[:baseActive] }()

	r := vm.realm

	// throwInto unwinds with err from the current frame; it returns the
	// error when no handler exists in this execute invocation.
	throwInto := func(err error, opStart int) error {
		thrown, ok := err.(*runtime.Thrown)
		if !ok {
			return err
		}
		if len(thrown.Stack) == 0 {
			thrown.Stack = vm.captureStack(frames, opStart)
			vm.attachErrorStack(thrown)
		}
		at := opStart
		for len(frames) > 0 {
			f := frames[len(frames)-1]
			if h, found := f.block.HandlerFor(uint32(at)); found {
				for f.envDepth > int(h.EnvDepth) {
					f.env = f.env.Outer()
					f.envDepth--
				}
				f.regs[h.Reg] = thrown.Value
				f.pc = int(h.Handler)
				return nil
			}
			frames = frames[:len(frames)-1]
			vm.active = vm.active[:len(vm.active)-1]
			if len(frames) > 0 {
				at = frames[len(frames)-1].pc
			}
		}
		return thrown
	}

	for {
		if len(frames) == 0 {
			return executeResult{kind: resDone, value: runtime.Undefined()}, nil
		}
		f := frames[len(frames)-1]

		if f.injected != nil {
			inj := f.injected
			f.injected = nil
			switch inj.mode {
			case runtime.ResumeThrow:
				if err := throwInto(runtime.Throw(inj.value), f.pc); err != nil {
					return executeResult{}, err
				}
				continue
			case runtime.ResumeReturn:
				// Pending finalizers are skipped on injected returns.
				return executeResult{kind: resDone, value: inj.value}, nil
			default:
				f.regs[f.resumeReg] = inj.value
			}
		}

		op, operands, opStart := f.fetch()
		complete, err := vm.dispatch(r, f, &frames, op, operands, opStart)
		if err != nil {
			if uErr := throwInto(err, opStart); uErr != nil {
				return executeResult{}, uErr
			}
			continue
		}
		switch complete.Kind {
		case runtime.CompletionNormal:
			// keep going
		case runtime.CompletionReturn:
			popped := frames[len(frames)-1]
			frames = frames[:len(frames)-1]
			vm.active = vm.active[:len(vm.active)-1]
			if len(frames) == 0 {
				return executeResult{kind: resDone, value: complete.Value}, nil
			}
			caller := frames[len(frames)-1]
			caller.regs[popped.retReg] = complete.Value
		case runtime.CompletionYield:
			if len(frames) != 1 || !f.generator {
				return executeResult{}, r.NewTypeError("yield outside of a generator frame")
			}
			return executeResult{kind: resYield, value: complete.Value}, nil
		case runtime.CompletionAwait:
			if len(frames) != 1 || !f.async {
				return executeResult{}, r.NewTypeError("await outside of an async frame")
			}
			return executeResult{kind: resAwait, value: complete.Value}, nil
		}
	}
}

// attachErrorStack records the captured trace on Error objects so the
// stack property reflects the throw site, not the catch site.
func (vm *VM) attachErrorStack(t *runtime.Thrown) {
	if !t.Value.IsObject() {
		return
	}
	o := t.Value.Obj()
	if ed, ok := o.Data().(*runtime.ErrorData); ok && ed.Stack == nil {
		ed.Stack = t.Stack
		_, _ = runtime.DefineDataProperty(vm.realm, o, runtime.StringKey("stack"),
			runtime.StringValue(vm.realm.Intern(t.Stack.String())), runtime.AttrWritable|runtime.AttrConfigurable)
	}
}
