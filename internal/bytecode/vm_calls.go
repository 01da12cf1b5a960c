package bytecode

import "github.com/cwbudde/go-ecma/internal/runtime"

// prepareFrame builds the activation for one scripted call: registers,
// parameter copying, environment creation, and the sloppy-mode this
// coercion.
func (vm *VM) prepareFrame(fn *runtime.Object, this runtime.Value, args []runtime.Value, newTarget runtime.Value) (*frame, error) {
	r := vm.realm
	if len(vm.active) >= vm.frameLimit {
		return nil, r.NewRangeError("stack overflow")
	}
	fd := fn.FunctionData()
	cb, ok := fd.Code.(*CodeBlock)
	if !ok {
		return nil, r.NewTypeError("function has no compiled code")
	}

	regs := make([]runtime.Value, cb.RegCount)
	for i := range regs {
		regs[i] = runtime.Undefined()
	}
	for i := 0; i < cb.NumParams && i < len(args); i++ {
		regs[i] = args[i]
	}

	f := &frame{
		block:     cb,
		regs:      regs,
		fnObj:     fn,
		newTarget: newTarget,
		args:      args,
	}

	if cb.IsArrow() {
		if cb.ScopeDesc != nil {
			f.env = r.NewDeclarativeEnv(cb.ScopeDesc, fd.Env)
			f.envDepth = 0
		} else {
			f.env = fd.Env
		}
		f.this = runtime.Undefined()
		vm.initSelfBinding(cb, f, fn)
		return f, nil
	}

	// Ordinary functions bind this: sloppy mode coerces nullish to the
	// global object and primitives to wrappers.
	boundThis := this
	if !cb.IsStrict() {
		if boundThis.IsNullish() {
			boundThis = runtime.ObjectValue(r.Global)
		} else if !boundThis.IsObject() {
			wrapped, err := runtime.ToObject(r, boundThis)
			if err != nil {
				return nil, err
			}
			boundThis = runtime.ObjectValue(wrapped)
		}
	}
	f.this = boundThis
	f.env = r.NewFunctionEnv(cb.ScopeDesc, fd.Env, boundThis, newTarget, fn)
	vm.initSelfBinding(cb, f, fn)
	return f, nil
}

// initSelfBinding seeds the self-reference binding of named function
// expressions.
func (vm *VM) initSelfBinding(cb *CodeBlock, f *frame, fn *runtime.Object) {
	if cb.SelfSlot >= 0 && f.env != nil {
		f.env.SetSlot(cb.SelfSlot, runtime.ObjectValue(fn))
	}
	if cb.SelfReg >= 0 && cb.SelfReg < len(f.regs) {
		f.regs[cb.SelfReg] = runtime.ObjectValue(fn)
	}
}

// performCall implements OpCall: scripted plain functions push a frame on
// the interpreter stack; everything else (natives, bound functions,
// generators, async) routes through the realm's call path.
func (vm *VM) performCall(r *runtime.Realm, f *frame, frames *[]*frame, dst int, callee, this runtime.Value, args []runtime.Value) (runtime.Completion, error) {
	normal := runtime.NormalCompletion(runtime.Undefined())
	if err := r.CheckInterrupt(); err != nil {
		return normal, err
	}
	r.MaybeCollect()

	if !callee.IsCallable() {
		return normal, r.NewTypeError("%s is not a function", callee.Inspect())
	}
	fn := callee.Obj()
	fd := fn.FunctionData()

	if fd.Native == nil && fd.Bound == nil && fd.Code != nil {
		switch fd.Kind {
		case runtime.FuncNormal, runtime.FuncArrow:
			newFrame, err := vm.prepareFrame(fn, this, args, runtime.Undefined())
			if err != nil {
				return normal, err
			}
			newFrame.retReg = dst
			*frames = append(*frames, newFrame)
			vm.active = append(vm.active, newFrame)
			return normal, nil
		}
	}

	v, err := r.Call(callee, this, args)
	if err != nil {
		return normal, err
	}
	f.regs[dst] = v
	return normal, nil
}

// callCompiled is the realm hook running a compiled function to
// completion. Generators return their generator object; async functions
// return a promise driven by the async step machinery.
func (vm *VM) callCompiled(fn *runtime.Object, this runtime.Value, args []runtime.Value, newTarget runtime.Value) (runtime.Value, error) {
	fd := fn.FunctionData()
	switch fd.Kind {
	case runtime.FuncGenerator:
		return vm.newGeneratorObject(fn, this, args)
	case runtime.FuncAsync:
		return vm.startAsyncFunction(fn, this, args)
	case runtime.FuncAsyncGenerator:
		return runtime.Undefined(), vm.realm.NewTypeError("async generators are not implemented")
	case runtime.FuncClassConstructor:
		if newTarget.IsUndefined() {
			return runtime.Undefined(), vm.realm.NewTypeError("class constructor %s cannot be invoked without 'new'", fd.Name)
		}
	}

	f, err := vm.prepareFrame(fn, this, args, newTarget)
	if err != nil {
		return runtime.Undefined(), err
	}
	res, err := vm.execute(f)
	if err != nil {
		return runtime.Undefined(), err
	}
	return res.value, nil
}

// RunProgram executes compiled global or module code against the realm's
// global environment and returns the completion value.
func (vm *VM) RunProgram(cb *CodeBlock) (runtime.Value, error) {
	r := vm.realm
	env := r.GlobalEnv
	if cb.IsModule() {
		env = r.NewModuleEnv(r.GlobalEnv)
	}
	if err := vm.instantiateGlobals(cb, env); err != nil {
		return runtime.Undefined(), err
	}

	regs := make([]runtime.Value, cb.RegCount)
	for i := range regs {
		regs[i] = runtime.Undefined()
	}
	f := &frame{
		block: cb,
		regs:  regs,
		env:   env,
		this:  runtime.ObjectValue(r.Global),
	}
	res, err := vm.execute(f)
	if err != nil {
		return runtime.Undefined(), err
	}
	return res.value, nil
}

// RunModuleCode is RunProgram against a caller-provided module
// environment, used by the module linker.
func (vm *VM) RunModuleCode(cb *CodeBlock, env *runtime.Environment) (runtime.Value, error) {
	if err := vm.instantiateGlobals(cb, env); err != nil {
		return runtime.Undefined(), err
	}
	regs := make([]runtime.Value, cb.RegCount)
	for i := range regs {
		regs[i] = runtime.Undefined()
	}
	f := &frame{
		block: cb,
		regs:  regs,
		env:   env,
		this:  runtime.Undefined(),
	}
	res, err := vm.execute(f)
	if err != nil {
		return runtime.Undefined(), err
	}
	return res.value, nil
}

// instantiateGlobals performs the top-level declaration instantiation of
// global and module code: lexical bindings in the declarative record
// (uninitialized), vars and function declarations on the global object or
// module record.
func (vm *VM) instantiateGlobals(cb *CodeBlock, env *runtime.Environment) error {
	r := vm.realm
	for _, d := range cb.GlobalDecls {
		if d.Lexical {
			if !env.HasNamed(d.Name) {
				env.DeclareNamed(d.Name, d.Mutable, false)
			}
			continue
		}
		switch env.Kind() {
		case runtime.EnvGlobal:
			key := runtime.StringKey(d.Name)
			has, err := runtime.HasProperty(r, r.Global, key)
			if err != nil {
				return err
			}
			if !has {
				if _, err := runtime.DefineDataProperty(r, r.Global, key, runtime.Undefined(), runtime.AttrWritable|runtime.AttrEnumerable); err != nil {
					return err
				}
			}
		default:
			if !env.HasNamed(d.Name) {
				env.DeclareNamed(d.Name, true, true)
			}
		}
	}
	// Module code additionally pre-declares the default export slot.
	if cb.IsModule() && !env.HasNamed("*default*") {
		env.DeclareNamed("*default*", true, true)
	}
	return nil
}
