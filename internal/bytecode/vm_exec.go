package bytecode

import (
	"math/big"

	"github.com/cwbudde/go-ecma/internal/runtime"
)

// dispatch executes one instruction. It returns a completion record; a
// Throw travels as the error return so the caller's unwinder sees it.
func (vm *VM) dispatch(r *runtime.Realm, f *frame, frames *[]*frame, op OpCode, ops [4]int, opStart int) (runtime.Completion, error) {
	normal := runtime.NormalCompletion(runtime.Undefined())
	regs := f.regs

	switch op {
	case OpNop, OpDebugger:
		return normal, nil

	// ---- constants and moves ----

	case OpLoadUndefined:
		regs[ops[0]] = runtime.Undefined()
	case OpLoadNull:
		regs[ops[0]] = runtime.Null()
	case OpLoadTrue:
		regs[ops[0]] = runtime.True()
	case OpLoadFalse:
		regs[ops[0]] = runtime.False()
	case OpLoadZero:
		regs[ops[0]] = runtime.Number(0)
	case OpLoadOne:
		regs[ops[0]] = runtime.Number(1)
	case OpLoadEmpty:
		regs[ops[0]] = runtime.Empty()
	case OpLoadConst:
		regs[ops[0]] = f.block.Constants[ops[1]]
	case OpLoadThis:
		this, ok := f.env.This()
		if !ok {
			this = runtime.ObjectValue(r.Global)
		}
		regs[ops[0]] = this
	case OpMov:
		regs[ops[0]] = regs[ops[1]]

	// ---- arithmetic ----

	case OpAdd:
		a, b := regs[ops[1]], regs[ops[2]]
		if a.IsNumber() && b.IsNumber() {
			regs[ops[0]] = runtime.Number(a.Num() + b.Num())
			return normal, nil
		}
		v, err := runtime.Add(r, a, b)
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v

	case OpSub, OpMul, OpDiv, OpMod, OpPow, OpBitAnd, OpBitOr, OpBitXor, OpShl, OpShr, OpUShr:
		v, err := vm.numericOp(r, op, regs[ops[1]], regs[ops[2]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v

	case OpNeg:
		v, err := runtime.Negate(r, regs[ops[1]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v
	case OpPlus:
		n, err := runtime.ToNumber(r, regs[ops[1]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = runtime.Number(n)
	case OpBitNot:
		v, err := runtime.BitwiseNot(r, regs[ops[1]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v
	case OpNot:
		regs[ops[0]] = runtime.Boolean(!runtime.ToBoolean(regs[ops[1]]))
	case OpTypeof:
		regs[ops[0]] = runtime.StringValue(r.Intern(runtime.TypeOf(regs[ops[1]])))
	case OpTypeofName:
		v, err := runtime.GetNameOrUndefined(r, f.env, f.block.Names[ops[1]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = runtime.StringValue(r.Intern(runtime.TypeOf(v)))
	case OpToNumeric:
		v, err := runtime.ToNumeric(r, regs[ops[1]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v
	case OpToString:
		s, err := runtime.ToString(r, regs[ops[1]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = runtime.StringValue(s)
	case OpInc:
		src := regs[ops[1]]
		if src.IsBigInt() {
			regs[ops[0]] = runtime.BigIntValue(new(big.Int).Add(src.BigInt(), big.NewInt(1)))
		} else {
			regs[ops[0]] = runtime.Number(src.Num() + 1)
		}
	case OpDec:
		src := regs[ops[1]]
		if src.IsBigInt() {
			regs[ops[0]] = runtime.BigIntValue(new(big.Int).Sub(src.BigInt(), big.NewInt(1)))
		} else {
			regs[ops[0]] = runtime.Number(src.Num() - 1)
		}

	// ---- comparison ----

	case OpEq, OpNotEq:
		eq, err := runtime.Equals(r, regs[ops[1]], regs[ops[2]])
		if err != nil {
			return normal, err
		}
		if op == OpNotEq {
			eq = !eq
		}
		regs[ops[0]] = runtime.Boolean(eq)
	case OpStrictEq:
		regs[ops[0]] = runtime.Boolean(runtime.StrictEquals(regs[ops[1]], regs[ops[2]]))
	case OpStrictNotEq:
		regs[ops[0]] = runtime.Boolean(!runtime.StrictEquals(regs[ops[1]], regs[ops[2]]))
	case OpLess, OpLessEq, OpGreater, OpGreaterEq:
		v, err := vm.relational(r, op, regs[ops[1]], regs[ops[2]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v
	case OpInstanceOf:
		ok, err := runtime.InstanceOf(r, regs[ops[1]], regs[ops[2]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = runtime.Boolean(ok)
	case OpIn:
		ok, err := runtime.InOperator(r, regs[ops[1]], regs[ops[2]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = runtime.Boolean(ok)

	// ---- names and environment slots ----

	case OpGetName:
		v, err := runtime.GetName(r, f.env, f.block.Names[ops[1]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v
	case OpSetName:
		if err := runtime.SetName(r, f.env, f.block.Names[ops[0]], regs[ops[1]], f.block.IsStrict()); err != nil {
			return normal, err
		}
	case OpInitName:
		if err := runtime.InitName(r, f.env, f.block.Names[ops[0]], regs[ops[1]]); err != nil {
			return normal, err
		}
	case OpDeleteName:
		ok, err := runtime.DeleteName(r, f.env, f.block.Names[ops[1]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = runtime.Boolean(ok)
	case OpGetScoped:
		env := f.env
		for i := 0; i < ops[1]; i++ {
			env = env.Outer()
		}
		v, err := env.GetSlotChecked(r, ops[2])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v
	case OpSetScoped:
		env := f.env
		for i := 0; i < ops[0]; i++ {
			env = env.Outer()
		}
		if err := env.SetSlotChecked(r, ops[1], regs[ops[2]]); err != nil {
			return normal, err
		}
	case OpInitScoped:
		env := f.env
		for i := 0; i < ops[0]; i++ {
			env = env.Outer()
		}
		env.SetSlot(ops[1], regs[ops[2]])
	case OpCheckTDZ:
		if regs[ops[0]].IsEmpty() {
			return normal, r.NewReferenceError("cannot access '%s' before initialization", f.block.Names[ops[1]])
		}

	// ---- scope chain ----

	case OpPushScope:
		f.env = r.NewDeclarativeEnv(f.block.Scopes[ops[0]], f.env)
		f.envDepth++
	case OpPopScope:
		f.env = f.env.Outer()
		f.envDepth--
	case OpPushWith:
		obj, err := runtime.ToObject(r, regs[ops[0]])
		if err != nil {
			return normal, err
		}
		f.env = r.NewObjectEnv(obj, f.env, true)
		f.envDepth++
	case OpFreshenScope:
		f.env = r.FreshenEnv(f.env)

	// ---- properties ----

	case OpGetProp:
		v, err := runtime.GetV(r, regs[ops[1]], runtime.StringKey(f.block.Names[ops[2]]))
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v
	case OpGetPropByVal:
		key, err := runtime.ToPropertyKey(r, regs[ops[2]])
		if err != nil {
			return normal, err
		}
		v, err := runtime.GetV(r, regs[ops[1]], key)
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v
	case OpSetProp:
		if err := runtime.SetV(r, regs[ops[0]], runtime.StringKey(f.block.Names[ops[1]]), regs[ops[2]], f.block.IsStrict()); err != nil {
			return normal, err
		}
	case OpSetPropByVal:
		key, err := runtime.ToPropertyKey(r, regs[ops[1]])
		if err != nil {
			return normal, err
		}
		if err := runtime.SetV(r, regs[ops[0]], key, regs[ops[2]], f.block.IsStrict()); err != nil {
			return normal, err
		}
	case OpDefineProp:
		key, err := runtime.ToPropertyKey(r, regs[ops[1]])
		if err != nil {
			return normal, err
		}
		if !regs[ops[0]].IsObject() {
			return normal, r.NewTypeError("property definition on non-object")
		}
		if _, err := runtime.CreateDataProperty(r, regs[ops[0]].Obj(), key, regs[ops[2]]); err != nil {
			return normal, err
		}
	case OpDefineMethod:
		key, err := runtime.ToPropertyKey(r, regs[ops[1]])
		if err != nil {
			return normal, err
		}
		target := regs[ops[0]].Obj()
		method := regs[ops[2]].Obj()
		if fd := method.FunctionData(); fd != nil {
			fd.HomeObject = target
		}
		if _, err := runtime.DefineDataProperty(r, target, key, regs[ops[2]], runtime.MethodAttrs); err != nil {
			return normal, err
		}
	case OpDefineGetter, OpDefineSetter:
		key, err := runtime.ToPropertyKey(r, regs[ops[1]])
		if err != nil {
			return normal, err
		}
		target := regs[ops[0]].Obj()
		fn := regs[ops[2]].Obj()
		if fd := fn.FunctionData(); fd != nil {
			fd.HomeObject = target
		}
		var get, set *runtime.Object
		if existing, ok := target.Methods().GetOwnProperty(r, target, key); ok && existing.IsAccessorDescriptor() {
			get, set = existing.Get, existing.Set
		}
		if op == OpDefineGetter {
			get = fn
		} else {
			set = fn
		}
		if _, err := runtime.DefineAccessorProperty(r, target, key, get, set, runtime.AttrEnumerable|runtime.AttrConfigurable); err != nil {
			return normal, err
		}
	case OpDeleteProp:
		key, err := runtime.ToPropertyKey(r, regs[ops[2]])
		if err != nil {
			return normal, err
		}
		if !regs[ops[1]].IsObject() {
			regs[ops[0]] = runtime.True()
			return normal, nil
		}
		obj := regs[ops[1]].Obj()
		ok, err := obj.Methods().Delete(r, obj, key)
		if err != nil {
			return normal, err
		}
		if !ok && f.block.IsStrict() {
			return normal, r.NewTypeError("cannot delete property '%s'", key.String())
		}
		regs[ops[0]] = runtime.Boolean(ok)
	case OpCopyDataProps:
		if err := vm.copyDataProps(r, regs[ops[0]], regs[ops[1]]); err != nil {
			return normal, err
		}
	case OpGetSuperProp:
		v, err := vm.superGet(r, f, regs[ops[1]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v
	case OpSetSuperProp:
		if err := vm.superSet(r, f, regs[ops[0]], regs[ops[1]]); err != nil {
			return normal, err
		}

	// ---- construction ----

	case OpNewObject:
		regs[ops[0]] = runtime.ObjectValue(r.NewPlainObject())
	case OpNewArray:
		regs[ops[0]] = runtime.ObjectValue(r.NewArray())
	case OpAppend:
		runtime.ArrayAppend(regs[ops[0]].Obj(), regs[ops[1]])
	case OpAppendSpread:
		items, err := runtime.IterateToList(r, regs[ops[1]])
		if err != nil {
			return normal, err
		}
		arr := regs[ops[0]].Obj()
		for _, it := range items {
			runtime.ArrayAppend(arr, it)
		}
	case OpNewClosure:
		cb := f.block.Functions[ops[1]]
		regs[ops[0]] = runtime.ObjectValue(r.NewCompiledFunction(cb, f.env))
	case OpNewClass:
		obj, err := vm.newClass(r, f, f.block.Functions[ops[1]], runtime.Undefined(), false)
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = runtime.ObjectValue(obj)
	case OpNewClassDerived:
		obj, err := vm.newClass(r, f, f.block.Functions[ops[1]], regs[ops[2]], true)
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = runtime.ObjectValue(obj)
	case OpNewRegExp:
		regs[ops[0]] = runtime.ObjectValue(r.NewRegExpObject(f.block.Names[ops[1]], f.block.Names[ops[2]]))
	case OpGetTemplateObject:
		regs[ops[0]] = runtime.ObjectValue(vm.templateObject(r, f.block.Templates[ops[1]]))
	case OpCreateArguments:
		regs[ops[0]] = runtime.ObjectValue(vm.createArguments(r, f))
	case OpCreateRest:
		rest := r.NewArray()
		for i := f.block.NumParams; i < len(f.args); i++ {
			runtime.ArrayAppend(rest, f.args[i])
		}
		regs[ops[0]] = runtime.ObjectValue(rest)

	// ---- calls ----

	case OpCall:
		callee := regs[ops[1]]
		this := regs[ops[2]]
		args := copyArgs(regs, ops[2]+1, ops[3])
		return vm.performCall(r, f, frames, ops[0], callee, this, args)

	case OpCallSpread:
		callee := regs[ops[1]]
		this := regs[ops[2]]
		args, err := runtime.IterateToList(r, regs[ops[3]])
		if err != nil {
			return normal, err
		}
		return vm.performCall(r, f, frames, ops[0], callee, this, args)

	case OpConstruct:
		if err := r.CheckInterrupt(); err != nil {
			return normal, err
		}
		args := copyArgs(regs, ops[2]+1, ops[3])
		v, err := r.Construct(regs[ops[1]], args, runtime.Undefined())
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v
		r.MaybeCollect()

	case OpConstructSpread:
		if err := r.CheckInterrupt(); err != nil {
			return normal, err
		}
		args, err := runtime.IterateToList(r, regs[ops[2]])
		if err != nil {
			return normal, err
		}
		v, err := r.Construct(regs[ops[1]], args, runtime.Undefined())
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v

	case OpSuperCall:
		args := copyArgs(regs, ops[1]+1, ops[2])
		v, err := vm.superCall(r, f, args)
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v

	case OpSuperCallSpread:
		args, err := runtime.IterateToList(r, regs[ops[1]])
		if err != nil {
			return normal, err
		}
		v, err := vm.superCall(r, f, args)
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v

	case OpReturn:
		return runtime.ReturnCompletion(regs[ops[0]]), nil
	case OpReturnUndefined:
		return runtime.ReturnCompletion(runtime.Undefined()), nil
	case OpThrow:
		return normal, runtime.Throw(regs[ops[0]])

	// ---- control flow ----

	case OpJump:
		if ops[0] < 0 {
			if err := r.CheckInterrupt(); err != nil {
				return normal, err
			}
		}
		f.pc += ops[0]
	case OpJumpIfTrue:
		if runtime.ToBoolean(regs[ops[0]]) {
			f.pc += ops[1]
		}
	case OpJumpIfFalse:
		if !runtime.ToBoolean(regs[ops[0]]) {
			f.pc += ops[1]
		}
	case OpJumpIfNullish:
		if regs[ops[0]].IsNullish() {
			f.pc += ops[1]
		}
	case OpJumpIfNotNullish:
		if !regs[ops[0]].IsNullish() {
			f.pc += ops[1]
		}
	case OpJumpIfUndefined:
		if regs[ops[0]].IsUndefined() {
			f.pc += ops[1]
		}
	case OpJumpIfNotUndefined:
		if !regs[ops[0]].IsUndefined() {
			f.pc += ops[1]
		}

	// ---- iteration ----

	case OpGetIterator:
		rec, err := runtime.GetIterator(r, regs[ops[1]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = rec.Iterator
		regs[ops[0]+1] = rec.Next
	case OpGetAsyncIterator:
		rec, err := runtime.GetAsyncIterator(r, regs[ops[1]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = rec.Iterator
		regs[ops[0]+1] = rec.Next
	case OpIteratorNext:
		rec := &runtime.IteratorRecord{Iterator: regs[ops[2]], Next: regs[ops[2]+1]}
		v, done, err := runtime.IteratorStep(r, rec)
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v
		regs[ops[1]] = runtime.Boolean(done)
	case OpIteratorClose:
		rec := &runtime.IteratorRecord{Iterator: regs[ops[0]], Next: regs[ops[0]+1]}
		if err := runtime.IteratorClose(r, rec, nil); err != nil {
			return normal, err
		}
	case OpForInEnum:
		v := regs[ops[1]]
		if v.IsNullish() {
			regs[ops[0]] = runtime.ObjectValue(r.NewForInIterator(r.NewPlainObject()))
			return normal, nil
		}
		obj, err := runtime.ToObject(r, v)
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = runtime.ObjectValue(r.NewForInIterator(obj))
	case OpForInNext:
		key, done, err := runtime.ForInNext(r, regs[ops[2]].Obj())
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = key
		regs[ops[1]] = runtime.Boolean(done)

	// ---- suspension ----

	case OpYield:
		f.resumeReg = ops[0]
		return runtime.Completion{Kind: runtime.CompletionYield, Value: regs[ops[0]]}, nil
	case OpAwait:
		f.resumeReg = ops[0]
		return runtime.Completion{Kind: runtime.CompletionAwait, Value: regs[ops[0]]}, nil

	// ---- miscellaneous ----

	case OpNewTarget:
		regs[ops[0]] = f.env.NewTargetValue()
	case OpImportCall:
		if vm.OnImportCall == nil {
			return normal, r.NewTypeError("dynamic import is not available in this context")
		}
		v, err := vm.OnImportCall(f.block, regs[ops[1]])
		if err != nil {
			return normal, err
		}
		regs[ops[0]] = v
	case OpImportMeta:
		if vm.OnImportMeta == nil {
			regs[ops[0]] = runtime.Undefined()
		} else {
			regs[ops[0]] = vm.OnImportMeta(f.block)
		}

	default:
		return normal, r.NewTypeError("unknown opcode %s", op)
	}
	return normal, nil
}

// copyArgs snapshots argument registers; callee frames may outlive the
// caller's register reuse.
func copyArgs(regs []runtime.Value, start, count int) []runtime.Value {
	args := make([]runtime.Value, count)
	copy(args, regs[start:start+count])
	return args
}

// numericOp applies a non-add arithmetic operator.
func (vm *VM) numericOp(r *runtime.Realm, op OpCode, a, b runtime.Value) (runtime.Value, error) {
	if a.IsNumber() && b.IsNumber() {
		// Number-number fast path for the pure-float operators.
		switch op {
		case OpSub:
			return runtime.Number(a.Num() - b.Num()), nil
		case OpMul:
			return runtime.Number(a.Num() * b.Num()), nil
		case OpDiv:
			return runtime.Number(a.Num() / b.Num()), nil
		}
	}
	return runtime.NumericBinary(r, opSymbol(op), a, b)
}

func opSymbol(op OpCode) string {
	switch op {
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpPow:
		return "**"
	case OpBitAnd:
		return "&"
	case OpBitOr:
		return "|"
	case OpBitXor:
		return "^"
	case OpShl:
		return "<<"
	case OpShr:
		return ">>"
	case OpUShr:
		return ">>>"
	}
	return "?"
}

// relational applies <, <=, >, >= via the abstract comparison.
func (vm *VM) relational(r *runtime.Realm, op OpCode, a, b runtime.Value) (runtime.Value, error) {
	var less, undef bool
	var err error
	switch op {
	case OpLess:
		less, undef, err = runtime.LessThan(r, a, b)
	case OpGreater:
		less, undef, err = runtime.LessThan(r, b, a)
	case OpLessEq:
		less, undef, err = runtime.LessThan(r, b, a)
		less = !less
	case OpGreaterEq:
		less, undef, err = runtime.LessThan(r, a, b)
		less = !less
	}
	if err != nil {
		return runtime.Undefined(), err
	}
	if undef {
		return runtime.False(), nil
	}
	return runtime.Boolean(less), nil
}

// copyDataProps copies enumerable own properties for spread.
func (vm *VM) copyDataProps(r *runtime.Realm, dst, src runtime.Value) error {
	if src.IsNullish() {
		return nil
	}
	from, err := runtime.ToObject(r, src)
	if err != nil {
		return err
	}
	target := dst.Obj()
	for _, key := range from.Methods().OwnPropertyKeys(from) {
		desc, ok := from.Methods().GetOwnProperty(r, from, key)
		if !ok || !desc.Enumerable {
			continue
		}
		v, err := runtime.Get(r, from, key)
		if err != nil {
			return err
		}
		if _, err := runtime.CreateDataProperty(r, target, key, v); err != nil {
			return err
		}
	}
	return nil
}

// superGet reads super[key] through the home object's prototype with the
// active this as receiver.
func (vm *VM) superGet(r *runtime.Realm, f *frame, keyVal runtime.Value) (runtime.Value, error) {
	home, this, err := vm.superBase(r, f)
	if err != nil {
		return runtime.Undefined(), err
	}
	key, err := runtime.ToPropertyKey(r, keyVal)
	if err != nil {
		return runtime.Undefined(), err
	}
	parent := home.Methods().GetPrototypeOf(home)
	if parent == nil {
		return runtime.Undefined(), nil
	}
	return parent.Methods().Get(r, parent, key, this)
}

func (vm *VM) superSet(r *runtime.Realm, f *frame, keyVal, v runtime.Value) error {
	home, this, err := vm.superBase(r, f)
	if err != nil {
		return err
	}
	key, err := runtime.ToPropertyKey(r, keyVal)
	if err != nil {
		return err
	}
	parent := home.Methods().GetPrototypeOf(home)
	if parent == nil {
		return r.NewTypeError("no super binding")
	}
	_, err = parent.Methods().Set(r, parent, key, v, this)
	return err
}

func (vm *VM) superBase(r *runtime.Realm, f *frame) (*runtime.Object, runtime.Value, error) {
	fn := f.env.FunctionObject()
	if fn == nil || fn.FunctionData() == nil || fn.FunctionData().HomeObject == nil {
		return nil, runtime.Undefined(), r.NewTypeError("'super' is not available here")
	}
	this, _ := f.env.This()
	return fn.FunctionData().HomeObject, this, nil
}

// superCall invokes the parent constructor with the current this.
func (vm *VM) superCall(r *runtime.Realm, f *frame, args []runtime.Value) (runtime.Value, error) {
	fn := f.env.FunctionObject()
	if fn == nil {
		return runtime.Undefined(), r.NewTypeError("'super' call outside of a constructor")
	}
	parent := fn.Methods().GetPrototypeOf(fn)
	if parent == nil || !parent.IsCallable() {
		return runtime.Undefined(), r.NewTypeError("superclass is not a constructor")
	}
	this, _ := f.env.This()
	nt := f.env.NewTargetValue()
	v, err := r.CallWithNewTarget(parent, this, args, nt)
	if err != nil {
		return runtime.Undefined(), err
	}
	if v.IsObject() {
		return v, nil
	}
	return this, nil
}

// templateObject materializes (and caches) a tagged-template strings
// array.
func (vm *VM) templateObject(r *runtime.Realm, site *TemplateSite) *runtime.Object {
	if site.cached != nil {
		return site.cached
	}
	cooked := make([]runtime.Value, len(site.Cooked))
	raws := make([]runtime.Value, len(site.Raw))
	for i := range site.Cooked {
		if site.CookedOK[i] {
			cooked[i] = runtime.StringValue(r.Intern(site.Cooked[i]))
		} else {
			cooked[i] = runtime.Undefined()
		}
		raws[i] = runtime.StringValue(r.Intern(site.Raw[i]))
	}
	arr := r.NewArray(cooked...)
	rawArr := r.NewArray(raws...)
	_, _ = runtime.DefineDataProperty(r, arr, runtime.StringKey("raw"), runtime.ObjectValue(rawArr), 0)
	site.cached = arr
	return arr
}

// createArguments materializes the arguments object for the active frame.
func (vm *VM) createArguments(r *runtime.Realm, f *frame) *runtime.Object {
	var slotOf []int
	if f.block.Flags&FlagMappedArguments != 0 && f.block.ScopeDesc != nil {
		slotOf = make([]int, len(f.args))
		for i := range slotOf {
			slotOf[i] = -1
			if i < len(f.block.ParamSpec) {
				slotOf[i] = f.block.ParamSpec[i].EnvSlot
			}
		}
	}
	return r.NewArguments(f.args, f.fnObj, f.env, slotOf)
}

// newClass builds a class: constructor function, prototype object, and
// heritage wiring.
func (vm *VM) newClass(r *runtime.Realm, f *frame, ctorBlock *CodeBlock, super runtime.Value, derived bool) (*runtime.Object, error) {
	protoParent := r.Intrinsics.ObjectProto
	ctorParent := r.Intrinsics.FunctionProto

	if derived {
		if super.IsNull() {
			protoParent = nil
		} else {
			if !super.IsConstructor() {
				return nil, r.NewTypeError("class heritage is not a constructor")
			}
			superObj := super.Obj()
			ctorParent = superObj
			protoVal, err := runtime.Get(r, superObj, runtime.StringKey("prototype"))
			if err != nil {
				return nil, err
			}
			if protoVal.IsObject() {
				protoParent = protoVal.Obj()
			} else if protoVal.IsNull() {
				protoParent = nil
			} else {
				return nil, r.NewTypeError("class heritage prototype must be an object or null")
			}
		}
	}

	proto := r.NewObject(protoParent)
	ctor := r.NewCompiledFunction(ctorBlock, f.env)
	fd := ctor.FunctionData()
	fd.Kind = runtime.FuncClassConstructor
	fd.Constructor = true
	fd.HomeObject = proto
	ctor.Methods().SetPrototypeOf(ctor, ctorParent)

	_, _ = runtime.DefineDataProperty(r, ctor, runtime.StringKey("prototype"), runtime.ObjectValue(proto), 0)
	_, _ = runtime.DefineDataProperty(r, proto, runtime.StringKey("constructor"), runtime.ObjectValue(ctor), runtime.MethodAttrs)
	return ctor, nil
}
