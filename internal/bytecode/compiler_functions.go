package bytecode

import "github.com/cwbudde/go-ecma/internal/ast"

// compileFunctionValue compiles a function literal and emits the closure
// instantiation into dst.
func (c *Compiler) compileFunctionValue(fn *ast.FunctionLiteral, dst int) error {
	name := ""
	if fn.Name != nil {
		name = fn.Name.Name
	}
	var flags Flags
	if fn.Generator {
		flags |= FlagGenerator
	}
	if fn.Async {
		flags |= FlagAsync
	}
	cb, err := c.compileFunction(name, fn.Params, fn.Body, nil, fn.Scope, flags)
	if err != nil {
		return err
	}
	c.emitOp(OpNewClosure, dst, c.functionIndex(cb))
	return nil
}

// compileArrowValue compiles an arrow function.
func (c *Compiler) compileArrowValue(fn *ast.ArrowFunction, dst int) error {
	flags := FlagArrow
	if fn.Async {
		flags |= FlagAsync
	}
	cb, err := c.compileFunction("", fn.Params, fn.Body, fn.ExprBody, fn.Scope, flags)
	if err != nil {
		return err
	}
	c.emitOp(OpNewClosure, dst, c.functionIndex(cb))
	return nil
}

// compileFunction compiles one function body into its own CodeBlock.
func (c *Compiler) compileFunction(name string, params []ast.Pattern, body *ast.BlockStatement, exprBody ast.Expression, scope *ast.Scope, flags Flags) (*CodeBlock, error) {
	sub := newCompiler(c.realm, c, scope)
	sub.block.Name = name
	sub.block.File = c.block.File
	sub.block.Flags = flags
	if scope.Strict {
		sub.block.Flags |= FlagStrict
	}

	numParams := 0
	simple := true
	for _, p := range params {
		if _, ok := p.(*ast.RestElement); ok {
			sub.block.Flags |= FlagHasRest
			simple = false
			continue
		}
		if _, ok := p.(*ast.Identifier); !ok {
			simple = false
		}
		numParams++
	}
	sub.block.NumParams = numParams
	if simple && !scope.Strict && flags&FlagArrow == 0 {
		sub.block.Flags |= FlagMappedArguments
	}

	// The function's own environment descriptor, when anything escapes.
	if scope.EscapingCount() > 0 {
		idx := sub.descriptorFor(scope)
		sub.block.ScopeDesc = sub.block.Scopes[idx]
	}

	if err := sub.compileParameters(params); err != nil {
		return nil, err
	}
	sub.bindSelfReference(name, scope)
	sub.compileImplicitBindings(scope)

	if exprBody != nil {
		reg, err := sub.compileExpression(exprBody)
		if err != nil {
			return nil, err
		}
		sub.emitOp(OpReturn, reg)
	} else {
		if err := sub.hoistFunctionDeclarations(body.Statements); err != nil {
			return nil, err
		}
		for _, s := range body.Statements {
			if err := sub.compileStatement(s); err != nil {
				return nil, err
			}
		}
	}
	sub.finish()
	return sub.block, nil
}

// compileParameters lays out parameters: arguments arrive in registers
// 0..n-1; defaults, destructuring, and escaping copies are prologue code.
func (c *Compiler) compileParameters(params []ast.Pattern) error {
	// Reserve the argument registers first so they are stable.
	paramRegs := make([]int, 0, len(params))
	for _, p := range params {
		if _, ok := p.(*ast.RestElement); ok {
			continue
		}
		paramRegs = append(paramRegs, c.allocReg())
	}

	i := 0
	for _, p := range params {
		switch t := p.(type) {
		case *ast.RestElement:
			reg := c.allocReg()
			c.emitOp(OpCreateRest, reg)
			if err := c.compileBindingTarget(t.Target, reg, true); err != nil {
				return err
			}
			continue

		case *ast.Identifier:
			reg := paramRegs[i]
			c.recordParamSite(t, reg)

		case *ast.DefaultPattern:
			reg := paramRegs[i]
			skip := c.emitJump(OpJumpIfNotUndefined, reg)
			if err := c.compileExpressionInto(t.Default, reg); err != nil {
				return err
			}
			c.patchJump(skip)
			if id, ok := t.Target.(*ast.Identifier); ok {
				c.recordParamSite(id, reg)
			} else {
				c.block.ParamSpec = append(c.block.ParamSpec, ParamSite{Register: reg, EnvSlot: -1})
				if err := c.compileBindingTarget(t.Target, reg, true); err != nil {
					return err
				}
			}

		default:
			reg := paramRegs[i]
			c.block.ParamSpec = append(c.block.ParamSpec, ParamSite{Register: reg, EnvSlot: -1})
			if err := c.compileBindingTarget(p, reg, true); err != nil {
				return err
			}
		}
		i++
	}
	return nil
}

// recordParamSite binds an identifier parameter to its register or
// environment slot.
func (c *Compiler) recordParamSite(id *ast.Identifier, reg int) {
	b := id.Binding
	if b == nil {
		b = c.scope.Get(id.Name)
	}
	site := ParamSite{Register: reg, EnvSlot: -1}
	if b != nil {
		if b.Escapes {
			site.EnvSlot = b.Slot
			c.emitOp(OpInitScoped, 0, b.Slot, reg)
		} else {
			b.Slot = reg
		}
	}
	c.block.ParamSpec = append(c.block.ParamSpec, site)
}

// bindSelfReference wires the self-name binding of named function
// expressions; the VM writes the function object into it at frame entry.
func (c *Compiler) bindSelfReference(name string, scope *ast.Scope) {
	if name == "" {
		return
	}
	b := scope.Get(name)
	if b == nil || b.Kind != ast.BindConst {
		return
	}
	if b.Escapes {
		c.block.SelfSlot = b.Slot
		return
	}
	if b.Slot < 0 {
		b.Slot = c.allocReg()
	}
	c.block.SelfReg = b.Slot
}

// compileImplicitBindings initializes the arguments object and hoisted var
// bindings of a function scope.
func (c *Compiler) compileImplicitBindings(scope *ast.Scope) {
	if c.block.Flags&FlagArrow == 0 && scope.UsesArguments {
		if b := scope.Get("arguments"); b != nil {
			if !b.Escapes && b.Slot < 0 {
				b.Slot = c.allocReg()
			}
			mark := c.regMark()
			reg := c.allocReg()
			c.emitOp(OpCreateArguments, reg)
			if b.Escapes {
				c.emitOp(OpInitScoped, 0, b.Slot, reg)
			} else {
				c.emitOp(OpMov, b.Slot, reg)
			}
			c.releaseTo(mark)
		}
	}

	// Escaping var bindings exist (as undefined) from function entry.
	for _, b := range scope.Bindings {
		if !b.Escapes || (b.Kind != ast.BindVar && b.Kind != ast.BindFunction) {
			continue
		}
		mark := c.regMark()
		tmp := c.allocReg()
		c.emitOp(OpLoadUndefined, tmp)
		c.emitOp(OpInitScoped, 0, b.Slot, tmp)
		c.releaseTo(mark)
	}

	// Register-allocated var bindings pin their registers for the whole
	// function; lexical registers start in their dead zone. The
	// self-reference register is seeded by the VM and must not be
	// cleared.
	for _, b := range scope.Bindings {
		if b.Escapes || b.Kind == ast.BindParam {
			continue
		}
		if b.Slot < 0 {
			b.Slot = c.allocReg()
		}
		if b.Kind.IsLexical() && b.Slot != c.block.SelfReg {
			c.emitOp(OpLoadEmpty, b.Slot)
		}
	}
}

// compileClassValue lowers a class literal: the constructor code block,
// the prototype's methods and accessors, and static members.
func (c *Compiler) compileClassValue(cl *ast.ClassLiteral, dst int) error {
	mark := c.regMark()

	var superReg = -1
	if cl.SuperClass != nil {
		reg, err := c.compileExpression(cl.SuperClass)
		if err != nil {
			return err
		}
		superReg = reg
	}

	if cl.Scope != nil {
		exit := c.enterScope(cl.Scope)
		defer exit()
	}

	// Locate the constructor.
	var ctorFn *ast.FunctionLiteral
	for _, el := range cl.Elements {
		if el.Kind != ast.ClassMethod || el.Computed || el.Static {
			continue
		}
		if id, ok := el.Key.(*ast.Identifier); ok && id.Name == "constructor" {
			ctorFn = el.Value.(*ast.FunctionLiteral)
		}
	}

	name := ""
	if cl.Name != nil {
		name = cl.Name.Name
	}

	var ctorBlock *CodeBlock
	var err error
	if ctorFn != nil {
		ctorBlock, err = c.compileFunction(name, ctorFn.Params, ctorFn.Body, nil, ctorFn.Scope, FlagStrict)
		if err != nil {
			return err
		}
	} else {
		ctorBlock = c.synthesizeDefaultConstructor(name, superReg >= 0)
	}
	if superReg >= 0 {
		ctorBlock.Flags |= FlagDerivedCtor
	}
	fnIdx := c.functionIndex(ctorBlock)

	if superReg >= 0 {
		c.emitOp(OpNewClassDerived, dst, fnIdx, superReg)
	} else {
		c.emitOp(OpNewClass, dst, fnIdx)
	}

	protoReg := c.allocReg()
	c.emitOp(OpGetProp, protoReg, dst, c.nameIndex("prototype"))

	for _, el := range cl.Elements {
		if el.Kind == ast.ClassMethod && !el.Computed && !el.Static {
			if id, ok := el.Key.(*ast.Identifier); ok && id.Name == "constructor" {
				continue
			}
		}
		target := protoReg
		if el.Static {
			target = dst
		}

		switch el.Kind {
		case ast.ClassField:
			if !el.Static {
				return c.errorAt(el.Pos(), "instance fields are not supported; assign in the constructor")
			}
			emark := c.regMark()
			keyReg, err := c.compilePropertyKey(el.Key, el.Computed)
			if err != nil {
				return err
			}
			valReg := c.allocReg()
			if el.Value != nil {
				if err := c.compileExpressionInto(el.Value, valReg); err != nil {
					return err
				}
			} else {
				c.emitOp(OpLoadUndefined, valReg)
			}
			c.emitOp(OpDefineProp, target, keyReg, valReg)
			c.releaseTo(emark)

		case ast.ClassGetter, ast.ClassSetter, ast.ClassMethod:
			emark := c.regMark()
			keyReg, err := c.compilePropertyKey(el.Key, el.Computed)
			if err != nil {
				return err
			}
			fnReg := c.allocReg()
			method := el.Value.(*ast.FunctionLiteral)
			var mflags Flags = FlagStrict
			if method.Generator {
				mflags |= FlagGenerator
			}
			if method.Async {
				mflags |= FlagAsync
			}
			mname := methodName(el.Key, el.Computed)
			mb, err := c.compileFunction(mname, method.Params, method.Body, nil, method.Scope, mflags)
			if err != nil {
				return err
			}
			c.emitOp(OpNewClosure, fnReg, c.functionIndex(mb))
			switch el.Kind {
			case ast.ClassGetter:
				c.emitOp(OpDefineGetter, target, keyReg, fnReg)
			case ast.ClassSetter:
				c.emitOp(OpDefineSetter, target, keyReg, fnReg)
			default:
				c.emitOp(OpDefineMethod, target, keyReg, fnReg)
			}
			c.releaseTo(emark)
		}
	}

	// The class name binding inside the class scope.
	if cl.Name != nil && cl.Scope != nil {
		if b := cl.Scope.Get(cl.Name.Name); b != nil {
			if b.Escapes {
				c.emitOp(OpInitScoped, 0, b.Slot, dst)
			} else if b.Slot >= 0 {
				c.emitOp(OpMov, b.Slot, dst)
			}
		}
	}

	c.releaseTo(mark)
	return nil
}

func methodName(key ast.Expression, computed bool) string {
	if computed {
		return ""
	}
	switch k := key.(type) {
	case *ast.Identifier:
		return k.Name
	case *ast.StringLiteral:
		return k.Value
	default:
		return ""
	}
}

// synthesizeDefaultConstructor builds the implicit constructor body:
// empty for base classes, super(...args) for derived ones.
func (c *Compiler) synthesizeDefaultConstructor(name string, derived bool) *CodeBlock {
	cb := &CodeBlock{
		Name:  name,
		File:  c.block.File,
		Flags: FlagStrict,
	}
	sub := &Compiler{
		block:         cb,
		realm:         c.realm,
		scopeEnvDepth: make(map[*ast.Scope]int),
		scopeIndexes:  make(map[*ast.Scope]int),
		constCache:    make(map[constKey]int),
		nameCache:     make(map[string]int),
		resultReg:     -1,
	}
	if derived {
		args := sub.allocReg()
		sub.emitOp(OpCreateRest, args)
		result := sub.allocReg()
		sub.emitOp(OpSuperCallSpread, result, args)
	}
	sub.finish()
	return cb
}
