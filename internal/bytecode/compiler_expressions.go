package bytecode

import (
	"math/big"

	"github.com/cwbudde/go-ecma/internal/ast"
	"github.com/cwbudde/go-ecma/internal/runtime"
	"github.com/cwbudde/go-ecma/pkg/token"
)

// chainContext collects the short-circuit jumps of one optional chain.
type chainContext struct {
	jumps []int
}

// compileExpression lowers an expression into a freshly allocated register.
func (c *Compiler) compileExpression(e ast.Expression) (int, error) {
	dst := c.allocReg()
	if err := c.compileExpressionInto(e, dst); err != nil {
		return 0, err
	}
	return dst, nil
}

// compileExpressionInto lowers an expression into dst.
func (c *Compiler) compileExpressionInto(e ast.Expression, dst int) error {
	c.markPos(e)
	switch t := e.(type) {
	case *ast.NumberLiteral:
		switch t.Value {
		case 0:
			c.emitOp(OpLoadZero, dst)
		case 1:
			c.emitOp(OpLoadOne, dst)
		default:
			c.emitOp(OpLoadConst, dst, c.constIndex(runtime.Number(t.Value)))
		}
		return nil

	case *ast.StringLiteral:
		c.emitOp(OpLoadConst, dst, c.constIndex(runtime.StringValue(c.realm.Intern(t.Value))))
		return nil

	case *ast.BigIntLiteral:
		i, ok := new(big.Int).SetString(t.Value, 0)
		if !ok {
			return c.errorAt(t.Pos(), "invalid BigInt literal %q", t.Value)
		}
		c.emitOp(OpLoadConst, dst, c.constIndex(runtime.BigIntValue(i)))
		return nil

	case *ast.BooleanLiteral:
		if t.Value {
			c.emitOp(OpLoadTrue, dst)
		} else {
			c.emitOp(OpLoadFalse, dst)
		}
		return nil

	case *ast.NullLiteral:
		c.emitOp(OpLoadNull, dst)
		return nil

	case *ast.RegExpLiteral:
		c.emitOp(OpNewRegExp, dst, c.nameIndex(t.Pattern), c.nameIndex(t.Flags))
		return nil

	case *ast.Identifier:
		c.loadBinding(t, dst)
		return nil

	case *ast.ThisExpression:
		c.emitOp(OpLoadThis, dst)
		return nil

	case *ast.MetaProperty:
		if t.Meta == "new" {
			c.emitOp(OpNewTarget, dst)
		} else {
			c.emitOp(OpImportMeta, dst)
		}
		return nil

	case *ast.ImportCall:
		mark := c.regMark()
		spec, err := c.compileExpression(t.Specifier)
		if err != nil {
			return err
		}
		c.emitOp(OpImportCall, dst, spec)
		c.releaseTo(mark)
		return nil

	case *ast.ArrayLiteral:
		return c.compileArrayLiteral(t, dst)

	case *ast.ObjectLiteral:
		return c.compileObjectLiteral(t, dst)

	case *ast.TemplateLiteral:
		return c.compileTemplateLiteral(t, dst)

	case *ast.TaggedTemplate:
		return c.compileTaggedTemplate(t, dst)

	case *ast.SequenceExpression:
		mark := c.regMark()
		for i, sub := range t.Expressions {
			if i == len(t.Expressions)-1 {
				c.releaseTo(mark)
				return c.compileExpressionInto(sub, dst)
			}
			if _, err := c.compileExpression(sub); err != nil {
				return err
			}
			c.releaseTo(mark)
		}
		return nil

	case *ast.UnaryExpression:
		return c.compileUnary(t, dst)

	case *ast.UpdateExpression:
		return c.compileUpdate(t, dst)

	case *ast.BinaryExpression:
		return c.compileBinary(t, dst)

	case *ast.LogicalExpression:
		return c.compileLogical(t, dst)

	case *ast.ConditionalExpression:
		mark := c.regMark()
		test, err := c.compileExpression(t.Test)
		if err != nil {
			return err
		}
		elseJump := c.emitJump(OpJumpIfFalse, test)
		c.releaseTo(mark)
		if err := c.compileExpressionInto(t.Consequent, dst); err != nil {
			return err
		}
		endJump := c.emitJump(OpJump)
		c.patchJump(elseJump)
		if err := c.compileExpressionInto(t.Alternate, dst); err != nil {
			return err
		}
		c.patchJump(endJump)
		return nil

	case *ast.AssignmentExpression:
		return c.compileAssignment(t, dst)

	case *ast.MemberExpression, *ast.CallExpression:
		if chainHasOptional(e) && c.chain == nil {
			return c.compileOptionalChainRoot(e, dst)
		}
		if m, ok := e.(*ast.MemberExpression); ok {
			return c.compileMember(m, dst)
		}
		return c.compileCall(e.(*ast.CallExpression), dst)

	case *ast.NewExpression:
		return c.compileNew(t, dst)

	case *ast.YieldExpression:
		return c.compileYield(t, dst)

	case *ast.AwaitExpression:
		mark := c.regMark()
		if err := c.compileExpressionInto(t.Argument, dst); err != nil {
			return err
		}
		c.emitOp(OpAwait, dst)
		c.releaseTo(mark)
		return nil

	case *ast.FunctionLiteral:
		return c.compileFunctionValue(t, dst)

	case *ast.ArrowFunction:
		return c.compileArrowValue(t, dst)

	case *ast.ClassLiteral:
		return c.compileClassValue(t, dst)

	case *ast.SpreadElement:
		return c.errorAt(t.Pos(), "unexpected spread element")

	case *ast.SuperExpression:
		return c.errorAt(t.Pos(), "'super' is only valid in member access or call position")

	default:
		return c.errorAt(e.Pos(), "cannot compile expression %T", e)
	}
}

func (c *Compiler) compileArrayLiteral(t *ast.ArrayLiteral, dst int) error {
	c.emitOp(OpNewArray, dst)
	mark := c.regMark()
	tmp := c.allocReg()
	for _, el := range t.Elements {
		switch el := el.(type) {
		case nil:
			// Elision: append a hole.
			c.emitOp(OpLoadEmpty, tmp)
			c.emitOp(OpAppend, dst, tmp)
		case *ast.SpreadElement:
			if err := c.compileExpressionInto(el.Argument, tmp); err != nil {
				return err
			}
			c.emitOp(OpAppendSpread, dst, tmp)
		default:
			if err := c.compileExpressionInto(el, tmp); err != nil {
				return err
			}
			c.emitOp(OpAppend, dst, tmp)
		}
	}
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileObjectLiteral(t *ast.ObjectLiteral, dst int) error {
	c.emitOp(OpNewObject, dst)
	for _, prop := range t.Properties {
		mark := c.regMark()
		switch prop.Kind {
		case ast.PropertySpread:
			src, err := c.compileExpression(prop.Argument)
			if err != nil {
				return err
			}
			c.emitOp(OpCopyDataProps, dst, src)

		case ast.PropertyGet, ast.PropertySet:
			keyReg, err := c.compilePropertyKey(prop.Key, prop.Computed)
			if err != nil {
				return err
			}
			fnReg := c.allocReg()
			if err := c.compileFunctionValue(prop.Value.(*ast.FunctionLiteral), fnReg); err != nil {
				return err
			}
			if prop.Kind == ast.PropertyGet {
				c.emitOp(OpDefineGetter, dst, keyReg, fnReg)
			} else {
				c.emitOp(OpDefineSetter, dst, keyReg, fnReg)
			}

		default:
			keyReg, err := c.compilePropertyKey(prop.Key, prop.Computed)
			if err != nil {
				return err
			}
			valReg := c.allocReg()
			if err := c.compileExpressionInto(prop.Value, valReg); err != nil {
				return err
			}
			c.emitOp(OpDefineProp, dst, keyReg, valReg)
		}
		c.releaseTo(mark)
	}
	return nil
}

// compilePropertyKey loads a property key into a register: literal keys
// become string constants, computed keys evaluate their expression.
func (c *Compiler) compilePropertyKey(key ast.Expression, computed bool) (int, error) {
	reg := c.allocReg()
	if computed {
		if err := c.compileExpressionInto(key, reg); err != nil {
			return 0, err
		}
		return reg, nil
	}
	switch k := key.(type) {
	case *ast.Identifier:
		c.emitOp(OpLoadConst, reg, c.constIndex(runtime.StringValue(c.realm.Intern(k.Name))))
	case *ast.StringLiteral:
		c.emitOp(OpLoadConst, reg, c.constIndex(runtime.StringValue(c.realm.Intern(k.Value))))
	case *ast.NumberLiteral:
		c.emitOp(OpLoadConst, reg, c.constIndex(runtime.StringValue(c.realm.Intern(runtime.NumberToString(k.Value)))))
	case *ast.PrivateName:
		c.emitOp(OpLoadConst, reg, c.constIndex(runtime.StringValue(c.realm.Intern(k.Name))))
	default:
		return 0, c.errorAt(key.Pos(), "invalid property key %T", key)
	}
	return reg, nil
}

func (c *Compiler) compileTemplateLiteral(t *ast.TemplateLiteral, dst int) error {
	mark := c.regMark()
	c.emitOp(OpLoadConst, dst, c.constIndex(runtime.StringValue(c.realm.Intern(t.Quasis[0].Cooked))))
	tmp := c.allocReg()
	for i, sub := range t.Expressions {
		if err := c.compileExpressionInto(sub, tmp); err != nil {
			return err
		}
		c.emitOp(OpToString, tmp, tmp)
		c.emitOp(OpAdd, dst, dst, tmp)
		cooked := t.Quasis[i+1].Cooked
		if cooked != "" {
			c.emitOp(OpLoadConst, tmp, c.constIndex(runtime.StringValue(c.realm.Intern(cooked))))
			c.emitOp(OpAdd, dst, dst, tmp)
		}
	}
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileTaggedTemplate(t *ast.TaggedTemplate, dst int) error {
	site := &TemplateSite{}
	for _, q := range t.Quasi.Quasis {
		site.Cooked = append(site.Cooked, q.Cooked)
		site.Raw = append(site.Raw, q.Raw)
		site.CookedOK = append(site.CookedOK, !q.Malformed)
	}
	c.block.Templates = append(c.block.Templates, site)
	siteIdx := len(c.block.Templates) - 1

	mark := c.regMark()

	// Evaluate the tag, keeping a method receiver when there is one.
	fnReg := c.allocReg()
	thisIsObj := false
	var thisReg int
	if m, ok := t.Tag.(*ast.MemberExpression); ok {
		thisReg = c.allocReg()
		if err := c.compileExpressionInto(m.Object, thisReg); err != nil {
			return err
		}
		if err := c.emitMemberGet(m, thisReg, fnReg); err != nil {
			return err
		}
		thisIsObj = true
	} else {
		if err := c.compileExpressionInto(t.Tag, fnReg); err != nil {
			return err
		}
	}

	argc := 1 + len(t.Quasi.Expressions)
	base := c.allocRegs(argc + 1)
	if thisIsObj {
		c.emitOp(OpMov, base, thisReg)
	} else {
		c.emitOp(OpLoadUndefined, base)
	}
	c.emitOp(OpGetTemplateObject, base+1, siteIdx)
	for i, sub := range t.Quasi.Expressions {
		if err := c.compileExpressionInto(sub, base+2+i); err != nil {
			return err
		}
	}
	c.emitOp(OpCall, dst, fnReg, base, argc)
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileUnary(t *ast.UnaryExpression, dst int) error {
	// typeof and delete treat identifier operands specially.
	if t.Operator == token.TYPEOF {
		if id, ok := t.Operand.(*ast.Identifier); ok {
			st := c.storageOf(id)
			if st.byName {
				c.emitOp(OpTypeofName, dst, c.nameIndex(st.name))
				return nil
			}
		}
		mark := c.regMark()
		if err := c.compileExpressionInto(t.Operand, dst); err != nil {
			return err
		}
		c.emitOp(OpTypeof, dst, dst)
		c.releaseTo(mark)
		return nil
	}
	if t.Operator == token.DELETE {
		switch target := t.Operand.(type) {
		case *ast.MemberExpression:
			mark := c.regMark()
			obj, err := c.compileExpression(target.Object)
			if err != nil {
				return err
			}
			var keyReg int
			if target.Computed {
				keyReg, err = c.compileExpression(target.Property)
				if err != nil {
					return err
				}
			} else {
				keyReg, err = c.compilePropertyKey(target.Property, false)
				if err != nil {
					return err
				}
			}
			c.emitOp(OpDeleteProp, dst, obj, keyReg)
			c.releaseTo(mark)
			return nil
		case *ast.Identifier:
			c.emitOp(OpDeleteName, dst, c.nameIndex(target.Name))
			return nil
		default:
			// delete on anything else evaluates the operand and yields
			// true.
			mark := c.regMark()
			if _, err := c.compileExpression(t.Operand); err != nil {
				return err
			}
			c.releaseTo(mark)
			c.emitOp(OpLoadTrue, dst)
			return nil
		}
	}

	mark := c.regMark()
	if err := c.compileExpressionInto(t.Operand, dst); err != nil {
		return err
	}
	c.releaseTo(mark)
	switch t.Operator {
	case token.MINUS:
		c.emitOp(OpNeg, dst, dst)
	case token.PLUS:
		c.emitOp(OpPlus, dst, dst)
	case token.NOT:
		c.emitOp(OpNot, dst, dst)
	case token.BIT_NOT:
		c.emitOp(OpBitNot, dst, dst)
	case token.VOID:
		c.emitOp(OpLoadUndefined, dst)
	default:
		return c.errorAt(t.Pos(), "cannot compile unary operator %s", t.Operator)
	}
	return nil
}

func (c *Compiler) compileUpdate(t *ast.UpdateExpression, dst int) error {
	op := OpInc
	if t.Operator == token.DEC {
		op = OpDec
	}

	mark := c.regMark()
	switch target := t.Operand.(type) {
	case *ast.Identifier:
		old := c.allocReg()
		c.loadBinding(target, old)
		c.emitOp(OpToNumeric, old, old)
		updated := c.allocReg()
		c.emitOp(op, updated, old)
		if err := c.storeBinding(target, updated); err != nil {
			return err
		}
		if t.Prefix {
			c.emitOp(OpMov, dst, updated)
		} else {
			c.emitOp(OpMov, dst, old)
		}
	case *ast.MemberExpression:
		obj, keyReg, err := c.compileMemberOperands(target)
		if err != nil {
			return err
		}
		old := c.allocReg()
		c.emitOp(OpGetPropByVal, old, obj, keyReg)
		c.emitOp(OpToNumeric, old, old)
		updated := c.allocReg()
		c.emitOp(op, updated, old)
		c.emitOp(OpSetPropByVal, obj, keyReg, updated)
		if t.Prefix {
			c.emitOp(OpMov, dst, updated)
		} else {
			c.emitOp(OpMov, dst, old)
		}
	default:
		return c.errorAt(t.Pos(), "invalid update target %T", t.Operand)
	}
	c.releaseTo(mark)
	return nil
}

// compileMemberOperands evaluates a member expression's object and key
// into registers (key always by value).
func (c *Compiler) compileMemberOperands(m *ast.MemberExpression) (obj, key int, err error) {
	obj, err = c.compileExpression(m.Object)
	if err != nil {
		return 0, 0, err
	}
	if m.Computed {
		key, err = c.compileExpression(m.Property)
		if err != nil {
			return 0, 0, err
		}
	} else {
		key, err = c.compilePropertyKey(m.Property, false)
		if err != nil {
			return 0, 0, err
		}
	}
	return obj, key, nil
}

var binaryOps = map[token.Type]OpCode{
	token.PLUS:          OpAdd,
	token.MINUS:         OpSub,
	token.ASTERISK:      OpMul,
	token.SLASH:         OpDiv,
	token.PERCENT:       OpMod,
	token.EXPONENT:      OpPow,
	token.BIT_AND:       OpBitAnd,
	token.BIT_OR:        OpBitOr,
	token.BIT_XOR:       OpBitXor,
	token.SHL:           OpShl,
	token.SHR:           OpShr,
	token.USHR:          OpUShr,
	token.EQ:            OpEq,
	token.NOT_EQ:        OpNotEq,
	token.STRICT_EQ:     OpStrictEq,
	token.STRICT_NOT_EQ: OpStrictNotEq,
	token.LESS:          OpLess,
	token.LESS_EQ:       OpLessEq,
	token.GREATER:       OpGreater,
	token.GREATER_EQ:    OpGreaterEq,
	token.INSTANCEOF:    OpInstanceOf,
	token.IN:            OpIn,
}

func (c *Compiler) compileBinary(t *ast.BinaryExpression, dst int) error {
	op, ok := binaryOps[t.Operator]
	if !ok {
		return c.errorAt(t.Pos(), "cannot compile binary operator %s", t.Operator)
	}
	mark := c.regMark()
	a, err := c.compileExpression(t.Left)
	if err != nil {
		return err
	}
	b, err := c.compileExpression(t.Right)
	if err != nil {
		return err
	}
	c.emitOp(op, dst, a, b)
	c.releaseTo(mark)
	return nil
}

// compileLogical lowers &&, || and ?? with short-circuit jumps preserving
// the first-evaluated operand's value.
func (c *Compiler) compileLogical(t *ast.LogicalExpression, dst int) error {
	if err := c.compileExpressionInto(t.Left, dst); err != nil {
		return err
	}
	var skip int
	switch t.Operator {
	case token.LOGICAL_AND:
		skip = c.emitJump(OpJumpIfFalse, dst)
	case token.LOGICAL_OR:
		skip = c.emitJump(OpJumpIfTrue, dst)
	default: // ??
		skip = c.emitJump(OpJumpIfNotNullish, dst)
	}
	if err := c.compileExpressionInto(t.Right, dst); err != nil {
		return err
	}
	c.patchJump(skip)
	return nil
}

func (c *Compiler) compileAssignment(t *ast.AssignmentExpression, dst int) error {
	switch t.Operator {
	case token.ASSIGN:
		if err := c.compileExpressionInto(t.Value, dst); err != nil {
			return err
		}
		return c.compileBindingTarget(t.Target, dst, false)

	case token.LAND_ASSIGN, token.LOR_ASSIGN, token.COALESCE_ASSIGN:
		return c.compileLogicalAssignment(t, dst)
	}

	// Compound assignment: load, combine, store.
	var op OpCode
	switch t.Operator {
	case token.PLUS_ASSIGN:
		op = OpAdd
	case token.MINUS_ASSIGN:
		op = OpSub
	case token.ASTERISK_ASSIGN:
		op = OpMul
	case token.SLASH_ASSIGN:
		op = OpDiv
	case token.PERCENT_ASSIGN:
		op = OpMod
	case token.EXPONENT_ASSIGN:
		op = OpPow
	case token.SHL_ASSIGN:
		op = OpShl
	case token.SHR_ASSIGN:
		op = OpShr
	case token.USHR_ASSIGN:
		op = OpUShr
	case token.AND_ASSIGN:
		op = OpBitAnd
	case token.OR_ASSIGN:
		op = OpBitOr
	case token.XOR_ASSIGN:
		op = OpBitXor
	default:
		return c.errorAt(t.Pos(), "cannot compile assignment operator %s", t.Operator)
	}

	mark := c.regMark()
	switch target := t.Target.(type) {
	case *ast.Identifier:
		old := c.allocReg()
		c.loadBinding(target, old)
		val, err := c.compileExpression(t.Value)
		if err != nil {
			return err
		}
		c.emitOp(op, dst, old, val)
		if err := c.storeBinding(target, dst); err != nil {
			return err
		}
	case *ast.MemberExpression:
		obj, keyReg, err := c.compileMemberOperands(target)
		if err != nil {
			return err
		}
		old := c.allocReg()
		c.emitOp(OpGetPropByVal, old, obj, keyReg)
		val, err := c.compileExpression(t.Value)
		if err != nil {
			return err
		}
		c.emitOp(op, dst, old, val)
		c.emitOp(OpSetPropByVal, obj, keyReg, dst)
	default:
		return c.errorAt(t.Pos(), "invalid compound assignment target %T", t.Target)
	}
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileLogicalAssignment(t *ast.AssignmentExpression, dst int) error {
	mark := c.regMark()
	switch target := t.Target.(type) {
	case *ast.Identifier:
		c.loadBinding(target, dst)
		var skip int
		switch t.Operator {
		case token.LAND_ASSIGN:
			skip = c.emitJump(OpJumpIfFalse, dst)
		case token.LOR_ASSIGN:
			skip = c.emitJump(OpJumpIfTrue, dst)
		default:
			skip = c.emitJump(OpJumpIfNotNullish, dst)
		}
		if err := c.compileExpressionInto(t.Value, dst); err != nil {
			return err
		}
		if err := c.storeBinding(target, dst); err != nil {
			return err
		}
		c.patchJump(skip)
	case *ast.MemberExpression:
		obj, keyReg, err := c.compileMemberOperands(target)
		if err != nil {
			return err
		}
		c.emitOp(OpGetPropByVal, dst, obj, keyReg)
		var skip int
		switch t.Operator {
		case token.LAND_ASSIGN:
			skip = c.emitJump(OpJumpIfFalse, dst)
		case token.LOR_ASSIGN:
			skip = c.emitJump(OpJumpIfTrue, dst)
		default:
			skip = c.emitJump(OpJumpIfNotNullish, dst)
		}
		if err := c.compileExpressionInto(t.Value, dst); err != nil {
			return err
		}
		c.emitOp(OpSetPropByVal, obj, keyReg, dst)
		c.patchJump(skip)
	default:
		return c.errorAt(t.Pos(), "invalid logical assignment target %T", t.Target)
	}
	c.releaseTo(mark)
	return nil
}

// chainHasOptional reports whether a member/call chain contains an
// optional link.
func chainHasOptional(e ast.Expression) bool {
	for {
		switch t := e.(type) {
		case *ast.MemberExpression:
			if t.Optional {
				return true
			}
			e = t.Object
		case *ast.CallExpression:
			if t.Optional {
				return true
			}
			e = t.Callee
		default:
			return false
		}
	}
}

// compileOptionalChainRoot wraps the outermost expression of an optional
// chain: any nullish link short-circuits the whole chain to undefined.
func (c *Compiler) compileOptionalChainRoot(e ast.Expression, dst int) error {
	saved := c.chain
	c.chain = &chainContext{}
	var err error
	if m, ok := e.(*ast.MemberExpression); ok {
		err = c.compileMember(m, dst)
	} else {
		err = c.compileCall(e.(*ast.CallExpression), dst)
	}
	chain := c.chain
	c.chain = saved
	if err != nil {
		return err
	}
	endJump := c.emitJump(OpJump)
	c.patchJumpsHere(chain.jumps)
	c.emitOp(OpLoadUndefined, dst)
	c.patchJump(endJump)
	return nil
}

// emitMemberGet emits the property read of m with the object already in
// objReg.
func (c *Compiler) emitMemberGet(m *ast.MemberExpression, objReg, dst int) error {
	if m.Optional && c.chain != nil {
		c.chain.jumps = append(c.chain.jumps, c.emitJump(OpJumpIfNullish, objReg))
	}
	if m.Computed {
		mark := c.regMark()
		keyReg, err := c.compileExpression(m.Property)
		if err != nil {
			return err
		}
		c.emitOp(OpGetPropByVal, dst, objReg, keyReg)
		c.releaseTo(mark)
		return nil
	}
	id, ok := m.Property.(*ast.Identifier)
	if !ok {
		return c.errorAt(m.Pos(), "unsupported property %T", m.Property)
	}
	c.emitOp(OpGetProp, dst, objReg, c.nameIndex(id.Name))
	return nil
}

func (c *Compiler) compileMember(m *ast.MemberExpression, dst int) error {
	if _, isSuper := m.Object.(*ast.SuperExpression); isSuper {
		mark := c.regMark()
		keyReg, err := c.compilePropertyKeyOrExpr(m)
		if err != nil {
			return err
		}
		c.emitOp(OpGetSuperProp, dst, keyReg)
		c.releaseTo(mark)
		return nil
	}
	mark := c.regMark()
	obj, err := c.compileExpression(m.Object)
	if err != nil {
		return err
	}
	if err := c.emitMemberGet(m, obj, dst); err != nil {
		return err
	}
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compilePropertyKeyOrExpr(m *ast.MemberExpression) (int, error) {
	if m.Computed {
		return c.compileExpression(m.Property)
	}
	return c.compilePropertyKey(m.Property, false)
}

func (c *Compiler) compileCall(t *ast.CallExpression, dst int) error {
	// super(...) call.
	if _, isSuper := t.Callee.(*ast.SuperExpression); isSuper {
		return c.compileSuperCall(t, dst)
	}

	hasSpread := false
	for _, a := range t.Arguments {
		if _, ok := a.(*ast.SpreadElement); ok {
			hasSpread = true
			break
		}
	}

	mark := c.regMark()
	fnReg := c.allocReg()
	thisReg := c.allocReg()
	c.emitOp(OpLoadUndefined, thisReg)

	if m, ok := t.Callee.(*ast.MemberExpression); ok {
		if _, isSuper := m.Object.(*ast.SuperExpression); isSuper {
			keyReg, err := c.compilePropertyKeyOrExpr(m)
			if err != nil {
				return err
			}
			c.emitOp(OpGetSuperProp, fnReg, keyReg)
			c.emitOp(OpLoadThis, thisReg)
		} else {
			if err := c.compileExpressionInto(m.Object, thisReg); err != nil {
				return err
			}
			if err := c.emitMemberGet(m, thisReg, fnReg); err != nil {
				return err
			}
		}
	} else {
		if err := c.compileExpressionInto(t.Callee, fnReg); err != nil {
			return err
		}
	}

	if t.Optional && c.chain != nil {
		c.chain.jumps = append(c.chain.jumps, c.emitJump(OpJumpIfNullish, fnReg))
	}

	if hasSpread {
		arrReg := c.allocReg()
		c.emitOp(OpNewArray, arrReg)
		tmp := c.allocReg()
		for _, a := range t.Arguments {
			if sp, ok := a.(*ast.SpreadElement); ok {
				if err := c.compileExpressionInto(sp.Argument, tmp); err != nil {
					return err
				}
				c.emitOp(OpAppendSpread, arrReg, tmp)
			} else {
				if err := c.compileExpressionInto(a, tmp); err != nil {
					return err
				}
				c.emitOp(OpAppend, arrReg, tmp)
			}
		}
		c.emitOp(OpCallSpread, dst, fnReg, thisReg, arrReg)
		c.releaseTo(mark)
		return nil
	}

	argc := len(t.Arguments)
	base := c.allocRegs(argc + 1)
	c.emitOp(OpMov, base, thisReg)
	for i, a := range t.Arguments {
		if err := c.compileExpressionInto(a, base+1+i); err != nil {
			return err
		}
	}
	c.emitOp(OpCall, dst, fnReg, base, argc)
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileSuperCall(t *ast.CallExpression, dst int) error {
	mark := c.regMark()
	argc := len(t.Arguments)
	base := c.allocRegs(argc + 1)
	c.emitOp(OpLoadUndefined, base)
	for i, a := range t.Arguments {
		if sp, ok := a.(*ast.SpreadElement); ok {
			return c.errorAt(sp.Pos(), "spread in super() is not supported")
		}
		if err := c.compileExpressionInto(a, base+1+i); err != nil {
			return err
		}
	}
	c.emitOp(OpSuperCall, dst, base, argc)
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileNew(t *ast.NewExpression, dst int) error {
	hasSpread := false
	for _, a := range t.Arguments {
		if _, ok := a.(*ast.SpreadElement); ok {
			hasSpread = true
			break
		}
	}

	mark := c.regMark()
	fnReg, err := c.compileExpression(t.Callee)
	if err != nil {
		return err
	}

	if hasSpread {
		arrReg := c.allocReg()
		c.emitOp(OpNewArray, arrReg)
		tmp := c.allocReg()
		for _, a := range t.Arguments {
			if sp, ok := a.(*ast.SpreadElement); ok {
				if err := c.compileExpressionInto(sp.Argument, tmp); err != nil {
					return err
				}
				c.emitOp(OpAppendSpread, arrReg, tmp)
			} else {
				if err := c.compileExpressionInto(a, tmp); err != nil {
					return err
				}
				c.emitOp(OpAppend, arrReg, tmp)
			}
		}
		c.emitOp(OpConstructSpread, dst, fnReg, arrReg)
		c.releaseTo(mark)
		return nil
	}

	argc := len(t.Arguments)
	base := c.allocRegs(argc + 1)
	c.emitOp(OpLoadUndefined, base)
	for i, a := range t.Arguments {
		if err := c.compileExpressionInto(a, base+1+i); err != nil {
			return err
		}
	}
	c.emitOp(OpConstruct, dst, fnReg, base, argc)
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileYield(t *ast.YieldExpression, dst int) error {
	if t.Delegate {
		return c.compileYieldDelegate(t, dst)
	}
	if t.Argument != nil {
		if err := c.compileExpressionInto(t.Argument, dst); err != nil {
			return err
		}
	} else {
		c.emitOp(OpLoadUndefined, dst)
	}
	c.emitOp(OpYield, dst)
	return nil
}

// compileYieldDelegate lowers yield*: drive the inner iterator, yielding
// each value and feeding resumed values back into next.
func (c *Compiler) compileYieldDelegate(t *ast.YieldExpression, dst int) error {
	mark := c.regMark()
	arg, err := c.compileExpression(t.Argument)
	if err != nil {
		return err
	}
	iterBase := c.allocRegs(2)
	c.emitOp(OpGetIterator, iterBase, arg)

	recv := c.allocReg()
	c.emitOp(OpLoadUndefined, recv)
	result := c.allocReg()
	done := c.allocReg()

	loopTop := c.pc()
	callBase := c.allocRegs(2)
	c.emitOp(OpMov, callBase, iterBase)
	c.emitOp(OpMov, callBase+1, recv)
	c.emitOp(OpCall, result, iterBase+1, callBase, 1)
	c.emitOp(OpGetProp, done, result, c.nameIndex("done"))
	exitJump := c.emitJump(OpJumpIfTrue, done)
	c.emitOp(OpGetProp, recv, result, c.nameIndex("value"))
	c.emitOp(OpYield, recv)
	c.emitJumpTo(OpJump, loopTop)

	c.patchJump(exitJump)
	c.emitOp(OpGetProp, dst, result, c.nameIndex("value"))
	c.releaseTo(mark)
	return nil
}

// compileBindingTarget stores src into a binding or assignment target,
// recursing through destructuring patterns. isInit selects initialization
// semantics (ending dead zones) over plain assignment.
func (c *Compiler) compileBindingTarget(pat ast.Pattern, src int, isInit bool) error {
	switch t := pat.(type) {
	case *ast.Identifier:
		if isInit {
			c.initBinding(t, src)
			return nil
		}
		return c.storeBinding(t, src)

	case *ast.MemberExpression:
		mark := c.regMark()
		obj, keyReg, err := c.compileMemberOperands(t)
		if err != nil {
			return err
		}
		c.emitOp(OpSetPropByVal, obj, keyReg, src)
		c.releaseTo(mark)
		return nil

	case *ast.DefaultPattern:
		skip := c.emitJump(OpJumpIfNotUndefined, src)
		if err := c.compileExpressionInto(t.Default, src); err != nil {
			return err
		}
		c.patchJump(skip)
		return c.compileBindingTarget(t.Target, src, isInit)

	case *ast.ArrayPattern:
		return c.compileArrayPattern(t, src, isInit)

	case *ast.ObjectPattern:
		return c.compileObjectPattern(t, src, isInit)

	case *ast.RestElement:
		return c.compileBindingTarget(t.Target, src, isInit)

	default:
		return c.errorAt(pat.Pos(), "cannot compile binding target %T", pat)
	}
}

func (c *Compiler) compileArrayPattern(t *ast.ArrayPattern, src int, isInit bool) error {
	mark := c.regMark()
	iterBase := c.allocRegs(2)
	c.emitOp(OpGetIterator, iterBase, src)

	val := c.allocReg()
	done := c.allocReg()

	for _, el := range t.Elements {
		c.emitOp(OpIteratorNext, val, done, iterBase)
		if el == nil {
			continue // elision consumes one element
		}
		// Exhausted iterators destructure undefined.
		skip := c.emitJump(OpJumpIfFalse, done)
		c.emitOp(OpLoadUndefined, val)
		c.patchJump(skip)
		if err := c.compileBindingTarget(el, val, isInit); err != nil {
			return err
		}
	}

	if t.Rest != nil {
		arr := c.allocReg()
		c.emitOp(OpNewArray, arr)
		loopTop := c.pc()
		c.emitOp(OpIteratorNext, val, done, iterBase)
		exitJump := c.emitJump(OpJumpIfTrue, done)
		c.emitOp(OpAppend, arr, val)
		c.emitJumpTo(OpJump, loopTop)
		c.patchJump(exitJump)
		if err := c.compileBindingTarget(t.Rest, arr, isInit); err != nil {
			return err
		}
	} else {
		c.emitOp(OpIteratorClose, iterBase)
	}
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileObjectPattern(t *ast.ObjectPattern, src int, isInit bool) error {
	mark := c.regMark()

	// Rest needs the extracted keys to exclude them from the copy.
	var usedKeys []int

	for _, prop := range t.Properties {
		keyReg, err := c.compilePropertyKey(prop.Key, prop.Computed)
		if err != nil {
			return err
		}
		if t.Rest != nil {
			usedKeys = append(usedKeys, keyReg)
		}
		val := c.allocReg()
		c.emitOp(OpGetPropByVal, val, src, keyReg)
		if prop.Default != nil {
			skip := c.emitJump(OpJumpIfNotUndefined, val)
			if err := c.compileExpressionInto(prop.Default, val); err != nil {
				return err
			}
			c.patchJump(skip)
		}
		if err := c.compileBindingTarget(prop.Value, val, isInit); err != nil {
			return err
		}
	}

	if t.Rest != nil {
		rest := c.allocReg()
		c.emitOp(OpNewObject, rest)
		c.emitOp(OpCopyDataProps, rest, src)
		tmp := c.allocReg()
		for _, keyReg := range usedKeys {
			c.emitOp(OpDeleteProp, tmp, rest, keyReg)
		}
		if err := c.compileBindingTarget(t.Rest, rest, isInit); err != nil {
			return err
		}
	}
	c.releaseTo(mark)
	return nil
}
