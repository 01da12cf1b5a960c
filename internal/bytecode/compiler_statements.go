package bytecode

import (
	"github.com/cwbudde/go-ecma/internal/ast"
	"github.com/cwbudde/go-ecma/internal/runtime"
)

// compileTopLevel compiles global or module code. Register 0 holds the
// completion value returned to the embedder.
func (c *Compiler) compileTopLevel(stmts []ast.Statement) error {
	c.resultReg = c.allocReg()
	c.emitOp(OpLoadUndefined, c.resultReg)

	for _, b := range c.scope.Bindings {
		c.block.GlobalDecls = append(c.block.GlobalDecls, GlobalDecl{
			Name:    b.Name,
			Lexical: b.Kind.IsLexical(),
			Mutable: b.Kind.Mutable(),
			IsFunc:  b.Kind == ast.BindFunction,
		})
	}

	if err := c.hoistFunctionDeclarations(stmts); err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	c.emitOp(OpReturn, c.resultReg)
	return nil
}

// hoistFunctionDeclarations instantiates function declarations before the
// surrounding statements run.
func (c *Compiler) hoistFunctionDeclarations(stmts []ast.Statement) error {
	for _, stmt := range stmts {
		var fn *ast.FunctionLiteral
		switch t := stmt.(type) {
		case *ast.FunctionDeclaration:
			fn = t.Function
		case *ast.ExportDeclaration:
			if inner, ok := t.Declaration.(*ast.FunctionDeclaration); ok {
				fn = inner.Function
			}
		}
		if fn == nil {
			continue
		}
		mark := c.regMark()
		reg := c.allocReg()
		if err := c.compileFunctionValue(fn, reg); err != nil {
			return err
		}
		c.initBinding(fn.Name, reg)
		c.releaseTo(mark)
	}
	return nil
}

// compileStatement dispatches one statement.
func (c *Compiler) compileStatement(stmt ast.Statement) error {
	c.markPos(stmt)
	switch t := stmt.(type) {
	case *ast.ExpressionStatement:
		mark := c.regMark()
		reg, err := c.compileExpression(t.Expression)
		if err != nil {
			return err
		}
		if c.resultReg >= 0 {
			c.emitOp(OpMov, c.resultReg, reg)
		}
		c.releaseTo(mark)
		return nil

	case *ast.VariableStatement:
		return c.compileVariableStatement(t)

	case *ast.BlockStatement:
		exit := c.enterScope(t.Scope)
		defer exit()
		if err := c.hoistFunctionDeclarations(t.Statements); err != nil {
			return err
		}
		for _, s := range t.Statements {
			if err := c.compileStatement(s); err != nil {
				return err
			}
		}
		return nil

	case *ast.EmptyStatement:
		return nil

	case *ast.IfStatement:
		return c.compileIf(t)

	case *ast.WhileStatement:
		return c.compileWhile(t)

	case *ast.DoWhileStatement:
		return c.compileDoWhile(t)

	case *ast.ForStatement:
		return c.compileFor(t)

	case *ast.ForInStatement:
		return c.compileForIn(t)

	case *ast.ForOfStatement:
		return c.compileForOf(t)

	case *ast.SwitchStatement:
		return c.compileSwitch(t)

	case *ast.BreakStatement:
		label := ""
		if t.Label != nil {
			label = t.Label.Name
		}
		loop := c.findLoop(label, false)
		if loop == nil {
			return c.errorAt(t.Pos(), "no enclosing target for break")
		}
		c.emitLoopExit(loop, true)
		return nil

	case *ast.ContinueStatement:
		label := ""
		if t.Label != nil {
			label = t.Label.Name
		}
		loop := c.findLoop(label, true)
		if loop == nil {
			return c.errorAt(t.Pos(), "no enclosing loop for continue")
		}
		c.emitLoopExit(loop, false)
		return nil

	case *ast.ReturnStatement:
		mark := c.regMark()
		var src int
		if t.Argument != nil {
			reg, err := c.compileExpression(t.Argument)
			if err != nil {
				return err
			}
			src = reg
		} else {
			src = c.allocReg()
			c.emitOp(OpLoadUndefined, src)
		}
		c.emitReturn(src)
		c.releaseTo(mark)
		return nil

	case *ast.ThrowStatement:
		mark := c.regMark()
		reg, err := c.compileExpression(t.Argument)
		if err != nil {
			return err
		}
		c.emitOp(OpThrow, reg)
		c.releaseTo(mark)
		return nil

	case *ast.TryStatement:
		return c.compileTry(t)

	case *ast.LabeledStatement:
		return c.compileLabeled(t)

	case *ast.FunctionDeclaration:
		// Instantiated during hoisting.
		return nil

	case *ast.ClassDeclaration:
		mark := c.regMark()
		reg := c.allocReg()
		if err := c.compileClassValue(t.Class, reg); err != nil {
			return err
		}
		c.initBinding(t.Class.Name, reg)
		c.releaseTo(mark)
		return nil

	case *ast.WithStatement:
		return c.compileWith(t)

	case *ast.DebuggerStatement:
		c.emitOp(OpDebugger)
		return nil

	case *ast.ImportDeclaration:
		// Import bindings are created by module linking.
		return nil

	case *ast.ExportDeclaration:
		return c.compileExport(t)

	default:
		return c.errorAt(stmt.Pos(), "cannot compile statement %T", stmt)
	}
}

func (c *Compiler) compileVariableStatement(t *ast.VariableStatement) error {
	for _, d := range t.Declarators {
		mark := c.regMark()
		switch {
		case d.Init != nil:
			reg, err := c.compileExpression(d.Init)
			if err != nil {
				return err
			}
			if err := c.compileBindingTarget(d.Target, reg, true); err != nil {
				return err
			}
		case t.Kind != ast.DeclVar:
			// let without initializer: initialize to undefined, ending the
			// dead zone. var declarations without initializers leave any
			// existing value alone.
			reg := c.allocReg()
			c.emitOp(OpLoadUndefined, reg)
			if err := c.compileBindingTarget(d.Target, reg, true); err != nil {
				return err
			}
		}
		c.releaseTo(mark)
	}
	return nil
}

func (c *Compiler) compileIf(t *ast.IfStatement) error {
	mark := c.regMark()
	test, err := c.compileExpression(t.Test)
	if err != nil {
		return err
	}
	elseJump := c.emitJump(OpJumpIfFalse, test)
	c.releaseTo(mark)

	if err := c.compileStatement(t.Consequent); err != nil {
		return err
	}
	if t.Alternate == nil {
		c.patchJump(elseJump)
		return nil
	}
	endJump := c.emitJump(OpJump)
	c.patchJump(elseJump)
	if err := c.compileStatement(t.Alternate); err != nil {
		return err
	}
	c.patchJump(endJump)
	return nil
}

// pushLoop opens a breakable context; the caller patches and pops via
// closeLoop.
func (c *Compiler) pushLoop(isIteration bool) *loopContext {
	loop := &loopContext{
		label:        c.pendingLabel,
		isIteration:  isIteration,
		envDepth:     c.envDepth,
		iterBase:     -1,
		finallyDepth: len(c.finallies),
	}
	c.pendingLabel = ""
	c.loops = append(c.loops, loop)
	return loop
}

func (c *Compiler) popLoop() {
	c.loops = c.loops[:len(c.loops)-1]
}

func (c *Compiler) findLoop(label string, needIteration bool) *loopContext {
	for i := len(c.loops) - 1; i >= 0; i-- {
		loop := c.loops[i]
		if label != "" {
			if loop.label == label && (!needIteration || loop.isIteration) {
				return loop
			}
			continue
		}
		if !needIteration || loop.isIteration {
			return loop
		}
	}
	return nil
}

// emitLoopExit routes a break or continue, running enclosing finalizers
// and closing for-of iterators on the way out.
func (c *Compiler) emitLoopExit(loop *loopContext, isBreak bool) {
	if len(c.finallies) > loop.finallyDepth {
		fc := c.finallies[len(c.finallies)-1]
		state := finallyStateExit + len(fc.pending)
		fc.pending = append(fc.pending, pendingExit{
			state: state,
			emit:  func() { c.emitLoopExit(loop, isBreak) },
		})
		c.emitLoadSmallInt(fc.stateReg, state)
		c.emitScopePops(fc.envDepth)
		fc.jumpsToFinally = append(fc.jumpsToFinally, c.emitJump(OpJump))
		return
	}

	if isBreak && loop.iterBase >= 0 {
		c.emitOp(OpIteratorClose, loop.iterBase)
	}
	c.emitScopePops(loop.envDepth)
	site := c.emitJump(OpJump)
	if isBreak {
		loop.breakJumps = append(loop.breakJumps, site)
	} else {
		loop.continueJumps = append(loop.continueJumps, site)
	}
}

// emitScopePops closes environments down to the target depth without
// changing the compiler's own bookkeeping (the jump target continues at
// the right depth).
func (c *Compiler) emitScopePops(target int) {
	for i := target; i < c.envDepth; i++ {
		c.emitOp(OpPopScope)
	}
}

// emitReturn routes a return through enclosing finalizers.
func (c *Compiler) emitReturn(src int) {
	if len(c.finallies) > 0 {
		fc := c.finallies[len(c.finallies)-1]
		c.emitOp(OpMov, fc.valueReg, src)
		c.emitLoadSmallInt(fc.stateReg, finallyStateReturn)
		c.emitScopePops(fc.envDepth)
		fc.jumpsToFinally = append(fc.jumpsToFinally, c.emitJump(OpJump))
		return
	}
	c.emitOp(OpReturn, src)
}

func (c *Compiler) emitLoadSmallInt(reg, n int) {
	switch n {
	case 0:
		c.emitOp(OpLoadZero, reg)
	case 1:
		c.emitOp(OpLoadOne, reg)
	default:
		c.emitOp(OpLoadConst, reg, c.constIndex(runtime.Int(n)))
	}
}

func (c *Compiler) compileWhile(t *ast.WhileStatement) error {
	loop := c.pushLoop(true)
	defer c.popLoop()

	loopTop := c.pc()
	mark := c.regMark()
	test, err := c.compileExpression(t.Test)
	if err != nil {
		return err
	}
	exitJump := c.emitJump(OpJumpIfFalse, test)
	c.releaseTo(mark)

	if err := c.compileStatement(t.Body); err != nil {
		return err
	}
	c.patchJumpsTo(loop.continueJumps, loopTop)
	c.emitJumpTo(OpJump, loopTop)
	c.patchJump(exitJump)
	c.patchJumpsHere(loop.breakJumps)
	return nil
}

func (c *Compiler) compileDoWhile(t *ast.DoWhileStatement) error {
	loop := c.pushLoop(true)
	defer c.popLoop()

	loopTop := c.pc()
	if err := c.compileStatement(t.Body); err != nil {
		return err
	}
	c.patchJumpsHere(loop.continueJumps)

	mark := c.regMark()
	test, err := c.compileExpression(t.Test)
	if err != nil {
		return err
	}
	c.emitJumpTo(OpJumpIfTrue, loopTop, test)
	c.releaseTo(mark)
	c.patchJumpsHere(loop.breakJumps)
	return nil
}

// compileFor lowers the classic three-clause loop. Lexical headers get a
// fresh environment per iteration so closures observe per-iteration
// bindings.
func (c *Compiler) compileFor(t *ast.ForStatement) error {
	exit := c.enterScope(t.Scope)
	defer exit()

	perIteration := t.Scope != nil && t.Scope.EscapingCount() > 0
	scopeIdx := -1
	if perIteration {
		scopeIdx = c.scopeIndexes[t.Scope]
	}

	if t.Init != nil {
		if err := c.compileStatement(t.Init); err != nil {
			return err
		}
	}
	if perIteration {
		c.emitOp(OpFreshenScope, scopeIdx)
	}

	loop := c.pushLoop(true)
	defer c.popLoop()

	loopTop := c.pc()
	var exitJump int
	hasTest := t.Test != nil
	if hasTest {
		mark := c.regMark()
		test, err := c.compileExpression(t.Test)
		if err != nil {
			return err
		}
		exitJump = c.emitJump(OpJumpIfFalse, test)
		c.releaseTo(mark)
	}

	if err := c.compileStatement(t.Body); err != nil {
		return err
	}

	c.patchJumpsHere(loop.continueJumps)
	if perIteration {
		c.emitOp(OpFreshenScope, scopeIdx)
	}
	if t.Update != nil {
		mark := c.regMark()
		if _, err := c.compileExpression(t.Update); err != nil {
			return err
		}
		c.releaseTo(mark)
	}
	c.emitJumpTo(OpJump, loopTop)

	if hasTest {
		c.patchJump(exitJump)
	}
	c.patchJumpsHere(loop.breakJumps)
	return nil
}

func (c *Compiler) compileForIn(t *ast.ForInStatement) error {
	mark := c.regMark()
	obj, err := c.compileExpression(t.Object)
	if err != nil {
		return err
	}
	iter := c.allocReg()
	c.emitOp(OpForInEnum, iter, obj)

	exit := c.enterScope(t.Scope)
	defer exit()

	loop := c.pushLoop(true)
	defer c.popLoop()

	perIteration := t.Scope != nil && t.Scope.EscapingCount() > 0

	loopTop := c.pc()
	if perIteration {
		c.emitOp(OpFreshenScope, c.scopeIndexes[t.Scope])
	}
	val := c.allocReg()
	done := c.allocReg()
	c.emitOp(OpForInNext, val, done, iter)
	exitJump := c.emitJump(OpJumpIfTrue, done)

	if err := c.compileBindingTarget(t.Target, val, t.Decl); err != nil {
		return err
	}
	if err := c.compileStatement(t.Body); err != nil {
		return err
	}
	c.patchJumpsTo(loop.continueJumps, loopTop)
	c.emitJumpTo(OpJump, loopTop)
	c.patchJump(exitJump)
	c.patchJumpsHere(loop.breakJumps)
	c.releaseTo(mark)
	return nil
}

// compileForOf lowers for-of: GetIterator, a next/done loop, and
// IteratorClose on both normal break paths and thrown exceptions.
func (c *Compiler) compileForOf(t *ast.ForOfStatement) error {
	mark := c.regMark()
	obj, err := c.compileExpression(t.Iterable)
	if err != nil {
		return err
	}
	iterBase := c.allocRegs(2)
	if t.Await {
		c.emitOp(OpGetAsyncIterator, iterBase, obj)
	} else {
		c.emitOp(OpGetIterator, iterBase, obj)
	}

	exit := c.enterScope(t.Scope)
	defer exit()

	loop := c.pushLoop(true)
	loop.iterBase = iterBase
	defer c.popLoop()

	perIteration := t.Scope != nil && t.Scope.EscapingCount() > 0

	loopTop := c.pc()
	if perIteration {
		c.emitOp(OpFreshenScope, c.scopeIndexes[t.Scope])
	}
	val := c.allocReg()
	done := c.allocReg()
	c.emitOp(OpIteratorNext, val, done, iterBase)
	exitJump := c.emitJump(OpJumpIfTrue, done)

	if t.Await {
		c.emitOp(OpAwait, val)
	}

	bodyStart := c.pc()
	if err := c.compileBindingTarget(t.Target, val, t.Decl); err != nil {
		return err
	}
	if err := c.compileStatement(t.Body); err != nil {
		return err
	}
	bodyEnd := c.pc()

	c.patchJumpsTo(loop.continueJumps, loopTop)
	c.emitJumpTo(OpJump, loopTop)

	// Abrupt exit through a throw closes the iterator before rethrowing.
	excReg := c.allocReg()
	c.block.Handlers = append(c.block.Handlers, HandlerEntry{
		Start:    uint32(bodyStart),
		End:      uint32(bodyEnd),
		Handler:  uint32(c.pc()),
		Reg:      uint32(excReg),
		EnvDepth: uint32(c.envDepth),
	})
	c.emitOp(OpIteratorClose, iterBase)
	c.emitOp(OpThrow, excReg)

	c.patchJump(exitJump)
	c.patchJumpsHere(loop.breakJumps)
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileSwitch(t *ast.SwitchStatement) error {
	mark := c.regMark()
	disc, err := c.compileExpression(t.Discriminant)
	if err != nil {
		return err
	}

	exit := c.enterScope(t.Scope)
	defer exit()

	loop := c.pushLoop(false)
	defer c.popLoop()

	// Equality tests with fall-through bodies; no jump table.
	caseJumps := make([]int, len(t.Cases))
	defaultIdx := -1
	testTmp := c.allocReg()
	for i, cs := range t.Cases {
		if cs.Test == nil {
			defaultIdx = i
			continue
		}
		tmark := c.regMark()
		testReg, err := c.compileExpression(cs.Test)
		if err != nil {
			return err
		}
		c.emitOp(OpStrictEq, testTmp, disc, testReg)
		caseJumps[i] = c.emitJump(OpJumpIfTrue, testTmp)
		c.releaseTo(tmark)
	}
	var defaultJump int
	if defaultIdx >= 0 {
		defaultJump = c.emitJump(OpJump)
	} else {
		defaultJump = c.emitJump(OpJump) // to end
	}

	ends := make([]int, len(t.Cases))
	for i, cs := range t.Cases {
		ends[i] = c.pc()
		if cs.Test != nil {
			c.patchJump(caseJumps[i])
		} else {
			c.patchJump(defaultJump)
		}
		for _, s := range cs.Body {
			if err := c.compileStatement(s); err != nil {
				return err
			}
		}
	}
	if defaultIdx < 0 {
		c.patchJump(defaultJump)
	}
	c.patchJumpsHere(loop.breakJumps)
	c.releaseTo(mark)
	return nil
}

func (c *Compiler) compileLabeled(t *ast.LabeledStatement) error {
	switch t.Body.(type) {
	case *ast.ForStatement, *ast.ForInStatement, *ast.ForOfStatement,
		*ast.WhileStatement, *ast.DoWhileStatement:
		c.pendingLabel = t.Label.Name
		return c.compileStatement(t.Body)
	default:
		loop := &loopContext{
			label:        t.Label.Name,
			envDepth:     c.envDepth,
			iterBase:     -1,
			finallyDepth: len(c.finallies),
		}
		c.loops = append(c.loops, loop)
		err := c.compileStatement(t.Body)
		c.popLoop()
		if err != nil {
			return err
		}
		c.patchJumpsHere(loop.breakJumps)
		return nil
	}
}

// compileTry lowers try/catch/finally. The finally body is reached from
// the normal, throw, and return paths; a small state machine re-dispatches
// the pending completion after the finalizer runs.
func (c *Compiler) compileTry(t *ast.TryStatement) error {
	hasCatch := t.Handler != nil
	hasFinally := t.Finalizer != nil

	var fc *finallyContext
	if hasFinally {
		fc = &finallyContext{
			stateReg: c.allocReg(),
			valueReg: c.allocReg(),
			envDepth: c.envDepth,
		}
		c.emitLoadSmallInt(fc.stateReg, finallyStateNormal)
		c.emitOp(OpLoadUndefined, fc.valueReg)
		c.finallies = append(c.finallies, fc)
	}

	tryStart := c.pc()
	if err := c.compileStatement(t.Block); err != nil {
		return err
	}
	tryEnd := c.pc()

	var normalJumps []int
	normalJumps = append(normalJumps, c.emitJump(OpJump))

	excReg := c.allocReg()
	catchLand := c.pc()

	if hasCatch {
		c.block.Handlers = append(c.block.Handlers, HandlerEntry{
			Start:    uint32(tryStart),
			End:      uint32(tryEnd),
			Handler:  uint32(catchLand),
			Reg:      uint32(excReg),
			EnvDepth: uint32(c.envDepth),
		})

		exit := c.enterScope(t.CatchScope)
		if t.CatchParam != nil {
			if err := c.compileBindingTarget(t.CatchParam, excReg, true); err != nil {
				exit()
				return err
			}
		}
		catchBodyStart := c.pc()
		if err := c.compileStatement(t.Handler); err != nil {
			exit()
			return err
		}
		exit()
		catchBodyEnd := c.pc()
		normalJumps = append(normalJumps, c.emitJump(OpJump))

		if hasFinally {
			// A throw inside the catch body still runs the finalizer.
			exc2 := c.allocReg()
			c.block.Handlers = append(c.block.Handlers, HandlerEntry{
				Start:    uint32(catchBodyStart),
				End:      uint32(catchBodyEnd),
				Handler:  uint32(c.pc()),
				Reg:      uint32(exc2),
				EnvDepth: uint32(fc.envDepth),
			})
			c.emitOp(OpMov, fc.valueReg, exc2)
			c.emitLoadSmallInt(fc.stateReg, finallyStateThrow)
			// Falls through to the finally prologue below.
		}
	} else {
		// finally without catch: the handler records the pending throw and
		// falls into the finalizer.
		c.block.Handlers = append(c.block.Handlers, HandlerEntry{
			Start:    uint32(tryStart),
			End:      uint32(tryEnd),
			Handler:  uint32(catchLand),
			Reg:      uint32(excReg),
			EnvDepth: uint32(fc.envDepth),
		})
		c.emitOp(OpMov, fc.valueReg, excReg)
		c.emitLoadSmallInt(fc.stateReg, finallyStateThrow)
	}

	if !hasFinally {
		c.patchJumpsHere(normalJumps)
		return nil
	}

	// The finally body's own completions must not route through this
	// context.
	c.finallies = c.finallies[:len(c.finallies)-1]

	c.patchJumpsHere(normalJumps)
	c.patchJumpsHere(fc.jumpsToFinally)

	if err := c.compileStatement(t.Finalizer); err != nil {
		return err
	}

	// Pending-completion dispatch.
	cmp := c.allocReg()
	stateTmp := c.allocReg()
	type arm struct {
		state int
		site  int
	}
	var arms []arm
	addArm := func(state int) {
		c.emitLoadSmallInt(stateTmp, state)
		c.emitOp(OpStrictEq, cmp, fc.stateReg, stateTmp)
		arms = append(arms, arm{state: state, site: c.emitJump(OpJumpIfTrue, cmp)})
	}
	addArm(finallyStateThrow)
	addArm(finallyStateReturn)
	for _, p := range fc.pending {
		addArm(p.state)
	}
	endJump := c.emitJump(OpJump)

	for _, a := range arms {
		c.patchJump(a.site)
		switch a.state {
		case finallyStateThrow:
			c.emitOp(OpThrow, fc.valueReg)
		case finallyStateReturn:
			c.emitReturn(fc.valueReg)
		default:
			fc.pending[a.state-finallyStateExit].emit()
		}
	}
	c.patchJump(endJump)
	return nil
}

func (c *Compiler) compileWith(t *ast.WithStatement) error {
	mark := c.regMark()
	obj, err := c.compileExpression(t.Object)
	if err != nil {
		return err
	}
	c.emitOp(OpPushWith, obj)
	c.envDepth++
	c.releaseTo(mark)

	prev := c.scope
	c.scope = t.Scope
	err = c.compileStatement(t.Body)
	c.scope = prev

	c.emitOp(OpPopScope)
	c.envDepth--
	return err
}

// compileExport lowers the runtime effects of export declarations; the
// export name wiring itself happens during module linking.
func (c *Compiler) compileExport(t *ast.ExportDeclaration) error {
	switch {
	case t.Declaration != nil:
		return c.compileStatement(t.Declaration)
	case t.Default != nil:
		mark := c.regMark()
		reg, err := c.compileExpression(t.Default)
		if err != nil {
			return err
		}
		c.emitOp(OpInitName, c.nameIndex("*default*"), reg)
		c.releaseTo(mark)
		return nil
	default:
		// Re-exports and bare specifier lists have no runtime effect
		// here.
		return nil
	}
}
