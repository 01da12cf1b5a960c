package bytecode

import (
	"encoding/binary"
	"fmt"

	"github.com/cwbudde/go-ecma/internal/ast"
	"github.com/cwbudde/go-ecma/internal/runtime"
	"github.com/cwbudde/go-ecma/pkg/token"
)

// CompileError is a compiler failure with position information.
type CompileError struct {
	Message string
	Pos     token.Position
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("CompileError: %s: %s", e.Pos, e.Message)
}

// Compiler lowers one function (or the script/module top level) into a
// CodeBlock. Nested functions get their own Compiler linked through
// parent.
type Compiler struct {
	block  *CodeBlock
	realm  *runtime.Realm
	parent *Compiler

	scope *ast.Scope

	// regTop is the next free register; maxReg tracks the high-water
	// mark that sizes the frame's register file. Temporaries are
	// allocated and released in stack discipline.
	regTop int
	maxReg int

	// envDepth counts environments pushed since function entry; the
	// handler table restores it while unwinding.
	envDepth int

	// scopeEnvDepth records, per compile scope that pushed a runtime
	// environment, the depth at which it lives.
	scopeEnvDepth map[*ast.Scope]int

	// scopeIndexes caches each scope's descriptor index in the block.
	scopeIndexes map[*ast.Scope]int

	constCache map[constKey]int
	nameCache  map[string]int

	loops []*loopContext

	// pendingLabel carries a statement label into the loop it prefixes.
	pendingLabel string

	// chain is the active optional-chain context, nil outside chains.
	chain *chainContext

	// resultReg holds global code's completion value; -1 in functions.
	resultReg int

	// finallies tracks enclosing try-finally regions for completions
	// that must run finalizers on the way out.
	finallies []*finallyContext

	lastPos token.Position
}

type constKey struct {
	kind byte // 'n' number, 's' string, 'b' bigint
	str  string
	num  float64
}

// loopContext collects the patch sites of break and continue.
type loopContext struct {
	label         string
	isIteration   bool
	envDepth      int
	breakJumps    []int
	continueJumps []int

	// iterBase >= 0 marks a for-of loop whose iterator record must be
	// closed on abrupt exit.
	iterBase int

	// finallyDepth is the enclosing finally-count at loop entry; exits
	// crossing a finally region route through its state machine.
	finallyDepth int
}

// finallyContext is the pending-completion state machine of one
// try-finally.
type finallyContext struct {
	stateReg int
	valueReg int
	envDepth int

	// jumpsToFinally collects jumps into the finally prologue.
	jumpsToFinally []int

	// pending records break/continue exits routed through this finally:
	// each gets a state value and a re-dispatch closure run after the
	// finalizer.
	pending []pendingExit
}

type pendingExit struct {
	state int
	emit  func()
}

const (
	finallyStateNormal = 0
	finallyStateThrow  = 1
	finallyStateReturn = 2
	finallyStateExit   = 3 // first break/continue slot
)

// Compile lowers a parsed program into a CodeBlock for the given realm.
func Compile(program *ast.Program, realm *runtime.Realm, file string) (*CodeBlock, error) {
	c := newCompiler(realm, nil, program.Scope)
	c.block.File = file
	c.block.Name = ""
	c.block.Flags |= FlagGlobalCode
	if program.Kind == ast.ModuleSource {
		c.block.Flags |= FlagModule | FlagStrict
	}
	if program.Strict {
		c.block.Flags |= FlagStrict
	}

	if err := c.compileTopLevel(program.Statements); err != nil {
		return nil, err
	}
	c.finish()
	return c.block, nil
}

func newCompiler(realm *runtime.Realm, parent *Compiler, scope *ast.Scope) *Compiler {
	return &Compiler{
		block:         &CodeBlock{SelfSlot: -1, SelfReg: -1},
		realm:         realm,
		parent:        parent,
		scope:         scope,
		scopeEnvDepth: make(map[*ast.Scope]int),
		scopeIndexes:  make(map[*ast.Scope]int),
		constCache:    make(map[constKey]int),
		nameCache:     make(map[string]int),
		resultReg:     -1,
	}
}

func (c *Compiler) strict() bool { return c.block.Flags&FlagStrict != 0 }

func (c *Compiler) errorAt(pos token.Position, format string, args ...any) error {
	return &CompileError{Message: fmt.Sprintf(format, args...), Pos: pos}
}

// ========================================
// Registers
// ========================================

// allocReg reserves one temporary register.
func (c *Compiler) allocReg() int {
	r := c.regTop
	c.regTop++
	if c.regTop > c.maxReg {
		c.maxReg = c.regTop
	}
	return r
}

// allocRegs reserves n consecutive registers.
func (c *Compiler) allocRegs(n int) int {
	base := c.regTop
	c.regTop += n
	if c.regTop > c.maxReg {
		c.maxReg = c.regTop
	}
	return base
}

// regMark and releaseTo implement stack-discipline reuse of temporaries.
func (c *Compiler) regMark() int { return c.regTop }

func (c *Compiler) releaseTo(mark int) { c.regTop = mark }

// finish seals the block.
func (c *Compiler) finish() {
	c.emitOp(OpReturnUndefined)
	c.block.RegCount = c.maxReg
}

// ========================================
// Emission
// ========================================

func (c *Compiler) pc() int { return len(c.block.Code) }

// markPos records the source position of the next instruction.
func (c *Compiler) markPos(node ast.Node) {
	if node == nil {
		return
	}
	pos := node.Pos()
	if pos == c.lastPos {
		return
	}
	c.lastPos = pos
	c.block.SourceMap = append(c.block.SourceMap, PCEntry{PC: uint32(c.pc()), Pos: pos})
}

// emitOp writes an instruction, choosing the narrowest operand width.
func (c *Compiler) emitOp(op OpCode, operands ...int) {
	width := 1
	for _, v := range operands {
		switch {
		case v > 0xFFFF || v < 0:
			width = 4
		case v > 0xFF && width < 2:
			width = 2
		}
	}
	switch width {
	case 2:
		c.block.Code = append(c.block.Code, byte(OpWide))
	case 4:
		c.block.Code = append(c.block.Code, byte(OpExtraWide))
	}
	c.block.Code = append(c.block.Code, byte(op))
	for _, v := range operands {
		c.appendOperand(v, width)
	}
}

func (c *Compiler) appendOperand(v, width int) {
	switch width {
	case 1:
		c.block.Code = append(c.block.Code, byte(v))
	case 2:
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(v))
		c.block.Code = append(c.block.Code, buf[:]...)
	default:
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], uint32(v))
		c.block.Code = append(c.block.Code, buf[:]...)
	}
}

// emitJump writes a jump with a 32-bit offset placeholder and returns the
// patch site.
func (c *Compiler) emitJump(op OpCode, operands ...int) int {
	c.block.Code = append(c.block.Code, byte(OpExtraWide), byte(op))
	for _, v := range operands {
		c.appendOperand(v, 4)
	}
	site := c.pc()
	c.appendOperand(0, 4)
	return site
}

// patchJump points a previously emitted jump at the current pc.
func (c *Compiler) patchJump(site int) {
	offset := c.pc() - (site + 4)
	binary.LittleEndian.PutUint32(c.block.Code[site:], uint32(int32(offset)))
}

// patchJumpsHere points a list of jump sites at the current pc.
func (c *Compiler) patchJumpsHere(sites []int) {
	for _, site := range sites {
		c.patchJump(site)
	}
}

// patchJumpsTo points jump sites at a known target.
func (c *Compiler) patchJumpsTo(sites []int, target int) {
	for _, site := range sites {
		offset := target - (site + 4)
		binary.LittleEndian.PutUint32(c.block.Code[site:], uint32(int32(offset)))
	}
}

// emitJumpTo writes a jump to a known (usually backward) target.
func (c *Compiler) emitJumpTo(op OpCode, target int, operands ...int) {
	c.block.Code = append(c.block.Code, byte(OpExtraWide), byte(op))
	for _, v := range operands {
		c.appendOperand(v, 4)
	}
	offset := target - (c.pc() + 4)
	c.appendOperand(offset, 4)
}

// ========================================
// Pools
// ========================================

// constIndex interns a constant value.
func (c *Compiler) constIndex(v runtime.Value) int {
	var key constKey
	switch v.Kind() {
	case runtime.KindNumber:
		key = constKey{kind: 'n', num: v.Num()}
	case runtime.KindString:
		key = constKey{kind: 's', str: v.Str().Key()}
	case runtime.KindBigInt:
		key = constKey{kind: 'b', str: v.BigInt().String()}
	default:
		c.block.Constants = append(c.block.Constants, v)
		return len(c.block.Constants) - 1
	}
	if idx, ok := c.constCache[key]; ok {
		return idx
	}
	c.block.Constants = append(c.block.Constants, v)
	idx := len(c.block.Constants) - 1
	c.constCache[key] = idx
	return idx
}

// nameIndex interns an identifier or property name.
func (c *Compiler) nameIndex(name string) int {
	if idx, ok := c.nameCache[name]; ok {
		return idx
	}
	c.block.Names = append(c.block.Names, name)
	idx := len(c.block.Names) - 1
	c.nameCache[name] = idx
	return idx
}

// functionIndex stores a nested code block.
func (c *Compiler) functionIndex(cb *CodeBlock) int {
	c.block.Functions = append(c.block.Functions, cb)
	return len(c.block.Functions) - 1
}

// ========================================
// Scopes and bindings
// ========================================

// pushesEnv reports whether a compile scope owns a runtime environment.
func pushesEnv(s *ast.Scope) bool {
	switch s.Kind {
	case ast.ScopeGlobal, ast.ScopeModule, ast.ScopeWith:
		return true
	case ast.ScopeFunction:
		return !s.IsArrow || s.EscapingCount() > 0
	default:
		return s.EscapingCount() > 0
	}
}

// descriptorFor builds (and caches) the runtime scope descriptor of a
// compile scope, assigning environment slots to escaping bindings.
func (c *Compiler) descriptorFor(s *ast.Scope) int {
	if idx, ok := c.scopeIndexes[s]; ok {
		return idx
	}
	desc := &runtime.ScopeDescriptor{Kind: runtime.EnvDeclarative}
	slot := 0
	for _, b := range s.Bindings {
		if !b.Escapes {
			continue
		}
		b.Slot = slot
		desc.Bindings = append(desc.Bindings, runtime.BindingDesc{
			Name:    b.Name,
			Mutable: b.Kind.Mutable(),
		})
		slot++
	}
	c.block.Scopes = append(c.block.Scopes, desc)
	idx := len(c.block.Scopes) - 1
	c.scopeIndexes[s] = idx
	return idx
}

// enterScope opens a compile scope, emitting the runtime push when it owns
// an environment, and returns an exit closure.
func (c *Compiler) enterScope(s *ast.Scope) func() {
	if s == nil {
		return func() {}
	}
	prev := c.scope
	c.scope = s
	pushed := false
	if s.Kind != ast.ScopeFunction && s.Kind != ast.ScopeGlobal &&
		s.Kind != ast.ScopeModule && pushesEnv(s) && s.Kind != ast.ScopeWith {
		idx := c.descriptorFor(s)
		c.emitOp(OpPushScope, idx)
		c.envDepth++
		c.scopeEnvDepth[s] = c.envDepth
		pushed = true
	}
	// Register-allocated bindings get stable registers; lexical ones
	// start in their dead zone.
	for _, b := range s.Bindings {
		if b.Escapes {
			continue
		}
		if b.Slot < 0 {
			b.Slot = c.allocReg()
		}
		if b.Kind.IsLexical() {
			c.emitOp(OpLoadEmpty, b.Slot)
		}
	}
	return func() {
		if pushed {
			c.emitOp(OpPopScope)
			c.envDepth--
		}
		c.scope = prev
	}
}

// depthOf computes the runtime environment depth from the current point to
// the binding's scope.
func (c *Compiler) depthOf(b *ast.Binding) int {
	depth := 0
	for s := c.scope; s != nil; s = s.Outer {
		if s == b.Scope {
			return depth
		}
		if pushesEnv(s) {
			depth++
		}
	}
	return depth
}

// bindingStorage describes where a binding lives from the current site.
type bindingStorage struct {
	register int // >= 0 when register-allocated in this function
	depth    int
	slot     int
	name     string
	byName   bool // global/module/poisoned: runtime name lookup
	mutable  bool
	lexical  bool
}

// storageOf resolves how to address a binding (or a free name).
func (c *Compiler) storageOf(id *ast.Identifier) bindingStorage {
	b := id.Binding
	if b == nil {
		return bindingStorage{byName: true, name: id.Name, mutable: true}
	}
	if b.Scope.Kind == ast.ScopeGlobal || b.Scope.Kind == ast.ScopeModule {
		return bindingStorage{byName: true, name: b.Name, mutable: b.Kind.Mutable(), lexical: b.Kind.IsLexical()}
	}
	if !b.Escapes {
		if b.Scope.Function == c.scope.Function {
			return bindingStorage{register: b.Slot, depth: -1, mutable: b.Kind.Mutable(), lexical: b.Kind.IsLexical(), name: b.Name}
		}
		// Crossing a function boundary without escaping cannot happen
		// after resolution; fall back to a name lookup for safety.
		return bindingStorage{byName: true, name: b.Name, mutable: b.Kind.Mutable()}
	}
	return bindingStorage{
		register: -1,
		depth:    c.depthOf(b),
		slot:     b.Slot,
		name:     b.Name,
		mutable:  b.Kind.Mutable(),
		lexical:  b.Kind.IsLexical(),
	}
}

// loadBinding reads a binding into dst.
func (c *Compiler) loadBinding(id *ast.Identifier, dst int) {
	st := c.storageOf(id)
	switch {
	case st.byName:
		c.emitOp(OpGetName, dst, c.nameIndex(st.name))
	case st.register >= 0:
		c.emitOp(OpMov, dst, st.register)
		if st.lexical {
			c.emitOp(OpCheckTDZ, dst, c.nameIndex(st.name))
		}
	default:
		c.emitOp(OpGetScoped, dst, st.depth, st.slot)
	}
}

// storeBinding assigns src to a binding (normal assignment semantics).
func (c *Compiler) storeBinding(id *ast.Identifier, src int) error {
	st := c.storageOf(id)
	switch {
	case st.byName:
		c.emitOp(OpSetName, c.nameIndex(st.name), src)
	case st.register >= 0:
		if st.lexical {
			tmp := c.allocReg()
			c.emitOp(OpMov, tmp, st.register)
			c.emitOp(OpCheckTDZ, tmp, c.nameIndex(st.name))
			c.releaseTo(tmp)
		}
		if !st.mutable {
			return c.errorAt(id.Pos(), "assignment to constant variable %q", st.name)
		}
		c.emitOp(OpMov, st.register, src)
	default:
		if !st.mutable {
			// Const reassignment through a closure is a runtime
			// TypeError; OpSetScoped performs the check.
		}
		c.emitOp(OpSetScoped, st.depth, st.slot, src)
	}
	return nil
}

// initBinding initializes a binding at its declaration site, ending the
// dead zone.
func (c *Compiler) initBinding(id *ast.Identifier, src int) {
	st := c.storageOf(id)
	switch {
	case st.byName:
		c.emitOp(OpInitName, c.nameIndex(st.name), src)
	case st.register >= 0:
		c.emitOp(OpMov, st.register, src)
	default:
		c.emitOp(OpInitScoped, st.depth, st.slot, src)
	}
}
