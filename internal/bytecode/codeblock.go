package bytecode

import (
	"github.com/cwbudde/go-ecma/internal/runtime"
	"github.com/cwbudde/go-ecma/pkg/token"
)

// Flags describe a compiled unit.
type Flags uint16

const (
	FlagStrict Flags = 1 << iota
	FlagArrow
	FlagGenerator
	FlagAsync
	FlagModule
	FlagGlobalCode
	FlagDerivedCtor
	FlagMappedArguments
	FlagHasRest
)

// HandlerEntry is one exception-handler table row: the instruction range
// it covers, the handler entry point, the register receiving the thrown
// value, and the environment depth to restore while unwinding.
type HandlerEntry struct {
	Start    uint32
	End      uint32
	Handler  uint32
	Reg      uint32
	EnvDepth uint32
}

// PCEntry maps an instruction offset to its source position.
type PCEntry struct {
	PC  uint32
	Pos token.Position
}

// TemplateSite is the constant record of one tagged-template call site;
// the materialized strings array is cached per site.
type TemplateSite struct {
	Cooked []string
	Raw    []string
	// CookedOK is false for cooked slots poisoned by invalid escapes
	// (they produce undefined).
	CookedOK []bool

	cached *runtime.Object
}

// CodeBlock is one compiled function, script, or module body: the
// instruction buffer, constant pools, scope and handler tables, and
// metadata.
type CodeBlock struct {
	Name string
	File string

	Code      []byte
	Constants []runtime.Value
	Names     []string
	Functions []*CodeBlock
	Scopes    []*runtime.ScopeDescriptor
	Templates []*TemplateSite
	Handlers  []HandlerEntry
	SourceMap []PCEntry

	// ScopeDesc describes the function's own environment (escaping
	// parameters and body bindings); nil when nothing escapes.
	ScopeDesc *runtime.ScopeDescriptor

	// GlobalDecls lists the top-level declarations of global and module
	// code; the VM instantiates them before dispatch.
	GlobalDecls []GlobalDecl

	// ParamSpec describes where each declared parameter lands: a register
	// (its index) plus optionally an environment slot for escaping
	// parameters.
	ParamSpec []ParamSite

	// SelfSlot and SelfReg locate the self-reference binding of a named
	// function expression; -1 when absent. The VM initializes it to the
	// function object at frame entry.
	SelfSlot int
	SelfReg  int

	RegCount  int
	NumParams int
	Flags     Flags
}

// GlobalDecl is one top-level binding of global or module code.
type GlobalDecl struct {
	Name    string
	Lexical bool
	Mutable bool
	IsFunc  bool
}

// ParamSite records one parameter's storage.
type ParamSite struct {
	Register int
	// EnvSlot is -1 for register-only parameters.
	EnvSlot int
}

// FunctionName implements runtime.CompiledCode.
func (cb *CodeBlock) FunctionName() string { return cb.Name }

// ParamCount implements runtime.CompiledCode.
func (cb *CodeBlock) ParamCount() int { return cb.NumParams }

// IsStrict implements runtime.CompiledCode.
func (cb *CodeBlock) IsStrict() bool { return cb.Flags&FlagStrict != 0 }

// IsGenerator implements runtime.CompiledCode.
func (cb *CodeBlock) IsGenerator() bool { return cb.Flags&FlagGenerator != 0 }

// IsAsync implements runtime.CompiledCode.
func (cb *CodeBlock) IsAsync() bool { return cb.Flags&FlagAsync != 0 }

// IsArrow implements runtime.CompiledCode.
func (cb *CodeBlock) IsArrow() bool { return cb.Flags&FlagArrow != 0 }

// IsModule reports module code.
func (cb *CodeBlock) IsModule() bool { return cb.Flags&FlagModule != 0 }

// PositionAt finds the source position for an instruction offset via the
// source map.
func (cb *CodeBlock) PositionAt(pc uint32) token.Position {
	var best token.Position
	for _, e := range cb.SourceMap {
		if e.PC > pc {
			break
		}
		best = e.Pos
	}
	return best
}

// HandlerFor finds the innermost handler covering pc: the covering entry
// with the narrowest range. The compiler appends a nested region's entry
// before the entry of the region that encloses it.
func (cb *CodeBlock) HandlerFor(pc uint32) (HandlerEntry, bool) {
	best, found := HandlerEntry{}, false
	for i := len(cb.Handlers) - 1; i >= 0; i-- {
		h := cb.Handlers[i]
		if pc >= h.Start && pc < h.End && (!found || h.End-h.Start < best.End-best.Start) {
			best, found = h, true
		}
	}
	return best, found
}
