package ast

import "testing"

func TestDeclareAndLookup(t *testing.T) {
	global := NewScope(nil, ScopeGlobal)
	fn := NewScope(global, ScopeFunction)
	block := NewScope(fn, ScopeBlock)

	if _, err := global.Declare("g", BindVar); err != nil {
		t.Fatalf("declare g: %v", err)
	}
	if _, err := fn.Declare("x", BindParam); err != nil {
		t.Fatalf("declare x: %v", err)
	}
	if _, err := block.Declare("y", BindLet); err != nil {
		t.Fatalf("declare y: %v", err)
	}

	b, poisoned := block.Lookup("x")
	if b == nil || b.Scope != fn {
		t.Fatalf("x did not resolve to function scope")
	}
	if poisoned {
		t.Error("unexpected poisoned resolution")
	}
	if b, _ := block.Lookup("g"); b == nil || b.Scope != global {
		t.Error("g did not resolve to global scope")
	}
	if b, _ := block.Lookup("missing"); b != nil {
		t.Error("missing name resolved")
	}
}

func TestDuplicateLexicalDeclaration(t *testing.T) {
	s := NewScope(nil, ScopeGlobal)
	if _, err := s.Declare("a", BindLet); err != nil {
		t.Fatalf("first declare: %v", err)
	}
	if _, err := s.Declare("a", BindLet); err == nil {
		t.Error("expected duplicate let declaration error")
	}
	if _, err := s.Declare("a", BindVar); err == nil {
		t.Error("expected var-over-let declaration error")
	}
}

func TestVarRedeclarationAllowed(t *testing.T) {
	s := NewScope(nil, ScopeGlobal)
	if _, err := s.Declare("a", BindVar); err != nil {
		t.Fatalf("first declare: %v", err)
	}
	if _, err := s.Declare("a", BindVar); err != nil {
		t.Errorf("var redeclaration should be legal: %v", err)
	}
}

func TestVarHoisting(t *testing.T) {
	global := NewScope(nil, ScopeGlobal)
	fn := NewScope(global, ScopeFunction)
	block := NewScope(fn, ScopeBlock)

	b, err := block.DeclareVar("v", BindVar)
	if err != nil {
		t.Fatalf("hoisted declare: %v", err)
	}
	if b.Scope != fn {
		t.Errorf("var did not hoist to function scope, got %v", b.Scope.Kind)
	}
	if !fn.Has("v") || block.Has("v") {
		t.Error("hoisted binding recorded in wrong scope")
	}
}

func TestVarConflictsWithLexical(t *testing.T) {
	fn := NewScope(nil, ScopeFunction)
	block := NewScope(fn, ScopeBlock)
	if _, err := block.Declare("x", BindLet); err != nil {
		t.Fatalf("let declare: %v", err)
	}
	if _, err := block.DeclareVar("x", BindVar); err == nil {
		t.Error("var hoisting across a let of the same name must fail")
	}
}

func TestPoisonedLookup(t *testing.T) {
	fn := NewScope(nil, ScopeFunction)
	if _, err := fn.Declare("x", BindVar); err != nil {
		t.Fatal(err)
	}
	with := NewScope(fn, ScopeWith)
	with.Poisoned = true
	inner := NewScope(with, ScopeBlock)

	b, poisoned := inner.Lookup("x")
	if b == nil {
		t.Fatal("x did not resolve")
	}
	if !poisoned {
		t.Error("resolution through a with scope must be poisoned")
	}
}

func TestPoisonChainMarksEscapes(t *testing.T) {
	fn := NewScope(nil, ScopeFunction)
	b, _ := fn.Declare("x", BindLet)
	block := NewScope(fn, ScopeBlock)
	block.PoisonChain()
	if !b.Escapes {
		t.Error("direct eval must force enclosing bindings to escape")
	}
	if !fn.Poisoned || !block.Poisoned {
		t.Error("poison must propagate outward")
	}
}

func TestEscapingCount(t *testing.T) {
	s := NewScope(nil, ScopeFunction)
	a, _ := s.Declare("a", BindLet)
	_, _ = s.Declare("b", BindLet)
	a.MarkEscapes()
	if got := s.EscapingCount(); got != 1 {
		t.Errorf("EscapingCount wrong. expected=1, got=%d", got)
	}
}
