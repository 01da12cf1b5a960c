package bytecode

import (
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/cwbudde/go-ecma/internal/lexer"
	"github.com/cwbudde/go-ecma/internal/parser"
	"github.com/cwbudde/go-ecma/internal/runtime"
)

func compileSource(t *testing.T, src string) *CodeBlock {
	t.Helper()
	realm := runtime.NewRealm(0)
	p := parser.New(lexer.New(src))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	cb, err := Compile(program, realm, "<test>")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return cb
}

func TestDisassembleContainsMnemonics(t *testing.T) {
	cb := compileSource(t, `
		let x = 1;
		function add(a, b) { return a + b; }
		add(x, 2);`)
	out := Disassemble(cb)

	for _, want := range []string{"LOAD_ONE", "NEW_CLOSURE", "CALL", "RETURN", "== add"} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleHandlers(t *testing.T) {
	cb := compileSource(t, `try { f(); } catch (e) { g(e); }`)
	out := Disassemble(cb)
	if !strings.Contains(out, "Handlers:") {
		t.Errorf("handler table missing from disassembly:\n%s", out)
	}
}

func TestDisassembleSnapshot(t *testing.T) {
	cb := compileSource(t, `
		function clamp(v, lo, hi) {
			if (v < lo) return lo;
			if (v > hi) return hi;
			return v;
		}
		clamp(5, 0, 3);`)
	snaps.MatchSnapshot(t, Disassemble(cb))
}

func TestCompileErrors(t *testing.T) {
	realm := runtime.NewRealm(0)
	p := parser.New(lexer.New("class C { x = 1; }"))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if _, err := Compile(program, realm, "<test>"); err == nil {
		t.Error("expected compile error for instance fields")
	}
}

func TestHandlerForInnermost(t *testing.T) {
	cb := &CodeBlock{
		Handlers: []HandlerEntry{
			{Start: 0, End: 100, Handler: 200},
			{Start: 10, End: 50, Handler: 300},
		},
	}
	h, ok := cb.HandlerFor(20)
	if !ok || h.Handler != 300 {
		t.Errorf("innermost handler not preferred: %+v", h)
	}
	h, ok = cb.HandlerFor(60)
	if !ok || h.Handler != 200 {
		t.Errorf("outer handler not found: %+v", h)
	}
	if _, ok := cb.HandlerFor(150); ok {
		t.Error("handler found outside every range")
	}
}
