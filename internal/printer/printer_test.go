package printer

import (
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/cwbudde/go-ecma/internal/lexer"
	"github.com/cwbudde/go-ecma/internal/parser"
)

// parse parses source, fails the test on errors, and returns the printed
// program.
func parse(t *testing.T, src string) string {
	t.Helper()
	p := parser.New(lexer.New(src))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parse errors for %q: %v", src, errs)
	}
	return Print(program)
}

func TestRoundTrip(t *testing.T) {
	sources := []string{
		"let x = 1 + 2 * 3;",
		"function add(a, b) { return a + b; }",
		"const f = (x) => x * 2;",
		"if (a) { b(); } else { c(); }",
		"for (let i = 0; i < 10; i++) { f(i); }",
		"for (const v of xs) { g(v); }",
		"const {a, b = 2, ...rest} = o;",
		"try { f(); } catch (e) { g(e); } finally { h(); }",
		"class C { constructor() { this.n = 0; } inc() { this.n++; } }",
		"while (x) { x = next(x); }",
		"switch (k) { case 1: a(); break; default: b(); }",
		"obj = {x: 1, y() { return 2; }, [z]: 3};",
		"tagged`one ${a} two ${b} three`;",
	}

	for i, src := range sources {
		first := parse(t, src)
		second := parse(t, first)
		if first != second {
			diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
				A:        difflib.SplitLines(first),
				B:        difflib.SplitLines(second),
				FromFile: "first print",
				ToFile:   "second print",
				Context:  2,
			})
			t.Errorf("tests[%d] (%q) - round trip not stable:\n%s", i, src, diff)
		}
	}
}

func TestPrintSnapshot(t *testing.T) {
	src := strings.Join([]string{
		"const fs = [];",
		"for (let i = 0; i < 3; i++) fs.push(() => i);",
		"function* g() { let x = yield 1; yield x + 10; }",
		"class Counter { constructor() { this.n = 0; } get value() { return this.n; } }",
	}, "\n")

	p := parser.New(lexer.New(src))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	snaps.MatchSnapshot(t, Print(program))
}
