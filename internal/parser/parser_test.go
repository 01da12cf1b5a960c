package parser

import (
	"testing"

	"github.com/cwbudde/go-ecma/internal/ast"
	"github.com/cwbudde/go-ecma/internal/lexer"
)

// parseProgram is a test helper that fails the test on syntax errors.
func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors for %q: %v", input, errs)
	}
	return program
}

// parseError is a test helper that expects at least one syntax error.
func parseError(t *testing.T, input string) []*Error {
	t.Helper()
	p := New(lexer.New(input))
	p.ParseProgram()
	errs := p.Errors()
	if len(errs) == 0 {
		t.Fatalf("expected syntax error for %q", input)
	}
	return errs
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"a + b * c", "(a + (b * c));"},
		{"a * b + c", "((a * b) + c);"},
		{"-a * b", "((-a) * b);"},
		{"!-a", "(!(-a));"},
		{"a + b + c", "((a + b) + c);"},
		{"a ** b ** c", "(a ** (b ** c));"},
		{"a == b < c", "(a == (b < c));"},
		{"a && b || c", "((a && b) || c);"},
		{"a ?? b", "(a ?? b);"},
		{"a | b ^ c & d", "(a | (b ^ (c & d)));"},
		{"a << 2 + 1", "(a << (2 + 1));"},
		{"typeof a === 'object'", "((typeof a) === 'object');"},
		{"a = b = c", "(a = (b = c));"},
		{"a ? b : c ? d : e", "(a ? b : (c ? d : e));"},
		{"a, b, c", "(a, b, c);"},
		{"x in y", "(x in y);"},
		{"x instanceof Y", "(x instanceof Y);"},
		{"a + b / 2", "(a + (b / 2));"},
	}

	for i, tt := range tests {
		program := parseProgram(t, tt.input)
		if got := program.String(); got != tt.expected {
			t.Errorf("tests[%d] (%q) - expected=%q, got=%q", i, tt.input, tt.expected, got)
		}
	}
}

func TestStatementForms(t *testing.T) {
	tests := []string{
		"let x = 5;",
		"const y = [1, 2, 3];",
		"var z;",
		"if (a) { b(); } else { c(); }",
		"while (x < 10) { x++; }",
		"do { x--; } while (x);",
		"for (let i = 0; i < 3; i++) { f(i); }",
		"for (const k in obj) { f(k); }",
		"for (const v of list) { f(v); }",
		"switch (x) { case 1: f(); break; default: g(); }",
		"try { f(); } catch (e) { g(e); } finally { h(); }",
		"try { f(); } catch { g(); }",
		"throw new Error('boom');",
		"function add(a, b) { return a + b; }",
		"class Point { constructor(x, y) { this.x = x; this.y = y; } get len() { return 0; } }",
		"label: for (;;) { break label; }",
		"x => x + 1;",
		"(a, b) => ({a, b});",
		"async function f() { await g(); }",
		"function* gen() { yield 1; yield* inner(); }",
		"const {a, b: c = 1, ...rest} = obj;",
		"const [x, , y = 2, ...zs] = arr;",
		"([a, b] = pair);",
		"o = {m() {}, get p() { return 1; }, set p(v) {}, [k]: 2, ...spread};",
		"f(...args);",
		"new Foo(1, 2);",
		"new Foo;",
		"a?.b?.[c]?.();",
		"tag`a${x}b`;",
		"debugger;",
	}

	for i, input := range tests {
		program := parseProgram(t, input)
		if len(program.Statements) == 0 {
			t.Errorf("tests[%d] (%q) - no statements parsed", i, input)
		}
	}
}

func TestASI(t *testing.T) {
	// Semicolons inserted at newlines, "}" and EOF.
	program := parseProgram(t, "a = 1\nb = 2")
	if len(program.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(program.Statements))
	}

	// return with a newline returns undefined.
	program = parseProgram(t, "function f() { return\n1 }")
	fn := program.Statements[0].(*ast.FunctionDeclaration).Function
	ret, ok := fn.Body.Statements[0].(*ast.ReturnStatement)
	if !ok {
		t.Fatalf("expected return statement, got %T", fn.Body.Statements[0])
	}
	if ret.Argument != nil {
		t.Error("return argument must be cut off by the line terminator")
	}

	// Postfix update must not attach across a newline.
	program = parseProgram(t, "a\n++b")
	if len(program.Statements) != 2 {
		t.Fatalf("expected 2 statements (ASI before ++), got %d", len(program.Statements))
	}

	// No ASI without a newline.
	parseError(t, "a = 1 b = 2")
}

func TestArrowCoverGrammar(t *testing.T) {
	tests := []struct {
		input  string
		params int
	}{
		{"() => 1;", 0},
		{"x => x;", 1},
		{"(x) => x;", 1},
		{"(a, b) => a + b;", 2},
		{"({a, b}) => a;", 1},
		{"([x, y]) => x;", 1},
		{"(a = 1, ...rest) => rest;", 2},
		{"async (a) => a;", 1},
		{"async x => x;", 1},
	}

	for i, tt := range tests {
		program := parseProgram(t, tt.input)
		stmt := program.Statements[0].(*ast.ExpressionStatement)
		arrow, ok := stmt.Expression.(*ast.ArrowFunction)
		if !ok {
			t.Fatalf("tests[%d] (%q) - expected arrow, got %T", i, tt.input, stmt.Expression)
		}
		if len(arrow.Params) != tt.params {
			t.Errorf("tests[%d] (%q) - expected %d params, got %d",
				i, tt.input, tt.params, len(arrow.Params))
		}
	}

	// Parenthesized expression stays an expression.
	program := parseProgram(t, "(a, b);")
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	if _, ok := stmt.Expression.(*ast.SequenceExpression); !ok {
		t.Errorf("expected sequence expression, got %T", stmt.Expression)
	}
}

func TestDestructuringRewrite(t *testing.T) {
	program := parseProgram(t, "[a, b.c, ...d] = xs;")
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	assign := stmt.Expression.(*ast.AssignmentExpression)
	pat, ok := assign.Target.(*ast.ArrayPattern)
	if !ok {
		t.Fatalf("expected array pattern target, got %T", assign.Target)
	}
	if len(pat.Elements) != 2 || pat.Rest == nil {
		t.Errorf("pattern shape wrong: %s", pat)
	}
	if _, ok := pat.Elements[1].(*ast.MemberExpression); !ok {
		t.Errorf("member expression target lost: %T", pat.Elements[1])
	}
}

func TestEarlyErrors(t *testing.T) {
	tests := []string{
		"let a; let a;",                      // duplicate lexical
		"let a; var a;",                      // var over let
		"const c;",                           // const without initializer
		"'use strict'; x = 010;",             // octal in strict mode
		"'use strict'; with (o) {}",          // with in strict mode
		"'use strict'; var eval;",            // restricted binding name
		"'use strict'; function f(a, a) {}",  // duplicate params in strict
		"function f(a, {b}, a) {}",           // duplicate params with non-simple list
		"return 1;",                          // return outside function
		"break;",                             // break outside loop/switch
		"continue;",                          // continue outside loop
		"a ?? b || c",                        // ?? mixed with ||
		"a && b ?? c",                        // ?? mixed with &&
		"5 = x;",                             // invalid assignment target
		"f() = 1;",                           // call is not a target
		"switch (x) { default: ; default: ; }", // two defaults
		"lbl: lbl: f();",                     // duplicate label
		"break missing;",                     // unknown label
		"function f() { 'use strict'; let arguments; }", // strict binding
		"new.target;",                        // new.target outside function
		"class C { constructor() {} *constructor() {} }", // generator constructor
		"`${'unterminated'}",                 // unterminated template
	}

	for i, input := range tests {
		p := New(lexer.New(input))
		p.ParseProgram()
		if len(p.Errors()) == 0 {
			t.Errorf("tests[%d] (%q) - expected early error", i, input)
		}
	}
}

func TestModuleParsing(t *testing.T) {
	input := `import d, {a, b as c} from "./m";
import * as ns from "other";
export const x = 1;
export default function f() {}
export {x as y};
export * from "./again";
`
	p := NewModule(lexer.New(input))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("module parse errors: %v", errs)
	}
	if program.Kind != ast.ModuleSource {
		t.Error("program kind is not module")
	}
	if !program.Scope.Strict {
		t.Error("module code must be strict")
	}
	if len(program.Statements) != 6 {
		t.Fatalf("expected 6 statements, got %d", len(program.Statements))
	}
}

func TestImportExportOnlyInModules(t *testing.T) {
	parseError(t, `import {a} from "m";`)
	parseError(t, `export const x = 1;`)
}

func TestScopeResolution(t *testing.T) {
	program := parseProgram(t, "let x = 1; function f() { return x; } f();")

	let := program.Statements[0].(*ast.VariableStatement)
	x := let.Declarators[0].Target.(*ast.Identifier)
	if x.Binding == nil {
		t.Fatal("declaration target has no binding")
	}
	if !x.Binding.Escapes {
		t.Error("top-level binding must escape (it lives in the global environment)")
	}

	fn := program.Statements[1].(*ast.FunctionDeclaration).Function
	ret := fn.Body.Statements[0].(*ast.ReturnStatement)
	ref := ret.Argument.(*ast.Identifier)
	if ref.Binding != x.Binding {
		t.Error("inner reference did not resolve to the outer binding")
	}
}

func TestClosureCaptureMarksEscape(t *testing.T) {
	program := parseProgram(t, "function outer() { let n = 0; return () => n; }")
	outer := program.Statements[0].(*ast.FunctionDeclaration).Function
	let := outer.Body.Statements[0].(*ast.VariableStatement)
	n := let.Declarators[0].Target.(*ast.Identifier)
	if n.Binding == nil {
		t.Fatal("binding missing")
	}
	if !n.Binding.Escapes {
		t.Error("binding captured by arrow must be marked escaping")
	}
}

func TestLocalStaysInRegister(t *testing.T) {
	program := parseProgram(t, "function f() { let local = 1; return local; }")
	fn := program.Statements[0].(*ast.FunctionDeclaration).Function
	let := fn.Body.Statements[0].(*ast.VariableStatement)
	local := let.Declarators[0].Target.(*ast.Identifier)
	if local.Binding.Escapes {
		t.Error("uncaptured local must not escape")
	}
}

func TestWithPoisonsResolution(t *testing.T) {
	program := parseProgram(t, "function f(o) { with (o) { return x; } }")
	fn := program.Statements[0].(*ast.FunctionDeclaration).Function
	with := fn.Body.Statements[0].(*ast.WithStatement)
	ret := with.Body.(*ast.BlockStatement).Statements[0].(*ast.ReturnStatement)
	ref := ret.Argument.(*ast.Identifier)
	if ref.Binding != nil {
		t.Error("reference inside with must stay unresolved for runtime lookup")
	}
}

func TestRegexAfterOperators(t *testing.T) {
	program := parseProgram(t, "const ok = a / b; const re = /ab+/g; x = b / c / d;")
	if len(program.Statements) != 3 {
		t.Fatalf("expected 3 statements, got %d", len(program.Statements))
	}
	re := program.Statements[1].(*ast.VariableStatement).Declarators[0].Init
	if _, ok := re.(*ast.RegExpLiteral); !ok {
		t.Errorf("expected regexp literal, got %T", re)
	}
}

func TestTemplateExpression(t *testing.T) {
	program := parseProgram(t, "`sum: ${a + b}!`;")
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	tpl := stmt.Expression.(*ast.TemplateLiteral)
	if len(tpl.Quasis) != 2 || len(tpl.Expressions) != 1 {
		t.Fatalf("template shape wrong: %d quasis, %d exprs", len(tpl.Quasis), len(tpl.Expressions))
	}
	if tpl.Quasis[0].Cooked != "sum: " || tpl.Quasis[1].Cooked != "!" {
		t.Errorf("cooked values wrong: %q %q", tpl.Quasis[0].Cooked, tpl.Quasis[1].Cooked)
	}
}

func TestLetAsIdentifierInSloppyMode(t *testing.T) {
	program := parseProgram(t, "let = 5; let + 1;")
	if len(program.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(program.Statements))
	}
}
