package bytecode

import (
	"testing"

	"github.com/cwbudde/go-ecma/internal/builtins"
	"github.com/cwbudde/go-ecma/internal/lexer"
	"github.com/cwbudde/go-ecma/internal/parser"
	"github.com/cwbudde/go-ecma/internal/runtime"
)

// newTestVM builds a fully initialized realm and VM.
func newTestVM(t *testing.T) (*VM, *runtime.Realm) {
	t.Helper()
	realm := runtime.NewRealm(0)
	vm := NewVM(realm, 0)
	builtins.Initialize(realm, builtins.Hooks{ExposeGC: true})
	return vm, realm
}

// run compiles and executes src, failing the test on any error.
func run(t *testing.T, vm *VM, realm *runtime.Realm, src string) runtime.Value {
	t.Helper()
	p := parser.New(lexer.New(src))
	program := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parse errors for %q: %v", src, errs)
	}
	cb, err := Compile(program, realm, "<test>")
	if err != nil {
		t.Fatalf("compile error for %q: %v", src, err)
	}
	v, err := vm.RunProgram(cb)
	if err != nil {
		t.Fatalf("runtime error for %q: %v", src, err)
	}
	if err := realm.RunJobs(); err != nil {
		t.Fatalf("job error for %q: %v", src, err)
	}
	return v
}

func TestArithmeticDispatch(t *testing.T) {
	vm, realm := newTestVM(t)

	tests := []struct {
		src      string
		expected float64
	}{
		{"1 + 2;", 3},
		{"10 - 4;", 6},
		{"6 * 7;", 42},
		{"1 / 4;", 0.25},
		{"2 ** 8;", 256},
		{"9 % 4;", 1},
		{"5 & 3;", 1},
		{"5 ^ 3;", 6},
		{"1 << 4;", 16},
		{"256 >> 4;", 16},
		{"+'42';", 42},
		{"-(8);", -8},
	}
	for i, tt := range tests {
		v := run(t, vm, realm, tt.src)
		if !v.IsNumber() || v.Num() != tt.expected {
			t.Errorf("tests[%d] (%q) - expected=%v, got=%s", i, tt.src, tt.expected, v.Inspect())
		}
	}
}

func TestComparisonsAndLogic(t *testing.T) {
	vm, realm := newTestVM(t)

	tests := []struct {
		src      string
		expected bool
	}{
		{"1 < 2;", true},
		{"2 <= 2;", true},
		{"3 > 4;", false},
		{"'a' < 'b';", true},
		{"1 == '1';", true},
		{"1 === '1';", false},
		{"null == undefined;", true},
		{"null === undefined;", false},
		{"NaN === NaN;", false},
		{"!0;", true},
		{"true && false;", false},
		{"false || true;", true},
		{"'x' in ({x: 1});", true},
	}
	for i, tt := range tests {
		v := run(t, vm, realm, tt.src)
		if !v.IsBoolean() || v.Bool() != tt.expected {
			t.Errorf("tests[%d] (%q) - expected=%v, got=%s", i, tt.src, tt.expected, v.Inspect())
		}
	}
}

func TestShortCircuitPreservesOperand(t *testing.T) {
	vm, realm := newTestVM(t)

	v := run(t, vm, realm, "0 || 'fallback';")
	if v.Str().String() != "fallback" {
		t.Errorf("|| result wrong: %s", v.Inspect())
	}
	v = run(t, vm, realm, "'left' && 'right';")
	if v.Str().String() != "right" {
		t.Errorf("&& result wrong: %s", v.Inspect())
	}
	v = run(t, vm, realm, "null ?? 'dflt';")
	if v.Str().String() != "dflt" {
		t.Errorf("?? result wrong: %s", v.Inspect())
	}
	v = run(t, vm, realm, "0 ?? 'dflt';")
	if !v.IsNumber() || v.Num() != 0 {
		t.Errorf("?? must keep non-nullish falsy operand: %s", v.Inspect())
	}
}

func TestLoopsCompile(t *testing.T) {
	vm, realm := newTestVM(t)

	v := run(t, vm, realm, `
		let total = 0;
		for (let i = 1; i <= 10; i++) total += i;
		total;`)
	if v.Num() != 55 {
		t.Errorf("for loop sum wrong: %s", v.Inspect())
	}

	v = run(t, vm, realm, `
		let n = 0;
		while (n < 8) { n += 2; }
		n;`)
	if v.Num() != 8 {
		t.Errorf("while loop wrong: %s", v.Inspect())
	}

	v = run(t, vm, realm, `
		let c = 0;
		do { c++; } while (c < 3);
		c;`)
	if v.Num() != 3 {
		t.Errorf("do-while wrong: %s", v.Inspect())
	}

	v = run(t, vm, realm, `
		let hit = 0;
		for (let i = 0; i < 10; i++) {
			if (i === 3) continue;
			if (i === 6) break;
			hit++;
		}
		hit;`)
	if v.Num() != 5 {
		t.Errorf("break/continue wrong: %s", v.Inspect())
	}
}

func TestEnvironmentDepthAcrossClosures(t *testing.T) {
	vm, realm := newTestVM(t)

	v := run(t, vm, realm, `
		function outer() {
			let a = 1;
			function middle() {
				let b = 10;
				return function inner() { return a + b; };
			}
			return middle()();
		}
		outer();`)
	if v.Num() != 11 {
		t.Errorf("nested closure capture wrong: %s", v.Inspect())
	}
}

func TestExceptionUnwindsFrames(t *testing.T) {
	vm, realm := newTestVM(t)

	v := run(t, vm, realm, `
		function thrower() { throw new TypeError('inner'); }
		function caller() { thrower(); }
		let kind = '';
		try { caller(); } catch (e) { kind = e.constructor.name; }
		kind;`)
	if v.Str().String() != "TypeError" {
		t.Errorf("exception kind wrong: %s", v.Inspect())
	}
}

func TestHandlerRestoresEnvDepth(t *testing.T) {
	vm, realm := newTestVM(t)

	v := run(t, vm, realm, `
		let log = '';
		{
			let tag = 'outer';
			try {
				{
					let tag2 = () => tag2 && 'shadow'; // escaping binding forces a scope push
					if (tag2()) throw new Error('x');
				}
			} catch (e) {
				log = tag;
			}
		}
		log;`)
	if v.Str().String() != "outer" {
		t.Errorf("env depth after unwind wrong: %s", v.Inspect())
	}
}

func TestGlobalCompletionValue(t *testing.T) {
	vm, realm := newTestVM(t)
	v := run(t, vm, realm, "1; 2; 3;")
	if v.Num() != 3 {
		t.Errorf("completion value wrong: %s", v.Inspect())
	}
}

func TestHoistedFunctions(t *testing.T) {
	vm, realm := newTestVM(t)
	v := run(t, vm, realm, `
		const early = before();
		function before() { return 'hoisted'; }
		early;`)
	if v.Str().String() != "hoisted" {
		t.Errorf("function hoisting wrong: %s", v.Inspect())
	}
}

func TestWithStatementLookup(t *testing.T) {
	vm, realm := newTestVM(t)
	v := run(t, vm, realm, `
		const box = {width: 7};
		let seen = 0;
		with (box) { seen = width; }
		seen;`)
	if v.Num() != 7 {
		t.Errorf("with lookup wrong: %s", v.Inspect())
	}
}

func TestInterruptAtBackEdge(t *testing.T) {
	vm, realm := newTestVM(t)
	p := parser.New(lexer.New("while (true) {}"))
	program := p.ParseProgram()
	cb, err := Compile(program, realm, "<test>")
	if err != nil {
		t.Fatal(err)
	}
	realm.Interrupt()
	_, err = vm.RunProgram(cb)
	if err == nil {
		t.Fatal("expected interruption error")
	}
}
