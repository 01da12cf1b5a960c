package ecma

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/go-ecma/internal/errors"
)

func newCtx(t *testing.T, options ...Option) *Context {
	t.Helper()
	options = append(options, WithExposedGC())
	return New(options...)
}

// evalString is a helper asserting the script completes with a string.
func evalString(t *testing.T, ctx *Context, src string) string {
	t.Helper()
	v, err := ctx.Eval(src)
	require.NoError(t, err, "script: %s", src)
	require.True(t, v.IsString(), "expected string result, got %s (script: %s)", v.Inspect(), src)
	return v.Str().String()
}

func evalNumber(t *testing.T, ctx *Context, src string) float64 {
	t.Helper()
	v, err := ctx.Eval(src)
	require.NoError(t, err, "script: %s", src)
	require.True(t, v.IsNumber(), "expected number result, got %s (script: %s)", v.Inspect(), src)
	return v.Num()
}

func TestEvalBasics(t *testing.T) {
	ctx := newCtx(t)

	tests := []struct {
		src      string
		expected float64
	}{
		{"1 + 2 * 3;", 7},
		{"(1 + 2) * 3;", 9},
		{"let x = 10; x / 4;", 2.5},
		{"2 ** 10;", 1024},
		{"7 % 4;", 3},
		{"1 << 5;", 32},
		{"-12 >>> 28;", 15},
		{"~5;", -6},
		{"5 | 2;", 7},
		{"typeof 1 === 'number' ? 1 : 0;", 1},
	}
	for i, tt := range tests {
		if got := evalNumber(t, ctx, tt.src); got != tt.expected {
			t.Errorf("tests[%d] (%q) - expected=%v, got=%v", i, tt.src, tt.expected, got)
		}
	}
}

func TestStringsAndTemplates(t *testing.T) {
	ctx := newCtx(t)

	assert.Equal(t, "hello world", evalString(t, ctx, "'hello' + ' ' + 'world';"))
	assert.Equal(t, "sum: 7!", evalString(t, ctx, "const a=3, b=4; `sum: ${a+b}!`;"))
	assert.Equal(t, "ABC", evalString(t, ctx, "'abc'.toUpperCase();"))
	assert.Equal(t, "b", evalString(t, ctx, "'abc'.charAt(1);"))
	assert.Equal(t, 3.0, evalNumber(t, ctx, "'abc'.length;"))
	assert.Equal(t, "a-b-c", evalString(t, ctx, "['a','b','c'].join('-');"))
}

func TestFunctionsAndClosures(t *testing.T) {
	ctx := newCtx(t)

	assert.Equal(t, 120.0, evalNumber(t, ctx, `
		function fact(n) { return n <= 1 ? 1 : n * fact(n - 1); }
		fact(5);`))

	assert.Equal(t, 3.0, evalNumber(t, ctx, `
		function counter() { let n = 0; return () => ++n; }
		const c = counter(); c(); c(); c();`))

	assert.Equal(t, 10.0, evalNumber(t, ctx, `
		const add = (a, b = 7) => a + b;
		add(3);`))

	assert.Equal(t, 6.0, evalNumber(t, ctx, `
		function sum(...xs) { return xs.reduce((a, b) => a + b, 0); }
		sum(1, 2, 3);`))

	assert.Equal(t, 3.0, evalNumber(t, ctx, `
		function len() { return arguments.length; }
		len('a', 'b', 'c');`))
}

func TestClosureCapturesLetPerIteration(t *testing.T) {
	ctx := newCtx(t)
	got := evalString(t, ctx, `
		const fs = [];
		for (let i = 0; i < 3; i++) fs.push(() => i);
		fs.map(f => f()).join(',');`)
	assert.Equal(t, "0,1,2", got)
}

func TestTemporalDeadZone(t *testing.T) {
	ctx := newCtx(t)
	got := evalString(t, ctx, `
		let out;
		{
			try { x; } catch (e) { out = e.constructor.name + ':' + (e.message.length > 0); }
			let x = 1;
		}
		out;`)
	assert.Equal(t, "ReferenceError:true", got)
}

func TestPromiseMicrotaskOrder(t *testing.T) {
	ctx := newCtx(t)
	_, err := ctx.Eval(`
		globalThis.log = [];
		Promise.resolve().then(() => log.push(1));
		Promise.resolve().then(() => log.push(2)).then(() => log.push(4));
		Promise.resolve().then(() => log.push(3));`)
	require.NoError(t, err)
	// Eval drains the job queue at its microtask checkpoint.
	got := evalString(t, ctx, "log.join(',');")
	assert.Equal(t, "1,2,3,4", got)
}

func TestGeneratorRoundTrip(t *testing.T) {
	ctx := newCtx(t)
	got := evalString(t, ctx, `
		function* g() { let x = yield 1; yield x + 10; }
		const it = g();
		[it.next().value, it.next(5).value, it.next().done].join(',');`)
	assert.Equal(t, "1,15,true", got)
}

func TestGeneratorForOf(t *testing.T) {
	ctx := newCtx(t)
	got := evalString(t, ctx, `
		function* seq() { yield 'a'; yield 'b'; yield 'c'; }
		let out = '';
		for (const v of seq()) out += v;
		out;`)
	assert.Equal(t, "abc", got)
}

func TestWeakMapKeyCollection(t *testing.T) {
	ctx := newCtx(t)
	v, err := ctx.Eval(`
		globalThis.wm = new WeakMap();
		globalThis.probe = undefined;
		(function() {
			let key = {};
			wm.set(key, 'payload');
			probe = wm.has(key);
		})();
		gc();
		probe;`)
	require.NoError(t, err)
	assert.True(t, v.Bool(), "entry must exist while the key is referenced")

	// After the closure returned and gc() ran, the key is unreachable.
	has, err := ctx.Eval(`
		gc();
		(function() {
			let alive = 0;
			// No references to the old key remain; a fresh key shows the
			// map still works.
			let k2 = {};
			wm.set(k2, 1);
			alive = wm.has(k2);
			return alive;
		})();`)
	require.NoError(t, err)
	assert.True(t, has.Bool())
}

func TestFinallyOverridesReturn(t *testing.T) {
	ctx := newCtx(t)
	got := evalString(t, ctx, `(function() { try { return 'a'; } finally { return 'b'; } })();`)
	assert.Equal(t, "b", got)
}

func TestFinallyRunsOnThrow(t *testing.T) {
	ctx := newCtx(t)
	got := evalString(t, ctx, `
		let log = '';
		try {
			try { throw new Error('boom'); } finally { log += 'f'; }
		} catch (e) { log += 'c:' + e.message; }
		log;`)
	assert.Equal(t, "fc:boom", got)
}

func TestTryCatchFinallyPaths(t *testing.T) {
	ctx := newCtx(t)
	got := evalString(t, ctx, `
		let log = [];
		function run(fail) {
			try {
				log.push('try');
				if (fail) throw new Error('x');
				return 'ok';
			} catch (e) {
				log.push('catch');
				return 'caught';
			} finally {
				log.push('finally');
			}
		}
		[run(false), run(true), log.join('-')].join('|');`)
	assert.Equal(t, "ok|caught|try-finally-try-catch-finally", got)
}

func TestErrorsAcrossBoundary(t *testing.T) {
	ctx := newCtx(t)

	_, err := ctx.Eval("undefinedName;")
	require.Error(t, err)
	se, ok := err.(*errors.ScriptError)
	require.True(t, ok, "expected ScriptError, got %T", err)
	assert.Equal(t, errors.ReferenceError, se.Kind)

	_, err = ctx.Eval("null.x;")
	require.Error(t, err)
	se = err.(*errors.ScriptError)
	assert.Equal(t, errors.TypeError, se.Kind)

	_, err = ctx.Eval("let let = 1;;;(")
	require.Error(t, err)
	se = err.(*errors.ScriptError)
	assert.Equal(t, errors.SyntaxError, se.Kind)
}

func TestErrorStackCapturedAtThrow(t *testing.T) {
	ctx := newCtx(t)
	got := evalString(t, ctx, `
		function inner() { throw new Error('deep'); }
		function outer() { inner(); }
		let stack = '';
		try { outer(); } catch (e) { stack = e.stack; }
		stack;`)
	assert.Contains(t, got, "inner")
	assert.Contains(t, got, "outer")
}

func TestClasses(t *testing.T) {
	ctx := newCtx(t)
	got := evalString(t, ctx, `
		class Animal {
			constructor(name) { this.name = name; }
			speak() { return this.name + ' makes a sound'; }
		}
		class Dog extends Animal {
			speak() { return super.speak() + ': woof'; }
		}
		new Dog('Rex').speak();`)
	assert.Equal(t, "Rex makes a sound: woof", got)

	assert.Equal(t, 1.0, evalNumber(t, ctx, `
		class Counter {
			constructor() { this.n = 0; }
			get value() { return this.n; }
			inc() { this.n++; return this; }
		}
		new Counter().inc().value;`))

	v, err := ctx.Eval(`new Dog('x') instanceof Animal;`)
	require.NoError(t, err)
	assert.True(t, v.Bool())
}

func TestDestructuring(t *testing.T) {
	ctx := newCtx(t)
	assert.Equal(t, "1,2,3,rest:4,5", evalString(t, ctx, `
		const [a, b, ...rest] = [1, 2, 3, 4, 5];
		const {x = 3} = {};
		[a, b, x, 'rest:' + rest.join(',')].join(',');`))

	assert.Equal(t, "2-1", evalString(t, ctx, `
		let p = 1, q = 2;
		[p, q] = [q, p];
		p + '-' + q;`))

	assert.Equal(t, "deep", evalString(t, ctx, `
		const {a: {b: value}} = {a: {b: 'deep'}};
		value;`))
}

func TestSpreadAndOptionalChaining(t *testing.T) {
	ctx := newCtx(t)
	assert.Equal(t, 6.0, evalNumber(t, ctx, `Math.max(...[1, 6, 3]);`))
	assert.Equal(t, "1,2,3,4", evalString(t, ctx, `[...[1, 2], ...[3, 4]].join(',');`))
	assert.Equal(t, "fallback", evalString(t, ctx, `
		const o = {};
		(o.missing?.deep ?? 'fallback');`))
	assert.Equal(t, 5.0, evalNumber(t, ctx, `
		const o2 = {m() { return 5; }};
		o2.m?.();`))
}

func TestObjectModelInvariant(t *testing.T) {
	ctx := newCtx(t)
	// GetOwnProperty(k) exists iff k is in OwnPropertyKeys.
	got := evalString(t, ctx, `
		const o = {b: 1, a: 2, 7: 'seven'};
		const keys = Object.getOwnPropertyNames(o);
		keys.every(k => Object.getOwnPropertyDescriptor(o, k) !== undefined) + ':' + keys.join(',');`)
	assert.Equal(t, "true:7,b,a", got)
}

func TestJSONRoundTrip(t *testing.T) {
	ctx := newCtx(t)
	got := evalString(t, ctx, `
		const x = {a: [1, 2.5, 'three', true, null], b: {nested: 'yes'}};
		const y = JSON.parse(JSON.stringify(x));
		[
			y.a.length === 5,
			y.a[0] === 1,
			y.a[2] === 'three',
			y.a[4] === null,
			y.b.nested === 'yes',
		].join(',');`)
	assert.Equal(t, "true,true,true,true,true", got)
}

func TestForInEnumeration(t *testing.T) {
	ctx := newCtx(t)
	got := evalString(t, ctx, `
		const proto = {inherited: 1};
		const o = Object.create(proto);
		o.own = 2;
		let keys = [];
		for (const k in o) keys.push(k);
		keys.join(',');`)
	assert.Equal(t, "own,inherited", got)
}

func TestMapAndSet(t *testing.T) {
	ctx := newCtx(t)
	assert.Equal(t, "2,b,2", evalString(t, ctx, `
		const m = new Map([['a', 1], ['b', 2]]);
		m.delete('a');
		m.set('c', 3);
		let out = [m.size];
		m.forEach((v, k) => { if (k === 'b') { out.push(k); } });
		out.push(m.get('b'));
		out.join(',');`))

	assert.Equal(t, 2.0, evalNumber(t, ctx, `
		const s = new Set([1, 2, 2, 1]);
		s.size;`))

	assert.Equal(t, "a:1|b:2", evalString(t, ctx, `
		const m2 = new Map([['a', 1], ['b', 2]]);
		const parts = [];
		for (const [k, v] of m2) parts.push(k + ':' + v);
		parts.join('|');`))
}

func TestAsyncAwait(t *testing.T) {
	ctx := newCtx(t)
	_, err := ctx.Eval(`
		globalThis.result = '';
		async function work() {
			const a = await Promise.resolve('x');
			const b = await Promise.resolve('y');
			return a + b;
		}
		work().then(v => { globalThis.result = v; });`)
	require.NoError(t, err)
	assert.Equal(t, "xy", evalString(t, ctx, "result;"))
}

func TestAsyncErrorPropagation(t *testing.T) {
	ctx := newCtx(t)
	_, err := ctx.Eval(`
		globalThis.caught = '';
		async function boom() { throw new Error('async-fail'); }
		boom().catch(e => { globalThis.caught = e.message; });`)
	require.NoError(t, err)
	assert.Equal(t, "async-fail", evalString(t, ctx, "caught;"))
}

func TestUnhandledRejectionCallback(t *testing.T) {
	var reasons []string
	ctx := New(WithUnhandledRejection(func(reason Value) {
		reasons = append(reasons, reason.Inspect())
	}))
	_, err := ctx.Eval(`Promise.reject(42);`)
	require.NoError(t, err)
	require.Len(t, reasons, 1)
	assert.Equal(t, "42", reasons[0])
}

func TestNativeFunctionRegistration(t *testing.T) {
	ctx := newCtx(t)
	double := ctx.NewFunction("double", 1, func(call *FunctionCall) (Value, error) {
		return Number(call.Arg(0).Num() * 2), nil
	})
	require.NoError(t, ctx.SetGlobal("double", ObjectValue(double)))
	assert.Equal(t, 42.0, evalNumber(t, ctx, "double(21);"))
}

func TestHandleKeepsObjectAlive(t *testing.T) {
	ctx := newCtx(t)
	v, err := ctx.Eval(`({tag: 'pinned'});`)
	require.NoError(t, err)
	h := ctx.NewHandle(v)

	// Nothing in the heap references the object; only the handle roots it.
	ctx.Collect()
	held := h.Value()
	require.True(t, held.IsObject())
	tag, err := ctx.Realm().Call(mustGetter(t, ctx), held, nil)
	require.NoError(t, err)
	assert.True(t, tag.IsObject())

	h.Release()
	assert.True(t, h.Value().IsUndefined())
}

func TestConsoleOutput(t *testing.T) {
	var buf strings.Builder
	ctx := New(WithConsole(&buf))
	_, err := ctx.Eval(`
		console.log('hello', 42);
		console.group('g');
		console.log('indented');
		console.groupEnd();`)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "hello 42")
	assert.Contains(t, out, "  indented")
}

func TestInterrupt(t *testing.T) {
	ctx := newCtx(t)
	ctx.Interrupt()
	_, err := ctx.Eval(`let i = 0; while (true) { i++; }`)
	require.Error(t, err)
	se, ok := err.(*errors.ScriptError)
	require.True(t, ok)
	assert.Equal(t, errors.RangeError, se.Kind)
}

func TestStackOverflow(t *testing.T) {
	ctx := New(WithStackLimit(64))
	_, err := ctx.Eval(`function f() { return f(); } f();`)
	require.Error(t, err)
	se, ok := err.(*errors.ScriptError)
	require.True(t, ok)
	assert.Equal(t, errors.RangeError, se.Kind)
	assert.Contains(t, se.Message, "stack overflow")
}

func TestModules(t *testing.T) {
	sources := map[string]string{
		"util": `export const twice = (x) => x * 2;
export default 'util-default';`,
		"main": `import dflt, {twice} from "util";
export const result = twice(21) + ':' + dflt;`,
	}
	var ctx *Context
	ctx = New(WithModuleLoader(func(c *Context, referrer, specifier string) (*Module, error) {
		src, ok := sources[specifier]
		if !ok {
			return nil, &errors.ScriptError{Kind: errors.TypeError, Message: "module not found: " + specifier}
		}
		return c.CompileModule(src, specifier)
	}))

	mod, err := ctx.CompileModule(sources["main"], "main")
	require.NoError(t, err)
	require.NoError(t, mod.Link())

	promise, err := mod.Evaluate()
	require.NoError(t, err)
	require.True(t, promise.IsObject())

	v, err := mod.Get("result")
	require.NoError(t, err)
	assert.Equal(t, "42:util-default", v.Str().String())
}

func TestSpecifierNormalizationCache(t *testing.T) {
	loads := map[string]int{}
	sources := map[string]string{
		"lib/a":    `export const v = 1;`,
		"lib/main": `import {v} from "./a"; import {v as v2} from "./a"; export const sum = v + v2;`,
	}
	ctx := New(WithModuleLoader(func(c *Context, referrer, specifier string) (*Module, error) {
		loads[specifier]++
		return c.CompileModule(sources[specifier], specifier)
	}))

	mod, err := ctx.CompileModule(sources["lib/main"], "lib/main")
	require.NoError(t, err)
	require.NoError(t, mod.Link())
	_, err = mod.Evaluate()
	require.NoError(t, err)

	assert.Equal(t, 1, loads["lib/a"], "duplicate requests must hit the cache")
	v, err := mod.Get("sum")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v.Num())
}

func TestSwitchFallthrough(t *testing.T) {
	ctx := newCtx(t)
	got := evalString(t, ctx, `
		function pick(n) {
			let out = '';
			switch (n) {
			case 1: out += 'one ';
			case 2: out += 'two '; break;
			default: out = 'other';
			}
			return out;
		}
		[pick(1), pick(2), pick(9)].join('|');`)
	assert.Equal(t, "one two |two |other", got)
}

func TestLabeledBreak(t *testing.T) {
	ctx := newCtx(t)
	assert.Equal(t, 6.0, evalNumber(t, ctx, `
		let total = 0;
		outer: for (let i = 0; i < 5; i++) {
			for (let j = 0; j < 5; j++) {
				if (j > i) continue outer;
				if (total > 5) break outer;
				total += 1;
			}
		}
		total;`))
}

// mustGetter returns a trivial callable used by the handle test.
func mustGetter(t *testing.T, ctx *Context) Value {
	t.Helper()
	fn := ctx.NewFunction("probe", 0, func(call *FunctionCall) (Value, error) {
		return call.This, nil
	})
	return ObjectValue(fn)
}
