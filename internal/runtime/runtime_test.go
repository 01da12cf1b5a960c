package runtime

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRealm() *Realm {
	return NewRealm(1 << 20)
}

func TestValuePredicates(t *testing.T) {
	tests := []struct {
		v    Value
		kind Kind
	}{
		{Undefined(), KindUndefined},
		{Null(), KindNull},
		{Boolean(true), KindBoolean},
		{Number(3.5), KindNumber},
		{StringValue(NewString("hi")), KindString},
		{Empty(), KindEmpty},
	}
	for i, tt := range tests {
		if tt.v.Kind() != tt.kind {
			t.Errorf("tests[%d] - kind wrong: %v", i, tt.v.Kind())
		}
	}
}

func TestSameValueAndStrictEquals(t *testing.T) {
	nan := Number(math.NaN())
	assert.True(t, SameValue(nan, nan), "SameValue treats NaN equal to NaN")
	assert.False(t, StrictEquals(nan, nan), "NaN !== NaN")

	posZero, negZero := Number(0), Number(math.Copysign(0, -1))
	assert.False(t, SameValue(posZero, negZero))
	assert.True(t, SameValueZero(posZero, negZero))
	assert.True(t, StrictEquals(posZero, negZero))

	a := NewString("abc")
	b := NewString("abc")
	assert.True(t, StrictEquals(StringValue(a), StringValue(b)), "strings compare by contents")

	s1, s2 := NewSymbol(nil), NewSymbol(nil)
	assert.False(t, StrictEquals(SymbolValue(s1), SymbolValue(s2)), "symbols compare by identity")
	assert.True(t, StrictEquals(SymbolValue(s1), SymbolValue(s1)))
}

func TestStringStorageModes(t *testing.T) {
	ascii := NewString("hello")
	require.NotNil(t, ascii.latin1, "ASCII contents must use Latin-1 storage")
	assert.Equal(t, 5, ascii.Length())

	wide := NewString("héllo世")
	if wide.latin1 != nil {
		// é is 0xE9, still Latin-1; 世 forces UTF-16.
		t.Error("string with code units above 0xFF must use UTF-16 storage")
	}
	assert.Equal(t, 6, wide.Length())

	astral := NewString("\U0001F600")
	assert.Equal(t, 2, astral.Length(), "astral characters occupy two UTF-16 units")
	assert.Equal(t, uint16(0xD83D), astral.At(0))
	assert.Equal(t, uint16(0xDE00), astral.At(1))
}

func TestStringRope(t *testing.T) {
	a := NewString("foo")
	b := NewString("bar")
	c := Concat(a, b)
	assert.True(t, c.IsRope(), "concatenation must defer flattening")
	assert.Equal(t, 6, c.Length())

	// First code-unit access flattens.
	assert.Equal(t, uint16('b'), c.At(3))
	assert.False(t, c.IsRope())
	assert.Equal(t, "foobar", c.String())
}

func TestNumberToString(t *testing.T) {
	tests := []struct {
		in       float64
		expected string
	}{
		{0, "0"},
		{42, "42"},
		{-7, "-7"},
		{1.5, "1.5"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{1e21, "1e+21"},
	}
	for i, tt := range tests {
		if got := NumberToString(tt.in); got != tt.expected {
			t.Errorf("tests[%d] - NumberToString(%v) = %q, want %q", i, tt.in, got, tt.expected)
		}
	}
}

func TestShapeSharing(t *testing.T) {
	r := newTestRealm()

	a := r.NewPlainObject()
	b := r.NewPlainObject()
	require.Same(t, a.shape, b.shape, "fresh objects share the root shape")

	_, err := CreateDataProperty(r, a, StringKey("x"), Int(1))
	require.NoError(t, err)
	_, err = CreateDataProperty(r, b, StringKey("x"), Int(2))
	require.NoError(t, err)
	assert.Same(t, a.shape, b.shape, "same insertion order must share shapes")

	_, err = CreateDataProperty(r, a, StringKey("y"), Int(3))
	require.NoError(t, err)
	assert.NotSame(t, a.shape, b.shape)

	// Identical shapes share slot indices.
	slotA, _, okA := a.shape.Lookup(StringKey("x"))
	slotB, _, okB := b.shape.Lookup(StringKey("x"))
	require.True(t, okA && okB)
	assert.Equal(t, slotA, slotB)
}

func TestObjectGetSetPrototypeChain(t *testing.T) {
	r := newTestRealm()

	proto := r.NewPlainObject()
	_, err := CreateDataProperty(r, proto, StringKey("inherited"), Int(7))
	require.NoError(t, err)

	o := r.NewObject(proto)
	v, err := Get(r, o, StringKey("inherited"))
	require.NoError(t, err)
	assert.Equal(t, 7.0, v.Num())

	_, err = Set(r, o, StringKey("inherited"), Int(8), false)
	require.NoError(t, err)
	own, err := Get(r, o, StringKey("inherited"))
	require.NoError(t, err)
	assert.Equal(t, 8.0, own.Num(), "write lands on the receiver")
	protoV, _ := Get(r, proto, StringKey("inherited"))
	assert.Equal(t, 7.0, protoV.Num(), "prototype stays untouched")
}

func TestGetOwnPropertyMatchesOwnKeys(t *testing.T) {
	r := newTestRealm()
	o := r.NewPlainObject()
	_, _ = CreateDataProperty(r, o, StringKey("b"), Int(1))
	_, _ = CreateDataProperty(r, o, StringKey("a"), Int(2))
	_, _ = CreateDataProperty(r, o, IndexKey(2), Int(3))
	_, _ = CreateDataProperty(r, o, IndexKey(0), Int(4))
	sym := NewSymbol(nil)
	_, _ = CreateDataProperty(r, o, SymbolKey(sym), Int(5))

	keys := o.methods.OwnPropertyKeys(o)
	// Indices ascending, then strings by creation, then symbols.
	var rendered []string
	for _, k := range keys {
		if k.IsSymbol() {
			rendered = append(rendered, "@@sym")
		} else {
			rendered = append(rendered, k.String())
		}
	}
	assert.Equal(t, []string{"0", "2", "b", "a", "@@sym"}, rendered)

	// Every listed key must have a descriptor and vice versa.
	for _, k := range keys {
		_, ok := o.methods.GetOwnProperty(r, o, k)
		assert.True(t, ok, "key %s has no descriptor", k.String())
	}
}

func TestDeleteForcesDictionaryMode(t *testing.T) {
	r := newTestRealm()
	o := r.NewPlainObject()
	_, _ = CreateDataProperty(r, o, StringKey("a"), Int(1))
	_, _ = CreateDataProperty(r, o, StringKey("b"), Int(2))

	ok, err := o.methods.Delete(r, o, StringKey("a"))
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, o.dict, "deletion transitions to dictionary storage")

	_, found := o.methods.GetOwnProperty(r, o, StringKey("a"))
	assert.False(t, found)
	v, err := Get(r, o, StringKey("b"))
	require.NoError(t, err)
	assert.Equal(t, 2.0, v.Num())
}

func TestNonWritableRejectsWrites(t *testing.T) {
	r := newTestRealm()
	o := r.NewPlainObject()
	_, err := DefineDataProperty(r, o, StringKey("ro"), Int(1), AttrEnumerable|AttrConfigurable)
	require.NoError(t, err)

	ok, err := Set(r, o, StringKey("ro"), Int(2), false)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Set(r, o, StringKey("ro"), Int(2), true)
	assert.Error(t, err, "strict write to read-only property must throw")
}

func TestAccessorProperty(t *testing.T) {
	r := newTestRealm()
	o := r.NewPlainObject()

	var stored Value = Int(0)
	getter := r.NewNativeFunction("get", 0, func(call *NativeCall) (Value, error) {
		return stored, nil
	})
	setter := r.NewNativeFunction("set", 1, func(call *NativeCall) (Value, error) {
		stored = call.Arg(0)
		return Undefined(), nil
	})
	_, err := DefineAccessorProperty(r, o, StringKey("p"), getter, setter, AttrEnumerable|AttrConfigurable)
	require.NoError(t, err)

	_, err = Set(r, o, StringKey("p"), Int(42), true)
	require.NoError(t, err)
	got, err := Get(r, o, StringKey("p"))
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.Num())
}

func TestEnvironmentTDZ(t *testing.T) {
	r := newTestRealm()
	global := r.NewPlainObject()
	r.Global = global
	r.GlobalEnv = r.NewGlobalEnv(global)

	desc := &ScopeDescriptor{Bindings: []BindingDesc{{Name: "x", Mutable: true}}}
	env := r.NewDeclarativeEnv(desc, r.GlobalEnv)

	_, err := GetName(r, env, "x")
	require.Error(t, err, "TDZ read must fail")
	thrown, ok := err.(*Thrown)
	require.True(t, ok)
	assert.Equal(t, "Error", thrown.Value.Obj().Class())

	env.SetSlot(0, Int(10))
	v, err := GetName(r, env, "x")
	require.NoError(t, err)
	assert.Equal(t, 10.0, v.Num())
}

func TestSetNameCreatesGlobalInSloppyMode(t *testing.T) {
	r := newTestRealm()
	global := r.NewPlainObject()
	r.Global = global
	r.GlobalEnv = r.NewGlobalEnv(global)

	require.NoError(t, SetName(r, r.GlobalEnv, "leaked", Int(1), false))
	v, err := Get(r, global, StringKey("leaked"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Num())

	err = SetName(r, r.GlobalEnv, "missing", Int(1), true)
	assert.Error(t, err, "strict write to undeclared name must fail")
}

func TestConstBindingImmutable(t *testing.T) {
	r := newTestRealm()
	desc := &ScopeDescriptor{Bindings: []BindingDesc{{Name: "c", Mutable: false}}}
	env := r.NewDeclarativeEnv(desc, nil)
	env.SetSlot(0, Int(5))

	err := SetName(r, env, "c", Int(6), true)
	require.Error(t, err)
}

func TestMapData(t *testing.T) {
	r := newTestRealm()
	m := r.NewMapObject()
	d := MapDataOf(m)

	key := ObjectValue(r.NewPlainObject())
	d.Set(key, Int(1))
	d.Set(StringValue(NewString("k")), Int(2))
	d.Set(Number(math.NaN()), Int(3))

	assert.Equal(t, 3, d.Size())
	v, ok := d.Get(Number(math.NaN()))
	require.True(t, ok, "NaN keys use SameValueZero")
	assert.Equal(t, 3.0, v.Num())

	assert.True(t, d.Delete(key))
	assert.False(t, d.Has(key))
	assert.Equal(t, 2, d.Size())
}

func TestWeakMapEphemeronCollection(t *testing.T) {
	r := newTestRealm()
	wm := r.NewWeakMapObject()
	r.Heap.Pin(wm)
	d := WeakMapDataOf(wm)

	key := r.NewPlainObject()
	value := r.NewPlainObject()
	d.Set(key, ObjectValue(value))

	require.True(t, d.Has(key))

	// While the key is pinned (a root), the entry survives collection.
	r.Heap.Pin(key)
	r.Heap.Collect()
	assert.True(t, d.Has(key), "entry must survive while key is reachable")

	// Dropping the key kills key and value both.
	r.Heap.Unpin(key)
	r.Heap.Collect()
	d.prune()
	assert.False(t, d.Has(key), "entry must die with its key")
}

func TestAddOperator(t *testing.T) {
	r := newTestRealm()

	sum, err := Add(r, Int(2), Int(3))
	require.NoError(t, err)
	assert.Equal(t, 5.0, sum.Num())

	cat, err := Add(r, StringValue(NewString("a")), Int(1))
	require.NoError(t, err)
	assert.Equal(t, "a1", cat.Str().String())

	_, err = Add(r, BigIntValue(bigFromInt(1)), Int(1))
	assert.Error(t, err, "BigInt + Number must fail")

	bsum, err := Add(r, BigIntValue(bigFromInt(2)), BigIntValue(bigFromInt(40)))
	require.NoError(t, err)
	assert.Equal(t, "42", bsum.BigInt().String())
}

func TestAbstractEquals(t *testing.T) {
	r := newTestRealm()

	tests := []struct {
		a, b     Value
		expected bool
	}{
		{Null(), Undefined(), true},
		{Int(1), StringValue(NewString("1")), true},
		{Boolean(true), Int(1), true},
		{Int(0), StringValue(NewString("")), true},
		{Int(1), Int(2), false},
		{Number(math.NaN()), Number(math.NaN()), false},
	}
	for i, tt := range tests {
		got, err := Equals(r, tt.a, tt.b)
		require.NoError(t, err)
		if got != tt.expected {
			t.Errorf("tests[%d] - Equals(%s, %s) = %v, want %v",
				i, tt.a.Inspect(), tt.b.Inspect(), got, tt.expected)
		}
	}
}

func TestTypeOf(t *testing.T) {
	r := newTestRealm()
	fn := r.NewNativeFunction("f", 0, func(call *NativeCall) (Value, error) {
		return Undefined(), nil
	})

	tests := []struct {
		v        Value
		expected string
	}{
		{Undefined(), "undefined"},
		{Null(), "object"},
		{Boolean(true), "boolean"},
		{Int(1), "number"},
		{StringValue(NewString("s")), "string"},
		{SymbolValue(NewSymbol(nil)), "symbol"},
		{ObjectValue(r.NewPlainObject()), "object"},
		{ObjectValue(fn), "function"},
	}
	for i, tt := range tests {
		if got := TypeOf(tt.v); got != tt.expected {
			t.Errorf("tests[%d] - TypeOf = %q, want %q", i, got, tt.expected)
		}
	}
}

func TestJobQueueOrder(t *testing.T) {
	r := newTestRealm()
	var log []int
	r.EnqueueJob(&Job{Fn: func() error {
		log = append(log, 1)
		r.EnqueueJob(&Job{Fn: func() error { log = append(log, 3); return nil }})
		return nil
	}})
	r.EnqueueJob(&Job{Fn: func() error { log = append(log, 2); return nil }})

	require.NoError(t, r.RunJobs())
	assert.Equal(t, []int{1, 2, 3}, log, "jobs run FIFO, nested jobs after current batch")
}

func TestInterner(t *testing.T) {
	r := newTestRealm()
	a := r.Intern("hello")
	b := r.Intern("hello")
	assert.Same(t, a, b)
}

func TestRegisteredSymbols(t *testing.T) {
	r := newTestRealm()
	a := r.RegisteredSymbol("app.key")
	b := r.RegisteredSymbol("app.key")
	assert.Same(t, a, b)
	key, ok := r.SymbolRegistryKey(a)
	require.True(t, ok)
	assert.Equal(t, "app.key", key)
}

func bigFromInt(i int64) *big.Int { return big.NewInt(i) }
