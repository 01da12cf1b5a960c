package runtime

import (
	"math"
	"strconv"
)

// Attributes packs a property's flags.
type Attributes uint8

const (
	AttrWritable Attributes = 1 << iota
	AttrEnumerable
	AttrConfigurable
	// AttrAccessor marks accessor properties; Writable is meaningless for
	// them.
	AttrAccessor
)

// DefaultDataAttrs are the attributes of plain assignment-created
// properties.
const DefaultDataAttrs = AttrWritable | AttrEnumerable | AttrConfigurable

// MethodAttrs are the attributes of built-in methods: writable and
// configurable but not enumerable.
const MethodAttrs = AttrWritable | AttrConfigurable

func (a Attributes) Writable() bool     { return a&AttrWritable != 0 }
func (a Attributes) Enumerable() bool   { return a&AttrEnumerable != 0 }
func (a Attributes) Configurable() bool { return a&AttrConfigurable != 0 }
func (a Attributes) Accessor() bool     { return a&AttrAccessor != 0 }

// PropertyKey is a string or symbol property key. String keys are stored in
// their canonical WTF-8 form; array indices additionally cache their
// numeric value.
type PropertyKey struct {
	str   string
	sym   *Symbol
	idx   uint32
	isIdx bool
}

// StringKey builds a key from canonical string text.
func StringKey(s string) PropertyKey {
	k := PropertyKey{str: s}
	if idx, ok := parseArrayIndex(s); ok {
		k.idx = idx
		k.isIdx = true
	}
	return k
}

// SymbolKey builds a key from a symbol.
func SymbolKey(sym *Symbol) PropertyKey { return PropertyKey{sym: sym} }

// IndexKey builds a key for an array index.
func IndexKey(i uint32) PropertyKey {
	return PropertyKey{str: strconv.FormatUint(uint64(i), 10), idx: i, isIdx: true}
}

// IsSymbol reports whether the key is a symbol.
func (k PropertyKey) IsSymbol() bool { return k.sym != nil }

// Sym returns the symbol of a symbol key.
func (k PropertyKey) Sym() *Symbol { return k.sym }

// String returns the string form of a string key.
func (k PropertyKey) String() string {
	if k.sym != nil {
		return k.sym.String()
	}
	return k.str
}

// AsIndex reports the key's array index, if it is one.
func (k PropertyKey) AsIndex() (uint32, bool) { return k.idx, k.isIdx }

// parseArrayIndex recognizes canonical array index strings: "0" to
// "4294967294" with no leading zeros.
func parseArrayIndex(s string) (uint32, bool) {
	if s == "" || len(s) > 10 {
		return 0, false
	}
	if s == "0" {
		return 0, true
	}
	if s[0] == '0' {
		return 0, false
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + uint64(c-'0')
	}
	if v >= math.MaxUint32 {
		return 0, false
	}
	return uint32(v), true
}

// PropertyDescriptor is the reified descriptor used by the define/get-own
// internal methods. Presence flags distinguish absent fields from
// defaulted ones.
type PropertyDescriptor struct {
	Value Value
	Get   *Object
	Set   *Object

	Writable     bool
	Enumerable   bool
	Configurable bool

	HasValue        bool
	HasGet          bool
	HasSet          bool
	HasWritable     bool
	HasEnumerable   bool
	HasConfigurable bool
}

// DataDescriptor builds a complete data descriptor.
func DataDescriptor(v Value, attrs Attributes) PropertyDescriptor {
	return PropertyDescriptor{
		Value:           v,
		Writable:        attrs.Writable(),
		Enumerable:      attrs.Enumerable(),
		Configurable:    attrs.Configurable(),
		HasValue:        true,
		HasWritable:     true,
		HasEnumerable:   true,
		HasConfigurable: true,
	}
}

// AccessorDescriptor builds a complete accessor descriptor.
func AccessorDescriptor(get, set *Object, attrs Attributes) PropertyDescriptor {
	return PropertyDescriptor{
		Get:             get,
		Set:             set,
		Enumerable:      attrs.Enumerable(),
		Configurable:    attrs.Configurable(),
		HasGet:          true,
		HasSet:          true,
		HasEnumerable:   true,
		HasConfigurable: true,
	}
}

// IsDataDescriptor reports whether the descriptor describes a data
// property.
func (d PropertyDescriptor) IsDataDescriptor() bool {
	return d.HasValue || d.HasWritable
}

// IsAccessorDescriptor reports whether the descriptor describes an
// accessor property.
func (d PropertyDescriptor) IsAccessorDescriptor() bool {
	return d.HasGet || d.HasSet
}

// IsGenericDescriptor reports a descriptor with neither data nor accessor
// fields.
func (d PropertyDescriptor) IsGenericDescriptor() bool {
	return !d.IsDataDescriptor() && !d.IsAccessorDescriptor()
}

// Attrs packs the descriptor's flags into Attributes.
func (d PropertyDescriptor) Attrs() Attributes {
	var a Attributes
	if d.Writable {
		a |= AttrWritable
	}
	if d.Enumerable {
		a |= AttrEnumerable
	}
	if d.Configurable {
		a |= AttrConfigurable
	}
	if d.IsAccessorDescriptor() {
		a |= AttrAccessor
	}
	return a
}
