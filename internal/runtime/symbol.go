package runtime

// Symbol is a unique property key. Symbols compare by identity; the
// description is diagnostic only.
type Symbol struct {
	Description *String // nil when absent
}

// NewSymbol creates a fresh symbol with an optional description.
func NewSymbol(desc *String) *Symbol {
	return &Symbol{Description: desc}
}

// String renders the symbol for diagnostics.
func (s *Symbol) String() string {
	if s.Description == nil {
		return "Symbol()"
	}
	return "Symbol(" + s.Description.String() + ")"
}

// WellKnownSymbols holds the realm's copies of the well-known symbols.
type WellKnownSymbols struct {
	Iterator      *Symbol
	AsyncIterator *Symbol
	ToPrimitive   *Symbol
	ToStringTag   *Symbol
	HasInstance   *Symbol
	Unscopables   *Symbol
	Species       *Symbol
}

func newWellKnownSymbols() WellKnownSymbols {
	mk := func(name string) *Symbol { return NewSymbol(NewString(name)) }
	return WellKnownSymbols{
		Iterator:      mk("Symbol.iterator"),
		AsyncIterator: mk("Symbol.asyncIterator"),
		ToPrimitive:   mk("Symbol.toPrimitive"),
		ToStringTag:   mk("Symbol.toStringTag"),
		HasInstance:   mk("Symbol.hasInstance"),
		Unscopables:   mk("Symbol.unscopables"),
		Species:       mk("Symbol.species"),
	}
}
