package runtime

// Shape is the hidden class describing an object's named-property layout:
// the ordered set of own keys, their attributes, and their storage slots.
// Shapes form a tree rooted at the realm's empty shape; adding a property
// transitions to a cached child shape, so objects built the same way share
// layout.
type Shape struct {
	parent *Shape
	key    PropertyKey
	attrs  Attributes
	slot   int

	transitions map[transitionKey]*Shape

	// table caches the full key -> slot mapping; built lazily on first
	// lookup through this shape.
	table map[PropertyKey]shapeSlot

	// ordered caches the insertion-ordered key list.
	ordered []PropertyKey

	slotCount int
}

type transitionKey struct {
	key   PropertyKey
	attrs Attributes
}

type shapeSlot struct {
	slot  int
	attrs Attributes
}

// NewRootShape creates the empty shape a realm starts objects from.
func NewRootShape() *Shape {
	return &Shape{slot: -1}
}

// SlotCount returns the storage vector size the shape requires.
func (s *Shape) SlotCount() int { return s.slotCount }

// AddProperty returns the child shape extending s with key and attrs,
// creating and caching it on first use.
func (s *Shape) AddProperty(key PropertyKey, attrs Attributes) *Shape {
	tk := transitionKey{key: key, attrs: attrs}
	if child, ok := s.transitions[tk]; ok {
		return child
	}
	child := &Shape{
		parent:    s,
		key:       key,
		attrs:     attrs,
		slot:      s.slotCount,
		slotCount: s.slotCount + 1,
	}
	if s.transitions == nil {
		s.transitions = make(map[transitionKey]*Shape, 1)
	}
	s.transitions[tk] = child
	return child
}

// buildTable materializes the cumulative lookup table.
func (s *Shape) buildTable() {
	if s.table != nil {
		return
	}
	table := make(map[PropertyKey]shapeSlot, s.slotCount)
	ordered := make([]PropertyKey, 0, s.slotCount)

	var walk func(sh *Shape)
	walk = func(sh *Shape) {
		if sh == nil || sh.slot < 0 {
			return
		}
		walk(sh.parent)
		table[sh.key] = shapeSlot{slot: sh.slot, attrs: sh.attrs}
		ordered = append(ordered, sh.key)
	}
	walk(s)

	s.table = table
	s.ordered = ordered
}

// Lookup resolves a key to its slot and attributes.
func (s *Shape) Lookup(key PropertyKey) (slot int, attrs Attributes, ok bool) {
	s.buildTable()
	entry, ok := s.table[key]
	if !ok {
		return 0, 0, false
	}
	return entry.slot, entry.attrs, true
}

// Keys returns the own keys in property creation order.
func (s *Shape) Keys() []PropertyKey {
	s.buildTable()
	return s.ordered
}
