package runtime

// RegExpData carries a regular expression literal's pattern and flags. The
// matching engine itself is outside the core's minimum built-in set; the
// object model carries enough for literals to round-trip.
type RegExpData struct {
	Pattern string
	Flags   string
}

// NewRegExpObject materializes a regular expression literal.
func (r *Realm) NewRegExpObject(pattern, flags string) *Object {
	o := r.NewObject(r.Intrinsics.RegExpProto)
	o.class = "RegExp"
	o.data = &RegExpData{Pattern: pattern, Flags: flags}
	_, _ = DefineDataProperty(r, o, StringKey("source"), StringValue(r.Intern(pattern)), 0)
	_, _ = DefineDataProperty(r, o, StringKey("flags"), StringValue(r.Intern(flags)), 0)
	_, _ = DefineDataProperty(r, o, StringKey("lastIndex"), Number(0), AttrWritable)
	return o
}
