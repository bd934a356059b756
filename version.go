package alpm

// Version is a package version of the form [epoch:]version[-release].
// Versions order by the engine's comparison rules, never lexically; use
// Compare rather than comparing String values.
//
// Versions read through a Handle compare with that handle's engine. Those
// made by NewVersion use the engine New opens by default, unless compared
// against a version that came from a handle.
type Version struct {
	s string
	h *Handle
}

func NewVersion(s string) Version {
	return Version{s: s}
}

func (h *Handle) version(s string) Version {
	return Version{s: s, h: h}
}

func (v Version) String() string { return v.s }

func (v Version) IsZero() bool { return v.s == "" }

// Compare returns -1, 0 or 1 as v is older than, the same as or newer
// than o.
func (v Version) Compare(o Version) int {
	switch {
	case v.h != nil:
		return v.h.VerCmp(v.s, o.s)
	case o.h != nil:
		return o.h.VerCmp(v.s, o.s)
	}
	return defaultVerCmp(v.s, o.s)
}

func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }
