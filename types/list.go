package types

import "strings"

// List is an ordered MOO list (type tag 4). The codec only ever builds a
// List by reading its full element count up front, so there is no COW
// mutation API here — just the flat element slice a Load/Dump pass needs.
type List struct {
	Elems []Value
}

func NewList(elems []Value) List {
	if elems == nil {
		elems = []Value{}
	}
	return List{Elems: elems}
}

func (l List) Kind() Kind { return KindList }

func (l List) Len() int { return len(l.Elems) }

func (l List) String() string {
	if len(l.Elems) == 0 {
		return "{}"
	}
	parts := make([]string, len(l.Elems))
	for i, e := range l.Elems {
		parts[i] = e.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (l List) Equal(other Value) bool {
	o, ok := other.(List)
	if !ok || len(l.Elems) != len(o.Elems) {
		return false
	}
	for i, e := range l.Elems {
		if !e.Equal(o.Elems[i]) {
			return false
		}
	}
	return true
}
