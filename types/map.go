package types

import (
	"fmt"
	"strings"
)

// Pair is one key/value entry of a Map, in file order.
type Pair struct {
	Key Value
	Val Value
}

// Map is an insertion-ordered MOO map (type tag 10). This codec never
// mutates a Map after construction, so there is no copy-on-write
// Set/Delete surface here — Load builds the Pairs slice once, in the
// order the file interleaves key,value, and Dump walks it unchanged.
type Map struct {
	Pairs []Pair
}

func NewMap(pairs []Pair) Map {
	if pairs == nil {
		pairs = []Pair{}
	}
	return Map{Pairs: pairs}
}

func (m Map) Kind() Kind { return KindMap }

func (m Map) Len() int { return len(m.Pairs) }

// Get returns the value for key, using mapKeyHash equality (case-folded
// for Str keys, matching MOO's case-insensitive string comparison).
func (m Map) Get(key Value) (Value, bool) {
	h := mapKeyHash(key)
	for _, p := range m.Pairs {
		if mapKeyHash(p.Key) == h {
			return p.Val, true
		}
	}
	return nil, false
}

func mapKeyHash(v Value) string {
	if s, ok := v.(Str); ok {
		return fmt.Sprintf("%T:%s", v, strings.ToLower(s.Val))
	}
	return fmt.Sprintf("%T:%s", v, v.String())
}

func (m Map) String() string {
	if len(m.Pairs) == 0 {
		return "[]"
	}
	parts := make([]string, len(m.Pairs))
	for i, p := range m.Pairs {
		parts[i] = fmt.Sprintf("%s -> %s", p.Key.String(), p.Val.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (m Map) Equal(other Value) bool {
	o, ok := other.(Map)
	if !ok || len(m.Pairs) != len(o.Pairs) {
		return false
	}
	for i, p := range m.Pairs {
		op := o.Pairs[i]
		if !p.Key.Equal(op.Key) || !p.Val.Equal(op.Val) {
			return false
		}
	}
	return true
}
