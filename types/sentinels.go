package types

import "fmt"

// None is the MOO "no value" sentinel (type tag 6).
type None struct{}

func (None) Kind() Kind { return KindNone }

func (None) String() string { return "none" }

func (None) Equal(other Value) bool {
	_, ok := other.(None)
	return ok
}

// Clear is the property-inheritance sentinel (type tag 5): "look up the
// value in the nearest ancestor whose propdef holds a non-Clear value."
// It is a distinct variant so it compares unequal to None and to any Int,
// per spec.md's design notes.
type Clear struct{}

func (Clear) Kind() Kind { return KindClear }

func (Clear) String() string { return "clear" }

func (Clear) Equal(other Value) bool {
	_, ok := other.(Clear)
	return ok
}

// Catch is an internal exception-handler stack marker (type tag 7).
// It carries the jump-target index used by the VM's try/except opcodes.
type Catch struct {
	Target int32
}

func (c Catch) Kind() Kind { return KindCatch }

func (c Catch) String() string { return fmt.Sprintf("<catch %d>", c.Target) }

func (c Catch) Equal(other Value) bool {
	o, ok := other.(Catch)
	return ok && c.Target == o.Target
}

// Finally is an internal exception-handler stack marker (type tag 8),
// the finally-block counterpart of Catch.
type Finally struct {
	Target int32
}

func (f Finally) Kind() Kind { return KindFinally }

func (f Finally) String() string { return fmt.Sprintf("<finally %d>", f.Target) }

func (f Finally) Equal(other Value) bool {
	o, ok := other.(Finally)
	return ok && f.Target == o.Target
}
