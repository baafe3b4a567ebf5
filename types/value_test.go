package types

import "testing"

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindInt, "INT"},
		{KindObjNum, "OBJ"},
		{KindStr, "STR"},
		{KindErr, "ERR"},
		{KindList, "LIST"},
		{KindClear, "CLEAR"},
		{KindNone, "NONE"},
		{KindCatch, "CATCH"},
		{KindFinally, "FINALLY"},
		{KindFloat, "FLOAT"},
		{KindMap, "MAP"},
		{KindAnon, "ANON"},
		{KindWaif, "WAIF"},
		{KindBool, "BOOL"},
		{Kind(11), "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
			}
		})
	}
}

func TestScalarEquality(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"int-equal", NewInt(5), NewInt(5), true},
		{"int-unequal", NewInt(5), NewInt(6), false},
		{"int-vs-float", NewInt(5), NewFloat(5), false},
		{"float-equal", NewFloat(1.5), NewFloat(1.5), true},
		{"float-nan-never-equal", NewFloat(nan()), NewFloat(nan()), false},
		{"str-equal", NewStr("hi"), NewStr("hi"), true},
		{"str-case-sensitive-equal-fails", NewStr("Hi"), NewStr("hi"), false},
		{"objnum-equal", NewObjNum(ObjID(3)), NewObjNum(ObjID(3)), true},
		{"objnum-vs-anon", NewObjNum(ObjID(3)), NewAnon(ObjID(3)), false},
		{"err-equal", NewErr(1), NewErr(1), true},
		{"bool-equal", NewBool(true), NewBool(true), true},
		{"bool-unequal", NewBool(true), NewBool(false), false},
		{"none-equal", None{}, None{}, true},
		{"clear-unequal-to-none", Clear{}, None{}, false},
		{"clear-unequal-to-int", Clear{}, NewInt(0), false},
		{"catch-equal", Catch{Target: 2}, Catch{Target: 2}, true},
		{"catch-unequal-target", Catch{Target: 2}, Catch{Target: 3}, false},
		{"finally-unequal-to-catch", Finally{Target: 2}, Catch{Target: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("%v.Equal(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestListEquality(t *testing.T) {
	a := NewList([]Value{NewInt(1), NewStr("x")})
	b := NewList([]Value{NewInt(1), NewStr("x")})
	c := NewList([]Value{NewInt(1), NewStr("y")})

	if !a.Equal(b) {
		t.Error("identical lists should be equal")
	}
	if a.Equal(c) {
		t.Error("lists differing in an element should not be equal")
	}
	if NewList(nil).String() != "{}" {
		t.Errorf("empty list should render as {}, got %q", NewList(nil).String())
	}
}

func TestMapPreservesInsertionOrderAndLookup(t *testing.T) {
	m := NewMap([]Pair{
		{Key: NewStr("b"), Val: NewInt(2)},
		{Key: NewStr("a"), Val: NewInt(1)},
	})

	if got := m.String(); got != "[b -> 2, a -> 1]" {
		t.Errorf("Map.String() = %q, want insertion order preserved", got)
	}

	v, ok := m.Get(NewStr("A"))
	if !ok || !v.Equal(NewInt(1)) {
		t.Errorf("Map.Get should be case-insensitive for string keys, got %v, %v", v, ok)
	}

	if NewMap(nil).String() != "[]" {
		t.Errorf("empty map should render as [], got %q", NewMap(nil).String())
	}
}

func TestWaifRefIdentity(t *testing.T) {
	a := NewWaifRef(0)
	b := NewWaifRef(0)
	c := NewWaifRef(1)

	if !a.Equal(b) {
		t.Error("WaifRefs with the same index should be equal")
	}
	if a.Equal(c) {
		t.Error("WaifRefs with different indices should not be equal")
	}
	if a.Kind() != KindWaif {
		t.Errorf("WaifRef.Kind() = %v, want KindWaif", a.Kind())
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}
