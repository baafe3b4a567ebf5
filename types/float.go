package types

import (
	"math"
	"strconv"
	"strings"
)

// Float is a MOO floating point number.
type Float struct {
	Val float64
}

func NewFloat(v float64) Float { return Float{Val: v} }

func (f Float) Kind() Kind { return KindFloat }

// String returns the MOO literal representation. Whole numbers still show
// a decimal point (3.0, not 3) to round-trip as a float literal.
func (f Float) String() string {
	if math.IsNaN(f.Val) {
		return "NaN"
	}
	if math.IsInf(f.Val, 1) {
		return "Inf"
	}
	if math.IsInf(f.Val, -1) {
		return "-Inf"
	}
	s := strconv.FormatFloat(f.Val, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func (f Float) Equal(other Value) bool {
	o, ok := other.(Float)
	if !ok {
		return false
	}
	if math.IsNaN(f.Val) || math.IsNaN(o.Val) {
		return false
	}
	return f.Val == o.Val
}
