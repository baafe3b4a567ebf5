package types

import "fmt"

// Int is a MOO integer.
type Int struct {
	Val int64
}

func NewInt(v int64) Int { return Int{Val: v} }

func (i Int) Kind() Kind { return KindInt }

func (i Int) String() string { return fmt.Sprintf("%d", i.Val) }

func (i Int) Equal(other Value) bool {
	o, ok := other.(Int)
	return ok && i.Val == o.Val
}
