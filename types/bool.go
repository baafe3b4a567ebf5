package types

// Bool is a MOO boolean (type tag 14, added in DBV_Bool / version 17).
type Bool struct {
	Val bool
}

func NewBool(v bool) Bool { return Bool{Val: v} }

func (b Bool) Kind() Kind { return KindBool }

func (b Bool) String() string {
	if b.Val {
		return "true"
	}
	return "false"
}

func (b Bool) Equal(other Value) bool {
	o, ok := other.(Bool)
	return ok && b.Val == o.Val
}
