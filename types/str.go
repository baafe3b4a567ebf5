package types

// Str is a MOO string. The database format stores it as Latin-1 text;
// Go strings here hold the decoded (one byte per codepoint) text.
type Str struct {
	Val string
}

func NewStr(v string) Str { return Str{Val: v} }

func (s Str) Kind() Kind { return KindStr }

func (s Str) String() string { return s.Val }

func (s Str) Equal(other Value) bool {
	o, ok := other.(Str)
	return ok && s.Val == o.Val
}
