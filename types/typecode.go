// Package types defines the MOO value union serialized by the database
// codec: a small sum type with one concrete struct per variant, matching
// the on-disk type tags of the LambdaMOO/ToastStunt database format.
package types

// Kind identifies a Value variant. Numeric values match the database
// file's type tags exactly (db_io.h TYPE_* / DB_Value_Type in ToastStunt),
// including the historical gaps (11 was retired, reused by none of the
// variants below).
type Kind int

const (
	KindInt     Kind = 0
	KindObjNum  Kind = 1
	KindStr     Kind = 2
	KindErr     Kind = 3
	KindList    Kind = 4
	KindClear   Kind = 5
	KindNone    Kind = 6
	KindCatch   Kind = 7
	KindFinally Kind = 8
	KindFloat   Kind = 9
	KindMap     Kind = 10
	KindAnon    Kind = 12
	KindWaif    Kind = 13
	KindBool    Kind = 14
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "INT"
	case KindObjNum:
		return "OBJ"
	case KindStr:
		return "STR"
	case KindErr:
		return "ERR"
	case KindList:
		return "LIST"
	case KindClear:
		return "CLEAR"
	case KindNone:
		return "NONE"
	case KindCatch:
		return "CATCH"
	case KindFinally:
		return "FINALLY"
	case KindFloat:
		return "FLOAT"
	case KindMap:
		return "MAP"
	case KindAnon:
		return "ANON"
	case KindWaif:
		return "WAIF"
	case KindBool:
		return "BOOL"
	default:
		return "UNKNOWN"
	}
}

// Value is the recursive tagged union the database codec reads and
// writes. Every variant is a small value type; the codec dispatches on
// the concrete variant with a single Go type switch per direction.
type Value interface {
	Kind() Kind
	String() string
	Equal(Value) bool
}
