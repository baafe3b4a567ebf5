package types

import "fmt"

// Waif is the body of a lightweight prototype object: a class pointer, an
// owner, and a dense, index-positioned list of property values. It is not
// itself a Value — WaifRef is the Value variant that points at one, by
// index into the owning Database's waif table (see dbfile.Database.Waifs).
type Waif struct {
	Class      ObjID
	Owner      ObjID
	PropValues []Value
}

// WaifRef is the Value union's waif variant (type tag 13). Every waif
// reference in the file - whether the defining 'c' occurrence or a later
// 'r' occurrence - decodes to a WaifRef carrying the same Index; the
// actual Waif body lives once in the Database's waif table.
type WaifRef struct {
	Index int
}

func NewWaifRef(index int) WaifRef { return WaifRef{Index: index} }

func (w WaifRef) Kind() Kind { return KindWaif }

func (w WaifRef) String() string { return fmt.Sprintf("<waif %d>", w.Index) }

func (w WaifRef) Equal(other Value) bool {
	o, ok := other.(WaifRef)
	return ok && w.Index == o.Index
}
