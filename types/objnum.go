package types

// ObjNum is the Value-union wrapping of an ObjID (type tag 1: OBJ).
// Distinct from Anon, which carries the same kind of integer but under
// type tag 12 to mark an anonymous object reference.
type ObjNum struct {
	ID ObjID
}

func NewObjNum(id ObjID) ObjNum { return ObjNum{ID: id} }

func (o ObjNum) Kind() Kind { return KindObjNum }

func (o ObjNum) String() string { return o.ID.String() }

func (o ObjNum) Equal(other Value) bool {
	v, ok := other.(ObjNum)
	return ok && o.ID == v.ID
}
