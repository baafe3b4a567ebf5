package types

import "fmt"

// ObjID is the raw integer identity of a persistent MOO object.
// Negative values are valid sentinels: -1 means "nothing", -2 "ambiguous
// match", -3 "failed match". It is used wherever the data model needs a
// bare object reference (Object.Owner, Object.Location, Propdef.Owner,
// ...) without the overhead of boxing it as a Value.
type ObjID int64

const (
	ObjNothing     ObjID = -1
	ObjAmbiguous   ObjID = -2
	ObjFailedMatch ObjID = -3
)

func (o ObjID) String() string { return fmt.Sprintf("#%d", int64(o)) }
