package types

import "fmt"

// ErrCode is a MOO error code (E_TYPE, E_DIV, ...). The database format
// stores it as a bare int32; symbolic names are not part of the codec's
// concern, so only the numeric value is kept.
type ErrCode int32

// Err is a MOO error value (type tag 3).
type Err struct {
	Code ErrCode
}

func NewErr(code ErrCode) Err { return Err{Code: code} }

func (e Err) Kind() Kind { return KindErr }

func (e Err) String() string { return fmt.Sprintf("E_%d", int32(e.Code)) }

func (e Err) Equal(other Value) bool {
	o, ok := other.(Err)
	return ok && e.Code == o.Code
}
