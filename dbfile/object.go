package dbfile

import (
	"fmt"
	"strconv"
	"strings"

	"moodb/types"
)

// ObjectFlags is the object permission/lifecycle bitfield.
type ObjectFlags uint32

const (
	FlagUser       ObjectFlags = 1 << 0
	FlagProgrammer ObjectFlags = 1 << 1
	FlagWizard     ObjectFlags = 1 << 2
	FlagRead       ObjectFlags = 1 << 4
	FlagWrite      ObjectFlags = 1 << 5
	FlagFertile    ObjectFlags = 1 << 7
)

func (f ObjectFlags) Has(flag ObjectFlags) bool { return f&flag != 0 }

// Propdef is one positional property slot: a value (possibly Clear,
// meaning "inherit"), the object that owns the slot, and a permission
// bitfield. Its logical name is not stored here — it is derived by
// ResolvePropertyNames walking the object's ancestor chain (§4.5).
type Propdef struct {
	Value types.Value
	Owner types.ObjID
	Perms uint8
}

const (
	PropRead  uint8 = 1 << 0
	PropWrite uint8 = 1 << 1
	PropChown uint8 = 1 << 2
)

// Verb holds one verb's metadata, read during the object block, plus its
// source code, filled in later from the file's separate verbs section
// (§4.7). Code is nil until that section supplies it.
type Verb struct {
	Name         string
	Owner        types.ObjID
	Perms        uint8
	Preps        int32
	OwningObject types.ObjID
	Index        int
	Code         []string
}

const (
	VerbRead    uint8 = 1 << 0
	VerbWrite   uint8 = 1 << 1
	VerbExecute uint8 = 1 << 2
	VerbDebug   uint8 = 1 << 3
)

// Object is one entry of Database.Objects. Propnames holds only this
// object's own property definitions; Propdefs holds every positional
// slot (ancestors' and its own, ancestor-first) paired 1:1 with the
// names ResolvePropertyNames computes into PropertyNames.
type Object struct {
	ID       types.ObjID
	Name     string
	Flags    ObjectFlags
	Owner    types.ObjID
	Location types.Value
	LastMove types.Value // nil if the format version predates DBVLastMove
	Parents  []types.ObjID
	Children []types.ObjID
	Contents []types.ObjID

	Propnames []string
	Propdefs  []Propdef
	Verbs     []Verb

	Anon     bool
	Recycled bool

	// PropertyNames is filled in by ResolvePropertyNames after every
	// object in the file has been read; Propdefs[i] is named
	// PropertyNames[i].
	PropertyNames []string
}

// readObjectHeader reads the leading `#<oid>` or `#<oid> recycled` line
// shared by both object block shapes.
func (c *loadCtx) readObjectHeader() (id types.ObjID, recycled bool, err error) {
	line, err := c.r.readLine()
	if err != nil {
		return 0, false, err
	}
	line = strings.TrimSpace(line)
	if strings.HasSuffix(line, "recycled") {
		recycled = true
		line = strings.TrimSpace(strings.TrimSuffix(line, "recycled"))
	}
	if !strings.HasPrefix(line, "#") {
		return 0, false, c.errf("expected object header, got %q", line)
	}
	n, perr := strconv.ParseInt(strings.TrimSpace(line[1:]), 10, 64)
	if perr != nil {
		return 0, false, c.errf("malformed object id %q", line)
	}
	return types.ObjID(n), recycled, nil
}

// readVerbMetadata reads the verb_count metadata records embedded in an
// object block (§4.7). Source code is attached later from the verbs
// section.
func (c *loadCtx) readVerbMetadata(owner types.ObjID) ([]Verb, error) {
	count, err := c.r.readInt()
	if err != nil {
		return nil, err
	}
	verbs := make([]Verb, count)
	for i := range verbs {
		name, err := c.r.readLine()
		if err != nil {
			return nil, err
		}
		verbOwner, err := c.r.readInt()
		if err != nil {
			return nil, err
		}
		perms, err := c.r.readInt()
		if err != nil {
			return nil, err
		}
		preps, err := c.r.readInt()
		if err != nil {
			return nil, err
		}
		verbs[i] = Verb{
			Name:         name,
			Owner:        types.ObjID(verbOwner),
			Perms:        uint8(perms),
			Preps:        int32(preps),
			OwningObject: owner,
			Index:        i,
		}
	}
	return verbs, nil
}

func (c *writeState) writeVerbMetadata(verbs []Verb) error {
	if err := c.w.writeInt(int64(len(verbs))); err != nil {
		return err
	}
	for _, v := range verbs {
		if err := c.w.writeLine(v.Name); err != nil {
			return err
		}
		if err := c.w.writeInt(int64(v.Owner)); err != nil {
			return err
		}
		if err := c.w.writeInt(int64(v.Perms)); err != nil {
			return err
		}
		if err := c.w.writeInt(int64(v.Preps)); err != nil {
			return err
		}
	}
	return nil
}

// readProperties reads the property block of §4.5: own names, then the
// full positional propdef sequence. Name resolution happens later, once
// every object is in memory.
func (c *loadCtx) readProperties() ([]string, []Propdef, error) {
	numOwn, err := c.r.readInt()
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, numOwn)
	for i := range names {
		names[i], err = c.r.readLine()
		if err != nil {
			return nil, nil, err
		}
	}

	numDefs, err := c.r.readInt()
	if err != nil {
		return nil, nil, err
	}
	defs := make([]Propdef, numDefs)
	for i := range defs {
		val, err := c.decodeValue()
		if err != nil {
			return nil, nil, err
		}
		owner, err := c.r.readInt()
		if err != nil {
			return nil, nil, err
		}
		perms, err := c.r.readInt()
		if err != nil {
			return nil, nil, err
		}
		defs[i] = Propdef{Value: val, Owner: types.ObjID(owner), Perms: uint8(perms)}
	}
	return names, defs, nil
}

func (c *writeState) writeProperties(obj *Object) error {
	if err := c.w.writeInt(int64(len(obj.Propnames))); err != nil {
		return err
	}
	for _, n := range obj.Propnames {
		if err := c.w.writeLine(n); err != nil {
			return err
		}
	}
	if err := c.w.writeInt(int64(len(obj.Propdefs))); err != nil {
		return err
	}
	for _, d := range obj.Propdefs {
		if err := c.encodeValue(d.Value); err != nil {
			return err
		}
		if err := c.w.writeInt(int64(d.Owner)); err != nil {
			return err
		}
		if err := c.w.writeInt(int64(d.Perms)); err != nil {
			return err
		}
	}
	return nil
}

// readObjectV4 reads one legacy-format object block (§4.4).
func (c *loadCtx) readObjectV4() (*Object, error) {
	id, recycled, err := c.readObjectHeader()
	if err != nil {
		return nil, err
	}
	if recycled {
		return &Object{ID: id, Recycled: true}, nil
	}

	obj := &Object{ID: id}
	if obj.Name, err = c.r.readLine(); err != nil {
		return nil, err
	}
	if _, err = c.r.readLine(); err != nil { // blank line
		return nil, err
	}
	flags, err := c.r.readInt()
	if err != nil {
		return nil, err
	}
	obj.Flags = ObjectFlags(flags)

	owner, err := c.r.readInt()
	if err != nil {
		return nil, err
	}
	obj.Owner = types.ObjID(owner)

	loc, err := c.r.readInt()
	if err != nil {
		return nil, err
	}
	obj.Location = types.NewObjNum(types.ObjID(loc))

	if _, err = c.r.readInt(); err != nil { // first-content, discarded
		return nil, err
	}
	if _, err = c.r.readInt(); err != nil { // neighbor, discarded
		return nil, err
	}

	parent, err := c.r.readInt()
	if err != nil {
		return nil, err
	}
	if types.ObjID(parent) != types.ObjNothing {
		obj.Parents = []types.ObjID{types.ObjID(parent)}
	}

	if _, err = c.r.readInt(); err != nil { // first-child, discarded
		return nil, err
	}
	if _, err = c.r.readInt(); err != nil { // sibling, discarded
		return nil, err
	}

	if obj.Verbs, err = c.readVerbMetadata(id); err != nil {
		return nil, err
	}
	if obj.Propnames, obj.Propdefs, err = c.readProperties(); err != nil {
		return nil, err
	}
	return obj, nil
}

func (c *writeState) writeObjectV4(obj *Object) error {
	if obj.Recycled {
		return c.w.writeLine(fmt.Sprintf("#%d recycled", obj.ID))
	}
	if err := c.w.writeLine(fmt.Sprintf("#%d", obj.ID)); err != nil {
		return err
	}
	if err := c.w.writeLine(obj.Name); err != nil {
		return err
	}
	if err := c.w.writeLine(""); err != nil {
		return err
	}
	if err := c.w.writeInt(int64(obj.Flags)); err != nil {
		return err
	}
	if err := c.w.writeInt(int64(obj.Owner)); err != nil {
		return err
	}
	if err := c.w.writeInt(int64(objNumOf(obj.Location))); err != nil {
		return err
	}
	if err := c.w.writeInt(-1); err != nil { // first-content
		return err
	}
	if err := c.w.writeInt(-1); err != nil { // neighbor
		return err
	}
	parent := types.ObjNothing
	if len(obj.Parents) > 0 {
		parent = obj.Parents[0]
	}
	if err := c.w.writeInt(int64(parent)); err != nil {
		return err
	}
	if err := c.w.writeInt(-1); err != nil { // first-child
		return err
	}
	if err := c.w.writeInt(-1); err != nil { // sibling
		return err
	}
	if err := c.writeVerbMetadata(obj.Verbs); err != nil {
		return err
	}
	return c.writeProperties(obj)
}

// readObjectV5 reads one v5+ ("new generation") object block (§4.4),
// gated by the per-field DBV_* thresholds.
func (c *loadCtx) readObjectV5() (*Object, error) {
	id, recycled, err := c.readObjectHeader()
	if err != nil {
		return nil, err
	}
	if recycled {
		return &Object{ID: id, Recycled: true}, nil
	}

	obj := &Object{ID: id}
	if obj.Name, err = c.r.readLine(); err != nil {
		return nil, err
	}
	flags, err := c.r.readInt()
	if err != nil {
		return nil, err
	}
	obj.Flags = ObjectFlags(flags)

	owner, err := c.r.readInt()
	if err != nil {
		return nil, err
	}
	obj.Owner = types.ObjID(owner)

	if obj.Location, err = c.decodeValue(); err != nil {
		return nil, err
	}
	if c.version >= DBVLastMove {
		if obj.LastMove, err = c.decodeValue(); err != nil {
			return nil, err
		}
	}

	contents, err := c.decodeValue()
	if err != nil {
		return nil, err
	}
	obj.Contents = objNumList(contents)

	parents, err := c.decodeValue()
	if err != nil {
		return nil, err
	}
	obj.Parents = parentsToList(parents)

	children, err := c.decodeValue()
	if err != nil {
		return nil, err
	}
	obj.Children = objNumList(children)

	if obj.Verbs, err = c.readVerbMetadata(id); err != nil {
		return nil, err
	}
	if obj.Propnames, obj.Propdefs, err = c.readProperties(); err != nil {
		return nil, err
	}
	return obj, nil
}

func (c *writeState) writeObjectV5(obj *Object) error {
	if obj.Recycled {
		return c.w.writeLine(fmt.Sprintf("#%d recycled", obj.ID))
	}
	if err := c.w.writeLine(fmt.Sprintf("#%d", obj.ID)); err != nil {
		return err
	}
	if err := c.w.writeLine(obj.Name); err != nil {
		return err
	}
	if err := c.w.writeInt(int64(obj.Flags)); err != nil {
		return err
	}
	if err := c.w.writeInt(int64(obj.Owner)); err != nil {
		return err
	}
	if err := c.encodeValue(obj.Location); err != nil {
		return err
	}
	if c.version >= DBVLastMove {
		lastMove := obj.LastMove
		if lastMove == nil {
			lastMove = types.None{}
		}
		if err := c.encodeValue(lastMove); err != nil {
			return err
		}
	}
	if err := c.encodeValue(listOfObjNums(obj.Contents)); err != nil {
		return err
	}
	if err := c.encodeValue(parentsValue(obj.Parents)); err != nil {
		return err
	}
	if err := c.encodeValue(listOfObjNums(obj.Children)); err != nil {
		return err
	}
	if err := c.writeVerbMetadata(obj.Verbs); err != nil {
		return err
	}
	return c.writeProperties(obj)
}

func objNumOf(v types.Value) types.ObjID {
	if o, ok := v.(types.ObjNum); ok {
		return o.ID
	}
	return types.ObjNothing
}

func objNumList(v types.Value) []types.ObjID {
	l, ok := v.(types.List)
	if !ok {
		return nil
	}
	ids := make([]types.ObjID, 0, len(l.Elems))
	for _, e := range l.Elems {
		if o, ok := e.(types.ObjNum); ok {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func listOfObjNums(ids []types.ObjID) types.Value {
	elems := make([]types.Value, len(ids))
	for i, id := range ids {
		elems[i] = types.NewObjNum(id)
	}
	return types.NewList(elems)
}

// parentsToList normalizes the parents field, which is serialized as a
// bare ObjNum when there is exactly one parent and as a List otherwise.
func parentsToList(v types.Value) []types.ObjID {
	switch p := v.(type) {
	case types.List:
		return objNumList(p)
	case types.ObjNum:
		if p.ID == types.ObjNothing {
			return nil
		}
		return []types.ObjID{p.ID}
	default:
		return nil
	}
}

// parentsValue is the write-side inverse of parentsToList: a single
// ObjNum for exactly one parent, a List otherwise (including zero).
func parentsValue(parents []types.ObjID) types.Value {
	if len(parents) == 1 {
		return types.NewObjNum(parents[0])
	}
	return listOfObjNums(parents)
}
