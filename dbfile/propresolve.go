package dbfile

import (
	"fmt"

	"moodb/types"
)

// ResolvePropertyNames fills in PropertyNames for every object: the i-th
// propdef's logical name is the i-th element of the concatenation, in
// root-first order down to the object itself, of each ancestor's own
// Propnames followed by the object's own Propnames (§4.5).
//
// Multi-parent objects (ToastStunt's multiple inheritance) have no single
// ancestor chain to walk; per §4.5 the resolver stops at the first
// multi-parent boundary it meets along the walk and leaves the remaining
// propdefs on that object nameable only by ordinal, a known-incomplete
// case rather than an invented resolution.
func (db *Database) ResolvePropertyNames() error {
	resolved := make(map[types.ObjID]bool)
	visiting := make(map[types.ObjID]bool)
	var resolve func(id types.ObjID) ([]string, error)
	resolve = func(id types.ObjID) ([]string, error) {
		obj := db.Objects[id]
		if obj == nil {
			return nil, fmt.Errorf("dbfile: object %s referenced as parent but not defined", id)
		}
		if resolved[id] {
			return obj.PropertyNames, nil
		}
		if visiting[id] {
			return nil, fmt.Errorf("dbfile: parent cycle detected at object %s", id)
		}
		visiting[id] = true
		defer delete(visiting, id)

		var names []string
		if len(obj.Parents) == 1 {
			ancestorNames, err := resolve(obj.Parents[0])
			if err != nil {
				return nil, err
			}
			names = append(names, ancestorNames...)
		}
		names = append(names, obj.Propnames...)

		full := make([]string, len(obj.Propdefs))
		for i := range full {
			if i < len(names) {
				full[i] = names[i]
			} else {
				full[i] = fmt.Sprintf("_prop_%d", i)
			}
		}
		obj.PropertyNames = full
		resolved[id] = true
		return full, nil
	}

	for id := range db.Objects {
		if _, err := resolve(id); err != nil {
			return err
		}
	}
	return nil
}

// propertyIndex finds the position of name among obj's resolved
// PropertyNames.
func propertyIndex(obj *Object, name string) int {
	for i, n := range obj.PropertyNames {
		if n == name {
			return i
		}
	}
	return -1
}

// GetProperty resolves a property by name on obj, walking up the parent
// chain through Clear slots until a non-Clear value or the chain's root
// is reached (§4.5).
func (db *Database) GetProperty(id types.ObjID, name string) (types.Value, bool) {
	visited := make(map[types.ObjID]bool)
	for cur := db.Objects[id]; cur != nil; {
		if visited[cur.ID] {
			break // parent cycle; ResolvePropertyNames would have rejected this at load time
		}
		visited[cur.ID] = true
		idx := propertyIndex(cur, name)
		if idx >= 0 {
			v := cur.Propdefs[idx].Value
			if _, clear := v.(types.Clear); !clear {
				return v, true
			}
		}
		if len(cur.Parents) != 1 {
			break
		}
		cur = db.Objects[cur.Parents[0]]
	}
	return types.Clear{}, false
}

// SetProperty sets obj's own slot for name to value. Per §4.5, setting a
// non-Clear value pushes it into every descendant whose same-named
// propdef currently holds Clear (transitively, stopping at the first
// descendant that already overrides it); setting Clear simply restores
// inheritance on obj's own slot, uncovering whatever lies further up.
func (db *Database) SetProperty(id types.ObjID, name string, value types.Value) error {
	obj := db.Objects[id]
	if obj == nil {
		return fmt.Errorf("dbfile: object %s not found", id)
	}
	idx := propertyIndex(obj, name)
	if idx < 0 {
		return fmt.Errorf("dbfile: object %s has no property %q", id, name)
	}
	obj.Propdefs[idx].Value = value

	if _, isClear := value.(types.Clear); isClear {
		return nil
	}
	db.pushToClearDescendants(id, name, value, map[types.ObjID]bool{id: true})
	return nil
}

// pushToClearDescendants recurses through the Children graph; visited
// guards against a cycle in that graph revisiting the same object
// forever.
func (db *Database) pushToClearDescendants(id types.ObjID, name string, value types.Value, visited map[types.ObjID]bool) {
	for _, child := range db.Objects[id].Children {
		if visited[child] {
			continue
		}
		visited[child] = true
		c := db.Objects[child]
		if c == nil {
			continue
		}
		idx := propertyIndex(c, name)
		if idx < 0 {
			continue
		}
		if _, isClear := c.Propdefs[idx].Value.(types.Clear); !isClear {
			continue // this descendant already overrides the slot
		}
		c.Propdefs[idx].Value = value
		db.pushToClearDescendants(child, name, value, visited)
	}
}

// RenameProperty renames a property defined on obj from oldName to
// newName, and cascades the rename through every descendant's resolved
// PropertyNames at the same position (the position within Propdefs is
// unchanged; only the name changes).
func (db *Database) RenameProperty(id types.ObjID, oldName, newName string) error {
	obj := db.Objects[id]
	if obj == nil {
		return fmt.Errorf("dbfile: object %s not found", id)
	}
	ownIdx := -1
	for i, n := range obj.Propnames {
		if n == oldName {
			ownIdx = i
			break
		}
	}
	if ownIdx < 0 {
		return fmt.Errorf("dbfile: object %s does not define property %q", id, oldName)
	}
	obj.Propnames[ownIdx] = newName

	posIdx := propertyIndex(obj, oldName)
	if posIdx < 0 {
		return fmt.Errorf("dbfile: internal error resolving %q on %s", oldName, id)
	}
	visited := make(map[types.ObjID]bool)
	var cascade func(types.ObjID)
	cascade = func(cur types.ObjID) {
		if visited[cur] {
			return
		}
		visited[cur] = true
		o := db.Objects[cur]
		if o == nil || posIdx >= len(o.PropertyNames) {
			return
		}
		o.PropertyNames[posIdx] = newName
		for _, child := range o.Children {
			cascade(child)
		}
	}
	cascade(id)
	return nil
}
