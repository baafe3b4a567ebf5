package dbfile_test

import (
	"testing"

	"moodb/dbfile"
	"moodb/internal/fixtures"
	"moodb/types"
)

func TestResolvePropertyNames(t *testing.T) {
	scenarios, err := fixtures.LoadPropResolveScenarios("../testdata/propresolve_scenarios.yaml")
	if err != nil {
		t.Fatalf("LoadPropResolveScenarios: %v", err)
	}
	if len(scenarios) == 0 {
		t.Fatal("no scenarios loaded")
	}

	for _, scenario := range scenarios {
		scenario := scenario
		t.Run(scenario.Name, func(t *testing.T) {
			db := scenario.BuildDatabase()
			if err := db.ResolvePropertyNames(); err != nil {
				t.Fatalf("ResolvePropertyNames: %v", err)
			}
			for id, want := range scenario.ExpectedResolve {
				obj := db.Objects[types.ObjID(id)]
				if obj == nil {
					t.Fatalf("object #%d not found after resolve", id)
				}
				got := obj.PropertyNames
				if len(got) != len(want) {
					t.Fatalf("#%d: got %v, want %v", id, got, want)
				}
				for i := range want {
					if got[i] != want[i] {
						t.Errorf("#%d propertyNames[%d] = %q, want %q", id, i, got[i], want[i])
					}
				}
			}
		})
	}
}

func TestGetSetPropertyClearInheritance(t *testing.T) {
	db := &dbfile.Database{Objects: make(map[types.ObjID]*dbfile.Object)}
	root := &dbfile.Object{ID: 1, Propnames: []string{"color"}, Propdefs: []dbfile.Propdef{{Value: types.NewStr("red")}}}
	child := &dbfile.Object{ID: 2, Parents: []types.ObjID{1}, Propdefs: []dbfile.Propdef{{Value: types.Clear{}}}}
	root.Children = []types.ObjID{2}
	db.Objects[1] = root
	db.Objects[2] = child
	if err := db.ResolvePropertyNames(); err != nil {
		t.Fatalf("ResolvePropertyNames: %v", err)
	}

	v, ok := db.GetProperty(2, "color")
	if !ok || !v.Equal(types.NewStr("red")) {
		t.Fatalf("expected #2.color to inherit \"red\", got %v, ok=%v", v, ok)
	}

	if err := db.SetProperty(2, "color", types.NewStr("blue")); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	v, ok = db.GetProperty(2, "color")
	if !ok || !v.Equal(types.NewStr("blue")) {
		t.Fatalf("expected #2.color to be overridden to \"blue\", got %v, ok=%v", v, ok)
	}
	v, ok = db.GetProperty(1, "color")
	if !ok || !v.Equal(types.NewStr("red")) {
		t.Fatalf("expected #1.color to remain \"red\", got %v, ok=%v", v, ok)
	}
}

func TestSetPropertyOnAncestorPushesIntoClearDescendant(t *testing.T) {
	db := &dbfile.Database{Objects: make(map[types.ObjID]*dbfile.Object)}
	root := &dbfile.Object{ID: 1, Propnames: []string{"x"}, Propdefs: []dbfile.Propdef{{Value: types.NewInt(1)}}}
	child := &dbfile.Object{ID: 2, Parents: []types.ObjID{1}, Propdefs: []dbfile.Propdef{{Value: types.Clear{}}}}
	root.Children = []types.ObjID{2}
	db.Objects[1] = root
	db.Objects[2] = child
	if err := db.ResolvePropertyNames(); err != nil {
		t.Fatalf("ResolvePropertyNames: %v", err)
	}

	if err := db.SetProperty(1, "x", types.NewInt(2)); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}

	// The descendant's own propdef slot must be materialized with the new
	// value, not just reachable by walking up from GetProperty — anything
	// reading Object.Propdefs[i].Value directly (Dump included) must see it.
	if v := child.Propdefs[0].Value; !v.Equal(types.NewInt(2)) {
		t.Fatalf("child's own propdef slot = %v, want 2 (value must be materialized, not left Clear)", v)
	}

	v, ok := db.GetProperty(2, "x")
	if !ok || !v.Equal(types.NewInt(2)) {
		t.Fatalf("expected #2.x to read 2 after ancestor SetProperty, got %v, ok=%v", v, ok)
	}
}

func TestRenamePropertyCascades(t *testing.T) {
	db := &dbfile.Database{Objects: make(map[types.ObjID]*dbfile.Object)}
	root := &dbfile.Object{ID: 1, Propnames: []string{"old"}, Propdefs: []dbfile.Propdef{{Value: types.NewInt(1)}}}
	child := &dbfile.Object{ID: 2, Parents: []types.ObjID{1}, Propdefs: []dbfile.Propdef{{Value: types.Clear{}}}}
	root.Children = []types.ObjID{2}
	db.Objects[1] = root
	db.Objects[2] = child
	if err := db.ResolvePropertyNames(); err != nil {
		t.Fatalf("ResolvePropertyNames: %v", err)
	}

	if err := db.RenameProperty(1, "old", "new"); err != nil {
		t.Fatalf("RenameProperty: %v", err)
	}
	if root.PropertyNames[0] != "new" {
		t.Errorf("root propertyNames[0] = %q, want \"new\"", root.PropertyNames[0])
	}
	if child.PropertyNames[0] != "new" {
		t.Errorf("child propertyNames[0] = %q, want \"new\"", child.PropertyNames[0])
	}
}
