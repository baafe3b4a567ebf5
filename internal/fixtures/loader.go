// Package fixtures loads small YAML-described object graphs used by the
// dbfile tests, generalizing the ad hoc literal Database{} construction
// the codec's own tests otherwise repeat scenario by scenario.
package fixtures

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"moodb/dbfile"
	"moodb/types"
)

// ObjectSpec is one object in a property-resolution scenario.
type ObjectSpec struct {
	ID        int64    `yaml:"id"`
	Parents   []int64  `yaml:"parents,omitempty"`
	Propnames []string `yaml:"propnames,omitempty"`
	// Propdefs gives one entry per positional slot across the whole
	// resolved chain (ancestors' own propdefs come first); "clear" means
	// an inherited slot, an integer literal becomes a MOO int, and
	// anything else becomes a MOO string.
	Propdefs []string `yaml:"propdefs,omitempty"`
}

// PropResolveScenario describes a small object graph plus the resolved
// property names each object is expected to end up with.
type PropResolveScenario struct {
	Name            string              `yaml:"name"`
	Objects         []ObjectSpec        `yaml:"objects"`
	ExpectedResolve map[int64][]string  `yaml:"expected_resolve"`
}

// LoadPropResolveScenarios reads every scenario out of a YAML fixture
// file.
func LoadPropResolveScenarios(path string) ([]PropResolveScenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixtures: %w", err)
	}
	var doc struct {
		Scenarios []PropResolveScenario `yaml:"scenarios"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("fixtures: parse %s: %w", path, err)
	}
	return doc.Scenarios, nil
}

// BuildDatabase turns a scenario's object specs into a dbfile.Database,
// ready for (*dbfile.Database).ResolvePropertyNames.
func (s PropResolveScenario) BuildDatabase() *dbfile.Database {
	db := &dbfile.Database{Objects: make(map[types.ObjID]*dbfile.Object)}
	for _, spec := range s.Objects {
		obj := &dbfile.Object{
			ID:        types.ObjID(spec.ID),
			Propnames: append([]string(nil), spec.Propnames...),
		}
		for _, p := range spec.Parents {
			obj.Parents = append(obj.Parents, types.ObjID(p))
		}
		for _, raw := range spec.Propdefs {
			obj.Propdefs = append(obj.Propdefs, dbfile.Propdef{Value: parsePropdefValue(raw)})
		}
		db.Objects[obj.ID] = obj
	}
	for _, spec := range s.Objects {
		parent := db.Objects[types.ObjID(spec.ID)]
		for _, p := range spec.Parents {
			if par := db.Objects[types.ObjID(p)]; par != nil {
				par.Children = append(par.Children, parent.ID)
			}
		}
	}
	return db
}

func parsePropdefValue(raw string) types.Value {
	if raw == "clear" {
		return types.Clear{}
	}
	var n int64
	if _, err := fmt.Sscanf(raw, "%d", &n); err == nil {
		return types.NewInt(n)
	}
	return types.NewStr(raw)
}
