package dbfile_test

import (
	"bytes"
	"strings"
	"testing"

	"moodb/dbfile"
	"moodb/types"
)

const minimalV4 = `** LambdaMOO Database, Format Version 4 **
1
0
dummy
0
#0
System Object

0
0
-1
-1
-1
-1
-1
-1
0
0
0
0 clocks
0 queued tasks
0 suspended tasks
0 active connections with listeners
`

const minimalV17 = `** LambdaMOO Database, Format Version 17 **
0
0 values pending finalization
0 clocks
0 queued tasks
0 suspended tasks
0 interrupted tasks
0 active connections with listeners
1
#0
System Object
0
0
6
6
4
0
4
0
4
0
0
0
0
0
0
`

func TestLoadMinimalV4(t *testing.T) {
	db, err := dbfile.LoadReader(strings.NewReader(minimalV4), "minimal-v4")
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if db.Version != dbfile.FormatVersion4 {
		t.Errorf("version = %d, want %d", db.Version, dbfile.FormatVersion4)
	}
	obj := db.Objects[types.ObjID(0)]
	if obj == nil {
		t.Fatal("#0 not found")
	}
	if obj.Name != "System Object" {
		t.Errorf("name = %q", obj.Name)
	}
}

func TestLoadMinimalV17(t *testing.T) {
	db, err := dbfile.LoadReader(strings.NewReader(minimalV17), "minimal-v17")
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if db.Version != dbfile.FormatVersion17 {
		t.Errorf("version = %d, want %d", db.Version, dbfile.FormatVersion17)
	}
	obj := db.Objects[types.ObjID(0)]
	if obj == nil {
		t.Fatal("#0 not found")
	}
	if obj.Name != "System Object" {
		t.Errorf("name = %q", obj.Name)
	}
}

func TestLoadDumpLoadRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name string
		text string
	}{
		{"v4", minimalV4},
		{"v17", minimalV17},
	} {
		t.Run(tc.name, func(t *testing.T) {
			db, err := dbfile.LoadReader(strings.NewReader(tc.text), "orig")
			if err != nil {
				t.Fatalf("LoadReader: %v", err)
			}

			var buf bytes.Buffer
			if err := dbfile.Dump(db, &buf); err != nil {
				t.Fatalf("Dump: %v", err)
			}

			db2, err := dbfile.LoadReader(&buf, "roundtrip")
			if err != nil {
				t.Fatalf("LoadReader on dumped output: %v\n--- dumped text ---\n%s", err, buf.String())
			}

			if len(db.Objects) != len(db2.Objects) {
				t.Errorf("object count: got %d, want %d", len(db2.Objects), len(db.Objects))
			}
			if db.Objects[0].Name != db2.Objects[0].Name {
				t.Errorf("name: got %q, want %q", db2.Objects[0].Name, db.Objects[0].Name)
			}
		})
	}
}

func TestUnknownVersionRejected(t *testing.T) {
	_, err := dbfile.LoadReader(strings.NewReader("** LambdaMOO Database, Format Version 99 **\n"), "bad")
	if err == nil {
		t.Fatal("expected error for unknown format version")
	}
}
