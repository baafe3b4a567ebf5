// Command moodb2flat explodes a database file into a directory tree, one
// subdirectory per object, so a single property or verb can be grepped
// or diffed without loading the whole file. It generalizes the
// single-object/single-property and single-object/single-verb lookups
// dump_prop and dump_verb perform into a full-tree dump.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"moodb/dbfile"
)

func main() {
	dbPath := flag.String("db", "Test.db", "database file to explode")
	outDir := flag.String("out", "flat", "output directory tree")
	flag.Parse()

	database, err := dbfile.Load(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading database: %v\n", err)
		os.Exit(1)
	}

	for id, obj := range database.Objects {
		dir := filepath.Join(*outDir, fmt.Sprintf("%d", id))
		if err := writeObject(dir, obj, database); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing #%d: %v\n", id, err)
			os.Exit(1)
		}
	}
	verbCount := 0
	for range database.AllVerbs() {
		verbCount++
	}
	fmt.Printf("Wrote %d objects (%d verbs) to %s\n", len(database.Objects), verbCount, *outDir)
}

func writeObject(dir string, obj *dbfile.Object, db *dbfile.Database) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	meta := fmt.Sprintf("name: %s\nflags: %d\nowner: %s\nlocation: %s\nparents: %v\n",
		obj.Name, obj.Flags, obj.Owner, obj.Location, obj.Parents)
	if err := os.WriteFile(filepath.Join(dir, "meta"), []byte(meta), 0o644); err != nil {
		return err
	}

	if len(obj.Propdefs) > 0 {
		propsDir := filepath.Join(dir, "props")
		if err := os.MkdirAll(propsDir, 0o755); err != nil {
			return err
		}
		for i, pd := range obj.Propdefs {
			name := fmt.Sprintf("_prop_%d", i)
			if i < len(obj.PropertyNames) {
				name = obj.PropertyNames[i]
			}
			if err := os.WriteFile(filepath.Join(propsDir, sanitize(name)), []byte(pd.Value.String()+"\n"), 0o644); err != nil {
				return err
			}
		}
	}

	if len(obj.Verbs) > 0 {
		verbsDir := filepath.Join(dir, "verbs")
		if err := os.MkdirAll(verbsDir, 0o755); err != nil {
			return err
		}
		for _, v := range obj.Verbs {
			name := fmt.Sprintf("%d_%s", v.Index, sanitize(v.Name))
			body := strings.Join(v.Code, "\n")
			if err := os.WriteFile(filepath.Join(verbsDir, name), []byte(body+"\n"), 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}

func sanitize(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ', '*':
			return '_'
		}
		return r
	}, name)
	// A name of "." or ".." would otherwise pass through unchanged and
	// escape the intended output directory when joined onto it.
	if mapped == "." || mapped == ".." || mapped == "" {
		return "_"
	}
	return mapped
}
