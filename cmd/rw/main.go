package main

import (
	"flag"
	"fmt"
	"os"

	"moodb/dbfile"
)

func main() {
	dbPath := flag.String("db", "Test.db", "database file to round-trip")
	outPath := flag.String("out", "test_output.db", "output file for the written database")
	flag.Parse()

	fmt.Printf("Loading %s...\n", *dbPath)
	database, err := dbfile.Load(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading database: %v\n", err)
		os.Exit(1)
	}
	origObjects := len(database.Objects)
	origPlayers := len(database.Players)
	fmt.Printf("Loaded: version=%d, objects=%d, players=%d\n", database.Version, origObjects, origPlayers)

	fmt.Printf("Writing to %s...\n", *outPath)
	outFile, err := os.Create(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
		os.Exit(1)
	}
	err = dbfile.Dump(database, outFile)
	outFile.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing database: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Write complete.")

	fmt.Printf("Reloading %s...\n", *outPath)
	database2, err := dbfile.Load(*outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reloading database: %v\n", err)
		os.Exit(1)
	}
	newObjects := len(database2.Objects)
	newPlayers := len(database2.Players)
	fmt.Printf("Reloaded: objects=%d, players=%d\n", newObjects, newPlayers)

	errors := 0
	if origObjects != newObjects {
		fmt.Printf("MISMATCH: objects %d vs %d\n", origObjects, newObjects)
		errors++
	}
	if origPlayers != newPlayers {
		fmt.Printf("MISMATCH: players %d vs %d\n", origPlayers, newPlayers)
		errors++
	}
	for id, obj1 := range database.Objects {
		obj2, ok := database2.Objects[id]
		if !ok {
			fmt.Printf("MISMATCH: object %s missing after round trip\n", id)
			errors++
			continue
		}
		if obj1.Name != obj2.Name {
			fmt.Printf("MISMATCH: %s name %q vs %q\n", id, obj1.Name, obj2.Name)
			errors++
		}
		if obj1.Flags != obj2.Flags {
			fmt.Printf("MISMATCH: %s flags %v vs %v\n", id, obj1.Flags, obj2.Flags)
			errors++
		}
		if len(obj1.Verbs) != len(obj2.Verbs) {
			fmt.Printf("MISMATCH: %s verbs %d vs %d\n", id, len(obj1.Verbs), len(obj2.Verbs))
			errors++
		}
		if len(obj1.Propdefs) != len(obj2.Propdefs) {
			fmt.Printf("MISMATCH: %s propdefs %d vs %d\n", id, len(obj1.Propdefs), len(obj2.Propdefs))
			errors++
		}
	}

	if errors > 0 {
		fmt.Printf("\nFAILED: %d mismatches\n", errors)
		os.Exit(1)
	}
	fmt.Println("\nSUCCESS: round trip passed!")
}
