package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"dosflow/internal/annodb"
	"dosflow/internal/output"
)

func cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dbDir := fs.String("db", "", "annotation database directory")
	outPath := fs.String("out", "", "output JSON file (default: <db>/export.json)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbDir == "" {
		return fmt.Errorf("--db is required")
	}
	if *outPath == "" {
		*outPath = filepath.Join(*dbDir, "export.json")
	}

	db, err := annodb.Open(*dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	snap, err := db.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := output.WriteExportJSON(*outPath, snap); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d refs, %d labels)\n", *outPath, len(snap.References), len(snap.Symbols))
	return nil
}
