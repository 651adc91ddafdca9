package main

import (
	"flag"
	"fmt"
	"os"

	"dosflow/internal/annodb"
	"dosflow/internal/logging"
	"dosflow/internal/reconcile"
)

func cmdImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	tf := addTraceFlags(fs)
	dbDir := fs.String("db", "", "annotation database directory")
	clearAll := fs.Bool("clear-all", false, "remove every existing reference at a traced source")
	prefix := fs.String("label-prefix", reconcile.DefaultLabelPrefix, "prefix of generated labels")
	level := fs.String("log-level", "info", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbDir == "" {
		return fmt.Errorf("--db is required")
	}

	log, err := logging.New(os.Stderr, *level)
	if err != nil {
		return err
	}

	doc, path, err := tf.load()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "read %s: %d call, %d jump, %d ret sources\n", path,
		doc.CallsFromTo().Len(), doc.JumpsFromTo().Len(), doc.RetsFromTo().Len())

	db, err := annodb.Open(*dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := reconcile.Options{LabelPrefix: *prefix, Logger: log}
	if *clearAll {
		opts.Policy = reconcile.ClearAll
	}
	rep, err := reconcile.New(db, opts).Run(doc)
	if err != nil {
		return err
	}

	for _, p := range rep.Passes {
		fmt.Fprintf(os.Stderr, "  %-5s %-13s %d sources, %d refs, %d removed, %d labels\n",
			p.Name, p.Kind, p.Sources, p.References, p.Removed, p.Labels)
	}
	tot := rep.Totals()
	fmt.Fprintf(os.Stderr, "wrote %s: %d refs, %d labels (clear=%s, %d collisions)\n",
		*dbDir, tot.References, tot.Labels, opts.Policy, len(rep.Collisions))
	return nil
}
