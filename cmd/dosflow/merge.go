package main

import (
	"flag"
	"fmt"
	"os"

	"dosflow/internal/trace"
)

func cmdMerge(args []string) error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	tf := addTraceFlags(fs)
	outPath := fs.String("out", "", "output dump file")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outPath == "" {
		return fmt.Errorf("--out is required")
	}
	*tf.traces = append(*tf.traces, fs.Args()...)

	doc, name, err := tf.load()
	if err != nil {
		return err
	}

	f, err := os.Create(*outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", *outPath, err)
	}
	defer f.Close()

	if err := trace.Encode(f, doc); err != nil {
		return fmt.Errorf("encode %s: %w", *outPath, err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s from %s: %d call, %d jump, %d ret sources, %d modifications\n",
		*outPath, name, doc.CallsFromTo().Len(), doc.JumpsFromTo().Len(), doc.RetsFromTo().Len(),
		doc.ExecutableCodeModification().Len())
	return nil
}
