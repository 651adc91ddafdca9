package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"dosflow/internal/output"
)

var errExportsDiffer = errors.New("exports differ")

func cmdDiff(args []string) error {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	aPath := fs.String("a", "", "first export")
	bPath := fs.String("b", "", "second export")
	color := fs.Bool("color", false, "ANSI-colored output")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *aPath == "" || *bPath == "" {
		return fmt.Errorf("--a and --b are required")
	}

	a, err := os.ReadFile(*aPath)
	if err != nil {
		return err
	}
	b, err := os.ReadFile(*bPath)
	if err != nil {
		return err
	}

	text, changed, err := output.DiffExports(a, b, *color)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintf(os.Stderr, "exports match\n")
		return nil
	}
	fmt.Print(text)
	return errExportsDiffer
}
