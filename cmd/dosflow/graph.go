package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	lrender "github.com/zboralski/lattice/render"

	"dosflow/internal/annodb"
	"dosflow/internal/callgraph"
	"dosflow/internal/render"
)

func cmdGraph(args []string) error {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	tf := addTraceFlags(fs)
	outDir := fs.String("out", "", "output directory")
	dbDir := fs.String("db", "", "annotation database for node names (optional)")
	title := fs.String("title", "dosflow", "graph title")
	svg := fs.Bool("svg", false, "also render SVG with graphviz dot")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outDir == "" {
		return fmt.Errorf("--out is required")
	}

	doc, _, err := tf.load()
	if err != nil {
		return err
	}

	name := callgraph.NameFunc(callgraph.HexName)
	if *dbDir != "" {
		db, err := annodb.Open(*dbDir)
		if err != nil {
			return err
		}
		defer db.Close()
		name = callgraph.SymbolNames(db)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	files := []struct {
		file string
		dot  string
	}{
		{"flow.dot", lrender.DOT(callgraph.BuildFlowGraph(doc, name), *title)},
		{"callgraph.dot", lrender.DOT(callgraph.BuildCallGraph(doc, name), *title+" calls")},
		{"edges.dot", render.EdgesDOT(doc, name, *title, render.NASA)},
	}
	var dotPaths []string
	for _, f := range files {
		path := filepath.Join(*outDir, f.file)
		if err := os.WriteFile(path, []byte(f.dot), 0644); err != nil {
			return fmt.Errorf("write %s: %w", f.file, err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s (%d bytes)\n", path, len(f.dot))
		dotPaths = append(dotPaths, path)
	}

	if !*svg {
		return nil
	}
	dotBin, err := exec.LookPath("dot")
	if err != nil {
		fmt.Fprintf(os.Stderr, "dot not found, skipping SVG\n")
		return nil
	}
	for _, df := range dotPaths {
		svgPath := df[:len(df)-len(".dot")] + ".svg"
		cmd := exec.Command(dotBin, "-Tsvg", "-o", svgPath, df)
		if out, err := cmd.CombinedOutput(); err != nil {
			fmt.Fprintf(os.Stderr, "dot render failed for %s: %v\n%s\n", filepath.Base(df), err, out)
			continue
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", svgPath)
	}
	return nil
}
