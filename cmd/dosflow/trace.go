package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"dosflow/internal/config"
	"dosflow/internal/trace"
)

// pathList is a repeatable string flag.
type pathList []string

func (p *pathList) String() string { return strings.Join(*p, ",") }

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

// traceFlags are the flags shared by commands that read dumps.
type traceFlags struct {
	traces *pathList
	dumps  *string
}

func addTraceFlags(fs *flag.FlagSet) traceFlags {
	tf := traceFlags{
		traces: new(pathList),
		dumps:  fs.String("dumps", "", "dumps folder (default: $"+config.DumpsFolderEnv+")"),
	}
	fs.Var(tf.traces, "trace", "execution flow dump file (repeatable, dumps are merged)")
	return tf
}

// load resolves the dump paths and decodes them. Several dumps are merged
// in the order given.
func (f traceFlags) load() (*trace.Document, string, error) {
	paths := []string(*f.traces)
	if len(paths) == 0 {
		path, err := config.TracePath("", *f.dumps, os.Getenv)
		if err != nil {
			return nil, "", err
		}
		paths = []string{path}
	}
	return loadDumps(paths)
}

func loadDumps(paths []string) (*trace.Document, string, error) {
	docs := make([]*trace.Document, 0, len(paths))
	for _, p := range paths {
		path, err := config.TracePath(p, "", nil)
		if err != nil {
			return nil, "", err
		}
		doc, err := trace.Load(path)
		if err != nil {
			return nil, path, fmt.Errorf("read %s: %w", path, err)
		}
		docs = append(docs, doc)
	}
	name := strings.Join(paths, " + ")
	if len(docs) == 1 {
		return docs[0], name, nil
	}
	return trace.Merge(docs...), name, nil
}
