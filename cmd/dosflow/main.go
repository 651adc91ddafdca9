package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "import":
		err = cmdImport(os.Args[2:])
	case "inspect":
		err = cmdInspect(os.Args[2:])
	case "export":
		err = cmdExport(os.Args[2:])
	case "graph":
		err = cmdGraph(os.Args[2:])
	case "diff":
		err = cmdDiff(os.Args[2:])
	case "label":
		err = cmdLabel(os.Args[2:])
	case "merge":
		err = cmdMerge(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `dosflow: apply emulator execution flow to a disassembly database

Usage:
  dosflow import  --db <dir> [--trace <file>|--dumps <dir>]   Reconcile traced jumps, calls and returns
  dosflow inspect [--trace <file>|--dumps <dir>] [--max <n>]  Summarize an execution flow dump
  dosflow export  --db <dir> [--out <file>]                   Export references and labels as JSON
  dosflow graph   [--trace <file>|--dumps <dir>] --out <dir>  Render flow, call and edge graphs as DOT
  dosflow diff    --a <file> --b <file>                       Compare two exports
  dosflow label   --db <dir> --addr <hex> --name <name>       Add a symbol to the database
  dosflow merge   --out <file> <dump>...                      Merge dumps into one

Flags:
  --trace <file>        Execution flow dump (spice86dumpExecutionFlow.json), repeatable
  --dumps <dir>         Dumps folder (default: $SPICE86_DUMPS_FOLDER)
  --db <dir>            Annotation database directory
  --clear-all           Remove every existing reference at a traced source
  --label-prefix <s>    Prefix of generated labels (default generated_label_)
  --log-level <level>   debug, info, warn or error
`)
}
