// Package config locates the execution-flow dump written by the emulator.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DumpsFolderEnv names the directory the emulator writes its dumps to.
	DumpsFolderEnv = "SPICE86_DUMPS_FOLDER"
	// ExecutionFlowFile is the dump file name inside that directory.
	ExecutionFlowFile = "spice86dumpExecutionFlow.json"
)

var (
	ErrNoDumpsFolder = errors.New("no dumps folder: pass --trace or --dumps, or set " + DumpsFolderEnv)
	ErrTraceMissing  = errors.New("execution flow dump not found")
)

// TracePath resolves the dump to read. Search order:
//  1. explicit file path (--trace)
//  2. dumpsDir/ExecutionFlowFile (--dumps)
//  3. $SPICE86_DUMPS_FOLDER/ExecutionFlowFile
//
// getenv is os.Getenv outside tests. The file must exist.
func TracePath(explicit, dumpsDir string, getenv func(string) string) (string, error) {
	path := explicit
	if path == "" {
		dir := dumpsDir
		if dir == "" && getenv != nil {
			dir = getenv(DumpsFolderEnv)
		}
		if dir == "" {
			return "", ErrNoDumpsFolder
		}
		path = filepath.Join(dir, ExecutionFlowFile)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTraceMissing, path, err)
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrTraceMissing, path)
	}
	return path, nil
}
