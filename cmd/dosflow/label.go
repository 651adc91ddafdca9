package main

import (
	"flag"
	"fmt"
	"os"

	"dosflow/internal/annodb"
	"dosflow/internal/hexfmt"
)

func cmdLabel(args []string) error {
	fs := flag.NewFlagSet("label", flag.ExitOnError)
	dbDir := fs.String("db", "", "annotation database directory")
	addrStr := fs.String("addr", "", "linear address (hex)")
	name := fs.String("name", "", "symbol name")
	kind := fs.String("kind", string(annodb.SymbolLabel), "symbol kind: label, function, dynamic")
	source := fs.String("source", string(annodb.SourceUserDefined), "provenance: DEFAULT, ANALYSIS, IMPORTED, USER_DEFINED")
	secondary := fs.Bool("secondary", false, "do not make the symbol primary")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbDir == "" || *addrStr == "" || *name == "" {
		return fmt.Errorf("--db, --addr and --name are required")
	}

	addr, err := hexfmt.ParseHex(*addrStr)
	if err != nil {
		return fmt.Errorf("--addr %q: %w", *addrStr, err)
	}
	if addr > 0xFFFFFFFF {
		return fmt.Errorf("--addr %q: %w", *addrStr, annodb.ErrOutOfRange)
	}
	k, ok := annodb.ParseSymbolKind(*kind)
	if !ok {
		return fmt.Errorf("unknown --kind %q", *kind)
	}
	src, ok := annodb.ParseSourceType(*source)
	if !ok {
		return fmt.Errorf("unknown --source %q", *source)
	}

	db, err := annodb.Open(*dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	sym := annodb.Symbol{Addr: uint32(addr), Name: *name, Kind: k, Source: src, Primary: !*secondary}
	if err := db.AddSymbol(sym); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "labeled %s as %s (%s, %s)\n",
		hexfmt.LiteralToUpperHex(*addrStr), *name, k, src)
	return nil
}
