package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xlab/treeprint"

	"dosflow/internal/hexfmt"
	"dosflow/internal/trace"
)

func cmdInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	tf := addTraceFlags(fs)
	maxSources := fs.Int("max", 20, "max sources listed per category (0 = all)")
	memPath := fs.String("memory", "", "raw memory dump for showing modified code bytes")

	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, path, err := tf.load()
	if err != nil {
		return err
	}

	var mem []byte
	if *memPath != "" {
		mem, err = os.ReadFile(*memPath)
		if err != nil {
			return fmt.Errorf("read memory dump: %w", err)
		}
	}

	fmt.Print(inspectTree(doc, path, *maxSources, mem))
	return nil
}

// inspectTree renders the dump summary as a tree.
func inspectTree(doc *trace.Document, title string, maxSources int, mem []byte) string {
	tree := treeprint.New()
	tree.SetValue(title)

	addEdges(tree, "calls", doc.CallsFromTo(), maxSources)
	addEdges(tree, "jumps", doc.JumpsFromTo(), maxSources)
	addEdges(tree, "rets", doc.RetsFromTo(), maxSources)

	targets := doc.JumpTargets()
	tree.AddNode(fmt.Sprintf("jump targets: %d", len(targets)))

	if cols := doc.Collisions(); len(cols) > 0 {
		br := tree.AddBranch(fmt.Sprintf("call/jump collisions: %d", len(cols)))
		for _, c := range cols {
			br.AddNode(hexfmt.ToHexWith0X(uint64(c)))
		}
	}

	mods := doc.ExecutableCodeModification()
	br := tree.AddBranch(fmt.Sprintf("code modifications: %d", mods.Len()))
	for i, addr := range mods.Addresses() {
		if maxSources > 0 && i >= maxSources {
			br.AddNode(fmt.Sprintf("... %d more", mods.Len()-i))
			break
		}
		label := fmt.Sprintf("%s: %v", hexfmt.ToHexWith0X(uint64(addr)), mods.Values(addr))
		if int(addr)+1 < len(mem) {
			label += fmt.Sprintf(" now %02X (word %04X)",
				hexfmt.Uint8At(mem, int(addr)), hexfmt.Uint16At(mem, int(addr)))
		}
		br.AddNode(label)
	}
	return tree.String()
}

func addEdges(tree treeprint.Tree, name string, table *trace.EdgeTable, maxSources int) {
	br := tree.AddBranch(fmt.Sprintf("%s: %d sources, %d edges", name, table.Len(), table.EdgeCount()))
	for i, e := range table.Entries() {
		if maxSources > 0 && i >= maxSources {
			br.AddNode(fmt.Sprintf("... %d more", table.Len()-i))
			break
		}
		src := br.AddBranch(hexfmt.ToHexWith0X(uint64(e.Source)))
		for _, d := range e.Destinations {
			src.AddNode(d.String())
		}
	}
}
