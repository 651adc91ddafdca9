// Package callgraph turns traced edges into lattice graphs.
package callgraph

import (
	"github.com/zboralski/lattice"

	"dosflow/internal/annodb"
	"dosflow/internal/hexfmt"
	"dosflow/internal/trace"
)

// NameFunc returns the node name of a physical address.
type NameFunc func(addr uint32) string

// HexName names an address 0x1A2B.
func HexName(addr uint32) string {
	return hexfmt.ToHexWith0X(uint64(addr))
}

// SymbolLookup is the part of the database needed for naming.
type SymbolLookup interface {
	PrimarySymbol(addr uint32) (annodb.Symbol, bool, error)
}

// SymbolNames names addresses by their primary symbol, falling back to HexName.
func SymbolNames(db SymbolLookup) NameFunc {
	return func(addr uint32) string {
		if sym, ok, err := db.PrimarySymbol(addr); err == nil && ok {
			return sym.Name
		}
		return HexName(addr)
	}
}

// BuildGraph constructs a lattice.Graph from an edge table.
// Every source and destination becomes a node, in first-seen order; every
// distinct edge becomes an edge.
func BuildGraph(table *trace.EdgeTable, name NameFunc) *lattice.Graph {
	if name == nil {
		name = HexName
	}
	g := &lattice.Graph{}
	seen := make(map[string]bool)
	addNode := func(n string) {
		if !seen[n] {
			seen[n] = true
			g.Nodes = append(g.Nodes, n)
		}
	}
	seenEdge := make(map[[2]string]bool)
	for _, e := range table.Entries() {
		from := name(e.Source)
		addNode(from)
		for _, d := range e.Destinations {
			to := name(d.Physical())
			addNode(to)
			if seenEdge[[2]string{from, to}] {
				continue
			}
			seenEdge[[2]string{from, to}] = true
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: from,
				Callee: to,
			})
		}
	}
	g.Dedup()
	return g
}

// BuildFlowGraph graphs the merged call+jump view of doc.
func BuildFlowGraph(doc *trace.Document, name NameFunc) *lattice.Graph {
	return BuildGraph(doc.CallsJumpsFromTo(), name)
}

// BuildCallGraph graphs only the call edges of doc.
func BuildCallGraph(doc *trace.Document, name NameFunc) *lattice.Graph {
	return BuildGraph(doc.CallsFromTo(), name)
}
