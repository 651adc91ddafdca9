package render

import (
	"fmt"
	"slices"
	"strings"

	"dosflow/internal/trace"
)

// Edge categories.
const (
	CatJump = "jump"
	CatCall = "call"
	CatRet  = "ret"
)

// edgeColor returns the DOT color for an edge category.
func edgeColor(cat string, t Theme) string {
	switch cat {
	case CatJump:
		return t.EdgeJump
	case CatCall:
		return t.EdgeCall
	case CatRet:
		return t.EdgeRet
	default:
		return t.EdgeCall
	}
}

// edgeStyle returns the DOT style for an edge category.
func edgeStyle(cat string) string {
	if cat == CatRet {
		return "dashed"
	}
	return "solid"
}

type node struct {
	addr    uint32
	segment uint16
	hasSeg  bool
}

// EdgesDOT renders every traced jump, call and return of doc as DOT.
// Destinations are clustered by the segment they were reached through;
// jump targets are filled and call sites that were also recorded as jump
// sites get the collision color. name labels a physical address.
func EdgesDOT(doc *trace.Document, name func(uint32) string, title string, t Theme) string {
	var order []uint32
	nodes := make(map[uint32]*node)
	addNode := func(addr uint32) *node {
		n, ok := nodes[addr]
		if !ok {
			n = &node{addr: addr}
			nodes[addr] = n
			order = append(order, addr)
		}
		return n
	}

	type edgeKey struct {
		from, to uint32
		cat      string
	}
	var edges []edgeKey
	seen := make(map[edgeKey]bool)

	tables := []struct {
		cat   string
		table *trace.EdgeTable
	}{
		{CatJump, doc.JumpsFromTo()},
		{CatCall, doc.CallsFromTo()},
		{CatRet, doc.RetsFromTo()},
	}
	for _, tt := range tables {
		for _, e := range tt.table.Entries() {
			addNode(e.Source)
			for _, d := range e.Destinations {
				n := addNode(d.Physical())
				if !n.hasSeg {
					n.segment, n.hasSeg = d.Segment, true
				}
				k := edgeKey{e.Source, d.Physical(), tt.cat}
				if !seen[k] {
					seen[k] = true
					edges = append(edges, k)
				}
			}
		}
	}

	collisions := make(map[uint32]bool)
	for _, c := range doc.Collisions() {
		collisions[c] = true
	}

	var b strings.Builder
	b.WriteString("digraph flow {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  compound=true;\n")
	b.WriteString("  nodesep=0.4;\n")
	b.WriteString("  ranksep=0.6;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Courier,monospace\", fontsize=9, fontcolor=%q, height=0.3, margin=\"0.12,0.06\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee];\n")
	if title != "" {
		fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.TextColor, dotEscape(title))
	}
	b.WriteByte('\n')

	nodeLine := func(indent string, n *node) {
		label := dotEscape(truncLabel(name(n.addr), 50))
		attrs := ""
		switch {
		case doc.IsJumpTarget(n.addr):
			attrs = fmt.Sprintf(", fillcolor=%q", t.JumpTargetFill)
		case !n.hasSeg:
			attrs = fmt.Sprintf(", fontcolor=%q", t.SourceText)
		}
		if collisions[n.addr] {
			attrs += fmt.Sprintf(", color=%q, penwidth=1.5", t.EdgeCollision)
		}
		fmt.Fprintf(&b, "%s%s [label=<%s>%s];\n", indent, dotID(name(n.addr)), label, attrs)
	}

	// Group destinations by segment.
	bySeg := make(map[uint16][]*node)
	var segs []uint16
	var loose []*node
	for _, addr := range order {
		n := nodes[addr]
		if !n.hasSeg {
			loose = append(loose, n)
			continue
		}
		if _, ok := bySeg[n.segment]; !ok {
			segs = append(segs, n.segment)
		}
		bySeg[n.segment] = append(bySeg[n.segment], n)
	}
	slices.Sort(segs)

	for _, seg := range segs {
		members := bySeg[seg]
		if len(members) < 2 {
			loose = append(loose, members...)
			continue
		}
		fmt.Fprintf(&b, "  subgraph cluster_%04X {\n", seg)
		fmt.Fprintf(&b, "    label=<<font point-size=\"8\" color=\"%s\">segment %04X</font>>;\n", t.ClusterLabel, seg)
		fmt.Fprintf(&b, "    style=dotted; color=%q; penwidth=0.3;\n", t.ClusterBorder)
		for _, n := range members {
			nodeLine("    ", n)
		}
		b.WriteString("  }\n")
	}
	for _, n := range loose {
		nodeLine("  ", n)
	}
	b.WriteByte('\n')

	for _, e := range edges {
		color := edgeColor(e.cat, t)
		if e.cat == CatCall && collisions[e.from] {
			color = t.EdgeCollision
		}
		fmt.Fprintf(&b, "  %s -> %s [color=%q, style=%s];\n",
			dotID(name(e.from)), dotID(name(e.to)), color, edgeStyle(e.cat))
	}

	b.WriteString("}\n")
	return b.String()
}
