package render

import (
	"strconv"
	"strings"
	"testing"

	"dosflow/internal/trace"
)

func TestEdgesDOT(t *testing.T) {
	doc, err := trace.Decode(strings.NewReader(`{
		"CallsFromTo": {"100": [{"Segment": 4096, "Offset": 0}]},
		"JumpsFromTo": {"100": [{"Segment": 0, "Offset": 200}], "200": [{"Segment": 0, "Offset": 300}]},
		"RetsFromTo":  {"300": [{"Segment": 0, "Offset": 104}]}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	name := func(addr uint32) string { return "a" + strconv.FormatUint(uint64(addr), 10) }
	dot := EdgesDOT(doc, name, "flow <test>", NASA)

	for _, want := range []string{
		"digraph flow {",
		"flow &lt;test&gt;",
		"subgraph cluster_0000 {",
		"n_a100 -> n_a200 [color=\"#0B3D91\", style=solid];",
		"n_a100 -> n_a65536 [color=\"#FC3D21\", style=solid];",
		"n_a300 -> n_a104 [color=\"#00695C\", style=dashed];",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q\n%s", want, dot)
		}
	}
	if !strings.HasSuffix(dot, "}\n") {
		t.Error("DOT not terminated")
	}
	// 0x10000 is the only node in segment 1000 and is rendered unclustered.
	if strings.Contains(dot, "cluster_1000") {
		t.Error("single-member segment should not be clustered")
	}
}

func TestDotIDAndEscape(t *testing.T) {
	if got := dotID("label.x"); got != "n_label_2ex" {
		t.Errorf("dotID = %q", got)
	}
	if got := dotEscape(`a<b>&"`); got != "a&lt;b&gt;&amp;&quot;" {
		t.Errorf("dotEscape = %q", got)
	}
	if got := truncLabel("generated_label_COMPUTED_JUMP_1000_0200_010200", 12); got != "...00_010200" {
		t.Errorf("truncLabel = %q", got)
	}
}
