package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dosflow/internal/annodb"
)

var snap = annodb.Snapshot{
	References: []annodb.Reference{
		{From: 0x10100, To: 0x10200, Kind: annodb.ComputedJump, Source: annodb.SourceImported, Index: 0},
	},
	Symbols: []annodb.Symbol{
		{Addr: 0x10200, Name: "generated_label_COMPUTED_JUMP_1000_0200_010200", Kind: annodb.SymbolLabel, Source: annodb.SourceUserDefined, Primary: true},
	},
}

func TestBuildExport(t *testing.T) {
	exp := BuildExport(snap)
	if exp.Version != ExportVersion {
		t.Errorf("version = %q", exp.Version)
	}
	if len(exp.References) != 1 || exp.References[0].From != "0x10100" || exp.References[0].To != "0x10200" {
		t.Errorf("references = %+v", exp.References)
	}
	if exp.References[0].Kind != "COMPUTED_JUMP" || exp.References[0].Source != "IMPORTED" {
		t.Errorf("reference kind/source = %+v", exp.References[0])
	}
	if len(exp.Labels) != 1 || exp.Labels[0].Addr != "0x10200" || !exp.Labels[0].Primary {
		t.Errorf("labels = %+v", exp.Labels)
	}
}

func TestBuildExportEmpty(t *testing.T) {
	data, err := json.Marshal(BuildExport(annodb.Snapshot{}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"references":[]`) || !strings.Contains(string(data), `"labels":[]`) {
		t.Errorf("empty export = %s", data)
	}
}

func TestWriteExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.json")
	if err := WriteExportJSON(path, snap); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Export
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.References) != 1 || got.Labels[0].Name != snap.Symbols[0].Name {
		t.Errorf("round trip = %+v", got)
	}
}

func TestDiffExports(t *testing.T) {
	a, _ := json.Marshal(BuildExport(snap))

	text, changed, err := DiffExports(a, a, false)
	if err != nil {
		t.Fatal(err)
	}
	if changed || text != "" {
		t.Errorf("identical exports reported changed: %q", text)
	}

	other := snap
	other.Symbols = []annodb.Symbol{{Addr: 0x10200, Name: "dispatch", Kind: annodb.SymbolLabel, Source: annodb.SourceUserDefined, Primary: true}}
	b, _ := json.Marshal(BuildExport(other))
	text, changed, err = DiffExports(a, b, false)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("changed label not detected")
	}
	if !strings.Contains(text, "dispatch") {
		t.Errorf("diff missing new name:\n%s", text)
	}
}

func TestDiffExportsInvalid(t *testing.T) {
	if _, _, err := DiffExports([]byte("{"), []byte("{}"), false); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
