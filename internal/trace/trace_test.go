package trace

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dosflow/internal/segaddr"
)

const sampleDump = `{
  "CallsFromTo": {
    "4096": [{"Segment": 4096, "Offset": 32}],
    "100":  [{"Segment": 0, "Offset": 10}]
  },
  "JumpsFromTo": {
    "512": [{"Segment": 0, "Offset": 768}, {"Segment": 0, "Offset": 1024}],
    "256": [{"Segment": 0, "Offset": 512}, {"Segment": 16, "Offset": 256}],
    "100": [{"Segment": 0, "Offset": 20}]
  },
  "RetsFromTo": {
    "4200": [{"Segment": 0, "Offset": 101}]
  },
  "ExecutableCodeModification": {
    "1234": [144, 195]
  },
  "SomethingElse": {"ignored": [1, 2, 3]}
}`

func decodeString(t *testing.T, s string) *Document {
	t.Helper()
	doc, err := Decode(strings.NewReader(s))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return doc
}

func TestDecodePreservesKeyOrder(t *testing.T) {
	doc := decodeString(t, sampleDump)

	got := doc.JumpsFromTo().Sources()
	want := []uint32{512, 256, 100}
	if len(got) != len(want) {
		t.Fatalf("sources = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sources = %v, want %v", got, want)
		}
	}

	dsts := doc.JumpsFromTo().Destinations(512)
	if len(dsts) != 2 || dsts[0] != segaddr.New(0, 768) || dsts[1] != segaddr.New(0, 1024) {
		t.Errorf("Destinations(512) = %v", dsts)
	}
}

func TestDecodeTables(t *testing.T) {
	doc := decodeString(t, sampleDump)

	if n := doc.CallsFromTo().Len(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
	if n := doc.RetsFromTo().Len(); n != 1 {
		t.Errorf("rets = %d, want 1", n)
	}
	mods := doc.ExecutableCodeModification()
	if mods.Len() != 1 {
		t.Fatalf("modifications = %d, want 1", mods.Len())
	}
	if v := mods.Values(1234); len(v) != 2 || v[0] != 144 || v[1] != 195 {
		t.Errorf("modification values = %v", v)
	}
}

func TestDecodeAbsentFieldsAreEmpty(t *testing.T) {
	doc := decodeString(t, `{"JumpsFromTo": {"256": [{"Segment": 0, "Offset": 512}]}, "RetsFromTo": null}`)
	if doc.CallsFromTo().Len() != 0 || doc.RetsFromTo().Len() != 0 {
		t.Error("absent and null tables should be empty")
	}
	if doc.ExecutableCodeModification().Len() != 0 {
		t.Error("absent modifications should be empty")
	}
	if doc.CallsJumpsFromTo().Len() != 1 {
		t.Errorf("merged view = %d entries, want 1", doc.CallsJumpsFromTo().Len())
	}

	empty := decodeString(t, `{}`)
	if empty.CallsJumpsFromTo().Len() != 0 || len(empty.JumpTargets()) != 0 {
		t.Error("empty document should have empty derived views")
	}
}

func TestDecodeHexKeysAndMasking(t *testing.T) {
	doc := decodeString(t, `{"JumpsFromTo": {"0x100": [{"Segment": 65537, "Offset": -1}]}}`)
	dsts := doc.JumpsFromTo().Destinations(0x100)
	if len(dsts) != 1 {
		t.Fatalf("Destinations(0x100) = %v", dsts)
	}
	if dsts[0].Segment != 1 || dsts[0].Offset != 0xFFFF {
		t.Errorf("masked = %04x:%04x, want 0001:ffff", dsts[0].Segment, dsts[0].Offset)
	}
}

func TestDecodeEmptyListNotStored(t *testing.T) {
	doc := decodeString(t, `{"CallsFromTo": {"5": [], "6": [{"Segment": 0, "Offset": 1}]}}`)
	if doc.CallsFromTo().Has(5) {
		t.Error("source with no destinations must not be a key")
	}
	if doc.CallsFromTo().Len() != 1 {
		t.Errorf("calls = %d, want 1", doc.CallsFromTo().Len())
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not_json", `not json`},
		{"array_root", `[]`},
		{"truncated", `{"CallsFromTo": {"1": [`},
		{"missing_offset", `{"CallsFromTo": {"1": [{"Segment": 1}]}}`},
		{"missing_segment", `{"JumpsFromTo": {"1": [{"Offset": 1}]}}`},
		{"null_record", `{"RetsFromTo": {"1": [null]}}`},
		{"fractional", `{"CallsFromTo": {"1": [{"Segment": 1.5, "Offset": 1}]}}`},
		{"bad_key", `{"CallsFromTo": {"abc": [{"Segment": 1, "Offset": 1}]}}`},
		{"negative_key", `{"CallsFromTo": {"-1": [{"Segment": 1, "Offset": 1}]}}`},
		{"duplicate_key", `{"CallsFromTo": {"1": [{"Segment": 1, "Offset": 1}], "1": [{"Segment": 2, "Offset": 2}]}}`},
		{"table_not_object", `{"CallsFromTo": [1, 2]}`},
		{"bad_modification", `{"ExecutableCodeModification": {"1": ["x"]}}`},
		{"trailing", `{} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.in))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("err = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestMergedViewJumpWinsOnCollision(t *testing.T) {
	calls := NewEdgeTable()
	calls.Put(100, []segaddr.Address{segaddr.New(0, 0xA)})
	calls.Put(200, []segaddr.Address{segaddr.New(0, 0xC)})
	jumps := NewEdgeTable()
	jumps.Put(100, []segaddr.Address{segaddr.New(0, 0xB)})

	doc := New(calls, jumps, nil, nil)

	merged := doc.CallsJumpsFromTo()
	got := merged.Destinations(100)
	if len(got) != 1 || got[0] != segaddr.New(0, 0xB) {
		t.Errorf("merged[100] = %v, want [B]", got)
	}
	if src := merged.Sources(); len(src) != 2 || src[0] != 100 || src[1] != 200 {
		t.Errorf("merged sources = %v, want [100 200]", src)
	}
	if c := doc.Collisions(); len(c) != 1 || c[0] != 100 {
		t.Errorf("collisions = %v, want [100]", c)
	}
	// The raw tables are untouched.
	if d := doc.CallsFromTo().Destinations(100); d[0] != segaddr.New(0, 0xA) {
		t.Errorf("calls[100] = %v", d)
	}
}

func TestJumpTargetsDeduplicateByPhysical(t *testing.T) {
	doc := decodeString(t, `{"JumpsFromTo": {
		"1": [{"Segment": 4096, "Offset": 0}, {"Segment": 0, "Offset": 5}],
		"2": [{"Segment": 4095, "Offset": 16}]
	}}`)
	targets := doc.JumpTargets()
	if len(targets) != 2 {
		t.Fatalf("targets = %v, want 2 entries", targets)
	}
	if targets[0] != segaddr.New(0x1000, 0) {
		t.Errorf("first target = %v, want first-seen encoding", targets[0])
	}
	if !doc.IsJumpTarget(0x10000) || doc.IsJumpTarget(0x10001) {
		t.Error("IsJumpTarget mismatch")
	}
}

func TestEncodeDecodeKeepsOrder(t *testing.T) {
	doc := decodeString(t, sampleDump)
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	again := decodeString(t, buf.String())
	if got := again.JumpsFromTo().Sources(); got[0] != 512 || got[2] != 100 {
		t.Errorf("sources after re-encode = %v", got)
	}
	if again.ExecutableCodeModification().Len() != 1 {
		t.Error("modifications lost")
	}
}

func TestMergeUnionsDestinations(t *testing.T) {
	a := decodeString(t, `{"JumpsFromTo": {"1": [{"Segment": 0, "Offset": 16}], "2": [{"Segment": 0, "Offset": 32}]}}`)
	b := decodeString(t, `{"JumpsFromTo": {"1": [{"Segment": 1, "Offset": 0}, {"Segment": 0, "Offset": 48}], "3": [{"Segment": 0, "Offset": 64}]}}`)

	m := Merge(a, b)
	if got := m.JumpsFromTo().Sources(); len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("sources = %v, want [1 2 3]", got)
	}
	d := m.JumpsFromTo().Destinations(1)
	// 0001:0000 aliases 0000:0010 and is dropped.
	if len(d) != 2 || d[0] != segaddr.New(0, 16) || d[1] != segaddr.New(0, 48) {
		t.Errorf("Destinations(1) = %v", d)
	}
	if len(m.JumpTargets()) != 4 {
		t.Errorf("jump targets = %d, want 4", len(m.JumpTargets()))
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flow.json")
	if err := os.WriteFile(path, []byte(sampleDump), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.JumpsFromTo().Len() != 3 {
		t.Errorf("jumps = %d, want 3", doc.JumpsFromTo().Len())
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"CallsFromTo": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !errors.Is(err, ErrMalformed) {
		t.Errorf("Load(bad) err = %v, want ErrMalformed", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) err = %v, want ErrNotExist", err)
	}
}
