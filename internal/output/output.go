// Package output writes reconciled annotations to files.
package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"dosflow/internal/annodb"
	"dosflow/internal/hexfmt"
)

// ExportVersion identifies the export layout.
const ExportVersion = "1"

// ExportRef is a reference with hex addresses.
type ExportRef struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Kind   string `json:"kind"`
	Source string `json:"source"`
	Index  int    `json:"index"`
}

// ExportLabel is a symbol with a hex address.
type ExportLabel struct {
	Addr    string `json:"addr"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Source  string `json:"source"`
	Primary bool   `json:"primary,omitempty"`
}

// Export is the top-level export.json structure.
type Export struct {
	Version    string        `json:"version"`
	References []ExportRef   `json:"references"`
	Labels     []ExportLabel `json:"labels"`
}

// BuildExport converts a database snapshot. Lists are never nil.
func BuildExport(snap annodb.Snapshot) Export {
	exp := Export{
		Version:    ExportVersion,
		References: make([]ExportRef, 0, len(snap.References)),
		Labels:     make([]ExportLabel, 0, len(snap.Symbols)),
	}
	for _, r := range snap.References {
		exp.References = append(exp.References, ExportRef{
			From:   hexfmt.ToHexWith0X(uint64(r.From)),
			To:     hexfmt.ToHexWith0X(uint64(r.To)),
			Kind:   string(r.Kind),
			Source: string(r.Source),
			Index:  r.Index,
		})
	}
	for _, s := range snap.Symbols {
		exp.Labels = append(exp.Labels, ExportLabel{
			Addr:    hexfmt.ToHexWith0X(uint64(s.Addr)),
			Name:    s.Name,
			Kind:    string(s.Kind),
			Source:  string(s.Source),
			Primary: s.Primary,
		})
	}
	return exp
}

// WriteExportJSON writes the export of snap to path.
func WriteExportJSON(path string, snap annodb.Snapshot) error {
	return writeJSON(path, BuildExport(snap))
}

// DiffExports compares two export documents. It returns an ASCII rendering
// of the changes and whether anything changed.
func DiffExports(left, right []byte, color bool) (string, bool, error) {
	delta, err := gojsondiff.New().Compare(left, right)
	if err != nil {
		return "", false, fmt.Errorf("output: diff: %w", err)
	}
	if !delta.Modified() {
		return "", false, nil
	}

	var leftObj map[string]any
	if err := json.Unmarshal(left, &leftObj); err != nil {
		return "", true, fmt.Errorf("output: diff: %w", err)
	}
	f := formatter.NewAsciiFormatter(leftObj, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
		Coloring:       color,
	})
	text, err := f.Format(delta)
	if err != nil {
		return "", true, fmt.Errorf("output: format diff: %w", err)
	}
	return text, true, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}
