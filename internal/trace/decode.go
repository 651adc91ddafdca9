package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"dosflow/internal/hexfmt"
	"dosflow/internal/segaddr"
)

// ErrMalformed is returned for input that is not a well-formed dump.
var ErrMalformed = errors.New("malformed trace")

// Top-level field names written by the emulator's execution-flow dumper.
const (
	FieldCalls         = "CallsFromTo"
	FieldJumps         = "JumpsFromTo"
	FieldRets          = "RetsFromTo"
	FieldModifications = "ExecutableCodeModification"
)

// record is one destination as serialized by the emulator.
type record struct {
	Segment *json.Number `json:"Segment"`
	Offset  *json.Number `json:"Offset"`
}

// Load reads and decodes the dump at path. The file is closed before
// returning, including on decode failure.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: open %s: %w", path, err)
	}
	defer f.Close()

	doc, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("trace: %s: %w", path, err)
	}
	return doc, nil
}

// Decode parses a dump. JSON key order is preserved in every table since it
// becomes the ordinal order of imported references. Absent or null tables
// are empty; unknown top-level fields are skipped.
func Decode(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{', "document"); err != nil {
		return nil, err
	}

	var calls, jumps, rets *EdgeTable
	var mods *ModificationTable
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed("field name: %v", err)
		}
		name, _ := tok.(string)
		switch name {
		case FieldCalls:
			calls, err = decodeEdgeTable(dec, name)
		case FieldJumps:
			jumps, err = decodeEdgeTable(dec, name)
		case FieldRets:
			rets, err = decodeEdgeTable(dec, name)
		case FieldModifications:
			mods, err = decodeModifications(dec)
		default:
			var skip json.RawMessage
			if derr := dec.Decode(&skip); derr != nil {
				err = malformed("%s: %v", name, derr)
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if err := expectDelim(dec, '}', "document"); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, malformed("trailing data after document")
	}

	return New(calls, jumps, rets, mods), nil
}

func decodeEdgeTable(dec *json.Decoder, field string) (*EdgeTable, error) {
	t := NewEdgeTable()
	open, err := dec.Token()
	if err != nil {
		return nil, malformed("%s: %v", field, err)
	}
	if open == nil {
		return t, nil
	}
	if open != json.Delim('{') {
		return nil, malformed("%s: expected object, got %v", field, open)
	}

	seen := make(map[uint32]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed("%s: %v", field, err)
		}
		key, _ := tok.(string)
		src, err := parseKey(key)
		if err != nil {
			return nil, malformed("%s: key %q: %v", field, key, err)
		}
		if seen[src] {
			return nil, malformed("%s: duplicate key %q", field, key)
		}
		seen[src] = true

		var recs []record
		if err := dec.Decode(&recs); err != nil {
			return nil, malformed("%s[%s]: %v", field, key, err)
		}
		dsts := make([]segaddr.Address, 0, len(recs))
		for i, rec := range recs {
			a, err := rec.address()
			if err != nil {
				return nil, malformed("%s[%s][%d]: %v", field, key, i, err)
			}
			dsts = append(dsts, a)
		}
		t.Put(src, dsts)
	}
	if err := expectDelim(dec, '}', field); err != nil {
		return nil, err
	}
	return t, nil
}

func decodeModifications(dec *json.Decoder) (*ModificationTable, error) {
	m := NewModificationTable()
	open, err := dec.Token()
	if err != nil {
		return nil, malformed("%s: %v", FieldModifications, err)
	}
	if open == nil {
		return m, nil
	}
	if open != json.Delim('{') {
		return nil, malformed("%s: expected object, got %v", FieldModifications, open)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, malformed("%s: %v", FieldModifications, err)
		}
		key, _ := tok.(string)
		addr, err := parseKey(key)
		if err != nil {
			return nil, malformed("%s: key %q: %v", FieldModifications, key, err)
		}
		var nums []json.Number
		if err := dec.Decode(&nums); err != nil {
			return nil, malformed("%s[%s]: %v", FieldModifications, key, err)
		}
		values := make([]int, 0, len(nums))
		for i, n := range nums {
			v, err := n.Int64()
			if err != nil {
				return nil, malformed("%s[%s][%d]: %v", FieldModifications, key, i, err)
			}
			values = append(values, int(v))
		}
		m.Append(addr, values...)
	}
	if err := expectDelim(dec, '}', FieldModifications); err != nil {
		return nil, err
	}
	return m, nil
}

func (r record) address() (segaddr.Address, error) {
	if r.Segment == nil || r.Offset == nil {
		return segaddr.Address{}, errors.New("missing Segment or Offset")
	}
	seg, err := r.Segment.Int64()
	if err != nil {
		return segaddr.Address{}, fmt.Errorf("Segment: %w", err)
	}
	off, err := r.Offset.Int64()
	if err != nil {
		return segaddr.Address{}, fmt.Errorf("Offset: %w", err)
	}
	return segaddr.New(int(seg), int(off)), nil
}

// parseKey accepts a decimal or 0x-prefixed hexadecimal source address.
func parseKey(key string) (uint32, error) {
	if strings.HasPrefix(key, "0x") || strings.HasPrefix(key, "0X") {
		v, err := hexfmt.ParseHex(key)
		if err != nil {
			return 0, err
		}
		if v > math.MaxUint32 {
			return 0, fmt.Errorf("address out of range")
		}
		return uint32(v), nil
	}
	v, err := strconv.ParseUint(key, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func expectDelim(dec *json.Decoder, want json.Delim, what string) error {
	tok, err := dec.Token()
	if err != nil {
		return malformed("%s: %v", what, err)
	}
	if tok != want {
		return malformed("%s: expected %v, got %v", what, want, tok)
	}
	return nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
