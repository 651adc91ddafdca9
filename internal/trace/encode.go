package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Encode writes doc in the emulator's dump format. Keys are decimal and
// appear in table order.
func Encode(w io.Writer, doc *Document) error {
	var b bytes.Buffer
	b.WriteByte('{')
	tables := []struct {
		name string
		t    *EdgeTable
	}{
		{FieldCalls, doc.callsFromTo},
		{FieldJumps, doc.jumpsFromTo},
		{FieldRets, doc.retsFromTo},
	}
	for i, tt := range tables {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:{", tt.name)
		for j, e := range tt.t.Entries() {
			if j > 0 {
				b.WriteByte(',')
			}
			recs := make([]map[string]uint16, len(e.Destinations))
			for k, a := range e.Destinations {
				recs[k] = map[string]uint16{"Segment": a.Segment, "Offset": a.Offset}
			}
			data, err := json.Marshal(recs)
			if err != nil {
				return fmt.Errorf("trace: encode %s: %w", tt.name, err)
			}
			fmt.Fprintf(&b, "%q:%s", strconv.FormatUint(uint64(e.Source), 10), data)
		}
		b.WriteByte('}')
	}

	fmt.Fprintf(&b, ",%q:{", FieldModifications)
	for i, addr := range doc.modifications.Addresses() {
		if i > 0 {
			b.WriteByte(',')
		}
		values := doc.modifications.Values(addr)
		if values == nil {
			values = []int{}
		}
		data, err := json.Marshal(values)
		if err != nil {
			return fmt.Errorf("trace: encode %s: %w", FieldModifications, err)
		}
		fmt.Fprintf(&b, "%q:%s", strconv.FormatUint(uint64(addr), 10), data)
	}
	b.WriteString("}}\n")

	_, err := w.Write(b.Bytes())
	return err
}
