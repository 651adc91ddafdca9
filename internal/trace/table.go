package trace

import "dosflow/internal/segaddr"

// Entry is one source address and its recorded destinations.
type Entry struct {
	Source       uint32
	Destinations []segaddr.Address
}

// EdgeTable maps source physical addresses to destination lists and
// iterates in insertion order. A source with no destinations is never stored.
type EdgeTable struct {
	keys  []uint32
	dests map[uint32][]segaddr.Address
}

// NewEdgeTable returns an empty table.
func NewEdgeTable() *EdgeTable {
	return &EdgeTable{dests: make(map[uint32][]segaddr.Address)}
}

// Put replaces the destinations of src. An existing key keeps its position.
// An empty dsts removes nothing and stores nothing.
func (t *EdgeTable) Put(src uint32, dsts []segaddr.Address) {
	if len(dsts) == 0 {
		return
	}
	if _, ok := t.dests[src]; !ok {
		t.keys = append(t.keys, src)
	}
	t.dests[src] = append([]segaddr.Address(nil), dsts...)
}

// Has reports whether src is a key.
func (t *EdgeTable) Has(src uint32) bool {
	if t == nil {
		return false
	}
	_, ok := t.dests[src]
	return ok
}

// Len returns the number of source addresses.
func (t *EdgeTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Sources returns the source addresses in insertion order.
func (t *EdgeTable) Sources() []uint32 {
	if t == nil {
		return nil
	}
	return append([]uint32(nil), t.keys...)
}

// Destinations returns a copy of src's destinations in recorded order.
func (t *EdgeTable) Destinations(src uint32) []segaddr.Address {
	if t == nil {
		return nil
	}
	return append([]segaddr.Address(nil), t.dests[src]...)
}

// Entries returns every source with its destinations, in insertion order.
func (t *EdgeTable) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, 0, len(t.keys))
	for _, k := range t.keys {
		out = append(out, Entry{Source: k, Destinations: t.Destinations(k)})
	}
	return out
}

// EdgeCount returns the total number of destinations across all sources.
func (t *EdgeTable) EdgeCount() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, d := range t.dests {
		n += len(d)
	}
	return n
}

// ModificationTable maps physical addresses to the values recorded when
// executable code was overwritten. Iterates in insertion order.
type ModificationTable struct {
	keys   []uint32
	values map[uint32][]int
}

// NewModificationTable returns an empty table.
func NewModificationTable() *ModificationTable {
	return &ModificationTable{values: make(map[uint32][]int)}
}

// Append adds values to addr's list.
func (m *ModificationTable) Append(addr uint32, values ...int) {
	if _, ok := m.values[addr]; !ok {
		m.keys = append(m.keys, addr)
	}
	m.values[addr] = append(m.values[addr], values...)
}

// Len returns the number of modified addresses.
func (m *ModificationTable) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Addresses returns the modified addresses in insertion order.
func (m *ModificationTable) Addresses() []uint32 {
	if m == nil {
		return nil
	}
	return append([]uint32(nil), m.keys...)
}

// Values returns a copy of the values recorded at addr.
func (m *ModificationTable) Values(addr uint32) []int {
	if m == nil {
		return nil
	}
	return append([]int(nil), m.values[addr]...)
}
