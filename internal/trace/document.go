// Package trace loads execution-flow dumps recorded by the emulator: the
// call, jump and return edges it observed and the addresses where
// executable code was modified at runtime.
package trace

import "dosflow/internal/segaddr"

// Document is a decoded execution-flow dump. It is immutable once built by
// New; the derived views are computed there and never recomputed.
type Document struct {
	callsFromTo   *EdgeTable
	jumpsFromTo   *EdgeTable
	retsFromTo    *EdgeTable
	modifications *ModificationTable

	callsJumpsFromTo *EdgeTable
	jumpTargets      []segaddr.Address
	jumpTargetSet    map[uint32]bool
	collisions       []uint32
}

// New builds a Document from the raw tables and computes the derived views.
// Nil tables are treated as empty. The tables must not be modified afterwards.
func New(calls, jumps, rets *EdgeTable, mods *ModificationTable) *Document {
	if calls == nil {
		calls = NewEdgeTable()
	}
	if jumps == nil {
		jumps = NewEdgeTable()
	}
	if rets == nil {
		rets = NewEdgeTable()
	}
	if mods == nil {
		mods = NewModificationTable()
	}
	d := &Document{
		callsFromTo:   calls,
		jumpsFromTo:   jumps,
		retsFromTo:    rets,
		modifications: mods,
	}
	d.init()
	return d
}

func (d *Document) init() {
	// Jump entries overwrite call entries at the same source.
	merged := NewEdgeTable()
	for _, e := range d.callsFromTo.Entries() {
		merged.Put(e.Source, e.Destinations)
	}
	for _, e := range d.jumpsFromTo.Entries() {
		if merged.Has(e.Source) {
			d.collisions = append(d.collisions, e.Source)
		}
		merged.Put(e.Source, e.Destinations)
	}
	d.callsJumpsFromTo = merged

	d.jumpTargetSet = make(map[uint32]bool)
	for _, e := range d.jumpsFromTo.Entries() {
		for _, dst := range e.Destinations {
			if d.jumpTargetSet[dst.Physical()] {
				continue
			}
			d.jumpTargetSet[dst.Physical()] = true
			d.jumpTargets = append(d.jumpTargets, dst)
		}
	}
}

// CallsFromTo returns call sites → callees.
func (d *Document) CallsFromTo() *EdgeTable { return d.callsFromTo }

// JumpsFromTo returns jump sites → jump targets.
func (d *Document) JumpsFromTo() *EdgeTable { return d.jumpsFromTo }

// RetsFromTo returns return sites → return addresses.
func (d *Document) RetsFromTo() *EdgeTable { return d.retsFromTo }

// ExecutableCodeModification returns the self-modifying code record.
func (d *Document) ExecutableCodeModification() *ModificationTable { return d.modifications }

// CallsJumpsFromTo returns calls and jumps merged by source address. When a
// source is both a call and a jump site only the jump destinations are kept.
func (d *Document) CallsJumpsFromTo() *EdgeTable { return d.callsJumpsFromTo }

// JumpTargets returns every jump destination once, by physical identity,
// in first-seen order.
func (d *Document) JumpTargets() []segaddr.Address {
	return append([]segaddr.Address(nil), d.jumpTargets...)
}

// IsJumpTarget reports whether a physical address is a jump destination.
func (d *Document) IsJumpTarget(physical uint32) bool {
	return d.jumpTargetSet[physical]
}

// Collisions returns the source addresses whose call entry was replaced by
// a jump entry in CallsJumpsFromTo.
func (d *Document) Collisions() []uint32 {
	return append([]uint32(nil), d.collisions...)
}

// Merge combines documents in order. Destination lists of a source are
// unioned, keeping the first occurrence of each physical address.
// Modification values are concatenated.
func Merge(docs ...*Document) *Document {
	calls, jumps, rets := NewEdgeTable(), NewEdgeTable(), NewEdgeTable()
	mods := NewModificationTable()
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		mergeInto(calls, doc.callsFromTo)
		mergeInto(jumps, doc.jumpsFromTo)
		mergeInto(rets, doc.retsFromTo)
		for _, addr := range doc.modifications.Addresses() {
			mods.Append(addr, doc.modifications.Values(addr)...)
		}
	}
	return New(calls, jumps, rets, mods)
}

func mergeInto(dst, src *EdgeTable) {
	for _, e := range src.Entries() {
		existing := dst.Destinations(e.Source)
		for _, a := range e.Destinations {
			if !containsPhysical(existing, a) {
				existing = append(existing, a)
			}
		}
		dst.Put(e.Source, existing)
	}
}

func containsPhysical(addrs []segaddr.Address, a segaddr.Address) bool {
	for _, x := range addrs {
		if x.Equal(a) {
			return true
		}
	}
	return false
}
