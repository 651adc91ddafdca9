// Package segaddr models real-mode x86 segment:offset addresses.
//
// Many segment:offset pairs alias the same physical location, so equality
// and ordering are defined on the physical value. Segment and offset are
// kept for display and for naming the destination a trace recorded.
package segaddr

import (
	"cmp"
	"fmt"
	"slices"

	"dosflow/internal/hexfmt"
)

// Address is an immutable segment:offset pair.
type Address struct {
	Segment uint16
	Offset  uint16
}

// New masks segment and offset to 16 bits. Wider input is truncated, never rejected.
func New(segment, offset int) Address {
	return Address{Segment: hexfmt.Uint16(segment), Offset: hexfmt.Uint16(offset)}
}

// Physical returns segment*16 + offset. The result is not wrapped to 20 bits.
func (a Address) Physical() uint32 {
	return uint32(a.Segment)*0x10 + uint32(a.Offset)
}

// Equal reports whether a and b resolve to the same physical address.
func (a Address) Equal(b Address) bool {
	return a.Physical() == b.Physical()
}

// Compare orders addresses by physical value.
func Compare(a, b Address) int {
	return cmp.Compare(a.Physical(), b.Physical())
}

// Sort orders addrs by physical value. Aliases keep their relative order.
func Sort(addrs []Address) {
	slices.SortStableFunc(addrs, Compare)
}

// Short renders SSSS_OOOO.
func (a Address) Short() string {
	return fmt.Sprintf("%04X_%04X", a.Segment, a.Offset)
}

// Full renders SSSS_OOOO_PPPPPP, used for generated label names.
func (a Address) Full() string {
	return fmt.Sprintf("%04X_%04X_%06X", a.Segment, a.Offset, a.Physical())
}

func (a Address) String() string {
	return a.Short() + " / " + hexfmt.ToHexWith0X(uint64(a.Physical()))
}
