package segaddr

import "testing"

func TestNewMasks(t *testing.T) {
	a := New(0x12345, -1)
	if a.Segment != 0x2345 || a.Offset != 0xFFFF {
		t.Errorf("New = %04x:%04x, want 2345:ffff", a.Segment, a.Offset)
	}
}

func TestPhysical(t *testing.T) {
	tests := []struct {
		seg, off int
		want     uint32
	}{
		{0, 0, 0},
		{0x1000, 0x0010, 0x10010},
		{0xFFFF, 0xFFFF, 0x10FFEF},
		{0x10000, 0x10200, 0x200}, // both masked to 0
	}
	for _, tt := range tests {
		if got := New(tt.seg, tt.off).Physical(); got != tt.want {
			t.Errorf("New(0x%x, 0x%x).Physical() = 0x%x, want 0x%x", tt.seg, tt.off, got, tt.want)
		}
	}
}

func TestAliasesCompareEqual(t *testing.T) {
	a := New(0x1000, 0x0000)
	b := New(0x0FFF, 0x0010)
	if !a.Equal(b) {
		t.Errorf("%v and %v should be equal", a, b)
	}
	if Compare(a, b) != 0 {
		t.Errorf("Compare(%v, %v) = %d, want 0", a, b, Compare(a, b))
	}
	if a == b {
		t.Error("struct equality should still see distinct encodings")
	}
}

func TestCompareOrder(t *testing.T) {
	lo := New(0, 0x200)
	hi := New(0x20, 0x1) // 0x201
	if Compare(lo, hi) >= 0 || Compare(hi, lo) <= 0 {
		t.Errorf("expected %v < %v", lo, hi)
	}
}

func TestSortStableForAliases(t *testing.T) {
	addrs := []Address{New(0x20, 0x1), New(0x1000, 0), New(0, 0x200), New(0x0FFF, 0x10)}
	Sort(addrs)
	want := []Address{New(0, 0x200), New(0x20, 0x1), New(0x1000, 0), New(0x0FFF, 0x10)}
	for i := range want {
		if addrs[i] != want[i] {
			t.Fatalf("addrs[%d] = %v, want %v", i, addrs[i], want[i])
		}
	}
}

func TestDisplay(t *testing.T) {
	a := New(0x0, 0x200)
	if got := a.Short(); got != "0000_0200" {
		t.Errorf("Short = %q", got)
	}
	if got := a.Full(); got != "0000_0200_000200" {
		t.Errorf("Full = %q", got)
	}
	b := New(0xf000, 0xfff0)
	if got := b.Full(); got != "F000_FFF0_0FFFF0" {
		t.Errorf("Full = %q", got)
	}
	if got := b.String(); got != "F000_FFF0 / 0xFFFF0" {
		t.Errorf("String = %q", got)
	}
}
