package overflow

import "testing"

func TestAccumulateU32(t *testing.T) {
	tests := [...]struct {
		x, y     uint32
		z        uint32
		overflow bool
	}{
		{0, 1, 1, false},
		{1, 0x7f, 0xff, false},
		{0x1ffffff, 0x7f, 0xffffffff, false},
		{0x2000000, 0x00, 0x00, true},
		{0xffffffff, 0x7f, 0xffffffff, true},
	}
	for _, c := range tests {
		z, overflow := AccumulateU32(c.x, c.y)
		if z != c.z {
			t.Errorf("AccumulateU32(%#x, %#x) = %#x; want %#x", c.x, c.y, z, c.z)
		}
		if overflow != c.overflow {
			t.Errorf("AccumulateU32(%#x, %#x) overflow = %t; want %t",
				c.x, c.y, overflow, c.overflow)
		}
	}
}

func TestAccumulateU64(t *testing.T) {
	tests := [...]struct {
		x, y     uint64
		overflow bool
	}{
		{0, 1, false},
		{1 << 56, 0x7f, false},
		{1 << 57, 0x7f, true},
	}
	for _, c := range tests {
		_, overflow := AccumulateU64(c.x, c.y)
		if overflow != c.overflow {
			t.Errorf("AccumulateU64(%#x, %#x) overflow = %t; want %t",
				c.x, c.y, overflow, c.overflow)
		}
	}
}
