package vcdiff

import "testing"

func TestVarint32RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, 1<<31 - 1, 1 << 31, 0xffffffff}
	for _, v := range values {
		var buf [maxVarintU32Len]byte
		n := putVarint32(buf[:], v)
		if n != varintLenU32(v) {
			t.Errorf("putVarint32(%d) wrote %d bytes; varintLenU32 says %d", v, n, varintLenU32(v))
		}
		got, k, err := readVarint32(buf[:n])
		if err != nil {
			t.Fatalf("readVarint32(putVarint32(%d)) error %v", v, err)
		}
		if k != n || got != v {
			t.Errorf("readVarint32(putVarint32(%d)) = (%d, %d); want (%d, %d)", v, got, k, v, n)
		}
	}
}

func TestVarint32Boundaries(t *testing.T) {
	tests := []struct {
		v   uint32
		len int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{2097151, 3},
		{2097152, 4},
		{1<<31 - 1, 5},
	}
	for _, c := range tests {
		if got := varintLenU32(c.v); got != c.len {
			t.Errorf("varintLenU32(%d) = %d; want %d", c.v, got, c.len)
		}
	}
}

func TestReadVarint32Short(t *testing.T) {
	// A byte with the continuation bit set but nothing following is an
	// incomplete varint, not a format error: a streaming caller must be
	// able to retry once more input arrives.
	_, n, err := readVarint32([]byte{0x80})
	if err != errShortVarint || n != 0 {
		t.Fatalf("readVarint32([0x80]) = (_, %d, %v); want (_, 0, errShortVarint)", n, err)
	}
}

func TestReadVarint32TooLong(t *testing.T) {
	// Five continuation bytes plus a terminator make six bytes, more than
	// maxVarintU32Len; this is malformed, not merely incomplete.
	p := []byte{0x81, 0x80, 0x80, 0x80, 0x80, 0x00}
	if _, _, err := readVarint32(p); err != errVarintOverflow {
		t.Fatalf("readVarint32(6-byte varint) error = %v; want errVarintOverflow", err)
	}
}

func TestReadVarint32Overflow(t *testing.T) {
	// Encodes 2^32, one past the largest uint32, in the 5 bytes
	// maxVarintU32Len allows.
	p := []byte{0x90, 0x80, 0x80, 0x80, 0x00}
	if _, _, err := readVarint32(p); err != errVarintOverflow {
		t.Fatalf("readVarint32(2^32) error = %v; want errVarintOverflow", err)
	}
}

func TestVarint64RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 1<<35 - 1, 1 << 35, 0xffffffffffffffff}
	for _, v := range values {
		var buf [maxVarintU64Len]byte
		n := putVarint64(buf[:], v)
		got, k, err := readVarint64(buf[:n])
		if err != nil {
			t.Fatalf("readVarint64(putVarint64(%d)) error %v", v, err)
		}
		if k != n || got != v {
			t.Errorf("readVarint64(putVarint64(%d)) = (%d, %d); want (%d, %d)", v, got, k, v, n)
		}
	}
}
