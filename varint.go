package vcdiff

import (
	"io"

	"github.com/vcdiff-go/vcdiff/internal/overflow"
)

// maxVarintU32Len and maxVarintU64Len are the maximum number of bytes a
// VarIntBE value of the given width can occupy, per spec.md §3: 32-bit
// VarInts are capped at 5 bytes (5*7 = 35 >= 32 bits), 64-bit at 10
// (10*7 = 70 >= 64 bits).
const (
	maxVarintU32Len = 5
	maxVarintU64Len = 10
)

// errShortVarint is returned by the Read* functions when the input slice
// ends before the VarInt's terminating byte (MSB clear) is seen. It never
// escapes the package: callers translate it into either a retained-cursor
// "need more input" condition or, at end of stream, a *Truncated error.
var errShortVarint = &shortVarintError{}

type shortVarintError struct{}

func (*shortVarintError) Error() string { return "vcdiff: incomplete varint" }

// errVarintOverflow is returned when a VarInt occupies more than the
// maximum number of bytes allowed for its width, or when decoding it would
// overflow the target integer type.
var errVarintOverflow = formatErrorf("varint exceeds maximum encoded width")

// varintLenU32 returns the number of bytes write32 would emit for v.
func varintLenU32(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// varintLenU64 returns the number of bytes write64 would emit for v.
func varintLenU64(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// write32 encodes v as a big-endian base-128 VarInt, continuation bit set
// on every byte but the last, most-significant group first.
func write32(w io.Writer, v uint32) (n int, err error) {
	var buf [maxVarintU32Len]byte
	n = putVarint32(buf[:], v)
	return w.Write(buf[:n])
}

// write64 is the uint64 counterpart of write32.
func write64(w io.Writer, v uint64) (n int, err error) {
	var buf [maxVarintU64Len]byte
	n = putVarint64(buf[:], v)
	return w.Write(buf[:n])
}

// putVarint32 writes the VarIntBE encoding of v into p, which must be at
// least varintLenU32(v) bytes long, and returns the number of bytes
// written.
func putVarint32(p []byte, v uint32) int {
	var tmp [maxVarintU32Len]byte
	i := len(tmp)
	i--
	tmp[i] = byte(v & 0x7f)
	v >>= 7
	for v > 0 {
		i--
		tmp[i] = byte(v&0x7f) | 0x80
		v >>= 7
	}
	n := copy(p, tmp[i:])
	return n
}

// putVarint64 is the uint64 counterpart of putVarint32.
func putVarint64(p []byte, v uint64) int {
	var tmp [maxVarintU64Len]byte
	i := len(tmp)
	i--
	tmp[i] = byte(v & 0x7f)
	v >>= 7
	for v > 0 {
		i--
		tmp[i] = byte(v&0x7f) | 0x80
		v >>= 7
	}
	n := copy(p, tmp[i:])
	return n
}

// readVarint32 decodes a big-endian base-128 VarInt from the front of p
// into a uint32. It returns the decoded value and the number of bytes
// consumed.
//
// If p ends before a terminating byte (MSB clear) is found, it returns
// errShortVarint and n == 0 so that a streaming caller can retain its
// cursor and retry once more input has arrived. If more than
// maxVarintU32Len bytes are needed, or the accumulated value overflows
// uint32, it returns errVarintOverflow.
func readVarint32(p []byte) (v uint32, n int, err error) {
	var acc uint32
	for n = 0; n < len(p); n++ {
		b := p[n]
		var of bool
		acc, of = overflow.AccumulateU32(acc, uint32(b&0x7f))
		if of {
			return 0, 0, errVarintOverflow
		}
		if b&0x80 == 0 {
			return acc, n + 1, nil
		}
		if n+1 >= maxVarintU32Len {
			return 0, 0, errVarintOverflow
		}
	}
	return 0, 0, errShortVarint
}

// readVarint64 is the uint64 counterpart of readVarint32.
func readVarint64(p []byte) (v uint64, n int, err error) {
	var acc uint64
	for n = 0; n < len(p); n++ {
		b := p[n]
		var of bool
		acc, of = overflow.AccumulateU64(acc, uint64(b&0x7f))
		if of {
			return 0, 0, errVarintOverflow
		}
		if b&0x80 == 0 {
			return acc, n + 1, nil
		}
		if n+1 >= maxVarintU64Len {
			return 0, 0, errVarintOverflow
		}
	}
	return 0, 0, errShortVarint
}
