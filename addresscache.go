package vcdiff

// Address cache modes, per spec.md §3.
//
//	0           = SELF
//	1           = HERE
//	2..1+near   = NEAR
//	2+near..    = SAME (one slot per same-cache bucket)
const (
	modeSelf byte = 0
	modeHere byte = 1
)

// defaultNearSize and defaultSameSize are the cache sizes the default
// code table was generated against (spec.md §9, RFC 3284 standard
// cache): 4 NEAR slots and 3 SAME buckets, giving modes 0..8.
const (
	defaultNearSize byte = 4
	defaultSameSize byte = 3
)

// addressCache is the small stateful predictor of spec.md §3/§4.3: it
// shortens COPY addresses by remembering recently used ones, and is
// updated identically, in the same order, by encoder and decoder on every
// successful COPY.
type addressCache struct {
	nearSize, sameSize byte

	near     []uint32 // ring buffer of the last nearSize addresses
	nextSlot byte     // round-robin write index into near

	// same holds sameSize*256 addresses, indexed as
	// same[(addr%sameSize)*256 + (addr&0xff)].
	same []uint32
}

// newAddressCache creates a cache with the given NEAR and SAME sizes.
// Either may be zero, disabling that mode family entirely.
func newAddressCache(nearSize, sameSize byte) *addressCache {
	c := &addressCache{nearSize: nearSize, sameSize: sameSize}
	c.near = make([]uint32, nearSize)
	c.same = make([]uint32, int(sameSize)*256)
	return c
}

// maxMode returns the highest mode value this cache's sizing supports:
// SELF, HERE, then one mode per NEAR slot and one per SAME bucket.
func (c *addressCache) maxMode() byte {
	return 1 + c.nearSize + c.sameSize
}

// init resets the cache to its empty state, as required at the start of
// every delta window (spec.md §3: "Init clears both").
func (c *addressCache) init() {
	for i := range c.near {
		c.near[i] = 0
	}
	for i := range c.same {
		c.same[i] = 0
	}
	c.nextSlot = 0
}

// isSameMode reports whether mode addresses the SAME cache, in which case
// the wire encoding is one byte rather than a VarInt.
func (c *addressCache) isSameMode(mode byte) bool {
	return mode >= 2+c.nearSize && mode <= c.maxMode()
}

// update records addr as the most recently used COPY address, advancing
// the NEAR ring and refreshing the SAME bucket it hashes to. Called after
// every successful encode or decode of a COPY address (spec.md §3).
func (c *addressCache) update(addr uint32) {
	if c.nearSize > 0 {
		c.near[c.nextSlot] = addr
		c.nextSlot = (c.nextSlot + 1) % c.nearSize
	}
	if c.sameSize > 0 {
		c.same[(addr%uint32(c.sameSize))*256+(addr&0xff)] = addr
	}
}

// encodeAddress picks the shortest encoding for addr, a COPY source
// address, given here (the current position within source||target-so-far,
// spec.md's "Here"). It returns the chosen mode and the value to write:
// for every mode but SAME that value is a VarInt; for SAME it is the
// single byte to emit.
//
// Ties are broken toward the fewest output bytes, and among equal-length
// candidates toward the lower mode index, which keeps the encoder's
// output deterministic (spec.md §4.3).
func (c *addressCache) encodeAddress(addr, here uint32) (mode byte, value uint32) {
	mode, value = modeSelf, addr
	bestLen := varintLenU32(addr)

	if addr < here {
		if l := varintLenU32(here - addr); l < bestLen {
			mode, value, bestLen = modeHere, here-addr, l
		}
	}

	for slot := byte(0); slot < c.nearSize; slot++ {
		near := c.near[slot]
		if near > addr {
			continue
		}
		if l := varintLenU32(addr - near); l < bestLen {
			mode, value, bestLen = 2+slot, addr-near, l
		}
	}

	if c.sameSize > 0 {
		idx := (addr%uint32(c.sameSize))*256 + (addr & 0xff)
		if c.same[idx] == addr && bestLen > 1 {
			bucket := byte(idx / 256)
			mode, value, bestLen = 2+c.nearSize+bucket, addr&0xff, 1
		}
	}

	return mode, value
}

// decodeAddress inverts encodeAddress: given here, the wire mode, and the
// raw value read from the address section (a decoded VarInt for every
// mode but SAME, where it is the single byte read from the stream), it
// returns the COPY source address.
//
// It fails if mode is out of range for this cache's sizing, if a SAME
// lookup's cached entry doesn't agree with the byte on the wire (the
// cache has desynchronized from the encoder's), or if the resulting
// address does not satisfy 0 <= addr < here.
func (c *addressCache) decodeAddress(here uint32, mode byte, value uint32) (addr uint32, err error) {
	switch {
	case mode == modeSelf:
		addr = value
	case mode == modeHere:
		if value > here {
			return 0, formatErrorf("HERE address delta %d exceeds here %d", value, here)
		}
		addr = here - value
	case mode < 2+c.nearSize:
		slot := mode - 2
		addr = c.near[slot] + value
	case c.isSameMode(mode):
		bucket := mode - (2 + c.nearSize)
		idx := uint32(bucket)*256 + value
		cached := c.same[idx]
		if cached&0xff != value {
			return 0, formatErrorf("SAME cache entry does not match byte on wire")
		}
		addr = cached
	default:
		return 0, formatErrorf("invalid address cache mode %d", mode)
	}

	if addr >= here {
		return 0, formatErrorf("COPY address %d out of range [0, %d)", addr, here)
	}
	return addr, nil
}
