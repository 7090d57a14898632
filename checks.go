package vcdiff

import "hash/adler32"

// checksum computes the Adler32 checksum of a produced target window, per
// spec.md §4.7. The standard library's hash/adler32 implements the exact
// algorithm RFC 3284 calls for — there is no third-party Adler32 in the
// examples pack that improves on it, and none of the teacher's own
// checksums (xz uses CRC32/CRC64/SHA256) apply here.
func checksum(p []byte) uint32 {
	return adler32.Checksum(p)
}

// checksumVarintLen returns the number of bytes write64 would need to
// encode c widened to uint64, which is how the checksum is stored in the
// delta window header (spec.md §4.7, §9): a 32-bit unsigned value carried
// in a 64-bit lane so the VarInt writer never has to reason about sign.
func checksumVarintLen(c uint32) int {
	return varintLenU64(uint64(c))
}
