package vcdiff

import "io"

// headerMagic is the three-byte VCDIFF magic, the ASCII string "VCD" with
// the high bit set on each byte (spec.md §6).
var headerMagic = []byte{0xd6, 0xc3, 0xc4}

// FormatExtensions selects which SDCH-style extensions a file header
// declares as in use. An empty set produces the standard-format header
// (fourth byte 0x00); a non-empty set produces the extended header
// (fourth byte 'S').
type FormatExtensions struct {
	// Interleaved records that this encoder session emits windows using
	// the interleaved layout rather than three separate sections. Like any
	// other extension, setting it makes the header the extended one
	// (fourth byte 'S'); the header does not record which layout is used.
	Interleaved bool
	// Checksum records that this encoder session adds an Adler32
	// checksum to its windows.
	Checksum bool
}

func (f FormatExtensions) any() bool {
	return f.Interleaved || f.Checksum
}

// Hdr_Indicator bits, spec.md §6.
const (
	hdrSecondaryCompressor byte = 0x01
	hdrCodeTable           byte = 0x02
	hdrReservedMask        byte = ^(hdrSecondaryCompressor | hdrCodeTable)
)

// Win_Indicator bits, spec.md §6.
const (
	vcdSource      byte = 0x01
	vcdTarget      byte = 0x02
	vcdChecksum    byte = 0x04
	winReservedMask byte = ^(vcdSource | vcdTarget | vcdChecksum)
)

// writeFileHeader writes the five-byte VCDIFF file header. This encoder
// never emits a custom code table or a secondary compressor (spec.md
// §4.4), so Hdr_Indicator is always 0x00.
func writeFileHeader(w io.Writer, extensions FormatExtensions) (n int, err error) {
	hdr := make([]byte, 0, 5)
	hdr = append(hdr, headerMagic...)
	if extensions.any() {
		hdr = append(hdr, 'S')
	} else {
		hdr = append(hdr, 0x00)
	}
	hdr = append(hdr, 0x00) // Hdr_Indicator
	return w.Write(hdr)
}

// fileHeader is the parsed form of the five-byte VCDIFF file header.
type fileHeader struct {
	extended      bool
	secondaryComp bool
	customTable   bool
}

// parseFileHeader validates and decodes the five-byte file header from the
// front of p. It requires the full five bytes to be present; the
// streaming driver is responsible for buffering that much input before
// calling it.
func parseFileHeader(p []byte) (hdr fileHeader, err error) {
	if len(p) < 5 {
		return hdr, errShortVarint
	}
	if p[0] != headerMagic[0] || p[1] != headerMagic[1] || p[2] != headerMagic[2] {
		return hdr, formatErrorf("invalid header magic")
	}
	switch p[3] {
	case 0x00:
		hdr.extended = false
	case 'S':
		hdr.extended = true
	default:
		return hdr, formatErrorf("unknown header extension byte %#02x", p[3])
	}
	hi := p[4]
	if hi&hdrReservedMask != 0 {
		return hdr, formatErrorf("reserved bits set in Hdr_Indicator %#02x", hi)
	}
	hdr.secondaryComp = hi&hdrSecondaryCompressor != 0
	hdr.customTable = hi&hdrCodeTable != 0
	if hdr.secondaryComp {
		return hdr, policyErrorf("secondary compressor is not supported")
	}
	return hdr, nil
}
