package vcdiff

// metaCodeTable is the fixed 1536-byte "dictionary of code tables" a
// custom code table's wire image is delta-compressed against (spec.md
// §4.2/§4.9, carried over from original_source/ since spec.md's
// distillation only gestures at "a hard-coded meta-dictionary"): the
// standard code table's six 256-byte planes, in CodeTableData's field
// order, so a custom table that is mostly the standard one compresses
// almost entirely to COPY instructions.
var metaCodeTable = buildMetaCodeTable()

func buildMetaCodeTable() []byte {
	t := defaultCodeTable
	p := make([]byte, 0, 1536)
	p = append(p, t.Inst1[:]...)
	p = append(p, t.Size1[:]...)
	p = append(p, t.Mode1[:]...)
	p = append(p, t.Inst2[:]...)
	p = append(p, t.Size2[:]...)
	p = append(p, t.Mode2[:]...)
	return p
}

// decodeCustomCodeTable parses the VCD_CODETABLE header section: near_size
// and same_size as VarInts, a max_mode byte, then a nested, fully-buffered
// VCDIFF delta file whose target, decoded against metaCodeTable, is the
// 1536-byte custom table image (spec.md §4.9).
func decodeCustomCodeTable(p []byte) (table *CodeTableData, nearSize, sameSize, maxMode byte, err error) {
	off := 0
	near, n, err := readVarint32(p[off:])
	if err != nil {
		return nil, 0, 0, 0, asFormatError(err, "code table near_size")
	}
	off += n
	same, n, err := readVarint32(p[off:])
	if err != nil {
		return nil, 0, 0, 0, asFormatError(err, "code table same_size")
	}
	off += n
	if off >= len(p) {
		return nil, 0, 0, 0, formatErrorf("truncated code table header")
	}
	maxMode = p[off]
	off++

	if near > 255 || same > 255 {
		return nil, 0, 0, 0, formatErrorf("code table near_size/same_size out of range")
	}
	nearSize, sameSize = byte(near), byte(same)
	if maxMode != 1+nearSize+sameSize {
		return nil, 0, 0, 0, formatErrorf("code table max_mode %d inconsistent with near_size %d, same_size %d", maxMode, nearSize, sameSize)
	}

	image, err := decodeNestedDelta(p[off:], metaCodeTable)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	if len(image) != 1536 {
		return nil, 0, 0, 0, formatErrorf("custom code table image is %d bytes, want 1536", len(image))
	}

	t := &CodeTableData{}
	copy(t.Inst1[:], image[0:256])
	copy(t.Size1[:], image[256:512])
	copy(t.Mode1[:], image[512:768])
	copy(t.Inst2[:], image[768:1024])
	copy(t.Size2[:], image[1024:1280])
	copy(t.Mode2[:], image[1280:1536])
	return t, nearSize, sameSize, maxMode, nil
}

// decodeNestedDelta decodes a complete, fully-buffered VCDIFF delta file
// (its own 5-byte header plus one or more windows) against dict using the
// standard code table and the default address cache sizing. It never
// itself encounters VCD_CODETABLE: that is the recursion-depth guard of 1
// from spec.md §4.9 — a custom code table's own encoding may not declare a
// further custom code table.
func decodeNestedDelta(p []byte, dict []byte) ([]byte, error) {
	fh, err := parseFileHeader(p)
	if err != nil {
		return nil, asFormatError(err, "nested file header")
	}
	if fh.customTable {
		return nil, formatErrorf("a custom code table's own delta file must not declare a further custom code table")
	}
	p = p[5:]

	var targetHistory []byte
	for len(p) > 0 {
		hdr, n, err := parseWindowHeader(p)
		if err != nil {
			return nil, asFormatError(err, "nested window header")
		}
		p = p[n:]
		if int(hdr.deltaLen) > len(p) {
			return nil, formatErrorf("nested window body runs past the end of the code table data")
		}
		body := p[:hdr.deltaLen]
		p = p[hdr.deltaLen:]

		wb, err := parseWindowBody(hdr, body)
		if err != nil {
			return nil, err
		}

		source := sourceSlice(hdr, dict, targetHistory)
		if source == nil && hdr.hasSource() {
			return nil, formatErrorf("nested window source segment out of range")
		}

		ex := &windowExec{
			codeTable:    defaultCodeTable,
			cache:        newAddressCache(defaultNearSize, defaultSameSize),
			source:       source,
			data:         wb.data,
			instructions: wb.instructions,
			addrs:        wb.addrs,
		}
		target, err := ex.run()
		if err != nil {
			return nil, err
		}
		if uint32(len(target)) != wb.targetLen {
			return nil, formatErrorf("nested window produced %d target bytes, declared %d", len(target), wb.targetLen)
		}
		targetHistory = append(targetHistory, target...)
	}
	return targetHistory, nil
}
