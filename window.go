package vcdiff

// windowHeader is the parsed Win_Indicator through
// Length_of_delta_encoding prefix of one delta window (spec.md §4.4/§4.6).
type windowHeader struct {
	winIndicator  byte
	sourceSegSize uint32
	sourceSegPos  uint32
	deltaLen      uint32
}

func (h windowHeader) hasSource() bool   { return h.winIndicator&(vcdSource|vcdTarget) != 0 }
func (h windowHeader) isTarget() bool    { return h.winIndicator&vcdTarget != 0 }
func (h windowHeader) hasChecksum() bool { return h.winIndicator&vcdChecksum != 0 }

// parseWindowHeader decodes the fixed-format prefix of a window from the
// front of p. It returns errShortVarint if p does not yet hold the entire
// prefix, so a streaming caller can retain its cursor and retry once more
// input has arrived.
func parseWindowHeader(p []byte) (hdr windowHeader, n int, err error) {
	if len(p) == 0 {
		return hdr, 0, errShortVarint
	}
	wi := p[0]
	if wi&winReservedMask != 0 {
		return hdr, 0, formatErrorf("reserved bits set in Win_Indicator %#02x", wi)
	}
	if wi&vcdSource != 0 && wi&vcdTarget != 0 {
		return hdr, 0, formatErrorf("Win_Indicator sets both VCD_SOURCE and VCD_TARGET")
	}
	off := 1
	if wi&(vcdSource|vcdTarget) != 0 {
		segSize, k, err := readVarint32(p[off:])
		if err != nil {
			return hdr, 0, err
		}
		off += k
		segPos, k, err := readVarint32(p[off:])
		if err != nil {
			return hdr, 0, err
		}
		off += k
		hdr.sourceSegSize, hdr.sourceSegPos = segSize, segPos
	}
	deltaLen, k, err := readVarint32(p[off:])
	if err != nil {
		return hdr, 0, err
	}
	off += k
	hdr.winIndicator, hdr.deltaLen = wi, deltaLen
	return hdr, off, nil
}

// windowBody is the parsed Delta_Indicator through end-of-addresses
// prefix, covering exactly hdr.deltaLen bytes.
type windowBody struct {
	targetLen        uint32
	hasChecksumField bool
	checksum         uint32
	data             []byte
	instructions     []byte
	addrs            []byte
}

// asFormatError turns the "need more input" sentinel into an ordinary
// FormatError. It is used once a byte slice is known to be the complete,
// final extent of a section: there is no more input coming, so a short
// VarInt there means the section is malformed, not merely incomplete.
func asFormatError(err error, where string) error {
	if err == errShortVarint {
		return formatErrorf("truncated %s", where)
	}
	return err
}

// parseWindowBody decodes the Delta_Indicator, the three section lengths,
// the optional checksum, and slices out the three sections themselves. p
// must be exactly hdr.deltaLen bytes.
func parseWindowBody(hdr windowHeader, p []byte) (wb windowBody, err error) {
	if uint32(len(p)) != hdr.deltaLen {
		return wb, internalErrorf("window body is %d bytes, declared length is %d", len(p), hdr.deltaLen)
	}
	off := 0

	targetLen, k, err := readVarint32(p[off:])
	if err != nil {
		return wb, asFormatError(err, "length of target window")
	}
	off += k

	if off >= len(p) {
		return wb, formatErrorf("truncated Delta_Indicator")
	}
	deltaIndicator := p[off]
	off++
	if deltaIndicator != 0 {
		return wb, policyErrorf("secondary compression of delta sections is not supported")
	}

	dataLen, k, err := readVarint32(p[off:])
	if err != nil {
		return wb, asFormatError(err, "length of ADD/RUN data")
	}
	off += k
	instLen, k, err := readVarint32(p[off:])
	if err != nil {
		return wb, asFormatError(err, "length of instructions and sizes")
	}
	off += k
	addrLen, k, err := readVarint32(p[off:])
	if err != nil {
		return wb, asFormatError(err, "length of addresses for COPYs")
	}
	off += k

	if hdr.hasChecksum() {
		cs, k, err := readVarint64(p[off:])
		if err != nil {
			return wb, asFormatError(err, "Adler32 checksum")
		}
		off += k
		wb.checksum = uint32(cs)
		wb.hasChecksumField = true
	}

	need := int(dataLen) + int(instLen) + int(addrLen)
	if off+need != len(p) {
		return wb, formatErrorf("section lengths %d+%d+%d do not add up to the window body size", dataLen, instLen, addrLen)
	}

	wb.targetLen = targetLen
	wb.data = p[off : off+int(dataLen)]
	off += int(dataLen)
	wb.instructions = p[off : off+int(instLen)]
	off += int(instLen)
	wb.addrs = p[off : off+int(addrLen)]
	return wb, nil
}

// sourceSlice resolves a window's source segment: a slice of dict if
// VCD_SOURCE is set, a slice of targetHistory (everything decoded so far
// in this file) if VCD_TARGET is set, or nil if neither bit is set.
// It returns nil for an out-of-range segment too; the caller distinguishes
// "no source" from "bad source" via hdr.hasSource().
func sourceSlice(hdr windowHeader, dict, targetHistory []byte) []byte {
	if !hdr.hasSource() {
		return nil
	}
	base := dict
	if hdr.isTarget() {
		base = targetHistory
	}
	start := int(hdr.sourceSegPos)
	end := start + int(hdr.sourceSegSize)
	if start < 0 || end < start || end > len(base) {
		return nil
	}
	return base[start:end]
}

// windowExec replays one window's instructions against its source segment,
// producing the target bytes it describes (spec.md §4.4/§9). It is the
// shared engine behind both the streaming decoder (window.go/reader.go)
// and the nested code-table decode (customtable.go).
type windowExec struct {
	interleaved bool
	codeTable   *CodeTableData
	cache       *addressCache

	source []byte
	target []byte

	data, instructions, addrs []byte
	dataPos, instPos, addrPos int
}

func (e *windowExec) here() uint32 {
	return uint32(len(e.source) + len(e.target))
}

// run executes every instruction in e.instructions and returns the
// resulting target bytes. It fails if the data or address sections are not
// fully consumed by the time the instructions are (spec.md §4.4's
// termination condition).
func (e *windowExec) run() ([]byte, error) {
	for e.instPos < len(e.instructions) {
		opcode := e.instructions[e.instPos]
		e.instPos++
		t := e.codeTable
		if err := e.execInst(t.Inst1[opcode], t.Size1[opcode], t.Mode1[opcode]); err != nil {
			return nil, err
		}
		if t.Inst2[opcode] != instNoop {
			if err := e.execInst(t.Inst2[opcode], t.Size2[opcode], t.Mode2[opcode]); err != nil {
				return nil, err
			}
		}
	}
	if e.dataPos != len(e.data) {
		return nil, formatErrorf("window finished with %d unconsumed ADD/RUN data bytes", len(e.data)-e.dataPos)
	}
	if e.addrPos != len(e.addrs) {
		return nil, formatErrorf("window finished with %d unconsumed COPY address bytes", len(e.addrs)-e.addrPos)
	}
	return e.target, nil
}

func (e *windowExec) execInst(inst, size, mode byte) error {
	if size == 0 {
		sz, err := e.readSize()
		if err != nil {
			return err
		}
		return e.dispatch(inst, sz, mode)
	}
	return e.dispatch(inst, int(size), mode)
}

func (e *windowExec) dispatch(inst byte, size int, mode byte) error {
	switch inst {
	case instNoop:
		return nil
	case instAdd:
		b, err := e.readData(size)
		if err != nil {
			return err
		}
		e.target = append(e.target, b...)
		return nil
	case instRun:
		b, err := e.readData(1)
		if err != nil {
			return err
		}
		fill := b[0]
		for i := 0; i < size; i++ {
			e.target = append(e.target, fill)
		}
		return nil
	case instCopy:
		return e.execCopy(size, mode)
	default:
		return formatErrorf("code table names invalid instruction type %d", inst)
	}
}

func (e *windowExec) execCopy(size int, mode byte) error {
	here := e.here()
	var value uint32
	var err error
	if e.cache.isSameMode(mode) {
		var b byte
		b, err = e.readAddrByte()
		value = uint32(b)
	} else {
		value, err = e.readAddrVarint()
	}
	if err != nil {
		return err
	}
	addr, err := e.cache.decodeAddress(here, mode, value)
	if err != nil {
		return err
	}
	e.cache.update(addr)
	for i := 0; i < size; i++ {
		pos := addr + uint32(i)
		var b byte
		if pos < uint32(len(e.source)) {
			b = e.source[pos]
		} else {
			idx := pos - uint32(len(e.source))
			if idx >= uint32(len(e.target)) {
				return formatErrorf("COPY reads past the end of the target produced so far")
			}
			b = e.target[idx]
		}
		e.target = append(e.target, b)
	}
	return nil
}

func (e *windowExec) readSize() (int, error) {
	v, n, err := readVarint32(e.instructions[e.instPos:])
	if err != nil {
		return 0, asFormatError(err, "instruction size")
	}
	e.instPos += n
	return int(v), nil
}

func (e *windowExec) readData(n int) ([]byte, error) {
	if e.interleaved {
		if e.instPos+n > len(e.instructions) {
			return nil, formatErrorf("ADD/RUN data runs past the end of the window")
		}
		b := e.instructions[e.instPos : e.instPos+n]
		e.instPos += n
		return b, nil
	}
	if e.dataPos+n > len(e.data) {
		return nil, formatErrorf("ADD/RUN data runs past the end of the data section")
	}
	b := e.data[e.dataPos : e.dataPos+n]
	e.dataPos += n
	return b, nil
}

func (e *windowExec) readAddrByte() (byte, error) {
	if e.interleaved {
		if e.instPos >= len(e.instructions) {
			return 0, formatErrorf("COPY address byte runs past the end of the window")
		}
		b := e.instructions[e.instPos]
		e.instPos++
		return b, nil
	}
	if e.addrPos >= len(e.addrs) {
		return 0, formatErrorf("COPY address runs past the end of the address section")
	}
	b := e.addrs[e.addrPos]
	e.addrPos++
	return b, nil
}

func (e *windowExec) readAddrVarint() (uint32, error) {
	if e.interleaved {
		v, n, err := readVarint32(e.instructions[e.instPos:])
		if err != nil {
			return 0, asFormatError(err, "COPY address")
		}
		e.instPos += n
		return v, nil
	}
	v, n, err := readVarint32(e.addrs[e.addrPos:])
	if err != nil {
		return 0, asFormatError(err, "COPY address")
	}
	e.addrPos += n
	return v, nil
}
