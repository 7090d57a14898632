package vcdiff

import (
	"io"

	"github.com/vcdiff-go/vcdiff/xlog"
)

// Encoder assembles one VCDIFF delta window at a time from a caller-driven
// sequence of Add, Run and Copy calls, following spec.md §4.4's
// EncodeInstruction algorithm and §6's constructor pair. It does not decide
// where ADD, RUN and COPY boundaries fall — that is the matching engine's
// job, an external collaborator per spec.md §1.
type Encoder struct {
	interleaved bool
	codeTable   *CodeTableData
	instrMap    *instructionMap
	cache       *addressCache

	initialized    bool
	dictionarySize int
	targetLength   int

	// lastOpcodeIndex indexes the most recently emitted single-instruction
	// opcode byte within instructions, or -1 if none is eligible for
	// retroactive upgrade into a compound opcode (spec.md §4.4, §9).
	lastOpcodeIndex int

	instructions []byte
	data         []byte
	addrs        []byte

	addChecksumFlag bool
	checksumVal     uint32

	logger xlog.Logger
}

// NewEncoder creates an Encoder using the standard RFC 3284 code table and
// address cache sizing. interleaved selects the SDCH interleaved layout,
// where instructions, data and addresses share one buffer in emission
// order, over the three-section layout RFC 3284 describes natively.
func NewEncoder(interleaved bool) *Encoder {
	return newEncoder(interleaved, defaultCodeTable, defaultInstructionMap, defaultNearSize, defaultSameSize)
}

// NewEncoderWithCodeTable creates an Encoder around a custom code table
// (spec.md §4.2/§4.9). The table is not written into the delta file:
// WriteHeader always emits Hdr_Indicator 0x00, so a decoder has to get
// the table some other way. maxMode must equal 1 + nearSize + sameSize.
func NewEncoderWithCodeTable(interleaved bool, table *CodeTableData, nearSize, sameSize, maxMode byte) (*Encoder, error) {
	if table == nil {
		return nil, usageErrorf("code table must not be nil")
	}
	if maxMode != 1+nearSize+sameSize {
		return nil, usageErrorf("maxMode %d does not match nearSize %d + sameSize %d + 1", maxMode, nearSize, sameSize)
	}
	im := buildInstructionMap(table, maxMode)
	return newEncoder(interleaved, table, im, nearSize, sameSize), nil
}

func newEncoder(interleaved bool, table *CodeTableData, im *instructionMap, nearSize, sameSize byte) *Encoder {
	return &Encoder{
		interleaved:     interleaved,
		codeTable:       table,
		instrMap:        im,
		cache:           newAddressCache(nearSize, sameSize),
		lastOpcodeIndex: -1,
	}
}

// Init begins a fresh sequence of windows against a dictionary of the given
// size (spec.md §4.4): a zero dictionarySize is valid and means windows
// carry no source segment, so a COPY can only reference target bytes
// produced earlier in the same window.
func (e *Encoder) Init(dictionarySize int) error {
	if dictionarySize < 0 {
		return usageErrorf("dictionary size must be non-negative, got %d", dictionarySize)
	}
	e.dictionarySize = dictionarySize
	e.initialized = true
	return e.resetWindow()
}

// resetWindow clears all per-window state: the address cache, the pending
// instruction/data/address buffers, and the optional checksum (spec.md §4.4
// and §9's resolution of the checksum-lifetime Open Question: a checksum
// added via AddChecksum applies to exactly the next Output, not to every
// window thereafter).
func (e *Encoder) resetWindow() error {
	e.cache.init()
	e.targetLength = 0
	e.lastOpcodeIndex = -1
	e.instructions = e.instructions[:0]
	e.data = e.data[:0]
	e.addrs = e.addrs[:0]
	e.addChecksumFlag = false
	e.checksumVal = 0
	return nil
}

// dataBuf returns the buffer ADD and RUN data is appended to: the shared
// instructions buffer under the interleaved layout, or a dedicated buffer
// otherwise.
func (e *Encoder) dataBuf() *[]byte {
	if e.interleaved {
		return &e.instructions
	}
	return &e.data
}

// addrBuf is dataBuf's counterpart for COPY address bytes.
func (e *Encoder) addrBuf() *[]byte {
	if e.interleaved {
		return &e.instructions
	}
	return &e.addrs
}

// Add appends literal bytes copied verbatim into the target, encoding an
// ADD instruction for them (spec.md §3/§4.4).
func (e *Encoder) Add(data []byte) error {
	if !e.initialized {
		return usageErrorf("Add called before Init")
	}
	if len(data) == 0 {
		return nil
	}
	if err := e.encodeInstruction(instAdd, len(data), 0); err != nil {
		return err
	}
	buf := e.dataBuf()
	*buf = append(*buf, data...)
	e.targetLength += len(data)
	return nil
}

// Run appends size copies of b, encoding a RUN instruction (spec.md
// §3/§4.4). size must be positive.
func (e *Encoder) Run(size int, b byte) error {
	if !e.initialized {
		return usageErrorf("Run called before Init")
	}
	if size <= 0 {
		return usageErrorf("Run size must be positive, got %d", size)
	}
	if err := e.encodeInstruction(instRun, size, 0); err != nil {
		return err
	}
	buf := e.dataBuf()
	*buf = append(*buf, b)
	e.targetLength += size
	return nil
}

// Copy appends size bytes read from offset bytes into dictionary||target,
// encoding a COPY instruction whose address is chosen by the address cache
// (spec.md §3/§4.3/§4.4). offset must satisfy 0 <= offset <
// dictionarySize+targetLength, i.e. it may only reference bytes that
// already exist.
func (e *Encoder) Copy(offset, size int) error {
	if !e.initialized {
		return usageErrorf("Copy called before Init")
	}
	if size <= 0 {
		return usageErrorf("Copy size must be positive, got %d", size)
	}
	here := uint32(e.dictionarySize + e.targetLength)
	if offset < 0 || uint32(offset) >= here {
		return usageErrorf("Copy offset %d out of range [0, %d)", offset, here)
	}
	addr := uint32(offset)
	mode, value := e.cache.encodeAddress(addr, here)
	if err := e.encodeInstruction(instCopy, size, mode); err != nil {
		return err
	}
	buf := e.addrBuf()
	if e.cache.isSameMode(mode) {
		*buf = append(*buf, byte(value))
	} else {
		var tmp [maxVarintU32Len]byte
		n := putVarint32(tmp[:], value)
		*buf = append(*buf, tmp[:n]...)
	}
	e.cache.update(addr)
	e.targetLength += size
	return nil
}

// AddChecksum arranges for the next call to Output to add an Adler32
// checksum of the target bytes produced in this window (spec.md §4.7, the
// SDCH extension). The caller computes checksum itself, typically with
// [hash/adler32], over exactly the bytes implied by this window's
// Add/Run/Copy calls; this package does not retain target bytes to
// checksum them on the caller's behalf.
func (e *Encoder) AddChecksum(checksum uint32) {
	e.addChecksumFlag = true
	e.checksumVal = checksum
}

// encodeInstruction implements spec.md §4.4's EncodeInstruction algorithm:
// it tries to upgrade the previous single opcode into a compound one
// before falling back to emitting inst as its own opcode, with an explicit
// VarInt size if the code table has no implicit-size row for it.
func (e *Encoder) encodeInstruction(inst byte, size int, mode byte) error {
	if e.lastOpcodeIndex >= 0 {
		lastOpcode := e.instructions[e.lastOpcodeIndex]
		if inst == instAdd && e.codeTable.Inst1[lastOpcode] == instAdd && e.codeTable.Inst2[lastOpcode] == instNoop {
			xlog.Println(e.logger, "vcdiff: two ADD instructions in a row; matcher could have merged them")
		}
		if size <= 255 {
			if compound := e.instrMap.lookupSecond(int16(lastOpcode), inst, byte(size), mode); compound != noOpcode {
				e.instructions[e.lastOpcodeIndex] = byte(compound)
				e.lastOpcodeIndex = -1
				return nil
			}
		}
		if compound := e.instrMap.lookupSecond(int16(lastOpcode), inst, 0, mode); compound != noOpcode {
			e.instructions[e.lastOpcodeIndex] = byte(compound)
			e.lastOpcodeIndex = -1
			e.appendSize(size)
			return nil
		}
	}

	if size <= 255 {
		if opcode := e.instrMap.lookupFirst(inst, byte(size), mode); opcode != noOpcode {
			e.instructions = append(e.instructions, byte(opcode))
			e.lastOpcodeIndex = len(e.instructions) - 1
			return nil
		}
	}

	opcode := e.instrMap.lookupFirst(inst, 0, mode)
	if opcode == noOpcode {
		return internalErrorf("code table has no opcode for inst=%d mode=%d size=0", inst, mode)
	}
	e.instructions = append(e.instructions, byte(opcode))
	e.appendSize(size)
	// A VarInt now sits between this opcode byte and the end of the
	// buffer, so retroactively upgrading it into a compound opcode would
	// strand that VarInt where the second instruction's implicit bytes
	// belong (spec.md §9). Leave it ineligible for upgrade.
	e.lastOpcodeIndex = -1
	return nil
}

func (e *Encoder) appendSize(size int) {
	var tmp [maxVarintU32Len]byte
	n := putVarint32(tmp[:], uint32(size))
	e.instructions = append(e.instructions, tmp[:n]...)
}

// countingWriter tracks how many bytes have passed through Write, so
// Output can verify its precomputed length against what it actually wrote.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

// deltaEncodingLen returns the byte length of the delta-encoding body (the
// part covered by the Length_of_delta_encoding VarInt) for the window
// currently pending.
func (e *Encoder) deltaEncodingLen() int {
	dataLen, instLen, addrLen := len(e.data), len(e.instructions), len(e.addrs)
	n := varintLenU32(uint32(e.targetLength)) + 1 +
		varintLenU32(uint32(dataLen)) + varintLenU32(uint32(instLen)) + varintLenU32(uint32(addrLen)) +
		dataLen + instLen + addrLen
	if e.addChecksumFlag {
		n += checksumVarintLen(e.checksumVal)
	}
	return n
}

// Output writes the pending window to w as a complete VCDIFF delta window
// (Win_Indicator through the three data sections, spec.md §4.4) and resets
// encoder state for the next window. If no instruction was emitted since
// the last Output (or Init), there is nothing to frame: Output writes
// nothing at all and just resets, per spec.md §4.4 ("if any instruction
// was emitted, frame and flush the window") and the empty-target boundary
// case of §8, which calls for zero windows and no delta file body.
func (e *Encoder) Output(w io.Writer) error {
	if !e.initialized {
		return usageErrorf("Output called before Init")
	}
	if len(e.instructions) == 0 {
		return e.resetWindow()
	}
	var winIndicator byte
	if e.dictionarySize > 0 {
		winIndicator = vcdSource
	}
	if e.addChecksumFlag {
		winIndicator |= vcdChecksum
	}

	bodyLen := e.deltaEncodingLen()
	dataLen, instLen, addrLen := len(e.data), len(e.instructions), len(e.addrs)

	cw := &countingWriter{w: w}
	if err := writeByte(cw, winIndicator); err != nil {
		return err
	}
	if winIndicator&vcdSource != 0 {
		if _, err := write32(cw, uint32(e.dictionarySize)); err != nil {
			return err
		}
		if _, err := write32(cw, 0); err != nil { // Source_segment_position
			return err
		}
	}
	if _, err := write32(cw, uint32(bodyLen)); err != nil {
		return err
	}

	before := cw.n
	if _, err := write32(cw, uint32(e.targetLength)); err != nil {
		return err
	}
	if err := writeByte(cw, 0x00); err != nil { // Delta_Indicator: no secondary compression
		return err
	}
	if _, err := write32(cw, uint32(dataLen)); err != nil {
		return err
	}
	if _, err := write32(cw, uint32(instLen)); err != nil {
		return err
	}
	if _, err := write32(cw, uint32(addrLen)); err != nil {
		return err
	}
	if e.addChecksumFlag {
		if _, err := write64(cw, uint64(e.checksumVal)); err != nil {
			return err
		}
	}
	if _, err := cw.Write(e.data); err != nil {
		return err
	}
	if _, err := cw.Write(e.instructions); err != nil {
		return err
	}
	if _, err := cw.Write(e.addrs); err != nil {
		return err
	}

	if actual := cw.n - before; actual != bodyLen {
		return internalErrorf("computed delta-encoding length %d does not match %d bytes actually written", bodyLen, actual)
	}
	return e.resetWindow()
}

// WriteHeader writes the five-byte VCDIFF file header. Callers write it
// exactly once, before the first call to Output.
func (e *Encoder) WriteHeader(w io.Writer, extensions FormatExtensions) error {
	_, err := writeFileHeader(w, extensions)
	return err
}

// TargetLength returns the number of target bytes described by the
// instructions queued for the pending window.
func (e *Encoder) TargetLength() int {
	return e.targetLength
}

// DeltaWindowSize returns the number of bytes Output would write for the
// window currently pending, including the Win_Indicator and the
// Length_of_delta_encoding VarInt itself, without flushing anything. It is
// 0 exactly when Output would write nothing, i.e. when no instruction has
// been emitted since the last flush. Callers use it to decide when a
// window has grown large enough to flush (spec.md §4.4).
func (e *Encoder) DeltaWindowSize() int {
	if len(e.instructions) == 0 {
		return 0
	}
	bodyLen := e.deltaEncodingLen()
	n := 1 + bodyLen
	if e.dictionarySize > 0 {
		n += varintLenU32(uint32(e.dictionarySize)) + varintLenU32(0)
	}
	n += varintLenU32(uint32(bodyLen))
	return n
}

// SetLogger installs l to receive non-fatal diagnostic messages. A nil
// logger (the default) silently discards them.
func (e *Encoder) SetLogger(l xlog.Logger) {
	e.logger = l
}
