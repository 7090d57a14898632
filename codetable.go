package vcdiff

// Instruction type constants, matching RFC 3284's VCD_NOOP/VCD_ADD/
// VCD_RUN/VCD_COPY values exactly: custom code tables exchanged between
// implementations encode these numeric values directly, so they are not
// free to renumber.
const (
	instNoop byte = 0
	instAdd  byte = 1
	instRun  byte = 2
	instCopy byte = 3
)

// noOpcode is the NONE sentinel used throughout the instruction map:
// opcode values proper occupy 0..255, so NONE has to live outside that
// range rather than aliasing a valid opcode.
const noOpcode int16 = -1

// CodeTableData is a two-level table mapping each of the 256 opcodes to a
// pair of (instruction, size, mode) entries, the second of which may be
// VCD_NOOP for single-instruction opcodes. size == 0 means "the instance
// of this instruction in the stream carries an explicit VarInt size";
// size > 0 is an implicit size baked into the opcode itself. Mode is only
// meaningful for COPY.
type CodeTableData struct {
	Inst1 [256]byte
	Size1 [256]byte
	Mode1 [256]byte
	Inst2 [256]byte
	Size2 [256]byte
	Mode2 [256]byte
}

// row sets opcode's two instruction slots in place.
func (t *CodeTableData) row(opcode int, inst1, size1, mode1, inst2, size2, mode2 byte) {
	t.Inst1[opcode] = inst1
	t.Size1[opcode] = size1
	t.Mode1[opcode] = mode1
	t.Inst2[opcode] = inst2
	t.Size2[opcode] = size2
	t.Mode2[opcode] = mode2
}

// buildDefaultCodeTable constructs the RFC 3284 standard code table. The
// table is generated programmatically, following the RFC's own
// generation algorithm (Appendix B) opcode for opcode, rather than
// hand-transcribed, so that it matches byte-for-byte with every other
// interoperable implementation (spec.md §4.2): the six bands below (RUN,
// ADD, COPY, ADD+COPY over modes 0..5, ADD+COPY over modes 6..8, COPY+ADD)
// are exactly the RFC's partition, assigned in exactly the RFC's order,
// and they sum to the required 256 opcodes.
//
// Both invariants of spec.md §3 hold for the result: every
// (ADD|RUN, mode=0) and every (COPY, mode) for mode in [0, maxMode] has a
// single-instruction opcode with size 0, and every compound opcode's
// first instruction has an implicit (non-zero) size.
func buildDefaultCodeTable() *CodeTableData {
	t := &CodeTableData{}
	opcode := 0

	// 1 entry, opcode 0: RUN, size 0 (always explicit — RUN size is
	// unbounded).
	t.row(opcode, instRun, 0, 0, instNoop, 0, 0)
	opcode++

	// 18 entries, opcodes 1..18: ADD, size 0 (explicit) and size 1..17
	// (implicit).
	for size := 0; size <= 17; size++ {
		t.row(opcode, instAdd, byte(size), 0, instNoop, 0, 0)
		opcode++
	}

	// 144 entries, opcodes 19..162: COPY alone, modes 0..8, size 0
	// (explicit) and size 4..18 (implicit, 15 values). Minimum COPY size
	// is 4; shorter matches cost more to encode as a COPY than as
	// literal ADD bytes.
	for mode := 0; mode <= 8; mode++ {
		t.row(opcode, instCopy, 0, byte(mode), instNoop, 0, 0)
		opcode++
		for size := 4; size <= 18; size++ {
			t.row(opcode, instCopy, byte(size), byte(mode), instNoop, 0, 0)
			opcode++
		}
	}

	// 72 entries, opcodes 163..234: ADD (size 1..4) followed by COPY
	// (mode 0..5, size 4..6), compounded into one opcode. ADD-then-COPY
	// is by far the most common instruction pair the matcher emits,
	// hence the larger allocation relative to COPY+ADD below.
	for mode := 0; mode <= 5; mode++ {
		for addSize := 1; addSize <= 4; addSize++ {
			for copySize := 4; copySize <= 6; copySize++ {
				t.row(opcode, instAdd, byte(addSize), 0, instCopy, byte(copySize), byte(mode))
				opcode++
			}
		}
	}

	// 12 entries, opcodes 235..246: ADD (size 1..4) followed by COPY
	// (mode 6..8, size 4 only), compounded into one opcode. Modes 6..8
	// only get the single COPY size here — the RFC spends its compound
	// opcode budget on the low, frequent modes above.
	for mode := 6; mode <= 8; mode++ {
		for addSize := 1; addSize <= 4; addSize++ {
			t.row(opcode, instAdd, byte(addSize), 0, instCopy, 4, byte(mode))
			opcode++
		}
	}

	// 9 entries, opcodes 247..255: COPY (mode 0..8, size 4) followed by
	// ADD (size 1), compounded into one opcode.
	for mode := 0; mode <= 8; mode++ {
		t.row(opcode, instCopy, 4, byte(mode), instAdd, 1, 0)
		opcode++
	}

	if opcode != 256 {
		panic("vcdiff: default code table generator did not produce 256 opcodes")
	}
	return t
}

// defaultMaxMode is the highest COPY mode value the default code table
// assigns a single-instruction opcode to: SELF, HERE, 4 NEAR slots and 3
// SAME slots, i.e. the default address cache sizing from spec.md §3.
const defaultMaxMode = 8

// defaultCodeTable is the shared, read-only standard code table. Per
// spec.md §5, it and the instruction map built from it may be referenced
// concurrently by many codec instances.
var defaultCodeTable = buildDefaultCodeTable()
