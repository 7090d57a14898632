package vcdiff

// instructionMap is the derived, stateless structure described in
// spec.md §3/§4.2: given an (instruction, size, mode) triple it finds the
// opcode a writer should emit, and given a previously emitted single
// opcode plus a second (instruction, size, mode) triple it finds the
// compound opcode that upgrades the two into one byte.
//
// It is built once per code table (the default table's map is built once
// and shared, per spec.md §5) and never mutated afterwards, so it is safe
// for concurrent use by multiple encoder or decoder instances.
type instructionMap struct {
	maxMode byte

	// first[inst][size][mode] holds the lowest opcode whose first entry
	// matches that triple, or noOpcode. Every row whose first entry is
	// non-NOOP contributes to this map, compound rows included, per
	// spec.md §4.2: "for each row whose first entry is non-NOOP, populate
	// first[inst][size][mode]".
	first [4][256][]int16

	// second is indexed by the opcode that would represent the first
	// instruction alone. It's a map rather than a dense array because
	// only a small fraction of opcodes ever serve as the first half of
	// a compound instruction.
	second map[int16]*secondGrid
}

// secondGrid holds the compound-opcode lookups for one particular first
// opcode: second[inst][size][mode] -> compound opcode.
type secondGrid struct {
	grid [4][256][]int16
}

// buildInstructionMap constructs the forward and inverse indices from a
// code table, following the two-pass algorithm of spec.md §4.2: first
// entries are collected from every opcode row (ties broken toward the
// lowest opcode number, which the ascending iteration order gives us for
// free), then second entries are collected from every row with a non-NOOP
// second instruction.
func buildInstructionMap(t *CodeTableData, maxMode byte) *instructionMap {
	m := &instructionMap{
		maxMode: maxMode,
		second:  make(map[int16]*secondGrid),
	}
	modeLen := int(maxMode) + 1
	for inst := 0; inst < 4; inst++ {
		for size := 0; size < 256; size++ {
			row := make([]int16, modeLen)
			for i := range row {
				row[i] = noOpcode
			}
			m.first[inst][size] = row
		}
	}

	for opcode := 0; opcode < 256; opcode++ {
		inst1, size1, mode1 := t.Inst1[opcode], t.Size1[opcode], t.Mode1[opcode]
		if inst1 == instNoop || int(mode1) >= modeLen {
			continue
		}
		if m.first[inst1][size1][mode1] == noOpcode {
			m.first[inst1][size1][mode1] = int16(opcode)
		}
	}

	for opcode := 0; opcode < 256; opcode++ {
		inst2 := t.Inst2[opcode]
		if inst2 == instNoop {
			continue
		}
		inst1, size1, mode1 := t.Inst1[opcode], t.Size1[opcode], t.Mode1[opcode]
		if int(mode1) >= modeLen {
			continue
		}
		firstOpcode := m.first[inst1][size1][mode1]
		if firstOpcode == noOpcode {
			// The code table is malformed (a compound opcode's first
			// half has no entry in first); leave it
			// unreachable from lookupSecond rather than failing here.
			// EncodeInstruction will simply never find it, which is
			// harmless since it always has the single-opcode fallback.
			continue
		}

		size2, mode2 := t.Size2[opcode], t.Mode2[opcode]
		if int(mode2) >= modeLen {
			continue
		}
		g, ok := m.second[firstOpcode]
		if !ok {
			g = &secondGrid{}
			for inst := 0; inst < 4; inst++ {
				for size := 0; size < 256; size++ {
					row := make([]int16, modeLen)
					for i := range row {
						row[i] = noOpcode
					}
					g.grid[inst][size] = row
				}
			}
			m.second[firstOpcode] = g
		}
		if g.grid[inst2][size2][mode2] == noOpcode {
			g.grid[inst2][size2][mode2] = int16(opcode)
		}
	}

	return m
}

// lookupFirst returns the opcode for a single (inst, size, mode)
// instruction, or noOpcode if the table has none.
func (m *instructionMap) lookupFirst(inst, size, mode byte) int16 {
	if int(mode) >= len(m.first[inst][size]) {
		return noOpcode
	}
	return m.first[inst][size][mode]
}

// lookupSecond returns the compound opcode that upgrades firstOpcode with
// a following (inst, size, mode) instruction, or noOpcode if the table
// has none.
func (m *instructionMap) lookupSecond(firstOpcode int16, inst, size, mode byte) int16 {
	g, ok := m.second[firstOpcode]
	if !ok {
		return noOpcode
	}
	if int(mode) >= len(g.grid[inst][size]) {
		return noOpcode
	}
	return g.grid[inst][size][mode]
}

// defaultInstructionMap is the shared instruction map for the standard
// code table.
var defaultInstructionMap = buildInstructionMap(defaultCodeTable, defaultMaxMode)
