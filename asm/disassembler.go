package asm

import (
	"fmt"

	"prim/cpu"
)

// LiteralMaps are the two sets of code addresses the token interpreter
// records (spec.md §3): NumberLiterals point at an inline 2-byte value,
// StringLiterals at a length-prefixed byte string.
type LiteralMaps struct {
	Number map[uint16]bool
	String map[uint16]bool
}

// Line is one rendered line of a disassembly listing.
type Line struct {
	Addr uint16
	Text string
}

// Disassembler walks a memory image, distinguishing literal data from
// code via the literal maps and rendering symbolic names from the
// dictionary (spec.md §4.5).
type Disassembler struct {
	mem     *cpu.Memory
	lits    LiteralMaps
	symbols map[uint16]string
}

// NewDisassembler builds a disassembler over mem using lits to tell
// code from literal data and symbols to name known addresses.
func NewDisassembler(mem *cpu.Memory, lits LiteralMaps, symbols map[uint16]string) *Disassembler {
	return &Disassembler{mem: mem, lits: lits, symbols: symbols}
}

// isMemAccess reports whether op reads or writes memory given an
// address on the data stack, the pattern the disassembler recognizes
// for "push address ; access" fusion.
func isMemAccess(op cpu.Op) bool {
	switch op {
	case cpu.FETCH, cpu.BYTE_FETCH, cpu.STORE, cpu.BYTE_STORE:
		return true
	default:
		return false
	}
}

// Disassemble renders addresses [start, end) as a listing.
func (d *Disassembler) Disassemble(start, end uint16) []Line {
	var lines []Line
	addr := start
	for addr < end {
		if d.lits.String[addr] {
			length := d.mem.Read8(addr)
			payload := make([]byte, length)
			for i := 0; i < int(length); i++ {
				payload[i] = d.mem.Read8(addr + 1 + uint16(i))
			}
			lines = append(lines, Line{addr, fmt.Sprintf("%q", payload)})
			addr += 1 + uint16(length)
			continue
		}

		if d.lits.Number[addr] {
			v := d.mem.Read16(addr)
			lines = append(lines, Line{addr, fmt.Sprintf("Literal %#04x", v)})
			addr += 2
			continue
		}

		l, next := d.decodeInstruction(addr, end)
		lines = append(lines, l)
		addr = next
	}
	return lines
}

// decodeInstruction renders one instruction (possibly fused with a
// following CALL or memory-access opcode) starting at addr, returning
// the address immediately after everything it consumed.
func (d *Disassembler) decodeInstruction(addr, end uint16) (Line, uint16) {
	raw := d.mem.Read8(addr)
	op, ret := cpu.Decode(raw)
	length := op.Length()
	retSuffix := ""
	if ret {
		retSuffix = ".RET"
	}

	pushed, isPush := d.pushedValue(op, addr)
	if !isPush {
		return Line{addr, op.String() + retSuffix}, addr + uint16(length)
	}

	next := addr + uint16(length)
	if next < end {
		nextOp, _ := cpu.Decode(d.mem.Read8(next))
		if name, ok := d.symbols[pushed]; ok {
			if nextOp == cpu.CALL {
				return Line{addr, name}, next + 1
			}
			if isMemAccess(nextOp) {
				text := fmt.Sprintf("'%s %s", name, nextOp.String())
				return Line{addr, text}, next + uint16(nextOp.Length())
			}
		}
	}

	// A push with no known-symbol fusion disassembles as the bare
	// literal it pushes, not as "PUSH8 0xNN": the assembler folds a
	// raw number into the shortest push form on the way back in, so
	// rendering it as a number keeps disassemble/assemble round trips
	// byte-identical for assembler output. A full PUSH whose operand is
	// below 0x100 comes back as the shorter PUSH8.
	text := fmt.Sprintf("%#04x%s", pushed, retSuffix)
	return Line{addr, text}, next
}

// pushedValue returns the inline operand of a PUSH8/PUSH instruction at
// addr, if op is one of those.
func (d *Disassembler) pushedValue(op cpu.Op, addr uint16) (uint16, bool) {
	switch op {
	case cpu.PUSH8:
		return uint16(d.mem.Read8(addr + 1)), true
	case cpu.PUSH:
		return d.mem.Read16(addr + 1), true
	default:
		return 0, false
	}
}
