// Package dict manages Prim's dictionary and code-space index table:
// the HERE/LATEST cells, the descending DICT address table, and the
// scratch AREA used for immediate-mode opcode bursts (spec.md §3, §4.7).
package dict

import (
	"errors"
	"fmt"

	"prim/cpu"
)

// ErrEmitOverflow is a programmer error (spec.md §7): compiled code would
// run past DICT.
var ErrEmitOverflow = errors.New("dict: emit past DICT boundary")

// initialHere and initialLatest are Prim's power-on index-table values
// (spec.md §3): HERE starts at 12, LATEST at DICT-2.
const (
	initialHere   = 12
	initialLatest = cpu.DictAddr - 2
)

// Dict tracks the name -> address mapping for defined words. Names
// themselves are never compiled into Prim memory; Dict keeps them on
// the Go side, index-correlated with the descending address table
// whose slot addresses it also records (since each slot's address is a
// function of LATEST at the moment it was written, not of the ordinal
// alone).
type Dict struct {
	mem   *cpu.Memory
	names []string
	slots []uint16
}

// New wraps mem with dictionary bookkeeping.
func New(mem *cpu.Memory) *Dict {
	return &Dict{mem: mem}
}

// Init resets HERE and LATEST to their power-on values and pre-seeds
// the two mandatory dictionary entries, "H" (ordinal 0, resolving to
// the HERE cell's own address) and "LATEST" (ordinal 1, resolving to
// the LATEST cell's own address), as spec.md §4.6 requires ("the first
// two definitions recognized in any source MUST be H ... and LATEST").
func (d *Dict) Init() {
	d.mem.SetHere(initialHere)
	d.mem.SetLatest(initialLatest)
	d.names = d.names[:0]
	d.slots = d.slots[:0]
	d.Define("H", cpu.HereAddr)
	d.Define("LATEST", cpu.LatestAddr)
}

// Here returns the next free code address.
func (d *Dict) Here() uint16 { return d.mem.Here() }

// Latest returns the current value of the LATEST index-table pointer.
func (d *Dict) Latest() uint16 { return d.mem.Latest() }

// Count returns the number of defined dictionary entries.
func (d *Dict) Count() int { return len(d.names) }

// Define implements the append_entry emit helper (spec.md §4.7): write
// addr at the current LATEST pointer, then step LATEST down by 2. It
// returns the new entry's ordinal.
func (d *Dict) Define(name string, addr uint16) int {
	slot := d.mem.Latest()
	d.mem.Write16(slot, addr)
	d.mem.SetLatest(slot - 2)

	idx := len(d.names)
	d.names = append(d.names, name)
	d.slots = append(d.slots, slot)
	return idx
}

// Lookup resolves a word name to its code address, most recent
// definition wins on shadowing.
func (d *Dict) Lookup(name string) (addr uint16, ok bool) {
	for i := len(d.names) - 1; i >= 0; i-- {
		if d.names[i] == name {
			return d.OrdinalAddress(i)
		}
	}
	return 0, false
}

// OrdinalAddress returns the code address currently stored at the
// ordinal idx's table slot (a fresh memory read, since nothing prevents
// the slot from being overwritten later).
func (d *Dict) OrdinalAddress(idx int) (uint16, bool) {
	if idx < 0 || idx >= len(d.slots) {
		return 0, false
	}
	return d.mem.Read16(d.slots[idx]), true
}

// NameAt returns the name defined at ordinal idx, for disassembler
// symbol rendering.
func (d *Dict) NameAt(idx int) (string, bool) {
	if idx < 0 || idx >= len(d.names) {
		return "", false
	}
	return d.names[idx], true
}

// Symbols returns the full address -> name table for building a
// disassembler symbol map.
func (d *Dict) Symbols() map[uint16]string {
	out := make(map[uint16]string, len(d.names))
	for i, name := range d.names {
		if addr, ok := d.OrdinalAddress(i); ok {
			out[addr] = name
		}
	}
	return out
}

// Comma appends data to code space at HERE and advances HERE past it
// (spec.md §4.7's comma emit helper). It is a programmer error for
// compiled code to run past DICT. The check is against DICT only: the
// table entries below DICT (from DICT-2 downward) are not protected.
func (d *Dict) Comma(data ...byte) (uint16, error) {
	start := d.mem.Here()
	end := uint32(start) + uint32(len(data))
	if end > cpu.DictAddr {
		return 0, fmt.Errorf("%w: HERE would reach %#x", ErrEmitOverflow, end)
	}
	d.mem.Load(start, data)
	d.mem.SetHere(uint16(end))
	return start, nil
}

// PushOps returns the encoded bytes of the shortest instruction that
// pushes the literal v: PUSH8 if it fits in one byte, PUSH otherwise
// (spec.md §4.7's push_ops emit helper, shrink=true).
func PushOps(v uint16) []byte {
	if v < 0x100 {
		return []byte{byte(cpu.PUSH8), byte(v)}
	}
	return []byte{byte(cpu.PUSH), byte(v), byte(v >> 8)}
}

// AreaAddr is the scratch region immediate-mode opcode bursts are
// assembled into and executed from.
const AreaAddr = cpu.AreaAddr

// MaxBurstLen is the largest an immediate-mode opcode burst may be
// (spec.md §4.7): longer bursts are a programmer error.
const MaxBurstLen = 0xF0
