// Package debugger implements the interactive Prim debugger: single
// step, step-over, breakpoints, memory inspection/patching, UART
// injection, and direct mnemonic/number execution over a CPU+memory
// pair (spec.md §4.8), plus the REPL that drives it from a terminal.
package debugger

import (
	"errors"
	"fmt"
	"sort"

	"prim/cpu"
	"prim/dict"
)

// ErrBurstTooLarge mirrors the token interpreter's immediate-burst limit
// (spec.md §4.7) for ad hoc execution from the debugger prompt.
var ErrBurstTooLarge = errors.New("debugger: immediate burst too large")

// Debugger wraps a CPU and exposes the operations spec.md §4.8 requires:
// step, step-over, run, breakpoints, memory access, a memory-view
// origin, an address-range highlight, UART injection, and direct
// mnemonic/number execution.
type Debugger struct {
	CPU  *cpu.CPU
	Dict *dict.Dict

	breakpoints map[uint16]bool
	silent      map[uint16]bool

	viewOrigin     uint16
	hiStart, hiEnd uint16
}

// New returns a Debugger attached to c and d.
func New(c *cpu.CPU, d *dict.Dict) *Debugger {
	return &Debugger{
		CPU:         c,
		Dict:        d,
		breakpoints: make(map[uint16]bool),
		silent:      make(map[uint16]bool),
	}
}

// Reset reinitializes the whole machine: memory zeroed, CPU back to its
// power-on state, dictionary reinitialized (HERE/LATEST/H/LATEST entries
// recreated), and every breakpoint, silent marker, view origin, and
// highlight cleared. This is the debugger's "reset" command (spec.md
// §4.8, §6).
func (dbg *Debugger) Reset() {
	dbg.CPU.Mem.Reset()
	dbg.CPU.Reset()
	dbg.Dict.Init()
	dbg.breakpoints = make(map[uint16]bool)
	dbg.silent = make(map[uint16]bool)
	dbg.viewOrigin = 0
	dbg.hiStart, dbg.hiEnd = 0, 0
}

// Step executes exactly one instruction and returns the opcode run.
func (dbg *Debugger) Step() cpu.Op {
	return dbg.CPU.Step()
}

// StepOver executes one source-level step. If the next instruction is
// CALL, it plants a silent breakpoint at the address immediately after
// the call (CALL carries no inline operand, so that is PC+1) and runs
// until that address is reached or the program halts; a silent
// breakpoint self-clears the moment it's hit. Any other instruction is
// just a single step.
func (dbg *Debugger) StepOver() cpu.Op {
	op, _ := cpu.Decode(dbg.CPU.Mem.Read8(dbg.CPU.PC))
	if op != cpu.CALL {
		return dbg.Step()
	}

	returnAddr := dbg.CPU.PC + 1
	dbg.silent[returnAddr] = true
	for {
		executed := dbg.Step()
		if executed == cpu.BREAK || executed == cpu.SIMEND {
			delete(dbg.silent, returnAddr)
			return executed
		}
		if dbg.silent[dbg.CPU.PC] {
			delete(dbg.silent, dbg.CPU.PC)
			return executed
		}
	}
}

// Run steps until BREAK/SIMEND, a user breakpoint's address is reached,
// or stop (checked between every instruction) returns true. stop lets a
// caller interrupt a run on a keypress without the debugger itself
// depending on any particular input source.
func (dbg *Debugger) Run(stop func() bool) cpu.Op {
	for {
		op := dbg.Step()
		if op == cpu.BREAK || op == cpu.SIMEND {
			return op
		}
		if dbg.silent[dbg.CPU.PC] {
			delete(dbg.silent, dbg.CPU.PC)
			return op
		}
		if dbg.breakpoints[dbg.CPU.PC] {
			return op
		}
		if stop != nil && stop() {
			return op
		}
	}
}

// SetBreakpoint arms a user breakpoint at addr.
func (dbg *Debugger) SetBreakpoint(addr uint16) { dbg.breakpoints[addr] = true }

// ClearBreakpoint disarms any user breakpoint at addr.
func (dbg *Debugger) ClearBreakpoint(addr uint16) { delete(dbg.breakpoints, addr) }

// ToggleBreakpoint flips the breakpoint at addr and reports whether it
// ended up set.
func (dbg *Debugger) ToggleBreakpoint(addr uint16) bool {
	if dbg.breakpoints[addr] {
		delete(dbg.breakpoints, addr)
		return false
	}
	dbg.breakpoints[addr] = true
	return true
}

// Breakpoints returns the set of armed user breakpoints in ascending
// address order.
func (dbg *Debugger) Breakpoints() []uint16 {
	out := make([]uint16, 0, len(dbg.breakpoints))
	for addr := range dbg.breakpoints {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ReadByte/WriteByte/ReadWord/WriteWord expose raw memory access for
// inspection and patching from the debugger prompt.
func (dbg *Debugger) ReadByte(addr uint16) byte          { return dbg.CPU.Mem.Read8(addr) }
func (dbg *Debugger) WriteByte(addr uint16, v byte)      { dbg.CPU.Mem.Write8(addr, v) }
func (dbg *Debugger) ReadWord(addr uint16) uint16        { return dbg.CPU.Mem.Read16(addr) }
func (dbg *Debugger) WriteWord(addr uint16, v uint16)    { dbg.CPU.Mem.Write16(addr, v) }

// SetViewOrigin/ViewOrigin track where a memory-view window starts.
func (dbg *Debugger) SetViewOrigin(addr uint16) { dbg.viewOrigin = addr }
func (dbg *Debugger) ViewOrigin() uint16        { return dbg.viewOrigin }

// SetHighlight marks [start, end) as the address range a renderer should
// call out, e.g. the span just disassembled or just written.
func (dbg *Debugger) SetHighlight(start, end uint16) { dbg.hiStart, dbg.hiEnd = start, end }

// Highlight returns the current highlighted range.
func (dbg *Debugger) Highlight() (uint16, uint16) { return dbg.hiStart, dbg.hiEnd }

// InHighlight reports whether addr falls within the current highlight.
func (dbg *Debugger) InHighlight(addr uint16) bool {
	if dbg.hiStart == dbg.hiEnd {
		return false
	}
	return addr >= dbg.hiStart && addr < dbg.hiEnd
}

// InjectUART appends data to the UART receive queue, simulating host
// keystrokes arriving while a program runs under the debugger.
func (dbg *Debugger) InjectUART(data []byte) { dbg.CPU.Mem.UARTInject(data) }

// ExecuteBytes runs an ad hoc instruction burst from the dictionary's
// scratch AREA, the same mechanism the token interpreter uses for
// immediate-mode bursts (spec.md §4.7), without disturbing HERE or the
// caller's PC.
func (dbg *Debugger) ExecuteBytes(code []byte) (cpu.Op, error) {
	if len(code) > dict.MaxBurstLen {
		return 0, fmt.Errorf("%w: %d bytes", ErrBurstTooLarge, len(code))
	}

	burst := make([]byte, 0, len(code)+1)
	burst = append(burst, code...)
	burst = append(burst, byte(cpu.BREAK))
	dbg.CPU.Mem.Load(dict.AreaAddr, burst)

	savedPC := dbg.CPU.PC
	dbg.CPU.PC = dict.AreaAddr
	for {
		op := dbg.CPU.Step()
		if op == cpu.BREAK || op == cpu.SIMEND {
			dbg.CPU.PC = savedPC
			return op, nil
		}
	}
}

// ExecuteMnemonic directly executes a single opcode, with its optional
// return-bit suffix, without compiling it into the dictionary.
func (dbg *Debugger) ExecuteMnemonic(op cpu.Op, ret bool) (cpu.Op, error) {
	return dbg.ExecuteBytes([]byte{cpu.Encode(op, ret)})
}

// PushNumber directly pushes v onto the data stack.
func (dbg *Debugger) PushNumber(v uint16) (cpu.Op, error) {
	return dbg.ExecuteBytes(dict.PushOps(v))
}
