package cpu

// stackSize is the fixed depth of both the data and return stacks. Both
// are ring buffers: pushing past the top silently wraps around to the
// bottom rather than erroring (spec.md treats stack wraparound as
// defined runtime behavior, not an error).
const stackSize = 16

// isrAddr is the fixed address the INT opcode transfers control to.
// The CPU has no other interrupt entry path.
const isrAddr = 4

// CPU is the Prim processor: program counter, carry flag, an
// interrupt-enable flag, and two 16-entry ring-buffer stacks, operating
// on a Memory image.
type CPU struct {
	Mem *Memory

	PC    uint16
	Carry bool

	// IntEnable is part of the CPU's architectural state (spec.md §3).
	// The closed opcode set has no instruction that reads or sets it;
	// it exists for a hardware interrupt controller outside this
	// spec's scope to consult.
	IntEnable bool

	ds  [stackSize]uint16
	dsp int
	rs  [stackSize]uint16
	rsp int
}

// NewCPU returns a CPU wired to mem, reset to its power-on state.
func NewCPU(mem *Memory) *CPU {
	c := &CPU{Mem: mem}
	c.Reset()
	return c
}

// Reset clears both stacks, the carry flag, and sets PC to 0. IntEnable
// starts true: interrupts are live unless a program disables them.
func (c *CPU) Reset() {
	c.PC = 0
	c.Carry = false
	c.IntEnable = true
	for i := range c.ds {
		c.ds[i] = 0
	}
	for i := range c.rs {
		c.rs[i] = 0
	}
	c.dsp = stackSize - 1
	c.rsp = stackSize - 1
}

// dpush pushes v onto the data stack, wrapping the stack pointer.
func (c *CPU) dpush(v uint16) {
	c.dsp = (c.dsp + 1) % stackSize
	c.ds[c.dsp] = v
}

// dpop pops and returns the top of the data stack, wrapping the stack
// pointer.
func (c *CPU) dpop() uint16 {
	v := c.ds[c.dsp]
	c.dsp = (c.dsp - 1 + stackSize) % stackSize
	return v
}

// T returns the top of the data stack without popping it.
func (c *CPU) T() uint16 { return c.ds[c.dsp] }

// N returns the second data stack entry without popping it.
func (c *CPU) N() uint16 { return c.ds[(c.dsp-1+stackSize)%stackSize] }

// rpush pushes v onto the return stack, wrapping the stack pointer.
func (c *CPU) rpush(v uint16) {
	c.rsp = (c.rsp + 1) % stackSize
	c.rs[c.rsp] = v
}

// rpop pops and returns the top of the return stack, wrapping the stack
// pointer.
func (c *CPU) rpop() uint16 {
	v := c.rs[c.rsp]
	c.rsp = (c.rsp - 1 + stackSize) % stackSize
	return v
}

// R returns the top of the return stack without popping it.
func (c *CPU) R() uint16 { return c.rs[c.rsp] }

// DataStack returns the data stack's ring buffer (a view of the CPU's
// own storage, not a copy, in slot order) and the index of its top
// cell, for debugger rendering.
func (c *CPU) DataStack() ([]uint16, int) {
	return c.ds[:], c.dsp
}

// ReturnStack returns the return stack's ring buffer (a view of the
// CPU's own storage, not a copy, in slot order) and the index of its top
// cell, for debugger rendering.
func (c *CPU) ReturnStack() ([]uint16, int) {
	return c.rs[:], c.rsp
}

// fetch8 reads the byte at PC and advances PC by one.
func (c *CPU) fetch8() byte {
	b := c.Mem.Read8(c.PC)
	c.PC++
	return b
}

// fetch16 reads the little-endian word at PC and advances PC by two.
func (c *CPU) fetch16() uint16 {
	v := c.Mem.Read16(c.PC)
	c.PC += 2
	return v
}

// Step executes exactly one instruction at PC, including any inline
// operand bytes, and returns the opcode that was executed so callers
// (the debugger, the immediate-mode burst runner) can detect
// BREAK/SIMEND.
func (c *CPU) Step() Op {
	raw := c.fetch8()
	op, ret := Decode(raw)
	if op.clearsReturnBit() {
		ret = false
	}
	c.execute(op)
	if ret {
		c.PC = c.rpop()
	}
	return op
}

// execute performs the data/control effect of op. PUSH8/PUSH read their
// inline operands via fetch8/fetch16, which advance PC past them.
func (c *CPU) execute(op Op) {
	switch op {
	case NOP, BREAK, SIMEND:
		// no data-stack effect; BREAK/SIMEND are burst terminators the
		// caller detects via Step's return value.

	case CALL:
		c.rpush(c.PC)
		c.PC = c.dpop()

	case JP:
		c.PC = c.dpop()

	case JZ:
		flag := c.dpop()
		addr := c.dpop()
		if flag == 0 {
			c.PC = addr
		}

	case AND:
		t, n := c.dpop(), c.dpop()
		c.dpush(n & t)

	case OR:
		t, n := c.dpop(), c.dpop()
		c.dpush(n | t)

	case XOR:
		t, n := c.dpop(), c.dpop()
		c.dpush(n ^ t)

	case NOT:
		c.dpush(^c.dpop())

	case SR:
		t := c.dpop()
		c.Carry = t&1 != 0
		c.dpush(t >> 1)

	case SL:
		t := c.dpop()
		wide := uint32(t) << 1
		c.Carry = wide&0x10000 != 0
		c.dpush(uint16(wide))

	case SRW:
		t := c.dpop()
		c.Carry = t&0xFF != 0
		c.dpush(t >> 8)

	case SLW:
		t := c.dpop()
		wide := uint32(t) << 8
		c.Carry = wide&0xFF0000 != 0
		c.dpush(uint16(wide))

	case ADD:
		t, n := c.dpop(), c.dpop()
		sum := uint32(n) + uint32(t)
		c.Carry = sum > 0xFFFF
		c.dpush(uint16(sum))

	case SUB:
		t, n := c.dpop(), c.dpop()
		diff := int32(n) - int32(t)
		c.Carry = diff < 0
		c.dpush(uint16(diff))

	case LTS:
		t, n := c.dpop(), c.dpop()
		if int16(n) < int16(t) {
			c.dpush(0xFFFF)
		} else {
			c.dpush(0)
		}

	case LTU:
		t, n := c.dpop(), c.dpop()
		if n < t {
			c.dpush(0xFFFF)
		} else {
			c.dpush(0)
		}

	case SWAP:
		t, n := c.dpop(), c.dpop()
		c.dpush(t)
		c.dpush(n)

	case OVER:
		c.dpush(c.N())

	case DUP:
		c.dpush(c.T())

	case NIP:
		t := c.dpop()
		c.dpop()
		c.dpush(t)

	case ROT:
		c2, c1, c0 := c.dpop(), c.dpop(), c.dpop()
		c.dpush(c1)
		c.dpush(c2)
		c.dpush(c0)

	case NROT:
		c2, c1, c0 := c.dpop(), c.dpop(), c.dpop()
		c.dpush(c2)
		c.dpush(c0)
		c.dpush(c1)

	case DROP:
		c.dpop()

	case RDROP:
		c.rpop()

	case CARRY:
		if c.Carry {
			c.dpush(1)
		} else {
			c.dpush(0)
		}

	case TO_R:
		c.rpush(c.dpop())

	case FROM_R:
		c.dpush(c.rpop())

	case INT:
		c.rpush(c.PC)
		c.PC = isrAddr

	case FETCH:
		addr := c.dpop()
		c.dpush(c.Mem.Read16(addr))

	case BYTE_FETCH:
		addr := c.dpop()
		c.dpush(uint16(c.Mem.Read8(addr)))

	case STORE:
		addr := c.dpop()
		data := c.dpop()
		c.Mem.Write16(addr, data)

	case BYTE_STORE:
		addr := c.dpop()
		data := c.dpop()
		c.Mem.Write8(addr, byte(data))

	case PUSH8:
		c.dpush(uint16(c.fetch8()))

	case PUSH:
		c.dpush(c.fetch16())
	}
}
