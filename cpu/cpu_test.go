package cpu

import "testing"

// assert mirrors the teacher repo's hand-rolled test helper rather than
// pulling in an assertion library.
func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func newTestCPU() *CPU {
	return NewCPU(NewMemory())
}

// asmProgram writes a tiny program starting at address 0 and returns the CPU
// positioned to run it.
func asmProgram(bytes ...byte) *CPU {
	c := newTestCPU()
	c.Mem.Load(0, bytes)
	return c
}

func TestPCAdvancesByInstructionLength(t *testing.T) {
	c := asmProgram(byte(NOP), byte(PUSH8), 0x05, byte(PUSH), 0x34, 0x12)
	c.Step()
	assert(t, c.PC == 1, "NOP: want PC=1, got %d", c.PC)
	c.Step()
	assert(t, c.PC == 3, "PUSH8: want PC=3, got %d", c.PC)
	c.Step()
	assert(t, c.PC == 6, "PUSH: want PC=6, got %d", c.PC)
}

func TestPushAddDoublesWithCarry(t *testing.T) {
	c := asmProgram(byte(PUSH), 0x00, 0x80, byte(PUSH), 0x00, 0x80, byte(ADD))
	c.Step()
	c.Step()
	c.Step()
	assert(t, c.T() == 0, "doubling 0x8000 should wrap to 0, got %#x", c.T())
	assert(t, c.Carry, "doubling 0x8000 should set carry")
}

func TestSwap(t *testing.T) {
	c := asmProgram(byte(PUSH8), 1, byte(PUSH8), 2, byte(SWAP))
	c.Step()
	c.Step()
	c.Step()
	assert(t, c.T() == 1, "want T=1 after swap, got %d", c.T())
	assert(t, c.N() == 2, "want N=2 after swap, got %d", c.N())
}

func TestToRFromRRoundTrip(t *testing.T) {
	c := asmProgram(byte(PUSH8), 0x42, byte(TO_R), byte(FROM_R))
	c.Step()
	c.Step()
	assert(t, c.dsp == stackSize-1, "TO_R should leave data stack empty")
	assert(t, c.R() == 0x42, "want R=0x42, got %d", c.R())
	c.Step()
	assert(t, c.T() == 0x42, "want T=0x42 after FROM_R, got %d", c.T())
}

func TestSignedVsUnsignedCompareBoundary(t *testing.T) {
	// 0x7FFF and 0x8000 straddle the signed/unsigned boundary: unsigned,
	// 0x7FFF < 0x8000; signed, 0x8000 is negative so 0x7FFF is not less.
	c := asmProgram(byte(PUSH), 0xFF, 0x7F, byte(PUSH), 0x00, 0x80, byte(LTU))
	c.Step()
	c.Step()
	c.Step()
	assert(t, c.T() == 0xFFFF, "0x7FFF <U 0x8000 should be true (0xFFFF)")

	c = asmProgram(byte(PUSH), 0xFF, 0x7F, byte(PUSH), 0x00, 0x80, byte(LTS))
	c.Step()
	c.Step()
	c.Step()
	assert(t, c.T() == 0, "0x7FFF < 0x8000 should be false (0x8000 is negative signed)")
}

func TestDataStackWrapsAtSixteen(t *testing.T) {
	c := newTestCPU()
	for i := 0; i < stackSize+1; i++ {
		c.dpush(uint16(i))
	}
	// 17 pushes into a 16-slot ring buffer: the 17th push overwrites the
	// slot the 1st push used, so T() is the value from the last push.
	assert(t, c.T() == stackSize, "want T=%d after wraparound, got %d", stackSize, c.T())
}

func TestCallReturnBit(t *testing.T) {
	// CALL 0x0010 at address 0; a RET'd NOP at 0x0010 returns here.
	c := asmProgram(byte(PUSH), 0x10, 0x00, byte(CALL))
	c.Mem.Write8(0x10, Encode(NOP, true))
	c.Step() // PUSH
	c.Step() // CALL
	assert(t, c.PC == 0x10, "want PC=0x10 after CALL, got %#x", c.PC)
	c.Step() // NOP.RET
	assert(t, c.PC == 4, "want PC=4 (return address) after RET, got %#x", c.PC)
}

func TestCallIgnoresOwnReturnBit(t *testing.T) {
	// CALL.RET must not itself act as a return: the return bit on a
	// control-transfer opcode is meaningless and is dropped.
	c := asmProgram(Encode(PUSH, false), 0x10, 0x00, Encode(CALL, true))
	c.Mem.Write8(0x10, byte(NOP))
	c.Step()
	c.Step()
	assert(t, c.PC == 0x10, "CALL.RET should still jump, got PC=%#x", c.PC)
}

func TestIntClearsReturnBitAndPushesPC(t *testing.T) {
	c := asmProgram(Encode(INT, true))
	c.Step()
	assert(t, c.PC == isrAddr, "want PC=%d after INT, got %d", isrAddr, c.PC)
	assert(t, c.R() == 1, "want return address 1 on return stack, got %d", c.R())
}

func TestUnusedOpcodeSlotActsAsNop(t *testing.T) {
	// Opcodes above SIMEND are unused; spec.md §4.3 says they act as NOP.
	c := asmProgram(127)
	pc := c.PC
	c.Step()
	assert(t, c.PC == pc+1, "want PC to advance by one like NOP, got %d", c.PC)
	assert(t, c.dsp == stackSize-1, "want no stack effect, got dsp=%d", c.dsp)
}

func TestByteAndWordMemoryRoundTrip(t *testing.T) {
	c := newTestCPU()
	c.Mem.Write16(0x100, 0xBEEF)
	assert(t, c.Mem.Read16(0x100) == 0xBEEF, "word round trip failed")
	assert(t, c.Mem.Read8(0x100) == 0xEF, "low byte round trip failed")
	assert(t, c.Mem.Read8(0x101) == 0xBE, "high byte round trip failed")

	c.Mem.Write8(0x200, 0x7A)
	c.dpush(0x200)
	c.execute(BYTE_FETCH)
	assert(t, c.T() == 0x7A, "BYTE_FETCH mismatch, got %#x", c.T())
}

func TestStorePopsAddressThenDatum(t *testing.T) {
	c := newTestCPU()
	c.dpush(0xCAFE) // datum
	c.dpush(0x300)  // address (on top, popped first)
	c.execute(STORE)
	assert(t, c.Mem.Read16(0x300) == 0xCAFE, "STORE should write datum to address, got %#x", c.Mem.Read16(0x300))
}

func TestUARTEmptyReadsZero(t *testing.T) {
	m := NewMemory()
	assert(t, m.Read8(uartStatusAddr) == 0, "empty UART status should be 0")
	assert(t, m.Read8(uartDataAddr) == 0, "empty UART data read should be 0")
}

func TestUARTStatusDoesNotConsume(t *testing.T) {
	m := NewMemory()
	m.UARTInject([]byte{'h'})
	assert(t, m.Read8(uartStatusAddr) != 0, "status should be non-zero with data pending")
	assert(t, m.Read8(uartStatusAddr) != 0, "status read should not consume the queue")
	assert(t, m.Read8(uartDataAddr) == 'h', "want 'h', got %q", m.Read8(uartDataAddr))
	assert(t, m.Read8(uartStatusAddr) == 0, "status should be zero once queue drains")
}

func TestUARTInjectAndDrain(t *testing.T) {
	m := NewMemory()
	m.UARTInject([]byte{'h', 'i'})
	b := m.Read8(uartDataAddr)
	assert(t, b == 'h', "want 'h', got %q", b)
	b = m.Read8(uartDataAddr)
	assert(t, b == 'i', "want 'i', got %q", b)
	assert(t, m.Read8(uartDataAddr) == 0, "UART should be empty after drain")

	m.Write8(uartDataAddr, 'x')
	m.Write8(uartDataAddr, 'y')
	out := m.UARTDrainTx()
	assert(t, string(out) == "xy", "want \"xy\", got %q", out)
	assert(t, len(m.UARTDrainTx()) == 0, "drain should empty the tx queue")
}

func TestShiftWordVariantsShiftFullByte(t *testing.T) {
	c := newTestCPU()
	c.dpush(0x1234)
	c.execute(SRW)
	assert(t, c.T() == 0x12, "SRW should shift a full byte, got %#x", c.T())
	assert(t, c.Carry, "SRW should report a nonzero shifted-out byte via carry")

	c = newTestCPU()
	c.dpush(0x1234)
	c.execute(SLW)
	assert(t, c.T() == 0x3400, "SLW should shift a full byte, got %#x", c.T())
	assert(t, c.Carry, "SLW should report a nonzero shifted-out byte via carry")
}
