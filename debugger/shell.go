package debugger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"prim/asm"
	"prim/cpu"
)

// ErrUnknownCommand is reported for an unrecognized shell command line.
var ErrUnknownCommand = errors.New("debugger: unknown command")

// Shell drives a line-oriented command loop against a Debugger, in the
// style of the reference corpus's RunProgramDebugMode: read a line,
// dispatch on its first word, print state, repeat. When built with a
// RawTerminal it additionally recognizes the right/down arrow keys as
// step/step-over shortcuts and ESC/ctrl-D as quit (spec.md §4.8, §6).
type Shell struct {
	Dbg *Debugger
	in  *bufio.Reader
	out io.Writer

	term       *RawTerminal
	pending    byte
	hasPending bool
}

// NewShell returns a Shell reading line commands from in and writing
// output to out. Used for non-interactive input (tests, piped scripts)
// and whenever stdin isn't a real terminal.
func NewShell(dbg *Debugger, in io.Reader, out io.Writer) *Shell {
	return &Shell{Dbg: dbg, in: bufio.NewReader(in), out: out}
}

// NewShellWithTerminal returns a Shell reading raw keystrokes from term,
// enabling arrow-key step/step-over and ESC/ctrl-D quit in addition to
// the text command grammar.
func NewShellWithTerminal(dbg *Debugger, term *RawTerminal, out io.Writer) *Shell {
	return &Shell{Dbg: dbg, term: term, out: out}
}

// Run reads and dispatches commands until EOF, "q"/"quit", ESC, or
// ctrl-D.
func (sh *Shell) Run() {
	if sh.term != nil {
		sh.runRaw()
		return
	}
	sh.runLines()
}

func (sh *Shell) runLines() {
	sh.printState()
	for {
		fmt.Fprint(sh.out, "\n-> ")
		line, err := sh.in.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" && err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "q" || fields[0] == "quit" {
			return
		}
		if sh.dispatch(fields) {
			return
		}
	}
}

// runRaw drives the shell from a RawTerminal: an ESC at the start of a
// command is either the start of an arrow-key escape sequence (right =
// step, down = step-over) or, with nothing following, the quit
// keystroke; ctrl-D also quits; anything else begins an ordinary text
// command line, accumulated byte by byte until Enter.
func (sh *Shell) runRaw() {
	sh.printState()
	for {
		fmt.Fprint(sh.out, "\n-> ")
		b, err := sh.readKey()
		if err != nil {
			return
		}

		switch b {
		case 0x04: // ctrl-D
			return
		case '\n':
			continue
		case 0x1B: // ESC
			if sh.handleEscape() {
				return
			}
			continue
		}

		line, err := sh.readLine(b)
		fields := strings.Fields(line)
		if len(fields) > 0 {
			if fields[0] == "q" || fields[0] == "quit" {
				return
			}
			if sh.dispatch(fields) {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// handleEscape reads the rest of a possible arrow-key sequence
// (ESC '[' 'C'/'B') and reports whether the shell should quit: a lone
// ESC, or anything that isn't a right/down arrow, quits.
func (sh *Shell) handleEscape() bool {
	next, ok, err := sh.term.ReadByteTimeout(escTimeout)
	if err != nil || !ok || next != '[' {
		return true
	}
	dir, ok, err := sh.term.ReadByteTimeout(escTimeout)
	if err != nil || !ok {
		return true
	}
	switch dir {
	case 'C': // right arrow: step
		op := sh.Dbg.Step()
		sh.printState()
		return sh.haltedOn(op)
	case 'B': // down arrow: step-over
		op := sh.Dbg.StepOver()
		sh.printState()
		return sh.haltedOn(op)
	default:
		return true
	}
}

// readKey returns the next raw keystroke, consuming a pending byte left
// over from a run cancellation (keyAvailable) before reading a fresh
// one.
func (sh *Shell) readKey() (byte, error) {
	if sh.hasPending {
		sh.hasPending = false
		return sh.pending, nil
	}
	return sh.term.ReadByte()
}

// readLine accumulates raw keystrokes (starting with first) into a text
// command line, honoring backspace, until Enter.
func (sh *Shell) readLine(first byte) (string, error) {
	var buf []byte
	b := first
	for b != '\n' {
		if b == 0x08 {
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
			}
		} else {
			buf = append(buf, b)
		}
		nb, err := sh.readKey()
		if err != nil {
			return string(buf), err
		}
		b = nb
	}
	return string(buf), nil
}

// keyAvailable polls for a pending keystroke without blocking the run
// loop, stashing it for readKey to return next. It backs Debugger.Run's
// stop callback, the "cancel a run with any keypress" behavior (spec.md
// §4.8, lines 182/188).
func (sh *Shell) keyAvailable() bool {
	if sh.term == nil {
		return false
	}
	b, ok, err := sh.term.ReadByteTimeout(time.Millisecond)
	if err != nil || !ok {
		return false
	}
	sh.pending, sh.hasPending = b, true
	return true
}

// dispatch runs one command and reports whether the shell should stop.
func (sh *Shell) dispatch(fields []string) bool {
	switch strings.ToLower(fields[0]) {
	case "n", "next":
		op := sh.Dbg.Step()
		sh.printState()
		return sh.haltedOn(op)

	case "s", "over":
		op := sh.Dbg.StepOver()
		sh.printState()
		return sh.haltedOn(op)

	case "r", "run":
		op := sh.Dbg.Run(sh.keyAvailable)
		sh.printState()
		return sh.haltedOn(op)

	case "reset":
		sh.Dbg.Reset()
		fmt.Fprintln(sh.out, "reset")
		sh.printState()

	case "b", "break":
		sh.cmdBreak(fields)

	case "bl", "breaks":
		fmt.Fprintf(sh.out, "breakpoints: %v\n", addrList(sh.Dbg.Breakpoints()))

	case "m", "mem":
		sh.cmdMem(fields)

	case "w", "write":
		sh.cmdWrite(fields)

	case "u", "uart":
		if len(fields) < 2 {
			fmt.Fprintln(sh.out, "usage: uart <text>")
			return false
		}
		sh.Dbg.InjectUART([]byte(strings.Join(fields[1:], " ")))

	case "x", "exec":
		sh.cmdExec(fields)

	case "o", "origin":
		sh.cmdOrigin(fields)

	case "help":
		sh.printHelp()

	default:
		fmt.Fprintf(sh.out, "%v: %q\n", ErrUnknownCommand, fields[0])
	}
	return false
}

func (sh *Shell) haltedOn(op cpu.Op) bool {
	if op == cpu.SIMEND {
		fmt.Fprintln(sh.out, "program finished")
		return true
	}
	if op == cpu.BREAK {
		fmt.Fprintln(sh.out, "break")
	}
	return false
}

func (sh *Shell) cmdBreak(fields []string) {
	if len(fields) < 2 {
		fmt.Fprintln(sh.out, "usage: break <addr>")
		return
	}
	addr, err := parseAddr(fields[1])
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return
	}
	if sh.Dbg.ToggleBreakpoint(addr) {
		fmt.Fprintf(sh.out, "breakpoint set at %#04x\n", addr)
	} else {
		fmt.Fprintf(sh.out, "breakpoint cleared at %#04x\n", addr)
	}
}

func (sh *Shell) cmdMem(fields []string) {
	if len(fields) < 2 {
		fmt.Fprintln(sh.out, "usage: mem <addr> [len]")
		return
	}
	addr, err := parseAddr(fields[1])
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return
	}
	n := 16
	if len(fields) > 2 {
		if v, err := strconv.Atoi(fields[2]); err == nil {
			n = v
		}
	}
	sh.Dbg.SetViewOrigin(addr)
	sh.dumpMemory(addr, n)
}

func (sh *Shell) cmdWrite(fields []string) {
	if len(fields) < 3 {
		fmt.Fprintln(sh.out, "usage: write <addr> <byte>")
		return
	}
	addr, err := parseAddr(fields[1])
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return
	}
	v, err := parseAddr(fields[2])
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return
	}
	sh.Dbg.WriteByte(addr, byte(v))
}

func (sh *Shell) cmdOrigin(fields []string) {
	if len(fields) < 2 {
		fmt.Fprintln(sh.out, "usage: origin <addr>")
		return
	}
	addr, err := parseAddr(fields[1])
	if err != nil {
		fmt.Fprintln(sh.out, err)
		return
	}
	sh.Dbg.SetViewOrigin(addr)
}

// cmdExec runs a single mnemonic (with optional ".RET" suffix) or a bare
// number literal directly against the CPU, without compiling it.
func (sh *Shell) cmdExec(fields []string) {
	if len(fields) < 2 {
		fmt.Fprintln(sh.out, "usage: exec <mnemonic-or-number>")
		return
	}
	if err := sh.execDirect(fields[1]); err != nil {
		fmt.Fprintln(sh.out, err)
		return
	}
	sh.printState()
}

func (sh *Shell) execDirect(text string) error {
	upper := strings.ToUpper(text)
	ret := strings.HasSuffix(upper, ".RET")
	mnemonic := strings.TrimSuffix(upper, ".RET")
	if op, ok := cpu.Lookup(mnemonic); ok {
		_, err := sh.Dbg.ExecuteMnemonic(op, ret)
		return err
	}
	v, err := asm.ParseNumber(upper)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, text)
	}
	_, err = sh.Dbg.PushNumber(v)
	return err
}

// printHelp prints the debugger's command grammar (spec.md §4.8, §6).
func (sh *Shell) printHelp() {
	fmt.Fprintln(sh.out, "n, next               single step")
	fmt.Fprintln(sh.out, "s, over               step over a call")
	fmt.Fprintln(sh.out, "r, run                run until a breakpoint, SIMEND, or a keypress")
	fmt.Fprintln(sh.out, "reset                 reinitialize CPU, memory, and dictionary")
	fmt.Fprintln(sh.out, "b, break <addr>       toggle a breakpoint")
	fmt.Fprintln(sh.out, "bl, breaks            list armed breakpoints")
	fmt.Fprintln(sh.out, "m, mem <addr> [len]   dump memory starting at addr")
	fmt.Fprintln(sh.out, "w, write <addr> <b>   patch one byte")
	fmt.Fprintln(sh.out, "u, uart <text>        inject bytes into the UART receive queue")
	fmt.Fprintln(sh.out, "x, exec <word|num>    run one mnemonic or push one number directly")
	fmt.Fprintln(sh.out, "o, origin <addr>      set the memory view origin")
	fmt.Fprintln(sh.out, "help                  show this text")
	fmt.Fprintln(sh.out, "q, quit               exit the debugger")
	fmt.Fprintln(sh.out, "right arrow           step (raw terminal mode)")
	fmt.Fprintln(sh.out, "down arrow            step over (raw terminal mode)")
	fmt.Fprintln(sh.out, "ESC, ctrl-D           exit (raw terminal mode)")
}

func (sh *Shell) printState() {
	c := sh.Dbg.CPU
	fmt.Fprintf(sh.out, "PC: %#04x  carry: %v\n", c.PC, c.Carry)
	fmt.Fprintln(sh.out, sh.Dbg.DataStackView(72))
	fmt.Fprintln(sh.out, sh.Dbg.ReturnStackView(72))
}

func (sh *Shell) dumpMemory(addr uint16, n int) {
	for i := 0; i < n; i++ {
		if i%8 == 0 {
			if i > 0 {
				fmt.Fprintln(sh.out)
			}
			fmt.Fprintf(sh.out, "%#04x: ", addr+uint16(i))
		}
		fmt.Fprintf(sh.out, "%02x ", sh.Dbg.ReadByte(addr+uint16(i)))
	}
	fmt.Fprintln(sh.out)
}

func parseAddr(s string) (uint16, error) {
	return asm.ParseNumber(strings.ToUpper(s))
}

func addrList(addrs []uint16) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = fmt.Sprintf("%#04x", a)
	}
	return out
}
