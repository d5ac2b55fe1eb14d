// Package interp implements the token interpreter (C7): it consumes a
// token stream against a live CPU, memory image, and dictionary,
// compiling or immediately executing each token in turn.
package interp

import (
	"errors"
	"fmt"

	"prim/cpu"
	"prim/dict"
	"prim/token"
)

// ErrUnknownOrdinal is a programmer error: a WORD_CALL/WORD_ADDRESS token
// names a dictionary ordinal outside the current table.
var ErrUnknownOrdinal = errors.New("interp: unknown dictionary ordinal")

// ErrImmediateTooLarge is a programmer error: an immediate-mode burst
// would exceed the maximum opcode sequence length.
var ErrImmediateTooLarge = errors.New("interp: immediate burst too large")

// ErrUnknownTag is a programmer error: a token carries a tag the
// interpreter does not recognize.
var ErrUnknownTag = errors.New("interp: unknown token tag")

// Interpreter owns a CPU, its memory, and the dictionary built up as
// DEFINITION tokens are processed, plus the two literal-address sets
// the disassembler later consults to tell code from data.
type Interpreter struct {
	CPU  *cpu.CPU
	Dict *dict.Dict

	NumberLiterals map[uint16]bool
	StringLiterals map[uint16]bool

	immediate bool
}

// New returns an interpreter over cpu/dict, in compile mode.
func New(c *cpu.CPU, d *dict.Dict) *Interpreter {
	return &Interpreter{
		CPU:            c,
		Dict:           d,
		NumberLiterals: make(map[uint16]bool),
		StringLiterals: make(map[uint16]bool),
	}
}

// Run processes tokens in order, compiling or immediately executing
// each according to the current mode.
func (ip *Interpreter) Run(tokens []token.Token) error {
	for _, tok := range tokens {
		if err := ip.step(tok); err != nil {
			return err
		}
	}
	return nil
}

func (ip *Interpreter) step(tok token.Token) error {
	switch tok.Tag {
	case token.WordCall:
		addr, err := ip.resolveOrdinal(tok.Ordinal)
		if err != nil {
			return err
		}
		bytes := append(dict.PushOps(addr), byte(cpu.CALL))
		return ip.emitOrExecute(bytes)

	case token.WordAddress:
		addr, err := ip.resolveOrdinal(tok.Ordinal)
		if err != nil {
			return err
		}
		return ip.emitOrExecute(dict.PushOps(addr))

	case token.Number:
		return ip.emitOrExecute(dict.PushOps(tok.Value))

	case token.String:
		return ip.emitString(tok.Text)

	case token.Mnemonic:
		return ip.emitOrExecute([]byte{cpu.Encode(tok.Op, tok.Ret)})

	case token.Buildin:
		if tok.Builtin < 0 || tok.Builtin >= len(token.Builtins) {
			return fmt.Errorf("%w: builtin %d", ErrUnknownOrdinal, tok.Builtin)
		}
		return ip.emitOrExecute(token.Builtins[tok.Builtin].Bytes)

	case token.LitNumber:
		ip.NumberLiterals[ip.Dict.Here()] = true
		_, err := ip.Dict.Comma(byte(tok.Value), byte(tok.Value>>8))
		return err

	case token.LitString:
		payload := []byte(tok.Text)
		data := make([]byte, 0, 1+len(payload))
		data = append(data, byte(len(payload)))
		data = append(data, payload...)
		_, err := ip.Dict.Comma(data...)
		return err

	case token.Definition:
		ip.Dict.Define(tok.Text, ip.Dict.Here())
		return nil

	case token.Mode:
		ip.immediate = tok.Imm
		return nil

	case token.CommentBraces, token.CommentBackslash, token.Whitespace:
		return nil

	default:
		return fmt.Errorf("%w: %v", ErrUnknownTag, tok.Tag)
	}
}

// resolveOrdinal looks up a dictionary ordinal's bound address,
// reporting a programmer error if it is out of range.
func (ip *Interpreter) resolveOrdinal(ordinal uint16) (uint16, error) {
	addr, ok := ip.Dict.OrdinalAddress(int(ordinal))
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownOrdinal, ordinal)
	}
	return addr, nil
}

// emitOrExecute compiles bytes at HERE, or runs them immediately as a
// burst, depending on the current mode.
func (ip *Interpreter) emitOrExecute(bytes []byte) error {
	if ip.immediate {
		return ip.executeBurst(bytes)
	}
	_, err := ip.Dict.Comma(bytes...)
	return err
}

// executeBurst runs an opcode sequence to completion against the live
// CPU: it copies bytes plus a terminating BREAK into AREA, points PC at
// it, steps until BREAK is reached, then restores PC (spec.md §4.7's
// immediate-execution mechanism).
func (ip *Interpreter) executeBurst(bytes []byte) error {
	if len(bytes) > dict.MaxBurstLen {
		return fmt.Errorf("%w: %d bytes", ErrImmediateTooLarge, len(bytes))
	}

	burst := make([]byte, 0, len(bytes)+1)
	burst = append(burst, bytes...)
	burst = append(burst, byte(cpu.BREAK))
	ip.CPU.Mem.Load(dict.AreaAddr, burst)

	savedPC := ip.CPU.PC
	ip.CPU.PC = dict.AreaAddr
	for {
		if ip.CPU.Step() == cpu.BREAK {
			break
		}
	}
	ip.CPU.PC = savedPC
	return nil
}

// stringPreambleLen is the size of the fixed-width push/push/JP header
// emitted ahead of every STRING payload. Both addresses are emitted as
// full, unshrunk PUSH instructions (3 bytes each) rather than via the
// shrink-by-default push_ops helper: a STRING payload can land anywhere
// in the 64KiB address space, including well past 0x100, so folding
// either push to PUSH8 would make the preamble's own length depend on
// the very addresses it is computing. A fixed-width preamble breaks
// that circularity at the cost of a few bytes on short programs.
const stringPreambleLen = 3 + 3 + 1

// emitString compiles a STRING token: a self-skipping preamble that
// leaves the payload's address on the data stack at runtime, followed
// by the length-prefixed UTF-8 payload.
func (ip *Interpreter) emitString(s string) error {
	payload := []byte(s)
	here := ip.Dict.Here()
	addrOfPayload := here + stringPreambleLen
	addrAfterPayload := addrOfPayload + 1 + uint16(len(payload))

	var preamble []byte
	preamble = append(preamble, byte(cpu.PUSH), byte(addrOfPayload), byte(addrOfPayload>>8))
	preamble = append(preamble, byte(cpu.PUSH), byte(addrAfterPayload), byte(addrAfterPayload>>8))
	preamble = append(preamble, byte(cpu.JP))

	data := make([]byte, 0, len(preamble)+1+len(payload))
	data = append(data, preamble...)
	data = append(data, byte(len(payload)))
	data = append(data, payload...)

	if _, err := ip.Dict.Comma(data...); err != nil {
		return err
	}
	ip.StringLiterals[addrOfPayload] = true
	return nil
}
