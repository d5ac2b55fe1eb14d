// Package asm implements the line-oriented assembler (C4) and the
// symbol-aware disassembler (C5) over Prim's opcode set.
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"prim/cpu"
)

// ErrUnknownMnemonic is a source error: a token is neither a known
// mnemonic nor a parseable number.
var ErrUnknownMnemonic = errors.New("asm: unknown mnemonic or number")

// ErrBadNumber is a source error: a token looked like a number but
// failed to parse under the accepted grammar.
var ErrBadNumber = errors.New("asm: bad number syntax")

// AssembleLine assembles one line of whitespace-separated tokens into
// the bytes they encode. A token starting with ";" or "#" begins a
// comment that runs to the end of the line.
func AssembleLine(line string) ([]byte, error) {
	var out []byte
	for _, tok := range strings.Fields(line) {
		if strings.HasPrefix(tok, ";") || strings.HasPrefix(tok, "#") {
			break
		}
		b, err := assembleToken(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// AssembleReader reads whole-file source and concatenates each line's
// assembled output (spec.md §4.4's assemble_file).
func AssembleReader(r io.Reader) ([]byte, error) {
	var out []byte
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		b, err := AssembleLine(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, b...)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// assembleToken assembles a single mnemonic-or-number token, honoring
// an optional ".RET" suffix that sets bit 7 of the token's first
// emitted byte.
func assembleToken(tok string) ([]byte, error) {
	body, ret := splitRetSuffix(strings.ToUpper(tok))

	if op, ok := cpu.Lookup(body); ok {
		return []byte{cpu.Encode(op, ret)}, nil
	}

	v, err := ParseNumber(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMnemonic, tok)
	}
	return pushBytesFor(v, ret), nil
}

// splitRetSuffix strips a trailing ".RET" (case already normalized by
// the caller) and reports whether it was present.
func splitRetSuffix(upper string) (body string, ret bool) {
	if strings.HasSuffix(upper, ".RET") {
		return strings.TrimSuffix(upper, ".RET"), true
	}
	return upper, false
}

// pushBytesFor encodes the shortest push instruction for v: PUSH8 if
// it fits a byte, otherwise PUSH with a little-endian operand.
func pushBytesFor(v uint16, ret bool) []byte {
	if v < 0x100 {
		return []byte{cpu.Encode(cpu.PUSH8, ret), byte(v)}
	}
	return []byte{cpu.Encode(cpu.PUSH, ret), byte(v), byte(v >> 8)}
}

// ParseNumber accepts an optional leading sign, then $hex, 0xhex, or
// decimal (spec.md §4.4); body must already be uppercased. Shared with
// the tokenizer, which specifies the identical number grammar.
func ParseNumber(body string) (uint16, error) {
	sign := int64(1)
	rest := body
	switch {
	case strings.HasPrefix(rest, "+"):
		rest = rest[1:]
	case strings.HasPrefix(rest, "-"):
		sign = -1
		rest = rest[1:]
	}

	var (
		val int64
		err error
	)
	switch {
	case strings.HasPrefix(rest, "$"):
		val, err = strconv.ParseInt(rest[1:], 16, 64)
	case strings.HasPrefix(rest, "0X"):
		val, err = strconv.ParseInt(rest[2:], 16, 64)
	default:
		val, err = strconv.ParseInt(rest, 10, 64)
	}
	if err != nil || rest == "" {
		return 0, fmt.Errorf("%w: %q", ErrBadNumber, body)
	}
	return uint16(sign * val), nil
}
