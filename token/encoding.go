package token

import (
	"errors"
	"fmt"

	"prim/cpu"
)

// ErrTruncated is returned by Decode when the byte stream ends in the
// middle of a token's payload.
var ErrTruncated = errors.New("token: truncated token stream")

// Encode serializes tokens into the flat byte sequence persisted under
// a document's "tokens" key (spec.md §6): each token is a tag byte
// followed by its tag's fixed payload shape (spec.md §4.6's table).
func Encode(tokens []Token) []byte {
	var out []byte
	for _, t := range tokens {
		out = append(out, byte(t.Tag))
		switch t.Tag {
		case WordCall, WordAddress:
			out = append(out, byte(t.Ordinal), byte(t.Ordinal>>8))
		case Number, LitNumber:
			out = append(out, byte(t.Value), byte(t.Value>>8))
		case String, LitString, Definition, CommentBraces, CommentBackslash, Whitespace:
			out = append(out, encodeText(t.Text)...)
		case Mnemonic:
			out = append(out, cpu.Encode(t.Op, t.Ret))
		case Buildin:
			out = append(out, byte(t.Builtin))
		case Mode:
			if t.Imm {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out
}

func encodeText(s string) []byte {
	b := []byte(s)
	out := make([]byte, 0, 1+len(b))
	out = append(out, byte(len(b)))
	out = append(out, b...)
	return out
}

// Decode parses a flat byte sequence back into tokens.
func Decode(data []byte) ([]Token, error) {
	var tokens []Token
	i := 0
	for i < len(data) {
		tag := Tag(data[i])
		i++
		tok := Token{Tag: tag}

		switch tag {
		case WordCall, WordAddress:
			v, n, err := readUint16(data, i)
			if err != nil {
				return nil, err
			}
			tok.Ordinal = v
			i += n

		case Number, LitNumber:
			v, n, err := readUint16(data, i)
			if err != nil {
				return nil, err
			}
			tok.Value = v
			i += n

		case String, LitString, Definition, CommentBraces, CommentBackslash, Whitespace:
			s, n, err := readText(data, i)
			if err != nil {
				return nil, err
			}
			tok.Text = s
			i += n

		case Mnemonic:
			if i >= len(data) {
				return nil, fmt.Errorf("%w: mnemonic", ErrTruncated)
			}
			op, ret := cpu.Decode(data[i])
			tok.Op, tok.Ret = op, ret
			i++

		case Buildin:
			if i >= len(data) {
				return nil, fmt.Errorf("%w: builtin", ErrTruncated)
			}
			tok.Builtin = int(data[i])
			i++

		case Mode:
			if i >= len(data) {
				return nil, fmt.Errorf("%w: mode", ErrTruncated)
			}
			tok.Imm = data[i] != 0
			i++

		default:
			return nil, fmt.Errorf("token: unknown token tag %d", tag)
		}

		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func readUint16(data []byte, i int) (uint16, int, error) {
	if i+2 > len(data) {
		return 0, 0, fmt.Errorf("%w: number", ErrTruncated)
	}
	return uint16(data[i]) | uint16(data[i+1])<<8, 2, nil
}

func readText(data []byte, i int) (string, int, error) {
	if i >= len(data) {
		return "", 0, fmt.Errorf("%w: text length", ErrTruncated)
	}
	length := int(data[i])
	if i+1+length > len(data) {
		return "", 0, fmt.Errorf("%w: text body", ErrTruncated)
	}
	return string(data[i+1 : i+1+length]), 1 + length, nil
}
