// Package token implements the tokenizer (C6): turning Forth-like
// source text into a typed token stream while building the ordinal
// dictionary namespace the stream refers into.
package token

import (
	"fmt"

	"prim/cpu"
)

// Tag identifies which of the thirteen token kinds a Token is
// (spec.md §4.6). Tokens are a closed set of variants with fixed
// payload shapes, modeled as one tagged struct rather than a class
// hierarchy (spec.md §9): decoding is a single switch on Tag.
type Tag byte

const (
	WordCall Tag = iota
	WordAddress
	Number
	String
	Mnemonic
	Buildin
	LitNumber
	LitString
	Definition
	Mode
	CommentBraces
	CommentBackslash
	Whitespace
)

func (t Tag) String() string {
	switch t {
	case WordCall:
		return "WORD_CALL"
	case WordAddress:
		return "WORD_ADDRESS"
	case Number:
		return "NUMBER"
	case String:
		return "STRING"
	case Mnemonic:
		return "MNEMONIC"
	case Buildin:
		return "BUILDIN"
	case LitNumber:
		return "LIT_NUMBER"
	case LitString:
		return "LIT_STRING"
	case Definition:
		return "DEFINITION"
	case Mode:
		return "MODE"
	case CommentBraces:
		return "COMMENT_BRACES"
	case CommentBackslash:
		return "COMMENT_BACKSLASH"
	case Whitespace:
		return "WHITESPACE"
	default:
		return fmt.Sprintf("Tag(%d)", byte(t))
	}
}

// Builtins is the indexed table of canned opcode sequences a BUILDIN
// token resolves to. spec.md §9(c): keep the mechanism generic, but do
// not guess at entries beyond the one the spec names.
var Builtins = []struct {
	Name  string
	Bytes []byte
}{
	{Name: ";", Bytes: []byte{cpu.Encode(cpu.NOP, true)}},
}

// LookupBuiltin resolves a built-in name to its table index.
func LookupBuiltin(name string) (int, bool) {
	for i, b := range Builtins {
		if b.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Token is a single tagged record from the token stream. Only the
// fields relevant to its Tag are meaningful; this mirrors spec.md's
// fixed per-tag payload shapes without a type hierarchy.
type Token struct {
	Tag Tag

	Ordinal uint16 // WordCall, WordAddress
	Value   uint16 // Number, LitNumber
	Text    string // String, LitString, Definition (name), Comment*, Whitespace
	Op      cpu.Op // Mnemonic
	Ret     bool   // Mnemonic
	Builtin int    // Buildin
	Imm     bool   // Mode: true = immediate, false = compile
}

func (t Token) String() string {
	switch t.Tag {
	case WordCall, WordAddress:
		return fmt.Sprintf("%s(%d)", t.Tag, t.Ordinal)
	case Number, LitNumber:
		return fmt.Sprintf("%s(%#04x)", t.Tag, t.Value)
	case String, LitString, Definition, CommentBraces, CommentBackslash, Whitespace:
		return fmt.Sprintf("%s(%q)", t.Tag, t.Text)
	case Mnemonic:
		return fmt.Sprintf("MNEMONIC(%s,ret=%v)", t.Op, t.Ret)
	case Buildin:
		return fmt.Sprintf("BUILDIN(%d)", t.Builtin)
	case Mode:
		return fmt.Sprintf("MODE(imm=%v)", t.Imm)
	default:
		return t.Tag.String()
	}
}
