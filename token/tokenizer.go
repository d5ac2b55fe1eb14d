package token

import (
	"errors"
	"fmt"
	"strings"

	"prim/asm"
	"prim/cpu"
)

// ErrUnterminatedString is a source error: a fragment opened a string
// literal that never closed before end of input.
var ErrUnterminatedString = errors.New("token: unterminated string")

// ErrUnknownWord is a source error: a fragment resolved to neither a
// mnemonic, a built-in, a known name, nor a number.
var ErrUnknownWord = errors.New("token: unknown word")

// ErrIllegalInImmediate is a source error: a definition, literal, or
// string fragment appeared while in immediate mode.
var ErrIllegalInImmediate = errors.New("token: illegal in immediate mode")

// fragKind distinguishes how a fragment was produced by the merge
// passes, so classify never has to re-derive it from punctuation.
type fragKind int

const (
	kindPlain fragKind = iota
	kindWhitespace
	kindBackslashComment
	kindBracesComment
	kindStringLiteral
)

type fragment struct {
	text string
	kind fragKind
}

// splitFragments splits s into runs of whitespace (code points below
// 33) and non-whitespace, each run its own fragment (spec.md §4.6).
func splitFragments(s string) []fragment {
	runes := []rune(s)
	var out []fragment
	i := 0
	for i < len(runes) {
		ws := runes[i] < 33
		j := i + 1
		for j < len(runes) && (runes[j] < 33) == ws {
			j++
		}
		kind := kindPlain
		if ws {
			kind = kindWhitespace
		}
		out = append(out, fragment{text: string(runes[i:j]), kind: kind})
		i = j
	}
	return out
}

// mergeComments joins a lone "\" fragment with everything up to (not
// including) the next fragment containing a newline, and joins a "("
// fragment through a later ")" fragment, when both occur.
func mergeComments(frags []fragment) []fragment {
	out := make([]fragment, 0, len(frags))
	i := 0
	for i < len(frags) {
		f := frags[i]
		if f.kind == kindPlain && f.text == `\` {
			j := i + 1
			for j < len(frags) && !strings.ContainsRune(frags[j].text, '\n') {
				j++
			}
			out = append(out, joinRange(frags[i:j], kindBackslashComment))
			i = j
			continue
		}
		if f.kind == kindPlain && f.text == "(" {
			end := -1
			for k := i + 1; k < len(frags); k++ {
				if frags[k].kind == kindPlain && frags[k].text == ")" {
					end = k
					break
				}
			}
			if end >= 0 {
				out = append(out, joinRange(frags[i:end+1], kindBracesComment))
				i = end + 1
				continue
			}
		}
		out = append(out, f)
		i++
	}
	return out
}

// mergeStrings joins a fragment starting with `"` through the next
// fragment ending with `"` (inclusive), folding any intervening
// fragments (including whitespace) into the string's text.
func mergeStrings(frags []fragment) ([]fragment, error) {
	out := make([]fragment, 0, len(frags))
	i := 0
	for i < len(frags) {
		f := frags[i]
		if f.kind == kindPlain && strings.HasPrefix(f.text, `"`) {
			if len(f.text) > 1 && strings.HasSuffix(f.text, `"`) {
				out = append(out, fragment{text: f.text, kind: kindStringLiteral})
				i++
				continue
			}
			j := i + 1
			for j < len(frags) && !strings.HasSuffix(frags[j].text, `"`) {
				j++
			}
			if j >= len(frags) {
				return nil, fmt.Errorf("%w: %q", ErrUnterminatedString, f.text)
			}
			out = append(out, joinRange(frags[i:j+1], kindStringLiteral))
			i = j + 1
			continue
		}
		out = append(out, f)
		i++
	}
	return out, nil
}

func joinRange(frags []fragment, kind fragKind) fragment {
	var b strings.Builder
	for _, f := range frags {
		b.WriteString(f.text)
	}
	return fragment{text: b.String(), kind: kind}
}

// Tokenize runs the full tokenizer pipeline over source: fragment
// splitting, the two merge passes, then per-fragment classification
// (spec.md §4.6), tracking mode and registering definitions into ns as
// they are encountered.
func Tokenize(source string, ns *Namespace) ([]Token, error) {
	frags := splitFragments(source)
	frags = mergeComments(frags)
	frags, err := mergeStrings(frags)
	if err != nil {
		return nil, err
	}

	tokens := make([]Token, 0, len(frags))
	mode := false // false = compile, true = immediate
	for _, f := range frags {
		tok, newMode, err := classify(f, ns, mode)
		if err != nil {
			return nil, err
		}
		mode = newMode
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// classify applies spec.md §4.6's fragment classification rules, in
// order, to one fragment.
func classify(f fragment, ns *Namespace, mode bool) (Token, bool, error) {
	switch f.kind {
	case kindWhitespace:
		return Token{Tag: Whitespace, Text: f.text}, mode, nil
	case kindBackslashComment:
		return Token{Tag: CommentBackslash, Text: f.text}, mode, nil
	case kindBracesComment:
		return Token{Tag: CommentBraces, Text: f.text}, mode, nil
	case kindStringLiteral:
		if mode {
			return Token{}, mode, fmt.Errorf("%w: string %q", ErrIllegalInImmediate, f.text)
		}
		return Token{Tag: String, Text: unquote(f.text)}, mode, nil
	}

	text := f.text

	// Rule 1: mode switches.
	if text == "[" {
		return Token{Tag: Mode, Imm: true}, true, nil
	}
	if text == "]" {
		return Token{Tag: Mode, Imm: false}, false, nil
	}

	// Rule 2: definitions.
	if strings.HasPrefix(text, ":") {
		if mode {
			return Token{}, mode, fmt.Errorf("%w: definition %q", ErrIllegalInImmediate, text)
		}
		name := text[1:]
		ns.Reserve(name)
		return Token{Tag: Definition, Text: name}, mode, nil
	}

	// Rule 3: mnemonics (case-sensitive, optional .RET suffix).
	if op, ret, ok := lookupMnemonic(text); ok {
		return Token{Tag: Mnemonic, Op: op, Ret: ret}, mode, nil
	}

	// Rule 4: built-ins.
	if idx, ok := LookupBuiltin(text); ok {
		return Token{Tag: Buildin, Builtin: idx}, mode, nil
	}

	// Rule 5: # literals.
	if strings.HasPrefix(text, "#") {
		if mode {
			return Token{}, mode, fmt.Errorf("%w: literal %q", ErrIllegalInImmediate, text)
		}
		rest := text[1:]
		if strings.HasPrefix(rest, `"`) {
			return Token{Tag: LitString, Text: unquote(rest)}, mode, nil
		}
		if idx, ok := ns.Lookup(rest); ok {
			// "a literal address": the same mechanism as rule 6's
			// WORD_ADDRESS, spelled with a # prefix instead of '.
			return Token{Tag: WordAddress, Ordinal: uint16(idx)}, mode, nil
		}
		v, err := parseNumber(rest)
		if err != nil {
			return Token{}, mode, err
		}
		return Token{Tag: LitNumber, Value: v}, mode, nil
	}

	// Rule 6: 'name word addresses.
	if strings.HasPrefix(text, "'") && len(text) > 2 {
		name := text[1:]
		idx, ok := ns.Lookup(name)
		if !ok {
			return Token{}, mode, fmt.Errorf("%w: %q", ErrUnknownWord, name)
		}
		return Token{Tag: WordAddress, Ordinal: uint16(idx)}, mode, nil
	}

	// Rule 7 (non-merged quoted fragment; the merge pass normally
	// already classifies these as kindStringLiteral, but a
	// single-fragment '"..."' with no embedded whitespace reaches
	// here identically and is handled the same way).
	if strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) && len(text) > 1 {
		if mode {
			return Token{}, mode, fmt.Errorf("%w: string %q", ErrIllegalInImmediate, text)
		}
		return Token{Tag: String, Text: unquote(text)}, mode, nil
	}

	// Rule 9: known name, else number, else fatal.
	if idx, ok := ns.Lookup(text); ok {
		return Token{Tag: WordCall, Ordinal: uint16(idx)}, mode, nil
	}
	if v, err := parseNumber(text); err == nil {
		return Token{Tag: Number, Value: v}, mode, nil
	}
	return Token{}, mode, fmt.Errorf("%w: %q", ErrUnknownWord, text)
}

// lookupMnemonic resolves a case-sensitive mnemonic fragment, honoring
// an optional ".RET" suffix.
func lookupMnemonic(text string) (cpu.Op, bool, bool) {
	body := text
	ret := false
	if strings.HasSuffix(text, ".RET") {
		body = strings.TrimSuffix(text, ".RET")
		ret = true
	}
	op, ok := cpu.Lookup(body)
	return op, ret, ok
}

// unquote strips the leading and trailing `"` from a merged string
// fragment.
func unquote(s string) string {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return s
}

// parseNumber exposes the assembler's number grammar ($hex, 0xhex,
// decimal, optional sign) to the tokenizer, since spec.md §4.6
// specifies the identical grammar for NUMBER/LIT_NUMBER fragments.
func parseNumber(s string) (uint16, error) {
	return asm.ParseNumber(strings.ToUpper(s))
}
