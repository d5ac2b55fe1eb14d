package token

import (
	"testing"

	"prim/cpu"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func newSeededNamespace() *Namespace {
	ns := NewNamespace()
	ns.SeedDefaults()
	return ns
}

func TestSplitFragmentsSeparatesWhitespaceRuns(t *testing.T) {
	frags := splitFragments("1 2  +\n")
	var texts []string
	for _, f := range frags {
		texts = append(texts, f.text)
	}
	assert(t, len(frags) == 7, "want 7 fragments, got %d: %v", len(frags), texts)
	assert(t, frags[0].text == "1" && frags[0].kind == kindPlain, "frag0 = %+v", frags[0])
	assert(t, frags[1].text == " " && frags[1].kind == kindWhitespace, "frag1 = %+v", frags[1])
}

func TestMergeCommentsBackslashRunsToNewline(t *testing.T) {
	frags := splitFragments("\\ this is a comment\nDUP")
	frags = mergeComments(frags)
	assert(t, frags[0].kind == kindBackslashComment, "want backslash comment, got %+v", frags[0])
	assert(t, frags[0].text == `\ this is a comment`, "unexpected comment text %q", frags[0].text)
	last := frags[len(frags)-1]
	assert(t, last.text == "DUP", "want trailing DUP fragment, got %q", last.text)
}

func TestMergeCommentsBracesJoinMatchedPair(t *testing.T) {
	frags := splitFragments("( a stack comment ) DUP")
	frags = mergeComments(frags)
	assert(t, frags[0].kind == kindBracesComment, "want braces comment, got %+v", frags[0])
	assert(t, frags[0].text == "( a stack comment )", "unexpected comment text %q", frags[0].text)
}

func TestMergeCommentsUnmatchedOpenParenIsNotMerged(t *testing.T) {
	frags := splitFragments("( unterminated")
	frags = mergeComments(frags)
	assert(t, frags[0].kind == kindPlain, "unmatched ( should stay a plain fragment, got %+v", frags[0])
}

func TestMergeStringsJoinsAcrossWhitespace(t *testing.T) {
	frags := splitFragments(`"hello world"`)
	frags, err := mergeStrings(frags)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, len(frags) == 1, "want 1 fragment, got %d", len(frags))
	assert(t, frags[0].kind == kindStringLiteral, "want string literal, got %+v", frags[0])
	assert(t, frags[0].text == `"hello world"`, "unexpected text %q", frags[0].text)
}

func TestMergeStringsUnterminatedIsFatal(t *testing.T) {
	frags := splitFragments(`"never closes`)
	_, err := mergeStrings(frags)
	assert(t, err != nil, "expected an unterminated string error")
}

func TestTokenizeDefinitionsSeedHAndLatest(t *testing.T) {
	ns := NewNamespace()
	ns.SeedDefaults()
	assert(t, ns.Count() == 2, "want 2 seeded names, got %d", ns.Count())
	idx, ok := ns.Lookup("H")
	assert(t, ok && idx == 0, "H should be ordinal 0, got %d,%v", idx, ok)
	idx, ok = ns.Lookup("LATEST")
	assert(t, ok && idx == 1, "LATEST should be ordinal 1, got %d,%v", idx, ok)
}

func TestTokenizeDefinitionRegistersName(t *testing.T) {
	ns := newSeededNamespace()
	toks, err := Tokenize(":SQUARE DUP ;", ns)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, toks[0].Tag == Definition && toks[0].Text == "SQUARE", "want DEFINITION(SQUARE), got %v", toks[0])
	idx, ok := ns.Lookup("SQUARE")
	assert(t, ok && idx == 2, "SQUARE should be ordinal 2, got %d,%v", idx, ok)
}

func TestTokenizeMnemonicWithRetSuffix(t *testing.T) {
	ns := newSeededNamespace()
	toks, err := Tokenize("SWAP.RET", ns)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, toks[0].Tag == Mnemonic, "want MNEMONIC, got %v", toks[0])
	assert(t, toks[0].Op == cpu.SWAP && toks[0].Ret, "want SWAP/ret, got %v", toks[0])
}

func TestTokenizeBuiltinSemicolon(t *testing.T) {
	ns := newSeededNamespace()
	toks, err := Tokenize(";", ns)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, toks[0].Tag == Buildin && toks[0].Builtin == 0, "want BUILDIN(0), got %v", toks[0])
}

func TestTokenizeNumberLiteralHash(t *testing.T) {
	ns := newSeededNamespace()
	toks, err := Tokenize("#42", ns)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, toks[0].Tag == LitNumber && toks[0].Value == 42, "want LIT_NUMBER(42), got %v", toks[0])
}

func TestTokenizeHashNameResolvesToWordAddress(t *testing.T) {
	ns := newSeededNamespace()
	toks, err := Tokenize("#H", ns)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, toks[0].Tag == WordAddress && toks[0].Ordinal == 0, "want WORD_ADDRESS(0), got %v", toks[0])
}

func TestTokenizeHashStringIsLitString(t *testing.T) {
	ns := newSeededNamespace()
	toks, err := Tokenize(`#"hi"`, ns)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, toks[0].Tag == LitString && toks[0].Text == "hi", "want LIT_STRING(hi), got %v", toks[0])
}

func TestTokenizeTickNameResolvesToWordAddress(t *testing.T) {
	ns := newSeededNamespace()
	toks, err := Tokenize("'LATEST", ns)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, toks[0].Tag == WordAddress && toks[0].Ordinal == 1, "want WORD_ADDRESS(1), got %v", toks[0])
}

func TestTokenizeTickUnknownNameIsFatal(t *testing.T) {
	ns := newSeededNamespace()
	_, err := Tokenize("'NOSUCHWORD", ns)
	assert(t, err != nil, "expected unknown word error")
}

func TestTokenizeStringLiteral(t *testing.T) {
	ns := newSeededNamespace()
	toks, err := Tokenize(`"hello there"`, ns)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, toks[0].Tag == String && toks[0].Text == "hello there", "want STRING, got %v", toks[0])
}

func TestTokenizeKnownNameIsWordCall(t *testing.T) {
	ns := newSeededNamespace()
	toks, err := Tokenize("H", ns)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, toks[0].Tag == WordCall && toks[0].Ordinal == 0, "want WORD_CALL(0), got %v", toks[0])
}

func TestTokenizeUnknownNameFallsBackToNumber(t *testing.T) {
	ns := newSeededNamespace()
	toks, err := Tokenize("$2A", ns)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, toks[0].Tag == Number && toks[0].Value == 0x2A, "want NUMBER(0x2A), got %v", toks[0])
}

func TestTokenizeUnknownWordIsFatal(t *testing.T) {
	ns := newSeededNamespace()
	_, err := Tokenize("NOTAWORDORNUMBER!", ns)
	assert(t, err != nil, "expected unknown word error")
}

func TestTokenizeModeSwitchesTrackImmediate(t *testing.T) {
	ns := newSeededNamespace()
	toks, err := Tokenize("[ ]", ns)
	assert(t, err == nil, "unexpected error: %v", err)
	var modeToks []Token
	for _, tok := range toks {
		if tok.Tag == Mode {
			modeToks = append(modeToks, tok)
		}
	}
	assert(t, len(modeToks) == 2, "want 2 MODE tokens, got %d", len(modeToks))
	assert(t, modeToks[0].Imm == true, "first MODE should be immediate")
	assert(t, modeToks[1].Imm == false, "second MODE should be compile")
}

func TestTokenizeDefinitionIllegalInImmediateMode(t *testing.T) {
	ns := newSeededNamespace()
	_, err := Tokenize("[ : FOO", ns)
	assert(t, err != nil, "expected illegal-in-immediate error for definition")
}

func TestTokenizeStringIllegalInImmediateMode(t *testing.T) {
	ns := newSeededNamespace()
	_, err := Tokenize(`[ "hi"`, ns)
	assert(t, err != nil, "expected illegal-in-immediate error for string")
}

func TestTokenizeHashLiteralIllegalInImmediateMode(t *testing.T) {
	ns := newSeededNamespace()
	_, err := Tokenize("[ #5", ns)
	assert(t, err != nil, "expected illegal-in-immediate error for # literal")
}

func TestTokenizeWhitespaceAndCommentsArePreserved(t *testing.T) {
	ns := newSeededNamespace()
	toks, err := Tokenize("H \\ trailing comment\n", ns)
	assert(t, err == nil, "unexpected error: %v", err)
	var sawWs, sawComment bool
	for _, tok := range toks {
		if tok.Tag == Whitespace {
			sawWs = true
		}
		if tok.Tag == CommentBackslash {
			sawComment = true
		}
	}
	assert(t, sawWs, "expected a WHITESPACE token")
	assert(t, sawComment, "expected a COMMENT_BACKSLASH token")
}
