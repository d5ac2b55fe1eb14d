// Package persist implements the TOML-backed document format shared by
// every CLI stage: the tokenizer's cumulative symbol table and token
// stream, and the assembler's and token interpreter's memory images,
// which the disassembler and the debugger load (spec.md §6).
package persist

import (
	"fmt"
	"io"
	"sort"

	"github.com/BurntSushi/toml"

	"prim/asm"
	"prim/cpu"
	"prim/dict"
)

// Type values for the document's "type" key.
const (
	TypeTokenizer  = "tokenizer"
	TypeTokenForth = "tokenforth"
)

// Document is the full persisted shape spec.md §6 describes. Fields use
// plain int slices rather than []byte: the TOML format itself has no
// binary type, and the source system these documents interoperate with
// always wrote memory/tokens as literal integer arrays.
type Document struct {
	Memory         []int    `toml:"memory,omitempty"`
	Symbols        []string `toml:"symbols,omitempty"`
	NumberLiterals []int    `toml:"num-literals,omitempty"`
	StringLiterals []int    `toml:"string-literals,omitempty"`
	Tokens         []int    `toml:"tokens,omitempty"`
	Type           string   `toml:"type"`
	Title          string   `toml:"title,omitempty"`
	Date           string   `toml:"date,omitempty"`
	InputToml      string   `toml:"input-toml,omitempty"`
}

// Load decodes a Document from r, applying the comma-collapse
// workaround to every string list.
func Load(r io.Reader) (*Document, error) {
	var doc Document
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("persist: decode: %w", err)
	}
	doc.Symbols = compressCommas(doc.Symbols)
	return &doc, nil
}

// Save encodes doc to w.
func Save(w io.Writer, doc *Document) error {
	if err := toml.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("persist: encode: %w", err)
	}
	return nil
}

// compressCommas undoes the serialization layer's quirk (spec.md §6):
// a standalone "," element in a string list is observed, on decode, as
// two consecutive empty strings. Empty strings are paired off from the
// left, each pair becoming one ","; an unpaired empty string is kept as
// it is.
func compressCommas(in []string) []string {
	out := make([]string, 0, len(in))
	for i := 0; i < len(in); i++ {
		if i+1 < len(in) && in[i] == "" && in[i+1] == "" {
			out = append(out, ",")
			i++
			continue
		}
		out = append(out, in[i])
	}
	return out
}

// FromMemorySnapshot builds a Document of type docType from live CPU
// state: the full memory image, the dictionary's symbol table in
// ordinal order, and both literal-address sets.
func FromMemorySnapshot(mem *cpu.Memory, d *dict.Dict, lits asm.LiteralMaps, docType string) *Document {
	snap := mem.Snapshot()
	memInts := make([]int, len(snap))
	for i, b := range snap {
		memInts[i] = int(b)
	}

	var symbols []string
	for i := 0; ; i++ {
		name, ok := d.NameAt(i)
		if !ok {
			break
		}
		symbols = append(symbols, name)
	}

	return &Document{
		Memory:         memInts,
		Symbols:        symbols,
		NumberLiterals: addrList(lits.Number),
		StringLiterals: addrList(lits.String),
		Type:           docType,
	}
}

func addrList(set map[uint16]bool) []int {
	out := make([]int, 0, len(set))
	for addr := range set {
		out = append(out, int(addr))
	}
	sort.Ints(out)
	return out
}

// LoadMemory copies doc's memory section into mem, if present.
func (doc *Document) LoadMemory(mem *cpu.Memory) {
	if len(doc.Memory) == 0 {
		return
	}
	data := make([]byte, len(doc.Memory))
	for i, v := range doc.Memory {
		data[i] = byte(v)
	}
	mem.Load(0, data)
}

// LiteralMaps rebuilds the asm.LiteralMaps sets from the document's
// address lists.
func (doc *Document) LiteralMaps() asm.LiteralMaps {
	lits := asm.LiteralMaps{Number: map[uint16]bool{}, String: map[uint16]bool{}}
	for _, a := range doc.NumberLiterals {
		lits.Number[uint16(a)] = true
	}
	for _, a := range doc.StringLiterals {
		lits.String[uint16(a)] = true
	}
	return lits
}
