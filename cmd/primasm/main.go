// Command primasm assembles Prim source into a persisted memory image,
// or (with -d) disassembles a previously assembled document back to a
// listing (spec.md §4.4, §6).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prim/asm"
	"prim/cpu"
	"prim/dict"
	"prim/persist"
)

func main() {
	var input, output string
	var disassemble bool

	rootCmd := &cobra.Command{
		Use:   "primasm",
		Short: "Assemble Prim source into a persisted memory image",
		RunE: func(cmd *cobra.Command, args []string) error {
			if disassemble {
				return runDisassemble(input)
			}
			return runAssemble(input, output)
		},
	}
	rootCmd.Flags().StringVarP(&input, "input", "i", "", "input source file (or document, with -d)")
	rootCmd.Flags().StringVarP(&output, "output", "o", "a.prim.toml", "output document path")
	rootCmd.Flags().BoolVarP(&disassemble, "disassemble", "d", false, "disassemble the input document instead of assembling")
	rootCmd.MarkFlagRequired("input")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAssemble(inputPath, outputPath string) error {
	src, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer src.Close()

	code, err := asm.AssembleReader(src)
	if err != nil {
		return fmt.Errorf("primasm: %w", err)
	}

	mem := cpu.NewMemory()
	mem.Load(0, code)
	mem.SetHere(uint16(len(code)))
	d := dict.New(mem)

	doc := persist.FromMemorySnapshot(mem, d, asm.LiteralMaps{}, persist.TypeTokenizer)
	doc.Symbols = nil
	doc.Title = inputPath

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := persist.Save(out, doc); err != nil {
		return fmt.Errorf("primasm: %w", err)
	}
	return nil
}

func runDisassemble(inputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	doc, err := persist.Load(in)
	if err != nil {
		return fmt.Errorf("primasm: %w", err)
	}

	mem := cpu.NewMemory()
	doc.LoadMemory(mem)
	d := disassembleDoc(mem, doc)
	for _, line := range d {
		fmt.Printf("%#04x  %s\n", line.Addr, line.Text)
	}
	return nil
}

func disassembleDoc(mem *cpu.Memory, doc *persist.Document) []asm.Line {
	lits := doc.LiteralMaps()
	symbols := make(map[uint16]string)
	dis := asm.NewDisassembler(mem, lits, symbols)
	return dis.Disassemble(0, mem.Here())
}
