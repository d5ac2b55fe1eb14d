// Command primdisasm renders a persisted memory image as a symbolic
// listing (spec.md §4.5, §6), plus a supplemented "extract" subcommand
// that pulls one raw section out of a document (mirroring the original
// toolchain's standalone binexport utility).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prim/asm"
	"prim/cpu"
	"prim/persist"
)

func main() {
	var input, output string

	rootCmd := &cobra.Command{
		Use:   "primdisasm",
		Short: "Disassemble a persisted Prim memory image",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisassemble(input, output)
		},
	}
	rootCmd.Flags().StringVarP(&input, "input", "i", "", "input document path")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "output listing path (default stdout)")
	rootCmd.MarkFlagRequired("input")

	var section, extractOutput string
	extractCmd := &cobra.Command{
		Use:   "extract",
		Short: "Write one raw section of a document to a binary file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(input, section, extractOutput)
		},
	}
	extractCmd.Flags().StringVarP(&input, "input", "i", "", "input document path")
	extractCmd.Flags().StringVarP(&section, "section", "s", "memory", "section to extract (memory, tokens, num-literals, string-literals)")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output binary file path")
	extractCmd.MarkFlagRequired("input")
	extractCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(extractCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDisassemble(inputPath, outputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	doc, err := persist.Load(in)
	if err != nil {
		return fmt.Errorf("primdisasm: %w", err)
	}

	mem := cpu.NewMemory()
	doc.LoadMemory(mem)
	lits := doc.LiteralMaps()
	symbols := symbolTable(doc.Symbols, mem)

	dis := asm.NewDisassembler(mem, lits, symbols)
	lines := dis.Disassemble(0, mem.Here())

	w := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	for _, line := range lines {
		fmt.Fprintf(w, "%#04x  %s\n", line.Addr, line.Text)
	}
	return nil
}

// symbolTable rebuilds an address -> name map from a document's ordered
// symbol list, resolving each name's current table address the way
// dict.Dict.Symbols does, without needing the original Dict instance.
func symbolTable(symbols []string, mem *cpu.Memory) map[uint16]string {
	out := make(map[uint16]string, len(symbols))
	slot := mem.Latest() + 2*uint16(len(symbols))
	for _, name := range symbols {
		addr := mem.Read16(slot)
		out[addr] = name
		slot -= 2
	}
	return out
}

func runExtract(inputPath, section, outputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	doc, err := persist.Load(in)
	if err != nil {
		return fmt.Errorf("primdisasm: %w", err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := persist.ExportSection(doc, section, out); err != nil {
		return fmt.Errorf("primdisasm: %w", err)
	}
	return nil
}
