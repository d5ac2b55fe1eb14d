// Command primforth runs the token interpreter (C7): consuming a
// persisted token stream and compiling/executing it onto a fresh Prim
// memory image (spec.md §4.7, §6).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prim/asm"
	"prim/cpu"
	"prim/dict"
	"prim/interp"
	"prim/persist"
	"prim/token"
)

func main() {
	var input, output string

	rootCmd := &cobra.Command{
		Use:   "primforth",
		Short: "Interpret a persisted token stream onto a Prim memory image",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(input, output)
		},
	}
	rootCmd.Flags().StringVarP(&input, "input", "i", "", "input document carrying a token stream")
	rootCmd.Flags().StringVarP(&output, "output", "o", "a.mem.toml", "output document path")
	rootCmd.MarkFlagRequired("input")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(inputPath, outputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	doc, err := persist.Load(in)
	if err != nil {
		return fmt.Errorf("primforth: %w", err)
	}

	tokens, err := token.Decode(doc.TokenBytes())
	if err != nil {
		return fmt.Errorf("primforth: %w", err)
	}

	mem := cpu.NewMemory()
	d := dict.New(mem)
	d.Init()

	c := cpu.NewCPU(mem)
	ip := interp.New(c, d)
	if err := ip.Run(tokens); err != nil {
		return fmt.Errorf("primforth: %w", err)
	}

	lits := asm.LiteralMaps{Number: ip.NumberLiterals, String: ip.StringLiterals}
	out := persist.FromMemorySnapshot(mem, d, lits, persist.TypeTokenForth)
	out.Title = inputPath
	out.InputToml = inputPath

	outFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	if err := persist.Save(outFile, out); err != nil {
		return fmt.Errorf("primforth: %w", err)
	}
	return nil
}
